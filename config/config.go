//  Copyright (c) 2025 Tamas Vajk
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config provides the configuration analyzer: a sub-analyzer every
// other analyzer in this module depends on to obtain user configuration. It
// exposes the settings as driver flags, optionally pre-populated from a YAML
// configuration file, so the same knobs work through the standalone binary,
// golangci-lint, and any other go/analysis driver.
package config

import (
	"flag"
	"fmt"
	"os"
	"reflect"
	"strconv"

	"golang.org/x/tools/go/analysis"
	"gopkg.in/yaml.v3"
)

// Flag names, exported so drivers can look them up and lift them to their own
// command lines.
const (
	// MaxStepsFlag caps exploded-graph nodes per function; see
	// DefaultMaxSteps.
	MaxStepsFlag = "max-steps"
	// StatsFileFlag names a file to write the compressed per-function
	// exploration statistics to; empty disables the dump.
	StatsFileFlag = "stats-file"
	// ConfigFileFlag names a YAML file providing defaults for the other
	// flags; explicitly set flags win over file values.
	ConfigFileFlag = "config-file"
)

const _doc = "Read the configuration from driver flags (optionally seeded from a YAML file) and make " +
	"it available to the other analyzers in this module"

// Config is the resolved configuration shared by all analyzers of a run.
type Config struct {
	// MaxSteps is the per-function exploded-graph node ceiling.
	MaxSteps int
	// StatsFile, when non-empty, receives the encoded exploration summary.
	StatsFile string
}

// Analyzer hosts the configuration flags and produces the resolved *Config.
var Analyzer = &analysis.Analyzer{
	Name:       "nilpath_config",
	Doc:        _doc,
	Run:        run,
	ResultType: reflect.TypeOf((*Config)(nil)),
	Flags:      newFlagSet(),
}

func newFlagSet() flag.FlagSet {
	fs := flag.NewFlagSet("nilpath_config", flag.ExitOnError)
	fs.Int(MaxStepsFlag, DefaultMaxSteps, "maximum number of exploded-graph nodes to process per function (0 for no limit)")
	fs.String(StatsFileFlag, "", "file to write compressed per-function exploration statistics to")
	fs.String(ConfigFileFlag, "", "YAML file with configuration values; explicitly set flags take precedence")
	return *fs
}

// fileConfig mirrors Config for YAML decoding. Pointer fields distinguish
// absent keys from zero values.
type fileConfig struct {
	MaxSteps  *int    `yaml:"max-steps"`
	StatsFile *string `yaml:"stats-file"`
}

func run(pass *analysis.Pass) (interface{}, error) {
	conf := &Config{MaxSteps: DefaultMaxSteps}

	fs := &pass.Analyzer.Flags
	if f := fs.Lookup(ConfigFileFlag); f != nil && f.Value.String() != "" {
		if err := loadFile(f.Value.String(), conf); err != nil {
			return nil, err
		}
	}

	// Explicitly set flags override file values; Visit only sees those.
	var err error
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case MaxStepsFlag:
			v, convErr := strconv.Atoi(f.Value.String())
			if convErr != nil {
				err = fmt.Errorf("parse flag %q: %w", MaxStepsFlag, convErr)
				return
			}
			conf.MaxSteps = v
		case StatsFileFlag:
			conf.StatsFile = f.Value.String()
		}
	})
	if err != nil {
		return nil, err
	}
	if conf.MaxSteps < 0 {
		return nil, fmt.Errorf("flag %q must be non-negative, got %d", MaxStepsFlag, conf.MaxSteps)
	}
	return conf, nil
}

func loadFile(path string, conf *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(b, &fc); err != nil {
		return fmt.Errorf("parse config file %q: %w", path, err)
	}
	if fc.MaxSteps != nil {
		conf.MaxSteps = *fc.MaxSteps
	}
	if fc.StatsFile != nil {
		conf.StatsFile = *fc.StatsFile
	}
	return nil
}
