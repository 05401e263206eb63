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

// Package gclplugin implements golangci-lint's module plugin interface so
// nilpath can run as a private linter inside golangci-lint. See
// https://golangci-lint.run/plugins/module-plugins/ for the wiring on the
// golangci-lint side.
package gclplugin

import (
	"fmt"

	"github.com/golangci/plugin-module-register/register"
	"github.com/tamasvajk/nilpath"
	"github.com/tamasvajk/nilpath/config"
	"golang.org/x/tools/go/analysis"
)

func init() {
	register.Plugin("nilpath", New)
}

// New returns the golangci-lint plugin wrapping the nilpath analyzer.
func New(settings any) (register.LinterPlugin, error) {
	// Settings arrive as a generic map; values are applied to the config
	// analyzer's flags, so they use the same names and syntax as the command
	// line.
	s, ok := settings.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expect nilpath settings to be a map from flag names to string values, got %T", settings)
	}
	conf := make(map[string]string, len(s))
	for k, v := range s {
		vStr, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("expect nilpath setting %q to be a string, got %T", k, v)
		}
		conf[k] = vStr
	}

	return &Plugin{conf: conf}, nil
}

// Plugin is the nilpath plugin wrapper for golangci-lint.
type Plugin struct {
	conf map[string]string
}

// BuildAnalyzers applies the settings to the config analyzer and returns the
// nilpath analyzer.
func (p *Plugin) BuildAnalyzers() ([]*analysis.Analyzer, error) {
	for k, v := range p.conf {
		if err := config.Analyzer.Flags.Set(k, v); err != nil {
			return nil, fmt.Errorf("set config flag %s with %s: %w", k, v, err)
		}
	}

	return []*analysis.Analyzer{nilpath.Analyzer}, nil
}

// GetLoadMode returns the load mode of the nilpath plugin (requiring types
// info).
func (p *Plugin) GetLoadMode() string { return register.LoadModeTypesInfo }
