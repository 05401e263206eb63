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

// main package builds nilpath as a standalone checker that can be invoked
// directly on packages, outside of any larger driver.
package main

import (
	"flag"

	"github.com/tamasvajk/nilpath"
	"github.com/tamasvajk/nilpath/config"
	"golang.org/x/tools/go/analysis/singlechecker"
)

func main() {
	// Lift the flags of the config analyzer to the top level so users write
	// `nilpath -max-steps 50000 ./...` instead of addressing the
	// "nilpath_config" sub-analyzer by name.
	config.Analyzer.Flags.VisitAll(func(f *flag.Flag) { flag.Var(f.Value, f.Name, f.Usage) })

	singlechecker.Main(nilpath.Analyzer)
}
