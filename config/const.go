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

package config

import "time"

// This file hosts non-user-configurable parameters --- these are for development and testing purposes only.

// DefaultMaxSteps is the default ceiling on exploded-graph nodes processed
// per function. Path exploration is exponential in the number of independent
// guards (k boolean guards can yield 2^k distinct states at a join), so a
// ceiling is required for pathological functions. Hitting it marks the
// function's analysis incomplete rather than failing it; notifications found
// before the ceiling remain valid. The value is sized so that ordinary
// functions finish well below it while a runaway function is cut off within
// milliseconds rather than seconds.
const DefaultMaxSteps = 20000

// ExploreTimeout bounds the wall-clock time spent exploring all functions of
// one package. The step ceiling is the primary self-limiting mechanism; this
// is a second line of defense for the whole-package run so a single
// pathological package cannot stall a build.
const ExploreTimeout = 5 * time.Minute

// MaxFuncSizeInBytes skips symbolic exploration of overly large function
// bodies. Lowering and exploring such functions costs far more than the
// value of the reports they produce.
const MaxFuncSizeInBytes = 100000
