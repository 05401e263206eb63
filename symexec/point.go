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

package symexec

import "fmt"

// Point identifies a location in a function's control-flow graph: a basic
// block plus an instruction offset within it. Index == len(block.Instrs)
// designates the block's terminator. A Point paired with a State forms one
// node of the exploded graph.
type Point struct {
	Block int
	Index int
}

// String renders the point as "block:index".
func (p Point) String() string { return fmt.Sprintf("%d:%d", p.Block, p.Index) }
