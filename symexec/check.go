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

import "github.com/tamasvajk/nilpath/ir"

// Notification is an interesting fact a check observed during traversal,
// identified by the check that raised it and the source reference of the
// instruction it fired on. The engine records notifications in traversal
// order and hands them to the caller after the run; drivers turn them into
// diagnostics.
type Notification struct {
	Check string
	Ref   ir.Ref
}

// CheckContext is the capability handed to check hooks. It exposes the
// notification sink and read access to the function under analysis. Hooks
// must not retain it beyond the call.
type CheckContext struct {
	fn     *ir.Func
	point  Point
	notify func(Notification)
}

// Func returns the function being explored.
func (c *CheckContext) Func() *ir.Func { return c.fn }

// Point returns the program point of the instruction being processed.
func (c *CheckContext) Point() Point { return c.point }

// Notify records a notification for the caller to consume after traversal.
func (c *CheckContext) Notify(n Notification) { c.notify(n) }

// Check is a pluggable observer/mutator hooked into the traversal. A check
// instance is constructed per function exploration and discarded afterwards,
// so it may keep state across hook invocations for one traversal.
//
// PreInstruction runs before the engine interprets an instruction. It may
// return the state unchanged, return a refined replacement state, or return
// ok=false to signal that the path is fully handled and must not propagate
// further (for example, after classifying a dereference of a known-null value
// as a defect).
//
// PostInstruction runs once per successor state after interpretation, in
// registration order, to observe the final state. Hooks never add nodes to
// the frontier; only the engine does that.
//
// A hook that panics disables its check for the remainder of the current
// traversal; other checks and the base traversal continue.
type Check interface {
	Name() string
	PreInstruction(ctx *CheckContext, in ir.Instruction, s *State) (*State, bool)
	PostInstruction(ctx *CheckContext, in ir.Instruction, s *State)
}
