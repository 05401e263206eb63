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

// Package nilderef implements the nullable-access check: it watches
// value-facet reads (dereferences) during symbolic execution and raises a
// notification whenever the value being read is provably null on the current
// path. The faulting path is pruned, so a single defect does not cascade into
// follow-on notifications further down the same path.
package nilderef

import (
	"github.com/tamasvajk/nilpath/ir"
	"github.com/tamasvajk/nilpath/symexec"
)

// CheckName identifies this check in notifications.
const CheckName = "nilderef"

// Check is the nullable-access check. One instance serves one traversal; it
// remembers which source references it has already reported so that multiple
// null paths converging on the same dereference yield one notification.
type Check struct {
	reported map[ir.Ref]struct{}
}

// New returns a check instance for a single traversal.
func New() *Check {
	return &Check{reported: make(map[ir.Ref]struct{})}
}

// Name implements symexec.Check.
func (c *Check) Name() string { return CheckName }

// PreInstruction classifies a value-facet read whose target is constrained
// Null as a defect: it notifies with the identifying source reference and
// stops the path, modeling that execution cannot continue past the fault.
// All other instructions pass through untouched.
func (c *Check) PreInstruction(ctx *symexec.CheckContext, in ir.Instruction, s *symexec.State) (*symexec.State, bool) {
	if in.Op != ir.OpMember || in.Facet != ir.FacetValue {
		return s, true
	}
	parent := s.Peek()
	if parent == nil {
		// Unbalanced stack; leave it to the engine's contract check.
		return s, true
	}
	underlying, ok := symexec.AsNullable(parent)
	if !ok {
		return s, true
	}
	if s.Constraint(underlying, symexec.CatNullness) != symexec.Null {
		return s, true
	}

	if _, seen := c.reported[in.Ref]; !seen {
		c.reported[in.Ref] = struct{}{}
		ctx.Notify(symexec.Notification{Check: CheckName, Ref: in.Ref})
	}
	return nil, false
}

// PostInstruction implements symexec.Check; this check observes nothing after
// interpretation.
func (c *Check) PostInstruction(*symexec.CheckContext, ir.Instruction, *symexec.State) {}
