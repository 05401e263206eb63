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

import (
	"fmt"
	"slices"
	"strings"

	"github.com/tamasvajk/nilpath/ir"
)

// constraintPair holds the at-most-one constraint per category attached to a
// value. The zero value means fully unconstrained.
type constraintPair struct {
	nullness Constraint
	truth    Constraint
}

func (p constraintPair) get(cat Category) Constraint {
	if cat == CatNullness {
		return p.nullness
	}
	return p.truth
}

func (p constraintPair) with(c Constraint) constraintPair {
	if c.Category() == CatNullness {
		p.nullness = c
	} else {
		p.truth = c
	}
	return p
}

func (p constraintPair) empty() bool {
	return p.nullness == Unconstrained && p.truth == Unconstrained
}

// State is an immutable snapshot of the engine's view of one execution path:
// an evaluation stack of intermediate results, a table binding symbols to
// their current values, and a table of constraints attached to values. Every
// mutator returns a new snapshot; the receiver is never modified, so states
// can be shared freely between exploded-graph nodes and compared structurally
// for the visited-set dedup.
type State struct {
	stack       []Value
	bindings    map[ir.Symbol]Value
	constraints map[Value]constraintPair
}

// NewState returns the empty state used at function entry.
func NewState() *State {
	return &State{}
}

// clone returns a shallow copy sharing the stack slice. Callers must copy the
// map they are about to write; the stack is only ever extended through
// appendStack, which copies.
func (s *State) clone() *State {
	c := *s
	return &c
}

func (s *State) cloneBindings() map[ir.Symbol]Value {
	m := make(map[ir.Symbol]Value, len(s.bindings)+1)
	for k, v := range s.bindings {
		m[k] = v
	}
	return m
}

func (s *State) cloneConstraints() map[Value]constraintPair {
	m := make(map[Value]constraintPair, len(s.constraints)+1)
	for k, v := range s.constraints {
		m[k] = v
	}
	return m
}

// Push returns a state with v on top of the evaluation stack.
func (s *State) Push(v Value) *State {
	c := s.clone()
	c.stack = append(slices.Clip(s.stack), v)
	return c
}

// Pop returns a state with the top of the stack removed, and the removed
// value. Popping an empty stack means the frontend produced an unbalanced
// instruction sequence; that is a contract violation, not a recoverable
// condition, so it panics (the traversal boundary converts it to a
// function-scoped error).
func (s *State) Pop() (*State, Value) {
	if len(s.stack) == 0 {
		panic("symexec: pop on empty evaluation stack")
	}
	c := s.clone()
	v := s.stack[len(s.stack)-1]
	c.stack = s.stack[:len(s.stack)-1]
	return c, v
}

// Peek returns the top of the stack without removing it, or nil if the stack
// is empty.
func (s *State) Peek() Value {
	if len(s.stack) == 0 {
		return nil
	}
	return s.stack[len(s.stack)-1]
}

// StackLen returns the evaluation stack depth.
func (s *State) StackLen() int { return len(s.stack) }

// Bind returns a state in which sym is bound to v, replacing any prior
// binding.
func (s *State) Bind(sym ir.Symbol, v Value) *State {
	c := s.clone()
	c.bindings = s.cloneBindings()
	c.bindings[sym] = v
	return c
}

// Binding returns the value bound to sym, if any. An unbound symbol is not an
// error; it simply has no known value yet.
func (s *State) Binding(sym ir.Symbol) (Value, bool) {
	v, ok := s.bindings[sym]
	return v, ok
}

// Constraint returns the constraint attached to v in the given category, or
// Unconstrained.
func (s *State) Constraint(v Value, cat Category) Constraint {
	return s.constraints[v].get(cat)
}

// SetConstraint returns a state with c attached to v, or ok=false if c
// contradicts a constraint v already holds in the same category, meaning the
// path being explored cannot actually occur. Attaching a constraint that
// already holds returns the receiver unchanged.
//
// Setting a truth constraint propagates through derived values: a negation
// value passes the inverted constraint to its operand, and the has-value
// facet of a nullable passes NotNull (for True) or Null (for False) to the
// nullable's underlying value. This linkage is what lets a "has value" guard
// refine the safety of dereferences on the guarded paths.
func (s *State) SetConstraint(v Value, c Constraint) (*State, bool) {
	existing := s.Constraint(v, c.Category())
	if existing == c {
		return s, true
	}
	if existing != Unconstrained {
		return nil, false
	}

	next := s.clone()
	next.constraints = s.cloneConstraints()
	next.constraints[v] = next.constraints[v].with(c)

	if c.Category() != CatTruth {
		return next, true
	}
	switch d := v.(type) {
	case notValue:
		return next.SetConstraint(d.operand, c.Negate())
	case memberValue:
		if d.facet != ir.FacetHasValue {
			return next, true
		}
		underlying, ok := AsNullable(d.parent)
		if !ok {
			return next, true
		}
		if c == True {
			return next.SetConstraint(underlying, NotNull)
		}
		return next.SetConstraint(underlying, Null)
	}
	return next, true
}

// Equal reports structural equality: same stack contents in order, same
// bindings, same constraint tables. Two independently built states with
// identical contents compare equal, which the visited-set dedup (and thus
// termination) depends on.
func (s *State) Equal(o *State) bool {
	if s == o {
		return true
	}
	if s == nil || o == nil {
		return false
	}
	if len(s.stack) != len(o.stack) || len(s.bindings) != len(o.bindings) || len(s.constraints) != len(o.constraints) {
		return false
	}
	for i, v := range s.stack {
		if o.stack[i] != v {
			return false
		}
	}
	for k, v := range s.bindings {
		if ov, ok := o.bindings[k]; !ok || ov != v {
			return false
		}
	}
	for k, v := range s.constraints {
		if ov, ok := o.constraints[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

// Fingerprint returns a canonical rendering of the state. Structurally equal
// states produce identical fingerprints regardless of construction order, so
// the fingerprint doubles as the visited-set key and as a readable dump for
// debugging.
func (s *State) Fingerprint() string {
	var b strings.Builder
	b.WriteString("stack[")
	for i, v := range s.stack {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(v.String())
	}
	b.WriteString("] bind[")
	binds := make([]string, 0, len(s.bindings))
	for k, v := range s.bindings {
		binds = append(binds, fmt.Sprintf("%s=%s", k, v))
	}
	slices.Sort(binds)
	b.WriteString(strings.Join(binds, " "))
	b.WriteString("] cons[")
	cons := make([]string, 0, len(s.constraints))
	for v, p := range s.constraints {
		if p.empty() {
			continue
		}
		var facts []string
		if p.nullness != Unconstrained {
			facts = append(facts, p.nullness.String())
		}
		if p.truth != Unconstrained {
			facts = append(facts, p.truth.String())
		}
		cons = append(cons, fmt.Sprintf("%s:%s", v, strings.Join(facts, ",")))
	}
	slices.Sort(cons)
	b.WriteString(strings.Join(cons, " "))
	b.WriteString("]")
	return b.String()
}
