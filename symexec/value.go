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

// Package symexec implements a flow-sensitive symbolic execution engine. It
// explores every feasible path through a lowered function body (an ir.Func),
// threading an immutable program state through each instruction, and lets
// registered checks observe and refine the exploration to raise notifications
// that drivers turn into diagnostics.
package symexec

import (
	"fmt"

	"github.com/tamasvajk/nilpath/ir"
)

// Value is an abstract stand-in for a runtime value. The variant set is
// closed: plain identity-bearing values, nullable wrappers, member-access
// reads derived from a parent, and logical negations. All variants are
// comparable structs, so Go's == is exactly structural identity: two
// member-access values with the same parent and facet are the same value,
// and values are usable as map keys without any interning machinery.
type Value interface {
	fmt.Stringer
	isValue()
}

// plainValue is an opaque value with no further structure. Its identity is
// the program point that created it, which keeps the value universe of a
// function finite: re-executing the same instruction on a later loop
// iteration reproduces the same value instead of minting a fresh one, so
// loop states converge and traversal terminates even without a step ceiling.
type plainValue struct {
	block int32
	index int32
}

func (plainValue) isValue() {}

func (v plainValue) String() string { return fmt.Sprintf("v%d.%d", v.block, v.index) }

// nullableValue wraps the underlying value of a nullable-typed expression.
// Nullability constraints live on the wrapped value; the wrapper exists so
// member reads can distinguish the value facet from the has-value facet.
type nullableValue struct {
	wrapped Value
}

func (nullableValue) isValue() {}

func (v nullableValue) String() string { return fmt.Sprintf("opt(%s)", v.wrapped) }

// memberValue is the result of reading a facet of a parent value. It is never
// constructed independently of its parent; its identity is (parent, facet,
// member-name tag), so re-reading the same member of the same parent yields
// the same value and constraints learned about it persist across reads.
type memberValue struct {
	parent Value
	facet  ir.Facet
	name   string
}

func (memberValue) isValue() {}

func (v memberValue) String() string {
	if v.facet == ir.FacetHasValue {
		return fmt.Sprintf("%s.%s", v.parent, v.facet)
	}
	return fmt.Sprintf("%s.%s(%s)", v.parent, v.facet, v.name)
}

// notValue is the logical negation of its operand. Truth constraints set on
// it propagate inverted onto the operand.
type notValue struct {
	operand Value
}

func (notValue) isValue() {}

func (v notValue) String() string { return fmt.Sprintf("!%s", v.operand) }

// freshValue returns the plain value owned by the given program point.
func freshValue(p Point) Value {
	return plainValue{block: int32(p.Block), index: int32(p.Index)}
}

// wrapNullable wraps v unless it already is a nullable wrapper.
func wrapNullable(v Value) Value {
	if _, ok := v.(nullableValue); ok {
		return v
	}
	return nullableValue{wrapped: v}
}

// AsNullable reports whether v is a nullable wrapper and, if so, returns its
// underlying value. Checks use this to find the value that carries the
// nullability constraints of an optional-typed expression.
func AsNullable(v Value) (underlying Value, ok bool) {
	n, ok := v.(nullableValue)
	if !ok {
		return nil, false
	}
	return n.wrapped, true
}
