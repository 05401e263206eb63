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

// Package ir defines the instruction-level representation that the symbolic
// execution engine consumes. It is the contract between the engine and any
// frontend: a function is an ordered sequence of basic blocks, each an ordered
// sequence of stack-machine instructions, with all semantic-model questions
// (symbol identity, nullability of a type) already resolved by the frontend
// and recorded on the instructions themselves.
package ir

import (
	"fmt"
	"go/token"
)

// Op is the operation kind of an instruction. Each instruction manipulates the
// engine's evaluation stack; the stack effect is noted per kind.
type Op uint8

const (
	// OpLoad pushes the value currently bound to Sym, binding a fresh value
	// first if the symbol is unbound. Stack: -0 +1.
	OpLoad Op = iota
	// OpLiteral pushes a fresh value constrained according to Lit. Stack: -0 +1.
	OpLiteral
	// OpMember pops a parent value and pushes the result of reading the Facet
	// of it. Stack: -1 +1.
	OpMember
	// OpNot pops a value and pushes its logical negation. Stack: -1 +1.
	OpNot
	// OpStore pops a value and binds it to Sym. Stack: -1 +0.
	OpStore
	// OpDiscard pops a value and drops it. Stack: -1 +0.
	OpDiscard
)

// String returns the mnemonic of the operation.
func (op Op) String() string {
	switch op {
	case OpLoad:
		return "load"
	case OpLiteral:
		return "literal"
	case OpMember:
		return "member"
	case OpNot:
		return "not"
	case OpStore:
		return "store"
	case OpDiscard:
		return "discard"
	}
	return fmt.Sprintf("op(%d)", uint8(op))
}

// Facet selects which aspect of a nullable value a member read observes.
type Facet uint8

const (
	// FacetValue reads the wrapped value itself, i.e., a dereference.
	FacetValue Facet = iota
	// FacetHasValue reads the boolean "is there a value" fact, i.e., a nil check.
	FacetHasValue
)

// String returns the facet name.
func (f Facet) String() string {
	if f == FacetHasValue {
		return "hasvalue"
	}
	return "value"
}

// LitKind classifies the literals the engine distinguishes. Anything the
// frontend cannot classify more precisely is lowered as LitOpaque, which
// carries no constraints and therefore never prunes a path.
type LitKind uint8

const (
	// LitOpaque is an unconstrained fresh value.
	LitOpaque LitKind = iota
	// LitNil is a value known to be null.
	LitNil
	// LitNonNil is a value known to be non-null (e.g., &x, new(T)).
	LitNonNil
	// LitTrue is a boolean value known to be true.
	LitTrue
	// LitFalse is a boolean value known to be false.
	LitFalse
)

// Symbol identifies a variable, parameter, or field that values can be bound
// to. Implementations must be comparable (usable as map keys), and String must
// uniquely identify the symbol within its function: the engine uses it when
// fingerprinting states, so two distinct symbols rendering to the same string
// would be unsoundly merged.
type Symbol interface {
	String() string
}

// Ref points back at the source expression an instruction was lowered from.
// It is the payload of check notifications; the engine itself only carries it
// through.
type Ref struct {
	Pos  token.Pos
	Text string
}

// Instruction is one stack-machine step. Only the fields relevant for the Op
// are meaningful: Sym for OpLoad/OpStore, Lit for OpLiteral, Facet and Member
// for OpMember. Member is the member-name tag of a value-facet read ("*" for
// a plain dereference, the field name for a field read); reads with equal
// parent and equal tag denote the same derived value. Nullable records the
// semantic model's nullable-of-T classification for the symbol being loaded
// or stored, or for the result of a value-facet read.
type Instruction struct {
	Op       Op
	Sym      Symbol
	Lit      LitKind
	Facet    Facet
	Member   string
	Nullable bool
	Ref      Ref
}

// String renders the instruction for debugging output.
func (in Instruction) String() string {
	switch in.Op {
	case OpLoad, OpStore:
		return fmt.Sprintf("%s %s", in.Op, in.Sym)
	case OpLiteral:
		return fmt.Sprintf("%s kind=%d", in.Op, in.Lit)
	case OpMember:
		if in.Facet == FacetValue {
			return fmt.Sprintf("%s .%s(%s)", in.Op, in.Facet, in.Member)
		}
		return fmt.Sprintf("%s .%s", in.Op, in.Facet)
	}
	return in.Op.String()
}

// Block is a basic block: ordered instructions followed by an implicit
// terminator. A block with Cond set branches on the value left on top of the
// stack by its last instruction and must have exactly two successors, the
// true target first (the same convention golang.org/x/tools/go/cfg uses).
// A block without Cond falls through to zero or one successors; zero
// successors end the path.
type Block struct {
	Index  int
	Instrs []Instruction
	Cond   bool
	Succs  []int
}

// Func is a lowered function body.
type Func struct {
	Name   string
	Entry  int
	Blocks []*Block
}

// Validate checks structural well-formedness: block indices match positions,
// successor references are in range, conditional blocks have exactly two
// successors and at least one instruction to produce the condition, and the
// entry index is valid. A frontend handing the engine a function failing
// Validate has violated the CFG contract.
func (f *Func) Validate() error {
	if len(f.Blocks) == 0 {
		return fmt.Errorf("function %q has no blocks", f.Name)
	}
	if f.Entry < 0 || f.Entry >= len(f.Blocks) {
		return fmt.Errorf("function %q entry block %d out of range [0, %d)", f.Name, f.Entry, len(f.Blocks))
	}
	for i, b := range f.Blocks {
		if b == nil {
			return fmt.Errorf("function %q block %d is nil", f.Name, i)
		}
		if b.Index != i {
			return fmt.Errorf("function %q block at position %d has index %d", f.Name, i, b.Index)
		}
		if b.Cond {
			if len(b.Succs) != 2 {
				return fmt.Errorf("function %q block %d branches but has %d successors", f.Name, i, len(b.Succs))
			}
			if len(b.Instrs) == 0 {
				return fmt.Errorf("function %q block %d branches but has no instruction producing the condition", f.Name, i)
			}
		} else if len(b.Succs) > 1 {
			return fmt.Errorf("function %q block %d does not branch but has %d successors", f.Name, i, len(b.Succs))
		}
		for _, s := range b.Succs {
			if s < 0 || s >= len(f.Blocks) {
				return fmt.Errorf("function %q block %d successor %d out of range [0, %d)", f.Name, i, s, len(f.Blocks))
			}
		}
		for j, in := range b.Instrs {
			switch in.Op {
			case OpLoad, OpStore:
				if in.Sym == nil {
					return fmt.Errorf("function %q block %d instruction %d: %s without symbol", f.Name, i, j, in.Op)
				}
			case OpLiteral, OpMember, OpNot, OpDiscard:
			default:
				return fmt.Errorf("function %q block %d instruction %d: unknown op %d", f.Name, i, j, uint8(in.Op))
			}
		}
	}
	return nil
}
