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

package nilderef_test

import (
	"context"
	"go/token"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tamasvajk/nilpath/checks/nilderef"
	"github.com/tamasvajk/nilpath/ir"
	"github.com/tamasvajk/nilpath/symexec"
)

type sym string

func (s sym) String() string { return string(s) }

func explore(t *testing.T, fn *ir.Func) []symexec.Notification {
	t.Helper()
	g, err := symexec.New(fn, symexec.Options{Checks: []symexec.Check{nilderef.New()}})
	require.NoError(t, err)
	res, err := g.Run(context.Background())
	require.NoError(t, err)
	require.True(t, res.Complete)
	require.Empty(t, res.CheckErrors)
	return res.Notifications
}

func load(s string) ir.Instruction {
	return ir.Instruction{Op: ir.OpLoad, Sym: sym(s), Nullable: true}
}

func store(s string) ir.Instruction {
	return ir.Instruction{Op: ir.OpStore, Sym: sym(s), Nullable: true}
}

func deref(at token.Pos, text string) ir.Instruction {
	return ir.Instruction{Op: ir.OpMember, Facet: ir.FacetValue, Member: "*", Ref: ir.Ref{Pos: at, Text: text}}
}

func hasValue() ir.Instruction {
	return ir.Instruction{Op: ir.OpMember, Facet: ir.FacetHasValue}
}

// Assigning nil and dereferencing unconditionally yields exactly one
// notification identifying the dereference.
func TestDerefOfAssignedNil(t *testing.T) {
	t.Parallel()

	fn := &ir.Func{
		Name: "derefNil",
		Blocks: []*ir.Block{
			{Index: 0, Instrs: []ir.Instruction{
				{Op: ir.OpLiteral, Lit: ir.LitNil},
				store("x"),
				load("x"),
				deref(7, "*x"),
				{Op: ir.OpDiscard},
			}},
		},
	}
	ns := explore(t, fn)
	require.Len(t, ns, 1)
	require.Equal(t, nilderef.CheckName, ns[0].Check)
	require.Equal(t, token.Pos(7), ns[0].Ref.Pos)
	require.Equal(t, "*x", ns[0].Ref.Text)
}

// A has-value guard makes the guarded dereference infeasible on the nil path;
// only the dereference after the guard is reported.
func TestGuardedThenUnguardedDeref(t *testing.T) {
	t.Parallel()

	fn := &ir.Func{
		Name: "guarded",
		Blocks: []*ir.Block{
			{Index: 0, Instrs: []ir.Instruction{
				{Op: ir.OpLiteral, Lit: ir.LitNil},
				store("x"),
				load("x"),
				hasValue(),
			}, Cond: true, Succs: []int{1, 2}},
			// Guarded dereference: unreachable, x is provably nil.
			{Index: 1, Instrs: []ir.Instruction{
				load("x"),
				deref(10, "*x"),
				{Op: ir.OpDiscard},
			}, Succs: []int{3}},
			{Index: 2, Succs: []int{3}},
			// Unguarded dereference after the join.
			{Index: 3, Instrs: []ir.Instruction{
				load("x"),
				deref(20, "*x"),
				{Op: ir.OpDiscard},
			}},
		},
	}
	ns := explore(t, fn)
	require.Len(t, ns, 1)
	require.Equal(t, token.Pos(20), ns[0].Ref.Pos)
}

// A non-nil assignment never triggers a report.
func TestDerefOfNonNil(t *testing.T) {
	t.Parallel()

	fn := &ir.Func{
		Name: "nonNil",
		Blocks: []*ir.Block{
			{Index: 0, Instrs: []ir.Instruction{
				{Op: ir.OpLiteral, Lit: ir.LitNonNil},
				store("x"),
				load("x"),
				deref(5, "*x"),
				{Op: ir.OpDiscard},
			}},
		},
	}
	require.Empty(t, explore(t, fn))
}

// An unassigned nullable parameter guarded by a negated has-value check: the
// negated guard feasibly implies nil inside the branch, so the dereference
// there is reported exactly once.
func TestNegatedGuardOnParameter(t *testing.T) {
	t.Parallel()

	fn := &ir.Func{
		Name: "negGuard",
		Blocks: []*ir.Block{
			{Index: 0, Instrs: []ir.Instruction{
				load("x"),
				hasValue(),
				{Op: ir.OpNot},
			}, Cond: true, Succs: []int{1, 2}},
			{Index: 1, Instrs: []ir.Instruction{
				load("x"),
				deref(30, "*x"),
				{Op: ir.OpDiscard},
			}, Succs: []int{2}},
			{Index: 2},
		},
	}
	ns := explore(t, fn)
	require.Len(t, ns, 1)
	require.Equal(t, token.Pos(30), ns[0].Ref.Pos)
}

// The faulting path stops at the reported dereference: a second dereference
// downstream of the first is not additionally reported.
func TestFaultingPathIsPruned(t *testing.T) {
	t.Parallel()

	fn := &ir.Func{
		Name: "cascade",
		Blocks: []*ir.Block{
			{Index: 0, Instrs: []ir.Instruction{
				{Op: ir.OpLiteral, Lit: ir.LitNil},
				store("x"),
				load("x"),
				deref(1, "*x"),
				{Op: ir.OpDiscard},
				load("x"),
				deref(2, "*x"),
				{Op: ir.OpDiscard},
			}},
		},
	}
	ns := explore(t, fn)
	require.Len(t, ns, 1)
	require.Equal(t, token.Pos(1), ns[0].Ref.Pos)
}

// Converging nil paths report a shared dereference once, not once per path.
func TestConvergingPathsReportOnce(t *testing.T) {
	t.Parallel()

	fn := &ir.Func{
		Name: "converge",
		Blocks: []*ir.Block{
			// Branch on an opaque condition; both arms assign nil.
			{Index: 0, Instrs: []ir.Instruction{
				{Op: ir.OpLiteral, Lit: ir.LitOpaque},
			}, Cond: true, Succs: []int{1, 2}},
			{Index: 1, Instrs: []ir.Instruction{
				{Op: ir.OpLiteral, Lit: ir.LitNil},
				store("x"),
				{Op: ir.OpLiteral, Lit: ir.LitTrue},
				{Op: ir.OpStore, Sym: sym("b")},
			}, Succs: []int{3}},
			{Index: 2, Instrs: []ir.Instruction{
				{Op: ir.OpLiteral, Lit: ir.LitNil},
				store("x"),
				{Op: ir.OpLiteral, Lit: ir.LitFalse},
				{Op: ir.OpStore, Sym: sym("b")},
			}, Succs: []int{3}},
			{Index: 3, Instrs: []ir.Instruction{
				load("x"),
				deref(42, "*x"),
				{Op: ir.OpDiscard},
			}},
		},
	}
	ns := explore(t, fn)
	require.Len(t, ns, 1)
	require.Equal(t, token.Pos(42), ns[0].Ref.Pos)
}
