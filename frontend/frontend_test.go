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

package frontend_test

import (
	"context"
	"go/ast"
	"go/parser"
	"go/token"
	"go/types"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tamasvajk/nilpath/checks/nilderef"
	"github.com/tamasvajk/nilpath/frontend"
	"github.com/tamasvajk/nilpath/symexec"
	"golang.org/x/tools/go/cfg"
)

// lowerAndRun type-checks src, lowers the function named fn, and explores it
// with the nil-dereference check attached. It returns the reported expression
// texts in traversal order.
func lowerAndRun(t *testing.T, src, fn string) []string {
	t.Helper()

	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "src.go", "package p\n\n"+src, 0)
	require.NoError(t, err)

	info := &types.Info{
		Types:      make(map[ast.Expr]types.TypeAndValue),
		Defs:       make(map[*ast.Ident]types.Object),
		Uses:       make(map[*ast.Ident]types.Object),
		Selections: make(map[*ast.SelectorExpr]*types.Selection),
		Implicits:  make(map[ast.Node]types.Object),
	}
	conf := types.Config{}
	_, err = conf.Check("p", fset, []*ast.File{file}, info)
	require.NoError(t, err)

	var decl *ast.FuncDecl
	for _, d := range file.Decls {
		if fd, ok := d.(*ast.FuncDecl); ok && fd.Name.Name == fn {
			decl = fd
		}
	}
	require.NotNil(t, decl, "function %s not found", fn)

	g := cfg.New(decl.Body, func(*ast.CallExpr) bool { return true })
	irFn, err := frontend.NewLowerer(info).Lower(fn, g)
	require.NoError(t, err)

	graph, err := symexec.New(irFn, symexec.Options{Checks: []symexec.Check{nilderef.New()}})
	require.NoError(t, err)
	res, err := graph.Run(context.Background())
	require.NoError(t, err)
	require.True(t, res.Complete)
	require.Empty(t, res.CheckErrors)

	var texts []string
	for _, n := range res.Notifications {
		texts = append(texts, n.Ref.Text)
	}
	return texts
}

func TestZeroValuePointerDeref(t *testing.T) {
	t.Parallel()

	got := lowerAndRun(t, `
func f() int {
	var x *int
	return *x
}
`, "f")
	require.Equal(t, []string{"*x"}, got)
}

func TestNilGuardSuppressesDeref(t *testing.T) {
	t.Parallel()

	got := lowerAndRun(t, `
func f(x *int) int {
	if x != nil {
		return *x
	}
	return 0
}
`, "f")
	require.Empty(t, got)
}

func TestNegatedGuardImpliesNil(t *testing.T) {
	t.Parallel()

	got := lowerAndRun(t, `
func f(x *int) int {
	if x == nil {
		return *x
	}
	return 0
}
`, "f")
	require.Equal(t, []string{"*x"}, got)
}

func TestDerefAfterGuardedBranch(t *testing.T) {
	t.Parallel()

	// The guarded dereference is clean; the fall-through dereference still
	// runs on the nil path and is the only report.
	got := lowerAndRun(t, `
func f(x *int) int {
	if x != nil {
		return *x
	}
	return *x
}
`, "f")
	require.Equal(t, []string{"*x"}, got)
}

func TestAddressOfIsNonNil(t *testing.T) {
	t.Parallel()

	got := lowerAndRun(t, `
func f() int {
	y := 0
	x := &y
	return *x
}
`, "f")
	require.Empty(t, got)
}

func TestNewIsNonNil(t *testing.T) {
	t.Parallel()

	got := lowerAndRun(t, `
func f() int {
	x := new(int)
	return *x
}
`, "f")
	require.Empty(t, got)
}

func TestNilAssignmentOverwritesGuard(t *testing.T) {
	t.Parallel()

	got := lowerAndRun(t, `
func f(x *int) int {
	if x == nil {
		return 0
	}
	x = nil
	return *x
}
`, "f")
	require.Equal(t, []string{"*x"}, got)
}

func TestFieldAccessTracksMemberIdentity(t *testing.T) {
	t.Parallel()

	// The two reads of n.next denote the same value, so the guard's verdict
	// carries over to the dereference inside the branch.
	got := lowerAndRun(t, `
type node struct {
	next *node
	val  int
}

func f(n *node) int {
	if n.next == nil {
		return n.next.val
	}
	return 0
}
`, "f")
	require.Equal(t, []string{"n.next.val"}, got)
}

func TestFieldGuardSuppressesFieldDeref(t *testing.T) {
	t.Parallel()

	got := lowerAndRun(t, `
type node struct {
	next *node
	val  int
}

func f(n *node) int {
	if n.next != nil {
		return n.next.val
	}
	return 0
}
`, "f")
	require.Empty(t, got)
}

func TestLoopConverges(t *testing.T) {
	t.Parallel()

	// A loop that repeatedly rebinds the pointer still converges because
	// values are identified by their creation site; the loop-carried nil
	// reaches the dereference after the loop.
	got := lowerAndRun(t, `
func f(n int) int {
	var x *int
	for i := 0; i < n; i++ {
		x = nil
	}
	return *x
}
`, "f")
	require.Equal(t, []string{"*x"}, got)
}

func TestShortCircuitGuardIsOpaque(t *testing.T) {
	t.Parallel()

	// Conditions joined with && contribute no refinement: the nil-ness of x
	// survives into the branch and the dereference is (imprecisely) reported.
	got := lowerAndRun(t, `
func f(ok bool) int {
	var x *int
	if ok && x != nil {
		return *x
	}
	return 0
}
`, "f")
	require.Equal(t, []string{"*x"}, got)
}
