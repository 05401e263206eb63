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

// Package frontend lowers Go function bodies into the engine's instruction
// representation. It consumes the control-flow graphs built by
// golang.org/x/tools/go/cfg together with go/types information, and resolves
// the semantic-model questions the engine delegates to its frontend: symbol
// identity and the nullable-of-T classification, which for Go means
// pointer-typed expressions.
//
// The lowering is deliberately conservative: any expression shape it does not
// understand becomes an opaque unconstrained value, which can suppress
// reports but never invent them. Short-circuit operands of && and || are one
// such shape: the right operand is not lowered and the condition is opaque,
// so guards written with logical operators contribute no refinement. This is
// a known precision limitation of the constraint model, related to the
// conversion from plain to nullable values on assignment from a literal, and
// is intentionally left as is.
package frontend

import (
	"fmt"
	"go/ast"
	"go/constant"
	"go/token"
	"go/types"

	"github.com/tamasvajk/nilpath/ir"
	"github.com/tamasvajk/nilpath/util/typeshelper"
	"golang.org/x/tools/go/cfg"
)

// derefTag is the member-name tag of a plain pointer dereference.
const derefTag = "*"

// symbol adapts a types.Object to ir.Symbol. The String rendering is
// position-qualified so shadowed variables of the same name stay distinct in
// state fingerprints.
type symbol struct {
	obj types.Object
}

func (s symbol) String() string { return fmt.Sprintf("%s@%d", s.obj.Name(), s.obj.Pos()) }

// Lowerer lowers function bodies of one type-checked package.
type Lowerer struct {
	info *types.Info
}

// NewLowerer returns a lowerer backed by the package's types information.
func NewLowerer(info *types.Info) *Lowerer {
	return &Lowerer{info: info}
}

// Lower converts one function's control-flow graph into an ir.Func. Blocks
// keep their cfg indices; a block with two successors branches on its last
// expression, following the cfg package's true-first successor convention.
func (l *Lowerer) Lower(name string, g *cfg.CFG) (*ir.Func, error) {
	if g == nil || len(g.Blocks) == 0 {
		return nil, fmt.Errorf("function %q has no control-flow graph", name)
	}

	fn := &ir.Func{Name: name, Entry: 0}
	for i, b := range g.Blocks {
		if int(b.Index) != i {
			return nil, fmt.Errorf("function %q: cfg block %d reports index %d", name, i, b.Index)
		}
		blk := &ir.Block{Index: i}
		cond := len(b.Succs) == 2

		sawCond := false
		for j, n := range b.Nodes {
			last := j == len(b.Nodes)-1
			if cond && last {
				// Only a boolean-typed expression is a real truth-valued
				// condition. Range/select heads and tagged switch case
				// values also terminate branching blocks; those are
				// evaluated for their effects and the branch stays opaque,
				// keeping both targets feasible.
				if e, ok := n.(ast.Expr); ok && l.boolExpr(e) {
					l.lowerExpr(blk, e)
					sawCond = true
					continue
				}
				l.lowerNode(blk, n)
			} else {
				l.lowerNode(blk, n)
			}
		}
		if cond && !sawCond {
			push(blk, ir.Instruction{Op: ir.OpLiteral, Lit: ir.LitOpaque})
		}

		blk.Cond = cond
		for _, succ := range b.Succs {
			blk.Succs = append(blk.Succs, int(succ.Index))
		}
		fn.Blocks = append(fn.Blocks, blk)
	}

	if err := fn.Validate(); err != nil {
		return nil, err
	}
	return fn, nil
}

func push(blk *ir.Block, in ir.Instruction) {
	blk.Instrs = append(blk.Instrs, in)
}

// lowerNode lowers a statement-position cfg node. Statement kinds outside the
// supported set are skipped; their sub-expressions are then invisible to the
// engine, which loses reports but stays sound.
func (l *Lowerer) lowerNode(blk *ir.Block, n ast.Node) {
	switch s := n.(type) {
	case *ast.ExprStmt:
		l.lowerExpr(blk, s.X)
		push(blk, ir.Instruction{Op: ir.OpDiscard})
	case ast.Expr:
		// Expressions showing up in statement position (e.g., range operands).
		l.lowerExpr(blk, s)
		push(blk, ir.Instruction{Op: ir.OpDiscard})
	case *ast.AssignStmt:
		l.lowerAssign(blk, s)
	case *ast.DeclStmt:
		l.lowerDecl(blk, s)
	case *ast.ReturnStmt:
		for _, e := range s.Results {
			l.lowerExpr(blk, e)
			push(blk, ir.Instruction{Op: ir.OpDiscard})
		}
	case *ast.IncDecStmt:
		l.lowerExpr(blk, s.X)
		push(blk, ir.Instruction{Op: ir.OpDiscard})
	case *ast.SendStmt:
		l.lowerExpr(blk, s.Chan)
		push(blk, ir.Instruction{Op: ir.OpDiscard})
		l.lowerExpr(blk, s.Value)
		push(blk, ir.Instruction{Op: ir.OpDiscard})
	}
}

// lowerAssign lowers assignments and short variable declarations. Matched
// left-hand sides become stores; anything unmatched or untrackable still
// rebinds its target to a fresh value so stale constraints cannot survive an
// assignment the engine did not understand.
func (l *Lowerer) lowerAssign(blk *ir.Block, s *ast.AssignStmt) {
	pairwise := len(s.Lhs) == len(s.Rhs) && (s.Tok == token.ASSIGN || s.Tok == token.DEFINE)
	if pairwise {
		for i, rhs := range s.Rhs {
			l.lowerExpr(blk, rhs)
			l.lowerStoreTo(blk, s.Lhs[i])
		}
		return
	}

	for _, rhs := range s.Rhs {
		l.lowerExpr(blk, rhs)
		push(blk, ir.Instruction{Op: ir.OpDiscard})
	}
	for _, lhs := range s.Lhs {
		l.havoc(blk, lhs)
	}
}

// lowerDecl lowers `var` declaration statements. A pointer variable declared
// without an initializer is bound to its zero value, which in Go is nil.
func (l *Lowerer) lowerDecl(blk *ir.Block, s *ast.DeclStmt) {
	gd, ok := s.Decl.(*ast.GenDecl)
	if !ok || gd.Tok != token.VAR {
		return
	}
	for _, spec := range gd.Specs {
		vs, ok := spec.(*ast.ValueSpec)
		if !ok {
			continue
		}
		if len(vs.Values) == len(vs.Names) && len(vs.Values) > 0 {
			for i, v := range vs.Values {
				l.lowerExpr(blk, v)
				l.lowerStoreTo(blk, vs.Names[i])
			}
			continue
		}
		if len(vs.Values) == 0 {
			for _, name := range vs.Names {
				obj := l.info.ObjectOf(name)
				if obj == nil || name.Name == "_" {
					continue
				}
				if l.nullable(obj.Type()) {
					push(blk, ir.Instruction{Op: ir.OpLiteral, Lit: ir.LitNil, Ref: l.ref(name)})
					push(blk, ir.Instruction{Op: ir.OpStore, Sym: symbol{obj: obj}, Nullable: true})
				}
			}
			continue
		}
		// Multi-value initializer: evaluate and give every name a fresh value.
		for _, v := range vs.Values {
			l.lowerExpr(blk, v)
			push(blk, ir.Instruction{Op: ir.OpDiscard})
		}
		for _, name := range vs.Names {
			l.havoc(blk, name)
		}
	}
}

// lowerStoreTo consumes the value on top of the stack into the given
// assignment target, or discards it when the target is not a trackable
// variable.
func (l *Lowerer) lowerStoreTo(blk *ir.Block, lhs ast.Expr) {
	if id, ok := lhs.(*ast.Ident); ok && id.Name != "_" {
		if obj, isVar := l.info.ObjectOf(id).(*types.Var); isVar {
			push(blk, ir.Instruction{
				Op:       ir.OpStore,
				Sym:      symbol{obj: obj},
				Nullable: l.nullable(obj.Type()),
				Ref:      l.ref(id),
			})
			return
		}
	}
	// Stores through pointers, fields, or indices still evaluate the target
	// expression at runtime; lower it for its dereference effects.
	if !isIdent(lhs) {
		l.lowerExpr(blk, lhs)
		push(blk, ir.Instruction{Op: ir.OpDiscard})
	}
	push(blk, ir.Instruction{Op: ir.OpDiscard})
}

// havoc rebinds a trackable assignment target to a fresh unconstrained value.
func (l *Lowerer) havoc(blk *ir.Block, lhs ast.Expr) {
	id, ok := lhs.(*ast.Ident)
	if !ok || id.Name == "_" {
		return
	}
	obj, isVar := l.info.ObjectOf(id).(*types.Var)
	if !isVar {
		return
	}
	push(blk, ir.Instruction{Op: ir.OpLiteral, Lit: ir.LitOpaque, Ref: l.ref(id)})
	push(blk, ir.Instruction{
		Op:       ir.OpStore,
		Sym:      symbol{obj: obj},
		Nullable: l.nullable(obj.Type()),
	})
}

// lowerExpr lowers an expression, leaving exactly one value on the stack.
func (l *Lowerer) lowerExpr(blk *ir.Block, e ast.Expr) {
	e = ast.Unparen(e)

	// Constants first: untyped nil and boolean constants carry constraints
	// regardless of their syntactic shape.
	if tv, ok := l.info.Types[e]; ok {
		if tv.IsNil() {
			push(blk, ir.Instruction{Op: ir.OpLiteral, Lit: ir.LitNil, Ref: l.ref(e)})
			return
		}
		if tv.Value != nil && tv.Value.Kind() == constant.Bool {
			lit := ir.LitFalse
			if constant.BoolVal(tv.Value) {
				lit = ir.LitTrue
			}
			push(blk, ir.Instruction{Op: ir.OpLiteral, Lit: lit, Ref: l.ref(e)})
			return
		}
	}

	switch x := e.(type) {
	case *ast.Ident:
		if obj, isVar := l.info.ObjectOf(x).(*types.Var); isVar {
			push(blk, ir.Instruction{
				Op:       ir.OpLoad,
				Sym:      symbol{obj: obj},
				Nullable: l.nullable(obj.Type()),
				Ref:      l.ref(x),
			})
			return
		}
		push(blk, ir.Instruction{Op: ir.OpLiteral, Lit: ir.LitOpaque, Ref: l.ref(x)})

	case *ast.StarExpr:
		l.lowerExpr(blk, x.X)
		push(blk, ir.Instruction{
			Op:       ir.OpMember,
			Facet:    ir.FacetValue,
			Member:   derefTag,
			Nullable: l.nullableExpr(e),
			Ref:      l.ref(e),
		})

	case *ast.SelectorExpr:
		l.lowerSelector(blk, x)

	case *ast.UnaryExpr:
		l.lowerUnary(blk, x)

	case *ast.BinaryExpr:
		l.lowerBinary(blk, x)

	case *ast.CallExpr:
		l.lowerCall(blk, x)

	case *ast.IndexExpr:
		l.lowerExpr(blk, x.X)
		push(blk, ir.Instruction{Op: ir.OpDiscard})
		l.lowerExpr(blk, x.Index)
		push(blk, ir.Instruction{Op: ir.OpDiscard})
		push(blk, ir.Instruction{Op: ir.OpLiteral, Lit: ir.LitOpaque, Ref: l.ref(e)})

	case *ast.TypeAssertExpr:
		l.lowerExpr(blk, x.X)
		push(blk, ir.Instruction{Op: ir.OpDiscard})
		push(blk, ir.Instruction{Op: ir.OpLiteral, Lit: ir.LitOpaque, Ref: l.ref(e)})

	default:
		push(blk, ir.Instruction{Op: ir.OpLiteral, Lit: ir.LitOpaque, Ref: l.ref(e)})
	}
}

// lowerSelector lowers x.f. A field selection through a pointer base is an
// implicit dereference and becomes a value-facet member read tagged with the
// field name; package-qualified identifiers and method values are opaque.
func (l *Lowerer) lowerSelector(blk *ir.Block, x *ast.SelectorExpr) {
	sel, ok := l.info.Selections[x]
	if !ok || sel.Kind() != types.FieldVal {
		// Package-qualified name or method value: no dereference happens at
		// the selection itself.
		push(blk, ir.Instruction{Op: ir.OpLiteral, Lit: ir.LitOpaque, Ref: l.ref(x)})
		return
	}
	if !typeshelper.IsNullable(l.info.TypeOf(x.X)) {
		// Direct struct field access; the base cannot fault. Lower the base
		// anyway for any dereferences inside it, then read opaquely.
		l.lowerExpr(blk, x.X)
		push(blk, ir.Instruction{Op: ir.OpDiscard})
		push(blk, ir.Instruction{Op: ir.OpLiteral, Lit: ir.LitOpaque, Ref: l.ref(x)})
		return
	}
	l.lowerExpr(blk, x.X)
	push(blk, ir.Instruction{
		Op:       ir.OpMember,
		Facet:    ir.FacetValue,
		Member:   x.Sel.Name,
		Nullable: l.nullableExpr(x),
		Ref:      l.ref(x),
	})
}

func (l *Lowerer) lowerUnary(blk *ir.Block, x *ast.UnaryExpr) {
	switch x.Op {
	case token.NOT:
		l.lowerExpr(blk, x.X)
		push(blk, ir.Instruction{Op: ir.OpNot, Ref: l.ref(x)})
	case token.AND:
		// &e evaluates e's base (dereferencing along the way for &x.f) and
		// produces a provably non-nil pointer.
		if !isIdent(x.X) {
			l.lowerExpr(blk, x.X)
			push(blk, ir.Instruction{Op: ir.OpDiscard})
		}
		push(blk, ir.Instruction{Op: ir.OpLiteral, Lit: ir.LitNonNil, Ref: l.ref(x)})
	default:
		l.lowerExpr(blk, x.X)
		push(blk, ir.Instruction{Op: ir.OpDiscard})
		push(blk, ir.Instruction{Op: ir.OpLiteral, Lit: ir.LitOpaque, Ref: l.ref(x)})
	}
}

func (l *Lowerer) lowerBinary(blk *ir.Block, x *ast.BinaryExpr) {
	// Nil comparisons become has-value facet reads: `p != nil` asks the
	// has-value question directly, `p == nil` is its negation. The linkage
	// inside the engine then refines p's nullability on each branch.
	if x.Op == token.EQL || x.Op == token.NEQ {
		if operand, ok := l.nilComparisonOperand(x); ok {
			l.lowerExpr(blk, operand)
			push(blk, ir.Instruction{Op: ir.OpMember, Facet: ir.FacetHasValue, Ref: l.ref(x)})
			if x.Op == token.EQL {
				push(blk, ir.Instruction{Op: ir.OpNot, Ref: l.ref(x)})
			}
			return
		}
	}

	if x.Op == token.LAND || x.Op == token.LOR {
		// Short-circuit operators: only the left operand is surely
		// evaluated. The right operand is not lowered and the combined
		// condition is opaque, so neither branch is refined or pruned. See
		// the package comment for why this stays imprecise.
		l.lowerExpr(blk, x.X)
		push(blk, ir.Instruction{Op: ir.OpDiscard})
		push(blk, ir.Instruction{Op: ir.OpLiteral, Lit: ir.LitOpaque, Ref: l.ref(x)})
		return
	}

	l.lowerExpr(blk, x.X)
	push(blk, ir.Instruction{Op: ir.OpDiscard})
	l.lowerExpr(blk, x.Y)
	push(blk, ir.Instruction{Op: ir.OpDiscard})
	push(blk, ir.Instruction{Op: ir.OpLiteral, Lit: ir.LitOpaque, Ref: l.ref(x)})
}

// nilComparisonOperand returns the non-nil side of a comparison against nil
// when that side is of a nullable (pointer) type.
func (l *Lowerer) nilComparisonOperand(x *ast.BinaryExpr) (ast.Expr, bool) {
	xNil := l.isNilExpr(x.X)
	yNil := l.isNilExpr(x.Y)
	switch {
	case xNil && !yNil && l.nullableExpr(x.Y):
		return x.Y, true
	case yNil && !xNil && l.nullableExpr(x.X):
		return x.X, true
	}
	return nil, false
}

func (l *Lowerer) lowerCall(blk *ir.Block, x *ast.CallExpr) {
	// new(T) is the one builtin with a known-non-nil pointer result.
	if id, ok := ast.Unparen(x.Fun).(*ast.Ident); ok {
		if b, isBuiltin := l.info.ObjectOf(id).(*types.Builtin); isBuiltin && b.Name() == "new" {
			push(blk, ir.Instruction{Op: ir.OpLiteral, Lit: ir.LitNonNil, Ref: l.ref(x)})
			return
		}
	}

	// Arguments and a method receiver are evaluated; the result is unknown.
	if sel, ok := ast.Unparen(x.Fun).(*ast.SelectorExpr); ok {
		if _, isSel := l.info.Selections[sel]; isSel {
			l.lowerExpr(blk, sel.X)
			push(blk, ir.Instruction{Op: ir.OpDiscard})
		}
	}
	for _, arg := range x.Args {
		l.lowerExpr(blk, arg)
		push(blk, ir.Instruction{Op: ir.OpDiscard})
	}
	push(blk, ir.Instruction{Op: ir.OpLiteral, Lit: ir.LitOpaque, Ref: l.ref(x)})
}

// nullable reports the semantic model's nullable-of-T classification: in Go,
// pointer types.
func (l *Lowerer) nullable(t types.Type) bool {
	return typeshelper.IsNullable(t)
}

func (l *Lowerer) nullableExpr(e ast.Expr) bool {
	return l.nullable(l.info.TypeOf(e))
}

func (l *Lowerer) boolExpr(e ast.Expr) bool {
	return typeshelper.IsBoolean(l.info.TypeOf(e))
}

func (l *Lowerer) isNilExpr(e ast.Expr) bool {
	tv, ok := l.info.Types[ast.Unparen(e)]
	return ok && tv.IsNil()
}

func (l *Lowerer) ref(e ast.Node) ir.Ref {
	text := ""
	if expr, ok := e.(ast.Expr); ok {
		text = types.ExprString(expr)
	}
	return ir.Ref{Pos: e.Pos(), Text: text}
}

func isIdent(e ast.Expr) bool {
	_, ok := ast.Unparen(e).(*ast.Ident)
	return ok
}
