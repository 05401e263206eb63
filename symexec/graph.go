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
	"context"
	"fmt"
	"runtime/debug"

	"github.com/tamasvajk/nilpath/ir"
)

// Options configures one traversal.
type Options struct {
	// MaxSteps caps the number of exploded-graph nodes processed. Reaching
	// the cap stops the traversal and marks the result incomplete; it is not
	// an error, and notifications raised up to that point remain valid.
	// Zero means no ceiling.
	MaxSteps int
	// Checks are invoked at the pre/post instruction hook points, in the
	// given order.
	Checks []Check
}

// node is one exploded-graph node: a program point paired with the program
// state that reached it.
type node struct {
	point Point
	state *State
}

// visitKey identifies a node structurally: the point plus the state's
// canonical fingerprint. Two nodes with equal keys are the same node.
type visitKey struct {
	point Point
	state string
}

// registeredCheck tracks a check's standing for the current traversal. A
// panicking hook disables the check; the recorded error is surfaced in the
// result instead of failing the run.
type registeredCheck struct {
	check    Check
	disabled bool
	err      error
}

// Result is the outcome of one traversal.
type Result struct {
	// Notifications are all facts raised by all checks, in traversal order.
	Notifications []Notification
	// Complete is false when the step ceiling stopped the traversal early.
	// Callers should suppress "no issue found" conclusions for incomplete
	// runs.
	Complete bool
	// Steps is the number of nodes processed.
	Steps int
	// CheckErrors holds one error per check that was disabled by a panicking
	// hook during this traversal.
	CheckErrors []error
}

// Graph is the exploded-graph traversal engine: a worklist-driven fixpoint
// over (point, state) nodes for a single function. Exploration is
// single-threaded and synchronous; independent Graph instances for different
// functions share no mutable state.
type Graph struct {
	fn       *ir.Func
	maxSteps int
	checks   []*registeredCheck

	frontier      []node
	visited       map[visitKey]struct{}
	notifications []Notification
	steps         int
	complete      bool
}

// New validates fn against the CFG contract and prepares a traversal. The
// returned Graph is single-use: call Run exactly once.
func New(fn *ir.Func, opts Options) (*Graph, error) {
	if err := fn.Validate(); err != nil {
		return nil, fmt.Errorf("malformed function: %w", err)
	}
	g := &Graph{
		fn:       fn,
		maxSteps: opts.MaxSteps,
		visited:  make(map[visitKey]struct{}),
		complete: true,
	}
	for _, c := range opts.Checks {
		g.checks = append(g.checks, &registeredCheck{check: c})
	}
	return g, nil
}

// Run explores every feasible path from the function entry and returns the
// collected notifications. The context is consulted between worklist items;
// cancellation abandons the traversal and discards its partial results.
// Contract violations (unbalanced stacks, out-of-range points) surface as a
// function-scoped error so the caller can skip this function and continue
// with others.
func (g *Graph) Run(ctx context.Context) (res *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = nil
			err = fmt.Errorf("internal contract violation exploring %q: %v\n%s", g.fn.Name, r, string(debug.Stack()))
		}
	}()

	g.enqueue(Point{Block: g.fn.Entry, Index: 0}, NewState())
	for len(g.frontier) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if g.maxSteps > 0 && g.steps >= g.maxSteps {
			g.complete = false
			break
		}
		n := g.frontier[0]
		g.frontier = g.frontier[1:]
		g.steps++
		g.process(n)
	}

	res = &Result{
		Notifications: g.notifications,
		Complete:      g.complete,
		Steps:         g.steps,
	}
	for _, rc := range g.checks {
		if rc.err != nil {
			res.CheckErrors = append(res.CheckErrors, rc.err)
		}
	}
	return res, nil
}

// process handles one node: pre-hooks, instruction interpretation (or the
// block terminator), post-hooks, successor enqueueing. Yielding zero
// successors ends the path silently; that is the intended encoding both of
// "this point is provably unreachable" and of "execution cannot continue
// past the fault a check just reported".
func (g *Graph) process(n node) {
	block := g.fn.Blocks[n.point.Block]
	if n.point.Index < len(block.Instrs) {
		g.processInstruction(n, block.Instrs[n.point.Index])
		return
	}

	// Terminator. A branching block consumes the condition value left on
	// top of the stack and forks one successor per feasible truth
	// assignment; infeasible assignments are silently dropped, which is how
	// impossible branches disappear from the exploration.
	if block.Cond {
		s, cond := n.state.Pop()
		if ts, ok := s.SetConstraint(cond, True); ok {
			g.enqueue(Point{Block: block.Succs[0]}, ts)
		}
		if fs, ok := s.SetConstraint(cond, False); ok {
			g.enqueue(Point{Block: block.Succs[1]}, fs)
		}
		return
	}
	for _, succ := range block.Succs {
		g.enqueue(Point{Block: succ}, n.state)
	}
}

func (g *Graph) processInstruction(n node, in ir.Instruction) {
	ctx := &CheckContext{fn: g.fn, point: n.point, notify: g.record}

	state := n.state
	for _, rc := range g.checks {
		if rc.disabled {
			continue
		}
		next, ok := g.invokePre(rc, ctx, in, state)
		if rc.disabled {
			continue // hook panicked; state unchanged, check is out
		}
		if !ok {
			return // path fully handled by the check
		}
		if next != nil {
			state = next
		}
	}

	succ := g.interpret(n.point, in, state)
	for _, rc := range g.checks {
		if !rc.disabled {
			g.invokePost(rc, ctx, in, succ)
		}
	}
	g.enqueue(Point{Block: n.point.Block, Index: n.point.Index + 1}, succ)
}

// interpret computes the successor state of one instruction. Instructions
// themselves never prune (only constraint contradictions at branches and
// check hooks do), so exactly one state comes back.
func (g *Graph) interpret(p Point, in ir.Instruction, s *State) *State {
	switch in.Op {
	case ir.OpLoad:
		v, ok := s.Binding(in.Sym)
		if !ok {
			v = freshValue(p)
			if in.Nullable {
				v = wrapNullable(v)
			}
			s = s.Bind(in.Sym, v)
		}
		return s.Push(v)

	case ir.OpLiteral:
		v := freshValue(p)
		s = s.Push(v)
		var c Constraint
		switch in.Lit {
		case ir.LitNil:
			c = Null
		case ir.LitNonNil:
			c = NotNull
		case ir.LitTrue:
			c = True
		case ir.LitFalse:
			c = False
		default:
			return s
		}
		// A fresh value holds no constraints, so this cannot contradict.
		next, ok := s.SetConstraint(v, c)
		if !ok {
			panic(fmt.Sprintf("constraint %v infeasible on fresh value %v", c, v))
		}
		return next

	case ir.OpMember:
		s, parent := s.Pop()
		if in.Facet == ir.FacetHasValue {
			if _, ok := AsNullable(parent); ok {
				return s.Push(memberValue{parent: parent, facet: ir.FacetHasValue})
			}
			// Has-value question about a non-nullable: answer is an opaque
			// boolean with no linkage.
			return s.Push(freshValue(p))
		}
		// Value-facet read: derive the member value keyed by parent and
		// member-name tag, wrapping it when the read result is itself of a
		// nullable type so that chained guards keep their linkage.
		v := Value(memberValue{parent: parent, facet: ir.FacetValue, name: in.Member})
		if in.Nullable {
			v = wrapNullable(v)
		}
		return s.Push(v)

	case ir.OpNot:
		s, operand := s.Pop()
		return s.Push(notValue{operand: operand})

	case ir.OpStore:
		s, v := s.Pop()
		if in.Nullable {
			v = wrapNullable(v)
		}
		return s.Bind(in.Sym, v)

	case ir.OpDiscard:
		s, _ = s.Pop()
		return s
	}
	panic(fmt.Sprintf("unknown op %v at %v", in.Op, p))
}

// enqueue adds the node to the frontier unless a structurally equal node has
// been seen before. Marking at enqueue time also keeps duplicates out of the
// frontier itself.
func (g *Graph) enqueue(p Point, s *State) {
	key := visitKey{point: p, state: s.Fingerprint()}
	if _, seen := g.visited[key]; seen {
		return
	}
	g.visited[key] = struct{}{}
	g.frontier = append(g.frontier, node{point: p, state: s})
}

func (g *Graph) record(n Notification) {
	g.notifications = append(g.notifications, n)
}

func (g *Graph) invokePre(rc *registeredCheck, ctx *CheckContext, in ir.Instruction, s *State) (next *State, ok bool) {
	defer g.recoverHook(rc, "pre-instruction", ctx.point)
	return rc.check.PreInstruction(ctx, in, s)
}

func (g *Graph) invokePost(rc *registeredCheck, ctx *CheckContext, in ir.Instruction, s *State) {
	defer g.recoverHook(rc, "post-instruction", ctx.point)
	rc.check.PostInstruction(ctx, in, s)
}

// recoverHook converts a panicking hook into a disabled check plus a recorded
// error; the traversal itself carries on with the remaining checks.
func (g *Graph) recoverHook(rc *registeredCheck, hook string, p Point) {
	if r := recover(); r != nil {
		rc.disabled = true
		rc.err = fmt.Errorf("check %q disabled: %s hook panicked at %v: %v\n%s",
			rc.check.Name(), hook, p, r, string(debug.Stack()))
	}
}
