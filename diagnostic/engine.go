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

// Package diagnostic turns the notifications raised by engine checks into
// user-facing diagnostics: it formats messages, de-duplicates repeated
// reports of the same fact, and orders the output by source position so a
// fixed input always produces an identical report.
package diagnostic

import (
	"cmp"
	"fmt"
	"go/token"
	"slices"

	"github.com/tamasvajk/nilpath/symexec"
	"github.com/tamasvajk/nilpath/util/orderedmap"
	"golang.org/x/tools/go/analysis"
)

// key identifies a diagnostic for de-duplication: same position, same
// message, one report.
type key struct {
	pos     token.Pos
	message string
}

// Engine collects notifications and internal errors for one package run and
// renders them as diagnostics.
type Engine struct {
	diags *orderedmap.OrderedMap[key, analysis.Diagnostic]
}

// NewEngine returns an empty diagnostic engine.
func NewEngine() *Engine {
	return &Engine{diags: orderedmap.New[key, analysis.Diagnostic]()}
}

// AddNotifications records one diagnostic per distinct notification. The same
// dereference reported from several explored paths collapses into one.
func (e *Engine) AddNotifications(ns []symexec.Notification) {
	for _, n := range ns {
		msg := fmt.Sprintf("potential nil dereference of `%s`", n.Ref.Text)
		e.add(n.Ref.Pos, msg)
	}
}

// AddError records an internal failure (a skipped function, a disabled
// check) as a diagnostic at the given position, so driver users see that
// coverage was reduced instead of silently getting fewer reports.
func (e *Engine) AddError(pos token.Pos, err error) {
	e.add(pos, fmt.Sprintf("analysis incomplete: %v", err))
}

func (e *Engine) add(pos token.Pos, message string) {
	if pos <= 0 {
		// Diagnostics with invalid positions are dropped by drivers; anchor
		// them at the file start instead.
		pos = 1
	}
	k := key{pos: pos, message: message}
	if _, ok := e.diags.Load(k); ok {
		return
	}
	e.diags.Store(k, analysis.Diagnostic{Pos: pos, Message: message})
}

// Diagnostics returns the collected diagnostics ordered by position, then
// message.
func (e *Engine) Diagnostics() []analysis.Diagnostic {
	out := make([]analysis.Diagnostic, 0, e.diags.Len())
	e.diags.OrderedRange(func(_ key, d analysis.Diagnostic) bool {
		out = append(out, d)
		return true
	})
	slices.SortStableFunc(out, func(a, b analysis.Diagnostic) int {
		if c := cmp.Compare(a.Pos, b.Pos); c != 0 {
			return c
		}
		return cmp.Compare(a.Message, b.Message)
	})
	return out
}
