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

// Package nilpath implements the top-level analyzer: it lowers every function
// of the package into the engine's instruction form, explores each one
// symbolically with the registered checks, and reports the resulting
// diagnostics.
package nilpath

import (
	"context"
	"fmt"
	"go/ast"
	"go/token"
	"os"
	"runtime/debug"
	"sync"

	"github.com/tamasvajk/nilpath/checks/nilderef"
	"github.com/tamasvajk/nilpath/config"
	"github.com/tamasvajk/nilpath/diagnostic"
	"github.com/tamasvajk/nilpath/frontend"
	"github.com/tamasvajk/nilpath/symexec"
	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/ctrlflow"
)

const _doc = "Run nilpath on this package to explore every feasible execution path of each function " +
	"and report dereferences of provably nil pointers"

// Analyzer is the top-level nilpath analyzer.
var Analyzer = &analysis.Analyzer{
	Name:     "nilpath",
	Doc:      _doc,
	Run:      run,
	Requires: []*analysis.Analyzer{config.Analyzer, ctrlflow.Analyzer},
}

// functionResult carries one function's exploration outcome back from its
// worker goroutine. The index preserves declaration order so that reporting
// is deterministic regardless of goroutine scheduling.
type functionResult struct {
	index  int
	name   string
	pos    token.Pos
	result *symexec.Result
	err    error
}

func run(pass *analysis.Pass) (result interface{}, _ error) {
	// As a last resort, recover from a panic and convert it to a diagnostic
	// so the driver keeps running on the remaining packages.
	defer func() {
		if r := recover(); r != nil {
			pass.Report(analysis.Diagnostic{
				Pos:     1,
				Message: fmt.Sprintf("INTERNAL PANIC: %s\n%s", r, string(debug.Stack())),
			})
		}
	}()

	conf := pass.ResultOf[config.Analyzer].(*config.Config)
	cfgs := pass.ResultOf[ctrlflow.Analyzer].(*ctrlflow.CFGs)

	var decls []*ast.FuncDecl
	for _, file := range pass.Files {
		for _, decl := range file.Decls {
			f, ok := decl.(*ast.FuncDecl)
			if !ok || f.Body == nil {
				continue
			}
			if int(f.Body.Rbrace-f.Body.Lbrace) > config.MaxFuncSizeInBytes {
				continue
			}
			decls = append(decls, f)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.ExploreTimeout)
	defer cancel()

	var wg sync.WaitGroup
	resultChan := make(chan functionResult)
	for i, decl := range decls {
		wg.Add(1)
		go func(index int, decl *ast.FuncDecl) {
			defer wg.Done()
			res := functionResult{
				index: index,
				name:  pass.Pkg.Path() + "." + decl.Name.Name,
				pos:   decl.Pos(),
			}
			defer func() {
				if r := recover(); r != nil {
					res.err = fmt.Errorf("INTERNAL PANIC: %s\n%s", r, string(debug.Stack()))
					res.result = nil
				}
				resultChan <- res
			}()
			res.result, res.err = exploreFunc(ctx, conf, pass, cfgs, decl)
		}(i, decl)
	}
	go func() {
		wg.Wait()
		close(resultChan)
	}()

	results := make([]functionResult, len(decls))
	for r := range resultChan {
		results[r.index] = r
	}

	engine := diagnostic.NewEngine()
	summary := symexec.NewSummary()
	for _, r := range results {
		if r.err != nil {
			// A function-scoped failure (malformed lowering, timeout) skips
			// this function only; the rest of the package is unaffected.
			engine.AddError(r.pos, r.err)
			continue
		}
		engine.AddNotifications(r.result.Notifications)
		for _, cerr := range r.result.CheckErrors {
			engine.AddError(r.pos, cerr)
		}
		summary.Record(r.name, r.result)
	}

	if conf.StatsFile != "" {
		if err := writeStats(conf.StatsFile, summary); err != nil {
			engine.AddError(1, err)
		}
	}

	for _, d := range engine.Diagnostics() {
		pass.Report(d)
	}
	return nil, nil
}

// exploreFunc lowers one function declaration and runs the exploded-graph
// traversal over it with the standard checks.
func exploreFunc(ctx context.Context, conf *config.Config, pass *analysis.Pass, cfgs *ctrlflow.CFGs, decl *ast.FuncDecl) (*symexec.Result, error) {
	fn, err := frontend.NewLowerer(pass.TypesInfo).Lower(decl.Name.Name, cfgs.FuncDecl(decl))
	if err != nil {
		return nil, fmt.Errorf("lower %q: %w", decl.Name.Name, err)
	}
	graph, err := symexec.New(fn, symexec.Options{
		MaxSteps: conf.MaxSteps,
		Checks:   []symexec.Check{nilderef.New()},
	})
	if err != nil {
		return nil, fmt.Errorf("build exploded graph for %q: %w", decl.Name.Name, err)
	}
	res, err := graph.Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("explore %q: %w", decl.Name.Name, err)
	}
	return res, nil
}

func writeStats(path string, summary *symexec.Summary) error {
	b, err := summary.GobEncode()
	if err != nil {
		return fmt.Errorf("encode exploration statistics: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write exploration statistics: %w", err)
	}
	return nil
}
