// Copyright 2025 The archon-compile Authors
// This file is part of the archon-compile library.
//
// The archon-compile library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The archon-compile library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the archon-compile library. If not, see <http://www.gnu.org/licenses/>.

package platform

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/archon-sec/archon-compile/compile/driver"
	"github.com/archon-sec/archon-compile/compile/model"
)

// directAdapter is the registry's last resort: treat the target as a
// .sol/.vy source list when no framework and no address pattern matched.
type directAdapter struct{}

// NewDirectAdapter returns the direct-compiler fallback adapter.
func NewDirectAdapter() Adapter { return directAdapter{} }

func (directAdapter) Name() string  { return "solc" }
func (directAdapter) Priority() int { return 1000 }

func (directAdapter) Detect(target string, flags Flags) bool {
	info, err := os.Stat(target)
	if err != nil {
		return false
	}
	if !info.IsDir() {
		ext := filepath.Ext(target)
		return ext == ".sol" || ext == ".vy"
	}
	sols, _ := collectSources(target, []string{".sol"}, directAdapter{}.IsDependency, false)
	vys, _ := collectSources(target, []string{".vy"}, directAdapter{}.IsDependency, false)
	return len(sols) > 0 || len(vys) > 0
}

func (a directAdapter) Compile(ctx context.Context, project *model.Project, target string, opts CompileOptions) ([]*model.CompilationUnit, error) {
	info, err := os.Stat(target)
	if err != nil {
		return nil, model.NewError(model.ErrInvalidTarget, a.Name(), target, 0, err)
	}

	var solPaths, vyPaths []string
	if info.IsDir() {
		solPaths, _ = collectSources(target, []string{".sol"}, a.IsDependency, false)
		vyPaths, _ = collectSources(target, []string{".vy"}, a.IsDependency, false)
	} else if filepath.Ext(target) == ".vy" {
		vyPaths = []string{target}
	} else {
		solPaths = []string{target}
	}

	var units []*model.CompilationUnit

	if len(solPaths) > 0 {
		sources := make(map[string]string, len(solPaths))
		for _, p := range solPaths {
			used := p
			if rel, err := filepath.Rel(opts.WorkingDir, p); err == nil {
				used = filepath.ToSlash(rel)
			}
			sources[used] = p
		}
		var pragmaSource string
		if content, err := os.ReadFile(solPaths[0]); err == nil {
			pragmaSource = string(content)
		}
		compilerPath, version, err := driver.Locate(ctx, driver.LocateOptions{
			ExplicitPath:    opts.Flags.SolcPath,
			ExplicitVersion: opts.Flags.SolcVersion,
			PragmaSource:    pragmaSource,
			Binary:          "solc",
		})
		if err != nil {
			return nil, model.NewError(model.ErrCompilerNotFound, a.Name(), target, 0, err)
		}
		settings := StandardSettings{
			OptimizerEnabled: opts.Flags.OptimizerEnabled,
			OptimizerRuns:    opts.Flags.OptimizerRuns,
			EVMVersion:       opts.Flags.EVMVersion,
			ViaIR:            opts.Flags.ViaIR,
		}
		unit, err := installStandardJSONUnit(ctx, project, a.Name(), sources, settings, compilerPath, version, opts.Flags.SolcRemaps, opts.Flags)
		if err != nil {
			return nil, err
		}
		units = append(units, unit)
	}

	if len(vyPaths) > 0 {
		unit, err := a.compileVyper(ctx, project, target, vyPaths, opts)
		if err != nil {
			return nil, err
		}
		units = append(units, unit)
	}

	return units, nil
}

func (a directAdapter) compileVyper(ctx context.Context, project *model.Project, target string, vyPaths []string, opts CompileOptions) (*model.CompilationUnit, error) {
	compilerPath, err := lookPathFallback("vyper")
	if err != nil {
		return nil, model.NewError(model.ErrCompilerNotFound, a.Name(), target, 0, err)
	}
	out, err := driver.RunVyper(ctx, compilerPath, vyPaths, nil)
	if err != nil {
		return nil, model.NewError(model.ErrCompilerCrashed, a.Name(), target, 0, err)
	}

	unit := model.NewCompilationUnit(model.CompilerDescriptor{Name: "vyper"})
	for path, c := range out.Contracts {
		fn, err := project.ResolveFilename(path, path, model.NormalizeOptions{})
		if err != nil {
			return nil, err
		}
		su, ok := unit.SourceUnit(fn.Absolute())
		if !ok {
			su = newSourceUnitFor(fn)
			unit.AddSourceUnit(su)
		}
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		su.Contracts[name] = &model.Contract{
			Name:              name,
			Kind:              model.KindContract,
			ABI:               c.ABI,
			BytecodeInit:      c.BytecodeInit,
			BytecodeRuntime:   c.BytecodeRuntime,
			UserDoc:           c.UserDoc,
			DevDoc:            c.DevDoc,
			MethodIdentifiers: c.MethodIdentifiers,
		}
	}
	return unit, nil
}

func (directAdapter) Clean(target string, opts CompileOptions) error { return nil }

func (directAdapter) IsDependency(path string) bool {
	return containsPathSegment(filepath.ToSlash(path), "node_modules") ||
		containsPathSegment(filepath.ToSlash(path), "lib")
}

func (directAdapter) GuessedTests(target string) []string { return nil }
