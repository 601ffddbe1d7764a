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
	"fmt"
	"os"
	"path/filepath"

	"github.com/archon-sec/archon-compile/compile/model"
	"github.com/naoina/toml"
)

// foundryConfig is the [profile.default] table of foundry.toml, the subset
// that feeds compiler settings.
type foundryConfig struct {
	Profile map[string]struct {
		Src        string   `toml:"src"`
		Out        string   `toml:"out"`
		Libs       []string `toml:"libs"`
		Optimizer  bool     `toml:"optimizer"`
		OptimizerRuns int   `toml:"optimizer_runs"`
		EVMVersion string   `toml:"evm_version"`
		ViaIR      bool     `toml:"via_ir"`
		Remappings []string `toml:"remappings"`
	} `toml:"profile"`
}

type foundryAdapter struct{}

// NewFoundryAdapter returns the Foundry adapter.
func NewFoundryAdapter() Adapter { return foundryAdapter{} }

func (foundryAdapter) Name() string  { return "Foundry" }
func (foundryAdapter) Priority() int { return 100 }

func (foundryAdapter) Detect(target string, flags Flags) bool {
	return fileExists(filepath.Join(target, "foundry.toml"))
}

func (a foundryAdapter) loadConfig(target string) (src, out string, remaps []model.Remapping, settings StandardSettings) {
	src, out = "src", "out"
	raw, err := os.ReadFile(filepath.Join(target, "foundry.toml"))
	if err != nil {
		return
	}
	var cfg foundryConfig
	if err := toml.Unmarshal(raw, &cfg); err != nil {
		return
	}
	prof, ok := cfg.Profile["default"]
	if !ok {
		return
	}
	if prof.Src != "" {
		src = prof.Src
	}
	if prof.Out != "" {
		out = prof.Out
	}
	settings = StandardSettings{
		OptimizerEnabled: prof.Optimizer,
		OptimizerRuns:    prof.OptimizerRuns,
		EVMVersion:       prof.EVMVersion,
		ViaIR:            prof.ViaIR,
	}
	for _, r := range prof.Remappings {
		if prefix, value, ok := splitRemapping(r); ok {
			remaps = append(remaps, model.Remapping{Prefix: prefix, Target: value})
		}
	}
	return
}

func splitRemapping(r string) (prefix, target string, ok bool) {
	for i := 0; i < len(r); i++ {
		if r[i] == '=' {
			return r[:i], r[i+1:], true
		}
	}
	return "", "", false
}

// Compile re-reads Foundry's own build output rather than re-invoking solc
// with guessed settings: each out/build-info/*.json file is one compiler
// invocation (profiles and multi-version projects produce several), parsed
// through the same build-info shape Hardhat emits. A fresh checkout runs
// `forge build --build-info` first.
func (a foundryAdapter) Compile(ctx context.Context, project *model.Project, target string, opts CompileOptions) ([]*model.CompilationUnit, error) {
	_, outDir, _, _ := a.loadConfig(target)
	buildInfoDir := filepath.Join(target, outDir, "build-info")

	units, err := unitsFromBuildInfoDir(project, target, buildInfoDir)
	if err != nil {
		return nil, err
	}
	if len(units) > 0 {
		return units, nil
	}

	if err := runFrameworkBuild(ctx, a.Name(), target, "forge", "build", "--build-info"); err != nil {
		return nil, err
	}
	units, err = unitsFromBuildInfoDir(project, target, buildInfoDir)
	if err != nil {
		return nil, err
	}
	if len(units) == 0 {
		return nil, model.NewError(model.ErrCompilationFailed, a.Name(), target, 0,
			fmt.Errorf("forge build produced no build-info units"))
	}
	return units, nil
}

func (a foundryAdapter) Clean(target string, opts CompileOptions) error {
	_, out, _, _ := a.loadConfig(target)
	return os.RemoveAll(filepath.Join(target, out))
}

func (foundryAdapter) IsDependency(path string) bool {
	slash := filepath.ToSlash(path)
	return containsPathSegment(slash, "lib")
}

func (foundryAdapter) GuessedTests(target string) []string {
	return []string{filepath.Join(target, "test")}
}

func containsPathSegment(slashPath, segment string) bool {
	for _, p := range filepathSplit(slashPath) {
		if p == segment {
			return true
		}
	}
	return false
}

func filepathSplit(slashPath string) []string {
	var parts []string
	start := 0
	for i := 0; i < len(slashPath); i++ {
		if slashPath[i] == '/' {
			parts = append(parts, slashPath[start:i])
			start = i + 1
		}
	}
	parts = append(parts, slashPath[start:])
	return parts
}

// splitArgs splits a raw `--solc-args` string on whitespace into argv
// tokens. No quoting support; framework configs rarely need it for this
// passthrough.
func splitArgs(raw string) []string {
	var out []string
	var cur []byte
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if c == ' ' || c == '\t' {
			if len(cur) > 0 {
				out = append(out, string(cur))
				cur = cur[:0]
			}
			continue
		}
		cur = append(cur, c)
	}
	if len(cur) > 0 {
		out = append(out, string(cur))
	}
	return out
}
