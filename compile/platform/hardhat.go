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
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/archon-sec/archon-compile/compile/driver"
	"github.com/archon-sec/archon-compile/compile/model"
	"github.com/tidwall/gjson"
)

type hardhatVersion int

const (
	hardhatV2 hardhatVersion = 2
	hardhatV3 hardhatVersion = 3
)

// hardhatAdapter drives a Hardhat project by reading its generated
// artifacts under artifacts/build-info, which already hold a full
// standard-JSON input/output pair per compilation.
type hardhatAdapter struct {
	version hardhatVersion
}

// NewHardhatAdapter returns the Hardhat v2 or v3 adapter, selected by
// version.
func NewHardhatAdapter(version hardhatVersion) Adapter { return hardhatAdapter{version: version} }

func (a hardhatAdapter) Name() string {
	if a.version == hardhatV3 {
		return "Hardhat3"
	}
	return "Hardhat"
}

func (a hardhatAdapter) Priority() int {
	if a.version == hardhatV3 {
		return 150
	}
	return 200
}

func (a hardhatAdapter) hasConfig(target string) string {
	for _, ext := range []string{".js", ".ts", ".cjs", ".mjs"} {
		p := filepath.Join(target, "hardhat.config"+ext)
		if fileExists(p) {
			return p
		}
	}
	return ""
}

func (a hardhatAdapter) Detect(target string, flags Flags) bool {
	cfgPath := a.hasConfig(target)
	if cfgPath == "" {
		return false
	}
	if a.version != hardhatV3 {
		return true
	}
	pkg, err := os.ReadFile(filepath.Join(target, "package.json"))
	if err != nil {
		return false
	}
	// The leading @ must be escaped or gjson reads it as a modifier.
	toolbox := gjson.GetBytes(pkg, `dependencies.\@nomicfoundation/hardhat-toolbox`)
	toolboxDev := gjson.GetBytes(pkg, `devDependencies.\@nomicfoundation/hardhat-toolbox`)
	v3 := gjson.GetBytes(pkg, `devDependencies.hardhat`)
	if v3.Exists() && len(v3.String()) > 0 && (v3.String()[0] == '3' || strings.HasPrefix(v3.String(), "^3")) {
		return true
	}
	return toolbox.Exists() || toolboxDev.Exists()
}

// buildInfo mirrors the subset of a build-info JSON file this package
// needs: the original standard-JSON input the framework ran and the output
// solc produced for it. Hardhat and Foundry both emit this shape, one file
// per compiler invocation, so a multi-version or multi-profile project
// yields one CompilationUnit per file.
type buildInfo struct {
	SolcVersion string                    `json:"solcVersion"`
	Input       driver.StandardJSONInput  `json:"input"`
	Output      driver.StandardJSONOutput `json:"output"`
}

// unitsFromBuildInfoDir reads every *.json under buildInfoDir and turns
// each parseable build-info document into a CompilationUnit. A missing
// directory or zero parseable files returns (nil, nil); the caller decides
// whether to fall back to a fresh framework build.
func unitsFromBuildInfoDir(project *model.Project, target, buildInfoDir string) ([]*model.CompilationUnit, error) {
	entries, err := os.ReadDir(buildInfoDir)
	if err != nil {
		return nil, nil
	}
	var units []*model.CompilationUnit
	for _, e := range entries {
		if filepath.Ext(e.Name()) != ".json" {
			continue
		}
		var info buildInfo
		if err := readJSONFile(filepath.Join(buildInfoDir, e.Name()), &info); err != nil {
			continue
		}
		unit, err := unitFromBuildInfo(project, target, info)
		if err != nil {
			return nil, err
		}
		units = append(units, unit)
	}
	return units, nil
}

func unitFromBuildInfo(project *model.Project, target string, info buildInfo) (*model.CompilationUnit, error) {
	var remaps []model.Remapping
	for _, r := range info.Input.Settings.Remappings {
		if prefix, value, ok := splitRemapping(r); ok {
			remaps = append(remaps, model.Remapping{Prefix: prefix, Target: value})
		}
	}
	unit := model.NewCompilationUnit(model.CompilerDescriptor{
		Name:         "solc",
		Version:      info.SolcVersion,
		Optimize:     info.Input.Settings.Optimizer.Enabled,
		OptimizeRuns: info.Input.Settings.Optimizer.Runs,
		EVMVersion:   info.Input.Settings.EVMVersion,
		ViaIR:        info.Input.Settings.ViaIR,
		Remappings:   remaps,
	})

	for used := range info.Input.Sources {
		absPath := used
		if !filepath.IsAbs(absPath) {
			absPath = filepath.Join(target, used)
		}
		fn, err := project.ResolveFilename(absPath, used, model.NormalizeOptions{Remappings: remaps})
		if err != nil {
			return nil, err
		}
		unit.AddSourceUnit(newSourceUnitFor(fn))
	}

	for used, contracts := range info.Output.Contracts {
		fn, ok := project.FilenameByUsed(used)
		if !ok {
			continue
		}
		su, ok := unit.SourceUnit(fn.Absolute())
		if !ok {
			su = newSourceUnitFor(fn)
			unit.AddSourceUnit(su)
		}
		for name, c := range contracts {
			su.Contracts[name] = &model.Contract{
				Name:              name,
				Kind:              model.KindContract,
				ABI:               c.ABI,
				BytecodeInit:      c.EVM.Bytecode.Object,
				BytecodeRuntime:   c.EVM.DeployedBytecode.Object,
				SrcMapInit:        c.EVM.Bytecode.SourceMap,
				SrcMapRuntime:     c.EVM.DeployedBytecode.SourceMap,
				UserDoc:           c.UserDoc,
				DevDoc:            c.DevDoc,
				Libraries:         linkReferenceNames(c.EVM.Bytecode.LinkReferences),
				MethodIdentifiers: c.EVM.MethodIdentifiers,
			}
		}
	}
	return unit, nil
}

// runFrameworkBuild shells to the framework's own build command in the
// target directory, used when no build-info cache exists yet.
func runFrameworkBuild(ctx context.Context, adapterName, target, binary string, args ...string) error {
	path, err := lookPathFallback(binary)
	if err != nil {
		return model.NewError(model.ErrCompilationFailed, adapterName, target, 0,
			fmt.Errorf("no build-info cache and %s not on PATH: %w", binary, err))
	}
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Dir = target
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return model.NewError(model.ErrCompilationFailed, adapterName, target, cmd.ProcessState.ExitCode(),
			fmt.Errorf("%s %s: %w: %s", binary, strings.Join(args, " "), err, stderr.String()))
	}
	return nil
}

func (a hardhatAdapter) Compile(ctx context.Context, project *model.Project, target string, opts CompileOptions) ([]*model.CompilationUnit, error) {
	buildInfoDir := filepath.Join(target, "artifacts", "build-info")
	units, err := unitsFromBuildInfoDir(project, target, buildInfoDir)
	if err != nil {
		return nil, err
	}
	if len(units) > 0 {
		return units, nil
	}

	// No cached build yet: run Hardhat's own Node pipeline rather than
	// reimplementing its plugin system, then re-read what it wrote.
	if err := runFrameworkBuild(ctx, a.Name(), target, "npx", "hardhat", "compile"); err != nil {
		return nil, err
	}
	units, err = unitsFromBuildInfoDir(project, target, buildInfoDir)
	if err != nil {
		return nil, err
	}
	if len(units) == 0 {
		return nil, model.NewError(model.ErrCompilationFailed, a.Name(), target, 0,
			fmt.Errorf("hardhat compile produced no build-info units"))
	}
	return units, nil
}

func (a hardhatAdapter) Clean(target string, opts CompileOptions) error {
	return os.RemoveAll(filepath.Join(target, "artifacts"))
}

func (hardhatAdapter) IsDependency(path string) bool {
	return containsPathSegment(filepath.ToSlash(path), "node_modules")
}

func (hardhatAdapter) GuessedTests(target string) []string {
	return []string{filepath.Join(target, "test")}
}
