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
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/archon-sec/archon-compile/compile/driver"
	"github.com/archon-sec/archon-compile/compile/model"
	"github.com/archon-sec/archon-compile/log"
)

// collectSources walks root looking for files with the given extensions,
// skipping any directory component that IsDependency considers vendored
// unless includeDeps is set (Foundry/Hardhat both compile their
// dependencies, so adapters for those pass includeDeps=true).
func collectSources(root string, extensions []string, isDep func(string) bool, includeDeps bool) ([]string, error) {
	var out []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if name := info.Name(); name == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if !includeDeps && isDep(path) {
			return nil
		}
		ext := filepath.Ext(path)
		for _, want := range extensions {
			if ext == want {
				out = append(out, path)
				return nil
			}
		}
		return nil
	})
	return out, err
}

// buildStandardJSONInput reads every source path's content and assembles a
// driver.StandardJSONInput, keyed by the project-relative path the compiler
// is given on its command line (the `used` string).
func buildStandardJSONInput(sources map[string]string, remaps []model.Remapping, settings StandardSettings) (driver.StandardJSONInput, error) {
	in := driver.StandardJSONInput{
		Language: "Solidity",
		Sources:  make(map[string]driver.StandardSource, len(sources)),
		Settings: driver.StandardSettings{
			Optimizer:       driver.StandardOptimizer{Enabled: settings.OptimizerEnabled, Runs: settings.OptimizerRuns},
			EVMVersion:      settings.EVMVersion,
			ViaIR:           settings.ViaIR,
			OutputSelection: driver.DefaultOutputSelection(),
		},
	}
	for _, r := range remaps {
		in.Settings.Remappings = append(in.Settings.Remappings, r.Prefix+"="+r.Target)
	}
	for used, absPath := range sources {
		content, err := os.ReadFile(absPath)
		if err != nil {
			return in, fmt.Errorf("reading %s: %w", absPath, err)
		}
		in.Sources[used] = driver.StandardSource{Content: string(content)}
	}
	return in, nil
}

// StandardSettings is the subset of compiler settings an adapter derives
// from its own framework's config file before handing off to the driver.
type StandardSettings struct {
	OptimizerEnabled bool
	OptimizerRuns    int
	EVMVersion       string
	ViaIR            bool
}

// installStandardJSONUnit runs the standard-JSON compiler pipeline over
// `sources` (used-path -> absolute-path) and installs the resulting
// CompilationUnit's SourceUnits/Contracts into project, resolving every
// Filename through the project-wide identity index.
func installStandardJSONUnit(ctx context.Context, project *model.Project, adapterName string, sources map[string]string, settings StandardSettings, compilerPath, compilerVersion string, remaps []model.Remapping, flags Flags) (*model.CompilationUnit, error) {
	input, err := buildStandardJSONInput(sources, remaps, settings)
	if err != nil {
		return nil, err
	}

	out, err := driver.RunStandardJSON(ctx, compilerPath, input, splitArgs(flags.SolcArgs))
	if err != nil {
		return nil, model.NewError(model.ErrCompilerCrashed, adapterName, project.Target, 0, err)
	}
	fatal, warnings := driver.ClassifyDiagnostics(out)
	if !flags.DisableWarnings {
		for _, w := range warnings {
			msg := w.FormattedMessage
			if msg == "" {
				msg = w.Message
			}
			log.Warn("compiler warning", "adapter", adapterName, "message", msg)
		}
	}
	if len(fatal) > 0 {
		msgs := make([]string, len(fatal))
		for i, d := range fatal {
			msgs[i] = d.FormattedMessage
			if msgs[i] == "" {
				msgs[i] = d.Message
			}
		}
		return nil, model.NewError(model.ErrCompilationFailed, adapterName, project.Target, 0,
			fmt.Errorf("%s", strings.Join(msgs, "\n")))
	}

	unit := model.NewCompilationUnit(model.CompilerDescriptor{
		Name:         "solc",
		Version:      compilerVersion,
		Optimize:     settings.OptimizerEnabled,
		OptimizeRuns: settings.OptimizerRuns,
		EVMVersion:   settings.EVMVersion,
		ViaIR:        settings.ViaIR,
		Remappings:   remaps,
	})

	for used, absPath := range sources {
		fn, err := project.ResolveFilename(absPath, used, model.NormalizeOptions{Remappings: remaps})
		if err != nil {
			return nil, err
		}
		su, ok := unit.SourceUnit(fn.Absolute())
		if !ok {
			su = newSourceUnitFor(fn)
			unit.AddSourceUnit(su)
		}
		if outSrc, ok := out.Sources[used]; ok {
			su.AST = outSrc.AST
		}
	}

	for used, contracts := range out.Contracts {
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

func newSourceUnitFor(fn *model.Filename) *model.SourceUnit {
	return &model.SourceUnit{File: fn, Contracts: make(map[string]*model.Contract)}
}

// linkReferenceNames flattens solc's nested linkReferences map into the
// flat list of library names Contract.Libraries expects.
func linkReferenceNames(refs map[string]map[string][]driver.LinkReference) []string {
	var out []string
	for _, byName := range refs {
		for name := range byName {
			out = append(out, name)
		}
	}
	return out
}

// readJSONFile is a small convenience shared by every framework-config
// reader that consumes build-output artifact JSON.
func readJSONFile(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// fileExists reports whether path exists on disk.
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// lookPathFallback resolves a binary name against $PATH, used by adapters
// whose compiler choice has no override flag of its own (Vyper, unlike
// solc, has no --solc-path override of its own).
func lookPathFallback(name string) (string, error) {
	return exec.LookPath(name)
}

// truffleArtifact is the one-contract-per-file JSON shape shared by
// Truffle, Dapp, Waffle and Brownie's build output.
type truffleArtifact struct {
	ContractName      string          `json:"contractName"`
	ABI               json.RawMessage `json:"abi"`
	Bytecode          string          `json:"bytecode"`
	DeployedBytecode  string          `json:"deployedBytecode"`
	SourceMap         string          `json:"sourceMap"`
	DeployedSourceMap string          `json:"deployedSourceMap"`
	SourcePath        string          `json:"sourcePath"`
	Source            string          `json:"source"`
	Compiler          struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	} `json:"compiler"`
	DevDoc  json.RawMessage `json:"devdoc,omitempty"`
	UserDoc json.RawMessage `json:"userdoc,omitempty"`
}

// installTruffleStyleArtifacts reads every *.json file directly under
// buildDir as a truffleArtifact and folds them into one CompilationUnit.
// Truffle, Dapp, Waffle and Brownie all emit this shape; only the build
// directory name and config parsing differ between them.
func installTruffleStyleArtifacts(project *model.Project, adapterName, target, buildDir string) (*model.CompilationUnit, error) {
	entries, err := os.ReadDir(buildDir)
	if err != nil {
		return nil, model.NewError(model.ErrCompilationFailed, adapterName, target, 0, err)
	}

	unit := model.NewCompilationUnit(model.CompilerDescriptor{Name: "solc"})

	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		var art truffleArtifact
		if err := readJSONFile(filepath.Join(buildDir, e.Name()), &art); err != nil {
			continue
		}
		if art.ContractName == "" || art.SourcePath == "" {
			continue
		}
		absPath := art.SourcePath
		if !filepath.IsAbs(absPath) {
			absPath = filepath.Join(target, art.SourcePath)
		}
		fn, err := project.ResolveFilename(absPath, art.SourcePath, model.NormalizeOptions{})
		if err != nil {
			return nil, err
		}
		su, ok := unit.SourceUnit(fn.Absolute())
		if !ok {
			su = newSourceUnitFor(fn)
			unit.AddSourceUnit(su)
		}
		if art.Compiler.Version != "" && unit.Compiler.Version == "" {
			unit.Compiler.Version = art.Compiler.Version
		}
		su.Contracts[art.ContractName] = &model.Contract{
			Name:            art.ContractName,
			Kind:            model.KindContract,
			ABI:             art.ABI,
			BytecodeInit:    strings.TrimPrefix(art.Bytecode, "0x"),
			BytecodeRuntime: strings.TrimPrefix(art.DeployedBytecode, "0x"),
			SrcMapInit:      art.SourceMap,
			SrcMapRuntime:   art.DeployedSourceMap,
			UserDoc:         art.UserDoc,
			DevDoc:          art.DevDoc,
		}
	}
	return unit, nil
}
