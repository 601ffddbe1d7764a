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

package export

import (
	"encoding/json"

	"github.com/archon-sec/archon-compile/compile/model"
)

// TruffleArtifact is one contract's exported artifact, written as one
// <Name>.json per contract.
type TruffleArtifact struct {
	ContractName      string          `json:"contractName"`
	ABI               json.RawMessage `json:"abi"`
	Bytecode          string          `json:"bytecode"`
	DeployedBytecode  string          `json:"deployedBytecode"`
	SourceMap         string          `json:"sourceMap"`
	DeployedSourceMap string          `json:"deployedSourceMap"`
	SourcePath        string          `json:"sourcePath"`
	Compiler          TruffleCompiler `json:"compiler"`
	UserDoc           json.RawMessage `json:"userdoc,omitempty"`
	DevDoc            json.RawMessage `json:"devdoc,omitempty"`
}

// TruffleCompiler mirrors the {"name", "version"} object Truffle writes
// into each artifact.
type TruffleCompiler struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// BuildTruffleArtifacts returns one TruffleArtifact per contract across
// every CompilationUnit in project, keyed by contract name. Cross-unit
// name collisions overwrite in unit-id order, matching how Truffle itself
// treats its flat build/contracts/ directory.
func BuildTruffleArtifacts(project *model.Project) map[string]TruffleArtifact {
	out := make(map[string]TruffleArtifact)
	for _, unit := range project.Units() {
		for _, s := range unit.SourceUnitsSorted() {
			for name, c := range s.Contracts {
				out[name] = TruffleArtifact{
					ContractName:      name,
					ABI:               c.ABI,
					Bytecode:          "0x" + c.BytecodeInit,
					DeployedBytecode:  "0x" + c.BytecodeRuntime,
					SourceMap:         c.SrcMapInit,
					DeployedSourceMap: c.SrcMapRuntime,
					SourcePath:        s.File.Absolute(),
					Compiler:          TruffleCompiler{Name: unit.Compiler.Name, Version: unit.Compiler.Version},
					UserDoc:           c.UserDoc,
					DevDoc:            c.DevDoc,
				}
			}
		}
	}
	return out
}

// MarshalTruffle renders every contract's TruffleArtifact, keyed by the
// file name each should be written to ("<Name>.json").
func MarshalTruffle(project *model.Project) (map[string][]byte, error) {
	artifacts := BuildTruffleArtifacts(project)
	out := make(map[string][]byte, len(artifacts))
	for name, art := range artifacts {
		data, err := json.MarshalIndent(art, "", "  ")
		if err != nil {
			return nil, err
		}
		out[name+".json"] = data
	}
	return out, nil
}
