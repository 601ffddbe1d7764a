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

// Package export serializes a *model.Project into the interchange formats
// this tool emits: standard, solc, truffle, and archive.
package export

import (
	"encoding/json"

	"github.com/archon-sec/archon-compile/compile/model"
)

// StandardDocument is the canonical `standard` format: one
// compilation_units object keyed by unit id, each with its
// compiler settings and source_units keyed by absolute path.
type StandardDocument struct {
	WorkingDir       string                          `json:"working_dir"`
	Type             string                          `json:"type"`
	CompilationUnits map[string]StandardUnit         `json:"compilation_units"`
}

type StandardUnit struct {
	UnitID      string                           `json:"unit_id"`
	Compiler    StandardCompiler                 `json:"compiler"`
	SourceUnits map[string]StandardSourceUnit    `json:"source_units"`
}

type StandardCompiler struct {
	Name         string   `json:"name"`
	Version      string   `json:"version"`
	Optimize     bool     `json:"optimize"`
	OptimizeRuns int      `json:"optimize_runs,omitempty"`
	EVMVersion   string   `json:"evm_version,omitempty"`
	ViaIR        bool     `json:"via_ir,omitempty"`
}

type StandardSourceUnit struct {
	AST       json.RawMessage             `json:"ast,omitempty"`
	Contracts map[string]StandardContract `json:"contracts"`
}

type StandardContract struct {
	ABI                     json.RawMessage   `json:"abi"`
	Bin                     string            `json:"bin"`
	BinRuntime              string            `json:"bin-runtime"`
	SrcMap                  string            `json:"srcmap"`
	SrcMapRuntime           string            `json:"srcmap-runtime"`
	UserDoc                 json.RawMessage   `json:"userdoc,omitempty"`
	DevDoc                  json.RawMessage   `json:"devdoc,omitempty"`
	Hashes                  map[string]string `json:"hashes,omitempty"`
	Libraries               []string          `json:"libraries,omitempty"`
	RuntimeMetadataCID      string            `json:"metadata_cid,omitempty"`
	BytecodeRuntimeStripped string            `json:"bin-runtime-stripped,omitempty"`
}

// BuildStandardDocument walks every CompilationUnit in project and flattens
// it into the canonical wire format.
func BuildStandardDocument(project *model.Project) *StandardDocument {
	doc := &StandardDocument{
		WorkingDir:       project.WorkingDir,
		Type:             project.Platform,
		CompilationUnits: make(map[string]StandardUnit),
	}
	for _, unit := range project.Units() {
		su := StandardUnit{
			UnitID: unit.ID,
			Compiler: StandardCompiler{
				Name:         unit.Compiler.Name,
				Version:      unit.Compiler.Version,
				Optimize:     unit.Compiler.Optimize,
				OptimizeRuns: unit.Compiler.OptimizeRuns,
				EVMVersion:   unit.Compiler.EVMVersion,
				ViaIR:        unit.Compiler.ViaIR,
			},
			SourceUnits: make(map[string]StandardSourceUnit),
		}
		for _, s := range unit.SourceUnitsSorted() {
			sourceUnit := StandardSourceUnit{AST: s.AST, Contracts: make(map[string]StandardContract)}
			for name, c := range s.Contracts {
				sourceUnit.Contracts[name] = StandardContract{
					ABI:                     c.ABI,
					Bin:                     c.BytecodeInit,
					BinRuntime:              c.BytecodeRuntime,
					SrcMap:                  c.SrcMapInit,
					SrcMapRuntime:           c.SrcMapRuntime,
					UserDoc:                 c.UserDoc,
					DevDoc:                  c.DevDoc,
					Hashes:                  c.MethodIdentifiers,
					Libraries:               c.Libraries,
					RuntimeMetadataCID:      c.RuntimeMetadata.IPFS,
					BytecodeRuntimeStripped: c.BytecodeRuntimeStripped,
				}
			}
			su.SourceUnits[s.File.Absolute()] = sourceUnit
		}
		doc.CompilationUnits[unit.ID] = su
	}
	return doc
}

// MarshalStandard renders a project to the standard format's JSON bytes.
func MarshalStandard(project *model.Project) ([]byte, error) {
	return json.MarshalIndent(BuildStandardDocument(project), "", "  ")
}
