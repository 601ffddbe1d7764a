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
	"fmt"

	"github.com/archon-sec/archon-compile/compile/model"
)

// ArchiveDocument is the exported-archive JSON shape
// (<target>_export_archive.json): it wraps the
// same canonical data as StandardDocument but additionally carries enough
// per-source-unit bookkeeping (the Filename four-tuple) that the direct
// adapter can rehydrate a project without recompiling.
type ArchiveDocument struct {
	WorkingDir       string                  `json:"working_dir"`
	Target           string                  `json:"target"`
	Type             string                  `json:"type"`
	CompilationUnits []ArchiveCompilationUnit `json:"compilation_units"`
}

type ArchiveCompilationUnit struct {
	UnitID      string              `json:"unit_id"`
	Compiler    StandardCompiler    `json:"compiler"`
	SourceUnits []ArchiveSourceUnit `json:"source_units"`
}

type ArchiveSourceUnit struct {
	Filename  ArchiveFilename             `json:"filename"`
	AST       json.RawMessage             `json:"ast,omitempty"`
	Contracts map[string]StandardContract `json:"contracts"`
}

// ArchiveFilename records all four Filename facets. RehydrateInto rebuilds
// the identity from Absolute and Used only; Relative and Short are
// re-derived by the importing project's ResolveFilename.
type ArchiveFilename struct {
	Absolute string `json:"absolute"`
	Relative string `json:"relative"`
	Short    string `json:"short"`
	Used     string `json:"used"`
}

// BuildArchiveDocument is BuildStandardDocument's archive-format sibling:
// same contract data, ordered and filename-complete for round-tripping.
func BuildArchiveDocument(project *model.Project) *ArchiveDocument {
	doc := &ArchiveDocument{
		WorkingDir: project.WorkingDir,
		Target:     project.Target,
		Type:       project.Platform,
	}
	for _, unit := range project.Units() {
		au := ArchiveCompilationUnit{
			UnitID: unit.ID,
			Compiler: StandardCompiler{
				Name:         unit.Compiler.Name,
				Version:      unit.Compiler.Version,
				Optimize:     unit.Compiler.Optimize,
				OptimizeRuns: unit.Compiler.OptimizeRuns,
				EVMVersion:   unit.Compiler.EVMVersion,
				ViaIR:        unit.Compiler.ViaIR,
			},
		}
		for _, s := range unit.SourceUnitsSorted() {
			asu := ArchiveSourceUnit{
				Filename: ArchiveFilename{
					Absolute: s.File.Absolute(),
					Relative: s.File.Relative(),
					Short:    s.File.Short(),
					Used:     s.File.Used(),
				},
				AST:       s.AST,
				Contracts: make(map[string]StandardContract),
			}
			for name, c := range s.Contracts {
				asu.Contracts[name] = StandardContract{
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
			au.SourceUnits = append(au.SourceUnits, asu)
		}
		doc.CompilationUnits = append(doc.CompilationUnits, au)
	}
	return doc
}

// MarshalArchive renders project as an exported archive document.
func MarshalArchive(project *model.Project) ([]byte, error) {
	return json.MarshalIndent(BuildArchiveDocument(project), "", "  ")
}

// RehydrateProject parses a previously exported archive document back into
// a fresh *model.Project, without touching any compiler.
func RehydrateProject(data []byte) (*model.Project, error) {
	var doc ArchiveDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, model.NewError(model.ErrInvalidArchive, "archive", "", 0, err)
	}

	project := model.NewProject(doc.WorkingDir, doc.Target)
	units, err := RehydrateInto(project, &doc)
	if err != nil {
		return nil, err
	}
	for _, unit := range units {
		if err := project.AddUnit(unit); err != nil {
			return nil, err
		}
	}
	return project, nil
}

// RehydrateInto rebuilds doc's CompilationUnits against project's own
// identity index (so re-imported Filenames merge with any the project
// already holds) and sets project.Platform from the stored adapter name.
// The caller installs the returned units.
func RehydrateInto(project *model.Project, doc *ArchiveDocument) ([]*model.CompilationUnit, error) {
	project.Platform = doc.Type

	var units []*model.CompilationUnit
	for _, au := range doc.CompilationUnits {
		unit := model.NewCompilationUnit(model.CompilerDescriptor{
			Name:         au.Compiler.Name,
			Version:      au.Compiler.Version,
			Optimize:     au.Compiler.Optimize,
			OptimizeRuns: au.Compiler.OptimizeRuns,
			EVMVersion:   au.Compiler.EVMVersion,
			ViaIR:        au.Compiler.ViaIR,
		})
		unit.ID = au.UnitID

		for _, asu := range au.SourceUnits {
			if asu.Filename.Absolute == "" {
				return nil, model.NewError(model.ErrInvalidArchive, "archive", doc.Target, 0,
					fmt.Errorf("source unit missing absolute filename"))
			}
			fn, err := project.ResolveFilename(asu.Filename.Absolute, asu.Filename.Used, model.NormalizeOptions{})
			if err != nil {
				return nil, err
			}
			su := &model.SourceUnit{File: fn, AST: asu.AST, Contracts: make(map[string]*model.Contract)}
			for name, c := range asu.Contracts {
				su.Contracts[name] = &model.Contract{
					Name:                    name,
					Kind:                    model.KindContract,
					ABI:                     c.ABI,
					BytecodeInit:            c.Bin,
					BytecodeRuntime:         c.BinRuntime,
					SrcMapInit:              c.SrcMap,
					SrcMapRuntime:           c.SrcMapRuntime,
					UserDoc:                 c.UserDoc,
					DevDoc:                  c.DevDoc,
					MethodIdentifiers:       c.Hashes,
					Libraries:               c.Libraries,
					BytecodeRuntimeStripped: c.BytecodeRuntimeStripped,
				}
			}
			unit.AddSourceUnit(su)
		}

		units = append(units, unit)
	}
	return units, nil
}

// ParseArchiveDocument decodes an exported archive's raw JSON bytes.
func ParseArchiveDocument(data []byte) (*ArchiveDocument, error) {
	var doc ArchiveDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, model.NewError(model.ErrInvalidArchive, "archive", "", 0, err)
	}
	return &doc, nil
}
