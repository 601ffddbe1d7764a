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

package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func graphUnit(t *testing.T) *CompilationUnit {
	t.Helper()
	p := NewProject(t.TempDir(), "target")
	unit := NewCompilationUnit(CompilerDescriptor{Name: "solc"})

	add := func(file, name string, kind ContractKind, libs, deps []string) {
		fn := resolvedFile(t, p, file)
		su, ok := unit.SourceUnit(fn.Absolute())
		if !ok {
			su = &SourceUnit{File: fn, Contracts: map[string]*Contract{}}
			unit.AddSourceUnit(su)
		}
		su.Contracts[name] = &Contract{
			Name: name, Kind: kind, ABI: json.RawMessage(`[]`),
			Libraries: libs, ContractDependencies: deps,
		}
	}

	add("MathLib.sol", "MathLib", KindLibrary, nil, nil)
	add("AdvancedMath.sol", "AdvancedMath", KindLibrary, []string{"MathLib"}, nil)
	add("ComplexMath.sol", "ComplexMath", KindLibrary, []string{"AdvancedMath"}, nil)
	add("Calculator.sol", "Calculator", KindContract, []string{"ComplexMath"}, nil)
	return unit
}

func TestTopologicalLinkOrderInnermostFirst(t *testing.T) {
	g := BuildDependencyGraph(graphUnit(t))
	order := g.TopologicalLinkOrder()

	pos := make(map[string]int)
	for i, ref := range order {
		pos[ref.Contract] = i
	}
	require.Contains(t, pos, "MathLib")
	require.Contains(t, pos, "AdvancedMath")
	require.Contains(t, pos, "ComplexMath")
	require.Contains(t, pos, "Calculator")

	assert.Less(t, pos["MathLib"], pos["AdvancedMath"])
	assert.Less(t, pos["AdvancedMath"], pos["ComplexMath"])
	assert.Less(t, pos["ComplexMath"], pos["Calculator"])
}

func TestTopologicalLinkOrderToleratesCycles(t *testing.T) {
	p := NewProject(t.TempDir(), "target")
	unit := NewCompilationUnit(CompilerDescriptor{Name: "solc"})

	// E -> I -> K -> E plus G -> I, mirroring a mutual-construction cycle.
	contracts := map[string][]string{
		"E": {"I"},
		"I": {"K"},
		"K": {"E"},
		"G": {"I"},
	}
	for name, deps := range contracts {
		fn := resolvedFile(t, p, name+".sol")
		unit.AddSourceUnit(&SourceUnit{File: fn, Contracts: map[string]*Contract{
			name: {Name: name, Kind: KindContract, ABI: json.RawMessage(`[]`), ContractDependencies: deps},
		}})
	}

	order := BuildDependencyGraph(unit).TopologicalLinkOrder()
	seen := make(map[string]bool)
	for _, ref := range order {
		assert.False(t, seen[ref.Contract], "contract %s visited twice", ref.Contract)
		seen[ref.Contract] = true
	}
	assert.Len(t, seen, 4)
}
