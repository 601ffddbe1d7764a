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

func resolvedFile(t *testing.T, p *Project, rel string) *Filename {
	t.Helper()
	fn, err := p.ResolveFilename(rel, rel, NormalizeOptions{})
	require.NoError(t, err)
	return fn
}

func unitWithContract(t *testing.T, p *Project, file, contract, abi string) *CompilationUnit {
	t.Helper()
	unit := NewCompilationUnit(CompilerDescriptor{Name: "solc", Version: "0.8.19"})
	fn := resolvedFile(t, p, file)
	su := &SourceUnit{File: fn, Contracts: map[string]*Contract{
		contract: {Name: contract, Kind: KindContract, ABI: json.RawMessage(abi)},
	}}
	unit.AddSourceUnit(su)
	return unit
}

func TestProjectUnitsSortedByID(t *testing.T) {
	p := NewProject(t.TempDir(), "target")

	b := unitWithContract(t, p, "B.sol", "B", `[]`)
	b.ID = "bbbb"
	a := unitWithContract(t, p, "A.sol", "A", `[]`)
	a.ID = "aaaa"

	require.NoError(t, p.AddUnit(b))
	require.NoError(t, p.AddUnit(a))

	units := p.Units()
	require.Len(t, units, 2)
	assert.Equal(t, "aaaa", units[0].ID)
	assert.Equal(t, "bbbb", units[1].ID)
}

func TestProjectAddUnitIdempotent(t *testing.T) {
	p := NewProject(t.TempDir(), "target")
	u := unitWithContract(t, p, "A.sol", "A", `[]`)
	require.NoError(t, p.AddUnit(u))
	require.NoError(t, p.AddUnit(u))
	assert.Len(t, p.Units(), 1)
}

func TestProjectMergeSameIDCompatible(t *testing.T) {
	p := NewProject(t.TempDir(), "target")

	first := unitWithContract(t, p, "A.sol", "A", `[{"type":"function","name":"f"}]`)
	first.ID = "shared"
	second := unitWithContract(t, p, "B.sol", "B", `[]`)
	second.ID = "shared"

	require.NoError(t, p.AddUnit(first))
	require.NoError(t, p.AddUnit(second))

	units := p.Units()
	require.Len(t, units, 1)
	assert.Len(t, units[0].SourceUnits(), 2)
}

func TestProjectMergeAmbiguousContractFatal(t *testing.T) {
	p := NewProject(t.TempDir(), "target")

	first := unitWithContract(t, p, "A.sol", "A", `[{"type":"function","name":"f"}]`)
	first.ID = "shared"
	second := unitWithContract(t, p, "A.sol", "A", `[{"type":"function","name":"g"}]`)
	second.ID = "shared"

	require.NoError(t, p.AddUnit(first))
	err := p.AddUnit(second)
	require.Error(t, err)
	assert.True(t, IsCode(err, ErrContractAmbiguous))
}

func TestProjectMonorepoSharedFileMerges(t *testing.T) {
	p := NewProject(t.TempDir(), "target")

	// Two sub-roots compiled independently: unit IDs stay the random
	// defaults, the shared file is the merge key.
	first := unitWithContract(t, p, "shared/Lib.sol", "Lib", `[{"type":"function","name":"f"}]`)
	second := unitWithContract(t, p, "shared/Lib.sol", "Lib", `[{"type":"function","name":"f"}]`)
	require.NotEqual(t, first.ID, second.ID)

	require.NoError(t, p.AddUnit(first))
	require.NoError(t, p.AddUnit(second))

	units := p.Units()
	require.Len(t, units, 2)

	fn, ok := p.FilenameByUsed("shared/Lib.sol")
	require.True(t, ok)
	suFirst, ok := units[0].SourceUnit(fn.Absolute())
	require.True(t, ok)
	suSecond, ok := units[1].SourceUnit(fn.Absolute())
	require.True(t, ok)
	assert.Same(t, suFirst, suSecond)
}

func TestProjectMonorepoAmbiguousContractFatal(t *testing.T) {
	p := NewProject(t.TempDir(), "target")

	first := unitWithContract(t, p, "shared/Lib.sol", "Lib", `[{"type":"function","name":"f"}]`)
	second := unitWithContract(t, p, "shared/Lib.sol", "Lib", `[{"type":"function","name":"g"}]`)

	require.NoError(t, p.AddUnit(first))
	err := p.AddUnit(second)
	require.Error(t, err)
	assert.True(t, IsCode(err, ErrContractAmbiguous))
}

func TestProjectMonorepoNewContractJoinsSharedFile(t *testing.T) {
	p := NewProject(t.TempDir(), "target")

	first := unitWithContract(t, p, "shared/Both.sol", "A", `[{"type":"function","name":"f"}]`)
	second := unitWithContract(t, p, "shared/Both.sol", "B", `[{"type":"function","name":"g"}]`)

	require.NoError(t, p.AddUnit(first))
	require.NoError(t, p.AddUnit(second))

	fn, ok := p.FilenameByUsed("shared/Both.sol")
	require.True(t, ok)
	su, ok := p.Units()[0].SourceUnit(fn.Absolute())
	require.True(t, ok)
	assert.Len(t, su.Contracts, 2)
}

func TestSourceUnitEmissionOrderPreserved(t *testing.T) {
	p := NewProject(t.TempDir(), "target")
	unit := NewCompilationUnit(CompilerDescriptor{Name: "solc"})

	for _, name := range []string{"Z.sol", "A.sol", "M.sol"} {
		fn := resolvedFile(t, p, name)
		unit.AddSourceUnit(&SourceUnit{File: fn, Contracts: map[string]*Contract{}})
	}

	var emitted, sorted []string
	for _, su := range unit.SourceUnits() {
		emitted = append(emitted, su.File.Used())
	}
	for _, su := range unit.SourceUnitsSorted() {
		sorted = append(sorted, su.File.Used())
	}
	assert.Equal(t, []string{"Z.sol", "A.sol", "M.sol"}, emitted)
	assert.Equal(t, []string{"A.sol", "M.sol", "Z.sol"}, sorted)
}
