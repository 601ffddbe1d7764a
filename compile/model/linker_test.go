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
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	mathLibAddr      = "0x1111111111111111111111111111111111111111"
	advancedMathAddr = "0x2222222222222222222222222222222222222222"
	complexMathAddr  = "0x3333333333333333333333333333333333333333"
)

func TestPlaceholderShape(t *testing.T) {
	for _, name := range []string{"MathLib", "A", "AVeryLongLibraryNameThatExceedsTheBodyWidth"} {
		tok := placeholder(name)
		assert.Len(t, tok, 40, "placeholder for %q", name)
		assert.True(t, strings.HasPrefix(tok, "__"))
		assert.True(t, strings.HasSuffix(tok, "__"))
	}
}

func TestPlaceholderPadding(t *testing.T) {
	tok := placeholder("MathLib")
	assert.Equal(t, "__MathLib"+strings.Repeat("_", 29)+"__", tok)

	long := strings.Repeat("x", 50)
	tok = placeholder(long)
	assert.Equal(t, "__"+long[:36]+"__", tok)
}

func TestLinkBytecodeResolvesAll(t *testing.T) {
	template := "6080" + placeholder("MathLib") + "60ff" + placeholder("MathLib") + "00"
	linked, err := LinkBytecode(template, LibraryMap{"MathLib": mathLibAddr})
	require.NoError(t, err)

	addr := strings.TrimPrefix(mathLibAddr, "0x")
	assert.Equal(t, "6080"+addr+"60ff"+addr+"00", linked)
	assert.NotContains(t, linked, "__")
}

func TestLinkBytecodeTransitive(t *testing.T) {
	// ComplexMath uses AdvancedMath uses MathLib; a template can reference
	// all three.
	template := placeholder("MathLib") + placeholder("AdvancedMath") + placeholder("ComplexMath")

	// Only MathLib's address: AdvancedMath is the first remaining
	// placeholder, so the failure names it.
	_, err := LinkBytecode(template, LibraryMap{"MathLib": mathLibAddr})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnresolvedLibrary.AsError()))
	assert.Contains(t, err.Error(), "AdvancedMath")

	linked, err := LinkBytecode(template, LibraryMap{
		"MathLib":      mathLibAddr,
		"AdvancedMath": advancedMathAddr,
		"ComplexMath":  complexMathAddr,
	})
	require.NoError(t, err)
	assert.NotContains(t, linked, "_")
}

func TestLinkBytecodePartialThenComplete(t *testing.T) {
	template := placeholder("MathLib") + placeholder("AdvancedMath")

	staged := LinkBytecodePartial(template, LibraryMap{"MathLib": mathLibAddr})
	assert.Contains(t, staged, placeholder("AdvancedMath"))
	assert.NotContains(t, staged, placeholder("MathLib"))

	finished, err := LinkBytecode(staged, LibraryMap{"AdvancedMath": advancedMathAddr})
	require.NoError(t, err)

	direct, err := LinkBytecode(template, LibraryMap{
		"MathLib":      mathLibAddr,
		"AdvancedMath": advancedMathAddr,
	})
	require.NoError(t, err)
	assert.Equal(t, direct, finished)
}

func TestLinkBytecodeIdempotent(t *testing.T) {
	template := "00" + placeholder("MathLib") + "ff"
	libs := LibraryMap{"MathLib": mathLibAddr}

	once, err := LinkBytecode(template, libs)
	require.NoError(t, err)
	twice, err := LinkBytecode(once, libs)
	require.NoError(t, err)
	assert.Equal(t, once, twice)

	// A superset of addresses never changes previously linked sites.
	superset, err := LinkBytecode(template, LibraryMap{
		"MathLib":   mathLibAddr,
		"Unrelated": advancedMathAddr,
	})
	require.NoError(t, err)
	assert.Equal(t, once, superset)
}

func TestLinkBytecodeAddressLowercasedNoPrefix(t *testing.T) {
	template := placeholder("Lib")
	linked, err := LinkBytecode(template, LibraryMap{"Lib": "0xABCDEF1234567890ABCDEF1234567890ABCDEF12"})
	require.NoError(t, err)
	assert.Equal(t, "abcdef1234567890abcdef1234567890abcdef12", linked)
}

func TestLinkCacheStableResults(t *testing.T) {
	unit := NewCompilationUnit(CompilerDescriptor{Name: "solc"})
	template := placeholder("MathLib")
	libs := LibraryMap{"MathLib": mathLibAddr}

	first, err := unit.LinkContract(template, libs)
	require.NoError(t, err)
	second, err := unit.LinkContract(template, libs)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestLibraryMapFingerprintOrderIndependent(t *testing.T) {
	a := LibraryMap{"A": "0x01", "B": "0x02"}
	b := LibraryMap{"B": "0x02", "A": "0x01"}
	assert.Equal(t, a.fingerprint(), b.fingerprint())
}

func TestRequiredLibraries(t *testing.T) {
	template := placeholder("MathLib") + "6080"
	assert.Equal(t, []string{"MathLib"}, RequiredLibraries(template, []string{"MathLib", "Absent"}))
	assert.Empty(t, RequiredLibraries("6080", []string{"MathLib"}))
}
