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
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestResolveFilenameFacets(t *testing.T) {
	workdir := t.TempDir()
	abs := writeFile(t, workdir, "contracts/Token.sol", "contract Token {}")

	p := NewProject(workdir, workdir)
	fn, err := p.ResolveFilename("contracts/Token.sol", "contracts/Token.sol", NormalizeOptions{})
	require.NoError(t, err)

	assert.Equal(t, mustEval(t, abs), fn.Absolute())
	assert.Equal(t, filepath.Join("contracts", "Token.sol"), fn.Relative())
	assert.Equal(t, "contracts/Token.sol", fn.Short())
	assert.Equal(t, "contracts/Token.sol", fn.Used())
}

// mustEval mirrors the symlink resolution the normalizer applies, so
// expectations hold on hosts where TempDir itself sits behind a symlink
// (macOS /var -> /private/var).
func mustEval(t *testing.T, path string) string {
	t.Helper()
	resolved, err := filepath.EvalSymlinks(path)
	require.NoError(t, err)
	return resolved
}

func TestResolveFilenameSharedIdentity(t *testing.T) {
	workdir := t.TempDir()
	writeFile(t, workdir, "src/A.sol", "contract A {}")

	p := NewProject(workdir, workdir)
	first, err := p.ResolveFilename("src/A.sol", "src/A.sol", NormalizeOptions{})
	require.NoError(t, err)
	second, err := p.ResolveFilename(filepath.Join(workdir, "src", "A.sol"), "@proj/A.sol", NormalizeOptions{})
	require.NoError(t, err)

	// Two distinct `used` strings resolving to one absolute path share one
	// identity; both variants are remembered as aliases.
	assert.Same(t, first, second)
	assert.ElementsMatch(t, []string{"src/A.sol", "@proj/A.sol"}, first.Aliases())

	byUsed, ok := p.FilenameByUsed("@proj/A.sol")
	require.True(t, ok)
	assert.Same(t, first, byUsed)
	byAbs, ok := p.FilenameByAbsolute(first.Absolute())
	require.True(t, ok)
	assert.Same(t, first, byAbs)
}

func TestResolveFilenameIncludePathAndRemapping(t *testing.T) {
	workdir := t.TempDir()
	incDir := t.TempDir()
	writeFile(t, incDir, "utils/Math.sol", "library Math {}")
	libDir := t.TempDir()
	writeFile(t, libDir, "token/ERC20.sol", "contract ERC20 {}")

	p := NewProject(workdir, workdir)

	viaInclude, err := p.ResolveFilename("utils/Math.sol", "utils/Math.sol", NormalizeOptions{
		IncludePaths: []string{incDir},
	})
	require.NoError(t, err)
	assert.Equal(t, mustEval(t, filepath.Join(incDir, "utils", "Math.sol")), viaInclude.Absolute())

	viaRemap, err := p.ResolveFilename("@oz/token/ERC20.sol", "@oz/token/ERC20.sol", NormalizeOptions{
		Remappings: []Remapping{{Prefix: "@oz/", Target: libDir}},
	})
	require.NoError(t, err)
	assert.Equal(t, mustEval(t, filepath.Join(libDir, "token", "ERC20.sol")), viaRemap.Absolute())
}

func TestResolveFilenameNonexistentFallsBackToJoin(t *testing.T) {
	workdir := t.TempDir()
	p := NewProject(workdir, workdir)

	fn, err := p.ResolveFilename("missing/Ghost.sol", "missing/Ghost.sol", NormalizeOptions{})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(workdir, "missing", "Ghost.sol"), fn.Absolute())
}

func TestFilenameIsDependency(t *testing.T) {
	workdir := t.TempDir()
	dep := writeFile(t, workdir, "node_modules/@oz/Ownable.sol", "contract Ownable {}")
	own := writeFile(t, workdir, "src/Main.sol", "contract Main {}")

	p := NewProject(workdir, workdir)
	depFn, err := p.ResolveFilename(dep, dep, NormalizeOptions{})
	require.NoError(t, err)
	ownFn, err := p.ResolveFilename(own, own, NormalizeOptions{})
	require.NoError(t, err)

	assert.True(t, depFn.IsDependency())
	assert.False(t, ownFn.IsDependency())
	// Dependency roots strip first in the short view.
	assert.Equal(t, "@oz/Ownable.sol", depFn.Short())
}

func TestFilenameOutsideWorkdirKeepsAbsoluteRelative(t *testing.T) {
	workdir := t.TempDir()
	other := t.TempDir()
	abs := writeFile(t, other, "External.sol", "contract External {}")

	p := NewProject(workdir, workdir)
	fn, err := p.ResolveFilename(abs, abs, NormalizeOptions{})
	require.NoError(t, err)
	assert.Equal(t, fn.Absolute(), fn.Relative())
}

func TestIdentityIndexConcurrentResolve(t *testing.T) {
	workdir := t.TempDir()
	writeFile(t, workdir, "src/C.sol", "contract C {}")

	p := NewProject(workdir, workdir)
	results := make([]*Filename, 32)
	var wg sync.WaitGroup
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			fn, err := p.ResolveFilename("src/C.sol", "src/C.sol", NormalizeOptions{})
			assert.NoError(t, err)
			results[i] = fn
		}(i)
	}
	wg.Wait()

	for _, fn := range results[1:] {
		assert.Same(t, results[0], fn)
	}
	assert.Len(t, p.Filenames(), 1)
}
