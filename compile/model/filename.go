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
	"runtime"
	"strings"
	"sync"
)

// dependencyRoots are directory names whose presence in a path marks it as
// vendored/third-party, consulted by both the short-path stripping rule
// and IsDependency.
var dependencyRoots = []string{"node_modules", "lib", ".deps", "dependencies"}

// Remapping is an import-path prefix substitution, e.g. "@oz/=lib/openzeppelin/".
type Remapping struct {
	Prefix string
	Target string
}

// Filename is the immutable four-tuple identity of a source file.
// Equality is defined on Absolute alone; Relative/Short/Used are display
// facets that may legitimately differ between two references to the same
// file.
type Filename struct {
	absolute string
	relative string
	short    string
	used     string

	mu      sync.Mutex
	aliases map[string]struct{} // additional `used` strings seen for this identity
}

// Absolute returns the canonicalized OS path.
func (f *Filename) Absolute() string { return f.absolute }

// Relative returns the path relative to the project working directory, or
// Absolute if the file is not a descendant of it.
func (f *Filename) Relative() string { return f.relative }

// Short returns a display form with common prefixes stripped.
func (f *Filename) Short() string { return f.short }

// Used returns the exact string the compiler invocation saw for this file.
func (f *Filename) Used() string { return f.used }

// String implements fmt.Stringer, preferring the short display form.
func (f *Filename) String() string {
	if f.short != "" {
		return f.short
	}
	return f.absolute
}

// Equal reports whether two identities refer to the same absolute path.
func (f *Filename) Equal(other *Filename) bool {
	if f == nil || other == nil {
		return f == other
	}
	return f.absolute == other.absolute
}

// IsDependency reports whether the identity lives under a recognized
// dependency root (node_modules, lib/, .deps/, ...).
func (f *Filename) IsDependency() bool {
	parts := strings.Split(filepath.ToSlash(f.absolute), "/")
	for _, p := range parts {
		for _, root := range dependencyRoots {
			if p == root {
				return true
			}
		}
	}
	return false
}

// Aliases returns every `used` string that has ever resolved to this
// identity.
func (f *Filename) Aliases() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.aliases))
	for a := range f.aliases {
		out = append(out, a)
	}
	return out
}

func (f *Filename) addAlias(used string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.aliases == nil {
		f.aliases = make(map[string]struct{})
	}
	f.aliases[used] = struct{}{}
}

// identityIndex is the project-wide identity map. All adapters consult
// it; a reader-writer lock guards it because inserts are rare relative
// to lookups.
type identityIndex struct {
	mu         sync.RWMutex
	byAbsolute map[string]*Filename
	byUsed     map[string]*Filename
}

func newIdentityIndex() *identityIndex {
	return &identityIndex{
		byAbsolute: make(map[string]*Filename),
		byUsed:     make(map[string]*Filename),
	}
}

// resolve installs or fetches the Filename for raw. workdir and opts are
// consulted only on first insertion for
// a given absolute path; subsequent callers with a different `used` string
// get an alias recorded on the existing identity.
func (idx *identityIndex) resolve(raw, workdir, used string, opts NormalizeOptions) (*Filename, error) {
	abs, err := canonicalize(raw, workdir, opts)
	if err != nil {
		return nil, err
	}
	key := caseFoldKey(abs)

	idx.mu.RLock()
	if existing, ok := idx.byAbsolute[key]; ok {
		idx.mu.RUnlock()
		if used != "" {
			existing.addAlias(used)
			idx.mu.Lock()
			idx.byUsed[used] = existing
			idx.mu.Unlock()
		}
		return existing, nil
	}
	idx.mu.RUnlock()

	f := &Filename{
		absolute: abs,
		relative: relativeTo(abs, workdir),
		short:    shortForm(abs, workdir, opts),
		used:     used,
	}
	if used != "" {
		f.addAlias(used)
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	if existing, ok := idx.byAbsolute[key]; ok {
		// Lost the race between RUnlock and Lock; fold into the winner.
		if used != "" {
			existing.addAlias(used)
			idx.byUsed[used] = existing
		}
		return existing, nil
	}
	idx.byAbsolute[key] = f
	if used != "" {
		idx.byUsed[used] = f
	}
	return f, nil
}

// byAbsolutePath looks an identity up by its absolute facet only.
func (idx *identityIndex) byAbsolutePath(abs string) (*Filename, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	f, ok := idx.byAbsolute[caseFoldKey(abs)]
	return f, ok
}

// byUsedString looks an identity up by a `used` alias.
func (idx *identityIndex) byUsedString(used string) (*Filename, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	f, ok := idx.byUsed[used]
	return f, ok
}

func (idx *identityIndex) all() []*Filename {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	out := make([]*Filename, 0, len(idx.byAbsolute))
	for _, f := range idx.byAbsolute {
		out = append(out, f)
	}
	return out
}

// caseFoldKey folds paths on case-insensitive filesystems so two addresses
// that differ only in case collide into one identity.
func caseFoldKey(abs string) string {
	if runtime.GOOS == "windows" || runtime.GOOS == "darwin" {
		return strings.ToLower(abs)
	}
	return abs
}

// NormalizeOptions carries the remapping and include-path hints needed to
// resolve a non-absolute or non-existent path.
type NormalizeOptions struct {
	IncludePaths []string
	Remappings   []Remapping
}

func expandUserAndEnv(p string) string {
	p = os.Expand(p, os.Getenv)
	if strings.HasPrefix(p, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			p = filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}

// canonicalize expands home/env references, then resolves the path
// against the working directory, include paths, and remappings in that
// order, taking the first candidate that exists on disk.
func canonicalize(raw, workdir string, opts NormalizeOptions) (string, error) {
	p := expandUserAndEnv(raw)

	if filepath.IsAbs(p) {
		if resolved, err := filepath.EvalSymlinks(p); err == nil {
			return filepath.Clean(resolved), nil
		}
		return filepath.Clean(p), nil
	}

	candidates := make([]string, 0, 2+len(opts.IncludePaths)+len(opts.Remappings))
	candidates = append(candidates, filepath.Join(workdir, p))
	for _, inc := range opts.IncludePaths {
		candidates = append(candidates, filepath.Join(inc, p))
	}
	for _, r := range opts.Remappings {
		if strings.HasPrefix(p, r.Prefix) {
			candidates = append(candidates, filepath.Join(r.Target, strings.TrimPrefix(p, r.Prefix)))
		}
	}

	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			if resolved, err := filepath.EvalSymlinks(c); err == nil {
				return filepath.Clean(resolved), nil
			}
			return filepath.Clean(c), nil
		}
	}

	// Nothing on disk matched; fall back to the syntactic join, existence
	// is not required.
	return filepath.Clean(filepath.Join(workdir, p)), nil
}

func relativeTo(abs, workdir string) string {
	rel, err := filepath.Rel(workdir, abs)
	if err != nil || strings.HasPrefix(rel, "..") {
		return abs
	}
	return rel
}

// shortForm strips, in order, a dependency
// root, the working directory, or the user home; first match wins.
func shortForm(abs, workdir string, opts NormalizeOptions) string {
	slashAbs := filepath.ToSlash(abs)

	for _, root := range dependencyRoots {
		marker := "/" + root + "/"
		if idx := strings.Index(slashAbs, marker); idx >= 0 {
			return slashAbs[idx+len(marker):]
		}
	}

	if rel := relativeTo(abs, workdir); rel != abs {
		return filepath.ToSlash(rel)
	}

	if home, err := os.UserHomeDir(); err == nil {
		slashHome := filepath.ToSlash(home)
		if strings.HasPrefix(slashAbs, slashHome+"/") {
			return strings.TrimPrefix(slashAbs, slashHome+"/")
		}
	}

	return slashAbs
}
