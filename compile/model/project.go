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
	"sort"
	"sync"

	"github.com/archon-sec/archon-compile/log"
)

// Project is the root of the canonical model. It is created by
// the Orchestrator and lives for the duration of one compile/export call;
// CompilationUnits are added by platform adapters and treated as read-only
// once an adapter returns.
type Project struct {
	WorkingDir string
	Target     string // the target specifier as given by the caller
	Platform   string // the platform adapter that produced this project's units

	Logger log.Logger

	identity *identityIndex

	mu       sync.RWMutex
	units    map[string]*CompilationUnit
	order    []string
	bySource map[string]*SourceUnit // canonical SourceUnit per absolute path, across units
}

// NewProject creates an empty Project rooted at workingDir.
func NewProject(workingDir, target string) *Project {
	return &Project{
		WorkingDir: workingDir,
		Target:     target,
		Logger:     log.Root(),
		identity:   newIdentityIndex(),
		units:      make(map[string]*CompilationUnit),
		bySource:   make(map[string]*SourceUnit),
	}
}

// ResolveFilename installs or fetches the Filename identity for raw as seen
// by the compiler under the string `used`. Adapters must call this for
// every file path they introduce rather than storing raw strings as
// identities.
func (p *Project) ResolveFilename(raw, used string, opts NormalizeOptions) (*Filename, error) {
	return p.identity.resolve(raw, p.WorkingDir, used, opts)
}

// FilenameByAbsolute looks up an already-installed identity by its
// absolute facet.
func (p *Project) FilenameByAbsolute(abs string) (*Filename, bool) {
	return p.identity.byAbsolutePath(abs)
}

// FilenameByUsed looks up an already-installed identity by a `used` alias.
func (p *Project) FilenameByUsed(used string) (*Filename, bool) {
	return p.identity.byUsedString(used)
}

// Filenames returns every file identity known to the project.
func (p *Project) Filenames() []*Filename {
	return p.identity.all()
}

// AddUnit installs a CompilationUnit, merging cross-unit collisions on
// Filename.Absolute into a single shared SourceUnit and raising
// contract_ambiguous when two units disagree on a contract's ABI for the
// same file. Units keep their own synthetic IDs; the merge decision is
// keyed on the file identity, since independently-compiled monorepo
// sub-roots never collide on an ID.
func (p *Project) AddUnit(u *CompilationUnit) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if existing, ok := p.units[u.ID]; ok && existing == u {
		return nil
	}

	// Canonicalize every incoming SourceUnit against files earlier units
	// already compiled: the first SourceUnit seen for an absolute path
	// stays the single instance, later units fold their contracts into it
	// and share it.
	for _, su := range u.SourceUnits() {
		abs := su.File.Absolute()
		canonical, ok := p.bySource[abs]
		if !ok {
			p.bySource[abs] = su
			continue
		}
		if canonical == su {
			continue
		}
		if err := mergeSourceUnits(canonical, su); err != nil {
			return err
		}
		u.setSourceUnit(abs, canonical)
	}

	if existing, ok := p.units[u.ID]; ok {
		// A content-hash ID scheme can collide legitimately on identical
		// input; fold the newcomer's files into the stored unit.
		return mergeUnits(existing, u)
	}

	p.units[u.ID] = u
	p.order = append(p.order, u.ID)
	return nil
}

// mergeSourceUnits folds src's contracts into dst, which both describe the
// same file. A contract present on both sides must agree on its ABI.
func mergeSourceUnits(dst, src *SourceUnit) error {
	for name, c := range src.Contracts {
		existing, ok := dst.Contracts[name]
		if !ok {
			dst.Contracts[name] = c
			continue
		}
		if string(existing.ABI) != string(c.ABI) {
			return newError(ErrContractAmbiguous, "", dst.File.Absolute(), 0,
				errContractAmbiguous(name))
		}
	}
	if len(dst.AST) == 0 {
		dst.AST = src.AST
	}
	return nil
}

// mergeUnits folds b's source units into a. Contract-level conflicts were
// already resolved by the canonical-SourceUnit pass in AddUnit, so only
// files a has never seen need installing.
func mergeUnits(a, b *CompilationUnit) error {
	for _, su := range b.SourceUnits() {
		if _, ok := a.SourceUnit(su.File.Absolute()); !ok {
			a.AddSourceUnit(su)
		}
	}
	return nil
}

// Unit returns the CompilationUnit with the given ID.
func (p *Project) Unit(id string) (*CompilationUnit, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	u, ok := p.units[id]
	return u, ok
}

// Units returns every CompilationUnit ordered by unit ID, so a parallel
// build's results come back in a stable order regardless of arrival.
func (p *Project) Units() []*CompilationUnit {
	p.mu.RLock()
	defer p.mu.RUnlock()
	ids := make([]string, 0, len(p.units))
	for id := range p.units {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]*CompilationUnit, 0, len(ids))
	for _, id := range ids {
		out = append(out, p.units[id])
	}
	return out
}
