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

	"github.com/google/uuid"
)

// CompilerDescriptor records the invocation settings a CompilationUnit was
// built with.
type CompilerDescriptor struct {
	Name         string // "solc" or "vyper"
	Version      string
	Optimize     bool
	OptimizeRuns int
	EVMVersion   string
	ViaIR        bool
	Remappings   []Remapping
	IncludePaths []string
}

// CompilationUnit is one compiler invocation's worth of output.
// Once a platform adapter returns it to the orchestrator it is read-only;
// the only in-place mutation permitted afterward is library linking's
// cache, which never touches the stored bytecode templates.
type CompilationUnit struct {
	ID       string
	Compiler CompilerDescriptor

	mu          sync.Mutex
	order       []string // absolute paths, in compiler emission order
	sources     map[string]*SourceUnit
	links       *linkCache
}

// NewCompilationUnit creates an empty unit with a fresh random (UUID)
// identifier; adapters that want a stable, reproducible ID (e.g. one
// derived from the framework's own build-info hash) may overwrite ID
// before returning the unit to the orchestrator.
func NewCompilationUnit(compiler CompilerDescriptor) *CompilationUnit {
	return &CompilationUnit{
		ID:       uuid.NewString(),
		Compiler: compiler,
		sources:  make(map[string]*SourceUnit),
		links:    newLinkCache(),
	}
}

// AddSourceUnit installs su, keyed by its Filename's absolute path,
// preserving the order in which it was added, which is the order the
// compiler emitted it.
func (u *CompilationUnit) AddSourceUnit(su *SourceUnit) {
	u.mu.Lock()
	defer u.mu.Unlock()
	abs := su.File.Absolute()
	if _, exists := u.sources[abs]; !exists {
		u.order = append(u.order, abs)
	}
	u.sources[abs] = su
}

// setSourceUnit swaps the stored SourceUnit for abs, used by the project's
// monorepo merge to point several units at one shared instance.
func (u *CompilationUnit) setSourceUnit(abs string, su *SourceUnit) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if _, exists := u.sources[abs]; !exists {
		u.order = append(u.order, abs)
	}
	u.sources[abs] = su
}

// SourceUnit returns the SourceUnit for the given absolute file path.
func (u *CompilationUnit) SourceUnit(absolutePath string) (*SourceUnit, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	su, ok := u.sources[absolutePath]
	return su, ok
}

// SourceUnits returns every SourceUnit in compiler emission order.
func (u *CompilationUnit) SourceUnits() []*SourceUnit {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := make([]*SourceUnit, 0, len(u.order))
	for _, abs := range u.order {
		out = append(out, u.sources[abs])
	}
	return out
}

// SourceUnitsSorted returns every SourceUnit sorted by Filename.Absolute,
// the ordering the canonical export format uses to stay byte-stable.
func (u *CompilationUnit) SourceUnitsSorted() []*SourceUnit {
	units := u.SourceUnits()
	sort.Slice(units, func(i, j int) bool {
		return units[i].File.Absolute() < units[j].File.Absolute()
	})
	return units
}

// Contract looks up a contract by (absolute file path, contract name)
// across every SourceUnit in the unit.
func (u *CompilationUnit) Contract(absolutePath, name string) (*Contract, bool) {
	su, ok := u.SourceUnit(absolutePath)
	if !ok {
		return nil, false
	}
	c, ok := su.Contracts[name]
	return c, ok
}

// LinkContract resolves library placeholders in a contract's bytecode
// template using the unit's per-fingerprint cache.
func (u *CompilationUnit) LinkContract(template string, libs LibraryMap) (string, error) {
	return u.links.linkCached(template, libs)
}
