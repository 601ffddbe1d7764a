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

// ContractRef identifies a contract within a CompilationUnit.
type ContractRef struct {
	File     string // absolute path
	Contract string
}

// DependencyGraph is the cross-file dependency graph of contracts within a
// CompilationUnit, used to derive a topological order for
// library linking: a library must be linked before anything that depends on
// it, and libraries that themselves depend on other libraries must be
// linked innermost-first.
type DependencyGraph struct {
	edges map[ContractRef][]ContractRef
}

// BuildDependencyGraph walks every contract's Libraries and
// ContractDependencies fields and assembles the graph.
func BuildDependencyGraph(u *CompilationUnit) *DependencyGraph {
	g := &DependencyGraph{edges: make(map[ContractRef][]ContractRef)}
	for _, su := range u.SourceUnits() {
		for name, c := range su.Contracts {
			ref := ContractRef{File: su.File.Absolute(), Contract: name}
			for _, depName := range c.ContractDependencies {
				g.edges[ref] = append(g.edges[ref], findContractRef(u, depName))
			}
			for _, libName := range c.Libraries {
				g.edges[ref] = append(g.edges[ref], findContractRef(u, libName))
			}
		}
	}
	return g
}

func findContractRef(u *CompilationUnit, name string) ContractRef {
	for _, su := range u.SourceUnits() {
		if _, ok := su.Contracts[name]; ok {
			return ContractRef{File: su.File.Absolute(), Contract: name}
		}
	}
	return ContractRef{Contract: name}
}

// TopologicalLinkOrder returns the contracts in g in an order where every
// contract appears after everything it depends on, so library link
// addresses can be threaded innermost-out. Cycles, legal between
// non-library contracts, are broken by visiting order; a contract already on the current
// path is skipped rather than recursed into again.
func (g *DependencyGraph) TopologicalLinkOrder() []ContractRef {
	visited := make(map[ContractRef]bool)
	onPath := make(map[ContractRef]bool)
	var order []ContractRef

	refs := make([]ContractRef, 0, len(g.edges))
	for ref := range g.edges {
		refs = append(refs, ref)
	}

	var visit func(ref ContractRef)
	visit = func(ref ContractRef) {
		if visited[ref] || onPath[ref] {
			return
		}
		onPath[ref] = true
		for _, dep := range g.edges[ref] {
			visit(dep)
		}
		onPath[ref] = false
		visited[ref] = true
		order = append(order, ref)
	}

	for _, ref := range refs {
		visit(ref)
	}
	return order
}
