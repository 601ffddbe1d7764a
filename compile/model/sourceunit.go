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

import "encoding/json"

// ContractKind classifies a contract declaration the way solc's AST does.
type ContractKind string

const (
	KindContract   ContractKind = "contract"
	KindLibrary    ContractKind = "library"
	KindInterface  ContractKind = "interface"
	KindAbstract   ContractKind = "abstract"
)

// Contract is one contract's compiled output within a SourceUnit.
// Every field is populated by the platform adapter that produced it, then
// treated as read-only.
type Contract struct {
	Name string
	Kind ContractKind

	ABI json.RawMessage

	// Bytecode templates, before library linking. Always present for
	// every contract that has ABI output (may be
	// the empty string for interfaces/abstract contracts).
	BytecodeInit    string
	BytecodeRuntime string

	SrcMapInit    string
	SrcMapRuntime string

	UserDoc json.RawMessage
	DevDoc  json.RawMessage
	natspec NatSpec // lazily folded by NatSpec()

	// Libraries this contract's bytecode references by placeholder.
	Libraries []string
	// ContractDependencies lists other contracts directly depended on
	// (construction, inheritance). Ordering is not stable across
	// platforms; callers that compare it
	// should sort first.
	ContractDependencies []string

	// CompilerID is the numeric identifier solc assigns this contract,
	// used to resolve the 'f' (file index) field of source maps that
	// reference other files' contracts.
	CompilerID int

	// MethodIdentifiers maps "name(types)" to its 4-byte selector hex, as
	// emitted directly by solc's "hashes" output.
	MethodIdentifiers map[string]string

	// RuntimeMetadata is the decoded CBOR trailer of BytecodeRuntime, and
	// BytecodeRuntimeStripped is BytecodeRuntime with the trailer removed
	// Populated by the orchestrator's post-processing step,
	// not by the adapter.
	RuntimeMetadata         Metadata
	BytecodeRuntimeStripped string
}

// NatSpec lazily folds UserDoc/DevDoc into a selector-indexed record and
// caches the result.
func (c *Contract) NatSpec() NatSpec {
	if c.natspec == nil {
		c.natspec = FoldNatSpec(c.UserDoc, c.DevDoc)
	}
	return c.natspec
}

// RequiredLibraries reports which of c.Libraries still have an unresolved
// placeholder in the given bytecode (init, runtime, or both, depending on
// which the caller passes).
func (c *Contract) RequiredLibraries(bytecodeTemplate string) []string {
	return RequiredLibraries(bytecodeTemplate, c.Libraries)
}

// SourceUnit is one source file's slice of a CompilationUnit.
type SourceUnit struct {
	File *Filename
	AST  json.RawMessage

	// Contracts is keyed by contract name. Two contracts of different
	// name can legally live in one file; a SourceUnit never contains two
	// entries for the same name (collisions are resolved by the adapter
	// before installation, or are a contract_ambiguous error at the
	// orchestrator level for cross-unit collisions).
	Contracts map[string]*Contract
}

func newSourceUnit(file *Filename) *SourceUnit {
	return &SourceUnit{File: file, Contracts: make(map[string]*Contract)}
}
