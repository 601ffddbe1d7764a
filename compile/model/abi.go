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
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/archon-sec/archon-compile/accounts/abi"
)

// ParsedABI decodes the contract's raw ABI JSON into a typed abi.ABI for
// callers that want method/event iteration beyond the raw document.
func (c *Contract) ParsedABI() (abi.ABI, error) {
	return abi.JSON(bytes.NewReader(c.ABI))
}

// EnsureMethodIdentifiers fills MethodIdentifiers from the parsed ABI when
// the producing adapter's artifact format carries no "hashes" output
// (Truffle-style per-contract files). Identifiers already present are left
// exactly as the compiler emitted them.
func (c *Contract) EnsureMethodIdentifiers() {
	if len(c.MethodIdentifiers) > 0 || len(c.ABI) == 0 {
		return
	}
	parsed, err := c.ParsedABI()
	if err != nil {
		return
	}
	if len(parsed.Methods) == 0 {
		return
	}
	c.MethodIdentifiers = make(map[string]string, len(parsed.Methods))
	for _, m := range parsed.Methods {
		c.MethodIdentifiers[m.Sig] = hex.EncodeToString(m.ID)
	}
}

// DeploymentBytecode assembles the full creation data for deploying this
// contract: the (optionally linked) creation bytecode followed by the
// ABI-encoded constructor arguments. libs may be nil for contracts with no
// library references.
func (c *Contract) DeploymentBytecode(libs LibraryMap, args ...interface{}) (string, error) {
	code := c.BytecodeInit
	if len(libs) > 0 {
		linked, err := LinkBytecode(code, libs)
		if err != nil {
			return "", err
		}
		code = linked
	}
	encoded, err := c.EncodeConstructorArgs(args...)
	if err != nil {
		return "", err
	}
	return code + encoded, nil
}

// EncodeConstructorArgs ABI-encodes args against the contract's
// constructor signature, returning the hex block a deployer appends to the
// creation bytecode.
func (c *Contract) EncodeConstructorArgs(args ...interface{}) (string, error) {
	if len(args) == 0 {
		return "", nil
	}
	parsed, err := c.ParsedABI()
	if err != nil {
		return "", err
	}
	packed, err := parsed.Pack("", args...)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(packed), nil
}

// DecodeConstructorArgs recovers the constructor arguments from on-chain
// creation data: everything after the contract's creation bytecode is the
// ABI-encoded argument block. Used when reconciling a fetched contract
// against its verified source.
func (c *Contract) DecodeConstructorArgs(creationData string) ([]interface{}, error) {
	parsed, err := c.ParsedABI()
	if err != nil {
		return nil, err
	}
	tail := strings.TrimPrefix(creationData, "0x")
	if len(tail) < len(c.BytecodeInit) {
		return nil, fmt.Errorf("creation data shorter than creation bytecode")
	}
	tail = tail[len(c.BytecodeInit):]
	raw, err := hex.DecodeString(tail)
	if err != nil {
		return nil, fmt.Errorf("constructor argument block is not hex: %w", err)
	}
	return parsed.Constructor.Inputs.UnpackValues(raw)
}
