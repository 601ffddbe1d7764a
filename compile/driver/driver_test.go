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

package driver

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSniffPragma(t *testing.T) {
	tests := []struct {
		source string
		want   string
	}{
		{"pragma solidity ^0.7.0;\ncontract C {}", "^0.7.0"},
		{"// SPDX-License-Identifier: MIT\npragma solidity >=0.6.0 <0.9.0;", ">=0.6.0 <0.9.0"},
		{"pragma solidity 0.8.19;", "0.8.19"},
		{"contract NoPragma {}", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sniffPragma(tt.source), "source: %q", tt.source)
	}
}

func TestParseVersionOutput(t *testing.T) {
	solc := []byte("solc, the solidity compiler commandline interface\nVersion: 0.8.19+commit.7dd6d404.Linux.g++\n")
	assert.Equal(t, "0.8.19+commit.7dd6d404.Linux.g++", parseVersionOutput(solc))

	vyper := []byte("0.3.10+commit.91361694\n")
	assert.Equal(t, "0.3.10+commit.91361694", parseVersionOutput(vyper))
}

func TestDefaultBinaryName(t *testing.T) {
	assert.Equal(t, "vyper", DefaultBinaryName("token.vy"))
	assert.Equal(t, "solc", DefaultBinaryName("Token.sol"))
	assert.Equal(t, "solc", DefaultBinaryName("noext"))
}

func TestClassifyDiagnostics(t *testing.T) {
	out := &StandardJSONOutput{Errors: []StandardDiagnostic{
		{Severity: "warning", Message: "unused variable"},
		{Severity: "error", Message: "undeclared identifier"},
		{Severity: "warning", Message: "shadowed declaration"},
	}}
	fatal, warnings := ClassifyDiagnostics(out)
	require.Len(t, fatal, 1)
	assert.Equal(t, "undeclared identifier", fatal[0].Message)
	assert.Len(t, warnings, 2)
}

func TestDefaultOutputSelectionCoversModelNeeds(t *testing.T) {
	sel := DefaultOutputSelection()
	perContract := sel["*"]["*"]
	for _, want := range []string{
		"abi", "evm.bytecode.object", "evm.bytecode.sourceMap",
		"evm.deployedBytecode.object", "evm.deployedBytecode.sourceMap",
		"evm.methodIdentifiers", "userdoc", "devdoc",
	} {
		assert.Contains(t, perContract, want)
	}
	assert.Contains(t, sel["*"][""], "ast")
}

func TestSplitContractKey(t *testing.T) {
	path, name := SplitContractKey("contracts/Token.sol:Token")
	assert.Equal(t, "contracts/Token.sol", path)
	assert.Equal(t, "Token", name)

	// Windows drive letters keep the last colon as the separator.
	path, name = SplitContractKey(`C:\work\Token.sol:Token`)
	assert.Equal(t, `C:\work\Token.sol`, path)
	assert.Equal(t, "Token", name)

	path, name = SplitContractKey("nokey")
	assert.Equal(t, "nokey", path)
	assert.Equal(t, "", name)
}

func TestDecodeContractsLegacyStringEncoded(t *testing.T) {
	// Legacy solc encodes abi/userdoc/devdoc as JSON strings containing
	// JSON.
	raw := `{
		"contracts": {
			"Token.sol:Token": {
				"abi": "[{\"type\":\"function\",\"name\":\"f\",\"inputs\":[]}]",
				"bin": "6080",
				"bin-runtime": "6040",
				"srcmap": "0:10:0:-",
				"srcmap-runtime": "0:5:0:-",
				"userdoc": "{\"methods\":{}}",
				"devdoc": "{\"methods\":{}}",
				"hashes": {"f()": "26121ff0"}
			}
		},
		"version": "0.4.26"
	}`
	var out CombinedJSONOutput
	require.NoError(t, json.Unmarshal([]byte(raw), &out))

	contracts, err := DecodeContracts(&out)
	require.NoError(t, err)
	c, ok := contracts["Token.sol:Token"]
	require.True(t, ok)
	assert.Equal(t, "0x6080", c.Code)
	assert.Equal(t, "0x6040", c.RuntimeCode)
	assert.Equal(t, "0:10:0:-", c.Info.SrcMap)
	assert.Equal(t, map[string]string{"f()": "26121ff0"}, c.Hashes)

	abi, ok := c.Info.AbiDefinition.([]interface{})
	require.True(t, ok, "legacy string-encoded abi decodes to the nested value")
	assert.Len(t, abi, 1)
}

func TestDecodeContractsModernNestedJSON(t *testing.T) {
	raw := `{
		"contracts": {
			"A.sol:A": {
				"abi": [{"type":"function","name":"g","inputs":[]}],
				"bin": "00",
				"bin-runtime": "00",
				"srcmap": "",
				"srcmap-runtime": "",
				"userdoc": {"methods": {}},
				"devdoc": {"methods": {}},
				"hashes": {}
			}
		}
	}`
	var out CombinedJSONOutput
	require.NoError(t, json.Unmarshal([]byte(raw), &out))

	contracts, err := DecodeContracts(&out)
	require.NoError(t, err)
	c := contracts["A.sol:A"]
	require.NotNil(t, c)
	abi, ok := c.Info.AbiDefinition.([]interface{})
	require.True(t, ok)
	assert.Len(t, abi, 1)
}
