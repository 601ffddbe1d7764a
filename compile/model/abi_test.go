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
	"math/big"
	"strings"
	"testing"

	"github.com/archon-sec/archon-compile/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const erc20TransferABI = `[
	{"type": "function", "name": "transfer", "stateMutability": "nonpayable",
	 "inputs": [{"name": "to", "type": "address"}, {"name": "amount", "type": "uint256"}],
	 "outputs": [{"name": "", "type": "bool"}]},
	{"type": "function", "name": "balanceOf", "stateMutability": "view",
	 "inputs": [{"name": "owner", "type": "address"}],
	 "outputs": [{"name": "", "type": "uint256"}]}
]`

func TestEnsureMethodIdentifiersFromABI(t *testing.T) {
	c := &Contract{Name: "Token", ABI: json.RawMessage(erc20TransferABI)}
	c.EnsureMethodIdentifiers()

	assert.Equal(t, "a9059cbb", c.MethodIdentifiers["transfer(address,uint256)"])
	assert.Equal(t, "70a08231", c.MethodIdentifiers["balanceOf(address)"])
}

func TestEnsureMethodIdentifiersKeepsCompilerOutput(t *testing.T) {
	emitted := map[string]string{"transfer(address,uint256)": "a9059cbb"}
	c := &Contract{Name: "Token", ABI: json.RawMessage(erc20TransferABI), MethodIdentifiers: emitted}
	c.EnsureMethodIdentifiers()
	assert.Equal(t, emitted, c.MethodIdentifiers)
}

func TestParsedABI(t *testing.T) {
	c := &Contract{Name: "Token", ABI: json.RawMessage(erc20TransferABI)}
	parsed, err := c.ParsedABI()
	require.NoError(t, err)
	require.Contains(t, parsed.Methods, "transfer")
	assert.Equal(t, "transfer(address,uint256)", parsed.Methods["transfer"].Sig)
}

const constructorABI = `[
	{"type": "constructor", "stateMutability": "nonpayable",
	 "inputs": [{"name": "owner", "type": "address"}, {"name": "cap", "type": "uint256"}]}
]`

func TestConstructorArgsRoundTrip(t *testing.T) {
	c := &Contract{
		Name:         "Vault",
		ABI:          json.RawMessage(constructorABI),
		BytecodeInit: "60806040526004361061001e",
	}
	owner := common.HexToAddress("0x1111111111111111111111111111111111111111")
	maxSupply := big.NewInt(1_000_000)

	encoded, err := c.EncodeConstructorArgs(owner, maxSupply)
	require.NoError(t, err)
	// Two static arguments pack to two 32-byte words.
	assert.Len(t, encoded, 128)

	values, err := c.DecodeConstructorArgs(c.BytecodeInit + encoded)
	require.NoError(t, err)
	require.Len(t, values, 2)
	assert.Equal(t, owner, values[0])
	assert.Equal(t, 0, maxSupply.Cmp(values[1].(*big.Int)))
}

func TestDeploymentBytecodeLinksAndAppendsArgs(t *testing.T) {
	template := "6080" + placeholder("MathLib") + "6040"
	c := &Contract{
		Name:         "Vault",
		ABI:          json.RawMessage(constructorABI),
		BytecodeInit: template,
		Libraries:    []string{"MathLib"},
	}
	owner := common.HexToAddress("0x2222222222222222222222222222222222222222")

	data, err := c.DeploymentBytecode(LibraryMap{"MathLib": mathLibAddr}, owner, big.NewInt(7))
	require.NoError(t, err)
	assert.NotContains(t, data, "__")
	assert.Contains(t, data, strings.TrimPrefix(mathLibAddr, "0x"))

	// The argument block decodes back off the linked creation data.
	linked, err := LinkBytecode(template, LibraryMap{"MathLib": mathLibAddr})
	require.NoError(t, err)
	tail := strings.TrimPrefix(data, linked)
	assert.Len(t, tail, 128)
}

func TestDecodeConstructorArgsTooShort(t *testing.T) {
	c := &Contract{Name: "V", ABI: json.RawMessage(constructorABI), BytecodeInit: "60806040"}
	_, err := c.DecodeConstructorArgs("0x6080")
	assert.Error(t, err)
}
