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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFoldNatSpecMergesUserAndDev(t *testing.T) {
	user := json.RawMessage(`{
		"methods": {
			"transfer(address,uint256)": {"notice": "Moves tokens to the recipient"}
		},
		"notice": "A simple token"
	}`)
	dev := json.RawMessage(`{
		"methods": {
			"transfer(address,uint256)": {
				"details": "Reverts on insufficient balance",
				"params": {"to": "recipient", "amount": "wei to move"}
			}
		}
	}`)

	ns := FoldNatSpec(user, dev)

	// Keccak256("transfer(address,uint256)")[:4]
	entry, ok := ns["a9059cbb"]
	require.True(t, ok)
	assert.Equal(t, "transfer(address,uint256)", entry.Signature)
	assert.Equal(t, "a9059cbb", entry.Selector)
	assert.Equal(t, "Moves tokens to the recipient", entry.UserNotice)
	assert.Equal(t, "Reverts on insufficient balance", entry.DevDetails)
	assert.JSONEq(t, `{"to": "recipient", "amount": "wei to move"}`, string(entry.DevParams))

	sentinel, ok := ns[NatSpecSentinelKey]
	require.True(t, ok)
	assert.Equal(t, "A simple token", sentinel.UserNotice)
}

func TestFoldNatSpecMissingDocuments(t *testing.T) {
	assert.Empty(t, FoldNatSpec(nil, nil))

	onlyDev := FoldNatSpec(nil, json.RawMessage(`{"methods": {"burn(uint256)": {"details": "d"}}}`))
	require.Len(t, onlyDev, 1)
	for _, entry := range onlyDev {
		assert.Equal(t, "burn(uint256)", entry.Signature)
		assert.Equal(t, "d", entry.DevDetails)
		assert.Empty(t, entry.UserNotice)
	}
}

func TestFoldNatSpecRetainsUnknownKeys(t *testing.T) {
	dev := json.RawMessage(`{
		"methods": {
			"pause()": {"details": "stops transfers", "custom:security": "audited"}
		}
	}`)

	ns := FoldNatSpec(nil, dev)
	require.Len(t, ns, 1)
	for _, entry := range ns {
		require.Contains(t, entry.Extra, "custom:security")
		assert.JSONEq(t, `"audited"`, string(entry.Extra["custom:security"]))
	}
}

func TestContractNatSpecCached(t *testing.T) {
	c := &Contract{
		Name:    "Token",
		UserDoc: json.RawMessage(`{"methods": {"f()": {"notice": "n"}}}`),
	}
	first := c.NatSpec()
	// Lazy fold runs once; a mutation through the first handle is visible
	// through the second because both are the same cached map.
	first["sentinel-probe"] = &NatSpecEntry{}
	second := c.NatSpec()
	assert.Contains(t, second, "sentinel-probe")
}

func TestSelectorHex(t *testing.T) {
	assert.Equal(t, "a9059cbb", selectorHex("transfer(address,uint256)"))
	assert.Equal(t, "70a08231", selectorHex("balanceOf(address)"))
}
