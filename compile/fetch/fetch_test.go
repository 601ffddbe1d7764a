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

package fetch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/archon-sec/archon-compile/compile/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const daiAddress = "0x6B175474E89094C44Da98b954EedeAC495271d0F"

func TestParseTarget(t *testing.T) {
	tests := []struct {
		in          string
		chain       string
		sourcifyTag string
		service     Service
	}{
		{daiAddress, "", "", ServiceEtherscan},
		{"mainnet:" + daiAddress, "mainnet", "", ServiceEtherscan},
		{"sourcify-1:" + daiAddress, "", "sourcify-1", ServiceSourcify},
		{"sourcify-0x89:" + daiAddress, "", "sourcify-0x89", ServiceSourcify},
	}
	for _, tt := range tests {
		p, err := ParseTarget(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.chain, p.ChainPrefix, tt.in)
		assert.Equal(t, tt.sourcifyTag, p.SourcifyTag, tt.in)
		assert.Equal(t, "0x6b175474e89094c44da98b954eedeac495271d0f", p.Address, tt.in)
		assert.Equal(t, tt.service, p.Resolve(), tt.in)
	}
}

func TestNormalizeCompilerVersion(t *testing.T) {
	assert.Equal(t, "0.5.12", normalizeCompilerVersion("v0.5.12+commit.7709ece9"))
	assert.Equal(t, "0.8.20", normalizeCompilerVersion("0.8.20"))
	assert.Equal(t, "", normalizeCompilerVersion(""))
}

func TestParseTargetRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "0x1234", "not-an-address", "mainnet:"} {
		_, err := ParseTarget(in)
		assert.Error(t, err, in)
	}
}

func TestChainID(t *testing.T) {
	assert.Equal(t, "1", chainID("sourcify-1"))
	assert.Equal(t, "137", chainID("sourcify-0x89"))
	assert.Equal(t, "", chainID(""))
}

func TestMaterializeAndIdempotence(t *testing.T) {
	exportDir := t.TempDir()
	f := NewFetcher(exportDir, "")

	resolved := &ResolvedSource{
		ContractName: "Dai",
		Files: map[string]string{
			"Dai.sol":           "contract Dai {}",
			"lib/SafeMath.sol":  "library SafeMath {}",
		},
		Settings: &MaterializedSettings{SolcVersion: "0.5.12", OptimizerEnabled: true, OptimizerRuns: 200},
	}

	dir := f.materializedDir(ServiceEtherscan, "", "0x6b175474e89094c44da98b954eedeac495271d0f", "Dai")
	assert.Equal(t, filepath.Join(exportDir, "etherscan-contracts", "mainet-0x6b175474e89094c44da98b954eedeac495271d0f-Dai"), dir)

	require.NoError(t, materialize(dir, resolved))
	assert.FileExists(t, filepath.Join(dir, "Dai.sol"))
	assert.FileExists(t, filepath.Join(dir, "lib", "SafeMath.sol"))
	assert.FileExists(t, filepath.Join(dir, configFileName))

	// A second Fetch for the same address short-circuits on the existing
	// config file without touching the network (nil backends would panic
	// if consulted).
	f2 := &Fetcher{ExportDir: exportDir}
	f2.Etherscan = NewEtherscanBackend() // never reached
	got, err := f2.Fetch(context.Background(), daiAddress)
	require.NoError(t, err)
	assert.Equal(t, dir, got)
}

func TestFetchInvalidTarget(t *testing.T) {
	f := NewFetcher(t.TempDir(), "")
	_, err := f.Fetch(context.Background(), "not-an-address")
	require.Error(t, err)
	assert.True(t, model.IsCode(err, model.ErrInvalidTarget))
}

func TestEtherscanResolveSingleFile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "contract", r.URL.Query().Get("module"))
		assert.Equal(t, "getsourcecode", r.URL.Query().Get("action"))
		w.Write([]byte(`{
			"status": "1",
			"result": [{
				"SourceCode": "contract Dai {}",
				"ContractName": "Dai",
				"CompilerVersion": "v0.5.12+commit.7709ece9",
				"OptimizationUsed": "1",
				"Runs": "200",
				"EVMVersion": "Default"
			}]
		}`))
	}))
	defer server.Close()

	b := &etherscanBackend{BaseURL: server.URL, Client: server.Client()}
	resolved, err := b.Resolve(context.Background(), ParsedTarget{Address: "0x6b175474e89094c44da98b954eedeac495271d0f"}, "key")
	require.NoError(t, err)

	assert.Equal(t, "Dai", resolved.ContractName)
	assert.Equal(t, map[string]string{"Dai.sol": "contract Dai {}"}, resolved.Files)
	require.NotNil(t, resolved.Settings)
	assert.Equal(t, "0.5.12", resolved.Settings.SolcVersion)
	assert.True(t, resolved.Settings.OptimizerEnabled)
	assert.Equal(t, 200, resolved.Settings.OptimizerRuns)
}

func TestEtherscanResolveStandardJSONViaIR(t *testing.T) {
	// Etherscan double-wraps standard-JSON input in an extra brace pair.
	sourceCode := `{{"language": "Solidity", "sources": {"src/Vault.sol": {"content": "contract Vault {}"}, "lib/Auth.sol": {"content": "contract Auth {}"}}, "settings": {"viaIR": true}}}`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]interface{}{
			"status": "1",
			"result": []map[string]interface{}{{
				"SourceCode":   sourceCode,
				"ContractName": "Vault",
				"CompilerVersion": "v0.8.20+commit.a1b79de6",
			}},
		}
		writeJSON(t, w, resp)
	}))
	defer server.Close()

	b := &etherscanBackend{BaseURL: server.URL, Client: server.Client()}
	resolved, err := b.Resolve(context.Background(), ParsedTarget{Address: "0xabcdefabcdefabcdefabcdefabcdefabcdefabcd"}, "")
	require.NoError(t, err)

	assert.Equal(t, "Vault", resolved.ContractName)
	assert.Equal(t, "contract Vault {}", resolved.Files["src/Vault.sol"])
	assert.Equal(t, "contract Auth {}", resolved.Files["lib/Auth.sol"])
	assert.True(t, resolved.Settings.ViaIR)
}

func TestEtherscanResolveUnverified(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "1", "result": [{"SourceCode": "", "ContractName": ""}]}`))
	}))
	defer server.Close()

	b := &etherscanBackend{BaseURL: server.URL, Client: server.Client()}
	_, err := b.Resolve(context.Background(), ParsedTarget{Address: "0xabcdefabcdefabcdefabcdefabcdefabcdefabcd"}, "")
	var nv *NotVerifiedError
	require.ErrorAs(t, err, &nv)
}

func TestEtherscanResolveRateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	b := &etherscanBackend{BaseURL: server.URL, Client: server.Client()}
	_, err := b.Resolve(context.Background(), ParsedTarget{Address: "0xabcdefabcdefabcdefabcdefabcdefabcdefabcd"}, "")
	var rl *RateLimitedError
	require.ErrorAs(t, err, &rl)
}

func TestSourcifyResolveMultiFile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/files/any/137/")
		w.Write([]byte(`{
			"status": "full",
			"files": [
				{"name": "metadata.json", "content": "{\"settings\": {\"compilationTarget\": {\"contracts/Pool.sol\": \"Pool\"}}}"},
				{"name": "contracts/Pool.sol", "content": "contract Pool {}"}
			]
		}`))
	}))
	defer server.Close()

	b := &sourcifyBackend{BaseURL: server.URL, Client: server.Client()}
	resolved, err := b.Resolve(context.Background(), ParsedTarget{
		SourcifyTag: "sourcify-0x89",
		Address:     "0xabcdefabcdefabcdefabcdefabcdefabcdefabcd",
	}, "")
	require.NoError(t, err)

	assert.Equal(t, "Pool", resolved.ContractName)
	assert.Equal(t, map[string]string{"contracts/Pool.sol": "contract Pool {}"}, resolved.Files)
}

func TestSourcifyResolveNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	b := &sourcifyBackend{BaseURL: server.URL, Client: server.Client()}
	_, err := b.Resolve(context.Background(), ParsedTarget{
		SourcifyTag: "sourcify-1",
		Address:     "0xabcdefabcdefabcdefabcdefabcdefabcdefabcd",
	}, "")
	var nv *NotVerifiedError
	require.ErrorAs(t, err, &nv)
}

func TestFetchNotVerifiedIsFatal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	f := NewFetcher(t.TempDir(), "")
	f.Etherscan = &etherscanBackend{BaseURL: server.URL, Client: server.Client()}

	_, err := f.Fetch(context.Background(), daiAddress)
	require.Error(t, err)
	assert.True(t, model.IsCode(err, model.ErrSourceNotVerified))
}

func writeJSON(t *testing.T, w http.ResponseWriter, v interface{}) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}
