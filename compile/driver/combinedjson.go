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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"github.com/archon-sec/archon-compile/common/compiler"
)

// combinedJSONFields is the fixed argument to --combined-json, covering
// every output the canonical model consumes.
const combinedJSONFields = "abi,bin,bin-runtime,srcmap,srcmap-runtime,userdoc,devdoc,hashes,ast"

// CombinedJSONOutput is solc's --combined-json document. Each key under
// Contracts is "path:ContractName"; several fields (abi, userdoc, devdoc)
// are themselves JSON-encoded as strings by legacy solc versions, so they
// are decoded a second time by DecodeContracts.
type CombinedJSONOutput struct {
	Contracts  map[string]json.RawMessage `json:"contracts"`
	SourceList []string                   `json:"sourceList,omitempty"`
	Sources    map[string]struct {
		AST json.RawMessage `json:"AST"`
	} `json:"sources,omitempty"`
	Version string `json:"version,omitempty"`
}

// rawCombinedContract matches the per-contract object under Contracts;
// string-typed fields may contain nested JSON (legacy) or already be the
// decoded form (newer solc), handled by decodeMaybeString.
type rawCombinedContract struct {
	ABI         json.RawMessage `json:"abi"`
	Bin         string          `json:"bin"`
	BinRuntime  string          `json:"bin-runtime"`
	SrcMap      string          `json:"srcmap"`
	SrcMapRuntime string        `json:"srcmap-runtime"`
	UserDoc     json.RawMessage `json:"userdoc"`
	DevDoc      json.RawMessage `json:"devdoc"`
	Hashes      map[string]string `json:"hashes"`
}

// RunCombinedJSON invokes the compiler in legacy --combined-json mode,
// used for legacy flows and for platforms whose own invocation wraps this
// format.
func RunCombinedJSON(ctx context.Context, binaryPath string, sourcePaths []string, extraArgs []string) (*CombinedJSONOutput, error) {
	args := append([]string{"--combined-json", combinedJSONFields}, extraArgs...)
	args = append(args, sourcePaths...)

	cmd := exec.CommandContext(ctx, binaryPath, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	var output CombinedJSONOutput
	if jsonErr := json.Unmarshal(stdout.Bytes(), &output); jsonErr != nil {
		if runErr != nil {
			return nil, &CrashError{ExitErr: runErr, Stderr: stderr.String()}
		}
		return nil, fmt.Errorf("parsing combined-json output: %w", jsonErr)
	}
	return &output, nil
}

// DecodeContracts resolves every "path:Name" entry into the
// compiler.Contract/compiler.ContractInfo record (common/compiler), the
// module's legacy combined-JSON row shape.
func DecodeContracts(out *CombinedJSONOutput) (map[string]*compiler.Contract, error) {
	result := make(map[string]*compiler.Contract, len(out.Contracts))
	for key, raw := range out.Contracts {
		var rc rawCombinedContract
		if err := json.Unmarshal(raw, &rc); err != nil {
			return nil, fmt.Errorf("decoding combined-json contract %s: %w", key, err)
		}
		abi, err := decodeMaybeString(rc.ABI)
		if err != nil {
			return nil, err
		}
		userdoc, err := decodeMaybeString(rc.UserDoc)
		if err != nil {
			return nil, err
		}
		devdoc, err := decodeMaybeString(rc.DevDoc)
		if err != nil {
			return nil, err
		}
		result[key] = &compiler.Contract{
			Code:        "0x" + rc.Bin,
			RuntimeCode: "0x" + rc.BinRuntime,
			Hashes:      rc.Hashes,
			Info: compiler.ContractInfo{
				Source:        "",
				Language:      "Solidity",
				SrcMap:        rc.SrcMap,
				SrcMapRuntime: rc.SrcMapRuntime,
				AbiDefinition: abi,
				UserDoc:       userdoc,
				DeveloperDoc:  devdoc,
			},
		}
	}
	return result, nil
}

// decodeMaybeString handles combined-json fields that legacy solc encodes
// as a JSON string containing JSON, vs. newer solc that emits the nested
// value directly.
func decodeMaybeString(raw json.RawMessage) (interface{}, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	trimmed := strings.TrimSpace(string(raw))
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		var nested interface{}
		if err := json.Unmarshal([]byte(s), &nested); err != nil {
			return s, nil // not nested JSON, return the bare string
		}
		return nested, nil
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// SplitContractKey splits a combined-json "path:Name" key.
func SplitContractKey(key string) (path, name string) {
	idx := strings.LastIndex(key, ":")
	if idx < 0 {
		return key, ""
	}
	return key[:idx], key[idx+1:]
}
