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
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// etherscanBackend queries an Etherscan-style "getsourcecode" endpoint.
// Response shape varies across forks (Etherscan, block explorers using the
// same API contract for other chains), so this reads it with gjson rather
// than a fixed struct.
type etherscanBackend struct {
	BaseURL string
	Client  *http.Client
}

// NewEtherscanBackend returns the default Etherscan-protocol backend.
func NewEtherscanBackend() Backend {
	return &etherscanBackend{
		BaseURL: "https://api.etherscan.io/api",
		Client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (b *etherscanBackend) Name() Service { return ServiceEtherscan }

func (b *etherscanBackend) Resolve(ctx context.Context, target ParsedTarget, apiKey string) (*ResolvedSource, error) {
	url := fmt.Sprintf("%s?module=contract&action=getsourcecode&address=%s", b.BaseURL, target.Address)
	if apiKey != "" {
		url += "&apikey=" + apiKey
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := b.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &RateLimitedError{}
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, &NotVerifiedError{Address: target.Address}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	result := gjson.GetBytes(body, "result.0")
	if !result.Exists() || result.Get("SourceCode").String() == "" {
		return nil, &NotVerifiedError{Address: target.Address}
	}

	name := result.Get("ContractName").String()
	sourceCode := result.Get("SourceCode").String()

	settings := &MaterializedSettings{
		SolcVersion: normalizeCompilerVersion(result.Get("CompilerVersion").String()),
	}
	if runs := result.Get("Runs"); runs.Exists() {
		settings.OptimizerRuns = int(runs.Int())
		settings.OptimizerEnabled = result.Get("OptimizationUsed").String() == "1"
	}
	settings.EVMVersion = result.Get("EVMVersion").String()

	resolved := &ResolvedSource{ContractName: name, Settings: settings}

	switch {
	case len(sourceCode) > 0 && sourceCode[0] == '{':
		// Either a standard-JSON input (double-braced, Etherscan wraps it
		// in an extra pair of braces) or a multi-file source listing.
		files, viaIR := parseEtherscanMultiFile(sourceCode)
		if viaIR {
			settings.ViaIR = true
		}
		resolved.Files = files
	default:
		resolved.Files = map[string]string{name + ".sol": sourceCode}
	}

	return resolved, nil
}

// normalizeCompilerVersion turns Etherscan's "v0.5.12+commit.7709ece9"
// into the bare "0.5.12" a version manager resolves.
func normalizeCompilerVersion(raw string) string {
	v := strings.TrimPrefix(raw, "v")
	if i := strings.Index(v, "+"); i >= 0 {
		v = v[:i]
	}
	return v
}

// parseEtherscanMultiFile handles the two JSON shapes Etherscan's
// SourceCode field can contain: a raw standard-JSON input ({"language":
// ..., "sources": {...}}), or Etherscan's double-wrapped variant
// ({{"language": ...}}).
func parseEtherscanMultiFile(raw string) (files map[string]string, viaIR bool) {
	files = make(map[string]string)
	trimmed := raw
	if len(trimmed) >= 2 && trimmed[0] == '{' && trimmed[1] == '{' {
		trimmed = trimmed[1 : len(trimmed)-1]
	}

	sources := gjson.Get(trimmed, "sources")
	sources.ForEach(func(path, value gjson.Result) bool {
		content := value.Get("content").String()
		files[path.String()] = content
		return true
	})
	viaIR = gjson.Get(trimmed, "settings.viaIR").Bool()
	return files, viaIR
}
