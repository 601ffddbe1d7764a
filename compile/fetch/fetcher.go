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

// Package fetch implements the verification-service fetcher:
// resolving a target address against Etherscan-style or Sourcify-style
// endpoints, materializing the recovered sources to disk, and handing the
// materialized directory back to the platform registry for re-dispatch.
package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/archon-sec/archon-compile/compile/model"
	"github.com/archon-sec/archon-compile/log"
	"github.com/cenkalti/backoff/v4"
)

// State names the fetcher's per-address state machine positions.
type State string

const (
	StateStart         State = "Start"
	StateResolving     State = "Resolving"
	StateMaterializing State = "Materializing"
	StateRedispatching State = "Re-dispatching"
	StateDone          State = "Done"
)

// Service names a verification backend.
type Service string

const (
	ServiceEtherscan Service = "etherscan"
	ServiceSourcify  Service = "sourcify"
)

var targetRe = regexp.MustCompile(`^(?:(sourcify-(?:[0-9]+|0x[0-9a-fA-F]+)):)?(?:([a-zA-Z0-9_]+):)?(0x[0-9a-fA-F]{40})$`)

// ParsedTarget is a split fetcher target: an optional chain prefix
// (mainnet:, sourcify-1:, or sourcify-0x<hex>:), then the 0x-address.
type ParsedTarget struct {
	ChainPrefix string // e.g. "mainnet", "" if absent
	SourcifyTag string // e.g. "sourcify-1", "" if absent
	Address     string
}

// ParseTarget parses a verification-fetcher target string.
func ParseTarget(target string) (ParsedTarget, error) {
	m := targetRe.FindStringSubmatch(target)
	if m == nil {
		return ParsedTarget{}, fmt.Errorf("not a fetcher target: %s", target)
	}
	return ParsedTarget{SourcifyTag: m[1], ChainPrefix: m[2], Address: strings.ToLower(m[3])}, nil
}

// Resolve reports which verification backend this target names, Sourcify
// when the sourcify- tag is present, Etherscan otherwise.
func (p ParsedTarget) Resolve() Service {
	if p.SourcifyTag != "" {
		return ServiceSourcify
	}
	return ServiceEtherscan
}

// Backend abstracts the two verification services behind one Resolve
// contract, so Fetcher's state machine and retry policy are shared.
type Backend interface {
	Name() Service
	Resolve(ctx context.Context, target ParsedTarget, apiKey string) (*ResolvedSource, error)
}

// ResolvedSource is what a verification service gives back: either a
// single flattened file, a standard-JSON input, or a multi-file list (spec
// below).
type ResolvedSource struct {
	ContractName string
	Files        map[string]string // relative path -> content
	Settings     *MaterializedSettings
}

// MaterializedSettings is written out as crytic_compile.config.json when
// the service reports compiler settings.
type MaterializedSettings struct {
	OptimizerEnabled bool   `json:"optimizer_enabled,omitempty"`
	OptimizerRuns    int    `json:"optimizer_runs,omitempty"`
	ViaIR            bool   `json:"viaIR,omitempty"`
	EVMVersion       string `json:"evm_version,omitempty"`
	Remappings       []string `json:"remappings,omitempty"`
	SolcVersion      string `json:"solc_version,omitempty"`
}

const configFileName = "crytic_compile.config.json"

// Fetcher drives the per-address fetch state machine.
type Fetcher struct {
	ExportDir string // root of crytic-export/, default handled by caller
	APIKey    string

	Etherscan Backend
	Sourcify  Backend
}

// NewFetcher returns a Fetcher wired to the default Etherscan/Sourcify
// backends.
func NewFetcher(exportDir, apiKey string) *Fetcher {
	return &Fetcher{
		ExportDir: exportDir,
		APIKey:    apiKey,
		Etherscan: NewEtherscanBackend(),
		Sourcify:  NewSourcifyBackend(),
	}
}

// materializedDir returns the directory a fetch of target will read from or
// write to:
// crytic-export/<service>-contracts/<chain>-<address>-<contract>/.
func (f *Fetcher) materializedDir(service Service, chain, address, contract string) string {
	chainLabel := chain
	if chainLabel == "" {
		// "mainet" (one n) is the historical default label baked into
		// existing export layouts; changing it would orphan prior fetches.
		chainLabel = "mainet"
	}
	dirName := fmt.Sprintf("%s-%s-%s", chainLabel, address, contract)
	return filepath.Join(f.ExportDir, string(service)+"-contracts", dirName)
}

// Fetch runs the full state machine for one address target, returning the
// materialized directory ready for platform re-dispatch.
func (f *Fetcher) Fetch(ctx context.Context, target string) (dir string, err error) {
	parsed, err := ParseTarget(target)
	if err != nil {
		return "", model.NewError(model.ErrInvalidTarget, "fetch", target, 0, err)
	}

	backend := f.Etherscan
	if parsed.Resolve() == ServiceSourcify {
		backend = f.Sourcify
	}

	// If the materialized directory already exists and contains
	// crytic_compile.config.json, the fetch is skipped entirely. The
	// contract name isn't known before resolving, so probe with
	// a best-effort glob over the service's directory.
	if existing := f.findIdempotentDir(backend.Name(), parsed); existing != "" {
		log.Debug("fetch already materialized, skipping re-resolve", "target", target, "dir", existing)
		return existing, nil
	}

	log.Debug("fetch state", "target", target, "state", StateResolving)
	resolved, err := f.resolveWithRetry(ctx, backend, parsed)
	if err != nil {
		return "", err
	}

	log.Debug("fetch state", "target", target, "state", StateMaterializing)
	dir = f.materializedDir(backend.Name(), parsed.ChainPrefix, parsed.Address, resolved.ContractName)
	if err := materialize(dir, resolved); err != nil {
		return "", model.NewError(model.ErrNetworkError, "fetch", target, 0, err)
	}

	// Re-dispatch (StateRedispatching -> StateDone) is performed by the
	// orchestrator, which runs platform.Compile against dir after Fetch
	// returns.
	log.Debug("fetch state", "target", target, "state", StateRedispatching)
	return dir, nil
}

// findIdempotentDir looks for an already-materialized directory for this
// address under any contract-name subdirectory.
func (f *Fetcher) findIdempotentDir(service Service, parsed ParsedTarget) string {
	base := filepath.Join(f.ExportDir, string(service)+"-contracts")
	entries, err := os.ReadDir(base)
	if err != nil {
		return ""
	}
	needle := parsed.Address
	for _, e := range entries {
		if !e.IsDir() || !strings.Contains(e.Name(), needle) {
			continue
		}
		dir := filepath.Join(base, e.Name())
		if fileExists(filepath.Join(dir, configFileName)) {
			return dir
		}
	}
	return ""
}

// resolveWithRetry implements the retry policy: HTTP 429 backs off
// exponentially with jitter up to 5 attempts; 404/not-verified is fatal;
// a missing API key proceeds unauthenticated with a longer backoff.
func (f *Fetcher) resolveWithRetry(ctx context.Context, backend Backend, target ParsedTarget) (*ResolvedSource, error) {
	apiKey := f.APIKey
	policy := backoff.NewExponentialBackOff()
	if apiKey == "" {
		policy.InitialInterval = 2 * policy.InitialInterval
	}
	withMax := backoff.WithMaxRetries(policy, 4)

	var resolved *ResolvedSource
	op := func() error {
		r, err := backend.Resolve(ctx, target, apiKey)
		if err != nil {
			var rl *RateLimitedError
			if errors.As(err, &rl) {
				return err // retryable
			}
			return backoff.Permanent(err)
		}
		resolved = r
		return nil
	}

	if err := backoff.Retry(op, backoff.WithContext(withMax, ctx)); err != nil {
		var nv *NotVerifiedError
		if errors.As(err, &nv) {
			return nil, model.NewError(model.ErrSourceNotVerified, "fetch", target.Address, 0, err)
		}
		var rl *RateLimitedError
		if errors.As(err, &rl) {
			return nil, model.NewError(model.ErrNetworkError, "fetch", target.Address, 0, err)
		}
		return nil, model.NewError(model.ErrNetworkError, "fetch", target.Address, 0, err)
	}
	return resolved, nil
}

// NotVerifiedError reports an HTTP 404 or missing-verification response;
// it maps to the fatal source_not_verified condition.
type NotVerifiedError struct{ Address string }

func (e *NotVerifiedError) Error() string { return "source not verified: " + e.Address }

// RateLimitedError reports an HTTP 429, retryable up to the attempt cap.
type RateLimitedError struct{ RetryAfter time.Duration }

func (e *RateLimitedError) Error() string { return "rate limited by verification service" }

// materialize writes resolved's files under dir, and settings (if any) to
// crytic_compile.config.json.
func materialize(dir string, resolved *ResolvedSource) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for relPath, content := range resolved.Files {
		full := filepath.Join(dir, filepath.FromSlash(relPath))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			return err
		}
	}
	if resolved.Settings != nil {
		data, err := json.MarshalIndent(resolved.Settings, "", "  ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(dir, configFileName), data, 0o644); err != nil {
			return err
		}
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
