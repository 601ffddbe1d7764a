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

// Package driver implements the compiler driver: locating the
// solc/vyper binary, constructing standard-JSON or combined-JSON input,
// running the compiler, and classifying its diagnostics.
package driver

import (
	"bufio"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/archon-sec/archon-compile/log"
)

// LocateOptions carries every hint the locator priority chain consults,
// highest priority first.
type LocateOptions struct {
	ExplicitPath    string // --solc
	ExplicitVersion string // resolved through a version manager invocation
	PragmaSource    string // first source file's content, to sniff `pragma solidity`
	Binary          string // "solc" or "vyper"
}

var pragmaRe = regexp.MustCompile(`pragma\s+solidity\s+([^;]+);`)

// sniffPragma returns the first `pragma solidity` directive's version
// constraint string, or "" if none is present.
func sniffPragma(source string) string {
	m := pragmaRe.FindStringSubmatch(source)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// Locate resolves the compiler binary path following the priority
// chain: explicit path > explicit version (via a version manager) > pragma-
// implied version > $PATH lookup.
func Locate(ctx context.Context, opts LocateOptions) (path string, version string, err error) {
	if opts.ExplicitPath != "" {
		if _, err := os.Stat(opts.ExplicitPath); err != nil {
			return "", "", errCompilerNotFound(opts.ExplicitPath)
		}
		v, err := probeVersion(ctx, opts.ExplicitPath)
		return opts.ExplicitPath, v, err
	}

	if opts.ExplicitVersion != "" {
		path, err := locateByVersionManager(ctx, opts.Binary, opts.ExplicitVersion)
		if err == nil {
			v, verr := probeVersion(ctx, path)
			return path, v, verr
		}
		log.Debug("version manager lookup failed, falling back", "version", opts.ExplicitVersion, "err", err)
	}

	if opts.PragmaSource != "" {
		if constraint := sniffPragma(opts.PragmaSource); constraint != "" {
			path, err := locateByVersionManager(ctx, opts.Binary, constraint)
			if err == nil {
				v, verr := probeVersion(ctx, path)
				return path, v, verr
			}
			log.Debug("pragma-implied version lookup failed, falling back to PATH", "constraint", constraint, "err", err)
		}
	}

	name := opts.Binary
	if name == "" {
		name = "solc"
	}
	path, err = exec.LookPath(name)
	if err != nil {
		return "", "", errCompilerNotFound(name)
	}
	v, err := probeVersion(ctx, path)
	return path, v, err
}

// locateByVersionManager shells out to a `solc-select`/`svm`-style version
// manager to resolve a specific compiler version to a binary path. The
// manager is solc-select for solc and vvm for vyper, each resolved from
// $PATH.
func locateByVersionManager(ctx context.Context, binary, version string) (string, error) {
	manager := "solc-select"
	if binary == "vyper" {
		manager = "vvm"
	}
	managerPath, err := exec.LookPath(manager)
	if err != nil {
		return "", err
	}
	cmd := exec.CommandContext(ctx, managerPath, "use", version, "--always-install")
	if err := cmd.Run(); err != nil {
		return "", err
	}
	return exec.LookPath(binary)
}

// probeVersion runs `<path> --version` and extracts the version string.
func probeVersion(ctx context.Context, path string) (string, error) {
	cmd := exec.CommandContext(ctx, path, "--version")
	out, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return parseVersionOutput(out), nil
}

var versionLineRe = regexp.MustCompile(`[Vv]ersion:?\s*([0-9]+\.[0-9]+\.[0-9]+[\w+.-]*)`)

func parseVersionOutput(out []byte) string {
	scanner := bufio.NewScanner(strings.NewReader(string(out)))
	for scanner.Scan() {
		if m := versionLineRe.FindStringSubmatch(scanner.Text()); m != nil {
			return m[1]
		}
	}
	return strings.TrimSpace(string(out))
}

func errCompilerNotFound(hint string) error {
	return errors.New("compiler_not_found: " + hint)
}

// DefaultBinaryName returns the conventional binary name for a source
// language inferred from its file extension.
func DefaultBinaryName(sourcePath string) string {
	if filepath.Ext(sourcePath) == ".vy" {
		return "vyper"
	}
	return "solc"
}
