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

	"github.com/archon-sec/archon-compile/log"
)

// StandardJSONInput is the document fed on stdin to `solc --standard-json`.
type StandardJSONInput struct {
	Language string                    `json:"language"`
	Sources  map[string]StandardSource `json:"sources"`
	Settings StandardSettings          `json:"settings"`
}

type StandardSource struct {
	Content string `json:"content,omitempty"`
	URLs    []string `json:"urls,omitempty"`
}

type StandardSettings struct {
	Remappings      []string                      `json:"remappings,omitempty"`
	Optimizer       StandardOptimizer             `json:"optimizer"`
	EVMVersion      string                        `json:"evmVersion,omitempty"`
	ViaIR           bool                          `json:"viaIR,omitempty"`
	OutputSelection map[string]map[string][]string `json:"outputSelection"`
	Libraries       map[string]map[string]string `json:"libraries,omitempty"`
}

type StandardOptimizer struct {
	Enabled bool `json:"enabled"`
	Runs    int  `json:"runs,omitempty"`
}

// DefaultOutputSelection requests every output the canonical model needs
// from every contract in every file.
func DefaultOutputSelection() map[string]map[string][]string {
	return map[string]map[string][]string{
		"*": {
			"*": []string{
				"abi", "evm.bytecode.object", "evm.bytecode.sourceMap",
				"evm.bytecode.linkReferences", "evm.deployedBytecode.object",
				"evm.deployedBytecode.sourceMap", "evm.deployedBytecode.linkReferences",
				"evm.methodIdentifiers", "userdoc", "devdoc", "metadata",
			},
			"": []string{"ast"},
		},
	}
}

// StandardJSONOutput is the document solc writes to stdout.
type StandardJSONOutput struct {
	Errors    []StandardDiagnostic           `json:"errors,omitempty"`
	Sources   map[string]StandardOutputSource `json:"sources,omitempty"`
	Contracts map[string]map[string]StandardContract `json:"contracts,omitempty"`
}

type StandardDiagnostic struct {
	Severity         string `json:"severity"`
	Message          string `json:"message"`
	FormattedMessage string `json:"formattedMessage"`
	ErrorCode        string `json:"errorCode,omitempty"`
}

type StandardOutputSource struct {
	ID  int             `json:"id"`
	AST json.RawMessage `json:"ast,omitempty"`
}

type StandardContract struct {
	ABI               json.RawMessage   `json:"abi,omitempty"`
	UserDoc           json.RawMessage   `json:"userdoc,omitempty"`
	DevDoc            json.RawMessage   `json:"devdoc,omitempty"`
	Metadata          string            `json:"metadata,omitempty"`
	EVM               StandardEVM       `json:"evm"`
}

type StandardEVM struct {
	Bytecode          StandardBytecode  `json:"bytecode"`
	DeployedBytecode  StandardBytecode  `json:"deployedBytecode"`
	MethodIdentifiers map[string]string `json:"methodIdentifiers,omitempty"`
}

type StandardBytecode struct {
	Object         string                       `json:"object"`
	SourceMap      string                       `json:"sourceMap,omitempty"`
	LinkReferences map[string]map[string][]LinkReference `json:"linkReferences,omitempty"`
}

// LinkReference is one occurrence of a library placeholder within a
// bytecode object, as solc reports it (byte start/length within the hex
// string's decoded bytes).
type LinkReference struct {
	Start  int `json:"start"`
	Length int `json:"length"`
}

// RunStandardJSON invokes the compiler at binaryPath in standard-JSON mode
// and parses its output. A nonzero exit with no parseable stdout is a
// compiler_crashed condition; parseable stderr/stdout diagnostics
// classified "error" are surfaced via output.Errors without failing this
// call itself, leaving classification to the caller.
func RunStandardJSON(ctx context.Context, binaryPath string, input StandardJSONInput, extraArgs []string) (*StandardJSONOutput, error) {
	payload, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("encoding standard-json input: %w", err)
	}

	args := append([]string{"--standard-json"}, extraArgs...)
	cmd := exec.CommandContext(ctx, binaryPath, args...)
	cmd.Stdin = bytes.NewReader(payload)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	var output StandardJSONOutput
	if jsonErr := json.Unmarshal(stdout.Bytes(), &output); jsonErr != nil {
		if runErr != nil {
			return nil, &CrashError{ExitErr: runErr, Stderr: stderr.String()}
		}
		return nil, fmt.Errorf("parsing standard-json output: %w", jsonErr)
	}

	if runErr != nil {
		log.Debug("solc exited non-zero in standard-json mode", "err", runErr, "diagnostics", len(output.Errors))
	}
	return &output, nil
}

// CrashError represents compiler_crashed: the process failed and
// produced nothing the driver could parse as structured diagnostics.
type CrashError struct {
	ExitErr error
	Stderr  string
}

func (e *CrashError) Error() string {
	return fmt.Sprintf("compiler_crashed: %v: %s", e.ExitErr, e.Stderr)
}

func (e *CrashError) Unwrap() error { return e.ExitErr }

// ClassifyDiagnostics splits a StandardJSONOutput's diagnostics into fatal
// errors and non-fatal warnings; only the former fail a compile.
func ClassifyDiagnostics(output *StandardJSONOutput) (fatal, warnings []StandardDiagnostic) {
	for _, d := range output.Errors {
		if d.Severity == "error" {
			fatal = append(fatal, d)
		} else {
			warnings = append(warnings, d)
		}
	}
	return fatal, warnings
}
