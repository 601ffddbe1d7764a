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
	"errors"
	"fmt"
)

// Code identifies one entry of the error taxonomy.
type Code string

const (
	ErrInvalidTarget      Code = "invalid_target"
	ErrNoPlatformDetected Code = "no_platform_detected"
	ErrCompilerNotFound   Code = "compiler_not_found"
	ErrCompilationFailed  Code = "compilation_failed"
	ErrCompilerCrashed    Code = "compiler_crashed"
	ErrUnresolvedLibrary  Code = "unresolved_library"
	ErrSourceNotVerified  Code = "source_not_verified"
	ErrNetworkError       Code = "network_error"
	ErrContractAmbiguous  Code = "contract_ambiguous"
	ErrInvalidArchive     Code = "invalid_archive"
)

// Error is the propagation vehicle for every fatal condition this module
// raises. The orchestrator attaches Adapter/Target/ExitCode context before
// surfacing an adapter's bare error to the caller.
type Error struct {
	Code     Code
	Adapter  string
	Target   string
	ExitCode int
	Err      error
}

func (e *Error) Error() string {
	msg := string(e.Code)
	if e.Adapter != "" {
		msg = fmt.Sprintf("%s: %s", e.Adapter, msg)
	}
	if e.Target != "" {
		msg = fmt.Sprintf("%s (target=%s)", msg, e.Target)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is allows errors.Is(err, compile.ErrCompilationFailed.AsError()): it
// matches a Code sentinel value wrapped as an error by codeError.
func (e *Error) Is(target error) bool {
	if ce, ok := target.(codeError); ok {
		return e.Code == Code(ce)
	}
	return false
}

// codeError lets a bare Code act as an errors.Is sentinel, e.g.
// errors.Is(err, compile.ErrCompilationFailed.AsError()).
type codeError Code

func (c codeError) Error() string { return string(c) }

// AsError turns a Code into a sentinel error usable with errors.Is.
func (c Code) AsError() error { return codeError(c) }

// newError constructs an *Error, wrapping any additional error context.
func newError(code Code, adapter, target string, exitCode int, err error) *Error {
	return &Error{Code: code, Adapter: adapter, Target: target, ExitCode: exitCode, Err: err}
}

// NewError is newError's exported form, for platform/driver/fetch/export
// packages that need to raise a taxonomy error without reaching into
// model's unexported helpers.
func NewError(code Code, adapter, target string, exitCode int, err error) *Error {
	return newError(code, adapter, target, exitCode, err)
}

// unresolvedLibraryError reports unresolved_library(N).
func unresolvedLibraryError(name string) error {
	return fmt.Errorf("%w: %s", ErrUnresolvedLibrary.AsError(), name)
}

// errContractAmbiguous reports a monorepo merge conflict: two
// incompatible definitions of the same contract in the same file.
func errContractAmbiguous(contractName string) error {
	return fmt.Errorf("%w: %s", ErrContractAmbiguous.AsError(), contractName)
}

// IsCode reports whether err (or anything it wraps) carries the given Code.
func IsCode(err error, code Code) bool {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Code == code
	}
	return errors.Is(err, code.AsError())
}
