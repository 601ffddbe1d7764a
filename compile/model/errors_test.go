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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorCodeSentinels(t *testing.T) {
	err := NewError(ErrCompilationFailed, "Foundry", "/work/proj", 1, errors.New("boom"))

	assert.True(t, IsCode(err, ErrCompilationFailed))
	assert.False(t, IsCode(err, ErrCompilerCrashed))
	assert.True(t, errors.Is(err, ErrCompilationFailed.AsError()))

	var ce *Error
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "Foundry", ce.Adapter)
	assert.Equal(t, 1, ce.ExitCode)
}

func TestErrorMessageCarriesContext(t *testing.T) {
	err := NewError(ErrSourceNotVerified, "fetch", "0xdead", 0, errors.New("empty response"))
	msg := err.Error()
	assert.Contains(t, msg, "source_not_verified")
	assert.Contains(t, msg, "fetch")
	assert.Contains(t, msg, "0xdead")
	assert.Contains(t, msg, "empty response")
}

func TestIsCodeSeesWrappedSentinel(t *testing.T) {
	wrapped := fmt.Errorf("linking stage: %w", unresolvedLibraryError("AdvancedMath"))
	assert.True(t, IsCode(wrapped, ErrUnresolvedLibrary))
	assert.Contains(t, wrapped.Error(), "AdvancedMath")
}
