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

package platform

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/archon-sec/archon-compile/compile/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileCustomBuild(t *testing.T) {
	target := t.TempDir()
	buildDir := filepath.Join(target, "custom-out")
	touch(t, target, "contracts/Thing.sol", "contract Thing {}")
	writeArtifact(t, buildDir, "Thing.json", map[string]interface{}{
		"contractName":     "Thing",
		"abi":              []interface{}{},
		"bytecode":         "0x00",
		"deployedBytecode": "0x00",
		"sourcePath":       "contracts/Thing.sol",
		"compiler":         map[string]string{"name": "solc", "version": "0.8.19"},
	})

	project := model.NewProject(target, target)
	err := CompileCustomBuild(context.Background(), project, target, CompileOptions{
		WorkingDir: target,
		Flags:      Flags{CustomBuildCmd: "true", CustomBuildDir: buildDir},
	})
	require.NoError(t, err)

	assert.Equal(t, "custom", project.Platform)
	units := project.Units()
	require.Len(t, units, 1)
	require.Len(t, units[0].SourceUnits(), 1)
	_, ok := units[0].SourceUnits()[0].Contracts["Thing"]
	assert.True(t, ok)
}

func TestCompileCustomBuildFailingCommand(t *testing.T) {
	target := t.TempDir()
	project := model.NewProject(target, target)
	err := CompileCustomBuild(context.Background(), project, target, CompileOptions{
		WorkingDir: target,
		Flags:      Flags{CustomBuildCmd: "false"},
	})
	require.Error(t, err)
	assert.True(t, model.IsCode(err, model.ErrCompilationFailed))
}

func TestCompileCustomBuildEmptyCommand(t *testing.T) {
	target := t.TempDir()
	project := model.NewProject(target, target)
	err := CompileCustomBuild(context.Background(), project, target, CompileOptions{WorkingDir: target})
	require.Error(t, err)
	assert.True(t, model.IsCode(err, model.ErrInvalidTarget))
}
