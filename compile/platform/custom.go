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
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/archon-sec/archon-compile/compile/model"
)

// CompileCustomBuild bypasses adapter detection entirely: it runs the
// caller-supplied build command in the target directory, then reads
// per-contract artifact JSON from the caller-specified directory
// (--compile-custom-build).
func CompileCustomBuild(ctx context.Context, project *model.Project, target string, opts CompileOptions) error {
	argv := strings.Fields(opts.Flags.CustomBuildCmd)
	if len(argv) == 0 {
		return model.NewError(model.ErrInvalidTarget, "custom", target, 0,
			fmt.Errorf("empty custom build command"))
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = target
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return model.NewError(model.ErrCompilationFailed, "custom", target, cmd.ProcessState.ExitCode(),
			fmt.Errorf("custom build %q: %w: %s", opts.Flags.CustomBuildCmd, err, stderr.String()))
	}

	buildDir := opts.Flags.CustomBuildDir
	if buildDir == "" {
		buildDir = target
	}
	unit, err := installTruffleStyleArtifacts(project, "custom", target, buildDir)
	if err != nil {
		return err
	}
	project.Platform = "custom"
	return project.AddUnit(unit)
}
