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

// Package platform implements the ordered adapter registry:
// each adapter answers "can I handle this target?" and, if so, produces
// one or more CompilationUnits.
package platform

import (
	"context"

	"github.com/archon-sec/archon-compile/compile/model"
)

// Flags mirrors the load-bearing CLI surface that detection
// and compilation need to consult.
type Flags struct {
	ForceFramework    string
	SolcPath          string
	SolcVersion       string
	SolcArgs          string
	SolcRemaps        []model.Remapping
	DisableWarnings   bool
	RemoveMetadata    bool
	CustomBuildCmd    string
	CustomBuildDir    string
	EtherscanAPIKey   string

	// Compiler settings from --config-file, honored by adapters that
	// assemble their own standard-JSON input (direct solc; framework
	// adapters prefer their framework's native config).
	OptimizerEnabled bool
	OptimizerRuns    int
	ViaIR            bool
	EVMVersion       string

	RetryWithClean bool
}

// CompileOptions is the per-call context an adapter's Compile needs beyond
// the raw target string.
type CompileOptions struct {
	WorkingDir string
	Flags      Flags
}

// Adapter is the capability set every build framework driver provides:
// detect, compile, clean, dependency classification, test discovery.
type Adapter interface {
	Name() string
	Priority() int

	// Detect reports whether this adapter recognizes target. When
	// Flags.ForceFramework names a different adapter, Detect is not
	// called at all; when it names this adapter, Detect returning false
	// is treated as fatal by the registry.
	Detect(target string, flags Flags) bool

	// Compile drives the underlying build system and installs one or
	// more CompilationUnits into project.
	Compile(ctx context.Context, project *model.Project, target string, opts CompileOptions) ([]*model.CompilationUnit, error)

	// Clean removes this adapter's build-output directory, used before a
	// forced recompile and by the clean-and-retry fallback.
	Clean(target string, opts CompileOptions) error

	// IsDependency reports whether path (already adapter-recognized as
	// belonging to this framework's layout) is a vendored dependency
	// rather than project-owned source.
	IsDependency(path string) bool

	// GuessedTests reports the conventional test directory/directories
	// for this framework, for callers that want to point a follow-on
	// tool at them. Read-only discovery; this module does not run tests.
	GuessedTests(target string) []string
}
