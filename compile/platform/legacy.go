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
	"os"
	"path/filepath"

	"github.com/archon-sec/archon-compile/compile/model"
)

// legacyAdapter covers the three marker-file-only frameworks
// (Embark, Etherlime, Buidler): each recognizes a
// single config file and shares Truffle's per-contract artifact shape under
// build/contracts.
type legacyAdapter struct {
	name     string
	priority int
	marker   string
}

// NewLegacyAdapter returns a marker-file adapter for one of the
// Embark/Etherlime/Buidler family.
func NewLegacyAdapter(name string, priority int, marker string) Adapter {
	return legacyAdapter{name: name, priority: priority, marker: marker}
}

func (a legacyAdapter) Name() string  { return a.name }
func (a legacyAdapter) Priority() int { return a.priority }

func (a legacyAdapter) Detect(target string, flags Flags) bool {
	return fileExists(filepath.Join(target, a.marker))
}

func (a legacyAdapter) Compile(ctx context.Context, project *model.Project, target string, opts CompileOptions) ([]*model.CompilationUnit, error) {
	unit, err := installTruffleStyleArtifacts(project, a.name, target, filepath.Join(target, "build", "contracts"))
	if err != nil {
		return nil, err
	}
	return []*model.CompilationUnit{unit}, nil
}

func (a legacyAdapter) Clean(target string, opts CompileOptions) error {
	return os.RemoveAll(filepath.Join(target, "build"))
}

func (legacyAdapter) IsDependency(path string) bool {
	return containsPathSegment(filepath.ToSlash(path), "node_modules")
}

func (a legacyAdapter) GuessedTests(target string) []string {
	return []string{filepath.Join(target, "test")}
}
