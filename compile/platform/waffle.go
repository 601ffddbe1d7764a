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

type waffleAdapter struct{}

// NewWaffleAdapter returns the Waffle adapter.
func NewWaffleAdapter() Adapter { return waffleAdapter{} }

func (waffleAdapter) Name() string  { return "Waffle" }
func (waffleAdapter) Priority() int { return 600 }

func (waffleAdapter) Detect(target string, flags Flags) bool {
	return fileExists(filepath.Join(target, "waffle.json"))
}

type waffleConfig struct {
	OutputDirectory string `json:"outputDirectory"`
}

func (a waffleAdapter) outDir(target string) string {
	var cfg waffleConfig
	if err := readJSONFile(filepath.Join(target, "waffle.json"), &cfg); err == nil && cfg.OutputDirectory != "" {
		return filepath.Join(target, cfg.OutputDirectory)
	}
	return filepath.Join(target, "build")
}

func (a waffleAdapter) Compile(ctx context.Context, project *model.Project, target string, opts CompileOptions) ([]*model.CompilationUnit, error) {
	unit, err := installTruffleStyleArtifacts(project, a.Name(), target, a.outDir(target))
	if err != nil {
		return nil, err
	}
	return []*model.CompilationUnit{unit}, nil
}

func (a waffleAdapter) Clean(target string, opts CompileOptions) error {
	return os.RemoveAll(a.outDir(target))
}

func (waffleAdapter) IsDependency(path string) bool {
	return containsPathSegment(filepath.ToSlash(path), "node_modules")
}

func (waffleAdapter) GuessedTests(target string) []string {
	return []string{filepath.Join(target, "test")}
}
