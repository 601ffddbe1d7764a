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

type dappAdapter struct{}

// NewDappAdapter returns the Dapp (dapptools) adapter, recognized by its
// Makefile + src/ layout.
func NewDappAdapter() Adapter { return dappAdapter{} }

func (dappAdapter) Name() string  { return "Dapp" }
func (dappAdapter) Priority() int { return 400 }

func (dappAdapter) Detect(target string, flags Flags) bool {
	return fileExists(filepath.Join(target, "Makefile")) && fileExists(filepath.Join(target, "src"))
}

func (a dappAdapter) Compile(ctx context.Context, project *model.Project, target string, opts CompileOptions) ([]*model.CompilationUnit, error) {
	unit, err := installTruffleStyleArtifacts(project, a.Name(), target, filepath.Join(target, "out"))
	if err != nil {
		return nil, err
	}
	return []*model.CompilationUnit{unit}, nil
}

func (dappAdapter) Clean(target string, opts CompileOptions) error {
	return os.RemoveAll(filepath.Join(target, "out"))
}

func (dappAdapter) IsDependency(path string) bool {
	return containsPathSegment(filepath.ToSlash(path), "lib")
}

func (dappAdapter) GuessedTests(target string) []string {
	return []string{filepath.Join(target, "src")}
}
