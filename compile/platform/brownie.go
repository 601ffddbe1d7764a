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
	"gopkg.in/yaml.v3"
)

// brownieConfig is the subset of brownie-config.yaml this adapter reads
// when brownie-config.yaml is present.
type brownieConfig struct {
	Compiler struct {
		Solc struct {
			Version  string   `yaml:"version"`
			Optimize bool     `yaml:"optimize"`
			Runs     int      `yaml:"runs"`
			EVMVersion string `yaml:"evm_version"`
			Remappings []string `yaml:"remappings"`
		} `yaml:"solc"`
	} `yaml:"compiler"`
}

type brownieAdapter struct{}

// NewBrownieAdapter returns the Brownie adapter.
func NewBrownieAdapter() Adapter { return brownieAdapter{} }

func (brownieAdapter) Name() string  { return "Brownie" }
func (brownieAdapter) Priority() int { return 500 }

func (brownieAdapter) Detect(target string, flags Flags) bool {
	return fileExists(filepath.Join(target, "brownie-config.yaml"))
}

func (a brownieAdapter) loadConfig(target string) brownieConfig {
	var cfg brownieConfig
	raw, err := os.ReadFile(filepath.Join(target, "brownie-config.yaml"))
	if err != nil {
		return cfg
	}
	_ = yaml.Unmarshal(raw, &cfg)
	return cfg
}

func (a brownieAdapter) Compile(ctx context.Context, project *model.Project, target string, opts CompileOptions) ([]*model.CompilationUnit, error) {
	unit, err := installTruffleStyleArtifacts(project, a.Name(), target, filepath.Join(target, "build", "contracts"))
	if err != nil {
		return nil, err
	}
	cfg := a.loadConfig(target)
	if cfg.Compiler.Solc.Version != "" && unit.Compiler.Version == "" {
		unit.Compiler.Version = cfg.Compiler.Solc.Version
	}
	unit.Compiler.Optimize = cfg.Compiler.Solc.Optimize
	unit.Compiler.OptimizeRuns = cfg.Compiler.Solc.Runs
	unit.Compiler.EVMVersion = cfg.Compiler.Solc.EVMVersion
	return []*model.CompilationUnit{unit}, nil
}

func (brownieAdapter) Clean(target string, opts CompileOptions) error {
	return os.RemoveAll(filepath.Join(target, "build"))
}

func (brownieAdapter) IsDependency(path string) bool {
	return containsPathSegment(filepath.ToSlash(path), ".brownie") ||
		containsPathSegment(filepath.ToSlash(path), "dependencies")
}

func (brownieAdapter) GuessedTests(target string) []string {
	return []string{filepath.Join(target, "tests")}
}
