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
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/archon-sec/archon-compile/compile/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeArtifact(t *testing.T, buildDir, name string, art map[string]interface{}) {
	t.Helper()
	data, err := json.MarshalIndent(art, "", "  ")
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(buildDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(buildDir, name), data, 0o644))
}

func TestInstallTruffleStyleArtifacts(t *testing.T) {
	target := t.TempDir()
	buildDir := filepath.Join(target, "build", "contracts")
	touch(t, target, "contracts/Token.sol", "contract Token {}")

	writeArtifact(t, buildDir, "Token.json", map[string]interface{}{
		"contractName":      "Token",
		"abi":               []map[string]interface{}{{"type": "function", "name": "f", "inputs": []string{}}},
		"bytecode":          "0x6080aa",
		"deployedBytecode":  "0x6080bb",
		"sourceMap":         "0:10:0:-",
		"deployedSourceMap": "0:5:0:-",
		"sourcePath":        "contracts/Token.sol",
		"compiler":          map[string]string{"name": "solc", "version": "0.8.19+commit.7dd6d404"},
	})
	// Non-artifact JSON files are skipped, not fatal.
	writeArtifact(t, buildDir, "metadata.json", map[string]interface{}{"random": true})

	project := model.NewProject(target, target)
	unit, err := installTruffleStyleArtifacts(project, "Truffle", target, buildDir)
	require.NoError(t, err)

	assert.Equal(t, "0.8.19+commit.7dd6d404", unit.Compiler.Version)
	sus := unit.SourceUnits()
	require.Len(t, sus, 1)
	c, ok := sus[0].Contracts["Token"]
	require.True(t, ok)
	assert.Equal(t, "6080aa", c.BytecodeInit)
	assert.Equal(t, "6080bb", c.BytecodeRuntime)
	assert.Equal(t, "0:10:0:-", c.SrcMapInit)

	// The artifact's sourcePath went through the identity index.
	fn, ok := project.FilenameByUsed("contracts/Token.sol")
	require.True(t, ok)
	assert.Same(t, sus[0].File, fn)
}

func TestInstallTruffleStyleArtifactsMissingDir(t *testing.T) {
	target := t.TempDir()
	project := model.NewProject(target, target)
	_, err := installTruffleStyleArtifacts(project, "Truffle", target, filepath.Join(target, "build", "contracts"))
	require.Error(t, err)
	assert.True(t, model.IsCode(err, model.ErrCompilationFailed))
}

func TestFoundryLoadConfig(t *testing.T) {
	target := t.TempDir()
	touch(t, target, "foundry.toml", `[profile.default]
src = "contracts"
out = "artifacts"
optimizer = true
optimizer_runs = 200
evm_version = "paris"
via_ir = true
remappings = ["@oz/=lib/openzeppelin-contracts/"]
`)

	a := foundryAdapter{}
	src, out, remaps, settings := a.loadConfig(target)
	assert.Equal(t, "contracts", src)
	assert.Equal(t, "artifacts", out)
	assert.True(t, settings.OptimizerEnabled)
	assert.Equal(t, 200, settings.OptimizerRuns)
	assert.Equal(t, "paris", settings.EVMVersion)
	assert.True(t, settings.ViaIR)
	require.Len(t, remaps, 1)
	assert.Equal(t, model.Remapping{Prefix: "@oz/", Target: "lib/openzeppelin-contracts/"}, remaps[0])
}

func TestFoundryLoadConfigDefaults(t *testing.T) {
	target := t.TempDir()
	touch(t, target, "foundry.toml", "")

	src, out, remaps, settings := foundryAdapter{}.loadConfig(target)
	assert.Equal(t, "src", src)
	assert.Equal(t, "out", out)
	assert.Empty(t, remaps)
	assert.False(t, settings.OptimizerEnabled)
}

func TestSplitRemapping(t *testing.T) {
	prefix, target, ok := splitRemapping("@oz/=lib/oz/")
	require.True(t, ok)
	assert.Equal(t, "@oz/", prefix)
	assert.Equal(t, "lib/oz/", target)

	_, _, ok = splitRemapping("no-separator")
	assert.False(t, ok)
}

func TestSplitArgs(t *testing.T) {
	assert.Equal(t, []string{"--allow-paths", ".", "--base-path", "/x"}, splitArgs("--allow-paths . \t --base-path /x"))
	assert.Nil(t, splitArgs(""))
}

func TestCollectSourcesSkipsDependencies(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "src/Main.sol", "contract Main {}")
	touch(t, root, "node_modules/dep/Dep.sol", "contract Dep {}")
	touch(t, root, "src/readme.txt", "not a source")

	isDep := func(path string) bool {
		return containsPathSegment(filepath.ToSlash(path), "node_modules")
	}

	skipped, err := collectSources(root, []string{".sol"}, isDep, false)
	require.NoError(t, err)
	require.Len(t, skipped, 1)
	assert.Equal(t, filepath.Join(root, "src", "Main.sol"), skipped[0])

	included, err := collectSources(root, []string{".sol"}, isDep, true)
	require.NoError(t, err)
	assert.Len(t, included, 2)
}

func TestBuildStandardJSONInput(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "A.sol", "contract A {}")

	sources := map[string]string{"A.sol": filepath.Join(dir, "A.sol")}
	remaps := []model.Remapping{{Prefix: "@oz/", Target: "lib/oz/"}}
	in, err := buildStandardJSONInput(sources, remaps, StandardSettings{
		OptimizerEnabled: true, OptimizerRuns: 999, EVMVersion: "shanghai", ViaIR: true,
	})
	require.NoError(t, err)

	assert.Equal(t, "Solidity", in.Language)
	assert.Equal(t, "contract A {}", in.Sources["A.sol"].Content)
	assert.Equal(t, []string{"@oz/=lib/oz/"}, in.Settings.Remappings)
	assert.True(t, in.Settings.Optimizer.Enabled)
	assert.Equal(t, 999, in.Settings.Optimizer.Runs)
	assert.True(t, in.Settings.ViaIR)
	assert.NotEmpty(t, in.Settings.OutputSelection)
}

func TestArchiveAdapterDetect(t *testing.T) {
	a := NewArchiveAdapter()
	dir := t.TempDir()

	touch(t, dir, "proj_export_archive.json", "{}")
	assert.True(t, a.Detect(filepath.Join(dir, "proj_export_archive.json"), Flags{}))
	assert.False(t, a.Detect(filepath.Join(dir, "missing.zip"), Flags{}))
	assert.False(t, a.Detect(dir, Flags{}))
}

func TestHardhatUnitFromBuildInfo(t *testing.T) {
	target := t.TempDir()
	touch(t, target, "contracts/Greeter.sol", "contract Greeter {}")
	touch(t, target, "hardhat.config.js", "module.exports = {};\n")
	touch(t, target, "artifacts/build-info/abc123.json", `{
		"solcVersion": "0.8.24",
		"input": {
			"language": "Solidity",
			"sources": {"contracts/Greeter.sol": {"content": "contract Greeter {}"}},
			"settings": {"optimizer": {"enabled": true, "runs": 200}, "outputSelection": {}}
		},
		"output": {
			"contracts": {
				"contracts/Greeter.sol": {
					"Greeter": {
						"abi": [],
						"evm": {
							"bytecode": {"object": "6080aa", "sourceMap": "0:1:0:-"},
							"deployedBytecode": {"object": "6080bb", "sourceMap": "0:1:0:-"},
							"methodIdentifiers": {"greet()": "cfae3217"}
						}
					}
				}
			}
		}
	}`)

	project := model.NewProject(target, target)
	units, err := hardhatAdapter{version: hardhatV2}.Compile(context.Background(), project, target, CompileOptions{WorkingDir: target})
	require.NoError(t, err)
	require.Len(t, units, 1)

	unit := units[0]
	assert.Equal(t, "0.8.24", unit.Compiler.Version)
	assert.True(t, unit.Compiler.Optimize)
	assert.Equal(t, 200, unit.Compiler.OptimizeRuns)

	sus := unit.SourceUnits()
	require.Len(t, sus, 1)
	c, ok := sus[0].Contracts["Greeter"]
	require.True(t, ok)
	assert.Equal(t, "6080aa", c.BytecodeInit)
	assert.Equal(t, "6080bb", c.BytecodeRuntime)
	assert.Equal(t, map[string]string{"greet()": "cfae3217"}, c.MethodIdentifiers)
}

func TestFoundryCompileFromBuildInfo(t *testing.T) {
	target := t.TempDir()
	touch(t, target, "foundry.toml", "[profile.default]\nout = \"artifacts\"\n")
	touch(t, target, "src/Vault.sol", "contract Vault {}")
	touch(t, target, "artifacts/build-info/deadbeef.json", `{
		"solcVersion": "0.8.26",
		"input": {
			"language": "Solidity",
			"sources": {"src/Vault.sol": {"content": "contract Vault {}"}},
			"settings": {
				"optimizer": {"enabled": true, "runs": 999},
				"viaIR": true,
				"remappings": ["@oz/=lib/openzeppelin-contracts/"],
				"outputSelection": {}
			}
		},
		"output": {
			"contracts": {
				"src/Vault.sol": {
					"Vault": {
						"abi": [],
						"evm": {
							"bytecode": {"object": "60aa", "sourceMap": "0:1:0:-"},
							"deployedBytecode": {"object": "60bb", "sourceMap": "0:1:0:-"}
						}
					}
				}
			}
		}
	}`)

	project := model.NewProject(target, target)
	units, err := foundryAdapter{}.Compile(context.Background(), project, target, CompileOptions{WorkingDir: target})
	require.NoError(t, err)
	require.Len(t, units, 1)

	unit := units[0]
	assert.Equal(t, "0.8.26", unit.Compiler.Version)
	assert.True(t, unit.Compiler.ViaIR)
	assert.Equal(t, 999, unit.Compiler.OptimizeRuns)
	require.Len(t, unit.Compiler.Remappings, 1)
	assert.Equal(t, model.Remapping{Prefix: "@oz/", Target: "lib/openzeppelin-contracts/"}, unit.Compiler.Remappings[0])

	sus := unit.SourceUnits()
	require.Len(t, sus, 1)
	c, ok := sus[0].Contracts["Vault"]
	require.True(t, ok)
	assert.Equal(t, "60aa", c.BytecodeInit)
	assert.Equal(t, "60bb", c.BytecodeRuntime)
}

func TestFoundryMultiProfileBuildInfo(t *testing.T) {
	target := t.TempDir()
	touch(t, target, "foundry.toml", "[profile.default]\n")
	for i, version := range []string{"0.7.6", "0.8.19"} {
		name := []string{"aaa.json", "bbb.json"}[i]
		touch(t, target, filepath.Join("out", "build-info", name), `{
			"solcVersion": "`+version+`",
			"input": {
				"language": "Solidity",
				"sources": {"src/P`+version+`.sol": {"content": "contract P {}"}},
				"settings": {"optimizer": {"enabled": false}, "outputSelection": {}}
			},
			"output": {"contracts": {}}
		}`)
	}

	project := model.NewProject(target, target)
	units, err := foundryAdapter{}.Compile(context.Background(), project, target, CompileOptions{WorkingDir: target})
	require.NoError(t, err)
	require.Len(t, units, 2)

	versions := []string{units[0].Compiler.Version, units[1].Compiler.Version}
	assert.ElementsMatch(t, []string{"0.7.6", "0.8.19"}, versions)
}
