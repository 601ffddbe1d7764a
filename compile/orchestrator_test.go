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

package compile

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

func TestClassifyTarget(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "Token.sol")
	require.NoError(t, os.WriteFile(file, []byte("contract Token {}"), 0o644))

	assert.Equal(t, targetAddress, classifyTarget("0x6B175474E89094C44Da98b954EedeAC495271d0F"))
	assert.Equal(t, targetAddress, classifyTarget("mainnet:0x6B175474E89094C44Da98b954EedeAC495271d0F"))
	assert.Equal(t, targetArchive, classifyTarget("proj_export_archive.json"))
	assert.Equal(t, targetArchive, classifyTarget("bundle.zip"))
	assert.Equal(t, targetDirectory, classifyTarget(dir))
	assert.Equal(t, targetFile, classifyTarget(file))
}

func TestRunInvalidTarget(t *testing.T) {
	_, err := Run(context.Background(), t.TempDir(), "/does/not/exist", Options{})
	require.Error(t, err)
	assert.True(t, model.IsCode(err, model.ErrInvalidTarget))
}

func TestRunNoPlatformDetected(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("x"), 0o644))

	_, err := Run(context.Background(), dir, dir, Options{})
	require.Error(t, err)
	assert.True(t, model.IsCode(err, model.ErrNoPlatformDetected))
}

func TestRunArchiveRehydratesWithoutCompiler(t *testing.T) {
	dir := t.TempDir()
	doc := map[string]interface{}{
		"working_dir": dir,
		"target":      "orig-target",
		"type":        "solc",
		"compilation_units": []map[string]interface{}{{
			"unit_id":  "u1",
			"compiler": map[string]interface{}{"name": "solc", "version": "0.8.19"},
			"source_units": []map[string]interface{}{{
				"filename": map[string]string{
					"absolute": filepath.Join(dir, "A.sol"),
					"relative": "A.sol",
					"short":    "A.sol",
					"used":     "A.sol",
				},
				"contracts": map[string]interface{}{
					"A": map[string]interface{}{
						"abi":            []interface{}{},
						"bin":            "6080",
						"bin-runtime":    "6080",
						"srcmap":         "",
						"srcmap-runtime": "",
					},
				},
			}},
		}},
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	require.NoError(t, err)
	archivePath := filepath.Join(dir, "proj_export_archive.json")
	require.NoError(t, os.WriteFile(archivePath, data, 0o644))

	project, err := Run(context.Background(), dir, archivePath, Options{})
	require.NoError(t, err)

	assert.Equal(t, "solc", project.Platform)
	units := project.Units()
	require.Len(t, units, 1)
	assert.Equal(t, "u1", units[0].ID)
	assert.Equal(t, "0.8.19", units[0].Compiler.Version)

	su, ok := units[0].SourceUnit(filepath.Join(dir, "A.sol"))
	require.True(t, ok)
	_, ok = su.Contracts["A"]
	assert.True(t, ok)
}

func TestParseRemappings(t *testing.T) {
	remaps := ParseRemappings([]string{"@oz/=node_modules/@openzeppelin/", "bad-entry", "a=b"})
	require.Len(t, remaps, 2)
	assert.Equal(t, model.Remapping{Prefix: "@oz/", Target: "node_modules/@openzeppelin/"}, remaps[0])
	assert.Equal(t, model.Remapping{Prefix: "a", Target: "b"}, remaps[1])
}

func TestLoadConfigFileMergesUnsetFields(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "crytic_compile.config.json")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`{
		"solc_version": "0.8.19",
		"solc_remaps": ["@oz/=lib/oz/"],
		"etherscan_apikey": "from-file"
	}`), 0o644))

	opts := Options{ConfigFile: cfgPath, SolcVersion: "0.7.6"}
	require.NoError(t, opts.LoadConfigFile())

	// Explicit flags win; unset fields fill from the file.
	assert.Equal(t, "0.7.6", opts.SolcVersion)
	assert.Equal(t, []string{"@oz/=lib/oz/"}, opts.SolcRemaps)
	assert.Equal(t, "from-file", opts.EtherscanAPIKey)
}

func TestLoadConfigFileMissing(t *testing.T) {
	opts := Options{ConfigFile: filepath.Join(t.TempDir(), "absent.json")}
	assert.Error(t, opts.LoadConfigFile())

	none := Options{}
	assert.NoError(t, none.LoadConfigFile())
}

func TestExportWritesRequestedFormats(t *testing.T) {
	workdir := t.TempDir()
	project := model.NewProject(workdir, "mytarget")
	project.Platform = "solc"

	unit := model.NewCompilationUnit(model.CompilerDescriptor{Name: "solc", Version: "0.8.19"})
	unit.ID = "u1"
	fn, err := project.ResolveFilename("A.sol", "A.sol", model.NormalizeOptions{})
	require.NoError(t, err)
	unit.AddSourceUnit(&model.SourceUnit{File: fn, Contracts: map[string]*model.Contract{
		"A": {Name: "A", Kind: model.KindContract, ABI: json.RawMessage(`[]`), BytecodeInit: "00", BytecodeRuntime: "00"},
	}})
	require.NoError(t, project.AddUnit(unit))

	exportDir := filepath.Join(workdir, "out")
	opts := Options{ExportFormats: []string{"standard", "solc", "truffle", "archive"}, ExportDir: exportDir}
	require.NoError(t, Export(project, opts))

	assert.FileExists(t, filepath.Join(exportDir, "contracts.json"))
	assert.FileExists(t, filepath.Join(exportDir, "combined_solc.json"))
	assert.FileExists(t, filepath.Join(exportDir, "A.json"))
	assert.FileExists(t, filepath.Join(exportDir, "mytarget_export_archive.json"))
}

func TestExportZipPacksInsteadOfWriting(t *testing.T) {
	workdir := t.TempDir()
	project := model.NewProject(workdir, "t")
	project.Platform = "solc"
	unit := model.NewCompilationUnit(model.CompilerDescriptor{Name: "solc"})
	require.NoError(t, project.AddUnit(unit))

	exportDir := filepath.Join(workdir, "out")
	zipPath := filepath.Join(workdir, "bundle.zip")
	opts := Options{ExportFormats: []string{"standard"}, ExportDir: exportDir, ExportZip: zipPath}
	require.NoError(t, Export(project, opts))

	assert.FileExists(t, zipPath)
	assert.NoFileExists(t, filepath.Join(exportDir, "contracts.json"))
}

func TestSanitizeTargetName(t *testing.T) {
	assert.Equal(t, "proj", sanitizeTargetName("/work/proj"))
	assert.Equal(t, "Token", sanitizeTargetName("contracts/Token.sol"))
	assert.Equal(t, "export", sanitizeTargetName("/"))
}
