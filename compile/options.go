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

// Package compile is the top-level façade: it owns platform resolution,
// invokes the chosen adapter(s), wires results through the canonical
// model's post-processing steps, and optionally exports.
package compile

import (
	"encoding/json"
	"os"

	"github.com/archon-sec/archon-compile/compile/model"
	"github.com/archon-sec/archon-compile/compile/platform"
)

// Options carries every setting the CLI surface exposes.
type Options struct {
	ForceFramework  string
	SolcPath        string
	SolcVersion     string
	SolcArgs        string
	SolcRemaps      []string // "prefix=target" strings, parsed by ParseRemappings
	DisableWarnings bool
	RemoveMetadata  bool
	CustomBuildCmd  string
	CustomBuildDir  string

	ExportFormats []string // "standard", "solc", "truffle", "archive"
	ExportDir     string
	ExportZip     string
	ExportZipType string

	EtherscanAPIKey string
	ConfigFile      string

	// Compiler settings, typically loaded from a materialized
	// crytic_compile.config.json rather than set directly.
	OptimizerEnabled bool
	OptimizerRuns    int
	ViaIR            bool
	EVMVersion       string

	RetryWithClean bool
}

// fileConfig is the shape of the JSON document --config-file loads.
// Values set here are overridden by any explicitly-passed CLI flag.
type fileConfig struct {
	SolcPath        string   `json:"solc_path,omitempty"`
	SolcVersion     string   `json:"solc_version,omitempty"`
	SolcArgs        string   `json:"solc_args,omitempty"`
	SolcRemaps      []string `json:"solc_remaps,omitempty"`
	// Remappings is the key the verification fetcher writes into a
	// materialized crytic_compile.config.json; it is used only when neither
	// the caller nor solc_remaps supplied any remappings.
	Remappings      []string `json:"remappings,omitempty"`
	OptimizerEnabled bool    `json:"optimizer_enabled,omitempty"`
	OptimizerRuns   int      `json:"optimizer_runs,omitempty"`
	ViaIR           bool     `json:"viaIR,omitempty"`
	EVMVersion      string   `json:"evm_version,omitempty"`
	EtherscanAPIKey string   `json:"etherscan_apikey,omitempty"`
}

// LoadConfigFile reads --config-file/crytic_compile.config.json and folds
// any field the caller did not already set explicitly into opts.
func (o *Options) LoadConfigFile() error {
	if o.ConfigFile == "" {
		return nil
	}
	data, err := os.ReadFile(o.ConfigFile)
	if err != nil {
		return err
	}
	var fc fileConfig
	if err := json.Unmarshal(data, &fc); err != nil {
		return err
	}
	if o.SolcPath == "" {
		o.SolcPath = fc.SolcPath
	}
	if o.SolcVersion == "" {
		o.SolcVersion = fc.SolcVersion
	}
	if o.SolcArgs == "" {
		o.SolcArgs = fc.SolcArgs
	}
	if len(o.SolcRemaps) == 0 {
		o.SolcRemaps = fc.SolcRemaps
	}
	if len(o.SolcRemaps) == 0 {
		o.SolcRemaps = fc.Remappings
	}
	if o.EtherscanAPIKey == "" {
		o.EtherscanAPIKey = fc.EtherscanAPIKey
	}
	if !o.OptimizerEnabled {
		o.OptimizerEnabled = fc.OptimizerEnabled
	}
	if o.OptimizerRuns == 0 {
		o.OptimizerRuns = fc.OptimizerRuns
	}
	if !o.ViaIR {
		o.ViaIR = fc.ViaIR
	}
	if o.EVMVersion == "" {
		o.EVMVersion = fc.EVMVersion
	}
	return nil
}

// ParseRemappings converts "prefix=target" strings into model.Remapping
// values, dropping any entry with no '=' separator.
func ParseRemappings(raw []string) []model.Remapping {
	var out []model.Remapping
	for _, r := range raw {
		for i := 0; i < len(r); i++ {
			if r[i] == '=' {
				out = append(out, model.Remapping{Prefix: r[:i], Target: r[i+1:]})
				break
			}
		}
	}
	return out
}

// toPlatformFlags adapts Options into the platform package's Flags type.
func (o *Options) toPlatformFlags() platform.Flags {
	return platform.Flags{
		ForceFramework:  o.ForceFramework,
		SolcPath:        o.SolcPath,
		SolcVersion:     o.SolcVersion,
		SolcArgs:        o.SolcArgs,
		SolcRemaps:      ParseRemappings(o.SolcRemaps),
		DisableWarnings: o.DisableWarnings,
		RemoveMetadata:  o.RemoveMetadata,
		CustomBuildCmd:  o.CustomBuildCmd,
		CustomBuildDir:  o.CustomBuildDir,
		EtherscanAPIKey: o.EtherscanAPIKey,

		OptimizerEnabled: o.OptimizerEnabled,
		OptimizerRuns:    o.OptimizerRuns,
		ViaIR:            o.ViaIR,
		EVMVersion:       o.EVMVersion,

		RetryWithClean: o.RetryWithClean,
	}
}
