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

// archon-compile is the command-line entrypoint to the compilation
// abstraction layer: given a target, it detects the build framework,
// drives the compiler, and optionally exports the unified result.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/archon-sec/archon-compile/compile"
	"github.com/archon-sec/archon-compile/internal/flags"
	"github.com/archon-sec/archon-compile/internal/version"
	"github.com/archon-sec/archon-compile/log"
	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v2"
)

var (
	forceFrameworkFlag = &cli.StringFlag{
		Name:     "compile-force-framework",
		Usage:    "Skip detection; use the named platform adapter",
		Category: flags.CompileCategory,
	}
	solcPathFlag = &cli.StringFlag{
		Name:     "solc",
		Usage:    "Path to the solc binary, overriding PATH lookup",
		Category: flags.SolcCategory,
	}
	solcVersionFlag = &cli.StringFlag{
		Name:     "solc-version",
		Usage:    "Explicit compiler version, resolved via a version manager",
		Category: flags.SolcCategory,
	}
	solcArgsFlag = &cli.StringFlag{
		Name:     "solc-args",
		Usage:    "Extra arguments passed through to the compiler",
		Category: flags.SolcCategory,
	}
	solcRemapsFlag = &cli.StringSliceFlag{
		Name:     "solc-remaps",
		Usage:    "Import remappings, prefix=target, may be repeated",
		Category: flags.SolcCategory,
	}
	solcDisableWarningsFlag = &cli.BoolFlag{
		Name:     "solc-disable-warnings",
		Usage:    "Drop compiler warnings from stderr",
		Category: flags.SolcCategory,
	}
	removeMetadataFlag = &cli.BoolFlag{
		Name:     "compile-remove-metadata",
		Usage:    "Strip the CBOR metadata trailer from stored bytecode",
		Category: flags.CompileCategory,
	}
	customBuildCmdFlag = &cli.StringFlag{
		Name:     "compile-custom-build",
		Usage:    "Bypass adapter detection; run this build command",
		Category: flags.CompileCategory,
	}
	customBuildDirFlag = &cli.StringFlag{
		Name:     "compile-custom-build-dir",
		Usage:    "Directory to read artifacts from after --compile-custom-build",
		Category: flags.CompileCategory,
	}
	exportFormatFlag = &cli.StringFlag{
		Name:     "export-format",
		Usage:    "Export format: standard, solc, truffle, archive",
		Category: flags.ExportCategory,
	}
	exportFormatsFlag = &cli.StringSliceFlag{
		Name:     "export-formats",
		Usage:    "Multiple export formats, may be repeated",
		Category: flags.ExportCategory,
	}
	exportDirFlag = &cli.StringFlag{
		Name:     "export-dir",
		Usage:    "Export output directory",
		Value:    "crytic-export",
		Category: flags.ExportCategory,
	}
	exportZipFlag = &cli.StringFlag{
		Name:     "export-zip",
		Usage:    "Pack exports into a single archive file",
		Category: flags.ExportCategory,
	}
	exportZipTypeFlag = &cli.StringFlag{
		Name:     "export-zip-type",
		Usage:    "Archive type for --export-zip",
		Value:    "zip",
		Category: flags.ExportCategory,
	}
	etherscanAPIKeyFlag = &cli.StringFlag{
		Name:     "etherscan-apikey",
		Usage:    "API key for Etherscan-style verification endpoints",
		EnvVars:  []string{"ETHERSCAN_API_KEY"},
		Category: flags.FetchCategory,
	}
	configFileFlag = &cli.StringFlag{
		Name:     "config-file",
		Usage:    "Load additional settings from a JSON file",
		Category: flags.CompileCategory,
	}
	retryWithCleanFlag = &cli.BoolFlag{
		Name:     "compile-retry-with-clean",
		Usage:    "Clean the adapter's build output and retry once before failing",
		Value:    true,
		Category: flags.CompileCategory,
	}
	verbosityFlag = &cli.IntFlag{
		Name:     "verbosity",
		Usage:    "Logging verbosity: 0=crit,1=error,2=warn,3=info,4=debug,5=trace",
		Value:    3,
		Category: flags.LoggingCategory,
	}
	jsonLogFlag = &cli.BoolFlag{
		Name:     "log.json",
		Usage:    "Format logs as structured JSON instead of terminal output",
		Category: flags.LoggingCategory,
	}
)

func main() {
	app := &cli.App{
		Name:      "archon-compile",
		Usage:     "compile smart contract projects into a unified artifact model",
		ArgsUsage: "<target>",
		Version:   version.WithMeta,
		Flags: []cli.Flag{
			forceFrameworkFlag,
			solcPathFlag,
			solcVersionFlag,
			solcArgsFlag,
			solcRemapsFlag,
			solcDisableWarningsFlag,
			removeMetadataFlag,
			customBuildCmdFlag,
			customBuildDirFlag,
			exportFormatFlag,
			exportFormatsFlag,
			exportDirFlag,
			exportZipFlag,
			exportZipTypeFlag,
			etherscanAPIKeyFlag,
			configFileFlag,
			retryWithCleanFlag,
			verbosityFlag,
			jsonLogFlag,
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setupLogging(ctx *cli.Context) {
	useColor := isatty.IsTerminal(os.Stderr.Fd()) && os.Getenv("TERM") != "dumb"
	var handler = log.NewTerminalHandlerWithLevel(os.Stderr, log.FromLegacyLevel(ctx.Int(verbosityFlag.Name)), useColor)
	if ctx.Bool(jsonLogFlag.Name) {
		log.SetDefault(log.NewLogger(log.JSONHandlerWithLevel(os.Stderr, log.FromLegacyLevel(ctx.Int(verbosityFlag.Name)))))
		return
	}
	log.SetDefault(log.NewLogger(handler))
}

func run(ctx *cli.Context) error {
	setupLogging(ctx)

	if ctx.NArg() != 1 {
		return cli.Exit("expected exactly one <target> argument", 255)
	}
	target := ctx.Args().Get(0)

	formats := ctx.StringSlice(exportFormatsFlag.Name)
	if single := ctx.String(exportFormatFlag.Name); single != "" {
		formats = append(formats, single)
	}

	workingDir, err := os.Getwd()
	if err != nil {
		return cli.Exit(err, 255)
	}

	opts := compile.Options{
		ForceFramework:  ctx.String(forceFrameworkFlag.Name),
		SolcPath:        ctx.String(solcPathFlag.Name),
		SolcVersion:     ctx.String(solcVersionFlag.Name),
		SolcArgs:        ctx.String(solcArgsFlag.Name),
		SolcRemaps:      ctx.StringSlice(solcRemapsFlag.Name),
		DisableWarnings: ctx.Bool(solcDisableWarningsFlag.Name),
		RemoveMetadata:  ctx.Bool(removeMetadataFlag.Name),
		CustomBuildCmd:  ctx.String(customBuildCmdFlag.Name),
		CustomBuildDir:  ctx.String(customBuildDirFlag.Name),
		ExportFormats:   dedupeFormats(formats),
		ExportDir:       ctx.String(exportDirFlag.Name),
		ExportZip:       ctx.String(exportZipFlag.Name),
		ExportZipType:   ctx.String(exportZipTypeFlag.Name),
		EtherscanAPIKey: ctx.String(etherscanAPIKeyFlag.Name),
		ConfigFile:      ctx.String(configFileFlag.Name),
		RetryWithClean:  ctx.Bool(retryWithCleanFlag.Name),
	}

	project, err := compile.Run(context.Background(), workingDir, target, opts)
	if err != nil {
		if code, ok := exitCodeFor(err); ok {
			return cli.Exit(err, code)
		}
		return cli.Exit(err, 255)
	}

	log.Info("compilation finished", "target", target, "platform", project.Platform, "units", len(project.Units()))
	return nil
}

func dedupeFormats(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, f := range in {
		f = strings.TrimSpace(f)
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}

// exitCodeFor maps a compile.Run error to a process exit code; every
// fatal condition currently shares the generic failure sentinel,
// but this indirection keeps room for per-code exit statuses later.
func exitCodeFor(err error) (int, bool) {
	if err == nil {
		return 0, false
	}
	return 255, true
}
