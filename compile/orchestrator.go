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
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/archon-sec/archon-compile/compile/export"
	"github.com/archon-sec/archon-compile/compile/fetch"
	"github.com/archon-sec/archon-compile/compile/model"
	"github.com/archon-sec/archon-compile/compile/platform"
	"github.com/archon-sec/archon-compile/log"
	"golang.org/x/sync/errgroup"
)

// targetKind classifies the target string.
type targetKind int

const (
	targetDirectory targetKind = iota
	targetFile
	targetArchive
	targetAddress
)

func classifyTarget(target string) targetKind {
	if platform.LooksLikeAddress(target) {
		return targetAddress
	}
	if strings.HasSuffix(target, ".zip") || strings.HasSuffix(target, "_export_archive.json") {
		return targetArchive
	}
	if info, err := os.Stat(target); err == nil && info.IsDir() {
		return targetDirectory
	}
	return targetFile
}

// Run drives the full top-level sequence for one target: normalize,
// detect, compile, post-process, and (if requested) export.
func Run(ctx context.Context, workingDir, target string, opts Options) (*model.Project, error) {
	if err := opts.LoadConfigFile(); err != nil {
		return nil, fmt.Errorf("loading config file: %w", err)
	}

	registry := platform.NewRegistry()
	project := model.NewProject(workingDir, target)

	if opts.CustomBuildCmd != "" {
		if err := platform.CompileCustomBuild(ctx, project, target, platform.CompileOptions{
			WorkingDir: workingDir,
			Flags:      opts.toPlatformFlags(),
		}); err != nil {
			return nil, err
		}
		postProcess(project, opts)
		if len(opts.ExportFormats) > 0 {
			if err := Export(project, opts); err != nil {
				return nil, err
			}
		}
		return project, nil
	}

	kind := classifyTarget(target)
	if kind != targetAddress {
		if _, err := os.Stat(target); err != nil {
			return nil, model.NewError(model.ErrInvalidTarget, "", target, 0, err)
		}
	}

	switch kind {
	case targetAddress:
		if err := runAddress(ctx, registry, project, target, opts); err != nil {
			return nil, err
		}
	case targetDirectory:
		if err := runDirectory(ctx, registry, project, target, opts); err != nil {
			return nil, err
		}
	default: // targetFile, targetArchive both go through the registry directly
		if err := platform.Compile(ctx, registry, project, target, platform.CompileOptions{
			WorkingDir: workingDir,
			Flags:      opts.toPlatformFlags(),
		}); err != nil {
			return nil, err
		}
	}

	postProcess(project, opts)

	if len(opts.ExportFormats) > 0 {
		if err := Export(project, opts); err != nil {
			return nil, err
		}
	}

	return project, nil
}

// runAddress drives the verification fetcher, then re-dispatches the
// materialized directory through the platform registry.
func runAddress(ctx context.Context, registry *platform.Registry, project *model.Project, target string, opts Options) error {
	exportDir := opts.ExportDir
	if exportDir == "" {
		exportDir = "crytic-export"
	}
	apiKey := opts.EtherscanAPIKey
	if apiKey == "" {
		apiKey = os.Getenv("ETHERSCAN_API_KEY")
	}

	f := fetch.NewFetcher(exportDir, apiKey)
	dir, err := f.Fetch(ctx, target)
	if err != nil {
		return err
	}

	// The materialized tree carries the service's reported compiler
	// settings; fold them into this dispatch so the re-compile uses the
	// same optimizer/via-IR/EVM configuration the contract was verified
	// with.
	redispatch := opts
	if cfg := filepath.Join(dir, "crytic_compile.config.json"); redispatch.ConfigFile == "" && fileExists(cfg) {
		redispatch.ConfigFile = cfg
		if err := redispatch.LoadConfigFile(); err != nil {
			return err
		}
	}

	log.Debug("verification fetch materialized, re-dispatching", "target", target, "dir", dir)
	return platform.Compile(ctx, registry, project, dir, platform.CompileOptions{
		WorkingDir: dir,
		Flags:      redispatch.toPlatformFlags(),
	})
}

// runDirectory implements monorepo handling: if the target
// directory itself is not a framework root but contains several, each root
// compiles independently and all units merge into one project via
// Project.AddUnit's collision policy.
func runDirectory(ctx context.Context, registry *platform.Registry, project *model.Project, target string, opts Options) error {
	if _, err := platform.Detect(registry, target, opts.toPlatformFlags()); err == nil {
		return platform.Compile(ctx, registry, project, target, platform.CompileOptions{
			WorkingDir: target,
			Flags:      opts.toPlatformFlags(),
		})
	}

	roots := discoverFrameworkRoots(registry, target, opts)
	if len(roots) == 0 {
		return model.NewError(model.ErrNoPlatformDetected, "", target, 0, nil)
	}

	// Sub-roots share no mutable state beyond the project's identity index
	// and unit map, both lock-guarded, so their compiles fan out across a
	// pool sized to the host. Result order in the project map is
	// by unit identifier, not arrival.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for _, root := range roots {
		root := root
		g.Go(func() error {
			return platform.Compile(gctx, registry, project, root, platform.CompileOptions{
				WorkingDir: root,
				Flags:      opts.toPlatformFlags(),
			})
		})
	}
	return g.Wait()
}

// discoverFrameworkRoots scans target's immediate subdirectories for
// independently detectable framework roots.
func discoverFrameworkRoots(registry *platform.Registry, target string, opts Options) []string {
	entries, err := os.ReadDir(target)
	if err != nil {
		return nil
	}
	var roots []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		sub := filepath.Join(target, e.Name())
		if _, err := platform.Detect(registry, sub, opts.toPlatformFlags()); err == nil {
			roots = append(roots, sub)
		}
	}
	return roots
}

// postProcess runs after every adapter returns: decode metadata on every
// deployed bytecode, fold NatSpec, build the dependency graph used for
// topological library-link order.
func postProcess(project *model.Project, opts Options) {
	for _, unit := range project.Units() {
		for _, su := range unit.SourceUnits() {
			for _, c := range su.Contracts {
				if c.BytecodeRuntime != "" {
					stripped, meta := model.DecodeMetadata(c.BytecodeRuntime)
					c.BytecodeRuntimeStripped = stripped
					c.RuntimeMetadata = meta
					if opts.RemoveMetadata {
						c.BytecodeRuntime = stripped
					}
				}
				c.EnsureMethodIdentifiers()
				c.NatSpec() // warm the lazily-folded cache
			}
		}
		// The graph built here is discarded; callers that need link order
		// build their own with BuildDependencyGraph/TopologicalLinkOrder.
		_ = model.BuildDependencyGraph(unit)
	}
}

// Export renders project to every format named in opts.ExportFormats,
// writing files under opts.ExportDir (default crytic-export) and
// optionally packing them into a single zip.
func Export(project *model.Project, opts Options) error {
	dir := opts.ExportDir
	if dir == "" {
		dir = "crytic-export"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	zipFiles := make(map[string][]byte)

	for _, format := range opts.ExportFormats {
		switch format {
		case "standard":
			data, err := export.MarshalStandard(project)
			if err != nil {
				return err
			}
			if err := writeOrZip(dir, "contracts.json", data, opts, zipFiles); err != nil {
				return err
			}
		case "solc":
			data, err := export.MarshalSolc(project)
			if err != nil {
				return err
			}
			if err := writeOrZip(dir, "combined_solc.json", data, opts, zipFiles); err != nil {
				return err
			}
		case "truffle":
			files, err := export.MarshalTruffle(project)
			if err != nil {
				return err
			}
			for name, data := range files {
				if err := writeOrZip(dir, name, data, opts, zipFiles); err != nil {
					return err
				}
			}
		case "archive":
			data, err := export.MarshalArchive(project)
			if err != nil {
				return err
			}
			name := sanitizeTargetName(project.Target) + "_export_archive.json"
			if err := writeOrZip(dir, name, data, opts, zipFiles); err != nil {
				return err
			}
		default:
			log.Debug("unknown export format, skipping", "format", format)
		}
	}

	if opts.ExportZip != "" && len(zipFiles) > 0 {
		packed, err := export.ZipFiles(zipFiles)
		if err != nil {
			return err
		}
		return os.WriteFile(opts.ExportZip, packed, 0o644)
	}
	return nil
}

func writeOrZip(dir, name string, data []byte, opts Options, zipFiles map[string][]byte) error {
	if opts.ExportZip != "" {
		zipFiles[name] = data
		return nil
	}
	return os.WriteFile(filepath.Join(dir, name), data, 0o644)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func sanitizeTargetName(target string) string {
	base := filepath.Base(target)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if base == "" || base == "." || base == "/" {
		return "export"
	}
	return base
}
