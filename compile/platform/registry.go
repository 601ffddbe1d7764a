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
	"fmt"
	"regexp"
	"sort"

	"github.com/archon-sec/archon-compile/compile/model"
	"github.com/archon-sec/archon-compile/log"
)

// Registry holds every known Adapter, ordered by priority.
type Registry struct {
	adapters []Adapter
}

// NewRegistry returns a Registry pre-populated with every built-in adapter
// in priority order, lower first.
func NewRegistry() *Registry {
	r := &Registry{}
	r.Register(
		NewArchiveAdapter(),
		NewFoundryAdapter(),
		NewHardhatAdapter(hardhatV3),
		NewHardhatAdapter(hardhatV2),
		NewTruffleAdapter(),
		NewDappAdapter(),
		NewBrownieAdapter(),
		NewWaffleAdapter(),
		NewLegacyAdapter("Embark", 700, "embark.json"),
		NewLegacyAdapter("Etherlime", 800, "etherlime.config.js"),
		NewLegacyAdapter("Buidler", 900, "buidler.config.js"),
		NewDirectAdapter(),
	)
	return r
}

// Register adds adapters to the registry and keeps it sorted by Priority.
func (r *Registry) Register(adapters ...Adapter) {
	r.adapters = append(r.adapters, adapters...)
	sort.SliceStable(r.adapters, func(i, j int) bool {
		return r.adapters[i].Priority() < r.adapters[j].Priority()
	})
}

// Adapters returns the registry's adapters in priority order.
func (r *Registry) Adapters() []Adapter {
	return r.adapters
}

// ByName returns the adapter with the given Name, if registered.
func (r *Registry) ByName(name string) (Adapter, bool) {
	for _, a := range r.adapters {
		if a.Name() == name {
			return a, true
		}
	}
	return nil, false
}

var addressRe = regexp.MustCompile(`^(?:[a-zA-Z0-9_-]+:)?(?:sourcify-[0-9]+:)?0x[0-9a-fA-F]{40}$`)

// LooksLikeAddress reports whether target is a verification-fetcher
// dispatch signal: an optional chain prefix followed by a 40-hex
// 0x-address.
func LooksLikeAddress(target string) bool {
	return addressRe.MatchString(target)
}

// Detect picks the adapter for target: when flags.ForceFramework
// names an adapter, only that adapter's Detect is consulted (a false result
// is fatal); otherwise every adapter is tried in priority order and the
// first match wins.
func Detect(r *Registry, target string, flags Flags) (Adapter, error) {
	if flags.ForceFramework != "" {
		a, ok := r.ByName(flags.ForceFramework)
		if !ok {
			return nil, model.NewError(model.ErrNoPlatformDetected, flags.ForceFramework, target, 0,
				fmt.Errorf("unknown adapter %q", flags.ForceFramework))
		}
		if !a.Detect(target, flags) {
			return nil, model.NewError(model.ErrNoPlatformDetected, a.Name(), target, 0,
				fmt.Errorf("forced adapter %q does not recognize target", a.Name()))
		}
		return a, nil
	}

	for _, a := range r.adapters {
		if a.Detect(target, flags) {
			log.Debug("platform detected", "adapter", a.Name(), "target", target)
			return a, nil
		}
	}
	return nil, model.NewError(model.ErrNoPlatformDetected, "", target, 0, nil)
}

// Compile runs full detection-and-compile for a single target, installing
// every produced CompilationUnit into project.
func Compile(ctx context.Context, r *Registry, project *model.Project, target string, opts CompileOptions) error {
	adapter, err := Detect(r, target, opts.Flags)
	if err != nil {
		return err
	}

	project.Platform = adapter.Name()
	units, err := adapter.Compile(ctx, project, target, opts)
	if err != nil && opts.Flags.RetryWithClean {
		// Foundry 0.3.1 ships a known stale-cache bug: one clean-and-retry
		// before giving up.
		log.Debug("retrying after clean", "adapter", adapter.Name(), "target", target)
		if cerr := adapter.Clean(target, opts); cerr == nil {
			units, err = adapter.Compile(ctx, project, target, opts)
		}
	}
	if err != nil {
		return err
	}

	for _, u := range units {
		if err := project.AddUnit(u); err != nil {
			return err
		}
	}
	return nil
}
