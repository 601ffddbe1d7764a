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

package model

import (
	"sort"
	"strings"

	"github.com/archon-sec/archon-compile/common/lru"
)

// placeholderLength is the fixed width of a Solidity library placeholder
// token: "__" + 36 characters + "__".
const placeholderLength = 40

// placeholder computes the `__<name, truncated/padded to 36>__` token for a
// library name.
func placeholder(name string) string {
	const bodyLen = placeholderLength - 4 // 4 for the two "__" delimiters
	body := name
	if len(body) > bodyLen {
		body = body[:bodyLen]
	} else if len(body) < bodyLen {
		body = body + strings.Repeat("_", bodyLen-len(body))
	}
	return "__" + body + "__"
}

// LibraryMap is a library name to 40-hex (no 0x prefix) address mapping.
type LibraryMap map[string]string

// fingerprint produces a stable cache key for a LibraryMap, independent of
// iteration order.
func (m LibraryMap) fingerprint() string {
	names := make([]string, 0, len(m))
	for n := range m {
		names = append(names, n)
	}
	sort.Strings(names)
	var b strings.Builder
	for _, n := range names {
		b.WriteString(n)
		b.WriteByte('=')
		b.WriteString(strings.ToLower(m[n]))
		b.WriteByte(';')
	}
	return b.String()
}

// linkCache caches fully linked bytecode per (template, library-map
// fingerprint). It is per-CompilationUnit and deliberately unshared
// across units.
type linkCache struct {
	byKey lru.BasicLRU[linkCacheKey, string]
}

func newLinkCache() *linkCache {
	return &linkCache{byKey: lru.NewCache[linkCacheKey, string](256)}
}

type linkCacheKey struct {
	template    string
	fingerprint string
}

// linkCached links template against libs, consulting and populating the
// cache. Identical (template, fingerprint) pairs always return the same
// result without re-running the substitution.
func (c *linkCache) linkCached(template string, libs LibraryMap) (string, error) {
	key := linkCacheKey{template: template, fingerprint: libs.fingerprint()}
	if cached, ok := c.byKey.Get(key); ok {
		return cached, nil
	}
	linked, err := LinkBytecode(template, libs)
	if err != nil {
		return "", err
	}
	c.byKey.Add(key, linked)
	return linked, nil
}

// LinkBytecode resolves every placeholder in template using libs, returning
// the concrete bytecode. Unresolved placeholders are a fatal
// unresolved_library(N) error; partial linking across repeated calls with a
// growing map is explicitly supported.
func LinkBytecode(template string, libs LibraryMap) (string, error) {
	out := template
	for name, addr := range libs {
		tok := placeholder(name)
		out = strings.ReplaceAll(out, tok, strings.ToLower(strings.TrimPrefix(addr, "0x")))
	}
	if name, ok := firstUnresolvedPlaceholder(out, libs); ok {
		return "", unresolvedLibraryError(name)
	}
	return out, nil
}

// firstUnresolvedPlaceholder scans out for a remaining `__..__` token. Any
// such token must name a library absent from libs, since every token for a
// library present in libs was already replaced; it reports the best-guess
// library name recovered from the padded placeholder body.
func firstUnresolvedPlaceholder(out string, libs LibraryMap) (string, bool) {
	idx := 0
	for {
		start := strings.Index(out[idx:], "__")
		if start < 0 {
			return "", false
		}
		start += idx
		if start+placeholderLength > len(out) {
			return "", false
		}
		token := out[start : start+placeholderLength]
		if !strings.HasSuffix(token, "__") {
			idx = start + 2
			continue
		}
		body := strings.TrimSuffix(strings.TrimPrefix(token, "__"), "__")
		name := strings.TrimRight(body, "_")
		if name == "" {
			name = body
		}
		return name, true
	}
}

// LinkBytecodePartial substitutes every placeholder libs covers and leaves
// the rest in place, for callers that link in stages. It never fails; a
// follow-up LinkBytecode call with the remaining addresses finishes the
// job.
func LinkBytecodePartial(template string, libs LibraryMap) string {
	out := template
	for name, addr := range libs {
		out = strings.ReplaceAll(out, placeholder(name), strings.ToLower(strings.TrimPrefix(addr, "0x")))
	}
	return out
}

// RequiredLibraries returns the set of library names whose placeholder
// token appears in template, useful before asking a caller which addresses
// to supply.
func RequiredLibraries(template string, candidates []string) []string {
	var out []string
	for _, name := range candidates {
		if strings.Contains(template, placeholder(name)) {
			out = append(out, name)
		}
	}
	return out
}
