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
	"encoding/json"

	"github.com/archon-sec/archon-compile/crypto"
)

// NatSpecSentinelKey is where free-standing contract-level documentation
// (the notice/title that isn't attached to any particular function) is
// filed.
const NatSpecSentinelKey = "@notice"

// NatSpecEntry is one function's (or the sentinel's) folded documentation.
type NatSpecEntry struct {
	Signature string          `json:"signature,omitempty"` // e.g. "transfer(address,uint256)"
	Selector  string          `json:"selector,omitempty"`  // 4-byte hex, empty for the sentinel
	UserNotice string         `json:"notice,omitempty"`
	DevDetails string         `json:"details,omitempty"`
	DevParams  json.RawMessage `json:"params,omitempty"`
	DevReturn  json.RawMessage `json:"return,omitempty"`
	Extra      map[string]json.RawMessage `json:"-"` // unrecognized keys, retained verbatim
}

// NatSpec is a contract's merged user- and developer-facing documentation,
// indexed by 4-byte function selector, with contract-level notes under
// NatSpecSentinelKey.
type NatSpec map[string]*NatSpecEntry

// natSpecDoc mirrors either of the two parallel JSON documents solc emits:
//
//	userdoc: {"methods": {"transfer(address,uint256)": {"notice": "..."}}, "notice": "..."}
//	devdoc:  {"methods": {"transfer(address,uint256)": {"details": "...", "params": {...}}}, "details": "..."}
type natSpecDoc struct {
	Methods map[string]map[string]json.RawMessage `json:"methods,omitempty"`
	Notice  json.RawMessage                        `json:"notice,omitempty"`
	Details json.RawMessage                        `json:"details,omitempty"`
	Title   json.RawMessage                        `json:"title,omitempty"`
	Author  json.RawMessage                        `json:"author,omitempty"`
}

// FoldNatSpec merges a contract's raw userdoc/devdoc JSON documents into one
// NatSpec record keyed by selector. Either document may be nil
// or empty; missing fields default to empty and unknown keys under a method
// entry are retained verbatim for forward compatibility.
func FoldNatSpec(userDocJSON, devDocJSON json.RawMessage) NatSpec {
	var user, dev natSpecDoc
	_ = json.Unmarshal(userDocJSON, &user)
	_ = json.Unmarshal(devDocJSON, &dev)

	out := make(NatSpec)

	signatures := make(map[string]struct{})
	for sig := range user.Methods {
		signatures[sig] = struct{}{}
	}
	for sig := range dev.Methods {
		signatures[sig] = struct{}{}
	}

	for sig := range signatures {
		entry := &NatSpecEntry{Signature: sig, Selector: selectorHex(sig)}
		if fields, ok := user.Methods[sig]; ok {
			entry.UserNotice = stringField(fields, "notice")
			entry.Extra = mergeExtra(entry.Extra, fields, "notice")
		}
		if fields, ok := dev.Methods[sig]; ok {
			entry.DevDetails = stringField(fields, "details")
			entry.DevParams = fields["params"]
			entry.DevReturn = fields["return"]
			entry.Extra = mergeExtra(entry.Extra, fields, "details", "params", "return")
		}
		out[entry.Selector] = entry
	}

	if sentinel := foldSentinel(user, dev); sentinel != nil {
		out[NatSpecSentinelKey] = sentinel
	}
	return out
}

func foldSentinel(user, dev natSpecDoc) *NatSpecEntry {
	if len(user.Notice) == 0 && len(dev.Details) == 0 && len(dev.Title) == 0 && len(dev.Author) == 0 {
		return nil
	}
	entry := &NatSpecEntry{}
	_ = json.Unmarshal(user.Notice, &entry.UserNotice)
	_ = json.Unmarshal(dev.Details, &entry.DevDetails)
	return entry
}

// selectorHex computes the 4-byte function selector for a "name(types)"
// signature, using the same Keccak256 the ABI package relies on internally.
func selectorHex(signature string) string {
	digest := crypto.Keccak256([]byte(signature))
	return hexLower(digest[:4])
}

func hexLower(b []byte) string {
	const hexdigits = "0123456789abcdef"
	out := make([]byte, len(b)*2)
	for i, v := range b {
		out[i*2] = hexdigits[v>>4]
		out[i*2+1] = hexdigits[v&0x0f]
	}
	return string(out)
}

func stringField(fields map[string]json.RawMessage, key string) string {
	raw, ok := fields[key]
	if !ok {
		return ""
	}
	var s string
	_ = json.Unmarshal(raw, &s)
	return s
}

func mergeExtra(into map[string]json.RawMessage, fields map[string]json.RawMessage, known ...string) map[string]json.RawMessage {
	knownSet := make(map[string]struct{}, len(known))
	for _, k := range known {
		knownSet[k] = struct{}{}
	}
	for k, v := range fields {
		if _, isKnown := knownSet[k]; isKnown {
			continue
		}
		if into == nil {
			into = make(map[string]json.RawMessage)
		}
		into[k] = v
	}
	return into
}
