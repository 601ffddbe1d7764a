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
	"encoding/binary"
	"encoding/hex"
	"strings"

	"github.com/fxamacker/cbor/v2"
)

// Metadata is the decoded form of the CBOR trailer Solidity appends to
// deployed bytecode. Keys are normalized to lowercase; unknown
// keys are not retained here (unlike NatSpec, the trailer's key set is
// small and fixed in practice), but decoding never fails the caller: a
// malformed or absent trailer just yields a zero-value Metadata.
type Metadata struct {
	IPFS         string // multibase display of the "ipfs" key
	Bzzr0        string // hex of the "bzzr0" key
	Bzzr1        string // hex of the "bzzr1" key
	Solc         string // dotted compiler version, or "unknown"
	Experimental bool
	present      bool
}

// Present reports whether a trailer was actually found and decoded.
func (m Metadata) Present() bool { return m.present }

// DecodeMetadata splits deployed bytecode into its runtime code and
// metadata trailer and decodes the trailer.
// Failure to decode is non-fatal: the returned code is untouched and meta
// is the zero value.
func DecodeMetadata(deployedBytecodeHex string) (code string, meta Metadata) {
	raw, err := hex.DecodeString(strings.TrimPrefix(deployedBytecodeHex, "0x"))
	if err != nil || len(raw) < 2 {
		return deployedBytecodeHex, Metadata{}
	}

	length := binary.BigEndian.Uint16(raw[len(raw)-2:])
	if int(length)+2 > len(raw) {
		// Length exceeds the remaining bytecode: treat as no metadata.
		return deployedBytecodeHex, Metadata{}
	}

	cborStart := len(raw) - 2 - int(length)
	cborPayload := raw[cborStart : len(raw)-2]

	var fields map[string]interface{}
	if err := cbor.Unmarshal(cborPayload, &fields); err != nil {
		return deployedBytecodeHex, Metadata{}
	}

	meta = decodeFields(fields)
	meta.present = true
	runtime := raw[:cborStart]
	return hex.EncodeToString(runtime), meta
}

func decodeFields(fields map[string]interface{}) Metadata {
	var m Metadata
	for k, v := range fields {
		switch strings.ToLower(k) {
		case "ipfs":
			if b, ok := toBytes(v); ok {
				m.IPFS = multibaseDisplay(b)
			}
		case "bzzr0":
			if b, ok := toBytes(v); ok {
				m.Bzzr0 = hex.EncodeToString(b)
			}
		case "bzzr1":
			if b, ok := toBytes(v); ok {
				m.Bzzr1 = hex.EncodeToString(b)
			}
		case "solc":
			if b, ok := toBytes(v); ok {
				m.Solc = solcVersionString(b)
			}
		case "experimental":
			if b, ok := v.(bool); ok {
				m.Experimental = b
			}
		}
	}
	return m
}

func toBytes(v interface{}) ([]byte, bool) {
	b, ok := v.([]byte)
	return b, ok
}

// solcVersionString renders the 3-byte solc metadata encoding as a dotted
// version string, or "unknown" if the encoding isn't 3 bytes.
func solcVersionString(b []byte) string {
	if len(b) != 3 {
		return "unknown"
	}
	return itoa(int(b[0])) + "." + itoa(int(b[1])) + "." + itoa(int(b[2]))
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [3]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

// multibaseDisplay renders an IPFS CIDv0 (raw multihash bytes) using the
// 'f' (base16) multibase prefix used by on-disk tooling; a full multibase
// base58btc codec is out of scope for this layer.
func multibaseDisplay(b []byte) string {
	return "f" + hex.EncodeToString(b)
}
