// Copyright 2017 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

package hexutil

import (
	"math/big"
	"reflect"
)

var (
	bytesT   = reflect.TypeOf(Bytes(nil))
	bigT     = reflect.TypeOf((*Big)(nil))
	uintT    = reflect.TypeOf(Uint(0))
	uint64T  = reflect.TypeOf(Uint64(0))
	u256T    = reflect.TypeOf((*big.Int)(nil))
)

// Bytes marshals/unmarshals as a JSON string with 0x prefix.
type Bytes []byte

func (b Bytes) MarshalText() ([]byte, error) {
	result := make([]byte, len(b)*2+2)
	copy(result, `0x`)
	hexEncode(result[2:], b)
	return result, nil
}

func (b *Bytes) UnmarshalJSON(input []byte) error {
	if !isString(input) {
		return &decError{"non-string"}
	}
	return b.UnmarshalText(input[1 : len(input)-1])
}

func (b *Bytes) UnmarshalText(input []byte) error {
	raw, err := checkText(input, true)
	if err != nil {
		return err
	}
	dec := make([]byte, len(raw)/2)
	if err = decodeInto(raw, dec); err != nil {
		return err
	}
	*b = dec
	return nil
}

func (b Bytes) String() string { return Encode(b) }

// Big marshals/unmarshals as a JSON string with 0x prefix.
type Big big.Int

func (b Big) MarshalText() ([]byte, error) {
	return []byte("0x" + (*big.Int)(&b).Text(16)), nil
}

func (b *Big) UnmarshalText(input []byte) error {
	raw, err := checkText(input, true)
	if err != nil {
		return err
	}
	if len(raw) > 64 {
		return ErrBig256Range
	}
	bigInt := new(big.Int).SetBytes(hexBytes(raw))
	*b = (Big)(*bigInt)
	return nil
}

func (b *Big) ToInt() *big.Int {
	return (*big.Int)(b)
}

func (b *Big) String() string {
	if b == nil {
		return "0x0"
	}
	return Encode(b.ToInt().Bytes())
}

// Uint64 marshals/unmarshals as a JSON string with 0x prefix.
type Uint64 uint64

func (b Uint64) MarshalText() ([]byte, error) {
	return []byte(EncodeUint64(uint64(b))), nil
}

func (b *Uint64) UnmarshalText(input []byte) error {
	dec, err := DecodeUint64(string(input))
	if err != nil {
		return err
	}
	*b = Uint64(dec)
	return nil
}

// Uint marshals/unmarshals as a JSON string with 0x prefix.
type Uint uint

func (b Uint) MarshalText() ([]byte, error) {
	return []byte(EncodeUint64(uint64(b))), nil
}

func (b *Uint) UnmarshalText(input []byte) error {
	dec, err := DecodeUint64(string(input))
	if err != nil {
		return err
	}
	if uint64(uint(dec)) != dec {
		return ErrUintRange
	}
	*b = Uint(dec)
	return nil
}

func isString(input []byte) bool {
	return len(input) >= 2 && input[0] == '"' && input[len(input)-1] == '"'
}

func hexEncode(dst, src []byte) {
	const hextable = "0123456789abcdef"
	for i, v := range src {
		dst[i*2] = hextable[v>>4]
		dst[i*2+1] = hextable[v&0x0f]
	}
}

func hexBytes(raw []byte) []byte {
	dec := make([]byte, len(raw)/2)
	_ = decodeInto(raw, dec)
	return dec
}
