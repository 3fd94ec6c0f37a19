// Copyright (c) 2026 dotandev
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package codec bridges raw WASM function-body bytecode and the
// internal/wasm Expression tree: Decode builds a tree from a function's
// instruction stream, Encode renders a (possibly rewritten) tree back to
// bytecode. See the mapping table this package implements for the closed
// set of opcodes it understands.
package codec

import "github.com/dotandev/wasmprune/internal/errors"

func decodeULEB32(data []byte, offset int) (uint32, int, error) {
	var result uint32
	var shift uint
	for i := 0; i < 5; i++ {
		if offset+i >= len(data) {
			return 0, 0, errors.WrapWasmInvalid("truncated uleb128")
		}
		b := data[offset+i]
		result |= uint32(b&0x7f) << shift
		if b&0x80 == 0 {
			return result, i + 1, nil
		}
		shift += 7
	}
	return 0, 0, errors.WrapWasmInvalid("uleb128 too long")
}

func decodeSLEB32(data []byte, offset int) (int32, int, error) {
	var result int64
	var shift uint
	var b byte
	n := 0
	for {
		if offset+n >= len(data) {
			return 0, 0, errors.WrapWasmInvalid("truncated sleb128")
		}
		b = data[offset+n]
		result |= int64(b&0x7f) << shift
		shift += 7
		n++
		if b&0x80 == 0 {
			break
		}
		if shift >= 64 {
			return 0, 0, errors.WrapWasmInvalid("sleb128 too long")
		}
	}
	if shift < 64 && b&0x40 != 0 {
		result |= -1 << shift
	}
	return int32(result), n, nil
}

func decodeSLEB64(data []byte, offset int) (int64, int, error) {
	var result int64
	var shift uint
	var b byte
	n := 0
	for {
		if offset+n >= len(data) {
			return 0, 0, errors.WrapWasmInvalid("truncated sleb128")
		}
		b = data[offset+n]
		result |= int64(b&0x7f) << shift
		shift += 7
		n++
		if b&0x80 == 0 {
			break
		}
		if shift >= 64 {
			return 0, 0, errors.WrapWasmInvalid("sleb128 too long")
		}
	}
	if shift < 64 && b&0x40 != 0 {
		result |= -1 << shift
	}
	return result, n, nil
}

func encodeULEB32(v uint32) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			out = append(out, b|0x80)
		} else {
			out = append(out, b)
			break
		}
	}
	return out
}

func encodeSLEB64(v int64) []byte {
	var out []byte
	more := true
	for more {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			more = false
		} else {
			b |= 0x80
		}
		out = append(out, b)
	}
	return out
}
