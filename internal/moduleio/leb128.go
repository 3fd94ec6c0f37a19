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

package moduleio

import "github.com/dotandev/wasmprune/internal/errors"

// decodeULEB32Local and encodeULEB32Local mirror internal/codec's LEB128
// helpers. Section framing here is a distinct concern from function-body
// instruction decoding, so this package keeps its own copy rather than
// reaching into internal/codec's unexported helpers, matching the
// teacher's own per-package LEB128 duplication (internal/abi,
// internal/wasmopt, internal/wat each keep their own).
func decodeULEB32Local(data []byte, offset int) (uint32, int, error) {
	var result uint32
	var shift uint
	for i := 0; i < 5; i++ {
		if offset+i >= len(data) {
			return 0, 0, errors.WrapWasmInvalid("truncated section length")
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

func encodeULEB32Local(v uint32) []byte {
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
