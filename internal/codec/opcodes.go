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

package codec

// The closed set of opcodes this package understands. Anything outside it
// (SIMD, bulk-memory, reference types, atomics) is rejected with
// ErrUnsupportedOpcode rather than silently passed through, per the mapping
// table this package implements.
const (
	opUnreachable byte = 0x00
	opNop         byte = 0x01
	opBlock       byte = 0x02
	opLoop        byte = 0x03
	opIf          byte = 0x04
	opElse        byte = 0x05
	opEnd         byte = 0x0B
	opBr          byte = 0x0C
	opBrIf        byte = 0x0D
	opBrTable     byte = 0x0E
	opReturn      byte = 0x0F
	opCall        byte = 0x10
	opCallIndir   byte = 0x11

	opDrop   byte = 0x1A
	opSelect byte = 0x1B

	opLocalGet  byte = 0x20
	opLocalSet  byte = 0x21
	opLocalTee  byte = 0x22
	opGlobalGet byte = 0x23
	opGlobalSet byte = 0x24

	opI32Load byte = 0x28
	opI64Load byte = 0x29
	opF32Load byte = 0x2A
	opF64Load byte = 0x2B

	opI32Store byte = 0x36
	opI64Store byte = 0x37
	opF32Store byte = 0x38
	opF64Store byte = 0x39

	opI32Const byte = 0x41
	opI64Const byte = 0x42
	opF32Const byte = 0x43
	opF64Const byte = 0x44
)

// blockType identifies the value type carried by a Block/Loop/If, per the
// single-byte encoding used when no multi-value type index is present.
func blockTypeToValType(b byte) (int, bool) {
	switch b {
	case 0x7F: // i32
		return 1, true
	case 0x7E: // i64
		return 2, true
	case 0x7D: // f32
		return 3, true
	case 0x7C: // f64
		return 4, true
	case 0x40: // empty (none)
		return 0, true
	}
	return 0, false
}

var binaryOps = map[byte]string{
	0x6A: "i32.add", 0x6B: "i32.sub", 0x6C: "i32.mul",
	0x6D: "i32.div_s", 0x6E: "i32.div_u", 0x6F: "i32.rem_s", 0x70: "i32.rem_u",
	0x71: "i32.and", 0x72: "i32.or", 0x73: "i32.xor",
	0x74: "i32.shl", 0x75: "i32.shr_s", 0x76: "i32.shr_u",
	0x46: "i32.eq", 0x47: "i32.ne",
	0x48: "i32.lt_s", 0x49: "i32.lt_u", 0x4A: "i32.gt_s", 0x4B: "i32.gt_u",
	0x4C: "i32.le_s", 0x4D: "i32.le_u", 0x4E: "i32.ge_s", 0x4F: "i32.ge_u",
}

var unaryOps = map[byte]string{
	0x45: "i32.eqz",
	0x67: "i32.clz", 0x68: "i32.ctz", 0x69: "i32.popcnt",
}
