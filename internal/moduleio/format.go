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

// Package moduleio dispatches a module path to a binary or textual reader
// and writer, so the tree-level DCE pass (internal/dce) and the
// whole-module call-graph pass (internal/wasmopt) have something to run on
// when invoked from the command line. It is an external collaborator to
// the pass, not part of its correctness: the pass only ever sees decoded
// Expression trees (internal/codec bridges those two halves).
package moduleio

import "strings"

// Format identifies which of the two module encodings a path holds.
type Format int

const (
	FormatBinary Format = iota
	FormatText
)

func (f Format) String() string {
	if f == FormatBinary {
		return "binary"
	}
	return "text"
}

var wasmMagic = [4]byte{0x00, 0x61, 0x73, 0x6d} // \0asm

// DetectFormat dispatches by suffix first, falling back to a magic-number
// sniff of the first four bytes for any other extension. peek may be
// shorter than four bytes, in which case the input is treated as text
// (a truncated file cannot be a valid binary module anyway).
//
// The sniff compares bytes 0, 1, 2 and 3 against the four magic bytes
// respectively. An earlier revision of this check compared index 0 against
// all four magic bytes, which only a file starting with four identical
// bytes equal to 0x00 could ever satisfy — impossible, since the WASM
// magic bytes are not all the same. Grounded on the already-correct
// four-way index check in internal/abi.ExtractCustomSection.
func DetectFormat(name string, peek []byte) Format {
	switch {
	case strings.HasSuffix(name, ".wasm"):
		return FormatBinary
	case strings.HasSuffix(name, ".wast"), strings.HasSuffix(name, ".wat"):
		return FormatText
	}
	if len(peek) < 4 {
		return FormatText
	}
	if peek[0] == wasmMagic[0] && peek[1] == wasmMagic[1] &&
		peek[2] == wasmMagic[2] && peek[3] == wasmMagic[3] {
		return FormatBinary
	}
	return FormatText
}

// WriteFormat mirrors DetectFormat for output paths: .wasm writes binary,
// anything else writes text. There is no magic-sniff step on write since
// there is no file content yet to sniff.
func WriteFormat(name string) Format {
	if strings.HasSuffix(name, ".wasm") {
		return FormatBinary
	}
	return FormatText
}
