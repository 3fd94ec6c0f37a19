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

import (
	"bytes"
	"fmt"

	"github.com/dotandev/wasmprune/internal/codec"
	"github.com/dotandev/wasmprune/internal/errors"
	"github.com/dotandev/wasmprune/internal/wasm"
)

const (
	sectionType     = 1
	sectionFunction = 3
	sectionExport   = 7
	sectionCode     = 10
)

// ParseBinary decodes a minimal WASM module: no imports, one shared
// () -> () function type, every defined function exported under its
// declared name. This is enough to round-trip the modules this tool
// itself writes; a module built by a general-purpose toolchain with
// richer types, imports or memories is read only as far as its function
// bodies (internal/wasmopt, not this package, handles the full section
// set for the whole-module call-graph pass).
func ParseBinary(data []byte) (*Module, error) {
	if len(data) < 8 || !bytes.Equal(data[:4], wasmMagic[:]) {
		return nil, errors.WrapWasmInvalid("missing module header")
	}
	pos := 8
	var codeBodies [][]byte
	names := map[int]string{}
	for pos < len(data) {
		id := data[pos]
		pos++
		size, n, err := decodeULEB32Local(data, pos)
		if err != nil {
			return nil, err
		}
		pos += n
		if pos+int(size) > len(data) {
			return nil, errors.WrapWasmInvalid("section out of bounds")
		}
		payload := data[pos : pos+int(size)]
		pos += int(size)

		switch id {
		case sectionCode:
			bodies, err := parseCodeSectionLocal(payload)
			if err != nil {
				return nil, err
			}
			codeBodies = bodies
		case sectionExport:
			if err := parseExportNames(payload, names); err != nil {
				return nil, err
			}
		}
	}

	m := &Module{}
	for i, body := range codeBodies {
		tree, err := codec.Decode(body, 0)
		if err != nil {
			return nil, fmt.Errorf("function %d: %w", i, err)
		}
		name, ok := names[i]
		if !ok {
			name = fmt.Sprintf("func%d", i)
		}
		resolveCallNames(tree, names)
		m.Functions = append(m.Functions, Function{Name: name, Body: tree})
	}
	return m, nil
}

// EncodeBinary assembles m into a minimal standalone module: a single
// () -> () type, one defined function per m.Functions entry (in order),
// all exported under their declared names.
func EncodeBinary(m *Module) ([]byte, error) {
	indexOf := make(map[string]int, len(m.Functions))
	for i, fn := range m.Functions {
		indexOf[fn.Name] = i
	}

	var codePayload bytes.Buffer
	codePayload.Write(encodeULEB32Local(uint32(len(m.Functions))))
	for _, fn := range m.Functions {
		resolveCallIndices(fn.Body, indexOf)
		instrs, err := codec.Encode(fn.Body)
		if err != nil {
			return nil, fmt.Errorf("function %s: %w", fn.Name, err)
		}
		body := append([]byte{0x00}, instrs...) // zero local declarations
		codePayload.Write(encodeULEB32Local(uint32(len(body))))
		codePayload.Write(body)
	}

	var funcPayload bytes.Buffer
	funcPayload.Write(encodeULEB32Local(uint32(len(m.Functions))))
	for range m.Functions {
		funcPayload.Write(encodeULEB32Local(0)) // shared type index 0
	}

	var typePayload bytes.Buffer
	typePayload.Write(encodeULEB32Local(1))
	typePayload.WriteByte(0x60) // func type tag
	typePayload.Write(encodeULEB32Local(0))
	typePayload.Write(encodeULEB32Local(0))

	var exportPayload bytes.Buffer
	exportPayload.Write(encodeULEB32Local(uint32(len(m.Functions))))
	for i, fn := range m.Functions {
		exportPayload.Write(encodeULEB32Local(uint32(len(fn.Name))))
		exportPayload.WriteString(fn.Name)
		exportPayload.WriteByte(0x00) // export kind: function
		exportPayload.Write(encodeULEB32Local(uint32(i)))
	}

	var out bytes.Buffer
	out.Write(wasmMagic[:])
	out.Write([]byte{0x01, 0x00, 0x00, 0x00})
	writeSection(&out, sectionType, typePayload.Bytes())
	writeSection(&out, sectionFunction, funcPayload.Bytes())
	writeSection(&out, sectionExport, exportPayload.Bytes())
	writeSection(&out, sectionCode, codePayload.Bytes())
	return out.Bytes(), nil
}

func writeSection(out *bytes.Buffer, id byte, payload []byte) {
	out.WriteByte(id)
	out.Write(encodeULEB32Local(uint32(len(payload))))
	out.Write(payload)
}

func parseCodeSectionLocal(payload []byte) ([][]byte, error) {
	pos := 0
	count, n, err := decodeULEB32Local(payload, pos)
	if err != nil {
		return nil, err
	}
	pos += n
	out := make([][]byte, 0, count)
	for i := uint32(0); i < count; i++ {
		size, n, err := decodeULEB32Local(payload, pos)
		if err != nil {
			return nil, err
		}
		pos += n
		if pos+int(size) > len(payload) {
			return nil, errors.WrapWasmInvalid("function body out of bounds")
		}
		body := payload[pos : pos+int(size)]
		pos += int(size)
		// Skip the local-declarations prefix: count of decl groups, then
		// (count, type) pairs, before the instruction stream proper.
		lp := 0
		declCount, n, err := decodeULEB32Local(body, lp)
		if err != nil {
			return nil, err
		}
		lp += n
		for d := uint32(0); d < declCount; d++ {
			_, n, err := decodeULEB32Local(body, lp)
			if err != nil {
				return nil, err
			}
			lp += n + 1 // count, then one type byte
		}
		out = append(out, body[lp:])
	}
	return out, nil
}

func parseExportNames(payload []byte, names map[int]string) error {
	pos := 0
	count, n, err := decodeULEB32Local(payload, pos)
	if err != nil {
		return err
	}
	pos += n
	for i := uint32(0); i < count; i++ {
		nameLen, n, err := decodeULEB32Local(payload, pos)
		if err != nil {
			return err
		}
		pos += n
		if pos+int(nameLen) > len(payload) {
			return errors.WrapWasmInvalid("export name out of bounds")
		}
		name := string(payload[pos : pos+int(nameLen)])
		pos += int(nameLen)
		if pos >= len(payload) {
			return errors.WrapWasmInvalid("export entry truncated")
		}
		kind := payload[pos]
		pos++
		idx, n, err := decodeULEB32Local(payload, pos)
		if err != nil {
			return err
		}
		pos += n
		if kind == 0x00 {
			names[int(idx)] = name
		}
	}
	return nil
}

// resolveCallNames fills in Target from Index using the export name table,
// after a binary decode (which only ever sets Index).
func resolveCallNames(e *wasm.Expression, names map[int]string) {
	if e == nil {
		return
	}
	if e.Kind == wasm.KindCall || e.Kind == wasm.KindCallImport {
		if n, ok := names[e.Index]; ok {
			e.Target = n
		}
	}
	walkChildren(e, func(c *wasm.Expression) { resolveCallNames(c, names) })
}

// resolveCallIndices fills in Index from Target using the module's own
// function table, before a binary encode (text sources only ever set
// Target).
func resolveCallIndices(e *wasm.Expression, indexOf map[string]int) {
	if e == nil {
		return
	}
	if e.Kind == wasm.KindCall || e.Kind == wasm.KindCallImport {
		if idx, ok := indexOf[e.Target]; ok {
			e.Index = idx
		}
	}
	walkChildren(e, func(c *wasm.Expression) { resolveCallIndices(c, indexOf) })
}

func walkChildren(e *wasm.Expression, visit func(*wasm.Expression)) {
	switch e.Kind {
	case wasm.KindBlock, wasm.KindLoop:
		for _, c := range e.Children {
			visit(c)
		}
	case wasm.KindIf:
		visit(e.Condition)
		visit(e.IfTrue)
		if e.IfFalse != nil {
			visit(e.IfFalse)
		}
	case wasm.KindBreak:
		if e.BreakValue != nil {
			visit(e.BreakValue)
		}
		if e.BreakCondition != nil {
			visit(e.BreakCondition)
		}
	case wasm.KindSwitch:
		if e.BreakValue != nil {
			visit(e.BreakValue)
		}
		visit(e.Condition)
	case wasm.KindCall, wasm.KindCallImport, wasm.KindHost:
		for _, op := range e.Operands {
			visit(op)
		}
	case wasm.KindCallIndirect:
		for _, op := range e.Operands {
			visit(op)
		}
		if e.CallIndex != nil {
			visit(e.CallIndex)
		}
	case wasm.KindSetLocal, wasm.KindSetGlobal:
		visit(e.Value)
	case wasm.KindLoad:
		visit(e.Ptr)
	case wasm.KindStore:
		visit(e.Ptr)
		visit(e.Stored)
	case wasm.KindUnary:
		visit(e.Left)
	case wasm.KindBinary:
		visit(e.Left)
		visit(e.Right)
	case wasm.KindSelect:
		visit(e.IfTrueVal)
		visit(e.IfFalseVal)
		visit(e.SelectCond)
	case wasm.KindDrop:
		visit(e.Operand)
	case wasm.KindReturn:
		if e.ReturnValue != nil {
			visit(e.ReturnValue)
		}
	}
}
