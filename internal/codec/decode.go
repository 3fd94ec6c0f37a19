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

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/dotandev/wasmprune/internal/errors"
	"github.com/dotandev/wasmprune/internal/wasm"
)

// decoder walks a function body's instruction stream and builds the
// Expression tree the DCE pass operates on. Structured control opcodes
// (block/loop/if/else/end) get synthetic depth-based labels, resolved here
// and reversed by Encode.
type decoder struct {
	data       []byte
	pos        int
	labelStack []string // outermost first; br operands index from the innermost entry
	stack      []*wasm.Expression
	importFns  int // call indices below this count address imported functions
}

// pop removes and returns the top of the value stack. WASM bytecode is a
// stack machine; reconstructing the tree means threading operands through
// this stack as each instruction consumes what the ones before it pushed.
// An empty stack at a pop site means the input was malformed (an operand
// was never pushed) or, after an unreachable instruction, polymorphic per
// the WASM stack typing rules; either way a placeholder Unreachable keeps
// decoding going rather than panicking on a truncated slice.
func (d *decoder) pop() *wasm.Expression {
	if len(d.stack) == 0 {
		return wasm.Unreachable()
	}
	v := d.stack[len(d.stack)-1]
	d.stack = d.stack[:len(d.stack)-1]
	return v
}

func (d *decoder) push(e *wasm.Expression) {
	d.stack = append(d.stack, e)
}

// Decode builds the Expression tree for one function's body, given the
// instruction bytes up to (but not including) the function's own closing
// end. importFns is the number of imported functions in the module: a call
// index below it addresses an import and decodes to CallImport rather than
// Call, per the combined function index space WASM uses for call targets.
func Decode(body []byte, importFns int) (*wasm.Expression, error) {
	d := &decoder{data: body, importFns: importFns}
	exprs, _, err := d.decodeSequence(-1)
	if err != nil {
		return nil, err
	}
	if d.pos != len(d.data) {
		return nil, errors.WrapWasmInvalid("trailing bytes after function body")
	}
	return wasm.Block(exprs, wasm.TypeNone), nil
}

// decodeSequence decodes instructions until it hits the `end` opcode that
// closes this nesting level, or `else` if this is an if-then arm. kind is -1
// for the function's own implicit block. The returned bool reports whether
// the sequence stopped at `else` (always false for kind == -1).
func (d *decoder) decodeSequence(kind int) ([]*wasm.Expression, bool, error) {
	var out []*wasm.Expression
	stackBase := len(d.stack)

	flush := func() {
		out = append(out, d.stack[stackBase:]...)
		d.stack = d.stack[:stackBase]
	}

	for {
		if d.pos >= len(d.data) {
			if kind == -1 {
				flush()
				return out, false, nil
			}
			return nil, false, errors.WrapWasmInvalid("unterminated block")
		}
		op := d.data[d.pos]
		if op == opEnd {
			d.pos++
			flush()
			return out, false, nil
		}
		if op == opElse {
			if kind == -1 {
				return nil, false, errors.WrapWasmInvalid("unexpected else outside if")
			}
			d.pos++
			flush()
			return out, true, nil
		}
		expr, err := d.decodeInstruction()
		if err != nil {
			return nil, false, err
		}
		if expr != nil {
			out = append(out, expr)
		}
	}
}

func (d *decoder) label(depth int) string {
	return fmt.Sprintf("L%d", depth)
}

func (d *decoder) breakTarget(relDepth uint32) (string, error) {
	idx := len(d.labelStack) - 1 - int(relDepth)
	if idx < 0 || idx >= len(d.labelStack) {
		return "", errors.WrapMalformedBreakTarget(fmt.Sprintf("relative depth %d", relDepth))
	}
	return d.labelStack[idx], nil
}

func (d *decoder) decodeInstruction() (*wasm.Expression, error) {
	op := d.data[d.pos]
	d.pos++

	switch op {
	case opUnreachable:
		return wasm.Unreachable(), nil
	case opNop:
		return &wasm.Expression{Kind: wasm.KindNop, Type: wasm.TypeNone}, nil

	case opBlock, opLoop:
		return d.decodeStructured(op)
	case opIf:
		return d.decodeIf()

	case opBr, opBrIf:
		rel, n, err := decodeULEB32(d.data, d.pos)
		if err != nil {
			return nil, err
		}
		d.pos += n
		target, err := d.breakTarget(rel)
		if err != nil {
			return nil, err
		}
		br := &wasm.Expression{Kind: wasm.KindBreak, Type: wasm.TypeNone, Name: target}
		if op == opBrIf {
			br.BreakCondition = d.pop()
		} else {
			br.Type = wasm.TypeUnreachable
		}
		return br, nil

	case opBrTable:
		count, n, err := decodeULEB32(d.data, d.pos)
		if err != nil {
			return nil, err
		}
		d.pos += n
		targets := make([]string, 0, count)
		for i := uint32(0); i < count; i++ {
			rel, nn, err := decodeULEB32(d.data, d.pos)
			if err != nil {
				return nil, err
			}
			d.pos += nn
			t, err := d.breakTarget(rel)
			if err != nil {
				return nil, err
			}
			targets = append(targets, t)
		}
		defRel, n, err := decodeULEB32(d.data, d.pos)
		if err != nil {
			return nil, err
		}
		d.pos += n
		def, err := d.breakTarget(defRel)
		if err != nil {
			return nil, err
		}
		return &wasm.Expression{
			Kind:          wasm.KindSwitch,
			Type:          wasm.TypeUnreachable,
			SwitchTargets: targets,
			SwitchDefault: def,
			Condition:     d.pop(),
		}, nil

	case opReturn:
		r := &wasm.Expression{Kind: wasm.KindReturn, Type: wasm.TypeUnreachable}
		if len(d.stack) > 0 {
			r.ReturnValue = d.pop()
		}
		return r, nil

	case opCall:
		idx, n, err := decodeULEB32(d.data, d.pos)
		if err != nil {
			return nil, err
		}
		d.pos += n
		kind := wasm.KindCall
		if int(idx) < d.importFns {
			kind = wasm.KindCallImport
		}
		// The callee's arity is carried by the type section, which this
		// package does not parse in isolation; callers that need operands
		// wired up precisely should pre-resolve them before invoking Decode.
		d.push(&wasm.Expression{Kind: kind, Type: wasm.TypeNone, Index: int(idx)})
		return nil, nil

	case opCallIndir:
		typeIdx, n, err := decodeULEB32(d.data, d.pos)
		if err != nil {
			return nil, err
		}
		d.pos += n
		_, n, err = decodeULEB32(d.data, d.pos) // table index, always 0 in MVP
		if err != nil {
			return nil, err
		}
		d.pos += n
		d.push(&wasm.Expression{
			Kind:      wasm.KindCallIndirect,
			Type:      wasm.TypeNone,
			Index:     int(typeIdx),
			CallIndex: d.pop(),
		})
		return nil, nil

	case opDrop:
		return &wasm.Expression{Kind: wasm.KindDrop, Type: wasm.TypeNone, Operand: d.pop()}, nil
	case opSelect:
		cond := d.pop()
		ifFalse := d.pop()
		ifTrue := d.pop()
		d.push(&wasm.Expression{Kind: wasm.KindSelect, Type: wasm.TypeI32, IfTrueVal: ifTrue, IfFalseVal: ifFalse, SelectCond: cond})
		return nil, nil

	case opLocalGet:
		idx, n, err := decodeULEB32(d.data, d.pos)
		if err != nil {
			return nil, err
		}
		d.pos += n
		d.push(&wasm.Expression{Kind: wasm.KindGetLocal, Type: wasm.TypeI32, Index: int(idx)})
		return nil, nil
	case opLocalSet, opLocalTee:
		idx, n, err := decodeULEB32(d.data, d.pos)
		if err != nil {
			return nil, err
		}
		d.pos += n
		set := &wasm.Expression{Kind: wasm.KindSetLocal, Type: wasm.TypeNone, Index: int(idx), IsTee: op == opLocalTee, Value: d.pop()}
		if op == opLocalTee {
			d.push(set)
			return nil, nil
		}
		return set, nil
	case opGlobalGet:
		idx, n, err := decodeULEB32(d.data, d.pos)
		if err != nil {
			return nil, err
		}
		d.pos += n
		d.push(&wasm.Expression{Kind: wasm.KindGetGlobal, Type: wasm.TypeI32, Index: int(idx)})
		return nil, nil
	case opGlobalSet:
		idx, n, err := decodeULEB32(d.data, d.pos)
		if err != nil {
			return nil, err
		}
		d.pos += n
		return &wasm.Expression{Kind: wasm.KindSetGlobal, Type: wasm.TypeNone, Index: int(idx), Value: d.pop()}, nil

	case opI32Load, opI64Load, opF32Load, opF64Load:
		if err := d.skipMemarg(); err != nil {
			return nil, err
		}
		d.push(&wasm.Expression{Kind: wasm.KindLoad, Type: loadType(op), Ptr: d.pop()})
		return nil, nil
	case opI32Store, opI64Store, opF32Store, opF64Store:
		if err := d.skipMemarg(); err != nil {
			return nil, err
		}
		stored := d.pop()
		ptr := d.pop()
		return &wasm.Expression{Kind: wasm.KindStore, Type: wasm.TypeNone, Ptr: ptr, Stored: stored}, nil

	case opI32Const:
		v, n, err := decodeSLEB32(d.data, d.pos)
		if err != nil {
			return nil, err
		}
		d.pos += n
		d.push(&wasm.Expression{Kind: wasm.KindConst, Type: wasm.TypeI32, I32Value: v})
		return nil, nil
	case opI64Const:
		v, n, err := decodeSLEB64(d.data, d.pos)
		if err != nil {
			return nil, err
		}
		d.pos += n
		d.push(&wasm.Expression{Kind: wasm.KindConst, Type: wasm.TypeI64, I64Value: v})
		return nil, nil
	case opF32Const:
		if d.pos+4 > len(d.data) {
			return nil, errors.WrapWasmInvalid("truncated f32.const")
		}
		bits := binary.LittleEndian.Uint32(d.data[d.pos : d.pos+4])
		d.pos += 4
		d.push(&wasm.Expression{Kind: wasm.KindConst, Type: wasm.TypeF32, F32Value: math.Float32frombits(bits)})
		return nil, nil
	case opF64Const:
		if d.pos+8 > len(d.data) {
			return nil, errors.WrapWasmInvalid("truncated f64.const")
		}
		bits := binary.LittleEndian.Uint64(d.data[d.pos : d.pos+8])
		d.pos += 8
		d.push(&wasm.Expression{Kind: wasm.KindConst, Type: wasm.TypeF64, F64Value: math.Float64frombits(bits)})
		return nil, nil

	default:
		if name, ok := binaryOps[op]; ok {
			right := d.pop()
			left := d.pop()
			d.push(&wasm.Expression{Kind: wasm.KindBinary, Type: wasm.TypeI32, Op: name, Left: left, Right: right})
			return nil, nil
		}
		if name, ok := unaryOps[op]; ok {
			d.push(&wasm.Expression{Kind: wasm.KindUnary, Type: wasm.TypeI32, Op: name, Left: d.pop()})
			return nil, nil
		}
		return nil, errors.WrapUnsupportedOpcode(op)
	}
}

func loadType(op byte) wasm.ValType {
	switch op {
	case opI32Load:
		return wasm.TypeI32
	case opI64Load:
		return wasm.TypeI64
	case opF32Load:
		return wasm.TypeF32
	default:
		return wasm.TypeF64
	}
}

func (d *decoder) skipMemarg() error {
	_, n, err := decodeULEB32(d.data, d.pos) // align
	if err != nil {
		return err
	}
	d.pos += n
	_, n, err = decodeULEB32(d.data, d.pos) // offset
	if err != nil {
		return err
	}
	d.pos += n
	return nil
}

func (d *decoder) decodeStructured(op byte) (*wasm.Expression, error) {
	if d.pos >= len(d.data) {
		return nil, errors.WrapWasmInvalid("truncated block type")
	}
	t, ok := blockTypeToValType(d.data[d.pos])
	if !ok {
		return nil, errors.WrapWasmInvalid("unsupported block type")
	}
	d.pos++

	depth := len(d.labelStack)
	name := d.label(depth)
	d.labelStack = append(d.labelStack, name)
	children, _, err := d.decodeSequence(0)
	d.labelStack = d.labelStack[:len(d.labelStack)-1]
	if err != nil {
		return nil, err
	}

	valType := indexToValType(t)
	if op == opLoop {
		return &wasm.Expression{Kind: wasm.KindLoop, Type: valType, Name: name, Children: children}, nil
	}
	return &wasm.Expression{Kind: wasm.KindBlock, Type: valType, Name: name, Children: children}, nil
}

func (d *decoder) decodeIf() (*wasm.Expression, error) {
	if d.pos >= len(d.data) {
		return nil, errors.WrapWasmInvalid("truncated block type")
	}
	t, ok := blockTypeToValType(d.data[d.pos])
	if !ok {
		return nil, errors.WrapWasmInvalid("unsupported block type")
	}
	d.pos++
	condition := d.pop()

	depth := len(d.labelStack)
	name := d.label(depth)
	d.labelStack = append(d.labelStack, name)

	thenChildren, hasElse, err := d.decodeSequence(0)
	if err != nil {
		d.labelStack = d.labelStack[:len(d.labelStack)-1]
		return nil, err
	}

	var elseChildren []*wasm.Expression
	if hasElse {
		elseChildren, _, err = d.decodeSequence(0)
		if err != nil {
			d.labelStack = d.labelStack[:len(d.labelStack)-1]
			return nil, err
		}
	}
	d.labelStack = d.labelStack[:len(d.labelStack)-1]

	valType := indexToValType(t)
	ifExpr := &wasm.Expression{
		Kind:      wasm.KindIf,
		Type:      valType,
		Condition: condition,
		IfTrue:    &wasm.Expression{Kind: wasm.KindBlock, Type: valType, Name: name, Children: thenChildren},
	}
	if hasElse {
		ifExpr.IfFalse = &wasm.Expression{Kind: wasm.KindBlock, Type: valType, Name: name, Children: elseChildren}
	}
	return ifExpr, nil
}

func indexToValType(i int) wasm.ValType {
	switch i {
	case 1:
		return wasm.TypeI32
	case 2:
		return wasm.TypeI64
	case 3:
		return wasm.TypeF32
	case 4:
		return wasm.TypeF64
	default:
		return wasm.TypeNone
	}
}
