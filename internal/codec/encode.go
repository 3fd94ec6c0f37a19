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
	"bytes"
	"encoding/binary"
	"math"

	"github.com/dotandev/wasmprune/internal/errors"
	"github.com/dotandev/wasmprune/internal/wasm"
)

// encoder renders an Expression tree back to a function body's instruction
// stream, reversing the synthetic depth-based labels Decode assigned.
type encoder struct {
	out        bytes.Buffer
	labelStack []string
}

// Encode renders root, the tree a DCE pass may have rewritten, back to WASM
// instruction bytes.
func Encode(root *wasm.Expression) ([]byte, error) {
	e := &encoder{}
	if root.Kind == wasm.KindBlock && root.Name == "" {
		for _, c := range root.Children {
			if err := e.emit(c); err != nil {
				return nil, err
			}
		}
	} else if err := e.emit(root); err != nil {
		return nil, err
	}
	return e.out.Bytes(), nil
}

func (e *encoder) depthOf(name string) (uint32, error) {
	for i := len(e.labelStack) - 1; i >= 0; i-- {
		if e.labelStack[i] == name {
			return uint32(len(e.labelStack) - 1 - i), nil
		}
	}
	return 0, errors.WrapMalformedBreakTarget(name)
}

func valTypeToBlockByte(t wasm.ValType) byte {
	switch t {
	case wasm.TypeI32:
		return 0x7F
	case wasm.TypeI64:
		return 0x7E
	case wasm.TypeF32:
		return 0x7D
	case wasm.TypeF64:
		return 0x7C
	default:
		return 0x40
	}
}

func (e *encoder) emit(node *wasm.Expression) error {
	switch node.Kind {
	case wasm.KindUnreachable:
		e.out.WriteByte(opUnreachable)
		return nil
	case wasm.KindNop:
		e.out.WriteByte(opNop)
		return nil

	case wasm.KindBlock, wasm.KindLoop:
		op := opBlock
		if node.Kind == wasm.KindLoop {
			op = opLoop
		}
		e.out.WriteByte(op)
		e.out.WriteByte(valTypeToBlockByte(node.Type))
		e.labelStack = append(e.labelStack, node.Name)
		for _, c := range node.Children {
			if err := e.emit(c); err != nil {
				return err
			}
		}
		e.labelStack = e.labelStack[:len(e.labelStack)-1]
		e.out.WriteByte(opEnd)
		return nil

	case wasm.KindIf:
		if err := e.emit(node.Condition); err != nil {
			return err
		}
		e.out.WriteByte(opIf)
		e.out.WriteByte(valTypeToBlockByte(node.Type))
		label := ""
		if node.IfTrue != nil {
			label = node.IfTrue.Name
		}
		e.labelStack = append(e.labelStack, label)
		if err := e.emitChildren(node.IfTrue); err != nil {
			return err
		}
		if node.IfFalse != nil {
			e.out.WriteByte(opElse)
			if err := e.emitChildren(node.IfFalse); err != nil {
				return err
			}
		}
		e.labelStack = e.labelStack[:len(e.labelStack)-1]
		e.out.WriteByte(opEnd)
		return nil

	case wasm.KindBreak:
		if node.BreakValue != nil {
			if err := e.emit(node.BreakValue); err != nil {
				return err
			}
		}
		depth, err := e.depthOf(node.Name)
		if err != nil {
			return err
		}
		if node.BreakCondition != nil {
			if err := e.emit(node.BreakCondition); err != nil {
				return err
			}
			e.out.WriteByte(opBrIf)
		} else {
			e.out.WriteByte(opBr)
		}
		e.out.Write(encodeULEB32(depth))
		return nil

	case wasm.KindSwitch:
		if node.BreakValue != nil {
			if err := e.emit(node.BreakValue); err != nil {
				return err
			}
		}
		if err := e.emit(node.Condition); err != nil {
			return err
		}
		e.out.WriteByte(opBrTable)
		e.out.Write(encodeULEB32(uint32(len(node.SwitchTargets))))
		for _, t := range node.SwitchTargets {
			depth, err := e.depthOf(t)
			if err != nil {
				return err
			}
			e.out.Write(encodeULEB32(depth))
		}
		depth, err := e.depthOf(node.SwitchDefault)
		if err != nil {
			return err
		}
		e.out.Write(encodeULEB32(depth))
		return nil

	case wasm.KindReturn:
		if node.ReturnValue != nil {
			if err := e.emit(node.ReturnValue); err != nil {
				return err
			}
		}
		e.out.WriteByte(opReturn)
		return nil

	case wasm.KindCall:
		for _, op := range node.Operands {
			if err := e.emit(op); err != nil {
				return err
			}
		}
		e.out.WriteByte(opCall)
		e.out.Write(encodeULEB32(uint32(node.Index)))
		return nil

	case wasm.KindCallImport:
		for _, op := range node.Operands {
			if err := e.emit(op); err != nil {
				return err
			}
		}
		e.out.WriteByte(opCall)
		e.out.Write(encodeULEB32(uint32(node.Index)))
		return nil

	case wasm.KindCallIndirect:
		for _, op := range node.Operands {
			if err := e.emit(op); err != nil {
				return err
			}
		}
		if err := e.emit(node.CallIndex); err != nil {
			return err
		}
		e.out.WriteByte(opCallIndir)
		e.out.Write(encodeULEB32(uint32(node.Index)))
		e.out.Write(encodeULEB32(0))
		return nil

	case wasm.KindDrop:
		if err := e.emit(node.Operand); err != nil {
			return err
		}
		e.out.WriteByte(opDrop)
		return nil

	case wasm.KindSelect:
		if err := e.emit(node.IfTrueVal); err != nil {
			return err
		}
		if err := e.emit(node.IfFalseVal); err != nil {
			return err
		}
		if err := e.emit(node.SelectCond); err != nil {
			return err
		}
		e.out.WriteByte(opSelect)
		return nil

	case wasm.KindGetLocal:
		e.out.WriteByte(opLocalGet)
		e.out.Write(encodeULEB32(uint32(node.Index)))
		return nil
	case wasm.KindSetLocal:
		if err := e.emit(node.Value); err != nil {
			return err
		}
		if node.IsTee {
			e.out.WriteByte(opLocalTee)
		} else {
			e.out.WriteByte(opLocalSet)
		}
		e.out.Write(encodeULEB32(uint32(node.Index)))
		return nil
	case wasm.KindGetGlobal:
		e.out.WriteByte(opGlobalGet)
		e.out.Write(encodeULEB32(uint32(node.Index)))
		return nil
	case wasm.KindSetGlobal:
		if err := e.emit(node.Value); err != nil {
			return err
		}
		e.out.WriteByte(opGlobalSet)
		e.out.Write(encodeULEB32(uint32(node.Index)))
		return nil

	case wasm.KindLoad:
		if err := e.emit(node.Ptr); err != nil {
			return err
		}
		e.out.WriteByte(loadOpcode(node.Type))
		e.out.Write(encodeULEB32(0))
		e.out.Write(encodeULEB32(0))
		return nil
	case wasm.KindStore:
		if err := e.emit(node.Ptr); err != nil {
			return err
		}
		if err := e.emit(node.Stored); err != nil {
			return err
		}
		e.out.WriteByte(storeOpcode(node.Stored.Type))
		e.out.Write(encodeULEB32(0))
		e.out.Write(encodeULEB32(0))
		return nil

	case wasm.KindConst:
		switch node.Type {
		case wasm.TypeI64:
			e.out.WriteByte(opI64Const)
			e.out.Write(encodeSLEB64(node.I64Value))
		case wasm.TypeF32:
			e.out.WriteByte(opF32Const)
			var buf [4]byte
			binary.LittleEndian.PutUint32(buf[:], math.Float32bits(node.F32Value))
			e.out.Write(buf[:])
		case wasm.TypeF64:
			e.out.WriteByte(opF64Const)
			var buf [8]byte
			binary.LittleEndian.PutUint64(buf[:], math.Float64bits(node.F64Value))
			e.out.Write(buf[:])
		default:
			e.out.WriteByte(opI32Const)
			e.out.Write(encodeSLEB64(int64(node.I32Value)))
		}
		return nil

	case wasm.KindUnary:
		if err := e.emit(node.Left); err != nil {
			return err
		}
		return e.emitNamedOp(node.Op, unaryOps)
	case wasm.KindBinary:
		if err := e.emit(node.Left); err != nil {
			return err
		}
		if err := e.emit(node.Right); err != nil {
			return err
		}
		return e.emitNamedOp(node.Op, binaryOps)

	default:
		return errors.WrapUnknownNodeKind(int(node.Kind))
	}
}

func (e *encoder) emitChildren(block *wasm.Expression) error {
	if block == nil {
		return nil
	}
	for _, c := range block.Children {
		if err := e.emit(c); err != nil {
			return err
		}
	}
	return nil
}

func (e *encoder) emitNamedOp(name string, table map[byte]string) error {
	for opcode, n := range table {
		if n == name {
			e.out.WriteByte(opcode)
			return nil
		}
	}
	return errors.WrapUnsupportedOpcode(0)
}

func loadOpcode(t wasm.ValType) byte {
	switch t {
	case wasm.TypeI64:
		return opI64Load
	case wasm.TypeF32:
		return opF32Load
	case wasm.TypeF64:
		return opF64Load
	default:
		return opI32Load
	}
}

func storeOpcode(t wasm.ValType) byte {
	switch t {
	case wasm.TypeI64:
		return opI64Store
	case wasm.TypeF32:
		return opF32Store
	case wasm.TypeF64:
		return opF64Store
	default:
		return opI32Store
	}
}
