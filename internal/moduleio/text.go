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
	"fmt"
	"strconv"
	"strings"

	"github.com/dotandev/wasmprune/internal/wasm"
)

// Module is the minimal in-memory form this package moves between the two
// on-disk encodings: a flat list of named function bodies. It deliberately
// does not model imports, memories, tables or globals declarations —
// the pass (internal/dce) only ever touches function bodies, and the
// surrounding module shell is an I/O concern this repository supplements
// just enough to have something runnable (§6 of the design notes this
// package implements against).
type Module struct {
	Functions []Function
}

// Function pairs a function's exported name with its decoded body.
type Function struct {
	Name string
	Body *wasm.Expression
}

var textBinaryOps = map[string]bool{
	"i32.add": true, "i32.sub": true, "i32.mul": true,
	"i32.div_s": true, "i32.div_u": true, "i32.rem_s": true, "i32.rem_u": true,
	"i32.and": true, "i32.or": true, "i32.xor": true,
	"i32.shl": true, "i32.shr_s": true, "i32.shr_u": true,
	"i32.eq": true, "i32.ne": true,
	"i32.lt_s": true, "i32.lt_u": true, "i32.gt_s": true, "i32.gt_u": true,
	"i32.le_s": true, "i32.le_u": true, "i32.ge_s": true, "i32.ge_u": true,
}

var textUnaryOps = map[string]bool{
	"i32.eqz": true, "i32.clz": true, "i32.ctz": true, "i32.popcnt": true,
}

// ParseText parses a textual module of the form
//
//	(module
//	  (func $name
//	    <instruction> ...)
//	  ...)
//
// into a Module. Each instruction is itself an s-expression headed by its
// mnemonic, with operands given as nested instructions rather than popped
// off an implicit stack — unlike the binary encoding, the text form is
// already a tree, so no stack reconstruction is needed here.
func ParseText(src string) (*Module, error) {
	forms, err := parseSExprs(src)
	if err != nil {
		return nil, err
	}
	if len(forms) != 1 || forms[0].head() != "module" {
		return nil, fmt.Errorf("moduleio: expected a single (module ...) form")
	}
	m := &Module{}
	for _, f := range forms[0].rest() {
		if f.head() != "func" {
			continue
		}
		fn, err := parseFunc(f)
		if err != nil {
			return nil, err
		}
		m.Functions = append(m.Functions, fn)
	}
	return m, nil
}

func parseFunc(f node) (Function, error) {
	rest := f.rest()
	if len(rest) == 0 || !rest[0].isAtom() {
		return Function{}, fmt.Errorf("moduleio: func missing name")
	}
	name := strings.TrimPrefix(rest[0].atom, "$")
	body := rest[1:]
	children, err := parseInstrList(body)
	if err != nil {
		return Function{}, fmt.Errorf("moduleio: func %s: %w", name, err)
	}
	return Function{Name: name, Body: wasm.Block(children, wasm.TypeNone)}, nil
}

func parseInstrList(forms []node) ([]*wasm.Expression, error) {
	out := make([]*wasm.Expression, 0, len(forms))
	for _, f := range forms {
		expr, err := parseInstr(f)
		if err != nil {
			return nil, err
		}
		out = append(out, expr)
	}
	return out, nil
}

func parseInstr(n node) (*wasm.Expression, error) {
	if n.isAtom() {
		return nil, fmt.Errorf("bare atom %q outside instruction position", n.atom)
	}
	op := n.head()
	rest := n.rest()

	switch op {
	case "unreachable":
		return wasm.Unreachable(), nil
	case "nop":
		return &wasm.Expression{Kind: wasm.KindNop, Type: wasm.TypeNone}, nil
	case "drop":
		v, err := parseInstr(rest[0])
		if err != nil {
			return nil, err
		}
		return &wasm.Expression{Kind: wasm.KindDrop, Type: wasm.TypeNone, Operand: v}, nil
	case "return":
		r := &wasm.Expression{Kind: wasm.KindReturn, Type: wasm.TypeUnreachable}
		if len(rest) > 0 {
			v, err := parseInstr(rest[0])
			if err != nil {
				return nil, err
			}
			r.ReturnValue = v
		}
		return r, nil

	case "i32.const", "i64.const", "f32.const", "f64.const":
		if len(rest) == 0 || !rest[0].isAtom() {
			return nil, fmt.Errorf("%s: missing literal", op)
		}
		return parseConst(op, rest[0].atom)

	case "local.get", "global.get":
		idx, err := parseIndexAtom(rest)
		if err != nil {
			return nil, err
		}
		kind := wasm.KindGetLocal
		if op == "global.get" {
			kind = wasm.KindGetGlobal
		}
		return &wasm.Expression{Kind: kind, Type: wasm.TypeI32, Index: idx}, nil

	case "local.set", "local.tee", "global.set":
		if len(rest) < 2 {
			return nil, fmt.Errorf("%s: expected index and value", op)
		}
		idx, err := strconv.Atoi(rest[0].atom)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		val, err := parseInstr(rest[1])
		if err != nil {
			return nil, err
		}
		if op == "global.set" {
			return &wasm.Expression{Kind: wasm.KindSetGlobal, Type: wasm.TypeNone, Index: idx, Value: val}, nil
		}
		return &wasm.Expression{Kind: wasm.KindSetLocal, Type: wasm.TypeNone, Index: idx, IsTee: op == "local.tee", Value: val}, nil

	case "select":
		if len(rest) != 3 {
			return nil, fmt.Errorf("select: expected 3 operands")
		}
		ifTrue, err := parseInstr(rest[0])
		if err != nil {
			return nil, err
		}
		ifFalse, err := parseInstr(rest[1])
		if err != nil {
			return nil, err
		}
		cond, err := parseInstr(rest[2])
		if err != nil {
			return nil, err
		}
		return &wasm.Expression{Kind: wasm.KindSelect, Type: wasm.TypeI32, IfTrueVal: ifTrue, IfFalseVal: ifFalse, SelectCond: cond}, nil

	case "call":
		if len(rest) == 0 || !rest[0].isAtom() {
			return nil, fmt.Errorf("call: missing target name")
		}
		ops, err := parseInstrList(rest[1:])
		if err != nil {
			return nil, err
		}
		return &wasm.Expression{Kind: wasm.KindCall, Type: wasm.TypeNone, Operands: ops, Target: strings.TrimPrefix(rest[0].atom, "$")}, nil

	case "block", "loop":
		return parseStructured(op, rest)
	case "if":
		return parseIf(rest)
	case "br", "br_if":
		return parseBreak(op, rest)

	case "i32.load", "i64.load", "f32.load", "f64.load":
		ptr, err := parseInstr(rest[0])
		if err != nil {
			return nil, err
		}
		return &wasm.Expression{Kind: wasm.KindLoad, Type: loadTypeFor(op), Ptr: ptr}, nil
	case "i32.store", "i64.store", "f32.store", "f64.store":
		if len(rest) != 2 {
			return nil, fmt.Errorf("%s: expected ptr and value", op)
		}
		ptr, err := parseInstr(rest[0])
		if err != nil {
			return nil, err
		}
		val, err := parseInstr(rest[1])
		if err != nil {
			return nil, err
		}
		return &wasm.Expression{Kind: wasm.KindStore, Type: wasm.TypeNone, Ptr: ptr, Stored: val}, nil
	}

	if textBinaryOps[op] {
		if len(rest) != 2 {
			return nil, fmt.Errorf("%s: expected 2 operands", op)
		}
		left, err := parseInstr(rest[0])
		if err != nil {
			return nil, err
		}
		right, err := parseInstr(rest[1])
		if err != nil {
			return nil, err
		}
		return &wasm.Expression{Kind: wasm.KindBinary, Type: wasm.TypeI32, Op: op, Left: left, Right: right}, nil
	}
	if textUnaryOps[op] {
		if len(rest) != 1 {
			return nil, fmt.Errorf("%s: expected 1 operand", op)
		}
		left, err := parseInstr(rest[0])
		if err != nil {
			return nil, err
		}
		return &wasm.Expression{Kind: wasm.KindUnary, Type: wasm.TypeI32, Op: op, Left: left}, nil
	}

	return nil, fmt.Errorf("unsupported instruction %q", op)
}

func parseIndexAtom(rest []node) (int, error) {
	if len(rest) == 0 || !rest[0].isAtom() {
		return 0, fmt.Errorf("missing index")
	}
	return strconv.Atoi(rest[0].atom)
}

func parseConst(op, lit string) (*wasm.Expression, error) {
	switch op {
	case "i32.const":
		v, err := strconv.ParseInt(lit, 10, 32)
		if err != nil {
			return nil, err
		}
		return &wasm.Expression{Kind: wasm.KindConst, Type: wasm.TypeI32, I32Value: int32(v)}, nil
	case "i64.const":
		v, err := strconv.ParseInt(lit, 10, 64)
		if err != nil {
			return nil, err
		}
		return &wasm.Expression{Kind: wasm.KindConst, Type: wasm.TypeI64, I64Value: v}, nil
	case "f32.const":
		v, err := strconv.ParseFloat(lit, 32)
		if err != nil {
			return nil, err
		}
		return &wasm.Expression{Kind: wasm.KindConst, Type: wasm.TypeF32, F32Value: float32(v)}, nil
	default: // f64.const
		v, err := strconv.ParseFloat(lit, 64)
		if err != nil {
			return nil, err
		}
		return &wasm.Expression{Kind: wasm.KindConst, Type: wasm.TypeF64, F64Value: v}, nil
	}
}

func loadTypeFor(op string) wasm.ValType {
	switch op {
	case "i64.load":
		return wasm.TypeI64
	case "f32.load":
		return wasm.TypeF32
	case "f64.load":
		return wasm.TypeF64
	default:
		return wasm.TypeI32
	}
}

// parseStructured handles (block $name instr...) / (loop $name instr...).
// The label is optional; when absent the node's Name is left empty.
func parseStructured(op string, rest []node) (*wasm.Expression, error) {
	name := ""
	body := rest
	if len(rest) > 0 && rest[0].isAtom() && strings.HasPrefix(rest[0].atom, "$") {
		name = strings.TrimPrefix(rest[0].atom, "$")
		body = rest[1:]
	}
	children, err := parseInstrList(body)
	if err != nil {
		return nil, err
	}
	kind := wasm.KindBlock
	if op == "loop" {
		kind = wasm.KindLoop
	}
	return &wasm.Expression{Kind: kind, Type: wasm.TypeNone, Name: name, Children: children}, nil
}

func parseIf(rest []node) (*wasm.Expression, error) {
	if len(rest) == 0 {
		return nil, fmt.Errorf("if: missing condition")
	}
	cond, err := parseInstr(rest[0])
	if err != nil {
		return nil, err
	}
	ifExpr := &wasm.Expression{Kind: wasm.KindIf, Type: wasm.TypeNone, Condition: cond}
	for _, clause := range rest[1:] {
		switch clause.head() {
		case "then":
			children, err := parseInstrList(clause.rest())
			if err != nil {
				return nil, err
			}
			ifExpr.IfTrue = &wasm.Expression{Kind: wasm.KindBlock, Type: wasm.TypeNone, Children: children}
		case "else":
			children, err := parseInstrList(clause.rest())
			if err != nil {
				return nil, err
			}
			ifExpr.IfFalse = &wasm.Expression{Kind: wasm.KindBlock, Type: wasm.TypeNone, Children: children}
		default:
			return nil, fmt.Errorf("if: unexpected clause %q", clause.head())
		}
	}
	return ifExpr, nil
}

func parseBreak(op string, rest []node) (*wasm.Expression, error) {
	if len(rest) == 0 || !rest[0].isAtom() {
		return nil, fmt.Errorf("%s: missing label", op)
	}
	br := &wasm.Expression{Kind: wasm.KindBreak, Type: wasm.TypeNone, Name: strings.TrimPrefix(rest[0].atom, "$")}
	if op == "br" {
		br.Type = wasm.TypeUnreachable
	} else {
		if len(rest) < 2 {
			return nil, fmt.Errorf("br_if: missing condition")
		}
		cond, err := parseInstr(rest[1])
		if err != nil {
			return nil, err
		}
		br.BreakCondition = cond
	}
	return br, nil
}
