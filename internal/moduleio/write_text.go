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

// RenderText is the inverse of ParseText: it renders a Module back to the
// s-expression form, indenting two spaces per nesting level.
func RenderText(m *Module) string {
	var b strings.Builder
	b.WriteString("(module\n")
	for _, fn := range m.Functions {
		b.WriteString("  (func $")
		b.WriteString(fn.Name)
		b.WriteString("\n")
		for _, c := range fn.Body.Children {
			writeInstr(&b, c, 2)
		}
		b.WriteString("  )\n")
	}
	b.WriteString(")\n")
	return b.String()
}

func indent(b *strings.Builder, depth int) {
	for i := 0; i < depth; i++ {
		b.WriteString("  ")
	}
}

func writeInstr(b *strings.Builder, e *wasm.Expression, depth int) {
	indent(b, depth)
	switch e.Kind {
	case wasm.KindUnreachable:
		b.WriteString("(unreachable)\n")
	case wasm.KindNop:
		b.WriteString("(nop)\n")
	case wasm.KindDrop:
		b.WriteString("(drop\n")
		writeInstr(b, e.Operand, depth+1)
		indent(b, depth)
		b.WriteString(")\n")
	case wasm.KindReturn:
		if e.ReturnValue == nil {
			b.WriteString("(return)\n")
		} else {
			b.WriteString("(return\n")
			writeInstr(b, e.ReturnValue, depth+1)
			indent(b, depth)
			b.WriteString(")\n")
		}
	case wasm.KindConst:
		fmt.Fprintf(b, "(%s.const %s)\n", strings.ToLower(e.Type.String()), constLiteral(e))
	case wasm.KindGetLocal:
		fmt.Fprintf(b, "(local.get %d)\n", e.Index)
	case wasm.KindGetGlobal:
		fmt.Fprintf(b, "(global.get %d)\n", e.Index)
	case wasm.KindSetLocal:
		mnemonic := "local.set"
		if e.IsTee {
			mnemonic = "local.tee"
		}
		fmt.Fprintf(b, "(%s %d\n", mnemonic, e.Index)
		writeInstr(b, e.Value, depth+1)
		indent(b, depth)
		b.WriteString(")\n")
	case wasm.KindSetGlobal:
		fmt.Fprintf(b, "(global.set %d\n", e.Index)
		writeInstr(b, e.Value, depth+1)
		indent(b, depth)
		b.WriteString(")\n")
	case wasm.KindBinary:
		fmt.Fprintf(b, "(%s\n", e.Op)
		writeInstr(b, e.Left, depth+1)
		writeInstr(b, e.Right, depth+1)
		indent(b, depth)
		b.WriteString(")\n")
	case wasm.KindUnary:
		fmt.Fprintf(b, "(%s\n", e.Op)
		writeInstr(b, e.Left, depth+1)
		indent(b, depth)
		b.WriteString(")\n")
	case wasm.KindSelect:
		b.WriteString("(select\n")
		writeInstr(b, e.IfTrueVal, depth+1)
		writeInstr(b, e.IfFalseVal, depth+1)
		writeInstr(b, e.SelectCond, depth+1)
		indent(b, depth)
		b.WriteString(")\n")
	case wasm.KindLoad:
		fmt.Fprintf(b, "(%s.load\n", strings.ToLower(e.Type.String()))
		writeInstr(b, e.Ptr, depth+1)
		indent(b, depth)
		b.WriteString(")\n")
	case wasm.KindStore:
		fmt.Fprintf(b, "(%s.store\n", strings.ToLower(e.Stored.Type.String()))
		writeInstr(b, e.Ptr, depth+1)
		writeInstr(b, e.Stored, depth+1)
		indent(b, depth)
		b.WriteString(")\n")
	case wasm.KindCall:
		fmt.Fprintf(b, "(call $%s\n", e.Target)
		for _, op := range e.Operands {
			writeInstr(b, op, depth+1)
		}
		indent(b, depth)
		b.WriteString(")\n")
	case wasm.KindBlock, wasm.KindLoop:
		mnemonic := "block"
		if e.Kind == wasm.KindLoop {
			mnemonic = "loop"
		}
		b.WriteString("(" + mnemonic)
		if e.Name != "" {
			b.WriteString(" $" + e.Name)
		}
		b.WriteString("\n")
		for _, c := range e.Children {
			writeInstr(b, c, depth+1)
		}
		indent(b, depth)
		b.WriteString(")\n")
	case wasm.KindIf:
		b.WriteString("(if\n")
		writeInstr(b, e.Condition, depth+1)
		indent(b, depth+1)
		b.WriteString("(then\n")
		for _, c := range e.IfTrue.Children {
			writeInstr(b, c, depth+2)
		}
		indent(b, depth+1)
		b.WriteString(")\n")
		if e.IfFalse != nil {
			indent(b, depth+1)
			b.WriteString("(else\n")
			for _, c := range e.IfFalse.Children {
				writeInstr(b, c, depth+2)
			}
			indent(b, depth+1)
			b.WriteString(")\n")
		}
		indent(b, depth)
		b.WriteString(")\n")
	case wasm.KindBreak:
		mnemonic := "br_if"
		if e.BreakCondition == nil {
			mnemonic = "br"
		}
		fmt.Fprintf(b, "(%s $%s", mnemonic, e.Name)
		if e.BreakCondition == nil {
			b.WriteString(")\n")
			return
		}
		b.WriteString("\n")
		writeInstr(b, e.BreakCondition, depth+1)
		indent(b, depth)
		b.WriteString(")\n")
	default:
		fmt.Fprintf(b, "(unsupported-kind %s)\n", e.Kind)
	}
}

func constLiteral(e *wasm.Expression) string {
	switch e.Type {
	case wasm.TypeI32:
		return strconv.FormatInt(int64(e.I32Value), 10)
	case wasm.TypeI64:
		return strconv.FormatInt(e.I64Value, 10)
	case wasm.TypeF32:
		return strconv.FormatFloat(float64(e.F32Value), 'g', -1, 32)
	default:
		return strconv.FormatFloat(e.F64Value, 'g', -1, 64)
	}
}
