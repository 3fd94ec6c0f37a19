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

// Package wasm models a WebAssembly-style function body as a tree of typed
// expressions. It is the shared data model consumed by internal/dce and
// produced/decoded by internal/codec.
package wasm

// ValType is a node's static type: one of the value types, the statement
// type none, or the bottom type unreachable.
type ValType int

const (
	TypeNone ValType = iota
	TypeI32
	TypeI64
	TypeF32
	TypeF64
	TypeUnreachable
)

func (t ValType) String() string {
	switch t {
	case TypeNone:
		return "none"
	case TypeI32:
		return "i32"
	case TypeI64:
		return "i64"
	case TypeF32:
		return "f32"
	case TypeF64:
		return "f64"
	case TypeUnreachable:
		return "unreachable"
	default:
		return "invalid"
	}
}

// Kind is the closed set of expression node kinds.
type Kind int

const (
	KindBlock Kind = iota
	KindIf
	KindLoop
	KindBreak
	KindSwitch
	KindCall
	KindCallImport
	KindCallIndirect
	KindGetLocal
	KindSetLocal
	KindGetGlobal
	KindSetGlobal
	KindLoad
	KindStore
	KindConst
	KindUnary
	KindBinary
	KindSelect
	KindDrop
	KindReturn
	KindHost
	KindNop
	KindUnreachable
)

func (k Kind) String() string {
	switch k {
	case KindBlock:
		return "Block"
	case KindIf:
		return "If"
	case KindLoop:
		return "Loop"
	case KindBreak:
		return "Break"
	case KindSwitch:
		return "Switch"
	case KindCall:
		return "Call"
	case KindCallImport:
		return "CallImport"
	case KindCallIndirect:
		return "CallIndirect"
	case KindGetLocal:
		return "GetLocal"
	case KindSetLocal:
		return "SetLocal"
	case KindGetGlobal:
		return "GetGlobal"
	case KindSetGlobal:
		return "SetGlobal"
	case KindLoad:
		return "Load"
	case KindStore:
		return "Store"
	case KindConst:
		return "Const"
	case KindUnary:
		return "Unary"
	case KindBinary:
		return "Binary"
	case KindSelect:
		return "Select"
	case KindDrop:
		return "Drop"
	case KindReturn:
		return "Return"
	case KindHost:
		return "Host"
	case KindNop:
		return "Nop"
	case KindUnreachable:
		return "Unreachable"
	default:
		return "Invalid"
	}
}

// Expression is a single node of the function body tree. Rather than an
// interface hierarchy over per-kind types, every node kind is represented by
// this one tagged struct with kind-specific fields left unused where they do
// not apply — there is no open extensibility requirement for this pass.
type Expression struct {
	Kind Kind
	Type ValType

	// Parent stands in for the reference implementation's intrusive parent
	// links; the type updater (typeupdater.go) walks upward through it
	// rather than relying solely on recursive call-stack propagation.
	Parent *Expression

	// Name labels Block and Loop; it is also the target carried by Break
	// and Switch.
	Name string

	// Block, Loop
	Children []*Expression

	// If
	Condition *Expression
	IfTrue    *Expression
	IfFalse   *Expression

	// Break, Switch
	BreakCondition *Expression // nil for an unconditional Break
	BreakValue     *Expression // optional value carried by Break/Switch
	SwitchTargets  []string    // case table, Switch only
	SwitchDefault  string      // Switch only

	// Call, CallImport, CallIndirect, Host
	Target    string // callee name for Call/CallImport; host op name for Host
	Operands  []*Expression
	CallIndex *Expression // CallIndirect's table-index operand, evaluated last

	// GetLocal, SetLocal, GetGlobal, SetGlobal
	Index int
	Value *Expression // SetLocal, SetGlobal
	IsTee bool         // SetLocal only: local.tee also produces its value

	// Load, Store
	Ptr    *Expression
	Stored *Expression // Store only

	// Const
	I32Value int32
	I64Value int64
	F32Value float32
	F64Value float64

	// Unary, Binary
	Op    string
	Left  *Expression // Binary's first operand; Unary's sole operand
	Right *Expression // Binary's second operand

	// Select
	IfTrueVal  *Expression
	IfFalseVal *Expression
	SelectCond *Expression

	// Drop
	Operand *Expression

	// Return
	ReturnValue *Expression
}

// setParent assigns p as child's parent, if child is non-nil.
func setParent(child, p *Expression) {
	if child != nil {
		child.Parent = p
	}
}

// children returns this node's direct children in evaluation order, for
// generic traversal (the walker still dispatches per-kind for the semantics
// in internal/dce, but builder helpers and printers can use this).
func (e *Expression) children() []*Expression {
	switch e.Kind {
	case KindBlock, KindLoop:
		return e.Children
	case KindIf:
		out := []*Expression{e.Condition, e.IfTrue}
		if e.IfFalse != nil {
			out = append(out, e.IfFalse)
		}
		return out
	case KindBreak:
		var out []*Expression
		if e.BreakValue != nil {
			out = append(out, e.BreakValue)
		}
		if e.BreakCondition != nil {
			out = append(out, e.BreakCondition)
		}
		return out
	case KindSwitch:
		var out []*Expression
		if e.BreakValue != nil {
			out = append(out, e.BreakValue)
		}
		out = append(out, e.Condition)
		return out
	case KindCall, KindCallImport, KindHost:
		return e.Operands
	case KindCallIndirect:
		out := append([]*Expression{}, e.Operands...)
		if e.CallIndex != nil {
			out = append(out, e.CallIndex)
		}
		return out
	case KindSetLocal:
		return []*Expression{e.Value}
	case KindSetGlobal:
		return []*Expression{e.Value}
	case KindLoad:
		return []*Expression{e.Ptr}
	case KindStore:
		return []*Expression{e.Ptr, e.Stored}
	case KindUnary:
		return []*Expression{e.Left}
	case KindBinary:
		return []*Expression{e.Left, e.Right}
	case KindSelect:
		return []*Expression{e.IfTrueVal, e.IfFalseVal, e.SelectCond}
	case KindDrop:
		return []*Expression{e.Operand}
	case KindReturn:
		if e.ReturnValue != nil {
			return []*Expression{e.ReturnValue}
		}
		return nil
	default:
		return nil
	}
}
