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

package wasm

// Drop returns x unchanged if it is already unreachable; otherwise it
// returns a freshly allocated Drop(x) of type none. Used throughout the DCE
// rewrite rules to sequence a dropped-but-evaluated operand ahead of a
// forced unreachable.
func Drop(x *Expression) *Expression {
	if x.Type == TypeUnreachable {
		return x
	}
	d := &Expression{Kind: KindDrop, Type: TypeNone, Operand: x}
	setParent(x, d)
	return d
}

// Block builds a Block node from children, finalized to type t.
func Block(children []*Expression, t ValType) *Expression {
	b := &Expression{Kind: KindBlock, Type: t, Children: children}
	for _, c := range children {
		setParent(c, b)
	}
	return b
}

// Unreachable returns a fresh Unreachable leaf.
func Unreachable() *Expression {
	return &Expression{Kind: KindUnreachable, Type: TypeUnreachable}
}
