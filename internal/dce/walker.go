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

// Package dce implements dead code elimination over a single function's
// expression tree: a post-order reachability walk that collapses unreachable
// subexpressions to an Unreachable marker, rewrites operations that would
// consume an already-unreachable value, and keeps every node's static type
// consistent with its (possibly rewritten) children.
package dce

import (
	"github.com/dotandev/wasmprune/internal/errors"
	"github.com/dotandev/wasmprune/internal/wasm"
)

// Walker holds the per-function state of one DCE run: a single mutable
// reachable flag, the set of labels still targeted by reachable breaks, and
// the stack of per-arm reachability snapshots used by the If-join
// controller. None of this crosses function boundaries, which is what makes
// the pass function-parallel (see RunModule in run.go).
type Walker struct {
	reachable       bool
	reachableBreaks map[string]bool
	ifStack         []bool
	tu              *wasm.TypeUpdater
}

func newWalker() *Walker {
	return &Walker{
		reachable:       true,
		reachableBreaks: make(map[string]bool),
		tu:              wasm.NewTypeUpdater(),
	}
}

// Eliminate runs the pass over a single function body and returns the
// rewritten root. It fails only on an internal invariant violation: a break
// that still targets a label not enclosing it at function end.
func Eliminate(body *wasm.Expression) (*wasm.Expression, error) {
	w := newWalker()
	root := body
	w.visit(&root, nil)
	if len(w.reachableBreaks) > 0 {
		for name := range w.reachableBreaks {
			return nil, errors.WrapMalformedBreakTarget(name)
		}
	}
	return root, nil
}

func replaceNode(node **wasm.Expression, parent, old, next *wasm.Expression, tu *wasm.TypeUpdater) {
	next.Parent = parent
	*node = next
	tu.NoteReplacement(parent, old, next)
}

// visit is the single dispatch point. The pre-descent gate lives here: if
// reachable is already false, the subexpression is converted in place to
// Unreachable without descending any further, unless it already is one.
func (w *Walker) visit(node **wasm.Expression, parent *wasm.Expression) {
	if !w.reachable {
		if (*node).Kind != wasm.KindUnreachable {
			old := *node
			w.tu.NoteRecursiveRemoval(old)
			next := wasm.Unreachable()
			next.Parent = parent
			*node = next
		}
		return
	}

	(*node).Parent = parent

	switch (*node).Kind {
	case wasm.KindBlock:
		w.visitBlock(node, parent)
	case wasm.KindIf:
		w.visitIf(node, parent)
	case wasm.KindLoop:
		w.visitLoop(node, parent)
	case wasm.KindBreak:
		w.visitBreak(node, parent)
	case wasm.KindSwitch:
		w.visitSwitch(node, parent)
	case wasm.KindCall, wasm.KindCallImport, wasm.KindHost:
		w.visitCallLike(node, parent)
	case wasm.KindCallIndirect:
		w.visitCallIndirect(node, parent)
	case wasm.KindSetLocal:
		w.visitSetLocal(node, parent)
	case wasm.KindSetGlobal:
		w.visitSetGlobal(node, parent)
	case wasm.KindLoad:
		w.visitLoad(node, parent)
	case wasm.KindStore:
		w.visitStore(node, parent)
	case wasm.KindUnary:
		w.visitUnary(node, parent)
	case wasm.KindBinary:
		w.visitBinary(node, parent)
	case wasm.KindSelect:
		w.visitSelect(node, parent)
	case wasm.KindDrop:
		w.visitDrop(node, parent)
	case wasm.KindReturn:
		w.visitReturn(node, parent)
	case wasm.KindGetLocal, wasm.KindGetGlobal, wasm.KindConst, wasm.KindNop, wasm.KindUnreachable:
		w.visitLeaf(node)
	}

	// Any node whose resulting type is unreachable cannot fall through to
	// whatever follows it, regardless of which per-kind rule produced that
	// type. This single rule, rather than scattering "set reachable=false"
	// across every rewrite branch, is what lets an already-unreachable
	// first operand cut off evaluation of the rest of a node's operands on
	// the very next visit (via the pre-descent gate above).
	if (*node).Type == wasm.TypeUnreachable {
		w.reachable = false
	}
}

func (w *Walker) visitLeaf(node **wasm.Expression) {
	if (*node).Kind == wasm.KindUnreachable {
		w.reachable = false
	}
}

// visitBlock implements truncation, single-child collapse, and the labeled
// exit join described in §4.1: a still-live break to this block's label
// rejoins straight-line flow, and the label is then retired.
func (w *Walker) visitBlock(node **wasm.Expression, parent *wasm.Expression) {
	b := *node

	for i := range b.Children {
		w.visit(&b.Children[i], b)
		if b.Children[i].Type == wasm.TypeUnreachable {
			if i+1 < len(b.Children) {
				b.Children = b.Children[:i+1]
				w.tu.MaybeUpdateTypeToUnreachable(b)
			}
			break
		}
	}

	if b.Name != "" {
		if w.reachableBreaks[b.Name] {
			w.reachable = true
		}
		delete(w.reachableBreaks, b.Name)
	}

	if len(b.Children) == 1 && b.Children[0].Type == wasm.TypeUnreachable && !w.tu.HasLiveBreakTo(b.Name) {
		child := b.Children[0]
		replaceNode(node, parent, b, child, w.tu)
		w.tu.CloseLabelScope(b.Name)
		return
	}

	w.tu.MaybeUpdateTypeToUnreachable(b)
	w.tu.CloseLabelScope(b.Name)
}

// visitLoop erases its own label from the break set without joining (a
// back-edge break never rejoins straight-line flow) and collapses to its
// body when the body is unreachable and nothing still breaks to the loop.
func (w *Walker) visitLoop(node **wasm.Expression, parent *wasm.Expression) {
	l := *node

	for i := range l.Children {
		w.visit(&l.Children[i], l)
	}

	if l.Name != "" {
		delete(w.reachableBreaks, l.Name)
	}

	if len(l.Children) == 1 && l.Children[0].Type == wasm.TypeUnreachable && !w.tu.HasLiveBreakTo(l.Name) {
		body := l.Children[0]
		replaceNode(node, parent, l, body, w.tu)
		w.tu.CloseLabelScope(l.Name)
		return
	}

	w.tu.MaybeUpdateTypeToUnreachable(l)
	w.tu.CloseLabelScope(l.Name)
}

// visitIf is the If-join controller of §4.3: the condition is visited with
// the inherited reachable state; each arm is visited independently against
// its own baseline; the post-if reachable state is the disjunction of both
// arms' exits, since a missing else implicitly falls through.
func (w *Walker) visitIf(node **wasm.Expression, parent *wasm.Expression) {
	i := *node

	w.visit(&i.Condition, i)
	if i.Condition.Type == wasm.TypeUnreachable {
		replaceNode(node, parent, i, i.Condition, w.tu)
		return
	}

	baseline := w.reachable
	w.ifStack = append(w.ifStack, baseline)

	w.visit(&i.IfTrue, i)

	if i.IfFalse != nil {
		postTrue := w.reachable
		w.ifStack[len(w.ifStack)-1] = postTrue
		w.reachable = baseline
		w.visit(&i.IfFalse, i)
	}

	top := w.ifStack[len(w.ifStack)-1]
	w.ifStack = w.ifStack[:len(w.ifStack)-1]
	w.reachable = top || w.reachable

	w.tu.MaybeUpdateTypeToUnreachable(i)
}

// visitBreak handles both the unconditional and conditional shapes. Value
// is evaluated before condition; an unreachable value short-circuits
// evaluation of the condition entirely, matching real evaluation order.
func (w *Walker) visitBreak(node **wasm.Expression, parent *wasm.Expression) {
	br := *node

	if br.BreakCondition == nil {
		if br.BreakValue != nil {
			w.visit(&br.BreakValue, br)
			if br.BreakValue.Type == wasm.TypeUnreachable {
				replaceNode(node, parent, br, br.BreakValue, w.tu)
				return
			}
		}
		w.tu.RegisterBreakTarget(br.Name)
		w.reachableBreaks[br.Name] = true
		br.Type = wasm.TypeUnreachable
		return
	}

	if br.BreakValue != nil {
		w.visit(&br.BreakValue, br)
		if br.BreakValue.Type == wasm.TypeUnreachable {
			replaceNode(node, parent, br, br.BreakValue, w.tu)
			return
		}
	}

	w.visit(&br.BreakCondition, br)
	if br.BreakCondition.Type == wasm.TypeUnreachable {
		if br.BreakValue != nil {
			wrapper := wasm.Block([]*wasm.Expression{wasm.Drop(br.BreakValue), br.BreakCondition}, br.Type)
			replaceNode(node, parent, br, wrapper, w.tu)
		} else {
			replaceNode(node, parent, br, br.BreakCondition, w.tu)
		}
		return
	}

	// Reachable conditional break: record the target, leave reachable
	// unchanged (the fall-through path survives regardless).
	w.tu.RegisterBreakTarget(br.Name)
	w.reachableBreaks[br.Name] = true
}

// visitSwitch always exits: every case target plus the default is recorded,
// and reachable is forced false, unless the condition itself turned out
// unreachable.
func (w *Walker) visitSwitch(node **wasm.Expression, parent *wasm.Expression) {
	sw := *node

	if sw.BreakValue != nil {
		w.visit(&sw.BreakValue, sw)
		if sw.BreakValue.Type == wasm.TypeUnreachable {
			replaceNode(node, parent, sw, sw.BreakValue, w.tu)
			return
		}
	}

	w.visit(&sw.Condition, sw)
	if sw.Condition.Type == wasm.TypeUnreachable {
		if sw.BreakValue != nil {
			wrapper := wasm.Block([]*wasm.Expression{wasm.Drop(sw.BreakValue), sw.Condition}, sw.Type)
			replaceNode(node, parent, sw, wrapper, w.tu)
		} else {
			replaceNode(node, parent, sw, sw.Condition, w.tu)
		}
		return
	}

	for _, t := range sw.SwitchTargets {
		w.tu.RegisterBreakTarget(t)
		w.reachableBreaks[t] = true
	}
	if sw.SwitchDefault != "" {
		w.tu.RegisterBreakTarget(sw.SwitchDefault)
		w.reachableBreaks[sw.SwitchDefault] = true
	}
	sw.Type = wasm.TypeUnreachable
}

// visitCallLike covers Call, CallImport, and Host: an n-ary operand scan
// where the first unreachable operand either replaces the whole call (if it
// is the very first operand) or becomes the tail of a block of drops.
func (w *Walker) visitCallLike(node **wasm.Expression, parent *wasm.Expression) {
	c := *node
	for i := range c.Operands {
		w.visit(&c.Operands[i], c)
		if c.Operands[i].Type == wasm.TypeUnreachable {
			if i == 0 {
				replaceNode(node, parent, c, c.Operands[i], w.tu)
				return
			}
			children := make([]*wasm.Expression, 0, i+1)
			for j := 0; j < i; j++ {
				children = append(children, wasm.Drop(c.Operands[j]))
			}
			children = append(children, c.Operands[i])
			wrapper := wasm.Block(children, c.Type)
			replaceNode(node, parent, c, wrapper, w.tu)
			return
		}
	}
}

// visitCallIndirect scans operands like visitCallLike, then additionally
// checks the table-index target after all operands have been evaluated.
func (w *Walker) visitCallIndirect(node **wasm.Expression, parent *wasm.Expression) {
	c := *node
	for i := range c.Operands {
		w.visit(&c.Operands[i], c)
		if c.Operands[i].Type == wasm.TypeUnreachable {
			if i == 0 {
				replaceNode(node, parent, c, c.Operands[i], w.tu)
				return
			}
			children := make([]*wasm.Expression, 0, i+1)
			for j := 0; j < i; j++ {
				children = append(children, wasm.Drop(c.Operands[j]))
			}
			children = append(children, c.Operands[i])
			wrapper := wasm.Block(children, c.Type)
			replaceNode(node, parent, c, wrapper, w.tu)
			return
		}
	}

	if c.CallIndex == nil {
		return
	}
	w.visit(&c.CallIndex, c)
	if c.CallIndex.Type != wasm.TypeUnreachable {
		return
	}
	if len(c.Operands) == 0 {
		replaceNode(node, parent, c, c.CallIndex, w.tu)
		return
	}
	children := make([]*wasm.Expression, 0, len(c.Operands)+1)
	for _, op := range c.Operands {
		children = append(children, wasm.Drop(op))
	}
	children = append(children, c.CallIndex)
	wrapper := wasm.Block(children, c.Type)
	replaceNode(node, parent, c, wrapper, w.tu)
}

func (w *Walker) visitSetLocal(node **wasm.Expression, parent *wasm.Expression) {
	s := *node
	w.visit(&s.Value, s)
	if s.Value.Type == wasm.TypeUnreachable {
		replaceNode(node, parent, s, s.Value, w.tu)
	}
}

func (w *Walker) visitSetGlobal(node **wasm.Expression, parent *wasm.Expression) {
	s := *node
	w.visit(&s.Value, s)
	if s.Value.Type == wasm.TypeUnreachable {
		replaceNode(node, parent, s, s.Value, w.tu)
	}
}

func (w *Walker) visitLoad(node **wasm.Expression, parent *wasm.Expression) {
	l := *node
	w.visit(&l.Ptr, l)
	if l.Ptr.Type == wasm.TypeUnreachable {
		replaceNode(node, parent, l, l.Ptr, w.tu)
	}
}

func (w *Walker) visitStore(node **wasm.Expression, parent *wasm.Expression) {
	s := *node
	w.visit(&s.Ptr, s)
	if s.Ptr.Type == wasm.TypeUnreachable {
		replaceNode(node, parent, s, s.Ptr, w.tu)
		return
	}
	w.visit(&s.Stored, s)
	if s.Stored.Type == wasm.TypeUnreachable {
		wrapper := wasm.Block([]*wasm.Expression{wasm.Drop(s.Ptr), s.Stored}, s.Type)
		replaceNode(node, parent, s, wrapper, w.tu)
	}
}

func (w *Walker) visitUnary(node **wasm.Expression, parent *wasm.Expression) {
	u := *node
	w.visit(&u.Left, u)
	if u.Left.Type == wasm.TypeUnreachable {
		replaceNode(node, parent, u, u.Left, w.tu)
	}
}

func (w *Walker) visitBinary(node **wasm.Expression, parent *wasm.Expression) {
	bin := *node
	w.visit(&bin.Left, bin)
	if bin.Left.Type == wasm.TypeUnreachable {
		replaceNode(node, parent, bin, bin.Left, w.tu)
		return
	}
	w.visit(&bin.Right, bin)
	if bin.Right.Type == wasm.TypeUnreachable {
		wrapper := wasm.Block([]*wasm.Expression{wasm.Drop(bin.Left), bin.Right}, bin.Type)
		replaceNode(node, parent, bin, wrapper, w.tu)
	}
}

func (w *Walker) visitSelect(node **wasm.Expression, parent *wasm.Expression) {
	s := *node
	w.visit(&s.IfTrueVal, s)
	if s.IfTrueVal.Type == wasm.TypeUnreachable {
		replaceNode(node, parent, s, s.IfTrueVal, w.tu)
		return
	}
	w.visit(&s.IfFalseVal, s)
	if s.IfFalseVal.Type == wasm.TypeUnreachable {
		wrapper := wasm.Block([]*wasm.Expression{wasm.Drop(s.IfTrueVal), s.IfFalseVal}, s.Type)
		replaceNode(node, parent, s, wrapper, w.tu)
		return
	}
	w.visit(&s.SelectCond, s)
	if s.SelectCond.Type == wasm.TypeUnreachable {
		wrapper := wasm.Block([]*wasm.Expression{wasm.Drop(s.IfTrueVal), wasm.Drop(s.IfFalseVal), s.SelectCond}, s.Type)
		replaceNode(node, parent, s, wrapper, w.tu)
	}
}

func (w *Walker) visitDrop(node **wasm.Expression, parent *wasm.Expression) {
	d := *node
	w.visit(&d.Operand, d)
	if d.Operand.Type == wasm.TypeUnreachable {
		replaceNode(node, parent, d, d.Operand, w.tu)
	}
}

func (w *Walker) visitReturn(node **wasm.Expression, parent *wasm.Expression) {
	r := *node
	if r.ReturnValue != nil {
		w.visit(&r.ReturnValue, r)
		if r.ReturnValue.Type == wasm.TypeUnreachable {
			replaceNode(node, parent, r, r.ReturnValue, w.tu)
			return
		}
	}
	r.Type = wasm.TypeUnreachable
}
