/*
 *	Copyright 2026 The JAX-Go Authors
 *
 *	Licensed under the Apache License, Version 2.0 (the "License");
 *	you may not use this file except in compliance with the License.
 *	You may obtain a copy of the License at
 *
 *	http://www.apache.org/licenses/LICENSE-2.0
 *
 *	Unless required by applicable law or agreed to in writing, software
 *	distributed under the License is distributed on an "AS IS" BASIS,
 *	WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *	See the License for the specific language governing permissions and
 *	limitations under the License.
 */

package jaxpr

import (
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"k8s.io/klog/v2"

	"github.com/mgoldfarb-nvidia/jax/types/shapes"
	"github.com/mgoldfarb-nvidia/jax/types/tensors"
)

// Box is the value host functions compute with: a tagged union of a concrete
// tensor and a tracer. Primitive ops (package lax) operate on boxes, so the
// same host function runs unmodified in eager mode and under tracing.
type Box struct {
	tensor *tensors.Tensor
	tracer *tracer
}

// tracer stands in for a value during tracing: a jaxpr variable together
// with the recording frame that owns it.
type tracer struct {
	frame *frame
	v     *Var
}

// NewBox wraps a concrete tensor.
func NewBox(t *tensors.Tensor) *Box { return &Box{tensor: t} }

// BoxValue wraps a Go value (scalar or multi-dimensional slice), converting
// it to a tensor first.
func BoxValue(value any) *Box { return NewBox(tensors.FromAnyValue(value)) }

// IsTracer returns whether the box is symbolic, standing in for a value
// during tracing.
func (b *Box) IsTracer() bool { return b.tracer != nil }

// Shape returns the box's abstract value.
func (b *Box) Shape() shapes.Shape {
	if b.IsTracer() {
		return b.tracer.v.Shape()
	}
	return b.tensor.Shape()
}

// Tensor returns the concrete tensor held by the box. It panics with
// ErrTracing for a tracer: a symbolic value has no concrete data.
func (b *Box) Tensor() *tensors.Tensor {
	if b.IsTracer() {
		panicWrapf(ErrTracing, "value %s is symbolic while tracing and has no concrete data", b.tracer.v)
	}
	return b.tensor
}

// Bool returns the value of a concrete boolean scalar box. It panics with
// ErrTracing for a tracer: data-dependent branching during tracing must go
// through Cond.
func (b *Box) Bool() bool {
	if b.IsTracer() {
		panicWrapf(ErrTracing, "cannot branch on symbolic value %s: use Cond for data-dependent control flow", b.tracer.v)
	}
	return tensors.ToScalar[bool](b.tensor)
}

// Float64 returns the value of a concrete float64 scalar box.
func (b *Box) Float64() float64 {
	return tensors.ToScalar[float64](b.Tensor())
}

// String implements fmt.Stringer.
func (b *Box) String() string {
	if b.IsTracer() {
		return b.tracer.v.String() + b.tracer.v.Shape().String()
	}
	return b.tensor.String()
}

// frame is the recording buffer of one trace in progress. It is exclusively
// owned by the Trace (or Cond branch trace) call that created it; tracing is
// single-threaded.
type frame struct {
	parent *frame

	eqs []*Eq

	constVars []*Var
	constVals []*tensors.Tensor
	constIdx  map[*tensors.Tensor]*Var

	// Tracers of enclosing frames referenced by this frame are lifted into
	// fresh local variables; only conditional branch traces may capture.
	captured      map[*Var]*Var
	capturedBoxes []*Box
}

// activeFrame is the innermost recording frame. Tracing is synchronous and
// single-threaded (see the concurrency notes in the package documentation),
// so a plain package variable suffices.
var activeFrame *frame

func pushFrame() *frame {
	f := &frame{
		parent:   activeFrame,
		constIdx: make(map[*tensors.Tensor]*Var),
		captured: make(map[*Var]*Var),
	}
	activeFrame = f
	return f
}

func popFrame(f *frame) {
	if activeFrame != f {
		exceptions.Panicf("trace frames popped out of order")
	}
	activeFrame = f.parent
}

// hasAncestor reports whether other is f or one of f's enclosing frames.
func (f *frame) hasAncestor(other *frame) bool {
	for p := f; p != nil; p = p.parent {
		if p == other {
			return true
		}
	}
	return false
}

// atomOf converts a box into an operand atom of this frame. Concrete scalars
// embed as literals, larger concrete values are hoisted into constant
// variables, tracers of this frame resolve to their variable and tracers of
// enclosing frames are captured as free inputs.
func (f *frame) atomOf(b *Box) Atom {
	if !b.IsTracer() {
		t := b.tensor
		if t.IsScalar() {
			return &Lit{Value: t}
		}
		if v, found := f.constIdx[t]; found {
			return v
		}
		v := NewVar(t.Shape())
		f.constIdx[t] = v
		f.constVars = append(f.constVars, v)
		f.constVals = append(f.constVals, t)
		return v
	}
	tr := b.tracer
	if tr.frame == f {
		return tr.v
	}
	if !f.hasAncestor(tr.frame) {
		panicWrapf(ErrTracing, "tracer %s escaped the trace that created it", tr.v)
	}
	if local, found := f.captured[tr.v]; found {
		return local
	}
	local := NewVar(tr.v.Shape())
	f.captured[tr.v] = local
	f.capturedBoxes = append(f.capturedBoxes, b)
	return local
}

// Bind applies a primitive to boxes. In eager mode -- no trace in progress,
// or none of the inputs symbolic -- it dispatches to the primitive's
// concrete-eval rule. Under tracing it appends one equation to the recording
// frame, with fresh output variables typed by the primitive's abstract-eval
// rule, and returns tracer boxes over those variables.
func Bind(prim *Primitive, params Params, inputs ...*Box) []*Box {
	symbolic := false
	for _, b := range inputs {
		if b.IsTracer() {
			symbolic = true
			break
		}
	}
	if !symbolic {
		if prim.Eval == nil {
			exceptions.Panicf("primitive %q has no concrete-eval rule", prim.Name)
		}
		args := make([]*tensors.Tensor, len(inputs))
		for ii, b := range inputs {
			args[ii] = b.tensor
		}
		outs := prim.Eval(params, args...)
		boxes := make([]*Box, len(outs))
		for ii, t := range outs {
			boxes[ii] = NewBox(t)
		}
		return boxes
	}

	f := activeFrame
	if f == nil {
		// A tracer outlived its Trace call.
		panicWrapf(ErrTracing, "primitive %q applied to a tracer outside its trace", prim.Name)
	}
	if prim.AbstractEval == nil {
		panicWrapf(ErrTracing, "primitive %q has no abstract-eval rule", prim.Name)
	}
	atoms := make([]Atom, len(inputs))
	avals := make([]shapes.Shape, len(inputs))
	for ii, b := range inputs {
		atoms[ii] = f.atomOf(b)
		avals[ii] = atoms[ii].Shape()
	}
	outShapes := prim.AbstractEval(params, avals...)
	outVars := make([]*Var, len(outShapes))
	boxes := make([]*Box, len(outShapes))
	for ii, shape := range outShapes {
		outVars[ii] = NewVar(shape)
		boxes[ii] = &Box{tracer: &tracer{frame: f, v: outVars[ii]}}
	}
	f.eqs = append(f.eqs, &Eq{Prim: prim, Inputs: atoms, Outputs: outVars, Params: params})
	return boxes
}

// Bind1 is Bind for the common case of a single-output primitive.
func Bind1(prim *Primitive, params Params, inputs ...*Box) *Box {
	outs := Bind(prim, params, inputs...)
	if len(outs) != 1 {
		exceptions.Panicf("primitive %q produced %d outputs, expected 1", prim.Name, len(outs))
	}
	return outs[0]
}

// Trace executes the host function once over tracer boxes, one per input
// abstract value, and records every primitive application into a new Jaxpr
// equivalent to f for inputs of those abstract values.
func Trace(f func(inputs []*Box) []*Box, inputAvals ...shapes.Shape) *Jaxpr {
	fr := pushFrame()
	defer popFrame(fr)

	inVars := make([]*Var, len(inputAvals))
	inBoxes := make([]*Box, len(inputAvals))
	for ii, aval := range inputAvals {
		inVars[ii] = NewVar(aval)
		inBoxes[ii] = &Box{tracer: &tracer{frame: fr, v: inVars[ii]}}
	}
	outBoxes := f(inBoxes)
	if len(outBoxes) == 0 {
		panicWrapf(ErrTracing, "traced function returned no outputs")
	}
	outAtoms := make([]Atom, len(outBoxes))
	for ii, b := range outBoxes {
		outAtoms[ii] = fr.atomOf(b)
	}
	if len(fr.capturedBoxes) > 0 {
		panicWrapf(ErrTracing, "traced function closed over %d tracers of an enclosing trace", len(fr.capturedBoxes))
	}
	jx := newJaxpr(inVars, fr.eqs, outAtoms, fr.constVars, fr.constVals)
	klog.V(2).Infof("traced jaxpr %s: %d inputs, %d equations, %d consts",
		jx.Id(), len(jx.InVars), len(jx.Eqs), len(jx.ConstVars))
	return jx
}

// Trace1 traces a single-input, single-output host function.
func Trace1(f func(*Box) *Box, inputAval shapes.Shape) *Jaxpr {
	return Trace(func(inputs []*Box) []*Box {
		return []*Box{f(inputs[0])}
	}, inputAval)
}

// boolScalar is the abstract value of a conditional predicate.
var boolScalar = shapes.Make(dtypes.Bool)
