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

	"github.com/mgoldfarb-nvidia/jax/types/shapes"
	"github.com/mgoldfarb-nvidia/jax/types/tensors"
)

// The two-branch conditional. Its equation carries both branch sub-jaxprs as
// static parameters (an ordinary tree of immutable values, no
// back-references) and the predicate plus the branches' free variables as
// runtime inputs.

const (
	condTrueBranch  = "true_branch"
	condFalseBranch = "false_branch"
)

var condPrim = Register(&Primitive{
	Name:         "cond",
	AbstractEval: condAbstractEval,
	Eval:         condEval,
	Linearize:    condLinearize,
	// The linearizer inlines the selected branch, so a conditional never
	// appears in a linear jaxpr and no transpose rule is needed.
})

// Cond evaluates trueFn if pred is true, falseFn otherwise.
//
// With a concrete predicate only the selected branch executes. With a
// symbolic predicate both branches are traced independently into sub-jaxprs
// -- they must return the same abstract value, else Cond panics with
// ErrTracing -- and a single conditional equation is recorded; evaluating it
// resolves the predicate and interprets the selected sub-jaxpr.
func Cond(pred *Box, trueFn, falseFn func() *Box) *Box {
	if !pred.IsTracer() {
		p := pred.tensor
		if p.DType() != dtypes.Bool || !p.IsScalar() {
			exceptions.Panicf("Cond: predicate must be a boolean scalar, got %s", p.Shape())
		}
		if tensors.ToScalar[bool](p) {
			return trueFn()
		}
		return falseFn()
	}

	f := activeFrame
	if f == nil {
		panicWrapf(ErrTracing, "Cond predicate is a tracer outside its trace")
	}
	if !pred.Shape().Equal(boolScalar) {
		panicWrapf(ErrTracing, "Cond: predicate must be a boolean scalar, got %s", pred.Shape())
	}
	tb := traceBranch(trueFn)
	fb := traceBranch(falseFn)
	if !tb.out.Shape().Equal(fb.out.Shape()) {
		panicWrapf(ErrTracing, "Cond branches return different abstract values: %s vs %s",
			tb.out.Shape(), fb.out.Shape())
	}

	// Both branch jaxprs take the union of the branches' free variables, in
	// first-capture order, so the conditional equation has a single operand
	// list.
	var union []*Box
	seen := make(map[*Var]bool)
	for _, b := range append(append([]*Box{}, tb.capturedBoxes...), fb.capturedBoxes...) {
		if !seen[b.tracer.v] {
			seen[b.tracer.v] = true
			union = append(union, b)
		}
	}
	trueJaxpr := tb.buildJaxpr(union)
	falseJaxpr := fb.buildJaxpr(union)

	inputs := make([]Atom, 0, 1+len(union))
	inputs = append(inputs, f.atomOf(pred))
	for _, b := range union {
		inputs = append(inputs, f.atomOf(b))
	}
	outVar := NewVar(tb.out.Shape())
	f.eqs = append(f.eqs, &Eq{
		Prim:    condPrim,
		Inputs:  inputs,
		Outputs: []*Var{outVar},
		Params:  Params{condTrueBranch: trueJaxpr, condFalseBranch: falseJaxpr},
	})
	return &Box{tracer: &tracer{frame: f, v: outVar}}
}

// branchTrace holds the recording of one conditional branch.
type branchTrace struct {
	eqs           []*Eq
	constVars     []*Var
	constVals     []*tensors.Tensor
	out           Atom
	captured      map[*Var]*Var
	capturedBoxes []*Box
}

// traceBranch records a zero-argument branch body into its own frame.
// Tracers of enclosing frames referenced by the body become the branch's
// free variables.
func traceBranch(fn func() *Box) *branchTrace {
	fr := pushFrame()
	defer popFrame(fr)
	out := fn()
	return &branchTrace{
		eqs:           fr.eqs,
		constVars:     fr.constVars,
		constVals:     fr.constVals,
		out:           fr.atomOf(out),
		captured:      fr.captured,
		capturedBoxes: fr.capturedBoxes,
	}
}

// buildJaxpr closes the branch over the union of free variables: captures
// present in this branch keep their lifted variable, the others get a fresh
// unused input of the right abstract value.
func (bt *branchTrace) buildJaxpr(union []*Box) *Jaxpr {
	inVars := make([]*Var, len(union))
	for ii, b := range union {
		if local, found := bt.captured[b.tracer.v]; found {
			inVars[ii] = local
		} else {
			inVars[ii] = NewVar(b.Shape())
		}
	}
	return newJaxpr(inVars, bt.eqs, []Atom{bt.out}, bt.constVars, bt.constVals)
}

func condBranches(params Params) (trueJaxpr, falseJaxpr *Jaxpr) {
	return params[condTrueBranch].(*Jaxpr), params[condFalseBranch].(*Jaxpr)
}

func condAbstractEval(params Params, inputs ...shapes.Shape) []shapes.Shape {
	trueJaxpr, falseJaxpr := condBranches(params)
	if len(inputs) == 0 || !inputs[0].Equal(boolScalar) {
		panicWrapf(ErrTracing, "cond: predicate must be a boolean scalar")
	}
	if len(inputs)-1 != len(trueJaxpr.InVars) || len(inputs)-1 != len(falseJaxpr.InVars) {
		panicWrapf(ErrArity, "cond: %d operands for branches declaring %d and %d inputs",
			len(inputs)-1, len(trueJaxpr.InVars), len(falseJaxpr.InVars))
	}
	return []shapes.Shape{trueJaxpr.Outs[0].Shape()}
}

func condEval(params Params, inputs ...*tensors.Tensor) []*tensors.Tensor {
	trueJaxpr, falseJaxpr := condBranches(params)
	branch := falseJaxpr
	if tensors.ToScalar[bool](inputs[0]) {
		branch = trueJaxpr
	}
	return Eval(nil, branch, inputs[1:]...)
}

// condLinearize linearizes only the branch selected by the concrete
// predicate, inlining its residual equations into the enclosing linear
// jaxpr. The result is valid for the branch taken at the linearization
// point; re-use under a different predicate value is unsupported.
func condLinearize(b *LinearBuilder, params Params, primals []*tensors.Tensor, tangents []Atom) ([]*tensors.Tensor, []Atom) {
	trueJaxpr, falseJaxpr := condBranches(params)
	branch := falseJaxpr
	if tensors.ToScalar[bool](primals[0]) {
		branch = trueJaxpr
	}
	return linearizeInto(b, branch, primals[1:], tangents[1:])
}
