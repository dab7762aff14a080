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
	"k8s.io/klog/v2"

	"github.com/mgoldfarb-nvidia/jax/types/shapes"
	"github.com/mgoldfarb-nvidia/jax/types/tensors"
)

// LinearJaxpr is a jaxpr whose variables all carry the differentiated
// (tangent or cotangent) quantity; primal values appear only as literals or
// closed-over constants. The partition makes every equation linear in its
// variable operands by construction: the linearization rules of nonlinear and
// bilinear primitives always close over their primal values as constants,
// leaving at most one linear operand per emitted equation.
type LinearJaxpr struct {
	*Jaxpr
}

// LinearBuilder accumulates the residual equations of a linearization in
// progress. Linearize rules use it to emit their differential and to close
// over primal residual values.
type LinearBuilder struct {
	eqs       []*Eq
	constVars []*Var
	constVals []*tensors.Tensor
	constIdx  map[*tensors.Tensor]*Var
}

func newLinearBuilder() *LinearBuilder {
	return &LinearBuilder{constIdx: make(map[*tensors.Tensor]*Var)}
}

// Residual embeds a primal value into the linear jaxpr under construction:
// scalars as literals, anything larger as a closed-over constant.
func (b *LinearBuilder) Residual(t *tensors.Tensor) Atom {
	if t.IsScalar() {
		return &Lit{Value: t}
	}
	if v, found := b.constIdx[t]; found {
		return v
	}
	v := NewVar(t.Shape())
	b.constIdx[t] = v
	b.constVars = append(b.constVars, v)
	b.constVals = append(b.constVals, t)
	return v
}

// Emit appends one single-output equation to the linear jaxpr, typing its
// fresh output variable with the primitive's abstract-eval rule.
func (b *LinearBuilder) Emit(prim *Primitive, params Params, inputs ...Atom) Atom {
	if prim.AbstractEval == nil {
		panicWrapf(ErrLinearization, "primitive %q has no abstract-eval rule", prim.Name)
	}
	avals := atomShapes(inputs)
	outShapes := prim.AbstractEval(params, avals...)
	if len(outShapes) != 1 {
		exceptions.Panicf("LinearBuilder.Emit only supports single-output primitives, %q has %d outputs",
			prim.Name, len(outShapes))
	}
	v := NewVar(outShapes[0])
	b.eqs = append(b.eqs, &Eq{Prim: prim, Inputs: inputs, Outputs: []*Var{v}, Params: params})
	return v
}

// Linearize evaluates the jaxpr at args and simultaneously builds the
// residual linear jaxpr of its directional derivative at that point: the
// returned LinearJaxpr, evaluated on a tangent vector (one tangent per
// original input, same abstract values), yields the Jacobian-vector product
// without recomputing the primal pass. The primal outputs are returned
// alongside.
//
// It panics with ErrArity on an input count mismatch and with
// ErrLinearization if a primitive in the jaxpr has no linearization rule.
func Linearize(jx *Jaxpr, args ...*tensors.Tensor) ([]*tensors.Tensor, *LinearJaxpr) {
	if len(args) != len(jx.InVars) {
		panicWrapf(ErrArity, "jaxpr declares %d inputs, got %d arguments", len(jx.InVars), len(args))
	}
	b := newLinearBuilder()
	linVars := make([]*Var, len(jx.InVars))
	tangents := make([]Atom, len(jx.InVars))
	for ii, v := range jx.InVars {
		linVars[ii] = NewVar(v.Shape())
		tangents[ii] = linVars[ii]
	}
	primals, outTangents := linearizeInto(b, jx, args, tangents)

	outs := make([]Atom, len(outTangents))
	for ii, tangent := range outTangents {
		if tangent == nil {
			// Output independent of the inputs: its tangent is identically zero.
			tangent = b.Residual(tensors.Zeros(primals[ii].Shape()))
		}
		outs[ii] = tangent
	}
	lin := &LinearJaxpr{newJaxpr(linVars, b.eqs, outs, b.constVars, b.constVals)}
	klog.V(2).Infof("linearized jaxpr %s into %s: %d residual equations",
		jx.Id(), lin.Id(), len(lin.Eqs))
	return primals, lin
}

// linearizeInto runs the linearizer over one jaxpr, appending residual
// equations to b. primals and tangents bind the jaxpr's inputs; a nil
// tangent atom means that input is not tangent-relevant. It returns the
// concrete primal outputs and the tangent atom of each output (nil when the
// output carries no tangent). The conditional's linearize rule reuses it to
// inline the selected branch.
func linearizeInto(b *LinearBuilder, jx *Jaxpr, primals []*tensors.Tensor, tangents []Atom) ([]*tensors.Tensor, []Atom) {
	if len(primals) != len(jx.InVars) || len(tangents) != len(jx.InVars) {
		exceptions.Panicf("linearize: jaxpr declares %d inputs, got %d primals and %d tangents",
			len(jx.InVars), len(primals), len(tangents))
	}
	envP := make(map[*Var]*tensors.Tensor, len(jx.InVars)+len(jx.ConstVars)+len(jx.Eqs))
	envT := make(map[*Var]Atom, len(jx.InVars)+len(jx.Eqs))
	for ii, v := range jx.ConstVars {
		envP[v] = jx.ConstVals[ii]
	}
	for ii, v := range jx.InVars {
		envP[v] = primals[ii]
		envT[v] = tangents[ii]
	}

	resolveP := func(a Atom) *tensors.Tensor {
		switch at := a.(type) {
		case *Lit:
			return at.Value
		case *Var:
			value, found := envP[at]
			if !found {
				panicWrapf(ErrUnboundVariable, "variable %s read before being bound", at)
			}
			return value
		}
		exceptions.Panicf("unhandled atom type %T", a)
		return nil
	}
	resolveT := func(a Atom) Atom {
		if v, ok := a.(*Var); ok {
			return envT[v]
		}
		return nil // Literals carry no tangent.
	}

	for _, eq := range jx.Eqs {
		ins := make([]*tensors.Tensor, len(eq.Inputs))
		tans := make([]Atom, len(eq.Inputs))
		anyTangent := false
		for ii, a := range eq.Inputs {
			ins[ii] = resolveP(a)
			tans[ii] = resolveT(a)
			anyTangent = anyTangent || tans[ii] != nil
		}
		var outPrimals []*tensors.Tensor
		var outTangents []Atom
		if !anyTangent {
			// No tangent flows through this equation: evaluate the primal only
			// and elide it from the linear jaxpr.
			if eq.Prim.Eval == nil {
				exceptions.Panicf("primitive %q has no concrete-eval rule", eq.Prim.Name)
			}
			outPrimals = eq.Prim.Eval(eq.Params, ins...)
			outTangents = make([]Atom, len(outPrimals))
		} else {
			if eq.Prim.Linearize == nil {
				panicWrapf(ErrLinearization, "primitive %q has no linearization rule", eq.Prim.Name)
			}
			outPrimals, outTangents = eq.Prim.Linearize(b, eq.Params, ins, tans)
		}
		if len(outPrimals) != len(eq.Outputs) || len(outTangents) != len(eq.Outputs) {
			exceptions.Panicf("linearization of %q produced %d primals and %d tangents, equation declares %d outputs",
				eq.Prim.Name, len(outPrimals), len(outTangents), len(eq.Outputs))
		}
		for ii, v := range eq.Outputs {
			envP[v] = outPrimals[ii]
			if outTangents[ii] != nil {
				envT[v] = outTangents[ii]
			}
		}
	}

	outPrimals := make([]*tensors.Tensor, len(jx.Outs))
	outTangents := make([]Atom, len(jx.Outs))
	for ii, a := range jx.Outs {
		outPrimals[ii] = resolveP(a)
		outTangents[ii] = resolveT(a)
	}
	return outPrimals, outTangents
}

func atomShapes(atoms []Atom) []shapes.Shape {
	avals := make([]shapes.Shape, len(atoms))
	for ii, a := range atoms {
		avals[ii] = a.Shape()
	}
	return avals
}
