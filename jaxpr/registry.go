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

	"github.com/mgoldfarb-nvidia/jax/types/shapes"
	"github.com/mgoldfarb-nvidia/jax/types/tensors"
)

// AbstractEvalFn computes the output abstract values of a primitive from the
// abstract values of its inputs. Used by the tracing engine to type fresh
// output variables.
type AbstractEvalFn func(params Params, inputs ...shapes.Shape) []shapes.Shape

// EvalFn computes the concrete outputs of a primitive. Used by the eager
// path and by the interpreter.
type EvalFn func(params Params, inputs ...*tensors.Tensor) []*tensors.Tensor

// LinearizeFn is a primitive's local linear approximation. Given the
// concrete primal input values and one tangent atom per input -- a nil atom
// means the input carries no tangent -- the rule computes the primal outputs
// and emits whatever residual equations its differential needs into the
// builder, returning the output tangent atoms (nil for outputs with no
// tangent). Nonlinear primitives close over whichever primal values their
// tangent needs via LinearBuilder.Residual.
type LinearizeFn func(b *LinearBuilder, params Params, primals []*tensors.Tensor, tangents []Atom) (outPrimals []*tensors.Tensor, outTangents []Atom)

// TransposeFn maps a cotangent for an equation's output to cotangent
// contributions for each of its linear inputs; non-linear (primal) inputs
// must receive nil. primalOf resolves an atom to its concrete value, or nil
// if the atom is a linear variable.
type TransposeFn func(params Params, ct *tensors.Tensor, inputs []Atom, primalOf func(Atom) *tensors.Tensor) []*tensors.Tensor

// Primitive is an atomic operation: a name and the four rules the core
// dispatches to at trace, evaluation, linearization and transposition time.
// A nil rule means the primitive does not support that stage; the
// corresponding transformation reports ErrTracing / ErrLinearization /
// ErrTranspose when it encounters the primitive.
type Primitive struct {
	Name         string
	AbstractEval AbstractEvalFn
	Eval         EvalFn
	Linearize    LinearizeFn
	Transpose    TransposeFn
}

// registry maps primitive names to their rule records. It is populated by
// Register calls at init time and read-only afterwards.
var registry = map[string]*Primitive{}

// Register adds a primitive to the process-wide registry. It must be called
// at initialization time, before any tracing; registering the same name
// twice panics.
func Register(p *Primitive) *Primitive {
	if p.Name == "" {
		exceptions.Panicf("jaxpr.Register: primitive has no name")
	}
	if _, found := registry[p.Name]; found {
		exceptions.Panicf("jaxpr.Register: primitive %q registered twice", p.Name)
	}
	registry[p.Name] = p
	return p
}

// PrimitiveByName returns the registered primitive, or nil if the name is
// unknown.
func PrimitiveByName(name string) *Primitive {
	return registry[name]
}
