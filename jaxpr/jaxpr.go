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

// Package jaxpr is the core of the autodiff engine: a tiny functional
// intermediate representation of numeric programs ("jaxprs") and the four
// program transformations that operate on it.
//
// The main elements of the package are:
//
//   - Jaxpr: an immutable single-static-assignment program: input variables,
//     an ordered list of equations (one primitive application each) and
//     output atoms, plus closed-over constants. Produced by Trace.
//
//   - Box: the value the host function manipulates. A Box holds either a
//     concrete tensor (eager evaluation) or a tracer bound to the recording
//     in progress. Primitive ops (see package lax) accept and return boxes,
//     so the same Go function can be executed eagerly or traced.
//
//   - Trace: runs a host function once over tracer boxes and records every
//     primitive application into a new Jaxpr.
//
//   - Eval: replays a Jaxpr's equations against concrete inputs.
//
//   - Linearize: partial evaluation producing the primal outputs together
//     with a residual linear jaxpr encoding the directional derivative
//     (Jacobian-vector product) at the given inputs.
//
//   - TransposeLinear: walks a linear jaxpr backwards, converting a
//     cotangent for its output into cotangents for its inputs (the
//     vector-Jacobian product). Composed by ValueAndGrad into reverse-mode
//     gradients.
//
//   - Cond: the single data-dependent control-flow primitive, a two-branch
//     conditional whose branches are captured as sub-jaxprs.
//
// Primitives themselves (add, mul, sin, ...) live outside the core: each is
// a Primitive record of four rules registered by name, and the core only
// dispatches to those rules. Package lax provides the standard set.
//
// All data structures are immutable once built; jaxprs can be re-evaluated
// repeatedly and shared freely. Errors are reported as panics carrying
// wrapped sentinel errors (ErrTracing, ErrArity, ...) with stack traces;
// use exceptions.TryCatch to capture them as ordinary errors.
package jaxpr

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/mgoldfarb-nvidia/jax/types/shapes"
	"github.com/mgoldfarb-nvidia/jax/types/tensors"
)

// VarId uniquely identifies a Var; ids are never reused across jaxprs.
type VarId int64

var lastVarId atomic.Int64

// Var is a variable of a jaxpr: a unique identity carrying an abstract
// value. It is bound exactly once, by a graph input, a closed-over constant
// or the output of a single equation.
type Var struct {
	id    VarId
	shape shapes.Shape
}

// NewVar returns a fresh variable with the given abstract value.
func NewVar(shape shapes.Shape) *Var {
	return &Var{id: VarId(lastVarId.Add(1)), shape: shape}
}

// Id returns the variable's unique id.
func (v *Var) Id() VarId { return v.id }

// Shape returns the variable's abstract value.
func (v *Var) Shape() shapes.Shape { return v.shape }

// String implements fmt.Stringer.
func (v *Var) String() string { return fmt.Sprintf("v%d", v.id) }

func (v *Var) isAtom() {}

// Lit is a constant embedded directly in an equation operand.
type Lit struct {
	Value *tensors.Tensor
}

// Shape returns the literal's abstract value.
func (l *Lit) Shape() shapes.Shape { return l.Value.Shape() }

// String implements fmt.Stringer.
func (l *Lit) String() string { return l.Value.String() }

func (l *Lit) isAtom() {}

// Atom is an operand of an equation or an output of a jaxpr: either a *Var
// or a *Lit.
type Atom interface {
	shapes.HasShape
	fmt.Stringer
	isAtom()
}

// Params holds the static (compile-time) parameters of an equation, e.g.
// the branch sub-jaxprs of a conditional.
type Params map[string]any

// Eq is one primitive application: input atoms, output variables and static
// parameters. Output variables are bound exactly once.
type Eq struct {
	Prim    *Primitive
	Inputs  []Atom
	Outputs []*Var
	Params  Params
}

// String implements fmt.Stringer.
func (eq *Eq) String() string {
	ins := make([]string, 0, len(eq.Inputs))
	for _, a := range eq.Inputs {
		ins = append(ins, a.String())
	}
	outs := make([]string, 0, len(eq.Outputs))
	for _, v := range eq.Outputs {
		outs = append(outs, v.String())
	}
	return fmt.Sprintf("%s = %s(%s)", strings.Join(outs, ", "), eq.Prim.Name, strings.Join(ins, ", "))
}

// Jaxpr is an immutable SSA program: input variables, ordered equations and
// output atoms, plus the constants it closes over. Every atom referenced by
// an equation or output is bound earlier -- by an input, a constant or a
// previous equation -- so the equation order is a valid topological order.
type Jaxpr struct {
	id string

	InVars []*Var
	Eqs    []*Eq
	Outs   []Atom

	// ConstVars are bound to ConstVals (element-wise) before evaluation.
	ConstVars []*Var
	ConstVals []*tensors.Tensor
}

func newJaxpr(inVars []*Var, eqs []*Eq, outs []Atom, constVars []*Var, constVals []*tensors.Tensor) *Jaxpr {
	return &Jaxpr{
		id:        uuid.NewString(),
		InVars:    inVars,
		Eqs:       eqs,
		Outs:      outs,
		ConstVars: constVars,
		ConstVals: constVals,
	}
}

// Id returns a unique identifier for the jaxpr, used in logs.
func (jx *Jaxpr) Id() string { return jx.id }

// String converts the Jaxpr to a multi-line listing.
func (jx *Jaxpr) String() string {
	var sb strings.Builder
	ins := make([]string, 0, len(jx.InVars))
	for _, v := range jx.InVars {
		ins = append(ins, fmt.Sprintf("%s%s", v, v.Shape()))
	}
	fmt.Fprintf(&sb, "{ lambda %s .\n", strings.Join(ins, " "))
	for ii, v := range jx.ConstVars {
		fmt.Fprintf(&sb, "  const %s = %s\n", v, jx.ConstVals[ii])
	}
	for _, eq := range jx.Eqs {
		fmt.Fprintf(&sb, "  let %s\n", eq)
	}
	outs := make([]string, 0, len(jx.Outs))
	for _, a := range jx.Outs {
		outs = append(outs, a.String())
	}
	fmt.Fprintf(&sb, "  in ( %s ) }", strings.Join(outs, ", "))
	return sb.String()
}

// Check verifies the SSA invariants: every variable is bound exactly once
// (input, constant or single equation output) and every atom consumed by an
// equation or listed as an output is bound by the time it is read. A
// use-before-def is reported as an error wrapping ErrUnboundVariable.
func (jx *Jaxpr) Check() error {
	if len(jx.ConstVars) != len(jx.ConstVals) {
		return errors.Errorf("jaxpr has %d constant variables but %d constant values",
			len(jx.ConstVars), len(jx.ConstVals))
	}
	bound := make(map[*Var]bool, len(jx.InVars)+len(jx.ConstVars))
	bind := func(v *Var) error {
		if bound[v] {
			return errors.Errorf("variable %s is bound more than once", v)
		}
		bound[v] = true
		return nil
	}
	for _, v := range jx.InVars {
		if err := bind(v); err != nil {
			return err
		}
	}
	for _, v := range jx.ConstVars {
		if err := bind(v); err != nil {
			return err
		}
	}
	checkRead := func(a Atom, context string) error {
		v, ok := a.(*Var)
		if !ok {
			return nil
		}
		if !bound[v] {
			return errors.Wrapf(ErrUnboundVariable, "%s reads %s before it is bound", context, v)
		}
		return nil
	}
	for _, eq := range jx.Eqs {
		for _, a := range eq.Inputs {
			if err := checkRead(a, fmt.Sprintf("equation %q", eq)); err != nil {
				return err
			}
		}
		for _, v := range eq.Outputs {
			if err := bind(v); err != nil {
				return err
			}
		}
	}
	for _, a := range jx.Outs {
		if err := checkRead(a, "output list"); err != nil {
			return err
		}
	}
	return nil
}
