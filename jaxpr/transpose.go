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

	"github.com/mgoldfarb-nvidia/jax/types/tensors"
)

// TransposeLinear computes the cotangent of each of the linear jaxpr's
// inputs, given a cotangent for its (single) output -- the vector-Jacobian
// product, i.e. the reverse-mode derivative.
//
// It walks the equations in reverse order, accumulating cotangent
// contributions per variable: fan-out of a variable sums its downstream
// cotangents, and an input never reached by any contribution yields the
// additive identity (a zero cotangent).
//
// It panics with ErrArity if the linear jaxpr does not have exactly one
// output, and with ErrTranspose if an equation's primitive has no transpose
// rule or a rule produces a cotangent for a primal operand.
func TransposeLinear(lin *LinearJaxpr, outCotangent *tensors.Tensor) []*tensors.Tensor {
	if len(lin.Outs) != 1 {
		panicWrapf(ErrArity, "transpose expects a linear jaxpr with a single output, got %d", len(lin.Outs))
	}

	constEnv := make(map[*Var]*tensors.Tensor, len(lin.ConstVars))
	for ii, v := range lin.ConstVars {
		constEnv[v] = lin.ConstVals[ii]
	}
	// primalOf resolves primal operands (literals and closed-over constants)
	// to their values; linear variables resolve to nil.
	primalOf := func(a Atom) *tensors.Tensor {
		switch at := a.(type) {
		case *Lit:
			return at.Value
		case *Var:
			return constEnv[at]
		}
		exceptions.Panicf("unhandled atom type %T", a)
		return nil
	}

	ct := make(map[*Var]*tensors.Tensor, len(lin.Eqs)+len(lin.InVars))
	if v, ok := lin.Outs[0].(*Var); ok && constEnv[v] == nil {
		ct[v] = outCotangent
	}

	for ii := len(lin.Eqs) - 1; ii >= 0; ii-- {
		eq := lin.Eqs[ii]
		if len(eq.Outputs) != 1 {
			exceptions.Panicf("linear equations are single-output, %q has %d", eq.Prim.Name, len(eq.Outputs))
		}
		outCt := ct[eq.Outputs[0]]
		if outCt == nil {
			// No downstream use of this equation's output.
			continue
		}
		if eq.Prim.Transpose == nil {
			panicWrapf(ErrTranspose, "primitive %q has no transpose rule", eq.Prim.Name)
		}
		contribs := eq.Prim.Transpose(eq.Params, outCt, eq.Inputs, primalOf)
		if len(contribs) != len(eq.Inputs) {
			exceptions.Panicf("transpose of %q produced %d cotangents, equation has %d inputs",
				eq.Prim.Name, len(contribs), len(eq.Inputs))
		}
		for jj, contrib := range contribs {
			if contrib == nil {
				continue
			}
			v, ok := eq.Inputs[jj].(*Var)
			if !ok || constEnv[v] != nil {
				panicWrapf(ErrTranspose, "transpose of %q produced a cotangent for primal operand #%d",
					eq.Prim.Name, jj)
			}
			if prev := ct[v]; prev != nil {
				ct[v] = tensors.Add(prev, contrib)
			} else {
				ct[v] = contrib
			}
		}
	}

	results := make([]*tensors.Tensor, len(lin.InVars))
	for ii, v := range lin.InVars {
		if value := ct[v]; value != nil {
			results[ii] = value
		} else {
			results[ii] = tensors.Zeros(v.Shape())
		}
	}
	klog.V(2).Infof("transposed linear jaxpr %s: %d inputs received cotangents", lin.Id(), len(ct))
	return results
}
