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

	"github.com/mgoldfarb-nvidia/jax/types/tensors"
)

// Eval replays the jaxpr's equations against concrete inputs and returns the
// concrete values of its output atoms, in order.
//
// constsEnv supplies values for free variables beyond the constants the
// jaxpr already closes over; it may be nil. args must match the jaxpr's
// declared inputs in count and order, otherwise Eval panics with ErrArity.
// An unresolved variable during replay indicates a broken jaxpr and panics
// with ErrUnboundVariable.
func Eval(constsEnv map[*Var]*tensors.Tensor, jx *Jaxpr, args ...*tensors.Tensor) []*tensors.Tensor {
	if len(args) != len(jx.InVars) {
		panicWrapf(ErrArity, "jaxpr declares %d inputs, got %d arguments", len(jx.InVars), len(args))
	}
	env := make(map[*Var]*tensors.Tensor, len(jx.InVars)+len(jx.ConstVars)+len(jx.Eqs))
	for ii, v := range jx.ConstVars {
		env[v] = jx.ConstVals[ii]
	}
	for v, value := range constsEnv {
		env[v] = value
	}
	for ii, v := range jx.InVars {
		env[v] = args[ii]
	}

	resolve := func(a Atom) *tensors.Tensor {
		switch at := a.(type) {
		case *Lit:
			return at.Value
		case *Var:
			value, found := env[at]
			if !found {
				panicWrapf(ErrUnboundVariable, "variable %s read before being bound", at)
			}
			return value
		}
		exceptions.Panicf("unhandled atom type %T", a)
		return nil
	}

	for _, eq := range jx.Eqs {
		if eq.Prim.Eval == nil {
			exceptions.Panicf("primitive %q has no concrete-eval rule", eq.Prim.Name)
		}
		ins := make([]*tensors.Tensor, len(eq.Inputs))
		for ii, a := range eq.Inputs {
			ins[ii] = resolve(a)
		}
		outs := eq.Prim.Eval(eq.Params, ins...)
		if len(outs) != len(eq.Outputs) {
			exceptions.Panicf("primitive %q produced %d outputs, equation declares %d",
				eq.Prim.Name, len(outs), len(eq.Outputs))
		}
		for ii, v := range eq.Outputs {
			env[v] = outs[ii]
		}
	}

	results := make([]*tensors.Tensor, len(jx.Outs))
	for ii, a := range jx.Outs {
		results[ii] = resolve(a)
	}
	return results
}
