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

package jaxpr_test

import (
	"math"
	"testing"

	"github.com/gomlx/exceptions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mgoldfarb-nvidia/jax/jaxpr"
	"github.com/mgoldfarb-nvidia/jax/lax"
	"github.com/mgoldfarb-nvidia/jax/types/tensors"
)

func TestTransposeLinear(t *testing.T) {
	jx := jaxpr.Trace1(f, scalarF64)
	_, lin := jaxpr.Linearize(jx, tensors.FromScalar(3.0))
	cotangents := jaxpr.TransposeLinear(lin, tensors.FromScalar(1.0))
	require.Len(t, cotangents, 1)
	// d/dx (-2 sin x + x) = -2 cos x + 1.
	assert.InDelta(t, -2*math.Cos(3.0)+1, tensors.ToScalar[float64](cotangents[0]), 1e-12)

	// The cotangent scales linearly with the output seed.
	scaled := jaxpr.TransposeLinear(lin, tensors.FromScalar(-3.0))
	assert.InDelta(t, -3*(-2*math.Cos(3.0)+1), tensors.ToScalar[float64](scaled[0]), 1e-12)
}

func TestValueAndGrad(t *testing.T) {
	value, gradient := jaxpr.ValueAndGrad(f, 3.0)
	assert.InDelta(t, fScalar(3.0), tensors.ToScalar[float64](value), 1e-12)
	assert.InDelta(t, -2*math.Cos(3.0)+1, tensors.ToScalar[float64](gradient), 1e-12)

	assert.InDelta(t, -2*math.Cos(0.5)+1,
		tensors.ToScalar[float64](jaxpr.Grad(f, 0.5)), 1e-12)
}

func TestTransposeUnusedInput(t *testing.T) {
	// An input the output does not depend on receives the zero cotangent.
	jx := jaxpr.Trace(func(inputs []*jaxpr.Box) []*jaxpr.Box {
		return []*jaxpr.Box{lax.Mul(inputs[0], lax.Const(2.0))}
	}, scalarF64, scalarF64)
	_, lin := jaxpr.Linearize(jx, tensors.FromScalar(3.0), tensors.FromScalar(5.0))
	cotangents := jaxpr.TransposeLinear(lin, tensors.FromScalar(1.0))
	require.Len(t, cotangents, 2)
	assert.Equal(t, 2.0, tensors.ToScalar[float64](cotangents[0]))
	assert.Equal(t, 0.0, tensors.ToScalar[float64](cotangents[1]))
}

func TestTransposeArity(t *testing.T) {
	jx := jaxpr.Trace(func(inputs []*jaxpr.Box) []*jaxpr.Box {
		return []*jaxpr.Box{lax.Neg(inputs[0]), lax.Sin(inputs[0])}
	}, scalarF64)
	_, lin := jaxpr.Linearize(jx, tensors.FromScalar(1.0))
	err := exceptions.TryCatch[error](func() {
		_ = jaxpr.TransposeLinear(lin, tensors.FromScalar(1.0))
	})
	require.ErrorIs(t, err, jaxpr.ErrArity)
}

func TestTransposeMissingRule(t *testing.T) {
	// A hand-built linear jaxpr holding a primitive with no transpose rule.
	in := jaxpr.NewVar(scalarF64)
	out := jaxpr.NewVar(scalarF64)
	sin := jaxpr.PrimitiveByName("sin")
	require.NotNil(t, sin)
	lin := &jaxpr.LinearJaxpr{Jaxpr: &jaxpr.Jaxpr{
		InVars: []*jaxpr.Var{in},
		Eqs: []*jaxpr.Eq{
			{Prim: sin, Inputs: []jaxpr.Atom{in}, Outputs: []*jaxpr.Var{out}},
		},
		Outs: []jaxpr.Atom{out},
	}}
	err := exceptions.TryCatch[error](func() {
		_ = jaxpr.TransposeLinear(lin, tensors.FromScalar(1.0))
	})
	require.ErrorIs(t, err, jaxpr.ErrTranspose)
}
