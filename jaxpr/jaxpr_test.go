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
	"github.com/mgoldfarb-nvidia/jax/types/shapes"
	"github.com/mgoldfarb-nvidia/jax/types/tensors"
)

var scalarF64 = shapes.Scalar[float64]()

// f implements z = -(sin(x)*2) + x, the running example of the package.
func f(x *jaxpr.Box) *jaxpr.Box {
	y := lax.Mul(lax.Sin(x), lax.Const(2.0))
	return lax.Add(lax.Neg(y), x)
}

func fScalar(x float64) float64 { return -2*math.Sin(x) + x }

func TestTraceAndEval(t *testing.T) {
	jx := jaxpr.Trace1(f, scalarF64)
	require.NoError(t, jx.Check())
	assert.Len(t, jx.InVars, 1)
	assert.Len(t, jx.Outs, 1)
	// sin, mul, neg, add -- the literal 2.0 is inlined, not an equation.
	assert.Len(t, jx.Eqs, 4)

	// The traced jaxpr evaluates to the same value as the host function, at
	// points other than the one it was traced at.
	for _, x := range []float64{0, 1, 3, -2.5} {
		outs := jaxpr.Eval(nil, jx, tensors.FromScalar(x))
		require.Len(t, outs, 1)
		assert.InDelta(t, fScalar(x), tensors.ToScalar[float64](outs[0]), 1e-12)
	}
}

func TestJaxprString(t *testing.T) {
	jx := jaxpr.Trace1(f, scalarF64)
	s := jx.String()
	assert.Contains(t, s, "lambda")
	assert.Contains(t, s, "sin")
	assert.Contains(t, s, "mul")
	assert.Contains(t, s, "in (")
}

func TestCheckRejectsUnboundVariable(t *testing.T) {
	v1 := jaxpr.NewVar(scalarF64)
	v2 := jaxpr.NewVar(scalarF64)
	v3 := jaxpr.NewVar(scalarF64)
	add := jaxpr.PrimitiveByName("add")
	jx := &jaxpr.Jaxpr{
		InVars: []*jaxpr.Var{v1},
		Eqs: []*jaxpr.Eq{
			{Prim: add, Inputs: []jaxpr.Atom{v1, v2}, Outputs: []*jaxpr.Var{v3}},
		},
		Outs: []jaxpr.Atom{v3},
	}
	require.ErrorIs(t, jx.Check(), jaxpr.ErrUnboundVariable)

	// Evaluating it trips over the same variable.
	err := exceptions.TryCatch[error](func() {
		_ = jaxpr.Eval(nil, jx, tensors.FromScalar(1.0))
	})
	require.ErrorIs(t, err, jaxpr.ErrUnboundVariable)
}

func TestEvalArity(t *testing.T) {
	jx := jaxpr.Trace1(f, scalarF64)
	err := exceptions.TryCatch[error](func() {
		_ = jaxpr.Eval(nil, jx, tensors.FromScalar(1.0), tensors.FromScalar(2.0))
	})
	require.ErrorIs(t, err, jaxpr.ErrArity)
}

func TestTracerEscape(t *testing.T) {
	var leaked *jaxpr.Box
	_ = jaxpr.Trace1(func(x *jaxpr.Box) *jaxpr.Box {
		leaked = x
		return lax.Neg(x)
	}, scalarF64)

	err := exceptions.TryCatch[error](func() { _ = lax.Sin(leaked) })
	require.ErrorIs(t, err, jaxpr.ErrTracing)
}

func TestTracerHasNoConcreteValue(t *testing.T) {
	err := exceptions.TryCatch[error](func() {
		_ = jaxpr.Trace1(func(x *jaxpr.Box) *jaxpr.Box {
			if x.Float64() > 0 { // Symbolic value, must panic.
				return x
			}
			return lax.Neg(x)
		}, scalarF64)
	})
	require.ErrorIs(t, err, jaxpr.ErrTracing)
}

// evalOnlyPrim has no abstract-eval rule, so it works eagerly but cannot be
// traced.
var evalOnlyPrim = jaxpr.Register(&jaxpr.Primitive{
	Name: "test_eval_only",
	Eval: func(_ jaxpr.Params, inputs ...*tensors.Tensor) []*tensors.Tensor {
		return []*tensors.Tensor{inputs[0]}
	},
})

func TestBindWithoutAbstractEval(t *testing.T) {
	out := jaxpr.Bind1(evalOnlyPrim, nil, jaxpr.NewBox(tensors.FromScalar(7.0)))
	assert.Equal(t, 7.0, out.Float64())

	err := exceptions.TryCatch[error](func() {
		_ = jaxpr.Trace1(func(x *jaxpr.Box) *jaxpr.Box {
			return jaxpr.Bind1(evalOnlyPrim, nil, x)
		}, scalarF64)
	})
	require.ErrorIs(t, err, jaxpr.ErrTracing)
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	err := exceptions.TryCatch[error](func() {
		_ = jaxpr.Register(&jaxpr.Primitive{Name: "add"})
	})
	require.Error(t, err)
}
