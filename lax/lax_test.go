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

package lax_test

import (
	"math"
	"testing"

	"github.com/gomlx/exceptions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mgoldfarb-nvidia/jax/lax"
	"github.com/mgoldfarb-nvidia/jax/types/tensors"
)

// Outside a trace every op evaluates eagerly on the boxed tensors.

func TestEagerArithmetic(t *testing.T) {
	x := lax.Const(3.0)
	y := lax.Const(4.0)
	assert.Equal(t, 7.0, lax.Add(x, y).Float64())
	assert.Equal(t, -1.0, lax.Sub(x, y).Float64())
	assert.Equal(t, 12.0, lax.Mul(x, y).Float64())
	assert.Equal(t, -3.0, lax.Neg(x).Float64())
	assert.InDelta(t, math.Sin(3.0), lax.Sin(x).Float64(), 1e-12)
	assert.InDelta(t, math.Cos(3.0), lax.Cos(x).Float64(), 1e-12)
}

func TestEagerBroadcast(t *testing.T) {
	v := lax.Const([]float64{1, 2, 3})
	sum := lax.Add(v, lax.Const(10.0))
	assert.Equal(t, []float64{11, 12, 13}, sum.Tensor().Float64s())

	scaled := lax.Mul(lax.Const(2.0), v)
	assert.Equal(t, []float64{2, 4, 6}, scaled.Tensor().Float64s())
}

func TestGreater(t *testing.T) {
	gt := lax.Greater(lax.Const(2.0), lax.Const(1.0))
	assert.True(t, gt.Bool())
	assert.False(t, lax.Greater(lax.Const(1.0), lax.Const(2.0)).Bool())

	mask := lax.Greater(lax.Const([]float64{-1, 0, 1}), lax.Const(0.0))
	assert.Equal(t, []bool{false, false, true}, tensors.CopyFlatData[bool](mask.Tensor()))
}

func TestShapeErrors(t *testing.T) {
	err := exceptions.TryCatch[error](func() {
		_ = lax.Add(lax.Const(1.0), lax.Const(float32(1)))
	})
	require.ErrorContains(t, err, "differ")

	err = exceptions.TryCatch[error](func() {
		_ = lax.Add(lax.Const([]float64{1, 2}), lax.Const([]float64{1, 2, 3}))
	})
	require.ErrorContains(t, err, "not compatible")
}
