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

package tensors_test

import (
	"math"
	"testing"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/x448/float16"

	"github.com/mgoldfarb-nvidia/jax/types/shapes"
	"github.com/mgoldfarb-nvidia/jax/types/tensors"
)

func TestFromValue(t *testing.T) {
	scalar := tensors.FromValue(3.5)
	assert.True(t, scalar.IsScalar())
	assert.Equal(t, 3.5, tensors.ToScalar[float64](scalar))

	matrix := tensors.FromValue([][]float32{{1, 2, 3}, {4, 5, 6}})
	assert.True(t, matrix.Shape().Equal(shapes.Make(dtypes.Float32, 2, 3)))
	assert.Equal(t, []float32{1, 2, 3, 4, 5, 6}, tensors.CopyFlatData[float32](matrix))

	// Go int values are stored as int64.
	ints := tensors.FromValue([]int{7, 8})
	assert.Equal(t, dtypes.Int64, ints.DType())
	assert.Equal(t, []int64{7, 8}, tensors.CopyFlatData[int64](ints))

	err := exceptions.TryCatch[error](func() { _ = tensors.FromValue(struct{}{}) })
	require.ErrorIs(t, err, shapes.ErrUnsupportedValueKind)
}

func TestFromFlatDataAndDimensions(t *testing.T) {
	v := tensors.FromFlatDataAndDimensions([]float64{1, 2, 3, 4}, 2, 2)
	assert.True(t, v.Shape().Equal(shapes.Make(dtypes.Float64, 2, 2)))

	err := exceptions.TryCatch[error](func() {
		_ = tensors.FromFlatDataAndDimensions([]float64{1, 2, 3}, 2, 2)
	})
	require.Error(t, err)
}

func TestZerosAndOnes(t *testing.T) {
	shape := shapes.Make(dtypes.Float64, 3)
	assert.Equal(t, []float64{0, 0, 0}, tensors.Zeros(shape).Float64s())
	assert.Equal(t, []float64{1, 1, 1}, tensors.Ones(shape).Float64s())
}

func TestFloat16Conversion(t *testing.T) {
	shape := shapes.Make(dtypes.Float16, 2)
	v := tensors.FromFlatFloat64s(shape, []float64{1.5, -2})
	assert.Equal(t, []float16.Float16{float16.Fromfloat32(1.5), float16.Fromfloat32(-2)},
		tensors.CopyFlatData[float16.Float16](v))
	assert.Equal(t, []float64{1.5, -2}, v.Float64s())
}

func TestBinaryOpBroadcast(t *testing.T) {
	a := tensors.FromValue([]float64{1, 2, 3})
	b := tensors.FromValue(10.0)
	sum := tensors.Add(a, b)
	assert.Equal(t, []float64{11, 12, 13}, sum.Float64s())

	sum = tensors.Add(b, a)
	assert.Equal(t, []float64{11, 12, 13}, sum.Float64s())

	mixed := tensors.FromValue([]float32{1})
	err := exceptions.TryCatch[error](func() { _ = tensors.Add(a, mixed) })
	require.Error(t, err)
}

func TestUnaryOp(t *testing.T) {
	v := tensors.UnaryOp(math.Sin, tensors.FromValue([]float64{0, math.Pi / 2}))
	got := v.Float64s()
	assert.InDelta(t, 0, got[0], 1e-12)
	assert.InDelta(t, 1, got[1], 1e-12)
}

func TestCompareOp(t *testing.T) {
	a := tensors.FromValue([]float64{1, 3})
	b := tensors.FromValue(2.0)
	got := tensors.CompareOp(func(x, y float64) bool { return x > y }, a, b)
	assert.Equal(t, dtypes.Bool, got.DType())
	assert.Equal(t, []bool{false, true}, tensors.CopyFlatData[bool](got))
}

func TestSumTo(t *testing.T) {
	v := tensors.FromValue([]float64{1, 2, 3})
	scalar := tensors.SumTo(v, shapes.Make(dtypes.Float64))
	assert.Equal(t, 6.0, tensors.ToScalar[float64](scalar))
	assert.Same(t, v, tensors.SumTo(v, v.Shape()))
}

func TestEqual(t *testing.T) {
	a := tensors.FromValue([]float64{1, 2})
	assert.True(t, a.Equal(tensors.FromValue([]float64{1, 2})))
	assert.False(t, a.Equal(tensors.FromValue([]float64{1, 3})))
	assert.False(t, a.Equal(tensors.FromValue([]float32{1, 2})))
}
