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

package tensors

import (
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"

	"github.com/mgoldfarb-nvidia/jax/types/shapes"
)

// This file holds the elementwise kernels the primitive rules are built on.
// Computation is carried in float64 and converted back to the operand dtype;
// operands must share a dtype and either share a shape or one of them must be
// a scalar, which is broadcast against the other.

// UnaryOp applies fn elementwise, returning a new tensor of the same shape
// and dtype.
func UnaryOp(fn func(float64) float64, t *Tensor) *Tensor {
	data := t.Float64s()
	for ii, v := range data {
		data[ii] = fn(v)
	}
	return FromFlatFloat64s(t.shape, data)
}

// binaryShape validates the operands of a binary kernel and returns the
// result shape.
func binaryShape(name string, a, b *Tensor) shapes.Shape {
	if a.DType() != b.DType() {
		exceptions.Panicf("tensors.%s: dtypes %s and %s differ", name, a.DType(), b.DType())
	}
	if a.shape.Equal(b.shape) || b.IsScalar() {
		return a.shape
	}
	if a.IsScalar() {
		return b.shape
	}
	exceptions.Panicf("tensors.%s: shapes %s and %s are not compatible", name, a.shape, b.shape)
	return shapes.Invalid()
}

// broadcast2 returns the two operands' data expanded to the result size.
func broadcast2(a, b *Tensor, size int) (lhs, rhs []float64) {
	lhs, rhs = a.Float64s(), b.Float64s()
	if len(lhs) == 1 && size > 1 {
		v := lhs[0]
		lhs = make([]float64, size)
		for ii := range lhs {
			lhs[ii] = v
		}
	}
	if len(rhs) == 1 && size > 1 {
		v := rhs[0]
		rhs = make([]float64, size)
		for ii := range rhs {
			rhs[ii] = v
		}
	}
	return
}

// BinaryOp applies fn elementwise over two operands, with scalar broadcast.
func BinaryOp(fn func(a, b float64) float64, a, b *Tensor) *Tensor {
	shape := binaryShape("BinaryOp", a, b)
	lhs, rhs := broadcast2(a, b, shape.Size())
	data := make([]float64, shape.Size())
	for ii := range data {
		data[ii] = fn(lhs[ii], rhs[ii])
	}
	return FromFlatFloat64s(shape, data)
}

// CompareOp applies a predicate elementwise over two operands, with scalar
// broadcast, returning a Bool tensor.
func CompareOp(fn func(a, b float64) bool, a, b *Tensor) *Tensor {
	shape := binaryShape("CompareOp", a, b)
	lhs, rhs := broadcast2(a, b, shape.Size())
	t := FromShape(shapes.Make(dtypes.Bool, shape.Dimensions...))
	flat := t.flat.([]bool)
	for ii := range flat {
		flat[ii] = fn(lhs[ii], rhs[ii])
	}
	return t
}

// Add returns the elementwise sum of two tensors. It is used by the
// transposer to accumulate cotangent contributions.
func Add(a, b *Tensor) *Tensor {
	return BinaryOp(func(x, y float64) float64 { return x + y }, a, b)
}

// SumTo reduces a tensor to the target shape. Only two reductions are
// needed by the transpose rules: the identity (shapes already match) and the
// full reduction to a scalar, undoing a scalar broadcast.
func SumTo(t *Tensor, target shapes.Shape) *Tensor {
	if t.shape.Equal(target) {
		return t
	}
	if !target.IsScalar() || target.DType != t.DType() {
		exceptions.Panicf("tensors.SumTo: cannot reduce %s to %s", t.shape, target)
	}
	total := 0.0
	for _, v := range t.Float64s() {
		total += v
	}
	return FromFlatFloat64s(target, []float64{total})
}
