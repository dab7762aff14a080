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

// Package tensors provides the concrete values the autodiff core computes
// with: small dense in-memory tensors, a Shape plus a flat slice of data.
//
// Tensors are created from Go values with FromValue / FromAnyValue (the
// analogue of canonicalizing a host value), or directly with FromScalar,
// FromFlatDataAndDimensions and FromShape. Once created they are treated as
// immutable by the rest of the module: kernels always allocate their outputs.
package tensors

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
	"github.com/x448/float16"
	"golang.org/x/exp/constraints"

	"github.com/mgoldfarb-nvidia/jax/types/shapes"
	"github.com/mgoldfarb-nvidia/jax/types/xslices"
)

// Tensor is a dense in-memory value: a shape and the flattened data, stored
// as a slice of the Go type corresponding to the shape's DType.
type Tensor struct {
	shape shapes.Shape
	flat  any
}

// FromShape returns a Tensor of the given shape with zero-initialized data.
func FromShape(shape shapes.Shape) *Tensor {
	if !shape.Ok() {
		panic(errors.New("tensors.FromShape: invalid shape"))
	}
	flatV := reflect.MakeSlice(reflect.SliceOf(shape.DType.GoType()), shape.Size(), shape.Size())
	return &Tensor{shape: shape.Clone(), flat: flatV.Interface()}
}

// FromScalar creates a scalar tensor with the given value. The DType is
// inferred from the Go type.
func FromScalar[T dtypes.Supported](value T) *Tensor {
	t := FromShape(shapes.Make(dtypes.FromGenericsType[T]()))
	t.flat.([]T)[0] = value
	return t
}

// FromFlatDataAndDimensions creates a tensor with the given dimensions,
// filled with the flattened values. The data is copied. The DType is
// inferred from the data's element type.
func FromFlatDataAndDimensions[T dtypes.Supported](data []T, dimensions ...int) *Tensor {
	shape := shapes.Make(dtypes.FromGenericsType[T](), dimensions...)
	if len(data) != shape.Size() {
		exceptions.Panicf("tensors.FromFlatDataAndDimensions(%s): data size is %d, but dimensions size is %d",
			shape, len(data), shape.Size())
	}
	t := FromShape(shape)
	copy(t.flat.([]T), data)
	return t
}

// FromValue creates a Tensor from a Go scalar or (regular) multi-dimensional
// slice. Go `int` values are converted to int64.
//
// It panics with an error wrapping shapes.ErrUnsupportedValueKind if the
// value's type has no tensor representation.
func FromValue(value any) *Tensor {
	return FromAnyValue(value)
}

// FromAnyValue is like FromValue; if the value already is a *Tensor it is
// returned unchanged.
func FromAnyValue(value any) *Tensor {
	if t, ok := value.(*Tensor); ok {
		return t
	}
	shape := shapes.FromValue(value)
	t := FromShape(shape)
	flatV := reflect.ValueOf(t.flat)
	if shape.IsScalar() {
		setConverted(flatV.Index(0), reflect.ValueOf(value))
		return t
	}
	next := 0
	copySlicesRecursively(flatV, reflect.ValueOf(value), shape, &next)
	return t
}

// setConverted assigns value to dst, converting Go `int` (and any other
// directly convertible kind) to the element type.
func setConverted(dst, value reflect.Value) {
	if value.Type() != dst.Type() {
		value = value.Convert(dst.Type())
	}
	dst.Set(value)
}

func copySlicesRecursively(flat, value reflect.Value, shape shapes.Shape, next *int) {
	if value.Kind() != reflect.Slice {
		setConverted(flat.Index(*next), value)
		*next++
		return
	}
	depth := shape.Rank() - sliceDepth(value.Type())
	if value.Len() != shape.Dimensions[depth] {
		exceptions.Panicf("tensors.FromValue: slice is not regular, axis %d has dimensions %d and %d",
			depth, shape.Dimensions[depth], value.Len())
	}
	for ii := 0; ii < value.Len(); ii++ {
		copySlicesRecursively(flat, value.Index(ii), shape, next)
	}
}

func sliceDepth(t reflect.Type) int {
	depth := 0
	for t.Kind() == reflect.Slice {
		depth++
		t = t.Elem()
	}
	return depth
}

// Zeros returns a tensor of the given shape filled with the additive identity.
func Zeros(shape shapes.Shape) *Tensor {
	return FromShape(shape)
}

// Ones returns a tensor of the given shape filled with the multiplicative
// identity. The shape's DType must be numeric.
func Ones(shape shapes.Shape) *Tensor {
	return FromFlatFloat64s(shape, xslices.SliceWithValue(shape.Size(), 1.0))
}

// Shape of the tensor.
func (t *Tensor) Shape() shapes.Shape { return t.shape }

// DType of the tensor, a shortcut to t.Shape().DType.
func (t *Tensor) DType() dtypes.DType { return t.shape.DType }

// Size returns the number of elements stored, the product of the dimensions.
func (t *Tensor) Size() int { return t.shape.Size() }

// IsScalar returns whether the tensor holds a single value.
func (t *Tensor) IsScalar() bool { return t.shape.IsScalar() }

// ConstFlatData calls accessFn with the flattened data as a slice of the Go
// type corresponding to the DType. The slice is owned by the tensor and must
// not be modified.
func (t *Tensor) ConstFlatData(accessFn func(flat any)) {
	accessFn(t.flat)
}

// ToScalar returns the value of a scalar tensor with the given Go type.
func ToScalar[T dtypes.Supported](t *Tensor) T {
	if !t.IsScalar() {
		exceptions.Panicf("tensors.ToScalar: tensor is not a scalar, shape is %s", t.shape)
	}
	if t.shape.DType != dtypes.FromGenericsType[T]() {
		var v T
		exceptions.Panicf("tensors.ToScalar[%T] is incompatible with tensor dtype %s", v, t.shape.DType)
	}
	return t.flat.([]T)[0]
}

// CopyFlatData returns a copy of the flat data as a slice of the given Go
// type, which must correspond to the tensor's DType.
func CopyFlatData[T dtypes.Supported](t *Tensor) []T {
	if t.shape.DType != dtypes.FromGenericsType[T]() {
		var v T
		exceptions.Panicf("tensors.CopyFlatData[%T] is incompatible with tensor dtype %s", v, t.shape.DType)
	}
	flat := t.flat.([]T)
	result := make([]T, len(flat))
	copy(result, flat)
	return result
}

// Equal reports whether two tensors have the same shape and the same data.
func (t *Tensor) Equal(other *Tensor) bool {
	if !t.shape.Equal(other.shape) {
		return false
	}
	return reflect.DeepEqual(t.flat, other.flat)
}

// String pretty-prints small tensors; larger ones print their shape only.
func (t *Tensor) String() string {
	if t.IsScalar() {
		return fmt.Sprintf("%v", reflect.ValueOf(t.flat).Index(0).Interface())
	}
	if t.Size() > maxSizeForString {
		return fmt.Sprintf("%s (%d elements)", t.shape, t.Size())
	}
	flatV := reflect.ValueOf(t.flat)
	parts := make([]string, 0, t.Size())
	for ii := 0; ii < flatV.Len(); ii++ {
		parts = append(parts, fmt.Sprintf("%v", flatV.Index(ii).Interface()))
	}
	return fmt.Sprintf("%s: [%s]", t.shape, strings.Join(parts, " "))
}

// maxSizeForString is the largest tensor actually rendered by String.
const maxSizeForString = 64

func toFloat64s[T constraints.Integer | constraints.Float](flat []T) []float64 {
	return xslices.Map(flat, func(v T) float64 { return float64(v) })
}

func fromFloat64s[T constraints.Integer | constraints.Float](data []float64) []T {
	return xslices.Map(data, func(v float64) T { return T(v) })
}

// Float64s returns the tensor data converted to float64, one value per
// element. Float16 values are expanded with github.com/x448/float16. It
// panics for Bool tensors.
func (t *Tensor) Float64s() []float64 {
	switch flat := t.flat.(type) {
	case []float64:
		return toFloat64s(flat)
	case []float32:
		return toFloat64s(flat)
	case []float16.Float16:
		return xslices.Map(flat, func(v float16.Float16) float64 { return float64(v.Float32()) })
	case []int32:
		return toFloat64s(flat)
	case []int64:
		return toFloat64s(flat)
	}
	exceptions.Panicf("tensors.Float64s: dtype %s is not numeric", t.shape.DType)
	return nil
}

// FromFlatFloat64s builds a tensor of the given shape from float64 data,
// converting to the shape's DType.
func FromFlatFloat64s(shape shapes.Shape, data []float64) *Tensor {
	if len(data) != shape.Size() {
		exceptions.Panicf("tensors.FromFlatFloat64s(%s): got %d elements, shape needs %d", shape, len(data), shape.Size())
	}
	t := FromShape(shape)
	switch shape.DType {
	case dtypes.Float64:
		copy(t.flat.([]float64), data)
	case dtypes.Float32:
		copy(t.flat.([]float32), fromFloat64s[float32](data))
	case dtypes.Float16:
		copy(t.flat.([]float16.Float16),
			xslices.Map(data, func(v float64) float16.Float16 { return float16.Fromfloat32(float32(v)) }))
	case dtypes.Int32:
		copy(t.flat.([]int32), fromFloat64s[int32](data))
	case dtypes.Int64:
		copy(t.flat.([]int64), fromFloat64s[int64](data))
	default:
		exceptions.Panicf("tensors.FromFlatFloat64s: dtype %s not supported", shape.DType)
	}
	return t
}

// FromFlatBools builds a Bool tensor of the given dimensions.
func FromFlatBools(data []bool, dimensions ...int) *Tensor {
	return FromFlatDataAndDimensions(data, dimensions...)
}
