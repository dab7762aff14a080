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

// Package shapes defines Shape, the abstract value used by the tracing
// machinery in place of concrete data.
//
// A Shape describes the rank, dimensions and element type (DType, from
// github.com/gomlx/gopjrt/dtypes) of a value. Two shapes are equal iff their
// DType and dimensions match. Shapes are used both by concrete tensors (see
// types/tensors) and by the variables of a traced jaxpr (see package jaxpr).
//
// ## Glossary
//
//   - Rank: number of axes (dimensions) of a value.
//   - Dimension: the size of one axis.
//   - DType: the data type of the unit element.
//   - Scalar: a shape with no axes, a single value of the associated DType.
package shapes

import (
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
)

// Shape describes the rank, dimensions and DType of a value. It is the
// abstract stand-in of a concrete value during tracing.
//
// Use Make to create one, or FromValue to infer one from a Go value.
type Shape struct {
	DType      dtypes.DType
	Dimensions []int
}

// Make returns a Shape with the given DType and dimensions. A call without
// dimensions creates a scalar shape.
func Make(dtype dtypes.DType, dimensions ...int) Shape {
	s := Shape{DType: dtype, Dimensions: slices.Clone(dimensions)}
	for _, dim := range dimensions {
		if dim <= 0 {
			exceptions.Panicf("shapes.Make(%s): cannot create a shape with an axis with dimension <= 0", s)
		}
	}
	return s
}

// Scalar returns a scalar Shape for the given Go type.
func Scalar[T dtypes.NumberNotComplex]() Shape {
	return Shape{DType: dtypes.FromGenericsType[T]()}
}

// Invalid returns an invalid shape. Invalid().Ok() == false.
func Invalid() Shape { return Shape{DType: dtypes.InvalidDType} }

// ErrUnsupportedValueKind is the cause thrown (as a panic, see package
// gomlx/exceptions) when a Go value has no Shape representation.
var ErrUnsupportedValueKind = errors.New("value kind has no shape representation")

// FromValue infers the Shape of a Go value: a supported scalar
// (bool, int32, int64, float16, float32, float64, ...) or a regular
// multi-dimensional slice of one of those.
//
// For a concrete tensor, use Tensor.Shape instead.
//
// It panics with an error wrapping ErrUnsupportedValueKind if the value's
// type is not representable.
func FromValue(value any) Shape {
	shape, err := shapeOfReflect(reflect.TypeOf(value), reflect.ValueOf(value))
	if err != nil {
		panic(err)
	}
	return shape
}

func shapeOfReflect(t reflect.Type, v reflect.Value) (Shape, error) {
	if t == nil {
		return Invalid(), errors.Wrap(ErrUnsupportedValueKind, "cannot infer shape of nil")
	}
	var dims []int
	for t.Kind() == reflect.Slice {
		if v.Len() == 0 {
			return Invalid(), errors.Wrapf(ErrUnsupportedValueKind, "cannot infer shape of empty slice %T", v.Interface())
		}
		dims = append(dims, v.Len())
		t = t.Elem()
		v = v.Index(0)
	}
	if t.Kind() == reflect.Int {
		// Go `int` is mapped to int64 -- it is converted on tensor construction.
		t = reflect.TypeOf(int64(0))
	}
	dtype := dtypes.FromGoType(t)
	if dtype == dtypes.InvalidDType {
		return Invalid(), errors.Wrapf(ErrUnsupportedValueKind, "go type %s is not supported", t)
	}
	return Make(dtype, dims...), nil
}

// Ok returns whether this is a valid Shape. The zero value Shape{} is invalid.
func (s Shape) Ok() bool { return s.DType != dtypes.InvalidDType }

// Rank of the shape, that is, the number of dimensions.
func (s Shape) Rank() int { return len(s.Dimensions) }

// IsScalar returns whether the shape represents a scalar: no dimensions (rank 0).
func (s Shape) IsScalar() bool { return s.Ok() && s.Rank() == 0 }

// Dim returns the dimension of the given axis. Negative values count from the
// end, so axis=-1 refers to the last axis.
func (s Shape) Dim(axis int) int {
	adjustedAxis := axis
	if adjustedAxis < 0 {
		adjustedAxis += s.Rank()
	}
	if adjustedAxis < 0 || adjustedAxis >= s.Rank() {
		exceptions.Panicf("Shape.Dim(%d) out-of-bounds for rank %d (shape=%s)", axis, s.Rank(), s)
	}
	return s.Dimensions[adjustedAxis]
}

// Size returns the number of elements of DType needed for this shape, the
// product of all dimensions.
func (s Shape) Size() (size int) {
	size = 1
	for _, d := range s.Dimensions {
		size *= d
	}
	return
}

// Shape returns a shallow copy of itself. It implements the HasShape interface.
func (s Shape) Shape() Shape { return s }

// Clone returns a deep copy of the shape.
func (s Shape) Clone() Shape {
	return Shape{DType: s.DType, Dimensions: slices.Clone(s.Dimensions)}
}

// Equal compares two shapes for equality: DType and dimensions are compared.
func (s Shape) Equal(s2 Shape) bool {
	if s.DType != s2.DType {
		return false
	}
	return slices.Equal(s.Dimensions, s2.Dimensions)
}

// String implements fmt.Stringer, pretty-prints the shape.
func (s Shape) String() string {
	if s.Rank() == 0 {
		return fmt.Sprintf("(%s)", s.DType)
	}
	parts := make([]string, 0, s.Rank())
	for _, dim := range s.Dimensions {
		parts = append(parts, fmt.Sprintf("%d", dim))
	}
	return fmt.Sprintf("(%s)[%s]", s.DType, strings.Join(parts, " "))
}

// HasShape is anything that can report its own Shape: tensors, shapes
// themselves, jaxpr variables and tracers.
type HasShape interface {
	Shape() Shape
}
