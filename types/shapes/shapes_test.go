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

package shapes_test

import (
	"testing"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mgoldfarb-nvidia/jax/types/shapes"
)

func TestMake(t *testing.T) {
	s := shapes.Make(dtypes.Float64, 2, 3)
	assert.Equal(t, 2, s.Rank())
	assert.Equal(t, 6, s.Size())
	assert.Equal(t, 3, s.Dim(-1))
	assert.False(t, s.IsScalar())

	scalar := shapes.Make(dtypes.Float32)
	assert.True(t, scalar.IsScalar())
	assert.Equal(t, 1, scalar.Size())

	err := exceptions.TryCatch[error](func() { _ = shapes.Make(dtypes.Float32, 0) })
	require.Error(t, err)
}

func TestFromValue(t *testing.T) {
	assert.True(t, shapes.FromValue(3.0).Equal(shapes.Make(dtypes.Float64)))
	assert.True(t, shapes.FromValue(float32(1)).Equal(shapes.Make(dtypes.Float32)))
	assert.True(t, shapes.FromValue(true).Equal(shapes.Make(dtypes.Bool)))
	assert.True(t, shapes.FromValue(7).Equal(shapes.Make(dtypes.Int64)))
	assert.True(t, shapes.FromValue([][]float64{{1, 2, 3}, {4, 5, 6}}).
		Equal(shapes.Make(dtypes.Float64, 2, 3)))

	err := exceptions.TryCatch[error](func() { _ = shapes.FromValue("not a number") })
	require.ErrorIs(t, err, shapes.ErrUnsupportedValueKind)

	err = exceptions.TryCatch[error](func() { _ = shapes.FromValue([]float64{}) })
	require.ErrorIs(t, err, shapes.ErrUnsupportedValueKind)
}

func TestEqual(t *testing.T) {
	assert.True(t, shapes.Make(dtypes.Float64, 4).Equal(shapes.Make(dtypes.Float64, 4)))
	assert.False(t, shapes.Make(dtypes.Float64, 4).Equal(shapes.Make(dtypes.Float32, 4)))
	assert.False(t, shapes.Make(dtypes.Float64, 4).Equal(shapes.Make(dtypes.Float64, 4, 1)))
	assert.False(t, shapes.Make(dtypes.Float64).Equal(shapes.Invalid()))
}

func TestString(t *testing.T) {
	want := "(" + dtypes.Float32.String() + ")[2 3]"
	assert.Equal(t, want, shapes.Make(dtypes.Float32, 2, 3).String())
}
