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

// ValueAndGrad computes f(x) and its gradient with respect to x by composing
// the three transformations: trace f once, linearize the jaxpr at x and
// transpose the linear jaxpr seeded with the multiplicative identity
// cotangent. f must return a scalar float.
//
// x may be a *tensors.Tensor or any Go value accepted by
// tensors.FromAnyValue.
func ValueAndGrad(f func(*Box) *Box, x any) (value, gradient *tensors.Tensor) {
	xT := tensors.FromAnyValue(x)
	jx := Trace1(f, xT.Shape())
	primals, lin := Linearize(jx, xT)
	value = primals[0]
	if !value.IsScalar() || !value.DType().IsFloat() {
		exceptions.Panicf("ValueAndGrad requires a scalar float output, got %s", value.Shape())
	}
	cotangents := TransposeLinear(lin, tensors.Ones(value.Shape()))
	return value, cotangents[0]
}

// Grad returns only the gradient of f at x. See ValueAndGrad.
func Grad(f func(*Box) *Box, x any) *tensors.Tensor {
	_, gradient := ValueAndGrad(f, x)
	return gradient
}
