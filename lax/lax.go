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

// Package lax provides the standard primitive set for the jaxpr core:
// elementwise arithmetic, trigonometry and comparison, each registered with
// its abstract-eval, concrete-eval, linearization and transpose rules.
//
// Ops are plain functions over *jaxpr.Box, so the same host code runs
// eagerly over concrete values and symbolically under jaxpr.Trace:
//
//	func f(x *jaxpr.Box) *jaxpr.Box {
//		y := lax.Mul(lax.Sin(x), lax.Const(2.0))
//		return lax.Add(lax.Neg(y), x)
//	}
package lax

import (
	"github.com/mgoldfarb-nvidia/jax/jaxpr"
)

// Const wraps a Go value (scalar or multi-dimensional slice) as a concrete
// box, the operand form for compile-time-known constants.
func Const(value any) *jaxpr.Box { return jaxpr.BoxValue(value) }

// Add returns x+y elementwise, broadcasting scalars.
func Add(x, y *jaxpr.Box) *jaxpr.Box { return jaxpr.Bind1(addPrim, nil, x, y) }

// Sub returns x-y elementwise, broadcasting scalars.
func Sub(x, y *jaxpr.Box) *jaxpr.Box { return jaxpr.Bind1(subPrim, nil, x, y) }

// Mul returns x*y elementwise, broadcasting scalars.
func Mul(x, y *jaxpr.Box) *jaxpr.Box { return jaxpr.Bind1(mulPrim, nil, x, y) }

// Neg returns -x elementwise.
func Neg(x *jaxpr.Box) *jaxpr.Box { return jaxpr.Bind1(negPrim, nil, x) }

// Sin returns sin(x) elementwise.
func Sin(x *jaxpr.Box) *jaxpr.Box { return jaxpr.Bind1(sinPrim, nil, x) }

// Cos returns cos(x) elementwise.
func Cos(x *jaxpr.Box) *jaxpr.Box { return jaxpr.Bind1(cosPrim, nil, x) }

// Greater returns x>y elementwise as a Bool value, broadcasting scalars.
func Greater(x, y *jaxpr.Box) *jaxpr.Box { return jaxpr.Bind1(greaterPrim, nil, x, y) }
