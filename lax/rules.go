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

package lax

import (
	"math"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"

	"github.com/mgoldfarb-nvidia/jax/jaxpr"
	"github.com/mgoldfarb-nvidia/jax/types/shapes"
	"github.com/mgoldfarb-nvidia/jax/types/tensors"
)

// Shape rules shared by the elementwise primitives: operands must agree on
// dtype and either agree on shape or broadcast a scalar.

func unaryShapeRule(name string) jaxpr.AbstractEvalFn {
	return func(_ jaxpr.Params, inputs ...shapes.Shape) []shapes.Shape {
		if len(inputs) != 1 {
			exceptions.Panicf("%s takes 1 operand, got %d", name, len(inputs))
		}
		if !inputs[0].DType.IsFloat() {
			exceptions.Panicf("%s requires a float operand, got %s", name, inputs[0])
		}
		return []shapes.Shape{inputs[0]}
	}
}

func broadcastShapes(name string, inputs []shapes.Shape) shapes.Shape {
	if len(inputs) != 2 {
		exceptions.Panicf("%s takes 2 operands, got %d", name, len(inputs))
	}
	lhs, rhs := inputs[0], inputs[1]
	if lhs.DType != rhs.DType {
		exceptions.Panicf("%s operands have different dtypes: %s vs %s", name, lhs, rhs)
	}
	if lhs.Equal(rhs) || rhs.IsScalar() {
		return lhs
	}
	if lhs.IsScalar() {
		return rhs
	}
	exceptions.Panicf("%s operands have incompatible shapes: %s vs %s", name, lhs, rhs)
	return shapes.Invalid()
}

func binaryShapeRule(name string) jaxpr.AbstractEvalFn {
	return func(_ jaxpr.Params, inputs ...shapes.Shape) []shapes.Shape {
		return []shapes.Shape{broadcastShapes(name, inputs)}
	}
}

func compareShapeRule(name string) jaxpr.AbstractEvalFn {
	return func(_ jaxpr.Params, inputs ...shapes.Shape) []shapes.Shape {
		shape := broadcastShapes(name, inputs)
		return []shapes.Shape{shapes.Make(dtypes.Bool, shape.Dimensions...)}
	}
}

func unaryEvalRule(fn func(float64) float64) jaxpr.EvalFn {
	return func(_ jaxpr.Params, inputs ...*tensors.Tensor) []*tensors.Tensor {
		return []*tensors.Tensor{tensors.UnaryOp(fn, inputs[0])}
	}
}

func binaryEvalRule(fn func(a, b float64) float64) jaxpr.EvalFn {
	return func(_ jaxpr.Params, inputs ...*tensors.Tensor) []*tensors.Tensor {
		return []*tensors.Tensor{tensors.BinaryOp(fn, inputs[0], inputs[1])}
	}
}

// addTangents combines two optional tangent atoms, eliding the addition when
// either side carries no tangent.
func addTangents(b *jaxpr.LinearBuilder, dx, dy jaxpr.Atom) jaxpr.Atom {
	switch {
	case dx == nil:
		return dy
	case dy == nil:
		return dx
	}
	return b.Emit(addPrim, nil, dx, dy)
}

// ct returns the output cotangent reduced to the operand's shape, undoing a
// scalar broadcast.
func sumToOperand(ct *tensors.Tensor, operand jaxpr.Atom) *tensors.Tensor {
	return tensors.SumTo(ct, operand.Shape())
}

// The four arithmetic primitives are registered in init() because their
// Linearize/Transpose closures refer to the primitive variables themselves,
// which Go rejects as an initialization cycle in a var initializer.
var addPrim, subPrim, mulPrim, negPrim *jaxpr.Primitive

func init() {
	addPrim = jaxpr.Register(&jaxpr.Primitive{
		Name:         "add",
		AbstractEval: binaryShapeRule("add"),
		Eval:         binaryEvalRule(func(a, b float64) float64 { return a + b }),
		Linearize: func(b *jaxpr.LinearBuilder, _ jaxpr.Params, primals []*tensors.Tensor, tangents []jaxpr.Atom) ([]*tensors.Tensor, []jaxpr.Atom) {
			primal := tensors.Add(primals[0], primals[1])
			return []*tensors.Tensor{primal}, []jaxpr.Atom{addTangents(b, tangents[0], tangents[1])}
		},
		Transpose: func(_ jaxpr.Params, ct *tensors.Tensor, inputs []jaxpr.Atom, primalOf func(jaxpr.Atom) *tensors.Tensor) []*tensors.Tensor {
			contribs := make([]*tensors.Tensor, 2)
			for ii, a := range inputs {
				if primalOf(a) == nil {
					contribs[ii] = sumToOperand(ct, a)
				}
			}
			return contribs
		},
	})

	subPrim = jaxpr.Register(&jaxpr.Primitive{
		Name:         "sub",
		AbstractEval: binaryShapeRule("sub"),
		Eval:         binaryEvalRule(func(a, b float64) float64 { return a - b }),
		Linearize: func(b *jaxpr.LinearBuilder, _ jaxpr.Params, primals []*tensors.Tensor, tangents []jaxpr.Atom) ([]*tensors.Tensor, []jaxpr.Atom) {
			primal := tensors.BinaryOp(func(x, y float64) float64 { return x - y }, primals[0], primals[1])
			dx, dy := tangents[0], tangents[1]
			var tangent jaxpr.Atom
			switch {
			case dy == nil:
				tangent = dx
			case dx == nil:
				tangent = b.Emit(negPrim, nil, dy)
			default:
				tangent = b.Emit(subPrim, nil, dx, dy)
			}
			return []*tensors.Tensor{primal}, []jaxpr.Atom{tangent}
		},
		Transpose: func(_ jaxpr.Params, ct *tensors.Tensor, inputs []jaxpr.Atom, primalOf func(jaxpr.Atom) *tensors.Tensor) []*tensors.Tensor {
			contribs := make([]*tensors.Tensor, 2)
			if primalOf(inputs[0]) == nil {
				contribs[0] = sumToOperand(ct, inputs[0])
			}
			if primalOf(inputs[1]) == nil {
				negCt := tensors.UnaryOp(func(v float64) float64 { return -v }, ct)
				contribs[1] = sumToOperand(negCt, inputs[1])
			}
			return contribs
		},
	})

	// mul is the one bilinear primitive: its linearization emits one equation
	// per tangent-carrying operand, each closing over the other operand's primal
	// value, so every emitted equation keeps a single linear operand and the
	// transpose rule below covers both sides.
	mulPrim = jaxpr.Register(&jaxpr.Primitive{
		Name:         "mul",
		AbstractEval: binaryShapeRule("mul"),
		Eval:         binaryEvalRule(func(a, b float64) float64 { return a * b }),
		Linearize: func(b *jaxpr.LinearBuilder, _ jaxpr.Params, primals []*tensors.Tensor, tangents []jaxpr.Atom) ([]*tensors.Tensor, []jaxpr.Atom) {
			primal := tensors.BinaryOp(func(x, y float64) float64 { return x * y }, primals[0], primals[1])
			var term0, term1 jaxpr.Atom
			if tangents[0] != nil {
				term0 = b.Emit(mulPrim, nil, tangents[0], b.Residual(primals[1]))
			}
			if tangents[1] != nil {
				term1 = b.Emit(mulPrim, nil, b.Residual(primals[0]), tangents[1])
			}
			return []*tensors.Tensor{primal}, []jaxpr.Atom{addTangents(b, term0, term1)}
		},
		Transpose: func(_ jaxpr.Params, ct *tensors.Tensor, inputs []jaxpr.Atom, primalOf func(jaxpr.Atom) *tensors.Tensor) []*tensors.Tensor {
			lhs, rhs := primalOf(inputs[0]), primalOf(inputs[1])
			contribs := make([]*tensors.Tensor, 2)
			switch {
			case lhs == nil && rhs != nil:
				contribs[0] = sumToOperand(tensors.BinaryOp(func(a, b float64) float64 { return a * b }, ct, rhs), inputs[0])
			case rhs == nil && lhs != nil:
				contribs[1] = sumToOperand(tensors.BinaryOp(func(a, b float64) float64 { return a * b }, ct, lhs), inputs[1])
			default:
				panic(errors.Wrap(jaxpr.ErrTranspose, "mul transposed with other than exactly one linear operand"))
			}
			return contribs
		},
	})

	negPrim = jaxpr.Register(&jaxpr.Primitive{
		Name:         "neg",
		AbstractEval: unaryShapeRule("neg"),
		Eval:         unaryEvalRule(func(v float64) float64 { return -v }),
		Linearize: func(b *jaxpr.LinearBuilder, _ jaxpr.Params, primals []*tensors.Tensor, tangents []jaxpr.Atom) ([]*tensors.Tensor, []jaxpr.Atom) {
			primal := tensors.UnaryOp(func(v float64) float64 { return -v }, primals[0])
			return []*tensors.Tensor{primal}, []jaxpr.Atom{b.Emit(negPrim, nil, tangents[0])}
		},
		Transpose: func(_ jaxpr.Params, ct *tensors.Tensor, _ []jaxpr.Atom, _ func(jaxpr.Atom) *tensors.Tensor) []*tensors.Tensor {
			return []*tensors.Tensor{tensors.UnaryOp(func(v float64) float64 { return -v }, ct)}
		},
	})
}

// sin and cos never appear in a linear jaxpr -- their linearization reduces
// to a mul against a closed-over primal -- so they carry no transpose rule.
var sinPrim = jaxpr.Register(&jaxpr.Primitive{
	Name:         "sin",
	AbstractEval: unaryShapeRule("sin"),
	Eval:         unaryEvalRule(math.Sin),
	Linearize: func(b *jaxpr.LinearBuilder, _ jaxpr.Params, primals []*tensors.Tensor, tangents []jaxpr.Atom) ([]*tensors.Tensor, []jaxpr.Atom) {
		primal := tensors.UnaryOp(math.Sin, primals[0])
		deriv := b.Residual(tensors.UnaryOp(math.Cos, primals[0]))
		return []*tensors.Tensor{primal}, []jaxpr.Atom{b.Emit(mulPrim, nil, deriv, tangents[0])}
	},
})

var cosPrim = jaxpr.Register(&jaxpr.Primitive{
	Name:         "cos",
	AbstractEval: unaryShapeRule("cos"),
	Eval:         unaryEvalRule(math.Cos),
	Linearize: func(b *jaxpr.LinearBuilder, _ jaxpr.Params, primals []*tensors.Tensor, tangents []jaxpr.Atom) ([]*tensors.Tensor, []jaxpr.Atom) {
		primal := tensors.UnaryOp(math.Cos, primals[0])
		deriv := b.Residual(tensors.UnaryOp(func(v float64) float64 { return -math.Sin(v) }, primals[0]))
		return []*tensors.Tensor{primal}, []jaxpr.Atom{b.Emit(mulPrim, nil, deriv, tangents[0])}
	},
})

var greaterPrim = jaxpr.Register(&jaxpr.Primitive{
	Name:         "greater",
	AbstractEval: compareShapeRule("greater"),
	Eval: func(_ jaxpr.Params, inputs ...*tensors.Tensor) []*tensors.Tensor {
		return []*tensors.Tensor{tensors.CompareOp(func(a, b float64) bool { return a > b }, inputs[0], inputs[1])}
	},
	Linearize: func(_ *jaxpr.LinearBuilder, _ jaxpr.Params, primals []*tensors.Tensor, _ []jaxpr.Atom) ([]*tensors.Tensor, []jaxpr.Atom) {
		// A comparison has no tangent: its output is boolean.
		primal := tensors.CompareOp(func(a, b float64) bool { return a > b }, primals[0], primals[1])
		return []*tensors.Tensor{primal}, []jaxpr.Atom{nil}
	},
})
