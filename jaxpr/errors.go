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

import "github.com/pkg/errors"

// Errors thrown by the core. They are delivered as panics (see package
// documentation) wrapping one of these sentinels, so callers can match them
// with errors.Is after capturing the panic with exceptions.TryCatch.
var (
	// ErrTracing indicates a failure while recording a host function: a
	// primitive without an abstract-eval rule, a tracer escaping its trace,
	// or conditional branches with inconsistent output signatures.
	ErrTracing = errors.New("tracing error")

	// ErrArity indicates an input count mismatch against a jaxpr's declared
	// inputs or outputs.
	ErrArity = errors.New("arity mismatch")

	// ErrUnboundVariable indicates an SSA violation: a variable read before
	// being bound. It is an internal invariant failure, never user-recoverable.
	ErrUnboundVariable = errors.New("unbound variable")

	// ErrLinearization indicates a primitive in the traced jaxpr has no
	// registered linearization rule.
	ErrLinearization = errors.New("linearization error")

	// ErrTranspose indicates a missing transpose rule, or a transpose rule
	// invoked on a primal-only equation.
	ErrTranspose = errors.New("transpose error")
)

// panicWrapf throws sentinel wrapped with a formatted message and a stack
// trace.
func panicWrapf(sentinel error, format string, args ...any) {
	panic(errors.Wrapf(sentinel, format, args...))
}
