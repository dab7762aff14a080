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

// Package xslices holds slice helpers shared across the module.
package xslices

// FillSlice sets every element of the slice to value.
func FillSlice[T any](slice []T, value T) {
	for ii := range slice {
		slice[ii] = value
	}
}

// SliceWithValue returns a newly allocated slice of the given size with every
// element set to value.
func SliceWithValue[T any](size int, value T) []T {
	slice := make([]T, size)
	FillSlice(slice, value)
	return slice
}

// Map applies fn to each element of in, returning the new slice.
func Map[In, Out any](in []In, fn func(In) Out) []Out {
	out := make([]Out, len(in))
	for ii, elem := range in {
		out[ii] = fn(elem)
	}
	return out
}
