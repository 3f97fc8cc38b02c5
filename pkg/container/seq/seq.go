// Copyright 2023 Matrix Origin
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package seq defines the lazy sorted-producer contract shared by the
// groupers and the merge engine.
package seq

// Iterator is a lazy, finite, single-pass sequence.  A consumer that
// abandons the sequence before exhaustion must call Close to release
// whatever the producer still holds.  Close is idempotent, and closing
// an exhausted iterator is a no-op.
type Iterator[T any] interface {
	// Next returns the next element, or ok=false once the sequence is
	// exhausted or closed.
	Next() (T, bool)

	Close()
}

type sliceIterator[T any] struct {
	vals   []T
	off    int
	closed bool
}

// FromSlice wraps vals into an Iterator.  The slice is not copied.
func FromSlice[T any](vals []T) Iterator[T] {
	return &sliceIterator[T]{vals: vals}
}

func (it *sliceIterator[T]) Next() (T, bool) {
	var zero T
	if it.closed || it.off >= len(it.vals) {
		return zero, false
	}
	v := it.vals[it.off]
	it.off++
	return v, true
}

func (it *sliceIterator[T]) Close() {
	it.closed = true
}

type emptyIterator[T any] struct{}

// Empty returns an iterator over nothing.
func Empty[T any]() Iterator[T] {
	return emptyIterator[T]{}
}

func (emptyIterator[T]) Next() (T, bool) {
	var zero T
	return zero, false
}

func (emptyIterator[T]) Close() {}

// Collect drains it into a slice and closes it.
func Collect[T any](it Iterator[T]) []T {
	defer it.Close()
	var vals []T
	for {
		v, ok := it.Next()
		if !ok {
			return vals
		}
		vals = append(vals, v)
	}
}
