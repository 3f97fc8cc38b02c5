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

// Package merge combines already-sorted sequences into one sorted
// sequence.  Two strategies share the same producer contract: a
// synchronous heap merge and a parallel binary merge tree (see
// Parallel).
//
// Inputs are assumed pre-sorted under the supplied comparator.  The
// merge performs no verification and no resort: an input that is not
// actually sorted surfaces as a discontinuity in the output instead of
// failing.  Duplicates are always retained.
package merge

import (
	"container/heap"

	"github.com/fossabot/druid/pkg/container/seq"
)

// Comparator orders merge elements: negative when a sorts before b.
type Comparator[T any] func(a, b T) int

// Merge returns the synchronous k-way merge of inputs.  Ties between
// inputs break toward the lower input index, and each input is closed
// as soon as it is exhausted; Close releases the rest.
func Merge[T any](cmp Comparator[T], inputs ...seq.Iterator[T]) seq.Iterator[T] {
	m := &heapMerger[T]{cmp: cmp}
	for i, input := range inputs {
		if head, ok := input.Next(); ok {
			m.entries = append(m.entries, heapEntry[T]{val: head, src: i, input: input})
		} else {
			input.Close()
		}
	}
	heap.Init(m)
	return m
}

type heapEntry[T any] struct {
	val   T
	src   int
	input seq.Iterator[T]
}

type heapMerger[T any] struct {
	cmp     Comparator[T]
	entries []heapEntry[T]
	closed  bool
}

func (m *heapMerger[T]) Next() (T, bool) {
	var zero T
	if m.closed || len(m.entries) == 0 {
		return zero, false
	}
	top := &m.entries[0]
	v := top.val
	if next, ok := top.input.Next(); ok {
		top.val = next
		heap.Fix(m, 0)
	} else {
		top.input.Close()
		heap.Pop(m)
	}
	return v, true
}

func (m *heapMerger[T]) Close() {
	if m.closed {
		return
	}
	m.closed = true
	for _, e := range m.entries {
		e.input.Close()
	}
	m.entries = nil
}

func (m *heapMerger[T]) Len() int { return len(m.entries) }

func (m *heapMerger[T]) Less(i, j int) bool {
	if c := m.cmp(m.entries[i].val, m.entries[j].val); c != 0 {
		return c < 0
	}
	return m.entries[i].src < m.entries[j].src
}

func (m *heapMerger[T]) Swap(i, j int) {
	m.entries[i], m.entries[j] = m.entries[j], m.entries[i]
}

func (m *heapMerger[T]) Push(x any) {
	m.entries = append(m.entries, x.(heapEntry[T]))
}

func (m *heapMerger[T]) Pop() any {
	last := m.entries[len(m.entries)-1]
	m.entries = m.entries[:len(m.entries)-1]
	return last
}
