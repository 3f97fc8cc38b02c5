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

package merge

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fossabot/druid/pkg/container/seq"
)

func compareInts(a, b int) int { return a - b }

// trackedIterator records closure, mirroring what producers of partial
// results rely on for resource release.
type trackedIterator struct {
	seq.Iterator[int]
	closed bool
}

func tracked(vals ...int) *trackedIterator {
	return &trackedIterator{Iterator: seq.FromSlice(vals)}
}

func (it *trackedIterator) Close() {
	it.closed = true
	it.Iterator.Close()
}

func TestMergeSanity(t *testing.T) {
	inputs := []*trackedIterator{
		tracked(1, 3, 5, 7, 9),
		tracked(2, 8),
		tracked(4, 6, 8),
	}

	merged := Merge[int](compareInts, inputs[0], inputs[1], inputs[2])
	require.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 8, 9}, seq.Collect(merged))

	for i, input := range inputs {
		require.True(t, input.closed, "input %d not closed", i)
	}
}

func TestMergeEmpties(t *testing.T) {
	expected := []int{1, 2, 3, 4, 5, 6, 7, 8, 8, 9}

	merged := Merge[int](compareInts,
		tracked(1, 3, 5, 7, 9), tracked(), tracked(2, 8), tracked(4, 6, 8))
	require.Equal(t, expected, seq.Collect(merged))

	merged = Merge[int](compareInts,
		tracked(), tracked(1, 3, 5, 7, 9), tracked(2, 8), tracked(4, 6, 8), tracked())
	require.Equal(t, expected, seq.Collect(merged))
}

func TestMergeOne(t *testing.T) {
	require.Equal(t, []int{1}, seq.Collect(Merge[int](compareInts, tracked(1))))
	require.Empty(t, seq.Collect(Merge[int](compareInts)))
}

func TestMergeDuplicatesRetained(t *testing.T) {
	merged := Merge[int](compareInts, tracked(1, 1, 1), tracked(1, 1))
	require.Equal(t, []int{1, 1, 1, 1, 1}, seq.Collect(merged))
}

// An out-of-order input is a documented precondition violation: the
// discontinuity surfaces in the output, nothing fails.
func TestMergeScrewsUpOnOutOfOrder(t *testing.T) {
	merged := Merge[int](compareInts,
		tracked(1, 3, 5, 4, 7, 9), tracked(2, 8), tracked(4, 6))
	require.Equal(t, []int{1, 2, 3, 4, 5, 4, 6, 7, 8, 9}, seq.Collect(merged))
}

func TestMergeEarlyCloseReleasesInputs(t *testing.T) {
	inputs := []*trackedIterator{
		tracked(1, 3, 5),
		tracked(2, 4, 6),
	}
	merged := Merge[int](compareInts, inputs[0], inputs[1])

	v, ok := merged.Next()
	require.True(t, ok)
	require.Equal(t, 1, v)

	merged.Close()
	for i, input := range inputs {
		require.True(t, input.closed, "input %d not closed", i)
	}
	_, ok = merged.Next()
	require.False(t, ok)
}
