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

package agg

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCountAggregator(t *testing.T) {
	factory := NewCountFactory()
	require.Equal(t, "count", factory.Name())
	require.Equal(t, 8, factory.MaxSize())

	a := factory.Factorize()
	buf := make([]byte, 64)
	const offset = 24 // not slot 0, offsets must be honored

	a.Init(buf, offset)
	require.Equal(t, int64(0), a.Get(buf, offset))
	for i := 0; i < 5; i++ {
		a.Aggregate(buf, offset)
	}
	require.Equal(t, int64(5), a.Get(buf, offset))
	require.NoError(t, a.Close())

	// Neighboring state is untouched.
	for i, b := range buf[:offset] {
		require.Zero(t, b, "byte %d", i)
	}
}

func TestSumInt64Aggregator(t *testing.T) {
	var row int64
	factory := NewSumInt64Factory(func() int64 { return row })
	a := factory.Factorize()

	buf := make([]byte, 32)
	a.Init(buf, 8)
	for _, v := range []int64{5, -3, 100} {
		row = v
		a.Aggregate(buf, 8)
	}
	require.Equal(t, int64(102), a.Get(buf, 8))
}

func TestMinInt64Aggregator(t *testing.T) {
	var row int64
	factory := NewMinInt64Factory(func() int64 { return row })
	a := factory.Factorize()

	buf := make([]byte, 16)
	a.Init(buf, 0)
	require.Equal(t, int64(math.MaxInt64), a.Get(buf, 0))

	for _, v := range []int64{7, -2, 9} {
		row = v
		a.Aggregate(buf, 0)
	}
	require.Equal(t, int64(-2), a.Get(buf, 0))
}

func TestTwoSlotsAreIndependent(t *testing.T) {
	a := NewCountFactory().Factorize()
	buf := make([]byte, 16)

	a.Init(buf, 0)
	a.Init(buf, 8)
	a.Aggregate(buf, 0)
	a.Aggregate(buf, 0)
	a.Aggregate(buf, 8)

	require.Equal(t, int64(2), a.Get(buf, 0))
	require.Equal(t, int64(1), a.Get(buf, 8))
}
