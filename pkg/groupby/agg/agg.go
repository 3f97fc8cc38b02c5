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

// Package agg defines the buffer-aggregator contract consumed by the
// groupers, together with a small set of reference implementations.
//
// A BufferAggregator keeps all of its running state inside a caller
// supplied byte region at a fixed offset, so a grouper can host many
// aggregation slots in one flat buffer without any per-group allocation.
package agg

import (
	"math"

	"github.com/fossabot/druid/pkg/container/types"
)

// BufferAggregator operates on a state region of at most
// AggregatorFactory.MaxSize() bytes starting at the given offset.
// Init must be called on a slot before the first Aggregate on it;
// Get is only valid after Init.  Input values come from whatever
// selector the aggregator was bound to when it was factorized.
type BufferAggregator interface {
	Init(buf []byte, offset int)
	Aggregate(buf []byte, offset int)
	Get(buf []byte, offset int) any

	// Close releases auxiliary resources held outside the buffer.
	Close() error
}

// AggregatorFactory creates buffer aggregators and declares the maximum
// intermediate state size one slot may occupy.
type AggregatorFactory interface {
	Name() string
	MaxSize() int
	Factorize() BufferAggregator
}

// Selector yields the value of the current input row.  Binding happens
// at factorize time; the row-processing loop owns positioning.
type Selector func() int64

type countAggregator struct{}

func (countAggregator) Init(buf []byte, offset int) {
	var zero int64
	copy(buf[offset:offset+types.Int64Size], types.EncodeInt64(&zero))
}

func (countAggregator) Aggregate(buf []byte, offset int) {
	v := types.DecodeInt64(buf[offset:]) + 1
	copy(buf[offset:offset+types.Int64Size], types.EncodeInt64(&v))
}

func (countAggregator) Get(buf []byte, offset int) any {
	return types.DecodeInt64(buf[offset:])
}

func (countAggregator) Close() error { return nil }

type countFactory struct{}

// NewCountFactory returns a factory for a row-count aggregator.
func NewCountFactory() AggregatorFactory { return countFactory{} }

func (countFactory) Name() string                { return "count" }
func (countFactory) MaxSize() int                { return types.Int64Size }
func (countFactory) Factorize() BufferAggregator { return countAggregator{} }

type sumInt64Aggregator struct {
	sel Selector
}

func (sumInt64Aggregator) Init(buf []byte, offset int) {
	var zero int64
	copy(buf[offset:offset+types.Int64Size], types.EncodeInt64(&zero))
}

func (a sumInt64Aggregator) Aggregate(buf []byte, offset int) {
	v := types.DecodeInt64(buf[offset:]) + a.sel()
	copy(buf[offset:offset+types.Int64Size], types.EncodeInt64(&v))
}

func (sumInt64Aggregator) Get(buf []byte, offset int) any {
	return types.DecodeInt64(buf[offset:])
}

func (sumInt64Aggregator) Close() error { return nil }

type sumInt64Factory struct {
	sel Selector
}

// NewSumInt64Factory returns a factory for an int64 sum aggregator bound
// to sel.
func NewSumInt64Factory(sel Selector) AggregatorFactory {
	return sumInt64Factory{sel: sel}
}

func (sumInt64Factory) Name() string { return "sum" }
func (sumInt64Factory) MaxSize() int { return types.Int64Size }
func (f sumInt64Factory) Factorize() BufferAggregator {
	return sumInt64Aggregator{sel: f.sel}
}

type minInt64Aggregator struct {
	sel Selector
}

func (minInt64Aggregator) Init(buf []byte, offset int) {
	v := int64(math.MaxInt64)
	copy(buf[offset:offset+types.Int64Size], types.EncodeInt64(&v))
}

func (a minInt64Aggregator) Aggregate(buf []byte, offset int) {
	cur := types.DecodeInt64(buf[offset:])
	if v := a.sel(); v < cur {
		copy(buf[offset:offset+types.Int64Size], types.EncodeInt64(&v))
	}
}

func (minInt64Aggregator) Get(buf []byte, offset int) any {
	return types.DecodeInt64(buf[offset:])
}

func (minInt64Aggregator) Close() error { return nil }

type minInt64Factory struct {
	sel Selector
}

// NewMinInt64Factory returns a factory for an int64 min aggregator bound
// to sel.
func NewMinInt64Factory(sel Selector) AggregatorFactory {
	return minInt64Factory{sel: sel}
}

func (minInt64Factory) Name() string { return "min" }
func (minInt64Factory) MaxSize() int { return types.Int64Size }
func (f minInt64Factory) Factorize() BufferAggregator {
	return minInt64Aggregator{sel: f.sel}
}
