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

// Package groupby implements the in-memory group-by aggregation core:
// fixed-size key serdes, the grouper lifecycle contract, and a dense
// dictionary-indexed grouper over an externally supplied buffer.
package groupby

import (
	"github.com/fossabot/druid/pkg/container/seq"
)

// BufferComparator compares two encoded keys in place, without a full
// decode.  It must agree with the natural ordering of the decoded keys.
type BufferComparator func(lhs, rhs []byte, lhsOffset, rhsOffset int) int

// KeySerde is a fixed-size codec for grouping keys.
//
// Encode writes the key into dst[:KeySize()] and reports whether the key
// could be encoded at all.  A false return is not an error: it means the
// backing dictionary cannot represent the key any further, and the caller
// should spill or switch grouping strategy.
type KeySerde[K any] interface {
	KeySize() int
	Encode(dst []byte, key K) bool
	Decode(src []byte, offset int) K
	BufferComparator() BufferComparator
}

// Entry is one key with its extracted aggregate values.  It is a
// snapshot: once returned it is decoupled from the grouper's buffer.
type Entry[K any] struct {
	Key    K
	Values []any
}

// AggregateResult reports whether an aggregation was applied or hit a
// recoverable capacity limit.  Capacity pressure is an ordinary result,
// never an error.
type AggregateResult struct {
	ok     bool
	reason string
}

var okResult = AggregateResult{ok: true}

// ResultOK is the successful aggregation result.
func ResultOK() AggregateResult { return okResult }

// ResultFailure returns a capacity-exhausted result carrying reason.
func ResultFailure(reason string) AggregateResult {
	return AggregateResult{reason: reason}
}

// DictionaryFull signals that the key serde could not encode the key.
// This may just trigger a spill and get ignored, which is ok.  If it
// bubbles up to the user, the message will be correct.
var DictionaryFull = ResultFailure(
	"not enough dictionary space to encode the grouping key; " +
		"spill to disk or switch grouping strategy")

func (r AggregateResult) Ok() bool {
	return r.ok
}

func (r AggregateResult) Reason() string {
	return r.reason
}

// Grouper accepts (key, value) updates and produces one Entry per
// distinct key seen.  A grouper instance is single-writer: Aggregate
// calls must come from one goroutine.  The lifecycle is
// uninitialized -> initialized -> closed; Init is idempotent and must
// run before any aggregation.
type Grouper[K any] interface {
	Init() error
	Initialized() bool

	// Aggregate applies the current row's values to key.  The error
	// return carries fatal conditions only; recoverable capacity
	// exhaustion comes back through the AggregateResult.
	Aggregate(key K) (AggregateResult, error)
	AggregateHash(key K, hash int64) (AggregateResult, error)

	// Reset clears all occupancy without releasing the buffer or the
	// hosted aggregators, returning the grouper to a freshly
	// initialized state.
	Reset()

	// Close releases every hosted aggregator's resources best-effort.
	Close()

	// Iterator returns a lazy single-pass sequence over the currently
	// occupied records.  It is not restartable: a second call starts a
	// fresh pass over current state.
	Iterator(sorted bool) seq.Iterator[Entry[K]]
}

// IntGrouper specializes Grouper for raw int32 dictionary ids so the
// hot path never boxes keys.
type IntGrouper interface {
	Grouper[int32]

	AggregateInt(key int32) (AggregateResult, error)
	AggregateIntHash(key int32, hash int64) (AggregateResult, error)

	// HashFunc returns the grouper's key hash function.  The default is
	// an identity-like passthrough of the integer key.
	HashFunc() func(key int32) int64
}
