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

package groupby

import (
	"github.com/fossabot/druid/pkg/common/moerr"
	"github.com/fossabot/druid/pkg/container/seq"
	"github.com/fossabot/druid/pkg/container/types"
	"github.com/fossabot/druid/pkg/groupby/agg"
	"github.com/fossabot/druid/pkg/logutil"
)

// ArrayGrouper is a dense IntGrouper for one dictionary-encoded
// dimension: the dictionary id is used directly as the record index, so
// slot lookup is O(1) and the whole state lives in one borrowed buffer.
// Record 0 is reserved for the missing value (dictionary id -1), so a
// grouper over cardinality C holds C+1 records.
//
// The buffer layout, fixed at Init:
//
//	+-------------+------------------+--------------------------------+
//	| key scratch | occupancy bitmap | records: agg_1 | agg_2 | ...    |
//	|  (keySize)  | ceil((C+1)/8)    | (C+1) * recordSize             |
//	+-------------+------------------+--------------------------------+
//
// A record's aggregator state is valid to read iff its occupancy bit is
// set; the bit is set exactly once, right before the record's
// aggregators are first initialized.
type ArrayGrouper struct {
	bufferSupplier func() []byte
	keySerde       KeySerde[int32]
	aggregators    []agg.BufferAggregator
	aggOffsets     []int
	numSlots       int // cardinality + 1, slot 0 is the missing value
	recordSize     int // sum of all aggregator max sizes

	initialized bool
	keyBuf      []byte
	usedBuf     []byte
	valBuf      []byte
}

var _ IntGrouper = (*ArrayGrouper)(nil)

// RequiredCapacity returns the exact byte size a caller must allocate
// before constructing an ArrayGrouper over the given cardinality.  It is
// a pure function of the key size and the aggregator max state sizes.
func RequiredCapacity(keySize, cardinality int, aggMaxSizes []int) (int, error) {
	if keySize < 0 {
		return 0, moerr.NewInvalidArgNoCtx("key size", keySize)
	}
	if cardinality <= 0 {
		return 0, moerr.NewInvalidArgNoCtx("cardinality", cardinality)
	}
	recordSize := 0
	for _, sz := range aggMaxSizes {
		if sz < 0 {
			return 0, moerr.NewInvalidArgNoCtx("aggregator max size", sz)
		}
		recordSize += sz
	}
	numSlots := cardinality + 1
	return keySize + numSlots*recordSize + (numSlots+7)/8, nil
}

// NewArrayGrouper binds a dense grouper to a buffer of at least
// RequiredCapacity bytes.  The buffer is borrowed: the grouper never
// reallocates or frees it, and the supplier is not invoked until Init.
func NewArrayGrouper(
	bufferSupplier func() []byte,
	keySerde KeySerde[int32],
	factories []agg.AggregatorFactory,
	cardinality int,
) (*ArrayGrouper, error) {
	if bufferSupplier == nil {
		return nil, moerr.NewInvalidArgNoCtx("buffer supplier", nil)
	}
	if keySerde == nil {
		return nil, moerr.NewInvalidArgNoCtx("key serde", nil)
	}
	// The dictionary id is read back from the first 4 encoded bytes.
	if keySerde.KeySize() < types.Int32Size {
		return nil, moerr.NewInvalidArgNoCtx("key size", keySerde.KeySize())
	}
	if factories == nil {
		return nil, moerr.NewInvalidArgNoCtx("aggregator factories", nil)
	}
	if cardinality <= 0 {
		return nil, moerr.NewInvalidArgNoCtx("cardinality", cardinality)
	}

	g := &ArrayGrouper{
		bufferSupplier: bufferSupplier,
		keySerde:       keySerde,
		aggregators:    make([]agg.BufferAggregator, len(factories)),
		aggOffsets:     make([]int, len(factories)),
		numSlots:       cardinality + 1,
	}
	offset := 0
	for i, factory := range factories {
		g.aggregators[i] = factory.Factorize()
		g.aggOffsets[i] = offset
		offset += factory.MaxSize()
	}
	g.recordSize = offset
	return g, nil
}

// Init partitions the borrowed buffer and clears all occupancy.  It is
// idempotent.
func (g *ArrayGrouper) Init() error {
	if g.initialized {
		return nil
	}

	buf := g.bufferSupplier()
	keySize := g.keySerde.KeySize()
	usedEnd := keySize + (g.numSlots+7)/8
	if required := usedEnd + g.numSlots*g.recordSize; len(buf) < required {
		return moerr.NewInvalidInputNoCtx(
			"buffer of %d bytes is smaller than the %d bytes required for cardinality %d",
			len(buf), required, g.numSlots-1)
	}

	g.keyBuf = buf[:keySize]
	g.usedBuf = buf[keySize:usedEnd]
	g.valBuf = buf[usedEnd:]
	g.Reset()

	g.initialized = true
	return nil
}

func (g *ArrayGrouper) Initialized() bool {
	return g.initialized
}

// HashFunc returns the slot translation for raw dictionary ids: the id
// plus one, reserving slot 0 for the missing value.
func (g *ArrayGrouper) HashFunc() func(key int32) int64 {
	return func(key int32) int64 {
		return int64(key) + 1
	}
}

// Aggregate encodes key through the serde and applies the current row to
// its record.  An encoding failure comes back as DictionaryFull, never
// as an error.
func (g *ArrayGrouper) Aggregate(key int32) (AggregateResult, error) {
	if !g.initialized {
		return AggregateResult{}, moerr.NewInvalidStateNoCtx("aggregate on an uninitialized grouper")
	}
	if !g.keySerde.Encode(g.keyBuf, key) {
		return DictionaryFull, nil
	}

	// The encoded key holds the dictionary id in its first 4 bytes; the
	// id translates to a slot with a +1 bias for the missing value.
	slot := int64(types.DecodeInt32(g.keyBuf)) + 1
	if slot < 0 {
		return AggregateResult{}, moerr.NewInvalidArgNoCtx("dictionary id", slot-1)
	}
	return g.aggregateSlot(slot)
}

func (g *ArrayGrouper) AggregateHash(key int32, hash int64) (AggregateResult, error) {
	return g.AggregateIntHash(key, hash)
}

func (g *ArrayGrouper) AggregateInt(key int32) (AggregateResult, error) {
	return g.AggregateIntHash(key, g.HashFunc()(key))
}

// AggregateIntHash applies the current row to the slot named by hash,
// which for this grouper is the biased dictionary id.
func (g *ArrayGrouper) AggregateIntHash(key int32, hash int64) (AggregateResult, error) {
	if !g.initialized {
		return AggregateResult{}, moerr.NewInvalidStateNoCtx("aggregate on an uninitialized grouper")
	}
	if hash < 0 {
		return AggregateResult{}, moerr.NewInvalidArgNoCtx("slot index", hash)
	}
	return g.aggregateSlot(hash)
}

func (g *ArrayGrouper) aggregateSlot(slot int64) (AggregateResult, error) {
	recordOffset := slot * int64(g.recordSize)
	if recordOffset+int64(g.recordSize) > int64(len(g.valBuf)) {
		// The record layout guarantees this cannot happen for any id in
		// [-1, cardinality-1] when the buffer was sized via
		// RequiredCapacity, so getting here is a precondition bug of the
		// caller.  The query must fail; never write out of bounds.
		return AggregateResult{}, moerr.NewOutOfRangeNoCtx(
			"record offset",
			"a record of size %d cannot be written at offset %d: the values region holds %d bytes",
			g.recordSize, recordOffset, len(g.valBuf))
	}

	if !g.isUsed(slot) {
		g.initSlot(slot, recordOffset)
	}
	for i, aggregator := range g.aggregators {
		aggregator.Aggregate(g.valBuf, int(recordOffset)+g.aggOffsets[i])
	}
	return okResult, nil
}

func (g *ArrayGrouper) isUsed(slot int64) bool {
	mask := byte(1) << (slot & 7)
	return g.usedBuf[slot>>3]&mask == mask
}

// initSlot marks the slot occupied and then initializes every
// aggregator's state, in that order, before the first update.
func (g *ArrayGrouper) initSlot(slot, recordOffset int64) {
	g.usedBuf[slot>>3] |= byte(1) << (slot & 7)
	for i, aggregator := range g.aggregators {
		aggregator.Init(g.valBuf, int(recordOffset)+g.aggOffsets[i])
	}
}

// Reset clears all occupancy bits.  The buffer stays bound and the
// hosted aggregators keep their auxiliary resources.
func (g *ArrayGrouper) Reset() {
	for i := range g.usedBuf {
		g.usedBuf[i] = 0
	}
}

// Close releases every hosted aggregator best-effort: one failing
// release is logged and skipped so the rest still get released.
func (g *ArrayGrouper) Close() {
	for i, aggregator := range g.aggregators {
		if err := aggregator.Close(); err != nil {
			logutil.Warnf("could not close aggregator %d, skipping: %v", i, err)
		}
	}
}

// Iterator scans the occupancy bitmap over all slots, so the cost is
// proportional to the cardinality rather than to the number of occupied
// records.  Sorted iteration is declared but not functional: it degrades
// to the plain scan until a cardinality is known at merge time.
// TODO: sort the occupied slots with the serde's buffer comparator once
// merging readers can supply the key cardinality.
func (g *ArrayGrouper) Iterator(sorted bool) seq.Iterator[Entry[int32]] {
	return &arrayResultIterator{grouper: g}
}

type arrayResultIterator struct {
	grouper *ArrayGrouper
	slot    int64
	closed  bool
}

func (it *arrayResultIterator) Next() (Entry[int32], bool) {
	g := it.grouper
	if it.closed || !g.initialized {
		return Entry[int32]{}, false
	}
	for ; it.slot < int64(g.numSlots); it.slot++ {
		if !g.isUsed(it.slot) {
			continue
		}
		entry := g.entryAt(it.slot)
		it.slot++
		return entry, true
	}
	return Entry[int32]{}, false
}

func (it *arrayResultIterator) Close() {
	it.closed = true
}

// entryAt reconstructs the key from the slot index through the serde and
// extracts every aggregator's value.
func (g *ArrayGrouper) entryAt(slot int64) Entry[int32] {
	id := int32(slot) - 1
	copy(g.keyBuf, types.EncodeInt32(&id))

	recordOffset := int(slot) * g.recordSize
	values := make([]any, len(g.aggregators))
	for i, aggregator := range g.aggregators {
		values[i] = aggregator.Get(g.valBuf, recordOffset+g.aggOffsets[i])
	}
	return Entry[int32]{Key: g.keySerde.Decode(g.keyBuf, 0), Values: values}
}
