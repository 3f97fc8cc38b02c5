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
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/fossabot/druid/pkg/container/seq"
	"github.com/fossabot/druid/pkg/logutil"
)

// handoffCapacity bounds how many elements an async merge node may run
// ahead of its consumer, per tree level.  A slow consumer therefore
// cannot cause unbounded buffering upstream.
const handoffCapacity = 8

// Parallel merges the sorted inputs with a balanced binary tree of
// pairwise merge nodes.  parallelism is the maximum count of
// concurrently active internal merge tasks; nodes nearest the leaves are
// scheduled onto pool workers first, and any node that gets no worker
// executes lazily in its consumer's pull path, so an undersized pool can
// never deadlock the tree.  Ties prefer the left branch.
//
// When pool is nil the engine creates its own ants pool of parallelism
// workers and releases it when the returned sequence is closed or
// exhausted.  A supplied pool is borrowed and should have capacity for
// parallelism long-running tasks.
//
// Closing the returned iterator before exhaustion stops every worker and
// drops the buffered elements at every tree level.
func Parallel[T any](pool *ants.Pool, parallelism int, cmp Comparator[T], inputs []seq.Iterator[T]) seq.Iterator[T] {
	switch len(inputs) {
	case 0:
		return seq.Empty[T]()
	case 1:
		return inputs[0]
	}

	ownPool := false
	if pool == nil && parallelism > 0 {
		// Nonblocking: a saturated pool degrades a node to synchronous
		// pull instead of stalling tree construction.
		p, err := ants.NewPool(parallelism, ants.WithNonblocking(true))
		if err == nil {
			pool = p
			ownPool = true
		} else {
			logutil.Warnf("could not build a merge pool of %d workers, merging synchronously: %v", parallelism, err)
		}
	}

	budget := parallelism
	if pool == nil {
		budget = 0
	} else if poolCap := pool.Cap(); poolCap > 0 && poolCap < budget {
		budget = poolCap
	}

	// Pair nodes level by level: the lowest (leaf-adjacent) nodes are
	// built and scheduled first, and results flow upward until a single
	// root sequence remains.
	level := inputs
	for len(level) > 1 {
		next := make([]seq.Iterator[T], 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i+1 == len(level) {
				next = append(next, level[i])
				continue
			}
			var node seq.Iterator[T] = &pairIterator[T]{
				cmp:   cmp,
				left:  level[i],
				right: level[i+1],
			}
			if budget > 0 {
				if async, ok := newAsyncIterator(pool, node); ok {
					node = async
					budget--
				} else {
					logutil.Debugf("merge pool saturated, running a merge node synchronously")
				}
			}
			next = append(next, node)
		}
		level = next
	}

	if !ownPool {
		return level[0]
	}
	return &rootIterator[T]{src: level[0], pool: pool}
}

// pairIterator is one ephemeral merge node: a classic two-pointer merge
// of two sorted children, emitting the smaller head and advancing that
// child.  Ties go left.
type pairIterator[T any] struct {
	cmp         Comparator[T]
	left, right seq.Iterator[T]

	leftHead, rightHead T
	leftOK, rightOK     bool
	primed              bool
	closed              bool
}

func (p *pairIterator[T]) Next() (T, bool) {
	if p.closed {
		var zero T
		return zero, false
	}
	if !p.primed {
		p.primed = true
		p.advanceLeft()
		p.advanceRight()
	}
	switch {
	case p.leftOK && p.rightOK:
		if p.cmp(p.leftHead, p.rightHead) <= 0 {
			v := p.leftHead
			p.advanceLeft()
			return v, true
		}
		v := p.rightHead
		p.advanceRight()
		return v, true
	case p.leftOK:
		v := p.leftHead
		p.advanceLeft()
		return v, true
	case p.rightOK:
		v := p.rightHead
		p.advanceRight()
		return v, true
	default:
		var zero T
		return zero, false
	}
}

func (p *pairIterator[T]) advanceLeft() {
	p.leftHead, p.leftOK = p.left.Next()
	if !p.leftOK {
		p.left.Close()
	}
}

func (p *pairIterator[T]) advanceRight() {
	p.rightHead, p.rightOK = p.right.Next()
	if !p.rightOK {
		p.right.Close()
	}
}

func (p *pairIterator[T]) Close() {
	p.closed = true
	p.left.Close()
	p.right.Close()
}

// asyncIterator runs a merge node on a pool worker, handing elements to
// the consumer through a bounded channel.
type asyncIterator[T any] struct {
	ch   chan T
	done chan struct{}
	once sync.Once
	src  seq.Iterator[T]
}

func newAsyncIterator[T any](pool *ants.Pool, src seq.Iterator[T]) (*asyncIterator[T], bool) {
	a := &asyncIterator[T]{
		ch:   make(chan T, handoffCapacity),
		done: make(chan struct{}),
		src:  src,
	}
	if err := pool.Submit(a.run); err != nil {
		return nil, false
	}
	return a, true
}

func (a *asyncIterator[T]) run() {
	defer close(a.ch)
	defer a.src.Close()
	for {
		v, ok := a.src.Next()
		if !ok {
			return
		}
		select {
		case a.ch <- v:
		case <-a.done:
			return
		}
	}
}

func (a *asyncIterator[T]) Next() (T, bool) {
	var zero T
	select {
	case <-a.done:
		// Closed: leftovers still sitting in the handoff channel are
		// dropped, never delivered.
		return zero, false
	default:
	}
	select {
	case v, ok := <-a.ch:
		if !ok {
			return zero, false
		}
		return v, true
	case <-a.done:
		return zero, false
	}
}

// Close releases the worker.  Elements still buffered in the handoff
// channel are dropped.
func (a *asyncIterator[T]) Close() {
	a.once.Do(func() {
		close(a.done)
	})
}

// rootIterator ties an engine-owned pool's lifetime to the root
// sequence.
type rootIterator[T any] struct {
	src    seq.Iterator[T]
	pool   *ants.Pool
	once   sync.Once
	closed bool
}

func (r *rootIterator[T]) Next() (T, bool) {
	if r.closed {
		var zero T
		return zero, false
	}
	v, ok := r.src.Next()
	if !ok {
		r.release()
	}
	return v, ok
}

func (r *rootIterator[T]) Close() {
	r.closed = true
	r.src.Close()
	r.release()
}

func (r *rootIterator[T]) release() {
	r.once.Do(func() {
		r.pool.Release()
	})
}
