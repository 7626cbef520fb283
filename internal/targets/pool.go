// Package targets owns the preloaded training and validation samples that
// environments draw from, and the generation-paced schedule that refreshes
// them.
package targets

import (
	"errors"
	"fmt"
	"sync/atomic"

	"cupart/internal/dataset"
	"cupart/internal/split"
)

var ErrEmptyPool = errors.New("target pool is empty")

var epochs atomic.Uint64

// Pool is an immutable, capacity-bounded set of samples with parallel labels.
// A reload never mutates a published Pool; it builds a new one.
type Pool[S dataset.Sample] struct {
	samples  []S
	labels   []split.Split
	capacity int
	epoch    uint64
}

// NewPool builds a pool whose capacity equals its length.
func NewPool[S dataset.Sample](samples []S, labels []split.Split) (*Pool[S], error) {
	if len(samples) != len(labels) {
		return nil, fmt.Errorf("samples/labels length mismatch: %d != %d", len(samples), len(labels))
	}
	for i, l := range labels {
		if !l.Valid() {
			return nil, fmt.Errorf("invalid label %d at index %d", l, i)
		}
	}
	return newPool(append([]S(nil), samples...), append([]split.Split(nil), labels...), len(samples)), nil
}

func newPool[S dataset.Sample](samples []S, labels []split.Split, capacity int) *Pool[S] {
	return &Pool[S]{
		samples:  samples,
		labels:   labels,
		capacity: capacity,
		epoch:    epochs.Add(1),
	}
}

func (p *Pool[S]) Len() int {
	if p == nil {
		return 0
	}
	return len(p.samples)
}

func (p *Pool[S]) Capacity() int {
	if p == nil {
		return 0
	}
	return p.capacity
}

// Epoch identifies this pool instance. Cursors restart at 0 when it changes.
func (p *Pool[S]) Epoch() uint64 {
	if p == nil {
		return 0
	}
	return p.epoch
}

func (p *Pool[S]) At(i int) (S, split.Split) {
	return p.samples[i], p.labels[i]
}

// ClassCounts returns the number of samples per split class.
func (p *Pool[S]) ClassCounts() [split.Count]int {
	var counts [split.Count]int
	if p == nil {
		return counts
	}
	for _, l := range p.labels {
		counts[l]++
	}
	return counts
}

// Cursor walks a pool with wraparound. The zero value starts at index 0.
type Cursor struct {
	pos   int
	epoch uint64
}

func (c Cursor) Position() int {
	return c.pos
}

// CursorAt returns a cursor on p positioned at i modulo the pool length.
func (p *Pool[S]) CursorAt(i int) Cursor {
	c := Cursor{epoch: p.Epoch()}
	if n := p.Len(); n > 0 {
		c.pos = ((i % n) + n) % n
	}
	return c
}

// Next returns the sample under the cursor and advances it, wrapping to 0 at
// the end of the pool. A cursor last used on another pool restarts at 0.
func (p *Pool[S]) Next(c *Cursor) (S, split.Split, error) {
	var zero S
	if p.Len() == 0 {
		return zero, split.Unknown, ErrEmptyPool
	}
	if c.epoch != p.epoch {
		c.pos = 0
		c.epoch = p.epoch
	}
	if c.pos >= len(p.samples) {
		c.pos = 0
	}
	sample, label := p.samples[c.pos], p.labels[c.pos]
	c.pos++
	if c.pos >= len(p.samples) {
		c.pos = 0
	}
	return sample, label, nil
}
