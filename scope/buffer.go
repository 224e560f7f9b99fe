// Copyright 2026 The hwsoc Authors. All rights reserved.
// Licensed under the MIT license. See license text in the LICENSE file.

package scope

import (
	"github.com/bits-and-blooms/bitset"
)

// A Buffer is a circular sample buffer. Each sample is a bit set of the
// buffer's width.
//
type Buffer struct {
	width   uint
	samples []*bitset.BitSet
	cursor  int
	count   int
}

// NewBuffer returns a new buffer holding depth samples of width bits.
//
func NewBuffer(depth int, width uint) *Buffer {
	b := &Buffer{width: width, samples: make([]*bitset.BitSet, depth)}
	for i := range b.samples {
		b.samples[i] = bitset.New(width)
	}
	return b
}

// Depth returns the buffer capacity in samples.
//
func (b *Buffer) Depth() int { return len(b.samples) }

// Width returns the width of a sample in bits.
//
func (b *Buffer) Width() uint { return b.width }

// Len returns the number of valid samples.
//
func (b *Buffer) Len() int { return b.count }

// Cursor returns the slot the next sample will be written to.
//
func (b *Buffer) Cursor() int { return b.cursor }

// Reset empties the buffer and moves the cursor back to slot 0.
//
func (b *Buffer) Reset() {
	b.cursor, b.count = 0, 0
}

// Push stores a copy of s at the cursor, overwriting the oldest sample if the
// buffer is full, and returns the slot it was stored in.
//
func (b *Buffer) Push(s *bitset.BitSet) int {
	slot := b.cursor
	s.CopyFull(b.samples[slot])
	b.cursor = (b.cursor + 1) % len(b.samples)
	if b.count < len(b.samples) {
		b.count++
	}
	return slot
}

// Position returns the position of the sample stored in slot within the
// window of valid samples, 0 being the oldest.
//
func (b *Buffer) Position(slot int) int {
	d := len(b.samples)
	return (slot - (b.cursor - b.count) + 2*d) % d
}

// At returns the i-th oldest valid sample. The returned set must not be
// modified.
//
func (b *Buffer) At(i int) *bitset.BitSet {
	d := len(b.samples)
	return b.samples[(b.cursor-b.count+i+2*d)%d]
}

// Word returns the k-th 32 bits word of the i-th oldest valid sample. Out of
// range indices read as zero.
//
func (b *Buffer) Word(i, k int) uint32 {
	if i < 0 || i >= b.count {
		return 0
	}
	return word(b.At(i), k)
}

func word(s *bitset.BitSet, k int) uint32 {
	ws := s.Words()
	if k/2 >= len(ws) {
		return 0
	}
	return uint32(ws[k/2] >> (32 * uint(k%2)))
}
