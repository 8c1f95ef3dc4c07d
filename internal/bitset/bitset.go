package bitset

import (
	"math/bits"
	"sync/atomic"
)

// BitSet is a fixed-size bitset safe for concurrent TestAndSet.
type BitSet struct {
	words []atomic.Uint64
	size  uint64
}

// New creates a BitSet holding size bits, all clear.
func New(size uint64) *BitSet {
	return &BitSet{
		words: make([]atomic.Uint64, (size+63)/64),
		size:  size,
	}
}

// TestAndSet sets bit i and reports whether it was ALREADY set.
// Out-of-range indices report false and set nothing.
func (b *BitSet) TestAndSet(i uint64) bool {
	if i >= b.size {
		return false
	}
	mask := uint64(1) << (i % 64)
	old := b.words[i/64].Or(mask)
	return old&mask != 0
}

// Count returns the number of set bits.
func (b *BitSet) Count() int {
	n := 0
	for i := range b.words {
		n += bits.OnesCount64(b.words[i].Load())
	}
	return n
}
