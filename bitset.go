package depot

import "math/bits"

// bitset tracks slot occupancy for one pool row under sparse indexing.
type bitset struct {
	words []uint64
	size  int
}

func newBitset(size int) bitset {
	return bitset{words: make([]uint64, (size+63)/64), size: size}
}

func (b *bitset) set(i int) {
	b.words[i/64] |= 1 << (i % 64)
}

func (b *bitset) unset(i int) {
	b.words[i/64] &^= 1 << (i % 64)
}

func (b *bitset) test(i int) bool {
	return b.words[i/64]&(1<<(i%64)) != 0
}

// firstClear returns the lowest clear bit, or -1 when every bit is set.
// Bits past size are phantom padding in the last word and never reported.
func (b *bitset) firstClear() int {
	for w, word := range b.words {
		if word == ^uint64(0) {
			continue
		}
		i := w*64 + bits.TrailingZeros64(^word)
		if i >= b.size {
			return -1
		}
		return i
	}
	return -1
}
