package depot

import (
	"fmt"

	"github.com/TheBitDrifter/mask"
)

// indexer maps (table index, schema row) pairs to pool slots. Ownership truth
// lives in the entity records' masks. slotOf is not an ownership test: callers
// check the mask first, and an unmapped lookup is a bookkeeping bug.
type indexer interface {
	attach(index int, row uint32) (int, bool)
	detach(index int, row uint32) int
	slotOf(index int, row uint32) int
	canAttach(row uint32) bool
	relocate(a, b int, maskA, maskB mask.Mask)
	release(index int, m mask.Mask)
}

func hasBit(m mask.Mask, bit uint32) bool {
	var b mask.Mask
	b.Mark(bit)
	return m.ContainsAll(b)
}

var _ indexer = &directIndexer{}

// directIndexer pins every entity's pool slot to its table index. Attach can
// never run out of slots, and relocation must physically swap pool bytes for
// each component row either entity owns.
type directIndexer struct {
	pools []componentPool
}

func (d *directIndexer) attach(index int, row uint32) (int, bool) {
	return index, true
}

func (d *directIndexer) detach(index int, row uint32) int {
	return index
}

func (d *directIndexer) slotOf(index int, row uint32) int {
	return index
}

func (d *directIndexer) canAttach(row uint32) bool {
	return true
}

func (d *directIndexer) relocate(a, b int, maskA, maskB mask.Mask) {
	for row := range d.pools {
		r := uint32(row)
		if hasBit(maskA, r) || hasBit(maskB, r) {
			d.pools[row].swapSlots(a, b)
		}
	}
}

func (d *directIndexer) release(index int, m mask.Mask) {}

var _ indexer = &sparseIndexer{}

// sparseIndexer keeps a per-row slot map (-1 = unmapped) plus an occupancy
// bitset per pool. Attach claims the first free slot; relocation swaps the
// mapping integers and never touches pool memory.
type sparseIndexer struct {
	slots [][]int32
	occ   []bitset
}

func newSparseIndexer(rows, capacity int) *sparseIndexer {
	s := &sparseIndexer{
		slots: make([][]int32, rows),
		occ:   make([]bitset, rows),
	}
	for r := range s.slots {
		rowSlots := make([]int32, capacity)
		for i := range rowSlots {
			rowSlots[i] = -1
		}
		s.slots[r] = rowSlots
		s.occ[r] = newBitset(capacity)
	}
	return s
}

func (s *sparseIndexer) attach(index int, row uint32) (int, bool) {
	slot := s.occ[row].firstClear()
	if slot < 0 {
		return 0, false
	}
	s.occ[row].set(slot)
	s.slots[row][index] = int32(slot)
	return slot, true
}

func (s *sparseIndexer) detach(index int, row uint32) int {
	slot := s.slots[row][index]
	if slot < 0 {
		panic(fmt.Sprintf("depot: entity %d has no pool slot for row %d", index, row))
	}
	s.slots[row][index] = -1
	s.occ[row].unset(int(slot))
	return int(slot)
}

func (s *sparseIndexer) slotOf(index int, row uint32) int {
	slot := s.slots[row][index]
	if slot < 0 {
		panic(fmt.Sprintf("depot: entity %d has no pool slot for row %d", index, row))
	}
	return int(slot)
}

func (s *sparseIndexer) canAttach(row uint32) bool {
	return s.occ[row].firstClear() >= 0
}

func (s *sparseIndexer) relocate(a, b int, maskA, maskB mask.Mask) {
	for row := range s.slots {
		r := uint32(row)
		if hasBit(maskA, r) || hasBit(maskB, r) {
			s.slots[row][a], s.slots[row][b] = s.slots[row][b], s.slots[row][a]
		}
	}
}

func (s *sparseIndexer) release(index int, m mask.Mask) {
	for row := range s.slots {
		if !hasBit(m, uint32(row)) {
			continue
		}
		slot := s.slots[row][index]
		if slot < 0 {
			panic(fmt.Sprintf("depot: entity %d has no pool slot for row %d", index, row))
		}
		s.occ[row].unset(int(slot))
		s.slots[row][index] = -1
	}
}
