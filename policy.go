package depot

import (
	"fmt"

	"github.com/TheBitDrifter/mask"
)

// placementPolicy decides where entities land in the table and what
// creation, destruction, and mask changes do to their positions. Policies
// manage geometry only: records, pools, and the indexer are mutated through
// the owning storage's swapEntities and clearSlot primitives.
type placementPolicy interface {
	// place picks a slot for a new entity with the given mask and accounts
	// for it. The slot is dead on return; the storage populates it.
	place(m mask.Mask) (int, error)
	// unplace reverses the accounting of an immediately preceding place
	// whose slot was never populated.
	unplace(index int, m mask.Mask)
	// remove destroys the live entity at index, including clearing its slot.
	remove(index int)
	// reassign repositions the live entity at index for a mask change from
	// old to next and returns its final slot.
	reassign(index int, old, next mask.Mask) (int, error)
	// enumerate returns the live slots whose mask passes pred, as spans in
	// this policy's emission order.
	enumerate(pred func(mask.Mask) bool) []span
	groups() []EntityGroup
	refactor() error
}

// scanSpans collects live pred-passing slots in [0, limit) into maximal runs.
func scanSpans(records []entityRecord, limit int, pred func(mask.Mask) bool) []span {
	var spans []span
	for i := 0; i < limit; i++ {
		m := records[i].mask
		if m == (mask.Mask{}) || !pred(m) {
			continue
		}
		if n := len(spans); n > 0 && spans[n-1].start+spans[n-1].count == i {
			spans[n-1].count++
		} else {
			spans = append(spans, span{start: i, count: 1})
		}
	}
	return spans
}

var _ placementPolicy = &unmanagedPolicy{}

// unmanagedPolicy leaves dead slots where they fall: creation scans for the
// first dead slot, destruction clears in place, and nothing ever relocates.
type unmanagedPolicy struct {
	sto *storage
}

func (p *unmanagedPolicy) place(m mask.Mask) (int, error) {
	for i := range p.sto.records {
		if p.sto.records[i].mask == (mask.Mask{}) {
			return i, nil
		}
	}
	return 0, CapacityError{What: "entity table", Capacity: len(p.sto.records)}
}

func (p *unmanagedPolicy) unplace(index int, m mask.Mask) {}

func (p *unmanagedPolicy) remove(index int) {
	p.sto.clearSlot(index)
}

func (p *unmanagedPolicy) reassign(index int, old, next mask.Mask) (int, error) {
	return index, nil
}

func (p *unmanagedPolicy) enumerate(pred func(mask.Mask) bool) []span {
	return scanSpans(p.sto.records, len(p.sto.records), pred)
}

func (p *unmanagedPolicy) groups() []EntityGroup {
	return nil
}

func (p *unmanagedPolicy) refactor() error {
	return UnsupportedPolicyError{Op: "refactor", Policy: PolicyUnmanaged}
}

var _ placementPolicy = &swapPolicy{}

// swapPolicy keeps every live entity in the prefix [0, live): creation
// appends, destruction swaps the victim with the last live entity and clears
// the vacated tail slot.
type swapPolicy struct {
	sto *storage
}

func (p *swapPolicy) place(m mask.Mask) (int, error) {
	next := p.sto.live
	if next >= len(p.sto.records) {
		return 0, CapacityError{What: "entity table", Capacity: len(p.sto.records)}
	}
	if p.sto.records[next].mask != (mask.Mask{}) {
		panic(fmt.Sprintf("depot: live prefix corrupted, slot %d occupied past live count %d", next, p.sto.live))
	}
	return next, nil
}

func (p *swapPolicy) unplace(index int, m mask.Mask) {}

func (p *swapPolicy) remove(index int) {
	last := p.sto.live - 1
	p.sto.swapEntities(index, last)
	p.sto.clearSlot(last)
}

func (p *swapPolicy) reassign(index int, old, next mask.Mask) (int, error) {
	return index, nil
}

func (p *swapPolicy) enumerate(pred func(mask.Mask) bool) []span {
	return scanSpans(p.sto.records, p.sto.live, pred)
}

func (p *swapPolicy) groups() []EntityGroup {
	return nil
}

func (p *swapPolicy) refactor() error {
	return UnsupportedPolicyError{Op: "refactor", Policy: PolicySwapCompacted}
}
