package depot

import (
	"fmt"

	"github.com/TheBitDrifter/mask"
	iter_util "github.com/TheBitDrifter/util/iter"
)

// Entity is a generational handle: a table index plus the slot generation at
// the time the handle was obtained. Destroys and policy relocations bump the
// slot generation, so handles to a previous occupant go stale instead of
// silently aliasing whatever lives there now.
type Entity struct {
	sto        *storage
	index      int
	generation uint32
}

var _ mask.Maskable = Entity{}

func (e Entity) Index() int {
	return e.index
}

func (e Entity) Generation() uint32 {
	return e.generation
}

// Valid reports whether the handle still names a live entity.
func (e Entity) Valid() bool {
	return e.sto != nil && e.sto.Alive(e)
}

// Mask returns the owned-component mask, or the zero mask for an invalid
// handle.
func (e Entity) Mask() mask.Mask {
	if !e.Valid() {
		return mask.Mask{}
	}
	return e.sto.records[e.index].mask
}

// Components returns the owned components in schema row order.
func (e Entity) Components() []Component {
	if !e.Valid() {
		return nil
	}
	m := e.sto.records[e.index].mask
	all := iter_util.Collect(e.sto.schema.Components())
	owned := make([]Component, 0, len(all))
	for row, c := range all {
		if hasBit(m, uint32(row)) {
			owned = append(owned, c)
		}
	}
	return owned
}

// AddComponent attaches c with a default-initialized value. Attaching an
// already-owned component re-initializes it in place. Under the grouped
// policy the entity may relocate, so callers must continue with the returned
// handle.
func (e Entity) AddComponent(c Component) (Entity, error) {
	if e.sto == nil {
		return e, InvalidEntityError{Index: e.index, Generation: e.generation}
	}
	if e.sto.Locked() {
		return e, LockedStorageError{}
	}
	if !e.sto.Alive(e) {
		return e, InvalidEntityError{Index: e.index, Generation: e.generation}
	}
	row, err := e.sto.rowFor(c)
	if err != nil {
		return e, err
	}
	origin := e.sto.records[e.index].mask
	if hasBit(origin, row) {
		e.sto.pools[row].zeroSlot(e.sto.index.slotOf(e.index, row))
		return e, nil
	}
	// Claiming the pool slot is the only fallible step, so probe it before
	// the policy moves anything.
	if !e.sto.index.canAttach(row) {
		return e, CapacityError{
			What:     fmt.Sprintf("%v pool", e.sto.pools[row].typ),
			Capacity: e.sto.pools[row].capacity,
		}
	}
	dest := origin
	dest.Mark(row)
	// The record keeps the origin mask until relocation is done: the new row
	// has no slot yet, and relocation moves exactly the rows the record owns.
	newIndex, err := e.sto.policy.reassign(e.index, origin, dest)
	if err != nil {
		return e, fmt.Errorf("failed to regroup entity: %w", err)
	}
	rec := &e.sto.records[newIndex]
	rec.mask = dest
	slot, ok := e.sto.index.attach(newIndex, row)
	if !ok {
		panic(fmt.Sprintf("depot: pool slot for row %d vanished during attach", row))
	}
	e.sto.pools[row].zeroSlot(slot)
	return Entity{sto: e.sto, index: newIndex, generation: rec.generation}, nil
}

// RemoveComponent detaches c, zeroing the vacated pool bytes. Detaching a
// component the entity does not own is a no-op. Detaching the last owned
// component destroys the entity, since an empty mask marks a dead slot; the
// returned handle is then stale.
func (e Entity) RemoveComponent(c Component) (Entity, error) {
	if e.sto == nil {
		return e, InvalidEntityError{Index: e.index, Generation: e.generation}
	}
	if e.sto.Locked() {
		return e, LockedStorageError{}
	}
	if !e.sto.Alive(e) {
		return e, InvalidEntityError{Index: e.index, Generation: e.generation}
	}
	row, err := e.sto.rowFor(c)
	if err != nil {
		return e, err
	}
	origin := e.sto.records[e.index].mask
	if !hasBit(origin, row) {
		return e, nil
	}
	dest := origin
	dest.Unmark(row)
	if dest == (mask.Mask{}) {
		e.sto.destroyOne(e)
		return e, nil
	}
	freed := e.sto.index.detach(e.index, row)
	e.sto.pools[row].zeroSlot(freed)
	// Unlike attach, the record sheds the row before relocation: its slot is
	// already released, so relocation must not try to move it.
	e.sto.records[e.index].mask = dest
	newIndex, err := e.sto.policy.reassign(e.index, origin, dest)
	if err != nil {
		return e, fmt.Errorf("failed to regroup entity: %w", err)
	}
	return Entity{sto: e.sto, index: newIndex, generation: e.sto.records[newIndex].generation}, nil
}

func (e Entity) EnqueueAddComponent(c Component) error {
	if e.sto == nil {
		return InvalidEntityError{Index: e.index, Generation: e.generation}
	}
	if !e.sto.Locked() {
		_, err := e.AddComponent(c)
		return err
	}
	e.sto.opQueue.enqueueComponentOp(opAddComponent, e, c)
	return nil
}

func (e Entity) EnqueueRemoveComponent(c Component) error {
	if e.sto == nil {
		return InvalidEntityError{Index: e.index, Generation: e.generation}
	}
	if !e.sto.Locked() {
		_, err := e.RemoveComponent(c)
		return err
	}
	e.sto.opQueue.enqueueComponentOp(opRemoveComponent, e, c)
	return nil
}
