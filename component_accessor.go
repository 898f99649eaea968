package depot

import "fmt"

// get resolves a typed pointer for a live table index. Callers that cannot
// guarantee ownership use check first; a miss here is a bookkeeping bug.
func (a accessor[T]) get(sto *storage, index int) *T {
	row, err := sto.rowFor(a.component)
	if err != nil {
		panic(fmt.Sprintf("depot: access to unregistered component %v", a.component.Type()))
	}
	if !hasBit(sto.records[index].mask, row) {
		panic(fmt.Sprintf("depot: entity %d does not own accessed component %v", index, a.component.Type()))
	}
	return (*T)(sto.pools[row].at(sto.index.slotOf(index, row)))
}

func (a accessor[T]) check(sto *storage, index int) bool {
	row, err := sto.rowFor(a.component)
	if err != nil {
		return false
	}
	return hasBit(sto.records[index].mask, row)
}

// GetFromCursor retrieves the component value at the cursor position. The
// cursor's query established ownership, so this variant skips the checks.
func (c AccessibleComponent[T]) GetFromCursor(cursor *Cursor) *T {
	return c.get(cursor.storage.(*storage), cursor.currentIndex())
}

// GetFromCursorSafe retrieves the component value at the cursor position,
// first checking that the entity there owns the component.
func (c AccessibleComponent[T]) GetFromCursorSafe(cursor *Cursor) (bool, *T) {
	sto := cursor.storage.(*storage)
	index := cursor.currentIndex()
	if !c.check(sto, index) {
		return false, nil
	}
	return true, c.get(sto, index)
}

// GetFromEntity retrieves the component value for the entity, reporting
// InvalidEntityError for dead or stale handles and NotOwnedError when the
// entity does not own the component.
func (c AccessibleComponent[T]) GetFromEntity(entity Entity) (*T, error) {
	if !entity.Valid() {
		return nil, InvalidEntityError{Index: entity.index, Generation: entity.generation}
	}
	sto := entity.sto
	row, err := sto.rowFor(c.Component)
	if err != nil {
		return nil, err
	}
	if !hasBit(sto.records[entity.index].mask, row) {
		return nil, NotOwnedError{Component: c.Component}
	}
	return (*T)(sto.pools[row].at(sto.index.slotOf(entity.index, row))), nil
}

// Check reports whether a live entity owns the component.
func (c AccessibleComponent[T]) Check(entity Entity) bool {
	if !entity.Valid() {
		return false
	}
	return c.check(entity.sto, entity.index)
}
