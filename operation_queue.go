package depot

import (
	"fmt"
	"reflect"
)

type operation struct {
	typ      operationType
	amount   int
	comps    []Component
	entities []Entity
}

type operationType int

const (
	opCancelled operationType = iota - 1
	opCreate
	opDestroy
	opAddComponent
	opRemoveComponent
)

// opKey identifies a pending component op: last-wins per entity and
// component type, so an add followed by a remove of the same component
// collapses to the remove.
type opKey struct {
	entity Entity
	comp   reflect.Type
}

type opQueue struct {
	createOps      []operation
	componentOps   []operation
	destroyOps     []operation
	pendingDestroy map[Entity]struct{}
	pendingMods    map[opKey]int
}

func newOpQueue() opQueue {
	return opQueue{
		pendingDestroy: make(map[Entity]struct{}),
		pendingMods:    make(map[opKey]int),
	}
}

func (q *opQueue) enqueueCreate(n int, comps []Component) {
	q.createOps = append(q.createOps, operation{
		typ:    opCreate,
		amount: n,
		comps:  comps,
	})
}

func (q *opQueue) enqueueDestroy(entities []Entity) {
	var fresh []Entity
	for _, e := range entities {
		if _, exists := q.pendingDestroy[e]; exists {
			continue
		}
		q.pendingDestroy[e] = struct{}{}
		fresh = append(fresh, e)

		// A doomed entity's pending component ops become no-ops.
		for key, idx := range q.pendingMods {
			if key.entity == e {
				q.componentOps[idx].typ = opCancelled
				delete(q.pendingMods, key)
			}
		}
	}
	if len(fresh) > 0 {
		q.destroyOps = append(q.destroyOps, operation{
			typ:      opDestroy,
			entities: fresh,
		})
	}
}

func (q *opQueue) enqueueComponentOp(typ operationType, e Entity, c Component) {
	if _, doomed := q.pendingDestroy[e]; doomed {
		return
	}
	key := opKey{entity: e, comp: c.Type()}
	if idx, exists := q.pendingMods[key]; exists {
		q.componentOps[idx].typ = typ
		q.componentOps[idx].comps = []Component{c}
		return
	}
	q.pendingMods[key] = len(q.componentOps)
	q.componentOps = append(q.componentOps, operation{
		typ:      typ,
		entities: []Entity{e},
		comps:    []Component{c},
	})
}

// processOperationQueue flushes deferred mutations: creates first, then
// component mods, then destroys. Handles were captured while the storage was
// locked; flushed ops themselves can relocate entities, so every handle is
// resolved through the relocation journal first, and handles whose entity
// died during the flush are skipped.
func (sto *storage) processOperationQueue() error {
	q := &sto.opQueue
	if len(q.createOps) == 0 && len(q.componentOps) == 0 && len(q.destroyOps) == 0 {
		return nil
	}
	sto.moved = make(map[Entity]Entity)
	defer func() { sto.moved = nil }()

	for _, op := range q.createOps {
		if _, err := sto.NewEntities(op.amount, op.comps...); err != nil {
			return fmt.Errorf("failed to process queued entity creation: %w", err)
		}
	}

	for _, op := range q.componentOps {
		if op.typ == opCancelled {
			continue
		}
		entity := sto.resolveMoved(op.entities[0])
		if !sto.Alive(entity) {
			continue
		}
		switch op.typ {
		case opAddComponent:
			if _, err := entity.AddComponent(op.comps[0]); err != nil {
				return fmt.Errorf("failed to add queued component: %w", err)
			}
		case opRemoveComponent:
			if _, err := entity.RemoveComponent(op.comps[0]); err != nil {
				return fmt.Errorf("failed to remove queued component: %w", err)
			}
		}
	}

	for _, op := range q.destroyOps {
		current := make([]Entity, 0, len(op.entities))
		for _, e := range op.entities {
			current = append(current, sto.resolveMoved(e))
		}
		if err := sto.DestroyEntities(current...); err != nil {
			return fmt.Errorf("failed to destroy queued entities: %w", err)
		}
	}

	sto.log.Debug("operation queue flushed",
		"creates", len(q.createOps), "mods", len(q.componentOps), "destroys", len(q.destroyOps))
	q.createOps = q.createOps[:0]
	q.componentOps = q.componentOps[:0]
	q.destroyOps = q.destroyOps[:0]
	clear(q.pendingDestroy)
	clear(q.pendingMods)
	return nil
}

// resolveMoved follows the relocation journal to a handle's current
// position. Generations only ever grow, so the chain cannot cycle.
func (sto *storage) resolveMoved(e Entity) Entity {
	for sto.moved != nil {
		next, ok := sto.moved[e]
		if !ok {
			break
		}
		e = next
	}
	return e
}
