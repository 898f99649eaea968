package depot

import (
	"fmt"
	"log/slog"

	"github.com/TheBitDrifter/mask"
)

var _ Storage = &storage{}

// entityRecord is the per-slot bookkeeping: the owned-component mask and the
// slot generation. A zero mask marks the slot dead; the generation counts
// occupant changes so stale handles can be rejected.
type entityRecord struct {
	mask       mask.Mask
	generation uint32
}

type storage struct {
	locked  int
	cfg     Config
	log     *slog.Logger
	schema  Schema
	pools   []componentPool
	index   indexer
	records []entityRecord
	live    int
	policy  placementPolicy
	opQueue opQueue
	// moved is the relocation journal: pre-swap handle to post-swap handle
	// for every entity a swap relocated. It is non-nil only while a destroy
	// batch or a queue flush is running, so handles captured before the
	// batch still find their entities after earlier steps moved them.
	moved map[Entity]Entity
}

func newStorage(schema Schema, cfg Config) (Storage, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := cfg.Logger
	if log == nil {
		log = discardLogger()
	}
	sto := &storage{
		cfg:     cfg,
		log:     log,
		schema:  schema,
		records: make([]entityRecord, cfg.MaxEntities),
		opQueue: newOpQueue(),
	}
	sto.pools = make([]componentPool, 0, schema.Registered())
	for c := range schema.Components() {
		sto.pools = append(sto.pools, newComponentPool(c, cfg.MaxEntities))
	}
	// cfg.Validate covered the enum values already.
	switch cfg.Indexing {
	case IndexingDirect:
		sto.index = &directIndexer{pools: sto.pools}
	case IndexingSparse:
		sto.index = newSparseIndexer(len(sto.pools), cfg.MaxEntities)
	}
	switch cfg.Policy {
	case PolicyUnmanaged:
		sto.policy = &unmanagedPolicy{sto: sto}
	case PolicySwapCompacted:
		sto.policy = &swapPolicy{sto: sto}
	case PolicyArchetypeGrouped:
		sto.policy = newGroupedPolicy(sto)
	}
	sto.log.Debug("storage created",
		"capacity", cfg.MaxEntities,
		"components", len(sto.pools),
		"policy", cfg.Policy,
		"indexing", cfg.Indexing,
	)
	return sto, nil
}

// rowFor resolves a component to its schema row, rejecting types the storage
// has no pool for. Types registered with the schema after the storage was
// built fall in the second category.
func (sto *storage) rowFor(c Component) (uint32, error) {
	if !sto.schema.Contains(c) {
		return 0, UnregisteredComponentError{Component: c}
	}
	row := sto.schema.RowIndexFor(c)
	if int(row) >= len(sto.pools) {
		return 0, UnregisteredComponentError{Component: c}
	}
	return row, nil
}

func (sto *storage) Entity(index int) (Entity, error) {
	if index < 0 || index >= len(sto.records) {
		return Entity{}, RangeError{What: "entity table", Index: index, Bound: len(sto.records)}
	}
	rec := &sto.records[index]
	if rec.mask == (mask.Mask{}) {
		return Entity{}, InvalidEntityError{Index: index, Generation: rec.generation}
	}
	return Entity{sto: sto, index: index, generation: rec.generation}, nil
}

func (sto *storage) Alive(e Entity) bool {
	if e.sto != sto || e.index < 0 || e.index >= len(sto.records) {
		return false
	}
	rec := &sto.records[e.index]
	return rec.mask != (mask.Mask{}) && rec.generation == e.generation
}

func (sto *storage) NewEntities(n int, components ...Component) ([]Entity, error) {
	if sto.Locked() {
		return nil, LockedStorageError{}
	}
	if n <= 0 {
		return nil, nil
	}
	if len(components) == 0 {
		return nil, NoComponentsError{}
	}
	var entityMask mask.Mask
	rows := make([]uint32, 0, len(components))
	for _, component := range components {
		row, err := sto.rowFor(component)
		if err != nil {
			return nil, err
		}
		if hasBit(entityMask, row) {
			continue
		}
		entityMask.Mark(row)
		rows = append(rows, row)
	}
	if sto.live+n > len(sto.records) {
		return nil, CapacityError{What: "entity table", Capacity: len(sto.records)}
	}
	created := make([]Entity, 0, n)
	for i := 0; i < n; i++ {
		e, err := sto.createOne(entityMask, rows)
		if err != nil {
			// All or nothing: a mid-batch failure rolls the batch back,
			// resolving handles the rollback's own removals relocate.
			if sto.moved == nil {
				sto.moved = make(map[Entity]Entity)
				defer func() { sto.moved = nil }()
			}
			for _, c := range created {
				sto.destroyOne(sto.resolveMoved(c))
			}
			return nil, err
		}
		created = append(created, e)
	}
	sto.log.Debug("entities created", "count", n, "live", sto.live)
	return created, nil
}

func (sto *storage) createOne(entityMask mask.Mask, rows []uint32) (Entity, error) {
	index, err := sto.policy.place(entityMask)
	if err != nil {
		return Entity{}, err
	}
	rec := &sto.records[index]
	rec.mask = entityMask
	for i, row := range rows {
		slot, ok := sto.index.attach(index, row)
		if !ok {
			for _, prev := range rows[:i] {
				freed := sto.index.detach(index, prev)
				sto.pools[prev].zeroSlot(freed)
			}
			rec.mask = mask.Mask{}
			rec.generation++
			sto.policy.unplace(index, entityMask)
			return Entity{}, CapacityError{
				What:     fmt.Sprintf("%v pool", sto.pools[row].typ),
				Capacity: sto.pools[row].capacity,
			}
		}
		sto.pools[row].zeroSlot(slot)
	}
	sto.live++
	return Entity{sto: sto, index: index, generation: rec.generation}, nil
}

func (sto *storage) DestroyEntities(entities ...Entity) error {
	if sto.Locked() {
		return LockedStorageError{}
	}
	// Destroys within the batch can relocate later victims, so handles are
	// resolved through the journal just before use. When the operation queue
	// is flushing its journal is already active and shared.
	if sto.moved == nil {
		sto.moved = make(map[Entity]Entity)
		defer func() { sto.moved = nil }()
	}
	destroyed := 0
	for _, e := range entities {
		if sto.destroyOne(sto.resolveMoved(e)) {
			destroyed++
		}
	}
	if destroyed > 0 {
		sto.log.Debug("entities destroyed", "count", destroyed, "live", sto.live)
	}
	return nil
}

// destroyOne reports whether it destroyed anything. Dead and stale handles
// are skipped, which is what makes destruction idempotent.
func (sto *storage) destroyOne(e Entity) bool {
	if !sto.Alive(e) {
		return false
	}
	sto.policy.remove(e.index)
	sto.live--
	return true
}

func (sto *storage) EnqueueNewEntities(n int, components ...Component) error {
	if !sto.Locked() {
		_, err := sto.NewEntities(n, components...)
		if err != nil {
			return fmt.Errorf("failed to create entities directly: %w", err)
		}
		return nil
	}
	sto.opQueue.enqueueCreate(n, components)
	return nil
}

func (sto *storage) EnqueueDestroyEntities(entities ...Entity) error {
	if !sto.Locked() {
		return sto.DestroyEntities(entities...)
	}
	sto.opQueue.enqueueDestroy(entities)
	return nil
}

func (sto *storage) Query(components ...Component) ([]Entity, error) {
	var queryMask mask.Mask
	for _, component := range components {
		row, err := sto.rowFor(component)
		if err != nil {
			return nil, err
		}
		queryMask.Mark(row)
	}
	var matched []Entity
	spans := sto.policy.enumerate(func(m mask.Mask) bool {
		return m.ContainsAll(queryMask)
	})
	for _, sp := range spans {
		for i := sp.start; i < sp.start+sp.count; i++ {
			matched = append(matched, Entity{sto: sto, index: i, generation: sto.records[i].generation})
		}
	}
	return matched, nil
}

func (sto *storage) Schema() Schema {
	return sto.schema
}

func (sto *storage) Policy() Policy {
	return sto.cfg.Policy
}

func (sto *storage) LiveCount() int {
	return sto.live
}

func (sto *storage) Capacity() int {
	return len(sto.records)
}

func (sto *storage) Groups() []EntityGroup {
	return sto.policy.groups()
}

func (sto *storage) Refactor() error {
	if sto.Locked() {
		return LockedStorageError{}
	}
	return sto.policy.refactor()
}

func (sto *storage) Locked() bool {
	return sto.locked > 0
}

func (sto *storage) Lock() {
	sto.locked++
}

func (sto *storage) Unlock() {
	if sto.locked == 0 {
		panic("depot: unlock of an unlocked storage")
	}
	sto.locked--
	if sto.locked > 0 {
		return
	}
	err := sto.processOperationQueue()
	if err != nil {
		panic(err)
	}
}

// swapEntities exchanges the full state of two table slots: pool data or
// slot mappings through the indexer, then the records. Both generations bump
// because both slots change occupants.
func (sto *storage) swapEntities(a, b int) {
	if a == b {
		return
	}
	ra, rb := &sto.records[a], &sto.records[b]
	if sto.moved != nil {
		if ra.mask != (mask.Mask{}) {
			sto.moved[Entity{sto: sto, index: a, generation: ra.generation}] =
				Entity{sto: sto, index: b, generation: rb.generation + 1}
		}
		if rb.mask != (mask.Mask{}) {
			sto.moved[Entity{sto: sto, index: b, generation: rb.generation}] =
				Entity{sto: sto, index: a, generation: ra.generation + 1}
		}
	}
	sto.index.relocate(a, b, ra.mask, rb.mask)
	ra.mask, rb.mask = rb.mask, ra.mask
	ra.generation++
	rb.generation++
}

// clearSlot zeroes the owned pool data of a live slot, releases its slot
// mappings, and marks it dead.
func (sto *storage) clearSlot(index int) {
	rec := &sto.records[index]
	if rec.mask == (mask.Mask{}) {
		panic(fmt.Sprintf("depot: clearing dead slot %d", index))
	}
	for row := range sto.pools {
		r := uint32(row)
		if hasBit(rec.mask, r) {
			sto.pools[row].zeroSlot(sto.index.slotOf(index, r))
		}
	}
	sto.index.release(index, rec.mask)
	rec.mask = mask.Mask{}
	rec.generation++
}
