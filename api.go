package depot

import (
	"iter"
	"reflect"

	"github.com/TheBitDrifter/mask"
)

// Storage is the engine facade: a fixed-capacity entity table plus one
// component pool per registered type, governed by the placement policy
// selected at construction.
type Storage interface {
	NewEntities(int, ...Component) ([]Entity, error)
	EnqueueNewEntities(int, ...Component) error
	DestroyEntities(...Entity) error
	EnqueueDestroyEntities(...Entity) error
	Entity(index int) (Entity, error)
	Alive(Entity) bool
	Query(...Component) ([]Entity, error)
	Schema() Schema
	Policy() Policy
	LiveCount() int
	Capacity() int
	Groups() []EntityGroup
	Refactor() error
	Locked() bool
	Lock()
	Unlock()
}

// Component identifies a registered component type.
type Component interface {
	Type() reflect.Type
	Size() uintptr
}

// Schema assigns each component type a stable row index in registration order.
// Storages snapshot it at construction: types registered afterwards are not
// known to storages already built from it.
type Schema interface {
	Register(Component) (uint32, error)
	RowIndexFor(Component) uint32
	Contains(Component) bool
	Registered() int
	MaxComponents() int
	Components() iter.Seq[Component]
}

type Query interface {
	QueryNode
	And(items ...interface{}) QueryNode
	Or(items ...interface{}) QueryNode
	Not(items ...interface{}) QueryNode
}

// QueryNode is evaluated against a component mask (an entity's, or a whole
// group's under the archetype policy).
type QueryNode interface {
	Evaluate(m mask.Mask, schema Schema) bool
}

// System is the dispatch boundary: Components declares the match set, Update
// receives the full query snapshot once per dispatch step.
type System interface {
	Components() []Component
	Update(storage Storage, entities []Entity, dt float64) error
}

// EntityGroup describes a contiguous entity-table range sharing one mask,
// maintained by the archetype-grouped policy.
type EntityGroup struct {
	start int
	count int
	mask  mask.Mask
}

func (g EntityGroup) Start() int { return g.start }

func (g EntityGroup) Count() int { return g.count }

func (g EntityGroup) Mask() mask.Mask { return g.mask }

var _ mask.Maskable = EntityGroup{}

type iCursor interface {
	Entities() iter.Seq[Entity]
	Next() bool
}

// Cursor iterates the entities matched by a query node. Initialization locks
// the storage; exhaustion or Reset unlocks it, flushing deferred operations.
type Cursor struct {
	// The query to filter entities
	query QueryNode

	// The storage to iterate over
	storage Storage

	// Current iteration state
	matched     []span
	spanIndex   int
	entityIndex int
	remaining   int

	// Initialization state
	initialized bool
}

// span is a run of consecutive entity-table indices matched by a query.
type span struct {
	start int
	count int
}

// AccessibleComponent extends a base Component with typed access to pool data.
type AccessibleComponent[T any] struct {
	Component
	accessor[T] // concrete.
}
