/*
Package depot provides a fixed-capacity entity-component storage engine for games and simulations.

Depot associates plain data components with lightweight entity handles and answers
"which entities own components {A, B, ...}" fast enough to drive a per-frame loop.
All storage is sized up front: the entity table, one pool per registered component
type, and the bookkeeping for the selected placement policy are allocated at
construction and never grow.

Core Concepts:

  - Entity: a generational handle (table index + generation) for a stored object.
  - Component: a plain data record type, one pool per registered type.
  - Schema: the registry assigning each component type a stable small ID.
  - Placement policy: where entities land in the table and what destruction
    does (Unmanaged, Swap-Compacted, or Archetype-Grouped).
  - EntityGroup: under the grouped policy, a contiguous table range of entities
    sharing one component mask.
  - Query: a way to find entities with specific component combinations.

Basic Usage:

	// Create a schema and register components
	schema := depot.Factory.NewSchema(32)
	position, _ := depot.RegisterComponent[Position](schema)
	velocity, _ := depot.RegisterComponent[Velocity](schema)

	// Create storage with a placement policy
	cfg := depot.DefaultConfig()
	cfg.Policy = depot.PolicyArchetypeGrouped
	storage, _ := depot.Factory.NewStorage(schema, cfg)

	// Create entities
	entities, _ := storage.NewEntities(100, position, velocity)
	_ = entities

	// Query entities and process them
	query := depot.Factory.NewQuery()
	queryNode := query.And(position, velocity)
	cursor := depot.Factory.NewCursor(queryNode, storage)

	for cursor.Next() {
		pos := position.GetFromCursor(cursor)
		vel := velocity.GetFromCursor(cursor)
		pos.X += vel.X
		pos.Y += vel.Y
	}

The engine is single-writer: no internal synchronization is performed beyond the
Lock/Unlock iteration guard, which defers structural mutations requested during
iteration to an operation queue flushed when the last lock is released.
*/
package depot
