package depot

import (
	"testing"
)

func TestQueuedComponentOps(t *testing.T) {
	storage, tc := newTestStorage(t, DefaultConfig())

	entities, err := storage.NewEntities(1, tc.pos)
	if err != nil {
		t.Fatalf("Failed to create entity: %v", err)
	}
	entity := entities[0]
	posPtr, err := tc.pos.GetFromEntity(entity)
	if err != nil {
		t.Fatalf("GetFromEntity() error = %v", err)
	}
	posPtr.X = 5

	storage.Lock()
	if err := entity.EnqueueAddComponent(tc.vel); err != nil {
		t.Fatalf("EnqueueAddComponent() error = %v", err)
	}
	if err := entity.EnqueueRemoveComponent(tc.health); err != nil {
		t.Fatalf("EnqueueRemoveComponent() error = %v", err)
	}
	// Nothing applies while the lock is held.
	if len(entity.Components()) != 1 {
		t.Fatalf("Component ops applied while locked")
	}
	storage.Unlock()

	cursor := Factory.NewCursor(Factory.NewQuery().And(tc.pos, tc.vel), storage)
	if !cursor.Next() {
		t.Fatal("Entity does not own queued component after flush")
	}
	if got := tc.pos.GetFromCursor(cursor).X; got != 5 {
		t.Errorf("pos.X after flush = %v, want 5", got)
	}
	cursor.Reset()
}

func TestQueuedLastWins(t *testing.T) {
	storage, tc := newTestStorage(t, DefaultConfig())

	entities, err := storage.NewEntities(2, tc.pos, tc.vel)
	if err != nil {
		t.Fatalf("Failed to create entities: %v", err)
	}
	first, second := entities[0], entities[1]

	velPtr, err := tc.vel.GetFromEntity(first)
	if err != nil {
		t.Fatalf("GetFromEntity() error = %v", err)
	}
	velPtr.X = 9

	storage.Lock()
	// Remove then add collapses to the add, which re-initializes.
	if err := first.EnqueueRemoveComponent(tc.vel); err != nil {
		t.Fatalf("EnqueueRemoveComponent() error = %v", err)
	}
	if err := first.EnqueueAddComponent(tc.vel); err != nil {
		t.Fatalf("EnqueueAddComponent() error = %v", err)
	}
	// Add then remove collapses to the remove.
	if err := second.EnqueueAddComponent(tc.health); err != nil {
		t.Fatalf("EnqueueAddComponent() error = %v", err)
	}
	if err := second.EnqueueRemoveComponent(tc.health); err != nil {
		t.Fatalf("EnqueueRemoveComponent() error = %v", err)
	}
	storage.Unlock()

	if got := matchCount(storage, Factory.NewQuery().And(tc.vel)); got != 2 {
		t.Errorf("And(vel) matched %d, want 2", got)
	}
	if got := matchCount(storage, Factory.NewQuery().And(tc.health)); got != 0 {
		t.Errorf("And(health) matched %d, want 0", got)
	}

	cursor := Factory.NewCursor(Factory.NewQuery().And(tc.vel), storage)
	for cursor.Next() {
		if got := tc.vel.GetFromCursor(cursor).X; got != 0 {
			t.Errorf("vel.X after flush = %v, want 0 (re-initialized)", got)
		}
	}
}

func TestQueuedDestroyCancelsMods(t *testing.T) {
	storage, tc := newTestStorage(t, DefaultConfig())

	entities, err := storage.NewEntities(3, tc.pos)
	if err != nil {
		t.Fatalf("Failed to create entities: %v", err)
	}

	storage.Lock()
	// Mod before destroy: the destroy cancels it.
	if err := entities[0].EnqueueAddComponent(tc.vel); err != nil {
		t.Fatalf("EnqueueAddComponent() error = %v", err)
	}
	if err := storage.EnqueueDestroyEntities(entities[0]); err != nil {
		t.Fatalf("EnqueueDestroyEntities() error = %v", err)
	}
	// Destroy before mod: the mod is dropped on arrival.
	if err := storage.EnqueueDestroyEntities(entities[1]); err != nil {
		t.Fatalf("EnqueueDestroyEntities() error = %v", err)
	}
	if err := entities[1].EnqueueAddComponent(tc.vel); err != nil {
		t.Fatalf("EnqueueAddComponent() error = %v", err)
	}
	// Repeated destroys of one entity collapse.
	if err := storage.EnqueueDestroyEntities(entities[1], entities[1]); err != nil {
		t.Fatalf("EnqueueDestroyEntities() error = %v", err)
	}
	storage.Unlock()

	if storage.LiveCount() != 1 {
		t.Errorf("LiveCount() = %d, want 1", storage.LiveCount())
	}
	if got := matchCount(storage, Factory.NewQuery().And(tc.vel)); got != 0 {
		t.Errorf("And(vel) matched %d, want 0", got)
	}
}

func TestQueuedDestroyTracksRelocation(t *testing.T) {
	for _, mode := range allModes {
		t.Run(mode.name, func(t *testing.T) {
			storage, tc := newTestStorage(t, testConfig(mode.policy, mode.indexing))

			entities, err := storage.NewEntities(3, tc.pos)
			if err != nil {
				t.Fatalf("Failed to create entities: %v", err)
			}
			for i, entity := range entities {
				posPtr, err := tc.pos.GetFromEntity(entity)
				if err != nil {
					t.Fatalf("GetFromEntity() error = %v", err)
				}
				posPtr.X = float64(i)
			}

			// Destroying the first entity pulls the third into its slot
			// under compacting policies; the queued handle must still find
			// it there.
			storage.Lock()
			if err := storage.EnqueueDestroyEntities(entities[0]); err != nil {
				t.Fatalf("EnqueueDestroyEntities() error = %v", err)
			}
			if err := storage.EnqueueDestroyEntities(entities[2]); err != nil {
				t.Fatalf("EnqueueDestroyEntities() error = %v", err)
			}
			storage.Unlock()

			if storage.LiveCount() != 1 {
				t.Fatalf("LiveCount() = %d, want 1", storage.LiveCount())
			}
			cursor := Factory.NewCursor(Factory.NewQuery().And(tc.pos), storage)
			if !cursor.Next() {
				t.Fatal("Survivor not matched")
			}
			if got := tc.pos.GetFromCursor(cursor).X; got != 1 {
				t.Errorf("Survivor X = %v, want 1", got)
			}
			cursor.Reset()
		})
	}
}

func TestDestroyBatchTracksRelocation(t *testing.T) {
	for _, mode := range allModes {
		t.Run(mode.name, func(t *testing.T) {
			storage, tc := newTestStorage(t, testConfig(mode.policy, mode.indexing))

			entities, err := storage.NewEntities(3, tc.pos)
			if err != nil {
				t.Fatalf("Failed to create entities: %v", err)
			}
			for i, entity := range entities {
				posPtr, err := tc.pos.GetFromEntity(entity)
				if err != nil {
					t.Fatalf("GetFromEntity() error = %v", err)
				}
				posPtr.X = float64(i)
			}

			// A single batch whose first destroy relocates the second victim.
			if err := storage.DestroyEntities(entities[0], entities[2]); err != nil {
				t.Fatalf("DestroyEntities() error = %v", err)
			}

			if storage.LiveCount() != 1 {
				t.Fatalf("LiveCount() = %d, want 1", storage.LiveCount())
			}
			cursor := Factory.NewCursor(Factory.NewQuery().And(tc.pos), storage)
			if !cursor.Next() {
				t.Fatal("Survivor not matched")
			}
			if got := tc.pos.GetFromCursor(cursor).X; got != 1 {
				t.Errorf("Survivor X = %v, want 1", got)
			}
			cursor.Reset()
		})
	}
}

func TestQueuedModsTrackRelocation(t *testing.T) {
	storage, tc := newTestStorage(t, testConfig(PolicyArchetypeGrouped, IndexingDirect))

	entities, err := storage.NewEntities(2, tc.pos)
	if err != nil {
		t.Fatalf("Failed to create entities: %v", err)
	}

	// Flushing the first add regroups the second entity out from under its
	// queued handle.
	storage.Lock()
	if err := entities[0].EnqueueAddComponent(tc.vel); err != nil {
		t.Fatalf("EnqueueAddComponent() error = %v", err)
	}
	if err := entities[1].EnqueueAddComponent(tc.vel); err != nil {
		t.Fatalf("EnqueueAddComponent() error = %v", err)
	}
	storage.Unlock()

	checkGroupedInvariants(t, storage)
	if got := matchCount(storage, Factory.NewQuery().And(tc.pos, tc.vel)); got != 2 {
		t.Errorf("And(pos, vel) matched %d, want 2", got)
	}
}

func TestQueuedCreates(t *testing.T) {
	storage, tc := newTestStorage(t, DefaultConfig())

	storage.Lock()
	if err := storage.EnqueueNewEntities(2, tc.pos, tc.vel); err != nil {
		t.Fatalf("EnqueueNewEntities() error = %v", err)
	}
	if err := storage.EnqueueNewEntities(3, tc.health); err != nil {
		t.Fatalf("EnqueueNewEntities() error = %v", err)
	}
	if storage.LiveCount() != 0 {
		t.Fatal("Queued creates applied while locked")
	}
	storage.Unlock()

	if storage.LiveCount() != 5 {
		t.Errorf("LiveCount() = %d, want 5", storage.LiveCount())
	}
	if got := matchCount(storage, Factory.NewQuery().And(tc.pos, tc.vel)); got != 2 {
		t.Errorf("And(pos, vel) matched %d, want 2", got)
	}
	if got := matchCount(storage, Factory.NewQuery().And(tc.health)); got != 3 {
		t.Errorf("And(health) matched %d, want 3", got)
	}
}

func TestEnqueueUnlockedRunsDirect(t *testing.T) {
	storage, tc := newTestStorage(t, testConfig(PolicyUnmanaged, IndexingDirect))

	if err := storage.EnqueueNewEntities(2, tc.pos); err != nil {
		t.Fatalf("EnqueueNewEntities() error = %v", err)
	}
	if storage.LiveCount() != 2 {
		t.Fatalf("LiveCount() = %d, want 2", storage.LiveCount())
	}

	entity, err := storage.Entity(0)
	if err != nil {
		t.Fatalf("Entity(0) error = %v", err)
	}
	if err := entity.EnqueueAddComponent(tc.vel); err != nil {
		t.Fatalf("EnqueueAddComponent() error = %v", err)
	}
	if got := matchCount(storage, Factory.NewQuery().And(tc.pos, tc.vel)); got != 1 {
		t.Errorf("And(pos, vel) matched %d, want 1", got)
	}

	if err := storage.EnqueueDestroyEntities(entity); err != nil {
		t.Fatalf("EnqueueDestroyEntities() error = %v", err)
	}
	if storage.LiveCount() != 1 {
		t.Errorf("LiveCount() = %d, want 1", storage.LiveCount())
	}
}

func TestQueuedOpOnDeadEntitySkipped(t *testing.T) {
	storage, tc := newTestStorage(t, DefaultConfig())

	entities, err := storage.NewEntities(1, tc.pos)
	if err != nil {
		t.Fatalf("Failed to create entity: %v", err)
	}
	stale := entities[0]
	if err := storage.DestroyEntities(stale); err != nil {
		t.Fatalf("DestroyEntities() error = %v", err)
	}

	// A queued mod whose entity is already dead is skipped at flush.
	storage.Lock()
	if err := stale.EnqueueAddComponent(tc.vel); err != nil {
		t.Fatalf("EnqueueAddComponent() error = %v", err)
	}
	storage.Unlock()
	if got := matchCount(storage, Factory.NewQuery().And(tc.vel)); got != 0 {
		t.Errorf("And(vel) matched %d, want 0", got)
	}

	// So is a queued destroy.
	storage.Lock()
	if err := storage.EnqueueDestroyEntities(stale); err != nil {
		t.Fatalf("EnqueueDestroyEntities() error = %v", err)
	}
	storage.Unlock()
	if storage.LiveCount() != 0 {
		t.Errorf("LiveCount() = %d, want 0", storage.LiveCount())
	}
}
