package depot

import (
	"testing"

	iter_util "github.com/TheBitDrifter/util/iter"
)

func TestCursorWalk(t *testing.T) {
	storage, tc := newTestStorage(t, DefaultConfig())

	if _, err := storage.NewEntities(3, tc.pos); err != nil {
		t.Fatalf("Failed to create entities: %v", err)
	}
	if _, err := storage.NewEntities(2, tc.pos, tc.vel); err != nil {
		t.Fatalf("Failed to create entities: %v", err)
	}

	cursor := Factory.NewCursor(Factory.NewQuery().And(tc.pos), storage)

	wantIndex := []int{0, 1, 2, 3, 4}
	wantRemaining := []int{2, 1, 0, 1, 0}
	step := 0
	for cursor.Next() {
		entity := cursor.CurrentEntity()
		if entity.Index() != wantIndex[step] {
			t.Errorf("Step %d index = %d, want %d", step, entity.Index(), wantIndex[step])
		}
		if got := cursor.RemainingInGroup(); got != wantRemaining[step] {
			t.Errorf("Step %d RemainingInGroup() = %d, want %d", step, got, wantRemaining[step])
		}
		if !entity.Valid() {
			t.Errorf("Step %d entity invalid", step)
		}
		step++
	}
	if step != 5 {
		t.Errorf("Walked %d entities, want 5", step)
	}

	// The cursor resets at exhaustion and can walk again.
	count := 0
	for cursor.Next() {
		count++
	}
	if count != 5 {
		t.Errorf("Second walk visited %d entities, want 5", count)
	}
}

func TestCursorLockContract(t *testing.T) {
	storage, tc := newTestStorage(t, DefaultConfig())

	if _, err := storage.NewEntities(4, tc.pos); err != nil {
		t.Fatalf("Failed to create entities: %v", err)
	}

	cursor := Factory.NewCursor(Factory.NewQuery().And(tc.pos), storage)

	if storage.Locked() {
		t.Fatal("Storage locked before iteration")
	}
	seen := 0
	for cursor.Next() {
		if !storage.Locked() {
			t.Fatal("Storage unlocked during iteration")
		}
		// Structural changes are deferred while the cursor holds the lock.
		if err := storage.EnqueueNewEntities(1, tc.vel); err != nil {
			t.Fatalf("EnqueueNewEntities() error = %v", err)
		}
		seen++
	}
	if storage.Locked() {
		t.Fatal("Storage still locked after exhaustion")
	}
	if seen != 4 {
		t.Errorf("Visited %d entities, want 4", seen)
	}
	// The four queued creations landed once the lock dropped.
	if storage.LiveCount() != 8 {
		t.Errorf("LiveCount() = %d, want 8", storage.LiveCount())
	}

	// Breaking out of a range loop releases the lock through the iterator.
	for range cursor.Entities() {
		if !storage.Locked() {
			t.Fatal("Storage unlocked during range iteration")
		}
		break
	}
	if storage.Locked() {
		t.Fatal("Storage still locked after early break")
	}

	// An explicit Reset releases a partially walked cursor.
	if !cursor.Next() {
		t.Fatal("Next() = false on repopulated storage")
	}
	cursor.Reset()
	if storage.Locked() {
		t.Fatal("Storage still locked after Reset")
	}
	// Reset on an idle cursor stays balanced.
	cursor.Reset()
	if storage.Locked() {
		t.Fatal("Reset on idle cursor locked the storage")
	}
}

func TestCursorEntitiesCollect(t *testing.T) {
	storage, tc := newTestStorage(t, DefaultConfig())

	if _, err := storage.NewEntities(6, tc.pos); err != nil {
		t.Fatalf("Failed to create entities: %v", err)
	}
	if _, err := storage.NewEntities(3, tc.vel); err != nil {
		t.Fatalf("Failed to create entities: %v", err)
	}

	cursor := Factory.NewCursor(Factory.NewQuery().And(tc.pos), storage)
	entities := iter_util.Collect(cursor.Entities())
	if len(entities) != 6 {
		t.Fatalf("Collected %d entities, want 6", len(entities))
	}
	for i, entity := range entities {
		if !entity.Valid() {
			t.Errorf("Collected entity %d invalid", i)
		}
	}

	if total := cursor.TotalMatched(); total != 6 {
		t.Errorf("TotalMatched() = %d, want 6", total)
	}
	cursor.Reset()
}

func TestCursorTotalMatchedMidWalk(t *testing.T) {
	storage, tc := newTestStorage(t, DefaultConfig())

	if _, err := storage.NewEntities(5, tc.pos); err != nil {
		t.Fatalf("Failed to create entities: %v", err)
	}

	cursor := Factory.NewCursor(Factory.NewQuery().And(tc.pos), storage)
	if !cursor.Next() || !cursor.Next() {
		t.Fatal("Next() = false with matches remaining")
	}
	if total := cursor.TotalMatched(); total != 5 {
		t.Errorf("TotalMatched() mid-walk = %d, want 5", total)
	}
	// The walk resumes where it left off.
	rest := 0
	for cursor.Next() {
		rest++
	}
	if rest != 3 {
		t.Errorf("Remaining walk visited %d entities, want 3", rest)
	}
}

func TestCursorEmptyMatch(t *testing.T) {
	storage, tc := newTestStorage(t, DefaultConfig())

	if _, err := storage.NewEntities(2, tc.pos); err != nil {
		t.Fatalf("Failed to create entities: %v", err)
	}

	cursor := Factory.NewCursor(Factory.NewQuery().And(tc.health), storage)
	if cursor.Next() {
		t.Error("Next() = true for a query with no matches")
	}
	if storage.Locked() {
		t.Error("Storage left locked by an empty walk")
	}
	if total := cursor.TotalMatched(); total != 0 {
		t.Errorf("TotalMatched() = %d, want 0", total)
	}
	cursor.Reset()
	if storage.Locked() {
		t.Error("Storage left locked after Reset")
	}
}
