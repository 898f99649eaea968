package depot

import (
	"fmt"

	iter_util "github.com/TheBitDrifter/util/iter"
)

// Dispatch runs each system once, in listed order. A system's declared
// component set selects its entities, and the snapshot is handed to Update
// with the storage locked, so structural mutation inside a system goes
// through the Enqueue variants. Deferred operations flush when the system's
// hold is released; the first failing system stops the run.
func Dispatch(storage Storage, dt float64, systems ...System) error {
	for _, sys := range systems {
		if err := dispatchOne(storage, dt, sys); err != nil {
			return err
		}
	}
	return nil
}

func dispatchOne(storage Storage, dt float64, sys System) error {
	storage.Lock()
	defer storage.Unlock()
	cursor := newCursor(newLeafNode(sys.Components()), storage)
	entities := iter_util.Collect(cursor.Entities())
	if err := sys.Update(storage, entities, dt); err != nil {
		return fmt.Errorf("system update failed: %w", err)
	}
	return nil
}
