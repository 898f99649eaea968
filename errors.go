package depot

import "fmt"

type LockedStorageError struct{}

func (e LockedStorageError) Error() string {
	return "storage is currently locked"
}

type CapacityError struct {
	What     string
	Capacity int
}

func (e CapacityError) Error() string {
	return fmt.Sprintf("%s at maximum capacity (%d)", e.What, e.Capacity)
}

type NotOwnedError struct {
	Component Component
}

func (e NotOwnedError) Error() string {
	return fmt.Sprintf("entity does not own component: %v", e.Component.Type())
}

type RangeError struct {
	What  string
	Index int
	Bound int
}

func (e RangeError) Error() string {
	return fmt.Sprintf("%s index %d outside [0, %d)", e.What, e.Index, e.Bound)
}

// InvalidEntityError covers both dead slots and stale handles whose slot has
// been reused or relocated since the handle was obtained.
type InvalidEntityError struct {
	Index      int
	Generation uint32
}

func (e InvalidEntityError) Error() string {
	return fmt.Sprintf("entity %d (generation %d) is dead or stale", e.Index, e.Generation)
}

type UnregisteredComponentError struct {
	Component Component
}

func (e UnregisteredComponentError) Error() string {
	return fmt.Sprintf("component not registered with this storage: %v", e.Component.Type())
}

// NoComponentsError is returned on entity creation with an empty component
// set. An empty mask marks a dead slot, so live entities need at least one.
type NoComponentsError struct{}

func (e NoComponentsError) Error() string {
	return "cannot create an entity with no components"
}

type UnsupportedPolicyError struct {
	Op     string
	Policy Policy
}

func (e UnsupportedPolicyError) Error() string {
	return fmt.Sprintf("%s requires a different placement policy (active: %s)", e.Op, e.Policy)
}

type ConfigError struct {
	Field  string
	Reason string
}

func (e ConfigError) Error() string {
	return fmt.Sprintf("invalid config field %s: %s", e.Field, e.Reason)
}
