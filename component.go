package depot

import "reflect"

// componentType identifies a component by its Go type. Row indices are
// assigned per schema, not stored here, so the same component value works
// against any schema that registered its type.
type componentType struct {
	typ reflect.Type
}

var _ Component = componentType{}

func (c componentType) Type() reflect.Type {
	return c.typ
}

func (c componentType) Size() uintptr {
	return c.typ.Size()
}

// accessor resolves pool slots for a single component type. The concrete T
// lets callers receive typed pointers without casting.
type accessor[T any] struct {
	component Component
}
