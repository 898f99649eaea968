package depot

import "reflect"

type factory struct{}

var Factory factory

// NewSchema builds an empty component registry holding at most
// maxComponents types, clamped to [1, MaxComponentTypes].
func (f factory) NewSchema(maxComponents int) Schema {
	if maxComponents < 1 {
		maxComponents = 1
	}
	if maxComponents > MaxComponentTypes {
		maxComponents = MaxComponentTypes
	}
	return &schema{
		maxComponents: maxComponents,
		rows:          make(map[reflect.Type]uint32),
	}
}

func (f factory) NewStorage(schema Schema, cfg Config) (Storage, error) {
	return newStorage(schema, cfg)
}

func (f factory) NewQuery() Query {
	return newQuery()
}

func (f factory) NewCursor(query QueryNode, storage Storage) *Cursor {
	return newCursor(query, storage)
}

// RegisterComponent registers T with the schema and returns the typed
// component used for creation, queries, and pool access. Registering the
// same type again returns an equivalent component.
func RegisterComponent[T any](s Schema) (AccessibleComponent[T], error) {
	iden := componentType{typ: reflect.TypeFor[T]()}
	if _, err := s.Register(iden); err != nil {
		return AccessibleComponent[T]{}, err
	}
	return AccessibleComponent[T]{
		Component: iden,
		accessor:  accessor[T]{component: iden},
	}, nil
}
