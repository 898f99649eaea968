package depot

import (
	"fmt"
	"iter"
	"reflect"
)

// MaxComponentTypes bounds how many component types a single schema can hold.
// Row indices double as mask bits, so the bound is the mask width.
const MaxComponentTypes = 64

var _ Schema = &schema{}

type schema struct {
	maxComponents int
	rows          map[reflect.Type]uint32
	ordered       []Component
}

// Register assigns the next free row index to the component's type.
// Re-registering an already known type is a no-op returning the existing row.
func (s *schema) Register(c Component) (uint32, error) {
	if row, ok := s.rows[c.Type()]; ok {
		return row, nil
	}
	if len(s.ordered) >= s.maxComponents {
		return 0, CapacityError{What: "schema", Capacity: s.maxComponents}
	}
	row := uint32(len(s.ordered))
	s.rows[c.Type()] = row
	s.ordered = append(s.ordered, c)
	return row, nil
}

// RowIndexFor panics when the component was never registered. Callers that
// cannot guarantee registration should check Contains first.
func (s *schema) RowIndexFor(c Component) uint32 {
	row, ok := s.rows[c.Type()]
	if !ok {
		panic(fmt.Sprintf("depot: component not registered: %v", c.Type()))
	}
	return row
}

func (s *schema) Contains(c Component) bool {
	_, ok := s.rows[c.Type()]
	return ok
}

func (s *schema) Registered() int {
	return len(s.ordered)
}

func (s *schema) MaxComponents() int {
	return s.maxComponents
}

// Components yields registered components in row order.
func (s *schema) Components() iter.Seq[Component] {
	return func(yield func(Component) bool) {
		for _, c := range s.ordered {
			if !yield(c) {
				return
			}
		}
	}
}
