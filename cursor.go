package depot

import (
	"iter"

	"github.com/TheBitDrifter/mask"
)

var _ iCursor = &Cursor{}

func newCursor(query QueryNode, storage Storage) *Cursor {
	return &Cursor{
		query:   query,
		storage: storage,
	}
}

func (c *Cursor) Next() bool {
	if c.entityIndex < c.remaining {
		c.entityIndex++
		return true
	}
	return c.advance()
}

func (c *Cursor) advance() bool {
	if !c.initialized {
		c.initialize()
	}
	for c.spanIndex < len(c.matched) {
		c.remaining = c.matched[c.spanIndex].count

		if c.entityIndex < c.remaining {
			c.entityIndex++
			return true
		}
		c.spanIndex++
		c.entityIndex = 0
	}
	c.Reset()
	return false
}

func (c *Cursor) Entities() iter.Seq[Entity] {
	return func(yield func(Entity) bool) {
		c.initialize()
		sto := c.storage.(*storage)

		for c.spanIndex < len(c.matched) {
			sp := c.matched[c.spanIndex]
			c.remaining = sp.count

			for c.entityIndex < c.remaining {
				index := sp.start + c.entityIndex
				e := Entity{sto: sto, index: index, generation: sto.records[index].generation}
				if !yield(e) {
					c.Reset()
					return
				}
				c.entityIndex++
			}
			c.entityIndex = 0
			c.spanIndex++
		}
		c.Reset()
	}
}

func (c *Cursor) initialize() {
	if c.initialized {
		return
	}
	c.storage.Lock()
	sto := c.storage.(*storage)

	// Snapshot the matching live ranges under the lock.
	c.matched = sto.policy.enumerate(func(m mask.Mask) bool {
		return c.query.Evaluate(m, sto.schema)
	})
	if len(c.matched) > 0 {
		c.spanIndex = 0
		c.remaining = c.matched[0].count
	}
	c.initialized = true
}

func (c *Cursor) Reset() {
	if !c.initialized {
		return
	}
	c.spanIndex = 0
	c.entityIndex = 0
	c.remaining = 0
	c.matched = nil
	c.initialized = false
	c.storage.Unlock()
}

// currentIndex is the table index of the entity the latest Next landed on.
// entityIndex points one past it within the current span.
func (c *Cursor) currentIndex() int {
	return c.matched[c.spanIndex].start + c.entityIndex - 1
}

func (c *Cursor) CurrentEntity() Entity {
	sto := c.storage.(*storage)
	index := c.currentIndex()
	return Entity{sto: sto, index: index, generation: sto.records[index].generation}
}

func (c *Cursor) RemainingInGroup() int {
	return c.remaining - c.entityIndex
}

func (c *Cursor) TotalMatched() int {
	if !c.initialized {
		c.initialize()
	}
	total := 0
	for _, sp := range c.matched {
		total += sp.count
	}
	return total
}
