package depot

import (
	"github.com/TheBitDrifter/mask"
)

type Operation int

const (
	OpAnd Operation = iota
	OpOr
	OpNot
)

type compositeNode struct {
	op         Operation
	children   []QueryNode
	components []Component
}

type leafNode struct {
	components []Component
}

type query struct {
	root QueryNode
}

var _ Query = &query{}

func newQuery() Query {
	return &query{}
}

func newCompositeNode(op Operation, components []Component) *compositeNode {
	return &compositeNode{
		op:         op,
		children:   make([]QueryNode, 0),
		components: components,
	}
}

func newLeafNode(components []Component) *leafNode {
	return &leafNode{components: components}
}

// evalMask builds the node's mask from the components the schema knows,
// reporting whether any were unknown. An unknown component can never be
// owned: it fails And outright and contributes nothing to Or and Not.
func evalMask(components []Component, schema Schema) (mask.Mask, bool) {
	var nodeMask mask.Mask
	unknown := false
	for _, comp := range components {
		if !schema.Contains(comp) {
			unknown = true
			continue
		}
		nodeMask.Mark(schema.RowIndexFor(comp))
	}
	return nodeMask, unknown
}

func (n *compositeNode) Evaluate(m mask.Mask, schema Schema) bool {
	nodeMask, unknown := evalMask(n.components, schema)

	switch n.op {
	case OpAnd:
		if unknown {
			return false
		}
		if !m.ContainsAll(nodeMask) {
			return false
		}
		for _, child := range n.children {
			if !child.Evaluate(m, schema) {
				return false
			}
		}
		return true

	case OpOr:
		if m.ContainsAny(nodeMask) {
			return true
		}
		for _, child := range n.children {
			if child.Evaluate(m, schema) {
				return true
			}
		}
		return false

	case OpNot:
		if len(n.children) == 0 {
			return m.ContainsNone(nodeMask)
		}
		for _, child := range n.children {
			if child.Evaluate(m, schema) {
				return false
			}
		}
		return !m.ContainsAny(nodeMask)
	}
	return false
}

func (n *leafNode) Evaluate(m mask.Mask, schema Schema) bool {
	nodeMask, unknown := evalMask(n.components, schema)
	if unknown {
		return false
	}
	return m.ContainsAll(nodeMask)
}

func (q *query) And(items ...interface{}) QueryNode {
	components, children := q.processItems(items...)
	node := newCompositeNode(OpAnd, components)
	node.children = children
	if q.root == nil {
		q.root = node
	}
	return node
}

func (q *query) Or(items ...interface{}) QueryNode {
	components, children := q.processItems(items...)
	node := newCompositeNode(OpOr, components)
	node.children = children
	if q.root == nil {
		q.root = node
	}
	return node
}

func (q *query) Not(items ...interface{}) QueryNode {
	components, children := q.processItems(items...)
	node := newCompositeNode(OpNot, components)
	node.children = children
	if q.root == nil {
		q.root = node
	}
	return node
}

func (q *query) processItems(items ...interface{}) ([]Component, []QueryNode) {
	components := make([]Component, 0)
	children := make([]QueryNode, 0)

	for _, item := range items {
		switch v := item.(type) {
		case Component:
			components = append(components, v)
		case []Component:
			components = append(components, v...)
		case QueryNode:
			children = append(children, v)
		}
	}

	return components, children
}

func (q *query) Evaluate(m mask.Mask, schema Schema) bool {
	if q.root == nil {
		return false
	}
	return q.root.Evaluate(m, schema)
}
