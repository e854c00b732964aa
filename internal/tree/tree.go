// Package tree implements the nested-set encoding behind the category
// hierarchy. It works on a flat arena of nodes and knows nothing about
// storage: callers load rows, rebuild bounds here, and write them back.
package tree

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrUnknownParent is returned when a node references a parent that is not in the arena.
	ErrUnknownParent = errors.New("tree: node references an unknown parent")
	// ErrCycle is returned when some nodes cannot be reached from a root.
	ErrCycle = errors.New("tree: parent references form a cycle")
	// ErrDuplicateID is returned when two nodes share an ID.
	ErrDuplicateID = errors.New("tree: duplicate node id")
)

// Node is one category in the arena.
type Node struct {
	ID       uint
	ParentID *uint
	Name     string
	Lft      int
	Rgt      int
	Level    int
}

// Nested is the name → subtree form used for import documents and for the
// client-facing category picker. Leaves map to an empty Nested.
type Nested map[string]Nested

// Rebuild assigns nested-set bounds to every node with a single depth-first
// traversal. Roots and siblings are visited in name order (ID breaks ties),
// so the result is deterministic for a given set of rows. The returned slice
// is a copy in the input order.
func Rebuild(nodes []Node) ([]Node, error) {
	out := make([]Node, len(nodes))
	copy(out, nodes)

	index := make(map[uint]int, len(out))
	for i, n := range out {
		if _, dup := index[n.ID]; dup {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateID, n.ID)
		}
		index[n.ID] = i
	}

	children := make(map[uint][]int, len(out))
	var roots []int
	for i, n := range out {
		if n.ParentID == nil {
			roots = append(roots, i)
			continue
		}
		if _, ok := index[*n.ParentID]; !ok {
			return nil, fmt.Errorf("%w: node %q", ErrUnknownParent, n.Name)
		}
		children[*n.ParentID] = append(children[*n.ParentID], i)
	}

	byName := func(ids []int) {
		sort.Slice(ids, func(a, b int) bool {
			na, nb := out[ids[a]], out[ids[b]]
			if na.Name != nb.Name {
				return na.Name < nb.Name
			}
			return na.ID < nb.ID
		})
	}
	byName(roots)
	for _, ids := range children {
		byName(ids)
	}

	type frame struct {
		node int
		next int
	}

	counter := 1
	visited := 0
	for _, root := range roots {
		out[root].Lft = counter
		out[root].Level = 0
		counter++
		visited++
		stack := []frame{{node: root}}

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			kids := children[out[top.node].ID]
			if top.next < len(kids) {
				child := kids[top.next]
				top.next++
				out[child].Lft = counter
				out[child].Level = out[top.node].Level + 1
				counter++
				visited++
				stack = append(stack, frame{node: child})
				continue
			}
			out[top.node].Rgt = counter
			counter++
			stack = stack[:len(stack)-1]
		}
	}

	if visited != len(out) {
		return nil, ErrCycle
	}
	return out, nil
}

// Nest converts the arena into the nested map form, rooted at parentless
// nodes. The node named exclude is left out together with its subtree.
func Nest(nodes []Node, exclude string) Nested {
	children := make(map[uint][]Node, len(nodes))
	var roots []Node
	for _, n := range nodes {
		if n.Name == exclude {
			continue
		}
		if n.ParentID == nil {
			roots = append(roots, n)
			continue
		}
		children[*n.ParentID] = append(children[*n.ParentID], n)
	}

	var build func(level []Node) Nested
	build = func(level []Node) Nested {
		result := make(Nested, len(level))
		for _, n := range level {
			result[n.Name] = build(children[n.ID])
		}
		return result
	}
	return build(roots)
}

// Walk visits every entry of doc depth-first, each parent before its
// children and siblings in name order. parent is nil for top-level names.
// The first error returned by fn stops the walk.
func Walk(doc Nested, fn func(parent *string, name string) error) error {
	var visit func(parent *string, level Nested) error
	visit = func(parent *string, level Nested) error {
		names := make([]string, 0, len(level))
		for name := range level {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			if err := fn(parent, name); err != nil {
				return err
			}
			current := name
			if err := visit(&current, level[name]); err != nil {
				return err
			}
		}
		return nil
	}
	return visit(nil, doc)
}

// Size returns the number of names in doc at any depth.
func Size(doc Nested) int {
	total := 0
	for _, sub := range doc {
		total += 1 + Size(sub)
	}
	return total
}

// Contains reports whether ancestor's interval strictly contains node's.
func Contains(ancestor, node Node) bool {
	return ancestor.Lft < node.Lft && node.Rgt < ancestor.Rgt
}

// IsLeafBounds reports whether n has no descendants according to its bounds.
// Bounds are only current right after a rebuild.
func IsLeafBounds(n Node) bool {
	return n.Rgt == n.Lft+1
}
