// Package forest provides the data types shared by the tree engine, its
// traversal strategies and the layers above them.
package forest

import (
	"fmt"

	"github.com/arbor-db/arbor/internal/movement"
	"github.com/arbor-db/arbor/internal/scope"
)

// Node is one row of an ordered tree as seen by the engine. ParentID is nil
// for roots. Depth and ChildCount are only meaningful when the table carries
// the corresponding cached column.
type Node struct {
	ID         int64
	ParentID   *int64
	Position   int64
	Depth      int64
	ChildCount int64
	Scope      scope.Scope

	// Destroyed is set once the node's row has been removed.
	Destroyed bool
}

// Persisted reports whether the node refers to a live row.
func (n *Node) Persisted() bool {
	return n != nil && n.ID != 0 && !n.Destroyed
}

// IsRoot reports whether the node has no parent.
func (n *Node) IsRoot() bool { return n.ParentID == nil }

// Snapshot returns the node's persisted position, or nil when the node has
// no row.
func (n *Node) Snapshot() *movement.Position {
	if !n.Persisted() {
		return nil
	}
	return movement.Current(n.ParentID, n.Position, n.Depth)
}

func (n Node) String() string {
	if n.ParentID == nil {
		return fmt.Sprintf("node(%d root #%d)", n.ID, n.Position)
	}
	return fmt.Sprintf("node(%d under %d #%d)", n.ID, *n.ParentID, n.Position)
}

// IDs collects the ids of nodes in order.
func IDs(nodes []Node) []int64 {
	out := make([]int64, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.ID)
	}
	return out
}

// ParentRef returns a copy of a parent id for storage in a Node.
func ParentRef(id int64) *int64 { return &id }
