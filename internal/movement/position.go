// Package movement models where a node sits among its siblings before and
// after a requested change, and classifies that change.
package movement

import "fmt"

// Position is a snapshot of a node's place in the forest.
type Position struct {
	ParentID *int64
	Position int64
	Depth    int64
}

// IsRoot reports whether the snapshot has no parent.
func (p Position) IsRoot() bool { return p.ParentID == nil }

func (p Position) String() string {
	if p.ParentID == nil {
		return fmt.Sprintf("root#%d", p.Position)
	}
	return fmt.Sprintf("%d#%d", *p.ParentID, p.Position)
}

// Current builds the persisted position of a node.
func Current(parentID *int64, position, depth int64) *Position {
	return &Position{
		ParentID: copyID(parentID),
		Position: position,
		Depth:    depth,
	}
}

// Target builds the requested position for a node.
//
// siblings is the size of the target sibling set without the moving node and
// parentDepth is the depth of the target parent (ignored for roots). A zero
// requested position keeps the current rank when the parent does not change
// and appends to the bottom of the sibling set otherwise. Any other value is
// clamped into [1, siblings+1].
func Target(from *Position, parentID *int64, requested, siblings, parentDepth int64) *Position {
	to := &Position{ParentID: copyID(parentID)}

	switch {
	case requested != 0:
		to.Position = requested
	case from != nil && SameParent(from.ParentID, parentID):
		to.Position = from.Position
	default:
		to.Position = siblings + 1
	}
	to.Position = clamp(to.Position, 1, siblings+1)

	if parentID != nil {
		to.Depth = parentDepth + 1
	}
	return to
}

// SameParent compares two nullable parent references.
func SameParent(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func clamp(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func copyID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
