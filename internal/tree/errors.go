package tree

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the node or target parent does not exist.
	ErrNotFound = errors.New("tree: node not found")

	// ErrInvalidMove is the parent of every rejected-movement error.
	ErrInvalidMove = errors.New("tree: invalid move")

	ErrSelfParent        = fmt.Errorf("%w: a node cannot be its own parent", ErrInvalidMove)
	ErrCircularReference = fmt.Errorf("%w: target parent is a descendant of the node", ErrInvalidMove)
	ErrScopeMismatch     = fmt.Errorf("%w: nodes belong to different scopes", ErrInvalidMove)
	ErrSelfReference     = fmt.Errorf("%w: a node cannot be placed relative to itself", ErrInvalidMove)

	// ErrCorrupt reports sibling positions, caches or parent links that no
	// longer describe a valid forest.
	ErrCorrupt = errors.New("tree: structural corruption")
)
