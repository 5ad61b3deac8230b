package tree

import (
	"context"
	"fmt"

	"github.com/arbor-db/arbor/internal/database"
	"github.com/arbor-db/arbor/internal/forest"
	"github.com/arbor-db/arbor/internal/movement"
	"github.com/arbor-db/arbor/internal/scope"
)

// MoveToRoot detaches node id and appends it to the roots of its scope. A
// node that is already a root stays where it is.
func (e *Engine) MoveToRoot(ctx context.Context, tx *database.Tx, id int64) (*Result, error) {
	return e.Move(ctx, tx, id, nil, 0)
}

// MoveToChildOf appends node id to the children of parentID.
func (e *Engine) MoveToChildOf(ctx context.Context, tx *database.Tx, id, parentID int64) (*Result, error) {
	return e.Move(ctx, tx, id, forest.ParentRef(parentID), 0)
}

// MoveToChildWithIndex places node id at a 0-based index among the children
// of parentID (nil for the roots). A negative index counts from the end, so
// -1 is the last place.
func (e *Engine) MoveToChildWithIndex(ctx context.Context, tx *database.Tx, id int64, parentID *int64, index int64) (*Result, error) {
	if parentID != nil && *parentID == id {
		return nil, ErrSelfParent
	}
	if index >= 0 {
		return e.Move(ctx, tx, id, parentID, index+1)
	}
	return e.run(ctx, tx, func(ctx context.Context, tx *database.Tx) (*Result, error) {
		node, err := e.lockNode(ctx, tx, id, parentID)
		if err != nil {
			return nil, err
		}
		count, err := e.countSiblings(ctx, tx.DB(), node, parentID, node.ID)
		if err != nil {
			return nil, err
		}
		return e.move(ctx, tx, id, parentID, max(count+2+index, 1))
	})
}

// MoveToLeftOf places node id directly before siblingID.
func (e *Engine) MoveToLeftOf(ctx context.Context, tx *database.Tx, id, siblingID int64) (*Result, error) {
	return e.moveBeside(ctx, tx, id, siblingID, false)
}

// MoveToRightOf places node id directly after siblingID.
func (e *Engine) MoveToRightOf(ctx context.Context, tx *database.Tx, id, siblingID int64) (*Result, error) {
	return e.moveBeside(ctx, tx, id, siblingID, true)
}

func (e *Engine) moveBeside(ctx context.Context, tx *database.Tx, id, siblingID int64, right bool) (*Result, error) {
	if id == siblingID {
		return nil, ErrSelfReference
	}
	return e.run(ctx, tx, func(ctx context.Context, tx *database.Tx) (*Result, error) {
		q := tx.DB()
		sib, err := e.load(ctx, q, siblingID)
		if err != nil {
			return nil, err
		}
		node, err := e.lockNode(ctx, tx, id, sib.ParentID)
		if err != nil {
			return nil, err
		}
		locked, err := e.load(ctx, q, siblingID)
		if err != nil {
			return nil, err
		}
		if !movement.SameParent(locked.ParentID, sib.ParentID) {
			return nil, fmt.Errorf("%w: node %d moved while being locked", database.ErrContention, siblingID)
		}
		sib = locked
		if !scope.Equal(node.Scope, sib.Scope, e.schema.ScopeColumns) {
			return nil, ErrScopeMismatch
		}
		if sib.ParentID != nil && *sib.ParentID == node.ID {
			return nil, ErrSelfParent
		}

		// positions are taken as if node had already left its set
		position := sib.Position
		shifted := sameSet(node.Snapshot(), sib.Snapshot()) && node.Position < sib.Position
		switch {
		case right && !shifted:
			position++
		case !right && shifted:
			position--
		}
		return e.move(ctx, tx, id, sib.ParentID, position)
	})
}

// MoveHigher swaps node id with the sibling before it.
func (e *Engine) MoveHigher(ctx context.Context, tx *database.Tx, id int64) (*Result, error) {
	return e.step(ctx, tx, id, -1)
}

// MoveLower swaps node id with the sibling after it.
func (e *Engine) MoveLower(ctx context.Context, tx *database.Tx, id int64) (*Result, error) {
	return e.step(ctx, tx, id, 1)
}

func (e *Engine) step(ctx context.Context, tx *database.Tx, id, delta int64) (*Result, error) {
	return e.run(ctx, tx, func(ctx context.Context, tx *database.Tx) (*Result, error) {
		node, err := e.lockNode(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		// clamping turns a step past either end into a no-op
		return e.move(ctx, tx, id, node.ParentID, max(node.Position+delta, 1))
	})
}
