package tree

import (
	"context"
	"fmt"
	"slices"

	"github.com/arbor-db/arbor/internal/database"
	"github.com/arbor-db/arbor/internal/forest"
	"github.com/arbor-db/arbor/internal/movement"
	"github.com/arbor-db/arbor/internal/scope"
)

// CreateRequest describes a node to insert.
type CreateRequest struct {
	// ParentID is nil for a new root.
	ParentID *int64
	// Position is the requested 1-based rank; zero appends.
	Position int64
	// Scope may be left nil for children, which inherit their parent's.
	Scope scope.Scope
	// Fields are payload columns written with the row.
	Fields map[string]any
}

// Create inserts a node. tx is nil unless the call joins an open transaction.
func (e *Engine) Create(ctx context.Context, tx *database.Tx, req CreateRequest) (*Result, error) {
	return e.run(ctx, tx, func(ctx context.Context, tx *database.Tx) (*Result, error) {
		return e.create(ctx, tx, req)
	})
}

func (e *Engine) create(ctx context.Context, tx *database.Tx, req CreateRequest) (*Result, error) {
	q := tx.DB()
	sc := req.Scope

	var parent *forest.Node
	if req.ParentID != nil {
		p, err := e.load(ctx, q, *req.ParentID)
		if err != nil {
			return nil, err
		}
		if sc == nil {
			sc = p.Scope
		} else if !scope.Equal(sc, p.Scope, e.schema.ScopeColumns) {
			return nil, ErrScopeMismatch
		}
		parent = p
	}
	if sc == nil {
		sc = scope.Scope{}
	}
	if err := scope.Validate(sc, e.schema.ScopeColumns); err != nil {
		return nil, err
	}

	if err := e.lockSiblings(ctx, tx, sc, req.ParentID); err != nil {
		return nil, err
	}
	if parent != nil {
		// re-read under the lock; the parent may have moved or gone
		p, err := e.load(ctx, q, parent.ID)
		if err != nil {
			return nil, err
		}
		parent = p
	}

	scoped := &forest.Node{Scope: sc}
	count, err := e.countSiblings(ctx, q, scoped, req.ParentID, 0)
	if err != nil {
		return nil, err
	}
	depth, err := e.parentDepth(ctx, q, parent)
	if err != nil {
		return nil, err
	}

	to := movement.Target(nil, req.ParentID, req.Position, count, depth)
	tr := movement.NewTransition(nil, to)

	if to.Position <= count {
		if err := e.exec(ctx, tx, e.build.openGap(sc, to.ParentID, to.Position)); err != nil {
			return nil, fmt.Errorf("open gap: %w", err)
		}
	}

	ins, err := e.build.insert(sc, to, req.Fields)
	if err != nil {
		return nil, err
	}
	var id int64
	if err := q.QueryRowContext(ctx, ins.sql, ins.args...).Scan(&id); err != nil {
		return nil, fmt.Errorf("insert node: %w", err)
	}

	if req.ParentID != nil {
		if err := e.adjustChildCounts(ctx, tx, map[int64]int64{*req.ParentID: 1}); err != nil {
			return nil, err
		}
	}

	if err := e.verifySets(ctx, tx, sc, to.ParentID); err != nil {
		return nil, err
	}

	node, err := e.load(ctx, q, id)
	if err != nil {
		return nil, err
	}
	return &Result{Node: *node, Kind: tr.Kind(), Transition: tr}, nil
}

// Move places node id under parentID at position. A nil parentID makes it a
// root. Position zero keeps the current rank when the parent is unchanged
// and appends otherwise; other values are clamped to the sibling set.
func (e *Engine) Move(ctx context.Context, tx *database.Tx, id int64, parentID *int64, position int64) (*Result, error) {
	if parentID != nil && *parentID == id {
		return nil, ErrSelfParent
	}

	return e.run(ctx, tx, func(ctx context.Context, tx *database.Tx) (*Result, error) {
		return e.move(ctx, tx, id, parentID, position)
	})
}

func (e *Engine) move(ctx context.Context, tx *database.Tx, id int64, parentID *int64, position int64) (*Result, error) {
	q := tx.DB()

	node, err := e.lockNode(ctx, tx, id, parentID)
	if err != nil {
		return nil, err
	}

	var target *forest.Node
	if parentID != nil {
		target, err = e.validateTarget(ctx, tx, node, *parentID)
		if err != nil {
			return nil, err
		}
	}

	count, err := e.countSiblings(ctx, q, node, parentID, node.ID)
	if err != nil {
		return nil, err
	}
	depth, err := e.parentDepth(ctx, q, target)
	if err != nil {
		return nil, err
	}

	from := node.Snapshot()
	if !e.schema.HasDepthCache() {
		if from.Depth, err = e.depthOf(ctx, q, node); err != nil {
			return nil, err
		}
	}
	to := movement.Target(from, parentID, position, count, depth)
	tr := movement.NewTransition(from, to)

	switch tr.Kind() {
	case movement.NoOp:
		return &Result{Node: *node, Kind: movement.NoOp, Transition: tr}, nil

	case movement.Reorder:
		if err := e.exec(ctx, tx, e.build.reorder(node, tr)); err != nil {
			return nil, fmt.Errorf("reorder: %w", err)
		}
		if err := e.verifySets(ctx, tx, node.Scope, from.ParentID); err != nil {
			return nil, err
		}

	case movement.Move:
		// the subtree stays locked until commit, so no row can join it
		// between the walk and the depth shift
		var subtree []forest.Node
		if delta := tr.DepthDelta(); delta != 0 && e.schema.HasDepthCache() {
			subtree, err = e.lockStable(ctx, tx, func() ([]forest.Node, error) {
				return e.strategy.Descendants(ctx, q, node)
			})
			if err != nil {
				return nil, err
			}
		}

		if err := e.exec(ctx, tx, e.build.move(node, tr)); err != nil {
			return nil, fmt.Errorf("move: %w", err)
		}
		if err := e.cascadeDepth(ctx, tx, subtree, tr.DepthDelta()); err != nil {
			return nil, err
		}

		deltas := map[int64]int64{}
		if from.ParentID != nil {
			deltas[*from.ParentID]--
		}
		if to.ParentID != nil {
			deltas[*to.ParentID]++
		}
		if err := e.adjustChildCounts(ctx, tx, deltas); err != nil {
			return nil, err
		}
		if err := e.verifySets(ctx, tx, node.Scope, from.ParentID, to.ParentID); err != nil {
			return nil, err
		}
	}

	moved, err := e.load(ctx, q, node.ID)
	if err != nil {
		return nil, err
	}
	return &Result{Node: *moved, Kind: tr.Kind(), Transition: tr}, nil
}

// validateTarget checks that node may become a child of parentID, with the
// target's ancestor chain locked so that no concurrent move can close a
// cycle behind the check.
func (e *Engine) validateTarget(ctx context.Context, tx *database.Tx, node *forest.Node, parentID int64) (*forest.Node, error) {
	q := tx.DB()
	target, err := e.load(ctx, q, parentID)
	if err != nil {
		return nil, err
	}
	if !scope.Equal(node.Scope, target.Scope, e.schema.ScopeColumns) {
		return nil, ErrScopeMismatch
	}

	chain, err := e.lockStable(ctx, tx, func() ([]forest.Node, error) {
		return e.strategy.SelfAndAncestors(ctx, q, target)
	})
	if err != nil {
		return nil, err
	}
	if slices.Contains(forest.IDs(chain), node.ID) {
		return nil, ErrCircularReference
	}
	return target, nil
}

// Destroy removes node id together with its whole subtree.
func (e *Engine) Destroy(ctx context.Context, tx *database.Tx, id int64) (*Result, error) {
	return e.run(ctx, tx, func(ctx context.Context, tx *database.Tx) (*Result, error) {
		return e.destroy(ctx, tx, id)
	})
}

func (e *Engine) destroy(ctx context.Context, tx *database.Tx, id int64) (*Result, error) {
	q := tx.DB()

	node, err := e.lockNode(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	subtree, err := e.lockStable(ctx, tx, func() ([]forest.Node, error) {
		return e.strategy.SelfAndDescendants(ctx, q, node)
	})
	if err != nil {
		return nil, err
	}

	ids := forest.IDs(subtree)
	slices.Reverse(ids)
	if err := e.exec(ctx, tx, e.build.deleteRows(ids)...); err != nil {
		return nil, fmt.Errorf("delete subtree: %w", err)
	}
	if err := e.exec(ctx, tx, e.build.closeGap(node.Scope, node.ParentID, node.Position)); err != nil {
		return nil, fmt.Errorf("close gap: %w", err)
	}
	if node.ParentID != nil {
		if err := e.adjustChildCounts(ctx, tx, map[int64]int64{*node.ParentID: -1}); err != nil {
			return nil, err
		}
	}
	if err := e.verifySets(ctx, tx, node.Scope, node.ParentID); err != nil {
		return nil, err
	}

	from := node.Snapshot()
	gone := *node
	gone.Destroyed = true
	return &Result{
		Node:       gone,
		Kind:       movement.Destroy,
		Transition: movement.NewTransition(from, nil),
		Removed:    len(ids),
	}, nil
}
