package tree

import (
	"context"
	"fmt"
	"slices"

	sqldb "github.com/arbor-db/arbor/internal/database/sqlc"
	"github.com/arbor-db/arbor/internal/forest"
	"github.com/arbor-db/arbor/internal/scope"
)

// Find loads one node.
func (e *Engine) Find(ctx context.Context, id int64) (*forest.Node, error) {
	return e.load(ctx, e.db.Reader(), id)
}

// Roots lists the roots of a scope by position.
func (e *Engine) Roots(ctx context.Context, sc scope.Scope) ([]forest.Node, error) {
	if err := scope.Validate(sc, e.schema.ScopeColumns); err != nil {
		return nil, err
	}
	return e.siblingSet(ctx, e.db.Reader(), sc, nil)
}

// Children lists the direct children of id by position.
func (e *Engine) Children(ctx context.Context, id int64) ([]forest.Node, error) {
	q := e.db.Reader()
	n, err := e.load(ctx, q, id)
	if err != nil {
		return nil, err
	}
	return e.siblingSet(ctx, q, n.Scope, &n.ID)
}

// Siblings lists the other members of id's sibling set by position.
func (e *Engine) Siblings(ctx context.Context, id int64) ([]forest.Node, error) {
	q := e.db.Reader()
	n, err := e.load(ctx, q, id)
	if err != nil {
		return nil, err
	}
	set, err := e.siblingSet(ctx, q, n.Scope, n.ParentID)
	if err != nil {
		return nil, err
	}
	return slices.DeleteFunc(set, func(s forest.Node) bool { return s.ID == n.ID }), nil
}

// HigherItem returns the sibling directly before id, or nil for the first.
func (e *Engine) HigherItem(ctx context.Context, id int64) (*forest.Node, error) {
	return e.neighbour(ctx, id, -1)
}

// LowerItem returns the sibling directly after id, or nil for the last.
func (e *Engine) LowerItem(ctx context.Context, id int64) (*forest.Node, error) {
	return e.neighbour(ctx, id, 1)
}

func (e *Engine) neighbour(ctx context.Context, id, delta int64) (*forest.Node, error) {
	q := e.db.Reader()
	n, err := e.load(ctx, q, id)
	if err != nil {
		return nil, err
	}
	where, args := e.build.siblingsWhere(n.Scope, n.ParentID)
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s AND %s = ?",
		e.schema.SelectList(""), e.schema.Table, where, e.schema.PositionColumn)
	rows, err := q.QueryContext(ctx, query, append(args, n.Position+delta)...)
	if err != nil {
		return nil, err
	}
	found, err := e.schema.ScanAll(rows)
	if err != nil || len(found) == 0 {
		return nil, err
	}
	return &found[0], nil
}

// Root returns the root of the tree id belongs to; a root is its own root.
func (e *Engine) Root(ctx context.Context, id int64) (*forest.Node, error) {
	chain, err := e.SelfAndAncestors(ctx, id)
	if err != nil {
		return nil, err
	}
	return &chain[0], nil
}

// Level is the depth of id, read from the cache when the table has one.
func (e *Engine) Level(ctx context.Context, id int64) (int64, error) {
	q := e.db.Reader()
	n, err := e.load(ctx, q, id)
	if err != nil {
		return 0, err
	}
	if e.schema.HasDepthCache() {
		return n.Depth, nil
	}
	ancestors, err := e.strategy.Ancestors(ctx, q, n)
	if err != nil {
		return 0, err
	}
	return int64(len(ancestors)), nil
}

// ChildCount is the number of children of id, read from the cache when the
// table has one.
func (e *Engine) ChildCount(ctx context.Context, id int64) (int64, error) {
	q := e.db.Reader()
	n, err := e.load(ctx, q, id)
	if err != nil {
		return 0, err
	}
	if e.schema.HasChildCountCache() {
		return n.ChildCount, nil
	}
	return e.countSiblings(ctx, q, n, &n.ID, 0)
}

// Ancestors lists the ancestors of id, root first.
func (e *Engine) Ancestors(ctx context.Context, id int64) ([]forest.Node, error) {
	return e.related(ctx, id, e.strategy.Ancestors)
}

// SelfAndAncestors is Ancestors followed by the node itself.
func (e *Engine) SelfAndAncestors(ctx context.Context, id int64) ([]forest.Node, error) {
	return e.related(ctx, id, e.strategy.SelfAndAncestors)
}

// Descendants lists the subtree below id in pre-order.
func (e *Engine) Descendants(ctx context.Context, id int64) ([]forest.Node, error) {
	return e.related(ctx, id, e.strategy.Descendants)
}

// SelfAndDescendants is the node followed by its Descendants.
func (e *Engine) SelfAndDescendants(ctx context.Context, id int64) ([]forest.Node, error) {
	return e.related(ctx, id, e.strategy.SelfAndDescendants)
}

// IsDescendantOf reports whether id lies strictly below other.
func (e *Engine) IsDescendantOf(ctx context.Context, id, other int64) (bool, error) {
	if id == other {
		return false, nil
	}
	ancestors, err := e.Ancestors(ctx, id)
	if err != nil {
		return false, err
	}
	return slices.Contains(forest.IDs(ancestors), other), nil
}

// IsAncestorOf reports whether id lies strictly above other.
func (e *Engine) IsAncestorOf(ctx context.Context, id, other int64) (bool, error) {
	return e.IsDescendantOf(ctx, other, id)
}

func (e *Engine) related(ctx context.Context, id int64, fn func(context.Context, sqldb.DBTX, *forest.Node) ([]forest.Node, error)) ([]forest.Node, error) {
	q := e.db.Reader()
	n, err := e.load(ctx, q, id)
	if err != nil {
		return nil, err
	}
	return fn(ctx, q, n)
}

// siblingSet lists one sibling set ordered by position.
func (e *Engine) siblingSet(ctx context.Context, q sqldb.DBTX, sc scope.Scope, parentID *int64) ([]forest.Node, error) {
	where, args := e.build.siblingsWhere(sc, parentID)
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s ORDER BY %s, %s",
		e.schema.SelectList(""), e.schema.Table, where, e.schema.PositionColumn, e.schema.IDColumn)
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return e.schema.ScanAll(rows)
}
