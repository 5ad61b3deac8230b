package traversal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sqldb "github.com/arbor-db/arbor/internal/database/sqlc"
	"github.com/arbor-db/arbor/internal/forest"
	"github.com/arbor-db/arbor/internal/scope"
)

// ErrCycle is returned when a walk reaches a node it has already visited.
var ErrCycle = errors.New("traversal: parent chain contains a cycle")

// Naive follows parent references one query at a time and loads children
// level by level.
type Naive struct {
	schema forest.Schema
}

func NewNaive(schema forest.Schema) *Naive {
	return &Naive{schema: schema}
}

func (s *Naive) Name() string { return NaiveName }

func (s *Naive) Ancestors(ctx context.Context, q sqldb.DBTX, n *forest.Node) ([]forest.Node, error) {
	if !hasParent(n) {
		return nil, nil
	}

	var chain []forest.Node
	seen := map[int64]bool{n.ID: n.ID != 0}
	next := *n.ParentID
	for {
		if seen[next] {
			return nil, fmt.Errorf("%w at node %d", ErrCycle, next)
		}
		seen[next] = true

		parent, err := s.load(ctx, q, next, n.Scope)
		if err != nil {
			return nil, err
		}
		if parent == nil {
			break
		}
		chain = append(chain, *parent)
		if parent.ParentID == nil {
			break
		}
		next = *parent.ParentID
	}

	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}

func (s *Naive) SelfAndAncestors(ctx context.Context, q sqldb.DBTX, n *forest.Node) ([]forest.Node, error) {
	if n == nil || n.Destroyed {
		return nil, nil
	}
	ancestors, err := s.Ancestors(ctx, q, n)
	if err != nil {
		return nil, err
	}
	return withSelf(n, ancestors, false), nil
}

func (s *Naive) Descendants(ctx context.Context, q sqldb.DBTX, n *forest.Node) ([]forest.Node, error) {
	if !n.Persisted() {
		return nil, nil
	}
	var out []forest.Node
	seen := map[int64]bool{n.ID: true}
	if err := s.collect(ctx, q, n.ID, n.Scope, seen, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Naive) SelfAndDescendants(ctx context.Context, q sqldb.DBTX, n *forest.Node) ([]forest.Node, error) {
	if n == nil || n.Destroyed {
		return nil, nil
	}
	descendants, err := s.Descendants(ctx, q, n)
	if err != nil {
		return nil, err
	}
	return withSelf(n, descendants, true), nil
}

func (s *Naive) collect(ctx context.Context, q sqldb.DBTX, parentID int64, sc scope.Scope, seen map[int64]bool, out *[]forest.Node) error {
	children, err := s.children(ctx, q, parentID, sc)
	if err != nil {
		return err
	}
	for _, child := range children {
		if seen[child.ID] {
			return fmt.Errorf("%w at node %d", ErrCycle, child.ID)
		}
		seen[child.ID] = true
		*out = append(*out, child)
		if err := s.collect(ctx, q, child.ID, sc, seen, out); err != nil {
			return err
		}
	}
	return nil
}

func (s *Naive) load(ctx context.Context, q sqldb.DBTX, id int64, sc scope.Scope) (*forest.Node, error) {
	where, args := s.scoped(sc, s.schema.IDColumn+" = ?", id)
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s", s.schema.SelectList(""), s.schema.Table, where)

	n, err := s.schema.Scan(q.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &n, nil
}

func (s *Naive) children(ctx context.Context, q sqldb.DBTX, parentID int64, sc scope.Scope) ([]forest.Node, error) {
	where, args := s.scoped(sc, s.schema.ParentColumn+" = ?", parentID)
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s ORDER BY %s, %s",
		s.schema.SelectList(""), s.schema.Table, where, s.schema.PositionColumn, s.schema.IDColumn)

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return s.schema.ScanAll(rows)
}

func (s *Naive) scoped(sc scope.Scope, cond string, arg any) (string, []any) {
	args := []any{arg}
	pred, scopeArgs := scope.Predicate(sc, s.schema.ScopeColumns, "")
	if pred == "" {
		return cond, args
	}
	return cond + " AND " + pred, append(args, scopeArgs...)
}
