package traversal

import (
	"context"
	"fmt"
	"strings"

	"github.com/arbor-db/arbor/internal/database"
	sqldb "github.com/arbor-db/arbor/internal/database/sqlc"
	"github.com/arbor-db/arbor/internal/forest"
	"github.com/arbor-db/arbor/internal/scope"
)

// Direction selects which way a recursive walk follows parent references.
type Direction int

const (
	Down Direction = iota
	Up
)

// Condition is a SQL fragment over the row alias "n" with its arguments.
type Condition struct {
	SQL  string
	Args []any
}

// Query customizes a recursive walk.
type Query struct {
	Direction Direction
	// Seed selects the rows the walk starts from.
	Seed Condition
	// Joins are extra conditions every row reached by recursion must meet.
	// A row that fails them is dropped together with everything beyond it.
	Joins []Condition
	// Order is an integer expression over "n" ordering siblings in a
	// downward walk. Defaults to the position column.
	Order string
	// Scope restricts every row of the walk.
	Scope scope.Scope
}

// QueryOption adjusts a Query.
type QueryOption func(*Query)

// WithSeed replaces the starting rows of the walk.
func WithSeed(sql string, args ...any) QueryOption {
	return func(q *Query) { q.Seed = Condition{SQL: sql, Args: args} }
}

// WithJoin adds a condition on recursively reached rows.
func WithJoin(sql string, args ...any) QueryOption {
	return func(q *Query) { q.Joins = append(q.Joins, Condition{SQL: sql, Args: args}) }
}

// WithOrder sets the sibling order expression.
func WithOrder(expr string) QueryOption {
	return func(q *Query) { q.Order = expr }
}

// Recursive answers traversal queries with one WITH RECURSIVE statement.
type Recursive struct {
	schema  forest.Schema
	dialect database.Dialect
}

func NewRecursive(schema forest.Schema, dialect database.Dialect) *Recursive {
	if dialect == nil {
		dialect, _ = database.DialectFor(database.SQLite)
	}
	return &Recursive{schema: schema, dialect: dialect}
}

func (s *Recursive) Name() string { return RecursiveName }

func (s *Recursive) Ancestors(ctx context.Context, q sqldb.DBTX, n *forest.Node) ([]forest.Node, error) {
	if !hasParent(n) {
		return nil, nil
	}
	return s.Walk(ctx, q, Query{
		Direction: Up,
		Seed:      Condition{SQL: "n." + s.schema.IDColumn + " = ?", Args: []any{*n.ParentID}},
		Scope:     n.Scope,
	})
}

func (s *Recursive) SelfAndAncestors(ctx context.Context, q sqldb.DBTX, n *forest.Node) ([]forest.Node, error) {
	if n == nil || n.Destroyed {
		return nil, nil
	}
	ancestors, err := s.Ancestors(ctx, q, n)
	if err != nil {
		return nil, err
	}
	return withSelf(n, ancestors, false), nil
}

func (s *Recursive) Descendants(ctx context.Context, q sqldb.DBTX, n *forest.Node) ([]forest.Node, error) {
	return s.DescendantsWhere(ctx, q, n)
}

// DescendantsWhere is Descendants with a customized walk, for example a
// join filter pruning branches or a different sibling order.
func (s *Recursive) DescendantsWhere(ctx context.Context, q sqldb.DBTX, n *forest.Node, opts ...QueryOption) ([]forest.Node, error) {
	if !n.Persisted() {
		return nil, nil
	}
	query := Query{
		Direction: Down,
		Seed:      Condition{SQL: "n." + s.schema.ParentColumn + " = ?", Args: []any{n.ID}},
		Scope:     n.Scope,
	}
	return s.Walk(ctx, q, query, opts...)
}

func (s *Recursive) SelfAndDescendants(ctx context.Context, q sqldb.DBTX, n *forest.Node) ([]forest.Node, error) {
	if n == nil || n.Destroyed {
		return nil, nil
	}
	descendants, err := s.Descendants(ctx, q, n)
	if err != nil {
		return nil, err
	}
	return withSelf(n, descendants, true), nil
}

// Walk runs a customized recursive query. Downward walks come back in
// pre-order, upward walks root first.
func (s *Recursive) Walk(ctx context.Context, q sqldb.DBTX, query Query, opts ...QueryOption) ([]forest.Node, error) {
	for _, opt := range opts {
		opt(&query)
	}
	stmt, args, err := s.Build(query)
	if err != nil {
		return nil, err
	}
	rows, err := q.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("recursive walk: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var out []forest.Node
	for rows.Next() {
		var cycle int64
		n, err := s.schema.Scan(rows, &cycle)
		if err != nil {
			return nil, err
		}
		if cycle != 0 {
			return nil, fmt.Errorf("%w at node %d", ErrCycle, n.ID)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Build renders the statement and arguments of a walk. Every row carries the
// trail of ids walked to reach it; a row whose id is already on its trail is
// returned with walk_cycle set and is not expanded further.
func (s *Recursive) Build(query Query) (string, []any, error) {
	if strings.TrimSpace(query.Seed.SQL) == "" {
		return "", nil, fmt.Errorf("recursive walk requires a seed condition")
	}

	sc := s.schema
	order := query.Order
	if order == "" {
		order = "n." + sc.PositionColumn
	}

	var (
		seedKey, stepKey, finalOrder string
		join                         string
	)
	switch query.Direction {
	case Down:
		seedKey = s.dialect.PathSeed(order)
		stepKey = s.dialect.PathAppend("w.walk_key", order)
		join = fmt.Sprintf("n.%s = w.%s", sc.ParentColumn, sc.IDColumn)
		finalOrder = "walk_key"
	case Up:
		seedKey = "0"
		stepKey = "w.walk_level + 1"
		join = fmt.Sprintf("n.%s = w.%s", sc.IDColumn, sc.ParentColumn)
		finalOrder = "walk_key DESC"
	default:
		return "", nil, fmt.Errorf("unknown walk direction %d", query.Direction)
	}

	scopeSQL, scopeArgs := scope.Predicate(query.Scope, sc.ScopeColumns, "n")

	var args []any
	seedWhere := []string{"(" + query.Seed.SQL + ")"}
	args = append(args, query.Seed.Args...)
	if scopeSQL != "" {
		seedWhere = append(seedWhere, scopeSQL)
		args = append(args, scopeArgs...)
	}

	stepWhere := []string{"w.walk_cycle = 0"}
	for _, c := range query.Joins {
		stepWhere = append(stepWhere, "("+c.SQL+")")
		args = append(args, c.Args...)
	}
	if scopeSQL != "" {
		stepWhere = append(stepWhere, scopeSQL)
		args = append(args, scopeArgs...)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "WITH RECURSIVE tree_walk AS (\n")
	idExpr := "n." + sc.IDColumn
	fmt.Fprintf(&b, "  SELECT %s, %s AS walk_key, 0 AS walk_level, %s AS walk_ids, 0 AS walk_cycle\n",
		s.aliased(), seedKey, s.dialect.TrailSeed(idExpr))
	fmt.Fprintf(&b, "  FROM %s n\n  WHERE %s\n", sc.Table, strings.Join(seedWhere, " AND "))
	fmt.Fprintf(&b, "  UNION ALL\n")
	fmt.Fprintf(&b, "  SELECT %s, %s, w.walk_level + 1, %s, CASE WHEN %s THEN 1 ELSE 0 END\n",
		s.aliased(), stepKey, s.dialect.TrailAppend("w.walk_ids", idExpr), s.dialect.TrailContains("w.walk_ids", idExpr))
	fmt.Fprintf(&b, "  FROM %s n\n  JOIN tree_walk w ON %s\n", sc.Table, join)
	fmt.Fprintf(&b, "  WHERE %s\n)\n", strings.Join(stepWhere, " AND "))
	fmt.Fprintf(&b, "SELECT %s, walk_cycle FROM tree_walk ORDER BY walk_cycle DESC, %s", sc.SelectList(""), finalOrder)
	return b.String(), args, nil
}

func (s *Recursive) aliased() string {
	cols := s.schema.Columns()
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = "n." + c + " AS " + c
	}
	return strings.Join(parts, ", ")
}
