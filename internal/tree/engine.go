// Package tree keeps an ordered forest stored in a relational table
// consistent while nodes are created, moved, reordered and destroyed.
//
// Every node row carries a parent reference and a 1-based position among its
// siblings. Within one scope and one parent the positions of the siblings
// are always exactly 1..n. Depth and child counts may be cached in columns of
// their own, in which case the engine keeps them exact as well.
package tree

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/arbor-db/arbor/internal/database"
	sqldb "github.com/arbor-db/arbor/internal/database/sqlc"
	"github.com/arbor-db/arbor/internal/forest"
	"github.com/arbor-db/arbor/internal/movement"
	"github.com/arbor-db/arbor/internal/traversal"
)

// Engine applies movements to one table.
type Engine struct {
	db       *database.Context
	schema   forest.Schema
	build    builder
	strategy traversal.Strategy
	retrier  *database.Retrier
	log      zerolog.Logger
	verify   bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithStrategy selects the traversal strategy used for reads and for the
// subtree walks of writes.
func WithStrategy(s traversal.Strategy) Option {
	return func(e *Engine) { e.strategy = s }
}

// WithRetrier replaces the transaction wrapper.
func WithRetrier(r *database.Retrier) Option {
	return func(e *Engine) { e.retrier = r }
}

func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithVerify re-checks every sibling set a write touched before commit.
func WithVerify(enabled bool) Option {
	return func(e *Engine) { e.verify = enabled }
}

// New builds an engine over the table described by schema.
func New(dbCtx *database.Context, schema forest.Schema, opts ...Option) (*Engine, error) {
	if dbCtx == nil || dbCtx.DB == nil {
		return nil, fmt.Errorf("tree engine: missing database context")
	}
	if err := schema.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		db:     dbCtx,
		schema: schema,
		build:  builder{s: schema},
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.strategy == nil {
		e.strategy = traversal.NewRecursive(schema, dbCtx.Dialect)
	}
	if e.retrier == nil {
		e.retrier = database.NewRetrier(dbCtx, database.WithRetryLogger(e.log))
	}
	return e, nil
}

// Schema returns the table description the engine was built with.
func (e *Engine) Schema() forest.Schema { return e.schema }

// Strategy returns the traversal strategy in use.
func (e *Engine) Strategy() traversal.Strategy { return e.strategy }

// Retrier returns the transaction wrapper, so callers can group several
// engine calls in one transaction.
func (e *Engine) Retrier() *database.Retrier { return e.retrier }

// Result describes an applied (or skipped) write. Transition depths are
// counted from ancestors when the table has no depth column.
type Result struct {
	Node       forest.Node
	Kind       movement.Kind
	Transition movement.Transition
	// Removed counts the rows deleted by a destroy.
	Removed int
}

// load reads one node by id regardless of scope.
func (e *Engine) load(ctx context.Context, q sqldb.DBTX, id int64) (*forest.Node, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ?", e.schema.SelectList(""), e.schema.Table, e.schema.IDColumn)
	n, err := e.schema.Scan(q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
		}
		return nil, err
	}
	return &n, nil
}

// countSiblings returns the size of a sibling set, leaving out exclude.
func (e *Engine) countSiblings(ctx context.Context, q sqldb.DBTX, n *forest.Node, parentID *int64, exclude int64) (int64, error) {
	where, args := e.build.siblingsWhere(n.Scope, parentID)
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s AND %s <> ?", e.schema.Table, where, e.schema.IDColumn)
	var count int64
	if err := q.QueryRowContext(ctx, query, append(args, exclude)...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (e *Engine) exec(ctx context.Context, tx *database.Tx, stmts ...statement) error {
	for _, st := range stmts {
		if _, err := tx.DB().ExecContext(ctx, st.sql, st.args...); err != nil {
			return err
		}
	}
	return nil
}

// parentDepth returns the depth of a parent row, or -1 for no parent.
func (e *Engine) parentDepth(ctx context.Context, q sqldb.DBTX, parent *forest.Node) (int64, error) {
	if parent == nil {
		return -1, nil
	}
	return e.depthOf(ctx, q, parent)
}

// depthOf returns the cached depth of n, or counts its ancestors when the
// table has no depth column.
func (e *Engine) depthOf(ctx context.Context, q sqldb.DBTX, n *forest.Node) (int64, error) {
	if e.schema.HasDepthCache() {
		return n.Depth, nil
	}
	ancestors, err := e.strategy.Ancestors(ctx, q, n)
	if err != nil {
		return 0, err
	}
	return int64(len(ancestors)), nil
}

// run executes fn in a retried transaction, or directly inside tx when the
// caller already holds one, and logs the outcome.
func (e *Engine) run(ctx context.Context, tx *database.Tx, fn func(context.Context, *database.Tx) (*Result, error)) (*Result, error) {
	var result *Result
	err := e.retrier.Do(ctx, tx, func(ctx context.Context, tx *database.Tx) error {
		r, err := fn(ctx, tx)
		result = r
		return err
	})
	if err != nil {
		return nil, err
	}
	e.logResult(uuid.NewString(), result)
	return result, nil
}

func (e *Engine) logResult(op string, r *Result) {
	ev := e.log.Debug().
		Str("op", op).
		Int64("node", r.Node.ID).
		Stringer("kind", r.Kind)
	if from := r.Transition.From; from != nil {
		ev = ev.Stringer("from", from)
	}
	if to := r.Transition.To; to != nil {
		ev = ev.Stringer("to", to)
	}
	ev.Msg("tree write")
}
