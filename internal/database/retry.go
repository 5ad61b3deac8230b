package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog"

	sqldb "github.com/arbor-db/arbor/internal/database/sqlc"
)

const (
	DefaultMaxAttempts = 10
	DefaultBaseDelay   = 10 * time.Millisecond
)

// ErrContention can be returned (wrapped) by transaction bodies to request a
// retry just like a backend lock conflict would.
var ErrContention = errors.New("database: contention")

// ErrRetriesExhausted matches every *RetryError.
var ErrRetriesExhausted = errors.New("database: retries exhausted")

// RetryError reports that a transaction kept failing with contention.
type RetryError struct {
	Attempts int
	Err      error
}

func (e *RetryError) Error() string {
	return fmt.Sprintf("transaction failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *RetryError) Unwrap() error { return e.Err }

func (e *RetryError) Is(target error) bool { return target == ErrRetriesExhausted }

// Tx is the scope of one transaction attempt. Passing it to Retrier.Do marks
// the call as nested so no new transaction or retry loop is started.
type Tx struct {
	tx      *sql.Tx
	db      sqldb.DBTX
	dialect Dialect
	attempt int
}

// DB returns the transaction handle with placeholder rewriting applied.
func (t *Tx) DB() sqldb.DBTX { return t.db }

// Dialect returns the backend dialect of the transaction.
func (t *Tx) Dialect() Dialect { return t.dialect }

// Attempt is the 1-based attempt number the scope belongs to.
func (t *Tx) Attempt() int { return t.attempt }

// Queries returns the sqlc queries bound to the transaction.
func (t *Tx) Queries() *sqldb.Queries { return sqldb.New(t.db) }

// Retrier runs units of work in a transaction and retries them on
// contention with randomized, linearly growing backoff.
type Retrier struct {
	db          *Context
	maxAttempts int
	baseDelay   time.Duration
	log         zerolog.Logger
	sleep       func(context.Context, time.Duration) error
	jitter      func() float64
}

// RetryOption configures a Retrier.
type RetryOption func(*Retrier)

func WithMaxAttempts(n int) RetryOption {
	return func(r *Retrier) {
		if n > 0 {
			r.maxAttempts = n
		}
	}
}

func WithBaseDelay(d time.Duration) RetryOption {
	return func(r *Retrier) {
		if d >= 0 {
			r.baseDelay = d
		}
	}
}

func WithRetryLogger(l zerolog.Logger) RetryOption {
	return func(r *Retrier) { r.log = l }
}

// WithSleeper replaces the backoff sleep, mainly for tests.
func WithSleeper(sleep func(context.Context, time.Duration) error) RetryOption {
	return func(r *Retrier) { r.sleep = sleep }
}

// NewRetrier builds a retrier over a database context.
func NewRetrier(dbCtx *Context, opts ...RetryOption) *Retrier {
	r := &Retrier{
		db:          dbCtx,
		maxAttempts: DefaultMaxAttempts,
		baseDelay:   DefaultBaseDelay,
		log:         zerolog.Nop(),
		sleep:       sleepContext,
		jitter:      rand.Float64,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// MaxAttempts returns the configured attempt limit.
func (r *Retrier) MaxAttempts() int { return r.maxAttempts }

// Do runs fn inside a transaction. When outer is non-nil fn runs directly in
// that scope and retries are left to whoever opened it. Otherwise a new
// transaction is started and fn is retried (with a fresh transaction) while
// it fails with contention, up to the attempt limit.
func (r *Retrier) Do(ctx context.Context, outer *Tx, fn func(context.Context, *Tx) error) error {
	if outer != nil {
		return fn(ctx, outer)
	}
	if r.db == nil || r.db.DB == nil {
		return fmt.Errorf("retrier: missing database context")
	}

	var lastErr error
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		err := r.attempt(ctx, attempt, fn)
		if err == nil {
			return nil
		}
		if !r.IsContention(err) {
			return err
		}
		lastErr = err
		if attempt == r.maxAttempts {
			break
		}

		delay := r.backoff(attempt)
		r.log.Debug().
			Err(err).
			Int("attempt", attempt).
			Dur("backoff", delay).
			Msg("transaction contention, retrying")
		if err := r.sleep(ctx, delay); err != nil {
			return err
		}
	}

	r.log.Warn().
		Err(lastErr).
		Int("attempts", r.maxAttempts).
		Msg("transaction retries exhausted")
	return &RetryError{Attempts: r.maxAttempts, Err: lastErr}
}

// IsContention reports whether err should trigger a retry.
func (r *Retrier) IsContention(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrContention) {
		return true
	}
	if r.db != nil && r.db.Dialect != nil {
		return r.db.Dialect.IsContention(err)
	}
	return false
}

func (r *Retrier) attempt(ctx context.Context, attempt int, fn func(context.Context, *Tx) error) error {
	tx, err := r.db.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	dialect := r.db.Dialect
	if dialect == nil {
		dialect = sqliteDialect{}
	}
	scope := &Tx{tx: tx, db: dialect.Wrap(tx), dialect: dialect, attempt: attempt}

	if err := fn(ctx, scope); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			r.log.Error().Err(rbErr).Msg("rollback failed")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *Retrier) backoff(attempt int) time.Duration {
	return time.Duration(r.jitter() * float64(attempt) * float64(r.baseDelay))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
