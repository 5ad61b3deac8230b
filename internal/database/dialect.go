package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	sqldb "github.com/arbor-db/arbor/internal/database/sqlc"
)

// Backend names.
const (
	SQLite   = "sqlite"
	Postgres = "postgres"
)

// ErrNoDialect indicates an unknown backend name.
var ErrNoDialect = errors.New("database: unknown dialect")

// Dialect captures what differs between the supported backends. Statements
// are always written with "?" placeholders and passed through Wrap.
type Dialect interface {
	Name() string
	// Wrap adapts a handle so that "?" placeholders reach the driver in the
	// backend's native form.
	Wrap(db sqldb.DBTX) sqldb.DBTX
	// ForUpdate is the suffix that row-locks the rows of a SELECT.
	ForUpdate() string
	// LockKey takes a transaction-scoped lock on an arbitrary key.
	LockKey(ctx context.Context, db sqldb.DBTX, key string) error
	// PathSeed and PathAppend encode the sort path of a recursive walk so
	// that ordering by the path yields pre-order.
	PathSeed(expr string) string
	PathAppend(path, expr string) string
	// TrailSeed, TrailAppend and TrailContains keep the ids a recursive walk
	// has visited, so that a cyclic parent chain ends the walk.
	TrailSeed(expr string) string
	TrailAppend(trail, expr string) string
	TrailContains(trail, expr string) string
	// IsContention reports whether err is a transient lock or serialization
	// failure worth retrying.
	IsContention(err error) bool
}

// DialectFor returns the dialect of a backend name.
func DialectFor(name string) (Dialect, error) {
	switch name {
	case SQLite:
		return sqliteDialect{}, nil
	case Postgres, "pgx":
		return postgresDialect{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrNoDialect, name)
	}
}

type sqliteDialect struct{}

func (sqliteDialect) Name() string { return SQLite }

func (sqliteDialect) Wrap(db sqldb.DBTX) sqldb.DBTX { return db }

// SQLite has no row locks; transactions begin IMMEDIATE and hold the
// database write lock instead.
func (sqliteDialect) ForUpdate() string { return "" }

func (sqliteDialect) LockKey(context.Context, sqldb.DBTX, string) error { return nil }

func (sqliteDialect) PathSeed(expr string) string {
	return fmt.Sprintf("printf('%%010d', %s)", expr)
}

func (sqliteDialect) PathAppend(path, expr string) string {
	return fmt.Sprintf("%s || printf('%%010d', %s)", path, expr)
}

func (sqliteDialect) TrailSeed(expr string) string {
	return fmt.Sprintf("',' || (%s) || ','", expr)
}

func (sqliteDialect) TrailAppend(trail, expr string) string {
	return fmt.Sprintf("%s || (%s) || ','", trail, expr)
}

func (sqliteDialect) TrailContains(trail, expr string) string {
	return fmt.Sprintf("instr(%s, ',' || (%s) || ',') > 0", trail, expr)
}

func (sqliteDialect) IsContention(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() & 0xff {
	case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
		return true
	}
	return false
}

type postgresDialect struct{}

func (postgresDialect) Name() string { return Postgres }

func (postgresDialect) Wrap(db sqldb.DBTX) sqldb.DBTX {
	if _, ok := db.(rebinder); ok {
		return db
	}
	return rebinder{db: db}
}

func (postgresDialect) ForUpdate() string { return " FOR UPDATE" }

func (postgresDialect) LockKey(ctx context.Context, db sqldb.DBTX, key string) error {
	_, err := db.ExecContext(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", key)
	return err
}

func (postgresDialect) PathSeed(expr string) string {
	return fmt.Sprintf("ARRAY[%s]::bigint[]", expr)
}

func (postgresDialect) PathAppend(path, expr string) string {
	return fmt.Sprintf("%s || (%s)::bigint", path, expr)
}

func (d postgresDialect) TrailSeed(expr string) string { return d.PathSeed(expr) }

func (d postgresDialect) TrailAppend(trail, expr string) string { return d.PathAppend(trail, expr) }

func (postgresDialect) TrailContains(trail, expr string) string {
	return fmt.Sprintf("(%s)::bigint = ANY(%s)", expr, trail)
}

func (postgresDialect) IsContention(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case "40001", "40P01", "55P03":
		return true
	}
	return false
}

// rebinder rewrites "?" placeholders to "$n" before delegating.
type rebinder struct {
	db sqldb.DBTX
}

func (r rebinder) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return r.db.ExecContext(ctx, Rebind(query), args...)
}

func (r rebinder) PrepareContext(ctx context.Context, query string) (*sql.Stmt, error) {
	return r.db.PrepareContext(ctx, Rebind(query))
}

func (r rebinder) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return r.db.QueryContext(ctx, Rebind(query), args...)
}

func (r rebinder) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return r.db.QueryRowContext(ctx, Rebind(query), args...)
}

// Rebind numbers "?" placeholders as "$1", "$2", ... Question marks inside
// single-quoted literals are left alone.
func Rebind(query string) string {
	if !strings.Contains(query, "?") {
		return query
	}
	var (
		b       strings.Builder
		n       int
		inQuote bool
	)
	b.Grow(len(query) + 8)
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == '\'':
			inQuote = !inQuote
			b.WriteByte(c)
		case c == '?' && !inQuote:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
