// Package database provides database connection management and operations for arbor.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"

	"github.com/arbor-db/arbor/db/migrations"
	"github.com/arbor-db/arbor/internal/config"
	sqldb "github.com/arbor-db/arbor/internal/database/sqlc"

	// Import the pgx driver for database/sql
	_ "github.com/jackc/pgx/v5/stdlib"
	// Import SQLite driver for database/sql
	_ "modernc.org/sqlite"
)

const (
	busyTimeoutMillis = 5000
	migrationLockWait = 30 * time.Second
)

// Context holds the database connection and query interface.
type Context struct {
	DB      *sql.DB
	Queries *sqldb.Queries
	Dialect Dialect
}

// Reader returns the connection pool with placeholder rewriting applied, for
// reads outside any transaction.
func (c *Context) Reader() sqldb.DBTX {
	if c.Dialect == nil {
		return c.DB
	}
	return c.Dialect.Wrap(c.DB)
}

// Open connects to the backend described by settings and applies migrations.
func Open(ctx context.Context, settings config.Settings) (*Context, error) {
	switch settings.Driver {
	case "", config.DriverSQLite:
		return CreateDatabase(settings.DBPath)
	case config.DriverPostgres:
		return OpenPostgres(ctx, settings.DSN)
	default:
		return nil, fmt.Errorf("%w: %s", ErrNoDialect, settings.Driver)
	}
}

// CreateDatabase creates and initializes a SQLite database with migrations.
// ":memory:" yields a private in-memory database.
func CreateDatabase(dbPath string) (*Context, error) {
	path := dbPath
	if path == "" {
		path = config.GetDBPath()
	}

	useMemory := path == ":memory:"

	if !useMemory {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	var dsn string
	if useMemory {
		dsn = fmt.Sprintf(
			"file:arbor-%s?mode=memory&cache=shared&_pragma=foreign_keys(ON)&_pragma=busy_timeout(%d)&_txlock=immediate",
			uuid.NewString(), busyTimeoutMillis,
		)
	} else {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve database path: %w", err)
		}
		path = absPath
		dsn = fmt.Sprintf(
			"file:%s?_pragma=foreign_keys(ON)&_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_txlock=immediate",
			filepath.ToSlash(absPath), busyTimeoutMillis,
		)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if useMemory {
		// every connection to a named memory database shares one write lock;
		// a single connection keeps the pool from deadlocking on it
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrateFn := func() error { return runSQLiteMigrations(db) }
	if !useMemory {
		migrateFn = func() error {
			return withFileLock(path+".lock", func() error { return runSQLiteMigrations(db) })
		}
	}
	if err := migrateFn(); err != nil {
		_ = db.Close()
		return nil, err
	}

	dialect := sqliteDialect{}
	return &Context{
		DB:      db,
		Queries: sqldb.New(dialect.Wrap(db)),
		Dialect: dialect,
	}, nil
}

// OpenPostgres connects to a Postgres database through pgx and applies
// migrations.
func OpenPostgres(ctx context.Context, dsn string) (*Context, error) {
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := runPostgresMigrations(ctx, dsn); err != nil {
		_ = db.Close()
		return nil, err
	}

	dialect := postgresDialect{}
	return &Context{
		DB:      db,
		Queries: sqldb.New(dialect.Wrap(db)),
		Dialect: dialect,
	}, nil
}

// CloseDatabase closes the database connection.
func CloseDatabase(ctx *Context) error {
	if ctx == nil || ctx.DB == nil {
		return nil
	}
	return ctx.DB.Close()
}

// ClearDatabase removes all data from the database.
func ClearDatabase(ctx *Context) error {
	if ctx == nil || ctx.DB == nil {
		return nil
	}

	return NewRetrier(ctx).Do(context.Background(), nil, func(bg context.Context, tx *Tx) error {
		if err := tx.Queries().DeleteAllNodes(bg); err != nil {
			return fmt.Errorf("failed to delete nodes: %w", err)
		}
		return nil
	})
}

func runSQLiteMigrations(db *sql.DB) error {
	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to initialise migrate driver: %w", err)
	}
	return applyMigrations(SQLite, driver)
}

func runPostgresMigrations(ctx context.Context, dsn string) error {
	// golang-migrate pins one connection for its lifetime, so it gets a
	// pool of its own.
	migrationDB, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("failed to open migration connection: %w", err)
	}
	defer func() {
		_ = migrationDB.Close()
	}()
	if err := migrationDB.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	driver, err := migratepgx.WithInstance(migrationDB, &migratepgx.Config{})
	if err != nil {
		return fmt.Errorf("failed to initialise migrate driver: %w", err)
	}
	defer func() {
		_ = driver.Close()
	}()
	return applyMigrations(Postgres, driver)
}

func applyMigrations(backend string, driver migratedb.Driver) error {
	sourceDriver, err := iofs.New(migrations.Files, backend)
	if err != nil {
		return fmt.Errorf("failed to load embedded migrations: %w", err)
	}
	defer func() {
		_ = sourceDriver.Close()
	}()

	migrator, err := migrate.NewWithInstance("iofs", sourceDriver, backend, driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	if err := migrator.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	return nil
}

// withFileLock serializes fn across processes sharing the database file.
func withFileLock(path string, fn func() error) error {
	lock := flock.New(path)
	ctx, cancel := context.WithTimeout(context.Background(), migrationLockWait)
	defer cancel()

	locked, err := lock.TryLockContext(ctx, 50*time.Millisecond)
	if err != nil {
		return fmt.Errorf("failed to acquire migration lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("failed to acquire migration lock %s", path)
	}
	defer func() {
		_ = lock.Unlock()
	}()

	return fn()
}
