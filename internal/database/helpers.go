package database

import (
	"database/sql"
	"time"

	sqldb "github.com/arbor-db/arbor/internal/database/sqlc"
)

func optionalInt64Ptr(ni sql.NullInt64) *int64 {
	if !ni.Valid {
		return nil
	}
	v := ni.Int64
	return &v
}

func optionalTime(nt sql.NullTime) time.Time {
	if !nt.Valid {
		return time.Time{}
	}
	return nt.Time
}

func queriesFromContext(ctx *Context) *sqldb.Queries {
	if ctx == nil {
		return nil
	}
	if ctx.Queries != nil {
		return ctx.Queries
	}
	if ctx.DB == nil {
		return nil
	}
	return sqldb.New(ctx.Reader())
}

// queriesFor prefers the transaction scope when one is given.
func queriesFor(ctx *Context, tx *Tx) *sqldb.Queries {
	if tx != nil {
		return tx.Queries()
	}
	return queriesFromContext(ctx)
}
