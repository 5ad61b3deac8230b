package tree

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/arbor-db/arbor/internal/database"
	"github.com/arbor-db/arbor/internal/scope"
)

// verifySets re-reads the sibling sets a write touched and fails with
// ErrCorrupt unless their positions are exactly 1..n and the cached columns
// agree with them. It runs inside the write transaction, so a failure rolls
// the write back.
func (e *Engine) verifySets(ctx context.Context, tx *database.Tx, sc scope.Scope, parents ...*int64) error {
	if !e.verify {
		return nil
	}
	seen := map[string]bool{}
	for _, p := range parents {
		if seen[setKey(p)] {
			continue
		}
		seen[setKey(p)] = true
		if err := e.verifySet(ctx, tx, sc, p); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) verifySet(ctx context.Context, tx *database.Tx, sc scope.Scope, parentID *int64) error {
	s := e.schema
	where, args := e.build.siblingsWhere(sc, parentID)

	depthCols := "0, 0"
	if s.HasDepthCache() {
		depthCols = fmt.Sprintf("MIN(%s), MAX(%s)", s.DepthColumn, s.DepthColumn)
	}
	query := fmt.Sprintf("SELECT COUNT(*), MIN(%s), MAX(%s), COUNT(DISTINCT %s), %s FROM %s WHERE %s",
		s.PositionColumn, s.PositionColumn, s.PositionColumn, depthCols, s.Table, where)

	var (
		count, distinct    int64
		lo, hi, minD, maxD sql.NullInt64
	)
	if err := tx.DB().QueryRowContext(ctx, query, args...).Scan(&count, &lo, &hi, &distinct, &minD, &maxD); err != nil {
		return fmt.Errorf("verify sibling set %s: %w", setKey(parentID), err)
	}
	if count > 0 && (lo.Int64 != 1 || hi.Int64 != count || distinct != count) {
		return fmt.Errorf("%w: sibling set %s has %d rows spanning positions %d..%d (%d distinct)",
			ErrCorrupt, setKey(parentID), count, lo.Int64, hi.Int64, distinct)
	}
	if parentID == nil {
		if s.HasDepthCache() && count > 0 && (minD.Int64 != 0 || maxD.Int64 != 0) {
			return fmt.Errorf("%w: root set has depths %d..%d", ErrCorrupt, minD.Int64, maxD.Int64)
		}
		return nil
	}

	parent, err := e.load(ctx, tx.DB(), *parentID)
	if err != nil {
		return err
	}
	if s.HasChildCountCache() && parent.ChildCount != count {
		return fmt.Errorf("%w: node %d caches %d children, has %d", ErrCorrupt, parent.ID, parent.ChildCount, count)
	}
	if s.HasDepthCache() && count > 0 && (minD.Int64 != parent.Depth+1 || maxD.Int64 != parent.Depth+1) {
		return fmt.Errorf("%w: children of node %d (depth %d) have depths %d..%d",
			ErrCorrupt, parent.ID, parent.Depth, minD.Int64, maxD.Int64)
	}
	return nil
}
