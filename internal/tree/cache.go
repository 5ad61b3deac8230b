package tree

import (
	"context"
	"fmt"

	"github.com/arbor-db/arbor/internal/database"
	"github.com/arbor-db/arbor/internal/forest"
)

// cascadeDepth shifts the cached depth of a moved subtree. The moved node
// itself is updated by the move statement.
func (e *Engine) cascadeDepth(ctx context.Context, tx *database.Tx, subtree []forest.Node, delta int64) error {
	if !e.schema.HasDepthCache() || delta == 0 || len(subtree) == 0 {
		return nil
	}
	if err := e.exec(ctx, tx, e.build.shiftDepth(forest.IDs(subtree), delta)...); err != nil {
		return fmt.Errorf("cascade depth: %w", err)
	}
	return nil
}

// adjustChildCounts applies per-parent deltas to the child count column.
func (e *Engine) adjustChildCounts(ctx context.Context, tx *database.Tx, deltas map[int64]int64) error {
	if !e.schema.HasChildCountCache() {
		return nil
	}
	st, ok := e.build.childCounts(deltas)
	if !ok {
		return nil
	}
	if err := e.exec(ctx, tx, st); err != nil {
		return fmt.Errorf("update child counts: %w", err)
	}
	return nil
}
