package tree

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strconv"

	"github.com/arbor-db/arbor/internal/database"
	"github.com/arbor-db/arbor/internal/forest"
	"github.com/arbor-db/arbor/internal/movement"
	"github.com/arbor-db/arbor/internal/scope"
)

// maxLockRounds bounds how often a lock set is widened because the rows it
// protects changed before the locks were granted.
const maxLockRounds = 8

func setKey(parentID *int64) string {
	if parentID == nil {
		return "root"
	}
	return strconv.FormatInt(*parentID, 10)
}

// lockSiblings serializes writers of one sibling set. It must run before the
// set is counted or its positions are read. The advisory key covers sets
// that have no rows yet; the row locks cover the parent and the members.
func (e *Engine) lockSiblings(ctx context.Context, tx *database.Tx, sc scope.Scope, parentID *int64) error {
	d := tx.Dialect()
	key := scope.GetScopeStorageKey(e.schema.Table, sc, e.schema.ScopeColumns) + "/" + setKey(parentID)
	if err := d.LockKey(ctx, tx.DB(), key); err != nil {
		return fmt.Errorf("lock sibling set %s: %w", key, err)
	}

	if parentID != nil {
		if err := e.lockRows(ctx, tx, []int64{*parentID}); err != nil {
			return err
		}
	}

	where, args := e.build.siblingsWhere(sc, parentID)
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s ORDER BY %s%s",
		e.schema.IDColumn, e.schema.Table, where, e.schema.IDColumn, d.ForUpdate())
	return drain(ctx, tx, query, args...)
}

// lockSets locks several sibling sets in a fixed order: roots first, then
// ascending parent id.
func (e *Engine) lockSets(ctx context.Context, tx *database.Tx, sc scope.Scope, parents []*int64, held map[string]bool) error {
	pending := make([]*int64, 0, len(parents))
	for _, p := range parents {
		if held[setKey(p)] {
			continue
		}
		held[setKey(p)] = true
		pending = append(pending, p)
	}
	sort.Slice(pending, func(i, j int) bool {
		a, b := pending[i], pending[j]
		if a == nil || b == nil {
			return a == nil && b != nil
		}
		return *a < *b
	})
	for _, p := range pending {
		if err := e.lockSiblings(ctx, tx, sc, p); err != nil {
			return err
		}
	}
	return nil
}

// lockNode locks the sibling set of node id plus the extra sets and returns
// the node as read under those locks.
func (e *Engine) lockNode(ctx context.Context, tx *database.Tx, id int64, extra ...*int64) (*forest.Node, error) {
	held := map[string]bool{}
	for round := 0; round < maxLockRounds; round++ {
		node, err := e.load(ctx, tx.DB(), id)
		if err != nil {
			return nil, err
		}
		sets := append([]*int64{node.ParentID}, extra...)
		covered := true
		for _, p := range sets {
			if !held[setKey(p)] {
				covered = false
				break
			}
		}
		if covered {
			return node, nil
		}
		if err := e.lockSets(ctx, tx, node.Scope, sets, held); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: node %d kept changing parent", database.ErrContention, id)
}

// lockStable row-locks the nodes returned by walk until a walk run under the
// locks returns nothing new. walk is a subtree or ancestor chain query.
func (e *Engine) lockStable(ctx context.Context, tx *database.Tx, walk func() ([]forest.Node, error)) ([]forest.Node, error) {
	var held []int64
	for round := 0; round < maxLockRounds; round++ {
		nodes, err := walk()
		if err != nil {
			return nil, err
		}
		ids := forest.IDs(nodes)
		var fresh []int64
		for _, id := range ids {
			if !slices.Contains(held, id) {
				fresh = append(fresh, id)
			}
		}
		if len(fresh) == 0 {
			return nodes, nil
		}
		if err := e.lockRows(ctx, tx, fresh); err != nil {
			return nil, err
		}
		held = append(held, fresh...)
		if tx.Dialect().ForUpdate() == "" {
			// the whole database is already locked
			return nodes, nil
		}
	}
	return nil, fmt.Errorf("%w: related rows kept changing", database.ErrContention)
}

// lockRows takes row locks on ids in ascending order.
func (e *Engine) lockRows(ctx context.Context, tx *database.Tx, ids []int64) error {
	suffix := tx.Dialect().ForUpdate()
	if suffix == "" || len(ids) == 0 {
		return nil
	}
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	for _, chunk := range chunks(sorted) {
		query := fmt.Sprintf("SELECT %s FROM %s WHERE %s IN (%s) ORDER BY %s%s",
			e.schema.IDColumn, e.schema.Table, e.schema.IDColumn, placeholders(len(chunk)), e.schema.IDColumn, suffix)
		if err := drain(ctx, tx, query, idArgs(chunk)...); err != nil {
			return err
		}
	}
	return nil
}

func drain(ctx context.Context, tx *database.Tx, query string, args ...any) error {
	rows, err := tx.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer func() {
		_ = rows.Close()
	}()
	for rows.Next() {
	}
	return rows.Err()
}

// sameSet reports whether two snapshots share a sibling set.
func sameSet(a, b *movement.Position) bool {
	return a != nil && b != nil && movement.SameParent(a.ParentID, b.ParentID)
}
