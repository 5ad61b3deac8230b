package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sqldb "github.com/arbor-db/arbor/internal/database/sqlc"
)

// NodeRepository reads and updates the payload of the bundled nodes table.
// Structural columns are owned by the tree engine and never written here.
type NodeRepository struct {
	ctx *Context
}

func NewNodeRepository(dbCtx *Context) *NodeRepository {
	return &NodeRepository{ctx: dbCtx}
}

// FindByID returns the node with id, or nil when it does not exist. A non-nil
// tx reads inside that transaction.
func (r *NodeRepository) FindByID(ctx context.Context, tx *Tx, id int64) (*NodeRecord, error) {
	queries := queriesFor(r.ctx, tx)
	if queries == nil {
		return nil, fmt.Errorf("node repository: missing database context")
	}

	row, err := queries.FindNodeByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	record := NodeRecordFromRow(row)
	return &record, nil
}

// FindByName returns the shallowest node of a tree carrying name.
func (r *NodeRepository) FindByName(ctx context.Context, treeID, name string) (*NodeRecord, error) {
	queries := queriesFromContext(r.ctx)
	if queries == nil {
		return nil, fmt.Errorf("node repository: missing database context")
	}

	row, err := queries.FindNodeByName(ctx, sqldb.FindNodeByNameParams{TreeID: treeID, Name: name})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	record := NodeRecordFromRow(row)
	return &record, nil
}

// ListByTree returns every node of a tree keyed by id.
func (r *NodeRepository) ListByTree(ctx context.Context, treeID string) (map[int64]NodeRecord, error) {
	queries := queriesFromContext(r.ctx)
	if queries == nil {
		return nil, fmt.Errorf("node repository: missing database context")
	}

	rows, err := queries.ListNodesByTree(ctx, treeID)
	if err != nil {
		return nil, err
	}

	result := make(map[int64]NodeRecord, len(rows))
	for _, row := range rows {
		result[row.ID] = NodeRecordFromRow(row)
	}
	return result, nil
}

// Rename updates the name of a node.
func (r *NodeRepository) Rename(ctx context.Context, tx *Tx, id int64, name string) error {
	queries := queriesFor(r.ctx, tx)
	if queries == nil {
		return fmt.Errorf("node repository: missing database context")
	}

	affected, err := queries.UpdateNodeName(ctx, sqldb.UpdateNodeNameParams{Name: name, ID: id})
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Touch bumps the updated_at timestamp of a node.
func (r *NodeRepository) Touch(ctx context.Context, tx *Tx, id int64) error {
	queries := queriesFor(r.ctx, tx)
	if queries == nil {
		return fmt.Errorf("node repository: missing database context")
	}
	return queries.TouchNode(ctx, id)
}

// CountTrees summarizes every tree in the table.
func (r *NodeRepository) CountTrees(ctx context.Context) ([]TreeCounts, error) {
	queries := queriesFromContext(r.ctx)
	if queries == nil {
		return nil, fmt.Errorf("node repository: missing database context")
	}

	rows, err := queries.ListTreesWithCounts(ctx)
	if err != nil {
		return nil, err
	}
	return TreeCountsFromRows(rows), nil
}

// DeleteTree removes every node of a tree.
func (r *NodeRepository) DeleteTree(ctx context.Context, tx *Tx, treeID string) (int64, error) {
	queries := queriesFor(r.ctx, tx)
	if queries == nil {
		return 0, fmt.Errorf("node repository: missing database context")
	}
	return queries.DeleteNodesByTree(ctx, treeID)
}
