package sqldb

import (
	"context"
)

const findNodeByID = `SELECT id, tree_id, parent_id, position, depth, child_count, name, created_at, updated_at
FROM nodes
WHERE id = ?`

func (q *Queries) FindNodeByID(ctx context.Context, id int64) (Node, error) {
	row := q.db.QueryRowContext(ctx, findNodeByID, id)
	var i Node
	err := row.Scan(
		&i.ID,
		&i.TreeID,
		&i.ParentID,
		&i.Position,
		&i.Depth,
		&i.ChildCount,
		&i.Name,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const listNodesByTree = `SELECT id, tree_id, parent_id, position, depth, child_count, name, created_at, updated_at
FROM nodes
WHERE tree_id = ?
ORDER BY depth, parent_id, position`

func (q *Queries) ListNodesByTree(ctx context.Context, treeID string) ([]Node, error) {
	rows, err := q.db.QueryContext(ctx, listNodesByTree, treeID)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()
	var items []Node
	for rows.Next() {
		var i Node
		if err := rows.Scan(
			&i.ID,
			&i.TreeID,
			&i.ParentID,
			&i.Position,
			&i.Depth,
			&i.ChildCount,
			&i.Name,
			&i.CreatedAt,
			&i.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const findNodeByName = `SELECT id, tree_id, parent_id, position, depth, child_count, name, created_at, updated_at
FROM nodes
WHERE tree_id = ? AND name = ?
ORDER BY depth, id
LIMIT 1`

type FindNodeByNameParams struct {
	TreeID string
	Name   string
}

func (q *Queries) FindNodeByName(ctx context.Context, arg FindNodeByNameParams) (Node, error) {
	row := q.db.QueryRowContext(ctx, findNodeByName, arg.TreeID, arg.Name)
	var i Node
	err := row.Scan(
		&i.ID,
		&i.TreeID,
		&i.ParentID,
		&i.Position,
		&i.Depth,
		&i.ChildCount,
		&i.Name,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const updateNodeName = `UPDATE nodes
SET name = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ?`

type UpdateNodeNameParams struct {
	Name string
	ID   int64
}

func (q *Queries) UpdateNodeName(ctx context.Context, arg UpdateNodeNameParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateNodeName, arg.Name, arg.ID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const touchNode = `UPDATE nodes
SET updated_at = CURRENT_TIMESTAMP
WHERE id = ?`

func (q *Queries) TouchNode(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, touchNode, id)
	return err
}

const listTreesWithCounts = `SELECT
    tree_id,
    COUNT(*) AS node_count,
    SUM(CASE WHEN parent_id IS NULL THEN 1 ELSE 0 END) AS root_count,
    MAX(depth) AS max_depth
FROM nodes
GROUP BY tree_id
ORDER BY tree_id`

type ListTreesWithCountsRow struct {
	TreeID    string
	NodeCount int64
	RootCount int64
	MaxDepth  int64
}

func (q *Queries) ListTreesWithCounts(ctx context.Context) ([]ListTreesWithCountsRow, error) {
	rows, err := q.db.QueryContext(ctx, listTreesWithCounts)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()
	var items []ListTreesWithCountsRow
	for rows.Next() {
		var i ListTreesWithCountsRow
		if err := rows.Scan(&i.TreeID, &i.NodeCount, &i.RootCount, &i.MaxDepth); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteNodesByTree = `DELETE FROM nodes
WHERE tree_id = ?`

func (q *Queries) DeleteNodesByTree(ctx context.Context, treeID string) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteNodesByTree, treeID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
