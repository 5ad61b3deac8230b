package database

import (
	sqldb "github.com/arbor-db/arbor/internal/database/sqlc"
)

// NodeRecordFromRow converts a database node row to a NodeRecord.
func NodeRecordFromRow(row sqldb.Node) NodeRecord {
	return NodeRecord{
		ID:         row.ID,
		TreeID:     row.TreeID,
		ParentID:   optionalInt64Ptr(row.ParentID),
		Position:   row.Position,
		Depth:      row.Depth,
		ChildCount: row.ChildCount,
		Name:       row.Name,
		CreatedAt:  optionalTime(row.CreatedAt),
		UpdatedAt:  optionalTime(row.UpdatedAt),
	}
}

// TreeCountsFromRows converts database rows to tree counts.
func TreeCountsFromRows(rows []sqldb.ListTreesWithCountsRow) []TreeCounts {
	result := make([]TreeCounts, 0, len(rows))
	for _, row := range rows {
		result = append(result, TreeCounts{
			TreeID:    row.TreeID,
			NodeCount: row.NodeCount,
			RootCount: row.RootCount,
			MaxDepth:  row.MaxDepth,
		})
	}
	return result
}
