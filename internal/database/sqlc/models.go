package sqldb

import "database/sql"

type Node struct {
	ID         int64
	TreeID     string
	ParentID   sql.NullInt64
	Position   int64
	Depth      int64
	ChildCount int64
	Name       string
	CreatedAt  sql.NullTime
	UpdatedAt  sql.NullTime
}
