package database

import (
	"time"
)

// NodeRecord represents a row of the bundled nodes table, structural columns
// and payload together.
type NodeRecord struct {
	ID         int64
	TreeID     string
	ParentID   *int64
	Position   int64
	Depth      int64
	ChildCount int64
	Name       string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// TreeCounts summarizes one tree of the nodes table.
type TreeCounts struct {
	TreeID    string `json:"tree" yaml:"tree"`
	NodeCount int64  `json:"nodes" yaml:"nodes"`
	RootCount int64  `json:"roots" yaml:"roots"`
	MaxDepth  int64  `json:"max_depth" yaml:"max_depth"`
}
