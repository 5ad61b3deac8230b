package forest

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/arbor-db/arbor/internal/scope"
)

// Schema describes the table an engine operates on. The id, parent and
// position columns are required; depth and child count caches are optional.
type Schema struct {
	Table            string
	IDColumn         string
	ParentColumn     string
	PositionColumn   string
	DepthColumn      string
	ChildCountColumn string
	ScopeColumns     []string
}

// DefaultSchema describes the bundled nodes table.
func DefaultSchema() Schema {
	return Schema{
		Table:            "nodes",
		IDColumn:         "id",
		ParentColumn:     "parent_id",
		PositionColumn:   "position",
		DepthColumn:      "depth",
		ChildCountColumn: "child_count",
		ScopeColumns:     []string{scope.DefaultColumn},
	}
}

// HasDepthCache reports whether the table caches depth.
func (s Schema) HasDepthCache() bool { return s.DepthColumn != "" }

// HasChildCountCache reports whether the table caches child counts.
func (s Schema) HasChildCountCache() bool { return s.ChildCountColumn != "" }

// Validate rejects schemas whose names are not plain SQL identifiers, since
// they are interpolated into generated statements.
func (s Schema) Validate() error {
	required := map[string]string{
		"table":           s.Table,
		"id column":       s.IDColumn,
		"parent column":   s.ParentColumn,
		"position column": s.PositionColumn,
	}
	for label, name := range required {
		if !scope.IsIdentifier(name) {
			return fmt.Errorf("invalid %s %q", label, name)
		}
	}
	for _, name := range []string{s.DepthColumn, s.ChildCountColumn} {
		if name != "" && !scope.IsIdentifier(name) {
			return fmt.Errorf("invalid cache column %q", name)
		}
	}
	for _, col := range s.ScopeColumns {
		if !scope.IsIdentifier(col) {
			return fmt.Errorf("invalid scope column %q", col)
		}
	}
	return nil
}

// Columns lists the structural columns read for every node, in scan order.
func (s Schema) Columns() []string {
	cols := []string{s.IDColumn, s.ParentColumn, s.PositionColumn}
	if s.HasDepthCache() {
		cols = append(cols, s.DepthColumn)
	}
	if s.HasChildCountCache() {
		cols = append(cols, s.ChildCountColumn)
	}
	return append(cols, s.ScopeColumns...)
}

// SelectList renders Columns qualified by alias.
func (s Schema) SelectList(alias string) string {
	cols := s.Columns()
	if alias == "" {
		return strings.Join(cols, ", ")
	}
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = alias + "." + c
	}
	return strings.Join(out, ", ")
}

// Scanner is satisfied by *sql.Row and *sql.Rows.
type Scanner interface {
	Scan(dest ...any) error
}

// Scan reads one node whose columns were selected with SelectList. Columns
// selected after the list are read into extra.
func (s Schema) Scan(row Scanner, extra ...any) (Node, error) {
	var (
		n      Node
		parent sql.NullInt64
	)
	dest := []any{&n.ID, &parent, &n.Position}
	if s.HasDepthCache() {
		dest = append(dest, &n.Depth)
	}
	if s.HasChildCountCache() {
		dest = append(dest, &n.ChildCount)
	}
	values := make([]any, len(s.ScopeColumns))
	for i := range values {
		dest = append(dest, &values[i])
	}
	dest = append(dest, extra...)
	if err := row.Scan(dest...); err != nil {
		return Node{}, err
	}
	if parent.Valid {
		n.ParentID = ParentRef(parent.Int64)
	}
	n.Scope = make(scope.Scope, len(s.ScopeColumns))
	for i, col := range s.ScopeColumns {
		if b, ok := values[i].([]byte); ok {
			n.Scope[col] = string(b)
			continue
		}
		n.Scope[col] = values[i]
	}
	return n, nil
}

// ScanAll drains rows into nodes and closes them.
func (s Schema) ScanAll(rows *sql.Rows) ([]Node, error) {
	defer func() {
		_ = rows.Close()
	}()
	var out []Node
	for rows.Next() {
		n, err := s.Scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
