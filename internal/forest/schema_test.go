package forest

import (
	"errors"
	"testing"

	"github.com/arbor-db/arbor/internal/scope"
)

type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *int64:
			*p = r.values[i].(int64)
		case *any:
			*p = r.values[i]
		default:
			// sql.NullInt64 implements sql.Scanner
			if sc, ok := d.(interface{ Scan(any) error }); ok {
				if err := sc.Scan(r.values[i]); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func TestDefaultSchemaColumns(t *testing.T) {
	s := DefaultSchema()
	if err := s.Validate(); err != nil {
		t.Fatalf("default schema invalid: %v", err)
	}
	if got, want := s.SelectList("n"), "n.id, n.parent_id, n.position, n.depth, n.child_count, n.tree_id"; got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}

	bare := Schema{Table: "items", IDColumn: "id", ParentColumn: "parent_id", PositionColumn: "sort"}
	if got, want := bare.SelectList(""), "id, parent_id, sort"; got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
	if bare.HasDepthCache() || bare.HasChildCountCache() {
		t.Fatalf("expected bare schema without caches")
	}
}

func TestSchemaValidateRejectsInjection(t *testing.T) {
	s := DefaultSchema()
	s.Table = "nodes; DROP TABLE nodes"
	if err := s.Validate(); err == nil {
		t.Fatalf("expected invalid table name to be rejected")
	}

	s = DefaultSchema()
	s.ScopeColumns = []string{"tree id"}
	if err := s.Validate(); err == nil {
		t.Fatalf("expected invalid scope column to be rejected")
	}
}

func TestSchemaScan(t *testing.T) {
	s := DefaultSchema()
	n, err := s.Scan(fakeRow{values: []any{int64(5), int64(2), int64(3), int64(1), int64(0), []byte("main")}})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if n.ID != 5 || n.ParentID == nil || *n.ParentID != 2 || n.Position != 3 || n.Depth != 1 {
		t.Fatalf("unexpected node %+v", n)
	}
	if !scope.Equal(n.Scope, scope.NewTree("main"), s.ScopeColumns) {
		t.Fatalf("unexpected scope %v", n.Scope)
	}

	root, err := s.Scan(fakeRow{values: []any{int64(1), nil, int64(1), int64(0), int64(2), "main"}})
	if err != nil {
		t.Fatalf("Scan root: %v", err)
	}
	if !root.IsRoot() || root.ChildCount != 2 {
		t.Fatalf("unexpected root %+v", root)
	}

	boom := errors.New("boom")
	if _, err := s.Scan(fakeRow{err: boom}); !errors.Is(err, boom) {
		t.Fatalf("expected scan error, got %v", err)
	}
}

func TestNodeSnapshot(t *testing.T) {
	n := &Node{ID: 3, ParentID: ParentRef(1), Position: 2, Depth: 1}
	snap := n.Snapshot()
	if snap == nil || *snap.ParentID != 1 || snap.Position != 2 || snap.Depth != 1 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}

	n.Destroyed = true
	if n.Snapshot() != nil {
		t.Fatalf("expected destroyed node to have no snapshot")
	}
	if (&Node{}).Snapshot() != nil {
		t.Fatalf("expected unsaved node to have no snapshot")
	}
}
