package database

import (
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestRebind(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"SELECT 1", "SELECT 1"},
		{"SELECT * FROM nodes WHERE id = ?", "SELECT * FROM nodes WHERE id = $1"},
		{"UPDATE t SET a = ?, b = ? WHERE c IN (?, ?)", "UPDATE t SET a = $1, b = $2 WHERE c IN ($3, $4)"},
		{"SELECT '?' , ?", "SELECT '?' , $1"},
	}
	for _, tc := range cases {
		if got := Rebind(tc.in); got != tc.want {
			t.Fatalf("Rebind(%q) expected %q, got %q", tc.in, tc.want, got)
		}
	}
}

func TestDialectFor(t *testing.T) {
	for _, name := range []string{SQLite, Postgres} {
		d, err := DialectFor(name)
		if err != nil {
			t.Fatalf("DialectFor(%s): %v", name, err)
		}
		if d.Name() != name {
			t.Fatalf("expected %s, got %s", name, d.Name())
		}
	}
	if _, err := DialectFor("mssql"); !errors.Is(err, ErrNoDialect) {
		t.Fatalf("expected ErrNoDialect, got %v", err)
	}
}

func TestPostgresContention(t *testing.T) {
	d := postgresDialect{}
	for _, code := range []string{"40001", "40P01", "55P03"} {
		err := fmt.Errorf("wrapped: %w", &pgconn.PgError{Code: code})
		if !d.IsContention(err) {
			t.Fatalf("expected %s to be contention", code)
		}
	}
	if d.IsContention(&pgconn.PgError{Code: "23505"}) {
		t.Fatalf("unique violation must not be retried")
	}
	if d.IsContention(errors.New("plain")) {
		t.Fatalf("plain errors must not be retried")
	}
}

func TestPathEncoding(t *testing.T) {
	s := sqliteDialect{}
	if got, want := s.PathAppend("w.walk_path", "n.position"), "w.walk_path || printf('%010d', n.position)"; got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
	p := postgresDialect{}
	if got, want := p.PathSeed("n.position"), "ARRAY[n.position]::bigint[]"; got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestTrailEncoding(t *testing.T) {
	s := sqliteDialect{}
	if got, want := s.TrailContains("w.walk_ids", "n.id"), "instr(w.walk_ids, ',' || (n.id) || ',') > 0"; got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
	if got, want := s.TrailAppend("w.walk_ids", "n.id"), "w.walk_ids || (n.id) || ','"; got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
	p := postgresDialect{}
	if got, want := p.TrailContains("w.walk_ids", "n.id"), "(n.id)::bigint = ANY(w.walk_ids)"; got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestSQLiteBusyIsContention(t *testing.T) {
	path := filepath.Join(t.TempDir(), "busy.db")
	a, err := CreateDatabase(path)
	if err != nil {
		t.Fatalf("CreateDatabase: %v", err)
	}
	defer func() {
		_ = CloseDatabase(a)
	}()

	holder, err := a.DB.Begin()
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	defer func() {
		_ = holder.Rollback()
	}()

	b, err := sqlOpenNoWait(path)
	if err != nil {
		t.Fatalf("open second handle: %v", err)
	}
	defer func() {
		_ = b.Close()
	}()

	_, err = b.Begin()
	if err == nil {
		t.Fatalf("expected second writer to be blocked")
	}
	if !(sqliteDialect{}).IsContention(err) {
		t.Fatalf("expected busy error to be classified as contention, got %v", err)
	}
}

func sqlOpenNoWait(path string) (*sql.DB, error) {
	return sql.Open("sqlite", "file:"+filepath.ToSlash(path)+"?_pragma=busy_timeout(0)&_txlock=immediate")
}
