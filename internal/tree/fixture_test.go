package tree

import (
	"context"
	"strings"
	"testing"

	"github.com/arbor-db/arbor/internal/database"
	"github.com/arbor-db/arbor/internal/forest"
	"github.com/arbor-db/arbor/internal/scope"
)

type fixture struct {
	t     *testing.T
	db    *database.Context
	e     *Engine
	sc    scope.Scope
	ids   map[string]int64
	names map[int64]string
}

func setupTreeDB(t *testing.T) *database.Context {
	t.Helper()
	dbCtx, err := database.CreateDatabase(":memory:")
	if err != nil {
		t.Fatalf("CreateDatabase error: %v", err)
	}
	t.Cleanup(func() {
		if err := database.CloseDatabase(dbCtx); err != nil {
			t.Fatalf("CloseDatabase error: %v", err)
		}
	})
	return dbCtx
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	return newFixtureOn(t, setupTreeDB(t), opts...)
}

func newFixtureOn(t *testing.T, dbCtx *database.Context, opts ...Option) *fixture {
	t.Helper()
	e, err := New(dbCtx, forest.DefaultSchema(), append([]Option{WithVerify(true)}, opts...)...)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	return &fixture{
		t:     t,
		db:    dbCtx,
		e:     e,
		sc:    scope.NewTree("main"),
		ids:   map[string]int64{},
		names: map[int64]string{},
	}
}

// add appends a named node under parent ("" for a root).
func (f *fixture) add(name, parent string) int64 {
	f.t.Helper()
	return f.addAt(name, parent, 0)
}

func (f *fixture) addAt(name, parent string, position int64) int64 {
	f.t.Helper()
	req := CreateRequest{Position: position, Fields: map[string]any{"name": name}}
	if parent == "" {
		req.Scope = f.sc
	} else {
		req.ParentID = f.ref(parent)
	}
	res, err := f.e.Create(context.Background(), nil, req)
	if err != nil {
		f.t.Fatalf("Create %s error: %v", name, err)
	}
	f.ids[name] = res.Node.ID
	f.names[res.Node.ID] = name
	return res.Node.ID
}

func (f *fixture) id(name string) int64 {
	f.t.Helper()
	id, ok := f.ids[name]
	if !ok {
		f.t.Fatalf("unknown node %q", name)
	}
	return id
}

func (f *fixture) ref(name string) *int64 {
	f.t.Helper()
	return forest.ParentRef(f.id(name))
}

func (f *fixture) node(name string) *forest.Node {
	f.t.Helper()
	n, err := f.e.Find(context.Background(), f.id(name))
	if err != nil {
		f.t.Fatalf("Find %s error: %v", name, err)
	}
	return n
}

// layout renders the scope as nested names, e.g. "a(b(d),c),e".
func (f *fixture) layout() string {
	f.t.Helper()
	roots, err := f.e.Roots(context.Background(), f.sc)
	if err != nil {
		f.t.Fatalf("Roots error: %v", err)
	}
	return f.render(roots)
}

func (f *fixture) render(nodes []forest.Node) string {
	f.t.Helper()
	parts := make([]string, 0, len(nodes))
	for _, n := range nodes {
		children, err := f.e.Children(context.Background(), n.ID)
		if err != nil {
			f.t.Fatalf("Children error: %v", err)
		}
		part := f.names[n.ID]
		if len(children) > 0 {
			part += "(" + f.render(children) + ")"
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, ",")
}

func (f *fixture) joined(nodes []forest.Node) string {
	parts := make([]string, 0, len(nodes))
	for _, n := range nodes {
		parts = append(parts, f.names[n.ID])
	}
	return strings.Join(parts, ",")
}

// assertHealthy fails the test when Check finds any problem in the scope.
func (f *fixture) assertHealthy() {
	f.t.Helper()
	report, err := f.e.Check(context.Background(), f.sc)
	if err != nil {
		f.t.Fatalf("Check error: %v", err)
	}
	if !report.OK() {
		f.t.Fatalf("integrity problems: %+v", report.Problems)
	}
}

// buildScenario creates root{child_1{child_2,child_3},child_4{child_5}}.
func (f *fixture) buildScenario() {
	f.t.Helper()
	f.add("root", "")
	f.add("child_1", "root")
	f.add("child_2", "child_1")
	f.add("child_3", "child_1")
	f.add("child_4", "root")
	f.add("child_5", "child_4")
}
