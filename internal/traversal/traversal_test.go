package traversal

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arbor-db/arbor/internal/database"
	sqldb "github.com/arbor-db/arbor/internal/database/sqlc"
	"github.com/arbor-db/arbor/internal/forest"
	"github.com/arbor-db/arbor/internal/scope"
)

type fixture struct {
	db     *database.Context
	schema forest.Schema
	nodes  map[string]forest.Node
}

func setupFixture(t *testing.T) *fixture {
	t.Helper()
	dbCtx, err := database.CreateDatabase(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = database.CloseDatabase(dbCtx)
	})
	return &fixture{db: dbCtx, schema: forest.DefaultSchema(), nodes: map[string]forest.Node{}}
}

// add inserts a node under parent ("" for a root) with a consistent position
// and depth.
func (f *fixture) add(t *testing.T, tree, name, parent string) forest.Node {
	t.Helper()
	ctx := context.Background()

	var (
		parentArg any
		depth     int64
		parentID  *int64
	)
	if parent != "" {
		p := f.nodes[parent]
		parentArg = p.ID
		depth = p.Depth + 1
		parentID = forest.ParentRef(p.ID)
	}

	var position int64
	countSQL := "SELECT COUNT(*) FROM nodes WHERE tree_id = ? AND parent_id IS NULL"
	args := []any{tree}
	if parent != "" {
		countSQL = "SELECT COUNT(*) FROM nodes WHERE tree_id = ? AND parent_id = ?"
		args = append(args, parentArg)
	}
	require.NoError(t, f.db.Reader().QueryRowContext(ctx, countSQL, args...).Scan(&position))
	position++

	var id int64
	err := f.db.Reader().QueryRowContext(ctx,
		`INSERT INTO nodes(tree_id, parent_id, position, depth, name) VALUES(?, ?, ?, ?, ?) RETURNING id`,
		tree, parentArg, position, depth, name,
	).Scan(&id)
	require.NoError(t, err)

	n := forest.Node{ID: id, ParentID: parentID, Position: position, Depth: depth, Scope: scope.NewTree(tree)}
	f.nodes[name] = n
	return n
}

func (f *fixture) names(t *testing.T, nodes []forest.Node) string {
	t.Helper()
	byID := map[int64]string{}
	for name, n := range f.nodes {
		byID[n.ID] = name
	}
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, byID[n.ID])
	}
	return strings.Join(out, ",")
}

// buildSample creates
//
//	a
//	  b
//	    d
//	  c
//	e
//
// in tree "main" plus a lone root "x" in tree "other".
func buildSample(t *testing.T, f *fixture) {
	f.add(t, "main", "a", "")
	f.add(t, "main", "b", "a")
	f.add(t, "main", "c", "a")
	f.add(t, "main", "d", "b")
	f.add(t, "main", "e", "")
	f.add(t, "other", "x", "")
}

func strategies(f *fixture) []Strategy {
	return []Strategy{NewNaive(f.schema), NewRecursive(f.schema, f.db.Dialect)}
}

func TestStrategiesOnSample(t *testing.T) {
	f := setupFixture(t)
	buildSample(t, f)
	ctx := context.Background()
	q := f.db.Reader()

	for _, s := range strategies(f) {
		t.Run(s.Name(), func(t *testing.T) {
			d := f.nodes["d"]
			got, err := s.Ancestors(ctx, q, &d)
			require.NoError(t, err)
			require.Equal(t, "a,b", f.names(t, got))

			got, err = s.SelfAndAncestors(ctx, q, &d)
			require.NoError(t, err)
			require.Equal(t, "a,b,d", f.names(t, got))

			a := f.nodes["a"]
			got, err = s.Descendants(ctx, q, &a)
			require.NoError(t, err)
			require.Equal(t, "b,d,c", f.names(t, got))

			got, err = s.SelfAndDescendants(ctx, q, &a)
			require.NoError(t, err)
			require.Equal(t, "a,b,d,c", f.names(t, got))

			e := f.nodes["e"]
			got, err = s.Ancestors(ctx, q, &e)
			require.NoError(t, err)
			require.Empty(t, got)
			got, err = s.Descendants(ctx, q, &e)
			require.NoError(t, err)
			require.Empty(t, got)
		})
	}
}

func TestStrategiesOnDestroyedAndUnsaved(t *testing.T) {
	f := setupFixture(t)
	buildSample(t, f)
	ctx := context.Background()
	q := f.db.Reader()

	for _, s := range strategies(f) {
		t.Run(s.Name(), func(t *testing.T) {
			gone := f.nodes["b"]
			gone.Destroyed = true
			for _, fn := range []func(context.Context, sqldb.DBTX, *forest.Node) ([]forest.Node, error){
				s.Ancestors, s.SelfAndAncestors, s.Descendants, s.SelfAndDescendants,
			} {
				got, err := fn(ctx, q, &gone)
				require.NoError(t, err)
				require.Empty(t, got)
			}

			fresh := forest.Node{ParentID: forest.ParentRef(f.nodes["b"].ID), Scope: scope.NewTree("main")}
			got, err := s.Descendants(ctx, q, &fresh)
			require.NoError(t, err)
			require.Empty(t, got)

			got, err = s.Ancestors(ctx, q, &fresh)
			require.NoError(t, err)
			require.Equal(t, "a,b", f.names(t, got))
		})
	}
}

func TestStrategiesReportCycles(t *testing.T) {
	f := setupFixture(t)
	buildSample(t, f)
	ctx := context.Background()
	q := f.db.Reader()

	// a -> b -> d -> a
	_, err := q.ExecContext(ctx, "UPDATE nodes SET parent_id = ? WHERE id = ?", f.nodes["d"].ID, f.nodes["a"].ID)
	require.NoError(t, err)

	for _, s := range strategies(f) {
		t.Run(s.Name(), func(t *testing.T) {
			a, b := f.nodes["a"], f.nodes["b"]

			_, err := s.Descendants(ctx, q, &a)
			require.ErrorIs(t, err, ErrCycle)

			_, err = s.Ancestors(ctx, q, &b)
			require.ErrorIs(t, err, ErrCycle)

			// a tree untouched by the loop still walks
			e := f.nodes["e"]
			got, err := s.SelfAndDescendants(ctx, q, &e)
			require.NoError(t, err)
			require.Equal(t, "e", f.names(t, got))
		})
	}
}

func TestRecursiveCustomization(t *testing.T) {
	f := setupFixture(t)
	buildSample(t, f)
	ctx := context.Background()
	q := f.db.Reader()
	r := NewRecursive(f.schema, f.db.Dialect)

	a := f.nodes["a"]
	got, err := r.DescendantsWhere(ctx, q, &a, WithJoin("n.name <> ?", "b"))
	require.NoError(t, err)
	require.Equal(t, "c", f.names(t, got), "pruning b drops its subtree")

	got, err = r.DescendantsWhere(ctx, q, &a, WithOrder("-n.id + 1000000"))
	require.NoError(t, err)
	require.Equal(t, "c,b,d", f.names(t, got))

	got, err = r.Walk(ctx, q, Query{Direction: Down, Scope: scope.NewTree("main")}, WithSeed("n.parent_id IS NULL"))
	require.NoError(t, err)
	require.Equal(t, "a,b,d,c,e", f.names(t, got))

	_, _, err = r.Build(Query{Direction: Down})
	require.Error(t, err, "a walk needs a seed")
}

func TestRecursiveBuildArguments(t *testing.T) {
	r := NewRecursive(forest.DefaultSchema(), nil)
	stmt, args, err := r.Build(Query{
		Direction: Down,
		Seed:      Condition{SQL: "n.parent_id = ?", Args: []any{int64(4)}},
		Joins:     []Condition{{SQL: "n.name <> ?", Args: []any{"skip"}}},
		Scope:     scope.NewTree("main"),
	})
	require.NoError(t, err)
	require.Equal(t, strings.Count(stmt, "?"), len(args))
	require.Equal(t, []any{int64(4), "main", "skip", "main"}, args)
	require.Contains(t, stmt, "WITH RECURSIVE")
	require.Contains(t, stmt, "w.walk_cycle = 0")
}

func TestStrategiesAgreeOnRandomForests(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	for round := 0; round < 5; round++ {
		f := setupFixture(t)
		names := []string{}
		for i := 0; i < 60; i++ {
			name := fmt.Sprintf("n%d", i)
			parent := ""
			if len(names) > 0 && rng.IntN(4) != 0 {
				parent = names[rng.IntN(len(names))]
			}
			f.add(t, "main", name, parent)
			names = append(names, name)
		}

		ctx := context.Background()
		q := f.db.Reader()
		naive, recursive := NewNaive(f.schema), NewRecursive(f.schema, f.db.Dialect)
		for _, name := range names {
			n := f.nodes[name]

			want, err := naive.SelfAndDescendants(ctx, q, &n)
			require.NoError(t, err)
			got, err := recursive.SelfAndDescendants(ctx, q, &n)
			require.NoError(t, err)
			require.Equal(t, forest.IDs(want), forest.IDs(got), "descendants of %s", name)

			want, err = naive.SelfAndAncestors(ctx, q, &n)
			require.NoError(t, err)
			got, err = recursive.SelfAndAncestors(ctx, q, &n)
			require.NoError(t, err)
			require.Equal(t, forest.IDs(want), forest.IDs(got), "ancestors of %s", name)
			require.Equal(t, int(n.Depth)+1, len(got))
		}
	}
}

func TestNew(t *testing.T) {
	for _, name := range []string{NaiveName, RecursiveName} {
		s, err := New(name, forest.DefaultSchema(), nil)
		require.NoError(t, err)
		require.Equal(t, name, s.Name())
	}
	_, err := New("nested-set", forest.DefaultSchema(), nil)
	require.Error(t, err)
}
