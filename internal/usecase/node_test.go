package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/arbor-db/arbor/internal/config"
	"github.com/arbor-db/arbor/internal/database"
	"github.com/arbor-db/arbor/internal/services"
	"github.com/arbor-db/arbor/internal/tree"
)

func setupNode(t *testing.T, strategy string) *Node {
	t.Helper()
	dbCtx, err := database.CreateDatabase(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = database.CloseDatabase(dbCtx)
	})

	settings := config.Settings{
		Driver:      config.DriverSQLite,
		Strategy:    strategy,
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		Verify:      true,
		Tree:        "notes",
	}
	engine, err := NewEngine(dbCtx, settings, zerolog.Nop())
	require.NoError(t, err)
	return NewNode(dbCtx, engine)
}

func paths(views []NodeView) string {
	out := make([]string, 0, len(views))
	for _, v := range views {
		out = append(out, v.Path)
	}
	return strings.Join(out, " ")
}

func TestNewEngineRejectsUnknownStrategy(t *testing.T) {
	dbCtx, err := database.CreateDatabase(":memory:")
	require.NoError(t, err)
	defer func() { _ = database.CloseDatabase(dbCtx) }()

	_, err = NewEngine(dbCtx, config.Settings{Strategy: "bogus", MaxAttempts: 1}, zerolog.Nop())
	require.Error(t, err)
}

func TestNodeWorkflow(t *testing.T) {
	for _, strategy := range []string{"naive", "recursive"} {
		t.Run(strategy, func(t *testing.T) {
			uc := setupNode(t, strategy)
			ctx := context.Background()

			for _, in := range []AddInput{
				{Tree: "notes", Name: "guide"},
				{Tree: "notes", Name: "setup", Parent: "guide"},
				{Tree: "notes", Name: "usage", Parent: "guide"},
				{Tree: "notes", Name: "faq"},
				{Tree: "notes", Name: "intro", Parent: "guide", Position: 1},
			} {
				_, err := uc.Add(ctx, in)
				require.NoError(t, err, in.Name)
			}

			shown, err := uc.Show(ctx, "notes", "")
			require.NoError(t, err)
			require.Equal(t, "guide guide/intro guide/setup guide/usage faq", paths(shown))

			res, err := uc.Move(ctx, MoveInput{Tree: "notes", Node: "usage", Parent: "faq"})
			require.NoError(t, err)
			require.Equal(t, "move", res.Kind)
			require.Equal(t, int64(1), res.Node.Depth)
			require.NotEmpty(t, res.From)
			require.NotEmpty(t, res.To)

			res, err = uc.Move(ctx, MoveInput{Tree: "notes", Node: "faq", Before: "guide"})
			require.NoError(t, err)
			require.Equal(t, "reorder", res.Kind)

			res, err = uc.Move(ctx, MoveInput{Tree: "notes", Node: "setup", Root: true, Position: 2})
			require.NoError(t, err)
			require.Equal(t, int64(2), res.Node.Position)
			require.Nil(t, res.Node.ParentID)

			shown, err = uc.Show(ctx, "notes", "")
			require.NoError(t, err)
			require.Equal(t, "faq faq/usage setup guide guide/intro", paths(shown))

			sub, err := uc.Show(ctx, "notes", "guide")
			require.NoError(t, err)
			require.Equal(t, "guide guide/intro", paths(sub))

			ancestors, err := uc.Ancestors(ctx, "notes", "usage")
			require.NoError(t, err)
			require.Len(t, ancestors, 1)
			require.Equal(t, "faq", ancestors[0].Name)

			descendants, err := uc.Descendants(ctx, "notes", "guide")
			require.NoError(t, err)
			require.Len(t, descendants, 1)
			require.Equal(t, "intro", descendants[0].Name)

			renamed, err := uc.Rename(ctx, "notes", "intro", "overview")
			require.NoError(t, err)
			require.Equal(t, "overview", renamed.Name)

			removed, err := uc.Delete(ctx, "notes", "faq")
			require.NoError(t, err)
			require.Equal(t, 2, removed)

			report, err := uc.Check(ctx, "notes")
			require.NoError(t, err)
			require.True(t, report.OK(), "%#v", report.Problems)
			require.Equal(t, 3, report.Nodes)
		})
	}
}

func TestNodeMoveValidation(t *testing.T) {
	uc := setupNode(t, "recursive")
	ctx := context.Background()

	_, err := uc.Add(ctx, AddInput{Tree: "notes", Name: "a"})
	require.NoError(t, err)
	_, err = uc.Add(ctx, AddInput{Tree: "notes", Name: "b", Parent: "a"})
	require.NoError(t, err)

	_, err = uc.Move(ctx, MoveInput{Tree: "notes", Node: "a"})
	require.Error(t, err)

	_, err = uc.Move(ctx, MoveInput{Tree: "notes", Node: "a", Root: true, Parent: "b"})
	require.Error(t, err)

	_, err = uc.Move(ctx, MoveInput{Tree: "notes", Node: "a", Parent: "b"})
	require.True(t, errors.Is(err, tree.ErrCircularReference), "got %v", err)

	_, err = uc.Move(ctx, MoveInput{Tree: "notes", Node: "a", Parent: "a"})
	require.True(t, errors.Is(err, tree.ErrSelfParent), "got %v", err)

	_, err = uc.Move(ctx, MoveInput{Tree: "notes", Node: "missing", Root: true})
	require.True(t, errors.Is(err, services.ErrNotFound), "got %v", err)

	_, err = uc.Add(ctx, AddInput{Tree: "notes", Name: "  "})
	require.Error(t, err)

	_, err = uc.Rename(ctx, "notes", "a", "")
	require.Error(t, err)
}

func TestNodeTrees(t *testing.T) {
	uc := setupNode(t, "recursive")
	ctx := context.Background()

	for _, in := range []AddInput{
		{Tree: "alpha", Name: "one"},
		{Tree: "alpha", Name: "two", Parent: "one"},
		{Tree: "beta", Name: "solo"},
	} {
		_, err := uc.Add(ctx, in)
		require.NoError(t, err)
	}

	trees, err := uc.Trees(ctx)
	require.NoError(t, err)
	require.Len(t, trees, 2)

	deleted, err := uc.DeleteTree(ctx, "alpha")
	require.NoError(t, err)
	require.Equal(t, int64(2), deleted)

	trees, err = uc.Trees(ctx)
	require.NoError(t, err)
	require.Len(t, trees, 1)
	require.Equal(t, "beta", trees[0].TreeID)

	require.NoError(t, uc.DeleteAllTrees())
	trees, err = uc.Trees(ctx)
	require.NoError(t, err)
	require.Empty(t, trees)
}
