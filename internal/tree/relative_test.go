package tree

import (
	"context"
	"errors"
	"testing"

	"github.com/arbor-db/arbor/internal/database"
	"github.com/arbor-db/arbor/internal/movement"
)

func TestRelativeMoves(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		run  func(f *fixture) (*Result, error)
		want string
	}{
		{
			name: "left of later sibling",
			run: func(f *fixture) (*Result, error) {
				return f.e.MoveToLeftOf(ctx, nil, f.id("a"), f.id("c"))
			},
			want: "b,a,c(x,y),d",
		},
		{
			name: "left of earlier sibling",
			run: func(f *fixture) (*Result, error) {
				return f.e.MoveToLeftOf(ctx, nil, f.id("d"), f.id("b"))
			},
			want: "a,d,b,c(x,y)",
		},
		{
			name: "right of later sibling",
			run: func(f *fixture) (*Result, error) {
				return f.e.MoveToRightOf(ctx, nil, f.id("a"), f.id("c"))
			},
			want: "b,c(x,y),a,d",
		},
		{
			name: "right of earlier sibling",
			run: func(f *fixture) (*Result, error) {
				return f.e.MoveToRightOf(ctx, nil, f.id("d"), f.id("a"))
			},
			want: "a,d,b,c(x,y)",
		},
		{
			name: "left of a node in another set",
			run: func(f *fixture) (*Result, error) {
				return f.e.MoveToLeftOf(ctx, nil, f.id("b"), f.id("y"))
			},
			want: "a,c(x,b,y),d",
		},
		{
			name: "right of a node in another set",
			run: func(f *fixture) (*Result, error) {
				return f.e.MoveToRightOf(ctx, nil, f.id("x"), f.id("a"))
			},
			want: "a,x,b,c(y),d",
		},
		{
			name: "higher",
			run: func(f *fixture) (*Result, error) {
				return f.e.MoveHigher(ctx, nil, f.id("c"))
			},
			want: "a,c(x,y),b,d",
		},
		{
			name: "lower",
			run: func(f *fixture) (*Result, error) {
				return f.e.MoveLower(ctx, nil, f.id("x"))
			},
			want: "a,b,c(y,x),d",
		},
		{
			name: "last child by negative index",
			run: func(f *fixture) (*Result, error) {
				return f.e.MoveToChildWithIndex(ctx, nil, f.id("a"), f.ref("c"), -1)
			},
			want: "b,c(x,y,a),d",
		},
		{
			name: "second to last by negative index",
			run: func(f *fixture) (*Result, error) {
				return f.e.MoveToChildWithIndex(ctx, nil, f.id("a"), f.ref("c"), -2)
			},
			want: "b,c(x,a,y),d",
		},
		{
			name: "first root by index",
			run: func(f *fixture) (*Result, error) {
				return f.e.MoveToChildWithIndex(ctx, nil, f.id("y"), nil, 0)
			},
			want: "y,a,b,c(x),d",
		},
		{
			name: "to root",
			run: func(f *fixture) (*Result, error) {
				return f.e.MoveToRoot(ctx, nil, f.id("x"))
			},
			want: "a,b,c(y),d,x",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			for _, name := range []string{"a", "b", "c", "d"} {
				f.add(name, "")
			}
			f.add("x", "c")
			f.add("y", "c")

			if _, err := tt.run(f); err != nil {
				t.Fatalf("move error: %v", err)
			}
			if got := f.layout(); got != tt.want {
				t.Fatalf("layout = %s, want %s", got, tt.want)
			}
			f.assertHealthy()
		})
	}
}

func TestRelativeMovesAtTheEdges(t *testing.T) {
	f := newFixture(t)
	f.add("a", "")
	f.add("b", "")
	f.add("x", "a")
	ctx := context.Background()

	res, err := f.e.MoveHigher(ctx, nil, f.id("a"))
	if err != nil || res.Kind != movement.NoOp {
		t.Fatalf("MoveHigher on first: %v, %v", res, err)
	}
	res, err = f.e.MoveLower(ctx, nil, f.id("b"))
	if err != nil || res.Kind != movement.NoOp {
		t.Fatalf("MoveLower on last: %v, %v", res, err)
	}
	res, err = f.e.MoveToRoot(ctx, nil, f.id("b"))
	if err != nil || res.Kind != movement.NoOp {
		t.Fatalf("MoveToRoot on root: %v, %v", res, err)
	}

	if _, err := f.e.MoveToLeftOf(ctx, nil, f.id("a"), f.id("a")); !errors.Is(err, ErrSelfReference) {
		t.Fatalf("expected self reference, got %v", err)
	}
	if _, err := f.e.MoveToRightOf(ctx, nil, f.id("a"), f.id("x")); !errors.Is(err, ErrSelfParent) {
		t.Fatalf("expected self parent, got %v", err)
	}
	if _, err := f.e.MoveToChildWithIndex(ctx, nil, f.id("a"), f.ref("a"), 0); !errors.Is(err, ErrSelfParent) {
		t.Fatalf("expected self parent, got %v", err)
	}
	if _, err := f.e.MoveToChildOf(ctx, nil, f.id("a"), f.id("x")); !errors.Is(err, ErrCircularReference) {
		t.Fatalf("expected circular reference, got %v", err)
	}
	if got := f.layout(); got != "a(x),b" {
		t.Fatalf("layout = %s", got)
	}
}

func TestRelativeMoveInsideOuterTransaction(t *testing.T) {
	f := newFixture(t)
	f.add("a", "")
	f.add("b", "")
	f.add("c", "")
	ctx := context.Background()

	err := f.e.Retrier().Do(ctx, nil, func(ctx context.Context, tx *database.Tx) error {
		if _, err := f.e.MoveLower(ctx, tx, f.id("a")); err != nil {
			return err
		}
		_, err := f.e.MoveToRightOf(ctx, tx, f.id("c"), f.id("a"))
		return err
	})
	if err != nil {
		t.Fatalf("transaction error: %v", err)
	}
	if got := f.layout(); got != "b,a,c" {
		t.Fatalf("layout = %s", got)
	}
}
