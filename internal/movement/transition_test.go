package movement

import "testing"

func id(v int64) *int64 { return &v }

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		from *Position
		to   *Position
		want Kind
	}{
		{"nothing", nil, nil, NoOp},
		{"create root", nil, &Position{Position: 1}, Create},
		{"create child", nil, &Position{ParentID: id(1), Position: 3, Depth: 1}, Create},
		{"destroy", &Position{ParentID: id(1), Position: 2}, nil, Destroy},
		{"root to child", &Position{Position: 1}, &Position{ParentID: id(4), Position: 1}, Move},
		{"child to root", &Position{ParentID: id(4), Position: 1}, &Position{Position: 2}, Move},
		{"between parents", &Position{ParentID: id(1), Position: 1}, &Position{ParentID: id(2), Position: 1}, Move},
		{"reorder", &Position{ParentID: id(1), Position: 1}, &Position{ParentID: id(1), Position: 3}, Reorder},
		{"reorder roots", &Position{Position: 3}, &Position{Position: 1}, Reorder},
		{"same place", &Position{ParentID: id(1), Position: 2}, &Position{ParentID: id(1), Position: 2}, NoOp},
		{"same root place", &Position{Position: 2}, &Position{Position: 2}, NoOp},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Classify(tc.from, tc.to); got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
			if got := NewTransition(tc.from, tc.to).Kind(); got != tc.want {
				t.Fatalf("transition kind expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestTarget(t *testing.T) {
	cases := []struct {
		name        string
		from        *Position
		parent      *int64
		requested   int64
		siblings    int64
		parentDepth int64
		want        Position
	}{
		{"append to empty root set", nil, nil, 0, 0, 0, Position{Position: 1}},
		{"append to children", nil, id(7), 0, 2, 1, Position{ParentID: id(7), Position: 3, Depth: 2}},
		{"explicit position", nil, id(7), 2, 4, 0, Position{ParentID: id(7), Position: 2, Depth: 1}},
		{"clamp high", nil, id(7), 99, 2, 0, Position{ParentID: id(7), Position: 3, Depth: 1}},
		{"clamp low", nil, nil, -4, 2, 0, Position{Position: 1}},
		{"keep rank on same parent", &Position{ParentID: id(7), Position: 2, Depth: 1}, id(7), 0, 3, 0, Position{ParentID: id(7), Position: 2, Depth: 1}},
		{"append on new parent", &Position{ParentID: id(7), Position: 2, Depth: 1}, id(9), 0, 3, 4, Position{ParentID: id(9), Position: 4, Depth: 5}},
		{"reorder clamps to set size", &Position{Position: 1}, nil, 10, 2, 0, Position{Position: 3}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Target(tc.from, tc.parent, tc.requested, tc.siblings, tc.parentDepth)
			if !SameParent(got.ParentID, tc.want.ParentID) {
				t.Fatalf("expected parent %v, got %v", tc.want.ParentID, got.ParentID)
			}
			if got.Position != tc.want.Position || got.Depth != tc.want.Depth {
				t.Fatalf("expected %+v, got %+v", tc.want, *got)
			}
		})
	}
}

func TestTargetDoesNotAliasParent(t *testing.T) {
	parent := id(3)
	to := Target(nil, parent, 0, 0, 0)
	*parent = 4
	if *to.ParentID != 3 {
		t.Fatalf("expected target parent to be copied, got %d", *to.ParentID)
	}
}

func TestDepthDelta(t *testing.T) {
	tr := NewTransition(&Position{ParentID: id(1), Depth: 3}, &Position{Depth: 0})
	if got := tr.DepthDelta(); got != -3 {
		t.Fatalf("expected -3, got %d", got)
	}
	if got := NewTransition(nil, &Position{Depth: 2}).DepthDelta(); got != 0 {
		t.Fatalf("expected 0 for create, got %d", got)
	}
}
