package tree

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/arbor-db/arbor/internal/forest"
	"github.com/arbor-db/arbor/internal/scope"
)

// Problem kinds reported by Check.
const (
	ProblemPosition   = "position"
	ProblemDepth      = "depth"
	ProblemChildCount = "child_count"
	ProblemParent     = "parent"
	ProblemCycle      = "cycle"
)

// Problem is one structural defect found by Check.
type Problem struct {
	NodeID int64  `json:"node_id" yaml:"node_id"`
	Kind   string `json:"kind" yaml:"kind"`
	Detail string `json:"detail" yaml:"detail"`
}

// Report is the outcome of an integrity check over one scope.
type Report struct {
	Scope    scope.Scope `json:"scope" yaml:"scope"`
	Nodes    int         `json:"nodes" yaml:"nodes"`
	Problems []Problem   `json:"problems" yaml:"problems"`
}

// OK reports whether no problem was found.
func (r *Report) OK() bool { return len(r.Problems) == 0 }

func (r *Report) add(id int64, kind, format string, args ...any) {
	r.Problems = append(r.Problems, Problem{NodeID: id, Kind: kind, Detail: fmt.Sprintf(format, args...)})
}

// Check reads every node of a scope and reports positions that are not
// exactly 1..n per sibling set, stale depth and child count caches, parents
// that are missing or live in another scope, and parent links that loop.
func (e *Engine) Check(ctx context.Context, sc scope.Scope) (*Report, error) {
	if err := scope.Validate(sc, e.schema.ScopeColumns); err != nil {
		return nil, err
	}
	q := e.db.Reader()

	query := fmt.Sprintf("SELECT %s FROM %s", e.schema.SelectList(""), e.schema.Table)
	pred, args := scope.Predicate(sc, e.schema.ScopeColumns, "")
	if pred != "" {
		query += " WHERE " + pred
	}
	query += fmt.Sprintf(" ORDER BY %s", e.schema.IDColumn)
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("check: %w", err)
	}
	nodes, err := e.schema.ScanAll(rows)
	if err != nil {
		return nil, fmt.Errorf("check: %w", err)
	}

	report := &Report{Scope: sc, Nodes: len(nodes), Problems: []Problem{}}
	byID := make(map[int64]*forest.Node, len(nodes))
	sets := map[string][]*forest.Node{}
	for i := range nodes {
		n := &nodes[i]
		byID[n.ID] = n
		sets[setKey(n.ParentID)] = append(sets[setKey(n.ParentID)], n)
	}

	keys := make([]string, 0, len(sets))
	for k := range sets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		members := sets[k]
		sort.Slice(members, func(i, j int) bool {
			if members[i].Position != members[j].Position {
				return members[i].Position < members[j].Position
			}
			return members[i].ID < members[j].ID
		})
		for i, n := range members {
			if want := int64(i + 1); n.Position != want {
				report.add(n.ID, ProblemPosition, "sibling set %s: position %d, expected %d", k, n.Position, want)
			}
		}
	}

	for _, n := range nodes {
		if n.ParentID == nil {
			continue
		}
		if _, ok := byID[*n.ParentID]; !ok {
			_, err := e.load(ctx, q, *n.ParentID)
			switch {
			case err == nil:
				report.add(n.ID, ProblemParent, "parent %d belongs to another scope", *n.ParentID)
			case errors.Is(err, ErrNotFound):
				report.add(n.ID, ProblemParent, "parent %d does not exist", *n.ParentID)
			default:
				return nil, err
			}
		}
	}

	if e.schema.HasChildCountCache() {
		for _, n := range nodes {
			actual := int64(len(sets[setKey(&n.ID)]))
			if n.ChildCount != actual {
				report.add(n.ID, ProblemChildCount, "caches %d children, has %d", n.ChildCount, actual)
			}
		}
	}

	depths := map[int64]int64{}
	for _, n := range nodes {
		depth, ok := depthOf(n.ID, byID, depths)
		if !ok {
			report.add(n.ID, ProblemCycle, "parent chain does not reach a root")
			continue
		}
		if e.schema.HasDepthCache() && depth >= 0 && n.Depth != depth {
			report.add(n.ID, ProblemDepth, "caches depth %d, is at depth %d", n.Depth, depth)
		}
	}
	return report, nil
}

// depthOf walks the parent chain of id in memory. The depth is -1 when the
// chain leaves the scope, and ok is false when it loops.
func depthOf(id int64, byID map[int64]*forest.Node, memo map[int64]int64) (int64, bool) {
	var chain []int64
	seen := map[int64]bool{}
	above, detached := int64(-1), false
	for cur := id; ; {
		if d, ok := memo[cur]; ok {
			above, detached = d, d < 0
			break
		}
		n, ok := byID[cur]
		if !ok {
			detached = true
			break
		}
		if seen[cur] {
			return 0, false
		}
		seen[cur] = true
		chain = append(chain, cur)
		if n.ParentID == nil {
			break
		}
		cur = *n.ParentID
	}

	for i := len(chain) - 1; i >= 0; i-- {
		if detached {
			memo[chain[i]] = -1
			continue
		}
		above++
		memo[chain[i]] = above
	}
	return memo[id], true
}
