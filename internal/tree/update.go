package tree

import (
	"fmt"
	"sort"
	"strings"

	"github.com/arbor-db/arbor/internal/forest"
	"github.com/arbor-db/arbor/internal/movement"
	"github.com/arbor-db/arbor/internal/scope"
)

// maxBatch bounds the ids bound into a single IN list.
const maxBatch = 500

type statement struct {
	sql  string
	args []any
}

// builder renders the statements that apply a transition. Every positional
// rewrite is one UPDATE whose CASE expression covers the moving node and all
// the siblings it displaces.
type builder struct {
	s forest.Schema
}

func (b builder) parentCond(parentID *int64) (string, []any) {
	if parentID == nil {
		return b.s.ParentColumn + " IS NULL", nil
	}
	return b.s.ParentColumn + " = ?", []any{*parentID}
}

// siblingsWhere selects the sibling set under parentID within sc.
func (b builder) siblingsWhere(sc scope.Scope, parentID *int64) (string, []any) {
	cond, args := b.parentCond(parentID)
	pred, scopeArgs := scope.Predicate(sc, b.s.ScopeColumns, "")
	if pred == "" {
		return cond, args
	}
	return pred + " AND " + cond, append(scopeArgs, args...)
}

func parentValue(parentID *int64) any {
	if parentID == nil {
		return nil
	}
	return *parentID
}

// move relocates n to a different sibling set, closing the gap it leaves
// and opening one at the destination in the same statement.
func (b builder) move(n *forest.Node, tr movement.Transition) statement {
	s := b.s
	oldCond, oldArgs := b.parentCond(tr.From.ParentID)
	newCond, newArgs := b.parentCond(tr.To.ParentID)

	var (
		sb   strings.Builder
		args []any
	)
	fmt.Fprintf(&sb, "UPDATE %s SET %s = CASE WHEN %s = ? THEN ? ELSE %s END",
		s.Table, s.ParentColumn, s.IDColumn, s.ParentColumn)
	args = append(args, n.ID, parentValue(tr.To.ParentID))

	pos := s.PositionColumn
	fmt.Fprintf(&sb, ", %s = CASE WHEN %s = ? THEN ? WHEN %s AND %s > ? THEN %s - 1 WHEN %s AND %s >= ? THEN %s + 1 ELSE %s END",
		pos, s.IDColumn, oldCond, pos, pos, newCond, pos, pos, pos)
	args = append(args, n.ID, tr.To.Position)
	args = append(args, oldArgs...)
	args = append(args, tr.From.Position)
	args = append(args, newArgs...)
	args = append(args, tr.To.Position)

	if s.HasDepthCache() {
		fmt.Fprintf(&sb, ", %s = CASE WHEN %s = ? THEN ? ELSE %s END", s.DepthColumn, s.IDColumn, s.DepthColumn)
		args = append(args, n.ID, tr.To.Depth)
	}

	where := fmt.Sprintf("(%s = ? OR %s OR %s)", s.IDColumn, oldCond, newCond)
	whereArgs := []any{n.ID}
	whereArgs = append(whereArgs, oldArgs...)
	whereArgs = append(whereArgs, newArgs...)
	if pred, scopeArgs := scope.Predicate(n.Scope, s.ScopeColumns, ""); pred != "" {
		where = pred + " AND " + where
		whereArgs = append(scopeArgs, whereArgs...)
	}
	fmt.Fprintf(&sb, " WHERE %s", where)
	return statement{sql: sb.String(), args: append(args, whereArgs...)}
}

// reorder shifts n within its sibling set. Only rows between the old and new
// position are touched.
func (b builder) reorder(n *forest.Node, tr movement.Transition) statement {
	s := b.s
	lo, hi := tr.From.Position, tr.To.Position
	shift := "- 1"
	if hi < lo {
		lo, hi = hi, lo
		shift = "+ 1"
	}
	where, whereArgs := b.siblingsWhere(n.Scope, tr.From.ParentID)
	sql := fmt.Sprintf("UPDATE %s SET %s = CASE WHEN %s = ? THEN ? ELSE %s %s END WHERE %s AND %s BETWEEN ? AND ?",
		s.Table, s.PositionColumn, s.IDColumn, s.PositionColumn, shift, where, s.PositionColumn)
	args := []any{n.ID, tr.To.Position}
	args = append(args, whereArgs...)
	args = append(args, lo, hi)
	return statement{sql: sql, args: args}
}

// openGap makes room at position for an inserted node.
func (b builder) openGap(sc scope.Scope, parentID *int64, position int64) statement {
	where, args := b.siblingsWhere(sc, parentID)
	sql := fmt.Sprintf("UPDATE %s SET %s = %s + 1 WHERE %s AND %s >= ?",
		b.s.Table, b.s.PositionColumn, b.s.PositionColumn, where, b.s.PositionColumn)
	return statement{sql: sql, args: append(args, position)}
}

// closeGap pulls up the siblings after a removed position.
func (b builder) closeGap(sc scope.Scope, parentID *int64, position int64) statement {
	where, args := b.siblingsWhere(sc, parentID)
	sql := fmt.Sprintf("UPDATE %s SET %s = %s - 1 WHERE %s AND %s > ?",
		b.s.Table, b.s.PositionColumn, b.s.PositionColumn, where, b.s.PositionColumn)
	return statement{sql: sql, args: append(args, position)}
}

// insert adds a row at the target of a create. fields carries payload
// columns and must not name structural ones.
func (b builder) insert(sc scope.Scope, to *movement.Position, fields map[string]any) (statement, error) {
	s := b.s
	cols := []string{s.ParentColumn, s.PositionColumn}
	args := []any{parentValue(to.ParentID), to.Position}
	if s.HasDepthCache() {
		cols = append(cols, s.DepthColumn)
		args = append(args, to.Depth)
	}
	if s.HasChildCountCache() {
		cols = append(cols, s.ChildCountColumn)
		args = append(args, int64(0))
	}
	for _, col := range s.ScopeColumns {
		cols = append(cols, col)
		args = append(args, sc[col])
	}

	structural := map[string]bool{}
	for _, c := range s.Columns() {
		structural[c] = true
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !scope.IsIdentifier(k) {
			return statement{}, fmt.Errorf("invalid field name %q", k)
		}
		if structural[k] {
			return statement{}, fmt.Errorf("field %q is managed by the tree", k)
		}
		cols = append(cols, k)
		args = append(args, fields[k])
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
		s.Table, strings.Join(cols, ", "), placeholders, s.IDColumn)
	return statement{sql: sql, args: args}, nil
}

// deleteRows removes ids, which must list every node after its descendants.
func (b builder) deleteRows(ids []int64) []statement {
	var out []statement
	for _, chunk := range chunks(ids) {
		sql := fmt.Sprintf("DELETE FROM %s WHERE %s IN (%s)", b.s.Table, b.s.IDColumn, placeholders(len(chunk)))
		out = append(out, statement{sql: sql, args: idArgs(chunk)})
	}
	return out
}

// shiftDepth adds delta to the cached depth of ids.
func (b builder) shiftDepth(ids []int64, delta int64) []statement {
	var out []statement
	for _, chunk := range chunks(ids) {
		sql := fmt.Sprintf("UPDATE %s SET %s = %s + ? WHERE %s IN (%s)",
			b.s.Table, b.s.DepthColumn, b.s.DepthColumn, b.s.IDColumn, placeholders(len(chunk)))
		out = append(out, statement{sql: sql, args: append([]any{delta}, idArgs(chunk)...)})
	}
	return out
}

// childCounts applies per-parent deltas to the cached child count.
func (b builder) childCounts(deltas map[int64]int64) (statement, bool) {
	ids := make([]int64, 0, len(deltas))
	for id, d := range deltas {
		if d != 0 {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return statement{}, false
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var (
		sb   strings.Builder
		args []any
	)
	cc := b.s.ChildCountColumn
	fmt.Fprintf(&sb, "UPDATE %s SET %s = %s + CASE", b.s.Table, cc, cc)
	for _, id := range ids {
		fmt.Fprintf(&sb, " WHEN %s = ? THEN ?", b.s.IDColumn)
		args = append(args, id, deltas[id])
	}
	fmt.Fprintf(&sb, " ELSE 0 END WHERE %s IN (%s)", b.s.IDColumn, placeholders(len(ids)))
	return statement{sql: sb.String(), args: append(args, idArgs(ids)...)}, true
}

func chunks(ids []int64) [][]int64 {
	var out [][]int64
	for len(ids) > 0 {
		n := min(len(ids), maxBatch)
		out = append(out, ids[:n])
		ids = ids[n:]
	}
	return out
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func idArgs(ids []int64) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}
