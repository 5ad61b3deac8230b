// Package traversal answers ancestor and descendant queries over an ordered
// tree table. Two interchangeable strategies are provided: Naive walks one
// row at a time and Recursive issues a single recursive CTE.
package traversal

import (
	"context"
	"fmt"

	"github.com/arbor-db/arbor/internal/database"
	sqldb "github.com/arbor-db/arbor/internal/database/sqlc"
	"github.com/arbor-db/arbor/internal/forest"
)

// Strategy names.
const (
	NaiveName     = "naive"
	RecursiveName = "recursive"
)

// Strategy returns related nodes of n read through q. Ancestors are ordered
// root first; descendants are in pre-order with siblings ascending by
// position. Every method returns an empty result for a destroyed node, and
// Descendants is empty for a node that was never saved. Only nodes in the
// same scope as n are returned.
type Strategy interface {
	Name() string
	Ancestors(ctx context.Context, q sqldb.DBTX, n *forest.Node) ([]forest.Node, error)
	SelfAndAncestors(ctx context.Context, q sqldb.DBTX, n *forest.Node) ([]forest.Node, error)
	Descendants(ctx context.Context, q sqldb.DBTX, n *forest.Node) ([]forest.Node, error)
	SelfAndDescendants(ctx context.Context, q sqldb.DBTX, n *forest.Node) ([]forest.Node, error)
}

// New returns the strategy registered under name.
func New(name string, schema forest.Schema, dialect database.Dialect) (Strategy, error) {
	switch name {
	case "", RecursiveName:
		return NewRecursive(schema, dialect), nil
	case NaiveName:
		return NewNaive(schema), nil
	default:
		return nil, fmt.Errorf("unknown traversal strategy %q", name)
	}
}

// withSelf prepends or appends n to related nodes, shared by both strategies.
func withSelf(n *forest.Node, related []forest.Node, first bool) []forest.Node {
	out := make([]forest.Node, 0, len(related)+1)
	if first {
		out = append(out, *n)
		return append(out, related...)
	}
	out = append(out, related...)
	return append(out, *n)
}

func hasParent(n *forest.Node) bool {
	return n != nil && !n.Destroyed && n.ParentID != nil
}
