package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/arbor-db/arbor/internal/database"
	"github.com/arbor-db/arbor/internal/forest"
	"github.com/arbor-db/arbor/internal/services"
	"github.com/arbor-db/arbor/internal/tree"
)

// Node orchestrates named-node operations for the CLI and the MCP server.
// Nodes are referenced by id or by name within a tree.
type Node struct {
	nodeService *services.NodeService
	treeService *services.TreeService
}

func NewNode(dbCtx *database.Context, engine *tree.Engine) *Node {
	return &Node{
		nodeService: services.NewNodeService(dbCtx, engine),
		treeService: services.NewTreeService(dbCtx, engine.Retrier()),
	}
}

// NodeView is the render-ready form of one node.
type NodeView struct {
	ID         int64  `json:"id" yaml:"id"`
	Tree       string `json:"tree" yaml:"tree"`
	Name       string `json:"name" yaml:"name"`
	ParentID   *int64 `json:"parent_id,omitempty" yaml:"parent_id,omitempty"`
	Position   int64  `json:"position" yaml:"position"`
	Depth      int64  `json:"depth" yaml:"depth"`
	ChildCount int64  `json:"child_count" yaml:"child_count"`
	Path       string `json:"path,omitempty" yaml:"path,omitempty"`
	UpdatedAt  string `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
}

func viewOf(r database.NodeRecord) NodeView {
	v := NodeView{
		ID:         r.ID,
		Tree:       r.TreeID,
		Name:       r.Name,
		ParentID:   r.ParentID,
		Position:   r.Position,
		Depth:      r.Depth,
		ChildCount: r.ChildCount,
	}
	if !r.UpdatedAt.IsZero() {
		v.UpdatedAt = r.UpdatedAt.Format(time.RFC3339)
	}
	return v
}

type AddInput struct {
	Tree     string
	Name     string
	Parent   string
	Position int64
}

func (u *Node) Add(ctx context.Context, input AddInput) (*NodeView, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, fmt.Errorf("name must not be empty")
	}
	add := services.AddInput{Tree: input.Tree, Name: input.Name, Position: input.Position}
	if input.Parent != "" {
		parent, err := u.nodeService.Resolve(ctx, input.Tree, input.Parent)
		if err != nil {
			return nil, err
		}
		add.ParentID = forest.ParentRef(parent.ID)
	}
	record, err := u.nodeService.Add(ctx, add)
	if err != nil {
		return nil, err
	}
	v := viewOf(*record)
	return &v, nil
}

type MoveInput struct {
	Tree     string
	Node     string
	Parent   string
	Before   string
	After    string
	Root     bool
	Position int64
}

type MoveResult struct {
	Node NodeView `json:"node" yaml:"node"`
	Kind string   `json:"kind" yaml:"kind"`
	From string   `json:"from,omitempty" yaml:"from,omitempty"`
	To   string   `json:"to,omitempty" yaml:"to,omitempty"`
}

func (u *Node) Move(ctx context.Context, input MoveInput) (*MoveResult, error) {
	targets := 0
	for _, set := range []bool{input.Parent != "", input.Before != "", input.After != "", input.Root} {
		if set {
			targets++
		}
	}
	if targets != 1 {
		return nil, fmt.Errorf("exactly one of parent, before, after or root is required")
	}

	node, err := u.nodeService.Resolve(ctx, input.Tree, input.Node)
	if err != nil {
		return nil, err
	}

	move := services.MoveInput{Root: input.Root, Position: input.Position}
	resolve := func(ref string) (*int64, error) {
		r, err := u.nodeService.Resolve(ctx, input.Tree, ref)
		if err != nil {
			return nil, err
		}
		return forest.ParentRef(r.ID), nil
	}
	switch {
	case input.Parent != "":
		move.ParentID, err = resolve(input.Parent)
	case input.Before != "":
		move.Before, err = resolve(input.Before)
	case input.After != "":
		move.After, err = resolve(input.After)
	}
	if err != nil {
		return nil, err
	}

	res, err := u.nodeService.Move(ctx, node.ID, move)
	if err != nil {
		return nil, err
	}
	record, err := u.nodeService.Get(ctx, node.ID)
	if err != nil {
		return nil, err
	}

	out := &MoveResult{Node: viewOf(*record), Kind: res.Kind.String()}
	if from := res.Transition.From; from != nil {
		out.From = from.String()
	}
	if to := res.Transition.To; to != nil {
		out.To = to.String()
	}
	return out, nil
}

func (u *Node) Delete(ctx context.Context, treeID, ref string) (int, error) {
	node, err := u.nodeService.Resolve(ctx, treeID, ref)
	if err != nil {
		return 0, err
	}
	return u.nodeService.Delete(ctx, node.ID)
}

func (u *Node) Rename(ctx context.Context, treeID, ref, name string) (*NodeView, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("name must not be empty")
	}
	node, err := u.nodeService.Resolve(ctx, treeID, ref)
	if err != nil {
		return nil, err
	}
	if err := u.nodeService.Rename(ctx, node.ID, name); err != nil {
		return nil, err
	}
	record, err := u.nodeService.Get(ctx, node.ID)
	if err != nil {
		return nil, err
	}
	v := viewOf(*record)
	return &v, nil
}

// Show returns a tree, or the subtree under ref, in pre-order with each
// node's slash-separated path from its root.
func (u *Node) Show(ctx context.Context, treeID, ref string) ([]NodeView, error) {
	var rootID *int64
	if ref != "" {
		node, err := u.nodeService.Resolve(ctx, treeID, ref)
		if err != nil {
			return nil, err
		}
		rootID = forest.ParentRef(node.ID)
	}

	rows, err := u.nodeService.Outline(ctx, treeID, rootID)
	if err != nil {
		return nil, err
	}

	// the outline is pre-order, so a parent's path is known before its children
	paths := map[int64]string{}
	out := make([]NodeView, 0, len(rows))
	for _, row := range rows {
		v := viewOf(row.Record)
		v.Path = row.Record.Name
		if row.Record.ParentID != nil {
			if parent, ok := paths[*row.Record.ParentID]; ok {
				v.Path = parent + "/" + row.Record.Name
			}
		}
		paths[v.ID] = v.Path
		out = append(out, v)
	}
	return out, nil
}

func (u *Node) Ancestors(ctx context.Context, treeID, ref string) ([]NodeView, error) {
	node, err := u.nodeService.Resolve(ctx, treeID, ref)
	if err != nil {
		return nil, err
	}
	records, err := u.nodeService.Ancestors(ctx, node.ID)
	if err != nil {
		return nil, err
	}
	return views(records), nil
}

func (u *Node) Descendants(ctx context.Context, treeID, ref string) ([]NodeView, error) {
	node, err := u.nodeService.Resolve(ctx, treeID, ref)
	if err != nil {
		return nil, err
	}
	records, err := u.nodeService.Descendants(ctx, node.ID)
	if err != nil {
		return nil, err
	}
	return views(records), nil
}

func (u *Node) Check(ctx context.Context, treeID string) (*tree.Report, error) {
	return u.nodeService.Check(ctx, treeID)
}

func (u *Node) Trees(ctx context.Context) ([]database.TreeCounts, error) {
	return u.treeService.List(ctx)
}

func (u *Node) DeleteTree(ctx context.Context, treeID string) (int64, error) {
	return u.treeService.Delete(ctx, treeID)
}

func (u *Node) DeleteAllTrees() error {
	return u.treeService.Clear()
}

func views(records []database.NodeRecord) []NodeView {
	out := make([]NodeView, 0, len(records))
	for _, r := range records {
		out = append(out, viewOf(r))
	}
	return out
}
