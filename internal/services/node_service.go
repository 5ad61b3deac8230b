package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/arbor-db/arbor/internal/database"
	"github.com/arbor-db/arbor/internal/forest"
	"github.com/arbor-db/arbor/internal/movement"
	"github.com/arbor-db/arbor/internal/scope"
	"github.com/arbor-db/arbor/internal/tree"
)

// ErrNotFound is returned when a requested node is not found.
var ErrNotFound = errors.New("node not found")

// NodeService exposes named nodes of the bundled nodes table. Structure goes
// through the tree engine, payload through the node repository.
type NodeService struct {
	ctx    *database.Context
	engine *tree.Engine
	repo   *database.NodeRepository
}

// NewNodeService creates a new NodeService.
func NewNodeService(ctx *database.Context, engine *tree.Engine) *NodeService {
	return &NodeService{
		ctx:    ctx,
		engine: engine,
		repo:   database.NewNodeRepository(ctx),
	}
}

// Engine returns the tree engine the service writes through.
func (s *NodeService) Engine() *tree.Engine { return s.engine }

// AddInput describes a node to create. A nil ParentID creates a root of Tree.
type AddInput struct {
	Tree     string
	ParentID *int64
	Position int64
	Name     string
}

// Add creates a named node and returns its stored row.
func (s *NodeService) Add(ctx context.Context, input AddInput) (*database.NodeRecord, error) {
	req := tree.CreateRequest{
		ParentID: input.ParentID,
		Position: input.Position,
		Fields:   map[string]any{"name": input.Name},
	}
	if input.ParentID == nil {
		req.Scope = scope.NewTree(input.Tree)
	}

	var record *database.NodeRecord
	err := s.engine.Retrier().Do(ctx, nil, func(ctx context.Context, tx *database.Tx) error {
		if input.ParentID != nil {
			parent, err := s.repo.FindByID(ctx, tx, *input.ParentID)
			if err != nil {
				return err
			}
			if parent == nil {
				return fmt.Errorf("%w: %d", ErrNotFound, *input.ParentID)
			}
			if input.Tree != "" && parent.TreeID != input.Tree {
				return fmt.Errorf("%w: parent %d belongs to tree %q", tree.ErrScopeMismatch, parent.ID, parent.TreeID)
			}
		}

		res, err := s.engine.Create(ctx, tx, req)
		if err != nil {
			return err
		}
		record, err = s.repo.FindByID(ctx, tx, res.Node.ID)
		return err
	})
	if err != nil {
		return nil, mapNotFound(err)
	}
	return record, nil
}

// Get returns a node by id.
func (s *NodeService) Get(ctx context.Context, id int64) (*database.NodeRecord, error) {
	record, err := s.repo.FindByID(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return record, nil
}

// Resolve finds a node of treeID by numeric id or by name. Names resolve to
// the shallowest match.
func (s *NodeService) Resolve(ctx context.Context, treeID, ref string) (*database.NodeRecord, error) {
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		record, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if record.TreeID != treeID {
			return nil, fmt.Errorf("%w: %d is not in tree %q", ErrNotFound, id, treeID)
		}
		return record, nil
	}

	record, err := s.repo.FindByName(ctx, treeID, ref)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, fmt.Errorf("%w: %q in tree %q", ErrNotFound, ref, treeID)
	}
	return record, nil
}

// Rename changes the name of a node.
func (s *NodeService) Rename(ctx context.Context, id int64, name string) error {
	err := s.repo.Rename(ctx, nil, id, name)
	if errors.Is(err, database.ErrNotFound) {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return err
}

// MoveInput selects where a node goes. Before and After take precedence over
// ParentID and Position; Root moves to the roots of the node's tree.
type MoveInput struct {
	ParentID *int64
	Position int64
	Root     bool
	Before   *int64
	After    *int64
}

// Move relocates a node and bumps its updated_at unless nothing changed.
func (s *NodeService) Move(ctx context.Context, id int64, input MoveInput) (*tree.Result, error) {
	var result *tree.Result
	err := s.engine.Retrier().Do(ctx, nil, func(ctx context.Context, tx *database.Tx) error {
		var err error
		switch {
		case input.Before != nil:
			result, err = s.engine.MoveToLeftOf(ctx, tx, id, *input.Before)
		case input.After != nil:
			result, err = s.engine.MoveToRightOf(ctx, tx, id, *input.After)
		case input.Root:
			result, err = s.engine.Move(ctx, tx, id, nil, input.Position)
		default:
			if input.ParentID == nil {
				return fmt.Errorf("%w: no destination given", tree.ErrInvalidMove)
			}
			result, err = s.engine.Move(ctx, tx, id, input.ParentID, input.Position)
		}
		if err != nil {
			return err
		}
		if result.Kind == movement.NoOp {
			return nil
		}
		return s.repo.Touch(ctx, tx, id)
	})
	if err != nil {
		return nil, mapNotFound(err)
	}
	return result, nil
}

// Delete removes a node with its subtree and reports how many rows went.
func (s *NodeService) Delete(ctx context.Context, id int64) (int, error) {
	res, err := s.engine.Destroy(ctx, nil, id)
	if err != nil {
		return 0, mapNotFound(err)
	}
	return res.Removed, nil
}

// OutlineRow is one node of a rendered tree.
type OutlineRow struct {
	Record database.NodeRecord
	Level  int64
}

// Outline lists a tree, or the subtree under rootID when it is non-nil, in
// pre-order.
func (s *NodeService) Outline(ctx context.Context, treeID string, rootID *int64) ([]OutlineRow, error) {
	records, err := s.repo.ListByTree(ctx, treeID)
	if err != nil {
		return nil, err
	}

	var ordered []forest.Node
	if rootID != nil {
		ordered, err = s.engine.SelfAndDescendants(ctx, *rootID)
		if err != nil {
			return nil, mapNotFound(err)
		}
	} else {
		roots, err := s.engine.Roots(ctx, scope.NewTree(treeID))
		if err != nil {
			return nil, err
		}
		for _, r := range roots {
			sub, err := s.engine.SelfAndDescendants(ctx, r.ID)
			if err != nil {
				return nil, err
			}
			ordered = append(ordered, sub...)
		}
	}

	rows := make([]OutlineRow, 0, len(ordered))
	for _, n := range ordered {
		record, ok := records[n.ID]
		if !ok {
			continue
		}
		rows = append(rows, OutlineRow{Record: record, Level: record.Depth})
	}
	return rows, nil
}

// Ancestors returns the named ancestors of a node, root first.
func (s *NodeService) Ancestors(ctx context.Context, id int64) ([]database.NodeRecord, error) {
	nodes, err := s.engine.Ancestors(ctx, id)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return s.records(ctx, nodes)
}

// Descendants returns the named descendants of a node in pre-order.
func (s *NodeService) Descendants(ctx context.Context, id int64) ([]database.NodeRecord, error) {
	nodes, err := s.engine.Descendants(ctx, id)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return s.records(ctx, nodes)
}

// Check runs an integrity check over a tree.
func (s *NodeService) Check(ctx context.Context, treeID string) (*tree.Report, error) {
	return s.engine.Check(ctx, scope.NewTree(treeID))
}

func (s *NodeService) records(ctx context.Context, nodes []forest.Node) ([]database.NodeRecord, error) {
	out := make([]database.NodeRecord, 0, len(nodes))
	for _, n := range nodes {
		record, err := s.repo.FindByID(ctx, nil, n.ID)
		if err != nil {
			return nil, err
		}
		if record != nil {
			out = append(out, *record)
		}
	}
	return out, nil
}

func mapNotFound(err error) error {
	if errors.Is(err, tree.ErrNotFound) && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return err
}
