package services

import (
	"context"

	"github.com/arbor-db/arbor/internal/database"
)

// TreeService provides operations over whole trees of the nodes table.
type TreeService struct {
	ctx     *database.Context
	repo    *database.NodeRepository
	retrier *database.Retrier
}

func NewTreeService(ctx *database.Context, retrier *database.Retrier) *TreeService {
	if retrier == nil {
		retrier = database.NewRetrier(ctx)
	}
	return &TreeService{
		ctx:     ctx,
		repo:    database.NewNodeRepository(ctx),
		retrier: retrier,
	}
}

// List summarizes every tree that has at least one node.
func (s *TreeService) List(ctx context.Context) ([]database.TreeCounts, error) {
	return s.repo.CountTrees(ctx)
}

// Delete removes every node of a tree and returns how many rows went.
func (s *TreeService) Delete(ctx context.Context, treeID string) (int64, error) {
	var deleted int64
	err := s.retrier.Do(ctx, nil, func(ctx context.Context, tx *database.Tx) error {
		n, err := s.repo.DeleteTree(ctx, tx, treeID)
		deleted = n
		return err
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

// Clear removes every node of every tree.
func (s *TreeService) Clear() error {
	return database.ClearDatabase(s.ctx)
}
