package usecase

import (
	"github.com/rs/zerolog"

	"github.com/arbor-db/arbor/internal/config"
	"github.com/arbor-db/arbor/internal/database"
	"github.com/arbor-db/arbor/internal/forest"
	"github.com/arbor-db/arbor/internal/traversal"
	"github.com/arbor-db/arbor/internal/tree"
)

// NewEngine builds the tree engine for the bundled nodes table from runtime
// settings.
func NewEngine(dbCtx *database.Context, settings config.Settings, log zerolog.Logger) (*tree.Engine, error) {
	schema := forest.DefaultSchema()
	strategy, err := traversal.New(settings.Strategy, schema, dbCtx.Dialect)
	if err != nil {
		return nil, err
	}
	retrier := database.NewRetrier(dbCtx,
		database.WithMaxAttempts(settings.MaxAttempts),
		database.WithBaseDelay(settings.BaseDelay),
		database.WithRetryLogger(log),
	)
	return tree.New(dbCtx, schema,
		tree.WithStrategy(strategy),
		tree.WithRetrier(retrier),
		tree.WithLogger(log),
		tree.WithVerify(settings.Verify),
	)
}
