package main

import (
	"context"
	"os"

	"github.com/rs/zerolog"

	"github.com/arbor-db/arbor/internal/config"
	"github.com/arbor-db/arbor/internal/database"
	"github.com/arbor-db/arbor/internal/logger"
	"github.com/arbor-db/arbor/internal/scope"
	"github.com/arbor-db/arbor/internal/usecase"
)

// app bundles what a command needs once settings are resolved.
type app struct {
	settings config.Settings
	tree     string
	logData  *logger.LogData
	dbCtx    *database.Context
	nodes    *usecase.Node
}

func loadSettings() (config.Settings, string, error) {
	settings, err := config.Load(opts.viper)
	if err != nil {
		return config.Settings{}, "", err
	}
	sc, err := scope.ResolveScope(scope.ScopeOptions{DefaultTree: settings.Tree})
	if err != nil {
		return config.Settings{}, "", err
	}
	return settings, sc.Tree(), nil
}

func newLogger(path string) (*logger.LogData, error) {
	level := zerolog.WarnLevel
	if opts.verbose {
		level = zerolog.DebugLevel
	}
	return logger.New().
		Level(level).
		FromBuffer(os.Stderr).
		FromPath(path).
		Console(true).
		Make()
}

func openApp(ctx context.Context) (*app, error) {
	settings, tree, err := loadSettings()
	if err != nil {
		return nil, err
	}

	logData, err := newLogger(opts.logFile)
	if err != nil {
		return nil, err
	}

	dbCtx, err := database.Open(ctx, settings)
	if err != nil {
		_ = logData.Close()
		return nil, err
	}

	engine, err := usecase.NewEngine(dbCtx, settings, logData.Logger)
	if err != nil {
		_ = database.CloseDatabase(dbCtx)
		_ = logData.Close()
		return nil, err
	}

	logData.Logger.Debug().
		Str("driver", settings.Driver).
		Str("strategy", settings.Strategy).
		Str("tree", tree).
		Msg("opened database")

	return &app{
		settings: settings,
		tree:     tree,
		logData:  logData,
		dbCtx:    dbCtx,
		nodes:    usecase.NewNode(dbCtx, engine),
	}, nil
}

func (a *app) Close() error {
	err := database.CloseDatabase(a.dbCtx)
	if cerr := a.logData.Close(); err == nil {
		err = cerr
	}
	return err
}
