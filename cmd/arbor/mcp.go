package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/arbor-db/arbor/internal/config"
	"github.com/arbor-db/arbor/internal/mcp"
)

func newMCPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server",
		Long:  "Start the Model Context Protocol server for arbor on stdio. Logs go to --log-file or the data directory.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, _, err := loadSettings()
			if err != nil {
				return err
			}

			// stdout carries the protocol
			logPath := opts.logFile
			if logPath == "" {
				logPath = config.GetLogPath()
			}
			if err := os.MkdirAll(filepath.Dir(logPath), 0o750); err != nil {
				return err
			}
			logData, err := newLogger(logPath)
			if err != nil {
				return err
			}
			defer func() {
				_ = logData.Close()
			}()

			ctx := context.Background()
			server, err := mcp.NewServer(ctx, settings, version, logData.Logger)
			if err != nil {
				logData.Logger.Error().Err(err).Msg("failed to create MCP server")
				return err
			}
			return server.Run(ctx)
		},
	}

	return cmd
}
