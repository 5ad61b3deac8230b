package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/arbor-db/arbor/internal/config"
)

type globalOptions struct {
	viper   *viper.Viper
	verbose bool
	logFile string
	format  string
}

var opts = &globalOptions{viper: config.NewViper()}

var rootCmd = &cobra.Command{
	Use:          "arbor",
	Short:        "arbor - ordered trees stored in SQL tables",
	Long:         "arbor keeps named nodes in ordered trees backed by SQLite or PostgreSQL, with gap-free sibling positions and cached depth and child counts.",
	SilenceUsage: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("tree", "", "Tree to operate on (default from config)")
	pf.String("driver", "", "Database driver: sqlite or postgres")
	pf.String("dsn", "", "PostgreSQL connection string")
	pf.String("db", "", "SQLite database path")
	pf.String("strategy", "", "Traversal strategy: naive or recursive")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "Log debug output")
	pf.StringVar(&opts.logFile, "log-file", "", "Append logs to this file instead of stderr")
	pf.StringVar(&opts.format, "format", formatText, "Output format: text, json, or yaml")

	for key, flag := range map[string]string{
		"tree":     "tree",
		"driver":   "driver",
		"dsn":      "dsn",
		"db_path":  "db",
		"strategy": "strategy",
	} {
		_ = opts.viper.BindPFlag(key, pf.Lookup(flag))
	}

	rootCmd.AddCommand(newAddCmd())
	rootCmd.AddCommand(newMoveCmd())
	rootCmd.AddCommand(newDeleteCmd())
	rootCmd.AddCommand(newRenameCmd())
	rootCmd.AddCommand(newShowCmd())
	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newAncestorsCmd())
	rootCmd.AddCommand(newDescendantsCmd())
	rootCmd.AddCommand(newCheckCmd())
	rootCmd.AddCommand(newTreesCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newMCPCmd())
}
