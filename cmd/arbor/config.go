package main

import (
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/arbor-db/arbor/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the resolved settings",
		Long:  "Print settings after applying defaults, the config file, ARBOR_ environment variables and flags.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, _, err := loadSettings()
			if err != nil {
				return err
			}
			settings.DBPath = settings.ResolvedDBPath()

			return render(cmd.OutOrStdout(), settings, func(w io.Writer) error {
				encoder := yaml.NewEncoder(w)
				encoder.SetIndent(2)
				if err := encoder.Encode(struct {
					config.Settings `yaml:",inline"`
					ConfigFile      string `yaml:"config_file"`
				}{settings, opts.viper.ConfigFileUsed()}); err != nil {
					return err
				}
				return encoder.Close()
			})
		},
	}

	return cmd
}
