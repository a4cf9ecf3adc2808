package main

import (
	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration as YAML",
	Long: `Config prints the configuration after merging the config file,
PAPER_ENGINE_* environment variables, flags, and .secrets/. The API key is
redacted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(loadConfig().Redacted())
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}
