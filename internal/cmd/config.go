package cmd

import (
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration with credentials masked",
	RunE: func(cmd *cobra.Command, args []string) error {
		return printJSON(cmd, cfg.Redacted())
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}
