package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xaenox/outreach-router/internal/seed"
)

var seedFile string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load ICP profiles from a YAML file and rebuild the index",
	Long: `Embeds every profile in the seed file, upserts it into storage and the
similarity index, and saves the index file. Run it while no pipeline runs are
being served.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		profiles, err := seed.LoadProfiles(seedFile)
		if err != nil {
			return err
		}

		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Seed(cmd.Context(), profiles); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d profiles from %s\n", len(profiles), seedFile)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
	seedCmd.Flags().StringVarP(&seedFile, "file", "f", "configs/icps.yaml", "Seed file with ICP profiles")
}
