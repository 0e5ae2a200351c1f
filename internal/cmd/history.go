package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xaenox/outreach-router/internal/models"
	"github.com/xaenox/outreach-router/internal/storage"
)

var (
	historyLimit    int
	activityLimit   int
	activityChannel string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent pipeline runs and export totals",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		campaigns, err := a.History(cmd.Context(), historyLimit)
		if err != nil {
			return err
		}
		stats, err := a.ExportStats(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(cmd, struct {
			TotalShown int                 `json:"total_shown"`
			Campaigns  []*models.Campaign  `json:"campaigns"`
			Exports    []models.ExportStat `json:"exports_by_channel"`
		}{len(campaigns), campaigns, stats})
	},
}

var activityCmd = &cobra.Command{
	Use:   "activity",
	Short: "List audit entries, optionally for one channel",
	RunE: func(cmd *cobra.Command, args []string) error {
		filter := models.AuditFilter{Limit: activityLimit}
		if activityChannel != "" {
			ch, ok := models.ParseChannel(activityChannel)
			if !ok {
				return fmt.Errorf("unknown channel %q", activityChannel)
			}
			filter.Channel = ch
		}

		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		records, err := a.Activity(cmd.Context(), filter)
		if err != nil {
			return err
		}
		return printJSON(cmd, records)
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(activityCmd)

	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", storage.DefaultCampaignLimit, "Number of runs to show")
	activityCmd.Flags().IntVarP(&activityLimit, "limit", "n", storage.DefaultAuditLimit, "Number of entries to show")
	activityCmd.Flags().StringVar(&activityChannel, "channel", "", "Only show entries for this channel")
}
