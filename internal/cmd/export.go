package cmd

import (
	"github.com/spf13/cobra"
)

var exportDestination string

var exportCmd = &cobra.Command{
	Use:   "export <campaign-id>",
	Short: "Hand a recorded run to its channel and record the attempt",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		rec, err := a.Export(cmd.Context(), args[0], exportDestination)
		if err != nil {
			return err
		}
		return printJSON(cmd, rec)
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&exportDestination, "destination", "d", "", "Recipient address, phone number or webhook")
}
