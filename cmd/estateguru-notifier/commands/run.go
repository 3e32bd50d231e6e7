package commands

import (
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Scans the listing once and notifies about every eligible loan.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer a.shutdown()

		return runOnce(cmd.Context(), a)
	},
}
