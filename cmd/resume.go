package cmd

import (
	"github.com/spf13/cobra"
)

var resumeCmd = &cobra.Command{
	Use:   "resume <run-id>",
	Short: "Resume a run from its last durably saved state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := openEngine()
		if err != nil {
			return err
		}
		defer eng.close()

		run, execErr := eng.exec.Resume(cmd.Context(), args[0])
		return report(run, execErr)
	},
}

func init() {
	rootCmd.AddCommand(resumeCmd)
}
