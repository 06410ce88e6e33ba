package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status <run-id>",
	Short: "Show a run's progress",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := openEngine()
		if err != nil {
			return err
		}
		defer eng.close()

		prog, err := eng.store.Progress(args[0])
		if err != nil {
			return err
		}

		if jsonOutput {
			return json.NewEncoder(os.Stdout).Encode(prog)
		}
		fmt.Printf("Status:    %s\n", prog.Status)
		fmt.Printf("Completed: %d/%d\n", prog.Completed, prog.Total)
		if prog.Failed > 0 {
			fmt.Printf("Failed:    %d\n", prog.Failed)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
