package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var checkpointsCmd = &cobra.Command{
	Use:   "checkpoints",
	Short: "List unresolved checkpoints across all runs in the project",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := openEngine()
		if err != nil {
			return err
		}
		defer eng.close()

		cps, err := eng.store.ListPendingCheckpoints(eng.cfg.Project)
		if err != nil {
			return err
		}

		if jsonOutput {
			return json.NewEncoder(os.Stdout).Encode(cps)
		}
		if len(cps) == 0 {
			fmt.Println("No pending checkpoints.")
			return nil
		}
		for _, cp := range cps {
			fmt.Printf("%s  run=%s  step=%s\n", cp.ID, cp.RunID, cp.CurrentTask)
			fmt.Printf("  Blocker:  %s\n", cp.Blocker)
			fmt.Printf("  Awaiting: %s\n", cp.Awaiting)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkpointsCmd)
}
