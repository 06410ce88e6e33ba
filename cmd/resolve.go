package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/planwave/planwave/internal/checkpoint"
)

var resolveResponse string

var resolveCmd = &cobra.Command{
	Use:   "resolve <checkpoint-id>",
	Short: "Resolve a checkpoint with a response",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if resolveResponse == "" {
			return fmt.Errorf("a response is required (--response)")
		}

		eng, err := openEngine()
		if err != nil {
			return err
		}
		defer eng.close()

		mgr := checkpoint.NewManager(eng.store)
		rc, err := mgr.Resolve(args[0], resolveResponse)
		if err != nil {
			return err
		}

		if jsonOutput {
			return json.NewEncoder(os.Stdout).Encode(rc)
		}
		fmt.Printf("Checkpoint resolved. Resume with: planwave resume %s\n", rc.RunID)
		return nil
	},
}

func init() {
	resolveCmd.Flags().StringVar(&resolveResponse, "response", "", "The response the checkpoint is awaiting")
	rootCmd.AddCommand(resolveCmd)
}
