package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var nextCmd = &cobra.Command{
	Use:   "next <run-id>",
	Short: "Show the next ready step for a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := openEngine()
		if err != nil {
			return err
		}
		defer eng.close()

		_, p, err := eng.store.Resume(args[0])
		if err != nil {
			return err
		}
		step := p.NextStep(p.CompletedIDs())

		if jsonOutput {
			if step == nil {
				return json.NewEncoder(os.Stdout).Encode(map[string]any{"step": nil})
			}
			return json.NewEncoder(os.Stdout).Encode(step)
		}
		if step == nil {
			fmt.Println("No step is ready.")
			return nil
		}
		fmt.Printf("%s  (wave %d)  %s\n", step.ID, step.Wave, step.Action)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(nextCmd)
}
