package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	dagerrors "github.com/planwave/planwave/internal/errors"
	"github.com/planwave/planwave/internal/plan"
	"github.com/planwave/planwave/internal/runstore"
)

var runDry bool

var runCmd = &cobra.Command{
	Use:   "run <plan.yaml>",
	Short: "Start a new run of a plan",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := plan.LoadFile(args[0])
		if err != nil {
			return err
		}

		eng, err := openEngine()
		if err != nil {
			return err
		}
		defer eng.close()

		if runDry {
			report, err := eng.exec.DryRun(p)
			if err != nil {
				return err
			}
			if jsonOutput {
				return json.NewEncoder(os.Stdout).Encode(report)
			}
			for _, s := range report {
				fmt.Printf("wave %d  %-20s %s\n", s.Wave, s.StepID, s.Action)
			}
			return nil
		}

		run, execErr := eng.exec.Start(cmd.Context(), p, args[0])
		return report(run, execErr)
	},
}

func init() {
	runCmd.Flags().BoolVar(&runDry, "dry-run", false, "Show what would execute, wave by wave")
	rootCmd.AddCommand(runCmd)
}

// report prints the outcome of a run attempt. Checkpoint halts are a paused
// state, not an error exit.
func report(run *runstore.Run, execErr error) error {
	if run == nil {
		return execErr
	}

	if jsonOutput {
		out := map[string]string{"run_id": run.ID, "status": string(run.Status)}
		var re *dagerrors.RunError
		if errors.As(execErr, &re) {
			out["error_type"] = re.Type
			out["error"] = re.Message
			out["hint"] = re.Hint
		} else if execErr != nil {
			out["error"] = execErr.Error()
		}
		return json.NewEncoder(os.Stdout).Encode(out)
	}

	fmt.Printf("Run ID: %s\n", run.ID)
	fmt.Printf("Status: %s\n", run.Status)
	var re *dagerrors.RunError
	if errors.As(execErr, &re) {
		if re.Type == dagerrors.CheckpointHalt {
			fmt.Printf("Paused: %s\n", re.Message)
			if re.Hint != "" {
				fmt.Printf("  %s\n", re.Hint)
			}
			return nil
		}
		fmt.Printf("Error: %s\n", re.Message)
		if re.Hint != "" {
			fmt.Printf("  Hint: %s\n", re.Hint)
		}
		os.Exit(1)
	}
	if execErr != nil {
		return execErr
	}
	return nil
}
