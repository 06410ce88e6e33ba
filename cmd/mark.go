package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/planwave/planwave/internal/plan"
	"github.com/planwave/planwave/internal/runstore"
)

var markError string

// markStatuses maps CLI verbs to durable step statuses.
var markStatuses = map[string]plan.StepStatus{
	"started":   plan.StatusInProgress,
	"completed": plan.StatusCompleted,
	"failed":    plan.StatusFailed,
	"skipped":   plan.StatusSkipped,
}

var markCmd = &cobra.Command{
	Use:   "mark <run-id> <step-id> <started|completed|failed|skipped>",
	Short: "Record a step transition made by an external worker",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		runID, stepID, verb := args[0], args[1], args[2]
		status, ok := markStatuses[verb]
		if !ok {
			return fmt.Errorf("unknown status %q (want started, completed, failed or skipped)", verb)
		}

		eng, err := openEngine()
		if err != nil {
			return err
		}
		defer eng.close()

		run, p, err := eng.store.Resume(runID)
		if err != nil {
			return err
		}
		if p.Step(stepID) == nil {
			return fmt.Errorf("step %q is not in plan %q", stepID, p.ID)
		}

		now := time.Now().UTC()
		sr := runstore.StepResult{StepID: stepID, Status: status, Error: markError}
		if prev := run.Result(stepID); prev != nil {
			sr.StartedAt = prev.StartedAt
			sr.Output = prev.Output
		}
		switch status {
		case plan.StatusInProgress:
			sr.StartedAt = &now
		default:
			sr.EndedAt = &now
		}
		run.SetResult(sr)
		run.CurrentStep = stepID
		if status == plan.StatusFailed {
			run.Status = runstore.RunFailed
		}
		if err := eng.store.Save(run); err != nil {
			return err
		}

		if !jsonOutput {
			fmt.Printf("Step %s marked %s.\n", stepID, verb)
		}
		return nil
	},
}

func init() {
	markCmd.Flags().StringVar(&markError, "error", "", "Error text for a failed step")
	rootCmd.AddCommand(markCmd)
}
