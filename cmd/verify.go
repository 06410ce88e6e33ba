package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/planwave/planwave/internal/verify"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <run-id> <step-id>",
	Short: "Run the verification gate for a step and persist the result",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		runID, stepID := args[0], args[1]

		eng, err := openEngine()
		if err != nil {
			return err
		}
		defer eng.close()

		_, p, err := eng.store.Resume(runID)
		if err != nil {
			return err
		}
		step := p.Step(stepID)
		if step == nil {
			return fmt.Errorf("step %q is not in plan %q", stepID, p.ID)
		}

		cmds := append([]verify.Command(nil), eng.exec.Gate.Commands...)
		if step.VerifyCommand != "" {
			cmds = append(cmds, verify.Command{
				Name: "step_verify", Command: step.VerifyCommand, Required: true,
			})
		}
		gate := verify.New(cmds, eng.exec.WorkDir, eng.cfg.Verification.StopOnFailure)
		res := gate.Run(cmd.Context(), stepID, step.Type)
		if err := eng.store.SaveVerification(runID, res); err != nil {
			return err
		}

		if jsonOutput {
			return json.NewEncoder(os.Stdout).Encode(res)
		}
		fmt.Printf("Verification: %s\n", res.Status)
		for _, c := range res.Commands {
			mark := "ok"
			if c.Skipped {
				mark = "skipped"
			} else if !c.Passed() {
				mark = fmt.Sprintf("exit %d", c.ExitCode)
			}
			fmt.Printf("  %-20s %s\n", c.Name, mark)
		}
		if res.Status == verify.StatusFailed {
			os.Exit(1)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}
