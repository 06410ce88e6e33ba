package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/planwave/planwave/internal/plan"
)

var validateCmd = &cobra.Command{
	Use:   "validate <plan.yaml>",
	Short: "Validate a plan file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := plan.LoadFile(args[0])
		if err != nil {
			return err
		}
		errs := plan.Validate(p)
		if len(errs) > 0 {
			if jsonOutput {
				msgs := make([]string, len(errs))
				for i, e := range errs {
					msgs[i] = e.Error()
				}
				json.NewEncoder(os.Stdout).Encode(map[string]any{"valid": false, "errors": msgs})
			} else {
				fmt.Fprintln(os.Stderr, "Validation failed:")
				for _, e := range errs {
					fmt.Fprintf(os.Stderr, "  %s\n", e)
				}
			}
			os.Exit(1)
		}
		if jsonOutput {
			json.NewEncoder(os.Stdout).Encode(map[string]any{"valid": true})
		} else {
			fmt.Println("Plan is valid.")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
