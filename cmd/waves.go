package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/planwave/planwave/internal/plan"
	"github.com/planwave/planwave/internal/wave"
)

var wavesCmd = &cobra.Command{
	Use:   "waves <plan.yaml>",
	Short: "Print the computed wave schedule for a plan",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := plan.LoadFile(args[0])
		if err != nil {
			return err
		}
		if errs := plan.Validate(p); len(errs) > 0 {
			return errs[0]
		}
		res := wave.Assign(p)

		if jsonOutput {
			return json.NewEncoder(os.Stdout).Encode(res.Waves)
		}
		for w := 1; w <= res.Waves.MaxWave(); w++ {
			fmt.Printf("wave %d:\n", w)
			for _, s := range res.Waves.Steps(p, w) {
				fmt.Printf("  %-20s %s\n", s.ID, s.Action)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(wavesCmd)
}
