package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	jsonOutput bool
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "planwave",
	Short: "Durable, resumable plan-execution engine",
	Long:  "planwave — schedule a dependency plan into waves, execute it with bounded concurrency, and resume from any halt.",
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output raw JSON")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "planwave.yaml", "Path to engine configuration")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
