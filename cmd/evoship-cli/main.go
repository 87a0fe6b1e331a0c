package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/evoship/evoship/cmd/evoship-cli/internal/commands"
)

var rootCmd = &cobra.Command{
	Use:   "evoship-cli",
	Short: "Quality-diversity search over grammar-grown spaceships",
	Long: `A command-line interface for running, inspecting, and steering
evoship searches without writing boilerplate code.

The CLI provides:
- Config-driven evolution runs with selectable step modes
- Heatmap views of archive snapshots
- An interactive bin picker for human-guided steps
- Emitter and estimator discovery`,
	Version: "0.1.0",
}

func main() {
	rootCmd.AddCommand(commands.NewRunCommand())
	rootCmd.AddCommand(commands.NewInspectCommand())
	rootCmd.AddCommand(commands.NewInteractiveCommand())
	rootCmd.AddCommand(commands.NewEmittersCommand())
	rootCmd.AddCommand(commands.NewEstimatorsCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
