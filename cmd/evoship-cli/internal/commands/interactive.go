package commands

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/evoship/evoship/cmd/evoship-cli/internal/picker"
	"github.com/evoship/evoship/cmd/evoship-cli/internal/runner"
	"github.com/evoship/evoship/pkg/logging"
)

// NewInteractiveCommand creates the interactive command.
func NewInteractiveCommand() *cobra.Command {
	var (
		configPath string
		runID      string
	)

	cmd := &cobra.Command{
		Use:   "interactive",
		Short: "Steer a search by hand, one bin selection at a time",
		Long: `Launch the interactive bin picker. The archive grid is shown with
per-bin population counts; mark the bins to breed from and step the
search one generation at a time. A snapshot is stored on exit.`,
		Aliases: []string{"i"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if !term.IsTerminal(int(os.Stdout.Fd())) {
				return fmt.Errorf("interactive mode requires a terminal")
			}

			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			session, err := setupLogging(cfg)
			if err != nil {
				return err
			}

			search, err := runner.New(cfg, runner.StepRandom, runID)
			if err != nil {
				return err
			}
			defer search.Close()

			ctx := cmd.Context()
			if session != nil {
				ctx = logging.WithTraceSession(ctx, session)
				defer session.Close()
			}
			if err := search.Archive.GenerateInitialPopulations(ctx); err != nil {
				return err
			}

			p := tea.NewProgram(picker.New(search), tea.WithAltScreen())
			if _, err := p.Run(); err != nil {
				return fmt.Errorf("error running interactive mode: %w", err)
			}

			if err := search.SaveSnapshot(ctx); err != nil {
				return err
			}
			fmt.Printf("Snapshot saved under run %s\n", search.RunID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to a yaml config file (defaults when omitted)")
	cmd.Flags().StringVar(&runID, "run-id", "", "run identifier in the store (generated when omitted)")
	return cmd
}
