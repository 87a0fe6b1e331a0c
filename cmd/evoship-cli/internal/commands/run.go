package commands

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/evoship/evoship/cmd/evoship-cli/internal/runner"
	"github.com/evoship/evoship/pkg/config"
	"github.com/evoship/evoship/pkg/logging"
)

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	var (
		configPath     string
		mode           string
		generations    int
		runID          string
		saveSnapshot   bool
		flightRecorder bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a search from a config file",
		Long: `Run a full evolution loop: generate the initial populations, then
step the archive for the configured number of generations, recording
per-generation metrics in the run store.

Step modes:
  random   uniform parent selection over valid bins
  emitter  the configured emitter picks the parent bins
  bandit   a UCB agent picks the emitter and merge rule each generation`,
		Example: `  # Run 100 generations with the defaults
  evoship-cli run --generations 100

  # Run with a config file, letting the bandit steer
  evoship-cli run --config evoship.yaml --mode bandit --run-id night-1`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			session, err := setupLogging(cfg)
			if err != nil {
				return err
			}
			if flightRecorder {
				logging.InitGlobalFlightRecorder()
			}

			search, err := runner.New(cfg, runner.StepMode(mode), runID)
			if err != nil {
				return err
			}
			defer search.Close()

			if generations == 0 {
				generations = cfg.Search.Generations
			}
			ctx := cmd.Context()
			if session != nil {
				ctx = logging.WithTraceSession(ctx, session)
				defer session.Close()
			}

			bold := color.New(color.Bold)
			bold.Printf("Run %s: %d generations, %s steps\n", search.RunID, generations, mode)

			err = search.Run(ctx, generations, func(p runner.Progress) {
				fmt.Printf("gen %4d  feasible %4d  infeasible %4d  coverage %5.1f%%  qd %8.3f  best %6.3f\n",
					p.Generation, p.Feasible, p.Infeasible, 100*p.Coverage, p.QDScore, p.BestFit)
			})
			if err != nil {
				return err
			}

			if saveSnapshot {
				if err := search.SaveSnapshot(ctx); err != nil {
					return err
				}
				color.Green("Snapshot saved under run %s", search.RunID)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to a yaml config file (defaults when omitted)")
	cmd.Flags().StringVarP(&mode, "mode", "m", string(runner.StepRandom), "step mode: random, emitter or bandit")
	cmd.Flags().IntVarP(&generations, "generations", "g", 0, "generations to run (0 uses the config value)")
	cmd.Flags().StringVar(&runID, "run-id", "", "run identifier in the store (generated when omitted)")
	cmd.Flags().BoolVar(&saveSnapshot, "save-snapshot", true, "store an archive snapshot when the run finishes")
	cmd.Flags().BoolVar(&flightRecorder, "flight-recorder", false, "keep an in-memory runtime trace window and dump it when a step fails")
	return cmd
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.GetDefaultConfig(), nil
	}
	manager, err := config.NewManager(config.WithConfigPath(path))
	if err != nil {
		return nil, err
	}
	if err := manager.Load(); err != nil {
		return nil, err
	}
	return manager.Get(), nil
}

// setupLogging installs the global logger from the config's output list and
// opens a trace session when a trace output is configured. The caller owns
// the returned session and must Close it; it is nil without a trace output.
func setupLogging(cfg *config.Config) (*logging.TraceSession, error) {
	var outputs []logging.Output
	var session *logging.TraceSession
	for _, out := range cfg.Logging.Outputs {
		switch out.Type {
		case "console":
			outputs = append(outputs, logging.NewConsoleOutput(true, logging.WithColor(out.Colors)))
		case "trace":
			if session != nil {
				continue
			}
			ts, err := logging.NewTraceSession(out.FilePath,
				logging.WithTraceRotation(out.Rotation.MaxSize, out.Rotation.MaxFiles))
			if err != nil {
				return nil, fmt.Errorf("failed to open trace output %s: %w", out.FilePath, err)
			}
			session = ts
		}
	}
	if len(outputs) == 0 {
		outputs = append(outputs, logging.NewConsoleOutput(true, logging.WithColor(true)))
	}
	logging.SetLogger(logging.NewLogger(logging.Config{
		Severity:      logging.ParseSeverity(cfg.Logging.Level),
		Outputs:       outputs,
		SampleRate:    cfg.Logging.SampleRate,
		DefaultFields: cfg.Logging.DefaultFields,
	}))
	return session, nil
}
