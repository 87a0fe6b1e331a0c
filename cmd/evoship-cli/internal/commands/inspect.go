package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/evoship/evoship/cmd/evoship-cli/internal/display"
	"github.com/evoship/evoship/pkg/archive"
	"github.com/evoship/evoship/pkg/storage"
)

// NewInspectCommand creates the inspect command.
func NewInspectCommand() *cobra.Command {
	var (
		configPath string
		filePath   string
		metric     string
		class      string
		history    int
	)

	cmd := &cobra.Command{
		Use:   "inspect [run-id]",
		Short: "Render heatmaps and history for a stored run or snapshot file",
		Long: `Render a stored archive snapshot as a per-bin heatmap, plus the tail
of the run's generation history. Without a run id the command lists the
runs in the store; with --file it reads a snapshot JSON directly.`,
		Example: `  # List stored runs
  evoship-cli inspect --config evoship.yaml

  # Fitness heatmap of a run's snapshot
  evoship-cli inspect night-1 --config evoship.yaml

  # Age heatmap of the infeasible population from a file
  evoship-cli inspect --file snapshot.json --metric age --class infeasible`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			m, err := parseMetric(metric)
			if err != nil {
				return err
			}
			cls := archive.Class(class)
			if cls != archive.Feasible && cls != archive.Infeasible {
				return fmt.Errorf("unrecognized class %q (choose feasible or infeasible)", class)
			}

			if filePath != "" {
				snap, err := readSnapshotFile(filePath)
				if err != nil {
					return err
				}
				fmt.Println(display.Heatmap(snap, cls, m))
				return nil
			}

			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			store, err := storage.Open(cfg.Storage)
			if err != nil {
				return err
			}
			defer store.Close()

			if len(args) == 0 {
				return listRuns(cmd, store)
			}
			runID := args[0]

			data, err := store.LoadSnapshot(ctx, runID)
			if err != nil {
				return err
			}
			var snap archive.Snapshot
			if err := json.Unmarshal(data, &snap); err != nil {
				return fmt.Errorf("snapshot for run %s is not valid JSON: %w", runID, err)
			}
			fmt.Println(display.Heatmap(&snap, cls, m))

			if history > 0 {
				recs, err := store.Generations(ctx, runID)
				if err != nil {
					return err
				}
				printHistory(recs, history)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to a yaml config file (defaults when omitted)")
	cmd.Flags().StringVarP(&filePath, "file", "f", "", "read a snapshot JSON file instead of the store")
	cmd.Flags().StringVar(&metric, "metric", string(display.MetricFitness), "cell metric: fitness, count or age")
	cmd.Flags().StringVar(&class, "class", string(archive.Feasible), "population to render: feasible or infeasible")
	cmd.Flags().IntVar(&history, "history", 10, "generation history rows to print (0 disables)")
	return cmd
}

func parseMetric(s string) (display.Metric, error) {
	for _, m := range display.Metrics() {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("unrecognized metric %q (choose fitness, count or age)", s)
}

func readSnapshotFile(path string) (*archive.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var snap archive.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%s is not a snapshot file: %w", path, err)
	}
	return &snap, nil
}

func listRuns(cmd *cobra.Command, store storage.Store) error {
	runs, err := store.ListRuns(cmd.Context())
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No stored runs.")
		return nil
	}
	bold := color.New(color.Bold)
	bold.Printf("%-24s %-20s %s\n", "RUN", "CREATED", "GENERATIONS")
	for _, r := range runs {
		fmt.Printf("%-24s %-20s %d\n", r.ID, r.CreatedAt.Format("2006-01-02 15:04:05"), r.Generations)
	}
	return nil
}

func printHistory(recs []storage.GenerationRecord, n int) {
	if len(recs) == 0 {
		return
	}
	if len(recs) > n {
		recs = recs[len(recs)-n:]
	}
	bold := color.New(color.Bold)
	bold.Printf("\n%-6s %-9s %-11s %-9s %-10s %-8s %s\n",
		"GEN", "FEASIBLE", "INFEASIBLE", "COVERAGE", "QD-SCORE", "BEST", "STEP")
	for _, r := range recs {
		fmt.Printf("%-6d %-9d %-11d %-9.3f %-10.3f %-8.3f %s\n",
			r.Generation, r.Feasible, r.Infeasible, r.Coverage, r.QDScore, r.BestFit, r.StepKind)
	}
}
