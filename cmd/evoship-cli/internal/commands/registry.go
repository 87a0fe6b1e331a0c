package commands

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/evoship/evoship/pkg/emitters"
	"github.com/evoship/evoship/pkg/estimator"
	"github.com/evoship/evoship/pkg/metrics"
)

var emitterBlurbs = map[string]string{
	emitters.NameRandom:           "Uniform choice over non-empty bins.",
	emitters.NameOptimising:       "Best feasible elite bin plus one random companion.",
	emitters.NameOptimisingV2:     "Best elite bin per population, paired selection.",
	emitters.NameGreedy:           "Most populated bin.",
	emitters.NamePreferenceMatrix: "Weighted sampling over a decaying human-preference matrix.",
}

var estimatorBlurbs = map[estimator.Kind]string{
	estimator.KindGaussian: "Gaussian process, exact posterior mean over the buffer.",
	estimator.KindPoint:    "Single hidden layer MLP, one fitness estimate.",
	estimator.KindQuantile: "Quantile MLP, (min, median, max) fitness triple.",
}

// NewEmittersCommand creates the emitters list command.
func NewEmittersCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "emitters",
		Short: "List the available emitters",
		Run: func(cmd *cobra.Command, args []string) {
			bold := color.New(color.Bold)
			bold.Println("Available emitters")
			for _, name := range emitters.Names() {
				fmt.Printf("  %-20s %s\n", name, emitterBlurbs[name])
			}
			fmt.Println("\nSet archive.emitter in the config, or let 'run --mode bandit' pick per generation.")
		},
	}
}

// NewEstimatorsCommand creates the estimators list command.
func NewEstimatorsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "estimators",
		Short: "List the available surrogate estimators",
		Run: func(cmd *cobra.Command, args []string) {
			bold := color.New(color.Bold)
			bold.Println("Available estimators")
			for _, kind := range []estimator.Kind{estimator.KindGaussian, estimator.KindPoint, estimator.KindQuantile} {
				fmt.Printf("  %-12s %-10s %s\n", kind, metrics.DisplayName(string(kind)), estimatorBlurbs[kind])
			}
			fmt.Println("\nSet estimator.kind in the config; leave it empty to search without a surrogate.")
		},
	}
}
