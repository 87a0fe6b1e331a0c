// Package metrics computes the quality-diversity measures reported per
// generation: coverage, QD-score, per-class fitness summaries, and
// population complexity statistics.
package metrics

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gonum.org/v1/gonum/stat"

	"github.com/evoship/evoship/pkg/archive"
	"github.com/evoship/evoship/pkg/evo"
	"github.com/evoship/evoship/pkg/solution"
)

// Coverage is the fraction of bins holding at least one individual of the
// class.
func Coverage(a *archive.Archive, class archive.Class) float64 {
	covered, total := a.Coverage(class)
	if total == 0 {
		return 0
	}
	return float64(covered) / float64(total)
}

// QDScore sums the feasible elite fitness across all covered bins,
// measuring quality and diversity together.
func QDScore(a *archive.Archive) float64 {
	score := 0.0
	for _, row := range a.Bins() {
		for _, b := range row {
			if elite := b.Elite(archive.Feasible); elite != nil {
				score += elite.CFitness
			}
		}
	}
	return score
}

// FitnessMetrics summarizes one class's archived composite fitness. Top
// follows the class's ranking direction: maximum for feasible, minimum for
// infeasible unless a surrogate estimator drives infeasible fitness.
type FitnessMetrics struct {
	Top  float64
	Mean float64
	N    int
}

// ComputeFitnessMetrics collects the fitness summary for a class.
func ComputeFitnessMetrics(a *archive.Archive, class archive.Class) FitnessMetrics {
	maximize := class == archive.Feasible || a.Estimator() != nil
	var values []float64
	for _, row := range a.Bins() {
		for _, b := range row {
			for _, cs := range b.Population(class) {
				values = append(values, cs.CFitness)
			}
		}
	}
	if len(values) == 0 {
		return FitnessMetrics{}
	}
	top := values[0]
	for _, v := range values[1:] {
		if maximize && v > top {
			top = v
		} else if !maximize && v < top {
			top = v
		}
	}
	return FitnessMetrics{
		Top:  top,
		Mean: stat.Mean(values, nil),
		N:    len(values),
	}
}

// NewFeasibleFromInfeasible is the fraction of the population that is
// freshly generated and descends from an infeasible first parent, the
// FI-2Pop repair rate.
func NewFeasibleFromInfeasible(pop []*solution.Solution, arena *solution.Arena, maxAge int) float64 {
	if len(pop) == 0 {
		return 0
	}
	repaired := 0
	for _, cs := range pop {
		if cs.Age != maxAge {
			continue
		}
		parents := arena.Parents(cs)
		if len(parents) > 0 && !parents[0].IsFeasible {
			repaired++
		}
	}
	return float64(repaired) / float64(len(pop))
}

// Complexity summarizes the genotypic complexity of a population as the
// mean and standard deviation of production-string atom counts.
type Complexity struct {
	MeanAtoms   float64
	StdDevAtoms float64
}

// PopulationComplexity measures how elaborate the population's production
// strings have grown.
func PopulationComplexity(pop []*solution.Solution) Complexity {
	if len(pop) == 0 {
		return Complexity{}
	}
	counts := make([]float64, len(pop))
	for i, cs := range pop {
		counts[i] = float64(len(evo.Atoms(cs.HLString)))
	}
	mean, std := stat.MeanStdDev(counts, nil)
	if len(pop) == 1 {
		std = 0
	}
	return Complexity{MeanAtoms: mean, StdDevAtoms: std}
}

var titleCaser = cases.Title(language.English)

// DisplayName renders a metric or descriptor key for reports, e.g.
// "avg-proportions" becomes "Avg Proportions".
func DisplayName(key string) string {
	out := make([]byte, len(key))
	for i := 0; i < len(key); i++ {
		if key[i] == '-' || key[i] == '_' {
			out[i] = ' '
		} else {
			out[i] = key[i]
		}
	}
	return titleCaser.String(string(out))
}
