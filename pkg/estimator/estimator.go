// Package estimator implements the surrogate fitness models used for the
// infeasible population: a Gaussian process, a point-estimate MLP, and a
// quantile MLP, behind a single tagged-kind interface, plus the bounded
// training buffer feeding them.
package estimator

import (
	"github.com/evoship/evoship/pkg/config"
	"github.com/evoship/evoship/pkg/errors"
	"github.com/evoship/evoship/pkg/solution"
)

// Kind tags the concrete estimator variant. Dispatch always goes through
// the tag so an unrecognized kind fails in exactly one place.
type Kind string

const (
	KindGaussian Kind = "gaussian"
	KindPoint    Kind = "point"
	KindQuantile Kind = "quantile"
)

// Estimator is the surrogate-model contract. Predict returns one value for
// point estimators and the (min, median, max) triple for quantile ones;
// callers index into it with their configured order statistic.
type Estimator interface {
	Fit(xs [][]float64, ys []float64) error
	Predict(x []float64) []float64
	IsTrained() bool
	Kind() Kind
}

// New builds an estimator from its kind tag. An empty kind returns nil
// without error, meaning no surrogate is configured; an unknown kind is a
// configuration bug and fails with UnsupportedEstimator.
func New(kind Kind, cfg config.EstimatorConfig) (Estimator, error) {
	switch kind {
	case "":
		return nil, nil
	case KindGaussian:
		return NewGaussianProcess(), nil
	case KindPoint:
		return NewPointMLP(cfg.HiddenSize, cfg.Epochs, cfg.LearningRate), nil
	case KindQuantile:
		return NewQuantileMLP(cfg.HiddenSize, cfg.Epochs, cfg.LearningRate), nil
	default:
		return nil, errors.WithFields(
			errors.New(errors.UnsupportedEstimator, "unrecognized estimator kind"),
			errors.Fields{"kind": string(kind)})
	}
}

// PrepareDataset extracts (representation, composite fitness) training
// pairs from a feasible population, skipping solutions without a
// representation.
func PrepareDataset(fpop []*solution.Solution) (xs [][]float64, ys []float64) {
	for _, cs := range fpop {
		if len(cs.Representation) == 0 {
			continue
		}
		xs = append(xs, append([]float64(nil), cs.Representation...))
		ys = append(ys, cs.CFitness)
	}
	return xs, ys
}
