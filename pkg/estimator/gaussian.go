package estimator

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/evoship/evoship/pkg/errors"
)

// GaussianProcess is an RBF-kernel Gaussian-process regressor. Fitting
// factorizes the kernel matrix with a Cholesky decomposition; prediction
// returns the posterior mean.
type GaussianProcess struct {
	lengthScale float64
	alpha       float64

	xs      [][]float64
	weights *mat.VecDense
	trained bool
}

// NewGaussianProcess creates a GP with unit length scale and a small
// jitter term on the kernel diagonal.
func NewGaussianProcess() *GaussianProcess {
	return &GaussianProcess{
		lengthScale: 1.0,
		alpha:       1e-6,
	}
}

// Fit factorizes K(xs, xs) + alpha*I and solves for the dual weights.
// Refitting replaces the previous model entirely.
func (g *GaussianProcess) Fit(xs [][]float64, ys []float64) error {
	if len(xs) == 0 || len(xs) != len(ys) {
		return errors.WithFields(
			errors.New(errors.InvalidInput, "gaussian process needs matching non-empty inputs and targets"),
			errors.Fields{"inputs": len(xs), "targets": len(ys)})
	}
	n := len(xs)
	k := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			v := g.kernel(xs[i], xs[j])
			if i == j {
				v += g.alpha
			}
			k.SetSym(i, j, v)
		}
	}
	var chol mat.Cholesky
	if ok := chol.Factorize(k); !ok {
		return errors.New(errors.InvalidInput, "kernel matrix is not positive definite")
	}
	w := mat.NewVecDense(n, nil)
	if err := chol.SolveVecTo(w, mat.NewVecDense(n, ys)); err != nil {
		return errors.Wrap(err, errors.InvalidInput, "cholesky solve failed")
	}
	g.xs = make([][]float64, n)
	for i, x := range xs {
		g.xs[i] = append([]float64(nil), x...)
	}
	g.weights = w
	g.trained = true
	return nil
}

// Predict returns the posterior mean at x as a single-element slice. An
// untrained model predicts zero.
func (g *GaussianProcess) Predict(x []float64) []float64 {
	if !g.trained {
		return []float64{0}
	}
	mean := 0.0
	for i, xi := range g.xs {
		mean += g.weights.AtVec(i) * g.kernel(x, xi)
	}
	return []float64{mean}
}

func (g *GaussianProcess) IsTrained() bool { return g.trained }

func (g *GaussianProcess) Kind() Kind { return KindGaussian }

func (g *GaussianProcess) kernel(a, b []float64) float64 {
	d := 0.0
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		diff := a[i] - b[i]
		d += diff * diff
	}
	return math.Exp(-d / (2 * g.lengthScale * g.lengthScale))
}
