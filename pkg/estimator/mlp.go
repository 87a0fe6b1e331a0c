package estimator

import (
	"math"
	"math/rand"

	"github.com/evoship/evoship/pkg/errors"
)

// mlp is a one-hidden-layer tanh network trained with plain SGD. Both MLP
// estimators share it and differ only in output width and loss gradient.
type mlp struct {
	hidden       int
	outputs      int
	epochs       int
	learningRate float64

	w1 [][]float64 // [hidden][inputs]
	b1 []float64
	w2 [][]float64 // [outputs][hidden]
	b2 []float64

	inputs  int
	trained bool
	rng     *rand.Rand
}

func newMLP(hidden, outputs, epochs int, learningRate float64) *mlp {
	if hidden <= 0 {
		hidden = 16
	}
	if epochs <= 0 {
		epochs = 20
	}
	if learningRate <= 0 {
		learningRate = 1e-2
	}
	return &mlp{
		hidden:       hidden,
		outputs:      outputs,
		epochs:       epochs,
		learningRate: learningRate,
		rng:          rand.New(rand.NewSource(1)),
	}
}

func (m *mlp) init(inputs int) {
	m.inputs = inputs
	scale := 1 / math.Sqrt(float64(inputs))
	m.w1 = make([][]float64, m.hidden)
	m.b1 = make([]float64, m.hidden)
	for h := range m.w1 {
		m.w1[h] = make([]float64, inputs)
		for i := range m.w1[h] {
			m.w1[h][i] = m.rng.NormFloat64() * scale
		}
	}
	m.w2 = make([][]float64, m.outputs)
	m.b2 = make([]float64, m.outputs)
	for o := range m.w2 {
		m.w2[o] = make([]float64, m.hidden)
		for h := range m.w2[o] {
			m.w2[o][h] = m.rng.NormFloat64() / math.Sqrt(float64(m.hidden))
		}
	}
}

func (m *mlp) forward(x []float64) (hidden, out []float64) {
	hidden = make([]float64, m.hidden)
	for h := 0; h < m.hidden; h++ {
		sum := m.b1[h]
		for i := 0; i < m.inputs && i < len(x); i++ {
			sum += m.w1[h][i] * x[i]
		}
		hidden[h] = math.Tanh(sum)
	}
	out = make([]float64, m.outputs)
	for o := 0; o < m.outputs; o++ {
		sum := m.b2[o]
		for h := 0; h < m.hidden; h++ {
			sum += m.w2[o][h] * hidden[h]
		}
		out[o] = sum
	}
	return hidden, out
}

// fit runs SGD over the dataset. gradOut maps (prediction, target) to the
// output-layer error gradient, which is the only place the two estimator
// losses differ.
func (m *mlp) fit(xs [][]float64, ys []float64, gradOut func(pred []float64, y float64) []float64) error {
	if len(xs) == 0 || len(xs) != len(ys) {
		return errors.WithFields(
			errors.New(errors.InvalidInput, "estimator needs matching non-empty inputs and targets"),
			errors.Fields{"inputs": len(xs), "targets": len(ys)})
	}
	if !m.trained || m.inputs != len(xs[0]) {
		m.init(len(xs[0]))
	}
	order := make([]int, len(xs))
	for i := range order {
		order[i] = i
	}
	for epoch := 0; epoch < m.epochs; epoch++ {
		m.rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
		for _, idx := range order {
			x, y := xs[idx], ys[idx]
			hidden, out := m.forward(x)
			dOut := gradOut(out, y)

			dHidden := make([]float64, m.hidden)
			for o := 0; o < m.outputs; o++ {
				for h := 0; h < m.hidden; h++ {
					dHidden[h] += dOut[o] * m.w2[o][h]
					m.w2[o][h] -= m.learningRate * dOut[o] * hidden[h]
				}
				m.b2[o] -= m.learningRate * dOut[o]
			}
			for h := 0; h < m.hidden; h++ {
				grad := dHidden[h] * (1 - hidden[h]*hidden[h])
				for i := 0; i < m.inputs && i < len(x); i++ {
					m.w1[h][i] -= m.learningRate * grad * x[i]
				}
				m.b1[h] -= m.learningRate * grad
			}
		}
	}
	m.trained = true
	return nil
}

// PointMLP is the point-estimate surrogate: one regression output trained
// with squared error.
type PointMLP struct {
	net *mlp
}

// NewPointMLP creates the point estimator.
func NewPointMLP(hidden, epochs int, learningRate float64) *PointMLP {
	return &PointMLP{net: newMLP(hidden, 1, epochs, learningRate)}
}

func (p *PointMLP) Fit(xs [][]float64, ys []float64) error {
	return p.net.fit(xs, ys, func(pred []float64, y float64) []float64 {
		return []float64{pred[0] - y}
	})
}

func (p *PointMLP) Predict(x []float64) []float64 {
	if !p.net.trained {
		return []float64{0}
	}
	_, out := p.net.forward(x)
	return out
}

func (p *PointMLP) IsTrained() bool { return p.net.trained }

func (p *PointMLP) Kind() Kind { return KindPoint }

// quantileTaus are the order statistics the quantile estimator predicts:
// a low bound, the median, and a high bound.
var quantileTaus = [3]float64{0.05, 0.5, 0.95}

// QuantileMLP is the quantile surrogate: three outputs trained with
// pinball loss, predicting the (min, median, max) order statistics.
type QuantileMLP struct {
	net *mlp
}

// NewQuantileMLP creates the quantile estimator.
func NewQuantileMLP(hidden, epochs int, learningRate float64) *QuantileMLP {
	return &QuantileMLP{net: newMLP(hidden, 3, epochs, learningRate)}
}

func (q *QuantileMLP) Fit(xs [][]float64, ys []float64) error {
	return q.net.fit(xs, ys, func(pred []float64, y float64) []float64 {
		grad := make([]float64, 3)
		for i, tau := range quantileTaus {
			if y >= pred[i] {
				grad[i] = -tau
			} else {
				grad[i] = 1 - tau
			}
		}
		return grad
	})
}

// Predict returns the quantile triple, sorted so crossing quantiles never
// leave the caller with min > max.
func (q *QuantileMLP) Predict(x []float64) []float64 {
	if !q.net.trained {
		return []float64{0, 0, 0}
	}
	_, out := q.net.forward(x)
	if out[0] > out[1] {
		out[0], out[1] = out[1], out[0]
	}
	if out[1] > out[2] {
		out[1], out[2] = out[2], out[1]
	}
	if out[0] > out[1] {
		out[0], out[1] = out[1], out[0]
	}
	return out
}

func (q *QuantileMLP) IsTrained() bool { return q.net.trained }

func (q *QuantileMLP) Kind() Kind { return KindQuantile }
