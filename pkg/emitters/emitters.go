// Package emitters implements the bin-selection strategies an archive step
// can delegate to: random, elite-optimising, greedy and preference-matrix
// emitters, resolved through a name registry so bandit arms and snapshots
// can reference them.
package emitters

import (
	"encoding/json"
	"math/rand"

	"github.com/evoship/evoship/pkg/archive"
	"github.com/evoship/evoship/pkg/errors"
)

const (
	NameRandom           = "random"
	NameOptimising       = "optimising"
	NameOptimisingV2     = "optimising-v2"
	NameGreedy           = "greedy"
	NamePreferenceMatrix = "preference-matrix"
)

// FromName builds an emitter by registry name. The rng is used by the
// stochastic emitters and owned by the caller.
func FromName(name string, rng *rand.Rand) (archive.Emitter, error) {
	switch name {
	case NameRandom:
		return NewRandomEmitter(rng), nil
	case NameOptimising:
		return NewOptimisingEmitter(), nil
	case NameOptimisingV2:
		return NewOptimisingEmitterV2(), nil
	case NameGreedy:
		return NewGreedyEmitter(), nil
	case NamePreferenceMatrix:
		return NewHumanPrefMatrixEmitter(rng), nil
	default:
		return nil, errors.WithFields(
			errors.New(errors.UnsupportedEmitter, "unrecognized emitter name"),
			errors.Fields{"name": name})
	}
}

// Lookup adapts FromName to the archive's lookup contract.
func Lookup(rng *rand.Rand) archive.EmitterLookup {
	return func(name string) (archive.Emitter, error) {
		return FromName(name, rng)
	}
}

// Names lists the registered emitter names.
func Names() []string {
	return []string{NameRandom, NameOptimising, NameOptimisingV2, NameGreedy, NamePreferenceMatrix}
}

// base provides the no-op lifecycle shared by the stateless emitters.
type base struct{}

func (base) RequiresInit() bool { return false }
func (base) RequiresPre() bool  { return false }
func (base) RequiresPost() bool { return false }

func (base) Init(grid [][]*archive.Bin) {}
func (base) PreStep(grid [][]*archive.Bin, selected, expanded [][2]int, bounds [2][2]float64) {
}
func (base) PostStep(grid [][]*archive.Bin) {}
func (base) Reset()                         {}

func nonEmptyBins(grid [][]*archive.Bin) []*archive.Bin {
	var out []*archive.Bin
	for _, row := range grid {
		for _, b := range row {
			if b.NonEmpty(archive.Feasible) || b.NonEmpty(archive.Infeasible) {
				out = append(out, b)
			}
		}
	}
	return out
}

// RandomEmitter picks one uniformly random non-empty bin.
type RandomEmitter struct {
	base
	rng *rand.Rand
}

func NewRandomEmitter(rng *rand.Rand) *RandomEmitter {
	return &RandomEmitter{rng: rng}
}

func (e *RandomEmitter) Name() string { return NameRandom }

func (e *RandomEmitter) PickBins(grid [][]*archive.Bin) (archive.Selection, error) {
	bins := nonEmptyBins(grid)
	if len(bins) == 0 {
		return archive.Selection{}, nil
	}
	return archive.Selection{Flat: []*archive.Bin{bins[e.rng.Intn(len(bins))]}}, nil
}

func (e *RandomEmitter) State() ([]byte, error) {
	return json.Marshal(map[string]string{"name": NameRandom})
}

// OptimisingEmitter picks the bin whose feasible elite has the highest
// composite fitness, exploiting the best known region of behavior space.
type OptimisingEmitter struct {
	base
}

func NewOptimisingEmitter() *OptimisingEmitter { return &OptimisingEmitter{} }

func (e *OptimisingEmitter) Name() string { return NameOptimising }

func (e *OptimisingEmitter) PickBins(grid [][]*archive.Bin) (archive.Selection, error) {
	best := bestEliteBin(grid, archive.Feasible)
	if best == nil {
		return archive.Selection{}, nil
	}
	return archive.Selection{Flat: []*archive.Bin{best}}, nil
}

func (e *OptimisingEmitter) State() ([]byte, error) {
	return json.Marshal(map[string]string{"name": NameOptimising})
}

// OptimisingEmitterV2 picks the best-elite bin per class separately, so
// the feasible pool can exploit while the infeasible pool repairs its own
// most promising region.
type OptimisingEmitterV2 struct {
	base
}

func NewOptimisingEmitterV2() *OptimisingEmitterV2 { return &OptimisingEmitterV2{} }

func (e *OptimisingEmitterV2) Name() string { return NameOptimisingV2 }

func (e *OptimisingEmitterV2) PickBins(grid [][]*archive.Bin) (archive.Selection, error) {
	sel := archive.Selection{}
	if b := bestEliteBin(grid, archive.Feasible); b != nil {
		sel.Feasible = []*archive.Bin{b}
	}
	if b := bestEliteBin(grid, archive.Infeasible); b != nil {
		sel.Infeasible = []*archive.Bin{b}
	}
	return sel, nil
}

func (e *OptimisingEmitterV2) State() ([]byte, error) {
	return json.Marshal(map[string]string{"name": NameOptimisingV2})
}

// bestEliteBin returns the bin with the best class elite, following the
// bin's own ranking direction through Metric.
func bestEliteBin(grid [][]*archive.Bin, class archive.Class) *archive.Bin {
	var best *archive.Bin
	var bestF float64
	for _, row := range grid {
		for _, b := range row {
			if !b.NonEmpty(class) {
				continue
			}
			f := b.Metric(archive.MetricFitness, false, class)
			if best == nil || f > bestF {
				best, bestF = b, f
			}
		}
	}
	return best
}

// GreedyEmitter picks the most populated bin, betting that crowded regions
// of behavior space have the most evolutionary material to work with.
type GreedyEmitter struct {
	base
}

func NewGreedyEmitter() *GreedyEmitter { return &GreedyEmitter{} }

func (e *GreedyEmitter) Name() string { return NameGreedy }

func (e *GreedyEmitter) PickBins(grid [][]*archive.Bin) (archive.Selection, error) {
	var best *archive.Bin
	bestN := 0
	for _, row := range grid {
		for _, b := range row {
			n := b.Len(archive.Feasible) + b.Len(archive.Infeasible)
			if n > bestN {
				best, bestN = b, n
			}
		}
	}
	if best == nil {
		return archive.Selection{}, nil
	}
	return archive.Selection{Flat: []*archive.Bin{best}}, nil
}

func (e *GreedyEmitter) State() ([]byte, error) {
	return json.Marshal(map[string]string{"name": NameGreedy})
}
