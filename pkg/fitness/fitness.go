// Package fitness defines weighted fitness objectives over candidate
// solutions and the stock measures used both as feasible objectives and as
// infeasible representation proxies.
package fitness

import (
	"sort"

	"github.com/evoship/evoship/pkg/solution"
)

// Func is a pure fitness measure over a candidate solution, bounded by the
// owning Objective's Bounds.
type Func func(cs *solution.Solution) float64

// Objective is one named fitness component with declared bounds and a
// mutable weight.
type Objective struct {
	Name   string
	Fn     Func
	Bounds [2]float64
	Weight float64
}

// NewObjective creates an objective with weight 1.
func NewObjective(name string, fn Func, lo, hi float64) *Objective {
	return &Objective{
		Name:   name,
		Fn:     fn,
		Bounds: [2]float64{lo, hi},
		Weight: 1,
	}
}

// Evaluate runs every objective against the solution, in order.
func Evaluate(objectives []*Objective, cs *solution.Solution) []float64 {
	out := make([]float64, len(objectives))
	for i, o := range objectives {
		out[i] = o.Fn(cs)
	}
	return out
}

// WeightedSum combines raw objective values using the objectives' current
// weights. Extra values beyond the objective list are ignored.
func WeightedSum(objectives []*Objective, values []float64) float64 {
	sum := 0.0
	for i, v := range values {
		if i >= len(objectives) {
			break
		}
		sum += objectives[i].Weight * v
	}
	return sum
}

// MaxTotal returns the sum of the objectives' upper bounds, the ceiling of
// any feasible composite fitness before constraint slack.
func MaxTotal(objectives []*Objective) float64 {
	sum := 0.0
	for _, o := range objectives {
		sum += o.Bounds[1]
	}
	return sum
}

// BoxFilling measures how much of the bounding box is filled with blocks.
func BoxFilling(cs *solution.Solution) float64 {
	size := cs.Size()
	vol := size[0] * size[1] * size[2]
	if vol == 0 {
		return 0
	}
	n := cs.NBlocks
	if c := cs.Content(); c != nil {
		n = c.NumBlocks()
	}
	f := float64(n) / float64(vol)
	if f > 1 {
		return 1
	}
	return f
}

// FunctionalBlocks measures the fraction of blocks that are working
// components rather than armor.
func FunctionalBlocks(cs *solution.Solution) float64 {
	c := cs.Content()
	if c == nil || c.NumBlocks() == 0 {
		return 0
	}
	functional := 0
	for _, b := range c.Blocks() {
		if b.IsFunctional() {
			functional++
		}
	}
	return float64(functional) / float64(c.NumBlocks())
}

// MajorMediumProportion measures how close the medium bounding-box axis is
// to the major one: 1 for a balanced footprint, approaching 0 as the shape
// elongates.
func MajorMediumProportion(cs *solution.Solution) float64 {
	major, medium, _ := sortedDims(cs)
	if major == 0 {
		return 0
	}
	return medium / major
}

// MajorMinimumProportion measures how close the smallest bounding-box axis
// is to the major one.
func MajorMinimumProportion(cs *solution.Solution) float64 {
	major, _, minimum := sortedDims(cs)
	if major == 0 {
		return 0
	}
	return minimum / major
}

func sortedDims(cs *solution.Solution) (major, medium, minimum float64) {
	size := cs.Size()
	dims := []float64{float64(size[0]), float64(size[1]), float64(size[2])}
	sort.Float64s(dims)
	return dims[2], dims[1], dims[0]
}

// DefaultObjectives returns the stock feasible objective list.
func DefaultObjectives() []*Objective {
	return []*Objective{
		NewObjective("BoxFilling", BoxFilling, 0, 1),
		NewObjective("FunctionalBlocks", FunctionalBlocks, 0, 1),
		NewObjective("MajorMediumProportion", MajorMediumProportion, 0, 1),
		NewObjective("MajorMinimumProportion", MajorMinimumProportion, 0, 1),
	}
}

// InfeasibleProxies returns the fixed descriptive measures evaluated into an
// infeasible solution's representation.
func InfeasibleProxies() []*Objective {
	return DefaultObjectives()
}
