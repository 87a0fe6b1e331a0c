// Package behavior defines the behavior descriptors used as the archive's
// grid axes: scalar measurements of a solution with declared bounds.
package behavior

import (
	"sort"

	"github.com/evoship/evoship/pkg/errors"
	"github.com/evoship/evoship/pkg/solution"
)

// Func measures one behavior dimension of a solution.
type Func func(cs *solution.Solution) float64

// Descriptor is a named behavior measurement; Bounds span the archive axis
// it is used on.
type Descriptor struct {
	Name   string
	Fn     Func
	Bounds [2]float64
}

// Measure applies the descriptor, clamping into its bounds.
func (d *Descriptor) Measure(cs *solution.Solution) float64 {
	v := d.Fn(cs)
	if v < d.Bounds[0] {
		return d.Bounds[0]
	}
	if v > d.Bounds[1] {
		return d.Bounds[1]
	}
	return v
}

// MajorMedium is the ratio between the largest and the medium bounding-box
// axis: 1 for balanced shapes, growing as the ship elongates.
func MajorMedium(cs *solution.Solution) float64 {
	major, medium, _ := sortedDims(cs)
	if medium == 0 {
		return 0
	}
	return major / medium
}

// MajorMinimum is the ratio between the largest and the smallest
// bounding-box axis.
func MajorMinimum(cs *solution.Solution) float64 {
	major, _, minimum := sortedDims(cs)
	if minimum == 0 {
		return 0
	}
	return major / minimum
}

// AvgProportions is the mean bounding-box extent in cells.
func AvgProportions(cs *solution.Solution) float64 {
	size := cs.Size()
	return float64(size[0]+size[1]+size[2]) / 3
}

// Symmetry scores mirror symmetry of the occupancy grid: the best fraction
// of occupied cells whose mirrored cell is also occupied, over the X and Z
// mirror planes. Solutions without content score 0.
func Symmetry(cs *solution.Solution) float64 {
	c := cs.Content()
	if c == nil {
		return 0
	}
	grid := c.AsGridArray()
	dx := len(grid)
	if dx == 0 {
		return 0
	}
	dy := len(grid[0])
	dz := len(grid[0][0])

	occupied, mirroredX, mirroredZ := 0, 0, 0
	for i := 0; i < dx; i++ {
		for j := 0; j < dy; j++ {
			for k := 0; k < dz; k++ {
				if grid[i][j][k] == 0 {
					continue
				}
				occupied++
				if grid[dx-1-i][j][k] != 0 {
					mirroredX++
				}
				if grid[i][j][dz-1-k] != 0 {
					mirroredZ++
				}
			}
		}
	}
	if occupied == 0 {
		return 0
	}
	best := mirroredX
	if mirroredZ > best {
		best = mirroredZ
	}
	return float64(best) / float64(occupied)
}

func sortedDims(cs *solution.Solution) (major, medium, minimum float64) {
	size := cs.Size()
	dims := []float64{float64(size[0]), float64(size[1]), float64(size[2])}
	sort.Float64s(dims)
	return dims[2], dims[1], dims[0]
}

// Stock returns all built-in descriptors.
func Stock() []*Descriptor {
	return []*Descriptor{
		{Name: "mame", Fn: MajorMedium, Bounds: [2]float64{0, 10}},
		{Name: "mami", Fn: MajorMinimum, Bounds: [2]float64{0, 10}},
		{Name: "avg-proportions", Fn: AvgProportions, Bounds: [2]float64{0, 20}},
		{Name: "symmetry", Fn: Symmetry, Bounds: [2]float64{0, 1}},
	}
}

// FromName resolves a stock descriptor by name.
func FromName(name string) (*Descriptor, error) {
	for _, d := range Stock() {
		if d.Name == name {
			return d, nil
		}
	}
	return nil, errors.WithFields(
		errors.New(errors.InvalidInput, "unknown behavior descriptor"),
		errors.Fields{"name": name})
}

// Default returns the stock descriptor pair used for new archives.
func Default() [2]*Descriptor {
	mame, _ := FromName("mame")
	mami, _ := FromName("mami")
	return [2]*Descriptor{mame, mami}
}
