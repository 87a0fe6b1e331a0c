package emitters

import (
	"encoding/json"
	"math/rand"

	"github.com/evoship/evoship/pkg/archive"
	"github.com/evoship/evoship/pkg/errors"
)

// decay is the multiplicative preference fade applied to unselected bins
// on every pre-step update.
const decay = 0.9

// HumanPrefMatrixEmitter learns a per-bin preference weight from the bins
// a human picks during interactive sessions and samples future selections
// proportionally to it. The matrix tracks the grid through subdivisions.
type HumanPrefMatrixEmitter struct {
	rng    *rand.Rand
	matrix [][]float64
}

func NewHumanPrefMatrixEmitter(rng *rand.Rand) *HumanPrefMatrixEmitter {
	return &HumanPrefMatrixEmitter{rng: rng}
}

func (e *HumanPrefMatrixEmitter) Name() string { return NamePreferenceMatrix }

func (e *HumanPrefMatrixEmitter) RequiresInit() bool { return true }
func (e *HumanPrefMatrixEmitter) RequiresPre() bool  { return true }
func (e *HumanPrefMatrixEmitter) RequiresPost() bool { return false }

// Init sizes the preference matrix to the grid, seeding non-empty bins
// with a uniform preference.
func (e *HumanPrefMatrixEmitter) Init(grid [][]*archive.Bin) {
	e.matrix = make([][]float64, len(grid))
	for i, row := range grid {
		e.matrix[i] = make([]float64, len(row))
		for j, b := range row {
			if b.NonEmpty(archive.Feasible) || b.NonEmpty(archive.Infeasible) {
				e.matrix[i][j] = 1
			}
		}
	}
}

// PreStep reinforces the bins the human selected and fades the rest.
// Expanded indices arrive already remapped to the post-subdivision grid.
func (e *HumanPrefMatrixEmitter) PreStep(grid [][]*archive.Bin, selected, expanded [][2]int, bounds [2][2]float64) {
	if len(e.matrix) != len(grid) || (len(grid) > 0 && len(e.matrix[0]) != len(grid[0])) {
		e.Init(grid)
	}
	for i := range e.matrix {
		for j := range e.matrix[i] {
			e.matrix[i][j] *= decay
		}
	}
	for _, idx := range selected {
		if idx[0] >= 0 && idx[0] < len(e.matrix) && idx[1] >= 0 && idx[1] < len(e.matrix[0]) {
			e.matrix[idx[0]][idx[1]] += 1
		}
	}
}

func (e *HumanPrefMatrixEmitter) PostStep(grid [][]*archive.Bin) {}

// PickBins samples one bin proportionally to preference, restricted to
// bins that hold individuals.
func (e *HumanPrefMatrixEmitter) PickBins(grid [][]*archive.Bin) (archive.Selection, error) {
	if len(e.matrix) != len(grid) || (len(grid) > 0 && len(e.matrix[0]) != len(grid[0])) {
		e.Init(grid)
	}
	total := 0.0
	for i, row := range grid {
		for j, b := range row {
			if b.NonEmpty(archive.Feasible) || b.NonEmpty(archive.Infeasible) {
				total += e.matrix[i][j]
			}
		}
	}
	if total <= 0 {
		return archive.Selection{}, nil
	}
	r := e.rng.Float64() * total
	for i, row := range grid {
		for j, b := range row {
			if !b.NonEmpty(archive.Feasible) && !b.NonEmpty(archive.Infeasible) {
				continue
			}
			r -= e.matrix[i][j]
			if r <= 0 {
				return archive.Selection{Flat: []*archive.Bin{b}}, nil
			}
		}
	}
	return archive.Selection{}, nil
}

// IncreaseResolution grows the matrix with the grid when the bin at index
// subdivides: the split row and column are duplicated with their
// preference halved across the two halves.
func (e *HumanPrefMatrixEmitter) IncreaseResolution(index [2]int) {
	i, j := index[0], index[1]
	if i >= len(e.matrix) || len(e.matrix) == 0 || j >= len(e.matrix[0]) {
		return
	}
	next := make([][]float64, 0, len(e.matrix)+1)
	for m, row := range e.matrix {
		expanded := make([]float64, 0, len(row)+1)
		for n, v := range row {
			if n == j {
				expanded = append(expanded, v/2, v/2)
			} else {
				expanded = append(expanded, v)
			}
		}
		if m == i {
			half := make([]float64, len(expanded))
			for n, v := range expanded {
				half[n] = v / 2
				expanded[n] = v / 2
			}
			next = append(next, expanded, half)
		} else {
			next = append(next, expanded)
		}
	}
	e.matrix = next
}

func (e *HumanPrefMatrixEmitter) Reset() {
	e.matrix = nil
}

type prefMatrixState struct {
	Name   string      `json:"name"`
	Matrix [][]float64 `json:"matrix"`
}

func (e *HumanPrefMatrixEmitter) State() ([]byte, error) {
	return json.Marshal(prefMatrixState{Name: NamePreferenceMatrix, Matrix: e.matrix})
}

// RestoreState rebuilds the preference matrix from a snapshot.
func (e *HumanPrefMatrixEmitter) RestoreState(data []byte) error {
	var s prefMatrixState
	if err := json.Unmarshal(data, &s); err != nil {
		return errors.Wrap(err, errors.Unknown, "failed to parse preference matrix state")
	}
	e.matrix = s.Matrix
	return nil
}
