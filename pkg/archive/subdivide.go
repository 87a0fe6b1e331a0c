package archive

import (
	"context"

	"github.com/evoship/evoship/pkg/logging"
	"github.com/evoship/evoship/pkg/solution"
)

// SubdivideRange splits the bin at index in half along both axes. The grid
// grows by one row and one column, every archived solution is re-binned
// against the new boundaries, and the four children of the split bin lose
// their subdividability so one region cannot split twice in a run.
func (a *Archive) SubdivideRange(ctx context.Context, index [2]int) {
	i, j := index[0], index[1]

	var all []*solution.Solution
	a.eachBin(func(b *Bin) { all = append(all, b.Solutions()...) })

	vi, vj := a.binSizes[0][i], a.binSizes[1][j]
	a.binSizes[0][i] = vi / 2
	a.binSizes[1][j] = vj / 2
	a.binSizes[0] = insertAt(a.binSizes[0], i+1, vi/2)
	a.binSizes[1] = insertAt(a.binSizes[1], j+1, vj/2)

	rows, cols := len(a.grid)+1, len(a.grid[0])+1
	grid := make([][]*Bin, rows)
	for m := 0; m < rows; m++ {
		grid[m] = make([]*Bin, cols)
		for n := 0; n < cols; n++ {
			b := a.newBin([2]int{m, n},
				[2]float64{a.binSizes[0][m], a.binSizes[1][n]})
			// Each new bin inherits elite bookkeeping from the source bin
			// covering its region.
			x, y := m, n
			if m > i {
				x = m - 1
			}
			if n > j {
				y = n - 1
			}
			src := a.grid[x][y]
			for class, v := range src.NewElite {
				b.NewElite[class] = v
			}
			b.Subdividable = src.Subdividable && !(x == i && y == j)
			grid[m][n] = b
		}
	}
	a.grid = grid
	a.UpdateBins(all)

	if ra, ok := a.emitter.(ResolutionAware); ok {
		ra.IncreaseResolution(index)
	}
	logging.GetLogger().Debug(ctx, "Subdivided bin (%d,%d); grid is now %dx%d", i, j, rows, cols)
	if trace := logging.GetTraceSession(ctx); trace != nil {
		_ = trace.EmitSubdivision(index, rows, cols)
	}
}

func insertAt(s []float64, i int, v float64) []float64 {
	s = append(s, 0)
	copy(s[i+1:], s[i:])
	s[i] = v
	return s
}

// CheckResTrigger subdivides every subdividable bin whose feasible and
// infeasible populations both reached capacity, returning the indices of
// the bins that split. Indices are processed in reverse row-major order so
// earlier splits do not shift later trigger positions.
func (a *Archive) CheckResTrigger(ctx context.Context) [][2]int {
	if !a.allowResIncrease {
		return nil
	}
	var triggers [][2]int
	a.eachBin(func(b *Bin) {
		if b.Subdividable && b.Len(Feasible) >= a.binCap && b.Len(Infeasible) >= a.binCap {
			triggers = append(triggers, b.Index)
		}
	})
	for k := len(triggers) - 1; k >= 0; k-- {
		a.SubdivideRange(ctx, triggers[k])
	}
	return triggers
}

// ProcessExpandedIdxs maps pre-subdivision selected bin indices into the
// expanded grid: a selection sharing a row or column with a split bin also
// covers the inserted neighbor, and every index shifts by the number of
// splits below it on each axis.
func ProcessExpandedIdxs(expanded, selected [][2]int) [][2]int {
	processed := append([][2]int(nil), selected...)
	for _, s := range selected {
		m, n := s[0], s[1]
		for _, e := range expanded {
			i, j := e[0], e[1]
			if m == i {
				processed = append(processed, [2]int{m + 1, n})
			}
			if n == j {
				processed = append(processed, [2]int{m, n + 1})
			}
			if m == i && n == j {
				processed = append(processed, [2]int{m + 1, n + 1})
			}
		}
	}
	for k, p := range processed {
		lm, ln := 0, 0
		for _, e := range expanded {
			if e[0] < p[0] {
				lm++
			}
			if e[1] < p[1] {
				ln++
			}
		}
		processed[k] = [2]int{p[0] + lm, p[1] + ln}
	}
	return processed
}
