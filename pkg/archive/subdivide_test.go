package archive

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fillBin(a *Archive, behavior [2]float64, n int) {
	for k := 0; k < n; k++ {
		archived(a, fmt.Sprintf("f%v-%d", behavior, k), true, float64(k), behavior)
		archived(a, fmt.Sprintf("i%v-%d", behavior, k), false, float64(k), behavior)
	}
}

func TestSubdivideRangeConservesSolutions(t *testing.T) {
	a, _ := newTestArchive(t)
	fillBin(a, [2]float64{1, 1}, 4)
	archived(a, "elsewhere", true, 1.0, [2]float64{7, 7})
	total := a.NSolutions(Feasible) + a.NSolutions(Infeasible)
	require.Equal(t, 9, total)

	a.SubdivideRange(context.Background(), [2]int{0, 0})

	rows, cols := a.Shape()
	assert.Equal(t, 3, rows)
	assert.Equal(t, 3, cols)
	assert.Equal(t, []float64{2.5, 2.5, 5}, a.binSizes[0])
	assert.Equal(t, []float64{2.5, 2.5, 5}, a.binSizes[1])
	after := a.NSolutions(Feasible) + a.NSolutions(Infeasible)
	assert.Equal(t, total, after, "subdivision must not lose or duplicate solutions")
}

func TestSubdivideRangeClearsChildSubdividability(t *testing.T) {
	a, _ := newTestArchive(t)
	fillBin(a, [2]float64{1, 1}, 4)

	a.SubdivideRange(context.Background(), [2]int{0, 0})

	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			b, err := a.BinAt(i, j)
			require.NoError(t, err)
			child := i <= 1 && j <= 1
			assert.Equal(t, !child, b.Subdividable, "bin (%d,%d)", i, j)
		}
	}
}

func TestSubdivideRangeRelocatesByBoundary(t *testing.T) {
	a, _ := newTestArchive(t)
	// One solution on each side of the new boundary at 2.5.
	archived(a, "low", true, 1.0, [2]float64{1, 1})
	archived(a, "high", true, 1.0, [2]float64{4, 4})

	a.SubdivideRange(context.Background(), [2]int{0, 0})

	lowBin, _ := a.BinAt(0, 0)
	highBin, _ := a.BinAt(1, 1)
	assert.Equal(t, 1, lowBin.Len(Feasible))
	assert.Equal(t, 1, highBin.Len(Feasible))
}

func TestCheckResTrigger(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		cfg := testConfig()
		cfg.Archive.AllowResIncrease = false
		a, err := New(cfg, &stubEngine{}, WithEmitter(&stubEmitter{name: "stub"}))
		require.NoError(t, err)
		fillBin(a, [2]float64{1, 1}, 4)

		assert.Empty(t, a.CheckResTrigger(context.Background()))
		rows, _ := a.Shape()
		assert.Equal(t, 2, rows)
	})

	t.Run("splits saturated bins", func(t *testing.T) {
		a, _ := newTestArchive(t)
		fillBin(a, [2]float64{1, 1}, 4)

		expanded := a.CheckResTrigger(context.Background())

		assert.Equal(t, [][2]int{{0, 0}}, expanded)
		rows, cols := a.Shape()
		assert.Equal(t, 3, rows)
		assert.Equal(t, 3, cols)
	})

	t.Run("split children do not retrigger", func(t *testing.T) {
		a, _ := newTestArchive(t)
		fillBin(a, [2]float64{1, 1}, 4)

		a.CheckResTrigger(context.Background())
		expanded := a.CheckResTrigger(context.Background())

		assert.Empty(t, expanded)
	})

	t.Run("needs both populations saturated", func(t *testing.T) {
		a, _ := newTestArchive(t)
		for k := 0; k < 4; k++ {
			archived(a, fmt.Sprintf("f%d", k), true, float64(k), [2]float64{1, 1})
		}

		assert.Empty(t, a.CheckResTrigger(context.Background()))
	})
}

func TestSubdivisionNotifiesResolutionAwareEmitter(t *testing.T) {
	em := &resAwareEmitter{stubEmitter: stubEmitter{name: "aware"}}
	a, err := New(testConfig(), &stubEngine{}, WithEmitter(em))
	require.NoError(t, err)
	fillBin(a, [2]float64{1, 1}, 4)

	a.SubdivideRange(context.Background(), [2]int{0, 0})

	assert.Equal(t, [][2]int{{0, 0}}, em.increased)
}

type resAwareEmitter struct {
	stubEmitter
	increased [][2]int
}

func (e *resAwareEmitter) IncreaseResolution(index [2]int) {
	e.increased = append(e.increased, index)
}

func TestProcessExpandedIdxs(t *testing.T) {
	tests := []struct {
		name     string
		expanded [][2]int
		selected [][2]int
		want     [][2]int
	}{
		{
			name:     "no expansion passes through",
			expanded: nil,
			selected: [][2]int{{1, 1}},
			want:     [][2]int{{1, 1}},
		},
		{
			name:     "selection covers the split bin",
			expanded: [][2]int{{0, 0}},
			selected: [][2]int{{0, 0}},
			want:     [][2]int{{0, 0}, {2, 0}, {0, 2}, {2, 2}},
		},
		{
			name:     "unrelated selection only shifts",
			expanded: [][2]int{{0, 0}},
			selected: [][2]int{{1, 1}},
			want:     [][2]int{{2, 2}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ProcessExpandedIdxs(tt.expanded, tt.selected)
			assert.Equal(t, tt.want, got)
		})
	}
}
