package emitters

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evoship/evoship/pkg/archive"
	"github.com/evoship/evoship/pkg/errors"
	"github.com/evoship/evoship/pkg/solution"
)

func testGrid(t *testing.T) [][]*archive.Bin {
	t.Helper()
	grid := make([][]*archive.Bin, 2)
	for i := range grid {
		grid[i] = make([]*archive.Bin, 2)
		for j := range grid[i] {
			grid[i][j] = archive.NewBin([2]int{i, j}, [2]float64{5, 5}, 4, 5, false)
		}
	}
	return grid
}

func put(grid [][]*archive.Bin, i, j int, hl string, feasible bool, cfitness float64) *solution.Solution {
	cs := solution.New(hl)
	cs.IsFeasible = feasible
	cs.CFitness = cfitness
	cs.Age = 5
	grid[i][j].Insert(cs)
	return cs
}

func TestFromName(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			em, err := FromName(name, rng)
			require.NoError(t, err)
			assert.Equal(t, name, em.Name())
		})
	}

	t.Run("unknown", func(t *testing.T) {
		_, err := FromName("cma-es", rng)
		require.Error(t, err)
		var e *errors.Error
		require.ErrorAs(t, err, &e)
		assert.Equal(t, errors.UnsupportedEmitter, e.Code())
	})
}

func TestRandomEmitterPicksNonEmpty(t *testing.T) {
	grid := testGrid(t)
	put(grid, 1, 0, "A", true, 1.0)
	em := NewRandomEmitter(rand.New(rand.NewSource(7)))

	for i := 0; i < 10; i++ {
		sel, err := em.PickBins(grid)
		require.NoError(t, err)
		require.Len(t, sel.Flat, 1)
		assert.Equal(t, [2]int{1, 0}, sel.Flat[0].Index)
	}
}

func TestRandomEmitterEmptyGrid(t *testing.T) {
	em := NewRandomEmitter(rand.New(rand.NewSource(7)))

	sel, err := em.PickBins(testGrid(t))

	require.NoError(t, err)
	assert.True(t, sel.Empty())
}

func TestOptimisingEmitterPicksBestElite(t *testing.T) {
	grid := testGrid(t)
	put(grid, 0, 0, "low", true, 1.0)
	put(grid, 1, 1, "high", true, 9.0)
	put(grid, 0, 1, "infeasible", false, 100.0)
	em := NewOptimisingEmitter()

	sel, err := em.PickBins(grid)

	require.NoError(t, err)
	require.Len(t, sel.Flat, 1)
	assert.Equal(t, [2]int{1, 1}, sel.Flat[0].Index)
}

func TestOptimisingEmitterV2PairedSelection(t *testing.T) {
	grid := testGrid(t)
	put(grid, 0, 0, "feas", true, 1.0)
	put(grid, 1, 1, "infeas", false, 2.0)
	em := NewOptimisingEmitterV2()

	sel, err := em.PickBins(grid)

	require.NoError(t, err)
	assert.True(t, sel.IsPaired())
	require.Len(t, sel.Feasible, 1)
	require.Len(t, sel.Infeasible, 1)
	assert.Equal(t, [2]int{0, 0}, sel.Feasible[0].Index)
	assert.Equal(t, [2]int{1, 1}, sel.Infeasible[0].Index)
}

func TestGreedyEmitterPicksMostPopulated(t *testing.T) {
	grid := testGrid(t)
	put(grid, 0, 0, "a", true, 1.0)
	put(grid, 1, 0, "b", true, 1.0)
	put(grid, 1, 0, "c", false, 1.0)
	put(grid, 1, 0, "d", false, 2.0)
	em := NewGreedyEmitter()

	sel, err := em.PickBins(grid)

	require.NoError(t, err)
	require.Len(t, sel.Flat, 1)
	assert.Equal(t, [2]int{1, 0}, sel.Flat[0].Index)
}

func TestPrefMatrixLifecycle(t *testing.T) {
	grid := testGrid(t)
	put(grid, 0, 0, "a", true, 1.0)
	put(grid, 1, 1, "b", true, 1.0)
	em := NewHumanPrefMatrixEmitter(rand.New(rand.NewSource(3)))
	em.Init(grid)

	assert.Equal(t, 1.0, em.matrix[0][0])
	assert.Equal(t, 0.0, em.matrix[0][1], "empty bins start unpreferred")

	// Repeated selection of (0,0) should dominate the sampling weight.
	for i := 0; i < 5; i++ {
		em.PreStep(grid, [][2]int{{0, 0}}, nil, [2][2]float64{{0, 10}, {0, 10}})
	}
	assert.Greater(t, em.matrix[0][0], em.matrix[1][1])

	picks := map[[2]int]int{}
	for i := 0; i < 50; i++ {
		sel, err := em.PickBins(grid)
		require.NoError(t, err)
		require.Len(t, sel.Flat, 1)
		picks[sel.Flat[0].Index]++
	}
	assert.Greater(t, picks[[2]int{0, 0}], picks[[2]int{1, 1}])
}

func TestPrefMatrixIncreaseResolution(t *testing.T) {
	em := NewHumanPrefMatrixEmitter(rand.New(rand.NewSource(3)))
	em.matrix = [][]float64{{4, 2}, {1, 1}}

	em.IncreaseResolution([2]int{0, 0})

	require.Len(t, em.matrix, 3)
	require.Len(t, em.matrix[0], 3)
	// The split cell's weight spreads over its four children.
	assert.Equal(t, 1.0, em.matrix[0][0])
	assert.Equal(t, 1.0, em.matrix[0][1])
	assert.Equal(t, 1.0, em.matrix[1][0])
	assert.Equal(t, 1.0, em.matrix[1][1])
	// Untouched cells keep their total weight.
	assert.Equal(t, 1.0, em.matrix[2][2])
}

func TestPrefMatrixStateRoundTrip(t *testing.T) {
	em := NewHumanPrefMatrixEmitter(rand.New(rand.NewSource(3)))
	em.matrix = [][]float64{{1, 2}, {3, 4}}

	data, err := em.State()
	require.NoError(t, err)

	restored := NewHumanPrefMatrixEmitter(rand.New(rand.NewSource(4)))
	require.NoError(t, restored.RestoreState(data))
	assert.Equal(t, em.matrix, restored.matrix)
}

func TestPrefMatrixReset(t *testing.T) {
	em := NewHumanPrefMatrixEmitter(rand.New(rand.NewSource(3)))
	em.matrix = [][]float64{{1}}

	em.Reset()

	assert.Nil(t, em.matrix)
}
