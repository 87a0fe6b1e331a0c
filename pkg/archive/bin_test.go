package archive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evoship/evoship/pkg/solution"
)

func binSol(hl string, feasible bool, cfitness float64, age int) *solution.Solution {
	cs := solution.New(hl)
	cs.IsFeasible = feasible
	cs.CFitness = cfitness
	cs.Age = age
	return cs
}

func TestBinInsertDuplicateIsNoOp(t *testing.T) {
	b := NewBin([2]int{0, 0}, [2]float64{5, 5}, 4, 5, false)

	incumbent := binSol("CFT", true, 1.0, 5)
	b.Insert(incumbent)
	b.Insert(binSol("CFT", true, 2.0, 5))

	require.Equal(t, 1, b.Len(Feasible))
	assert.Same(t, incumbent, b.Population(Feasible)[0], "incumbent survives a duplicate insert")
	assert.Equal(t, 1.0, b.Population(Feasible)[0].CFitness)
}

func TestBinInsertFeasibilityFlip(t *testing.T) {
	b := NewBin([2]int{0, 0}, [2]float64{5, 5}, 4, 5, false)

	b.Insert(binSol("CFT", true, 1.0, 5))
	b.Insert(binSol("CFT", false, 3.0, 5))

	assert.Equal(t, 0, b.Len(Feasible))
	assert.Equal(t, 1, b.Len(Infeasible))
}

func TestBinCapacityEnforced(t *testing.T) {
	b := NewBin([2]int{0, 0}, [2]float64{5, 5}, 4, 5, false)
	for i, hl := range []string{"A", "B", "C", "D", "E"} {
		b.Insert(binSol(hl, true, float64(i), 5))
	}

	b.RemoveOld()

	require.Equal(t, 4, b.Len(Feasible))
	for _, cs := range b.Population(Feasible) {
		assert.NotEqual(t, "A", cs.HLString, "lowest fitness individual should be dropped")
	}
}

func TestBinRetentionPrefersCurrentGeneration(t *testing.T) {
	b := NewBin([2]int{0, 0}, [2]float64{5, 5}, 2, 5, false)
	// Two older high-fitness individuals and two fresh low-fitness ones.
	b.Insert(binSol("old1", true, 10.0, 3))
	b.Insert(binSol("old2", true, 9.0, 3))
	b.Insert(binSol("new1", true, 1.0, 5))
	b.Insert(binSol("new2", true, 2.0, 5))

	b.RemoveOld()

	require.Equal(t, 2, b.Len(Feasible))
	for _, cs := range b.Population(Feasible) {
		assert.Equal(t, 5, cs.Age)
	}
}

func TestBinInfeasibleTrimDirection(t *testing.T) {
	t.Run("minimizes violations without estimator", func(t *testing.T) {
		b := NewBin([2]int{0, 0}, [2]float64{5, 5}, 1, 5, false)
		b.Insert(binSol("x", false, 5.0, 5))
		b.Insert(binSol("y", false, 1.0, 5))

		b.RemoveOld()

		require.Equal(t, 1, b.Len(Infeasible))
		assert.Equal(t, "y", b.Population(Infeasible)[0].HLString)
	})
	t.Run("maximizes with estimator", func(t *testing.T) {
		b := NewBin([2]int{0, 0}, [2]float64{5, 5}, 1, 5, true)
		b.Insert(binSol("x", false, 5.0, 5))
		b.Insert(binSol("y", false, 1.0, 5))

		b.RemoveOld()

		require.Equal(t, 1, b.Len(Infeasible))
		assert.Equal(t, "x", b.Population(Infeasible)[0].HLString)
	})
}

func TestBinAgeClampsAtZero(t *testing.T) {
	b := NewBin([2]int{0, 0}, [2]float64{5, 5}, 4, 5, false)
	b.Insert(binSol("A", true, 1.0, 1))

	b.Age(-1)
	b.Age(-1)

	assert.Equal(t, 0, b.Population(Feasible)[0].Age)
}

func TestBinStaleRemovalKeepsElite(t *testing.T) {
	b := NewBin([2]int{0, 0}, [2]float64{5, 5}, 4, 5, false)
	b.Insert(binSol("best", true, 10.0, 0))
	b.Insert(binSol("worse", true, 1.0, 0))
	b.Insert(binSol("alive", true, 5.0, 2))

	b.RemoveOld()

	require.Equal(t, 2, b.Len(Feasible))
	names := []string{b.Population(Feasible)[0].HLString, b.Population(Feasible)[1].HLString}
	assert.Contains(t, names, "best")
	assert.Contains(t, names, "alive")
}

func TestBinElite(t *testing.T) {
	b := NewBin([2]int{0, 0}, [2]float64{5, 5}, 4, 5, false)
	assert.Nil(t, b.Elite(Feasible))

	b.Insert(binSol("A", true, 1.0, 5))
	b.Insert(binSol("B", true, 3.0, 5))
	b.Insert(binSol("C", false, 2.0, 5))
	b.Insert(binSol("D", false, 7.0, 5))

	assert.Equal(t, "B", b.Elite(Feasible).HLString)
	assert.Equal(t, "C", b.Elite(Infeasible).HLString, "infeasible elite minimizes without estimator")
}

func TestBinCheckNewElite(t *testing.T) {
	b := NewBin([2]int{0, 0}, [2]float64{5, 5}, 4, 5, false)
	b.Insert(binSol("A", true, 1.0, 5))

	b.CheckNewElite(Feasible)
	assert.True(t, b.NewElite[Feasible])

	b.CheckNewElite(Feasible)
	assert.False(t, b.NewElite[Feasible], "unchanged elite should clear the flag")

	b.Insert(binSol("B", true, 3.0, 5))
	b.CheckNewElite(Feasible)
	assert.True(t, b.NewElite[Feasible])
}

func TestBinMetric(t *testing.T) {
	b := NewBin([2]int{0, 0}, [2]float64{5, 5}, 4, 5, false)
	b.Insert(binSol("A", true, 2.0, 4))
	b.Insert(binSol("B", true, 4.0, 2))

	assert.Equal(t, 2.0, b.Metric(MetricSize, false, Feasible))
	assert.Equal(t, 3.0, b.Metric(MetricFitness, true, Feasible))
	assert.Equal(t, 4.0, b.Metric(MetricFitness, false, Feasible))
	assert.Equal(t, 2.0, b.Metric(MetricAge, false, Feasible), "elite age follows the fitness elite")
	assert.Equal(t, 0.0, b.Metric(MetricFitness, true, Infeasible))
}

func TestBinToggleModuleMutability(t *testing.T) {
	cs := binSol("A", true, 1.0, 5)
	cs.Modules["body"] = solution.ModuleGenome{String: "A", Mutable: true}
	b := NewBin([2]int{0, 0}, [2]float64{5, 5}, 4, 5, false)
	b.Insert(cs)

	b.ToggleModuleMutability("body")
	assert.False(t, cs.Modules["body"].Mutable)

	b.ToggleModuleMutability("body")
	assert.True(t, cs.Modules["body"].Mutable)
}
