package display

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/evoship/evoship/pkg/archive"
	"github.com/evoship/evoship/pkg/solution"
)

func TestCellValue(t *testing.T) {
	pop := []solution.Record{
		{CFitness: 1.5, Age: 4},
		{CFitness: 0.5, Age: 2},
	}

	tests := []struct {
		name   string
		pop    []solution.Record
		metric Metric
		want   float64
		ok     bool
	}{
		{name: "fitness takes the best", pop: pop, metric: MetricFitness, want: 1.5, ok: true},
		{name: "count", pop: pop, metric: MetricCount, want: 2, ok: true},
		{name: "age averages", pop: pop, metric: MetricAge, want: 3, ok: true},
		{name: "empty bin", pop: nil, metric: MetricFitness},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := CellValue(tt.pop, tt.metric)
			assert.Equal(t, tt.ok, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestHeatmapRendersAllRows(t *testing.T) {
	snap := &archive.Snapshot{
		InitialBins: [2]int{2, 2},
		BinSizes:    [2][]float64{{5, 5}, {5, 5}},
		Bins: []archive.BinSnapshot{
			{Index: [2]int{0, 0}, Feasible: []solution.Record{{CFitness: 1}}},
			{Index: [2]int{1, 1}, Feasible: []solution.Record{{CFitness: 2}}},
		},
	}

	out := Heatmap(snap, archive.Feasible, MetricFitness)
	assert.Contains(t, out, "feasible fitness (2x2)")
	assert.Contains(t, out, "1.000")
	assert.Contains(t, out, "2.000")
	assert.Contains(t, out, "range [1.000, 2.000]")
	// Two grid rows plus header and legend inside the border.
	assert.GreaterOrEqual(t, strings.Count(out, "\n"), 4)
}

func TestRampColorBounds(t *testing.T) {
	assert.Equal(t, ramp[0], rampColor(0, 0, 1))
	assert.Equal(t, ramp[len(ramp)-1], rampColor(1, 0, 1))
	assert.Equal(t, ramp[len(ramp)/2], rampColor(3, 3, 3), "degenerate range uses the midpoint")
}
