// Package display renders archive snapshots for the terminal: per-bin
// heatmaps and run summaries.
package display

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/evoship/evoship/pkg/archive"
	"github.com/evoship/evoship/pkg/solution"
)

// Metric selects what a heatmap cell shows.
type Metric string

const (
	MetricFitness Metric = "fitness"
	MetricCount   Metric = "count"
	MetricAge     Metric = "age"
)

// Metrics lists the renderable heatmap metrics.
func Metrics() []Metric {
	return []Metric{MetricFitness, MetricCount, MetricAge}
}

// Cold-to-hot ramp over the 256-color cube.
var ramp = []lipgloss.Color{"17", "24", "31", "72", "107", "143", "179", "208", "196"}

var (
	emptyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	headerStyle = lipgloss.NewStyle().Bold(true)
	borderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
)

// CellValue computes one bin's metric over the given population.
func CellValue(pop []solution.Record, metric Metric) (float64, bool) {
	if len(pop) == 0 {
		return 0, false
	}
	switch metric {
	case MetricCount:
		return float64(len(pop)), true
	case MetricAge:
		sum := 0.0
		for _, r := range pop {
			sum += float64(r.Age)
		}
		return sum / float64(len(pop)), true
	default:
		best := math.Inf(-1)
		for _, r := range pop {
			if r.CFitness > best {
				best = r.CFitness
			}
		}
		return best, true
	}
}

// Heatmap renders the grid of a snapshot for one population and metric.
// Rows are the second behavior axis, top-down, so the origin sits at the
// bottom left.
func Heatmap(snap *archive.Snapshot, class archive.Class, metric Metric) string {
	rows := len(snap.BinSizes[0])
	cols := len(snap.BinSizes[1])

	values := make([][]float64, rows)
	filled := make([][]bool, rows)
	for i := range values {
		values[i] = make([]float64, cols)
		filled[i] = make([]bool, cols)
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, b := range snap.Bins {
		pop := b.Feasible
		if class == archive.Infeasible {
			pop = b.Infeasible
		}
		v, ok := CellValue(pop, metric)
		if !ok {
			continue
		}
		i, j := b.Index[0], b.Index[1]
		if i >= rows || j >= cols {
			continue
		}
		values[i][j] = v
		filled[i][j] = true
		lo, hi = math.Min(lo, v), math.Max(hi, v)
	}

	var sb strings.Builder
	sb.WriteString(headerStyle.Render(fmt.Sprintf("%s %s (%dx%d)", class, metric, rows, cols)))
	sb.WriteByte('\n')
	for j := cols - 1; j >= 0; j-- {
		for i := 0; i < rows; i++ {
			sb.WriteString(Cell(values[i][j], filled[i][j], lo, hi))
		}
		sb.WriteByte('\n')
	}
	if hi >= lo {
		sb.WriteString(emptyStyle.Render(fmt.Sprintf("range [%.3f, %.3f]", lo, hi)))
		sb.WriteByte('\n')
	}
	return borderStyle.Render(strings.TrimRight(sb.String(), "\n"))
}

// Cell renders one fixed-width heatmap cell colored along the ramp.
func Cell(v float64, ok bool, lo, hi float64) string {
	if !ok {
		return emptyStyle.Render(fmt.Sprintf("%8s", "·"))
	}
	return lipgloss.NewStyle().
		Foreground(rampColor(v, lo, hi)).
		Render(fmt.Sprintf("%8.3f", v))
}

func rampColor(v, lo, hi float64) lipgloss.Color {
	if hi <= lo {
		return ramp[len(ramp)/2]
	}
	t := (v - lo) / (hi - lo)
	idx := int(t * float64(len(ramp)-1))
	if idx < 0 {
		idx = 0
	}
	if idx >= len(ramp) {
		idx = len(ramp) - 1
	}
	return ramp[idx]
}
