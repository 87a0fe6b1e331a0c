package archive

import (
	"sort"

	"github.com/evoship/evoship/pkg/solution"
)

// Class names one of the two populations a bin holds.
type Class string

const (
	Feasible   Class = "feasible"
	Infeasible Class = "infeasible"
)

// Classes lists both population classes in canonical order.
var Classes = [2]Class{Feasible, Infeasible}

// MetricKind selects what Bin.Metric reports.
type MetricKind string

const (
	MetricFitness MetricKind = "fitness"
	MetricAge     MetricKind = "age"
	MetricSize    MetricKind = "size"
)

// Bin is one cell of the behavior grid: a feasible and an infeasible
// population plus elite tracking and subdivision bookkeeping. Populations
// deduplicate by production string.
type Bin struct {
	// Index is the bin's current grid position.
	Index [2]int

	// Size is the bin's extent along each behavior axis.
	Size [2]float64

	// Subdividable is cleared on the children of a subdivided bin so one
	// region cannot split indefinitely in a single run.
	Subdividable bool

	// NewElite flags, per class, whether the elite changed since the last
	// UpdateElites pass.
	NewElite map[Class]bool

	feasible   []*solution.Solution
	infeasible []*solution.Solution

	// lastElite remembers the elite identity per class for change
	// detection.
	lastElite map[Class]string

	capacity int
	maxAge   int

	// infeasibleMax flips the infeasible ranking direction when a
	// surrogate estimator drives infeasible fitness.
	infeasibleMax bool
}

// NewBin creates an empty bin with the given position and extent.
func NewBin(index [2]int, size [2]float64, capacity, maxAge int, infeasibleMax bool) *Bin {
	return &Bin{
		Index:         index,
		Size:          size,
		Subdividable:  true,
		NewElite:      map[Class]bool{Feasible: false, Infeasible: false},
		lastElite:     map[Class]string{},
		capacity:      capacity,
		maxAge:        maxAge,
		infeasibleMax: infeasibleMax,
	}
}

// Insert adds the solution to the population matching its feasibility.
// Re-inserting a production string already stored in the same class is a
// no-op that keeps the incumbent; a feasibility flip moves the solution
// across populations.
func (b *Bin) Insert(cs *solution.Solution) {
	if cs.IsFeasible {
		if containsString(b.feasible, cs.HLString) {
			return
		}
		b.infeasible = removeByString(b.infeasible, cs.HLString)
		b.feasible = append(b.feasible, cs)
		return
	}
	if containsString(b.infeasible, cs.HLString) {
		return
	}
	b.feasible = removeByString(b.feasible, cs.HLString)
	b.infeasible = append(b.infeasible, cs)
}

func containsString(pop []*solution.Solution, s string) bool {
	for _, cs := range pop {
		if cs.HLString == s {
			return true
		}
	}
	return false
}

func removeByString(pop []*solution.Solution, s string) []*solution.Solution {
	for i, cs := range pop {
		if cs.HLString == s {
			return append(pop[:i], pop[i+1:]...)
		}
	}
	return pop
}

// Population returns the individuals of a class. The slice is the bin's
// own; callers must not mutate it.
func (b *Bin) Population(class Class) []*solution.Solution {
	if class == Feasible {
		return b.feasible
	}
	return b.infeasible
}

// Len returns the population size of a class.
func (b *Bin) Len(class Class) int {
	return len(b.Population(class))
}

// NonEmpty reports whether the class population holds any individual.
func (b *Bin) NonEmpty(class Class) bool {
	return b.Len(class) > 0
}

// Age shifts every individual's age by diff, clamped at zero.
func (b *Bin) Age(diff int) {
	for _, pop := range [][]*solution.Solution{b.feasible, b.infeasible} {
		for _, cs := range pop {
			cs.Age += diff
			if cs.Age < 0 {
				cs.Age = 0
			}
		}
	}
}

// RemoveOld enforces the per-class capacity and drops stale individuals.
// Retention is two-tier: this generation's individuals (age == max) come
// first, then fitness rank, with stable ties so earlier insertions win.
// Individuals aged to zero are removed unless they are the class elite.
func (b *Bin) RemoveOld() {
	b.feasible = b.trim(b.feasible, true)
	b.infeasible = b.trim(b.infeasible, b.infeasibleMax)
}

func (b *Bin) trim(pop []*solution.Solution, maximize bool) []*solution.Solution {
	if len(pop) > b.capacity {
		ranked := append([]*solution.Solution(nil), pop...)
		sort.SliceStable(ranked, func(i, j int) bool {
			x, y := ranked[i], ranked[j]
			nx, ny := x.Age == b.maxAge, y.Age == b.maxAge
			if nx != ny {
				return nx
			}
			if maximize {
				return x.CFitness > y.CFitness
			}
			return x.CFitness < y.CFitness
		})
		pop = ranked[:b.capacity]
	}
	var elite *solution.Solution
	if len(pop) > 0 {
		elite = eliteOf(pop, maximize)
	}
	kept := pop[:0]
	for _, cs := range pop {
		if cs.Age <= 0 && cs != elite {
			continue
		}
		kept = append(kept, cs)
	}
	return kept
}

// Elite returns the best individual of the class, nil when empty. Feasible
// elites maximize composite fitness; infeasible ones minimize unless a
// surrogate estimator drives their fitness.
func (b *Bin) Elite(class Class) *solution.Solution {
	pop := b.Population(class)
	if len(pop) == 0 {
		return nil
	}
	maximize := class == Feasible || b.infeasibleMax
	return eliteOf(pop, maximize)
}

func eliteOf(pop []*solution.Solution, maximize bool) *solution.Solution {
	best := pop[0]
	for _, cs := range pop[1:] {
		if maximize && cs.CFitness > best.CFitness {
			best = cs
		} else if !maximize && cs.CFitness < best.CFitness {
			best = cs
		}
	}
	return best
}

// CheckNewElite refreshes the new-elite flag for the class by comparing
// the current elite's identity with the last recorded one.
func (b *Bin) CheckNewElite(class Class) {
	elite := b.Elite(class)
	if elite == nil {
		b.NewElite[class] = false
		return
	}
	b.NewElite[class] = elite.HLString != b.lastElite[class]
	b.lastElite[class] = elite.HLString
}

// Metric reports a per-bin scalar for display: the mean or the elite's
// value of fitness or age, or the population size.
func (b *Bin) Metric(kind MetricKind, mean bool, class Class) float64 {
	pop := b.Population(class)
	switch kind {
	case MetricSize:
		return float64(len(pop))
	case MetricFitness, MetricAge:
		if len(pop) == 0 {
			return 0
		}
		value := func(cs *solution.Solution) float64 {
			if kind == MetricAge {
				return float64(cs.Age)
			}
			return cs.CFitness
		}
		if mean {
			total := 0.0
			for _, cs := range pop {
				total += value(cs)
			}
			return total / float64(len(pop))
		}
		return value(b.Elite(class))
	default:
		return 0
	}
}

// ToggleModuleMutability flips the mutability flag of the named module on
// every individual in the bin.
func (b *Bin) ToggleModuleMutability(module string) {
	for _, pop := range [][]*solution.Solution{b.feasible, b.infeasible} {
		for _, cs := range pop {
			if g, ok := cs.Modules[module]; ok {
				g.Mutable = !g.Mutable
				cs.Modules[module] = g
			}
		}
	}
}

func (b *Bin) setPopulation(class Class, pop []*solution.Solution) {
	if class == Feasible {
		b.feasible = pop
	} else {
		b.infeasible = pop
	}
}

// Solutions returns every individual in the bin, feasible first.
func (b *Bin) Solutions() []*solution.Solution {
	out := make([]*solution.Solution, 0, len(b.feasible)+len(b.infeasible))
	out = append(out, b.feasible...)
	out = append(out, b.infeasible...)
	return out
}
