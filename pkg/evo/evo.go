// Package evo implements the genetic operators used by both the archive
// step and the vanilla two-population solver: roulette-wheel selection over
// composite fitness, module-wise single-point crossover on production
// strings, and symbol-level mutation.
package evo

import (
	"context"
	"math/rand"
	"sort"
	"strings"

	"github.com/evoship/evoship/pkg/errors"
	"github.com/evoship/evoship/pkg/logging"
	"github.com/evoship/evoship/pkg/solution"
)

// Params controls offspring generation.
type Params struct {
	// Modules lists the production-string modules in genome order. The
	// offspring string is rebuilt by concatenating module genomes.
	Modules []string

	// CrossoverP is the probability a selected pair recombines instead of
	// cloning.
	CrossoverP float64

	// MutationP is the per-offspring probability of a symbol mutation.
	MutationP float64

	// MaxRetries bounds the attempts at producing a pool before the
	// generation is declared failed.
	MaxRetries int
}

// DefaultParams returns the operator parameters used by the stock grammar.
func DefaultParams(modules []string) Params {
	return Params{
		Modules:    modules,
		CrossoverP: 0.8,
		MutationP:  0.4,
		MaxRetries: 10,
	}
}

// Operators generates offspring pools from a population. Lineage is
// recorded through the arena so parent references stay identifier-based.
type Operators struct {
	params Params
	arena  *solution.Arena
	rng    *rand.Rand
}

// NewOperators creates the operator set. The rng is owned by the caller and
// must not be shared across concurrent generations.
func NewOperators(params Params, arena *solution.Arena, rng *rand.Rand) *Operators {
	return &Operators{
		params: params,
		arena:  arena,
		rng:    rng,
	}
}

// CreateNewPool produces up to n offspring production strings from the
// population. Selection is roulette-wheel over composite fitness, inverted
// when minimize is set. The returned solutions carry module genomes and
// lineage but no structure yet; the caller materializes and classifies
// them.
//
// Fails with EvolutionFailed when the population is empty or no offspring
// distinct from their parents could be produced.
func (o *Operators) CreateNewPool(ctx context.Context, pop []*solution.Solution, generation, n int, minimize bool) ([]*solution.Solution, error) {
	if len(pop) == 0 {
		return nil, errors.WithFields(
			errors.New(errors.EvolutionFailed, "cannot generate offspring from an empty population"),
			errors.Fields{"generation": generation})
	}
	logger := logging.GetLogger()

	pool := make([]*solution.Solution, 0, n)
	seen := make(map[string]struct{}, n)
	retries := 0
	for len(pool) < n {
		if retries > o.params.MaxRetries {
			break
		}
		p1 := o.Select(pop, minimize)
		p2 := o.Select(pop, minimize)

		var children []*solution.Solution
		if o.rng.Float64() < o.params.CrossoverP && p1.HLString != p2.HLString {
			children = o.crossover(p1, p2)
		} else {
			children = []*solution.Solution{o.clone(p1)}
		}
		made := 0
		for _, child := range children {
			if o.rng.Float64() < o.params.MutationP {
				o.mutate(child)
			}
			if child.HLString == p1.HLString || child.HLString == p2.HLString {
				continue
			}
			if _, dup := seen[child.HLString]; dup {
				continue
			}
			seen[child.HLString] = struct{}{}
			if p1.HLString != p2.HLString {
				o.arena.Adopt(child, p1, p2)
			} else {
				o.arena.Adopt(child, p1)
			}
			pool = append(pool, child)
			made++
			if len(pool) == n {
				break
			}
		}
		if made == 0 {
			retries++
		}
	}
	if len(pool) == 0 {
		return nil, errors.WithFields(
			errors.New(errors.EvolutionFailed, "offspring generation produced no new individuals"),
			errors.Fields{
				"generation": generation,
				"pop_size":   len(pop),
				"retries":    retries,
			})
	}
	logger.Debug(ctx, "Generated offspring pool: generation=%d, size=%d, minimize=%t", generation, len(pool), minimize)
	return pool, nil
}

// Select picks one individual by roulette wheel over composite fitness.
// For minimization the wheel is inverted so the lowest fitness gets the
// largest slice.
func (o *Operators) Select(pop []*solution.Solution, minimize bool) *solution.Solution {
	if len(pop) == 1 {
		return pop[0]
	}
	lo, hi := pop[0].CFitness, pop[0].CFitness
	for _, cs := range pop[1:] {
		if cs.CFitness < lo {
			lo = cs.CFitness
		}
		if cs.CFitness > hi {
			hi = cs.CFitness
		}
	}
	const eps = 1e-9
	weights := make([]float64, len(pop))
	total := 0.0
	for i, cs := range pop {
		w := cs.CFitness - lo + eps
		if minimize {
			w = hi - cs.CFitness + eps
		}
		weights[i] = w
		total += w
	}
	r := o.rng.Float64() * total
	for i, w := range weights {
		r -= w
		if r <= 0 {
			return pop[i]
		}
	}
	return pop[len(pop)-1]
}

// crossover recombines two parents module-wise: for each mutable module a
// single cut point is chosen in both genomes and the tails are swapped.
// Immutable modules are inherited unchanged, child 1 from parent 1 and
// child 2 from parent 2.
func (o *Operators) crossover(p1, p2 *solution.Solution) []*solution.Solution {
	order := o.moduleOrder(p1)
	g1 := make(map[string]solution.ModuleGenome, len(order))
	g2 := make(map[string]solution.ModuleGenome, len(order))
	for _, name := range order {
		m1, m2 := p1.Modules[name], p2.Modules[name]
		if !m1.Mutable || !m2.Mutable {
			g1[name], g2[name] = m1, m2
			continue
		}
		a1 := Atoms(m1.String)
		a2 := Atoms(m2.String)
		c1 := o.cut(a1)
		c2 := o.cut(a2)
		s1 := strings.Join(a1[:c1], "") + strings.Join(a2[c2:], "")
		s2 := strings.Join(a2[:c2], "") + strings.Join(a1[c1:], "")
		g1[name] = solution.ModuleGenome{String: s1, Mutable: true}
		g2[name] = solution.ModuleGenome{String: s2, Mutable: true}
	}
	return []*solution.Solution{
		o.assemble(order, g1),
		o.assemble(order, g2),
	}
}

// mutate applies one symbol-level edit to a random mutable module: an atom
// is duplicated, removed, or swapped with a neighbor. Brackets move as a
// unit so the string stays balanced.
func (o *Operators) mutate(cs *solution.Solution) {
	order := o.moduleOrder(cs)
	mutable := make([]string, 0, len(order))
	for _, name := range order {
		if cs.Modules[name].Mutable {
			mutable = append(mutable, name)
		}
	}
	if len(mutable) == 0 {
		return
	}
	name := mutable[o.rng.Intn(len(mutable))]
	genome := cs.Modules[name]
	atoms := Atoms(genome.String)
	if len(atoms) == 0 {
		return
	}
	i := o.rng.Intn(len(atoms))
	switch o.rng.Intn(3) {
	case 0: // duplicate
		atoms = append(atoms[:i+1], atoms[i:]...)
	case 1: // remove, but never empty the genome
		if len(atoms) > 1 {
			atoms = append(atoms[:i], atoms[i+1:]...)
		}
	default: // swap with the next atom
		if i+1 < len(atoms) {
			atoms[i], atoms[i+1] = atoms[i+1], atoms[i]
		}
	}
	genome.String = strings.Join(atoms, "")
	cs.Modules[name] = genome
	o.reassemble(cs, order)
}

func (o *Operators) clone(p *solution.Solution) *solution.Solution {
	child := solution.New(p.HLString)
	for name, g := range p.Modules {
		child.Modules[name] = g
	}
	child.BaseColor = p.BaseColor
	return child
}

func (o *Operators) assemble(order []string, genomes map[string]solution.ModuleGenome) *solution.Solution {
	var b strings.Builder
	for _, name := range order {
		b.WriteString(genomes[name].String)
	}
	child := solution.New(b.String())
	for name, g := range genomes {
		child.Modules[name] = g
	}
	return child
}

func (o *Operators) reassemble(cs *solution.Solution, order []string) {
	var b strings.Builder
	for _, name := range order {
		b.WriteString(cs.Modules[name].String)
	}
	cs.HLString = b.String()
}

// moduleOrder returns the configured module order restricted to modules the
// solution actually carries. Solutions without module genomes fall back to
// a single implicit module spanning the whole string.
func (o *Operators) moduleOrder(cs *solution.Solution) []string {
	if len(cs.Modules) == 0 {
		cs.Modules["all"] = solution.ModuleGenome{String: cs.HLString, Mutable: true}
		return []string{"all"}
	}
	order := make([]string, 0, len(cs.Modules))
	for _, name := range o.params.Modules {
		if _, ok := cs.Modules[name]; ok {
			order = append(order, name)
		}
	}
	if len(order) == len(cs.Modules) {
		return order
	}
	// modules unknown to the config keep a stable order
	rest := make([]string, 0)
	for name := range cs.Modules {
		known := false
		for _, n := range order {
			if n == name {
				known = true
				break
			}
		}
		if !known {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(order, rest...)
}

// cut picks a crossover point that keeps at least one atom on each side
// when possible.
func (o *Operators) cut(atoms []string) int {
	if len(atoms) <= 1 {
		return len(atoms)
	}
	return 1 + o.rng.Intn(len(atoms)-1)
}

// Atoms splits a production string into mutation units: single symbols,
// with bracketed branches kept whole. Unbalanced brackets terminate the
// group at the end of the string.
func Atoms(s string) []string {
	out := make([]string, 0, len(s))
	for i := 0; i < len(s); {
		if s[i] == '[' {
			depth := 0
			j := i
			for ; j < len(s); j++ {
				if s[j] == '[' {
					depth++
				} else if s[j] == ']' {
					depth--
					if depth == 0 {
						j++
						break
					}
				}
			}
			out = append(out, s[i:j])
			i = j
			continue
		}
		out = append(out, string(s[i]))
		i++
	}
	return out
}

// ReducePopulation truncates the population to the target size, keeping
// the best individuals by composite fitness (highest when maximize, lowest
// otherwise). Ties keep the earlier individual, so the order of insertion
// breaks them.
func ReducePopulation(pop []*solution.Solution, to int, maximize bool) []*solution.Solution {
	if len(pop) <= to {
		return pop
	}
	out := append([]*solution.Solution(nil), pop...)
	sort.SliceStable(out, func(i, j int) bool {
		if maximize {
			return out[i].CFitness > out[j].CFitness
		}
		return out[i].CFitness < out[j].CFitness
	})
	return out[:to]
}
