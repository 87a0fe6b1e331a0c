// Package fi2pop implements the vanilla two-population solver: a feasible
// population maximizing objective fitness and an infeasible population
// minimizing constraint violations, exchanging individuals whenever
// classification flips an offspring's side. The archive-based search wraps
// the same mechanics in a behavior grid; this solver is the grid-free
// baseline.
package fi2pop

import (
	"context"
	"math/rand"
	"time"

	"github.com/evoship/evoship/pkg/config"
	"github.com/evoship/evoship/pkg/errors"
	"github.com/evoship/evoship/pkg/evo"
	"github.com/evoship/evoship/pkg/fitness"
	"github.com/evoship/evoship/pkg/grammar"
	"github.com/evoship/evoship/pkg/logging"
	"github.com/evoship/evoship/pkg/solution"
)

// Solver runs the FI-2Pop genetic algorithm over a grammar engine.
//
// The tracking slices grow by one entry per generation (plus one for
// initialization) and feed plots and reports: best and mean composite
// fitness per population, and the fraction of fresh feasible individuals
// whose lineage crossed over from the infeasible side.
type Solver struct {
	engine grammar.Engine
	ops    *evo.Operators
	arena  *solution.Arena
	rng    *rand.Rand

	objectives []*fitness.Objective
	nsc        float64

	popSize  int
	nRetries int
	maxAge   int

	FTop, FMean []float64
	ITop, IMean []float64

	// PercFeasInfeas tracks, per generation, the fraction of the feasible
	// population that is new and descends from an infeasible parent.
	PercFeasInfeas []float64
}

// Option configures a Solver at construction.
type Option func(*Solver)

// WithObjectives overrides the feasible fitness objectives.
func WithObjectives(objectives []*fitness.Objective) Option {
	return func(s *Solver) { s.objectives = objectives }
}

// WithRNG sets the random source.
func WithRNG(rng *rand.Rand) Option {
	return func(s *Solver) { s.rng = rng }
}

// New builds a solver from configuration.
func New(cfg config.Config, engine grammar.Engine, opts ...Option) *Solver {
	s := &Solver{
		engine:     engine,
		objectives: fitness.DefaultObjectives(),
		popSize:    cfg.Search.PopSize,
		nRetries:   cfg.Search.NRetries,
		maxAge:     cfg.Search.MaxAge,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		seed := cfg.Search.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		s.rng = rand.New(rand.NewSource(seed))
	}
	s.nsc = 0.5 * float64(grammar.SoftConstraintCount(engine))
	s.arena = solution.NewArena()

	mods := engine.Modules()
	names := make([]string, 0, len(mods))
	for _, m := range mods {
		names = append(names, m.Name)
	}
	s.ops = evo.NewOperators(evo.DefaultParams(names), s.arena, s.rng)
	return s
}

// Reset clears the tracking history and the lineage arena.
func (s *Solver) Reset() {
	s.FTop, s.FMean = nil, nil
	s.ITop, s.IMean = nil, nil
	s.PercFeasInfeas = nil
	s.arena.Reset()
}

// assignFitness scores a classified individual for its population: the
// weighted objective sum plus soft-constraint slack when feasible, the raw
// violation count otherwise.
func (s *Solver) assignFitness(cs *solution.Solution) {
	cs.Age = s.maxAge
	if cs.IsFeasible {
		cs.Fitness = fitness.Evaluate(s.objectives, cs)
		cs.CFitness = fitness.WeightedSum(s.objectives, cs.Fitness) + s.nsc - float64(cs.NCV)
		return
	}
	cs.CFitness = float64(cs.NCV)
}

// Initialize bulk-generates the starting populations with the
// satisfiability pre-check disabled, retrying until both reach the target
// size or the retry budget runs out. Fails when either population stays
// empty.
func (s *Solver) Initialize(ctx context.Context) (fpop, ipop []*solution.Solution, err error) {
	logger := logging.GetLogger()
	s.engine.DisableSatCheck()

	for attempt := 0; attempt < s.nRetries; attempt++ {
		sols, genErr := s.engine.Generate(ctx, grammar.GenerateRequest{N: s.popSize})
		if genErr != nil {
			if errors.IsRecoverable(genErr) {
				logger.Warn(ctx, "Initialization attempt %d failed: %v", attempt, genErr)
				continue
			}
			return nil, nil, genErr
		}
		s.engine.Classify(sols)
		for _, cs := range sols {
			switch {
			case cs.IsFeasible && len(fpop) < s.popSize && !solution.Contains(fpop, cs):
				s.assignFitness(cs)
				fpop = append(fpop, cs)
			case !cs.IsFeasible && len(ipop) < s.popSize && !solution.Contains(ipop, cs):
				s.assignFitness(cs)
				ipop = append(ipop, cs)
			}
		}
		logger.Debug(ctx, "Initialization attempt %d: feasible=%d/%d, infeasible=%d/%d",
			attempt, len(fpop), s.popSize, len(ipop), s.popSize)
		if len(fpop) == s.popSize && len(ipop) == s.popSize {
			break
		}
	}
	if len(fpop) == 0 || len(ipop) == 0 {
		return nil, nil, errors.WithFields(
			errors.New(errors.GenerationFailed, "initial population generation exhausted its retries"),
			errors.Fields{"feasible": len(fpop), "infeasible": len(ipop)})
	}
	s.track(fpop, ipop)
	return fpop, ipop, nil
}

// Evolve runs the algorithm for n generations. Offspring of each
// population are classified and routed to the pool matching their
// feasibility, then both pools are deduplicated and truncated back to the
// population size, feasible keeping the highest fitness and infeasible the
// lowest.
func (s *Solver) Evolve(ctx context.Context, fpop, ipop []*solution.Solution, n int) ([]*solution.Solution, []*solution.Solution, error) {
	for gen := 0; gen < n; gen++ {
		fpool := append([]*solution.Solution(nil), fpop...)
		ipool := append([]*solution.Solution(nil), ipop...)

		var err error
		fpool, ipool, err = s.breed(ctx, fpop, gen, false, fpool, ipool)
		if err != nil {
			return nil, nil, err
		}
		ipool = solution.Dedup(ipool)
		if len(ipool) > s.popSize {
			ipool = evo.ReducePopulation(ipool, s.popSize, false)
		}
		ipop = ipool

		fpool, ipool, err = s.breed(ctx, ipop, gen, true, fpool, ipool)
		if err != nil {
			return nil, nil, err
		}
		fpool = solution.Dedup(fpool)
		if len(fpool) > s.popSize {
			fpool = evo.ReducePopulation(fpool, s.popSize, true)
		}
		fpop = fpool

		// The second breeding pass may have produced infeasible children;
		// fold them back into the infeasible population.
		ipool = solution.Dedup(ipool)
		if len(ipool) > s.popSize {
			ipool = evo.ReducePopulation(ipool, s.popSize, false)
		}
		ipop = ipool

		// Repairs are feasible newcomers bred from the infeasible side.
		repaired := 0
		for _, cs := range fpop {
			if cs.Age == s.maxAge {
				parents := s.arena.Parents(cs)
				if len(parents) > 0 && !parents[0].IsFeasible {
					repaired++
				}
			}
			cs.Age--
		}
		s.PercFeasInfeas = append(s.PercFeasInfeas, float64(repaired)/float64(len(fpop)))
		s.track(fpop, ipop)
	}
	return fpop, ipop, nil
}

// breed generates one offspring pool from pop and routes each classified
// child into the feasible or infeasible pool.
func (s *Solver) breed(ctx context.Context, pop []*solution.Solution, gen int, minimize bool, fpool, ipool []*solution.Solution) ([]*solution.Solution, []*solution.Solution, error) {
	logger := logging.GetLogger()
	offspring, err := s.ops.CreateNewPool(ctx, pop, gen, s.popSize, minimize)
	if err != nil {
		if errors.IsRecoverable(err) {
			logger.Warn(ctx, "Offspring generation skipped: %v", err)
			return fpool, ipool, nil
		}
		return nil, nil, err
	}
	kept := offspring[:0]
	for _, cs := range offspring {
		if err := s.engine.Materialize(cs); err != nil {
			logger.Warn(ctx, "Dropping unmaterializable offspring %q: %v", cs.HLString, err)
			continue
		}
		kept = append(kept, cs)
	}
	s.engine.Classify(kept)
	for _, cs := range kept {
		s.assignFitness(cs)
		if cs.IsFeasible {
			s.arena.CreditFeasible(cs)
			fpool = append(fpool, cs)
		} else {
			ipool = append(ipool, cs)
		}
	}
	return fpool, ipool, nil
}

// track appends one generation of population statistics.
func (s *Solver) track(fpop, ipop []*solution.Solution) {
	ftop, fmean := popStats(fpop, true)
	itop, imean := popStats(ipop, false)
	s.FTop = append(s.FTop, ftop)
	s.FMean = append(s.FMean, fmean)
	s.ITop = append(s.ITop, itop)
	s.IMean = append(s.IMean, imean)
}

func popStats(pop []*solution.Solution, maximize bool) (top, mean float64) {
	if len(pop) == 0 {
		return 0, 0
	}
	top = pop[0].CFitness
	total := 0.0
	for _, cs := range pop {
		total += cs.CFitness
		if maximize && cs.CFitness > top {
			top = cs.CFitness
		} else if !maximize && cs.CFitness < top {
			top = cs.CFitness
		}
	}
	return top, total / float64(len(pop))
}
