// Package archive implements the MAP-Elites behavior grid at the heart of
// the search: a 2D array of bins indexed by two behavior descriptors, with
// feasible and infeasible populations per bin, adaptive subdivision, and
// the step modes that drive offspring generation through the two-population
// evolutionary machinery.
package archive

import (
	"context"
	"math/rand"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/evoship/evoship/pkg/bandit"
	"github.com/evoship/evoship/pkg/behavior"
	"github.com/evoship/evoship/pkg/config"
	"github.com/evoship/evoship/pkg/errors"
	"github.com/evoship/evoship/pkg/estimator"
	"github.com/evoship/evoship/pkg/evo"
	"github.com/evoship/evoship/pkg/fitness"
	"github.com/evoship/evoship/pkg/grammar"
	"github.com/evoship/evoship/pkg/hull"
	"github.com/evoship/evoship/pkg/logging"
	"github.com/evoship/evoship/pkg/solution"
	"github.com/evoship/evoship/pkg/structure"
)

// Archive is the MAP-Elites grid plus everything a step needs: the grammar
// engine, the genetic operators, objectives and descriptors, the optional
// surrogate estimator with its training buffer, the emitter or bandit
// agent, and the hull post-processor.
//
// All mutation happens from a single orchestrating goroutine; the only
// internal parallelism is the per-candidate fan-out inside a step, which
// touches no shared state.
type Archive struct {
	engine grammar.Engine
	ops    *evo.Operators
	arena  *solution.Arena
	rng    *rand.Rand

	objectives []*fitness.Objective
	descs      [2]*behavior.Descriptor

	est    estimator.Estimator
	estCfg config.EstimatorConfig
	buffer *estimator.Buffer

	emitter Emitter
	lookup  EmitterLookup

	agent       bandit.Agent
	rewards     []RewardFunc
	rewardNames []string

	hull *hull.Builder

	initialBins [2]int
	binSizes    [2][]float64
	limits      [2]float64
	grid        [][]*Bin

	// nsc is half the count of soft constraints across both grammar
	// levels; the feasible composite fitness adds nsc - ncv as slack.
	nsc            float64
	maxFeasFitness float64

	epsilonF  float64
	infeasIdx int

	binCap            int
	maxAge            int
	popSize           int
	nRetries          int
	workers           int
	alignmentInterval int

	allowAging       bool
	allowResIncrease bool

	// EnforceQnt makes interactive steps reject selections of bins
	// without feasible individuals.
	EnforceQnt bool

	xRange, yRange, zRange config.DimRange
	maxX, maxY, maxZ       int

	nNewSolutions int
}

// Option configures an Archive at construction.
type Option func(*Archive)

// WithEstimator overrides the estimator built from configuration. Passing
// nil disables the surrogate.
func WithEstimator(est estimator.Estimator) Option {
	return func(a *Archive) { a.est = est }
}

// WithEmitter sets the emitter used by emitter-driven steps.
func WithEmitter(em Emitter) Option {
	return func(a *Archive) { a.emitter = em }
}

// WithEmitterLookup sets the registry used by the bandit step to resolve
// emitters by name.
func WithEmitterLookup(lookup EmitterLookup) Option {
	return func(a *Archive) { a.lookup = lookup }
}

// WithAgent sets the bandit agent and its reward function names, resolved
// against the Rewards registry.
func WithAgent(agent bandit.Agent, rewardNames ...string) Option {
	return func(a *Archive) {
		a.agent = agent
		a.rewardNames = rewardNames
	}
}

// WithObjectives overrides the feasible fitness objectives.
func WithObjectives(objectives []*fitness.Objective) Option {
	return func(a *Archive) { a.objectives = objectives }
}

// WithDescriptors overrides the behavior descriptor pair.
func WithDescriptors(descs [2]*behavior.Descriptor) Option {
	return func(a *Archive) { a.descs = descs }
}

// WithHullBuilder overrides the hull post-processor. Passing nil disables
// hull construction.
func WithHullBuilder(b *hull.Builder) Option {
	return func(a *Archive) { a.hull = b }
}

// WithRNG sets the random source, letting runs replay deterministically.
func WithRNG(rng *rand.Rand) Option {
	return func(a *Archive) { a.rng = rng }
}

// New builds an archive over the grammar engine from configuration. The
// archive needs either an emitter or a bandit agent (with reward functions
// and an emitter lookup); providing neither is a configuration fault.
func New(cfg config.Config, engine grammar.Engine, opts ...Option) (*Archive, error) {
	a := &Archive{
		engine:            engine,
		objectives:        fitness.DefaultObjectives(),
		descs:             behavior.Default(),
		estCfg:            cfg.Estimator,
		epsilonF:          cfg.Archive.EpsilonF,
		infeasIdx:         cfg.Archive.InfeasFitnessIdx,
		binCap:            cfg.Archive.BinPopSize,
		maxAge:            cfg.Search.MaxAge,
		popSize:           cfg.Search.PopSize,
		nRetries:          cfg.Search.NRetries,
		workers:           cfg.Search.Workers,
		alignmentInterval: cfg.Search.AlignmentInterval,
		allowAging:        cfg.Archive.AllowAging,
		allowResIncrease:  cfg.Archive.AllowResIncrease,
		EnforceQnt:        cfg.Archive.EnforceQnt,
		initialBins:       [2]int{cfg.Archive.BinsX, cfg.Archive.BinsY},
		xRange:            cfg.Grammar.XRange,
		yRange:            cfg.Grammar.YRange,
		zRange:            cfg.Grammar.ZRange,
		maxX:              cfg.Grammar.MaxXSize,
		maxY:              cfg.Grammar.MaxYSize,
		maxZ:              cfg.Grammar.MaxZSize,
	}

	est, err := estimator.New(estimator.Kind(cfg.Estimator.Kind), cfg.Estimator)
	if err != nil {
		return nil, err
	}
	a.est = est

	hb, err := hull.NewBuilder(cfg.Hull)
	if err != nil {
		return nil, err
	}
	a.hull = hb

	for _, opt := range opts {
		opt(a)
	}

	if a.emitter == nil && a.agent == nil {
		return nil, errors.New(errors.ValidationFailed,
			"archive requires an emitter or a bandit agent")
	}
	if a.agent != nil {
		if len(a.rewardNames) == 0 {
			return nil, errors.New(errors.ValidationFailed,
				"a bandit agent requires at least one reward function")
		}
		if a.lookup == nil {
			return nil, errors.New(errors.ValidationFailed,
				"a bandit agent requires an emitter lookup")
		}
		for _, name := range a.rewardNames {
			fn, ok := Rewards[name]
			if !ok {
				return nil, errors.WithFields(
					errors.New(errors.ValidationFailed, "unknown reward function"),
					errors.Fields{"name": name})
			}
			a.rewards = append(a.rewards, fn)
		}
	}

	if a.rng == nil {
		seed := cfg.Search.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		a.rng = rand.New(rand.NewSource(seed))
	}
	if a.workers <= 0 {
		a.workers = 4
	}

	a.arena = solution.NewArena()
	a.ops = evo.NewOperators(evo.DefaultParams(moduleNames(engine)), a.arena, a.rng)
	a.buffer = estimator.NewBuffer(cfg.Estimator.BufferSize)
	a.nsc = 0.5 * float64(grammar.SoftConstraintCount(engine))
	a.maxFeasFitness = fitness.MaxTotal(a.objectives)
	a.limits = [2]float64{a.descs[0].Bounds[1], a.descs[1].Bounds[1]}
	a.buildGrid()
	return a, nil
}

func moduleNames(engine grammar.Engine) []string {
	mods := engine.Modules()
	names := make([]string, 0, len(mods))
	for _, m := range mods {
		names = append(names, m.Name)
	}
	return names
}

// buildGrid resets bin sizes to a uniform split of the descriptor bounds
// and creates a fresh empty grid.
func (a *Archive) buildGrid() {
	a.binSizes = [2][]float64{
		uniformSizes(a.limits[0]-a.descs[0].Bounds[0], a.initialBins[0]),
		uniformSizes(a.limits[1]-a.descs[1].Bounds[0], a.initialBins[1]),
	}
	a.grid = make([][]*Bin, a.initialBins[0])
	for i := range a.grid {
		a.grid[i] = make([]*Bin, a.initialBins[1])
		for j := range a.grid[i] {
			a.grid[i][j] = a.newBin([2]int{i, j},
				[2]float64{a.binSizes[0][i], a.binSizes[1][j]})
		}
	}
}

func (a *Archive) newBin(index [2]int, size [2]float64) *Bin {
	return NewBin(index, size, a.binCap, a.maxAge, a.est != nil)
}

func uniformSizes(span float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = span / float64(n)
	}
	return out
}

// Bins exposes the grid for emitters and reporting. The grid must not be
// mutated by callers.
func (a *Archive) Bins() [][]*Bin {
	return a.grid
}

// Shape returns the current grid dimensions.
func (a *Archive) Shape() (rows, cols int) {
	return len(a.grid), len(a.grid[0])
}

// BinAt returns the bin at the given grid index.
func (a *Archive) BinAt(i, j int) (*Bin, error) {
	if i < 0 || i >= len(a.grid) || j < 0 || j >= len(a.grid[0]) {
		return nil, errors.WithFields(
			errors.New(errors.InvalidBinIndex, "bin index out of grid bounds"),
			errors.Fields{"i": i, "j": j, "rows": len(a.grid), "cols": len(a.grid[0])})
	}
	return a.grid[i][j], nil
}

func (a *Archive) eachBin(fn func(b *Bin)) {
	for _, row := range a.grid {
		for _, b := range row {
			fn(b)
		}
	}
}

// boundaries returns the cumulative lower boundaries of the bins along one
// axis, starting at the descriptor's lower bound.
func (a *Archive) boundaries(axis int) []float64 {
	sizes := a.binSizes[axis]
	out := make([]float64, len(sizes))
	out[0] = a.descs[axis].Bounds[0]
	for i := 1; i < len(sizes); i++ {
		out[i] = out[i-1] + sizes[i-1]
	}
	return out
}

// locate maps behavior descriptor values to a grid index: per axis, the
// bin whose lower boundary is the greatest value not exceeding the
// descriptor.
func (a *Archive) locate(b [2]float64) (int, int) {
	return digitize(b[0], a.boundaries(0)), digitize(b[1], a.boundaries(1))
}

func digitize(v float64, boundaries []float64) int {
	idx := 0
	for k := 1; k < len(boundaries); k++ {
		if v >= boundaries[k] {
			idx = k
		} else {
			break
		}
	}
	return idx
}

// UpdateBins inserts solutions into their behavior bins and, when aging is
// enabled, enforces the per-bin capacity.
func (a *Archive) UpdateBins(lcs []*solution.Solution) {
	for _, cs := range lcs {
		i, j := a.locate(cs.Behavior)
		a.grid[i][j].Insert(cs)
	}
	if a.allowAging {
		a.eachBin(func(b *Bin) { b.RemoveOld() })
	}
}

// AgeBins shifts every archived individual's age by diff, when aging is
// enabled. Steps call it with -1 at the start of a generation and roll
// back with +1 when no offspring survive.
func (a *Archive) AgeBins(diff int) {
	if !a.allowAging {
		return
	}
	a.eachBin(func(b *Bin) { b.Age(diff) })
}

// ValidBins returns the bins holding at least one feasible individual.
func (a *Archive) ValidBins() []*Bin {
	var out []*Bin
	a.eachBin(func(b *Bin) {
		if b.NonEmpty(Feasible) {
			out = append(out, b)
		}
	})
	return out
}

// UpdateElites refreshes every bin's new-elite flags, or clears them when
// reset is set.
func (a *Archive) UpdateElites(reset bool) {
	a.eachBin(func(b *Bin) {
		for _, class := range Classes {
			if reset {
				b.NewElite[class] = false
			} else {
				b.CheckNewElite(class)
			}
		}
	})
}

// ComputeFitness evaluates a solution's raw fitness and representation.
//
// Feasible solutions get the weighted objective sum, with the objective
// values plus normalized bounding-box ratios as representation. Infeasible
// solutions get their representation from the four proxy measures and
// their fitness from the constraint-violation count, or from the surrogate
// when one is configured: the prediction if trained, epsilon otherwise,
// with quantile estimators storing the full order-statistic triple and
// returning the configured index.
func (a *Archive) ComputeFitness(cs *solution.Solution) (float64, error) {
	if cs.IsFeasible {
		cs.Fitness = fitness.Evaluate(a.objectives, cs)
		size := cs.Size()
		rep := append([]float64(nil), cs.Fitness...)
		rep = append(rep,
			float64(size[0])/float64(a.maxX),
			float64(size[1])/float64(a.maxY),
			float64(size[2])/float64(a.maxZ))
		cs.Representation = rep
		return fitness.WeightedSum(a.objectives, cs.Fitness), nil
	}

	cs.Representation = fitness.Evaluate(fitness.InfeasibleProxies(), cs)
	if a.est == nil {
		return float64(cs.NCV), nil
	}
	switch a.est.Kind() {
	case estimator.KindGaussian, estimator.KindPoint:
		if !a.est.IsTrained() {
			return a.epsilonF, nil
		}
		return a.est.Predict(cs.Representation)[0], nil
	case estimator.KindQuantile:
		if a.est.IsTrained() {
			cs.Fitness = a.est.Predict(cs.Representation)
		} else {
			cs.Fitness = []float64{a.epsilonF, a.epsilonF, a.epsilonF}
		}
		return cs.Fitness[a.infeasIdx], nil
	default:
		return 0, errors.WithFields(
			errors.New(errors.UnsupportedEstimator, "unrecognized estimator kind"),
			errors.Fields{"kind": string(a.est.Kind())})
	}
}

// AssignFitness is the only path by which freshly generated or reloaded
// individuals acquire composite fitness, behavior descriptors, and a fresh
// age. Feasible solutions add the soft-constraint slack nsc - ncv.
func (a *Archive) AssignFitness(cs *solution.Solution) error {
	f, err := a.ComputeFitness(cs)
	if err != nil {
		return err
	}
	if cs.IsFeasible {
		f += a.nsc - float64(cs.NCV)
	}
	cs.CFitness = f
	cs.Behavior = [2]float64{a.descs[0].Measure(cs), a.descs[1].Measure(cs)}
	cs.Age = a.maxAge
	return nil
}

// prepareContent post-processes a materialized solution before fitness
// evaluation: external hull, base color, rotation into the tileset
// orientation, size sync.
func (a *Archive) prepareContent(cs *solution.Solution, addHull bool) error {
	c := cs.Content()
	if c == nil {
		return nil
	}
	if a.hull != nil && addHull {
		if err := a.hull.AddExternalHull(c); err != nil {
			return err
		}
	}
	c.SetColor(cs.BaseColor)
	c.Rotate(structure.AxisY, 3)
	cs.NBlocks = c.NumBlocks()
	cs.SyncContentSize()
	return nil
}

// withinRange reports whether a solution's bounding box fits the valid
// dimension ranges. Out-of-range solutions are discarded permanently.
func (a *Archive) withinRange(cs *solution.Solution) bool {
	size := cs.Size()
	return a.xRange.Contains(size[0]) && a.yRange.Contains(size[1]) && a.zRange.Contains(size[2])
}

// UpdateFitnessWeights replaces the objective weights and recomputes every
// archived feasible composite fitness from the stored raw vectors. The
// recompute is idempotent for equal weights.
func (a *Archive) UpdateFitnessWeights(weights []float64) error {
	if len(weights) != len(a.objectives) {
		return errors.WithFields(
			errors.New(errors.InvalidInput, "one weight per objective required"),
			errors.Fields{"weights": len(weights), "objectives": len(a.objectives)})
	}
	for i, w := range weights {
		a.objectives[i].Weight = w
	}
	a.eachBin(func(b *Bin) {
		for _, cs := range b.Population(Feasible) {
			cs.CFitness = fitness.WeightedSum(a.objectives, cs.Fitness) + a.nsc - float64(cs.NCV)
		}
	})
	return nil
}

// UpdateBehaviorDescriptors swaps the grid axes: every archived solution's
// descriptors are recomputed in parallel and the grid is rebuilt around
// the new bounds.
func (a *Archive) UpdateBehaviorDescriptors(ctx context.Context, descs [2]*behavior.Descriptor) error {
	a.descs = descs
	a.limits = [2]float64{descs[0].Bounds[1], descs[1].Bounds[1]}

	var lcs []*solution.Solution
	a.eachBin(func(b *Bin) { lcs = append(lcs, b.Solutions()...) })

	p := pool.New().WithMaxGoroutines(a.workers)
	for _, cs := range lcs {
		cs := cs
		p.Go(func() {
			cs.Behavior = [2]float64{a.descs[0].Measure(cs), a.descs[1].Measure(cs)}
		})
	}
	p.Wait()
	return a.Reset(ctx, lcs)
}

// UpdateValidRanges replaces the valid dimension ranges and drops archived
// solutions that no longer fit.
func (a *Archive) UpdateValidRanges(x, y, z config.DimRange) {
	a.xRange, a.yRange, a.zRange = x, y, z
	a.eachBin(func(b *Bin) {
		for _, class := range Classes {
			pop := b.Population(class)
			kept := pop[:0]
			for _, cs := range pop {
				if a.withinRange(cs) {
					kept = append(kept, cs)
				}
			}
			b.setPopulation(class, kept)
		}
	})
}

// ToggleModuleMutability flips the named module's mutability on every
// archived solution and in the grammar engine.
func (a *Archive) ToggleModuleMutability(module string) {
	a.eachBin(func(b *Bin) { b.ToggleModuleMutability(module) })
	a.engine.ToggleModule(module)
}

// NSolutions counts the archived individuals of a class.
func (a *Archive) NSolutions(class Class) int {
	n := 0
	a.eachBin(func(b *Bin) { n += b.Len(class) })
	return n
}

// Coverage returns the number of bins holding the class and the total bin
// count.
func (a *Archive) Coverage(class Class) (covered, total int) {
	a.eachBin(func(b *Bin) {
		total++
		if b.NonEmpty(class) {
			covered++
		}
	})
	return covered, total
}

// NewSolutions reports how many solutions the archive has generated since
// construction or reset.
func (a *Archive) NewSolutions() int {
	return a.nNewSolutions
}

// Objectives exposes the feasible objectives, e.g. for reporting.
func (a *Archive) Objectives() []*fitness.Objective {
	return a.objectives
}

// Descriptors exposes the behavior descriptor pair.
func (a *Archive) Descriptors() [2]*behavior.Descriptor {
	return a.descs
}

// Estimator exposes the configured surrogate, nil when disabled.
func (a *Archive) Estimator() estimator.Estimator {
	return a.est
}

// MaxFeasibleFitness is the ceiling of the weighted objective sum, used to
// normalize estimator training targets.
func (a *Archive) MaxFeasibleFitness() float64 {
	return a.maxFeasFitness
}

// MaxAge is the age assigned to freshly evaluated individuals.
func (a *Archive) MaxAge() int {
	return a.maxAge
}

// Arena exposes the lineage arena shared with the genetic operators.
func (a *Archive) Arena() *solution.Arena {
	return a.arena
}

// Reset rebuilds the archive at its initial resolution. When solutions are
// provided they are re-inserted into the fresh grid; otherwise the initial
// populations are regenerated from the grammar. The estimator is replaced
// by an untrained one of the same kind and the buffer cleared.
func (a *Archive) Reset(ctx context.Context, lcs []*solution.Solution) error {
	a.buildGrid()
	if a.est != nil {
		est, err := estimator.New(a.est.Kind(), a.estCfg)
		if err != nil {
			return err
		}
		a.est = est
	}
	a.buffer.Clear()
	if a.emitter != nil {
		a.emitter.Reset()
	}
	a.nNewSolutions = 0

	if lcs == nil {
		return a.GenerateInitialPopulations(ctx)
	}
	a.UpdateBins(lcs)
	a.CheckResTrigger(ctx)
	if a.emitter != nil && a.emitter.RequiresInit() {
		a.emitter.Init(a.grid)
	}
	return nil
}

// GenerateInitialPopulations bulk-generates the starting feasible and
// infeasible populations with the satisfiability pre-check disabled,
// retrying until both reach the configured size or the retry budget runs
// out, then bins them and initializes the emitter.
func (a *Archive) GenerateInitialPopulations(ctx context.Context) error {
	logger := logging.GetLogger()
	a.engine.DisableSatCheck()

	var fpop, ipop []*solution.Solution
	for attempt := 0; attempt < a.nRetries; attempt++ {
		sols, err := a.engine.Generate(ctx, grammar.GenerateRequest{
			N:                a.popSize,
			CreateStructures: true,
		})
		if err != nil {
			if errors.IsRecoverable(err) {
				logger.Warn(ctx, "Initial generation attempt %d failed: %v", attempt, err)
				continue
			}
			return err
		}
		a.engine.Classify(sols)
		for _, cs := range sols {
			if err := a.prepareContent(cs, false); err != nil {
				return err
			}
			if !a.withinRange(cs) {
				continue
			}
			switch {
			case cs.IsFeasible && len(fpop) < a.popSize && !solution.Contains(fpop, cs):
				if a.hull != nil && cs.HasContent() {
					if err := a.hull.AddExternalHull(cs.Content()); err != nil {
						return err
					}
					cs.NBlocks = cs.Content().NumBlocks()
					cs.SyncContentSize()
				}
				if err := a.AssignFitness(cs); err != nil {
					return err
				}
				fpop = append(fpop, cs)
			case !cs.IsFeasible && len(ipop) < a.popSize && !solution.Contains(ipop, cs):
				if err := a.AssignFitness(cs); err != nil {
					return err
				}
				ipop = append(ipop, cs)
			}
		}
		logger.Debug(ctx, "Initialization attempt %d: feasible=%d/%d, infeasible=%d/%d",
			attempt, len(fpop), a.popSize, len(ipop), a.popSize)
		if len(fpop) == a.popSize && len(ipop) == a.popSize {
			break
		}
	}

	a.UpdateBins(append(append([]*solution.Solution(nil), fpop...), ipop...))
	a.UpdateElites(false)
	if a.emitter != nil && a.emitter.RequiresInit() {
		a.emitter.Init(a.grid)
	}
	return nil
}
