package archive

import (
	"context"
	"strings"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/evoship/evoship/pkg/errors"
	"github.com/evoship/evoship/pkg/estimator"
	"github.com/evoship/evoship/pkg/logging"
	"github.com/evoship/evoship/pkg/solution"
)

// step runs one generation over the given source populations: pool
// creation, materialization, classification, parallel content preparation
// and fitness assignment, surrogate training, and periodic realignment of
// archived infeasible fitness. It returns the surviving offspring.
func (a *Archive) step(ctx context.Context, fpop, ipop []*solution.Solution, gen int) ([]*solution.Solution, error) {
	logger := logging.GetLogger()
	var generated []*solution.Solution

	for _, pop := range [][]*solution.Solution{fpop, ipop} {
		if len(pop) == 0 {
			continue
		}
		// Feasible offspring selection maximizes fitness. Infeasible
		// selection minimizes constraint violations unless a surrogate
		// drives infeasible fitness upward instead.
		minimize := !pop[0].IsFeasible && a.est == nil
		offspring, err := a.ops.CreateNewPool(ctx, pop, gen, a.binCap, minimize)
		if err != nil {
			if errors.IsRecoverable(err) {
				logger.Warn(ctx, "Offspring generation skipped: %v", err)
				continue
			}
			return nil, err
		}

		kept := offspring[:0]
		for _, cs := range offspring {
			if err := a.engine.Materialize(cs); err != nil {
				logger.Warn(ctx, "Dropping unmaterializable offspring %q: %v", cs.HLString, err)
				continue
			}
			kept = append(kept, cs)
		}
		a.engine.Classify(kept)

		p := pool.New().WithErrors().WithMaxGoroutines(a.workers)
		for _, cs := range kept {
			cs := cs
			p.Go(func() error {
				if err := a.prepareContent(cs, cs.IsFeasible); err != nil {
					return err
				}
				return a.AssignFitness(cs)
			})
		}
		if err := p.Wait(); err != nil {
			return nil, errors.Wrap(err, errors.GenerationFailed, "offspring evaluation failed")
		}

		for _, cs := range kept {
			if a.withinRange(cs) {
				generated = append(generated, cs)
			}
		}
	}

	if a.est != nil {
		if err := a.trainEstimator(ctx, generated); err != nil {
			return nil, err
		}
		a.realign(ctx, gen)
	}

	a.nNewSolutions += len(generated)
	return generated, nil
}

// trainEstimator feeds this generation's feasible offspring into the
// training buffer and refits the surrogate. An empty buffer skips the fit
// without failing the generation.
func (a *Archive) trainEstimator(ctx context.Context, generated []*solution.Solution) error {
	var feasible []*solution.Solution
	for _, cs := range generated {
		if cs.IsFeasible {
			feasible = append(feasible, cs)
		}
	}
	xs, ys := estimator.PrepareDataset(feasible)
	for i := range xs {
		a.buffer.Insert(xs[i], ys[i]/a.maxFeasFitness)
	}

	trace := logging.GetTraceSession(ctx)
	bx, by, err := a.buffer.Get()
	if err != nil {
		if errors.IsRecoverable(err) {
			if trace != nil {
				_ = trace.EmitTraining(0, true, 0)
			}
			return nil
		}
		return err
	}
	start := time.Now()
	if err := a.est.Fit(bx, by); err != nil {
		return err
	}
	if trace != nil {
		_ = trace.EmitTraining(len(bx), false, time.Since(start).Milliseconds())
	}
	return nil
}

// realign periodically recomputes archived infeasible fitness against the
// current surrogate, so individuals scored by an older model do not keep a
// stale advantage. Only individuals old enough to predate the previous
// alignment are touched; missing content is rebuilt first.
func (a *Archive) realign(ctx context.Context, gen int) {
	if !a.est.IsTrained() || a.alignmentInterval <= 0 || gen%a.alignmentInterval != 0 {
		return
	}
	logger := logging.GetLogger()
	a.eachBin(func(b *Bin) {
		for _, cs := range b.Population(Infeasible) {
			if cs.Age <= a.alignmentInterval {
				continue
			}
			if !cs.HasContent() {
				if err := a.engine.Materialize(cs); err != nil {
					logger.Warn(ctx, "Realignment skipped for %q: %v", cs.HLString, err)
					continue
				}
				if err := a.prepareContent(cs, false); err != nil {
					logger.Warn(ctx, "Realignment skipped for %q: %v", cs.HLString, err)
					continue
				}
			}
			f, err := a.ComputeFitness(cs)
			if err != nil {
				logger.Warn(ctx, "Realignment skipped for %q: %v", cs.HLString, err)
				continue
			}
			cs.CFitness = f
		}
	})
}

// RandStep evolves one uniformly chosen valid bin. An archive with no
// valid bins logs the condition and leaves ages untouched.
func (a *Archive) RandStep(ctx context.Context, gen int) error {
	a.AgeBins(-1)
	valid := a.ValidBins()
	if len(valid) == 0 {
		logging.GetLogger().Warn(ctx, "Random step skipped: no bin holds a feasible individual")
		a.AgeBins(1)
		return nil
	}
	chosen := valid[a.rng.Intn(len(valid))]
	generated, err := a.step(ctx, chosen.Population(Feasible), chosen.Population(Infeasible), gen)
	if err != nil {
		return err
	}
	if len(generated) > 0 {
		a.UpdateBins(generated)
		a.CheckResTrigger(ctx)
	} else {
		a.AgeBins(1)
	}
	if trace := logging.GetTraceSession(ctx); trace != nil {
		_ = trace.EmitStep("random", gen, [][2]int{chosen.Index}, len(generated))
	}
	return nil
}

// InteractiveStep evolves the explicitly selected bins, pooling their
// populations. It returns the time spent in the emitter's pre-step hook so
// interactive callers can subtract machine time from human time.
func (a *Archive) InteractiveStep(ctx context.Context, idxs [][2]int, gen int) (time.Duration, error) {
	a.AgeBins(-1)
	var fpop, ipop []*solution.Solution
	for _, idx := range idxs {
		b, err := a.BinAt(idx[0], idx[1])
		if err != nil {
			a.AgeBins(1)
			return 0, err
		}
		if a.EnforceQnt && !b.NonEmpty(Feasible) {
			a.AgeBins(1)
			return 0, errors.WithFields(
				errors.New(errors.NoValidBins, "selected bin holds no feasible individual"),
				errors.Fields{"bin": idx})
		}
		fpop = append(fpop, b.Population(Feasible)...)
		ipop = append(ipop, b.Population(Infeasible)...)
	}
	if len(ipop) == 0 {
		for _, b := range a.SeekNearestValid(idxs, Infeasible) {
			ipop = append(ipop, b.Population(Infeasible)...)
		}
	}

	generated, err := a.step(ctx, fpop, ipop, gen)
	if err != nil {
		return 0, err
	}
	var expanded [][2]int
	if len(generated) > 0 {
		a.UpdateBins(generated)
		expanded = a.CheckResTrigger(ctx)
	} else {
		a.AgeBins(1)
	}

	var elapsed time.Duration
	if a.emitter != nil && a.emitter.RequiresPre() {
		bounds := [2][2]float64{a.descs[0].Bounds, a.descs[1].Bounds}
		start := time.Now()
		a.emitter.PreStep(a.grid, ProcessExpandedIdxs(expanded, idxs), expanded, bounds)
		elapsed = time.Since(start)
	}
	if trace := logging.GetTraceSession(ctx); trace != nil {
		_ = trace.EmitStep("interactive", gen, idxs, len(generated))
	}
	return elapsed, nil
}

// SeekNearestValid breadth-first searches outward from the selected bins
// for the nearest bins holding the class, expanding by shuffled 8-neighbor
// offsets. A visited set bounds the search on sparse grids.
func (a *Archive) SeekNearestValid(idxs [][2]int, class Class) []*Bin {
	offsets := [][2]int{
		{-1, -1}, {-1, 0}, {-1, 1},
		{0, -1}, {0, 1},
		{1, -1}, {1, 0}, {1, 1},
	}
	visited := make(map[[2]int]bool, len(idxs))
	frontier := make([][2]int, 0, len(idxs))
	for _, idx := range idxs {
		visited[idx] = true
		frontier = append(frontier, idx)
	}
	for len(frontier) > 0 {
		a.rng.Shuffle(len(offsets), func(i, j int) {
			offsets[i], offsets[j] = offsets[j], offsets[i]
		})
		var found []*Bin
		next := frontier[:0]
		for _, idx := range frontier {
			for _, off := range offsets {
				n := [2]int{idx[0] + off[0], idx[1] + off[1]}
				if n[0] < 0 || n[0] >= len(a.grid) || n[1] < 0 || n[1] >= len(a.grid[0]) {
					continue
				}
				if visited[n] {
					continue
				}
				visited[n] = true
				b := a.grid[n[0]][n[1]]
				if b.NonEmpty(class) {
					found = append(found, b)
				} else {
					next = append(next, n)
				}
			}
		}
		if len(found) > 0 {
			return found
		}
		frontier = next
	}
	return nil
}

// EmitterStep evolves the bins the configured emitter picks.
func (a *Archive) EmitterStep(ctx context.Context, gen int) error {
	if a.emitter == nil {
		return errors.New(errors.ValidationFailed, "emitter step requires a configured emitter")
	}
	return a.emitterStep(ctx, a.emitter.Name(), gen)
}

func (a *Archive) emitterStep(ctx context.Context, kind string, gen int) error {
	a.AgeBins(-1)
	sel, err := a.emitter.PickBins(a.grid)
	if err != nil {
		a.AgeBins(1)
		return err
	}
	if sel.Empty() {
		logging.GetLogger().Warn(ctx, "Emitter %s picked no bins", a.emitter.Name())
		a.AgeBins(1)
		return nil
	}

	var fpop, ipop []*solution.Solution
	var picked [][2]int
	if sel.IsPaired() {
		for _, b := range sel.Feasible {
			fpop = append(fpop, b.Population(Feasible)...)
			picked = append(picked, b.Index)
		}
		for _, b := range sel.Infeasible {
			ipop = append(ipop, b.Population(Infeasible)...)
			picked = append(picked, b.Index)
		}
	} else {
		for _, b := range sel.Flat {
			fpop = append(fpop, b.Population(Feasible)...)
			ipop = append(ipop, b.Population(Infeasible)...)
			picked = append(picked, b.Index)
		}
	}
	if len(ipop) == 0 {
		for _, b := range a.SeekNearestValid(picked, Infeasible) {
			ipop = append(ipop, b.Population(Infeasible)...)
		}
	}

	generated, err := a.step(ctx, fpop, ipop, gen)
	if err != nil {
		return err
	}
	if len(generated) > 0 {
		a.UpdateBins(generated)
		a.CheckResTrigger(ctx)
	} else {
		a.AgeBins(1)
	}
	if a.emitter.RequiresPost() {
		a.emitter.PostStep(a.grid)
	}
	if trace := logging.GetTraceSession(ctx); trace != nil {
		_ = trace.EmitStep(kind, gen, picked, len(generated))
	}
	return nil
}

// BanditStep lets the agent pick both the emitter and the infeasible merge
// rule for this generation, runs an emitter step with that pairing, and
// rewards the arm with the summed reward functions.
func (a *Archive) BanditStep(ctx context.Context, gen int) error {
	if a.agent == nil {
		return errors.New(errors.ValidationFailed, "bandit step requires a configured agent")
	}
	arm := a.agent.ChooseArm()
	name, rule, ok := strings.Cut(arm.Action, ";")
	if !ok {
		return errors.WithFields(
			errors.New(errors.ValidationFailed, "bandit arm must encode emitter;mergeRule"),
			errors.Fields{"action": arm.Action})
	}
	em, err := a.lookup(name)
	if err != nil {
		return err
	}
	a.emitter = em
	if a.emitter.RequiresInit() {
		a.emitter.Init(a.grid)
	}

	idx, err := mergeRuleIndex(rule)
	if err != nil {
		return err
	}
	if idx != a.infeasIdx {
		a.infeasIdx = idx
		// Re-point stored infeasible composite fitness at the new order
		// statistic. Only quantile-estimated individuals carry the triple.
		a.eachBin(func(b *Bin) {
			for _, cs := range b.Population(Infeasible) {
				if len(cs.Fitness) == 3 {
					cs.CFitness = cs.Fitness[idx]
				}
			}
		})
	}

	if err := a.emitterStep(ctx, "bandit", gen); err != nil {
		return err
	}

	reward := 0.0
	for _, fn := range a.rewards {
		reward += fn(a)
	}
	a.agent.Reward(arm, reward)
	return nil
}

func mergeRuleIndex(rule string) (int, error) {
	switch rule {
	case "min":
		return 0, nil
	case "median":
		return 1, nil
	case "max":
		return 2, nil
	default:
		return 0, errors.WithFields(
			errors.New(errors.ValidationFailed, "unrecognized merge rule"),
			errors.Fields{"rule": rule})
	}
}
