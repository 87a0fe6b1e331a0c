package archive

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evoship/evoship/pkg/config"
	"github.com/evoship/evoship/pkg/errors"
	"github.com/evoship/evoship/pkg/grammar"
	"github.com/evoship/evoship/pkg/solution"
)

// stubEngine is a minimal grammar engine for archive tests: generation and
// materialization are driven by injectable hooks, classification marks
// everything feasible unless a hook says otherwise.
type stubEngine struct {
	generate    func(ctx context.Context, req grammar.GenerateRequest) ([]*solution.Solution, error)
	materialize func(cs *solution.Solution) error
	classify    func(cs *solution.Solution)

	satDisabled bool
	toggled     []string
}

func (e *stubEngine) Generate(ctx context.Context, req grammar.GenerateRequest) ([]*solution.Solution, error) {
	if e.generate != nil {
		return e.generate(ctx, req)
	}
	return nil, nil
}

func (e *stubEngine) Materialize(cs *solution.Solution) error {
	if e.materialize != nil {
		return e.materialize(cs)
	}
	return nil
}

func (e *stubEngine) Classify(lcs []*solution.Solution) {
	for _, cs := range lcs {
		if e.classify != nil {
			e.classify(cs)
		} else {
			cs.IsFeasible = true
			cs.NCV = 0
		}
	}
}

func (e *stubEngine) DisableSatCheck() { e.satDisabled = true }

func (e *stubEngine) HighLevelConstraints() []*grammar.Constraint {
	return []*grammar.Constraint{
		{Name: "intersection", Level: grammar.HardConstraint},
		{Name: "symmetry", Level: grammar.SoftConstraint},
	}
}

func (e *stubEngine) LowLevelConstraints() []*grammar.Constraint {
	return []*grammar.Constraint{
		{Name: "cockpit", Level: grammar.SoftConstraint},
	}
}

func (e *stubEngine) Modules() []*grammar.Module {
	return []*grammar.Module{{Name: "body", Active: true}}
}

func (e *stubEngine) ToggleModule(name string) { e.toggled = append(e.toggled, name) }

// stubEmitter returns a fixed selection and records lifecycle calls.
type stubEmitter struct {
	name      string
	selection Selection

	inited int
	posts  int
	resets int
}

func (e *stubEmitter) Name() string { return e.name }

func (e *stubEmitter) PickBins(grid [][]*Bin) (Selection, error) { return e.selection, nil }

func (e *stubEmitter) RequiresInit() bool { return true }
func (e *stubEmitter) RequiresPre() bool  { return false }
func (e *stubEmitter) RequiresPost() bool { return true }

func (e *stubEmitter) Init(grid [][]*Bin) { e.inited++ }
func (e *stubEmitter) PreStep(grid [][]*Bin, selected, expanded [][2]int, bounds [2][2]float64) {
}
func (e *stubEmitter) PostStep(grid [][]*Bin) { e.posts++ }
func (e *stubEmitter) Reset()                 { e.resets++ }

func (e *stubEmitter) State() ([]byte, error) { return json.Marshal(e.name) }

func testConfig() config.Config {
	return config.Config{
		Search: config.SearchConfig{
			PopSize:           4,
			NRetries:          3,
			MaxAge:            5,
			AlignmentInterval: 10,
			Workers:           2,
			Seed:              42,
		},
		Archive: config.ArchiveConfig{
			BinsX:            2,
			BinsY:            2,
			BinPopSize:       4,
			EpsilonF:         0.1,
			InfeasFitnessIdx: 1,
			AllowAging:       true,
			AllowResIncrease: true,
		},
		Estimator: config.EstimatorConfig{BufferSize: 32},
		Grammar: config.GrammarConfig{
			MaxXSize: 20, MaxYSize: 20, MaxZSize: 20,
			XRange: config.DimRange{Min: 0, Max: 100},
			YRange: config.DimRange{Min: 0, Max: 100},
			ZRange: config.DimRange{Min: 0, Max: 100},
		},
		Hull: config.HullConfig{Iterations: 1},
	}
}

func newTestArchive(t *testing.T, opts ...Option) (*Archive, *stubEngine) {
	t.Helper()
	engine := &stubEngine{}
	opts = append([]Option{WithEmitter(&stubEmitter{name: "stub"})}, opts...)
	a, err := New(testConfig(), engine, opts...)
	require.NoError(t, err)
	return a, engine
}

// archived adds a solution with the given behavior directly to its bin.
func archived(a *Archive, hl string, feasible bool, cfitness float64, behavior [2]float64) *solution.Solution {
	cs := solution.New(hl)
	cs.IsFeasible = feasible
	cs.CFitness = cfitness
	cs.Behavior = behavior
	cs.Age = a.maxAge
	a.UpdateBins([]*solution.Solution{cs})
	return cs
}

func TestNewRequiresEmitterOrAgent(t *testing.T) {
	_, err := New(testConfig(), &stubEngine{})

	require.Error(t, err)
	var e *errors.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, errors.ValidationFailed, e.Code())
}

func TestNewGridGeometry(t *testing.T) {
	a, _ := newTestArchive(t)

	rows, cols := a.Shape()
	assert.Equal(t, 2, rows)
	assert.Equal(t, 2, cols)
	assert.Equal(t, []float64{5, 5}, a.binSizes[0])
	assert.Equal(t, []float64{0, 5}, a.boundaries(0))
}

func TestLocate(t *testing.T) {
	a, _ := newTestArchive(t)

	tests := []struct {
		name     string
		behavior [2]float64
		want     [2]int
	}{
		{name: "origin", behavior: [2]float64{0, 0}, want: [2]int{0, 0}},
		{name: "interior", behavior: [2]float64{2, 7}, want: [2]int{0, 1}},
		{name: "on boundary", behavior: [2]float64{5, 5}, want: [2]int{1, 1}},
		{name: "upper bound", behavior: [2]float64{10, 10}, want: [2]int{1, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			i, j := a.locate(tt.behavior)
			assert.Equal(t, tt.want, [2]int{i, j})
		})
	}
}

func TestUpdateBinsPlacesByBehavior(t *testing.T) {
	a, _ := newTestArchive(t)

	archived(a, "CFT", true, 1.0, [2]float64{2, 7})

	b, err := a.BinAt(0, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, b.Len(Feasible))
	assert.Equal(t, 1, a.NSolutions(Feasible))
}

func TestBinAtOutOfBounds(t *testing.T) {
	a, _ := newTestArchive(t)

	_, err := a.BinAt(5, 0)

	require.Error(t, err)
	var e *errors.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, errors.InvalidBinIndex, e.Code())
}

func TestComputeFitnessInfeasibleWithoutEstimator(t *testing.T) {
	a, _ := newTestArchive(t)
	cs := solution.New("CFT")
	cs.IsFeasible = false
	cs.NCV = 3

	f, err := a.ComputeFitness(cs)

	require.NoError(t, err)
	assert.Equal(t, 3.0, f, "violation count is the fitness without a surrogate")
	assert.Len(t, cs.Representation, 4)
}

func TestAssignFitnessFeasible(t *testing.T) {
	a, _ := newTestArchive(t)
	cs := solution.New("CFT")
	cs.IsFeasible = true
	cs.NCV = 1

	require.NoError(t, a.AssignFitness(cs))

	// nsc is 1.0 for the stub's two soft constraints; ncv subtracts one.
	assert.InDelta(t, 0.0, cs.CFitness, 1e-9)
	assert.Equal(t, a.MaxAge(), cs.Age)
	assert.Len(t, cs.Fitness, len(a.Objectives()))
	assert.Len(t, cs.Representation, len(a.Objectives())+3)
}

func TestValidBins(t *testing.T) {
	a, _ := newTestArchive(t)
	assert.Empty(t, a.ValidBins())

	archived(a, "A", true, 1.0, [2]float64{1, 1})
	archived(a, "B", false, 1.0, [2]float64{7, 7})

	valid := a.ValidBins()
	require.Len(t, valid, 1, "only bins with feasible individuals are valid")
	assert.Equal(t, [2]int{0, 0}, valid[0].Index)
}

func TestCoverage(t *testing.T) {
	a, _ := newTestArchive(t)
	archived(a, "A", true, 1.0, [2]float64{1, 1})
	archived(a, "B", true, 1.0, [2]float64{7, 7})

	covered, total := a.Coverage(Feasible)
	assert.Equal(t, 2, covered)
	assert.Equal(t, 4, total)
}

func TestUpdateFitnessWeights(t *testing.T) {
	a, _ := newTestArchive(t)
	cs := solution.New("CFT")
	cs.IsFeasible = true
	require.NoError(t, a.AssignFitness(cs))
	a.UpdateBins([]*solution.Solution{cs})
	before := cs.CFitness

	t.Run("rejects length mismatch", func(t *testing.T) {
		err := a.UpdateFitnessWeights([]float64{1.0})
		require.Error(t, err)
		var e *errors.Error
		require.ErrorAs(t, err, &e)
		assert.Equal(t, errors.InvalidInput, e.Code())
	})

	t.Run("idempotent for equal weights", func(t *testing.T) {
		weights := make([]float64, len(a.Objectives()))
		for i, o := range a.Objectives() {
			weights[i] = o.Weight
		}
		require.NoError(t, a.UpdateFitnessWeights(weights))
		assert.InDelta(t, before, cs.CFitness, 1e-9)
	})

	t.Run("recomputes archived fitness", func(t *testing.T) {
		weights := make([]float64, len(a.Objectives()))
		require.NoError(t, a.UpdateFitnessWeights(weights))
		assert.InDelta(t, a.nsc-float64(cs.NCV), cs.CFitness, 1e-9,
			"zero weights leave only the soft constraint slack")
	})
}

func TestUpdateValidRangesDropsOutliers(t *testing.T) {
	a, _ := newTestArchive(t)
	cs := archived(a, "A", true, 1.0, [2]float64{1, 1})
	cs.ContentSize = [3]int{30, 5, 5}
	archived(a, "B", true, 1.0, [2]float64{1, 1})

	a.UpdateValidRanges(
		config.DimRange{Min: 0, Max: 10},
		config.DimRange{Min: 0, Max: 10},
		config.DimRange{Min: 0, Max: 10})

	assert.Equal(t, 1, a.NSolutions(Feasible))
}

func TestToggleModuleMutability(t *testing.T) {
	a, engine := newTestArchive(t)
	cs := solution.New("A")
	cs.IsFeasible = true
	cs.Age = a.maxAge
	cs.Modules["body"] = solution.ModuleGenome{String: "A", Mutable: true}
	a.UpdateBins([]*solution.Solution{cs})

	a.ToggleModuleMutability("body")

	assert.False(t, cs.Modules["body"].Mutable)
	assert.Equal(t, []string{"body"}, engine.toggled)
}

func TestUpdateElites(t *testing.T) {
	a, _ := newTestArchive(t)
	archived(a, "A", true, 1.0, [2]float64{1, 1})

	a.UpdateElites(false)
	b, _ := a.BinAt(0, 0)
	assert.True(t, b.NewElite[Feasible])

	a.UpdateElites(true)
	assert.False(t, b.NewElite[Feasible])
}

func TestGenerateInitialPopulations(t *testing.T) {
	a, engine := newTestArchive(t)
	engine.generate = func(ctx context.Context, req grammar.GenerateRequest) ([]*solution.Solution, error) {
		out := make([]*solution.Solution, 0, req.N)
		for _, hl := range []string{"A", "B", "C", "D", "ia", "ib", "ic", "id"} {
			out = append(out, solution.New(hl))
		}
		return out, nil
	}
	engine.classify = func(cs *solution.Solution) {
		cs.IsFeasible = cs.HLString[0] != 'i'
		if !cs.IsFeasible {
			cs.NCV = 2
		}
	}

	require.NoError(t, a.GenerateInitialPopulations(context.Background()))

	assert.True(t, engine.satDisabled)
	assert.Equal(t, 4, a.NSolutions(Feasible))
	assert.Equal(t, 4, a.NSolutions(Infeasible))
	assert.Equal(t, 1, a.emitter.(*stubEmitter).inited)
}

func TestResetRegenerates(t *testing.T) {
	a, engine := newTestArchive(t)
	engine.generate = func(ctx context.Context, req grammar.GenerateRequest) ([]*solution.Solution, error) {
		return []*solution.Solution{solution.New("A")}, nil
	}
	archived(a, "old", true, 1.0, [2]float64{1, 1})

	require.NoError(t, a.Reset(context.Background(), nil))

	assert.Equal(t, 1, a.emitter.(*stubEmitter).resets)
	assert.Equal(t, 0, a.NewSolutions())
	assert.Equal(t, 1, a.NSolutions(Feasible))
	total := a.NSolutions(Feasible) + a.NSolutions(Infeasible)
	assert.Equal(t, 1, total, "reset discards the previous populations")
}
