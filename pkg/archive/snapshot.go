package archive

import (
	"context"
	"encoding/json"
	"os"

	"github.com/evoship/evoship/pkg/bandit"
	"github.com/evoship/evoship/pkg/errors"
	"github.com/evoship/evoship/pkg/estimator"
	"github.com/evoship/evoship/pkg/solution"
)

// BinSnapshot is the serialized form of one bin.
type BinSnapshot struct {
	Index        [2]int              `json:"index"`
	Size         [2]float64          `json:"size"`
	Subdividable bool                `json:"subdividable"`
	NewElite     map[Class]bool      `json:"new_elite"`
	Feasible     []solution.Record   `json:"feasible"`
	Infeasible   []solution.Record   `json:"infeasible"`
}

// Snapshot is the serialized archive: grid geometry, populations, emitter
// and agent state, and the estimator training buffer. Estimator weights
// are not exported; a restored archive carries an untrained model that the
// buffered samples retrain on the first generation.
type Snapshot struct {
	InitialBins [2]int       `json:"initial_bins"`
	BinSizes    [2][]float64 `json:"bin_sizes"`

	Bins []BinSnapshot `json:"bins"`

	AllowAging       bool `json:"allow_aging"`
	AllowResIncrease bool `json:"allow_res_increase"`
	EnforceQnt       bool `json:"enforce_qnt"`
	InfeasIdx        int  `json:"infeas_idx"`

	EmitterName  string `json:"emitter_name,omitempty"`
	EmitterState []byte `json:"emitter_state,omitempty"`

	AgentState  []byte   `json:"agent_state,omitempty"`
	RewardNames []string `json:"reward_names,omitempty"`

	EstimatorKind string      `json:"estimator_kind,omitempty"`
	BufferXs      [][]float64 `json:"buffer_xs,omitempty"`
	BufferYs      []float64   `json:"buffer_ys,omitempty"`

	NewSolutions int `json:"new_solutions"`
}

// Snapshot captures the archive state for persistence.
func (a *Archive) Snapshot() (*Snapshot, error) {
	s := &Snapshot{
		InitialBins:      a.initialBins,
		BinSizes:         [2][]float64{append([]float64(nil), a.binSizes[0]...), append([]float64(nil), a.binSizes[1]...)},
		AllowAging:       a.allowAging,
		AllowResIncrease: a.allowResIncrease,
		EnforceQnt:       a.EnforceQnt,
		InfeasIdx:        a.infeasIdx,
		RewardNames:      a.rewardNames,
		NewSolutions:     a.nNewSolutions,
	}
	a.eachBin(func(b *Bin) {
		bs := BinSnapshot{
			Index:        b.Index,
			Size:         b.Size,
			Subdividable: b.Subdividable,
			NewElite:     map[Class]bool{Feasible: b.NewElite[Feasible], Infeasible: b.NewElite[Infeasible]},
		}
		for _, cs := range b.Population(Feasible) {
			bs.Feasible = append(bs.Feasible, cs.Record())
		}
		for _, cs := range b.Population(Infeasible) {
			bs.Infeasible = append(bs.Infeasible, cs.Record())
		}
		s.Bins = append(s.Bins, bs)
	})
	if a.emitter != nil {
		state, err := a.emitter.State()
		if err != nil {
			return nil, err
		}
		s.EmitterName = a.emitter.Name()
		s.EmitterState = state
	}
	if a.agent != nil {
		state, err := a.agent.State()
		if err != nil {
			return nil, err
		}
		s.AgentState = state
	}
	if a.est != nil {
		s.EstimatorKind = string(a.est.Kind())
		xs, ys, err := a.buffer.Get()
		if err == nil {
			s.BufferXs, s.BufferYs = xs, ys
		} else if !errors.IsRecoverable(err) {
			return nil, err
		}
	}
	return s, nil
}

// Restore rebuilds the archive from a snapshot. The emitter is resolved
// through the lookup when the snapshot names one; agent state replaces the
// current agent; the estimator comes back untrained with its buffer
// refilled.
func (a *Archive) Restore(s *Snapshot) error {
	a.initialBins = s.InitialBins
	a.allowAging = s.AllowAging
	a.allowResIncrease = s.AllowResIncrease
	a.EnforceQnt = s.EnforceQnt
	a.infeasIdx = s.InfeasIdx
	a.rewardNames = s.RewardNames
	a.nNewSolutions = s.NewSolutions
	a.binSizes = [2][]float64{
		append([]float64(nil), s.BinSizes[0]...),
		append([]float64(nil), s.BinSizes[1]...),
	}

	// The estimator must exist before bins are rebuilt because it decides
	// the infeasible ranking direction.
	if s.EstimatorKind != "" {
		est, err := estimator.New(estimator.Kind(s.EstimatorKind), a.estCfg)
		if err != nil {
			return err
		}
		a.est = est
		a.buffer.Clear()
		for i := range s.BufferXs {
			a.buffer.Insert(s.BufferXs[i], s.BufferYs[i])
		}
	}

	rows, cols := len(s.BinSizes[0]), len(s.BinSizes[1])
	a.grid = make([][]*Bin, rows)
	for i := range a.grid {
		a.grid[i] = make([]*Bin, cols)
		for j := range a.grid[i] {
			a.grid[i][j] = a.newBin([2]int{i, j},
				[2]float64{a.binSizes[0][i], a.binSizes[1][j]})
		}
	}
	for _, bs := range s.Bins {
		b := a.newBin(bs.Index, bs.Size)
		b.Subdividable = bs.Subdividable
		for class, v := range bs.NewElite {
			b.NewElite[class] = v
		}
		for _, r := range bs.Feasible {
			b.Insert(solution.FromRecord(r))
		}
		for _, r := range bs.Infeasible {
			b.Insert(solution.FromRecord(r))
		}
		a.grid[bs.Index[0]][bs.Index[1]] = b
	}

	if s.EmitterName != "" {
		if a.lookup == nil {
			return errors.New(errors.ValidationFailed,
				"snapshot names an emitter but no lookup is configured")
		}
		em, err := a.lookup(s.EmitterName)
		if err != nil {
			return err
		}
		if len(s.EmitterState) > 0 {
			if r, ok := em.(StateRestorer); ok {
				if err := r.RestoreState(s.EmitterState); err != nil {
					return err
				}
			}
		}
		a.emitter = em
	}
	if len(s.AgentState) > 0 {
		agent, err := bandit.RestoreAgent(s.AgentState, a.rng)
		if err != nil {
			return err
		}
		a.agent = agent
		a.rewards = a.rewards[:0]
		for _, name := range s.RewardNames {
			fn, ok := Rewards[name]
			if !ok {
				return errors.WithFields(
					errors.New(errors.ValidationFailed, "unknown reward function"),
					errors.Fields{"name": name})
			}
			a.rewards = append(a.rewards, fn)
		}
	}
	return nil
}

// SaveFile writes the archive snapshot to path as JSON.
func (a *Archive) SaveFile(path string) error {
	s, err := a.Snapshot()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.Unknown, "failed to serialize archive snapshot")
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrap(err, errors.Unknown, "failed to write archive snapshot")
	}
	return nil
}

// LoadFile restores the archive from a JSON snapshot on disk.
func (a *Archive) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, errors.ResourceNotFound, "failed to read archive snapshot")
	}
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return errors.Wrap(err, errors.Unknown, "failed to parse archive snapshot")
	}
	return a.Restore(&s)
}

// SavePopulation writes only the archived solutions to path, a lighter
// export for sharing results without run state.
func (a *Archive) SavePopulation(path string) error {
	var records []solution.Record
	a.eachBin(func(b *Bin) {
		for _, cs := range b.Solutions() {
			records = append(records, cs.Record())
		}
	})
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.Unknown, "failed to serialize population")
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrap(err, errors.Unknown, "failed to write population")
	}
	return nil
}

// LoadPopulation re-bins solutions from a population export and rebuilds
// the content of each bin elite so a UI can render them immediately.
func (a *Archive) LoadPopulation(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, errors.ResourceNotFound, "failed to read population")
	}
	var records []solution.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return errors.Wrap(err, errors.Unknown, "failed to parse population")
	}
	lcs := make([]*solution.Solution, 0, len(records))
	for _, r := range records {
		lcs = append(lcs, solution.FromRecord(r))
	}
	a.UpdateBins(lcs)
	a.UpdateElites(false)

	var firstErr error
	a.eachBin(func(b *Bin) {
		for _, class := range Classes {
			elite := b.Elite(class)
			if elite == nil || elite.HasContent() {
				continue
			}
			if err := a.engine.Materialize(elite); err != nil {
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			if err := a.prepareContent(elite, elite.IsFeasible); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	})
	return firstErr
}
