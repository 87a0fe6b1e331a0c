// Package runner wires a configuration into a live search: grammar engine,
// archive, step mode, and run store.
package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/evoship/evoship/pkg/archive"
	"github.com/evoship/evoship/pkg/bandit"
	"github.com/evoship/evoship/pkg/config"
	"github.com/evoship/evoship/pkg/emitters"
	"github.com/evoship/evoship/pkg/errors"
	"github.com/evoship/evoship/pkg/grammar"
	"github.com/evoship/evoship/pkg/logging"
	"github.com/evoship/evoship/pkg/metrics"
	"github.com/evoship/evoship/pkg/storage"
)

// StepMode selects how each generation picks its parents.
type StepMode string

const (
	StepRandom  StepMode = "random"
	StepEmitter StepMode = "emitter"
	StepBandit  StepMode = "bandit"
)

// MergeRules are the order statistics a bandit arm may pair with an emitter.
var MergeRules = []string{"min", "median", "max"}

// Search is a fully wired run: engine, archive, and store.
type Search struct {
	Config  *config.Config
	Engine  grammar.Engine
	Archive *archive.Archive
	Store   storage.Store
	RunID   string

	mode StepMode
}

// New builds a search from configuration. The bandit mode constructs a UCB
// agent over every emitter and merge rule pairing; other modes use the
// configured emitter.
func New(cfg *config.Config, mode StepMode, runID string) (*Search, error) {
	seed := cfg.Search.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	engine := grammar.NewLSystem(cfg.Grammar, rng)

	opts := []archive.Option{
		archive.WithRNG(rng),
		archive.WithEmitterLookup(emitters.Lookup(rng)),
	}
	switch mode {
	case StepBandit:
		var arms []bandit.Arm
		for _, name := range emitters.Names() {
			for _, rule := range MergeRules {
				arms = append(arms, bandit.Arm{Action: name + ";" + rule})
			}
		}
		agent, err := bandit.NewUCBAgent(arms)
		if err != nil {
			return nil, err
		}
		opts = append(opts, archive.WithAgent(agent, "coverage", "fitness"))
	case StepRandom, StepEmitter:
		name := cfg.Archive.Emitter
		if name == "" {
			name = emitters.NameRandom
		}
		em, err := emitters.FromName(name, rng)
		if err != nil {
			return nil, err
		}
		opts = append(opts, archive.WithEmitter(em))
	default:
		return nil, errors.WithFields(
			errors.New(errors.ValidationFailed, "unrecognized step mode"),
			errors.Fields{"mode": string(mode)})
	}

	a, err := archive.New(*cfg, engine, opts...)
	if err != nil {
		return nil, err
	}
	store, err := storage.Open(cfg.Storage)
	if err != nil {
		return nil, err
	}
	if runID == "" {
		runID = fmt.Sprintf("run-%d", time.Now().Unix())
	}
	return &Search{
		Config:  cfg,
		Engine:  engine,
		Archive: a,
		Store:   store,
		RunID:   runID,
		mode:    mode,
	}, nil
}

// Progress is handed to the run callback after every generation.
type Progress struct {
	Generation int
	Feasible   int
	Infeasible int
	Coverage   float64
	QDScore    float64
	BestFit    float64
}

// Run performs the initial generation plus the configured number of
// evolution steps, recording per-generation metrics in the store.
func (s *Search) Run(ctx context.Context, generations int, onProgress func(Progress)) error {
	if err := s.Archive.GenerateInitialPopulations(ctx); err != nil {
		return err
	}
	for gen := 1; gen <= generations; gen++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		var err error
		switch s.mode {
		case StepRandom:
			err = s.Archive.RandStep(ctx, gen)
		case StepEmitter:
			err = s.Archive.EmitterStep(ctx, gen)
		case StepBandit:
			err = s.Archive.BanditStep(ctx, gen)
		}
		if err != nil {
			if fr := logging.GlobalFlightRecorder(); fr != nil {
				return fr.SnapshotOnError(err, fmt.Sprintf("%s_gen%d_error.trace", s.RunID, gen))
			}
			return err
		}
		p := s.progress(gen)
		if err := s.Store.AppendGeneration(ctx, s.RunID, storage.GenerationRecord{
			Generation: p.Generation,
			Feasible:   p.Feasible,
			Infeasible: p.Infeasible,
			Coverage:   p.Coverage,
			QDScore:    p.QDScore,
			BestFit:    p.BestFit,
			StepKind:   string(s.mode),
		}); err != nil {
			return err
		}
		if onProgress != nil {
			onProgress(p)
		}
	}
	return nil
}

func (s *Search) progress(gen int) Progress {
	return Progress{
		Generation: gen,
		Feasible:   s.Archive.NSolutions(archive.Feasible),
		Infeasible: s.Archive.NSolutions(archive.Infeasible),
		Coverage:   metrics.Coverage(s.Archive, archive.Feasible),
		QDScore:    metrics.QDScore(s.Archive),
		BestFit:    metrics.ComputeFitnessMetrics(s.Archive, archive.Feasible).Top,
	}
}

// SaveSnapshot serializes the archive and stores it under the run id.
func (s *Search) SaveSnapshot(ctx context.Context) error {
	snap, err := s.Archive.Snapshot()
	if err != nil {
		return err
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return errors.Wrap(err, errors.Unknown, "failed to serialize snapshot")
	}
	return s.Store.SaveSnapshot(ctx, s.RunID, data)
}

// Close releases the run store.
func (s *Search) Close() error {
	return s.Store.Close()
}
