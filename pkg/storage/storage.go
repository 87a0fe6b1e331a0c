// Package storage persists search runs: archive snapshots, population
// exports and per-generation metric series, keyed by run id. The SQLite
// backend is the durable store; the memory backend serves tests and
// throwaway runs.
package storage

import (
	"context"
	"time"

	"github.com/evoship/evoship/pkg/config"
	"github.com/evoship/evoship/pkg/errors"
)

// GenerationRecord is one row of per-generation metrics.
type GenerationRecord struct {
	Generation int       `json:"generation"`
	Feasible   int       `json:"feasible"`
	Infeasible int       `json:"infeasible"`
	Coverage   float64   `json:"coverage"`
	QDScore    float64   `json:"qd_score"`
	BestFit    float64   `json:"best_fitness"`
	StepKind   string    `json:"step_kind"`
	RecordedAt time.Time `json:"recorded_at"`
}

// RunInfo summarizes a stored run.
type RunInfo struct {
	ID          string    `json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	Generations int       `json:"generations"`
}

// Store is the run persistence contract. Snapshots are opaque blobs owned
// by the archive's serializer; the store only keys and versions them.
type Store interface {
	SaveSnapshot(ctx context.Context, runID string, snapshot []byte) error
	LoadSnapshot(ctx context.Context, runID string) ([]byte, error)

	SavePopulation(ctx context.Context, runID string, population []byte) error
	LoadPopulation(ctx context.Context, runID string) ([]byte, error)

	AppendGeneration(ctx context.Context, runID string, rec GenerationRecord) error
	Generations(ctx context.Context, runID string) ([]GenerationRecord, error)

	ListRuns(ctx context.Context) ([]RunInfo, error)
	Close() error
}

// Open builds a store from configuration. An empty backend type defaults
// to the in-memory store.
func Open(cfg config.StorageConfig) (Store, error) {
	switch cfg.Type {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		return NewSQLiteStore(cfg)
	default:
		return nil, errors.WithFields(
			errors.New(errors.ValidationFailed, "unrecognized storage backend"),
			errors.Fields{"type": cfg.Type})
	}
}
