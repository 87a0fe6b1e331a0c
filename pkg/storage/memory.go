package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/evoship/evoship/pkg/errors"
)

// MemoryStore keeps runs in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	runs map[string]*memoryRun
}

type memoryRun struct {
	createdAt   time.Time
	snapshot    []byte
	population  []byte
	generations map[int]GenerationRecord
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{runs: make(map[string]*memoryRun)}
}

func (s *MemoryStore) run(runID string) *memoryRun {
	r, ok := s.runs[runID]
	if !ok {
		r = &memoryRun{
			createdAt:   time.Now(),
			generations: make(map[int]GenerationRecord),
		}
		s.runs[runID] = r
	}
	return r
}

func (s *MemoryStore) SaveSnapshot(ctx context.Context, runID string, snapshot []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.run(runID).snapshot = append([]byte(nil), snapshot...)
	return nil
}

func (s *MemoryStore) LoadSnapshot(ctx context.Context, runID string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.runs[runID]
	if !ok || r.snapshot == nil {
		return nil, errors.WithFields(
			errors.New(errors.ResourceNotFound, "no snapshot stored for run"),
			errors.Fields{"run_id": runID})
	}
	return append([]byte(nil), r.snapshot...), nil
}

func (s *MemoryStore) SavePopulation(ctx context.Context, runID string, population []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.run(runID).population = append([]byte(nil), population...)
	return nil
}

func (s *MemoryStore) LoadPopulation(ctx context.Context, runID string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.runs[runID]
	if !ok || r.population == nil {
		return nil, errors.WithFields(
			errors.New(errors.ResourceNotFound, "no population stored for run"),
			errors.Fields{"run_id": runID})
	}
	return append([]byte(nil), r.population...), nil
}

func (s *MemoryStore) AppendGeneration(ctx context.Context, runID string, rec GenerationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = time.Now()
	}
	s.run(runID).generations[rec.Generation] = rec
	return nil
}

func (s *MemoryStore) Generations(ctx context.Context, runID string) ([]GenerationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.runs[runID]
	if !ok {
		return nil, nil
	}
	out := make([]GenerationRecord, 0, len(r.generations))
	for _, rec := range r.generations {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Generation < out[j].Generation })
	return out, nil
}

func (s *MemoryStore) ListRuns(ctx context.Context) ([]RunInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]RunInfo, 0, len(s.runs))
	for id, r := range s.runs {
		out = append(out, RunInfo{
			ID:          id,
			CreatedAt:   r.createdAt,
			Generations: len(r.generations),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) Close() error { return nil }
