package logging

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// RunState holds the mutable state for a search run context.
type RunState struct {
	mu sync.RWMutex

	// Run metadata
	runID      string
	spans      []*Span
	activeSpan *Span

	// Search-specific state
	generation int
	stepKind   string

	// Custom annotations
	annotations map[string]interface{}
}

// Span represents a single operation within the run.
type Span struct {
	ID          string
	ParentID    string
	Operation   string
	StartTime   time.Time
	EndTime     time.Time
	Error       error
	Annotations map[string]interface{}
}

type spanIDGenerator struct {
	// counter ensures uniqueness even with identical timestamps
	counter uint64
}

type runContextKey struct {
	name string
}

var (
	stateKey         = &runContextKey{"evoship-state"}
	defaultGenerator = &spanIDGenerator{}
)

// WithRunState creates a new context with search run state.
func WithRunState(ctx context.Context) context.Context {
	if GetRunState(ctx) != nil {
		return ctx // State already exists
	}
	return context.WithValue(ctx, stateKey, &RunState{
		runID:       generateRunID(),
		annotations: make(map[string]interface{}),
		spans:       make([]*Span, 0),
	})
}

// GetRunState retrieves the run state from a context.
func GetRunState(ctx context.Context) *RunState {
	if state, ok := ctx.Value(stateKey).(*RunState); ok {
		return state
	}
	return nil
}

// StartSpan begins a new operation span.
func StartSpan(ctx context.Context, operation string) (context.Context, *Span) {
	state := GetRunState(ctx)
	if state == nil {
		ctx = WithRunState(ctx)
		state = GetRunState(ctx)
	}

	state.mu.Lock()
	defer state.mu.Unlock()

	span := &Span{
		ID:          generateSpanID(),
		Operation:   operation,
		StartTime:   time.Now(),
		Annotations: make(map[string]interface{}),
	}

	if state.activeSpan != nil {
		span.ParentID = state.activeSpan.ID
	}

	state.spans = append(state.spans, span)
	state.activeSpan = span

	return ctx, span
}

// EndSpan completes the current span.
func EndSpan(ctx context.Context) {
	if state := GetRunState(ctx); state != nil {
		state.mu.Lock()
		defer state.mu.Unlock()

		if state.activeSpan != nil {
			state.activeSpan.EndTime = time.Now()
			state.activeSpan = nil
		}
	}
}

// State modification methods.
func (s *RunState) WithGeneration(gen int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation = gen
}

func (s *RunState) WithStepKind(kind string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stepKind = kind
}

// State access methods.
func (s *RunState) Generation() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

func (s *RunState) StepKind() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stepKind
}

func (s *RunState) RunID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.runID
}

// Span methods.
func (s *Span) WithError(err error) {
	s.Error = err
}

func (s *Span) WithAnnotation(key string, value interface{}) {
	s.Annotations[key] = value
}

// CollectSpans returns a copy of every span recorded on the run so far.
func CollectSpans(ctx context.Context) []*Span {
	if state := GetRunState(ctx); state != nil {
		state.mu.RLock()
		defer state.mu.RUnlock()

		spans := make([]*Span, len(state.spans))
		copy(spans, state.spans)
		return spans
	}
	return nil
}

// generateSpanID creates a new unique span identifier.
// The format is: 8 bytes total
// - 4 bytes: timestamp (seconds since epoch)
// - 2 bytes: counter
// - 2 bytes: random data
// This provides a good balance of:
// - Temporal ordering (timestamp component)
// - Uniqueness guarantee (counter component)
// - Collision resistance (random component).
func generateSpanID() string {
	now := time.Now().Unix()

	counter := atomic.AddUint64(&defaultGenerator.counter, 1)

	id := make([]byte, 8)

	id[0] = byte(now >> 24)
	id[1] = byte(now >> 16)
	id[2] = byte(now >> 8)
	id[3] = byte(now)

	id[4] = byte(counter >> 8)
	id[5] = byte(counter)

	if _, err := rand.Read(id[6:]); err != nil {
		// Fallback to using more counter bits if random fails
		id[6] = byte(counter >> 16)
		id[7] = byte(counter >> 24)
	}

	return hex.EncodeToString(id)
}

// For testing and debugging.
func resetSpanIDGenerator() {
	atomic.StoreUint64(&defaultGenerator.counter, 0)
}

func (s *RunState) GetCurrentSpan() *Span {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeSpan
}

func generateRunID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		// Fallback to timestamp-based ID if random generation fails
		now := time.Now().UnixNano()
		return fmt.Sprintf("run-%d", now)
	}

	return hex.EncodeToString(b)
}
