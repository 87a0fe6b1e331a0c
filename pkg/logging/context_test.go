package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunState(t *testing.T) {
	ctx := context.Background()

	// No state on a bare context
	assert.Nil(t, GetRunState(ctx))

	ctx = WithRunState(ctx)
	state := GetRunState(ctx)
	require.NotNil(t, state)
	assert.NotEmpty(t, state.RunID())

	// Idempotent: attaching again keeps the existing state
	ctx2 := WithRunState(ctx)
	assert.Equal(t, state, GetRunState(ctx2))

	state.WithGeneration(7)
	state.WithStepKind("random")
	assert.Equal(t, 7, state.Generation())
	assert.Equal(t, "random", state.StepKind())
}

func TestSpans(t *testing.T) {
	resetSpanIDGenerator()
	ctx := WithRunState(context.Background())

	ctx, span := StartSpan(ctx, "generation")
	require.NotNil(t, span)
	assert.Equal(t, "generation", span.Operation)
	assert.Empty(t, span.ParentID)

	_, child := StartSpan(ctx, "assign-fitness")
	assert.Equal(t, span.ID, child.ParentID)

	child.WithAnnotation("feasible", 12)
	assert.Equal(t, 12, child.Annotations["feasible"])

	EndSpan(ctx)
	spans := CollectSpans(ctx)
	require.Len(t, spans, 2)
	assert.False(t, spans[1].EndTime.IsZero())
}

func TestStartSpanWithoutState(t *testing.T) {
	// StartSpan bootstraps run state when missing
	ctx, span := StartSpan(context.Background(), "op")
	require.NotNil(t, span)
	require.NotNil(t, GetRunState(ctx))
}

func TestSpanIDUniqueness(t *testing.T) {
	resetSpanIDGenerator()
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := generateSpanID()
		assert.False(t, seen[id], "span IDs should be unique")
		seen[id] = true
	}
}
