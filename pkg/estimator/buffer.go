package estimator

import (
	"fmt"
	"strings"

	"github.com/evoship/evoship/pkg/errors"
)

// Buffer is the bounded FIFO of training pairs feeding the estimators.
// Re-inserting an input already buffered merges the targets by running
// mean instead of consuming a slot, so repeated evaluations of the same
// representation refine rather than crowd out the data.
type Buffer struct {
	capacity int
	keys     []string
	byKey    map[string]*bufferEntry
}

type bufferEntry struct {
	x     []float64
	sum   float64
	count int
}

// NewBuffer creates a buffer holding at most capacity distinct inputs.
func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = 256
	}
	return &Buffer{
		capacity: capacity,
		byKey:    make(map[string]*bufferEntry),
	}
}

// Insert adds a training pair, merging duplicates and evicting the oldest
// distinct input when full.
func (b *Buffer) Insert(x []float64, y float64) {
	key := bufferKey(x)
	if e, ok := b.byKey[key]; ok {
		e.sum += y
		e.count++
		return
	}
	if len(b.keys) == b.capacity {
		oldest := b.keys[0]
		b.keys = b.keys[1:]
		delete(b.byKey, oldest)
	}
	b.keys = append(b.keys, key)
	b.byKey[key] = &bufferEntry{
		x:     append([]float64(nil), x...),
		sum:   y,
		count: 1,
	}
}

// Get returns the buffered pairs in insertion order. An empty buffer fails
// with the recoverable EmptyBuffer code, letting callers skip a training
// pass.
func (b *Buffer) Get() (xs [][]float64, ys []float64, err error) {
	if len(b.keys) == 0 {
		return nil, nil, errors.New(errors.EmptyBuffer, "no training pairs buffered")
	}
	xs = make([][]float64, 0, len(b.keys))
	ys = make([]float64, 0, len(b.keys))
	for _, key := range b.keys {
		e := b.byKey[key]
		xs = append(xs, append([]float64(nil), e.x...))
		ys = append(ys, e.sum/float64(e.count))
	}
	return xs, ys, nil
}

// Len returns the number of distinct buffered inputs.
func (b *Buffer) Len() int { return len(b.keys) }

// Clear drops all buffered pairs.
func (b *Buffer) Clear() {
	b.keys = b.keys[:0]
	b.byKey = make(map[string]*bufferEntry)
}

func bufferKey(x []float64) string {
	var sb strings.Builder
	for i, v := range x {
		if i > 0 {
			sb.WriteByte(';')
		}
		fmt.Fprintf(&sb, "%.9g", v)
	}
	return sb.String()
}
