package solution

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArenaRegisterLookup(t *testing.T) {
	arena := NewArena()
	cs := New("abc")

	arena.Register(cs)
	got, ok := arena.Lookup(cs.ID)
	require.True(t, ok)
	assert.Same(t, cs, got)

	_, ok = arena.Lookup("missing")
	assert.False(t, ok)
	assert.Equal(t, 1, arena.Size())
}

func TestArenaAdopt(t *testing.T) {
	arena := NewArena()
	p1 := New("parent-1")
	p2 := New("parent-2")
	child := New("child")

	arena.Adopt(child, p1, p2)

	assert.Equal(t, []string{p1.ID, p2.ID}, child.ParentIDs)
	assert.Equal(t, 1, p1.NOffspring)
	assert.Equal(t, 1, p2.NOffspring)
	assert.Equal(t, 3, arena.Size())

	parents := arena.Parents(child)
	require.Len(t, parents, 2)
	assert.Same(t, p1, parents[0])
	assert.Same(t, p2, parents[1])
}

func TestArenaCreditFeasible(t *testing.T) {
	arena := NewArena()
	parent := New("parent")
	infeasibleChild := New("child-i")
	feasibleChild := New("child-f")
	arena.Adopt(infeasibleChild, parent)
	arena.Adopt(feasibleChild, parent)

	infeasibleChild.IsFeasible = false
	arena.CreditFeasible(infeasibleChild)
	assert.Zero(t, parent.NFeasOffspring)

	feasibleChild.IsFeasible = true
	arena.CreditFeasible(feasibleChild)
	assert.Equal(t, 1, parent.NFeasOffspring)
	assert.Equal(t, 2, parent.NOffspring)
}

func TestArenaParentsSkipsUnregistered(t *testing.T) {
	arena := NewArena()
	child := New("child")
	child.ParentIDs = []string{"gone"}

	assert.Empty(t, arena.Parents(child))
}

func TestArenaReset(t *testing.T) {
	arena := NewArena()
	arena.Register(New("abc"))
	arena.Reset()
	assert.Zero(t, arena.Size())
}

func TestArenaConcurrentAccess(t *testing.T) {
	arena := NewArena()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cs := New("cs")
			arena.Register(cs)
			arena.Lookup(cs.ID)
		}()
	}
	wg.Wait()
	assert.Equal(t, 16, arena.Size())
}
