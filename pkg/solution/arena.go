package solution

import "sync"

// Arena is the registry resolving solution IDs to live solutions. Lineage is
// stored as ID references into the arena rather than as owned parent copies,
// which keeps serialization cycle-free and deep-copy chains bounded.
type Arena struct {
	mu   sync.RWMutex
	byID map[string]*Solution
}

// NewArena creates an empty arena.
func NewArena() *Arena {
	return &Arena{byID: make(map[string]*Solution)}
}

// Register adds a solution to the arena. Re-registering the same ID replaces
// the entry.
func (a *Arena) Register(cs *Solution) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.byID[cs.ID] = cs
}

// Lookup resolves an ID.
func (a *Arena) Lookup(id string) (*Solution, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	cs, ok := a.byID[id]
	return cs, ok
}

// Adopt registers the child and its parents, records the lineage on the
// child, and bumps each parent's offspring count.
func (a *Arena) Adopt(child *Solution, parents ...*Solution) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.byID[child.ID] = child
	child.ParentIDs = child.ParentIDs[:0]
	for _, p := range parents {
		a.byID[p.ID] = p
		child.ParentIDs = append(child.ParentIDs, p.ID)
		p.NOffspring++
	}
}

// CreditFeasible bumps the feasible-offspring count of the child's parents.
// Called once the child's feasibility class is known.
func (a *Arena) CreditFeasible(child *Solution) {
	if !child.IsFeasible {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, id := range child.ParentIDs {
		if p, ok := a.byID[id]; ok {
			p.NFeasOffspring++
		}
	}
}

// Parents resolves the child's parent references, skipping IDs that are no
// longer registered.
func (a *Arena) Parents(cs *Solution) []*Solution {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]*Solution, 0, len(cs.ParentIDs))
	for _, id := range cs.ParentIDs {
		if p, ok := a.byID[id]; ok {
			out = append(out, p)
		}
	}
	return out
}

// Size returns the number of registered solutions.
func (a *Arena) Size() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.byID)
}

// Reset drops every registered solution.
func (a *Arena) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.byID = make(map[string]*Solution)
}
