package archive

// Selection is an emitter's choice of bins to evolve: either a flat list
// serving both populations, or a paired choice with separate feasible and
// infeasible sources.
type Selection struct {
	Flat       []*Bin
	Feasible   []*Bin
	Infeasible []*Bin
}

// IsPaired reports whether the selection uses separate per-class lists.
func (s Selection) IsPaired() bool {
	return s.Flat == nil && (s.Feasible != nil || s.Infeasible != nil)
}

// Empty reports whether the selection holds no bins at all.
func (s Selection) Empty() bool {
	return len(s.Flat) == 0 && len(s.Feasible) == 0 && len(s.Infeasible) == 0
}

// Emitter picks the bins an emitter-driven step evolves. Implementations
// live outside this package; the archive only drives the lifecycle hooks
// it is told the emitter requires.
type Emitter interface {
	Name() string
	PickBins(grid [][]*Bin) (Selection, error)

	RequiresInit() bool
	RequiresPre() bool
	RequiresPost() bool

	Init(grid [][]*Bin)
	PreStep(grid [][]*Bin, selected, expanded [][2]int, bounds [2][2]float64)
	PostStep(grid [][]*Bin)
	Reset()

	// State serializes the emitter for snapshots.
	State() ([]byte, error)
}

// ResolutionAware is implemented by emitters that track per-bin state and
// must be told when a bin subdivides.
type ResolutionAware interface {
	IncreaseResolution(index [2]int)
}

// StateRestorer is implemented by emitters that can rebuild internal
// state from a snapshot.
type StateRestorer interface {
	RestoreState(data []byte) error
}

// EmitterLookup resolves an emitter by registry name, used by the bandit
// step to switch emitters between generations.
type EmitterLookup func(name string) (Emitter, error)

// RewardFunc scores the archive state after a bandit-driven step.
type RewardFunc func(a *Archive) float64
