// Package grammar defines the production-engine contract the search core
// consumes, together with a reference L-system implementation that expands
// production strings into block structures through a 3D turtle.
package grammar

import (
	"context"

	"github.com/evoship/evoship/pkg/solution"
)

// ConstraintLevel separates hard constraints, which decide feasibility,
// from soft constraints, which only count against the composite fitness.
type ConstraintLevel int

const (
	HardConstraint ConstraintLevel = iota
	SoftConstraint
)

// Scope tells which representation a constraint inspects.
type Scope int

const (
	HighLevel Scope = iota
	LowLevel
)

// Constraint is one structural check over a candidate solution. Check
// returns true when the constraint is satisfied.
type Constraint struct {
	Name  string
	Level ConstraintLevel
	Scope Scope
	Check func(cs *solution.Solution) bool
}

// Module is one named slice of the grammar with its own axiom and
// expansion depth. Inactive modules are frozen: the genetic operators do
// not touch their genome.
type Module struct {
	Name       string
	Axiom      string
	Iterations int
	Active     bool
}

// GenerateRequest asks the engine for a batch of expanded solutions.
type GenerateRequest struct {
	// N is the number of solutions to produce.
	N int

	// Iterations overrides the per-module expansion depth when non-nil;
	// it must then have one entry per engine module.
	Iterations []int

	// CreateStructures materializes each solution before returning it.
	CreateStructures bool
}

// Engine is the grammar contract the archive and the solvers consume.
//
// Generate produces expanded solutions with module genomes attached;
// feasibility is not decided until Classify runs. Materialize attaches the
// low-level string and the block structure to a solution that lacks them.
type Engine interface {
	Generate(ctx context.Context, req GenerateRequest) ([]*solution.Solution, error)
	Materialize(cs *solution.Solution) error
	Classify(lcs []*solution.Solution)

	// DisableSatCheck turns off the engine's satisfiability pre-check
	// during generation, used for speed in bulk initialization.
	DisableSatCheck()

	HighLevelConstraints() []*Constraint
	LowLevelConstraints() []*Constraint

	Modules() []*Module
	ToggleModule(name string)
}

// SoftConstraintCount counts soft constraints across both grammar levels.
// Half of it is the slack term added to feasible composite fitness.
func SoftConstraintCount(e Engine) int {
	n := 0
	for _, c := range e.HighLevelConstraints() {
		if c.Level == SoftConstraint {
			n++
		}
	}
	for _, c := range e.LowLevelConstraints() {
		if c.Level == SoftConstraint {
			n++
		}
	}
	return n
}
