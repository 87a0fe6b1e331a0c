// Package testutil provides shared mocks for the grammar engine and
// emitter contracts, usable both as plain stubs and with testify
// expectations.
package testutil

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/evoship/evoship/pkg/archive"
	"github.com/evoship/evoship/pkg/grammar"
	"github.com/evoship/evoship/pkg/solution"
)

// MockEngine is a mock implementation of grammar.Engine. Behavior hooks
// override the defaults; testify expectations are honored when set.
type MockEngine struct {
	mock.Mock

	GenerateFunc    func(ctx context.Context, req grammar.GenerateRequest) ([]*solution.Solution, error)
	MaterializeFunc func(cs *solution.Solution) error
	ClassifyFunc    func(lcs []*solution.Solution)

	HLC  []*grammar.Constraint
	LLC  []*grammar.Constraint
	Mods []*grammar.Module

	SatCheckDisabled bool
	Toggled          []string
}

func (m *MockEngine) expected(method string) bool {
	for _, call := range m.ExpectedCalls {
		if call.Method == method {
			return true
		}
	}
	return false
}

func (m *MockEngine) Generate(ctx context.Context, req grammar.GenerateRequest) ([]*solution.Solution, error) {
	if m.expected("Generate") {
		m.Called(ctx, req)
	}
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, req)
	}
	return nil, nil
}

func (m *MockEngine) Materialize(cs *solution.Solution) error {
	if m.expected("Materialize") {
		m.Called(cs)
	}
	if m.MaterializeFunc != nil {
		return m.MaterializeFunc(cs)
	}
	return nil
}

func (m *MockEngine) Classify(lcs []*solution.Solution) {
	if m.expected("Classify") {
		m.Called(lcs)
	}
	if m.ClassifyFunc != nil {
		m.ClassifyFunc(lcs)
	}
}

func (m *MockEngine) DisableSatCheck() { m.SatCheckDisabled = true }

func (m *MockEngine) HighLevelConstraints() []*grammar.Constraint { return m.HLC }
func (m *MockEngine) LowLevelConstraints() []*grammar.Constraint  { return m.LLC }

func (m *MockEngine) Modules() []*grammar.Module {
	if m.Mods != nil {
		return m.Mods
	}
	return []*grammar.Module{{Name: "body", Active: true}}
}

func (m *MockEngine) ToggleModule(name string) {
	m.Toggled = append(m.Toggled, name)
}

// MockEmitter is a no-op archive.Emitter that records lifecycle calls.
type MockEmitter struct {
	EmitterName string
	PickFunc    func(grid [][]*archive.Bin) (archive.Selection, error)

	Inits  int
	Posts  int
	Resets int
}

func (m *MockEmitter) Name() string {
	if m.EmitterName != "" {
		return m.EmitterName
	}
	return "mock"
}

func (m *MockEmitter) PickBins(grid [][]*archive.Bin) (archive.Selection, error) {
	if m.PickFunc != nil {
		return m.PickFunc(grid)
	}
	return archive.Selection{}, nil
}

func (m *MockEmitter) RequiresInit() bool { return false }
func (m *MockEmitter) RequiresPre() bool  { return false }
func (m *MockEmitter) RequiresPost() bool { return false }

func (m *MockEmitter) Init(grid [][]*archive.Bin) { m.Inits++ }
func (m *MockEmitter) PreStep(grid [][]*archive.Bin, selected, expanded [][2]int, bounds [2][2]float64) {
}
func (m *MockEmitter) PostStep(grid [][]*archive.Bin) { m.Posts++ }
func (m *MockEmitter) Reset()                         { m.Resets++ }
func (m *MockEmitter) State() ([]byte, error)         { return nil, nil }
