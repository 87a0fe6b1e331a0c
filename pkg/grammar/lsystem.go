package grammar

import (
	"context"
	"math/rand"
	"strings"
	"sync"

	"github.com/evoship/evoship/pkg/config"
	"github.com/evoship/evoship/pkg/errors"
	"github.com/evoship/evoship/pkg/logging"
	"github.com/evoship/evoship/pkg/solution"
)

// Production symbols.
//
// Terminals place blocks or steer the turtle; the nonterminal 'X' is the
// growth point rewritten during expansion and translated to a corridor
// when expansion stops.
const (
	SymCorridor  = 'F'
	SymCockpit   = 'C'
	SymThruster  = 'T'
	SymGyro      = 'G'
	SymReactor   = 'R'
	SymContainer = 'K'
	SymLight     = 'L'
	SymWindow    = 'W'
	SymYawLeft   = '+'
	SymYawRight  = '-'
	SymPitchUp   = '^'
	SymPitchDown = '&'
	SymPush      = '['
	SymPop       = ']'
	SymGrow      = 'X'
)

// Rule is one weighted production for a nonterminal.
type Rule struct {
	Out    string
	Weight float64
}

// LSystem is the reference grammar engine: weighted stochastic rewriting
// of the growth symbol, high-to-low-level translation, and a turtle that
// builds the block structure.
type LSystem struct {
	mu       sync.Mutex
	rng      *rand.Rand
	cfg      config.GrammarConfig
	modules  []*Module
	rules    map[rune][]Rule
	hlc      []*Constraint
	llc      []*Constraint
	satCheck bool

	// attempts bounds resampling when the satisfiability pre-check rejects
	// an expansion.
	attempts int
}

// NewLSystem creates the stock spaceship grammar: a cockpit head, an
// expanded body, and a thruster tail.
func NewLSystem(cfg config.GrammarConfig, rng *rand.Rand) *LSystem {
	ls := &LSystem{
		rng: rng,
		cfg: cfg,
		modules: []*Module{
			{Name: "head", Axiom: "CX", Iterations: 1, Active: true},
			{Name: "body", Axiom: "X", Iterations: cfg.Iterations, Active: true},
			{Name: "tail", Axiom: "XT", Iterations: 1, Active: true},
		},
		rules: map[rune][]Rule{
			SymGrow: {
				{Out: "FX", Weight: 1.0},
				{Out: "F[+X]X", Weight: 0.7},
				{Out: "F[-X]X", Weight: 0.7},
				{Out: "F[^X]X", Weight: 0.4},
				{Out: "F[&X]X", Weight: 0.4},
				{Out: "GFX", Weight: 0.3},
				{Out: "RFX", Weight: 0.3},
				{Out: "KFX", Weight: 0.3},
				{Out: "WFX", Weight: 0.2},
				{Out: "LFX", Weight: 0.2},
				{Out: "F", Weight: 0.5},
			},
		},
		satCheck: true,
		attempts: 5,
	}
	ls.hlc = highLevelConstraints(cfg)
	ls.llc = lowLevelConstraints()
	return ls
}

// Generate produces req.N solutions by stochastically expanding every
// active module and merging the per-module genomes. With the
// satisfiability pre-check enabled, expansions violating hard high-level
// constraints are resampled a bounded number of times; the last sample is
// kept regardless so bulk generation always makes progress.
func (ls *LSystem) Generate(ctx context.Context, req GenerateRequest) ([]*solution.Solution, error) {
	if req.N <= 0 {
		req.N = 1
	}
	if req.Iterations != nil && len(req.Iterations) != len(ls.modules) {
		return nil, errors.WithFields(
			errors.New(errors.InvalidInput, "iteration overrides must match the module count"),
			errors.Fields{"got": len(req.Iterations), "modules": len(ls.modules)})
	}
	logger := logging.GetLogger()

	out := make([]*solution.Solution, 0, req.N)
	for i := 0; i < req.N; i++ {
		select {
		case <-ctx.Done():
			return out, errors.Wrap(ctx.Err(), errors.Canceled, "generation interrupted")
		default:
		}
		cs, err := ls.generateOne(req.Iterations)
		if err != nil {
			return nil, err
		}
		if req.CreateStructures {
			if err := ls.Materialize(cs); err != nil {
				return nil, err
			}
		}
		out = append(out, cs)
	}
	logger.Debug(ctx, "Generated %d solutions (structures=%t)", len(out), req.CreateStructures)
	return out, nil
}

func (ls *LSystem) generateOne(iterations []int) (*solution.Solution, error) {
	parts := make([]*solution.Solution, len(ls.modules))
	names := make([]string, len(ls.modules))
	active := make([]bool, len(ls.modules))
	for mi, m := range ls.modules {
		iters := m.Iterations
		if iterations != nil {
			iters = iterations[mi]
		}
		expanded := ls.expandChecked(m.Axiom, iters)
		parts[mi] = solution.New(expanded)
		names[mi] = m.Name
		active[mi] = m.Active
	}
	return solution.Merge(parts, names, active)
}

// expandChecked expands an axiom, resampling while the satisfiability
// pre-check rejects the string.
func (ls *LSystem) expandChecked(axiom string, iterations int) string {
	s := ls.expand(axiom, iterations)
	if !ls.satCheck {
		return s
	}
	for attempt := 0; attempt < ls.attempts; attempt++ {
		if ls.preCheckOK(s) {
			return s
		}
		s = ls.expand(axiom, iterations)
	}
	return s
}

// preCheckOK applies the cheap string-level part of the hard high-level
// constraints to a module fragment: balanced brackets and a non-empty
// body.
func (ls *LSystem) preCheckOK(s string) bool {
	return len(s) > 0 && strings.Count(s, "[") == strings.Count(s, "]")
}

// expand rewrites the axiom for the given number of iterations, choosing
// productions by weighted sampling.
func (ls *LSystem) expand(axiom string, iterations int) string {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	s := axiom
	for it := 0; it < iterations; it++ {
		var b strings.Builder
		for _, r := range s {
			rules, ok := ls.rules[r]
			if !ok {
				b.WriteRune(r)
				continue
			}
			b.WriteString(ls.pickRule(rules))
		}
		s = b.String()
	}
	return s
}

func (ls *LSystem) pickRule(rules []Rule) string {
	total := 0.0
	for _, r := range rules {
		total += r.Weight
	}
	v := ls.rng.Float64() * total
	for _, r := range rules {
		v -= r.Weight
		if v <= 0 {
			return r.Out
		}
	}
	return rules[len(rules)-1].Out
}

// Materialize attaches the low-level string and, when absent, the block
// structure derived by the turtle. Solutions keep their structure once
// set, so re-materializing after a snapshot reload is a no-op on content.
func (ls *LSystem) Materialize(cs *solution.Solution) error {
	if cs.LLString == "" {
		cs.LLString = TranslateLL(cs.HLString)
	}
	if cs.HasContent() {
		return nil
	}
	st, _ := BuildStructure(cs.LLString)
	if err := cs.SetContent(st); err != nil {
		return err
	}
	return nil
}

// TranslateLL maps the high-level string to the low-level alphabet:
// leftover growth points become corridors, everything else passes through.
func TranslateLL(hl string) string {
	return strings.Map(func(r rune) rune {
		if r == SymGrow {
			return SymCorridor
		}
		return r
	}, hl)
}

// Classify runs every constraint against each solution, setting
// feasibility from the hard constraints and the violated-constraint count
// from both levels. Solutions are materialized on demand since the
// low-level constraints inspect the structure.
func (ls *LSystem) Classify(lcs []*solution.Solution) {
	for _, cs := range lcs {
		if !cs.HasContent() {
			// classification is best-effort for content: a solution whose
			// structure cannot be attached fails the low-level checks
			_ = ls.Materialize(cs)
		}
		feasible := true
		ncv := 0
		checks := make([]*Constraint, 0, len(ls.hlc)+len(ls.llc))
		checks = append(checks, ls.hlc...)
		checks = append(checks, ls.llc...)
		for _, c := range checks {
			if c.Check(cs) {
				continue
			}
			ncv++
			if c.Level == HardConstraint {
				feasible = false
			}
		}
		cs.IsFeasible = feasible
		cs.NCV = ncv
	}
}

// DisableSatCheck turns off expansion resampling during Generate.
func (ls *LSystem) DisableSatCheck() {
	ls.satCheck = false
}

func (ls *LSystem) HighLevelConstraints() []*Constraint { return ls.hlc }
func (ls *LSystem) LowLevelConstraints() []*Constraint  { return ls.llc }

// Modules returns the engine's modules in genome order.
func (ls *LSystem) Modules() []*Module { return ls.modules }

// ModuleNames returns the module names in genome order.
func (ls *LSystem) ModuleNames() []string {
	names := make([]string, len(ls.modules))
	for i, m := range ls.modules {
		names[i] = m.Name
	}
	return names
}

// ToggleModule flips the active flag of the named module. Unknown names
// are ignored.
func (ls *LSystem) ToggleModule(name string) {
	for _, m := range ls.modules {
		if m.Name == name {
			m.Active = !m.Active
			return
		}
	}
}
