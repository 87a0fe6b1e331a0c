package grammar

import (
	"strings"

	"github.com/evoship/evoship/pkg/behavior"
	"github.com/evoship/evoship/pkg/config"
	"github.com/evoship/evoship/pkg/solution"
)

// highLevelConstraints builds the checks over the production string: the
// required components and bounding box are hard, the functional balance is
// soft.
func highLevelConstraints(cfg config.GrammarConfig) []*Constraint {
	return []*Constraint{
		{
			Name:  "required-components",
			Level: HardConstraint,
			Scope: HighLevel,
			Check: func(cs *solution.Solution) bool {
				return strings.ContainsRune(cs.HLString, SymCockpit) &&
					strings.ContainsRune(cs.HLString, SymThruster)
			},
		},
		{
			Name:  "within-bounds",
			Level: HardConstraint,
			Scope: HighLevel,
			Check: func(cs *solution.Solution) bool {
				size := cs.Size()
				return size[0] <= cfg.MaxXSize && size[1] <= cfg.MaxYSize && size[2] <= cfg.MaxZSize
			},
		},
		{
			Name:  "component-balance",
			Level: SoftConstraint,
			Scope: HighLevel,
			Check: func(cs *solution.Solution) bool {
				functional := 0
				total := 0
				for _, r := range cs.HLString {
					switch r {
					case SymCockpit, SymThruster, SymGyro, SymReactor, SymContainer, SymLight, SymWindow:
						functional++
						total++
					case SymCorridor, SymGrow:
						total++
					}
				}
				if total == 0 {
					return false
				}
				ratio := float64(functional) / float64(total)
				return ratio >= 0.05 && ratio <= 0.6
			},
		},
	}
}

// lowLevelConstraints builds the checks over the derived structure: the
// intersection-free check is hard, the symmetry preference is soft.
func lowLevelConstraints() []*Constraint {
	return []*Constraint{
		{
			Name:  "intersection-free",
			Level: HardConstraint,
			Scope: LowLevel,
			Check: func(cs *solution.Solution) bool {
				if cs.LLString == "" {
					return false
				}
				_, overlaps := BuildStructure(cs.LLString)
				return overlaps == 0
			},
		},
		{
			Name:  "symmetry",
			Level: SoftConstraint,
			Scope: LowLevel,
			Check: func(cs *solution.Solution) bool {
				return behavior.Symmetry(cs) >= 0.5
			},
		},
	}
}
