// Package solution defines the candidate solution value type shared by the
// grammar, the evolutionary operators, and the archive, together with the
// arena that resolves parent references without owned lineage copies.
package solution

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/evoship/evoship/pkg/errors"
	"github.com/evoship/evoship/pkg/structure"
)

// ModuleGenome is the per-module slice of a solution's production string,
// with its mutability flag for the genetic operators.
type ModuleGenome struct {
	String  string `json:"string"`
	Mutable bool   `json:"mutable"`
}

// Solution is one candidate spaceship: the high-level production string that
// identifies it, the optional derived structure, and the fitness, behavior
// and lineage metadata maintained by the search.
//
// Two solutions are the same individual iff their HLString matches;
// populations deduplicate on it. The ID is only a stable arena handle for
// lineage references.
type Solution struct {
	ID       string
	HLString string
	LLString string

	IsFeasible bool
	NCV        int

	Fitness        []float64
	CFitness       float64
	Behavior       [2]float64
	Representation []float64

	Age            int
	ParentIDs      []string
	NOffspring     int
	NFeasOffspring int

	Modules     map[string]ModuleGenome
	NBlocks     int
	ContentSize [3]int
	BaseColor   structure.VecF

	content *structure.Structure
}

// New creates a solution for a high-level production string. Solutions start
// feasible until classification says otherwise.
func New(hlString string) *Solution {
	return &Solution{
		ID:         uuid.NewString(),
		HLString:   hlString,
		IsFeasible: true,
		Modules:    make(map[string]ModuleGenome),
		BaseColor:  structure.DefaultColor,
	}
}

func (s *Solution) String() string {
	return fmt.Sprintf("%s; fitness: %g; is_feasible: %t", s.HLString, s.CFitness, s.IsFeasible)
}

// SetContent attaches the derived structure. The content is immutable once
// set; a second set fails with ContentAlreadySet.
func (s *Solution) SetContent(c *structure.Structure) error {
	if s.content != nil {
		return errors.WithFields(
			errors.New(errors.ContentAlreadySet, "structure already exists for this solution"),
			errors.Fields{"solution": s.HLString})
	}
	s.content = c
	s.NBlocks = c.NumBlocks()
	s.SyncContentSize()
	return nil
}

// Content returns the derived structure, or nil if none was set.
func (s *Solution) Content() *structure.Structure {
	return s.content
}

// HasContent reports whether the structure has been set.
func (s *Solution) HasContent() bool {
	return s.content != nil
}

// SyncContentSize refreshes ContentSize from the structure's current
// bounding box. The hull builder grows the structure in place, so callers
// re-sync after post-processing.
func (s *Solution) SyncContentSize() {
	if s.content == nil {
		return
	}
	x, y, z := s.content.MaxDims()
	s.ContentSize = [3]int{x, y, z}
}

// Size returns the bounding-box extent in cells, from the structure when
// present or from the last synced ContentSize otherwise.
func (s *Solution) Size() [3]int {
	if s.content != nil {
		x, y, z := s.content.MaxDims()
		return [3]int{x, y, z}
	}
	return s.ContentSize
}

// UniqueBlocks counts the functional components of the structure, grouped
// under display names. Returns nil when no content is set.
func (s *Solution) UniqueBlocks() map[string]int {
	if s.content == nil {
		return nil
	}
	groups := map[string][]string{
		"Gyroscopes": {structure.BlockGyro},
		"Reactors":   {structure.BlockReactor},
		"Containers": {structure.BlockContainer},
		"Cockpits":   {structure.BlockCockpit},
		"Thrusters":  {structure.BlockThruster},
		"Lights":     {structure.BlockLight, structure.BlockLightCorner},
	}
	counts := make(map[string]int, len(groups))
	for name, types := range groups {
		for _, bt := range types {
			counts[name] += s.content.UniqueBlocksCount(bt)
		}
	}
	return counts
}

// Record is the JSON form of a solution. Parents are stored as arena IDs so
// records stay cycle-free; content is rebuilt from LLString on demand.
type Record struct {
	ID             string                  `json:"id"`
	String         string                  `json:"string"`
	LLString       string                  `json:"ll_string"`
	IsFeasible     bool                    `json:"is_feasible"`
	NCV            int                     `json:"ncv"`
	Fitness        []float64               `json:"fitness"`
	CFitness       float64                 `json:"c_fitness"`
	Behavior       [2]float64              `json:"b_descs"`
	Representation []float64               `json:"representation"`
	Age            int                     `json:"age"`
	ParentIDs      []string                `json:"parent_ids"`
	NOffspring     int                     `json:"n_offspring"`
	NFeasOffspring int                     `json:"n_feas_offspring"`
	Modules        map[string]ModuleGenome `json:"modules"`
}

// Record captures the solution's persisted state.
func (s *Solution) Record() Record {
	return Record{
		ID:             s.ID,
		String:         s.HLString,
		LLString:       s.LLString,
		IsFeasible:     s.IsFeasible,
		NCV:            s.NCV,
		Fitness:        append([]float64(nil), s.Fitness...),
		CFitness:       s.CFitness,
		Behavior:       s.Behavior,
		Representation: append([]float64(nil), s.Representation...),
		Age:            s.Age,
		ParentIDs:      append([]string(nil), s.ParentIDs...),
		NOffspring:     s.NOffspring,
		NFeasOffspring: s.NFeasOffspring,
		Modules:        copyModules(s.Modules),
	}
}

// FromRecord rebuilds a solution from its persisted state.
func FromRecord(r Record) *Solution {
	s := New(r.String)
	if r.ID != "" {
		s.ID = r.ID
	}
	s.LLString = r.LLString
	s.IsFeasible = r.IsFeasible
	s.NCV = r.NCV
	s.Fitness = append([]float64(nil), r.Fitness...)
	s.CFitness = r.CFitness
	s.Behavior = r.Behavior
	s.Representation = append([]float64(nil), r.Representation...)
	s.Age = r.Age
	s.ParentIDs = append([]string(nil), r.ParentIDs...)
	s.NOffspring = r.NOffspring
	s.NFeasOffspring = r.NFeasOffspring
	if r.Modules != nil {
		s.Modules = copyModules(r.Modules)
	}
	return s
}

func copyModules(in map[string]ModuleGenome) map[string]ModuleGenome {
	out := make(map[string]ModuleGenome, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// Merge joins per-module solutions into a single one, recording each
// module's genome slice and default mutability.
func Merge(lcs []*Solution, moduleNames []string, moduleActive []bool) (*Solution, error) {
	if len(lcs) != len(moduleNames) || len(moduleNames) != len(moduleActive) {
		return nil, errors.WithFields(
			errors.New(errors.InvalidInput, "each solution must come from exactly one module"),
			errors.Fields{
				"solutions": len(lcs),
				"modules":   len(moduleNames),
			})
	}
	var b strings.Builder
	for _, cs := range lcs {
		b.WriteString(cs.HLString)
	}
	merged := New(b.String())
	for i, cs := range lcs {
		merged.Modules[moduleNames[i]] = ModuleGenome{
			String:  cs.HLString,
			Mutable: moduleActive[i],
		}
	}
	return merged, nil
}

// Contains reports whether pop already holds an individual with the same
// production string.
func Contains(pop []*Solution, cs *Solution) bool {
	for _, p := range pop {
		if p.HLString == cs.HLString {
			return true
		}
	}
	return false
}

// Dedup removes duplicate individuals by production string, keeping the
// first occurrence and the original order.
func Dedup(pop []*Solution) []*Solution {
	seen := make(map[string]struct{}, len(pop))
	out := make([]*Solution, 0, len(pop))
	for _, cs := range pop {
		if _, ok := seen[cs.HLString]; ok {
			continue
		}
		seen[cs.HLString] = struct{}{}
		out = append(out, cs)
	}
	return out
}
