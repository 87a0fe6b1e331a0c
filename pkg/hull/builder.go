// Package hull implements the post-processor that wraps a generated block
// skeleton in a closed armor hull: convex closure of the occupancy grid,
// optional erosion, obstruction and floating-block removal, and an
// optional smoothing pass that bevels the hull with slopes and corners.
package hull

import (
	"sort"
	"strings"

	"github.com/evoship/evoship/pkg/config"
	"github.com/evoship/evoship/pkg/errors"
	"github.com/evoship/evoship/pkg/structure"
)

// ErosionKind selects how the closed hull mask is thinned before blocks
// are placed.
type ErosionKind string

const (
	ErosionBinary ErosionKind = "bin"
	ErosionGrey   ErosionKind = "grey"
)

// obstructionTargets are the block-type fragments whose facing cells must
// stay clear: exhausts and windows.
var obstructionTargets = []string{"thrust", "window"}

// Builder adds an external hull to structures in place. A Builder is
// stateless between calls and safe to reuse, but not concurrently.
type Builder struct {
	Erosion        ErosionKind
	ApplyErosion   bool
	ApplySmoothing bool
	Iterations     int
}

// NewBuilder creates a hull builder from configuration.
func NewBuilder(cfg config.HullConfig) (*Builder, error) {
	kind := ErosionKind(cfg.Erosion)
	if kind == "" {
		kind = ErosionBinary
	}
	if kind != ErosionBinary && kind != ErosionGrey {
		return nil, errors.WithFields(
			errors.New(errors.InvalidInput, "unrecognized erosion kind"),
			errors.Fields{"kind": cfg.Erosion})
	}
	iterations := cfg.Iterations
	if iterations <= 0 {
		iterations = 2
	}
	return &Builder{
		Erosion:        kind,
		ApplyErosion:   cfg.ApplyErosion,
		ApplySmoothing: cfg.ApplySmoothing,
		Iterations:     iterations,
	}, nil
}

// build carries the per-call state: the hull mask in cell coordinates and
// the armor blocks placed so far, keyed by cell index.
type build struct {
	builder *Builder
	st      *structure.Structure
	hull    [][][]int
	blocks  map[structure.Vec]*structure.Block
	dims    structure.Vec
}

// AddExternalHull computes the hull mask and commits the resulting armor
// blocks into the structure. The process can only run once per structure:
// hull blocks become indistinguishable from skeleton blocks afterwards.
func (b *Builder) AddExternalHull(st *structure.Structure) error {
	st.Sanify()
	arr := st.AsGridArray()
	if len(arr) == 0 {
		return nil
	}
	bd := &build{
		builder: b,
		st:      st,
		blocks:  make(map[structure.Vec]*structure.Block),
		dims:    structure.V(len(arr), len(arr[0]), len(arr[0][0])),
	}

	bd.hull = convexClosure(arr)
	air := st.AirGridMask()
	bd.eachCell(func(c structure.Vec) {
		if arr[c.X][c.Y][c.Z] != 0 || air[c.X][c.Y][c.Z] {
			bd.hull[c.X][c.Y][c.Z] = 0
		}
	})

	if b.ApplyErosion {
		switch b.Erosion {
		case ErosionGrey:
			bd.hull = greyErode(bd.hull)
		case ErosionBinary:
			protected := dilate(arr)
			for i := 0; i < b.Iterations; i++ {
				bd.hull = binaryErode(bd.hull, protected)
			}
		}
	}

	bd.eachCell(func(c structure.Vec) {
		if bd.hull[c.X][c.Y][c.Z] == 0 {
			return
		}
		blk := structure.NewBlock(structure.BlockArmor, structure.Forward, structure.Up)
		blk.Position = c.Scale(structure.GridSize)
		bd.blocks[c] = blk
	})

	bd.removeObstructing()
	bd.removeFloating(arr)
	bd.armorAdjacentSkeleton()

	if b.ApplySmoothing {
		if err := bd.smooth(); err != nil {
			return err
		}
	}

	cells := make([]structure.Vec, 0, len(bd.blocks))
	for c := range bd.blocks {
		cells = append(cells, c)
	}
	sort.Slice(cells, func(a, b int) bool {
		ca, cb := cells[a], cells[b]
		if ca.X != cb.X {
			return ca.X < cb.X
		}
		if ca.Y != cb.Y {
			return ca.Y < cb.Y
		}
		return ca.Z < cb.Z
	})
	for _, c := range cells {
		st.AddBlock(bd.blocks[c], c.Scale(structure.GridSize))
	}
	st.Sanify()
	return nil
}

func (bd *build) eachCell(fn func(c structure.Vec)) {
	for i := 0; i < bd.dims.X; i++ {
		for j := 0; j < bd.dims.Y; j++ {
			for k := 0; k < bd.dims.Z; k++ {
				fn(structure.V(i, j, k))
			}
		}
	}
}

func (bd *build) inBounds(c structure.Vec) bool {
	return c.X >= 0 && c.X < bd.dims.X &&
		c.Y >= 0 && c.Y < bd.dims.Y &&
		c.Z >= 0 && c.Z < bd.dims.Z
}

// removeObstructing clears hull cells sitting next to thruster exhausts or
// windows, then keeps clearing along the blocked line of sight.
func (bd *build) removeObstructing() {
	for c := range bd.blocks {
		if bd.hull[c.X][c.Y][c.Z] == 0 {
			continue
		}
		for _, dir := range structure.Orientations {
			world := c.Scale(structure.GridSize).Add(dir.Vec().Scale(structure.GridSize))
			nb := bd.st.BlockAt(world)
			if nb == nil || !isObstructionTarget(nb.Type) {
				continue
			}
			bd.clearLine(c, dir.Opposite())
			break
		}
	}
}

func isObstructionTarget(blockType string) bool {
	lower := strings.ToLower(blockType)
	for _, target := range obstructionTargets {
		if strings.Contains(lower, target) {
			return true
		}
	}
	return false
}

func (bd *build) clearLine(from structure.Vec, dir structure.Orientation) {
	step := dir.Vec()
	for c := from; bd.inBounds(c); c = c.Add(step) {
		bd.hull[c.X][c.Y][c.Z] = 0
		delete(bd.blocks, c)
	}
}

// removeFloating drops hull blocks not connected to the skeleton. The
// cockpit anchors the connected region; structures without one keep the
// hull as is.
func (bd *build) removeFloating(arr [][][]int) {
	var pivot structure.Vec
	found := false
	for _, blk := range bd.st.Blocks() {
		if blk.Type == structure.BlockCockpit {
			pivot = structure.V(
				blk.Position.X/structure.GridSize,
				blk.Position.Y/structure.GridSize,
				blk.Position.Z/structure.GridSize)
			found = true
			break
		}
	}
	if !found {
		return
	}

	connected := make(map[structure.Vec]struct{})
	queue := []structure.Vec{pivot}
	filled := func(c structure.Vec) bool {
		if !bd.inBounds(c) {
			return false
		}
		if arr[c.X][c.Y][c.Z] != 0 {
			return true
		}
		return bd.hull[c.X][c.Y][c.Z] != 0
	}
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		if _, seen := connected[c]; seen || !filled(c) {
			continue
		}
		connected[c] = struct{}{}
		for _, dir := range structure.Orientations {
			queue = append(queue, c.Add(dir.Vec()))
		}
	}
	for c := range bd.blocks {
		if _, ok := connected[c]; !ok {
			bd.hull[c.X][c.Y][c.Z] = 0
			delete(bd.blocks, c)
		}
	}
}

// armorAdjacentSkeleton swaps skeleton armor blocks touching the hull for
// plain armor so the hull welds onto a uniform surface. Functional blocks
// keep their type.
func (bd *build) armorAdjacentSkeleton() {
	for c := range bd.blocks {
		for _, dir := range structure.Orientations {
			world := c.Add(dir.Vec()).Scale(structure.GridSize)
			nb := bd.st.BlockAt(world)
			if nb == nil || !nb.IsArmor() || nb.Type == structure.BlockArmor {
				continue
			}
			repl := structure.NewBlock(structure.BlockArmor, nb.OrientationForward, nb.OrientationUp)
			repl.Color = nb.Color
			bd.st.AddBlock(repl, world)
		}
	}
}

// convexClosure fills the occupancy grid to its orthogonal convex closure:
// along every axis line, cells between the first and last occupied cell
// are filled, repeated until a fixpoint. This closes the concavities the
// hull must cover while staying inside the bounding box.
func convexClosure(arr [][][]int) [][][]int {
	dx, dy, dz := len(arr), len(arr[0]), len(arr[0][0])
	out := make([][][]int, dx)
	for i := range out {
		out[i] = make([][]int, dy)
		for j := range out[i] {
			out[i][j] = append([]int(nil), arr[i][j]...)
		}
	}
	fillLine := func(get func(t int) int, set func(t int), n int) bool {
		first, last := -1, -1
		for t := 0; t < n; t++ {
			if get(t) != 0 {
				if first < 0 {
					first = t
				}
				last = t
			}
		}
		changed := false
		for t := first + 1; t >= 0 && t < last; t++ {
			if get(t) == 0 {
				set(t)
				changed = true
			}
		}
		return changed
	}
	for {
		changed := false
		for j := 0; j < dy; j++ {
			for k := 0; k < dz; k++ {
				j, k := j, k
				changed = fillLine(func(t int) int { return out[t][j][k] }, func(t int) { out[t][j][k] = 1 }, dx) || changed
			}
		}
		for i := 0; i < dx; i++ {
			for k := 0; k < dz; k++ {
				i, k := i, k
				changed = fillLine(func(t int) int { return out[i][t][k] }, func(t int) { out[i][t][k] = 1 }, dy) || changed
			}
		}
		for i := 0; i < dx; i++ {
			for j := 0; j < dy; j++ {
				i, j := i, j
				changed = fillLine(func(t int) int { return out[i][j][t] }, func(t int) { out[i][j][t] = 1 }, dz) || changed
			}
		}
		if !changed {
			break
		}
	}
	return out
}

// binaryErode removes filled cells with an empty 6-neighbor, skipping
// cells the protection mask marks. Cells beyond the grid count as empty,
// so erosion eats inward from the boundary.
func binaryErode(arr [][][]int, protected [][][]int) [][][]int {
	dx, dy, dz := len(arr), len(arr[0]), len(arr[0][0])
	out := make([][][]int, dx)
	for i := range out {
		out[i] = make([][]int, dy)
		for j := range out[i] {
			out[i][j] = append([]int(nil), arr[i][j]...)
		}
	}
	at := func(i, j, k int) int {
		if i < 0 || i >= dx || j < 0 || j >= dy || k < 0 || k >= dz {
			return 0
		}
		return arr[i][j][k]
	}
	for i := 0; i < dx; i++ {
		for j := 0; j < dy; j++ {
			for k := 0; k < dz; k++ {
				if arr[i][j][k] == 0 || protected[i][j][k] != 0 {
					continue
				}
				if at(i-1, j, k) == 0 || at(i+1, j, k) == 0 ||
					at(i, j-1, k) == 0 || at(i, j+1, k) == 0 ||
					at(i, j, k-1) == 0 || at(i, j, k+1) == 0 {
					out[i][j][k] = 0
				}
			}
		}
	}
	return out
}

// greyErode is a single erosion with the 3D cross footprint, with cells
// beyond the grid treated as filled so only interior boundaries erode.
func greyErode(arr [][][]int) [][][]int {
	dx, dy, dz := len(arr), len(arr[0]), len(arr[0][0])
	out := make([][][]int, dx)
	at := func(i, j, k int) int {
		if i < 0 || i >= dx || j < 0 || j >= dy || k < 0 || k >= dz {
			return 1
		}
		return arr[i][j][k]
	}
	for i := range out {
		out[i] = make([][]int, dy)
		for j := range out[i] {
			out[i][j] = make([]int, dz)
			for k := 0; k < dz; k++ {
				v := arr[i][j][k]
				for _, dir := range structure.Orientations {
					d := dir.Vec()
					if n := at(i+d.X, j+d.Y, k+d.Z); n < v {
						v = n
					}
				}
				out[i][j][k] = v
			}
		}
	}
	return out
}

// dilate grows the occupancy by one cell in the 6 directions; the result
// protects cells hugging the skeleton from erosion.
func dilate(arr [][][]int) [][][]int {
	dx, dy, dz := len(arr), len(arr[0]), len(arr[0][0])
	out := make([][][]int, dx)
	for i := range out {
		out[i] = make([][]int, dy)
		for j := range out[i] {
			out[i][j] = append([]int(nil), arr[i][j]...)
		}
	}
	for i := 0; i < dx; i++ {
		for j := 0; j < dy; j++ {
			for k := 0; k < dz; k++ {
				if arr[i][j][k] == 0 {
					continue
				}
				for _, dir := range structure.Orientations {
					d := dir.Vec()
					ni, nj, nk := i+d.X, j+d.Y, k+d.Z
					if ni >= 0 && ni < dx && nj >= 0 && nj < dy && nk >= 0 && nk < dz {
						out[ni][nj][nk] = 1
					}
				}
			}
		}
	}
	return out
}
