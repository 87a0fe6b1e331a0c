package hull

import (
	"sort"

	"github.com/evoship/evoship/pkg/errors"
	"github.com/evoship/evoship/pkg/structure"
)

// smoothingChain maps each armor type to the more tapered type tried in
// its place. Cubes become slopes, slopes become corners.
var smoothingChain = map[string]string{
	structure.BlockArmor:      structure.BlockArmorSlope,
	structure.BlockArmorSlope: structure.BlockArmorCorner,
}

// smooth bevels the hull surface. Exposed cubes are re-tried as slopes and
// exposed slopes as corners, keeping a candidate only when every touched
// neighbor still has overlapping mountpoints and the exposed-face area
// shrinks.
func (bd *build) smooth() error {
	for _, from := range []string{structure.BlockArmor, structure.BlockArmorSlope} {
		cells := make([]structure.Vec, 0, len(bd.blocks))
		for c, blk := range bd.blocks {
			if blk.Type == from && bd.exposed(c) {
				cells = append(cells, c)
			}
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
			if err := bd.trySmoothAt(c); err != nil {
				return err
			}
		}
	}
	return nil
}

// exposed reports whether the cell has at least one empty 6-neighbor,
// counting both hull and skeleton occupancy.
func (bd *build) exposed(c structure.Vec) bool {
	for _, dir := range structure.Orientations {
		if bd.blockNear(c, dir) == nil {
			return true
		}
	}
	return false
}

// blockNear returns the block occupying the neighboring cell, whether it
// belongs to the hull or the skeleton.
func (bd *build) blockNear(c structure.Vec, dir structure.Orientation) *structure.Block {
	n := c.Add(dir.Vec())
	if blk, ok := bd.blocks[n]; ok {
		return blk
	}
	return bd.st.BlockAt(n.Scale(structure.GridSize))
}

// trySmoothAt replaces the block at c with the next type in the smoothing
// chain if some orientation of it attaches validly with less exposed face
// area than the current block.
func (bd *build) trySmoothAt(c structure.Vec) error {
	current := bd.blocks[c]
	next, ok := smoothingChain[current.Type]
	if !ok {
		return nil
	}

	curValid, curErr, err := bd.placement(c, current)
	if err != nil {
		return err
	}

	var best *structure.Block
	bestErr := curErr
	for _, pair := range orientationPairs() {
		candidate := structure.NewBlock(next, pair[0], pair[1])
		candidate.Position = current.Position
		candidate.Color = current.Color
		valid, area, err := bd.placement(c, candidate)
		if err != nil {
			return err
		}
		if !valid {
			continue
		}
		if best == nil && !curValid {
			best, bestErr = candidate, area
			continue
		}
		if area < bestErr {
			best, bestErr = candidate, area
		}
	}
	if best != nil {
		bd.blocks[c] = best
	}
	return nil
}

// placement checks whether blk can sit at cell c: every occupied neighbor
// must present overlapping mountpoints, and at least one attachment must
// exist. The returned score is the total exposed or mismatched face area,
// lower is better.
func (bd *build) placement(c structure.Vec, blk *structure.Block) (bool, float64, error) {
	mps, err := rotatedMountPoints(blk)
	if err != nil {
		return false, 0, err
	}
	attached := false
	score := 0.0
	for _, dir := range structure.Orientations {
		face := dir.Vec()
		neighbor := bd.blockNear(c, dir)
		if neighbor == nil {
			// Exposed side: any attachable area here is wasted surface.
			for _, mp := range mps {
				if mp.Face == face {
					score += quadArea(mp)
				}
			}
			continue
		}
		ours := quadsOnFace(mps, face)
		if len(ours) == 0 {
			return false, 0, nil
		}
		theirs, err := rotatedMountPoints(neighbor)
		if err != nil {
			return false, 0, err
		}
		facing := quadsOnFace(theirs, dir.Opposite().Vec())
		if len(facing) == 0 {
			return false, 0, nil
		}
		overlap := 0.0
		for _, a := range ours {
			for _, b := range facing {
				overlap += quadOverlap(a, b, face)
			}
		}
		if overlap <= 0 {
			return false, 0, nil
		}
		attached = true
		for _, a := range ours {
			score += quadArea(a)
		}
		score -= overlap
	}
	return attached, score, nil
}

// rotatedMountPoints returns blk's mountpoints rotated from block-local
// into grid orientation. A degenerate quad means the mountpoint table or
// rotation is broken, which is fatal.
func rotatedMountPoints(blk *structure.Block) ([]structure.MountPoint, error) {
	rot := blk.Rotation()
	center := blk.Center()
	local := blk.MountPoints()
	out := make([]structure.MountPoint, 0, len(local))
	for _, mp := range local {
		start := rot.ApplyF(mp.Start.Sub(center)).Add(center)
		end := rot.ApplyF(mp.End.Sub(center)).Add(center)
		r := structure.MountPoint{
			Face:  rot.Apply(mp.Face),
			Start: structure.MinF(start, end),
			End:   structure.MaxF(start, end),
		}
		if quadArea(r) == 0 {
			return nil, errors.WithFields(
				errors.New(errors.InvalidMountpoint, "mountpoint quad has zero area"),
				errors.Fields{"block": blk.Type, "face": r.Face.String()})
		}
		out = append(out, r)
	}
	return out, nil
}

func quadsOnFace(mps []structure.MountPoint, face structure.Vec) []structure.MountPoint {
	var out []structure.MountPoint
	for _, mp := range mps {
		if mp.Face == face {
			out = append(out, mp)
		}
	}
	return out
}

func quadArea(mp structure.MountPoint) float64 {
	return mp.End.Sub(mp.Start).Area()
}

// quadOverlap returns the overlapping area of two quads on touching faces.
// Both quads live in their block's local frame; the tangent axes share the
// same grid alignment, so the intervals compare directly.
func quadOverlap(a, b structure.MountPoint, face structure.Vec) float64 {
	overlap := 1.0
	axes := [3][2]float64{
		{a.Start.X, a.End.X}, {a.Start.Y, a.End.Y}, {a.Start.Z, a.End.Z},
	}
	other := [3][2]float64{
		{b.Start.X, b.End.X}, {b.Start.Y, b.End.Y}, {b.Start.Z, b.End.Z},
	}
	normals := [3]int{face.X, face.Y, face.Z}
	for i := 0; i < 3; i++ {
		if normals[i] != 0 {
			continue
		}
		lo := axes[i][0]
		if other[i][0] > lo {
			lo = other[i][0]
		}
		hi := axes[i][1]
		if other[i][1] < hi {
			hi = other[i][1]
		}
		if hi <= lo {
			return 0
		}
		overlap *= hi - lo
	}
	return overlap
}

// orientationPairs enumerates the 24 valid (forward, up) orientation pairs.
func orientationPairs() [][2]structure.Orientation {
	pairs := make([][2]structure.Orientation, 0, 24)
	for _, f := range structure.Orientations {
		for _, u := range structure.Orientations {
			if u == f || u == f.Opposite() {
				continue
			}
			pairs = append(pairs, [2]structure.Orientation{f, u})
		}
	}
	return pairs
}
