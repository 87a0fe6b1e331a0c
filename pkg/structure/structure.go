package structure

// GridSize is the edge length of one large-grid cell. Block positions are
// always multiples of it.
const GridSize = 5

// Structure is a mutable block layout. Blocks are keyed by their grid
// position and iteration follows insertion order, so a seeded run replays
// identically. The hull builder mutates a Structure in place.
type Structure struct {
	blocks map[Vec]*Block
	order  []Vec
	air    map[Vec]struct{}
}

// NewStructure creates an empty structure.
func NewStructure() *Structure {
	return &Structure{
		blocks: make(map[Vec]*Block),
		air:    make(map[Vec]struct{}),
	}
}

// AddBlock places a block at the given grid position (a multiple of
// GridSize). Adding at an occupied position replaces the block there while
// keeping its slot in the insertion order. Air blocks only reserve the cell.
func (s *Structure) AddBlock(b *Block, pos Vec) {
	b.Position = pos
	b.gridSize = GridSize
	if b.Type == BlockAir {
		s.air[pos] = struct{}{}
		return
	}
	if _, ok := s.blocks[pos]; !ok {
		s.order = append(s.order, pos)
	}
	s.blocks[pos] = b
}

// BlockAt returns the block at the grid position, or nil.
func (s *Structure) BlockAt(pos Vec) *Block {
	return s.blocks[pos]
}

// HasBlock reports whether a block occupies the grid position.
func (s *Structure) HasBlock(pos Vec) bool {
	_, ok := s.blocks[pos]
	return ok
}

// Blocks returns all blocks in insertion order.
func (s *Structure) Blocks() []*Block {
	out := make([]*Block, 0, len(s.order))
	for _, pos := range s.order {
		out = append(out, s.blocks[pos])
	}
	return out
}

// NumBlocks returns the number of placed blocks, air cells excluded.
func (s *Structure) NumBlocks() int {
	return len(s.blocks)
}

// bounds returns the min and max grid positions over blocks and air cells.
// ok is false for an empty structure.
func (s *Structure) bounds() (lo, hi Vec, ok bool) {
	first := true
	scan := func(pos Vec) {
		if first {
			lo, hi = pos, pos
			first = false
			return
		}
		lo = Min(lo, pos)
		hi = Max(hi, pos)
	}
	for pos := range s.blocks {
		scan(pos)
	}
	for pos := range s.air {
		scan(pos)
	}
	return lo, hi, !first
}

// MaxDims returns the bounding-box extent in cells along each axis.
func (s *Structure) MaxDims() (x, y, z int) {
	lo, hi, ok := s.bounds()
	if !ok {
		return 0, 0, 0
	}
	d := hi.Sub(lo)
	return d.X/GridSize + 1, d.Y/GridSize + 1, d.Z/GridSize + 1
}

// AsGridArray returns the 3D occupancy grid, indexed [x][y][z] in cell
// coordinates with 1 at occupied cells. It assumes a sanified structure
// (non-negative positions); cells outside the grid are ignored.
func (s *Structure) AsGridArray() [][][]int {
	dx, dy, dz := s.MaxDims()
	grid := makeGrid(dx, dy, dz)
	for pos := range s.blocks {
		i, j, k := pos.X/GridSize, pos.Y/GridSize, pos.Z/GridSize
		if inGrid(i, j, k, dx, dy, dz) {
			grid[i][j][k] = 1
		}
	}
	return grid
}

// AirGridMask returns the 3D mask of reserved air cells, indexed like
// AsGridArray.
func (s *Structure) AirGridMask() [][][]bool {
	dx, dy, dz := s.MaxDims()
	mask := make([][][]bool, dx)
	for i := range mask {
		mask[i] = make([][]bool, dy)
		for j := range mask[i] {
			mask[i][j] = make([]bool, dz)
		}
	}
	for pos := range s.air {
		i, j, k := pos.X/GridSize, pos.Y/GridSize, pos.Z/GridSize
		if inGrid(i, j, k, dx, dy, dz) {
			mask[i][j][k] = true
		}
	}
	return mask
}

// Rotate turns the whole structure by k quarter turns about the axis,
// rotating block orientations with it, then re-bases positions so the
// minimum corner sits at the origin.
func (s *Structure) Rotate(axis Axis, k int) {
	k = ((k % 4) + 4) % 4
	if k == 0 {
		return
	}
	blocks := make(map[Vec]*Block, len(s.blocks))
	order := make([]Vec, 0, len(s.order))
	for _, pos := range s.order {
		b := s.blocks[pos]
		np := RotateVec(pos, axis, k)
		b.Position = np
		b.OrientationForward = RotateOrientation(b.OrientationForward, axis, k)
		b.OrientationUp = RotateOrientation(b.OrientationUp, axis, k)
		blocks[np] = b
		order = append(order, np)
	}
	air := make(map[Vec]struct{}, len(s.air))
	for pos := range s.air {
		air[RotateVec(pos, axis, k)] = struct{}{}
	}
	s.blocks = blocks
	s.order = order
	s.air = air
	s.Sanify()
}

// SetColor sets the render color of every block.
func (s *Structure) SetColor(color VecF) {
	for _, b := range s.blocks {
		b.Color = color
	}
}

// UniqueBlocksCount returns how many blocks of exactly this type are placed.
func (s *Structure) UniqueBlocksCount(blockType string) int {
	n := 0
	for _, b := range s.blocks {
		if b.Type == blockType {
			n++
		}
	}
	return n
}

// BlockCounts returns the number of placed blocks per type.
func (s *Structure) BlockCounts() map[string]int {
	counts := make(map[string]int)
	for _, b := range s.blocks {
		counts[b.Type]++
	}
	return counts
}

// Sanify translates all positions so the minimum corner is at the origin,
// removing negative coordinates left behind by the turtle or by rotation.
func (s *Structure) Sanify() {
	lo, _, ok := s.bounds()
	if !ok || lo.IsZero() {
		return
	}
	blocks := make(map[Vec]*Block, len(s.blocks))
	order := make([]Vec, 0, len(s.order))
	for _, pos := range s.order {
		b := s.blocks[pos]
		np := pos.Sub(lo)
		b.Position = np
		blocks[np] = b
		order = append(order, np)
	}
	air := make(map[Vec]struct{}, len(s.air))
	for pos := range s.air {
		air[pos.Sub(lo)] = struct{}{}
	}
	s.blocks = blocks
	s.order = order
	s.air = air
}

func makeGrid(dx, dy, dz int) [][][]int {
	grid := make([][][]int, dx)
	for i := range grid {
		grid[i] = make([][]int, dy)
		for j := range grid[i] {
			grid[i][j] = make([]int, dz)
		}
	}
	return grid
}

func inGrid(i, j, k, dx, dy, dz int) bool {
	return i >= 0 && i < dx && j >= 0 && j < dy && k >= 0 && k < dz
}
