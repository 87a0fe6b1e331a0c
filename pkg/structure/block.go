package structure

// Block type identifiers follow the Space Engineers large-grid naming used
// by the tileset the grammar places from.
const (
	BlockArmor                = "MyObjectBuilder_CubeBlock_LargeBlockArmorBlock"
	BlockArmorSlope           = "MyObjectBuilder_CubeBlock_LargeBlockArmorSlope"
	BlockArmorCorner          = "MyObjectBuilder_CubeBlock_LargeBlockArmorCorner"
	BlockArmorCornerInv       = "MyObjectBuilder_CubeBlock_LargeBlockArmorCornerInv"
	BlockArmorCornerSquare    = "MyObjectBuilder_CubeBlock_LargeBlockArmorCornerSquare"
	BlockArmorCornerSquareInv = "MyObjectBuilder_CubeBlock_LargeBlockArmorCornerSquareInverted"
	BlockGyro                 = "MyObjectBuilder_Gyro_LargeBlockGyro"
	BlockReactor              = "MyObjectBuilder_Reactor_LargeBlockSmallGenerator"
	BlockContainer            = "MyObjectBuilder_CargoContainer_LargeBlockSmallContainer"
	BlockCockpit              = "MyObjectBuilder_Cockpit_OpenCockpitLarge"
	BlockThruster             = "MyObjectBuilder_Thrust_LargeBlockSmallThrust"
	BlockLight                = "MyObjectBuilder_InteriorLight_SmallLight"
	BlockLightCorner          = "MyObjectBuilder_InteriorLight_LargeBlockLight_1corner"
	BlockWindow               = "MyObjectBuilder_CubeBlock_Window1x1Flat"

	// BlockAir reserves a grid cell that must stay empty (e.g. the space
	// above an open cockpit). Air cells never appear in the occupancy grid.
	BlockAir = "Air"
)

// MountPoint is one attachable face of a block: the face normal in
// block-local space plus the start/end corners of the attachment quad,
// in block-local coordinates scaled to the grid size.
type MountPoint struct {
	Face  Vec
	Start VecF
	End   VecF
}

// mountPointsFor returns the mountpoint table entry for a block type at the
// given grid size. Unknown types attach on every face like plain armor.
func mountPointsFor(blockType string, gridSize int) []MountPoint {
	s := float64(gridSize)
	full := func(face Orientation) MountPoint {
		return faceQuad(face, s, 0, 1)
	}
	half := func(face Orientation) MountPoint {
		return faceQuad(face, s, 0, 0.5)
	}
	switch blockType {
	case BlockArmorSlope:
		// The slanted top/front faces cannot attach.
		return []MountPoint{full(Down), full(Backward), half(Left), half(Right)}
	case BlockArmorCorner:
		return []MountPoint{half(Down), half(Backward)}
	case BlockArmorCornerInv, BlockArmorCornerSquareInv:
		return []MountPoint{
			full(Down), full(Backward), full(Left),
			half(Up), half(Forward), half(Right),
		}
	case BlockArmorCornerSquare:
		return []MountPoint{full(Down), half(Backward), half(Left)}
	case BlockCockpit:
		// Open cockpit: the seat opening faces up/forward.
		return []MountPoint{full(Down), full(Backward)}
	case BlockThruster:
		// Thrusters attach opposite the exhaust.
		return []MountPoint{full(Forward)}
	case BlockLight, BlockLightCorner:
		return []MountPoint{full(Backward)}
	case BlockAir:
		return nil
	default:
		return []MountPoint{
			full(Forward), full(Backward), full(Up),
			full(Down), full(Left), full(Right),
		}
	}
}

// faceQuad builds the attachment quad on a face, covering the fraction of
// the face between from and to on both tangent axes.
func faceQuad(face Orientation, size, from, to float64) MountPoint {
	n := face.Vec()
	// The plane offset along the normal: 0 for negative faces, size for
	// positive ones.
	plane := func(c int) (lo, hi float64) {
		switch {
		case c > 0:
			return size, size
		case c < 0:
			return 0, 0
		default:
			return from * size, to * size
		}
	}
	x0, x1 := plane(n.X)
	y0, y1 := plane(n.Y)
	z0, z1 := plane(n.Z)
	return MountPoint{
		Face:  n,
		Start: VecF{X: x0, Y: y0, Z: z0},
		End:   VecF{X: x1, Y: y1, Z: z1},
	}
}

// Block is a single placed block: its type, the (forward, up) orientation
// pair, its grid position, and its render color.
type Block struct {
	Type               string
	OrientationForward Orientation
	OrientationUp      Orientation
	Position           Vec
	Color              VecF

	gridSize int
}

// DefaultColor is the neutral block color (#737373).
var DefaultColor = VecF{X: 0.45, Y: 0.45, Z: 0.45}

// NewBlock creates a block of the given type and orientation pair. The
// position is assigned when the block is added to a Structure.
func NewBlock(blockType string, forward, up Orientation) *Block {
	return &Block{
		Type:               blockType,
		OrientationForward: forward,
		OrientationUp:      up,
		Color:              DefaultColor,
		gridSize:           GridSize,
	}
}

// MountPoints returns the attachment quads for this block type in
// block-local coordinates.
func (b *Block) MountPoints() []MountPoint {
	return mountPointsFor(b.Type, b.size())
}

// Center is the block-local center point, used as the pivot when rotating
// mountpoint quads into the grid frame.
func (b *Block) Center() VecF {
	h := float64(b.size()) / 2
	return VecF{X: h, Y: h, Z: h}
}

// Rotation returns the rotation matrix for the block's orientation pair.
func (b *Block) Rotation() RotationMatrix {
	return RotationFrom(b.OrientationForward, b.OrientationUp)
}

// IsArmor reports whether the block is plain hull armor rather than a
// functional component.
func (b *Block) IsArmor() bool {
	switch b.Type {
	case BlockArmor, BlockArmorSlope, BlockArmorCorner,
		BlockArmorCornerInv, BlockArmorCornerSquare, BlockArmorCornerSquareInv:
		return true
	default:
		return false
	}
}

// IsFunctional reports whether the block is a working component (cockpit,
// thruster, reactor, ...) as opposed to armor or reserved air.
func (b *Block) IsFunctional() bool {
	return !b.IsArmor() && b.Type != BlockAir
}

func (b *Block) size() int {
	if b.gridSize <= 0 {
		return GridSize
	}
	return b.gridSize
}
