package structure

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddBlock(t *testing.T) {
	t.Run("placement and lookup", func(t *testing.T) {
		s := NewStructure()
		b := NewBlock(BlockArmor, Forward, Up)
		s.AddBlock(b, V(0, 0, 0))

		assert.Equal(t, 1, s.NumBlocks())
		assert.True(t, s.HasBlock(V(0, 0, 0)))
		assert.Same(t, b, s.BlockAt(V(0, 0, 0)))
		assert.Nil(t, s.BlockAt(V(5, 0, 0)))
	})

	t.Run("replacement keeps insertion order", func(t *testing.T) {
		s := NewStructure()
		s.AddBlock(NewBlock(BlockArmor, Forward, Up), V(0, 0, 0))
		s.AddBlock(NewBlock(BlockGyro, Forward, Up), V(5, 0, 0))
		s.AddBlock(NewBlock(BlockReactor, Forward, Up), V(0, 0, 0))

		blocks := s.Blocks()
		require.Len(t, blocks, 2)
		assert.Equal(t, BlockReactor, blocks[0].Type)
		assert.Equal(t, BlockGyro, blocks[1].Type)
	})

	t.Run("air blocks reserve cells without occupying them", func(t *testing.T) {
		s := NewStructure()
		s.AddBlock(NewBlock(BlockCockpit, Forward, Up), V(0, 0, 0))
		s.AddBlock(NewBlock(BlockAir, Forward, Up), V(0, 5, 0))

		assert.Equal(t, 1, s.NumBlocks())
		assert.False(t, s.HasBlock(V(0, 5, 0)))

		mask := s.AirGridMask()
		require.Len(t, mask, 1)
		assert.True(t, mask[0][1][0])
		assert.False(t, mask[0][0][0])
	})
}

func TestMaxDims(t *testing.T) {
	t.Run("empty structure", func(t *testing.T) {
		x, y, z := NewStructure().MaxDims()
		assert.Zero(t, x)
		assert.Zero(t, y)
		assert.Zero(t, z)
	})

	t.Run("extent in cells", func(t *testing.T) {
		s := NewStructure()
		s.AddBlock(NewBlock(BlockArmor, Forward, Up), V(0, 0, 0))
		s.AddBlock(NewBlock(BlockArmor, Forward, Up), V(15, 0, 0))
		s.AddBlock(NewBlock(BlockArmor, Forward, Up), V(0, 5, 10))

		x, y, z := s.MaxDims()
		assert.Equal(t, 4, x)
		assert.Equal(t, 2, y)
		assert.Equal(t, 3, z)
	})

	t.Run("air cells extend the bounding box", func(t *testing.T) {
		s := NewStructure()
		s.AddBlock(NewBlock(BlockArmor, Forward, Up), V(0, 0, 0))
		s.AddBlock(NewBlock(BlockAir, Forward, Up), V(0, 10, 0))

		_, y, _ := s.MaxDims()
		assert.Equal(t, 3, y)
	})
}

func TestAsGridArray(t *testing.T) {
	s := NewStructure()
	s.AddBlock(NewBlock(BlockArmor, Forward, Up), V(0, 0, 0))
	s.AddBlock(NewBlock(BlockThruster, Forward, Up), V(10, 0, 5))

	grid := s.AsGridArray()
	require.Len(t, grid, 3)
	require.Len(t, grid[0], 1)
	require.Len(t, grid[0][0], 2)
	assert.Equal(t, 1, grid[0][0][0])
	assert.Equal(t, 1, grid[2][0][1])
	assert.Equal(t, 0, grid[1][0][0])
}

func TestRotate(t *testing.T) {
	t.Run("quarter turn about Y", func(t *testing.T) {
		s := NewStructure()
		s.AddBlock(NewBlock(BlockArmor, Forward, Up), V(0, 0, 0))
		s.AddBlock(NewBlock(BlockArmor, Forward, Up), V(5, 0, 0))

		s.Rotate(AxisY, 1)

		// (5,0,0) -> (0,0,-5), re-based so the min corner is the origin.
		assert.True(t, s.HasBlock(V(0, 0, 0)))
		assert.True(t, s.HasBlock(V(0, 0, 5)))
		assert.Equal(t, 2, s.NumBlocks())
	})

	t.Run("orientations rotate with the grid", func(t *testing.T) {
		s := NewStructure()
		b := NewBlock(BlockThruster, Forward, Up)
		s.AddBlock(b, V(0, 0, 0))

		s.Rotate(AxisY, 1)

		// Forward (0,0,-1) -> (-1,0,0) = Left.
		assert.Equal(t, Left, b.OrientationForward)
		assert.Equal(t, Up, b.OrientationUp)
	})

	t.Run("zero turns is a no-op", func(t *testing.T) {
		s := NewStructure()
		s.AddBlock(NewBlock(BlockArmor, Forward, Up), V(5, 10, 15))
		s.Rotate(AxisX, 0)
		assert.True(t, s.HasBlock(V(5, 10, 15)))
	})
}

func TestSanify(t *testing.T) {
	s := NewStructure()
	s.AddBlock(NewBlock(BlockArmor, Forward, Up), V(-5, 0, -10))
	s.AddBlock(NewBlock(BlockGyro, Forward, Up), V(0, 5, 0))

	s.Sanify()

	assert.True(t, s.HasBlock(V(0, 0, 0)))
	assert.True(t, s.HasBlock(V(5, 5, 10)))
	blocks := s.Blocks()
	require.Len(t, blocks, 2)
	assert.Equal(t, BlockArmor, blocks[0].Type)
	assert.Equal(t, V(0, 0, 0), blocks[0].Position)
}

func TestSetColor(t *testing.T) {
	s := NewStructure()
	s.AddBlock(NewBlock(BlockArmor, Forward, Up), V(0, 0, 0))
	s.AddBlock(NewBlock(BlockGyro, Forward, Up), V(5, 0, 0))

	c := VF(0.1, 0.2, 0.3)
	s.SetColor(c)
	for _, b := range s.Blocks() {
		assert.Equal(t, c, b.Color)
	}
}

func TestBlockCounts(t *testing.T) {
	s := NewStructure()
	s.AddBlock(NewBlock(BlockArmor, Forward, Up), V(0, 0, 0))
	s.AddBlock(NewBlock(BlockArmor, Forward, Up), V(5, 0, 0))
	s.AddBlock(NewBlock(BlockThruster, Forward, Up), V(10, 0, 0))

	assert.Equal(t, 2, s.UniqueBlocksCount(BlockArmor))
	assert.Equal(t, 1, s.UniqueBlocksCount(BlockThruster))
	assert.Zero(t, s.UniqueBlocksCount(BlockCockpit))

	counts := s.BlockCounts()
	assert.Equal(t, 2, counts[BlockArmor])
	assert.Equal(t, 1, counts[BlockThruster])
}

func TestBlockClassification(t *testing.T) {
	armor := []string{
		BlockArmor, BlockArmorSlope, BlockArmorCorner,
		BlockArmorCornerInv, BlockArmorCornerSquare, BlockArmorCornerSquareInv,
	}
	for _, bt := range armor {
		b := NewBlock(bt, Forward, Up)
		assert.True(t, b.IsArmor(), bt)
		assert.False(t, b.IsFunctional(), bt)
	}

	functional := []string{BlockCockpit, BlockThruster, BlockGyro, BlockReactor, BlockContainer, BlockLight}
	for _, bt := range functional {
		b := NewBlock(bt, Forward, Up)
		assert.False(t, b.IsArmor(), bt)
		assert.True(t, b.IsFunctional(), bt)
	}

	air := NewBlock(BlockAir, Forward, Up)
	assert.False(t, air.IsFunctional())
	assert.False(t, air.IsArmor())
}

func TestMountPoints(t *testing.T) {
	t.Run("armor cube attaches on all faces", func(t *testing.T) {
		mps := NewBlock(BlockArmor, Forward, Up).MountPoints()
		require.Len(t, mps, 6)
		for _, mp := range mps {
			assert.Greater(t, mp.End.Sub(mp.Start).Area(), 0.0, "face %s", mp.Face)
		}
	})

	t.Run("slope has no mountpoint on the slanted faces", func(t *testing.T) {
		mps := NewBlock(BlockArmorSlope, Forward, Up).MountPoints()
		require.Len(t, mps, 4)
		for _, mp := range mps {
			assert.NotEqual(t, Up.Vec(), mp.Face)
			assert.NotEqual(t, Forward.Vec(), mp.Face)
		}
	})

	t.Run("thruster attaches opposite the exhaust only", func(t *testing.T) {
		mps := NewBlock(BlockThruster, Forward, Up).MountPoints()
		require.Len(t, mps, 1)
		assert.Equal(t, Forward.Vec(), mps[0].Face)
	})

	t.Run("air has none", func(t *testing.T) {
		assert.Empty(t, NewBlock(BlockAir, Forward, Up).MountPoints())
	})

	t.Run("quads sit on their face plane", func(t *testing.T) {
		mps := NewBlock(BlockArmor, Forward, Up).MountPoints()
		for _, mp := range mps {
			switch {
			case mp.Face.X > 0:
				assert.Equal(t, float64(GridSize), mp.Start.X)
				assert.Equal(t, float64(GridSize), mp.End.X)
			case mp.Face.X < 0:
				assert.Zero(t, mp.Start.X)
				assert.Zero(t, mp.End.X)
			}
		}
	})
}
