package structure

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVecArithmetic(t *testing.T) {
	t.Run("Add and Sub", func(t *testing.T) {
		a := V(1, 2, 3)
		b := V(4, -5, 6)
		assert.Equal(t, V(5, -3, 9), a.Add(b))
		assert.Equal(t, V(-3, 7, -3), a.Sub(b))
	})

	t.Run("Scale and Neg", func(t *testing.T) {
		assert.Equal(t, V(5, 10, -15), V(1, 2, -3).Scale(5))
		assert.Equal(t, V(-1, 2, 0), V(1, -2, 0).Neg())
	})

	t.Run("IsZero", func(t *testing.T) {
		assert.True(t, V(0, 0, 0).IsZero())
		assert.False(t, V(0, 1, 0).IsZero())
	})

	t.Run("Min and Max", func(t *testing.T) {
		a := V(1, 8, -3)
		b := V(4, -5, 6)
		assert.Equal(t, V(1, -5, -3), Min(a, b))
		assert.Equal(t, V(4, 8, 6), Max(a, b))
	})
}

func TestCross(t *testing.T) {
	// Right-handed basis: x cross y = z.
	assert.Equal(t, V(0, 0, 1), Cross(V(1, 0, 0), V(0, 1, 0)))
	assert.Equal(t, V(0, 0, -1), Cross(V(0, 1, 0), V(1, 0, 0)))
	assert.True(t, Cross(V(2, 0, 0), V(4, 0, 0)).IsZero())
}

func TestVecF(t *testing.T) {
	t.Run("arithmetic", func(t *testing.T) {
		a := VF(1.5, 2, 0)
		b := VF(0.5, -1, 3)
		assert.Equal(t, VF(2, 1, 3), a.Add(b))
		assert.Equal(t, VF(1, 3, -3), a.Sub(b))
		assert.Equal(t, VF(3, 4, 0), a.Scale(2))
	})

	t.Run("Floor and Veci", func(t *testing.T) {
		assert.Equal(t, VF(1, -3, 0), VF(1.7, -2.3, 0.2).Floor())
		assert.Equal(t, V(1, -3, 0), VF(1.7, -2.3, 0.2).Veci())
	})

	t.Run("component-wise min and max", func(t *testing.T) {
		a := VF(1, 8, -3)
		b := VF(4, -5, 6)
		assert.Equal(t, VF(1, -5, -3), MinF(a, b))
		assert.Equal(t, VF(4, 8, 6), MaxF(a, b))
	})
}

func TestVecFArea(t *testing.T) {
	t.Run("face quad", func(t *testing.T) {
		// A 5x5 quad in the y plane.
		assert.InDelta(t, 25.0, VF(5, 0, 5).Area(), 1e-9)
	})

	t.Run("half quad", func(t *testing.T) {
		assert.InDelta(t, 12.5, VF(0, 5, 2.5).Area(), 1e-9)
	})

	t.Run("line segments keep their length", func(t *testing.T) {
		assert.InDelta(t, 5.0, VF(0, 0, 5).Area(), 1e-9)
	})

	t.Run("degenerate", func(t *testing.T) {
		assert.Zero(t, VF(0, 0, 0).Area())
	})

	t.Run("negative components use absolute value", func(t *testing.T) {
		assert.InDelta(t, 25.0, VF(-5, 0, 5).Area(), 1e-9)
	})
}
