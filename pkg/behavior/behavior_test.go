package behavior

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evoship/evoship/pkg/solution"
	"github.com/evoship/evoship/pkg/structure"
)

func sized(size [3]int) *solution.Solution {
	cs := solution.New("test")
	cs.ContentSize = size
	return cs
}

func TestRatioDescriptors(t *testing.T) {
	cs := sized([3]int{8, 4, 2})
	assert.InDelta(t, 2.0, MajorMedium(cs), 1e-9)
	assert.InDelta(t, 4.0, MajorMinimum(cs), 1e-9)

	t.Run("degenerate dims", func(t *testing.T) {
		empty := sized([3]int{0, 0, 0})
		assert.Zero(t, MajorMedium(empty))
		assert.Zero(t, MajorMinimum(empty))
	})
}

func TestAvgProportions(t *testing.T) {
	assert.InDelta(t, 4.0, AvgProportions(sized([3]int{2, 4, 6})), 1e-9)
}

func TestSymmetry(t *testing.T) {
	t.Run("no content", func(t *testing.T) {
		assert.Zero(t, Symmetry(solution.New("x")))
	})

	t.Run("mirror-symmetric along X", func(t *testing.T) {
		cs := solution.New("x")
		st := structure.NewStructure()
		for _, pos := range []structure.Vec{
			structure.V(0, 0, 0), structure.V(10, 0, 0),
			structure.V(0, 0, 5), structure.V(10, 0, 5),
			structure.V(5, 0, 5),
		} {
			st.AddBlock(structure.NewBlock(structure.BlockArmor, structure.Forward, structure.Up), pos)
		}
		require.NoError(t, cs.SetContent(st))
		assert.InDelta(t, 1.0, Symmetry(cs), 1e-9)
	})

	t.Run("asymmetric", func(t *testing.T) {
		cs := solution.New("x")
		st := structure.NewStructure()
		st.AddBlock(structure.NewBlock(structure.BlockArmor, structure.Forward, structure.Up), structure.V(0, 0, 0))
		st.AddBlock(structure.NewBlock(structure.BlockArmor, structure.Forward, structure.Up), structure.V(5, 0, 0))
		st.AddBlock(structure.NewBlock(structure.BlockArmor, structure.Forward, structure.Up), structure.V(10, 0, 5))
		require.NoError(t, cs.SetContent(st))

		s := Symmetry(cs)
		assert.Greater(t, s, 0.0)
		assert.Less(t, s, 1.0)
	})
}

func TestMeasureClamps(t *testing.T) {
	d := &Descriptor{
		Name:   "raw",
		Fn:     func(*solution.Solution) float64 { return 42 },
		Bounds: [2]float64{0, 10},
	}
	assert.Equal(t, 10.0, d.Measure(solution.New("x")))

	d.Fn = func(*solution.Solution) float64 { return -1 }
	assert.Equal(t, 0.0, d.Measure(solution.New("x")))
}

func TestStockAndFromName(t *testing.T) {
	names := []string{"mame", "mami", "avg-proportions", "symmetry"}
	require.Len(t, Stock(), len(names))
	for _, name := range names {
		d, err := FromName(name)
		require.NoError(t, err)
		assert.Equal(t, name, d.Name)
		assert.NotNil(t, d.Fn)
	}

	_, err := FromName("novelty")
	assert.Error(t, err)
}

func TestDefaultPair(t *testing.T) {
	pair := Default()
	assert.Equal(t, "mame", pair[0].Name)
	assert.Equal(t, "mami", pair[1].Name)
}
