package grammar

import (
	"github.com/evoship/evoship/pkg/structure"
)

// turtleState is the moving frame of the interpreter: a grid position plus
// the forward and up directions. Yaw turns about the up axis, pitch about
// the right axis.
type turtleState struct {
	pos     structure.Vec
	forward structure.Orientation
	up      structure.Orientation
}

func (t turtleState) yaw(left bool) turtleState {
	f := t.forward.Vec()
	u := t.up.Vec()
	var nf structure.Vec
	if left {
		nf = structure.Cross(u, f)
	} else {
		nf = structure.Cross(f, u)
	}
	o, _ := structure.OrientationFromVec(nf)
	t.forward = o
	return t
}

func (t turtleState) pitch(upward bool) turtleState {
	if upward {
		t.forward, t.up = t.up, t.forward.Opposite()
	} else {
		t.forward, t.up = t.up.Opposite(), t.forward
	}
	return t
}

// blockFor maps a placement symbol to its block type.
func blockFor(sym rune) (string, bool) {
	switch sym {
	case SymCorridor:
		return structure.BlockArmor, true
	case SymCockpit:
		return structure.BlockCockpit, true
	case SymThruster:
		return structure.BlockThruster, true
	case SymGyro:
		return structure.BlockGyro, true
	case SymReactor:
		return structure.BlockReactor, true
	case SymContainer:
		return structure.BlockContainer, true
	case SymLight:
		return structure.BlockLight, true
	case SymWindow:
		return structure.BlockWindow, true
	default:
		return "", false
	}
}

// BuildStructure interprets a low-level string into a block structure and
// reports how many placements landed on an already-occupied cell. The
// turtle starts at the origin heading Forward; bracket groups save and
// restore the full state.
func BuildStructure(ll string) (*structure.Structure, int) {
	st := structure.NewStructure()
	cur := turtleState{forward: structure.Forward, up: structure.Up}
	var stack []turtleState
	overlaps := 0

	// placement advances first so sibling branches sharing a state never
	// collide on their first block
	place := func(sym rune) {
		blockType, ok := blockFor(sym)
		if !ok {
			return
		}
		cur.pos = cur.pos.Add(cur.forward.Vec().Scale(structure.GridSize))
		if st.HasBlock(cur.pos) {
			overlaps++
		}
		st.AddBlock(structure.NewBlock(blockType, cur.forward, cur.up), cur.pos)
	}

	for _, sym := range ll {
		switch sym {
		case SymYawLeft:
			cur = cur.yaw(true)
		case SymYawRight:
			cur = cur.yaw(false)
		case SymPitchUp:
			cur = cur.pitch(true)
		case SymPitchDown:
			cur = cur.pitch(false)
		case SymPush:
			stack = append(stack, cur)
		case SymPop:
			if n := len(stack); n > 0 {
				cur = stack[n-1]
				stack = stack[:n-1]
			}
		default:
			place(sym)
		}
	}
	st.Sanify()
	return st, overlaps
}
