package game

import "github.com/dcrodman/otgate/internal/world"

const (
	// Size of the map window a client draws.
	viewportWidth  = 18
	viewportHeight = 14
	// Offset of the anchor from the window's top left corner.
	viewportOffsetX = 8
	viewportOffsetY = 6
	// Underground clients see this many floors above and below their own.
	undergroundRange = 2
)

// Viewport is the window of the map a client can see, anchored at its
// player's position.
type Viewport struct {
	Anchor world.Position
}

// CanSee reports whether pos falls inside the window. Floors further from the
// anchor are shifted diagonally, the way the client draws them.
func (v Viewport) CanSee(pos world.Position) bool {
	anchor := v.Anchor
	if anchor.Z <= world.GroundFloor {
		if pos.Z > world.GroundFloor {
			return false
		}
	} else if abs(int(anchor.Z)-int(pos.Z)) > undergroundRange {
		return false
	}

	dz := int(anchor.Z) - int(pos.Z)
	x, y := int(pos.X), int(pos.Y)
	ax, ay := int(anchor.X), int(anchor.Y)
	return x >= ax-viewportOffsetX+dz && x <= ax+viewportOffsetX+1+dz &&
		y >= ay-viewportOffsetY+dz && y <= ay+viewportOffsetY+1+dz
}

// floors returns the floors sent in a map description, in the order they are
// written.
func (v Viewport) floors() (start, end, step int) {
	z := int(v.Anchor.Z)
	if z > world.GroundFloor {
		end = z + undergroundRange
		if end > world.MaxFloor {
			end = world.MaxFloor
		}
		return z - undergroundRange, end, 1
	}
	return world.GroundFloor, 0, -1
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
