// Package world holds the in-memory map the game server places creatures on.
// It is not safe for concurrent use; every mutation runs on the dispatcher.
package world

import "fmt"

const (
	// GroundFloor is the lowest floor above ground.
	GroundFloor = 7
	// MaxFloor is the deepest underground floor.
	MaxFloor = 15
)

type Position struct {
	X uint16
	Y uint16
	Z uint8
}

func (p Position) String() string {
	return fmt.Sprintf("(%d, %d, %d)", p.X, p.Y, p.Z)
}

// Underground reports whether the position is below the ground floor.
func (p Position) Underground() bool {
	return p.Z > GroundFloor
}
