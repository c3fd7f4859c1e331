package world

import (
	"errors"
	"fmt"
)

var (
	ErrNoTile            = errors.New("no tile at position")
	ErrCreatureExists    = errors.New("creature is already on the map")
	ErrCreatureMissing   = errors.New("creature is not on the map")
	ErrInvalidCreatureID = errors.New("creature id 0 is reserved")
)

type Map struct {
	tiles     map[Position]*Tile
	creatures map[uint32]*Creature
}

func NewMap() *Map {
	return &Map{
		tiles:     make(map[Position]*Tile),
		creatures: make(map[uint32]*Creature),
	}
}

// GenerateGround covers a width by height rectangle of the ground floor,
// starting at the origin, with groundID.
func (m *Map) GenerateGround(width, height int, groundID uint16) {
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			pos := Position{X: uint16(x), Y: uint16(y), Z: GroundFloor}
			m.SetTile(&Tile{Position: pos, Ground: &Item{ClientID: groundID}})
		}
	}
}

func (m *Map) SetTile(t *Tile) {
	m.tiles[t.Position] = t
}

// Tile returns the tile at pos or nil if there is none.
func (m *Map) Tile(pos Position) *Tile {
	return m.tiles[pos]
}

// TileAt is Tile with signed coordinates, for walking windows that may start
// off the edge of the map.
func (m *Map) TileAt(x, y, z int) *Tile {
	if x < 0 || y < 0 || z < 0 || x > 0xFFFF || y > 0xFFFF || z > MaxFloor {
		return nil
	}
	return m.tiles[Position{X: uint16(x), Y: uint16(y), Z: uint8(z)}]
}

func (m *Map) Creature(id uint32) *Creature {
	return m.creatures[id]
}

// Creatures returns every creature on the map in no particular order.
func (m *Map) Creatures() []*Creature {
	creatures := make([]*Creature, 0, len(m.creatures))
	for _, c := range m.creatures {
		creatures = append(creatures, c)
	}
	return creatures
}

// AddCreature places c on the tile at pos and returns its stack position.
func (m *Map) AddCreature(c *Creature, pos Position) (int, error) {
	if c.ID == 0 {
		return 0, ErrInvalidCreatureID
	}
	if _, ok := m.creatures[c.ID]; ok {
		return 0, fmt.Errorf("%w: %d", ErrCreatureExists, c.ID)
	}
	tile := m.Tile(pos)
	if tile == nil {
		return 0, fmt.Errorf("%w %s", ErrNoTile, pos)
	}

	tile.addCreature(c)
	c.Position = pos
	m.creatures[c.ID] = c
	return tile.StackPos(c), nil
}

// RemoveCreature takes c off the map and returns the stack position it had.
func (m *Map) RemoveCreature(c *Creature) (int, error) {
	if _, ok := m.creatures[c.ID]; !ok {
		return 0, fmt.Errorf("%w: %d", ErrCreatureMissing, c.ID)
	}
	delete(m.creatures, c.ID)

	tile := m.Tile(c.Position)
	if tile == nil {
		return 0, fmt.Errorf("%w %s", ErrNoTile, c.Position)
	}
	stackPos := tile.StackPos(c)
	tile.removeCreature(c)
	return stackPos, nil
}
