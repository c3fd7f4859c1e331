package world

import "math"

type CreatureType uint8

const (
	CreatureTypePlayer CreatureType = iota
	CreatureTypeMonster
	CreatureTypeNPC
)

type Direction uint8

const (
	DirectionNorth Direction = iota
	DirectionEast
	DirectionSouth
	DirectionWest
)

type Outfit struct {
	LookType   uint16
	LookTypeEx uint16
	Head       uint8
	Body       uint8
	Legs       uint8
	Feet       uint8
	Addons     uint8
	Mount      uint16
}

type Light struct {
	Level uint8
	Color uint8
}

type Creature struct {
	ID       uint32
	Name     string
	Type     CreatureType
	Position Position

	Health    int32
	HealthMax int32
	Direction Direction
	Outfit    Outfit
	Light     Light
	Speed     uint16

	Skull        uint8
	Shield       uint8
	Emblem       uint8
	SpeechBubble uint8
	Helpers      uint16
	// Hidden creatures are sent without health or outfit.
	Hidden bool
	// WalkThrough lets other players walk over this creature.
	WalkThrough bool
}

// HealthPercent rounds up so a creature with any health left never shows 0.
func (c *Creature) HealthPercent() uint8 {
	if c.Hidden || c.Health <= 0 {
		return 0
	}
	healthMax := c.HealthMax
	if healthMax < 1 {
		healthMax = 1
	}
	percent := math.Ceil(float64(c.Health) / float64(healthMax) * 100)
	if percent > 100 {
		percent = 100
	}
	return uint8(percent)
}
