package game

import (
	"github.com/dcrodman/otgate/internal/core/bytes"
	"github.com/dcrodman/otgate/internal/world"
)

const (
	knownCreatureOpcode   = 0x62
	unknownCreatureOpcode = 0x61
	removeThingOpcode     = 0x6C
	addThingOpcode        = 0x6A
	mapDescriptionOpcode  = 0x64

	unmarked = 0xFF
	// Largest run of empty tiles a single skip record can carry.
	maxSkip = 0xFE
)

func addPosition(w *bytes.Writer, pos world.Position) {
	w.AddUint16(pos.X)
	w.AddUint16(pos.Y)
	w.AddByte(pos.Z)
}

func addItem(w *bytes.Writer, item world.Item) {
	w.AddUint16(item.ClientID)
	w.AddByte(unmarked)
	if item.Stackable {
		w.AddByte(item.Count)
	}
}

func addOutfit(w *bytes.Writer, outfit world.Outfit) {
	w.AddUint16(outfit.LookType)
	if outfit.LookType != 0 {
		w.AddByte(outfit.Head)
		w.AddByte(outfit.Body)
		w.AddByte(outfit.Legs)
		w.AddByte(outfit.Feet)
		w.AddByte(outfit.Addons)
	} else {
		w.AddUint16(outfit.LookTypeEx)
	}
	w.AddUint16(outfit.Mount)
}

// addCreature writes c in full the first time a client sees it and as a bare
// id afterwards. evicted tells the client which creature it may forget.
func addCreature(w *bytes.Writer, c *world.Creature, known bool, evicted uint32) {
	if known {
		w.AddUint16(knownCreatureOpcode)
		w.AddUint32(c.ID)
	} else {
		w.AddUint16(unknownCreatureOpcode)
		w.AddUint32(evicted)
		w.AddUint32(c.ID)
		w.AddByte(uint8(c.Type))
		w.AddString(c.Name)
	}

	w.AddByte(c.HealthPercent())
	w.AddByte(uint8(c.Direction))
	if c.Hidden {
		addOutfit(w, world.Outfit{})
	} else {
		addOutfit(w, c.Outfit)
	}
	w.AddByte(c.Light.Level)
	w.AddByte(c.Light.Color)
	w.AddUint16(c.Speed / 2)
	w.AddByte(c.Skull)
	w.AddByte(c.Shield)
	if !known {
		w.AddByte(c.Emblem)
	}
	w.AddByte(uint8(c.Type))
	w.AddByte(c.SpeechBubble)
	w.AddByte(unmarked)
	w.AddUint16(c.Helpers)
	w.AddBool(!c.WalkThrough)
}

// removeTileThing tells the client to drop the thing at stackPos. Clients do
// not track things past the per-tile limit, so nothing is written for them.
func removeTileThing(w *bytes.Writer, pos world.Position, stackPos int) {
	if stackPos < 0 || stackPos >= world.MaxThingsPerTile {
		return
	}
	w.AddByte(removeThingOpcode)
	addPosition(w, pos)
	w.AddByte(uint8(stackPos))
}

// describer serializes the map as seen by one session. It updates the
// session's known creature set as creatures are written.
type describer struct {
	world    *world.Map
	known    *KnownCreatureSet
	viewport Viewport
}

// visible reports whether the creature with id is still in view. Creatures
// that have left the map are never visible.
func (d *describer) visible(id uint32) bool {
	c := d.world.Creature(id)
	return c != nil && d.viewport.CanSee(c.Position)
}

func (d *describer) addCreature(w *bytes.Writer, c *world.Creature) {
	known, evicted := d.known.CheckKnown(c.ID, d.visible)
	addCreature(w, c, known, evicted)
}

// describeTile writes at most MaxThingsPerTile things of tile.
func (d *describer) describeTile(w *bytes.Writer, tile *world.Tile) {
	// Environmental effects.
	w.AddUint16(0)

	count := 0
	if tile.Ground != nil {
		addItem(w, *tile.Ground)
		count++
	}
	for _, item := range tile.TopItems {
		addItem(w, item)
		if count++; count == world.MaxThingsPerTile {
			return
		}
	}
	for _, c := range tile.Creatures {
		d.addCreature(w, c)
		if count++; count == world.MaxThingsPerTile {
			return
		}
	}
	for _, item := range tile.DownItems {
		addItem(w, item)
		if count++; count == world.MaxThingsPerTile {
			return
		}
	}
}

// describeFloor writes one floor of the window, x outer and y inner. Runs of
// empty tiles are counted in skip, which carries over between floors; -1
// means no run is pending. The caller flushes whatever run is left at the end.
func (d *describer) describeFloor(w *bytes.Writer, x, y, z, width, height, offset int, skip *int) {
	for nx := 0; nx < width; nx++ {
		for ny := 0; ny < height; ny++ {
			tile := d.world.TileAt(x+nx+offset, y+ny+offset, z)
			switch {
			case tile != nil:
				if *skip >= 0 {
					w.AddByte(uint8(*skip))
					w.AddByte(0xFF)
				}
				*skip = 0
				d.describeTile(w, tile)
			case *skip == maxSkip:
				w.AddByte(0xFF)
				w.AddByte(0xFF)
				*skip = -1
			default:
				*skip++
			}
		}
	}
}

// describeMap writes every visible floor of the width by height window whose
// top left corner on the anchor floor is (x, y).
func (d *describer) describeMap(w *bytes.Writer, x, y, z, width, height int) {
	skip := -1
	start, end, step := d.viewport.floors()
	for nz := start; nz != end+step; nz += step {
		d.describeFloor(w, x, y, nz, width, height, z-nz, &skip)
	}
	if skip >= 0 {
		w.AddByte(uint8(skip))
		w.AddByte(0xFF)
	}
}

// writeMapDescription writes the full map window around the anchor.
func (d *describer) writeMapDescription(w *bytes.Writer) {
	pos := d.viewport.Anchor
	w.AddByte(mapDescriptionOpcode)
	addPosition(w, pos)
	d.describeMap(w, int(pos.X)-viewportOffsetX, int(pos.Y)-viewportOffsetY, int(pos.Z), viewportWidth, viewportHeight)
}
