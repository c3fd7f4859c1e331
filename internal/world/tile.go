package world

// MaxThingsPerTile is the number of things a client keeps per tile.
const MaxThingsPerTile = 10

// Tile is one square of the map. Things are stacked ground first, then items
// that stay on top, then creatures (newest first), then everything else.
type Tile struct {
	Position  Position
	Ground    *Item
	TopItems  []Item
	Creatures []*Creature
	DownItems []Item
}

// StackPos returns the stack position of c on the tile, or -1 when c is not
// on it.
func (t *Tile) StackPos(c *Creature) int {
	n := len(t.TopItems)
	if t.Ground != nil {
		n++
	}
	for i, other := range t.Creatures {
		if other.ID == c.ID {
			return n + i
		}
	}
	return -1
}

func (t *Tile) addCreature(c *Creature) {
	t.Creatures = append([]*Creature{c}, t.Creatures...)
}

func (t *Tile) removeCreature(c *Creature) bool {
	for i, other := range t.Creatures {
		if other.ID == c.ID {
			t.Creatures = append(t.Creatures[:i], t.Creatures[i+1:]...)
			return true
		}
	}
	return false
}

// AddItem places item on the tile in the layer it belongs to.
func (t *Tile) AddItem(item Item) {
	if item.AlwaysOnTop {
		t.TopItems = append(t.TopItems, item)
	} else {
		t.DownItems = append([]Item{item}, t.DownItems...)
	}
}
