package world

// Item is anything that can lie on a tile.
type Item struct {
	ClientID  uint16
	Stackable bool
	Count     uint8
	// AlwaysOnTop items are drawn above creatures (walls, borders).
	AlwaysOnTop bool
}
