package game

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/dcrodman/otgate/internal/core/bytes"
	"github.com/dcrodman/otgate/internal/world"
)

func testCreature() *world.Creature {
	return &world.Creature{
		ID:        0x10000001,
		Name:      "Alice",
		Type:      world.CreatureTypePlayer,
		Health:    75,
		HealthMax: 150,
		Direction: world.DirectionSouth,
		Outfit:    world.Outfit{LookType: 128, Head: 1, Body: 2, Legs: 3, Feet: 4, Addons: 0, Mount: 0},
		Speed:     220,
	}
}

func TestAddCreature(t *testing.T) {
	tail := func(w *bytes.Writer, unknown bool) {
		w.AddByte(50) // health
		w.AddByte(2)  // direction
		w.AddUint16(128)
		w.AddBytes([]byte{1, 2, 3, 4, 0})
		w.AddUint16(0) // mount
		w.AddByte(0)   // light level
		w.AddByte(0)   // light color
		w.AddUint16(110)
		w.AddByte(0) // skull
		w.AddByte(0) // shield
		if unknown {
			w.AddByte(0) // emblem
		}
		w.AddByte(0) // type
		w.AddByte(0) // speech bubble
		w.AddByte(0xFF)
		w.AddUint16(0) // helpers
		w.AddByte(1)
	}

	t.Run("unknown", func(t *testing.T) {
		want := bytes.NewWriter()
		want.AddUint16(unknownCreatureOpcode)
		want.AddUint32(7)
		want.AddUint32(0x10000001)
		want.AddByte(0)
		want.AddString("Alice")
		tail(want, true)

		got := bytes.NewWriter()
		addCreature(got, testCreature(), false, 7)
		if diff := cmp.Diff(want.Bytes(), got.Bytes()); diff != "" {
			t.Errorf("unexpected creature bytes; diff:\n%s", diff)
		}
	})

	t.Run("known", func(t *testing.T) {
		want := bytes.NewWriter()
		want.AddUint16(knownCreatureOpcode)
		want.AddUint32(0x10000001)
		tail(want, false)

		got := bytes.NewWriter()
		addCreature(got, testCreature(), true, 0)
		if diff := cmp.Diff(want.Bytes(), got.Bytes()); diff != "" {
			t.Errorf("unexpected creature bytes; diff:\n%s", diff)
		}
	})
}

func TestAddOutfit_ItemLook(t *testing.T) {
	w := bytes.NewWriter()
	addOutfit(w, world.Outfit{LookTypeEx: 2160, Mount: 5})

	want := []byte{0, 0, 0x70, 0x08, 5, 0}
	if diff := cmp.Diff(want, w.Bytes()); diff != "" {
		t.Errorf("unexpected outfit bytes; diff:\n%s", diff)
	}
}

func TestRemoveTileThing(t *testing.T) {
	pos := world.Position{X: 0x0102, Y: 0x0304, Z: 7}

	w := bytes.NewWriter()
	removeTileThing(w, pos, 3)
	if diff := cmp.Diff([]byte{0x6C, 0x02, 0x01, 0x04, 0x03, 7, 3}, w.Bytes()); diff != "" {
		t.Errorf("unexpected remove bytes; diff:\n%s", diff)
	}

	for _, stackPos := range []int{world.MaxThingsPerTile, 12, -1} {
		w := bytes.NewWriter()
		removeTileThing(w, pos, stackPos)
		if w.Len() != 0 {
			t.Errorf("removeTileThing() with stack position %d wrote %d bytes", stackPos, w.Len())
		}
	}
}

func newDescriber(m *world.Map, anchor world.Position) *describer {
	return &describer{world: m, known: NewKnownCreatureSet(10), viewport: Viewport{Anchor: anchor}}
}

func TestDescribeTile_ThingLimit(t *testing.T) {
	tile := &world.Tile{Ground: &world.Item{ClientID: 100}}
	for i := 0; i < 12; i++ {
		tile.AddItem(world.Item{ClientID: uint16(200 + i)})
	}

	w := bytes.NewWriter()
	newDescriber(world.NewMap(), world.Position{Z: 7}).describeTile(w, tile)

	// Environment + ten items of id and mark.
	if want := 2 + world.MaxThingsPerTile*3; w.Len() != want {
		t.Errorf("describeTile() length want = %d, got = %d", want, w.Len())
	}
}

func TestDescribeTile_Creatures(t *testing.T) {
	m := world.NewMap()
	m.GenerateGround(1, 1, 100)
	pos := world.Position{Z: 7}
	c := testCreature()
	if _, err := m.AddCreature(c, pos); err != nil {
		t.Fatalf("AddCreature() error = %v", err)
	}

	d := newDescriber(m, pos)
	first := bytes.NewWriter()
	d.describeTile(first, m.Tile(pos))
	second := bytes.NewWriter()
	d.describeTile(second, m.Tile(pos))

	// Environment, ground, then the creature opcode.
	if op := first.Bytes()[5:7]; !cmp.Equal(op, []byte{unknownCreatureOpcode, 0}) {
		t.Errorf("first description should carry the full creature, got %#v", op)
	}
	if op := second.Bytes()[5:7]; !cmp.Equal(op, []byte{knownCreatureOpcode, 0}) {
		t.Errorf("second description should carry the creature id only, got %#v", op)
	}
	if !d.known.Contains(c.ID) {
		t.Errorf("described creature should be known")
	}
}

func TestDescribeFloor_TrailingTile(t *testing.T) {
	m := world.NewMap()
	m.SetTile(&world.Tile{Position: world.Position{X: 1, Y: 1, Z: 7}, Ground: &world.Item{ClientID: 100}})

	d := newDescriber(m, world.Position{Z: 7})
	w := bytes.NewWriter()
	skip := -1
	d.describeFloor(w, 0, 0, 7, 2, 2, 0, &skip)

	want := []byte{
		2, 0xFF,
		0, 0, // environment
		100, 0, 0xFF,
	}
	if diff := cmp.Diff(want, w.Bytes()); diff != "" {
		t.Errorf("unexpected floor bytes; diff:\n%s", diff)
	}
	if skip != 0 {
		t.Errorf("skip after a trailing tile want = 0, got = %d", skip)
	}
}

func TestDescribeMap_Empty(t *testing.T) {
	d := newDescriber(world.NewMap(), world.Position{X: 100, Y: 100, Z: 7})

	w := bytes.NewWriter()
	d.describeMap(w, 92, 94, 7, viewportWidth, viewportHeight)

	// 8 floors of 18x14 empty tiles: seven full runs and 224 left over.
	var want []byte
	for i := 0; i < 7; i++ {
		want = append(want, 0xFF, 0xFF)
	}
	want = append(want, 223, 0xFF)
	if diff := cmp.Diff(want, w.Bytes()); diff != "" {
		t.Errorf("unexpected map bytes; diff:\n%s", diff)
	}
}

func TestDescribeMap_SingleTile(t *testing.T) {
	anchor := world.Position{X: 8, Y: 6, Z: 7}
	m := world.NewMap()
	m.SetTile(&world.Tile{Position: anchor, Ground: &world.Item{ClientID: 100}})

	d := newDescriber(m, anchor)
	w := bytes.NewWriter()
	d.writeMapDescription(w)

	r := bytes.NewReader(w.Bytes())
	if op := r.GetByte(); op != mapDescriptionOpcode {
		t.Fatalf("opcode want = %#x, got = %#x", mapDescriptionOpcode, op)
	}
	if x, y, z := r.GetUint16(), r.GetUint16(), r.GetByte(); x != 8 || y != 6 || z != 7 {
		t.Errorf("position want = (8, 6, 7), got = (%d, %d, %d)", x, y, z)
	}

	// The anchor is column 8, row 6 of floor 7. The first of the 118 empty
	// tiles before it is implied by the record itself.
	if skip, mark := r.GetByte(), r.GetByte(); skip != 117 || mark != 0xFF {
		t.Errorf("leading skip want = 117, 0xFF, got = %d, %#x", skip, mark)
	}
	if env, ground, mark := r.GetUint16(), r.GetUint16(), r.GetByte(); env != 0 || ground != 100 || mark != 0xFF {
		t.Errorf("unexpected tile: env = %d, ground = %d, mark = %#x", env, ground, mark)
	}
	if r.Err() != nil {
		t.Fatalf("map description too short: %v", r.Err())
	}

	// 133 tiles remain on floor 7 and 7*252 above it: seven capped runs,
	// then a run of 106.
	var want []byte
	for i := 0; i < 7; i++ {
		want = append(want, 0xFF, 0xFF)
	}
	want = append(want, 105, 0xFF)
	if diff := cmp.Diff(want, r.Peek()); diff != "" {
		t.Errorf("unexpected trailing skip records; diff:\n%s", diff)
	}
}
