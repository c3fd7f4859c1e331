package data

import (
	"testing"

	"github.com/go-test/deep"
)

func TestFindPlayersByAccount(t *testing.T) {
	db := setUpDatabase(t)

	account := generateAccount(t)
	if err := CreateAccount(db, account); err != nil {
		t.Fatalf("error creating test account: %v", err)
	}
	other := generateAccount(t)
	if err := CreateAccount(db, other); err != nil {
		t.Fatalf("error creating test account: %v", err)
	}

	for _, p := range []*Player{
		{AccountID: account.ID, Name: "Zed", WorldID: 1},
		{AccountID: account.ID, Name: "Alice", WorldID: 0},
		{AccountID: other.ID, Name: "Mallory", WorldID: 0},
	} {
		if err := CreatePlayer(db, p); err != nil {
			t.Fatalf("error creating test player: %v", err)
		}
	}

	players, err := FindPlayersByAccount(db, account.ID)
	if err != nil {
		t.Fatalf("FindPlayersByAccount() returned an unexpected error: %v", err)
	}

	type entry struct {
		Name    string
		WorldID uint8
	}
	var got []entry
	for _, p := range players {
		got = append(got, entry{p.Name, p.WorldID})
	}
	want := []entry{{"Alice", 0}, {"Zed", 1}}
	if diff := deep.Equal(got, want); diff != nil {
		t.Errorf("FindPlayersByAccount() returned unexpected players: %v", diff)
	}
}

func TestFindPlayerByName(t *testing.T) {
	db := setUpDatabase(t)

	player, err := FindPlayerByName(db, "Nobody")
	if err != nil || player != nil {
		t.Fatalf("FindPlayerByName() on a missing player want = nil, nil; got = %v, %v", player, err)
	}

	if err := CreatePlayer(db, &Player{AccountID: 1, Name: "Alice"}); err != nil {
		t.Fatalf("error creating test player: %v", err)
	}
	player, err = FindPlayerByName(db, "Alice")
	if err != nil {
		t.Fatalf("FindPlayerByName() returned an unexpected error: %v", err)
	}
	if player.Health != 150 || player.LookType != 128 || player.Speed != 220 {
		t.Errorf("FindPlayerByName() did not apply column defaults: %+v", player)
	}
}

func TestSavePlayerPosition(t *testing.T) {
	db := setUpDatabase(t)

	player := &Player{AccountID: 1, Name: "Alice"}
	if err := CreatePlayer(db, player); err != nil {
		t.Fatalf("error creating test player: %v", err)
	}
	if err := SavePlayerPosition(db, player.ID, 100, 200, 7); err != nil {
		t.Fatalf("SavePlayerPosition() returned an unexpected error: %v", err)
	}

	saved, err := FindPlayerByName(db, "Alice")
	if err != nil {
		t.Fatalf("FindPlayerByName() returned an unexpected error: %v", err)
	}
	if saved.PosX != 100 || saved.PosY != 200 || saved.PosZ != 7 {
		t.Errorf("saved position want = (100, 200, 7), got = (%d, %d, %d)", saved.PosX, saved.PosY, saved.PosZ)
	}
}
