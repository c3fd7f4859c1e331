package data

import (
	"testing"
	"time"

	"github.com/go-test/deep"
)

func TestFindActiveIPBan(t *testing.T) {
	db := setUpDatabase(t)
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	for _, ban := range []*IPBan{
		{IP: "10.0.0.1", Reason: "expired", BannedBy: "GM", ExpiresAt: now.Add(-time.Hour)},
		{IP: "10.0.0.2", Reason: "botting", BannedBy: "GM Alice", ExpiresAt: now.Add(24 * time.Hour)},
	} {
		if err := CreateIPBan(db, ban); err != nil {
			t.Fatalf("error creating test ban: %v", err)
		}
	}

	tests := []struct {
		name       string
		ip         string
		wantReason string
		wantBanned bool
	}{
		{name: "not banned", ip: "10.0.0.3"},
		{name: "ban expired", ip: "10.0.0.1"},
		{name: "banned", ip: "10.0.0.2", wantReason: "botting", wantBanned: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ban, err := FindActiveIPBan(db, tt.ip, now)
			if err != nil {
				t.Fatalf("FindActiveIPBan() returned an unexpected error: %v", err)
			}
			if (ban != nil) != tt.wantBanned {
				t.Fatalf("FindActiveIPBan() banned want = %v, got = %v", tt.wantBanned, ban != nil)
			}
			if ban != nil && ban.Reason != tt.wantReason {
				t.Errorf("FindActiveIPBan() reason want = %s, got = %s", tt.wantReason, ban.Reason)
			}
		})
	}
}

func TestFindWorlds(t *testing.T) {
	db := setUpDatabase(t)

	for _, w := range []*World{
		{ID: 2, Name: "Secura", IP: "127.0.0.1", Port: 7172},
		{ID: 1, Name: "Antica", IP: "127.0.0.1", Port: 7172, Previewer: true},
	} {
		if err := CreateWorld(db, w); err != nil {
			t.Fatalf("error creating test world: %v", err)
		}
	}

	worlds, err := FindWorlds(db)
	if err != nil {
		t.Fatalf("FindWorlds() returned an unexpected error: %v", err)
	}
	want := []World{
		{ID: 1, Name: "Antica", IP: "127.0.0.1", Port: 7172, Previewer: true},
		{ID: 2, Name: "Secura", IP: "127.0.0.1", Port: 7172},
	}
	if diff := deep.Equal(worlds, want); diff != nil {
		t.Errorf("FindWorlds() returned unexpected worlds: %v", diff)
	}
}

func TestFindRecordsAndCasts(t *testing.T) {
	db := setUpDatabase(t)

	if err := CreateRecord(db, &Record{WorldID: 1, Name: "Alice"}); err != nil {
		t.Fatalf("error creating test record: %v", err)
	}
	if err := CreateCast(db, &Cast{WorldID: 1, PlayerName: "Bob", Protected: true, Spectators: 3}); err != nil {
		t.Fatalf("error creating test cast: %v", err)
	}

	records, err := FindRecords(db)
	if err != nil {
		t.Fatalf("FindRecords() returned an unexpected error: %v", err)
	}
	if diff := deep.Equal(records, []Record{{ID: 1, WorldID: 1, Name: "Alice"}}); diff != nil {
		t.Errorf("FindRecords() returned unexpected records: %v", diff)
	}

	casts, err := FindCasts(db)
	if err != nil {
		t.Fatalf("FindCasts() returned an unexpected error: %v", err)
	}
	want := []Cast{{ID: 1, WorldID: 1, PlayerName: "Bob", Protected: true, Spectators: 3}}
	if diff := deep.Equal(casts, want); diff != nil {
		t.Errorf("FindCasts() returned unexpected casts: %v", diff)
	}
}

func TestServerConfig(t *testing.T) {
	db := setUpDatabase(t)

	value, err := GetServerConfig(db, "motd_num")
	if err != nil || value != "" {
		t.Fatalf("GetServerConfig() on a missing key want = \"\", nil; got = %q, %v", value, err)
	}

	for _, v := range []string{"1", "2"} {
		if err := SetServerConfig(db, "motd_num", v); err != nil {
			t.Fatalf("SetServerConfig() returned an unexpected error: %v", err)
		}
	}
	value, err = GetServerConfig(db, "motd_num")
	if err != nil {
		t.Fatalf("GetServerConfig() returned an unexpected error: %v", err)
	}
	if value != "2" {
		t.Errorf("GetServerConfig() want = 2, got = %s", value)
	}
}
