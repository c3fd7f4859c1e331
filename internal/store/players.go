package store

import (
	"fmt"

	"github.com/dcrodman/otgate/internal/core/auth"
	"github.com/dcrodman/otgate/internal/core/data"
)

// LoadPlayer authenticates the session key sent to the game server and loads
// the selected character, which must belong to the account.
func (s *Store) LoadPlayer(accountName, password, name string) (*data.Player, error) {
	account, err := auth.VerifyAccount(s.db, accountName, password)
	if err != nil {
		return nil, err
	}

	player, err := data.FindPlayerByName(s.db, name)
	if err != nil {
		return nil, fmt.Errorf("loading character %s: %w", name, err)
	}
	if player == nil || player.AccountID != account.ID {
		return nil, ErrCharacterNotFound
	}
	return player, nil
}

func (s *Store) SavePlayerPosition(id uint64, x, y uint16, z uint8) error {
	return data.SavePlayerPosition(s.db, id, x, y, z)
}
