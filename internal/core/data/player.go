package data

import (
	"errors"

	"gorm.io/gorm"
)

// Player is a character belonging to an account on one of the worlds.
type Player struct {
	ID uint64 `gorm:"primaryKey"`

	Account   *Account
	AccountID uint64 `gorm:"index"`

	Name    string `gorm:"unique; not null"`
	WorldID uint8

	// Last saved position. Zero means the player has never logged in.
	PosX uint16
	PosY uint16
	PosZ uint8

	Health    int32  `gorm:"default:150"`
	HealthMax int32  `gorm:"default:150"`
	Speed     uint16 `gorm:"default:220"`
	Direction uint8  `gorm:"default:2"`

	LookType   uint16 `gorm:"default:128"`
	LookHead   uint8
	LookBody   uint8
	LookLegs   uint8
	LookFeet   uint8
	LookAddons uint8
	LookMount  uint16
}

// FindPlayersByAccount returns the account's characters ordered by name.
func FindPlayersByAccount(db *gorm.DB, accountID uint64) ([]Player, error) {
	var players []Player
	err := db.Where("account_id = ?", accountID).Order("name").Find(&players).Error
	return players, err
}

// FindPlayerByName returns the named character or nil if none exists.
func FindPlayerByName(db *gorm.DB, name string) (*Player, error) {
	var player Player
	err := db.Where("name = ?", name).First(&player).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &player, nil
}

// CreatePlayer persists a Player to the database.
func CreatePlayer(db *gorm.DB, player *Player) error {
	return db.Create(player).Error
}

// SavePlayerPosition stores the position the player logged out at.
func SavePlayerPosition(db *gorm.DB, id uint64, x, y uint16, z uint8) error {
	return db.Model(&Player{}).Where("id = ?", id).Updates(map[string]interface{}{
		"pos_x": x,
		"pos_y": y,
		"pos_z": z,
	}).Error
}
