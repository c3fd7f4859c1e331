package data

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ServerConfig is a key/value pair of state the server keeps across restarts.
type ServerConfig struct {
	Config string `gorm:"primaryKey"`
	Value  string
}

// GetServerConfig returns the stored value for key, or "" if it was never set.
func GetServerConfig(db *gorm.DB, key string) (string, error) {
	var entry ServerConfig
	err := db.Where("config = ?", key).First(&entry).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", err
	}

	return entry.Value, nil
}

func SetServerConfig(db *gorm.DB, key, value string) error {
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "config"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&ServerConfig{Config: key, Value: value}).Error
}
