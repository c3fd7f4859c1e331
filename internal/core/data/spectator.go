package data

import "gorm.io/gorm"

// Record is a stored session recording available for replay.
type Record struct {
	ID      uint64 `gorm:"primaryKey"`
	WorldID uint8
	Name    string
}

// Cast is a live broadcast of a player's session.
type Cast struct {
	ID         uint64 `gorm:"primaryKey"`
	WorldID    uint8
	PlayerName string `gorm:"not null"`
	// Spectators must supply a password to watch.
	Protected   bool
	Description string
	Spectators  int
}

// FindRecords returns every stored recording ordered by id.
func FindRecords(db *gorm.DB) ([]Record, error) {
	var records []Record
	err := db.Order("id").Find(&records).Error
	return records, err
}

// FindCasts returns every live cast ordered by id.
func FindCasts(db *gorm.DB) ([]Cast, error) {
	var casts []Cast
	err := db.Order("id").Find(&casts).Error
	return casts, err
}

func CreateRecord(db *gorm.DB, record *Record) error {
	return db.Create(record).Error
}

func CreateCast(db *gorm.DB, cast *Cast) error {
	return db.Create(cast).Error
}
