package data

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// IPBan blocks an address from logging in until ExpiresAt.
type IPBan struct {
	ID        uint64 `gorm:"primaryKey"`
	IP        string `gorm:"index; not null"`
	Reason    string
	BannedBy  string
	BannedAt  time.Time
	ExpiresAt time.Time
}

// FindActiveIPBan returns the ban on ip with the latest expiry that is still
// in effect at now, or nil if the address is not banned.
func FindActiveIPBan(db *gorm.DB, ip string, now time.Time) (*IPBan, error) {
	var ban IPBan
	err := db.Where("ip = ? AND expires_at > ?", ip, now).Order("expires_at desc").First(&ban).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &ban, nil
}

func CreateIPBan(db *gorm.DB, ban *IPBan) error {
	return db.Create(ban).Error
}
