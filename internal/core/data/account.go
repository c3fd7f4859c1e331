package data

import (
	"errors"

	"gorm.io/gorm"
)

// Account contains the login information specific to each registered user.
type Account struct {
	ID       uint64 `gorm:"primaryKey"`
	Name     string `gorm:"unique; not null"`
	Password string `gorm:"not null"`
	// Base32 authenticator secret. Empty when the second factor is disabled.
	Secret string
	// Premium days remaining and the unix day they were last counted down.
	PremiumDays int
	LastDay     int64
	DeletedAt   gorm.DeletedAt
}

func FindAccountByID(db *gorm.DB, id uint64) (*Account, error) {
	var account Account
	err := db.First(&account, id).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &account, nil
}

// FindAccountByName searches for an account with the specified name, returning the
// *Account instance if found or nil if there is no match.
func FindAccountByName(db *gorm.DB, name string) (*Account, error) {
	var account Account
	err := db.Where("name = ?", name).First(&account).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &account, nil
}

// CreateAccount persists the Account record to the database.
func CreateAccount(db *gorm.DB, account *Account) error {
	return db.Create(account).Error
}

// UpdatePremium writes the premium counters of account back to the database.
func UpdatePremium(db *gorm.DB, account *Account) error {
	return db.Model(account).Updates(map[string]interface{}{
		"premium_days": account.PremiumDays,
		"last_day":     account.LastDay,
	}).Error
}

// DeleteAccount soft-deletes an Account record from the database.
func DeleteAccount(db *gorm.DB, account *Account) error {
	return db.Delete(account).Error
}
