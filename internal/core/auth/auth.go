package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/dcrodman/otgate/internal/core/data"
)

var (
	ErrUnknown            = errors.New("an unexpected error occurred, please contact your server administrator")
	ErrInvalidCredentials = errors.New("account name or password is not correct")
	ErrAccountNotFound    = errors.New("account does not exist")
)

// Swappable in tests.
var (
	findAccount   = data.FindAccountByName
	createAccount = data.CreateAccount
	deleteAccount = data.DeleteAccount
)

// VerifyAccount checks the Accounts table for the specified credentials
// combination and validates that the account is accessible.
func VerifyAccount(db *gorm.DB, name, password string) (*data.Account, error) {
	account, err := findAccount(db, name)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnknown, err)
	}

	if account == nil || !CheckPassword(account.Password, password) {
		return nil, ErrInvalidCredentials
	}

	return account, nil
}

// CreateAccount takes the specified credentials and creates a new record in
// the database, returning either the result or any errors encountered.
func CreateAccount(db *gorm.DB, name, password, secret string, premiumDays int) (*data.Account, error) {
	hashed, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	account := &data.Account{
		Name:        name,
		Password:    hashed,
		Secret:      secret,
		PremiumDays: premiumDays,
	}

	if err := createAccount(db, account); err != nil {
		return nil, err
	}

	return account, nil
}

// DeleteAccount soft-deletes the named account.
func DeleteAccount(db *gorm.DB, name string) error {
	account, err := findAccount(db, name)
	if err != nil {
		return err
	}
	if account == nil {
		return ErrAccountNotFound
	}
	return deleteAccount(db, account)
}

// HashPassword returns a bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hashed), nil
}

// CheckPassword reports whether password matches the stored hash.
func CheckPassword(hashed, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(password)) == nil
}
