// Package store answers the account, ban, world and spectator queries made
// by the servers. Reads that every login repeats are cached briefly.
package store

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"gorm.io/gorm"

	"github.com/dcrodman/otgate/internal/core/auth"
	"github.com/dcrodman/otgate/internal/core/cache"
	"github.com/dcrodman/otgate/internal/core/data"
)

const (
	worldsCacheKey = "worlds"
	worldsTTL      = 30 * time.Second

	motdHashKey = "motd_hash"
	motdNumKey  = "motd_num"

	secondsPerDay = 24 * 60 * 60
	// Premium day count that never runs out.
	unlimitedPremium = 0xFFFF
)

var (
	ErrInvalidCredentials = auth.ErrInvalidCredentials
	ErrNoWorlds           = errors.New("no game worlds configured")
	ErrNoRecords          = errors.New("no records stored")
	ErrNoCasts            = errors.New("no casts running")
	ErrCharacterNotFound  = errors.New("character not found on account")
)

// Character is an entry of an account's character list.
type Character struct {
	WorldID uint8
	Name    string
}

// Account is the login view of an account record.
type Account struct {
	ID          uint64
	Name        string
	Secret      string
	PremiumDays int
	LastDay     int64
	Characters  []Character
}

type Ban struct {
	ExpiresAt time.Time
	BannedBy  string
	Reason    string
}

type World struct {
	ID        uint8
	Name      string
	IP        string
	Port      uint16
	Previewer bool
}

type Record struct {
	ID      uint64
	WorldID uint8
	Name    string
}

type Cast struct {
	WorldID     uint8
	Name        string
	Protected   bool
	Description string
	Spectators  int
}

type Store struct {
	db    *gorm.DB
	cache *cache.Cache
	now   func() time.Time
}

func New(db *gorm.DB) *Store {
	return &Store{
		db:    db,
		cache: cache.New(worldsTTL),
		now:   time.Now,
	}
}

// AuthenticateAccount verifies the credentials and loads the account's
// character list.
func (s *Store) AuthenticateAccount(name, password string) (*Account, error) {
	account, err := auth.VerifyAccount(s.db, name, password)
	if err != nil {
		return nil, err
	}

	players, err := data.FindPlayersByAccount(s.db, account.ID)
	if err != nil {
		return nil, fmt.Errorf("loading characters of %s: %w", name, err)
	}

	result := &Account{
		ID:          account.ID,
		Name:        account.Name,
		Secret:      account.Secret,
		PremiumDays: account.PremiumDays,
		LastDay:     account.LastDay,
	}
	for _, p := range players {
		result.Characters = append(result.Characters, Character{WorldID: p.WorldID, Name: p.Name})
	}
	return result, nil
}

// UpdatePremium counts down the premium days that have passed since they
// were last counted and persists the result.
func (s *Store) UpdatePremium(account *Account) error {
	now := s.now().Unix()
	changed := false

	if account.PremiumDays != 0 && account.PremiumDays != unlimitedPremium {
		if account.LastDay == 0 {
			account.LastDay = now
			changed = true
		} else if days := int((now - account.LastDay) / secondsPerDay); days > 0 {
			if days >= account.PremiumDays {
				account.PremiumDays = 0
				account.LastDay = 0
			} else {
				account.PremiumDays -= days
				account.LastDay = now - (now-account.LastDay)%secondsPerDay
			}
			changed = true
		}
	} else if account.LastDay != 0 {
		account.LastDay = 0
		changed = true
	}

	if !changed {
		return nil
	}
	return data.UpdatePremium(s.db, &data.Account{
		ID:          account.ID,
		PremiumDays: account.PremiumDays,
		LastDay:     account.LastDay,
	})
}

// FindIPBan returns the active ban on ip or nil.
func (s *Store) FindIPBan(ip string) (*Ban, error) {
	ban, err := data.FindActiveIPBan(s.db, ip, s.now())
	if err != nil || ban == nil {
		return nil, err
	}
	return &Ban{ExpiresAt: ban.ExpiresAt, BannedBy: ban.BannedBy, Reason: ban.Reason}, nil
}

// Worlds returns the world list, failing with ErrNoWorlds when it is empty.
func (s *Store) Worlds() ([]World, error) {
	if cached, ok := s.cache.Get(worldsCacheKey); ok {
		return cached.([]World), nil
	}

	rows, err := data.FindWorlds(s.db)
	if err != nil {
		return nil, fmt.Errorf("loading worlds: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrNoWorlds
	}

	worlds := make([]World, 0, len(rows))
	for _, w := range rows {
		worlds = append(worlds, World{ID: w.ID, Name: w.Name, IP: w.IP, Port: w.Port, Previewer: w.Previewer})
	}
	s.cache.Put(worldsCacheKey, worlds, 0)
	return worlds, nil
}

// InvalidateWorlds drops the cached world list.
func (s *Store) InvalidateWorlds() {
	s.cache.Delete(worldsCacheKey)
}

func (s *Store) Records() ([]Record, error) {
	rows, err := data.FindRecords(s.db)
	if err != nil {
		return nil, fmt.Errorf("loading records: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrNoRecords
	}

	records := make([]Record, 0, len(rows))
	for _, r := range rows {
		records = append(records, Record{ID: r.ID, WorldID: r.WorldID, Name: r.Name})
	}
	return records, nil
}

func (s *Store) Casts() ([]Cast, error) {
	rows, err := data.FindCasts(s.db)
	if err != nil {
		return nil, fmt.Errorf("loading casts: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrNoCasts
	}

	casts := make([]Cast, 0, len(rows))
	for _, c := range rows {
		casts = append(casts, Cast{
			WorldID:     c.WorldID,
			Name:        c.PlayerName,
			Protected:   c.Protected,
			Description: c.Description,
			Spectators:  c.Spectators,
		})
	}
	return casts, nil
}

// MotdNumber returns the revision of motd, bumping the stored revision the
// first time a new text is seen.
func (s *Store) MotdNumber(motd string) (uint32, error) {
	sum := sha1.Sum([]byte(motd))
	hash := hex.EncodeToString(sum[:])
	cacheKey := "motd:" + hash

	if cached, ok := s.cache.Get(cacheKey); ok {
		return cached.(uint32), nil
	}

	storedHash, err := data.GetServerConfig(s.db, motdHashKey)
	if err != nil {
		return 0, err
	}
	storedNum, err := data.GetServerConfig(s.db, motdNumKey)
	if err != nil {
		return 0, err
	}

	var num uint32
	if storedNum != "" {
		n, err := strconv.ParseUint(storedNum, 10, 32)
		if err != nil {
			return 0, fmt.Errorf("parsing stored motd number %q: %w", storedNum, err)
		}
		num = uint32(n)
	}

	if storedHash != hash {
		num++
		if err := data.SetServerConfig(s.db, motdNumKey, strconv.FormatUint(uint64(num), 10)); err != nil {
			return 0, err
		}
		if err := data.SetServerConfig(s.db, motdHashKey, hash); err != nil {
			return 0, err
		}
	}

	s.cache.Put(cacheKey, num, -1)
	return num, nil
}
