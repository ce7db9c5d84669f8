package assistant

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const (
	profileBucketName  = "profile"
	settingsBucketName = "settings"

	profileKey = "profile"
	themeKey   = "theme"
)

// ErrProfileNotFound is returned before any profile has been saved
var ErrProfileNotFound = errors.New("profile not found")

// DB defines the interface for the client-local persistence boundary:
// one JSON-serialized profile and one theme string, last-write-wins
type DB interface {
	// SaveProfile stores the profile, replacing any previous one
	SaveProfile(profile *UserProfile) error

	// GetProfile returns the saved profile or ErrProfileNotFound
	GetProfile() (*UserProfile, error)

	// SaveTheme stores the theme preference
	SaveTheme(theme string) error

	// GetTheme returns the saved theme, or "light" if none is stored
	GetTheme() (string, error)

	// Close closes the database connection
	Close() error
}

// BoltDB implements the DB interface using BoltDB
type BoltDB struct {
	db *bbolt.DB
}

// NewBoltDB creates a new BoltDB instance
func NewBoltDB(path string) (*BoltDB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(profileBucketName)); err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists([]byte(settingsBucketName)); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltDB{db: db}, nil
}

// SaveProfile stores the profile, replacing any previous one
func (b *BoltDB) SaveProfile(profile *UserProfile) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(profileBucketName))
		data, err := json.Marshal(profile)
		if err != nil {
			return fmt.Errorf("marshaling profile: %w", err)
		}
		return bucket.Put([]byte(profileKey), data)
	})
}

// GetProfile returns the saved profile or ErrProfileNotFound
func (b *BoltDB) GetProfile() (*UserProfile, error) {
	var profile *UserProfile
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(profileBucketName))
		data := bucket.Get([]byte(profileKey))
		if data == nil {
			return ErrProfileNotFound
		}
		return json.Unmarshal(data, &profile)
	})
	if err != nil {
		return nil, err
	}
	return profile, nil
}

// SaveTheme stores the theme preference
func (b *BoltDB) SaveTheme(theme string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(settingsBucketName))
		return bucket.Put([]byte(themeKey), []byte(theme))
	})
}

// GetTheme returns the saved theme, or "light" if none is stored
func (b *BoltDB) GetTheme() (string, error) {
	theme := "light"
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(settingsBucketName))
		if data := bucket.Get([]byte(themeKey)); data != nil {
			theme = string(data)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return theme, nil
}

// Close closes the database connection
func (b *BoltDB) Close() error {
	return b.db.Close()
}
