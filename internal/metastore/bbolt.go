// Package metastore provides bbolt-based persistence for the media
// library document and small key-value flags, using a single embedded
// database file.
package metastore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/polyplayapp/polyplay/internal/library"
	"github.com/polyplayapp/polyplay/internal/models"
)

// Bucket names used by the metadata store.
var (
	bucketLibrary = []byte("library")
	bucketKV      = []byte("kv")
)

// libraryKey is the single key the library document lives under.
var libraryKey = []byte("state")

// FlagLegacyMigrationDone gates the one-time legacy schema migration.
const FlagLegacyMigrationDone = "legacy_migration_done"

// KeyLegacyMigratedIDs holds the legacy row ids already migrated, so a
// partial migration resumes with only the missing rows.
const KeyLegacyMigratedIDs = "legacy_migrated_ids"

// Store represents the bbolt metadata store.
type Store struct {
	db *bolt.DB
}

// New opens or creates a bbolt database at the given path and ensures
// all required buckets exist.
func New(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketLibrary, bucketKV} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("create bucket %s: %w", name, err)
			}
		}
		return nil
	}); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// LoadLibrary reads the persisted library document and normalizes it.
// An absent, unreadable, or malformed document yields a structurally
// valid empty library rather than an error; only underlying database
// failures propagate.
func (s *Store) LoadLibrary() (*models.Library, error) {
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketLibrary).Get(libraryKey)
		if v != nil {
			data = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read library document: %w", err)
	}

	if len(data) == 0 {
		return library.Normalize(nil), nil
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		// Malformed document: repair to empty rather than fail.
		return library.Normalize(nil), nil
	}
	return library.Normalize(raw), nil
}

// SaveLibrary normalizes the state and serializes it, so persisted
// documents are always in normal form. The normalized state that was
// written is returned.
func (s *Store) SaveLibrary(lib *models.Library) (*models.Library, error) {
	normalized := library.NormalizeState(lib)

	data, err := json.Marshal(normalized)
	if err != nil {
		return nil, fmt.Errorf("marshal library document: %w", err)
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketLibrary).Put(libraryKey, data)
	})
	if err != nil {
		return nil, fmt.Errorf("write library document: %w", err)
	}
	return normalized, nil
}

// GetDocument returns the raw persisted library document, or nil when absent.
func (s *Store) GetDocument() ([]byte, error) {
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketLibrary).Get(libraryKey)
		if v != nil {
			data = append([]byte(nil), v...)
		}
		return nil
	})
	return data, err
}

// PutDocument overwrites the persisted library document with raw bytes.
// Used by backup import; the next load repairs whatever arrives.
func (s *Store) PutDocument(data []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketLibrary).Put(libraryKey, data)
	})
}

// GetValue gets a value from the key-value bucket.
func (s *Store) GetValue(key string) (string, error) {
	var val string
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketKV).Get([]byte(key))
		if v != nil {
			val = string(v)
		}
		return nil
	})
	return val, err
}

// SetValue sets a value in the key-value bucket.
func (s *Store) SetValue(key, value string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketKV).Put([]byte(key), []byte(value))
	})
}

// GetFlag reads a boolean flag from the key-value bucket.
func (s *Store) GetFlag(key string) (bool, error) {
	val, err := s.GetValue(key)
	if err != nil {
		return false, err
	}
	return val == "true", nil
}

// SetFlag writes a boolean flag to the key-value bucket.
func (s *Store) SetFlag(key string, value bool) error {
	if value {
		return s.SetValue(key, "true")
	}
	return s.SetValue(key, "false")
}
