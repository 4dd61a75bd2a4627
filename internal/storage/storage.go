// Package storage persists small pieces of program state in a bbolt file
// under the state directory.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/atomicstack/save-cloud/internal/cloud"
)

const (
	fileName   = "state.db"
	authBucket = "auth"
	authKey    = "current"
)

// DB wraps the bbolt handle.
type DB struct {
	db *bolt.DB
}

// Open opens or creates the state database inside dir.
func Open(dir string) (*DB, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create state dir: %w", err)
	}
	db, err := bolt.Open(filepath.Join(dir, fileName), 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open state db: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(authBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}
	return &DB{db: db}, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

// LoadAuth returns the persisted login, if any.
func (d *DB) LoadAuth() (cloud.Auth, bool, error) {
	var (
		auth  cloud.Auth
		found bool
	)
	err := d.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket([]byte(authBucket)).Get([]byte(authKey))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &auth)
	})
	if err != nil {
		return cloud.Auth{}, false, fmt.Errorf("failed to load login: %w", err)
	}
	return auth, found, nil
}

// SaveAuth replaces the persisted login.
func (d *DB) SaveAuth(auth cloud.Auth) error {
	data, err := json.Marshal(auth)
	if err != nil {
		return fmt.Errorf("failed to marshal login: %w", err)
	}
	return d.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(authBucket)).Put([]byte(authKey), data)
	})
}

// ClearAuth forgets the persisted login.
func (d *DB) ClearAuth() error {
	return d.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(authBucket)).Delete([]byte(authKey))
	})
}
