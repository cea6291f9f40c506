package session

import (
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

var (
	bucketName = []byte("session")
	tokenKey   = []byte("token")
)

// TokenStore persists the single auth token between runs
type TokenStore interface {
	// LoadToken returns the stored token, or "" when none is stored
	LoadToken() (string, error)

	// SaveToken replaces the stored token
	SaveToken(token string) error

	// ClearToken removes the stored token
	ClearToken() error
}

// BoltTokenStore implements TokenStore using BoltDB
type BoltTokenStore struct {
	db *bbolt.DB
}

// NewBoltTokenStore opens (or creates) the store at path
func NewBoltTokenStore(path string) (*BoltTokenStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	// Create bucket if it doesn't exist
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating bucket: %w", err)
	}

	return &BoltTokenStore{db: db}, nil
}

// LoadToken returns the stored token
func (b *BoltTokenStore) LoadToken() (string, error) {
	var token string
	err := b.db.View(func(tx *bbolt.Tx) error {
		if data := tx.Bucket(bucketName).Get(tokenKey); data != nil {
			token = string(data)
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("reading token: %w", err)
	}
	return token, nil
}

// SaveToken stores token
func (b *BoltTokenStore) SaveToken(token string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketName).Put(tokenKey, []byte(token))
	})
}

// ClearToken removes the stored token
func (b *BoltTokenStore) ClearToken() error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketName).Delete(tokenKey)
	})
}

// Close closes the database
func (b *BoltTokenStore) Close() error {
	return b.db.Close()
}
