// Package cache keeps rendered JSON reports in a bbolt database, keyed by the
// content of the input file. Each command gets its own bucket, so a board that
// has not changed is never parsed twice for the same report.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

// schemaVersion is mixed into every key; bump it when a report's JSON shape
// changes so stale entries stop matching.
const schemaVersion = "1"

// Store is a content-addressed report cache backed by bbolt.
type Store struct {
	db *bolt.DB
}

// Open opens (or creates) a bbolt database at the given path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("bbolt open: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying bbolt database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Key derives the cache key of a report from the input text and the options
// that shape the report (e.g. the outline layer).
func Key(text string, options ...string) string {
	h := sha256.New()
	h.Write([]byte(schemaVersion))
	for _, o := range options {
		h.Write([]byte{0})
		h.Write([]byte(o))
	}
	h.Write([]byte{0})
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the report stored for command under key.
// Returns nil, false, nil on a miss.
func (s *Store) Get(command, key string) ([]byte, bool, error) {
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(command))
		if b == nil {
			return nil
		}
		// Copy bytes out of the transaction (bbolt slices are only valid within tx)
		if v := b.Get([]byte(key)); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("cache get: %w", err)
	}
	return data, data != nil, nil
}

// Put stores a report for command under key, replacing any previous entry.
func (s *Store) Put(command, key string, data []byte) error {
	if data == nil {
		return fmt.Errorf("nil report")
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(command))
		if err != nil {
			return err
		}
		return b.Put([]byte(key), data)
	})
	if err != nil {
		return fmt.Errorf("cache put: %w", err)
	}
	return nil
}

// Len returns the number of reports stored for command.
func (s *Store) Len(command string) (int, error) {
	n := 0
	err := s.db.View(func(tx *bolt.Tx) error {
		if b := tx.Bucket([]byte(command)); b != nil {
			n = b.Stats().KeyN
		}
		return nil
	})
	return n, err
}

// Clear removes every stored report.
func (s *Store) Clear() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		var names [][]byte
		if err := tx.ForEach(func(name []byte, _ *bolt.Bucket) error {
			names = append(names, append([]byte(nil), name...))
			return nil
		}); err != nil {
			return err
		}
		for _, name := range names {
			if err := tx.DeleteBucket(name); err != nil {
				return err
			}
		}
		return nil
	})
}
