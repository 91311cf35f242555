// Package federation owns the multi-federation client registry: its
// persisted side-state, the shared mnemonic every client's secret is
// derived from, and in-memory lookup by id/prefix.
package federation

import (
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

var (
	bucketMeta         = []byte("meta")
	bucketInviteCodes  = []byte("invite_codes")
	keyMnemonic        = []byte("mnemonic")
)

// Store is the `${data_dir}/multimint.db` key/value store: a single
// mnemonic value, and one invite-code entry per joined federation, held
// in one bbolt file with a bucket per concern.
type Store struct {
	db *bbolt.DB
}

// OpenStore opens (or creates) the store at path.
func OpenStore(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open multimint store at %s: %w", path, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketMeta); err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists(bucketInviteCodes); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize multimint store buckets: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// LoadMnemonic returns the persisted mnemonic, or ("", false) if none has
// been generated yet.
func (s *Store) LoadMnemonic() (string, bool, error) {
	var mnemonic string
	var found bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(bucketMeta).Get(keyMnemonic)
		if raw != nil {
			mnemonic = string(raw)
			found = true
		}
		return nil
	})
	if err != nil {
		return "", false, fmt.Errorf("failed to read persisted mnemonic: %w", err)
	}
	return mnemonic, found, nil
}

// SaveMnemonic persists mnemonic. It is only ever called once, the first
// time the daemon starts against a fresh data directory; the mnemonic is
// read-only thereafter.
func (s *Store) SaveMnemonic(mnemonic string) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketMeta).Put(keyMnemonic, []byte(mnemonic))
	})
	if err != nil {
		return fmt.Errorf("failed to persist mnemonic: %w", err)
	}
	return nil
}

// InviteCodes returns every persisted FederationId(hex) → invite code
// entry.
func (s *Store) InviteCodes() (map[string]string, error) {
	out := make(map[string]string)
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketInviteCodes).ForEach(func(k, v []byte) error {
			out[string(k)] = string(v)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list persisted invite codes: %w", err)
	}
	return out, nil
}

// SaveInviteCode persists inviteCode under federationIDHex. Overwrites are
// idempotent: re-registering the same federation with the same invite code
// is a no-op at the storage layer.
func (s *Store) SaveInviteCode(federationIDHex, inviteCode string) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketInviteCodes).Put([]byte(federationIDHex), []byte(inviteCode))
	})
	if err != nil {
		return fmt.Errorf("failed to persist invite code for federation %s: %w", federationIDHex, err)
	}
	return nil
}
