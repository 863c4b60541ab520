package store

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"breeze-trading-bot/internal/types"
)

// SessionStore keeps session tokens in a Badger database so a later
// process can reuse a session that is still valid. Entries carry a TTL
// equal to the remaining validity, so Badger drops them on its own.
type SessionStore struct {
	db  *badger.DB
	now func() time.Time
}

type SessionStoreOptions struct {
	Path          string
	EncryptionKey []byte // 32 bytes; nil opens the DB unencrypted
	InMemory      bool
	Now           func() time.Time
}

func OpenSessionStore(opts SessionStoreOptions) (*SessionStore, error) {
	var bopts badger.Options
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if strings.TrimSpace(opts.Path) == "" {
			return nil, errors.New("session store: path is required")
		}
		bopts = badger.DefaultOptions(opts.Path)
	}
	bopts = bopts.WithLogger(nil)
	if len(opts.EncryptionKey) > 0 {
		bopts = bopts.
			WithEncryptionKey(opts.EncryptionKey).
			WithIndexCacheSize(16 << 20)
	}
	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("session store: %w", err)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &SessionStore{db: db, now: now}, nil
}

func (s *SessionStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Load returns the stored session for key. Sessions past their expiry
// are reported as not found.
func (s *SessionStore) Load(key string) (*types.Session, bool, error) {
	k, err := s.key(key)
	if err != nil {
		return nil, false, err
	}
	var raw []byte
	err = s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(k)
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var sess types.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, false, fmt.Errorf("session store: decode %q: %w", key, err)
	}
	if sess.StateAt(s.now()) != types.Active {
		return nil, false, nil
	}
	return &sess, true, nil
}

// Save stores sess under key until it expires. An already expired
// session is not written.
func (s *SessionStore) Save(key string, sess *types.Session) error {
	k, err := s.key(key)
	if err != nil {
		return err
	}
	if sess == nil {
		return errors.New("session store: nil session")
	}
	remaining := sess.ExpiresAt().Sub(s.now())
	if remaining <= 0 {
		return nil
	}
	v, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry(k, v).WithTTL(remaining))
	})
}

func (s *SessionStore) Delete(key string) error {
	k, err := s.key(key)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(k)
	})
}

func (s *SessionStore) key(key string) ([]byte, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("session store: not opened")
	}
	k := strings.TrimSpace(key)
	if k == "" {
		return nil, errors.New("session store: key is empty")
	}
	return []byte(k), nil
}

// ParseStoreKey decodes a 32-byte encryption key given as hex or base64.
// An empty input yields a nil key.
func ParseStoreKey(raw string) ([]byte, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if b, err := hex.DecodeString(strings.TrimPrefix(raw, "0x")); err == nil {
		if len(b) != 32 {
			return nil, fmt.Errorf("decoded key length must be 32, got %d", len(b))
		}
		return b, nil
	}
	if b, err := base64.StdEncoding.DecodeString(raw); err == nil {
		if len(b) != 32 {
			return nil, fmt.Errorf("decoded key length must be 32, got %d", len(b))
		}
		return b, nil
	}
	return nil, errors.New("key must be base64(32 bytes) or hex(32 bytes)")
}
