// Package workset persists the line item working sets of active sessions.
//
// Working sets live in badger keyed by session key so an operator can resume
// editing after a restart. Once the session is finalized the sealed working
// set is kept with a TTL so late edits find it sealed instead of re-seeding.
package workset

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"control-produccion/logger"
	"control-produccion/models"
)

const keyPrefix = "workset/"

// maxConflictRetries bounds retries of an Update that lost a write conflict.
const maxConflictRetries = 5

// ErrNotFound is returned by Update when no working set exists for the key.
var ErrNotFound = errors.New("workset: not found")

// Store is the working set persistence contract.
type Store interface {
	Get(ctx context.Context, sessionKey string) (*models.WorkingSet, error)
	Save(ctx context.Context, ws models.WorkingSet) error
	Update(ctx context.Context, sessionKey string, fn func(ws *models.WorkingSet) error) (*models.WorkingSet, error)
	// Retire seals the working set and lets it expire after ttl.
	// A non-positive ttl removes it at once.
	Retire(ctx context.Context, sessionKey string, ttl time.Duration) error
}

// BadgerStore implements Store on an embedded badger database.
type BadgerStore struct {
	db  *badger.DB
	log *zap.Logger
}

var _ Store = (*BadgerStore)(nil)

// Open opens the store at path. An empty path keeps everything in memory.
func Open(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open workset store: %w", err)
	}
	return &BadgerStore{db: db, log: logger.Named("workset")}, nil
}

// Close releases the underlying database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// Get returns the working set of a session, or nil if none is stored.
func (s *BadgerStore) Get(ctx context.Context, sessionKey string) (*models.WorkingSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var ws *models.WorkingSet
	err := s.db.View(func(txn *badger.Txn) error {
		got, err := read(txn, sessionKey)
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		ws = got
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("get workset %s: %w", sessionKey, err)
	}
	return ws, nil
}

// Save stores ws, replacing any previous value.
func (s *BadgerStore) Save(ctx context.Context, ws models.WorkingSet) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		return write(txn, ws)
	})
	if err != nil {
		return fmt.Errorf("save workset %s: %w", ws.SessionKey, err)
	}
	return nil
}

// Update applies fn to the stored working set and saves the result atomically.
// If fn returns an error nothing is written. Conflicting concurrent updates
// are retried.
func (s *BadgerStore) Update(ctx context.Context, sessionKey string, fn func(ws *models.WorkingSet) error) (*models.WorkingSet, error) {
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var result *models.WorkingSet
		err := s.db.Update(func(txn *badger.Txn) error {
			ws, err := read(txn, sessionKey)
			if err != nil {
				if errors.Is(err, badger.ErrKeyNotFound) {
					return ErrNotFound
				}
				return err
			}
			if err := fn(ws); err != nil {
				return err
			}
			result = ws
			return write(txn, *ws)
		})
		if errors.Is(err, badger.ErrConflict) && attempt < maxConflictRetries {
			s.log.Debug("workset update conflict, retrying",
				zap.String("session_key", sessionKey), zap.Int("attempt", attempt+1))
			continue
		}
		if err != nil {
			return nil, err
		}
		return result, nil
	}
}

// Retire seals the working set of a session and sets it to expire after ttl.
// Missing keys are not an error.
func (s *BadgerStore) Retire(ctx context.Context, sessionKey string, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		if ttl <= 0 {
			return txn.Delete(key(sessionKey))
		}
		ws, err := read(txn, sessionKey)
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		ws.Sealed = true
		data, err := json.Marshal(ws)
		if err != nil {
			return fmt.Errorf("encode workset: %w", err)
		}
		return txn.SetEntry(badger.NewEntry(key(sessionKey), data).WithTTL(ttl))
	})
	if err != nil {
		return fmt.Errorf("retire workset %s: %w", sessionKey, err)
	}
	return nil
}

func key(sessionKey string) []byte {
	return []byte(keyPrefix + sessionKey)
}

func read(txn *badger.Txn, sessionKey string) (*models.WorkingSet, error) {
	item, err := txn.Get(key(sessionKey))
	if err != nil {
		return nil, err
	}
	var ws models.WorkingSet
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &ws)
	})
	if err != nil {
		return nil, fmt.Errorf("decode workset: %w", err)
	}
	return &ws, nil
}

func write(txn *badger.Txn, ws models.WorkingSet) error {
	if ws.SessionKey == "" {
		return errors.New("workset: empty session key")
	}
	data, err := json.Marshal(ws)
	if err != nil {
		return fmt.Errorf("encode workset: %w", err)
	}
	return txn.Set(key(ws.SessionKey), data)
}
