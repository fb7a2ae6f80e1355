package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"dashgo/internal/domain"
	"dashgo/pkg/logger"

	"github.com/dgraph-io/badger/v4"
)

// implements domain.SnapshotCache on BadgerDB. Entries carry a retention TTL
// so a day's snapshot expires on its own, independent of freshness checks.
type BadgerCache struct {
	db     *badger.DB
	ttl    time.Duration
	logger *logger.Logger
}

// opens (or creates) a Badger-backed snapshot cache at dir.
func NewBadgerCache(dir string, ttl time.Duration, log *logger.Logger) (*BadgerCache, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot cache: %w", err)
	}

	return &BadgerCache{
		db:     db,
		ttl:    ttl,
		logger: log,
	}, nil
}

func (c *BadgerCache) Get(ctx context.Context, key string) (*domain.CacheEntry, error) {
	var entry domain.CacheEntry
	found := false

	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		found = true
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &entry)
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot cache: %w", err)
	}
	if !found {
		return nil, nil
	}

	return &entry, nil
}

func (c *BadgerCache) Put(ctx context.Context, key string, snapshot *domain.MetricsSnapshot) error {
	entry := domain.CacheEntry{
		Snapshot:  *snapshot,
		WrittenAt: time.Now(),
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}

	err = c.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(key), data).WithTTL(c.ttl)
		return txn.SetEntry(e)
	})
	if err != nil {
		return fmt.Errorf("failed to write snapshot cache: %w", err)
	}

	c.logger.WithContext(ctx).WithField("key", key).Info("Stored snapshot in cache")
	return nil
}

func (c *BadgerCache) Close() error {
	return c.db.Close()
}
