// Package journal is the durable receipt log, one JSON record per
// transaction signature in a Badger database.
package journal

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/whiteelite/tokenforge/internal/domain/entities"
	"github.com/whiteelite/tokenforge/internal/domain/repositories"
)

var ErrEntryNotFound = errors.New("journal: entry not found")

var receiptPrefix = []byte("receipt/")

type Journal struct {
	db *badger.DB
}

var _ repositories.Journal = (*Journal)(nil)

// Open opens the journal at path. An empty path keeps it in memory.
func Open(path string) (*Journal, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		errMsg := err.Error()
		if strings.Contains(errMsg, "Cannot acquire directory lock") ||
			strings.Contains(errMsg, "resource temporarily unavailable") {
			return nil, fmt.Errorf("journal at %s is locked by another process: %w", path, err)
		}
		return nil, fmt.Errorf("open journal at %s: %w", path, err)
	}
	return &Journal{db: db}, nil
}

func key(sig entities.Signature) []byte {
	return append(append([]byte{}, receiptPrefix...), sig...)
}

// Record inserts or replaces the entry for entry.Signature.
func (j *Journal) Record(_ context.Context, entry entities.JournalEntry) error {
	if entry.Signature == "" {
		return errors.New("journal: entry without signature")
	}
	val, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode entry: %w", err)
	}
	err = j.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key(entry.Signature), val)
	})
	if err != nil {
		return fmt.Errorf("badger put: %w", err)
	}
	return nil
}

func (j *Journal) Get(_ context.Context, sig entities.Signature) (entities.JournalEntry, error) {
	var entry entities.JournalEntry
	err := j.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(sig))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &entry)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return entry, fmt.Errorf("%w: %s", ErrEntryNotFound, sig)
	}
	if err != nil {
		return entry, fmt.Errorf("badger get: %w", err)
	}
	return entry, nil
}

// List returns every entry, oldest first.
func (j *Journal) List(_ context.Context) ([]entities.JournalEntry, error) {
	var out []entities.JournalEntry
	err := j.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = receiptPrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(receiptPrefix); it.ValidForPrefix(receiptPrefix); it.Next() {
			var entry entities.JournalEntry
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &entry)
			})
			if err != nil {
				return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
			}
			out = append(out, entry)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].At.Before(out[b].At) })
	return out, nil
}

// Pending returns the entries whose outcome is still unknown.
func (j *Journal) Pending(ctx context.Context) ([]entities.JournalEntry, error) {
	all, err := j.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []entities.JournalEntry
	for _, e := range all {
		if e.Outcome == entities.OutcomeUnknown {
			out = append(out, e)
		}
	}
	return out, nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}
