package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/jackwatters45/gate-cs-ws/core"
	"github.com/sirupsen/logrus"
)

type documentStore struct {
	db     *badger.DB
	prefix string
}

// Open opens (or creates) a Badger database at path. An empty path keeps
// the database in memory.
func Open(path, prefix string) (*documentStore, error) {
	opts := badger.DefaultOptions(path).WithLoggingLevel(badger.WARNING)
	if path == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger open %q: %w", path, err)
	}
	return &documentStore{db: db, prefix: prefix}, nil
}

func (s *documentStore) key(roomKey string) []byte {
	return []byte(s.prefix + roomKey)
}

func (s *documentStore) Get(ctx context.Context, key string) (*core.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(s.key(key))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("room %s: %w", key, core.ErrDocumentNotFound)
	}
	if err != nil {
		logrus.WithField("room", key).WithError(err).Error("Failed to read document from badger")
		return nil, err
	}

	var doc core.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("badger: failed to unmarshal document %s: %w", key, err)
	}
	return &doc, nil
}

func (s *documentStore) Set(ctx context.Context, key string, document *core.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(document)
	if err != nil {
		return fmt.Errorf("badger: failed to marshal document: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(s.key(key), data)
	})
	if err != nil {
		logrus.WithField("room", key).WithError(err).Error("Failed to write document to badger")
		return err
	}
	return nil
}

func (s *documentStore) Close() error {
	return s.db.Close()
}
