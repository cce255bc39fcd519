package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackwatters45/gate-cs-ws/core"
	"github.com/sirupsen/logrus"
)

type documentStore struct {
	mu        sync.RWMutex
	documents map[string]core.Document
}

func NewDocumentStore() core.DocumentStore {
	return &documentStore{
		documents: make(map[string]core.Document),
	}
}

func (s *documentStore) Get(ctx context.Context, key string) (*core.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	doc, ok := s.documents[key]
	s.mu.RUnlock()

	if !ok {
		logrus.WithField("room", key).Debug("Document not found")
		return nil, fmt.Errorf("room %s: %w", key, core.ErrDocumentNotFound)
	}
	return &doc, nil
}

func (s *documentStore) Set(ctx context.Context, key string, document *core.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if key == "" {
		return fmt.Errorf("room key is required")
	}

	s.mu.Lock()
	s.documents[key] = *document
	s.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"room":           key,
		"content_length": len(document.Content),
	}).Debug("Document stored")
	return nil
}
