package filesystem

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jackwatters45/gate-cs-ws/core"
	"github.com/sirupsen/logrus"
)

type documentStore struct {
	basePath string
}

// NewDocumentStore creates a store that keeps one JSON file per room under
// basePath, creating the directory if needed.
func NewDocumentStore(basePath string) (core.DocumentStore, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	return &documentStore{basePath: basePath}, nil
}

// path maps a room key to a file name. Keys are encoded so that no key can
// escape basePath.
func (s *documentStore) path(key string) string {
	return filepath.Join(s.basePath, base64.RawURLEncoding.EncodeToString([]byte(key))+".json")
}

func (s *documentStore) Get(ctx context.Context, key string) (*core.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	filePath := s.path(key)
	log := logrus.WithFields(logrus.Fields{"room": key, "file_path": filePath})

	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Debug("Document file not found")
			return nil, fmt.Errorf("room %s: %w", key, core.ErrDocumentNotFound)
		}
		log.WithError(err).Error("Failed to read document")
		return nil, err
	}

	var doc core.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		log.WithError(err).Error("Failed to unmarshal document")
		return nil, fmt.Errorf("failed to unmarshal document %s: %w", key, err)
	}
	return &doc, nil
}

func (s *documentStore) Set(ctx context.Context, key string, document *core.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	filePath := s.path(key)
	log := logrus.WithFields(logrus.Fields{"room": key, "file_path": filePath})

	data, err := json.Marshal(document)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	// Write to a temp file and rename so readers never see a partial document.
	tmp, err := os.CreateTemp(s.basePath, ".tmp-*")
	if err != nil {
		log.WithError(err).Error("Failed to create temp file")
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		log.WithError(err).Error("Failed to write document")
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), filePath); err != nil {
		_ = os.Remove(tmp.Name())
		log.WithError(err).Error("Failed to move document into place")
		return err
	}

	log.Debug("Document stored")
	return nil
}
