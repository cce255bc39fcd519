package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackwatters45/gate-cs-ws/core"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

type documentStore struct {
	db *sql.DB
}

// NewDocumentStore opens the database at dataSourceName and creates the
// room_documents table if it does not exist.
func NewDocumentStore(dataSourceName string) (*documentStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	sts := `CREATE TABLE IF NOT EXISTS room_documents (
		room_key TEXT PRIMARY KEY,
		content TEXT NOT NULL,
		last_updated INTEGER NOT NULL
	);`
	if _, err = db.Exec(sts); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create room_documents table: %w", err)
	}

	return &documentStore{db}, nil
}

func (s *documentStore) Get(ctx context.Context, key string) (*core.Document, error) {
	log := logrus.WithField("room", key)
	log.Debug("Retrieving document")

	var doc core.Document
	err := s.db.QueryRowContext(ctx,
		"SELECT content, last_updated FROM room_documents WHERE room_key = ?", key,
	).Scan(&doc.Content, &doc.LastUpdated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("room %s: %w", key, core.ErrDocumentNotFound)
		}
		log.WithError(err).Error("Failed to retrieve document")
		return nil, err
	}
	return &doc, nil
}

func (s *documentStore) Set(ctx context.Context, key string, document *core.Document) error {
	log := logrus.WithFields(logrus.Fields{
		"room":           key,
		"content_length": len(document.Content),
	})

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO room_documents (room_key, content, last_updated) VALUES (?, ?, ?)
		ON CONFLICT(room_key) DO UPDATE SET content = excluded.content, last_updated = excluded.last_updated`,
		key, document.Content, document.LastUpdated)
	if err != nil {
		log.WithError(err).Error("Failed to store document")
		return err
	}
	log.Debug("Document stored")
	return nil
}

func (s *documentStore) Close() error {
	return s.db.Close()
}
