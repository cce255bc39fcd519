package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackwatters45/gate-cs-ws/core"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

const schema = `CREATE TABLE IF NOT EXISTS room_documents (
	room_key TEXT PRIMARY KEY,
	content TEXT NOT NULL,
	last_updated BIGINT NOT NULL
);`

type documentStore struct {
	db *sql.DB
}

// Open connects to Postgres, pings it and ensures the schema exists.
func Open(ctx context.Context, dsn string) (*documentStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create room_documents table: %w", err)
	}

	logrus.Info("database ready")
	return &documentStore{db: db}, nil
}

func (s *documentStore) Get(ctx context.Context, key string) (*core.Document, error) {
	var doc core.Document
	err := s.db.QueryRowContext(ctx,
		"SELECT content, last_updated FROM room_documents WHERE room_key = $1", key,
	).Scan(&doc.Content, &doc.LastUpdated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("room %s: %w", key, core.ErrDocumentNotFound)
	}
	if err != nil {
		logrus.WithField("room", key).WithError(err).Error("Failed to retrieve document")
		return nil, err
	}
	return &doc, nil
}

func (s *documentStore) Set(ctx context.Context, key string, document *core.Document) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO room_documents (room_key, content, last_updated) VALUES ($1, $2, $3)
		ON CONFLICT (room_key) DO UPDATE SET content = EXCLUDED.content, last_updated = EXCLUDED.last_updated`,
		key, document.Content, document.LastUpdated)
	if err != nil {
		logrus.WithField("room", key).WithError(err).Error("Failed to store document")
		return err
	}
	return nil
}

func (s *documentStore) Close() error {
	return s.db.Close()
}
