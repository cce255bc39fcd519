//go:generate go run go.uber.org/mock/mockgen -source=entity.go -destination=../mocks/mock_core.go -package=mocks

package core

import (
	"context"
	"errors"
)

// ErrDocumentNotFound is returned by DocumentStore.Get when nothing has been
// stored under the key yet. Any other Get error is a store failure.
var ErrDocumentNotFound = errors.New("document not found")

type (
	// Document is the synchronized content of one room. LastUpdated is a
	// Unix millisecond timestamp assigned by the server on every write.
	Document struct {
		Content     string `json:"content"`
		LastUpdated int64  `json:"lastUpdated"`
	}

	// DocumentStore is the persistence gateway in front of a remote
	// key-value store. Implementations do not retry.
	DocumentStore interface {
		Get(ctx context.Context, key string) (*Document, error)
		Set(ctx context.Context, key string, document *Document) error
	}

	// Peer is the outbound side of one client connection.
	Peer interface {
		ID() string
		Emit(event string, payload any) error
	}

	// RoomInfo describes a live room for the listing API.
	RoomInfo struct {
		ID          string
		Members     int
		LastUpdated int64
	}
)

// Payload converts the document into the generic map form emitted to
// socket.io clients.
func (d *Document) Payload() map[string]any {
	return map[string]any{
		"content":     d.Content,
		"lastUpdated": d.LastUpdated,
	}
}
