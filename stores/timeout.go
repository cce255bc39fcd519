package stores

import (
	"context"
	"io"
	"time"

	"github.com/jackwatters45/gate-cs-ws/core"
)

type timeoutStore struct {
	next    core.DocumentStore
	timeout time.Duration
}

// WithTimeout bounds every call to next by timeout. An expired deadline is
// reported as an ordinary store failure. A non-positive timeout returns next.
func WithTimeout(next core.DocumentStore, timeout time.Duration) core.DocumentStore {
	if timeout <= 0 {
		return next
	}
	return &timeoutStore{next: next, timeout: timeout}
}

func (s *timeoutStore) Get(ctx context.Context, key string) (*core.Document, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.next.Get(ctx, key)
}

func (s *timeoutStore) Set(ctx context.Context, key string, document *core.Document) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.next.Set(ctx, key, document)
}

func (s *timeoutStore) Close() error {
	if c, ok := s.next.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
