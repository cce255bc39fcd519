package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackwatters45/gate-cs-ws/core"
	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

type Options struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

type documentStore struct {
	client *goredis.Client
	prefix string
}

// New connects to Redis and verifies the connection with a PING so that a
// misconfigured server is reported at startup.
func New(opts Options) (*documentStore, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}

	return NewWithClient(client, opts.Prefix), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *goredis.Client, prefix string) *documentStore {
	return &documentStore{client: client, prefix: prefix}
}

func (s *documentStore) key(roomKey string) string {
	return s.prefix + roomKey
}

func (s *documentStore) Get(ctx context.Context, key string) (*core.Document, error) {
	val, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, fmt.Errorf("room %s: %w", key, core.ErrDocumentNotFound)
	}
	if err != nil {
		logrus.WithField("room", key).WithError(err).Error("Failed to get document from redis")
		return nil, err
	}

	var doc core.Document
	if err := json.Unmarshal(val, &doc); err != nil {
		return nil, fmt.Errorf("redis: failed to unmarshal document %s: %w", key, err)
	}
	return &doc, nil
}

func (s *documentStore) Set(ctx context.Context, key string, document *core.Document) error {
	data, err := json.Marshal(document)
	if err != nil {
		return fmt.Errorf("redis: failed to marshal document: %w", err)
	}

	if err := s.client.Set(ctx, s.key(key), data, 0).Err(); err != nil {
		logrus.WithField("room", key).WithError(err).Error("Failed to set document in redis")
		return err
	}
	return nil
}

func (s *documentStore) Close() error {
	return s.client.Close()
}
