package stores

import (
	"context"
	"fmt"

	"github.com/jackwatters45/gate-cs-ws/config"
	"github.com/jackwatters45/gate-cs-ws/core"
	"github.com/jackwatters45/gate-cs-ws/stores/aws"
	"github.com/jackwatters45/gate-cs-ws/stores/badger"
	"github.com/jackwatters45/gate-cs-ws/stores/filesystem"
	"github.com/jackwatters45/gate-cs-ws/stores/memory"
	"github.com/jackwatters45/gate-cs-ws/stores/postgres"
	"github.com/jackwatters45/gate-cs-ws/stores/redis"
	"github.com/jackwatters45/gate-cs-ws/stores/sqlite"
	"github.com/sirupsen/logrus"
)

// GetStore opens the backend selected by cfg.StorageType. Any connection
// failure is returned so the process can refuse to start.
func GetStore(ctx context.Context, cfg config.Config) (core.DocumentStore, error) {
	var (
		store core.DocumentStore
		err   error
	)

	storageField := logrus.Fields{
		"storageType": cfg.StorageType,
	}

	switch cfg.StorageType {
	case "filesystem":
		storageField["basePath"] = cfg.LocalStoragePath
		store, err = filesystem.NewDocumentStore(cfg.LocalStoragePath)
	case "sqlite":
		storageField["dataSourceName"] = cfg.DataSourceName
		store, err = sqlite.NewDocumentStore(cfg.DataSourceName)
	case "redis":
		storageField["redisAddr"] = cfg.RedisAddr
		store, err = redis.New(redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.StoreKeyPrefix,
		})
	case "badger":
		storageField["badgerPath"] = cfg.BadgerPath
		store, err = badger.Open(cfg.BadgerPath, cfg.StoreKeyPrefix)
	case "postgres":
		store, err = postgres.Open(ctx, cfg.PostgresDSN)
	case "s3":
		storageField["bucketName"] = cfg.S3BucketName
		store, err = aws.NewStore(ctx, cfg.S3BucketName, cfg.StoreKeyPrefix)
	default:
		store = memory.NewDocumentStore()
		storageField["storageType"] = "in-memory"
	}
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.StorageType, err)
	}

	logrus.WithFields(storageField).Info("Use storage")
	return WithTimeout(store, cfg.StoreTimeout), nil
}
