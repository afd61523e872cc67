package remote

import (
	"context"
	"fmt"

	"radius-go/internal/config"
	"radius-go/internal/radius"
)

// NewRemoteStoreFromConfig creates a RemoteStore implementation based on the remote config type.
func NewRemoteStoreFromConfig(ctx context.Context, cfg config.RemoteConfig) (radius.RemoteStore, error) {
	switch cfg.Type {
	case "memory", "":
		return NewMemoryStore(), nil
	case "filesystem":
		if cfg.FSRoot == "" {
			return nil, fmt.Errorf("filesystem remote requires fs_root to be set")
		}
		store, err := NewFileSystemStore(cfg.FSRoot)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "redis":
		if cfg.RedisURL == "" {
			return nil, fmt.Errorf("redis remote requires redis_url to be set")
		}
		store, err := NewRedisStore(ctx, cfg.RedisURL, cfg.RedisKeyPrefix)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "s3":
		if cfg.S3Bucket == "" {
			return nil, fmt.Errorf("s3 remote requires s3_bucket to be set")
		}
		store, err := NewS3Store(ctx, S3Options{
			Bucket:          cfg.S3Bucket,
			Prefix:          cfg.S3Prefix,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	case "mongo":
		if cfg.MongoURI == "" {
			return nil, fmt.Errorf("mongo remote requires mongo_uri to be set")
		}
		database := cfg.MongoDatabase
		if database == "" {
			database = "radius"
		}
		collection := cfg.MongoCollection
		if collection == "" {
			collection = "remote"
		}
		store, err := NewMongoStore(ctx, cfg.MongoURI, database, collection)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown remote type: %s", cfg.Type)
	}
}
