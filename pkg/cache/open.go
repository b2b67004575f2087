package cache

import (
	"context"
	"fmt"
)

// Backend names accepted by [Open].
const (
	BackendFile  = "file"
	BackendRedis = "redis"
	BackendMongo = "mongo"
	BackendNone  = "none"
)

// Config selects and configures a backend.
type Config struct {
	Backend string      `toml:"backend" validate:"omitempty,oneof=file redis mongo none"`
	Dir     string      `toml:"dir"`
	Redis   RedisConfig `toml:"redis"`
	Mongo   MongoConfig `toml:"mongo"`
}

// Open creates the configured backend. An empty backend means file when a
// directory is set and none otherwise.
func Open(ctx context.Context, cfg Config) (Cache, error) {
	backend := cfg.Backend
	if backend == "" {
		backend = BackendNone
		if cfg.Dir != "" {
			backend = BackendFile
		}
	}

	switch backend {
	case BackendNone:
		return NewNullCache(), nil
	case BackendFile:
		if cfg.Dir == "" {
			return nil, fmt.Errorf("file cache: directory is required")
		}
		return NewFileCache(cfg.Dir)
	case BackendRedis:
		if cfg.Redis.Addr == "" {
			return nil, fmt.Errorf("redis cache: addr is required")
		}
		return NewRedisCache(ctx, cfg.Redis)
	case BackendMongo:
		m := DefaultMongoConfig()
		if cfg.Mongo.URI != "" {
			m.URI = cfg.Mongo.URI
		}
		if cfg.Mongo.Database != "" {
			m.Database = cfg.Mongo.Database
		}
		if cfg.Mongo.Collection != "" {
			m.Collection = cfg.Mongo.Collection
		}
		if cfg.Mongo.Timeout != 0 {
			m.Timeout = cfg.Mongo.Timeout
		}
		return NewMongoCache(ctx, m)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", backend)
	}
}
