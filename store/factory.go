package store

import (
	"fmt"
	"path/filepath"
)

// New creates a Backend based on the backend name.
//
// Supported backends:
//
//	"json"   - one JSON file per record in root (default)
//	"sqlite" - SQLite database at root/records.db
//	"pebble" - Pebble database in root/pebble
//	"redis"  - Redis server described by rc
//	"memory" - In-memory (ephemeral, for testing)
func New(backend, root string, rc RedisConfig) (Backend, error) {
	switch backend {
	case "json", "":
		return NewFileBackend(root), nil
	case "sqlite":
		return NewSqliteBackend(filepath.Join(root, "records.db"))
	case "pebble":
		return NewPebbleBackend(PebbleConfig{Path: filepath.Join(root, "pebble")})
	case "redis":
		return NewRedisBackend(rc)
	case "memory":
		return NewMemoryBackend(), nil
	default:
		return nil, fmt.Errorf("unknown store backend: %q (supported: json, sqlite, pebble, redis, memory)", backend)
	}
}
