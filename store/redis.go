package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBackend stores each record as a Redis string. A set per type name
// indexes the record names so List does not need SCAN.
type RedisBackend struct {
	client  *redis.Client
	mu      sync.RWMutex
	closed  bool
	prefix  string
	timeout time.Duration
}

// RedisConfig configures the Redis backend
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string        // Optional prefix for keys, defaults to "record:"
	Timeout  time.Duration // Per-call timeout, defaults to 5s
	Options  *redis.Options
}

func NewRedisBackend(config RedisConfig) (*RedisBackend, error) {
	var client *redis.Client
	if config.Options != nil {
		client = redis.NewClient(config.Options)
	} else {
		client = redis.NewClient(&redis.Options{
			Addr:     config.Addr,
			Password: config.Password,
			DB:       config.DB,
		})
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	prefix := config.Prefix
	if prefix == "" {
		prefix = "record:"
	}

	return &RedisBackend{client: client, prefix: prefix, timeout: timeout}, nil
}

func (r *RedisBackend) makeKey(key Key) string {
	return r.prefix + key.Name()
}

// indexKey lives under prefix+"-". Record names never start with the uid
// separator, so no record key can land on an index set.
func (r *RedisBackend) indexKey(typeName string) string {
	return r.prefix + uidSeparator + "index:" + typeName
}

// call runs fn with a bounded context once the backend is known to be open.
func (r *RedisBackend) call(fn func(ctx context.Context) error) error {
	r.mu.RLock()
	if r.closed {
		r.mu.RUnlock()
		return ErrStoreClosed
	}
	r.mu.RUnlock()

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	return fn(ctx)
}

func (r *RedisBackend) Exists(key Key) (bool, error) {
	if err := key.Validate(); err != nil {
		return false, err
	}
	var n int64
	err := r.call(func(ctx context.Context) error {
		var err error
		n, err = r.client.Exists(ctx, r.makeKey(key)).Result()
		return err
	})
	if err != nil {
		return false, fmt.Errorf("failed to check existence: %w", err)
	}
	return n > 0, nil
}

func (r *RedisBackend) Read(key Key) ([]byte, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	var data []byte
	err := r.call(func(ctx context.Context) error {
		var err error
		data, err = r.client.Get(ctx, r.makeKey(key)).Bytes()
		return err
	})
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read record: %w", err)
	}
	return data, nil
}

func (r *RedisBackend) Write(key Key, data []byte) error {
	if err := key.Validate(); err != nil {
		return err
	}
	err := r.call(func(ctx context.Context) error {
		pipe := r.client.TxPipeline()
		pipe.Set(ctx, r.makeKey(key), data, 0)
		pipe.SAdd(ctx, r.indexKey(key.Type), key.UID)
		_, err := pipe.Exec(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	return nil
}

func (r *RedisBackend) Remove(key Key) (bool, error) {
	if err := key.Validate(); err != nil {
		return false, err
	}
	var del *redis.IntCmd
	err := r.call(func(ctx context.Context) error {
		pipe := r.client.TxPipeline()
		del = pipe.Del(ctx, r.makeKey(key))
		pipe.SRem(ctx, r.indexKey(key.Type), key.UID)
		_, err := pipe.Exec(ctx)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("failed to remove record: %w", err)
	}
	return del.Val() > 0, nil
}

func (r *RedisBackend) List(typeName string) ([]Key, error) {
	var uids []string
	err := r.call(func(ctx context.Context) error {
		var err error
		uids, err = r.client.SMembers(ctx, r.indexKey(typeName)).Result()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	keys := make([]Key, 0, len(uids))
	for _, uid := range uids {
		keys = append(keys, Key{Type: typeName, UID: uid})
	}
	sortKeys(keys)
	return keys, nil
}

func (r *RedisBackend) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrStoreClosed
	}

	r.closed = true
	return r.client.Close()
}
