package store

import (
	"bytes"
	"errors"
	"sync"

	"github.com/cockroachdb/pebble"
)

// PebbleBackend stores records in a Pebble database, one entry per record
// name.
type PebbleBackend struct {
	db     *pebble.DB
	mu     sync.RWMutex
	closed bool
	prefix []byte
}

// PebbleConfig configures the Pebble backend
type PebbleConfig struct {
	Path   string
	Prefix string // Optional prefix for keys (useful when sharing a DB)
	Opts   *pebble.Options
}

func NewPebbleBackend(config PebbleConfig) (*PebbleBackend, error) {
	opts := config.Opts
	if opts == nil {
		opts = &pebble.Options{}
	}

	db, err := pebble.Open(config.Path, opts)
	if err != nil {
		return nil, err
	}

	prefix := []byte(config.Prefix)
	if len(prefix) == 0 {
		prefix = []byte("record:")
	}

	return &PebbleBackend{db: db, prefix: prefix}, nil
}

func (p *PebbleBackend) makeKey(name string) []byte {
	fullKey := make([]byte, len(p.prefix)+len(name))
	copy(fullKey, p.prefix)
	copy(fullKey[len(p.prefix):], name)
	return fullKey
}

// checkOpen returns ErrStoreClosed after Close.
func (p *PebbleBackend) checkOpen() error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrStoreClosed
	}
	return nil
}

func (p *PebbleBackend) Exists(key Key) (bool, error) {
	if err := key.Validate(); err != nil {
		return false, err
	}
	if err := p.checkOpen(); err != nil {
		return false, err
	}
	_, closer, err := p.db.Get(p.makeKey(key.Name()))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	closer.Close()
	return true, nil
}

func (p *PebbleBackend) Read(key Key) ([]byte, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	if err := p.checkOpen(); err != nil {
		return nil, err
	}
	data, closer, err := p.db.Get(p.makeKey(key.Name()))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	defer closer.Close()
	// data is only valid until closer.Close.
	return bytes.Clone(data), nil
}

func (p *PebbleBackend) Write(key Key, data []byte) error {
	if err := key.Validate(); err != nil {
		return err
	}
	if err := p.checkOpen(); err != nil {
		return err
	}
	return p.db.Set(p.makeKey(key.Name()), data, pebble.Sync)
}

func (p *PebbleBackend) Remove(key Key) (bool, error) {
	ok, err := p.Exists(key)
	if err != nil || !ok {
		return false, err
	}
	if err := p.db.Delete(p.makeKey(key.Name()), pebble.Sync); err != nil {
		return false, err
	}
	return true, nil
}

func (p *PebbleBackend) List(typeName string) ([]Key, error) {
	if err := p.checkOpen(); err != nil {
		return nil, err
	}

	lower := p.makeKey(typeName)
	upper := append(p.makeKey(typeName), 0xff)
	iter, err := p.db.NewIter(&pebble.IterOptions{
		LowerBound: lower,
		UpperBound: upper,
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var keys []Key
	for iter.First(); iter.Valid(); iter.Next() {
		k, ok := ParseName(string(iter.Key()[len(p.prefix):]))
		// The range also covers longer type names sharing this prefix.
		if !ok || k.Type != typeName {
			continue
		}
		keys = append(keys, k)
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}
	sortKeys(keys)
	return keys, nil
}

func (p *PebbleBackend) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrStoreClosed
	}

	p.closed = true
	return p.db.Close()
}
