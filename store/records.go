package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	"go.uber.org/zap"
)

// Store saves and loads JSON-encoded values under (type name, uid) keys.
//
// Load never fails: a missing record and a record that cannot be decoded
// both come back as "absent". The reason is only visible in the logs.
type Store struct {
	backend Backend
	log     *zap.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used to report why a Load came back absent.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

func NewStore(b Backend, opts ...Option) *Store {
	s := &Store{backend: b, log: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Backend returns the underlying backend.
func (s *Store) Backend() Backend {
	return s.backend
}

// Exists reports whether a record is stored under (typeName, uid).
func (s *Store) Exists(typeName, uid string) (bool, error) {
	return s.backend.Exists(Key{Type: typeName, UID: uid})
}

// Save encodes value as JSON and replaces whatever was stored under
// (typeName, uid). A nil value is rejected with ErrInvalidArgument.
func (s *Store) Save(typeName, uid string, value any) error {
	key, err := NewKey(typeName, uid)
	if err != nil {
		return err
	}
	if isNil(value) {
		return fmt.Errorf("%w: cannot save a nil value as %s", ErrInvalidArgument, key)
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if isNullJSON(data) {
		return fmt.Errorf("%w: %s encodes to JSON null", ErrInvalidArgument, key)
	}
	if err := s.backend.Write(key, data); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// Load decodes the record stored under (typeName, uid) into out, which must
// be a non-nil pointer. It reports false if the record is missing,
// unreadable, or does not decode into out. out is only written on success.
func (s *Store) Load(typeName, uid string, out any) bool {
	key := Key{Type: typeName, UID: uid}
	data, err := s.backend.Read(key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.log.Debug("record not found", zap.Stringer("key", key))
		} else {
			s.log.Warn("record unreadable", zap.Stringer("key", key), zap.Error(err))
		}
		return false
	}
	if err := tryDecode(data, out); err != nil {
		s.log.Warn("record corrupt", zap.Stringer("key", key), zap.Error(err))
		return false
	}
	return true
}

// Delete removes the record stored under (typeName, uid). It reports false
// and does nothing if there is no such record.
func (s *Store) Delete(typeName, uid string) (bool, error) {
	return s.backend.Remove(Key{Type: typeName, UID: uid})
}

// List returns the uids stored under typeName in ascending order. The
// default record is listed as "".
func (s *Store) List(typeName string) ([]string, error) {
	keys, err := s.backend.List(typeName)
	if err != nil {
		return nil, err
	}
	uids := make([]string, 0, len(keys))
	for _, k := range keys {
		uids = append(uids, k.UID)
	}
	return uids, nil
}

func (s *Store) Close() error {
	return s.backend.Close()
}

var (
	errNullRecord = errors.New("record holds JSON null")
	errBadTarget  = errors.New("decode target must be a non-nil pointer")
)

func isNullJSON(data []byte) bool {
	return bytes.Equal(bytes.TrimSpace(data), []byte("null"))
}

// tryDecode is the only place record bytes are turned back into values.
// It decodes into a fresh value and copies it into out only on success, so
// a failed decode leaves out untouched.
func tryDecode(data []byte, out any) error {
	if isNullJSON(data) {
		return errNullRecord
	}
	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return errBadTarget
	}
	fresh := reflect.New(rv.Elem().Type())
	if err := json.Unmarshal(data, fresh.Interface()); err != nil {
		return err
	}
	rv.Elem().Set(fresh.Elem())
	return nil
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

// Collection binds a type name to the Go type stored under it.
type Collection[T any] struct {
	store    *Store
	typeName string
}

func NewCollection[T any](s *Store, typeName string) *Collection[T] {
	return &Collection[T]{store: s, typeName: typeName}
}

// TypeName returns the type name records are stored under.
func (c *Collection[T]) TypeName() string {
	return c.typeName
}

func (c *Collection[T]) Exists(uid string) (bool, error) {
	return c.store.Exists(c.typeName, uid)
}

func (c *Collection[T]) Save(uid string, value T) error {
	return c.store.Save(c.typeName, uid, value)
}

// Load returns the stored value, or the zero value and false if it is absent.
func (c *Collection[T]) Load(uid string) (T, bool) {
	var v T
	if !c.store.Load(c.typeName, uid, &v) {
		var zero T
		return zero, false
	}
	return v, true
}

func (c *Collection[T]) Delete(uid string) (bool, error) {
	return c.store.Delete(c.typeName, uid)
}

// UIDs lists the uids stored under the collection's type name.
func (c *Collection[T]) UIDs() ([]string, error) {
	return c.store.List(c.typeName)
}
