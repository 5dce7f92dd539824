// Package store persists JSON records addressed by a type name and an
// optional uid.
package store

import "errors"

var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("record not found")
	ErrStoreClosed     = errors.New("store is closed")
)

// Backend is the byte-level storage a Store writes records into.
// Every backend must accept exactly the keys that pass Key.Validate and
// keep records with distinct keys independent of each other.
type Backend interface {
	// Exists reports whether a record is stored under key.
	Exists(key Key) (bool, error)

	// Read returns the stored bytes, or ErrNotFound.
	Read(key Key) ([]byte, error)

	// Write replaces the whole record with data.
	Write(key Key, data []byte) error

	// Remove deletes a record. Returns true if it existed.
	Remove(key Key) (bool, error)

	// List returns the keys stored under a type name, sorted by uid.
	List(typeName string) ([]Key, error)

	// Close releases any resources held by the backend.
	Close() error
}
