package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	recordExt  = ".json"
	tempPrefix = ".tmp-"
)

// FileBackend stores each record as its own JSON file under a root directory.
//
// Layout:
//
//	root/
//	  Settings.json          # Key{Type: "Settings"}
//	  Profile-abc123.json    # Key{Type: "Profile", UID: "abc123"}
//
// The root is created on first use. FileBackend does no locking: concurrent
// writers to the same key race and the last rename wins.
type FileBackend struct {
	root string
}

func NewFileBackend(root string) *FileBackend {
	return &FileBackend{root: root}
}

// Root returns the directory records are stored in.
func (f *FileBackend) Root() string {
	return f.root
}

// PathFor returns the file path for key, creating the root directory if it
// does not exist yet.
func (f *FileBackend) PathFor(key Key) (string, error) {
	if err := key.Validate(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(f.root, 0o755); err != nil {
		return "", fmt.Errorf("create storage root: %w", err)
	}
	return filepath.Join(f.root, key.Name()+recordExt), nil
}

func (f *FileBackend) Exists(key Key) (bool, error) {
	path, err := f.PathFor(key)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

func (f *FileBackend) Read(key Key) ([]byte, error) {
	path, err := f.PathFor(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

// Write replaces the record by renaming a fully written temp file over it,
// so readers see either the old or the new content.
func (f *FileBackend) Write(key Key, data []byte) error {
	path, err := f.PathFor(key)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(f.root, tempPrefix+key.Name()+"-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once renamed

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

func (f *FileBackend) Remove(key Key) (bool, error) {
	ok, err := f.Exists(key)
	if err != nil || !ok {
		return false, err
	}
	path, err := f.PathFor(key)
	if err != nil {
		return false, err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (f *FileBackend) List(typeName string) ([]Key, error) {
	entries, err := os.ReadDir(f.root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var keys []Key
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, recordExt) {
			continue
		}
		k, ok := ParseName(strings.TrimSuffix(name, recordExt))
		if !ok || k.Type != typeName {
			continue
		}
		keys = append(keys, k)
	}
	sortKeys(keys)
	return keys, nil
}

func (f *FileBackend) Close() error {
	return nil
}
