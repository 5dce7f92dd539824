package store

import (
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"sync"
)

// SqliteBackend stores all records in a single SQLite database.
// The caller must import a "sqlite3" driver (github.com/mattn/go-sqlite3).
//
// Tables:
//
//	records(type_name, uid, data)  PRIMARY KEY (type_name, uid)
type SqliteBackend struct {
	mu     sync.RWMutex
	db     *sql.DB
	closed bool
}

func NewSqliteBackend(dbPath string) (*SqliteBackend, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS records (
		type_name TEXT NOT NULL,
		uid TEXT NOT NULL,
		data BLOB NOT NULL,
		PRIMARY KEY (type_name, uid)
	)`); err != nil {
		db.Close()
		return nil, err
	}
	return &SqliteBackend{db: db}, nil
}

func (s *SqliteBackend) Exists(key Key) (bool, error) {
	if err := key.Validate(); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false, ErrStoreClosed
	}
	var n int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM records WHERE type_name = ? AND uid = ?",
		key.Type, key.UID,
	).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *SqliteBackend) Read(key Key) ([]byte, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}
	var data []byte
	err := s.db.QueryRow(
		"SELECT data FROM records WHERE type_name = ? AND uid = ?",
		key.Type, key.UID,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (s *SqliteBackend) Write(key Key, data []byte) error {
	if err := key.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	_, err := s.db.Exec(
		`INSERT INTO records (type_name, uid, data) VALUES (?, ?, ?)
		 ON CONFLICT(type_name, uid) DO UPDATE SET data = excluded.data`,
		key.Type, key.UID, data,
	)
	return err
}

func (s *SqliteBackend) Remove(key Key) (bool, error) {
	if err := key.Validate(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, ErrStoreClosed
	}
	res, err := s.db.Exec(
		"DELETE FROM records WHERE type_name = ? AND uid = ?",
		key.Type, key.UID,
	)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (s *SqliteBackend) List(typeName string) ([]Key, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}
	rows, err := s.db.Query(
		"SELECT uid FROM records WHERE type_name = ? ORDER BY uid",
		typeName,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var keys []Key
	for rows.Next() {
		var uid string
		if err := rows.Scan(&uid); err != nil {
			return nil, err
		}
		keys = append(keys, Key{Type: typeName, UID: uid})
	}
	return keys, rows.Err()
}

func (s *SqliteBackend) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	s.closed = true
	return s.db.Close()
}
