package main

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

const (
	// migration queries
	createSessionTableSQL = `
  CREATE TABLE IF NOT EXISTS session (
  id INTEGER PRIMARY KEY CHECK (id = 1),
  token TEXT NOT NULL,
  saved_at DATETIME DEFAULT CURRENT_TIMESTAMP
  )`

	// session queries
	saveTokenSQL  = `INSERT INTO session (id, token, saved_at) VALUES (1, ?, CURRENT_TIMESTAMP)
  ON CONFLICT(id) DO UPDATE SET token = excluded.token, saved_at = excluded.saved_at`
	loadTokenSQL  = `SELECT token FROM session WHERE id = 1`
	clearTokenSQL = `DELETE FROM session`
)

// TokenStore persists the single auth token between runs.
type TokenStore interface {
	SaveToken(token string) error
	LoadToken() (string, error)
	ClearToken() error
}

type Repo struct {
	db *sql.DB
}

func NewRepo(dbPath string) (*Repo, error) {
	// ensure directory exists
	err := os.MkdirAll(filepath.Dir(dbPath), 0o700)
	if err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	// open database
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// verify connection with database
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	repo := &Repo{db: db}

	// run migrations
	if err := repo.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *Repo) Close() error {
	return r.db.Close()
}

// runs migrations on initial start
func (r *Repo) runMigrations() error {
	tables := []string{
		createSessionTableSQL,
	}

	for _, tableSQL := range tables {
		if _, err := r.db.Exec(tableSQL); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	return nil
}

// +-----------------------+
// |                       |
// |    Session Queries    |
// |                       |
// +-----------------------+

func (r *Repo) SaveToken(token string) error {
	if _, err := r.db.Exec(saveTokenSQL, token); err != nil {
		return fmt.Errorf("error saving token: %w", err)
	}
	return nil
}

// LoadToken returns an empty string when no token is stored.
func (r *Repo) LoadToken() (string, error) {
	var token string
	err := r.db.QueryRow(loadTokenSQL).Scan(&token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("error loading token: %w", err)
	}
	return token, nil
}

func (r *Repo) ClearToken() error {
	if _, err := r.db.Exec(clearTokenSQL); err != nil {
		return fmt.Errorf("error clearing token: %w", err)
	}
	return nil
}

// MemoryTokenStore keeps the token for the lifetime of the process only.
type MemoryTokenStore struct {
	mu    sync.Mutex
	token string
}

func (m *MemoryTokenStore) SaveToken(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

func (m *MemoryTokenStore) LoadToken() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

func (m *MemoryTokenStore) ClearToken() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	return nil
}
