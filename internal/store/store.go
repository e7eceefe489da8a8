// Package store implements the SQLite run registry for roofmat. SQLite
// is the query engine; runs.jsonl in the data directory is the
// git-friendly source of truth and is reloaded on every Attach.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/geoforge/roofmat/pkg/types"
)

// File names inside the data directory.
const (
	dbFileName    = "registry.db"
	runsJSONLName = "runs.jsonl"
)

// Store is the SQLite-backed run registry.
type Store struct {
	mu       sync.RWMutex
	attached bool
	config   types.Config
	db       *sql.DB
	dataDir  string
}

// New creates a new Store. The store is not attached; call Attach with a
// Config to initialize.
func New() *Store {
	return &Store{}
}

// Attach initializes the store with the given configuration. It creates
// the data directory if needed, rebuilds the SQLite database from
// runs.jsonl, and leaves the store ready for queries.
// Returns ErrAlreadyAttached if already attached.
func (s *Store) Attach(config types.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.attached {
		return types.ErrAlreadyAttached
	}

	if err := config.Validate(); err != nil {
		return err
	}

	dataDir := config.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return err
	}

	// The database is a rebuildable cache of runs.jsonl; start fresh so
	// schema changes never need migrations.
	dbPath := filepath.Join(dataDir, dbFileName)
	_ = os.Remove(dbPath)

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return err
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return err
	}

	s.db = db
	s.config = config
	s.dataDir = dataDir

	if err := s.ensureRunsJSONL(); err != nil {
		db.Close()
		return err
	}

	if err := s.loadRunsJSONL(); err != nil {
		db.Close()
		return fmt.Errorf("load runs.jsonl: %w", err)
	}

	s.attached = true
	return nil
}

// Detach releases all resources held by the store. After Detach, all
// operations return ErrStoreDetached. Detach is idempotent.
func (s *Store) Detach() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.attached {
		return nil // idempotent
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			return err
		}
		s.db = nil
	}

	s.attached = false
	return nil
}

// runsJSONLPath returns the path of the runs.jsonl source-of-truth file.
func (s *Store) runsJSONLPath() string {
	return filepath.Join(s.dataDir, runsJSONLName)
}

// ensureRunsJSONL creates an empty runs.jsonl if the file does not exist.
func (s *Store) ensureRunsJSONL() error {
	path := s.runsJSONLPath()
	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	return os.WriteFile(path, nil, 0o644)
}

// NewRunID generates a new UUID v7 run ID.
func NewRunID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to UUID v4 if v7 generation fails.
		return uuid.New().String()
	}
	return id.String()
}
