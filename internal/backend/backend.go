// Package backend opens the ledger store selected by configuration.
package backend

import (
	"context"
	"fmt"

	"fintrack/internal/config"
	"fintrack/internal/ledger"
	"fintrack/internal/ledger/memory"
	"fintrack/internal/log"
	"fintrack/internal/storage"
)

// Type names a ledger store implementation.
type Type string

const (
	SQLiteBackend Type = "sqlite"
	MemoryBackend Type = "memory"
)

func (t Type) String() string {
	return string(t)
}

func (t Type) IsValid() bool {
	switch t {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

// Shared reports whether other processes can see writes made through the store.
func (t Type) Shared() bool {
	return t == SQLiteBackend
}

// CleanupFunc releases resources held by an opened store.
type CleanupFunc func() error

// Result is an opened store plus its lifecycle hooks.
type Result struct {
	Type    Type
	Store   ledger.Store
	Ready   func(ctx context.Context) error
	Cleanup CleanupFunc
}

// Close runs Cleanup when one is set.
func (r *Result) Close() error {
	if r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Open builds the store named by cfg.DataBackend.
func Open(cfg *config.Config, logger *log.Logger) (*Result, error) {
	if cfg == nil {
		return nil, fmt.Errorf("app config is nil")
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentStorage)

	t := Type(cfg.DataBackend)
	if !t.IsValid() {
		return nil, fmt.Errorf("unsupported backend type: %s", cfg.DataBackend)
	}
	if t == SQLiteBackend {
		return openSQLite(cfg.SQLiteDBPath, logger)
	}
	return openMemory(cfg.SeedDir, logger)
}

func openSQLite(path string, logger *log.Logger) (*Result, error) {
	if path == "" {
		return nil, fmt.Errorf("SQLite database path is required for sqlite backend")
	}
	repo, err := storage.NewSQLiteRepository(path)
	if err != nil {
		return nil, fmt.Errorf("initialize SQLite repository: %w", err)
	}

	if version, dirty, err := storage.SchemaVersion(path); err == nil {
		logger.Info("Initialized SQLite backend", "db_path", path, "schema_version", version, "dirty", dirty)
	}
	return &Result{
		Type:    SQLiteBackend,
		Store:   repo,
		Ready:   repo.Ping,
		Cleanup: repo.Close,
	}, nil
}

func openMemory(seedDir string, logger *log.Logger) (*Result, error) {
	store := memory.New()
	if seedDir != "" {
		var err error
		store, err = memory.NewFromFiles(seedDir)
		if err != nil {
			return nil, fmt.Errorf("seed memory backend from %s: %w", seedDir, err)
		}
	}
	logger.Info("Initialized memory backend", "seed_dir", seedDir)
	return &Result{Type: MemoryBackend, Store: store}, nil
}
