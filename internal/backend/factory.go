package backend

import (
	"fmt"
	"log/slog"

	"quicksplit/internal/storage"
	"quicksplit/internal/storage/memory"
)

// Result contains the store instance and a cleanup function to run at
// shutdown.
type Result struct {
	Store   storage.Store
	Cleanup func() error
}

// New constructs the store described by the config.
func New(logger *slog.Logger, cfg Config) (*Result, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("initialize SQLite repository: %w", err)
		}
		logger.Info("Initialized SQLite backend", "db_path", cfg.SQLiteDBPath)
		return &Result{Store: repo, Cleanup: repo.Close}, nil

	case MemoryBackend:
		store := memory.New()
		logger.Info("Initialized memory backend")
		return &Result{Store: store, Cleanup: store.Close}, nil

	default:
		return nil, fmt.Errorf("unsupported backend type: %s", cfg.Type)
	}
}
