// Package backend opens the ledger store selected by configuration.
package backend

import (
	"context"
	"fmt"

	"montra/internal/ledger"
	"montra/internal/ledger/memory"
	applog "montra/internal/log"
	"montra/internal/storage"
)

// Factory creates ledger stores based on configuration.
type Factory interface {
	Open(ctx context.Context, config Config) (ledger.Store, error)
}

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *applog.Logger
}

func NewFactory(logger *applog.Logger) *DefaultFactory {
	if logger == nil {
		logger = applog.NewDefault()
	}
	return &DefaultFactory{logger: logger.WithComponent(applog.ComponentBackend)}
}

// Open creates the store and checks that it answers.
func (f *DefaultFactory) Open(ctx context.Context, config Config) (ledger.Store, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		store ledger.Store
		err   error
	)
	switch config.Type {
	case SQLiteBackend:
		store, err = storage.NewSQLiteRepository(config.SQLiteDBPath, config.Location)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
	case MemoryBackend:
		store = memory.New()
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}

	if err := store.Ping(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("ping %s backend: %w", config.Type, err)
	}

	f.logger.InfoContext(ctx, "Ledger backend ready",
		"backend", config.Type.String(),
		"db_path", config.SQLiteDBPath)
	return store, nil
}
