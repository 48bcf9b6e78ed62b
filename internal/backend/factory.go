package backend

import (
	"context"
	"fmt"

	applog "finanquest/internal/log"
	"finanquest/internal/securestore"
	"finanquest/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *applog.Logger
}

// NewFactory creates a new store factory
func NewFactory(logger *applog.Logger) Factory {
	if logger == nil {
		logger = applog.Discard()
	}
	return &DefaultFactory{
		logger: logger.WithComponent(applog.ComponentStore),
	}
}

// CreateStore implements Factory.CreateStore
func (f *DefaultFactory) CreateStore(ctx context.Context, config Config) (*StoreResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteStore(ctx, config)
	case PlainBackend:
		return f.createPlainStore(ctx, config)
	case MemoryBackend:
		return f.createMemoryStore(ctx)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteStore(ctx context.Context, config Config) (*StoreResult, error) {
	key, err := securestore.LoadOrCreateKey(config.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load store key: %w", err)
	}
	sealer, err := securestore.NewSealer(key)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sealer: %w", err)
	}

	repo, err := storage.NewKVRepository(config.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.DebugContext(ctx, "Initialized sealed SQLite store", "db_path", config.Path)

	return &StoreResult{
		Store:   securestore.NewSQLite(repo, sealer, f.logger),
		Type:    SQLiteBackend,
		Cleanup: repo.Close,
	}, nil
}

func (f *DefaultFactory) createPlainStore(ctx context.Context, config Config) (*StoreResult, error) {
	repo, err := storage.NewKVRepository(config.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	// NewSQLite logs the unencrypted fallback warning.
	return &StoreResult{
		Store:   securestore.NewSQLite(repo, nil, f.logger),
		Type:    PlainBackend,
		Cleanup: repo.Close,
	}, nil
}

func (f *DefaultFactory) createMemoryStore(ctx context.Context) (*StoreResult, error) {
	f.logger.WarnContext(ctx, "Using in-memory store, the session will not survive a restart")

	return &StoreResult{
		Store:   securestore.NewMemory(),
		Type:    MemoryBackend,
		Cleanup: nil,
	}, nil
}
