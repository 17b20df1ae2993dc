package backend

import (
	"context"
	"fmt"
	"log/slog"

	"ledger/internal/core"
	"ledger/internal/ledger"
	"ledger/internal/ledger/memory"
	"ledger/internal/log"
	"ledger/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger.With(log.FieldComponent, log.ComponentBackend)}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(ctx, config)
	case MemoryBackend:
		return f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(ctx context.Context, config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(ctx, config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	if config.SeedFile != "" {
		existing, err := repo.ListObligations(ctx)
		if err != nil {
			_ = repo.Close()
			return nil, fmt.Errorf("check existing obligations: %w", err)
		}
		if len(existing) == 0 {
			obligations, err := ledger.LoadSeedFile(config.SeedFile)
			if err != nil {
				_ = repo.Close()
				return nil, err
			}
			if err := ImportSeed(ctx, repo, obligations); err != nil {
				_ = repo.Close()
				return nil, err
			}
			f.logger.Info("Seeded empty SQLite database", "seed_file", config.SeedFile, "obligations", len(obligations))
		}
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	return &BackendResult{
		Store:   repo,
		SQLite:  repo,
		Ready:   repo.Ping,
		Cleanup: repo.Close,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	store, err := memory.NewFromFile(config.SeedFile)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize memory backend: %w", err)
	}

	f.logger.Info("Initialized memory backend", "seed_file", config.SeedFile)

	return &BackendResult{Store: store}, nil
}

// ImportSeed writes every obligation, replacing existing ones with the same id.
func ImportSeed(ctx context.Context, w ledger.ObligationWriter, obligations []core.Obligation) error {
	for _, o := range obligations {
		if err := w.SaveObligation(ctx, o); err != nil {
			return fmt.Errorf("import %s: %w", o.ID, err)
		}
	}
	return nil
}
