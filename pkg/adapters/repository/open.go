// Package repository picks the link store named by the configuration.
package repository

import (
	"fmt"

	"github.com/wadjakorntonsri/go-shortlinks/pkg/adapters/repository/jsonfile"
	"github.com/wadjakorntonsri/go-shortlinks/pkg/adapters/repository/memory"
	"github.com/wadjakorntonsri/go-shortlinks/pkg/adapters/repository/postgres"
	"github.com/wadjakorntonsri/go-shortlinks/pkg/adapters/repository/sqlite"
	"github.com/wadjakorntonsri/go-shortlinks/pkg/config"
	"github.com/wadjakorntonsri/go-shortlinks/pkg/ports"
)

func Open(cfg *config.Config) (ports.LinkRepository, error) {
	var (
		repo ports.LinkRepository
		err  error
	)
	switch cfg.StorageType {
	case config.StorageSQLite:
		repo, err = sqlite.NewSQLiteRepository(cfg.DatabaseURL)
	case config.StoragePostgres:
		repo, err = postgres.NewPostgresRepository(postgres.DefaultConfig(cfg.DatabaseURL))
	case config.StorageMemory:
		repo = memory.NewMemoryRepository()
	case config.StorageFile:
		repo, err = jsonfile.NewFileRepository(cfg.DataFile)
	default:
		return nil, fmt.Errorf("unknown storage type: %q", cfg.StorageType)
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s storage: %w", cfg.StorageType, err)
	}
	return repo, nil
}
