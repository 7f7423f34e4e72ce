package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/farmercorner/motor-dashboard/internal/config"
	"github.com/farmercorner/motor-dashboard/internal/repository"
	"github.com/farmercorner/motor-dashboard/internal/repository/memory"
	"github.com/farmercorner/motor-dashboard/internal/repository/mongo"
	"github.com/farmercorner/motor-dashboard/internal/repository/postgres"
)

// openStorage connects the backend selected by STORAGE_DRIVER.
func openStorage(ctx context.Context, cfg *config.Config, log *slog.Logger) (*repository.Repositories, error) {
	switch cfg.StorageDriver {
	case config.DriverPostgres:
		db, err := postgres.NewConnection(cfg.DatabaseURL, log.With("component", "gorm"))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		return postgres.NewRepositories(db), nil

	case config.DriverMongo:
		db, err := mongo.NewConnection(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
		}
		return mongo.NewRepositories(db), nil

	case config.DriverMemory:
		log.Warn("using in-memory storage; data is lost on restart")
		return memory.NewRepositories(), nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}
