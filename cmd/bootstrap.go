package cmd

import (
	"fmt"

	"protein-updater/core/config"
	"protein-updater/core/database"
	"protein-updater/core/logger"
	"protein-updater/core/storage"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// runtime bundles what every command needs after loading the configuration.
type runtime struct {
	cfg    *config.Config
	logger *zap.Logger
}

func bootstrap() (*runtime, error) {
	cfg, err := config.LoadConfig(configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	l, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return &runtime{cfg: cfg, logger: l}, nil
}

func (r *runtime) database() (*gorm.DB, error) {
	db, err := database.Connect(r.cfg.Database)
	if err != nil {
		return nil, err
	}
	r.logger.Info("Connected to record database",
		zap.String("driver", r.cfg.Database.Driver),
		zap.String("name", r.cfg.Database.Name),
	)
	return db, nil
}

func (r *runtime) storage() (storage.Client, error) {
	client, err := storage.NewClient(r.cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to storage: %w", err)
	}
	return client, nil
}
