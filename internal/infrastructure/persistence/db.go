package persistence

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/duskcore/agentd/internal/infrastructure/config"
	"github.com/duskcore/agentd/internal/infrastructure/persistence/models"
)

// NewDBConnection opens the gorm.DB backing both the Memory Vault and
// the provider/command audit tables, dispatching on cfg.Type. Grounded
// on the teacher's persistence.NewDBConnection.
func NewDBConnection(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch cfg.Type {
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Type)
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := autoMigrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}

// autoMigrate covers the models this package owns. internal/vault.NewStore
// migrates its own MemoryEntryModel/LegacyMemoryEntryModel separately,
// since the Vault is constructed independently of this connection in
// tests that don't need the audit tables.
func autoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.ProviderConfigModel{},
		&models.QueuedCommandModel{},
	)
}
