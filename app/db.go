package app

import (
	"context"

	"github.com/fiffu/bonuswatch/config"
	"github.com/fiffu/bonuswatch/lib/history"
	"github.com/fiffu/bonuswatch/lib/models"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// NewHistoryStore opens the configured notification history backend.
func NewHistoryStore(lc fx.Lifecycle, log *zap.Logger, cfg *config.Config) (history.Store, error) {
	switch cfg.History.Backend {
	case history.BackendSQLite:
		db, err := NewDatabase(lc, log, cfg.History.DBPath)
		if err != nil {
			return nil, err
		}
		return history.NewDBStore(db), nil
	default:
		log.Sugar().Infow("Using file history", "path", cfg.History.FilePath)
		return history.NewFileStore(cfg.History.FilePath, log), nil
	}
}

func NewDatabase(lc fx.Lifecycle, log *zap.Logger, path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	log.Sugar().Infow("Database started", "path", path)

	log.Info("Starting migrations")
	if err := db.AutoMigrate(&models.BonusNotification{}); err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	})
	return db, nil
}
