package app

import (
	"github.com/avergara/jobwatch/config"
	"github.com/avergara/jobwatch/lib/models"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func NewDatabase(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(cfg.DatabasePath), &gorm.Config{})
	if err != nil {
		log.Sugar().Panicw("failed to connect database", "path", cfg.DatabasePath, "err", err)
	}
	log.Info("Database started")

	log.Info("Starting migrations")
	if err := db.AutoMigrate(
		&models.User{},
		&models.UserSkill{},
		&models.Posting{},
		&models.PostingTag{},
		&models.Watermark{},
		&models.FlagVariable{},
	); err != nil {
		log.Sugar().Panicw("failed to migrate database", "err", err)
	}
	return db
}
