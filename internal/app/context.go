package app

import (
	"log/slog"

	"gorm.io/gorm"

	"github.com/oggyb/campus-match/internal/cache"
	"github.com/oggyb/campus-match/internal/config"
	"github.com/oggyb/campus-match/internal/notifier"
)

// AppContext holds shared dependencies (DB, Redis, Notifier, Logger, etc.)
type AppContext struct {
	Config     *config.Config
	DB         *gorm.DB
	RedisCache *cache.RedisCache
	Notifier   notifier.Notifier
	Logger     *slog.Logger
}

// New creates a new AppContext
func New(
	cfg *config.Config,
	db *gorm.DB,
	rdb *cache.RedisCache,
	n notifier.Notifier,
	logger *slog.Logger,
) *AppContext {
	return &AppContext{
		Config:     cfg,
		DB:         db,
		RedisCache: rdb,
		Notifier:   n,
		Logger:     logger,
	}
}

// PageSize is the configured page size, 20 when unset.
func (a *AppContext) PageSize() int {
	if a.Config == nil || a.Config.Paging.PageSize <= 0 {
		return 20
	}
	return a.Config.Paging.PageSize
}
