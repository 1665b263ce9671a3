// Package flags exposes remotely controlled feature switches. The source is
// polled on demand rather than cached at startup, and reports "unreachable"
// as a state of its own so callers can apply their own fallback instead of
// silently treating an outage as "disabled".
package flags

import (
	"context"
	"errors"
	"strings"

	"github.com/avergara/jobwatch/lib/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type State int

const (
	Disabled State = iota
	Enabled
	Unreachable
)

func (s State) String() string {
	switch s {
	case Enabled:
		return "enabled"
	case Disabled:
		return "disabled"
	default:
		return "unreachable"
	}
}

// Source is injected into the scheduler; polled once per scrape activity.
type Source interface {
	ScrapeEnabled(ctx context.Context) State
	SetScrapeEnabled(ctx context.Context, enabled bool) error
}

type dbSource struct {
	log *zap.Logger
	db  *gorm.DB
}

func NewDBSource(log *zap.Logger, db *gorm.DB) Source {
	return &dbSource{log: log, db: db}
}

func (s *dbSource) ScrapeEnabled(ctx context.Context) State {
	var flag models.FlagVariable
	tx := s.db.WithContext(ctx).
		Where("name = ?", models.FlagScrapeEnabled).
		First(&flag)

	if err := tx.Error; errors.Is(err, gorm.ErrRecordNotFound) {
		return Disabled
	} else if err != nil {
		s.log.Sugar().Warnw("Flag store unreachable", "flag", models.FlagScrapeEnabled, "err", err)
		return Unreachable
	}

	switch strings.ToLower(strings.TrimSpace(flag.Value)) {
	case "1", "true", "t", "yes":
		return Enabled
	default:
		return Disabled
	}
}

func (s *dbSource) SetScrapeEnabled(ctx context.Context, enabled bool) error {
	value := "false"
	if enabled {
		value = "true"
	}

	var flag models.FlagVariable
	tx := s.db.WithContext(ctx).
		Where(&models.FlagVariable{Name: models.FlagScrapeEnabled}).
		Assign(models.FlagVariable{Value: value}).
		FirstOrCreate(&flag)
	return tx.Error
}
