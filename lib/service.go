package lib

import (
	"context"

	"github.com/avergara/jobwatch/config"
	"github.com/avergara/jobwatch/lib/flags"
	"github.com/avergara/jobwatch/lib/models"
	"github.com/avergara/jobwatch/lib/registry"
	"github.com/avergara/jobwatch/lib/store"
	"go.uber.org/zap"
)

// Service is the facade the API layer talks to. It delegates to the user
// registry, the posting store and the scrape flag without adding semantics
// of its own.
type Service struct {
	cfg      *config.Config
	log      *zap.Logger
	users    *registry.UserRegistry
	postings *store.PostingStore
	flags    flags.Source
}

func NewService(
	cfg *config.Config,
	log *zap.Logger,
	users *registry.UserRegistry,
	postings *store.PostingStore,
	flagSource flags.Source,
) *Service {
	return &Service{cfg, log, users, postings, flagSource}
}

// RegisterUser enrols or reactivates the Telegram account. The returned bool
// reports whether anything changed; registering an already-active user is a
// no-op.
func (svc *Service) RegisterUser(ctx context.Context, telegramID int64, username string) (bool, error) {
	return svc.users.Register(ctx, telegramID, username)
}

func (svc *Service) DeactivateUser(ctx context.Context, telegramID int64) (bool, error) {
	return svc.users.Deactivate(ctx, telegramID)
}

func (svc *Service) DeleteUser(ctx context.Context, telegramID int64) (bool, error) {
	return svc.users.Delete(ctx, telegramID)
}

func (svc *Service) UserSkills(ctx context.Context, telegramID int64) ([]string, error) {
	return svc.users.Skills(ctx, telegramID)
}

// AddSkill normalizes the skill to its slug before storing; the slug is
// returned so callers can echo the stored form.
func (svc *Service) AddSkill(ctx context.Context, telegramID int64, skill string) (string, error) {
	return svc.users.AddSkill(ctx, telegramID, skill)
}

// RemoveSkill reports whether the skill was actually removed; false means the
// user did not have it.
func (svc *Service) RemoveSkill(ctx context.Context, telegramID int64, skill string) (bool, error) {
	return svc.users.RemoveSkill(ctx, telegramID, skill)
}

func (svc *Service) ClearSkills(ctx context.Context, telegramID int64) (int, error) {
	return svc.users.ClearSkills(ctx, telegramID)
}

func (svc *Service) RecentPostings(ctx context.Context, limit int) (models.Postings, error) {
	return svc.postings.Recent(ctx, limit)
}

func (svc *Service) SearchPostings(ctx context.Context, skills []string, limit int) (models.Postings, error) {
	return svc.postings.SearchBySkills(ctx, skills, limit)
}

// DeletePosting hard-deletes a posting and its tags. Administrative use only.
func (svc *Service) DeletePosting(ctx context.Context, postingID uint) error {
	return svc.postings.DeleteByID(ctx, postingID)
}

func (svc *Service) ScrapeStatus(ctx context.Context) flags.State {
	return svc.flags.ScrapeEnabled(ctx)
}

func (svc *Service) EnableScrape(ctx context.Context) error {
	return svc.flags.SetScrapeEnabled(ctx, true)
}

func (svc *Service) DisableScrape(ctx context.Context) error {
	return svc.flags.SetScrapeEnabled(ctx, false)
}

// Health probes database connectivity with a cheap read.
func (svc *Service) Health(ctx context.Context) error {
	_, err := svc.postings.Recent(ctx, 1)
	return err
}
