// Package scanner runs the two periodic activities of the service on one
// cooperative tick loop: scrape-and-persist, and the watermark-driven skill
// scan. The activities interleave on independent due times but never run
// concurrently; the watermark is the only state shared across ticks.
package scanner

import (
	"context"
	"time"

	"github.com/avergara/jobwatch/config"
	"github.com/avergara/jobwatch/lib/flags"
	"github.com/avergara/jobwatch/lib/ingest"
	"github.com/avergara/jobwatch/lib/models"
	"github.com/avergara/jobwatch/lib/notify"
	"github.com/avergara/jobwatch/lib/registry"
	"github.com/avergara/jobwatch/lib/scraper"
	"github.com/avergara/jobwatch/lib/store"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const activityTimeout = 60 * time.Second

type pageSource interface {
	Fetch(ctx context.Context, url string) ([]models.RawPosting, error)
}

type batchPersister interface {
	PersistBatch(ctx context.Context, batch []models.RawPosting) int
}

type postingReader interface {
	Since(ctx context.Context, since *time.Time, limit int) (models.Postings, error)
}

type userDirectory interface {
	ActiveUserSkillMap(ctx context.Context) (map[int64][]string, error)
	ActiveUsers(ctx context.Context) (map[int64]models.User, error)
}

type dispatcher interface {
	Notify(ctx context.Context, posting models.Posting, matches map[int64][]string, users map[int64]models.User) int
}

type Scanner struct {
	log        *zap.Logger
	flags      flags.Source
	source     pageSource
	persister  batchPersister
	postings   postingReader
	users      userDirectory
	dispatcher dispatcher
	watermarks *watermarkStore

	searchURL      string
	scrapeDefault  bool
	tick           time.Duration
	scrapeInterval time.Duration
	scanInterval   time.Duration
	scanLimit      int

	cancel context.CancelFunc
}

func NewScanner(
	lc fx.Lifecycle,
	cfg *config.Config,
	log *zap.Logger,
	db *gorm.DB,
	source *scraper.Scraper,
	persister *ingest.Persister,
	postings *store.PostingStore,
	users *registry.UserRegistry,
	dispatch *notify.Dispatcher,
	flagSource flags.Source,
) *Scanner {
	s := &Scanner{
		log:        log,
		flags:      flagSource,
		source:     source,
		persister:  persister,
		postings:   postings,
		users:      users,
		dispatcher: dispatch,
		watermarks: newWatermarkStore(db),

		searchURL: scraper.BuildSearchURL(cfg.Scrape.BaseURL, scraper.SearchParams{
			Language: cfg.Scrape.Language,
			Query:    cfg.Scrape.Query,
		}),
		scrapeDefault:  cfg.Scrape.EnabledDefault,
		tick:           time.Duration(cfg.TickSecs) * time.Second,
		scrapeInterval: time.Duration(cfg.Scrape.IntervalMinutes) * time.Minute,
		scanInterval:   time.Duration(cfg.Scan.IntervalMinutes) * time.Minute,
		scanLimit:      cfg.Scan.Limit,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			s.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Sugar().Info("Trying to stop scanner")
			s.Stop()
			return nil
		},
	})

	return s
}

func (s *Scanner) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go s.run(ctx)
}

func (s *Scanner) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.log.Sugar().Info("Scanner stopped")
}

// run polls at a fixed short tick and dispatches whichever activity is due.
// Both due times start in the past so the first tick runs both. Cancellation
// is cooperative: it takes effect between activities, never mid-activity.
func (s *Scanner) run(ctx context.Context) {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	var nextScrape, nextScan time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if !now.Before(nextScrape) {
				s.withTimeout(ctx, s.runScrape)
				nextScrape = time.Now().Add(s.scrapeInterval)
			}
			if !now.Before(nextScan) {
				s.withTimeout(ctx, s.runSkillScan)
				nextScan = time.Now().Add(s.scanInterval)
			}
		}
	}
}

func (s *Scanner) withTimeout(ctx context.Context, activity func(context.Context)) {
	ctx, cancel := context.WithTimeout(ctx, activityTimeout)
	defer cancel()
	activity(ctx)
}

// runScrape polls the feature flag, fetches the search page and persists the
// batch. Any failure aborts this occurrence only; the next tick retries.
func (s *Scanner) runScrape(ctx context.Context) {
	switch state := s.flags.ScrapeEnabled(ctx); state {
	case flags.Disabled:
		s.log.Sugar().Debug("Scraping disabled by flag")
		return
	case flags.Unreachable:
		if !s.scrapeDefault {
			s.log.Sugar().Warn("Flag store unreachable and no local default; skipping scrape")
			return
		}
		s.log.Sugar().Warn("Flag store unreachable; scraping on local default")
	}

	batch, err := s.source.Fetch(ctx, s.searchURL)
	if err != nil {
		s.log.Sugar().Errorw("Scrape failed", "url", s.searchURL, "err", err)
		return
	}

	count := s.persister.PersistBatch(ctx, batch)
	s.log.Sugar().Infow("Scrape completed", "url", s.searchURL, "upserted", count)
}
