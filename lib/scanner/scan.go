package scanner

import (
	"context"
	"time"

	"github.com/avergara/jobwatch/lib/match"
	"github.com/avergara/jobwatch/lib/models"
	"github.com/google/uuid"
)

type scanMetrics struct {
	fetched   int
	matched   int
	attempts  int
	delivered int
}

// runSkillScan is one notification pass over postings since the watermark.
// A fetch failure aborts the tick without advancing, so the same window is
// retried next time. Once matching and dispatch have run, the watermark
// advances even if individual deliveries failed: those (user, posting) pairs
// are not retried.
func (s *Scanner) runSkillScan(ctx context.Context) {
	scanID := uuid.NewString()[:8]
	started := time.Now().UTC()

	since, err := s.watermarks.Load(ctx, models.WatermarkSkillScan)
	if err != nil {
		s.log.Sugar().Errorw("Failed to load scan watermark", "scan", scanID, "err", err)
		return
	}

	postings, err := s.postings.Since(ctx, since, s.scanLimit)
	if err != nil {
		s.log.Sugar().Errorw("Failed to fetch postings for scan", "scan", scanID, "err", err)
		return
	}

	if len(postings) == 0 {
		// Still advance, or an empty window would be re-scanned forever.
		s.advance(ctx, scanID)
		return
	}

	skillMap, err := s.users.ActiveUserSkillMap(ctx)
	if err != nil {
		s.log.Sugar().Errorw("Failed to load user skills", "scan", scanID, "err", err)
		return
	}
	if len(skillMap) == 0 {
		s.log.Sugar().Infow("No users with skills configured", "scan", scanID)
		s.advance(ctx, scanID)
		return
	}

	users, err := s.users.ActiveUsers(ctx)
	if err != nil {
		s.log.Sugar().Errorw("Failed to load active users", "scan", scanID, "err", err)
		return
	}

	m := scanMetrics{fetched: len(postings)}
	for _, posting := range postings {
		matches := match.Match(posting.Tags, skillMap)
		if len(matches) == 0 {
			continue
		}
		m.matched++
		m.attempts += len(matches)
		m.delivered += s.dispatcher.Notify(ctx, posting, matches, users)
	}

	s.advance(ctx, scanID)

	elapsed := time.Now().UTC().Sub(started)
	s.log.Sugar().Infow("Skill scan completed",
		"scan", scanID,
		"postings", m.fetched,
		"matched", m.matched,
		"attempts", m.attempts,
		"delivered", m.delivered,
		"elapsed_msecs", int(elapsed.Milliseconds()),
	)
}

// advance moves the watermark to wall-clock now rather than to the newest
// posted_at seen, so identical timestamps at the window boundary are not
// re-scanned forever. The trade-off: a posting written after the fetch but
// stamped before now is skipped. A failed advance only means the same window
// is scanned again next tick.
func (s *Scanner) advance(ctx context.Context, scanID string) {
	if err := s.watermarks.Advance(ctx, models.WatermarkSkillScan, time.Now().UTC()); err != nil {
		s.log.Sugar().Errorw("Failed to advance scan watermark", "scan", scanID, "err", err)
	}
}
