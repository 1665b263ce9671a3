// Package ingest turns batches of freshly scraped postings into store rows,
// deciding new-versus-existing per posting and isolating per-item failures.
package ingest

import (
	"context"

	"github.com/avergara/jobwatch/lib/models"
	"github.com/avergara/jobwatch/lib/store"
	"go.uber.org/zap"
)

// PostingWriter is the slice of the posting store the persister needs.
type PostingWriter interface {
	Exists(ctx context.Context, url string) (bool, error)
	Upsert(ctx context.Context, raw models.RawPosting) (uint, error)
	ReplaceTags(ctx context.Context, postingID uint, tags []models.RawTag) error
}

var _ PostingWriter = (*store.PostingStore)(nil)

type Persister struct {
	log   *zap.Logger
	store PostingWriter
}

func NewPersister(log *zap.Logger, postings *store.PostingStore) *Persister {
	return &Persister{log: log, store: postings}
}

// PersistBatch upserts each valid posting and replaces its tag set. The
// new-vs-existing decision is an existence check before the upsert, since the
// upsert itself does not report which path it took; this check-then-act is
// safe only because the scrape-and-store job is the single writer.
//
// Failures never abort the batch: an invalid record is dropped, a failed
// upsert skips that posting, and a failed tag replacement leaves the posting
// row in place with its previous tags. Returns the count of postings whose
// row upsert succeeded (partial tag writes included).
func (p *Persister) PersistBatch(ctx context.Context, batch []models.RawPosting) int {
	var m batchMetrics
	for _, raw := range batch {
		p.persistOne(ctx, raw, &m)
	}

	if m.total() > 0 || m.skipped > 0 {
		p.log.Sugar().Infow("Persisted scraped batch",
			"received", len(batch),
			"inserted", m.inserted,
			"updated", m.updated,
			"skipped", m.skipped,
			"tag_failures", m.tagFailures,
		)
	}
	return m.total()
}

func (p *Persister) persistOne(ctx context.Context, raw models.RawPosting, m *batchMetrics) {
	if !raw.Valid() {
		m.skipped++
		p.log.Sugar().Warnw("Dropping posting without title or url", "url", raw.URL)
		return
	}

	exists, err := p.store.Exists(ctx, raw.URL)
	if err != nil {
		m.skipped++
		p.log.Sugar().Errorw("Existence check failed", "url", raw.URL, "err", err)
		return
	}

	id, err := p.store.Upsert(ctx, raw)
	if err != nil {
		m.skipped++
		p.log.Sugar().Errorw("Failed to upsert posting", "url", raw.URL, "err", err)
		return
	}
	if exists {
		m.updated++
	} else {
		m.inserted++
	}

	if err := p.store.ReplaceTags(ctx, id, raw.Tags); err != nil {
		// Partial write: the posting row is persisted and queryable, its tag
		// set is stale until the next successful re-scrape.
		m.tagFailures++
		p.log.Sugar().Warnw("Failed to replace posting tags",
			"posting_id", id,
			"url", raw.URL,
			"err", err,
		)
	}
}
