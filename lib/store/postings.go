package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/avergara/jobwatch/lib/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostingStore is the durable table of scraped postings keyed by URL.
//
// There is no unique constraint on url: upserts are an exists-then-write
// two-step, which is only correct because the scrape-and-store job is the
// sole writer. Read paths always pick the most-recently-inserted row per URL,
// so a superseded duplicate left behind by a historical race is harmless.
type PostingStore struct {
	log *zap.Logger
	db  *gorm.DB

	ownerID uint
}

// NewPostingStore ensures the placeholder owner account exists; without it
// every inserted posting would carry a dangling user_id, so a failed
// bootstrap fails construction.
func NewPostingStore(log *zap.Logger, db *gorm.DB) (*PostingStore, error) {
	owner := models.User{
		TelegramID: models.OwnerTelegramID,
		Username:   "jobwatch",
		Active:     false,
		Role:       models.RoleSystem,
	}
	tx := db.Where(&models.User{TelegramID: models.OwnerTelegramID}).FirstOrCreate(&owner)
	if err := tx.Error; err != nil {
		return nil, fmt.Errorf("ensure posting owner account: %w", err)
	}
	return &PostingStore{log: log, db: db, ownerID: owner.ID}, nil
}

// Exists reports whether at least one row has the given URL.
func (s *PostingStore) Exists(ctx context.Context, url string) (bool, error) {
	var count int64
	tx := s.db.WithContext(ctx).
		Model(&models.Posting{}).
		Where("url = ?", url).
		Count(&count)
	if err := tx.Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Upsert inserts a posting on first sight of its URL, else updates the
// most-recently-inserted row in place. Only provided fields are overwritten:
// a nil PostedAt preserves the stored timestamp on update, and defaults to
// the current time on insert. Returns the affected row's id.
func (s *PostingStore) Upsert(ctx context.Context, raw models.RawPosting) (uint, error) {
	var existing models.Posting
	tx := s.db.WithContext(ctx).
		Where("url = ?", raw.URL).
		Order("id desc").
		First(&existing)

	if err := tx.Error; errors.Is(err, gorm.ErrRecordNotFound) {
		return s.insert(ctx, raw)
	} else if err != nil {
		return 0, err
	}

	updates := map[string]any{
		"title": raw.Title,
		"url":   raw.URL,
	}
	if raw.Description != "" {
		updates["description"] = raw.Description
	}
	if raw.PostedAt != nil {
		updates["posted_at"] = *raw.PostedAt
	}

	tx = s.db.WithContext(ctx).
		Model(&models.Posting{}).
		Where("id = ?", existing.ID).
		Updates(updates)
	if err := tx.Error; err != nil {
		return 0, err
	}
	return existing.ID, nil
}

func (s *PostingStore) insert(ctx context.Context, raw models.RawPosting) (uint, error) {
	postedAt := time.Now().UTC()
	if raw.PostedAt != nil {
		postedAt = *raw.PostedAt
	}

	posting := models.Posting{
		UserID:      s.ownerID,
		PostedAt:    sqlTime(postedAt),
		Title:       raw.Title,
		Description: raw.Description,
		URL:         raw.URL,
	}
	tx := s.db.WithContext(ctx).
		Clauses(clause.Returning{}).
		Create(&posting)
	if err := tx.Error; err != nil {
		return 0, err
	}
	return posting.ID, nil
}

// ReplaceTags deletes all tags owned by the posting and inserts the provided
// ones, in one transaction. An empty input is an explicit no-op: a re-scrape
// that extracted zero tags (typically a page-structure hiccup) must not wipe
// previously recorded tags.
func (s *PostingStore) ReplaceTags(ctx context.Context, postingID uint, tags []models.RawTag) error {
	if len(tags) == 0 {
		return nil
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("posting_id = ?", postingID).Delete(&models.PostingTag{}).Error; err != nil {
			return err
		}
		for _, tag := range tags {
			if tag.Name == "" {
				continue
			}
			row := models.PostingTag{
				PostingID: postingID,
				Name:      tag.Name,
				Slug:      tag.Slug,
				Href:      tag.Href,
			}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Since returns postings with their tags, newest first (null posted_at last,
// ties broken by descending id), filtered to posted_at >= since when given.
func (s *PostingStore) Since(ctx context.Context, since *time.Time, limit int) (models.Postings, error) {
	var postings models.Postings
	tx := s.db.WithContext(ctx).
		Preload("Tags").
		Order("posted_at IS NULL").
		Order("posted_at desc").
		Order("id desc").
		Limit(limit)
	if since != nil {
		tx = tx.Where("posted_at >= ?", *since)
	}
	if err := tx.Find(&postings).Error; err != nil {
		return nil, err
	}
	return postings, nil
}

// Recent returns the newest postings regardless of watermark; used by the
// health probe and the admin API.
func (s *PostingStore) Recent(ctx context.Context, limit int) (models.Postings, error) {
	return s.Since(ctx, nil, limit)
}

// GetByURL returns the authoritative (most-recently-inserted) row for a URL,
// or nil when no row exists.
func (s *PostingStore) GetByURL(ctx context.Context, url string) (*models.Posting, error) {
	var posting models.Posting
	tx := s.db.WithContext(ctx).
		Preload("Tags").
		Where("url = ?", url).
		Order("id desc").
		First(&posting)
	if err := tx.Error; errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return &posting, nil
}

// DeleteByID hard-deletes a posting and its tags. Administrative use only.
func (s *PostingStore) DeleteByID(ctx context.Context, postingID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("posting_id = ?", postingID).Delete(&models.PostingTag{}).Error; err != nil {
			return err
		}
		return tx.Unscoped().Delete(&models.Posting{}, postingID).Error
	})
}

// SearchBySkills finds postings whose title or description mention any of the
// given skills, matching both the hyphenated slug and its space-separated
// variant.
func (s *PostingStore) SearchBySkills(ctx context.Context, skills []string, limit int) (models.Postings, error) {
	var clauses []string
	var params []any
	for _, skill := range skills {
		slug := models.Slugify(skill)
		if slug == "" {
			continue
		}
		variants := []string{slug}
		if spaced := strings.ReplaceAll(slug, "-", " "); spaced != slug {
			variants = append(variants, spaced)
		}
		for _, variant := range variants {
			clauses = append(clauses, "lower(title || ' ' || coalesce(description, '')) LIKE ?")
			params = append(params, "%"+variant+"%")
		}
	}
	if len(clauses) == 0 {
		return models.Postings{}, nil
	}

	var postings models.Postings
	tx := s.db.WithContext(ctx).
		Preload("Tags").
		Where(strings.Join(clauses, " OR "), params...).
		Order("posted_at IS NULL").
		Order("posted_at desc").
		Order("id desc").
		Limit(limit).
		Find(&postings)
	if err := tx.Error; err != nil {
		return nil, err
	}
	return postings, nil
}

func sqlTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: true}
}
