package store

import (
	"context"
	"testing"
	"time"

	"github.com/avergara/jobwatch/lib/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("fail to open test db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.UserSkill{},
		&models.Posting{},
		&models.PostingTag{},
	); err != nil {
		t.Fatalf("fail to migrate test db: %v", err)
	}
	return db
}

func newTestStore(t *testing.T) *PostingStore {
	s, err := NewPostingStore(zap.NewNop(), setupTestDB(t))
	require.NoError(t, err)
	return s
}

func TestNewPostingStoreFailsWithoutUsersTable(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	_, err = NewPostingStore(zap.NewNop(), db)
	require.Error(t, err)
}

func TestUpsertInsertsThenUpdatesInPlace(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	raw := models.RawPosting{
		Title:       "Scrape product pages",
		Description: "Need a scraper for an online store",
		URL:         "https://www.workana.com/job/scrape-product-pages",
	}

	exists, err := s.Exists(ctx, raw.URL)
	require.NoError(t, err)
	assert.False(t, exists)

	id1, err := s.Upsert(ctx, raw)
	require.NoError(t, err)

	exists, err = s.Exists(ctx, raw.URL)
	require.NoError(t, err)
	assert.True(t, exists)

	raw.Title = "Scrape product pages (updated)"
	id2, err := s.Upsert(ctx, raw)
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	recent, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "Scrape product pages (updated)", recent[0].Title)
}

func TestUpsertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	postedAt := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	raw := models.RawPosting{
		Title:    "Build an Excel dashboard",
		URL:      "https://www.workana.com/job/excel-dashboard",
		PostedAt: &postedAt,
	}

	id1, err := s.Upsert(ctx, raw)
	require.NoError(t, err)
	id2, err := s.Upsert(ctx, raw)
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	recent, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "Build an Excel dashboard", recent[0].Title)
	assert.Equal(t, postedAt, recent[0].PostedAt.Time.UTC())
}

func TestUpsertPreservesPostedAtOnUpdate(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	original := time.Date(2025, 2, 10, 8, 30, 0, 0, time.UTC)
	raw := models.RawPosting{
		Title:    "MySQL tuning",
		URL:      "https://www.workana.com/job/mysql-tuning",
		PostedAt: &original,
	}
	id, err := s.Upsert(ctx, raw)
	require.NoError(t, err)

	// Re-sighting without an explicit timestamp keeps the stored one.
	raw.PostedAt = nil
	raw.Description = "Slow queries on a production database"
	_, err = s.Upsert(ctx, raw)
	require.NoError(t, err)

	got, err := s.GetByURL(ctx, raw.URL)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, original, got.PostedAt.Time.UTC())
	assert.Equal(t, "Slow queries on a production database", got.Description)
}

func TestReplaceTags(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	id, err := s.Upsert(ctx, models.RawPosting{
		Title: "Data pipeline",
		URL:   "https://www.workana.com/job/data-pipeline",
	})
	require.NoError(t, err)

	first := []models.RawTag{
		{Name: "Python", Slug: "python"},
		{Name: "MySQL", Slug: "mysql"},
	}
	require.NoError(t, s.ReplaceTags(ctx, id, first))

	second := []models.RawTag{
		{Name: "Data Science", Slug: "data-science"},
		{Name: ""}, // empty names are skipped
	}
	require.NoError(t, s.ReplaceTags(ctx, id, second))

	got, err := s.GetByURL(ctx, "https://www.workana.com/job/data-pipeline")
	require.NoError(t, err)
	require.Len(t, got.Tags, 1)
	assert.Equal(t, "Data Science", got.Tags[0].Name)
	assert.Equal(t, "data-science", got.Tags[0].Slug)
}

func TestReplaceTagsEmptyInputIsNoop(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	id, err := s.Upsert(ctx, models.RawPosting{
		Title: "WooCommerce store",
		URL:   "https://www.workana.com/job/woocommerce-store",
	})
	require.NoError(t, err)

	require.NoError(t, s.ReplaceTags(ctx, id, []models.RawTag{{Name: "PHP", Slug: "php"}}))
	require.NoError(t, s.ReplaceTags(ctx, id, nil))

	got, err := s.GetByURL(ctx, "https://www.workana.com/job/woocommerce-store")
	require.NoError(t, err)
	require.Len(t, got.Tags, 1)
	assert.Equal(t, "php", got.Tags[0].Slug)
}

func TestSinceFiltersAndOrders(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	old := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	mid := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	recent := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	for _, p := range []models.RawPosting{
		{Title: "old", URL: "https://www.workana.com/job/old", PostedAt: &old},
		{Title: "recent", URL: "https://www.workana.com/job/recent", PostedAt: &recent},
		{Title: "mid", URL: "https://www.workana.com/job/mid", PostedAt: &mid},
	} {
		_, err := s.Upsert(ctx, p)
		require.NoError(t, err)
	}

	got, err := s.Since(ctx, &mid, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "recent", got[0].Title)
	assert.Equal(t, "mid", got[1].Title)

	all, err := s.Since(ctx, nil, 10)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "old", all[2].Title)
}

func TestSinceIncludesTags(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	id, err := s.Upsert(ctx, models.RawPosting{
		Title: "Arduino prototype",
		URL:   "https://www.workana.com/job/arduino-prototype",
	})
	require.NoError(t, err)
	require.NoError(t, s.ReplaceTags(ctx, id, []models.RawTag{{Name: "Arduino", Slug: "arduino"}}))

	_, err = s.Upsert(ctx, models.RawPosting{
		Title: "No tags here",
		URL:   "https://www.workana.com/job/no-tags",
	})
	require.NoError(t, err)

	got, err := s.Since(ctx, nil, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	for _, p := range got {
		switch p.ID {
		case id:
			assert.Len(t, p.Tags, 1)
		default:
			assert.Empty(t, p.Tags)
		}
	}
}

func TestSearchBySkillsMatchesVariants(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.Upsert(ctx, models.RawPosting{
		Title:       "Data science consulting",
		Description: "Model training and reporting",
		URL:         "https://www.workana.com/job/ds-consulting",
	})
	require.NoError(t, err)

	got, err := s.SearchBySkills(ctx, []string{"data-science"}, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Data science consulting", got[0].Title)

	none, err := s.SearchBySkills(ctx, []string{"golang"}, 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}
