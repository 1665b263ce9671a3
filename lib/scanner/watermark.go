package scanner

import (
	"context"
	"errors"
	"time"

	"github.com/avergara/jobwatch/lib/models"
	"gorm.io/gorm"
)

type watermarkStore struct {
	db *gorm.DB
}

func newWatermarkStore(db *gorm.DB) *watermarkStore {
	return &watermarkStore{db: db}
}

// Load returns the named watermark, or nil when no scan has completed yet.
func (w *watermarkStore) Load(ctx context.Context, name string) (*time.Time, error) {
	var row models.Watermark
	tx := w.db.WithContext(ctx).Where("name = ?", name).First(&row)
	if err := tx.Error; errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	t := row.LastScanAt
	return &t, nil
}

func (w *watermarkStore) Advance(ctx context.Context, name string, to time.Time) error {
	var row models.Watermark
	tx := w.db.WithContext(ctx).
		Where(&models.Watermark{Name: name}).
		Assign(models.Watermark{LastScanAt: to}).
		FirstOrCreate(&row)
	return tx.Error
}
