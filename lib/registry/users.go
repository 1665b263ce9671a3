package registry

import (
	"context"
	"errors"

	"github.com/avergara/jobwatch/lib/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserRegistry maps chat identities to user rows and their normalized skill
// sets. Skill slugs are normalized here, on every write path; nothing
// downstream re-normalizes on read.
type UserRegistry struct {
	log *zap.Logger
	db  *gorm.DB
}

func NewUserRegistry(log *zap.Logger, db *gorm.DB) *UserRegistry {
	return &UserRegistry{log: log, db: db}
}

// Register creates a user on first sight, or reactivates a soft-deleted one.
// Registering an already-active user is a no-op and returns false.
func (r *UserRegistry) Register(ctx context.Context, telegramID int64, username string) (bool, error) {
	var user models.User
	tx := r.db.WithContext(ctx).Where("telegram_id = ?", telegramID).First(&user)

	if err := tx.Error; errors.Is(err, gorm.ErrRecordNotFound) {
		user = models.User{
			TelegramID: telegramID,
			Username:   username,
			Active:     true,
			Role:       models.RoleUser,
			NotifyVia:  models.NotifyViaTelegram,
		}
		if err := r.db.WithContext(ctx).Create(&user).Error; err != nil {
			return false, err
		}
		return true, nil
	} else if err != nil {
		return false, err
	}

	if user.Active {
		return false, nil
	}

	tx = r.db.WithContext(ctx).
		Model(&user).
		Updates(map[string]any{"username": username, "active": true})
	if err := tx.Error; err != nil {
		return false, err
	}
	return true, nil
}

// Deactivate soft-deletes a user: the row stays, matching stops.
func (r *UserRegistry) Deactivate(ctx context.Context, telegramID int64) (bool, error) {
	tx := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("telegram_id = ?", telegramID).
		Update("active", false)
	if err := tx.Error; err != nil {
		return false, err
	}
	return tx.RowsAffected > 0, nil
}

// Delete hard-deletes a user and cascades away their skills.
func (r *UserRegistry) Delete(ctx context.Context, telegramID int64) (bool, error) {
	user, err := r.find(ctx, telegramID)
	if err != nil {
		return false, err
	}
	if user == nil {
		return false, nil
	}

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.UserSkill{}).Error; err != nil {
			return err
		}
		return tx.Unscoped().Delete(&models.User{}, user.ID).Error
	})
	return err == nil, err
}

// AddSkill records a normalized skill for the user. Adding an existing skill
// succeeds without duplication. Returns the slug that was stored.
func (r *UserRegistry) AddSkill(ctx context.Context, telegramID int64, skill string) (string, error) {
	slug := models.Slugify(skill)
	if slug == "" {
		return "", errors.New("skill must not be empty")
	}

	user, err := r.find(ctx, telegramID)
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", errors.New("user is not registered")
	}

	row := models.UserSkill{UserID: user.ID, Slug: slug}
	tx := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row)
	if err := tx.Error; err != nil {
		return "", err
	}
	return slug, nil
}

// RemoveSkill deletes one skill; removing a missing skill is a no-op success.
func (r *UserRegistry) RemoveSkill(ctx context.Context, telegramID int64, skill string) (bool, error) {
	slug := models.Slugify(skill)
	if slug == "" {
		return false, nil
	}

	user, err := r.find(ctx, telegramID)
	if err != nil || user == nil {
		return false, err
	}

	tx := r.db.WithContext(ctx).
		Where("user_id = ? AND slug = ?", user.ID, slug).
		Delete(&models.UserSkill{})
	if err := tx.Error; err != nil {
		return false, err
	}
	return tx.RowsAffected > 0, nil
}

// ClearSkills removes every skill the user has; returns how many were removed.
func (r *UserRegistry) ClearSkills(ctx context.Context, telegramID int64) (int, error) {
	user, err := r.find(ctx, telegramID)
	if err != nil || user == nil {
		return 0, err
	}

	tx := r.db.WithContext(ctx).
		Where("user_id = ?", user.ID).
		Delete(&models.UserSkill{})
	if err := tx.Error; err != nil {
		return 0, err
	}
	return int(tx.RowsAffected), nil
}

func (r *UserRegistry) HasSkill(ctx context.Context, telegramID int64, skill string) (bool, error) {
	slug := models.Slugify(skill)
	if slug == "" {
		return false, nil
	}

	user, err := r.find(ctx, telegramID)
	if err != nil || user == nil {
		return false, err
	}

	var count int64
	tx := r.db.WithContext(ctx).
		Model(&models.UserSkill{}).
		Where("user_id = ? AND slug = ?", user.ID, slug).
		Count(&count)
	if err := tx.Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Skills returns the user's slugs, sorted.
func (r *UserRegistry) Skills(ctx context.Context, telegramID int64) ([]string, error) {
	user, err := r.find(ctx, telegramID)
	if err != nil || user == nil {
		return nil, err
	}

	var slugs []string
	tx := r.db.WithContext(ctx).
		Model(&models.UserSkill{}).
		Where("user_id = ?", user.ID).
		Order("slug").
		Pluck("slug", &slugs)
	if err := tx.Error; err != nil {
		return nil, err
	}
	return slugs, nil
}

// ActiveUserSkillMap returns one entry per active user with at least one
// recorded skill, keyed by chat identity. Users without skills are omitted.
func (r *UserRegistry) ActiveUserSkillMap(ctx context.Context) (map[int64][]string, error) {
	type row struct {
		TelegramID int64
		Slug       string
	}
	var rows []row
	tx := r.db.WithContext(ctx).
		Table("user_skills").
		Select("users.telegram_id AS telegram_id, user_skills.slug AS slug").
		Joins("INNER JOIN users ON users.id = user_skills.user_id").
		Where("users.active = ?", true).
		Where("users.deleted_at IS NULL").
		Order("users.telegram_id").
		Scan(&rows)
	if err := tx.Error; err != nil {
		return nil, err
	}

	result := make(map[int64][]string, len(rows))
	for _, r := range rows {
		if r.Slug == "" {
			continue
		}
		result[r.TelegramID] = append(result[r.TelegramID], r.Slug)
	}
	return result, nil
}

// ActiveUsers returns active user rows keyed by chat identity, for dispatch.
func (r *UserRegistry) ActiveUsers(ctx context.Context) (map[int64]models.User, error) {
	var users []models.User
	tx := r.db.WithContext(ctx).Where("active = ?", true).Find(&users)
	if err := tx.Error; err != nil {
		return nil, err
	}

	result := make(map[int64]models.User, len(users))
	for _, u := range users {
		result[u.TelegramID] = u
	}
	return result, nil
}

func (r *UserRegistry) find(ctx context.Context, telegramID int64) (*models.User, error) {
	var user models.User
	tx := r.db.WithContext(ctx).Where("telegram_id = ?", telegramID).First(&user)
	if err := tx.Error; errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return &user, nil
}
