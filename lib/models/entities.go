package models

import (
	"database/sql"
	"time"

	"gorm.io/gorm"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
	// RoleSystem marks the placeholder account that owns scraped postings.
	RoleSystem = "system"

	NotifyViaTelegram = "telegram"
	NotifyViaEmail    = "email"

	WatermarkSkillScan = "skill_scan"
	FlagScrapeEnabled  = "scrape_enabled"
)

// OwnerTelegramID identifies the placeholder account that satisfies the
// postings.user_id relation for rows produced by the scraper.
const OwnerTelegramID int64 = 123456789

type User struct {
	gorm.Model
	TelegramID int64 `gorm:"uniqueIndex"`
	Username   string
	Active     bool
	Role       string
	NotifyVia  string
	Email      string

	Skills []UserSkill
}

// UserSkill rows are hard-deleted; a soft-delete marker would keep the
// (user_id, slug) unique index occupied and block re-adding a removed skill.
type UserSkill struct {
	ID        uint `gorm:"primarykey"`
	CreatedAt time.Time
	UserID    uint   `gorm:"uniqueIndex:idx_user_slug"`
	Slug      string `gorm:"uniqueIndex:idx_user_slug"`
}

// Posting is one scraped job listing. URL is the natural key but is
// deliberately not unique-indexed: upserts resolve duplicates by always
// addressing the most-recently-inserted row per URL, under a single-writer
// assumption. See PostingStore.Upsert.
type Posting struct {
	gorm.Model
	UserID      uint
	PostedAt    sql.NullTime
	Title       string
	Description string
	URL         string `gorm:"index"`

	Tags []PostingTag `gorm:"foreignKey:PostingID"`
}

type Postings []Posting

// PostingTag rows are hard-deleted so ReplaceTags can re-insert the same
// (posting, name, slug) after wiping the old set.
type PostingTag struct {
	ID        uint `gorm:"primarykey"`
	CreatedAt time.Time
	PostingID uint   `gorm:"uniqueIndex:idx_posting_name_slug"`
	Name      string `gorm:"uniqueIndex:idx_posting_name_slug"`
	Slug      string `gorm:"uniqueIndex:idx_posting_name_slug"`
	Href      string
}

// Watermark records when a named scan last completed. A single row (named
// WatermarkSkillScan) bounds which postings the notification scan considers.
type Watermark struct {
	gorm.Model
	Name       string `gorm:"uniqueIndex"`
	LastScanAt time.Time
}

type FlagVariable struct {
	gorm.Model
	Name  string `gorm:"uniqueIndex"`
	Value string
}
