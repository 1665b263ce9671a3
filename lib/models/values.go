package models

import (
	"strings"
	"time"
)

// RawPosting is one record handed over by the scraper, before persistence.
type RawPosting struct {
	Title       string
	Description string
	URL         string
	PostedAt    *time.Time
	Tags        []RawTag
}

func (p RawPosting) Valid() bool {
	return p.Title != "" && p.URL != ""
}

type RawTag struct {
	Name string
	Slug string
	Href string
}

// Slugify normalizes a skill to its canonical slug: trimmed, lowercased,
// whitespace runs collapsed into single hyphens. Every skill write path goes
// through this; read paths assume slugs are already normalized.
func Slugify(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), "-")
}
