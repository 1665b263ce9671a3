package app

import (
	"database/sql"
	"time"

	"github.com/avergara/jobwatch/lib/models"
)

type PostingView struct {
	ID          uint      `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	PostedAt    *string   `json:"posted_at"`
	Tags        []TagView `json:"tags"`
}

type TagView struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

func (view TagView) From(entity models.PostingTag) TagView {
	return TagView{
		Name: entity.Name,
		Slug: entity.Slug,
	}
}

func (view PostingView) From(entity models.Posting) PostingView {
	return PostingView{
		ID:          entity.ID,
		Title:       entity.Title,
		Description: entity.Description,
		URL:         entity.URL,
		PostedAt:    isoformat(entity.PostedAt),
		Tags:        FromMany[models.PostingTag, TagView](entity.Tags),
	}
}

type Fromable[Entity any, Repr any] interface {
	From(Entity) Repr
}

func FromMany[T any, U Fromable[T, U]](elems []T) []U {
	out := make([]U, len(elems))
	for i, t := range elems {
		var u U
		out[i] = u.From(t)
	}
	return out
}

func isoformat(t sql.NullTime) *string {
	if t.Valid {
		s := t.Time.UTC().Format(time.RFC3339)
		return &s
	}
	return nil
}
