package scraper

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/avergara/jobwatch/lib/models"
)

// SearchParams selects which slice of the job board a scrape covers.
type SearchParams struct {
	Language string
	Query    string
	Sort     string
	Page     int
	Skills   []string
}

// BuildSearchURL assembles a job search URL from the base endpoint and the
// given filters. Skills are normalized to slugs and comma-joined the way the
// board's own filter links encode them.
func BuildSearchURL(base string, params SearchParams) string {
	values := url.Values{}
	if params.Language != "" {
		values.Set("language", params.Language)
	}
	if params.Query != "" {
		values.Set("query", params.Query)
	}
	if params.Sort != "" {
		values.Set("sort", params.Sort)
	}
	if params.Page > 1 {
		values.Set("page", strconv.Itoa(params.Page))
	}

	var slugs []string
	for _, skill := range params.Skills {
		if slug := models.Slugify(skill); slug != "" {
			slugs = append(slugs, slug)
		}
	}
	if len(slugs) > 0 {
		values.Set("skills", strings.Join(slugs, ","))
	}

	if encoded := values.Encode(); encoded != "" {
		return base + "?" + encoded
	}
	return base
}
