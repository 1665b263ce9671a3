// Package match computes skill overlap between a posting's tags and user
// skill profiles. It is pure: no I/O, deterministic output.
package match

import (
	"sort"
	"strings"

	"github.com/avergara/jobwatch/lib/models"
)

// Match returns, for each user whose skills intersect the posting's tags, the
// overlapping slugs sorted ascending. A posting with no usable tags matches
// nobody. Hyphenated slugs and their space-separated variants are treated as
// the same skill token, defending against inconsistent normalization
// upstream.
func Match(tags []models.PostingTag, userSkills map[int64][]string) map[int64][]string {
	postingSet := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		if c := canonical(tagToken(tag)); c != "" {
			postingSet[c] = struct{}{}
		}
	}

	result := make(map[int64][]string)
	if len(postingSet) == 0 {
		return result
	}

	for userID, skills := range userSkills {
		var overlap []string
		seen := make(map[string]struct{})
		for _, skill := range skills {
			c := canonical(skill)
			if c == "" {
				continue
			}
			if _, dup := seen[c]; dup {
				continue
			}
			if _, ok := postingSet[c]; ok {
				overlap = append(overlap, c)
				seen[c] = struct{}{}
			}
		}
		if len(overlap) > 0 {
			sort.Strings(overlap)
			result[userID] = overlap
		}
	}
	return result
}

// tagToken picks the comparable token for a tag, preferring the slug over
// the display name.
func tagToken(tag models.PostingTag) string {
	if tag.Slug != "" {
		return tag.Slug
	}
	return tag.Name
}

// canonical folds the hyphen/space variants of a slug into one form, so
// "data-science" and "data science" compare equal.
func canonical(s string) string {
	return models.Slugify(strings.ReplaceAll(s, "-", " "))
}
