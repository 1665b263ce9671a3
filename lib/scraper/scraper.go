// Package scraper fetches Workana job search pages and extracts raw posting
// records for the persister. It yields data only; persistence and matching
// live elsewhere.
package scraper

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/antchfx/htmlquery"
	"github.com/avergara/jobwatch/lib/models"
	"github.com/carlmjohnson/requests"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

const (
	itemXPath        = "//div[contains(@class, 'project-item') and contains(@class, 'js-project')]"
	titleXPath       = ".//*[contains(@class, 'project-title')]"
	descriptionXPath = ".//*[contains(@class, 'html-desc') and contains(@class, 'project-details')]"
	linkXPath        = ".//a[starts-with(@href, '/job/')]"
	skillXPath       = ".//div[contains(@class, 'skills')]//a[contains(@class, 'skill')]"
	skillNameXPath   = ".//h3"
)

type Scraper struct {
	log       *zap.Logger
	transport http.RoundTripper
}

func NewScraper(log *zap.Logger, transport http.RoundTripper) *Scraper {
	return &Scraper{log: log, transport: transport}
}

// Fetch downloads a search page and extracts its posting cards. Cards missing
// a title or job link are skipped; a broken skill node drops only that skill.
func (s *Scraper) Fetch(ctx context.Context, pageURL string) ([]models.RawPosting, error) {
	var body string
	err := requests.URL(pageURL).
		Transport(s.transport).
		ToString(&body).
		Fetch(ctx)
	if err != nil {
		return nil, err
	}

	doc, err := htmlquery.Parse(strings.NewReader(body))
	if err != nil {
		return nil, err
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, err
	}

	var postings []models.RawPosting
	for _, item := range htmlquery.Find(doc, itemXPath) {
		posting, ok := s.extractPosting(item, base)
		if !ok {
			continue
		}
		postings = append(postings, posting)
	}

	s.log.Sugar().Infow("Scraped search page", "url", pageURL, "postings", len(postings))
	return postings, nil
}

func (s *Scraper) extractPosting(item *html.Node, base *url.URL) (models.RawPosting, bool) {
	title := selectText(item, titleXPath)
	link := resolveHref(base, attrOf(htmlquery.FindOne(item, linkXPath), "href"))
	if title == "" || link == "" {
		return models.RawPosting{}, false
	}

	posting := models.RawPosting{
		Title:       title,
		Description: selectText(item, descriptionXPath),
		URL:         link,
	}

	for _, node := range htmlquery.Find(item, skillXPath) {
		name := selectText(node, skillNameXPath)
		if name == "" {
			continue
		}
		href := attrOf(node, "href")
		posting.Tags = append(posting.Tags, models.RawTag{
			Name: name,
			Slug: slugFromHref(href),
			Href: href,
		})
	}
	return posting, true
}

// slugFromHref recovers the skill slug from the link's "skills" query
// parameter; an unparseable link yields an empty slug and the matcher falls
// back to the display name.
func slugFromHref(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return u.Query().Get("skills")
}

func resolveHref(base *url.URL, href string) string {
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}

func attrOf(n *html.Node, key string) string {
	if n == nil {
		return ""
	}
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}
