package scraper

import (
	"context"
	"net/http"
	"testing"

	"github.com/h2non/gock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const searchPageFixture = `
<html><body>
<div class="project-item js-project">
  <h2 class="project-title"><a href="/job/build-a-scraper">Build a scraper</a></h2>
  <div class="html-desc project-details">Need a scraper for  product pages.</div>
  <div class="skills">
    <a class="skill" href="/jobs?skills=python"><h3>Python</h3></a>
    <a class="skill" href="/jobs?skills=data-science"><h3>Data Science</h3></a>
  </div>
</div>
<div class="project-item js-project">
  <h2 class="project-title"><a href="/job/tune-mysql">Tune MySQL</a></h2>
  <div class="html-desc project-details">Slow queries.</div>
  <div class="skills">
    <a class="skill" href="not a url at all"><h3>MySQL</h3></a>
  </div>
</div>
<div class="project-item js-project">
  <h2 class="project-title"></h2>
  <div class="html-desc project-details">Card without title or link.</div>
</div>
</body></html>`

func TestFetchExtractsPostings(t *testing.T) {
	defer gock.Off()
	gock.New("https://www.workana.com").
		Get("/jobs").
		Reply(200).
		BodyString(searchPageFixture)

	s := NewScraper(zap.NewNop(), http.DefaultTransport)
	postings, err := s.Fetch(context.Background(), "https://www.workana.com/jobs?language=es")
	require.NoError(t, err)
	require.Len(t, postings, 2)

	first := postings[0]
	assert.Equal(t, "Build a scraper", first.Title)
	assert.Equal(t, "Need a scraper for product pages.", first.Description)
	assert.Equal(t, "https://www.workana.com/job/build-a-scraper", first.URL)
	require.Len(t, first.Tags, 2)
	assert.Equal(t, "Python", first.Tags[0].Name)
	assert.Equal(t, "python", first.Tags[0].Slug)
	assert.Equal(t, "data-science", first.Tags[1].Slug)

	second := postings[1]
	assert.Equal(t, "https://www.workana.com/job/tune-mysql", second.URL)
	require.Len(t, second.Tags, 1)
	assert.Equal(t, "MySQL", second.Tags[0].Name)
	// Slug falls back to empty when the skill link is unparseable.
	assert.Equal(t, "", second.Tags[0].Slug)

	assert.True(t, gock.IsDone())
}

func TestFetchPropagatesHTTPFailure(t *testing.T) {
	defer gock.Off()
	gock.New("https://www.workana.com").
		Get("/jobs").
		Reply(503)

	s := NewScraper(zap.NewNop(), http.DefaultTransport)
	_, err := s.Fetch(context.Background(), "https://www.workana.com/jobs")
	assert.Error(t, err)
}

func TestBuildSearchURL(t *testing.T) {
	got := BuildSearchURL("https://www.workana.com/jobs", SearchParams{
		Language: "es",
		Query:    "python",
		Skills:   []string{"Data Science", "mysql"},
	})
	assert.Equal(t, "https://www.workana.com/jobs?language=es&query=python&skills=data-science%2Cmysql", got)
}

func TestBuildSearchURLNoParams(t *testing.T) {
	got := BuildSearchURL("https://www.workana.com/jobs", SearchParams{})
	assert.Equal(t, "https://www.workana.com/jobs", got)
}
