package scrape

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"github.com/ondes-hq/radio-catalog/internal/catalog"
	"github.com/ondes-hq/radio-catalog/pkg/httpclient"
)

type pageClient struct {
	t      *testing.T
	pages  map[string]string
	status int
	err    error
}

type pageResponse struct {
	body   []byte
	status int
}

func (r pageResponse) Body() []byte    { return r.body }
func (r pageResponse) StatusCode() int { return r.status }

func (c *pageClient) Get(_ context.Context, url string, _ map[string]string) (httpclient.Response, error) {
	if c.err != nil {
		return nil, c.err
	}
	body, ok := c.pages[url]
	if !ok {
		return pageResponse{status: 404}, nil
	}
	status := c.status
	if status == 0 {
		status = 200
	}
	return pageResponse{body: []byte(body), status: status}, nil
}

func (c *pageClient) Post(context.Context, string, map[string]string, []byte) (httpclient.Response, error) {
	c.t.Fatal("scraper must not issue POST requests")
	return nil, nil
}

func newTestScraper(t *testing.T, pages map[string]string) *Scraper {
	t.Helper()
	return New(Options{
		HTTP:        &pageClient{t: t, pages: pages},
		BaseURL:     "https://www.example.fr",
		PodcastsURL: "https://www.example.fr/podcasts",
	})
}

const episodePrimaryHTML = `<html><head>
<meta property="og:title" content="Episode title"/>
<meta property="og:description" content="Episode synopsis"/>
<meta property="og:audio" content="https://media.example.fr/ep.mp3"/>
</head><body></body></html>`

// No og:audio tag; the stream URL is only reachable through a fallback selector.
const episodeFallbackHTML = `<html><head><title>Fallback page</title></head><body>
<h1>Fallback episode</h1>
<a href="/audio/ep-42.mp3">Télécharger</a>
</body></html>`

func TestAudioInfoPrimarySelector(t *testing.T) {
	scraper := newTestScraper(t, map[string]string{
		"https://www.example.fr/ep": episodePrimaryHTML,
	})

	diffusion, err := scraper.AudioInfo(context.Background(), "https://www.example.fr/ep")
	if err != nil {
		t.Fatalf("AudioInfo returned error: %v", err)
	}
	if diffusion.StreamURL != "https://media.example.fr/ep.mp3" {
		t.Errorf("expected stream url from og:audio, got %q", diffusion.StreamURL)
	}
	if diffusion.Title != "Episode title" {
		t.Errorf("expected title from og:title, got %q", diffusion.Title)
	}
}

func TestAudioInfoFallbackSelector(t *testing.T) {
	scraper := newTestScraper(t, map[string]string{
		"https://www.example.fr/ep-42": episodeFallbackHTML,
	})

	diffusion, err := scraper.AudioInfo(context.Background(), "https://www.example.fr/ep-42")
	if err != nil {
		t.Fatalf("AudioInfo returned error: %v", err)
	}
	if diffusion.StreamURL != "https://www.example.fr/audio/ep-42.mp3" {
		t.Errorf("expected relative mp3 href resolved against page, got %q", diffusion.StreamURL)
	}
	if diffusion.Title != "Fallback episode" {
		t.Errorf("expected h1 fallback title, got %q", diffusion.Title)
	}
	// Synopsis has no matching selector on this page: absent, not an error.
	if diffusion.Synopsis != "" {
		t.Errorf("expected synopsis to stay absent, got %q", diffusion.Synopsis)
	}
}

func TestFetchFailureIsScrapeUnavailable(t *testing.T) {
	scraper := newTestScraper(t, nil) // every URL 404s

	_, err := scraper.AudioInfo(context.Background(), "https://www.example.fr/missing")
	if !errors.Is(err, catalog.ErrScrapeUnavailable) {
		t.Fatalf("expected ErrScrapeUnavailable, got %v", err)
	}
}

func TestFillFieldsExtractsOnlyRequested(t *testing.T) {
	scraper := newTestScraper(t, map[string]string{
		"https://www.example.fr/ep": episodePrimaryHTML,
	})

	fields, err := scraper.FillFields(context.Background(), "https://www.example.fr/ep", []string{FieldStreamURL})
	if err != nil {
		t.Fatalf("FillFields returned error: %v", err)
	}
	if fields[FieldStreamURL] != "https://media.example.fr/ep.mp3" {
		t.Errorf("expected stream url, got %q", fields[FieldStreamURL])
	}
	if _, ok := fields[FieldTitle]; ok {
		t.Error("expected only requested fields to be extracted")
	}
}

func TestCategoriesUsesSelectorChain(t *testing.T) {
	const listing = `<html><body>
<nav>
  <a href="/podcasts/histoire">Histoire</a>
  <a href="/podcasts/musique">Musique</a>
  <a href="/podcasts/histoire">Histoire</a>
</nav>
</body></html>`
	scraper := newTestScraper(t, map[string]string{
		"https://www.example.fr/podcasts": listing,
	})

	categories, err := scraper.Categories(context.Background())
	if err != nil {
		t.Fatalf("Categories returned error: %v", err)
	}
	if len(categories) != 2 {
		t.Fatalf("expected 2 deduplicated categories, got %d", len(categories))
	}
	if categories[0].Title != "Histoire" || categories[0].URL != "https://www.example.fr/podcasts/histoire" {
		t.Errorf("unexpected first category: %+v", categories[0])
	}
	if categories[0].Type != "category" {
		t.Errorf("expected category type, got %q", categories[0].Type)
	}
}

func TestRuleExtractFirstNonEmptyWins(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader([]byte(
		`<html><head><meta property="og:title" content=""/><title>From title tag</title></head></html>`,
	)))
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}

	rule := Rule{Field: FieldTitle, Steps: []Step{
		{Selector: `meta[property="og:title"]`, Attr: "content"},
		{Selector: `title`},
	}}
	if got := rule.Extract(doc); got != "From title tag" {
		t.Errorf("expected fallback to title tag, got %q", got)
	}
}
