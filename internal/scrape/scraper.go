package scrape

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/ondes-hq/radio-catalog/internal/catalog"
	"github.com/ondes-hq/radio-catalog/internal/domain"
	"github.com/ondes-hq/radio-catalog/internal/logger"
	"github.com/ondes-hq/radio-catalog/pkg/httpclient"
)

const maxHTMLBodyBytes = 1 << 20 // 1 MiB

// Scraper fetches the broadcaster's public pages and extracts fields the
// graph service does not expose. Extraction is read-only and idempotent.
type Scraper struct {
	client      httpclient.Client
	baseURL     string
	podcastsURL string
	userAgent   string
	log         logger.Logger
}

// Options tunes a Scraper. Zero values fall back to defaults.
type Options struct {
	HTTP        httpclient.Client
	BaseURL     string
	PodcastsURL string
	UserAgent   string
	Logger      logger.Logger
}

// New builds a scraper from options.
func New(opts Options) *Scraper {
	if opts.HTTP == nil {
		opts.HTTP = httpclient.NewRestyClient(15 * time.Second)
	}
	if opts.Logger == nil {
		opts.Logger = logger.NopLogger{}
	}
	return &Scraper{
		client:      opts.HTTP,
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		podcastsURL: strings.TrimRight(opts.PodcastsURL, "/"),
		userAgent:   opts.UserAgent,
		log:         opts.Logger,
	}
}

// fetchDocument retrieves and parses one page. Any retrieval failure maps
// to ErrScrapeUnavailable; parse failures do too, since an unparseable body
// is as useless as an unreachable page.
func (s *Scraper) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	headers := map[string]string{}
	if s.userAgent != "" {
		headers["User-Agent"] = s.userAgent
	}

	resp, err := s.client.Get(ctx, pageURL, headers)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w: %w", pageURL, catalog.ErrScrapeUnavailable, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("fetch %s status %d: %w", pageURL, resp.StatusCode(), catalog.ErrScrapeUnavailable)
	}

	body := resp.Body()
	if len(body) > maxHTMLBodyBytes {
		body = body[:maxHTMLBodyBytes]
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w: %w", pageURL, catalog.ErrScrapeUnavailable, err)
	}
	return doc, nil
}

// FillFields fetches the page once and extracts the requested fields.
// Fields whose whole chain misses are simply absent from the returned map;
// a missing optional field never aborts the operation.
func (s *Scraper) FillFields(ctx context.Context, pageURL string, fields []string) (map[string]string, error) {
	doc, err := s.fetchDocument(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	out := make(map[string]string, len(fields))
	for _, field := range fields {
		rule, ok := RuleFor(field)
		if !ok {
			continue
		}
		if v := rule.Extract(doc); v != "" {
			out[field] = s.absoluteURL(pageURL, field, v)
		}
	}
	return out, nil
}

// Categories lists the podcast categories from the podcasts landing page.
// There is no graph-service equivalent for this listing.
func (s *Scraper) Categories(ctx context.Context) ([]domain.Taxonomy, error) {
	doc, err := s.fetchDocument(ctx, s.podcastsURL)
	if err != nil {
		return nil, err
	}

	for _, selector := range categoryLinkSelectors {
		categories := s.collectCategoryLinks(doc, selector)
		if len(categories) > 0 {
			return categories, nil
		}
	}

	s.log.WarnObj("no podcast categories matched any selector", "page", s.podcastsURL)
	return []domain.Taxonomy{}, nil
}

func (s *Scraper) collectCategoryLinks(doc *goquery.Document, selector string) []domain.Taxonomy {
	var categories []domain.Taxonomy
	seen := make(map[string]struct{})

	doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
		title := strings.TrimSpace(sel.Text())
		href, _ := sel.Attr("href")
		href = strings.TrimSpace(href)
		if title == "" || href == "" {
			return
		}
		full := s.resolveHref(href)
		key := domain.CanonicalURL(full)
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		categories = append(categories, domain.Taxonomy{
			Title: title,
			Type:  "category",
			URL:   full,
		})
	})

	return categories
}

// PodcastDetails scrapes a podcast/brand page.
func (s *Scraper) PodcastDetails(ctx context.Context, pageURL string) (domain.Brand, error) {
	doc, err := s.fetchDocument(ctx, pageURL)
	if err != nil {
		return domain.Brand{}, err
	}

	brand := domain.Brand{URL: pageURL}
	if rule, ok := RuleFor(FieldTitle); ok {
		brand.Title = rule.Extract(doc)
	}
	if rule, ok := RuleFor(FieldDescription); ok {
		brand.Description = rule.Extract(doc)
	}
	if rule, ok := RuleFor(FieldStation); ok {
		brand.StationRef = rule.Extract(doc)
	}
	return brand, nil
}

// AudioInfo scrapes an episode page for its stream URL and metadata.
func (s *Scraper) AudioInfo(ctx context.Context, pageURL string) (domain.Diffusion, error) {
	doc, err := s.fetchDocument(ctx, pageURL)
	if err != nil {
		return domain.Diffusion{}, err
	}

	diffusion := domain.Diffusion{URL: pageURL}
	if rule, ok := RuleFor(FieldTitle); ok {
		diffusion.Title = rule.Extract(doc)
	}
	if rule, ok := RuleFor(FieldSynopsis); ok {
		diffusion.Synopsis = rule.Extract(doc)
	}
	if rule, ok := RuleFor(FieldStreamURL); ok {
		diffusion.StreamURL = s.absoluteURL(pageURL, FieldStreamURL, rule.Extract(doc))
	}
	if rule, ok := RuleFor(FieldStation); ok {
		diffusion.StationRef = rule.Extract(doc)
	}
	return diffusion, nil
}

// absoluteURL resolves relative URL-valued fields against the page they
// were scraped from. Non-URL fields pass through untouched.
func (s *Scraper) absoluteURL(pageURL, field, value string) string {
	if value == "" || field != FieldStreamURL {
		return value
	}
	if strings.HasPrefix(value, "http://") || strings.HasPrefix(value, "https://") {
		return value
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return value
	}
	ref, err := url.Parse(value)
	if err != nil {
		return value
	}
	return base.ResolveReference(ref).String()
}

func (s *Scraper) resolveHref(href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	if strings.HasPrefix(href, "/") {
		return s.baseURL + href
	}
	return s.baseURL + "/" + href
}
