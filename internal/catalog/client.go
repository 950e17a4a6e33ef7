package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ondes-hq/radio-catalog/internal/domain"
	"github.com/ondes-hq/radio-catalog/internal/logger"
	"github.com/ondes-hq/radio-catalog/pkg/httpclient"
)

const (
	defaultMaxRetries   = 3
	defaultRetryBackoff = 250 * time.Millisecond
)

// Client is a typed wrapper around the broadcaster's graph query endpoint.
// It attaches the credential header, retries transport failures with
// exponential backoff, and maps error payloads onto the package error taxonomy.
type Client struct {
	http       httpclient.Client
	endpoint   string
	apiKey     string
	userAgent  string
	maxRetries int
	backoff    time.Duration
	log        logger.Logger
}

// Options tunes a Client. Zero values fall back to defaults.
type Options struct {
	Endpoint   string
	APIKey     string
	UserAgent  string
	MaxRetries int
	Backoff    time.Duration
	HTTP       httpclient.Client
	Logger     logger.Logger
}

// New builds a graph client from options.
func New(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.Endpoint) == "" {
		return nil, fmt.Errorf("catalog endpoint must not be empty")
	}
	if opts.HTTP == nil {
		opts.HTTP = httpclient.NewRestyClient(15 * time.Second)
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = defaultMaxRetries
	}
	if opts.Backoff <= 0 {
		opts.Backoff = defaultRetryBackoff
	}
	if opts.Logger == nil {
		opts.Logger = logger.NopLogger{}
	}
	return &Client{
		http:       opts.HTTP,
		endpoint:   opts.Endpoint,
		apiKey:     opts.APIKey,
		userAgent:  opts.UserAgent,
		maxRetries: opts.MaxRetries,
		backoff:    opts.Backoff,
		log:        opts.Logger,
	}, nil
}

type gqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type gqlError struct {
	Message string `json:"message"`
}

type gqlEnvelope struct {
	Data   json.RawMessage `json:"data"`
	Errors []gqlError      `json:"errors,omitempty"`
}

func (c *Client) headers() map[string]string {
	h := map[string]string{
		"Content-Type": "application/json",
	}
	if c.apiKey != "" {
		h["x-token"] = c.apiKey
	}
	if c.userAgent != "" {
		h["User-Agent"] = c.userAgent
	}
	return h
}

// query executes one GraphQL document and decodes the data payload into out.
// Transport failures, 5xx statuses, and malformed payloads are retried with
// exponential backoff; a well-formed errors payload is surfaced as
// UpstreamRejectedError without retrying.
func (c *Client) query(ctx context.Context, name, document string, vars map[string]any, out any) error {
	payload, err := json.Marshal(gqlRequest{Query: document, Variables: vars})
	if err != nil {
		return fmt.Errorf("encode %s request: %w", name, err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			if err := sleepBackoff(ctx, c.backoff, attempt); err != nil {
				return fmt.Errorf("%s: %w: %w", name, ErrUpstreamUnavailable, err)
			}
			c.log.DebugObj("retrying graph query", "retry_meta", map[string]any{
				"operation": name,
				"attempt":   attempt,
			})
		}

		retryable, err := c.execute(ctx, name, payload, out)
		if err == nil {
			return nil
		}
		if !retryable {
			return err
		}
		lastErr = err
	}

	return fmt.Errorf("%s after %d retries: %w: %w", name, c.maxRetries, ErrUpstreamUnavailable, lastErr)
}

// execute performs a single attempt. The bool result reports whether the
// failure is transport-level and worth retrying.
func (c *Client) execute(ctx context.Context, name string, payload []byte, out any) (bool, error) {
	resp, err := c.http.Post(ctx, c.endpoint, c.headers(), payload)
	if err != nil {
		return true, fmt.Errorf("post %s: %w", name, err)
	}

	status := resp.StatusCode()
	switch {
	case status >= http.StatusInternalServerError:
		return true, fmt.Errorf("%s returned status %d", name, status)
	case status != http.StatusOK:
		return false, &UpstreamRejectedError{
			Reason: fmt.Sprintf("%s returned status %d: %s", name, status, responseSnippet(resp.Body())),
		}
	}

	var envelope gqlEnvelope
	if err := json.Unmarshal(resp.Body(), &envelope); err != nil {
		return true, fmt.Errorf("decode %s envelope: %w", name, err)
	}

	if len(envelope.Errors) > 0 {
		reasons := make([]string, 0, len(envelope.Errors))
		for _, e := range envelope.Errors {
			reasons = append(reasons, e.Message)
		}
		return false, &UpstreamRejectedError{Reason: strings.Join(reasons, "; ")}
	}

	if len(envelope.Data) == 0 || string(envelope.Data) == "null" {
		return true, fmt.Errorf("%s returned empty data payload", name)
	}

	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return true, fmt.Errorf("decode %s data: %w", name, err)
	}
	return false, nil
}

func sleepBackoff(ctx context.Context, base time.Duration, attempt int) error {
	delay := base << (attempt - 1)
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func responseSnippet(body []byte) string {
	const maxLen = 512
	s := strings.TrimSpace(string(body))
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	if s == "" {
		return "<empty>"
	}
	return s
}

// --- typed operations -----------------------------------------------------

type taxonomyPayload struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Type        string `json:"type"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

type stationPayload struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type brandRefPayload struct {
	ID      string          `json:"id"`
	Title   string          `json:"title"`
	Station *stationPayload `json:"station"`
}

type diffusionPayload struct {
	ID             string           `json:"id"`
	Title          string           `json:"title"`
	URL            string           `json:"url"`
	StandFirst     string           `json:"standFirst"`
	DiffusionDate  string           `json:"diffusionDate"`
	Brand          *brandRefPayload `json:"brand"`
	PodcastEpisode *struct {
		URL string `json:"url"`
	} `json:"podcastEpisode"`
}

func (p diffusionPayload) toDomain() domain.Diffusion {
	d := domain.Diffusion{
		ID:       p.ID,
		Title:    p.Title,
		URL:      p.URL,
		Synopsis: p.StandFirst,
	}
	if p.DiffusionDate != "" {
		if ts, err := time.Parse(time.RFC3339, p.DiffusionDate); err == nil {
			d.PublishedAt = ts
		}
	}
	if p.Brand != nil {
		d.BrandRef = p.Brand.Title
		if p.Brand.ID != "" {
			d.BrandRef = p.Brand.ID
		}
		if p.Brand.Station != nil {
			d.StationRef = p.Brand.Station.Name
		}
	}
	if p.PodcastEpisode != nil {
		d.StreamURL = p.PodcastEpisode.URL
	}
	return d
}

// brandOf exposes the embedded brand reference of a diffusion payload so
// search paths can surface brands without a second round trip.
func brandOf(p diffusionPayload) (domain.Brand, bool) {
	if p.Brand == nil || (p.Brand.ID == "" && p.Brand.Title == "") {
		return domain.Brand{}, false
	}
	b := domain.Brand{ID: p.Brand.ID, Title: p.Brand.Title}
	if p.Brand.Station != nil {
		b.StationRef = p.Brand.Station.Name
	}
	return b, true
}

// Taxonomies queries taxonomies matching the optional keyword.
func (c *Client) Taxonomies(ctx context.Context, keyword string, limit int) ([]domain.Taxonomy, error) {
	vars := map[string]any{"limit": limit}
	if strings.TrimSpace(keyword) != "" {
		vars["keyword"] = keyword
	}

	var data struct {
		Taxonomies []taxonomyPayload `json:"taxonomies"`
	}
	if err := c.query(ctx, "taxonomies", taxonomiesQuery, vars, &data); err != nil {
		return nil, err
	}

	out := make([]domain.Taxonomy, 0, len(data.Taxonomies))
	for _, t := range data.Taxonomies {
		out = append(out, domain.Taxonomy{
			ID:          t.ID,
			Title:       t.Title,
			Type:        t.Type,
			URL:         t.URL,
			Description: t.Description,
		})
	}
	return out, nil
}

// TaxonomyDiffusions queries diffusions hanging off one taxonomy.
// A null taxonomy in the response means the ID does not exist upstream.
func (c *Client) TaxonomyDiffusions(ctx context.Context, taxonomyID string, limit int) ([]domain.Diffusion, []domain.Brand, error) {
	var data struct {
		Taxonomy *struct {
			ID         string             `json:"id"`
			Title      string             `json:"title"`
			Diffusions []diffusionPayload `json:"diffusions"`
		} `json:"taxonomy"`
	}
	vars := map[string]any{"taxonomyId": taxonomyID, "limit": limit}
	if err := c.query(ctx, "taxonomy diffusions", taxonomyDiffusionsQuery, vars, &data); err != nil {
		return nil, nil, err
	}
	if data.Taxonomy == nil {
		return nil, nil, fmt.Errorf("taxonomy %q: %w", taxonomyID, ErrNotFound)
	}

	diffusions := make([]domain.Diffusion, 0, len(data.Taxonomy.Diffusions))
	brands := make([]domain.Brand, 0, len(data.Taxonomy.Diffusions))
	seen := make(map[string]struct{})
	for _, p := range data.Taxonomy.Diffusions {
		diffusions = append(diffusions, p.toDomain())
		if b, ok := brandOf(p); ok {
			if _, dup := seen[b.Key()]; !dup {
				seen[b.Key()] = struct{}{}
				b.TaxonomyRefs = []string{data.Taxonomy.ID}
				brands = append(brands, b)
			}
		}
	}
	return diffusions, brands, nil
}

// Brand queries a single brand by ID. A null brand means the ID does not
// exist upstream.
func (c *Client) Brand(ctx context.Context, brandID string) (domain.Brand, error) {
	var data struct {
		Brand *struct {
			ID          string          `json:"id"`
			Title       string          `json:"title"`
			Baseline    string          `json:"baseline"`
			Description string          `json:"description"`
			URL         string          `json:"url"`
			Station     *stationPayload `json:"station"`
			Concepts    []struct {
				ID string `json:"id"`
			} `json:"concepts"`
		} `json:"brand"`
	}
	vars := map[string]any{"brandId": brandID}
	if err := c.query(ctx, "brand", brandQuery, vars, &data); err != nil {
		return domain.Brand{}, err
	}
	if data.Brand == nil {
		return domain.Brand{}, fmt.Errorf("brand %q: %w", brandID, ErrNotFound)
	}

	b := domain.Brand{
		ID:          data.Brand.ID,
		Title:       data.Brand.Title,
		Description: data.Brand.Description,
		URL:         data.Brand.URL,
	}
	if b.Description == "" {
		b.Description = data.Brand.Baseline
	}
	if data.Brand.Station != nil {
		b.StationRef = data.Brand.Station.Name
	}
	for _, cpt := range data.Brand.Concepts {
		if cpt.ID != "" {
			b.TaxonomyRefs = append(b.TaxonomyRefs, cpt.ID)
		}
	}
	return b, nil
}

// StationGrid queries the program grid of a station. Entries are returned
// exactly as the remote service ordered them; defensive re-sorting is the
// fetcher's job.
func (c *Client) StationGrid(ctx context.Context, stationCode string) ([]domain.ProgramGridEntry, error) {
	var data struct {
		Grid *struct {
			Station *stationPayload `json:"station"`
			Steps   []struct {
				StartTime int64             `json:"startTime"`
				EndTime   int64             `json:"endTime"`
				Diffusion *diffusionPayload `json:"diffusion"`
			} `json:"steps"`
		} `json:"grid"`
	}
	vars := map[string]any{"stationCode": stationCode}
	if err := c.query(ctx, "grid", gridQuery, vars, &data); err != nil {
		return nil, err
	}
	if data.Grid == nil {
		return nil, fmt.Errorf("station %q: %w", stationCode, ErrNotFound)
	}

	stationName := stationCode
	if data.Grid.Station != nil && data.Grid.Station.Name != "" {
		stationName = data.Grid.Station.Name
	}

	entries := make([]domain.ProgramGridEntry, 0, len(data.Grid.Steps))
	for _, step := range data.Grid.Steps {
		entry := domain.ProgramGridEntry{
			StationRef: stationName,
			StartTime:  time.Unix(step.StartTime, 0).UTC(),
			EndTime:    time.Unix(step.EndTime, 0).UTC(),
		}
		if step.Diffusion != nil {
			entry.Diffusion = step.Diffusion.toDomain()
			entry.Diffusion.StationRef = stationName
			// The grid carries no explicit duration; the slot span is it.
			if span := entry.EndTime.Sub(entry.StartTime); span > 0 {
				entry.Diffusion.Duration = &span
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
