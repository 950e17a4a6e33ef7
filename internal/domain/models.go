package domain

// Domain contains core catalog models shared across packages.

import (
	"net/url"
	"strings"
	"time"
)

// Taxonomy is a category, theme or tag grouping content in the remote catalog.
type Taxonomy struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Type        string `json:"type,omitempty"`
	URL         string `json:"url,omitempty"`
	Description string `json:"description,omitempty"`
}

// Station is one broadcast station. The set of stations is small and stable.
type Station struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Brand is a show or podcast series. A Brand is referenced by, never owned
// by, its Diffusions.
type Brand struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Description  string   `json:"description,omitempty"`
	URL          string   `json:"url,omitempty"`
	StationRef   string   `json:"station,omitempty"`
	TaxonomyRefs []string `json:"taxonomies,omitempty"`
}

// Diffusion is a single broadcast/episode content item. StreamURL is
// frequently absent from the graph service and is filled by scraping.
type Diffusion struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	URL         string         `json:"url,omitempty"`
	Synopsis    string         `json:"synopsis,omitempty"`
	PublishedAt time.Time      `json:"published_at,omitzero"`
	Duration    *time.Duration `json:"duration,omitempty"`
	BrandRef    string         `json:"brand,omitempty"`
	StationRef  string         `json:"station,omitempty"`
	StreamURL   string         `json:"stream_url,omitempty"`
}

// ProgramGridEntry is one slot of a station's schedule. Entries within a
// grid are sorted ascending by StartTime and never overlap.
type ProgramGridEntry struct {
	StationRef string    `json:"station"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
	Diffusion  Diffusion `json:"diffusion"`
}

// Source identifies which upstream supplied a record (or a merge of both).
type Source string

const (
	SourceGraph  Source = "graph"
	SourceScrape Source = "scrape"
	SourceMerged Source = "merged"
)

// Provenance records where a result item came from, which fan-out branches
// surfaced it, and which required fields no source could fill.
type Provenance struct {
	Source        Source   `json:"source"`
	Origins       []string `json:"origins,omitempty"`
	MissingFields []string `json:"missing_fields,omitempty"`
}

// SearchItem is one ranked search hit: either a Diffusion or a Brand.
type SearchItem struct {
	Diffusion *Diffusion `json:"diffusion,omitempty"`
	Brand     *Brand     `json:"brand,omitempty"`
}

// Key returns the stable identity key of the item.
func (it SearchItem) Key() string {
	switch {
	case it.Diffusion != nil:
		return it.Diffusion.Key()
	case it.Brand != nil:
		return it.Brand.Key()
	default:
		return ""
	}
}

// Title returns the display title of the item.
func (it SearchItem) Title() string {
	switch {
	case it.Diffusion != nil:
		return it.Diffusion.Title
	case it.Brand != nil:
		return it.Brand.Title
	default:
		return ""
	}
}

// SearchResult is the externally returned search shape. SourceMix records,
// per identity key, which data source supplied each item.
type SearchResult struct {
	Items           []SearchItem          `json:"items"`
	TotalConsidered int                   `json:"total_considered"`
	SourceMix       map[string]Provenance `json:"source_mix,omitempty"`
}

// Key returns the stable identity key: the remote ID when present,
// otherwise the canonical URL.
func (d Diffusion) Key() string {
	if d.ID != "" {
		return d.ID
	}
	return CanonicalURL(d.URL)
}

// Key returns the stable identity key: the remote ID when present,
// otherwise the canonical URL.
func (b Brand) Key() string {
	if b.ID != "" {
		return b.ID
	}
	return CanonicalURL(b.URL)
}

// CanonicalURL normalizes a URL for identity comparison: lowercased scheme
// and host, no fragment, no trailing slash. Invalid URLs fall back to the
// trimmed raw string so deduplication still has a usable key.
func CanonicalURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return strings.TrimRight(raw, "/")
	}
	parsed.Scheme = strings.ToLower(parsed.Scheme)
	parsed.Host = strings.ToLower(parsed.Host)
	parsed.Fragment = ""
	parsed.Path = strings.TrimRight(parsed.Path, "/")
	return parsed.String()
}
