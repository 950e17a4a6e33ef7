package scrape

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Page layouts shift without notice, so every field is extracted through an
// ordered chain of strategies: the first step yielding a non-empty value
// wins. Each step is a pure function over a parsed document, which keeps
// the chains testable against fixture HTML.

// Step is one extraction attempt: a CSS selector plus the attribute to
// read. An empty Attr reads the node's text content.
type Step struct {
	Selector string
	Attr     string
}

// Rule is the ordered fallback chain for one named field.
type Rule struct {
	Field string
	Steps []Step
}

// Extract runs the chain against the document and returns the first
// non-empty value, or "" when every step misses.
func (r Rule) Extract(doc *goquery.Document) string {
	for _, step := range r.Steps {
		if v := step.extract(doc); v != "" {
			return v
		}
	}
	return ""
}

func (s Step) extract(doc *goquery.Document) string {
	node := doc.Find(s.Selector).First()
	if node.Length() == 0 {
		return ""
	}
	if s.Attr == "" {
		return strings.TrimSpace(node.Text())
	}
	val, ok := node.Attr(s.Attr)
	if !ok {
		return ""
	}
	return strings.TrimSpace(val)
}

// Field names understood by the merger and the scrape operations.
const (
	FieldTitle       = "title"
	FieldSynopsis    = "synopsis"
	FieldDescription = "description"
	FieldStreamURL   = "stream_url"
	FieldStation     = "station"
)

var pageRules = map[string]Rule{
	FieldTitle: {
		Field: FieldTitle,
		Steps: []Step{
			{Selector: `meta[property="og:title"]`, Attr: "content"},
			{Selector: `h1`},
			{Selector: `title`},
		},
	},
	FieldSynopsis: {
		Field: FieldSynopsis,
		Steps: []Step{
			{Selector: `meta[property="og:description"]`, Attr: "content"},
			{Selector: `meta[name="description"]`, Attr: "content"},
			{Selector: `p.episode-synopsis`},
		},
	},
	FieldDescription: {
		Field: FieldDescription,
		Steps: []Step{
			{Selector: `meta[property="og:description"]`, Attr: "content"},
			{Selector: `meta[name="description"]`, Attr: "content"},
			{Selector: `div.podcast-description p`},
		},
	},
	FieldStreamURL: {
		Field: FieldStreamURL,
		Steps: []Step{
			{Selector: `meta[property="og:audio"]`, Attr: "content"},
			{Selector: `audio source`, Attr: "src"},
			{Selector: `audio`, Attr: "src"},
			{Selector: `button[data-url]`, Attr: "data-url"},
			{Selector: `[data-asset-source]`, Attr: "data-asset-source"},
			{Selector: `a[href$=".mp3"]`, Attr: "href"},
		},
	},
	FieldStation: {
		Field: FieldStation,
		Steps: []Step{
			{Selector: `meta[property="og:site_name"]`, Attr: "content"},
			{Selector: `a.station-link`},
		},
	},
}

// RuleFor returns the fallback chain registered for a field name.
func RuleFor(field string) (Rule, bool) {
	r, ok := pageRules[field]
	return r, ok
}

// categoryLinkSelectors are tried in order when listing podcast categories;
// each selector is expected to match anchor elements.
var categoryLinkSelectors = []string{
	`nav a[href*="/podcasts/"]`,
	`ul.categories-list a`,
	`a[data-testid="category-link"]`,
}
