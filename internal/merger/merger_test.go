package merger

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/ondes-hq/radio-catalog/internal/domain"
	"github.com/ondes-hq/radio-catalog/internal/scrape"
)

type fakeFiller struct {
	mu      sync.Mutex
	byURL   map[string]map[string]string
	failURL string
	calls   []string
}

func (f *fakeFiller) FillFields(_ context.Context, pageURL string, fields []string) (map[string]string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, pageURL)
	f.mu.Unlock()

	if pageURL == f.failURL {
		return nil, errors.New("page unreachable")
	}
	page := f.byURL[pageURL]
	out := make(map[string]string, len(fields))
	for _, field := range fields {
		if v, ok := page[field]; ok {
			out[field] = v
		}
	}
	return out, nil
}

var streamOnly = []string{scrape.FieldStreamURL}

func TestAugmentFillsMissingStreamURL(t *testing.T) {
	filler := &fakeFiller{byURL: map[string]map[string]string{
		"https://example/ep1": {scrape.FieldStreamURL: "https://media.example/ep1.mp3"},
	}}
	m := New(filler, 2, nil)

	records := []domain.Diffusion{
		{ID: "d1", Title: "Ep 1", URL: "https://example/ep1"},
	}
	out, provenance, err := m.Augment(context.Background(), records, streamOnly)
	if err != nil {
		t.Fatalf("Augment returned error: %v", err)
	}
	if out[0].StreamURL != "https://media.example/ep1.mp3" {
		t.Errorf("expected stream url filled, got %q", out[0].StreamURL)
	}
	prov := provenance["d1"]
	if prov.Source != domain.SourceMerged {
		t.Errorf("expected merged provenance, got %q", prov.Source)
	}
	if len(prov.MissingFields) != 0 {
		t.Errorf("expected no missing fields, got %v", prov.MissingFields)
	}
}

func TestAugmentNeverOverwritesGraphFields(t *testing.T) {
	filler := &fakeFiller{byURL: map[string]map[string]string{
		"https://example/ep1": {
			scrape.FieldStreamURL: "https://scraped.example/other.mp3",
			scrape.FieldSynopsis:  "scraped synopsis",
		},
	}}
	m := New(filler, 1, nil)

	records := []domain.Diffusion{
		{ID: "d1", URL: "https://example/ep1", StreamURL: "https://graph.example/authoritative.mp3"},
	}
	out, provenance, err := m.Augment(context.Background(), records, []string{scrape.FieldStreamURL, scrape.FieldSynopsis})
	if err != nil {
		t.Fatalf("Augment returned error: %v", err)
	}
	if out[0].StreamURL != "https://graph.example/authoritative.mp3" {
		t.Fatalf("graph field was overwritten: %q", out[0].StreamURL)
	}
	if out[0].Synopsis != "scraped synopsis" {
		t.Errorf("expected empty synopsis filled from scrape, got %q", out[0].Synopsis)
	}
	if provenance["d1"].Source != domain.SourceMerged {
		t.Errorf("expected merged provenance, got %q", provenance["d1"].Source)
	}
}

func TestAugmentIsIdempotentOncePopulated(t *testing.T) {
	filler := &fakeFiller{byURL: map[string]map[string]string{
		"https://example/ep1": {scrape.FieldStreamURL: "https://scraped.example/changed.mp3"},
	}}
	m := New(filler, 1, nil)

	records := []domain.Diffusion{
		{ID: "d1", URL: "https://example/ep1", StreamURL: "https://media.example/ep1.mp3"},
	}
	out, provenance, err := m.Augment(context.Background(), records, streamOnly)
	if err != nil {
		t.Fatalf("Augment returned error: %v", err)
	}
	if out[0].StreamURL != "https://media.example/ep1.mp3" {
		t.Fatalf("re-running augmentation changed a populated field: %q", out[0].StreamURL)
	}
	if provenance["d1"].Source != domain.SourceGraph {
		t.Errorf("expected graph provenance for a complete record, got %q", provenance["d1"].Source)
	}
	if len(filler.calls) != 0 {
		t.Errorf("expected no scrape for a complete record, got %d calls", len(filler.calls))
	}
}

func TestAugmentScrapeFailureDegradesOneRecord(t *testing.T) {
	filler := &fakeFiller{
		byURL: map[string]map[string]string{
			"https://example/ok": {scrape.FieldStreamURL: "https://media.example/ok.mp3"},
		},
		failURL: "https://example/broken",
	}
	m := New(filler, 2, nil)

	records := []domain.Diffusion{
		{ID: "ok", URL: "https://example/ok"},
		{ID: "broken", URL: "https://example/broken"},
	}
	out, provenance, err := m.Augment(context.Background(), records, streamOnly)
	if err != nil {
		t.Fatalf("a per-record scrape failure must not fail the batch: %v", err)
	}
	if out[0].StreamURL == "" {
		t.Error("expected healthy record to be augmented")
	}
	if out[1].StreamURL != "" {
		t.Errorf("expected failed record to keep field absent, got %q", out[1].StreamURL)
	}
	broken := provenance["broken"]
	if len(broken.MissingFields) != 1 || broken.MissingFields[0] != scrape.FieldStreamURL {
		t.Errorf("expected provenance gap flag, got %v", broken.MissingFields)
	}
}

func TestAugmentRecordWithoutURLIsFlagged(t *testing.T) {
	filler := &fakeFiller{}
	m := New(filler, 1, nil)

	records := []domain.Diffusion{{ID: "d1", Title: "no url"}}
	_, provenance, err := m.Augment(context.Background(), records, streamOnly)
	if err != nil {
		t.Fatalf("Augment returned error: %v", err)
	}
	if len(provenance["d1"].MissingFields) != 1 {
		t.Errorf("expected missing field flagged, got %v", provenance["d1"].MissingFields)
	}
	if len(filler.calls) != 0 {
		t.Error("expected no scrape without a resolvable URL")
	}
}
