package merger

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/ondes-hq/radio-catalog/internal/domain"
	"github.com/ondes-hq/radio-catalog/internal/logger"
	"github.com/ondes-hq/radio-catalog/internal/scrape"
)

// PageFiller is the slice of the scraper the merger needs.
type PageFiller interface {
	FillFields(ctx context.Context, pageURL string, fields []string) (map[string]string, error)
}

// Merger supplements graph-service records with scraped fields. The merge
// rule is strict: a field already populated by the graph service is never
// overwritten; scraped values only fill empty fields.
type Merger struct {
	scraper PageFiller
	workers int
	log     logger.Logger
}

// New builds a merger scraping with at most workers concurrent page fetches.
func New(scraper PageFiller, workers int, log logger.Logger) *Merger {
	if workers <= 0 {
		workers = 3
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Merger{scraper: scraper, workers: workers, log: log}
}

// Augment fills the required fields missing from each record, scraping the
// record's page when it has a resolvable URL. A scrape failure degrades
// only that record: it is returned with the fields still absent and a
// provenance gap flag. The returned error is non-nil only on cancellation.
func (m *Merger) Augment(ctx context.Context, records []domain.Diffusion, requiredFields []string) ([]domain.Diffusion, map[string]domain.Provenance, error) {
	out := append([]domain.Diffusion(nil), records...)
	provenance := make(map[string]domain.Provenance, len(records))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(m.workers)

	// Each goroutine owns exactly one index, so no locking is needed.
	results := make([]domain.Provenance, len(out))

	for i := range out {
		g.Go(func() error {
			results[i] = m.augmentOne(gCtx, &out[i], requiredFields)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	for i, rec := range out {
		provenance[rec.Key()] = results[i]
	}
	return out, provenance, nil
}

func (m *Merger) augmentOne(ctx context.Context, rec *domain.Diffusion, requiredFields []string) domain.Provenance {
	missing := MissingFields(*rec, requiredFields)
	if len(missing) == 0 {
		return domain.Provenance{Source: domain.SourceGraph}
	}
	if rec.URL == "" {
		return domain.Provenance{Source: domain.SourceGraph, MissingFields: missing}
	}

	scraped, err := m.scraper.FillFields(ctx, rec.URL, missing)
	if err != nil {
		m.log.WarnObj("record augmentation scrape failed", "scrape_error", map[string]any{
			"url":   rec.URL,
			"error": err.Error(),
		})
		return domain.Provenance{Source: domain.SourceGraph, MissingFields: missing}
	}

	filled := fillEmpty(rec, scraped)
	still := MissingFields(*rec, requiredFields)

	source := domain.SourceGraph
	if filled > 0 {
		source = domain.SourceMerged
	}
	return domain.Provenance{Source: source, MissingFields: still}
}

// fillEmpty copies scraped values into empty fields only and reports how
// many fields it filled.
func fillEmpty(rec *domain.Diffusion, scraped map[string]string) int {
	filled := 0
	set := func(dst *string, field string) {
		if *dst != "" {
			return
		}
		if v, ok := scraped[field]; ok && v != "" {
			*dst = v
			filled++
		}
	}
	set(&rec.Title, scrape.FieldTitle)
	set(&rec.Synopsis, scrape.FieldSynopsis)
	set(&rec.StreamURL, scrape.FieldStreamURL)
	set(&rec.StationRef, scrape.FieldStation)
	return filled
}

// MissingFields lists which of the required fields are empty on the record.
func MissingFields(rec domain.Diffusion, requiredFields []string) []string {
	var missing []string
	for _, field := range requiredFields {
		switch field {
		case scrape.FieldTitle:
			if rec.Title == "" {
				missing = append(missing, field)
			}
		case scrape.FieldSynopsis:
			if rec.Synopsis == "" {
				missing = append(missing, field)
			}
		case scrape.FieldStreamURL:
			if rec.StreamURL == "" {
				missing = append(missing, field)
			}
		case scrape.FieldStation:
			if rec.StationRef == "" {
				missing = append(missing, field)
			}
		case "published_at":
			if rec.PublishedAt.IsZero() {
				missing = append(missing, field)
			}
		}
	}
	return missing
}
