package fetcher

import (
	"context"
	"sort"

	"github.com/ondes-hq/radio-catalog/internal/domain"
	"github.com/ondes-hq/radio-catalog/internal/logger"
)

// CatalogAPI is the slice of the catalog client the fetcher needs.
type CatalogAPI interface {
	TaxonomyDiffusions(ctx context.Context, taxonomyID string, limit int) ([]domain.Diffusion, []domain.Brand, error)
	Brand(ctx context.Context, brandID string) (domain.Brand, error)
	StationGrid(ctx context.Context, stationCode string) ([]domain.ProgramGridEntry, error)
}

// Fetcher retrieves content by taxonomy, brand, or station through the
// graph service. Catalog errors propagate unchanged.
type Fetcher struct {
	catalog CatalogAPI
	log     logger.Logger
}

// New builds a fetcher over the given catalog client.
func New(catalog CatalogAPI, log logger.Logger) *Fetcher {
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Fetcher{catalog: catalog, log: log}
}

// ByTaxonomy fetches diffusions (and the brands they reference) for one
// resolved taxonomy identifier.
func (f *Fetcher) ByTaxonomy(ctx context.Context, taxonomyID string, limit int) ([]domain.Diffusion, []domain.Brand, error) {
	return f.catalog.TaxonomyDiffusions(ctx, taxonomyID, limit)
}

// ByBrand fetches a single brand by ID.
func (f *Fetcher) ByBrand(ctx context.Context, brandID string) (domain.Brand, error) {
	return f.catalog.Brand(ctx, brandID)
}

// StationGrid fetches a station's program grid. The remote service is not
// trusted to order entries: the grid is re-sorted ascending by start time
// and overlapping entries are clamped so the invariant holds regardless of
// upstream behavior.
func (f *Fetcher) StationGrid(ctx context.Context, stationCode string) ([]domain.ProgramGridEntry, error) {
	entries, err := f.catalog.StationGrid(ctx, stationCode)
	if err != nil {
		return nil, err
	}
	return normalizeGrid(entries, f.log), nil
}

func normalizeGrid(entries []domain.ProgramGridEntry, log logger.Logger) []domain.ProgramGridEntry {
	if len(entries) == 0 {
		return entries
	}

	sorted := append([]domain.ProgramGridEntry(nil), entries...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartTime.Before(sorted[j].StartTime)
	})

	out := sorted[:0]
	for _, entry := range sorted {
		if len(out) > 0 {
			prev := out[len(out)-1]
			if entry.StartTime.Before(prev.EndTime) {
				log.WarnObj("grid entries overlap; clamping", "grid_overlap", map[string]any{
					"station": entry.StationRef,
					"start":   entry.StartTime,
					"prev":    prev.EndTime,
				})
				entry.StartTime = prev.EndTime
			}
		}
		// An entry fully swallowed by its predecessor is dropped.
		if !entry.StartTime.Before(entry.EndTime) {
			continue
		}
		out = append(out, entry)
	}
	return out
}
