package fetcher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ondes-hq/radio-catalog/internal/domain"
)

type fakeCatalog struct {
	grid []domain.ProgramGridEntry
	err  error
}

func (f *fakeCatalog) TaxonomyDiffusions(context.Context, string, int) ([]domain.Diffusion, []domain.Brand, error) {
	return nil, nil, f.err
}

func (f *fakeCatalog) Brand(context.Context, string) (domain.Brand, error) {
	return domain.Brand{}, f.err
}

func (f *fakeCatalog) StationGrid(context.Context, string) ([]domain.ProgramGridEntry, error) {
	return f.grid, f.err
}

func at(hour int) time.Time {
	return time.Date(2026, time.August, 20, hour, 0, 0, 0, time.UTC)
}

func TestStationGridSortsUnorderedEntries(t *testing.T) {
	f := New(&fakeCatalog{grid: []domain.ProgramGridEntry{
		{StationRef: "fc", StartTime: at(12), EndTime: at(13)},
		{StationRef: "fc", StartTime: at(8), EndTime: at(9)},
		{StationRef: "fc", StartTime: at(10), EndTime: at(11)},
	}}, nil)

	entries, err := f.StationGrid(context.Background(), "fc")
	if err != nil {
		t.Fatalf("StationGrid returned error: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	for i := 1; i < len(entries); i++ {
		if entries[i].StartTime.Before(entries[i-1].StartTime) {
			t.Fatalf("entries not sorted ascending at index %d", i)
		}
	}
}

func TestStationGridClampsOverlaps(t *testing.T) {
	f := New(&fakeCatalog{grid: []domain.ProgramGridEntry{
		{StationRef: "fc", StartTime: at(8), EndTime: at(10)},
		{StationRef: "fc", StartTime: at(9), EndTime: at(11)},
		// Fully swallowed by the first entry: must be dropped.
		{StationRef: "fc", StartTime: at(8), EndTime: at(9)},
	}}, nil)

	entries, err := f.StationGrid(context.Background(), "fc")
	if err != nil {
		t.Fatalf("StationGrid returned error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected swallowed entry dropped, got %d entries", len(entries))
	}
	for i := 1; i < len(entries); i++ {
		if entries[i].StartTime.Before(entries[i-1].EndTime) {
			t.Fatalf("entries overlap at index %d", i)
		}
	}
}

func TestStationGridPropagatesErrors(t *testing.T) {
	boom := errors.New("grid query failed")
	f := New(&fakeCatalog{err: boom}, nil)

	_, err := f.StationGrid(context.Background(), "fc")
	if !errors.Is(err, boom) {
		t.Fatalf("expected catalog error unchanged, got %v", err)
	}
}
