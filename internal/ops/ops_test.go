package ops

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/ondes-hq/radio-catalog/internal/domain"
	"github.com/ondes-hq/radio-catalog/internal/storage"
	"github.com/ondes-hq/radio-catalog/pkg/notify"
)

type fakeCatalog struct {
	taxonomyCalls int
	gotKeyword    string
	gotLimit      int
	brandErr      error
}

func (f *fakeCatalog) GetTaxonomies(_ context.Context, keyword string, limit int) ([]domain.Taxonomy, error) {
	f.taxonomyCalls++
	f.gotKeyword = keyword
	f.gotLimit = limit
	return []domain.Taxonomy{{ID: "t1", Title: "Histoire"}}, nil
}

func (f *fakeCatalog) GetDiffusions(context.Context, string, int) ([]domain.Diffusion, error) {
	return nil, nil
}

func (f *fakeCatalog) GetBrand(context.Context, string) (domain.Brand, error) {
	if f.brandErr != nil {
		return domain.Brand{}, f.brandErr
	}
	return domain.Brand{ID: "b1"}, nil
}

func (f *fakeCatalog) GetStationGrid(context.Context, string) ([]domain.ProgramGridEntry, error) {
	return nil, nil
}

func (f *fakeCatalog) SearchPodcasts(context.Context, string, int) (domain.SearchResult, error) {
	return domain.SearchResult{}, nil
}

func (f *fakeCatalog) SearchEpisodes(context.Context, string, int) (domain.SearchResult, error) {
	return domain.SearchResult{}, nil
}

func (f *fakeCatalog) GetStationPrograms(context.Context, string) ([]domain.ProgramGridEntry, error) {
	return nil, nil
}

func (f *fakeCatalog) ScrapePodcastCategories(context.Context) ([]domain.Taxonomy, error) {
	return nil, nil
}

func (f *fakeCatalog) ScrapePodcastDetails(context.Context, string) (domain.Brand, error) {
	return domain.Brand{}, nil
}

func (f *fakeCatalog) GetAudioContentInfo(context.Context, string) (domain.Diffusion, error) {
	return domain.Diffusion{}, nil
}

func (f *fakeCatalog) NaturalLanguageSearch(context.Context, string, int) (domain.SearchResult, error) {
	return domain.SearchResult{}, nil
}

type recordingPublisher struct {
	events []notify.Event
	err    error
}

func (p *recordingPublisher) ID() string   { return "recording" }
func (p *recordingPublisher) Type() string { return "test" }
func (p *recordingPublisher) Publish(_ context.Context, evt notify.Event) error {
	p.events = append(p.events, evt)
	return p.err
}

func TestDispatchUnknownOperation(t *testing.T) {
	table := NewTable(&fakeCatalog{}, nil, nil, nil)

	_, err := table.Dispatch(context.Background(), "no_such_op", nil)
	if !errors.Is(err, ErrUnknownOperation) {
		t.Fatalf("expected ErrUnknownOperation, got %v", err)
	}
}

func TestDispatchValidatesRequiredArgs(t *testing.T) {
	table := NewTable(&fakeCatalog{}, nil, nil, nil)

	tests := []struct {
		op   string
		args string
	}{
		{"get_diffusions", `{}`},
		{"get_brand", `{"brand_id":""}`},
		{"search_episodes", `{"limit":3}`},
		{"get_audio_content_info", `{}`},
		{"natural_language_search", `{}`},
	}
	for _, tt := range tests {
		_, err := table.Dispatch(context.Background(), tt.op, json.RawMessage(tt.args))
		if !errors.Is(err, ErrInvalidArgs) {
			t.Errorf("%s(%s): expected ErrInvalidArgs, got %v", tt.op, tt.args, err)
		}
	}
}

func TestDispatchRejectsMalformedJSON(t *testing.T) {
	table := NewTable(&fakeCatalog{}, nil, nil, nil)

	_, err := table.Dispatch(context.Background(), "get_taxonomies", json.RawMessage(`{"keyword":`))
	if !errors.Is(err, ErrInvalidArgs) {
		t.Fatalf("expected ErrInvalidArgs, got %v", err)
	}
}

func TestDispatchRunsHandler(t *testing.T) {
	cat := &fakeCatalog{}
	table := NewTable(cat, nil, nil, nil)

	out, err := table.Dispatch(context.Background(), "get_taxonomies", json.RawMessage(`{"keyword":"histoire","limit":3}`))
	if err != nil {
		t.Fatalf("Dispatch returned error: %v", err)
	}
	taxonomies, ok := out.([]domain.Taxonomy)
	if !ok || len(taxonomies) != 1 {
		t.Fatalf("unexpected result %T %+v", out, out)
	}
	if cat.gotKeyword != "histoire" || cat.gotLimit != 3 {
		t.Errorf("arguments not decoded: keyword=%q limit=%d", cat.gotKeyword, cat.gotLimit)
	}
}

func TestDispatchServesSecondCallFromCache(t *testing.T) {
	cache, err := storage.NewStore("bbolt", filepath.Join(t.TempDir(), "cache.db"), storage.Options{ResultTTL: time.Minute})
	if err != nil {
		t.Fatalf("NewStore returned error: %v", err)
	}
	defer cache.Close()

	cat := &fakeCatalog{}
	table := NewTable(cat, cache, nil, nil)

	args := json.RawMessage(`{"keyword":"histoire","limit":3}`)
	if _, err := table.Dispatch(context.Background(), "get_taxonomies", args); err != nil {
		t.Fatalf("first Dispatch returned error: %v", err)
	}
	// Same arguments in a different key order must still hit the cache.
	out, err := table.Dispatch(context.Background(), "get_taxonomies", json.RawMessage(`{"limit":3,"keyword":"histoire"}`))
	if err != nil {
		t.Fatalf("second Dispatch returned error: %v", err)
	}
	if cat.taxonomyCalls != 1 {
		t.Errorf("expected one upstream call, got %d", cat.taxonomyCalls)
	}

	payload, ok := out.(json.RawMessage)
	if !ok {
		t.Fatalf("expected cached raw payload, got %T", out)
	}
	var taxonomies []domain.Taxonomy
	if err := json.Unmarshal(payload, &taxonomies); err != nil {
		t.Fatalf("cached payload does not decode: %v", err)
	}
	if len(taxonomies) != 1 || taxonomies[0].ID != "t1" {
		t.Errorf("unexpected cached taxonomies %+v", taxonomies)
	}
}

func TestDispatchErrorsAreNotCached(t *testing.T) {
	cache, err := storage.NewStore("bbolt", filepath.Join(t.TempDir(), "cache.db"), storage.Options{ResultTTL: time.Minute})
	if err != nil {
		t.Fatalf("NewStore returned error: %v", err)
	}
	defer cache.Close()

	boom := errors.New("upstream broke")
	cat := &fakeCatalog{brandErr: boom}
	table := NewTable(cat, cache, nil, nil)

	args := json.RawMessage(`{"brand_id":"b1"}`)
	if _, err := table.Dispatch(context.Background(), "get_brand", args); !errors.Is(err, boom) {
		t.Fatalf("expected upstream error, got %v", err)
	}

	cat.brandErr = nil
	out, err := table.Dispatch(context.Background(), "get_brand", args)
	if err != nil {
		t.Fatalf("retry Dispatch returned error: %v", err)
	}
	if _, cached := out.(json.RawMessage); cached {
		t.Fatal("a failed call must not leave a cache entry behind")
	}
}

func TestDispatchEmitsAuditEvents(t *testing.T) {
	pub := &recordingPublisher{}
	table := NewTable(&fakeCatalog{}, nil, notify.NewFanout([]notify.Publisher{pub}), nil)

	if _, err := table.Dispatch(context.Background(), "get_taxonomies", json.RawMessage(`{"keyword":"jazz"}`)); err != nil {
		t.Fatalf("Dispatch returned error: %v", err)
	}
	if len(pub.events) != 1 {
		t.Fatalf("expected one audit event, got %d", len(pub.events))
	}
	evt := pub.events[0]
	if evt.Operation != "get_taxonomies" || evt.Cached || evt.Items != 1 {
		t.Errorf("unexpected event %+v", evt)
	}
	if evt.ArgsDigest == "" {
		t.Error("expected a non-empty args digest")
	}
}

func TestNamesListsEveryOperation(t *testing.T) {
	table := NewTable(&fakeCatalog{}, nil, nil, nil)

	want := map[string]bool{
		"get_taxonomies":            false,
		"get_diffusions":            false,
		"get_brand":                 false,
		"get_station_grid":          false,
		"search_podcasts":           false,
		"search_episodes":           false,
		"get_station_programs":      false,
		"scrape_podcast_categories": false,
		"scrape_podcast_details":    false,
		"get_audio_content_info":    false,
		"natural_language_search":   false,
	}
	for _, name := range table.Names() {
		if _, ok := want[name]; !ok {
			t.Errorf("unexpected operation %q", name)
			continue
		}
		want[name] = true
	}
	for name, seen := range want {
		if !seen {
			t.Errorf("operation %q missing from table", name)
		}
	}
}

func TestNormalizeArgs(t *testing.T) {
	a := normalizeArgs(json.RawMessage(`{"b":2,"a":1}`))
	b := normalizeArgs(json.RawMessage(`{"a":1,"b":2}`))
	if !bytes.Equal(a, b) {
		t.Errorf("key order must not change the cache key: %s vs %s", a, b)
	}

	withNull := normalizeArgs(json.RawMessage(`{"a":1,"b":null}`))
	without := normalizeArgs(json.RawMessage(`{"a":1}`))
	if !bytes.Equal(withNull, without) {
		t.Errorf("null arguments must be dropped: %s vs %s", withNull, without)
	}

	if got := normalizeArgs(nil); !bytes.Equal(got, []byte("{}")) {
		t.Errorf("empty args must normalize to {}, got %s", got)
	}
}
