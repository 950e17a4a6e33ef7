package ops

// Package ops exposes the public operations through a static table mapping
// operation name to a typed handler. The table is built once at startup and
// never mutated, so dispatch needs no reflection and no locking.

import (
	"context"
	"crypto/sha1" //nolint:gosec // non-cryptographic digest for audit events
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ondes-hq/radio-catalog/internal/domain"
	"github.com/ondes-hq/radio-catalog/internal/logger"
	"github.com/ondes-hq/radio-catalog/internal/storage"
	"github.com/ondes-hq/radio-catalog/pkg/notify"
)

var (
	// ErrUnknownOperation reports a dispatch against a name not in the table.
	ErrUnknownOperation = errors.New("unknown operation")

	// ErrInvalidArgs reports undecodable or incomplete operation arguments.
	ErrInvalidArgs = errors.New("invalid arguments")
)

// Catalog is the full operation surface the table dispatches to.
type Catalog interface {
	GetTaxonomies(ctx context.Context, keyword string, limit int) ([]domain.Taxonomy, error)
	GetDiffusions(ctx context.Context, taxonomyID string, limit int) ([]domain.Diffusion, error)
	GetBrand(ctx context.Context, brandID string) (domain.Brand, error)
	GetStationGrid(ctx context.Context, stationCode string) ([]domain.ProgramGridEntry, error)
	SearchPodcasts(ctx context.Context, query string, limit int) (domain.SearchResult, error)
	SearchEpisodes(ctx context.Context, topic string, limit int) (domain.SearchResult, error)
	GetStationPrograms(ctx context.Context, stationName string) ([]domain.ProgramGridEntry, error)
	ScrapePodcastCategories(ctx context.Context) ([]domain.Taxonomy, error)
	ScrapePodcastDetails(ctx context.Context, podcastURL string) (domain.Brand, error)
	GetAudioContentInfo(ctx context.Context, pageURL string) (domain.Diffusion, error)
	NaturalLanguageSearch(ctx context.Context, query string, maxResults int) (domain.SearchResult, error)
}

// Handler decodes raw JSON arguments and runs one operation.
type Handler func(ctx context.Context, args json.RawMessage) (any, error)

// Table dispatches named operations, consulting the result cache first and
// emitting an audit event after every call.
type Table struct {
	handlers map[string]Handler
	cache    storage.Store
	events   *notify.Fanout
	log      logger.Logger
	now      func() time.Time
}

// NewTable builds the immutable operation table over the given catalog.
func NewTable(cat Catalog, cache storage.Store, events *notify.Fanout, log logger.Logger) *Table {
	if cache == nil {
		cache, _ = storage.NewStore("none", "", storage.Options{})
	}
	if log == nil {
		log = logger.NopLogger{}
	}

	t := &Table{
		cache:  cache,
		events: events,
		log:    log,
		now:    time.Now,
	}
	t.handlers = map[string]Handler{
		"get_taxonomies": func(ctx context.Context, raw json.RawMessage) (any, error) {
			var args struct {
				Keyword string `json:"keyword"`
				Limit   int    `json:"limit"`
			}
			if err := decodeArgs(raw, &args); err != nil {
				return nil, err
			}
			return cat.GetTaxonomies(ctx, args.Keyword, args.Limit)
		},
		"get_diffusions": func(ctx context.Context, raw json.RawMessage) (any, error) {
			var args struct {
				TaxonomyID string `json:"taxonomy_id"`
				Limit      int    `json:"limit"`
			}
			if err := decodeArgs(raw, &args); err != nil {
				return nil, err
			}
			if args.TaxonomyID == "" {
				return nil, fmt.Errorf("%w: taxonomy_id is required", ErrInvalidArgs)
			}
			return cat.GetDiffusions(ctx, args.TaxonomyID, args.Limit)
		},
		"get_brand": func(ctx context.Context, raw json.RawMessage) (any, error) {
			var args struct {
				BrandID string `json:"brand_id"`
			}
			if err := decodeArgs(raw, &args); err != nil {
				return nil, err
			}
			if args.BrandID == "" {
				return nil, fmt.Errorf("%w: brand_id is required", ErrInvalidArgs)
			}
			return cat.GetBrand(ctx, args.BrandID)
		},
		"get_station_grid": func(ctx context.Context, raw json.RawMessage) (any, error) {
			var args struct {
				StationCode string `json:"station_code"`
			}
			if err := decodeArgs(raw, &args); err != nil {
				return nil, err
			}
			if args.StationCode == "" {
				return nil, fmt.Errorf("%w: station_code is required", ErrInvalidArgs)
			}
			return cat.GetStationGrid(ctx, args.StationCode)
		},
		"search_podcasts": func(ctx context.Context, raw json.RawMessage) (any, error) {
			var args struct {
				Query string `json:"query"`
				Limit int    `json:"limit"`
			}
			if err := decodeArgs(raw, &args); err != nil {
				return nil, err
			}
			if args.Query == "" {
				return nil, fmt.Errorf("%w: query is required", ErrInvalidArgs)
			}
			return cat.SearchPodcasts(ctx, args.Query, args.Limit)
		},
		"search_episodes": func(ctx context.Context, raw json.RawMessage) (any, error) {
			var args struct {
				Topic string `json:"topic"`
				Limit int    `json:"limit"`
			}
			if err := decodeArgs(raw, &args); err != nil {
				return nil, err
			}
			if args.Topic == "" {
				return nil, fmt.Errorf("%w: topic is required", ErrInvalidArgs)
			}
			return cat.SearchEpisodes(ctx, args.Topic, args.Limit)
		},
		"get_station_programs": func(ctx context.Context, raw json.RawMessage) (any, error) {
			var args struct {
				StationName string `json:"station_name"`
			}
			if err := decodeArgs(raw, &args); err != nil {
				return nil, err
			}
			if args.StationName == "" {
				return nil, fmt.Errorf("%w: station_name is required", ErrInvalidArgs)
			}
			return cat.GetStationPrograms(ctx, args.StationName)
		},
		"scrape_podcast_categories": func(ctx context.Context, raw json.RawMessage) (any, error) {
			if err := decodeArgs(raw, &struct{}{}); err != nil {
				return nil, err
			}
			return cat.ScrapePodcastCategories(ctx)
		},
		"scrape_podcast_details": func(ctx context.Context, raw json.RawMessage) (any, error) {
			var args struct {
				PodcastURL string `json:"podcast_url"`
			}
			if err := decodeArgs(raw, &args); err != nil {
				return nil, err
			}
			if args.PodcastURL == "" {
				return nil, fmt.Errorf("%w: podcast_url is required", ErrInvalidArgs)
			}
			return cat.ScrapePodcastDetails(ctx, args.PodcastURL)
		},
		"get_audio_content_info": func(ctx context.Context, raw json.RawMessage) (any, error) {
			var args struct {
				URL string `json:"url"`
			}
			if err := decodeArgs(raw, &args); err != nil {
				return nil, err
			}
			if args.URL == "" {
				return nil, fmt.Errorf("%w: url is required", ErrInvalidArgs)
			}
			return cat.GetAudioContentInfo(ctx, args.URL)
		},
		"natural_language_search": func(ctx context.Context, raw json.RawMessage) (any, error) {
			var args struct {
				Query      string `json:"query"`
				MaxResults int    `json:"max_results"`
			}
			if err := decodeArgs(raw, &args); err != nil {
				return nil, err
			}
			if args.Query == "" {
				return nil, fmt.Errorf("%w: query is required", ErrInvalidArgs)
			}
			return cat.NaturalLanguageSearch(ctx, args.Query, args.MaxResults)
		},
	}
	return t
}

// Names lists the registered operation names.
func (t *Table) Names() []string {
	names := make([]string, 0, len(t.handlers))
	for name := range t.handlers {
		names = append(names, name)
	}
	return names
}

// Dispatch runs the named operation. Results are served from the cache when
// a fresh entry exists for the same operation and normalized arguments.
func (t *Table) Dispatch(ctx context.Context, name string, args json.RawMessage) (any, error) {
	handler, ok := t.handlers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownOperation, name)
	}

	started := t.now()
	normalized := normalizeArgs(args)
	evt := notify.NewEvent(name, argsDigest(normalized))

	if payload, found, err := t.cache.Get(name, normalized); err != nil {
		t.log.WarnObj("result cache read failed", "cache_error", err.Error())
	} else if found {
		evt.Cached = true
		evt.ElapsedMs = t.now().Sub(started).Milliseconds()
		t.emit(ctx, evt)
		return json.RawMessage(payload), nil
	}

	out, err := handler(ctx, args)
	evt.ElapsedMs = t.now().Sub(started).Milliseconds()
	if err != nil {
		evt.Error = err.Error()
		t.emit(ctx, evt)
		return nil, err
	}

	evt.Items = countItems(out)
	t.emit(ctx, evt)

	if payload, merr := json.Marshal(out); merr == nil {
		if cerr := t.cache.Put(name, normalized, payload); cerr != nil {
			t.log.WarnObj("result cache write failed", "cache_error", cerr.Error())
		}
	}
	return out, nil
}

func (t *Table) emit(ctx context.Context, evt notify.Event) {
	if t.events == nil || t.events.Size() == 0 {
		return
	}
	if _, err := t.events.Publish(ctx, evt); err != nil {
		t.log.WarnObj("audit event publish failed", "notify_error", err.Error())
	}
}

func decodeArgs(raw json.RawMessage, into any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, into); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgs, err)
	}
	return nil
}

// normalizeArgs canonicalizes the argument JSON so semantically equal
// requests share one cache key: object keys are sorted and nulls dropped.
func normalizeArgs(raw json.RawMessage) []byte {
	if len(raw) == 0 {
		return []byte("{}")
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return raw
	}
	for k, v := range m {
		if v == nil {
			delete(m, k)
		}
	}
	normalized, err := json.Marshal(m) // map keys marshal in sorted order
	if err != nil {
		return raw
	}
	return normalized
}

func argsDigest(normalized []byte) string {
	sum := sha1.Sum(normalized) //nolint:gosec
	return hex.EncodeToString(sum[:8])
}

func countItems(out any) int {
	switch v := out.(type) {
	case []domain.Taxonomy:
		return len(v)
	case []domain.Diffusion:
		return len(v)
	case []domain.ProgramGridEntry:
		return len(v)
	case domain.SearchResult:
		return len(v.Items)
	case domain.Brand, domain.Diffusion:
		return 1
	default:
		return 0
	}
}
