package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/ondes-hq/radio-catalog/internal/catalog"
	"github.com/ondes-hq/radio-catalog/internal/domain"
	"github.com/ondes-hq/radio-catalog/internal/logger"
	"github.com/ondes-hq/radio-catalog/internal/scrape"
	"github.com/ondes-hq/radio-catalog/internal/stations"
)

// TaxonomyResolver maps a keyword to ranked taxonomy candidates.
type TaxonomyResolver interface {
	Resolve(ctx context.Context, keyword string, limit int) ([]domain.Taxonomy, error)
}

// ContentFetcher retrieves content through the graph service.
type ContentFetcher interface {
	ByTaxonomy(ctx context.Context, taxonomyID string, limit int) ([]domain.Diffusion, []domain.Brand, error)
	ByBrand(ctx context.Context, brandID string) (domain.Brand, error)
	StationGrid(ctx context.Context, stationCode string) ([]domain.ProgramGridEntry, error)
}

// Augmenter supplements graph records with scraped fields.
type Augmenter interface {
	Augment(ctx context.Context, records []domain.Diffusion, requiredFields []string) ([]domain.Diffusion, map[string]domain.Provenance, error)
}

// PageScraper serves the scrape-primary operations.
type PageScraper interface {
	Categories(ctx context.Context) ([]domain.Taxonomy, error)
	PodcastDetails(ctx context.Context, pageURL string) (domain.Brand, error)
	AudioInfo(ctx context.Context, pageURL string) (domain.Diffusion, error)
}

// Orchestrator is the top-level entry point behind every public operation.
// Search requests walk RESOLVE_TAXONOMY, FETCH_CONTENT, AUGMENT,
// RANK_AND_TRUNCATE; ID-addressed lookups skip straight to FETCH_CONTENT.
type Orchestrator struct {
	resolver    TaxonomyResolver
	fetcher     ContentFetcher
	merger      Augmenter
	scraper     PageScraper
	stations    *stations.Registry
	fanoutLimit int
	log         logger.Logger
}

// episodeRequiredFields is the field set the merger tries to complete on
// every searched episode. The stream URL is the field the graph service
// most often lacks.
var episodeRequiredFields = []string{scrape.FieldStreamURL, scrape.FieldSynopsis}

// New wires an orchestrator. All collaborators are required except the
// station registry (defaults to the built-in set) and the logger.
func New(resolver TaxonomyResolver, fetcher ContentFetcher, merger Augmenter, scraper PageScraper, reg *stations.Registry, fanoutLimit int, log logger.Logger) (*Orchestrator, error) {
	if resolver == nil || fetcher == nil || merger == nil || scraper == nil {
		return nil, fmt.Errorf("orchestrator requires resolver, fetcher, merger and scraper")
	}
	if reg == nil {
		reg = stations.Default()
	}
	if fanoutLimit <= 0 {
		fanoutLimit = 4
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Orchestrator{
		resolver:    resolver,
		fetcher:     fetcher,
		merger:      merger,
		scraper:     scraper,
		stations:    reg,
		fanoutLimit: fanoutLimit,
		log:         log,
	}, nil
}

// --- ID-addressed operations ------------------------------------------------

// GetTaxonomies returns ranked taxonomies for a keyword.
func (o *Orchestrator) GetTaxonomies(ctx context.Context, keyword string, limit int) ([]domain.Taxonomy, error) {
	return o.resolver.Resolve(ctx, keyword, normalizeLimit(limit))
}

// GetDiffusions returns raw (un-augmented) diffusions for one taxonomy ID.
func (o *Orchestrator) GetDiffusions(ctx context.Context, taxonomyID string, limit int) ([]domain.Diffusion, error) {
	diffusions, _, err := o.fetcher.ByTaxonomy(ctx, taxonomyID, normalizeLimit(limit))
	if err != nil {
		return nil, err
	}
	return diffusions, nil
}

// GetBrand returns a single brand; upstream errors surface as-is.
func (o *Orchestrator) GetBrand(ctx context.Context, brandID string) (domain.Brand, error) {
	return o.fetcher.ByBrand(ctx, brandID)
}

// GetStationGrid returns the ordered program grid for a station code.
func (o *Orchestrator) GetStationGrid(ctx context.Context, stationCode string) ([]domain.ProgramGridEntry, error) {
	return o.fetcher.StationGrid(ctx, stationCode)
}

// GetStationPrograms resolves a human-entered station name to its code and
// returns its grid.
func (o *Orchestrator) GetStationPrograms(ctx context.Context, stationName string) ([]domain.ProgramGridEntry, error) {
	station, ok := o.stations.ResolveName(stationName)
	if !ok {
		return nil, fmt.Errorf("station %q: %w", stationName, catalog.ErrNotFound)
	}
	return o.fetcher.StationGrid(ctx, station.Code)
}

// --- scrape-primary operations -----------------------------------------------

// ScrapePodcastCategories lists podcast categories from the website; the
// graph service has no equivalent listing.
func (o *Orchestrator) ScrapePodcastCategories(ctx context.Context) ([]domain.Taxonomy, error) {
	return o.scraper.Categories(ctx)
}

// ScrapePodcastDetails scrapes a podcast page into a Brand.
func (o *Orchestrator) ScrapePodcastDetails(ctx context.Context, podcastURL string) (domain.Brand, error) {
	return o.scraper.PodcastDetails(ctx, podcastURL)
}

// GetAudioContentInfo resolves stream URL and metadata for an episode page.
// A page missing the primary stream selector still resolves through the
// fallback chain; a field no selector matches stays absent.
func (o *Orchestrator) GetAudioContentInfo(ctx context.Context, pageURL string) (domain.Diffusion, error) {
	return o.scraper.AudioInfo(ctx, pageURL)
}

// --- search pipeline ----------------------------------------------------------

// branch carries one taxonomy fan-out result. Branch order matches the
// resolver's ranking so downstream merging preserves upstream order.
type branch struct {
	taxonomy   domain.Taxonomy
	diffusions []domain.Diffusion
	brands     []domain.Brand
	err        error
}

// fanOut issues one content fetch per resolved taxonomy, concurrently but
// bounded. Branches share no state; each writes only its own slot.
func (o *Orchestrator) fanOut(ctx context.Context, taxonomies []domain.Taxonomy, limit int) []branch {
	branches := make([]branch, len(taxonomies))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(min(o.fanoutLimit, len(taxonomies)))

	for i, taxonomy := range taxonomies {
		g.Go(func() error {
			diffusions, brands, err := o.fetcher.ByTaxonomy(gCtx, taxonomy.ID, limit)
			branches[i] = branch{taxonomy: taxonomy, diffusions: diffusions, brands: brands, err: err}
			return nil
		})
	}
	_ = g.Wait() // branch errors are carried in the slots, not the group

	return branches
}

// collectBranchErrors separates usable branches from failures. When every
// branch failed the first error propagates; partial failure only degrades
// the result set.
func (o *Orchestrator) collectBranchErrors(branches []branch) ([]branch, error) {
	usable := make([]branch, 0, len(branches))
	var firstErr error
	for _, br := range branches {
		if br.err != nil {
			if firstErr == nil {
				firstErr = br.err
			}
			o.log.WarnObj("taxonomy fan-out branch failed", "branch_error", map[string]any{
				"taxonomy_id": br.taxonomy.ID,
				"error":       br.err.Error(),
			})
			continue
		}
		usable = append(usable, br)
	}
	if len(usable) == 0 && firstErr != nil {
		return nil, firstErr
	}
	return usable, nil
}

// SearchEpisodes runs the full pipeline for episode content: resolve the
// topic into taxonomies, fan out diffusion fetches, augment missing fields
// by scraping, then dedupe, rank and truncate.
func (o *Orchestrator) SearchEpisodes(ctx context.Context, topic string, limit int) (domain.SearchResult, error) {
	limit = normalizeLimit(limit)

	taxonomies, err := o.resolver.Resolve(ctx, topic, limit)
	if err != nil {
		return domain.SearchResult{}, err
	}
	if len(taxonomies) == 0 {
		return emptyResult(), nil
	}

	branches, err := o.collectBranchErrors(o.fanOut(ctx, taxonomies, limit))
	if err != nil {
		return domain.SearchResult{}, err
	}

	type tagged struct {
		diffusion domain.Diffusion
		origin    string
	}
	var all []tagged
	var records []domain.Diffusion
	for _, br := range branches {
		for _, d := range br.diffusions {
			all = append(all, tagged{diffusion: d, origin: br.taxonomy.ID})
			records = append(records, d)
		}
	}
	if len(all) == 0 {
		return emptyResult(), nil
	}

	augmented, provenance, err := o.merger.Augment(ctx, records, episodeRequiredFields)
	if err != nil {
		return domain.SearchResult{}, err
	}
	for i := range all {
		all[i].diffusion = augmented[i]
	}

	items := make([]rankable, 0, len(all))
	for _, t := range all {
		d := t.diffusion
		items = append(items, rankable{
			item:   domain.SearchItem{Diffusion: &d},
			origin: t.origin,
			prov:   provenance[d.Key()],
		})
	}
	return rankAndTruncate(items, topic, limit), nil
}

// SearchPodcasts runs the full pipeline for shows: the brands referenced by
// the fanned-out diffusions form the candidate set.
func (o *Orchestrator) SearchPodcasts(ctx context.Context, query string, limit int) (domain.SearchResult, error) {
	limit = normalizeLimit(limit)

	taxonomies, err := o.resolver.Resolve(ctx, query, limit)
	if err != nil {
		return domain.SearchResult{}, err
	}
	if len(taxonomies) == 0 {
		return emptyResult(), nil
	}

	branches, err := o.collectBranchErrors(o.fanOut(ctx, taxonomies, limit))
	if err != nil {
		return domain.SearchResult{}, err
	}

	var items []rankable
	for _, br := range branches {
		for _, b := range br.brands {
			brand := b
			items = append(items, rankable{
				item:   domain.SearchItem{Brand: &brand},
				origin: br.taxonomy.ID,
				prov:   domain.Provenance{Source: domain.SourceGraph},
			})
		}
	}
	if len(items) == 0 {
		return emptyResult(), nil
	}
	return rankAndTruncate(items, query, limit), nil
}

// NaturalLanguageSearch extracts keyword candidates from free text and
// tries each through the full search path, stopping at the first candidate
// yielding a non-empty result. An upstream error surfaces only when every
// candidate failed with one.
func (o *Orchestrator) NaturalLanguageSearch(ctx context.Context, query string, maxResults int) (domain.SearchResult, error) {
	maxResults = normalizeLimit(maxResults)
	candidates := extractKeywords(query)
	if len(candidates) == 0 {
		return emptyResult(), nil
	}

	podcasts := wantsPodcasts(query)

	var lastErr error
	allFailed := true
	for _, keyword := range candidates {
		var (
			result domain.SearchResult
			err    error
		)
		if podcasts {
			result, err = o.SearchPodcasts(ctx, keyword, maxResults)
		} else {
			result, err = o.SearchEpisodes(ctx, keyword, maxResults)
		}
		if err != nil {
			lastErr = err
			o.log.WarnObj("natural-language candidate failed", "candidate_error", map[string]any{
				"keyword": keyword,
				"error":   err.Error(),
			})
			continue
		}
		allFailed = false
		if len(result.Items) > 0 {
			return result, nil
		}
	}

	if allFailed && lastErr != nil {
		return domain.SearchResult{}, lastErr
	}
	return emptyResult(), nil
}

// --- ranking -------------------------------------------------------------------

type rankable struct {
	item   domain.SearchItem
	origin string
	prov   domain.Provenance
}

// rankAndTruncate dedupes by identity key (merging fan-out origins),
// orders direct query matches before taxonomy-only matches (each group
// preserving arrival order), and truncates last so a better match found
// late in the fan-out is never dropped early.
func rankAndTruncate(candidates []rankable, query string, limit int) domain.SearchResult {
	type slot struct {
		item domain.SearchItem
		prov domain.Provenance
	}

	order := make([]string, 0, len(candidates))
	byKey := make(map[string]*slot, len(candidates))

	for _, c := range candidates {
		key := c.item.Key()
		if key == "" {
			continue
		}
		if existing, ok := byKey[key]; ok {
			existing.prov.Origins = appendOrigin(existing.prov.Origins, c.origin)
			continue
		}
		prov := c.prov
		prov.Origins = appendOrigin(prov.Origins, c.origin)
		byKey[key] = &slot{item: c.item, prov: prov}
		order = append(order, key)
	}

	lowerQuery := strings.ToLower(strings.TrimSpace(query))
	direct := make([]string, 0, len(order))
	indirect := make([]string, 0, len(order))
	for _, key := range order {
		if lowerQuery != "" && strings.Contains(strings.ToLower(byKey[key].item.Title()), lowerQuery) {
			direct = append(direct, key)
		} else {
			indirect = append(indirect, key)
		}
	}
	ranked := append(direct, indirect...)

	total := len(ranked)
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	result := domain.SearchResult{
		Items:           make([]domain.SearchItem, 0, len(ranked)),
		TotalConsidered: total,
		SourceMix:       make(map[string]domain.Provenance, len(ranked)),
	}
	for _, key := range ranked {
		result.Items = append(result.Items, byKey[key].item)
		result.SourceMix[key] = byKey[key].prov
	}
	return result
}

func appendOrigin(origins []string, origin string) []string {
	if origin == "" {
		return origins
	}
	for _, o := range origins {
		if o == origin {
			return origins
		}
	}
	return append(origins, origin)
}

func emptyResult() domain.SearchResult {
	return domain.SearchResult{Items: []domain.SearchItem{}, SourceMix: map[string]domain.Provenance{}}
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return 10
	}
	return limit
}
