package resolver

import (
	"context"
	"sort"
	"strings"

	"github.com/ondes-hq/radio-catalog/internal/domain"
)

// TaxonomyLister is the slice of the catalog client the resolver needs.
type TaxonomyLister interface {
	Taxonomies(ctx context.Context, keyword string, limit int) ([]domain.Taxonomy, error)
}

// Resolver maps a free-text keyword to ranked taxonomy candidates.
type Resolver struct {
	catalog TaxonomyLister
}

// New builds a resolver over the given catalog client.
func New(catalog TaxonomyLister) *Resolver {
	return &Resolver{catalog: catalog}
}

// Relevance tiers, highest first: exact title match, title containment,
// description containment. Ties keep the order the remote service returned.
const (
	scoreExactTitle = 3
	scoreTitle      = 2
	scoreDesc       = 1
)

// Resolve returns up to limit taxonomies matching the keyword, most
// relevant first. No match is a normal empty result, never an error.
func (r *Resolver) Resolve(ctx context.Context, keyword string, limit int) ([]domain.Taxonomy, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" || limit <= 0 {
		return []domain.Taxonomy{}, nil
	}

	// Over-fetch so ranking can promote a late exact match the remote
	// service buried below the requested cutoff.
	fetchLimit := limit * 3
	candidates, err := r.catalog.Taxonomies(ctx, keyword, fetchLimit)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return []domain.Taxonomy{}, nil
	}

	type scored struct {
		taxonomy domain.Taxonomy
		score    int
	}

	// Candidates mentioning the keyword in neither title nor description
	// are not matches, whatever the remote service thought.
	lower := strings.ToLower(keyword)
	ranked := make([]scored, 0, len(candidates))
	for _, t := range candidates {
		s := score(t, lower)
		if s == 0 {
			continue
		}
		ranked = append(ranked, scored{taxonomy: t, score: s})
	}
	if len(ranked) == 0 {
		return []domain.Taxonomy{}, nil
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	out := make([]domain.Taxonomy, 0, len(ranked))
	for _, s := range ranked {
		out = append(out, s.taxonomy)
	}
	return out, nil
}

func score(t domain.Taxonomy, lowerKeyword string) int {
	title := strings.ToLower(strings.TrimSpace(t.Title))
	switch {
	case title == lowerKeyword:
		return scoreExactTitle
	case strings.Contains(title, lowerKeyword):
		return scoreTitle
	case strings.Contains(strings.ToLower(t.Description), lowerKeyword):
		return scoreDesc
	default:
		return 0
	}
}
