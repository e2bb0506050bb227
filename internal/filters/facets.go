package filters

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"time"

	"github.com/newsblog-api/internal/cache"
	"github.com/newsblog-api/internal/config"
	"github.com/newsblog-api/internal/models"
	"github.com/newsblog-api/internal/predicate"
	"github.com/newsblog-api/internal/publication"
	"github.com/rs/zerolog"
	"golang.org/x/text/cases"
)

// Facet names
const (
	FacetServices   = "services"
	FacetAuthors    = "authors"
	FacetCategories = "categories"
	FacetArchive    = "archive"
)

// FacetNames lists the supported facets
var FacetNames = []string{FacetServices, FacetAuthors, FacetCategories, FacetArchive}

// CountSource runs the grouped counts facets are built from
type CountSource interface {
	CountByRelation(ctx context.Context, where predicate.Predicate, rel models.Relation) (map[int64]int, error)
	CountByAuthor(ctx context.Context, where predicate.Predicate, translated bool, locale string) (map[int64]int, error)
	CountByMonth(ctx context.Context, where predicate.Predicate) ([]models.ArchiveMonth, error)
}

// FacetRequest scopes one facet computation
type FacetRequest struct {
	Section *models.Section
	Locale  string
	// Args narrows the counted articles with listing filter inputs
	Args url.Values
}

// Facets computes cached counts over the live articles of a section
type Facets struct {
	counts   CountSource
	refs     ReferenceSource
	listing  *Set
	policy   *publication.Policy
	features config.FeatureConfig
	cache    *cache.Cache
	now      func() time.Time
	log      zerolog.Logger
}

// NewFacets creates the facet helpers. listing interprets Args.
func NewFacets(counts CountSource, refs ReferenceSource, listing *Set, policy *publication.Policy, features config.FeatureConfig, c *cache.Cache, log zerolog.Logger) *Facets {
	return &Facets{
		counts:   counts,
		refs:     refs,
		listing:  listing,
		policy:   policy,
		features: features,
		cache:    c,
		now:      time.Now,
		log:      log.With().Str("component", "facets").Logger(),
	}
}

// SetClock overrides the time source
func (f *Facets) SetClock(now func() time.Time) {
	f.now = now
}

// facetScope is the counted article set of one request
type facetScope struct {
	where predicate.Predicate
	// accepted holds the args the listing set kept, by field name
	accepted map[string]Value
	valid    bool
}

// scope narrows the live set of the section by the request args.
// Inputs the listing set ignores never reach accepted. Invalid args in a
// strict listing set produce no matches.
func (f *Facets) scope(ctx context.Context, req FacetRequest) (facetScope, error) {
	sc := facetScope{valid: true}
	parts := []predicate.Predicate{
		predicate.SectionIn(req.Section.ID),
		f.policy.LivePredicate(req.Locale, f.now()),
	}
	if len(req.Args) > 0 && f.listing != nil {
		res, err := f.listing.Apply(ctx, Input{Values: req.Args}, Env{Locale: req.Locale})
		if err != nil {
			return sc, err
		}
		parts = append(parts, res.Where)
		if len(res.Values) > 0 {
			sc.accepted = res.Values
		}
		sc.valid = res.Valid
	}
	sc.where = predicate.And(parts...)
	return sc, nil
}

// key identifies a facet result by section, locale and accepted args
func (f *Facets) key(name string, section *models.Section, locale string, sc facetScope) cache.Key {
	return cache.Key{
		Name:      name,
		Namespace: section.Namespace,
		Parts: map[string]interface{}{
			"locale": locale,
			"args":   sc.accepted,
			"valid":  sc.valid,
		},
	}
}

// remember scopes req and reads the named facet through the cache
func remember[T any](ctx context.Context, f *Facets, name string, req FacetRequest, load func(ctx context.Context, where predicate.Predicate) (T, error)) (T, error) {
	sc, err := f.scope(ctx, req)
	if err != nil {
		var zero T
		return zero, err
	}
	return cache.Remember(ctx, f.cache, f.key(name, req.Section, req.Locale, sc), func(ctx context.Context) (T, error) {
		return load(ctx, sc.where)
	})
}

// Services counts live articles per service, largest first
func (f *Facets) Services(ctx context.Context, req FacetRequest) ([]models.Count, error) {
	return remember(ctx, f, FacetServices, req, func(ctx context.Context, where predicate.Predicate) ([]models.Count, error) {
		counts, err := f.counts.CountByRelation(ctx, where, models.RelServices)
		if err != nil {
			return nil, fmt.Errorf("failed to count services: %w", err)
		}
		services, err := f.refs.Services(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load services: %w", err)
		}
		refs := make([]models.Reference, len(services))
		for i, s := range services {
			refs[i] = s.Reference()
		}
		return withCounts(refs, counts), nil
	})
}

// Categories counts live articles per category, largest first
func (f *Facets) Categories(ctx context.Context, req FacetRequest) ([]models.Count, error) {
	return remember(ctx, f, FacetCategories, req, func(ctx context.Context, where predicate.Predicate) ([]models.Count, error) {
		counts, err := f.counts.CountByRelation(ctx, where, models.RelCategories)
		if err != nil {
			return nil, fmt.Errorf("failed to count categories: %w", err)
		}
		categories, err := f.refs.Categories(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load categories: %w", err)
		}
		refs := make([]models.Reference, len(categories))
		for i, c := range categories {
			refs[i] = c.Reference()
		}
		return withCounts(refs, counts), nil
	})
}

// Authors counts live articles per primary author, largest first
func (f *Facets) Authors(ctx context.Context, req FacetRequest) ([]models.Count, error) {
	return remember(ctx, f, FacetAuthors, req, func(ctx context.Context, where predicate.Predicate) ([]models.Count, error) {
		counts, err := f.counts.CountByAuthor(ctx, where, f.features.TranslateAuthors, req.Locale)
		if err != nil {
			return nil, fmt.Errorf("failed to count authors: %w", err)
		}
		if len(counts) == 0 {
			return []models.Count{}, nil
		}
		ids := make([]int64, 0, len(counts))
		for id := range counts {
			ids = append(ids, id)
		}
		persons, err := f.refs.Persons(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("failed to load authors: %w", err)
		}
		refs := make([]models.Reference, len(persons))
		for i, p := range persons {
			refs[i] = p.Reference()
		}
		return withCounts(refs, counts), nil
	})
}

// Archive counts live articles per month, newest month first
func (f *Facets) Archive(ctx context.Context, req FacetRequest) ([]models.ArchiveMonth, error) {
	return remember(ctx, f, FacetArchive, req, func(ctx context.Context, where predicate.Predicate) ([]models.ArchiveMonth, error) {
		months, err := f.counts.CountByMonth(ctx, where)
		if err != nil {
			return nil, fmt.Errorf("failed to count archive: %w", err)
		}
		return months, nil
	})
}

// Invalidate drops the unfiltered cached facets of section for each
// locale. Entries narrowed by args expire with the cache TTL.
func (f *Facets) Invalidate(ctx context.Context, section *models.Section, locales ...string) {
	for _, locale := range locales {
		for _, name := range FacetNames {
			if err := f.cache.Delete(ctx, f.key(name, section, locale, facetScope{valid: true})); err != nil {
				f.log.Warn().Err(err).Str("facet", name).Str("namespace", section.Namespace).Msg("Failed to drop cached facet")
			}
		}
	}
}

// withCounts pairs refs with their counts, drops unused ones and sorts
// by count descending, then by case-folded label.
func withCounts(refs []models.Reference, counts map[int64]int) []models.Count {
	fold := cases.Fold()
	out := make([]models.Count, 0, len(counts))
	for _, r := range refs {
		if n := counts[r.ID]; n > 0 {
			out = append(out, models.Count{Reference: r, Count: n})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		li, lj := fold.String(out[i].Label), fold.String(out[j].Label)
		if li != lj {
			return li < lj
		}
		return out[i].ID < out[j].ID
	})
	return out
}
