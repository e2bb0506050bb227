package service

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/newsblog-api/internal/cache"
	"github.com/newsblog-api/internal/config"
	"github.com/newsblog-api/internal/filters"
	"github.com/newsblog-api/internal/models"
	"github.com/newsblog-api/internal/publication"
	"github.com/newsblog-api/internal/relevance"
	"github.com/newsblog-api/internal/repository"
	"github.com/newsblog-api/internal/resolver"
	"github.com/rs/zerolog"
)

// ErrUnknownFacet is returned for facet names that do not exist
var ErrUnknownFacet = errors.New("unknown facet")

// RelatedService resolves related article lists
type RelatedService interface {
	// ForWidget resolves the list of a stored or inline widget
	ForWidget(ctx context.Context, req WidgetRequest) (*resolver.Result, error)
	// Query runs the programmatic related-articles filter set
	Query(ctx context.Context, req QueryRequest) (*QueryResult, error)
}

// ArticleService serves article pages and saves articles
type ArticleService interface {
	Detail(ctx context.Context, req DetailRequest) (*Detail, error)
	Save(ctx context.Context, id int64, in *models.ArticleInput) (*models.Article, error)
}

// ListingService pages through section listings
type ListingService interface {
	Sections(ctx context.Context) ([]*models.Section, error)
	List(ctx context.Context, req ListRequest) (*Page, error)
	Search(ctx context.Context, req SearchRequest) (*Page, error)
	Browse(ctx context.Context, req BrowseRequest) (*BrowsePage, error)
	Choices(ctx context.Context, namespace string, values url.Values) ([]filters.Choice, error)
}

// FacetService returns cached faceted counts
type FacetService interface {
	Facet(ctx context.Context, namespace, name, locale string, args url.Values) (interface{}, error)
	All(ctx context.Context, namespace, locale string, args url.Values) (map[string]interface{}, error)
}

// Services holds all service interfaces
type Services struct {
	Related  RelatedService
	Articles ArticleService
	Listing  ListingService
	Facets   FacetService
}

// Option configures NewServices
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock overrides the time source of every service
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// NewServices creates all services
func NewServices(repos *repository.Repositories, cfg *config.Config, facetCache *cache.Cache, log zerolog.Logger, opts ...Option) *Services {
	o := &options{now: time.Now}
	for _, opt := range opts {
		opt(o)
	}

	features := cfg.Features
	filterCfg := &cfg.Filters
	policy := publication.NewPolicy(features)
	lookup := newReferenceLookup(repos.Reference, features.DefaultMediumTitle)
	builder := relevance.NewBuilder(features, policy, lookup, log)
	res := resolver.New(
		repos.Article,
		repos.Section,
		lookup,
		builder,
		policy,
		resolver.NewLayoutSet(cfg.Layouts),
		features,
		log,
		resolver.WithClock(o.now),
	)

	sources := filters.Sources{Refs: repos.Reference, Sections: repos.Section}
	listingSet := filters.NewListingSet(features, filterCfg, sources, log)
	relatedSet := filters.NewRelatedSet(features, filterCfg, sources, log)

	facets := filters.NewFacets(repos.Article, repos.Reference, listingSet, policy, features, facetCache, log)
	facets.SetClock(o.now)

	return &Services{
		Related:  newRelatedService(repos, res, relatedSet, policy, features, o.now, log),
		Articles: newArticleService(repos, facets, policy, features, o.now, log),
		Listing:  newListingService(repos, listingSet, policy, features, o.now, log),
		Facets:   newFacetService(repos.Section, facets, log),
	}
}
