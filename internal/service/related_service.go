package service

import (
	"context"
	"fmt"
	"time"

	"github.com/newsblog-api/internal/config"
	"github.com/newsblog-api/internal/filters"
	"github.com/newsblog-api/internal/metrics"
	"github.com/newsblog-api/internal/models"
	"github.com/newsblog-api/internal/predicate"
	"github.com/newsblog-api/internal/publication"
	"github.com/newsblog-api/internal/repository"
	"github.com/newsblog-api/internal/resolver"
	"github.com/newsblog-api/internal/validation"
	"github.com/rs/zerolog"
)

// WidgetRequest identifies a widget and the page it is rendered on.
// Widget, when set, is used instead of loading WidgetID.
type WidgetRequest struct {
	WidgetID int64
	Widget   *models.RelatedWidget
	// The anchor is found by ArticleID, or by Slug within Namespace
	ArticleID int64
	Namespace string
	Slug      string
	Locale    string
	Viewer    publication.Viewer
}

// QueryRequest is one programmatic related-articles query
type QueryRequest struct {
	Input  filters.Input
	Locale string
}

// QueryResult is the data bag of a related-articles query
type QueryResult struct {
	Items     []resolver.Item              `json:"items"`
	Total     int                          `json:"total"`
	AllImages bool                         `json:"all_images"`
	Valid     bool                         `json:"valid"`
	Errors    []validation.ValidationError `json:"errors,omitempty"`
	Mode      string                       `json:"mode,omitempty"`
	Template  string                       `json:"template"`
	filters.Thumbnail
}

// relatedService is the concrete implementation of RelatedService
type relatedService struct {
	repos    *repository.Repositories
	resolver *resolver.Resolver
	set      *filters.Set
	policy   *publication.Policy
	features config.FeatureConfig
	now      func() time.Time
	log      zerolog.Logger
}

func newRelatedService(repos *repository.Repositories, res *resolver.Resolver, set *filters.Set, policy *publication.Policy, features config.FeatureConfig, now func() time.Time, log zerolog.Logger) *relatedService {
	return &relatedService{
		repos:    repos,
		resolver: res,
		set:      set,
		policy:   policy,
		features: features,
		now:      now,
		log:      log.With().Str("service", "related").Logger(),
	}
}

// ForWidget implements RelatedService. A missing widget or anchor is
// reported as models.ErrNotFound.
func (s *relatedService) ForWidget(ctx context.Context, req WidgetRequest) (*resolver.Result, error) {
	started := time.Now()

	w := req.Widget
	if w == nil {
		loaded, err := s.repos.Widget.GetByID(ctx, req.WidgetID)
		if err != nil {
			return nil, fmt.Errorf("widget %d: %w", req.WidgetID, err)
		}
		w = loaded
	}

	anchor, err := s.anchor(ctx, req)
	if err != nil {
		return nil, err
	}

	res, err := s.resolver.Resolve(ctx, resolver.Request{
		Widget: w,
		Anchor: anchor,
		Locale: req.Locale,
		Viewer: req.Viewer,
	})
	if err != nil {
		return nil, err
	}
	metrics.ObserveResolution(string(res.Strategy), started)

	s.log.Debug().
		Int64("widget_id", w.ID).
		Str("strategy", string(res.Strategy)).
		Int("items", len(res.Items)).
		Int("total", res.Total).
		Msg("Resolved related articles")
	return res, nil
}

func (s *relatedService) anchor(ctx context.Context, req WidgetRequest) (*models.Article, error) {
	switch {
	case req.ArticleID > 0:
		a, err := s.repos.Article.GetByID(ctx, req.ArticleID)
		if err != nil {
			return nil, fmt.Errorf("article %d: %w", req.ArticleID, err)
		}
		return a, nil
	case req.Slug != "":
		namespace := req.Namespace
		if namespace == "" {
			namespace = models.DefaultNamespace
		}
		section, err := s.repos.Section.GetByNamespace(ctx, namespace)
		if err != nil {
			return nil, fmt.Errorf("section %s: %w", namespace, err)
		}
		locales := s.features.ValidLanguages(req.Locale)
		if len(locales) == 0 {
			locales = []string{req.Locale}
		}
		a, err := s.repos.Article.GetBySlug(ctx, section.ID, req.Slug, locales)
		if err != nil {
			return nil, fmt.Errorf("article %s: %w", req.Slug, err)
		}
		return a, nil
	}
	return nil, nil
}

// Query implements RelatedService. Invalid input yields an empty list
// with Valid unset; it is not an error.
func (s *relatedService) Query(ctx context.Context, req QueryRequest) (*QueryResult, error) {
	started := time.Now()

	filtered, err := s.set.Apply(ctx, req.Input, filters.Env{Locale: req.Locale})
	if err != nil {
		return nil, err
	}

	out := &QueryResult{
		Items:     []resolver.Item{},
		AllImages: true,
		Valid:     filtered.Valid,
		Errors:    filtered.Errors,
		Mode:      filtered.Values["mode"].Text,
		Thumbnail: filters.ThumbnailFromOptions(filtered.Values["image"].Object),
	}
	out.Template = "related"
	if out.Mode != "" {
		out.Template = "related_" + out.Mode
	}

	languages := s.features.ValidLanguages(req.Locale)
	where := predicate.And(
		filtered.Where,
		s.policy.LivePredicate(req.Locale, s.now()),
		predicate.TranslatedIn(languages...),
	)
	count := filtered.Int("count", 0)
	if count <= 0 || predicate.IsNone(where) {
		return out, nil
	}

	articles, err := s.repos.Article.Find(ctx, predicate.Query{Where: where, Order: predicate.Newest, Limit: count})
	if err != nil {
		return nil, fmt.Errorf("failed to find related articles: %w", err)
	}
	total, err := s.repos.Article.Count(ctx, where)
	if err != nil {
		return nil, fmt.Errorf("failed to count related articles: %w", err)
	}

	for _, a := range articles {
		item := resolver.Item{Article: a, HasImage: a.HasImage()}
		if !item.HasImage {
			out.AllImages = false
		}
		out.Items = append(out.Items, item)
	}
	out.Total = total
	metrics.ObserveResolution("query", started)
	return out, nil
}
