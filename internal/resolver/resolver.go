// Package resolver selects the related articles shown by a widget.
//
// A curated list (on the widget, else on the anchor article) wins when
// present; otherwise the list is derived from the widget's relevance
// dimensions. Presentation-only problems such as an oversized count or an
// unknown layout fall back to defaults and are never returned as errors.
// A locale the anchor cannot be shown in, or one that does not serve the
// widget language, yields an empty result.
package resolver

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/newsblog-api/internal/config"
	"github.com/newsblog-api/internal/models"
	"github.com/newsblog-api/internal/predicate"
	"github.com/newsblog-api/internal/publication"
	"github.com/newsblog-api/internal/relevance"
	"github.com/rs/zerolog"
)

// Strategy names how a result was produced
type Strategy string

const (
	StrategyNone    Strategy = "none"
	StrategyCurated Strategy = "curated"
	StrategyDerived Strategy = "derived"
)

// AllKey is used for the "first" context values when nothing is selected
const AllKey = "all"

// ArticleReader is the article storage the resolver reads from
type ArticleReader interface {
	GetByIDs(ctx context.Context, ids []int64) ([]*models.Article, error)
	Find(ctx context.Context, q predicate.Query) ([]*models.Article, error)
	Count(ctx context.Context, where predicate.Predicate) (int, error)
}

// SectionReader resolves section flags and names
type SectionReader interface {
	IDsWithFlag(ctx context.Context, flag models.SectionFlag) ([]int64, error)
	GetByID(ctx context.Context, id int64) (*models.Section, error)
}

// Directory resolves slugs of reference entities for context values
type Directory interface {
	CategorySlug(ctx context.Context, id int64) (string, error)
	PersonSlug(ctx context.Context, id int64) (string, error)
}

// Request is one resolution
type Request struct {
	Widget *models.RelatedWidget
	// Anchor is the article being viewed; nil outside article pages
	Anchor *models.Article
	Locale string
	Viewer publication.Viewer
}

// Item is one resolved article
type Item struct {
	Article  *models.Article `json:"article"`
	HasImage bool            `json:"has_image"`
}

// MoreButton is the optional "see more" link of a widget
type MoreButton struct {
	Shown bool   `json:"shown"`
	Text  string `json:"text,omitempty"`
	Link  string `json:"link,omitempty"`
}

// Result is the data bag handed to the presentation layer
type Result struct {
	Items     []Item   `json:"items"`
	Total     int      `json:"total"`
	AllImages bool     `json:"all_images"`
	Layout    string   `json:"layout"`
	Strategy  Strategy `json:"strategy"`
	Title     string   `json:"title"`
	// Author is set when exactly one author dimension value was selected
	Author        *int64     `json:"author,omitempty"`
	FirstSection  string     `json:"related_types_first"`
	FirstCategory string     `json:"related_categories_first"`
	FirstAuthor   string     `json:"related_authors_first,omitempty"`
	MoreButton    MoreButton `json:"more_button"`
}

// Articles returns the resolved articles in order
func (r *Result) Articles() []*models.Article {
	out := make([]*models.Article, len(r.Items))
	for i, it := range r.Items {
		out[i] = it.Article
	}
	return out
}

// Option configures a Resolver
type Option func(*Resolver)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) { r.now = now }
}

// Resolver orchestrates the two resolution strategies
type Resolver struct {
	articles  ArticleReader
	sections  SectionReader
	directory Directory
	builder   *relevance.Builder
	policy    *publication.Policy
	layouts   LayoutCatalog
	features  config.FeatureConfig
	now       func() time.Time
	log       zerolog.Logger
}

// New creates a resolver
func New(
	articles ArticleReader,
	sections SectionReader,
	directory Directory,
	builder *relevance.Builder,
	policy *publication.Policy,
	layouts LayoutCatalog,
	features config.FeatureConfig,
	log zerolog.Logger,
	opts ...Option,
) *Resolver {
	r := &Resolver{
		articles:  articles,
		sections:  sections,
		directory: directory,
		builder:   builder,
		policy:    policy,
		layouts:   layouts,
		features:  features,
		now:       time.Now,
		log:       log.With().Str("component", "resolver").Logger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the related articles for req. Errors are storage
// failures only.
func (r *Resolver) Resolve(ctx context.Context, req Request) (*Result, error) {
	w := req.Widget
	if w == nil {
		w = &models.RelatedWidget{Kind: models.WidgetRelated}
	}
	sel := relevance.SelectionFromWidget(w)

	res := &Result{
		Items:     []Item{},
		AllImages: true,
		Strategy:  StrategyNone,
		Title:     w.Title,
		MoreButton: MoreButton{
			Shown: w.MoreButtonShown,
			Text:  w.MoreButtonText,
			Link:  w.MoreButtonLink,
		},
	}
	if id, ok := sel.SingleAuthor(); ok {
		res.Author = &id
	}
	layout, fellBack := chooseLayout(r.layouts, w.Kind, w.Layout, res.Author != nil)
	if fellBack {
		r.log.Debug().Str("layout", w.Layout).Str("kind", w.Kind).Msg("Layout not available, using default")
	}
	res.Layout = layout
	r.contextKeys(ctx, w, res)

	languages := r.features.ValidLanguages(req.Locale)
	if len(languages) == 0 || (req.Anchor != nil && !req.Anchor.HasAnyTranslation(languages)) {
		r.log.Debug().Str("locale", req.Locale).Int64("widget_id", w.ID).Msg("No translation path for locale, empty result")
		return res, nil
	}
	if w.Locale != "" && !slices.Contains(languages, w.Locale) {
		r.log.Debug().Str("locale", req.Locale).Str("widget_locale", w.Locale).Int64("widget_id", w.ID).Msg("Widget language not served for locale, empty result")
		return res, nil
	}

	curated := w.CuratedIDs
	if len(curated) == 0 && req.Anchor != nil {
		curated = req.Anchor.RelatedIDs
	}

	var err error
	if len(curated) > 0 {
		err = r.resolveCurated(ctx, req, curated, languages, res)
	} else {
		err = r.resolveDerived(ctx, req, sel, w, languages, res)
	}
	if err != nil {
		return nil, err
	}

	for _, it := range res.Items {
		if !it.HasImage {
			res.AllImages = false
			break
		}
	}
	return res, nil
}

// resolveCurated keeps curated order and drops what the viewer may not
// see or what belongs to sections hidden from specific lists.
func (r *Resolver) resolveCurated(ctx context.Context, req Request, ids []int64, languages []string, res *Result) error {
	res.Strategy = StrategyCurated

	found, err := r.articles.GetByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to load curated articles: %w", err)
	}
	byID := make(map[int64]*models.Article, len(found))
	for _, a := range found {
		byID[a.ID] = a
	}

	specific, err := r.sections.IDsWithFlag(ctx, models.FlagShowInSpecific)
	if err != nil {
		return fmt.Errorf("failed to load sections: %w", err)
	}
	allowed := predicate.And(
		predicate.SectionIn(specific...),
		predicate.TranslatedIn(languages...),
		r.policy.VisiblePredicate(req.Locale, r.now(), req.Viewer),
	)

	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		a, ok := byID[id]
		if !ok || seen[id] || !allowed.Match(a) {
			continue
		}
		seen[id] = true
		res.Items = append(res.Items, Item{Article: a, HasImage: a.HasImage()})
	}
	res.Total = len(res.Items)

	r.log.Debug().
		Int("curated", len(ids)).
		Int("visible", len(res.Items)).
		Bool("editor", r.policy.VisibleToEditor(req.Viewer)).
		Msg("Resolved curated list")
	return nil
}

// resolveDerived builds the list from the widget's relevance dimensions.
// Only live, translated articles in sections flagged for related lists
// qualify.
func (r *Resolver) resolveDerived(ctx context.Context, req Request, sel relevance.Selection, w *models.RelatedWidget, languages []string, res *Result) error {
	res.Strategy = StrategyDerived

	var defaults []int64
	if len(sel.Sections) == 0 {
		listing, err := r.sections.IDsWithFlag(ctx, models.FlagShowInListing)
		if err != nil {
			return fmt.Errorf("failed to load listing sections: %w", err)
		}
		defaults = listing
	}
	if len(sel.Companies) > 0 && !r.builder.Supports(relevance.DimCompany) {
		r.log.Debug().Int64("widget_id", w.ID).Msg("Company selection ignored, companies not installed")
	}
	if len(sel.Locations) > 0 && !r.builder.Supports(relevance.DimLocation) {
		r.log.Debug().Int64("widget_id", w.ID).Msg("Location selection ignored, locations disabled")
	}
	candidates, err := r.builder.Build(ctx, relevance.Request{
		Selection:       sel,
		Locale:          req.Locale,
		Anchor:          req.Anchor,
		DefaultSections: defaults,
	})
	if err != nil {
		return err
	}

	related, err := r.sections.IDsWithFlag(ctx, models.FlagShowInRelated)
	if err != nil {
		return fmt.Errorf("failed to load related sections: %w", err)
	}
	where := predicate.And(
		candidates,
		predicate.SectionIn(related...),
		predicate.TranslatedIn(languages...),
		r.policy.LivePredicate(req.Locale, r.now()),
	)

	limit := r.clamp(w.NumberOfArticles, w.ID)
	if limit == 0 || predicate.IsNone(where) {
		return nil
	}

	articles, err := r.articles.Find(ctx, predicate.Query{Where: where, Order: predicate.Newest, Limit: limit})
	if err != nil {
		return fmt.Errorf("failed to find related articles: %w", err)
	}
	total, err := r.articles.Count(ctx, where)
	if err != nil {
		return fmt.Errorf("failed to count related articles: %w", err)
	}

	for _, a := range articles {
		res.Items = append(res.Items, Item{Article: a, HasImage: a.HasImage()})
	}
	res.Total = total
	return nil
}

// clamp bounds the requested count to [0, MaxRelated]
func (r *Resolver) clamp(n int, widgetID int64) int {
	ceiling := r.features.MaxRelated
	if ceiling <= 0 || ceiling > config.MaxRelatedArticles {
		ceiling = config.MaxRelatedArticles
	}
	if n > ceiling {
		r.log.Warn().Int64("widget_id", widgetID).Int("requested", n).Int("max", ceiling).Msg("Related article count clamped")
		return ceiling
	}
	if n < 0 {
		return 0
	}
	return n
}

// contextKeys fills the first section, category and author values the
// templates use to build "see more" links.
func (r *Resolver) contextKeys(ctx context.Context, w *models.RelatedWidget, res *Result) {
	res.FirstSection = AllKey
	res.FirstCategory = AllKey

	if len(w.SectionIDs) > 0 {
		if s, err := r.sections.GetByID(ctx, w.SectionIDs[0]); err == nil && s != nil {
			res.FirstSection = s.Namespace
		} else if err != nil {
			r.log.Warn().Err(err).Int64("section_id", w.SectionIDs[0]).Msg("Failed to resolve first section")
		}
	}
	if r.directory == nil {
		return
	}
	if len(w.CategoryIDs) > 0 {
		if slug, err := r.directory.CategorySlug(ctx, w.CategoryIDs[0]); err == nil && slug != "" {
			res.FirstCategory = slug
		} else if err != nil {
			r.log.Warn().Err(err).Int64("category_id", w.CategoryIDs[0]).Msg("Failed to resolve first category")
		}
	}
	if len(w.AuthorIDs) > 0 {
		if slug, err := r.directory.PersonSlug(ctx, w.AuthorIDs[0]); err == nil {
			res.FirstAuthor = slug
		} else {
			r.log.Warn().Err(err).Int64("author_id", w.AuthorIDs[0]).Msg("Failed to resolve first author")
		}
	}
}
