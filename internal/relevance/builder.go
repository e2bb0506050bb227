// Package relevance turns relevance dimension selections into article
// predicates: AND across dimensions, OR within one.
package relevance

import (
	"context"
	"fmt"
	"strings"

	"github.com/newsblog-api/internal/config"
	"github.com/newsblog-api/internal/models"
	"github.com/newsblog-api/internal/predicate"
	"github.com/newsblog-api/internal/publication"
	"github.com/rs/zerolog"
)

// Dimension names one relevance axis
type Dimension string

const (
	DimSection        Dimension = "section"
	DimMedium         Dimension = "medium"
	DimAuthor         Dimension = "author"
	DimCategory       Dimension = "category"
	DimServiceSection Dimension = "service_section"
	DimService        Dimension = "service"
	DimCompany        Dimension = "company"
	DimLocation       Dimension = "location"
)

// Selection holds the selected values per dimension. An empty slice
// places no constraint.
type Selection struct {
	Sections        []int64
	Mediums         []int64
	Authors         []int64
	Categories      []int64
	ServiceSections []int64
	Services        []int64
	Companies       []int64
	Locations       []int64
	FeaturedOnly    bool
	ExcludeCurrent  bool
}

// SelectionFromWidget copies the dimension selections of w
func SelectionFromWidget(w *models.RelatedWidget) Selection {
	return Selection{
		Sections:        w.SectionIDs,
		Mediums:         w.MediumIDs,
		Authors:         w.AuthorIDs,
		Categories:      w.CategoryIDs,
		ServiceSections: w.ServiceSectionIDs,
		Services:        w.ServiceIDs,
		Companies:       w.CompanyIDs,
		Locations:       w.LocationIDs,
		FeaturedOnly:    w.Featured,
		ExcludeCurrent:  w.ExcludeCurrentArticle,
	}
}

// SingleAuthor returns the author id when exactly one is selected
func (s Selection) SingleAuthor() (int64, bool) {
	if len(s.Authors) == 1 {
		return s.Authors[0], true
	}
	return 0, false
}

// Lookup resolves the reference data some dimensions depend on
type Lookup interface {
	// DefaultMediumID returns the id of the default medium sentinel, if it
	// has been created.
	DefaultMediumID(ctx context.Context) (int64, bool, error)
	ServiceIDsInSections(ctx context.Context, serviceSectionIDs []int64) ([]int64, error)
}

// Request is one predicate build
type Request struct {
	Selection
	Locale string
	// Anchor is the article being viewed, if any
	Anchor *models.Article
	// DefaultSections applies when no section is selected; nil means
	// every section.
	DefaultSections []int64
}

type dimension struct {
	name   Dimension
	values func(s Selection) []int64
	build  func(ctx context.Context, req Request, ids []int64) (predicate.Predicate, error)
}

// Builder composes relevance predicates. The dimension table is fixed at
// construction from the install's feature flags.
type Builder struct {
	policy           *publication.Policy
	lookup           Lookup
	translateAuthors bool
	dimensions       []dimension
	log              zerolog.Logger
}

// NewBuilder creates a builder. Company and location dimensions are only
// registered when their collaborators are enabled.
func NewBuilder(features config.FeatureConfig, policy *publication.Policy, lookup Lookup, log zerolog.Logger) *Builder {
	b := &Builder{
		policy:           policy,
		lookup:           lookup,
		translateAuthors: features.TranslateAuthors,
		log:              log.With().Str("component", "relevance").Logger(),
	}

	b.dimensions = []dimension{
		{DimMedium, func(s Selection) []int64 { return s.Mediums }, b.medium},
		{DimAuthor, func(s Selection) []int64 { return s.Authors }, b.author},
		{DimCategory, func(s Selection) []int64 { return s.Categories }, relation(models.RelCategories)},
		{DimServiceSection, func(s Selection) []int64 { return s.ServiceSections }, b.serviceSection},
		{DimService, func(s Selection) []int64 { return s.Services }, relation(models.RelServices)},
	}
	if features.CompaniesInstalled {
		b.dimensions = append(b.dimensions, dimension{DimCompany, func(s Selection) []int64 { return s.Companies }, relation(models.RelCompanies)})
	}
	if features.EnableLocations {
		b.dimensions = append(b.dimensions, dimension{DimLocation, func(s Selection) []int64 { return s.Locations }, relation(models.RelLocations)})
	}
	return b
}

// Supports reports whether dim is active on this install
func (b *Builder) Supports(dim Dimension) bool {
	if dim == DimSection {
		return true
	}
	for _, d := range b.dimensions {
		if d.name == dim {
			return true
		}
	}
	return false
}

// Build returns the candidate predicate for req. The result carries no
// liveness constraint and no ordering.
func (b *Builder) Build(ctx context.Context, req Request) (predicate.Predicate, error) {
	parts := []predicate.Predicate{b.section(req)}

	for _, d := range b.dimensions {
		ids := d.values(req.Selection)
		if len(ids) == 0 {
			continue
		}
		p, err := d.build(ctx, req, ids)
		if err != nil {
			return nil, fmt.Errorf("%s dimension: %w", d.name, err)
		}
		parts = append(parts, p)
	}

	if req.ExcludeCurrent && req.Anchor != nil {
		parts = append(parts, predicate.Not(predicate.IDIn(req.Anchor.ID)))
	}
	if req.FeaturedOnly {
		parts = append(parts, b.policy.FeaturedPredicate(req.Locale))
	}

	p := predicate.And(parts...)
	b.log.Debug().Str("dimensions", b.Describe(req.Selection)).Bool("empty", predicate.IsNone(p)).Bool("unrestricted", predicate.IsAll(p)).Msg("Relevance predicate built")
	return p, nil
}

// Describe lists the populated dimensions, for logs
func (b *Builder) Describe(s Selection) string {
	var names []string
	if len(s.Sections) > 0 {
		names = append(names, fmt.Sprintf("%s=%d", DimSection, len(s.Sections)))
	}
	for _, d := range b.dimensions {
		if n := len(d.values(s)); n > 0 {
			names = append(names, fmt.Sprintf("%s=%d", d.name, n))
		}
	}
	if s.FeaturedOnly {
		names = append(names, "featured")
	}
	if s.ExcludeCurrent {
		names = append(names, "exclude_current")
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ",")
}

func (b *Builder) section(req Request) predicate.Predicate {
	if len(req.Sections) > 0 {
		return predicate.SectionIn(req.Sections...)
	}
	if req.DefaultSections != nil {
		return predicate.SectionIn(req.DefaultSections...)
	}
	return predicate.All()
}

// medium maps a lone default-medium selection to "medium unset"
func (b *Builder) medium(ctx context.Context, _ Request, ids []int64) (predicate.Predicate, error) {
	if len(ids) == 1 {
		sentinel, ok, err := b.lookup.DefaultMediumID(ctx)
		if err != nil {
			return nil, err
		}
		if ok && ids[0] == sentinel {
			return predicate.MediumUnset(), nil
		}
	}
	return predicate.MediumIn(ids...), nil
}

// author matches one author in any slot, several authors in the primary
// slot only.
// TODO: check all three slots for multi-author selections once existing
// widgets have been audited for the behavior change.
func (b *Builder) author(_ context.Context, req Request, ids []int64) (predicate.Predicate, error) {
	slots := []predicate.AuthorSlot{predicate.PrimaryAuthor}
	if len(ids) == 1 {
		slots = predicate.AllAuthorSlots
	}
	return predicate.AuthorIn(ids, slots, b.translateAuthors, req.Locale), nil
}

func (b *Builder) serviceSection(ctx context.Context, _ Request, ids []int64) (predicate.Predicate, error) {
	services, err := b.lookup.ServiceIDsInSections(ctx, ids)
	if err != nil {
		return nil, err
	}
	return predicate.RelationIn(models.RelServices, services...), nil
}

func relation(rel models.Relation) func(context.Context, Request, []int64) (predicate.Predicate, error) {
	return func(_ context.Context, _ Request, ids []int64) (predicate.Predicate, error) {
		return predicate.RelationIn(rel, ids...), nil
	}
}
