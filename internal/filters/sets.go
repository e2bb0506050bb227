package filters

import (
	"context"
	"strings"

	"github.com/newsblog-api/internal/config"
	"github.com/newsblog-api/internal/models"
	"github.com/newsblog-api/internal/predicate"
	"github.com/rs/zerolog"
)

// Set names
const (
	ListingSet = "listing"
	RelatedSet = "related"
)

// ReferenceSource loads the entities choice fields select from
type ReferenceSource interface {
	Mediums(ctx context.Context) ([]*models.Medium, error)
	Categories(ctx context.Context) ([]*models.Category, error)
	CategoryChildren(ctx context.Context, parentSlug string) ([]*models.Category, error)
	ServiceSections(ctx context.Context) ([]*models.ServiceSection, error)
	Services(ctx context.Context) ([]*models.Service, error)
	Locations(ctx context.Context) ([]*models.Location, error)
	Companies(ctx context.Context) ([]*models.Company, error)
	Persons(ctx context.Context, ids []int64) ([]*models.Person, error)
	ServiceIDsInSections(ctx context.Context, serviceSectionIDs []int64) ([]int64, error)
}

// SectionSource lists sections
type SectionSource interface {
	List(ctx context.Context) ([]*models.Section, error)
}

// Sources bundles what the declared sets read
type Sources struct {
	Refs     ReferenceSource
	Sections SectionSource
}

// NewListingSet declares the filters offered above article listings.
// Invalid values are dropped unless cfg.Strict is set.
func NewListingSet(features config.FeatureConfig, cfg *config.FiltersConfig, src Sources, log zerolog.Logger) *Set {
	if cfg == nil {
		cfg = &config.FiltersConfig{}
	}

	search := &Field{Name: "q", Label: "Search the directory", Kind: KindText}
	if features.UpdateSearchData {
		search.Apply = func(_ context.Context, v Value, env Env) (predicate.Predicate, error) {
			terms := strings.Fields(v.Text)
			parts := make([]predicate.Predicate, len(terms))
			for i, term := range terms {
				parts[i] = predicate.Contains(env.Locale, term, predicate.FieldSearchData)
			}
			return predicate.And(parts...), nil
		}
	} else {
		search.Apply = func(_ context.Context, v Value, env Env) (predicate.Predicate, error) {
			return predicate.Contains(env.Locale, v.Text, predicate.FieldTitle), nil
		}
	}

	fields := []*Field{
		search,
		{
			Name: "medium", Label: "medium", Kind: KindChoice, EmptyLabel: "by medium",
			Options: func(ctx context.Context) ([]models.Reference, error) {
				return mediumOptions(ctx, src.Refs, features.DefaultMediumTitle)
			},
			Apply: mediumFilter,
		},
	}
	if features.EnableLocations {
		fields = append(fields, &Field{
			Name: "location", Label: "location", Kind: KindChoice, EmptyLabel: "by location",
			Options: locationOptions(src.Refs),
			Apply:   relationFilter(models.RelLocations),
		})
	}
	fields = append(fields,
		&Field{
			Name: "category", Label: "category", Kind: KindChoice, EmptyLabel: "by category",
			Options: categoryOptions(src.Refs),
			Apply:   relationFilter(models.RelCategories),
		},
		&Field{
			Name: "service", Label: "service", Kind: KindChoice, EmptyLabel: "by service",
			Options: serviceOptions(src.Refs),
			Apply:   relationFilter(models.RelServices),
		},
		&Field{
			Name: "section", Label: "section", Kind: KindChoice, EmptyLabel: "by section",
			Options: func(ctx context.Context) ([]models.Reference, error) {
				return sectionOptions(ctx, src.Sections, true)
			},
			Apply: sectionFilter,
		},
	)
	if features.CompaniesInstalled {
		fields = append(fields, &Field{
			Name: "company", Label: "company", Kind: KindChoice, EmptyLabel: "by company",
			Options: companyOptions(src.Refs),
			Apply:   relationFilter(models.RelCompanies),
		})
	}
	for _, extra := range cfg.ExtraCategories {
		parent := extra.ParentSlug
		fields = append(fields, &Field{
			Name:       strings.ReplaceAll(extra.Name, "-", "_"),
			Label:      extra.Label,
			Kind:       KindChoice,
			EmptyLabel: "by " + extra.Label,
			Options: func(ctx context.Context) ([]models.Reference, error) {
				children, err := src.Refs.CategoryChildren(ctx, parent)
				if err != nil {
					return nil, err
				}
				out := make([]models.Reference, len(children))
				for i, c := range children {
					out[i] = c.Reference()
				}
				return out, nil
			},
			Apply: relationFilter(models.RelCategories),
		})
	}

	return NewSet(ListingSet, cfg.Strict, cfg, log, fields...)
}

// NewRelatedSet declares the programmatic related-articles query. It is
// always strict: one bad value yields an empty list plus the errors.
func NewRelatedSet(features config.FeatureConfig, cfg *config.FiltersConfig, src Sources, log zerolog.Logger) *Set {
	maxCount := features.MaxRelated
	if maxCount <= 0 || maxCount > config.MaxRelatedArticles {
		maxCount = config.MaxRelatedArticles
	}
	translated := features.TranslateAuthors

	fields := []*Field{
		{Name: "mode", Label: "mode", Kind: KindText, Allowed: []string{"json"}},
		{Name: "count", Label: "count", Kind: KindInt, Required: true, Min: 1, Max: maxCount},
		{
			Name: "is_featured", Label: "is featured", Kind: KindBool,
			Apply: func(_ context.Context, v Value, env Env) (predicate.Predicate, error) {
				featured := predicate.FlagSet(predicate.FlagFeatured, features.TranslatePublished, env.Locale)
				if v.Bool {
					return featured, nil
				}
				return predicate.Not(featured), nil
			},
		},
		{
			Name: "exclude_current", Label: "exclude current article", Kind: KindInt, Min: 0,
			Apply: func(_ context.Context, v Value, _ Env) (predicate.Predicate, error) {
				if v.Int <= 0 {
					return predicate.All(), nil
				}
				return predicate.Not(predicate.IDIn(int64(v.Int))), nil
			},
		},
		{
			Name: "mediums", Label: "medium", Kind: KindMulti,
			Options: func(ctx context.Context) ([]models.Reference, error) {
				return mediumOptions(ctx, src.Refs, "")
			},
			Apply: mediumFilter,
		},
		{Name: "locations", Label: "location", Kind: KindMulti, Options: locationOptions(src.Refs), Apply: relationFilter(models.RelLocations)},
		{Name: "categories", Label: "category", Kind: KindMulti, Options: categoryOptions(src.Refs), Apply: relationFilter(models.RelCategories)},
		{Name: "services", Label: "service", Kind: KindMulti, Options: serviceOptions(src.Refs), Apply: relationFilter(models.RelServices)},
		{
			Name: "service_sections", Label: "service section", Kind: KindMulti,
			Options: func(ctx context.Context) ([]models.Reference, error) {
				sections, err := src.Refs.ServiceSections(ctx)
				if err != nil {
					return nil, err
				}
				out := make([]models.Reference, len(sections))
				for i, s := range sections {
					out[i] = s.Reference()
				}
				return out, nil
			},
			Apply: func(ctx context.Context, v Value, _ Env) (predicate.Predicate, error) {
				services, err := src.Refs.ServiceIDsInSections(ctx, v.IDs)
				if err != nil {
					return nil, err
				}
				if len(services) == 0 {
					return predicate.None(), nil
				}
				return predicate.RelationIn(models.RelServices, services...), nil
			},
		},
		{
			Name: "sections", Label: "section", Kind: KindMulti,
			Options: func(ctx context.Context) ([]models.Reference, error) {
				return sectionOptions(ctx, src.Sections, false)
			},
			Apply: sectionFilter,
		},
		{
			Name: "authors", Label: "author", Kind: KindMulti,
			Options: func(ctx context.Context) ([]models.Reference, error) {
				persons, err := src.Refs.Persons(ctx, nil)
				if err != nil {
					return nil, err
				}
				out := make([]models.Reference, len(persons))
				for i, p := range persons {
					out[i] = p.Reference()
				}
				return out, nil
			},
			Apply: func(_ context.Context, v Value, env Env) (predicate.Predicate, error) {
				return predicate.AuthorIn(v.IDs, []predicate.AuthorSlot{predicate.PrimaryAuthor}, translated, env.Locale), nil
			},
		},
		{Name: "image", Label: "image", Kind: KindObject},
	}

	return NewSet(RelatedSet, true, cfg, log, fields...)
}

func mediumFilter(_ context.Context, v Value, _ Env) (predicate.Predicate, error) {
	return predicate.MediumIn(v.IDs...), nil
}

func sectionFilter(_ context.Context, v Value, _ Env) (predicate.Predicate, error) {
	return predicate.SectionIn(v.IDs...), nil
}

func relationFilter(rel models.Relation) func(context.Context, Value, Env) (predicate.Predicate, error) {
	return func(_ context.Context, v Value, _ Env) (predicate.Predicate, error) {
		return predicate.RelationIn(rel, v.IDs...), nil
	}
}

// mediumOptions lists mediums, leaving out the default medium sentinel
// when its title is given.
func mediumOptions(ctx context.Context, refs ReferenceSource, defaultTitle string) ([]models.Reference, error) {
	mediums, err := refs.Mediums(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.Reference, 0, len(mediums))
	for _, m := range mediums {
		if defaultTitle != "" && m.Title == defaultTitle {
			continue
		}
		out = append(out, m.Reference())
	}
	return out, nil
}

func locationOptions(refs ReferenceSource) func(context.Context) ([]models.Reference, error) {
	return func(ctx context.Context) ([]models.Reference, error) {
		locations, err := refs.Locations(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]models.Reference, len(locations))
		for i, l := range locations {
			out[i] = l.Reference()
		}
		return out, nil
	}
}

func categoryOptions(refs ReferenceSource) func(context.Context) ([]models.Reference, error) {
	return func(ctx context.Context) ([]models.Reference, error) {
		categories, err := refs.Categories(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]models.Reference, len(categories))
		for i, c := range categories {
			out[i] = c.Reference()
		}
		return out, nil
	}
}

func serviceOptions(refs ReferenceSource) func(context.Context) ([]models.Reference, error) {
	return func(ctx context.Context) ([]models.Reference, error) {
		services, err := refs.Services(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]models.Reference, len(services))
		for i, s := range services {
			out[i] = s.Reference()
		}
		return out, nil
	}
}

func companyOptions(refs ReferenceSource) func(context.Context) ([]models.Reference, error) {
	return func(ctx context.Context) ([]models.Reference, error) {
		companies, err := refs.Companies(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]models.Reference, len(companies))
		for i, c := range companies {
			out[i] = c.Reference()
		}
		return out, nil
	}
}

// sectionOptions lists sections. listing keeps only sections shown in
// listings and drops the reserved default section.
func sectionOptions(ctx context.Context, sections SectionSource, listing bool) ([]models.Reference, error) {
	all, err := sections.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.Reference, 0, len(all))
	for _, s := range all {
		if listing && (!s.ShowInListing || s.IsDefault()) {
			continue
		}
		out = append(out, SectionReference(s))
	}
	return out, nil
}

// SectionReference converts a section for choice lists
func SectionReference(s *models.Section) models.Reference {
	label := s.Title
	if label == "" {
		label = s.Namespace
	}
	return models.Reference{ID: s.ID, Label: label, Slug: s.Namespace, Attrs: map[string]string{
		"namespace": s.Namespace,
		"title":     s.Title,
	}}
}
