package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/newsblog-api/internal/config"
	"github.com/newsblog-api/internal/filters"
	"github.com/newsblog-api/internal/models"
	"github.com/newsblog-api/internal/predicate"
	"github.com/newsblog-api/internal/publication"
	"github.com/newsblog-api/internal/repository"
	"github.com/newsblog-api/internal/validation"
	"github.com/rs/zerolog"
)

// Browse listing settings
const (
	browsePageSize     = 8
	browsePagesStart   = 5
	browsePagesVisible = 2
	// browseAll disables a browse dimension
	browseAll = "all"
)

// Scope narrows a listing to one author, category, service or date.
// Author, Category and Service are slugs.
type Scope struct {
	Author   string
	Category string
	Service  string
	Year     int
	Month    int
	Day      int
}

// ListRequest asks for one page of a section listing
type ListRequest struct {
	Namespace string
	Locale    string
	Viewer    publication.Viewer
	Page      int
	Filters   url.Values
	Scope     Scope
}

// SearchRequest asks for one page of search results. MaxArticles, when
// positive, replaces the section page size.
type SearchRequest struct {
	Namespace   string
	Locale      string
	Viewer      publication.Viewer
	Page        int
	Query       string
	MaxArticles int
	Filters     url.Values
}

// BrowseRequest asks for the cross-section listing. Type is a section
// namespace and Category a category slug; both match case-insensitively
// and "all" or empty disables them.
type BrowseRequest struct {
	Type     string
	Category string
	Locale   string
	Page     int
}

// Pagination is the window configuration handed to page navigation
type Pagination struct {
	PagesStart                int `json:"pages_start"`
	PagesVisible              int `json:"pages_visible"`
	PagesVisibleNegative      int `json:"pages_visible_negative"`
	PagesVisibleTotal         int `json:"pages_visible_total"`
	PagesVisibleTotalNegative int `json:"pages_visible_total_negative"`
}

// NewPagination derives the navigation window options
func NewPagination(start, visible int) Pagination {
	return Pagination{
		PagesStart:                start,
		PagesVisible:              visible,
		PagesVisibleNegative:      -visible,
		PagesVisibleTotal:         visible + 1,
		PagesVisibleTotalNegative: -visible - 1,
	}
}

// Page is one page of a listing
type Page struct {
	Items      []*models.Article            `json:"items"`
	Total      int                          `json:"total"`
	Page       int                          `json:"page"`
	PageSize   int                          `json:"page_size"`
	NumPages   int                          `json:"num_pages"`
	HasNext    bool                         `json:"has_next"`
	HasPrev    bool                         `json:"has_previous"`
	Pagination Pagination                   `json:"pagination"`
	Valid      bool                         `json:"valid"`
	Errors     []validation.ValidationError `json:"errors,omitempty"`
	Query      string                       `json:"query,omitempty"`
	Section    *models.Section              `json:"section,omitempty"`
}

// BrowsePage is a page of the cross-section listing with its filter lists
type BrowsePage struct {
	*Page
	Types          []*models.Section  `json:"type_filter_list"`
	Categories     []models.Reference `json:"category_filter_list"`
	ActiveType     string             `json:"type_filter_active"`
	ActiveCategory string             `json:"category_filter_active"`
}

// listingService is the concrete implementation of ListingService
type listingService struct {
	articleRepo   repository.ArticleRepository
	sectionRepo   repository.SectionRepository
	referenceRepo repository.ReferenceRepository
	set           *filters.Set
	policy        *publication.Policy
	features      config.FeatureConfig
	now           func() time.Time
	log           zerolog.Logger
}

func newListingService(repos *repository.Repositories, set *filters.Set, policy *publication.Policy, features config.FeatureConfig, now func() time.Time, log zerolog.Logger) *listingService {
	return &listingService{
		articleRepo:   repos.Article,
		sectionRepo:   repos.Section,
		referenceRepo: repos.Reference,
		set:           set,
		policy:        policy,
		features:      features,
		now:           now,
		log:           log.With().Str("service", "listing").Logger(),
	}
}

// Sections implements ListingService
func (s *listingService) Sections(ctx context.Context) ([]*models.Section, error) {
	sections, err := s.sectionRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list sections: %w", err)
	}
	return sections, nil
}

// base matches the articles of section a viewer may list in locale
func (s *listingService) base(section *models.Section, locale string, v publication.Viewer, languages []string) predicate.Predicate {
	return predicate.And(
		predicate.SectionIn(section.ID),
		s.policy.VisiblePredicate(locale, s.now(), v),
		predicate.TranslatedIn(languages...),
	)
}

// List implements ListingService. A page past the last one is
// models.ErrNotFound.
func (s *listingService) List(ctx context.Context, req ListRequest) (*Page, error) {
	section, err := s.sectionRepo.GetByNamespace(ctx, req.Namespace)
	if err != nil {
		return nil, fmt.Errorf("section %s: %w", req.Namespace, err)
	}
	pagination := NewPagination(section.PaginationPagesStart, section.PaginationPagesVisible)

	languages := s.features.ValidLanguages(req.Locale)
	if len(languages) == 0 {
		return emptyPage(section, section.PageSize(), pagination), nil
	}

	scope, err := s.scope(ctx, req.Scope, req.Locale)
	if err != nil {
		return nil, err
	}

	filtered, err := s.set.Apply(ctx, filters.Input{Values: req.Filters}, filters.Env{Locale: req.Locale})
	if err != nil {
		return nil, err
	}

	where := predicate.And(s.base(section, req.Locale, req.Viewer, languages), scope, filtered.Where)
	if req.Scope == (Scope{}) && section.ExcludeFeatured > 0 {
		exclude, err := s.featuredIDs(ctx, section, req.Locale, req.Viewer, languages)
		if err != nil {
			return nil, err
		}
		if len(exclude) > 0 {
			where = predicate.And(where, predicate.Not(predicate.IDIn(exclude...)))
		}
	}

	page, err := s.paginate(ctx, where, req.Page, section.PageSize())
	if err != nil {
		return nil, err
	}
	page.Pagination = pagination
	page.Section = section
	page.Valid = filtered.Valid
	page.Errors = filtered.Errors
	return page, nil
}

// featuredIDs returns the newest featured articles hidden from the main
// list so a featured widget on the same page does not repeat them.
func (s *listingService) featuredIDs(ctx context.Context, section *models.Section, locale string, v publication.Viewer, languages []string) ([]int64, error) {
	featured, err := s.articleRepo.Find(ctx, predicate.Query{
		Where: predicate.And(s.base(section, locale, v, languages), s.policy.FeaturedPredicate(locale)),
		Order: predicate.Newest,
		Limit: section.ExcludeFeatured,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load featured articles: %w", err)
	}
	ids := make([]int64, len(featured))
	for i, a := range featured {
		ids[i] = a.ID
	}
	return ids, nil
}

// scope turns a listing scope into a predicate. Unknown slugs are
// models.ErrNotFound.
func (s *listingService) scope(ctx context.Context, sc Scope, locale string) (predicate.Predicate, error) {
	parts := []predicate.Predicate{}

	if sc.Author != "" {
		persons, err := s.referenceRepo.Persons(ctx, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to load authors: %w", err)
		}
		id, ok := findSlug(len(persons), func(i int) (int64, string) { return persons[i].ID, persons[i].Slug }, sc.Author, false)
		if !ok {
			return nil, fmt.Errorf("author %s: %w", sc.Author, models.ErrNotFound)
		}
		parts = append(parts, predicate.AuthorIn([]int64{id}, predicate.AllAuthorSlots, s.features.TranslateAuthors, locale))
	}
	if sc.Category != "" {
		id, err := s.categoryID(ctx, sc.Category, false)
		if err != nil {
			return nil, err
		}
		parts = append(parts, predicate.RelationIn(models.RelCategories, id))
	}
	if sc.Service != "" {
		services, err := s.referenceRepo.Services(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load services: %w", err)
		}
		id, ok := findSlug(len(services), func(i int) (int64, string) { return services[i].ID, services[i].Slug }, sc.Service, false)
		if !ok {
			return nil, fmt.Errorf("service %s: %w", sc.Service, models.ErrNotFound)
		}
		parts = append(parts, predicate.RelationIn(models.RelServices, id))
	}
	if sc.Year > 0 {
		from, to, err := dateRange(sc.Year, sc.Month, sc.Day)
		if err != nil {
			return nil, err
		}
		parts = append(parts, predicate.DateRange(from, to))
	}
	return predicate.And(parts...), nil
}

func (s *listingService) categoryID(ctx context.Context, slug string, fold bool) (int64, error) {
	categories, err := s.referenceRepo.Categories(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load categories: %w", err)
	}
	id, ok := findSlug(len(categories), func(i int) (int64, string) { return categories[i].ID, categories[i].Slug }, slug, fold)
	if !ok {
		return 0, fmt.Errorf("category %s: %w", slug, models.ErrNotFound)
	}
	return id, nil
}

func findSlug(n int, at func(i int) (int64, string), slug string, fold bool) (int64, bool) {
	for i := 0; i < n; i++ {
		id, s := at(i)
		if s == slug || (fold && strings.EqualFold(s, slug)) {
			return id, true
		}
	}
	return 0, false
}

// dateRange returns the year, month or day window starting at the
// given date. Out of range components are models.ErrNotFound.
func dateRange(year, month, day int) (time.Time, time.Time, error) {
	if month < 0 || month > 12 || day < 0 || day > 31 || (day > 0 && month == 0) {
		return time.Time{}, time.Time{}, fmt.Errorf("date %d/%d/%d: %w", year, month, day, models.ErrNotFound)
	}
	switch {
	case day > 0:
		from := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
		if from.Day() != day {
			return time.Time{}, time.Time{}, fmt.Errorf("date %d/%d/%d: %w", year, month, day, models.ErrNotFound)
		}
		return from, from.AddDate(0, 0, 1), nil
	case month > 0:
		from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
		return from, from.AddDate(0, 1, 0), nil
	}
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(1, 0, 0), nil
}

// Search implements ListingService. An empty query yields an empty page.
func (s *listingService) Search(ctx context.Context, req SearchRequest) (*Page, error) {
	section, err := s.sectionRepo.GetByNamespace(ctx, req.Namespace)
	if err != nil {
		return nil, fmt.Errorf("section %s: %w", req.Namespace, err)
	}
	pagination := NewPagination(section.PaginationPagesStart, section.PaginationPagesVisible)
	size := section.PageSize()
	if req.MaxArticles > 0 {
		size = req.MaxArticles
	}

	query := strings.TrimSpace(req.Query)
	languages := s.features.ValidLanguages(req.Locale)
	if query == "" || len(languages) == 0 {
		page := emptyPage(section, size, pagination)
		page.Query = query
		return page, nil
	}

	values := url.Values{}
	for k, v := range req.Filters {
		if k != "q" {
			values[k] = v
		}
	}
	filtered, err := s.set.Apply(ctx, filters.Input{Values: values}, filters.Env{Locale: req.Locale})
	if err != nil {
		return nil, err
	}

	where := predicate.And(
		s.base(section, req.Locale, req.Viewer, languages),
		predicate.Contains(req.Locale, query, predicate.FieldTitle, predicate.FieldLeadIn, predicate.FieldSearchData),
		filtered.Where,
	)
	page, err := s.paginate(ctx, where, req.Page, size)
	if err != nil {
		return nil, err
	}
	page.Pagination = pagination
	page.Section = section
	page.Query = query
	page.Valid = filtered.Valid
	page.Errors = filtered.Errors
	return page, nil
}

// Browse implements ListingService
func (s *listingService) Browse(ctx context.Context, req BrowseRequest) (*BrowsePage, error) {
	out := &BrowsePage{ActiveType: browseAll, ActiveCategory: browseAll}

	sections, err := s.sectionRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list sections: %w", err)
	}
	sort.SliceStable(sections, func(i, j int) bool {
		return strings.ToLower(sections[i].Namespace) < strings.ToLower(sections[j].Namespace)
	})
	out.Types = sections

	categories, err := s.referenceRepo.Categories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}
	out.Categories = make([]models.Reference, 0, len(categories))
	for _, c := range categories {
		out.Categories = append(out.Categories, c.Reference())
	}
	filters.SortReferences(out.Categories)

	parts := []predicate.Predicate{s.policy.PublishedInAnyLanguage(s.now())}
	if t := strings.TrimSpace(req.Type); t != "" && !strings.EqualFold(t, browseAll) {
		out.ActiveType = t
		ids := []int64{}
		for _, sec := range sections {
			if strings.EqualFold(sec.Namespace, t) {
				ids = append(ids, sec.ID)
			}
		}
		parts = append(parts, predicate.SectionIn(ids...))
	}
	if c := strings.TrimSpace(req.Category); c != "" && !strings.EqualFold(c, browseAll) {
		out.ActiveCategory = c
		id, err := s.categoryID(ctx, c, true)
		switch {
		case err == nil:
			parts = append(parts, predicate.RelationIn(models.RelCategories, id))
		case errors.Is(err, models.ErrNotFound):
			parts = append(parts, predicate.None())
		default:
			return nil, err
		}
	}

	page, err := s.paginate(ctx, predicate.And(parts...), req.Page, browsePageSize)
	if err != nil {
		return nil, err
	}
	page.Pagination = NewPagination(browsePagesStart, browsePagesVisible)
	page.Valid = true
	out.Page = page
	return out, nil
}

// Choices implements ListingService
func (s *listingService) Choices(ctx context.Context, namespace string, values url.Values) ([]filters.Choice, error) {
	if _, err := s.sectionRepo.GetByNamespace(ctx, namespace); err != nil {
		return nil, fmt.Errorf("section %s: %w", namespace, err)
	}
	var selected *filters.Result
	if len(values) > 0 {
		res, err := s.set.Apply(ctx, filters.Input{Values: values}, filters.Env{})
		if err != nil {
			return nil, err
		}
		selected = res
	}
	return s.set.Choices(ctx, selected)
}

// paginate loads page number (1-based) of where, newest first
func (s *listingService) paginate(ctx context.Context, where predicate.Predicate, number, size int) (*Page, error) {
	if number < 1 {
		number = 1
	}
	page := &Page{Items: []*models.Article{}, Page: number, PageSize: size, NumPages: 1, Valid: true}
	if predicate.IsNone(where) {
		if number > 1 {
			return nil, fmt.Errorf("page %d: %w", number, models.ErrNotFound)
		}
		return page, nil
	}

	total, err := s.articleRepo.Count(ctx, where)
	if err != nil {
		return nil, fmt.Errorf("failed to count articles: %w", err)
	}
	page.Total = total
	if total > 0 {
		page.NumPages = (total + size - 1) / size
	}
	if number > page.NumPages {
		return nil, fmt.Errorf("page %d: %w", number, models.ErrNotFound)
	}

	items, err := s.articleRepo.Find(ctx, predicate.Query{
		Where:  where,
		Order:  predicate.Newest,
		Limit:  size,
		Offset: (number - 1) * size,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list articles: %w", err)
	}
	page.Items = items
	page.HasPrev = number > 1
	page.HasNext = number < page.NumPages
	return page, nil
}

func emptyPage(section *models.Section, size int, pagination Pagination) *Page {
	return &Page{
		Items:      []*models.Article{},
		Page:       1,
		PageSize:   size,
		NumPages:   1,
		Pagination: pagination,
		Valid:      true,
		Section:    section,
	}
}

// ParsePage reads a 1-based page number; anything else is page 1
func ParsePage(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 1
	}
	return n
}
