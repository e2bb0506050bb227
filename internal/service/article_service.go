package service

import (
	"context"
	"errors"
	"fmt"
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

// Outcome is the result kind of a detail lookup
type Outcome int

const (
	// Found means the article is served at the requested path
	Found Outcome = iota
	// NotFound means no visible article matches the path
	NotFound
	// WrongPath means the article exists under a different canonical path
	WrongPath
)

func (o Outcome) String() string {
	switch o {
	case Found:
		return "found"
	case NotFound:
		return "not_found"
	case WrongPath:
		return "wrong_path"
	}
	return "unknown"
}

// DetailRequest addresses an article page by its permalink within a
// section, e.g. "2024/05/03/my-article".
type DetailRequest struct {
	Namespace string
	Path      string
	Locale    string
	Viewer    publication.Viewer
}

// Detail is the outcome of a permalink lookup
type Detail struct {
	Outcome   Outcome                     `json:"-"`
	Article   *models.Article             `json:"article,omitempty"`
	Section   *models.Section             `json:"section,omitempty"`
	Canonical string                      `json:"canonical,omitempty"`
	Handling  models.NonPermalinkHandling `json:"-"`
	Prev      *models.Article             `json:"prev,omitempty"`
	Next      *models.Article             `json:"next,omitempty"`
	Layout    string                      `json:"layout,omitempty"`
	// Future is set for editors viewing a scheduled article
	Future bool `json:"future,omitempty"`
}

// permalink is a parsed request path
type permalink struct {
	year, month, day int
	id               int64
	slug             string
}

// articleService is the concrete implementation of ArticleService
type articleService struct {
	articleRepo   repository.ArticleRepository
	sectionRepo   repository.SectionRepository
	referenceRepo repository.ReferenceRepository
	facets        *filters.Facets
	policy        *publication.Policy
	features      config.FeatureConfig
	now           func() time.Time
	log           zerolog.Logger
}

func newArticleService(repos *repository.Repositories, facets *filters.Facets, policy *publication.Policy, features config.FeatureConfig, now func() time.Time, log zerolog.Logger) *articleService {
	return &articleService{
		articleRepo:   repos.Article,
		sectionRepo:   repos.Section,
		referenceRepo: repos.Reference,
		facets:        facets,
		policy:        policy,
		features:      features,
		now:           now,
		log:           log.With().Str("service", "articles").Logger(),
	}
}

// parsePermalink splits a request path into its components. The last
// segment of a four part path is an id when it is all digits.
func parsePermalink(path string) (permalink, bool) {
	var p permalink
	path = strings.Trim(path, "/")
	if path == "" {
		return p, false
	}
	parts := strings.Split(path, "/")
	dateParts := parts[:len(parts)-1]
	last := parts[len(parts)-1]
	if len(parts) > 4 || last == "" {
		return p, false
	}

	nums := make([]int, len(dateParts))
	for i, s := range dateParts {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			return p, false
		}
		nums[i] = n
	}
	switch len(nums) {
	case 3:
		p.day = nums[2]
		fallthrough
	case 2:
		p.month = nums[1]
		fallthrough
	case 1:
		p.year = nums[0]
	}

	if len(parts) == 4 {
		if id, err := strconv.ParseInt(last, 10, 64); err == nil {
			p.id = id
			return p, id > 0
		}
	}
	p.slug = last
	return p, true
}

// canonicalPath renders the permalink of a in the section's style
func canonicalPath(a *models.Article, section *models.Section, slug string) string {
	d := a.PublishingDate
	var parts []string
	for _, c := range []byte(section.PermalinkType) {
		switch c {
		case 'y':
			parts = append(parts, fmt.Sprintf("%04d", d.Year()))
		case 'm':
			parts = append(parts, fmt.Sprintf("%02d", int(d.Month())))
		case 'd':
			parts = append(parts, fmt.Sprintf("%02d", d.Day()))
		case 'i':
			parts = append(parts, strconv.FormatInt(a.ID, 10))
		case 's':
			parts = append(parts, slug)
		}
	}
	return strings.Join(parts, "/")
}

// Detail implements ArticleService. Missing sections and articles are
// reported through Outcome, not errors.
func (s *articleService) Detail(ctx context.Context, req DetailRequest) (*Detail, error) {
	notFound := &Detail{Outcome: NotFound}

	section, err := s.sectionRepo.GetByNamespace(ctx, req.Namespace)
	if errors.Is(err, models.ErrNotFound) {
		return notFound, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load section: %w", err)
	}
	notFound.Section = section

	link, ok := parsePermalink(req.Path)
	if !ok {
		return notFound, nil
	}
	languages := s.features.ValidLanguages(req.Locale)
	if len(languages) == 0 {
		s.log.Debug().Str("locale", req.Locale).Msg("Locale not configured")
		return notFound, nil
	}

	var article *models.Article
	if link.id > 0 {
		article, err = s.articleRepo.GetByID(ctx, link.id)
		if err == nil && (article.SectionID != section.ID || !article.HasAnyTranslation(languages)) {
			err = models.ErrNotFound
		}
	} else {
		article, err = s.articleRepo.GetBySlug(ctx, section.ID, link.slug, languages)
	}
	if errors.Is(err, models.ErrNotFound) {
		return notFound, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load article: %w", err)
	}

	now := s.now()
	if !s.policy.CanSee(article, req.Locale, now, req.Viewer) {
		return notFound, nil
	}

	slug := ""
	if t, ok := article.FirstTranslation(languages...); ok {
		slug = t.Slug
	}
	canonical := canonicalPath(article, section, slug)
	if canonical != strings.Trim(req.Path, "/") && section.NonPermalinkHandling != models.HandlingServe {
		return &Detail{
			Outcome:   WrongPath,
			Article:   article,
			Section:   section,
			Canonical: canonical,
			Handling:  section.NonPermalinkHandling,
		}, nil
	}

	out := &Detail{
		Outcome:   Found,
		Article:   article,
		Section:   section,
		Canonical: canonical,
		Handling:  models.HandlingServe,
		Layout:    article.Layout,
		Future:    s.policy.IsFuture(article, req.Locale, now),
	}
	if out.Layout == "" {
		out.Layout = models.DefaultLayout
	}

	if s.features.GetNextArticle {
		if err := s.neighbours(ctx, out, req, languages, now); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// neighbours loads the articles published just before and just after
// the current one in the same section.
func (s *articleService) neighbours(ctx context.Context, d *Detail, req DetailRequest, languages []string, now time.Time) error {
	cur := d.Article
	base := predicate.And(
		predicate.SectionIn(d.Section.ID),
		s.policy.VisiblePredicate(req.Locale, now, req.Viewer),
		predicate.TranslatedIn(languages...),
		predicate.Not(predicate.IDIn(cur.ID)),
	)

	prev, err := s.articleRepo.Find(ctx, predicate.Query{
		Where: predicate.And(base, predicate.DateRange(time.Time{}, cur.PublishingDate)),
		Order: predicate.Newest,
		Limit: 1,
	})
	if err != nil {
		return fmt.Errorf("failed to load previous article: %w", err)
	}
	if len(prev) > 0 {
		d.Prev = prev[0]
	}

	next, err := s.articleRepo.Find(ctx, predicate.Query{
		Where: predicate.And(base, predicate.Not(predicate.PublishedBefore(cur.PublishingDate))),
		Order: predicate.Oldest,
		Limit: 1,
	})
	if err != nil {
		return fmt.Errorf("failed to load next article: %w", err)
	}
	if len(next) > 0 {
		d.Next = next[0]
	}
	return nil
}

// Save implements ArticleService. id 0 creates a new article. Input
// errors are returned as validation.Errors.
func (s *articleService) Save(ctx context.Context, id int64, in *models.ArticleInput) (*models.Article, error) {
	if errs := validation.ValidateArticle(in, s.features.Languages); len(errs) > 0 {
		return nil, validation.Errors(errs)
	}

	section, err := s.sectionRepo.GetByID(ctx, in.SectionID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, validation.Errors{{Field: "section_id", Message: "section does not exist", Value: in.SectionID}}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load section: %w", err)
	}

	article := &models.Article{CreatedAt: s.now()}
	if id > 0 {
		article, err = s.articleRepo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
	}
	if article.Translations == nil {
		article.Translations = make(map[string]*models.Translation)
	}
	previousSection := article.SectionID
	t, ok := article.Translations[in.Locale]
	if !ok {
		t = &models.Translation{Locale: in.Locale}
		article.Translations[in.Locale] = t
	}

	s.apply(article, t, section, in)

	slug, err := s.uniqueSlug(ctx, article, section.ID, in)
	if err != nil {
		return nil, err
	}
	t.Slug = slug

	if err := s.attributeOwner(ctx, article, t, section, in); err != nil {
		return nil, err
	}
	if s.features.UpdateSearchData {
		if err := s.indexSearchData(ctx, article, t); err != nil {
			return nil, err
		}
	}

	article.UpdatedAt = s.now()
	if err := s.articleRepo.Save(ctx, article); err != nil {
		return nil, fmt.Errorf("failed to save article: %w", err)
	}
	s.dropFacets(ctx, section)
	if previousSection != 0 && previousSection != section.ID {
		if old, err := s.sectionRepo.GetByID(ctx, previousSection); err == nil {
			s.dropFacets(ctx, old)
		}
	}

	s.log.Info().
		Int64("article_id", article.ID).
		Str("locale", in.Locale).
		Str("section", section.Namespace).
		Msg("Article saved")
	return article, nil
}

// dropFacets clears the cached counts of section in every language
func (s *articleService) dropFacets(ctx context.Context, section *models.Section) {
	if s.facets != nil {
		s.facets.Invalidate(ctx, section, s.features.Languages...)
	}
}

// apply copies the input onto the article and its translation
func (s *articleService) apply(a *models.Article, t *models.Translation, section *models.Section, in *models.ArticleInput) {
	a.SectionID = section.ID
	t.Title = strings.TrimSpace(in.Title)
	t.LeadIn = in.LeadIn
	t.Content = in.Content

	switch {
	case in.PublishingDate != nil:
		a.PublishingDate = *in.PublishingDate
	case a.PublishingDate.IsZero():
		a.PublishingDate = s.now()
	}

	published := section.DefaultPublished
	if in.IsPublished != nil {
		published = *in.IsPublished
	} else if a.ID > 0 {
		published = a.IsPublished
	}
	a.IsPublished = published
	a.IsFeatured = in.IsFeatured
	if s.features.TranslatePublished {
		t.IsPublished = published
		t.IsFeatured = in.IsFeatured
	}

	if s.features.TranslateAuthors {
		t.AuthorID, t.Author2ID, t.Author3ID = in.AuthorID, in.Author2ID, in.Author3ID
	} else {
		a.AuthorID, a.Author2ID, a.Author3ID = in.AuthorID, in.Author2ID, in.Author3ID
	}

	if in.OwnerID != nil {
		a.OwnerID = in.OwnerID
	}
	a.MediumID = in.MediumID
	a.FeaturedImageID = in.ImageID
	a.Layout = in.Layout
	a.CategoryIDs = in.CategoryIDs
	a.ServiceIDs = in.ServiceIDs
	a.LocationIDs = in.LocationIDs
	a.CompanyIDs = in.CompanyIDs
	a.RelatedIDs = in.RelatedIDs
}

// uniqueSlug returns the requested or derived slug, suffixed with a
// counter while another article in the section already uses it.
func (s *articleService) uniqueSlug(ctx context.Context, a *models.Article, sectionID int64, in *models.ArticleInput) (string, error) {
	base := in.Slug
	if base == "" {
		base = validation.Slugify(in.Title)
	}
	if base == "" {
		base = "article"
	}

	slug := base
	for n := 2; ; n++ {
		other, err := s.articleRepo.GetBySlug(ctx, sectionID, slug, []string{in.Locale})
		if errors.Is(err, models.ErrNotFound) {
			return slug, nil
		}
		if err != nil {
			return "", fmt.Errorf("failed to check slug: %w", err)
		}
		if other.ID == a.ID {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%d", base, n)
	}
}

// attributeOwner makes the owner the primary author when the section
// creates authors and none is set.
func (s *articleService) attributeOwner(ctx context.Context, a *models.Article, t *models.Translation, section *models.Section, in *models.ArticleInput) error {
	if !section.CreateAuthors || a.OwnerID == nil {
		return nil
	}
	primary := &a.AuthorID
	if s.features.TranslateAuthors {
		primary = &t.AuthorID
	}
	if *primary != nil {
		return nil
	}

	person, err := s.referenceRepo.PersonByUserID(ctx, *a.OwnerID)
	if errors.Is(err, models.ErrNotFound) {
		name := strings.TrimSpace(in.OwnerName)
		if name == "" {
			name = fmt.Sprintf("user %d", *a.OwnerID)
		}
		person = &models.Person{
			Name:        name,
			Slug:        validation.Slugify(name),
			UserID:      a.OwnerID,
			IsPublished: true,
		}
		if err := s.referenceRepo.CreatePerson(ctx, person); err != nil {
			return fmt.Errorf("failed to create author: %w", err)
		}
		s.log.Info().Int64("person_id", person.ID).Int64("user_id", *a.OwnerID).Msg("Created author for owner")
	} else if err != nil {
		return fmt.Errorf("failed to load author: %w", err)
	}

	id := person.ID
	*primary = &id
	return nil
}

// indexSearchData rebuilds the search text and read time of t
func (s *articleService) indexSearchData(ctx context.Context, a *models.Article, t *models.Translation) error {
	categories, err := s.referenceRepo.CategoryNames(ctx, a.CategoryIDs)
	if err != nil {
		return fmt.Errorf("failed to load category names: %w", err)
	}
	services, err := s.referenceRepo.ServiceTitles(ctx, a.ServiceIDs)
	if err != nil {
		return fmt.Errorf("failed to load service titles: %w", err)
	}
	t.SearchData = searchData(t.Title, t.LeadIn, categories, services, t.Content)

	if s.features.AutoReadTime {
		if minutes := readTime(t.SearchData); minutes > 0 {
			t.ReadTime = minutes
		}
	}
	return nil
}
