package service_test

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/newsblog-api/internal/cache"
	"github.com/newsblog-api/internal/config"
	"github.com/newsblog-api/internal/filters"
	"github.com/newsblog-api/internal/mocks"
	"github.com/newsblog-api/internal/models"
	"github.com/newsblog-api/internal/publication"
	"github.com/newsblog-api/internal/resolver"
	"github.com/newsblog-api/internal/service"
	"github.com/newsblog-api/internal/validation"
	"github.com/rs/zerolog"
)

var now = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func ptr(v int64) *int64 { return &v }

type fixture struct {
	svc      *service.Services
	articles *mocks.MockArticleRepository
	refs     *mocks.MockReferenceRepository
	widgets  *mocks.MockWidgetRepository
}

func article(id, section int64, date time.Time, slug string) *models.Article {
	return &models.Article{
		ID: id, SectionID: section, PublishingDate: date, IsPublished: true,
		Translations: map[string]*models.Translation{
			"en": {Locale: "en", Title: strings.ReplaceAll(slug, "-", " "), Slug: slug},
		},
	}
}

func newFixture(t *testing.T, features config.FeatureConfig) *fixture {
	t.Helper()
	repos, articles, sections, refs, widgets := mocks.NewMockRepositories()

	news := models.NewDefaultSection()
	news.ID = 1
	news.PaginateBy = 2
	sections.Sections[1] = news
	sections.Sections[2] = &models.Section{
		ID: 2, Namespace: "insights", PermalinkType: models.PermalinkSlug,
		NonPermalinkHandling: models.HandlingMoved, ExcludeFeatured: 1,
		ShowInListing: true, ShowInRelated: true, ShowInSpecific: true,
	}
	sections.Sections[3] = &models.Section{
		ID: 3, Namespace: "ids", PermalinkType: models.PermalinkDateID,
		NonPermalinkHandling: models.HandlingNotFound,
	}
	sections.NextID = 3

	first := article(1, 1, now.AddDate(0, 0, -1), "first")
	first.CategoryIDs = []int64{10}
	first.ServiceIDs = []int64{30}
	first.FeaturedImageID = ptr(500)
	second := article(2, 1, now.AddDate(0, 0, -5), "second")
	second.CategoryIDs = []int64{10}
	third := article(3, 1, now.AddDate(0, 0, -14), "third")
	third.ServiceIDs = []int64{31}
	third.AuthorID = ptr(100)
	draft := article(5, 1, now.AddDate(0, 0, -10), "draft")
	draft.IsPublished = false
	featured := article(10, 2, time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC), "featured-one")
	featured.IsFeatured = true

	for _, a := range []*models.Article{
		first, second, third, draft, featured,
		article(4, 1, now.AddDate(0, 0, 5), "future"),
		article(11, 2, time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC), "plain"),
		article(20, 3, time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC), "by-id"),
	} {
		articles.Articles[a.ID] = a
	}
	articles.NextID = 20

	refs.CategoryList = []*models.Category{
		{ID: 10, Name: "Politics", Slug: "politics"},
		{ID: 11, Name: "economy", Slug: "economy"},
	}
	refs.ServiceList = []*models.Service{{ID: 30, Title: "Tax", Slug: "tax"}, {ID: 31, Title: "Audit", Slug: "audit"}}
	refs.PersonList = []*models.Person{{ID: 100, Name: "Jane", Slug: "jane", UserID: ptr(7), IsPublished: true}}

	cfg := &config.Config{
		Features: features,
		Layouts:  config.LayoutConfig{Related: []string{models.DefaultLayout}},
	}
	c := cache.New(cache.NewMemory(), "test", time.Hour)
	svc := service.NewServices(repos, cfg, c, zerolog.Nop(), service.WithClock(func() time.Time { return now }))
	return &fixture{svc: svc, articles: articles, refs: refs, widgets: widgets}
}

func defaultFeatures() config.FeatureConfig {
	return config.FeatureConfig{
		DefaultMediumTitle: "default",
		MaxRelated:         120,
		DefaultLanguage:    "en",
		Languages:          []string{"en", "de"},
		GetNextArticle:     true,
	}
}

func ids(articles []*models.Article) []int64 {
	out := make([]int64, len(articles))
	for i, a := range articles {
		out[i] = a.ID
	}
	return out
}

func equalIDs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestDetail(t *testing.T) {
	f := newFixture(t, defaultFeatures())
	staff := publication.Viewer{Staff: true}

	tests := []struct {
		name      string
		namespace string
		path      string
		viewer    publication.Viewer
		outcome   service.Outcome
		articleID int64
		canonical string
	}{
		{"canonical date slug", "newsblog", "2024/06/14/first", publication.Anonymous, service.Found, 1, "2024/06/14/first"},
		{"trailing slashes", "newsblog", "/2024/06/14/first/", publication.Anonymous, service.Found, 1, "2024/06/14/first"},
		{"slug only redirects", "newsblog", "first", publication.Anonymous, service.WrongPath, 1, "2024/06/14/first"},
		{"wrong date redirects", "newsblog", "2023/01/01/first", publication.Anonymous, service.WrongPath, 1, "2024/06/14/first"},
		{"scheduled hidden", "newsblog", "2024/06/20/future", publication.Anonymous, service.NotFound, 0, ""},
		{"scheduled for staff", "newsblog", "2024/06/20/future", staff, service.Found, 4, "2024/06/20/future"},
		{"draft hidden", "newsblog", "2024/06/05/draft", publication.Anonymous, service.NotFound, 0, ""},
		{"unknown slug", "newsblog", "2024/06/14/missing", publication.Anonymous, service.NotFound, 0, ""},
		{"too many segments", "newsblog", "a/b/c/d/e", publication.Anonymous, service.NotFound, 0, ""},
		{"by id", "ids", "2024/03/04/20", publication.Anonymous, service.Found, 20, "2024/03/04/20"},
		{"id from other section", "ids", "2024/06/14/1", publication.Anonymous, service.NotFound, 0, ""},
		{"slug style section", "insights", "plain", publication.Anonymous, service.Found, 11, "plain"},
		{"unknown section", "nope", "first", publication.Anonymous, service.NotFound, 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := f.svc.Articles.Detail(context.Background(), service.DetailRequest{
				Namespace: tt.namespace, Path: tt.path, Locale: "en", Viewer: tt.viewer,
			})
			if err != nil {
				t.Fatalf("Detail failed: %v", err)
			}
			if d.Outcome != tt.outcome {
				t.Fatalf("Expected outcome %s, got %s", tt.outcome, d.Outcome)
			}
			if tt.articleID != 0 && d.Article.ID != tt.articleID {
				t.Errorf("Expected article %d, got %d", tt.articleID, d.Article.ID)
			}
			if d.Canonical != tt.canonical {
				t.Errorf("Expected canonical %q, got %q", tt.canonical, d.Canonical)
			}
		})
	}
}

func TestDetailWrongPathHandling(t *testing.T) {
	f := newFixture(t, defaultFeatures())

	d, err := f.svc.Articles.Detail(context.Background(), service.DetailRequest{Namespace: "newsblog", Path: "first", Locale: "en"})
	if err != nil {
		t.Fatalf("Detail failed: %v", err)
	}
	if d.Handling != models.HandlingFound {
		t.Errorf("Expected handling 302, got %d", d.Handling)
	}

	d, _ = f.svc.Articles.Detail(context.Background(), service.DetailRequest{Namespace: "ids", Path: "2024/03/05/20", Locale: "en"})
	if d.Outcome != service.WrongPath || d.Handling != models.HandlingNotFound {
		t.Errorf("Expected wrong path with 404 handling, got %s %d", d.Outcome, d.Handling)
	}
}

func TestDetailNeighbours(t *testing.T) {
	f := newFixture(t, defaultFeatures())
	ctx := context.Background()

	d, err := f.svc.Articles.Detail(ctx, service.DetailRequest{Namespace: "newsblog", Path: "2024/06/10/second", Locale: "en"})
	if err != nil {
		t.Fatalf("Detail failed: %v", err)
	}
	if d.Prev == nil || d.Prev.ID != 3 {
		t.Errorf("Expected previous article 3, got %+v", d.Prev)
	}
	if d.Next == nil || d.Next.ID != 1 {
		t.Errorf("Expected next article 1, got %+v", d.Next)
	}

	d, _ = f.svc.Articles.Detail(ctx, service.DetailRequest{Namespace: "newsblog", Path: "2024/06/14/first", Locale: "en"})
	if d.Next != nil {
		t.Errorf("Scheduled article must not be next for the public, got %d", d.Next.ID)
	}

	d, _ = f.svc.Articles.Detail(ctx, service.DetailRequest{Namespace: "newsblog", Path: "2024/06/14/first", Locale: "en", Viewer: publication.Viewer{EditMode: true}})
	if d.Next == nil || d.Next.ID != 4 {
		t.Errorf("Expected editors to see the scheduled article next, got %+v", d.Next)
	}

	features := defaultFeatures()
	features.GetNextArticle = false
	f = newFixture(t, features)
	d, _ = f.svc.Articles.Detail(ctx, service.DetailRequest{Namespace: "newsblog", Path: "2024/06/10/second", Locale: "en"})
	if d.Prev != nil || d.Next != nil {
		t.Error("Neighbours must not be loaded when disabled")
	}
}

func TestSaveCreatesArticle(t *testing.T) {
	features := defaultFeatures()
	features.UpdateSearchData = true
	features.AutoReadTime = true
	f := newFixture(t, features)

	body := "<p>" + strings.Repeat("word ", 250) + "</p>"
	saved, err := f.svc.Articles.Save(context.Background(), 0, &models.ArticleInput{
		SectionID:   1,
		Locale:      "en",
		Title:       "Hello Wörld",
		LeadIn:      "<p>Lead <b>in</b></p>",
		Content:     body,
		CategoryIDs: []int64{10},
		ServiceIDs:  []int64{31},
		OwnerID:     ptr(9),
		OwnerName:   "Ann Owner",
	})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	tr := saved.Translations["en"]
	if tr.Slug != "hello-world" {
		t.Errorf("Expected slug hello-world, got %s", tr.Slug)
	}
	if saved.IsPublished {
		t.Error("Expected section default of unpublished")
	}
	if !saved.PublishingDate.Equal(now) {
		t.Errorf("Expected publishing date to default to now, got %v", saved.PublishingDate)
	}
	for _, want := range []string{"Hello Wörld", "Lead in", "Politics", "Audit", "=c=o=n=t=e=n=t="} {
		if !strings.Contains(tr.SearchData, want) {
			t.Errorf("Expected search data to contain %q, got %q", want, tr.SearchData)
		}
	}
	if strings.Contains(tr.SearchData, "<b>") {
		t.Errorf("Expected tags to be stripped, got %q", tr.SearchData)
	}
	if tr.ReadTime != 2 {
		t.Errorf("Expected read time 2, got %d", tr.ReadTime)
	}

	if saved.AuthorID == nil {
		t.Fatal("Expected owner to become the author")
	}
	author := f.refs.PersonList[len(f.refs.PersonList)-1]
	if *saved.AuthorID != author.ID || author.Name != "Ann Owner" || *author.UserID != 9 {
		t.Errorf("Unexpected created author: %+v", author)
	}
	if _, ok := f.articles.Articles[saved.ID]; !ok {
		t.Error("Expected the article to be stored")
	}
}

func TestSaveRefreshesFacets(t *testing.T) {
	f := newFixture(t, defaultFeatures())
	ctx := context.Background()

	count := func(id int64) int {
		t.Helper()
		got, err := f.svc.Facets.Facet(ctx, "newsblog", filters.FacetServices, "en", nil)
		if err != nil {
			t.Fatalf("Facet failed: %v", err)
		}
		for _, c := range got.([]models.Count) {
			if c.ID == id {
				return c.Count
			}
		}
		return 0
	}

	if got := count(30); got != 1 {
		t.Fatalf("Expected 1 article for service 30, got %d", got)
	}

	published := true
	date := now.Add(-time.Hour)
	_, err := f.svc.Articles.Save(ctx, 0, &models.ArticleInput{
		SectionID:      1,
		Locale:         "en",
		Title:          "Fresh",
		IsPublished:    &published,
		PublishingDate: &date,
		ServiceIDs:     []int64{30},
	})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if got := count(30); got != 2 {
		t.Errorf("Expected saved article to be counted, got %d", got)
	}
}

func TestSaveReusesOwnerPerson(t *testing.T) {
	f := newFixture(t, defaultFeatures())

	saved, err := f.svc.Articles.Save(context.Background(), 0, &models.ArticleInput{
		SectionID: 1, Locale: "en", Title: "Owned", OwnerID: ptr(7),
	})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if saved.AuthorID == nil || *saved.AuthorID != 100 {
		t.Errorf("Expected existing person 100, got %v", saved.AuthorID)
	}
	if len(f.refs.PersonList) != 1 {
		t.Errorf("Expected no new person, got %d", len(f.refs.PersonList))
	}

	explicit, _ := f.svc.Articles.Save(context.Background(), 0, &models.ArticleInput{
		SectionID: 1, Locale: "en", Title: "Explicit", OwnerID: ptr(7), AuthorID: ptr(55),
	})
	if *explicit.AuthorID != 55 {
		t.Errorf("Expected explicit author to be kept, got %d", *explicit.AuthorID)
	}
}

func TestSaveUniqueSlug(t *testing.T) {
	f := newFixture(t, defaultFeatures())
	ctx := context.Background()

	saved, err := f.svc.Articles.Save(ctx, 0, &models.ArticleInput{SectionID: 1, Locale: "en", Title: "First"})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if got := saved.Translations["en"].Slug; got != "first-2" {
		t.Errorf("Expected first-2, got %s", got)
	}

	other, _ := f.svc.Articles.Save(ctx, 0, &models.ArticleInput{SectionID: 2, Locale: "en", Title: "First"})
	if got := other.Translations["en"].Slug; got != "first" {
		t.Errorf("Expected slugs to be unique per section only, got %s", got)
	}

	again, _ := f.svc.Articles.Save(ctx, 1, &models.ArticleInput{SectionID: 1, Locale: "en", Title: "First", Slug: "first"})
	if got := again.Translations["en"].Slug; got != "first" {
		t.Errorf("Expected an article to keep its own slug, got %s", got)
	}
}

func TestSaveValidation(t *testing.T) {
	f := newFixture(t, defaultFeatures())

	tests := []struct {
		name  string
		in    *models.ArticleInput
		field string
	}{
		{"missing title", &models.ArticleInput{SectionID: 1, Locale: "en"}, "title"},
		{"unknown locale", &models.ArticleInput{SectionID: 1, Locale: "fr", Title: "x"}, "locale"},
		{"unknown section", &models.ArticleInput{SectionID: 99, Locale: "en", Title: "x"}, "section_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Articles.Save(context.Background(), 0, tt.in)
			var verrs validation.Errors
			if !errors.As(err, &verrs) {
				t.Fatalf("Expected validation errors, got %v", err)
			}
			found := false
			for _, e := range verrs {
				if e.Field == tt.field {
					found = true
				}
			}
			if !found {
				t.Errorf("Expected error on %s, got %v", tt.field, verrs)
			}
		})
	}

	if _, err := f.svc.Articles.Save(context.Background(), 404, &models.ArticleInput{SectionID: 1, Locale: "en", Title: "x"}); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Expected not found for unknown article, got %v", err)
	}
}

func TestListPagination(t *testing.T) {
	f := newFixture(t, defaultFeatures())
	ctx := context.Background()

	page, err := f.svc.Listing.List(ctx, service.ListRequest{Namespace: "newsblog", Locale: "en", Page: 1})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if page.Total != 3 || page.NumPages != 2 || !page.HasNext || page.HasPrev {
		t.Errorf("Unexpected page: total=%d pages=%d next=%v prev=%v", page.Total, page.NumPages, page.HasNext, page.HasPrev)
	}
	if !equalIDs(ids(page.Items), []int64{1, 2}) {
		t.Errorf("Expected [1 2], got %v", ids(page.Items))
	}
	want := service.Pagination{PagesStart: 10, PagesVisible: 4, PagesVisibleNegative: -4, PagesVisibleTotal: 5, PagesVisibleTotalNegative: -5}
	if page.Pagination != want {
		t.Errorf("Expected pagination %+v, got %+v", want, page.Pagination)
	}

	page, _ = f.svc.Listing.List(ctx, service.ListRequest{Namespace: "newsblog", Locale: "en", Page: 2})
	if !equalIDs(ids(page.Items), []int64{3}) || !page.HasPrev {
		t.Errorf("Expected [3] on page 2, got %v", ids(page.Items))
	}

	if _, err := f.svc.Listing.List(ctx, service.ListRequest{Namespace: "newsblog", Locale: "en", Page: 3}); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Expected not found past the last page, got %v", err)
	}
	if _, err := f.svc.Listing.List(ctx, service.ListRequest{Namespace: "nope", Locale: "en"}); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Expected not found for unknown section, got %v", err)
	}

	staff, _ := f.svc.Listing.List(ctx, service.ListRequest{Namespace: "newsblog", Locale: "en", Viewer: publication.Viewer{Staff: true}})
	if staff.Total != 5 {
		t.Errorf("Expected editors to see drafts and scheduled articles, got %d", staff.Total)
	}
}

func TestListExcludesFeatured(t *testing.T) {
	f := newFixture(t, defaultFeatures())
	ctx := context.Background()

	page, err := f.svc.Listing.List(ctx, service.ListRequest{Namespace: "insights", Locale: "en"})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if !equalIDs(ids(page.Items), []int64{11}) {
		t.Errorf("Expected featured article to be hidden, got %v", ids(page.Items))
	}

	scoped, _ := f.svc.Listing.List(ctx, service.ListRequest{Namespace: "insights", Locale: "en", Scope: service.Scope{Year: 2024}})
	if !equalIDs(ids(scoped.Items), []int64{11, 10}) {
		t.Errorf("Expected scoped lists to keep featured articles, got %v", ids(scoped.Items))
	}
}

func TestListScopes(t *testing.T) {
	f := newFixture(t, defaultFeatures())

	tests := []struct {
		name    string
		scope   service.Scope
		page    int
		want    []int64
		total   int
		missing bool
	}{
		{"category", service.Scope{Category: "politics"}, 1, []int64{1, 2}, 2, false},
		{"service", service.Scope{Service: "audit"}, 1, []int64{3}, 1, false},
		{"author", service.Scope{Author: "jane"}, 1, []int64{3}, 1, false},
		{"month", service.Scope{Year: 2024, Month: 6}, 1, []int64{1, 2}, 3, false},
		{"month second page", service.Scope{Year: 2024, Month: 6}, 2, []int64{3}, 3, false},
		{"day", service.Scope{Year: 2024, Month: 6, Day: 10}, 1, []int64{2}, 1, false},
		{"empty year", service.Scope{Year: 2020}, 1, []int64{}, 0, false},
		{"unknown category", service.Scope{Category: "nope"}, 1, nil, 0, true},
		{"bad month", service.Scope{Year: 2024, Month: 13}, 1, nil, 0, true},
		{"bad day", service.Scope{Year: 2024, Month: 2, Day: 30}, 1, nil, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := f.svc.Listing.List(context.Background(), service.ListRequest{Namespace: "newsblog", Locale: "en", Scope: tt.scope, Page: tt.page})
			if tt.missing {
				if !errors.Is(err, models.ErrNotFound) {
					t.Errorf("Expected not found, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("List failed: %v", err)
			}
			if !equalIDs(ids(page.Items), tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, ids(page.Items))
			}
			if page.Total != tt.total {
				t.Errorf("Expected total %d, got %d", tt.total, page.Total)
			}
		})
	}
}

func TestListFilters(t *testing.T) {
	f := newFixture(t, defaultFeatures())
	ctx := context.Background()

	page, err := f.svc.Listing.List(ctx, service.ListRequest{Namespace: "newsblog", Locale: "en", Filters: url.Values{"service": {"30"}}})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if !page.Valid || !equalIDs(ids(page.Items), []int64{1}) {
		t.Errorf("Expected [1], got %v (valid=%v)", ids(page.Items), page.Valid)
	}

	page, _ = f.svc.Listing.List(ctx, service.ListRequest{Namespace: "newsblog", Locale: "en", Filters: url.Values{"service": {"999"}}})
	if page.Valid || len(page.Errors) != 1 {
		t.Errorf("Expected one rejected value, got %+v", page.Errors)
	}
	if page.Total != 3 {
		t.Errorf("Expected lenient listing to ignore the bad value, got %d", page.Total)
	}

	page, _ = f.svc.Listing.List(ctx, service.ListRequest{Namespace: "newsblog", Locale: "xx"})
	if page.Total != 0 {
		t.Errorf("Expected empty page for unknown locale, got %d", page.Total)
	}
}

func TestSearch(t *testing.T) {
	f := newFixture(t, defaultFeatures())
	f.articles.Articles[3].Translations["en"].LeadIn = "An audit of the second kind"

	tests := []struct {
		name  string
		query string
		max   int
		want  []int64
	}{
		{"title", "SECOND", 0, []int64{2, 3}},
		{"max articles", "second", 1, []int64{2}},
		{"no match", "zebra", 0, []int64{}},
		{"empty query", "  ", 0, []int64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := f.svc.Listing.Search(context.Background(), service.SearchRequest{
				Namespace: "newsblog", Locale: "en", Query: tt.query, MaxArticles: tt.max,
				Filters: url.Values{"q": {"ignored"}},
			})
			if err != nil {
				t.Fatalf("Search failed: %v", err)
			}
			if !equalIDs(ids(page.Items), tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, ids(page.Items))
			}
		})
	}
}

func TestBrowse(t *testing.T) {
	f := newFixture(t, defaultFeatures())
	ctx := context.Background()

	page, err := f.svc.Listing.Browse(ctx, service.BrowseRequest{Type: "NEWSBLOG", Category: "all"})
	if err != nil {
		t.Fatalf("Browse failed: %v", err)
	}
	if page.Total != 3 || page.ActiveType != "NEWSBLOG" || page.ActiveCategory != "all" {
		t.Errorf("Unexpected browse page: total=%d type=%s category=%s", page.Total, page.ActiveType, page.ActiveCategory)
	}
	if page.PageSize != 8 || page.Pagination.PagesStart != 5 || page.Pagination.PagesVisible != 2 {
		t.Errorf("Unexpected browse paging: %d %+v", page.PageSize, page.Pagination)
	}
	if len(page.Types) != 3 || page.Types[0].Namespace != "ids" || page.Types[2].Namespace != "newsblog" {
		t.Errorf("Expected types sorted by namespace, got %d", len(page.Types))
	}
	if page.Categories[0].Label != "economy" {
		t.Errorf("Expected case-folded category order, got %s first", page.Categories[0].Label)
	}

	page, _ = f.svc.Listing.Browse(ctx, service.BrowseRequest{Category: "Politics"})
	if !equalIDs(ids(page.Items), []int64{1, 2}) {
		t.Errorf("Expected [1 2], got %v", ids(page.Items))
	}

	page, _ = f.svc.Listing.Browse(ctx, service.BrowseRequest{Category: "unknown"})
	if page.Total != 0 {
		t.Errorf("Expected nothing for an unknown category, got %d", page.Total)
	}
}

func TestChoices(t *testing.T) {
	f := newFixture(t, defaultFeatures())

	choices, err := f.svc.Listing.Choices(context.Background(), "newsblog", url.Values{"category": {"10"}})
	if err != nil {
		t.Fatalf("Choices failed: %v", err)
	}
	var category *filters.Choice
	for i := range choices {
		if choices[i].Name == "category" {
			category = &choices[i]
		}
	}
	if category == nil {
		t.Fatal("Expected a category choice")
	}
	if len(category.Selected) != 1 || category.Selected[0] != 10 {
		t.Errorf("Expected category 10 selected, got %v", category.Selected)
	}

	if _, err := f.svc.Listing.Choices(context.Background(), "nope", nil); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Expected not found, got %v", err)
	}
}

func TestForWidget(t *testing.T) {
	f := newFixture(t, defaultFeatures())
	f.widgets.Widgets[7] = &models.RelatedWidget{
		ID: 7, Kind: models.WidgetRelated, NumberOfArticles: 5,
		CategoryIDs: []int64{10}, ExcludeCurrentArticle: true,
	}
	ctx := context.Background()

	res, err := f.svc.Related.ForWidget(ctx, service.WidgetRequest{WidgetID: 7, ArticleID: 1, Locale: "en"})
	if err != nil {
		t.Fatalf("ForWidget failed: %v", err)
	}
	if res.Strategy != resolver.StrategyDerived {
		t.Errorf("Expected derived strategy, got %s", res.Strategy)
	}
	if !equalIDs(ids(res.Articles()), []int64{2}) {
		t.Errorf("Expected [2], got %v", ids(res.Articles()))
	}

	res, _ = f.svc.Related.ForWidget(ctx, service.WidgetRequest{WidgetID: 7, Namespace: "newsblog", Slug: "second", Locale: "en"})
	if !equalIDs(ids(res.Articles()), []int64{1}) || !res.AllImages {
		t.Errorf("Expected [1] with images, got %v", ids(res.Articles()))
	}

	if _, err := f.svc.Related.ForWidget(ctx, service.WidgetRequest{WidgetID: 99, Locale: "en"}); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Expected not found for unknown widget, got %v", err)
	}
	if _, err := f.svc.Related.ForWidget(ctx, service.WidgetRequest{WidgetID: 7, Slug: "missing", Locale: "en"}); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Expected not found for unknown anchor, got %v", err)
	}
}

func TestForWidgetCurated(t *testing.T) {
	f := newFixture(t, defaultFeatures())
	widget := &models.RelatedWidget{Kind: models.WidgetSpecific, CuratedIDs: []int64{3, 4, 1}}

	res, err := f.svc.Related.ForWidget(context.Background(), service.WidgetRequest{Widget: widget, Locale: "en"})
	if err != nil {
		t.Fatalf("ForWidget failed: %v", err)
	}
	if res.Strategy != resolver.StrategyCurated {
		t.Errorf("Expected curated strategy, got %s", res.Strategy)
	}
	if !equalIDs(ids(res.Articles()), []int64{3, 1}) {
		t.Errorf("Expected curated order without the scheduled article, got %v", ids(res.Articles()))
	}
	if res.AllImages {
		t.Error("Expected AllImages to be false")
	}
}

func TestQuery(t *testing.T) {
	f := newFixture(t, defaultFeatures())

	tests := []struct {
		name     string
		query    url.Values
		valid    bool
		want     []int64
		template string
		size     string
	}{
		{"plain", url.Values{"count": {"5"}, "categories": {"10"}}, true, []int64{1, 2}, "related", "200x150"},
		{"limited", url.Values{"count": {"1"}}, true, []int64{1}, "related", "200x150"},
		{"exclude current", url.Values{"count": {"5"}, "categories": {"10"}, "exclude_current": {"1"}}, true, []int64{2}, "related", "200x150"},
		{"json payload", url.Values{"json": {`{"count": 2, "services": [31], "image": {"width": 100}}`}}, true, []int64{3}, "related_json", "100x150"},
		{"missing count", url.Values{"categories": {"10"}}, false, []int64{}, "related", "200x150"},
		{"bad value empties", url.Values{"count": {"5"}, "categories": {"999"}}, false, []int64{}, "related", "200x150"},
		{"count too large", url.Values{"count": {"121"}}, false, []int64{}, "related", "200x150"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := f.svc.Related.Query(context.Background(), service.QueryRequest{Input: filters.FromQuery(tt.query), Locale: "en"})
			if err != nil {
				t.Fatalf("Query failed: %v", err)
			}
			if res.Valid != tt.valid {
				t.Errorf("Expected valid=%v, got %v (%v)", tt.valid, res.Valid, res.Errors)
			}
			got := make([]int64, len(res.Items))
			for i, it := range res.Items {
				got[i] = it.Article.ID
			}
			if !equalIDs(got, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
			if res.Template != tt.template {
				t.Errorf("Expected template %s, got %s", tt.template, res.Template)
			}
			if res.Size != tt.size {
				t.Errorf("Expected thumbnail %s, got %s", tt.size, res.Size)
			}
		})
	}
}

func TestFacets(t *testing.T) {
	f := newFixture(t, defaultFeatures())
	ctx := context.Background()

	all, err := f.svc.Facets.All(ctx, "newsblog", "en", nil)
	if err != nil {
		t.Fatalf("All failed: %v", err)
	}
	if len(all) != len(filters.FacetNames) {
		t.Errorf("Expected %d facets, got %d", len(filters.FacetNames), len(all))
	}
	services, ok := all[filters.FacetServices].([]models.Count)
	if !ok || len(services) != 2 {
		t.Fatalf("Expected two service counts, got %#v", all[filters.FacetServices])
	}

	archive, err := f.svc.Facets.Facet(ctx, "newsblog", filters.FacetArchive, "en", nil)
	if err != nil {
		t.Fatalf("Facet failed: %v", err)
	}
	months := archive.([]models.ArchiveMonth)
	if len(months) != 1 || months[0].Label != "June 2024" || months[0].Count != 3 {
		t.Errorf("Unexpected archive: %+v", months)
	}

	if _, err := f.svc.Facets.Facet(ctx, "newsblog", "colours", "en", nil); !errors.Is(err, service.ErrUnknownFacet) {
		t.Errorf("Expected unknown facet error, got %v", err)
	}
	if _, err := f.svc.Facets.All(ctx, "nope", "en", nil); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Expected not found for unknown section, got %v", err)
	}
}
