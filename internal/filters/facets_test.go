package filters_test

import (
	"context"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/newsblog-api/internal/cache"
	"github.com/newsblog-api/internal/filters"
	"github.com/newsblog-api/internal/mocks"
	"github.com/newsblog-api/internal/models"
	"github.com/newsblog-api/internal/publication"
	"github.com/rs/zerolog"
)

func newFacets(t *testing.T) (*filters.Facets, *mocks.MockArticleRepository, *mocks.MockReferenceRepository, *models.Section) {
	t.Helper()
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	section := &models.Section{ID: 2, Namespace: "insights", ShowInListing: true}

	live := func(id int64, date time.Time, author int64, services ...int64) *models.Article {
		return &models.Article{
			ID: id, SectionID: section.ID, IsPublished: true, PublishingDate: date,
			AuthorID: ptr(author), ServiceIDs: services, CategoryIDs: []int64{10},
			Translations: map[string]*models.Translation{"en": {Title: "t"}},
		}
	}
	articles := mocks.NewMockArticleRepository(
		live(1, now.AddDate(0, 0, -1), 100, 30, 31),
		live(2, now.AddDate(0, -1, 0), 100, 31),
		live(3, now.AddDate(0, -1, -2), 101, 31),
		live(4, now.AddDate(-1, 0, 0), 101),
		// Scheduled, unpublished and other-section articles are never counted
		live(5, now.AddDate(0, 0, 1), 101, 30),
		&models.Article{ID: 6, SectionID: section.ID, PublishingDate: now.AddDate(0, 0, -3), AuthorID: ptr(101), ServiceIDs: []int64{30}},
		&models.Article{ID: 7, SectionID: 9, IsPublished: true, PublishingDate: now.AddDate(0, 0, -3), ServiceIDs: []int64{30}},
	)

	src, refs := newSources()
	listing := filters.NewListingSet(features, nil, src, zerolog.Nop())
	c := cache.New(cache.NewMemory(), "test", time.Hour)
	f := filters.NewFacets(articles, refs, listing, publication.NewPolicy(features), features, c, zerolog.Nop())
	f.SetClock(func() time.Time { return now })
	return f, articles, refs, section
}

func TestFacetServicesSortedByCount(t *testing.T) {
	f, _, _, section := newFacets(t)

	got, err := f.Services(context.Background(), filters.FacetRequest{Section: section, Locale: "en"})
	if err != nil {
		t.Fatalf("Services failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 services, got %d", len(got))
	}
	if got[0].ID != 31 || got[0].Count != 3 || got[1].ID != 30 || got[1].Count != 1 {
		t.Errorf("Unexpected service counts: %+v", got)
	}
}

func TestFacetAuthors(t *testing.T) {
	f, _, _, section := newFacets(t)

	got, err := f.Authors(context.Background(), filters.FacetRequest{Section: section, Locale: "en"})
	if err != nil {
		t.Fatalf("Authors failed: %v", err)
	}
	if len(got) != 2 || got[0].Label != "Jane" || got[0].Count != 2 || got[1].Label != "John" || got[1].Count != 2 {
		t.Errorf("Expected ties broken by name, got %+v", got)
	}
}

func TestFacetArchiveNewestFirst(t *testing.T) {
	f, _, _, section := newFacets(t)

	got, err := f.Archive(context.Background(), filters.FacetRequest{Section: section, Locale: "en"})
	if err != nil {
		t.Fatalf("Archive failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Expected 3 months, got %+v", got)
	}
	if got[0].Label != "June 2024" || got[0].Count != 1 {
		t.Errorf("Unexpected first month: %+v", got[0])
	}
	if got[1].Label != "May 2024" || got[1].Count != 2 {
		t.Errorf("Unexpected second month: %+v", got[1])
	}
}

func TestFacetCachedPerArgs(t *testing.T) {
	f, articles, refs, section := newFacets(t)
	ctx := context.Background()
	req := filters.FacetRequest{Section: section, Locale: "en"}

	first, _ := f.Categories(ctx, req)
	delete(articles.Articles, 1)
	second, _ := f.Categories(ctx, req)
	if first[0].Count != second[0].Count {
		t.Errorf("Expected cached count %d, got %d", first[0].Count, second[0].Count)
	}
	if refs.Calls["categories"] != 1 {
		t.Errorf("Expected one category load, got %d", refs.Calls["categories"])
	}

	narrowed := filters.FacetRequest{Section: section, Locale: "en", Args: url.Values{"service": {"30"}}}
	got, err := f.Categories(ctx, narrowed)
	if err != nil {
		t.Fatalf("Categories failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Expected no categories once the only service 30 article is gone, got %+v", got)
	}

	f.Invalidate(ctx, section, "en")
	third, _ := f.Categories(ctx, req)
	if third[0].Count != first[0].Count-1 {
		t.Errorf("Expected recount after invalidation, got %d", third[0].Count)
	}
}

func TestFacetKeyIgnoresUnknownArgs(t *testing.T) {
	f, _, refs, section := newFacets(t)
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		req := filters.FacetRequest{Section: section, Locale: "en", Args: url.Values{"utm_source": {strconv.Itoa(i)}}}
		if _, err := f.Services(ctx, req); err != nil {
			t.Fatalf("Services failed: %v", err)
		}
	}
	if _, err := f.Services(ctx, filters.FacetRequest{Section: section, Locale: "en"}); err != nil {
		t.Fatalf("Services failed: %v", err)
	}
	if refs.Calls["services"] != 1 {
		t.Errorf("Expected one cached entry for unknown args, got %d loads", refs.Calls["services"])
	}

	narrowed := filters.FacetRequest{Section: section, Locale: "en", Args: url.Values{"category": {"10"}, "utm_source": {"x"}}}
	if _, err := f.Services(ctx, narrowed); err != nil {
		t.Fatalf("Services failed: %v", err)
	}
	narrowed.Args.Set("utm_source", "y")
	if _, err := f.Services(ctx, narrowed); err != nil {
		t.Fatalf("Services failed: %v", err)
	}
	if refs.Calls["services"] != 2 {
		t.Errorf("Expected accepted args to share one entry, got %d loads", refs.Calls["services"])
	}
}
