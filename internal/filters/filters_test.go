package filters_test

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/newsblog-api/internal/config"
	"github.com/newsblog-api/internal/filters"
	"github.com/newsblog-api/internal/mocks"
	"github.com/newsblog-api/internal/models"
	"github.com/newsblog-api/internal/predicate"
	"github.com/rs/zerolog"
)

func ptr(v int64) *int64 { return &v }

var features = config.FeatureConfig{
	DefaultMediumTitle: "default",
	MaxRelated:         120,
	DefaultLanguage:    "en",
	Languages:          []string{"en"},
}

func newSources() (filters.Sources, *mocks.MockReferenceRepository) {
	refs := mocks.NewMockReferenceRepository()
	refs.MediumList = []*models.Medium{
		{ID: 1, Title: "Zeta"},
		{ID: 2, Title: "alpha"},
		{ID: 3, Title: "Beta"},
		{ID: 4, Title: "default"},
	}
	refs.CategoryList = []*models.Category{
		{ID: 10, Name: "Politics", Slug: "politics"},
		{ID: 11, Name: "economy", Slug: "economy"},
		{ID: 12, Name: "Hidden", Slug: "hidden"},
		{ID: 20, Name: "Regions", Slug: "regions"},
		{ID: 21, Name: "North", Slug: "north", ParentID: ptr(20)},
	}
	refs.ServiceSectionList = []*models.ServiceSection{{ID: 50, Title: "Advisory"}}
	refs.ServiceList = []*models.Service{
		{ID: 30, Title: "Tax", SectionIDs: []int64{50}},
		{ID: 31, Title: "Audit"},
	}
	refs.PersonList = []*models.Person{{ID: 100, Name: "Jane"}, {ID: 101, Name: "John"}}

	sections := mocks.NewMockSectionRepository(
		&models.Section{ID: 1, Namespace: models.DefaultNamespace, Title: "News", ShowInListing: true},
		&models.Section{ID: 2, Namespace: "insights", Title: "Insights", ShowInListing: true},
		&models.Section{ID: 3, Namespace: "internal", Title: "Internal"},
	)
	return filters.Sources{Refs: refs, Sections: sections}, refs
}

func labels(refs []models.Reference) []string {
	out := make([]string, len(refs))
	for i, r := range refs {
		out[i] = r.Label
	}
	return out
}

func choice(t *testing.T, choices []filters.Choice, name string) filters.Choice {
	t.Helper()
	for _, c := range choices {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("Expected choice %s", name)
	return filters.Choice{}
}

func TestMediumChoicesSortedWithoutSentinel(t *testing.T) {
	src, _ := newSources()
	set := filters.NewListingSet(features, nil, src, zerolog.Nop())

	choices, err := set.Choices(context.Background(), nil)
	if err != nil {
		t.Fatalf("Choices failed: %v", err)
	}
	got := labels(choice(t, choices, "medium").Options)
	want := []string{"alpha", "Beta", "Zeta"}
	if len(got) != len(want) {
		t.Fatalf("Expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Expected %v, got %v", want, got)
			break
		}
	}
}

func TestChoicesExclusionAndEmptyLabels(t *testing.T) {
	src, _ := newSources()
	cfg := &config.FiltersConfig{
		EmptyLabels: map[string]string{"category": "Any topic"},
		Exclude: map[string][]config.ExcludeRule{
			"category": {{Field: "slug", Values: []string{"hidden", "regions"}}},
		},
		ExtraCategories: []config.ExtraCategoryFilter{{Name: "by-region", ParentSlug: "regions", Label: "region"}},
	}
	set := filters.NewListingSet(features, cfg, src, zerolog.Nop())

	choices, err := set.Choices(context.Background(), nil)
	if err != nil {
		t.Fatalf("Choices failed: %v", err)
	}

	category := choice(t, choices, "category")
	if category.EmptyLabel != "Any topic" {
		t.Errorf("Expected custom empty label, got %q", category.EmptyLabel)
	}
	got := labels(category.Options)
	if len(got) != 3 || got[0] != "economy" || got[1] != "North" || got[2] != "Politics" {
		t.Errorf("Expected [economy North Politics], got %v", got)
	}

	region := choice(t, choices, "by_region")
	if region.EmptyLabel != "by region" {
		t.Errorf("Expected 'by region', got %q", region.EmptyLabel)
	}
	if len(region.Options) != 1 || region.Options[0].ID != 21 {
		t.Errorf("Expected children of regions, got %v", region.Options)
	}

	section := choice(t, choices, "section")
	if len(section.Options) != 1 || section.Options[0].Slug != "insights" {
		t.Errorf("Expected only the non-default listing section, got %v", section.Options)
	}
	if choice(t, choices, "medium").EmptyLabel != "by medium" {
		t.Error("Expected field empty label when no override is configured")
	}
}

func TestListingSetIgnoresUnknownAndEmpty(t *testing.T) {
	src, _ := newSources()
	set := filters.NewListingSet(features, nil, src, zerolog.Nop())

	res, err := set.Apply(context.Background(), filters.Input{Values: url.Values{
		"unknown":  {"1"},
		"category": {""},
		"q":        {"   "},
	}}, filters.Env{Locale: "en"})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if !res.Valid || len(res.Values) != 0 {
		t.Errorf("Expected a valid no-op result, got %+v", res)
	}
	if !predicate.IsAll(res.Where) {
		t.Error("Expected no constraint")
	}
}

func TestNonStrictDropsInvalidValues(t *testing.T) {
	src, _ := newSources()
	set := filters.NewListingSet(features, nil, src, zerolog.Nop())

	res, err := set.Apply(context.Background(), filters.Input{Values: url.Values{
		"medium":   {"2"},
		"category": {"999"},
	}}, filters.Env{Locale: "en"})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if res.Valid {
		t.Error("Expected invalid flag")
	}
	if len(res.Errors) != 1 || res.Errors[0].Field != "category" {
		t.Errorf("Expected one category error, got %v", res.Errors)
	}

	match := &models.Article{ID: 1, MediumID: ptr(2)}
	other := &models.Article{ID: 2, MediumID: ptr(1)}
	if !res.Where.Match(match) || res.Where.Match(other) {
		t.Error("Expected only the medium filter to apply")
	}
}

func TestStrictListingRejectsWholeRequest(t *testing.T) {
	src, _ := newSources()
	set := filters.NewListingSet(features, &config.FiltersConfig{Strict: true}, src, zerolog.Nop())

	res, _ := set.Apply(context.Background(), filters.Input{Values: url.Values{
		"medium":   {"2"},
		"category": {"nope"},
	}}, filters.Env{Locale: "en"})
	if res.Valid || !predicate.IsNone(res.Where) {
		t.Errorf("Expected empty result set, got %+v", res)
	}
}

func TestDefaultMediumNotSelectableInListing(t *testing.T) {
	src, _ := newSources()
	set := filters.NewListingSet(features, nil, src, zerolog.Nop())

	res, _ := set.Apply(context.Background(), filters.Input{Values: url.Values{"medium": {"4"}}}, filters.Env{Locale: "en"})
	if res.Valid {
		t.Error("Expected the default medium to be rejected")
	}
}

func TestSearch(t *testing.T) {
	article := &models.Article{ID: 1, Translations: map[string]*models.Translation{
		"en": {Title: "Quarterly results", SearchData: "quarterly results tax advisory"},
	}}

	tests := []struct {
		name      string
		precomp   bool
		query     string
		wantMatch bool
	}{
		{"title substring", false, "results", true},
		{"title does not hold search text", false, "advisory", false},
		{"all terms in search data", true, "tax  Quarterly", true},
		{"one term missing", true, "tax audit", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := features
			f.UpdateSearchData = tt.precomp
			src, _ := newSources()
			set := filters.NewListingSet(f, nil, src, zerolog.Nop())

			res, err := set.Apply(context.Background(), filters.Input{Values: url.Values{"q": {tt.query}}}, filters.Env{Locale: "en"})
			if err != nil {
				t.Fatalf("Apply failed: %v", err)
			}
			if got := res.Where.Match(article); got != tt.wantMatch {
				t.Errorf("Expected match %v, got %v", tt.wantMatch, got)
			}
		})
	}
}

func TestOptionalFieldsFollowFeatures(t *testing.T) {
	src, _ := newSources()

	set := filters.NewListingSet(features, nil, src, zerolog.Nop())
	if _, ok := set.Field("company"); ok {
		t.Error("Expected no company filter without the companies collaborator")
	}
	if _, ok := set.Field("location"); ok {
		t.Error("Expected no location filter when locations are disabled")
	}

	f := features
	f.CompaniesInstalled = true
	f.EnableLocations = true
	set = filters.NewListingSet(f, nil, src, zerolog.Nop())
	if _, ok := set.Field("company"); !ok {
		t.Error("Expected company filter")
	}
	if _, ok := set.Field("location"); !ok {
		t.Error("Expected location filter")
	}
}

func TestRelatedSetRequiresCount(t *testing.T) {
	src, _ := newSources()
	set := filters.NewRelatedSet(features, nil, src, zerolog.Nop())

	tests := []struct {
		name   string
		values url.Values
	}{
		{"missing", url.Values{"categories": {"10"}}},
		{"not a number", url.Values{"count": {"many"}}},
		{"above ceiling", url.Values{"count": {"121"}}},
		{"zero", url.Values{"count": {"0"}}},
		{"bad mode", url.Values{"count": {"3"}, "mode": {"xml"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := set.Apply(context.Background(), filters.Input{Values: tt.values}, filters.Env{Locale: "en"})
			if err != nil {
				t.Fatalf("Apply failed: %v", err)
			}
			if res.Valid || !predicate.IsNone(res.Where) {
				t.Errorf("Expected strict rejection, got %+v", res)
			}
		})
	}
}

func TestRelatedSetFilters(t *testing.T) {
	src, _ := newSources()
	set := filters.NewRelatedSet(features, nil, src, zerolog.Nop())

	res, err := set.Apply(context.Background(), filters.Input{Values: url.Values{
		"count":            {"2"},
		"categories":       {"10", "11"},
		"exclude_current":  {"1"},
		"service_sections": {"50"},
		"authors":          {"100", "101"},
		"is_featured":      {"false"},
	}}, filters.Env{Locale: "en"})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if !res.Valid {
		t.Fatalf("Expected valid input, got %v", res.Errors)
	}
	if res.Int("count", 0) != 2 {
		t.Errorf("Expected count 2, got %d", res.Int("count", 0))
	}

	base := func(id int64) *models.Article {
		return &models.Article{ID: id, CategoryIDs: []int64{11}, ServiceIDs: []int64{30}, AuthorID: ptr(101)}
	}
	if !res.Where.Match(base(2)) {
		t.Error("Expected article 2 to match")
	}
	if res.Where.Match(base(1)) {
		t.Error("Expected current article to be excluded")
	}
	noService := base(3)
	noService.ServiceIDs = []int64{31}
	if res.Where.Match(noService) {
		t.Error("Expected service section filter to require a service in the section")
	}
	secondSlot := base(4)
	secondSlot.AuthorID, secondSlot.Author2ID = nil, ptr(100)
	if res.Where.Match(secondSlot) {
		t.Error("Expected author filter to check the primary slot only")
	}
	featured := base(5)
	featured.IsFeatured = true
	if res.Where.Match(featured) {
		t.Error("Expected is_featured=false to exclude featured articles")
	}
}

func TestFromQuery(t *testing.T) {
	q := url.Values{
		"count": {"9"},
		"json":  {`{"count": 3, "categories": [10, 11], "image": {"width": 100}, "is_featured": true}`},
	}
	in := filters.FromQuery(q)

	if !in.Payload {
		t.Error("Expected payload flag")
	}
	if in.Values.Get("mode") != "json" {
		t.Errorf("Expected mode json, got %q", in.Values.Get("mode"))
	}
	if in.Values.Get("count") != "3" {
		t.Errorf("Expected payload to override count, got %q", in.Values.Get("count"))
	}
	if len(in.Values["categories"]) != 2 || in.Values["categories"][1] != "11" {
		t.Errorf("Unexpected categories: %v", in.Values["categories"])
	}
	if in.Values.Get("is_featured") != "true" {
		t.Errorf("Expected is_featured true, got %q", in.Values.Get("is_featured"))
	}
	if in.Objects["image"]["width"] != float64(100) {
		t.Errorf("Expected image object, got %v", in.Objects["image"])
	}
}

func TestFromQueryBadPayload(t *testing.T) {
	in := filters.FromQuery(url.Values{"count": {"4"}, "json": {"{not json"}})
	if in.Payload {
		t.Error("Expected payload to be ignored")
	}
	if in.Values.Get("count") != "4" || in.Values.Get("mode") != "" {
		t.Errorf("Expected plain query values, got %v", in.Values)
	}
}

func TestObjectFieldRejectsScalar(t *testing.T) {
	src, _ := newSources()
	set := filters.NewRelatedSet(features, nil, src, zerolog.Nop())

	res, _ := set.Apply(context.Background(), filters.Input{Values: url.Values{"count": {"3"}, "image": {"big"}}}, filters.Env{Locale: "en"})
	if res.Valid {
		t.Error("Expected scalar image value to be rejected")
	}

	in := filters.FromQuery(url.Values{"json": {`{"count": 3, "image": {"width": 80, "height": 60}}`}})
	res, _ = set.Apply(context.Background(), in, filters.Env{Locale: "en"})
	if !res.Valid || res.Values["image"].Object["height"] != float64(60) {
		t.Errorf("Expected image object to be accepted, got %+v", res)
	}
}

func TestSortReferences(t *testing.T) {
	refs := []models.Reference{{ID: 3, Label: "Zeta"}, {ID: 2, Label: "beta"}, {ID: 1, Label: "Beta"}, {ID: 4, Label: "alpha"}}
	filters.SortReferences(refs)
	want := []int64{4, 1, 2, 3}
	for i, id := range want {
		if refs[i].ID != id {
			t.Fatalf("Expected ids %v, got %v", want, refs)
		}
	}
}

func TestListingPredicateOverRepository(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	src, _ := newSources()
	set := filters.NewListingSet(features, nil, src, zerolog.Nop())

	res, _ := set.Apply(context.Background(), filters.Input{Values: url.Values{"category": {"10"}}}, filters.Env{Locale: "en"})
	repo := mocks.NewMockArticleRepository(
		&models.Article{ID: 1, PublishingDate: now, CategoryIDs: []int64{10}},
		&models.Article{ID: 2, PublishingDate: now.Add(time.Hour), CategoryIDs: []int64{10}},
		&models.Article{ID: 3, PublishingDate: now, CategoryIDs: []int64{11}},
	)
	got, err := repo.Find(context.Background(), predicate.Query{Where: res.Where, Order: predicate.Newest})
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if len(got) != 2 || got[0].ID != 2 || got[1].ID != 1 {
		t.Errorf("Expected [2 1], got %d articles", len(got))
	}
}
