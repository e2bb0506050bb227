package relevance_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/newsblog-api/internal/config"
	"github.com/newsblog-api/internal/models"
	"github.com/newsblog-api/internal/predicate"
	"github.com/newsblog-api/internal/publication"
	"github.com/newsblog-api/internal/relevance"
	"github.com/rs/zerolog"
)

type stubLookup struct {
	defaultMedium int64
	hasDefault    bool
	services      map[int64][]int64
	err           error
}

func (s *stubLookup) DefaultMediumID(ctx context.Context) (int64, bool, error) {
	return s.defaultMedium, s.hasDefault, s.err
}

func (s *stubLookup) ServiceIDsInSections(ctx context.Context, ids []int64) ([]int64, error) {
	var out []int64
	for _, id := range ids {
		out = append(out, s.services[id]...)
	}
	return out, s.err
}

func ptr(v int64) *int64 { return &v }

func newBuilder(f config.FeatureConfig, l relevance.Lookup) *relevance.Builder {
	return relevance.NewBuilder(f, publication.NewPolicy(f), l, zerolog.Nop())
}

func catalog() []*models.Article {
	d := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return []*models.Article{
		{ID: 1, SectionID: 1, PublishingDate: d, MediumID: nil, AuthorID: ptr(100), CategoryIDs: []int64{10}},
		{ID: 2, SectionID: 1, PublishingDate: d, MediumID: ptr(5), AuthorID: ptr(101), Author2ID: ptr(100), CategoryIDs: []int64{11}},
		{ID: 3, SectionID: 2, PublishingDate: d, MediumID: ptr(6), AuthorID: ptr(102), Author3ID: ptr(101), ServiceIDs: []int64{30}, CompanyIDs: []int64{40}},
		{ID: 4, SectionID: 2, PublishingDate: d, MediumID: nil, AuthorID: ptr(103), CategoryIDs: []int64{10, 11}, IsFeatured: true, LocationIDs: []int64{50}},
	}
}

func matched(p predicate.Predicate) []int64 {
	var ids []int64
	for _, a := range catalog() {
		if p.Match(a) {
			ids = append(ids, a.ID)
		}
	}
	return ids
}

func assertIDs(t *testing.T, got, want []int64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("Expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Expected %v, got %v", want, got)
		}
	}
}

func TestBuild(t *testing.T) {
	lookup := &stubLookup{defaultMedium: 99, hasDefault: true, services: map[int64][]int64{7: {30}, 8: {}}}
	b := newBuilder(config.FeatureConfig{CompaniesInstalled: true, EnableLocations: true}, lookup)
	ctx := context.Background()

	tests := []struct {
		name string
		req  relevance.Request
		want []int64
	}{
		{"no dimensions", relevance.Request{}, []int64{1, 2, 3, 4}},
		{"section", relevance.Request{Selection: relevance.Selection{Sections: []int64{2}}}, []int64{3, 4}},
		{"default sections", relevance.Request{DefaultSections: []int64{1}}, []int64{1, 2}},
		{"explicit section beats default", relevance.Request{Selection: relevance.Selection{Sections: []int64{2}}, DefaultSections: []int64{1}}, []int64{3, 4}},
		{"empty default sections", relevance.Request{DefaultSections: []int64{}}, nil},
		{"default medium sentinel", relevance.Request{Selection: relevance.Selection{Mediums: []int64{99}}}, []int64{1, 4}},
		{"sentinel among others", relevance.Request{Selection: relevance.Selection{Mediums: []int64{99, 5}}}, []int64{2}},
		{"medium or", relevance.Request{Selection: relevance.Selection{Mediums: []int64{5, 6}}}, []int64{2, 3}},
		{"single author any slot", relevance.Request{Selection: relevance.Selection{Authors: []int64{100}}}, []int64{1, 2}},
		{"two authors primary slot", relevance.Request{Selection: relevance.Selection{Authors: []int64{100, 101}}}, []int64{1, 2}},
		{"single author third slot", relevance.Request{Selection: relevance.Selection{Authors: []int64{101}}}, []int64{2, 3}},
		{"category or", relevance.Request{Selection: relevance.Selection{Categories: []int64{10, 11}}}, []int64{1, 2, 4}},
		{"and across dimensions", relevance.Request{Selection: relevance.Selection{Categories: []int64{10}, Sections: []int64{2}}}, []int64{4}},
		{"service section", relevance.Request{Selection: relevance.Selection{ServiceSections: []int64{7}}}, []int64{3}},
		{"service section without services", relevance.Request{Selection: relevance.Selection{ServiceSections: []int64{8}}}, nil},
		{"company", relevance.Request{Selection: relevance.Selection{Companies: []int64{40}}}, []int64{3}},
		{"location", relevance.Request{Selection: relevance.Selection{Locations: []int64{50}}}, []int64{4}},
		{"featured", relevance.Request{Selection: relevance.Selection{FeaturedOnly: true}}, []int64{4}},
		{"exclude current", relevance.Request{Selection: relevance.Selection{ExcludeCurrent: true}, Anchor: &models.Article{ID: 2}}, []int64{1, 3, 4}},
		{"exclude current without anchor", relevance.Request{Selection: relevance.Selection{ExcludeCurrent: true}}, []int64{1, 2, 3, 4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := b.Build(ctx, tt.req)
			if err != nil {
				t.Fatalf("Build failed: %v", err)
			}
			assertIDs(t, matched(p), tt.want)
		})
	}
}

func TestBuildSentinelNotCreated(t *testing.T) {
	b := newBuilder(config.FeatureConfig{}, &stubLookup{})
	p, err := b.Build(context.Background(), relevance.Request{Selection: relevance.Selection{Mediums: []int64{99}}})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	assertIDs(t, matched(p), nil)
}

func TestCompanyDimensionNoOpWhenNotInstalled(t *testing.T) {
	b := newBuilder(config.FeatureConfig{CompaniesInstalled: false}, &stubLookup{})
	if b.Supports(relevance.DimCompany) {
		t.Error("Company dimension should not be supported")
	}

	p, err := b.Build(context.Background(), relevance.Request{Selection: relevance.Selection{Companies: []int64{999}}})
	if err != nil {
		t.Fatalf("Build should not fail: %v", err)
	}
	if !predicate.IsAll(p) {
		t.Error("Expected company selection to be ignored")
	}
}

func TestBuildTranslatedAuthors(t *testing.T) {
	b := newBuilder(config.FeatureConfig{TranslateAuthors: true}, &stubLookup{})
	a := &models.Article{ID: 1, AuthorID: ptr(1), Translations: map[string]*models.Translation{
		"en": {Locale: "en", Author2ID: ptr(5)},
	}}

	p, err := b.Build(context.Background(), relevance.Request{Selection: relevance.Selection{Authors: []int64{5}}, Locale: "en"})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if !p.Match(a) {
		t.Error("Expected match on translated second author")
	}

	p, _ = b.Build(context.Background(), relevance.Request{Selection: relevance.Selection{Authors: []int64{1}}, Locale: "en"})
	if p.Match(a) {
		t.Error("Shared author slot should be ignored when authors are translated")
	}
}

func TestBuildLookupError(t *testing.T) {
	b := newBuilder(config.FeatureConfig{}, &stubLookup{err: errors.New("db down")})
	_, err := b.Build(context.Background(), relevance.Request{Selection: relevance.Selection{ServiceSections: []int64{1}}})
	if err == nil {
		t.Error("Expected lookup error to propagate")
	}
}

func TestDescribe(t *testing.T) {
	b := newBuilder(config.FeatureConfig{}, &stubLookup{})
	if got := b.Describe(relevance.Selection{}); got != "none" {
		t.Errorf("Expected 'none', got %q", got)
	}
	got := b.Describe(relevance.Selection{Categories: []int64{1, 2}, FeaturedOnly: true})
	if got != "category=2,featured" {
		t.Errorf("Expected 'category=2,featured', got %q", got)
	}
}

func TestSelectionFromWidget(t *testing.T) {
	w := &models.RelatedWidget{AuthorIDs: []int64{3}, Featured: true, ExcludeCurrentArticle: true}
	s := relevance.SelectionFromWidget(w)
	if id, ok := s.SingleAuthor(); !ok || id != 3 {
		t.Errorf("Expected single author 3, got %d %v", id, ok)
	}
	if !s.FeaturedOnly || !s.ExcludeCurrent {
		t.Error("Expected flags to be copied")
	}
}
