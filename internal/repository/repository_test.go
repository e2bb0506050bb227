package repository_test

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/newsblog-api/internal/database"
	"github.com/newsblog-api/internal/mocks"
	"github.com/newsblog-api/internal/models"
	"github.com/newsblog-api/internal/predicate"
	"github.com/newsblog-api/internal/repository"
	"github.com/rs/zerolog"
)

func ptr(v int64) *int64 { return &v }

func TestMockArticleRepository_FindOrdersAndPaginates(t *testing.T) {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	repo := mocks.NewMockArticleRepository(
		&models.Article{ID: 1, SectionID: 1, PublishingDate: base},
		&models.Article{ID: 2, SectionID: 1, PublishingDate: base.AddDate(0, 0, 1)},
		&models.Article{ID: 3, SectionID: 2, PublishingDate: base.AddDate(0, 0, 2)},
		&models.Article{ID: 4, SectionID: 1, PublishingDate: base.AddDate(0, 0, 1)},
	)
	ctx := context.Background()

	got, err := repo.Find(ctx, predicate.Query{Where: predicate.SectionIn(1), Order: predicate.Newest, Limit: 2})
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if len(got) != 2 || got[0].ID != 4 || got[1].ID != 2 {
		t.Errorf("Expected [4 2], got %v", articleIDs(got))
	}

	got, _ = repo.Find(ctx, predicate.Query{Where: predicate.SectionIn(1), Order: predicate.Newest, Limit: 2, Offset: 2})
	if len(got) != 1 || got[0].ID != 1 {
		t.Errorf("Expected [1] on second page, got %v", articleIDs(got))
	}

	count, _ := repo.Count(ctx, predicate.SectionIn(1))
	if count != 3 {
		t.Errorf("Expected count 3, got %d", count)
	}
}

func TestMockArticleRepository_Aggregates(t *testing.T) {
	d := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	repo := mocks.NewMockArticleRepository(
		&models.Article{ID: 1, PublishingDate: d, AuthorID: ptr(7), CategoryIDs: []int64{10, 11}},
		&models.Article{ID: 2, PublishingDate: d.AddDate(0, -1, 0), AuthorID: ptr(7), CategoryIDs: []int64{10}},
		&models.Article{ID: 3, PublishingDate: d.AddDate(-1, 0, 0), AuthorID: ptr(8)},
	)
	ctx := context.Background()

	byCategory, _ := repo.CountByRelation(ctx, predicate.All(), models.RelCategories)
	if byCategory[10] != 2 || byCategory[11] != 1 {
		t.Errorf("Unexpected category counts: %v", byCategory)
	}

	byAuthor, _ := repo.CountByAuthor(ctx, predicate.All(), false, "en")
	if byAuthor[7] != 2 || byAuthor[8] != 1 {
		t.Errorf("Unexpected author counts: %v", byAuthor)
	}

	months, _ := repo.CountByMonth(ctx, predicate.All())
	if len(months) != 3 {
		t.Fatalf("Expected 3 months, got %d", len(months))
	}
	if months[0].Label != "May 2024" || months[2].Label != "May 2023" {
		t.Errorf("Expected newest month first, got %v", months)
	}
}

func TestMockSectionRepository_EnsureDefault(t *testing.T) {
	repo := mocks.NewMockSectionRepository()
	ctx := context.Background()

	first, err := repo.EnsureDefault(ctx)
	if err != nil {
		t.Fatalf("EnsureDefault failed: %v", err)
	}
	second, _ := repo.EnsureDefault(ctx)
	if first.ID != second.ID {
		t.Error("EnsureDefault must not create a second default section")
	}
	if len(repo.Sections) != 1 {
		t.Errorf("Expected 1 section, got %d", len(repo.Sections))
	}
}

func TestMockReferenceRepository_EnsureMedium(t *testing.T) {
	repo := mocks.NewMockReferenceRepository()
	repo.MediumList = []*models.Medium{{ID: 3, Title: "Interview"}}
	ctx := context.Background()

	first, err := repo.EnsureMedium(ctx, "default")
	if err != nil {
		t.Fatalf("EnsureMedium failed: %v", err)
	}
	second, _ := repo.EnsureMedium(ctx, "default")
	if first.ID != 4 || second.ID != first.ID {
		t.Errorf("Expected one medium with id 4, got %d and %d", first.ID, second.ID)
	}
	if len(repo.MediumList) != 2 {
		t.Errorf("Expected 2 mediums, got %d", len(repo.MediumList))
	}
}

func TestMockSectionRepository_IDsWithFlag(t *testing.T) {
	repo := mocks.NewMockSectionRepository(
		&models.Section{ID: 1, Namespace: "a", ShowInRelated: true},
		&models.Section{ID: 2, Namespace: "b"},
		&models.Section{ID: 3, Namespace: "c", ShowInRelated: true},
	)
	ids, _ := repo.IDsWithFlag(context.Background(), models.FlagShowInRelated)
	if len(ids) != 2 || ids[0] != 1 || ids[1] != 3 {
		t.Errorf("Expected [1 3], got %v", ids)
	}
}

func articleIDs(articles []*models.Article) []int64 {
	ids := make([]int64, len(articles))
	for i, a := range articles {
		ids[i] = a.ID
	}
	return ids
}

// openTestDB connects to TEST_DATABASE_URL and applies migrations
func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	raw, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	db := database.Wrap(raw, zerolog.Nop())
	if err := db.RunMigrations("../../migrations"); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestArticleRepositoryIntegration(t *testing.T) {
	db := openTestDB(t)
	repos := repository.New(db)
	ctx := context.Background()

	section := &models.Section{Namespace: "it-" + time.Now().Format("150405.000000"), PermalinkType: models.PermalinkSlug, NonPermalinkHandling: models.HandlingFound, ShowInRelated: true}
	if err := repos.Section.Create(ctx, section); err != nil {
		t.Fatalf("Create section failed: %v", err)
	}

	slug := "integration-" + time.Now().Format("150405.000000")
	a := &models.Article{
		SectionID:      section.ID,
		PublishingDate: time.Now().Add(-time.Hour),
		IsPublished:    true,
		Translations: map[string]*models.Translation{
			"en": {Title: "Integration", Slug: slug},
		},
	}
	if err := repos.Article.Save(ctx, a); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	found, err := repos.Article.GetBySlug(ctx, section.ID, slug, []string{"de", "en"})
	if err != nil {
		t.Fatalf("GetBySlug failed: %v", err)
	}
	if found.ID != a.ID || found.Title("en") != "Integration" {
		t.Errorf("Unexpected article: %+v", found)
	}

	where := predicate.And(predicate.SectionIn(section.ID), predicate.PublishedBefore(time.Now()), predicate.TranslatedIn("en"))
	list, err := repos.Article.Find(ctx, predicate.Query{Where: where, Order: predicate.Newest, Limit: 5})
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("Expected 1 article, got %d", len(list))
	}

	if _, err := repos.Article.GetByID(ctx, -1); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestReferenceRepositoryEnsureMediumIntegration(t *testing.T) {
	db := openTestDB(t)
	repos := repository.New(db)
	ctx := context.Background()

	title := "sentinel " + time.Now().Format("150405.000000")
	first, err := repos.Reference.EnsureMedium(ctx, title)
	if err != nil {
		t.Fatalf("EnsureMedium failed: %v", err)
	}
	second, err := repos.Reference.EnsureMedium(ctx, title)
	if err != nil {
		t.Fatalf("EnsureMedium failed: %v", err)
	}
	if first.ID == 0 || first.ID != second.ID {
		t.Errorf("Expected the same medium twice, got %d and %d", first.ID, second.ID)
	}
}

func TestWidgetRepositoryIntegration(t *testing.T) {
	db := openTestDB(t)
	repo := repository.NewWidgetRepo(db)
	ctx := context.Background()

	w := &models.RelatedWidget{Kind: models.WidgetRelated, Layout: models.DefaultLayout, NumberOfArticles: 3, CuratedIDs: []int64{}}
	if err := repo.Save(ctx, w); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	got, err := repo.GetByID(ctx, w.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.NumberOfArticles != 3 || len(got.CategoryIDs) != 0 {
		t.Errorf("Unexpected widget: %+v", got)
	}
}
