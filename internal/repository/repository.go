package repository

import (
	"context"

	"github.com/newsblog-api/internal/database"
	"github.com/newsblog-api/internal/models"
	"github.com/newsblog-api/internal/predicate"
)

// ArticleRepository defines the interface for article data operations.
// Read methods return articles with translations, relations and the
// curated related list loaded.
type ArticleRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Article, error)
	GetByIDs(ctx context.Context, ids []int64) ([]*models.Article, error)
	// GetBySlug finds an article in sectionID whose slug matches in one of
	// locales, trying them in order.
	GetBySlug(ctx context.Context, sectionID int64, slug string, locales []string) (*models.Article, error)
	Find(ctx context.Context, q predicate.Query) ([]*models.Article, error)
	Count(ctx context.Context, where predicate.Predicate) (int, error)
	Save(ctx context.Context, article *models.Article) error
	CountByRelation(ctx context.Context, where predicate.Predicate, rel models.Relation) (map[int64]int, error)
	// CountByAuthor counts matching articles per primary author
	CountByAuthor(ctx context.Context, where predicate.Predicate, translated bool, locale string) (map[int64]int, error)
	// CountByMonth returns month buckets, newest first
	CountByMonth(ctx context.Context, where predicate.Predicate) ([]models.ArchiveMonth, error)
}

// SectionRepository defines the interface for section data operations
type SectionRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Section, error)
	GetByNamespace(ctx context.Context, namespace string) (*models.Section, error)
	List(ctx context.Context) ([]*models.Section, error)
	IDsWithFlag(ctx context.Context, flag models.SectionFlag) ([]int64, error)
	Create(ctx context.Context, section *models.Section) error
	// EnsureDefault creates the reserved default section if it is missing
	EnsureDefault(ctx context.Context) (*models.Section, error)
}

// ReferenceRepository defines read access to the entities articles link to
type ReferenceRepository interface {
	Mediums(ctx context.Context) ([]*models.Medium, error)
	MediumByTitle(ctx context.Context, title string) (*models.Medium, error)
	EnsureMedium(ctx context.Context, title string) (*models.Medium, error)
	Categories(ctx context.Context) ([]*models.Category, error)
	CategoryChildren(ctx context.Context, parentSlug string) ([]*models.Category, error)
	CategorySlug(ctx context.Context, id int64) (string, error)
	CategoryNames(ctx context.Context, ids []int64) ([]string, error)
	ServiceSections(ctx context.Context) ([]*models.ServiceSection, error)
	Services(ctx context.Context) ([]*models.Service, error)
	ServiceTitles(ctx context.Context, ids []int64) ([]string, error)
	ServiceIDsInSections(ctx context.Context, serviceSectionIDs []int64) ([]int64, error)
	Locations(ctx context.Context) ([]*models.Location, error)
	Companies(ctx context.Context) ([]*models.Company, error)
	Persons(ctx context.Context, ids []int64) ([]*models.Person, error)
	PersonSlug(ctx context.Context, id int64) (string, error)
	PersonByUserID(ctx context.Context, userID int64) (*models.Person, error)
	CreatePerson(ctx context.Context, person *models.Person) error
}

// WidgetRepository defines the interface for widget configuration storage
type WidgetRepository interface {
	GetByID(ctx context.Context, id int64) (*models.RelatedWidget, error)
	Save(ctx context.Context, widget *models.RelatedWidget) error
}

// Repositories holds all repository interfaces
type Repositories struct {
	Article   ArticleRepository
	Section   SectionRepository
	Reference ReferenceRepository
	Widget    WidgetRepository
}

// New creates all repositories with the given database connection
func New(db *database.DB) *Repositories {
	return &Repositories{
		Article:   NewArticleRepo(db),
		Section:   NewSectionRepo(db),
		Reference: NewReferenceRepo(db),
		Widget:    NewWidgetRepo(db),
	}
}
