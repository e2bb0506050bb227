package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/newsblog-api/internal/database"
	"github.com/newsblog-api/internal/models"
)

const sectionColumns = `id, namespace, title, permalink_type, non_permalink_handling,
	paginate_by, pagination_pages_start, pagination_pages_visible, exclude_featured,
	template_prefix, create_authors, search_indexed, show_in_listing, show_in_related,
	show_in_specific, allow_post, show_logo, default_published, created_at`

// flagColumns whitelists the columns IDsWithFlag may filter on
var flagColumns = map[models.SectionFlag]string{
	models.FlagShowInListing:  "show_in_listing",
	models.FlagShowInRelated:  "show_in_related",
	models.FlagShowInSpecific: "show_in_specific",
	models.FlagSearchIndexed:  "search_indexed",
}

// sectionRepo is the concrete implementation of SectionRepository
type sectionRepo struct {
	db *database.DB
}

// NewSectionRepo creates a new section repository
func NewSectionRepo(db *database.DB) SectionRepository {
	return &sectionRepo{db: db}
}

// GetByID retrieves a section by ID
func (r *sectionRepo) GetByID(ctx context.Context, id int64) (*models.Section, error) {
	return r.getOne(ctx, `SELECT `+sectionColumns+` FROM sections WHERE id = $1`, id)
}

// GetByNamespace retrieves a section by its unique namespace
func (r *sectionRepo) GetByNamespace(ctx context.Context, namespace string) (*models.Section, error) {
	return r.getOne(ctx, `SELECT `+sectionColumns+` FROM sections WHERE namespace = $1`, namespace)
}

func (r *sectionRepo) getOne(ctx context.Context, query string, arg interface{}) (*models.Section, error) {
	var s models.Section
	err := r.db.X.GetContext(ctx, &s, query, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// List returns every section ordered by namespace
func (r *sectionRepo) List(ctx context.Context) ([]*models.Section, error) {
	sections := []*models.Section{}
	err := r.db.X.SelectContext(ctx, &sections, `SELECT `+sectionColumns+` FROM sections ORDER BY namespace`)
	return sections, err
}

// IDsWithFlag returns the ids of sections with flag set
func (r *sectionRepo) IDsWithFlag(ctx context.Context, flag models.SectionFlag) ([]int64, error) {
	column, ok := flagColumns[flag]
	if !ok {
		return nil, fmt.Errorf("unknown section flag %q", flag)
	}
	ids := []int64{}
	err := r.db.X.SelectContext(ctx, &ids, `SELECT id FROM sections WHERE `+column+` ORDER BY id`)
	return ids, err
}

// Create inserts a new section
func (r *sectionRepo) Create(ctx context.Context, section *models.Section) error {
	section.CreatedAt = time.Now()
	rows, err := r.db.X.NamedQueryContext(ctx, `
		INSERT INTO sections (namespace, title, permalink_type, non_permalink_handling,
			paginate_by, pagination_pages_start, pagination_pages_visible, exclude_featured,
			template_prefix, create_authors, search_indexed, show_in_listing, show_in_related,
			show_in_specific, allow_post, show_logo, default_published, created_at)
		VALUES (:namespace, :title, :permalink_type, :non_permalink_handling,
			:paginate_by, :pagination_pages_start, :pagination_pages_visible, :exclude_featured,
			:template_prefix, :create_authors, :search_indexed, :show_in_listing, :show_in_related,
			:show_in_specific, :allow_post, :show_logo, :default_published, :created_at)
		RETURNING id
	`, section)
	if err != nil {
		return err
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&section.ID); err != nil {
			return err
		}
	}
	return rows.Err()
}

// EnsureDefault creates the reserved default section if it is missing
func (r *sectionRepo) EnsureDefault(ctx context.Context) (*models.Section, error) {
	s, err := r.GetByNamespace(ctx, models.DefaultNamespace)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	s = models.NewDefaultSection()
	if err := r.Create(ctx, s); err != nil {
		return nil, fmt.Errorf("failed to create default section: %w", err)
	}
	return s, nil
}
