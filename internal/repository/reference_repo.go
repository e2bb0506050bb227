package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/newsblog-api/internal/database"
	"github.com/newsblog-api/internal/models"
	"github.com/newsblog-api/internal/validation"
)

// referenceRepo is the concrete implementation of ReferenceRepository
type referenceRepo struct {
	db *database.DB
}

// NewReferenceRepo creates a new reference repository
func NewReferenceRepo(db *database.DB) ReferenceRepository {
	return &referenceRepo{db: db}
}

// Mediums returns all mediums in position order
func (r *referenceRepo) Mediums(ctx context.Context) ([]*models.Medium, error) {
	out := []*models.Medium{}
	err := r.db.X.SelectContext(ctx, &out, `SELECT id, title, slug, position FROM mediums ORDER BY position, id`)
	return out, err
}

// MediumByTitle finds a medium by exact title
func (r *referenceRepo) MediumByTitle(ctx context.Context, title string) (*models.Medium, error) {
	var m models.Medium
	err := r.db.X.GetContext(ctx, &m, `SELECT id, title, slug, position FROM mediums WHERE title = $1 ORDER BY id LIMIT 1`, title)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// EnsureMedium returns the medium titled title, creating it if missing
func (r *referenceRepo) EnsureMedium(ctx context.Context, title string) (*models.Medium, error) {
	m, err := r.MediumByTitle(ctx, title)
	if err == nil {
		return m, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	_, err = r.db.X.ExecContext(ctx,
		`INSERT INTO mediums (title, slug, position) VALUES ($1, $2, 0) ON CONFLICT (slug) DO NOTHING`,
		title, validation.Slugify(title),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create medium %q: %w", title, err)
	}
	m, err = r.MediumByTitle(ctx, title)
	if err != nil {
		return nil, fmt.Errorf("medium %q: %w", title, err)
	}
	return m, nil
}

// Categories returns all categories
func (r *referenceRepo) Categories(ctx context.Context) ([]*models.Category, error) {
	out := []*models.Category{}
	err := r.db.X.SelectContext(ctx, &out, `SELECT id, name, slug, parent_id FROM categories ORDER BY id`)
	return out, err
}

// CategoryChildren returns the direct children of the category with parentSlug
func (r *referenceRepo) CategoryChildren(ctx context.Context, parentSlug string) ([]*models.Category, error) {
	out := []*models.Category{}
	err := r.db.X.SelectContext(ctx, &out, `
		SELECT c.id, c.name, c.slug, c.parent_id FROM categories c
		JOIN categories p ON p.id = c.parent_id
		WHERE p.slug = $1
		ORDER BY c.id
	`, parentSlug)
	return out, err
}

// CategorySlug returns the slug of a category
func (r *referenceRepo) CategorySlug(ctx context.Context, id int64) (string, error) {
	return r.slug(ctx, `SELECT slug FROM categories WHERE id = $1`, id)
}

// CategoryNames returns category names for ids
func (r *referenceRepo) CategoryNames(ctx context.Context, ids []int64) ([]string, error) {
	return r.labels(ctx, `SELECT name FROM categories WHERE id = ANY($1) ORDER BY id`, ids)
}

// ServiceSections returns all service sections
func (r *referenceRepo) ServiceSections(ctx context.Context) ([]*models.ServiceSection, error) {
	out := []*models.ServiceSection{}
	err := r.db.X.SelectContext(ctx, &out, `SELECT id, title, slug FROM service_sections ORDER BY id`)
	return out, err
}

// Services returns all services with their section memberships
func (r *referenceRepo) Services(ctx context.Context) ([]*models.Service, error) {
	out := []*models.Service{}
	if err := r.db.X.SelectContext(ctx, &out, `SELECT id, title, slug FROM services ORDER BY id`); err != nil {
		return nil, err
	}

	var links []struct {
		ServiceID int64 `db:"service_id"`
		SectionID int64 `db:"service_section_id"`
	}
	if err := r.db.X.SelectContext(ctx, &links, `SELECT service_id, service_section_id FROM service_section_services`); err != nil {
		return nil, err
	}
	byID := make(map[int64]*models.Service, len(out))
	for _, s := range out {
		byID[s.ID] = s
	}
	for _, l := range links {
		if s, ok := byID[l.ServiceID]; ok {
			s.SectionIDs = append(s.SectionIDs, l.SectionID)
		}
	}
	return out, nil
}

// ServiceTitles returns service titles for ids
func (r *referenceRepo) ServiceTitles(ctx context.Context, ids []int64) ([]string, error) {
	return r.labels(ctx, `SELECT title FROM services WHERE id = ANY($1) ORDER BY id`, ids)
}

// ServiceIDsInSections returns the services belonging to any of the
// service sections
func (r *referenceRepo) ServiceIDsInSections(ctx context.Context, serviceSectionIDs []int64) ([]int64, error) {
	ids := []int64{}
	if len(serviceSectionIDs) == 0 {
		return ids, nil
	}
	err := r.db.X.SelectContext(ctx, &ids, `
		SELECT DISTINCT service_id FROM service_section_services
		WHERE service_section_id = ANY($1)
		ORDER BY service_id
	`, pq.Array(serviceSectionIDs))
	return ids, err
}

// Locations returns all locations
func (r *referenceRepo) Locations(ctx context.Context) ([]*models.Location, error) {
	out := []*models.Location{}
	err := r.db.X.SelectContext(ctx, &out, `SELECT id, name, slug FROM locations ORDER BY id`)
	return out, err
}

// Companies returns all companies
func (r *referenceRepo) Companies(ctx context.Context) ([]*models.Company, error) {
	out := []*models.Company{}
	err := r.db.X.SelectContext(ctx, &out, `SELECT id, name, slug FROM companies ORDER BY id`)
	return out, err
}

// Persons returns the persons with the given ids, or all when ids is nil
func (r *referenceRepo) Persons(ctx context.Context, ids []int64) ([]*models.Person, error) {
	out := []*models.Person{}
	if ids == nil {
		err := r.db.X.SelectContext(ctx, &out, `SELECT id, name, slug, user_id, is_published FROM persons ORDER BY id`)
		return out, err
	}
	err := r.db.X.SelectContext(ctx, &out,
		`SELECT id, name, slug, user_id, is_published FROM persons WHERE id = ANY($1) ORDER BY id`, pq.Array(ids))
	return out, err
}

// PersonSlug returns the slug of a person
func (r *referenceRepo) PersonSlug(ctx context.Context, id int64) (string, error) {
	return r.slug(ctx, `SELECT slug FROM persons WHERE id = $1`, id)
}

// PersonByUserID finds the person linked to a user account
func (r *referenceRepo) PersonByUserID(ctx context.Context, userID int64) (*models.Person, error) {
	var p models.Person
	err := r.db.X.GetContext(ctx, &p, `SELECT id, name, slug, user_id, is_published FROM persons WHERE user_id = $1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CreatePerson inserts a new person
func (r *referenceRepo) CreatePerson(ctx context.Context, person *models.Person) error {
	return r.db.X.QueryRowxContext(ctx,
		`INSERT INTO persons (name, slug, user_id, is_published) VALUES ($1, $2, $3, $4) RETURNING id`,
		person.Name, person.Slug, person.UserID, person.IsPublished,
	).Scan(&person.ID)
}

func (r *referenceRepo) slug(ctx context.Context, query string, id int64) (string, error) {
	var slug string
	err := r.db.X.GetContext(ctx, &slug, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", models.ErrNotFound
	}
	return slug, err
}

func (r *referenceRepo) labels(ctx context.Context, query string, ids []int64) ([]string, error) {
	out := []string{}
	if len(ids) == 0 {
		return out, nil
	}
	err := r.db.X.SelectContext(ctx, &out, query, pq.Array(ids))
	return out, err
}
