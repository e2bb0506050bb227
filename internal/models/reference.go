package models

import "strconv"

// Reference is the common shape of a selectable reference entity, used
// for choice lists and facet output.
type Reference struct {
	ID    int64             `json:"id"`
	Label string            `json:"label"`
	Slug  string            `json:"slug,omitempty"`
	Attrs map[string]string `json:"-"`
}

// Medium classifies an article (press release, interview, ...)
type Medium struct {
	ID       int64  `json:"id" db:"id"`
	Title    string `json:"title" db:"title"`
	Slug     string `json:"slug" db:"slug"`
	Position int    `json:"position" db:"position"`
}

// Reference converts the medium for choice lists
func (m *Medium) Reference() Reference {
	return Reference{ID: m.ID, Label: m.Title, Slug: m.Slug, Attrs: map[string]string{
		"title":    m.Title,
		"slug":     m.Slug,
		"position": strconv.Itoa(m.Position),
	}}
}

// Category is a tree of topics; ParentID is nil at the root
type Category struct {
	ID       int64  `json:"id" db:"id"`
	Name     string `json:"name" db:"name"`
	Slug     string `json:"slug" db:"slug"`
	ParentID *int64 `json:"parent_id,omitempty" db:"parent_id"`
}

// Reference converts the category for choice lists
func (c *Category) Reference() Reference {
	attrs := map[string]string{"name": c.Name, "slug": c.Slug}
	if c.ParentID != nil {
		attrs["parent_id"] = strconv.FormatInt(*c.ParentID, 10)
	}
	return Reference{ID: c.ID, Label: c.Name, Slug: c.Slug, Attrs: attrs}
}

// ServiceSection groups services
type ServiceSection struct {
	ID    int64  `json:"id" db:"id"`
	Title string `json:"title" db:"title"`
	Slug  string `json:"slug" db:"slug"`
}

// Reference converts the service section for choice lists
func (s *ServiceSection) Reference() Reference {
	return Reference{ID: s.ID, Label: s.Title, Slug: s.Slug, Attrs: map[string]string{"title": s.Title, "slug": s.Slug}}
}

// Service is an offering that articles may be tagged with
type Service struct {
	ID         int64   `json:"id" db:"id"`
	Title      string  `json:"title" db:"title"`
	Slug       string  `json:"slug" db:"slug"`
	SectionIDs []int64 `json:"section_ids,omitempty" db:"-"`
}

// Reference converts the service for choice lists
func (s *Service) Reference() Reference {
	return Reference{ID: s.ID, Label: s.Title, Slug: s.Slug, Attrs: map[string]string{"title": s.Title, "slug": s.Slug}}
}

// Location is a place an article relates to
type Location struct {
	ID   int64  `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
	Slug string `json:"slug" db:"slug"`
}

// Reference converts the location for choice lists
func (l *Location) Reference() Reference {
	return Reference{ID: l.ID, Label: l.Name, Slug: l.Slug, Attrs: map[string]string{"name": l.Name, "slug": l.Slug}}
}

// Company is only available when the companies collaborator is installed
type Company struct {
	ID   int64  `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
	Slug string `json:"slug" db:"slug"`
}

// Reference converts the company for choice lists
func (c *Company) Reference() Reference {
	return Reference{ID: c.ID, Label: c.Name, Slug: c.Slug, Attrs: map[string]string{"name": c.Name, "slug": c.Slug}}
}

// Person is an article author
type Person struct {
	ID          int64  `json:"id" db:"id"`
	Name        string `json:"name" db:"name"`
	Slug        string `json:"slug" db:"slug"`
	UserID      *int64 `json:"user_id,omitempty" db:"user_id"`
	IsPublished bool   `json:"is_published" db:"is_published"`
}

// Reference converts the person for choice lists
func (p *Person) Reference() Reference {
	return Reference{ID: p.ID, Label: p.Name, Slug: p.Slug, Attrs: map[string]string{"name": p.Name, "slug": p.Slug}}
}

// Feed is a syndication target; only its id is used here
type Feed struct {
	ID    int64  `json:"id" db:"id"`
	Title string `json:"title" db:"title"`
}

// Count pairs a reference with a number of matching articles
type Count struct {
	Reference
	Count int `json:"count"`
}

// ArchiveMonth is one entry of a month archive
type ArchiveMonth struct {
	Year  int    `json:"year"`
	Month int    `json:"month"`
	Label string `json:"item"`
	Count int    `json:"count"`
}
