package models

import (
	"errors"
	"time"
)

// ErrNotFound is returned by repositories when a row does not exist
var ErrNotFound = errors.New("not found")

// Relation names an arbitrary-cardinality link from an article to a
// reference entity.
type Relation string

const (
	RelCategories Relation = "categories"
	RelServices   Relation = "services"
	RelLocations  Relation = "locations"
	RelCompanies  Relation = "companies"
	RelFeeds      Relation = "feeds"
)

// Relations lists every link kind in a stable order
var Relations = []Relation{RelCategories, RelServices, RelLocations, RelCompanies, RelFeeds}

// Translation holds the per-locale fields of an article
type Translation struct {
	ArticleID       int64  `json:"-" db:"article_id"`
	Locale          string `json:"locale" db:"language_code"`
	Title           string `json:"title" db:"title"`
	Slug            string `json:"slug" db:"slug"`
	LeadIn          string `json:"lead_in" db:"lead_in"`
	Content         string `json:"content" db:"content"`
	MetaTitle       string `json:"meta_title,omitempty" db:"meta_title"`
	MetaDescription string `json:"meta_description,omitempty" db:"meta_description"`
	MetaKeywords    string `json:"meta_keywords,omitempty" db:"meta_keywords"`
	SearchData      string `json:"-" db:"search_data"`
	ReadTime        int    `json:"read_time" db:"read_time"`
	IsPublished     bool   `json:"is_published" db:"is_published_trans"`
	IsFeatured      bool   `json:"is_featured" db:"is_featured_trans"`
	AuthorID        *int64 `json:"author_id,omitempty" db:"author_trans_id"`
	Author2ID       *int64 `json:"author_2_id,omitempty" db:"author_2_trans_id"`
	Author3ID       *int64 `json:"author_3_id,omitempty" db:"author_3_trans_id"`
}

// Article is the central catalog entity. Liveness is the combination of
// IsPublished (or the per-locale flag) and PublishingDate <= now.
type Article struct {
	ID              int64     `json:"id" db:"id"`
	SectionID       int64     `json:"section_id" db:"section_id"`
	PublishingDate  time.Time `json:"publishing_date" db:"publishing_date"`
	IsPublished     bool      `json:"is_published" db:"is_published"`
	IsFeatured      bool      `json:"is_featured" db:"is_featured"`
	AuthorID        *int64    `json:"author_id,omitempty" db:"author_id"`
	Author2ID       *int64    `json:"author_2_id,omitempty" db:"author_2_id"`
	Author3ID       *int64    `json:"author_3_id,omitempty" db:"author_3_id"`
	OwnerID         *int64    `json:"owner_id,omitempty" db:"owner_id"`
	MediumID        *int64    `json:"medium_id,omitempty" db:"medium_id"`
	FeaturedImageID *int64    `json:"featured_image_id,omitempty" db:"featured_image_id"`
	ShareImageID    *int64    `json:"share_image_id,omitempty" db:"share_image_id"`
	LogoImageID     *int64    `json:"logo_image_id,omitempty" db:"logo_image_id"`
	Layout          string    `json:"layout,omitempty" db:"layout"`
	CanonicalURL    string    `json:"canonical_url,omitempty" db:"canonical_url"`
	HideAuthors     bool      `json:"hide_authors" db:"hide_authors"`
	ShowOnSitemap   bool      `json:"show_on_sitemap" db:"show_on_sitemap"`
	NoIndex         bool      `json:"noindex" db:"noindex"`
	NoFollow        bool      `json:"nofollow" db:"nofollow"`
	CustomFields    JSONMap   `json:"custom_fields,omitempty" db:"custom_fields"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`

	// Loaded from link tables
	CategoryIDs []int64 `json:"category_ids,omitempty" db:"-"`
	ServiceIDs  []int64 `json:"service_ids,omitempty" db:"-"`
	LocationIDs []int64 `json:"location_ids,omitempty" db:"-"`
	CompanyIDs  []int64 `json:"company_ids,omitempty" db:"-"`
	FeedIDs     []int64 `json:"feed_ids,omitempty" db:"-"`
	// Curated related articles, in editor order
	RelatedIDs []int64 `json:"related_ids,omitempty" db:"-"`

	Translations map[string]*Translation `json:"translations" db:"-"`
}

// Translation returns the fields for locale, if the article has them
func (a *Article) Translation(locale string) (*Translation, bool) {
	t, ok := a.Translations[locale]
	return t, ok
}

// FirstTranslation returns the first translation found among locales
func (a *Article) FirstTranslation(locales ...string) (*Translation, bool) {
	for _, l := range locales {
		if t, ok := a.Translations[l]; ok {
			return t, true
		}
	}
	return nil, false
}

// HasAnyTranslation reports whether the article is translated into at
// least one of locales.
func (a *Article) HasAnyTranslation(locales []string) bool {
	_, ok := a.FirstTranslation(locales...)
	return ok
}

// Title returns the title in locale or an empty string
func (a *Article) Title(locale string) string {
	if t, ok := a.Translations[locale]; ok {
		return t.Title
	}
	return ""
}

// AuthorSlots returns the primary, second and third author references.
// When translated is set the per-locale slots are used.
func (a *Article) AuthorSlots(locale string, translated bool) [3]*int64 {
	if !translated {
		return [3]*int64{a.AuthorID, a.Author2ID, a.Author3ID}
	}
	t, ok := a.Translations[locale]
	if !ok {
		return [3]*int64{}
	}
	return [3]*int64{t.AuthorID, t.Author2ID, t.Author3ID}
}

// HasImage reports whether the article has a primary image
func (a *Article) HasImage() bool {
	return a.FeaturedImageID != nil
}

// RelationIDs returns the linked ids for rel
func (a *Article) RelationIDs(rel Relation) []int64 {
	switch rel {
	case RelCategories:
		return a.CategoryIDs
	case RelServices:
		return a.ServiceIDs
	case RelLocations:
		return a.LocationIDs
	case RelCompanies:
		return a.CompanyIDs
	case RelFeeds:
		return a.FeedIDs
	}
	return nil
}

// SetRelationIDs replaces the linked ids for rel
func (a *Article) SetRelationIDs(rel Relation, ids []int64) {
	switch rel {
	case RelCategories:
		a.CategoryIDs = ids
	case RelServices:
		a.ServiceIDs = ids
	case RelLocations:
		a.LocationIDs = ids
	case RelCompanies:
		a.CompanyIDs = ids
	case RelFeeds:
		a.FeedIDs = ids
	}
}

// ArticleInput is the writable payload accepted by the save pipeline
type ArticleInput struct {
	SectionID      int64      `json:"section_id" validate:"required,gt=0"`
	Locale         string     `json:"locale" validate:"required,min=2,max=15"`
	Title          string     `json:"title" validate:"required,max=234"`
	Slug           string     `json:"slug" validate:"omitempty,max=255"`
	LeadIn         string     `json:"lead_in"`
	Content        string     `json:"content"`
	PublishingDate *time.Time `json:"publishing_date"`
	IsPublished    *bool      `json:"is_published"`
	IsFeatured     bool       `json:"is_featured"`
	AuthorID       *int64     `json:"author_id" validate:"omitempty,gt=0"`
	Author2ID      *int64     `json:"author_2_id" validate:"omitempty,gt=0"`
	Author3ID      *int64     `json:"author_3_id" validate:"omitempty,gt=0"`
	OwnerID        *int64     `json:"owner_id" validate:"omitempty,gt=0"`
	OwnerName      string     `json:"owner_name" validate:"max=255"`
	MediumID       *int64     `json:"medium_id" validate:"omitempty,gt=0"`
	ImageID        *int64     `json:"featured_image_id" validate:"omitempty,gt=0"`
	Layout         string     `json:"layout" validate:"omitempty,max=60"`
	CategoryIDs    []int64    `json:"category_ids" validate:"dive,gt=0"`
	ServiceIDs     []int64    `json:"service_ids" validate:"dive,gt=0"`
	LocationIDs    []int64    `json:"location_ids" validate:"dive,gt=0"`
	CompanyIDs     []int64    `json:"company_ids" validate:"dive,gt=0"`
	RelatedIDs     []int64    `json:"related_ids" validate:"dive,gt=0"`
}
