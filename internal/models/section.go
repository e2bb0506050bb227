package models

import (
	"strings"
	"time"
)

// DefaultNamespace is the reserved section that always exists.
const DefaultNamespace = "newsblog"

// PermalinkType encodes which URL components identify an article.
// Each character selects one part: y(ear), m(onth), d(ay), i(d), s(lug).
type PermalinkType string

const (
	PermalinkSlug          PermalinkType = "s"
	PermalinkYearSlug      PermalinkType = "ys"
	PermalinkYearMonthSlug PermalinkType = "yms"
	PermalinkDateSlug      PermalinkType = "ymds"
	PermalinkDateID        PermalinkType = "ymdi"
)

// Has reports whether the permalink includes the given component.
func (p PermalinkType) Has(part byte) bool {
	return strings.IndexByte(string(p), part) >= 0
}

// NonPermalinkHandling tells callers what to do when a request path
// resolves an article but is not its canonical URL.
type NonPermalinkHandling int

const (
	HandlingServe    NonPermalinkHandling = 200
	HandlingFound    NonPermalinkHandling = 302
	HandlingMoved    NonPermalinkHandling = 301
	HandlingNotFound NonPermalinkHandling = 404
)

// ValidHandlings lists the accepted non-permalink handling codes
var ValidHandlings = map[NonPermalinkHandling]bool{
	HandlingServe:    true,
	HandlingFound:    true,
	HandlingMoved:    true,
	HandlingNotFound: true,
}

// ValidPermalinkTypes lists the accepted permalink styles
var ValidPermalinkTypes = map[PermalinkType]bool{
	PermalinkSlug:          true,
	PermalinkYearSlug:      true,
	PermalinkYearMonthSlug: true,
	PermalinkDateSlug:      true,
	PermalinkDateID:        true,
}

// Section is a tenant-scoped configuration partitioning articles.
// The namespace is unique and never changes after creation.
type Section struct {
	ID                     int64                `json:"id" db:"id"`
	Namespace              string               `json:"namespace" db:"namespace"`
	Title                  string               `json:"title" db:"title"`
	PermalinkType          PermalinkType        `json:"permalink_type" db:"permalink_type"`
	NonPermalinkHandling   NonPermalinkHandling `json:"non_permalink_handling" db:"non_permalink_handling"`
	PaginateBy             int                  `json:"paginate_by" db:"paginate_by"`
	PaginationPagesStart   int                  `json:"pagination_pages_start" db:"pagination_pages_start"`
	PaginationPagesVisible int                  `json:"pagination_pages_visible" db:"pagination_pages_visible"`
	ExcludeFeatured        int                  `json:"exclude_featured" db:"exclude_featured"`
	TemplatePrefix         string               `json:"template_prefix,omitempty" db:"template_prefix"`
	CreateAuthors          bool                 `json:"create_authors" db:"create_authors"`
	SearchIndexed          bool                 `json:"search_indexed" db:"search_indexed"`
	ShowInListing          bool                 `json:"show_in_listing" db:"show_in_listing"`
	ShowInRelated          bool                 `json:"show_in_related" db:"show_in_related"`
	ShowInSpecific         bool                 `json:"show_in_specific" db:"show_in_specific"`
	AllowPost              bool                 `json:"allow_post" db:"allow_post"`
	ShowLogo               bool                 `json:"show_logo" db:"show_logo"`
	DefaultPublished       bool                 `json:"default_published" db:"default_published"`
	CreatedAt              time.Time            `json:"created_at" db:"created_at"`
}

// IsDefault reports whether this is the reserved default section
func (s *Section) IsDefault() bool {
	return s.Namespace == DefaultNamespace
}

// PageSize returns the listing page size, falling back to 10
func (s *Section) PageSize() int {
	if s.PaginateBy <= 0 {
		return 10
	}
	return s.PaginateBy
}

// NewDefaultSection returns the settings used when the reserved
// default section is created on first start.
func NewDefaultSection() *Section {
	return &Section{
		Namespace:              DefaultNamespace,
		Title:                  "News",
		PermalinkType:          PermalinkDateSlug,
		NonPermalinkHandling:   HandlingFound,
		PaginateBy:             5,
		PaginationPagesStart:   10,
		PaginationPagesVisible: 4,
		CreateAuthors:          true,
		SearchIndexed:          true,
		ShowInListing:          true,
		ShowInRelated:          true,
		ShowInSpecific:         true,
	}
}

// SectionFlag names a boolean participation flag on a section
type SectionFlag string

const (
	FlagShowInListing  SectionFlag = "show_in_listing"
	FlagShowInRelated  SectionFlag = "show_in_related"
	FlagShowInSpecific SectionFlag = "show_in_specific"
	FlagSearchIndexed  SectionFlag = "search_indexed"
)

// HasFlag reports the value of flag on s
func (s *Section) HasFlag(flag SectionFlag) bool {
	switch flag {
	case FlagShowInListing:
		return s.ShowInListing
	case FlagShowInRelated:
		return s.ShowInRelated
	case FlagShowInSpecific:
		return s.ShowInSpecific
	case FlagSearchIndexed:
		return s.SearchIndexed
	}
	return false
}
