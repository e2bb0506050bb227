package models

// Widget kinds
const (
	WidgetSpecific = "specific"
	WidgetRelated  = "related"
)

// DefaultLayout is used when no other layout applies
const DefaultLayout = "default"

// AuthorLayout is preferred when exactly one author is selected
const AuthorLayout = "by_author"

// RelatedWidget is an embeddable instance configuration for related
// article lists. Empty id slices impose no constraint.
type RelatedWidget struct {
	ID                    int64   `json:"id" db:"id"`
	Kind                  string  `json:"kind" db:"kind"`
	Locale                string  `json:"locale" db:"language_code"`
	Title                 string  `json:"title" db:"title"`
	Layout                string  `json:"layout" db:"layout"`
	NumberOfArticles      int     `json:"number_of_articles" db:"number_of_articles" validate:"min=0,max=120"`
	Featured              bool    `json:"featured" db:"featured"`
	ExcludeCurrentArticle bool    `json:"exclude_current_article" db:"exclude_current_article"`
	CacheDuration         int     `json:"cache_duration" db:"cache_duration" validate:"min=0"`
	MoreButtonShown       bool    `json:"more_button_is_shown" db:"more_button_is_shown"`
	MoreButtonText        string  `json:"more_button_text" db:"more_button_text" validate:"max=255"`
	MoreButtonLink        string  `json:"more_button_link" db:"more_button_link" validate:"omitempty,max=255"`
	Icon                  string  `json:"icon,omitempty" db:"icon"`
	ImageID               *int64  `json:"image_id,omitempty" db:"image_id"`
	SectionIDs            []int64 `json:"section_ids" db:"-"`
	MediumIDs             []int64 `json:"medium_ids" db:"-"`
	AuthorIDs             []int64 `json:"author_ids" db:"-"`
	CategoryIDs           []int64 `json:"category_ids" db:"-"`
	ServiceSectionIDs     []int64 `json:"service_section_ids" db:"-"`
	ServiceIDs            []int64 `json:"service_ids" db:"-"`
	CompanyIDs            []int64 `json:"company_ids" db:"-"`
	LocationIDs           []int64 `json:"location_ids" db:"-"`
	// Curated articles, in editor order
	CuratedIDs []int64 `json:"curated_ids" db:"-"`
}
