package resolver

import (
	"github.com/newsblog-api/internal/config"
	"github.com/newsblog-api/internal/models"
)

// LayoutCatalog reports which layout variants the renderer can serve
type LayoutCatalog interface {
	Has(kind, layout string) bool
}

// LayoutSet is a LayoutCatalog backed by configuration
type LayoutSet map[string]map[string]bool

// NewLayoutSet indexes the configured layouts per widget kind
func NewLayoutSet(cfg config.LayoutConfig) LayoutSet {
	set := LayoutSet{
		models.WidgetRelated:  {},
		models.WidgetSpecific: {},
	}
	for _, l := range cfg.Related {
		set[models.WidgetRelated][l] = true
	}
	for _, l := range cfg.Specific {
		set[models.WidgetSpecific][l] = true
	}
	return set
}

// Has implements LayoutCatalog
func (s LayoutSet) Has(kind, layout string) bool {
	return s[kind][layout]
}

// chooseLayout prefers the instance layout, then the author spotlight
// when exactly one author is selected, then the default. Unknown
// variants fall back to the default.
func chooseLayout(catalog LayoutCatalog, kind, layout string, singleAuthor bool) (string, bool) {
	if (layout == "" || layout == models.DefaultLayout) && singleAuthor && kind == models.WidgetRelated {
		layout = models.AuthorLayout
	}
	if layout == "" {
		return models.DefaultLayout, false
	}
	if catalog == nil || !catalog.Has(kind, layout) {
		return models.DefaultLayout, layout != models.DefaultLayout
	}
	return layout, false
}
