// Package publication decides whether an article is visible to a viewer.
package publication

import (
	"time"

	"github.com/newsblog-api/internal/config"
	"github.com/newsblog-api/internal/models"
	"github.com/newsblog-api/internal/predicate"
)

// Viewer describes who is looking at content
type Viewer struct {
	Staff     bool
	Superuser bool
	// EditMode is set for in-place CMS edit and preview sessions
	EditMode bool
}

// Anonymous is a viewer without any privileges
var Anonymous = Viewer{}

// Policy evaluates liveness. Per-locale flag mode is fixed at
// construction.
type Policy struct {
	perLocale bool
}

// NewPolicy builds a policy for the install's feature flags
func NewPolicy(features config.FeatureConfig) *Policy {
	return &Policy{perLocale: features.TranslatePublished}
}

// PerLocale reports whether per-locale publish flags are in effect
func (p *Policy) PerLocale() bool {
	return p.perLocale
}

// LivePredicate matches articles live in locale at now. The time gate
// applies regardless of flag mode.
func (p *Policy) LivePredicate(locale string, now time.Time) predicate.Predicate {
	return predicate.And(
		predicate.PublishedBefore(now),
		predicate.FlagSet(predicate.FlagPublished, p.perLocale, locale),
	)
}

// PublishedInAnyLanguage matches articles live in at least one of their
// translations.
func (p *Policy) PublishedInAnyLanguage(now time.Time) predicate.Predicate {
	return predicate.And(
		predicate.PublishedBefore(now),
		predicate.FlagSetInAnyLocale(predicate.FlagPublished, p.perLocale),
	)
}

// FeaturedPredicate matches featured articles in locale
func (p *Policy) FeaturedPredicate(locale string) predicate.Predicate {
	return predicate.FlagSet(predicate.FlagFeatured, p.perLocale, locale)
}

// IsLive reports whether a is visible to the public in locale at now
func (p *Policy) IsLive(a *models.Article, locale string, now time.Time) bool {
	return p.LivePredicate(locale, now).Match(a)
}

// IsFeatured reports whether a is featured in locale
func (p *Policy) IsFeatured(a *models.Article, locale string) bool {
	return p.FeaturedPredicate(locale).Match(a)
}

// IsFuture reports whether a is flagged published but scheduled later
func (p *Policy) IsFuture(a *models.Article, locale string, now time.Time) bool {
	return predicate.FlagSet(predicate.FlagPublished, p.perLocale, locale).Match(a) &&
		a.PublishingDate.After(now)
}

// VisibleToEditor reports whether v bypasses the liveness gate
func (p *Policy) VisibleToEditor(v Viewer) bool {
	return v.Staff || v.Superuser || v.EditMode
}

// CanSee combines the editor bypass with liveness
func (p *Policy) CanSee(a *models.Article, locale string, now time.Time, v Viewer) bool {
	return p.VisibleToEditor(v) || p.IsLive(a, locale, now)
}

// VisiblePredicate is the query form of CanSee
func (p *Policy) VisiblePredicate(locale string, now time.Time, v Viewer) predicate.Predicate {
	if p.VisibleToEditor(v) {
		return predicate.All()
	}
	return p.LivePredicate(locale, now)
}
