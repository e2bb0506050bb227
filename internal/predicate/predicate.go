// Package predicate provides a small algebra of conditions over articles.
// Every predicate can be evaluated in memory with Match and rendered to a
// SQL boolean expression with Render; both forms must agree.
package predicate

import (
	"strings"
	"time"

	"github.com/newsblog-api/internal/models"
)

// Predicate is a composable condition over the article catalog
type Predicate interface {
	Match(a *models.Article) bool
	render(w *Where)
}

type allPred struct{}

func (allPred) Match(*models.Article) bool { return true }

type nonePred struct{}

func (nonePred) Match(*models.Article) bool { return false }

// All matches every article
func All() Predicate { return allPred{} }

// None matches nothing
func None() Predicate { return nonePred{} }

// IsAll reports whether p places no constraint
func IsAll(p Predicate) bool {
	_, ok := p.(allPred)
	return ok
}

// IsNone reports whether p can never match
func IsNone(p Predicate) bool {
	_, ok := p.(nonePred)
	return ok
}

type andPred struct{ parts []Predicate }

func (p andPred) Match(a *models.Article) bool {
	for _, part := range p.parts {
		if !part.Match(a) {
			return false
		}
	}
	return true
}

// And joins predicates with logical AND. All parts are dropped and any
// None part collapses the result to None.
func And(parts ...Predicate) Predicate {
	out := make([]Predicate, 0, len(parts))
	for _, p := range parts {
		switch v := p.(type) {
		case nil, allPred:
			continue
		case nonePred:
			return None()
		case andPred:
			out = append(out, v.parts...)
		default:
			out = append(out, p)
		}
	}
	switch len(out) {
	case 0:
		return All()
	case 1:
		return out[0]
	}
	return andPred{parts: out}
}

type orPred struct{ parts []Predicate }

func (p orPred) Match(a *models.Article) bool {
	for _, part := range p.parts {
		if part.Match(a) {
			return true
		}
	}
	return false
}

// Or joins predicates with logical OR. An empty Or matches nothing.
func Or(parts ...Predicate) Predicate {
	out := make([]Predicate, 0, len(parts))
	for _, p := range parts {
		switch v := p.(type) {
		case nil, nonePred:
			continue
		case allPred:
			return All()
		case orPred:
			out = append(out, v.parts...)
		default:
			out = append(out, p)
		}
	}
	switch len(out) {
	case 0:
		return None()
	case 1:
		return out[0]
	}
	return orPred{parts: out}
}

type notPred struct{ inner Predicate }

func (p notPred) Match(a *models.Article) bool { return !p.inner.Match(a) }

// Not negates p
func Not(p Predicate) Predicate {
	switch v := p.(type) {
	case allPred:
		return None()
	case nonePred:
		return All()
	case notPred:
		return v.inner
	}
	return notPred{inner: p}
}

type idIn struct{ ids []int64 }

func (p idIn) Match(a *models.Article) bool { return containsID(p.ids, a.ID) }

// IDIn matches articles whose id is one of ids
func IDIn(ids ...int64) Predicate {
	if len(ids) == 0 {
		return None()
	}
	return idIn{ids: ids}
}

type sectionIn struct{ ids []int64 }

func (p sectionIn) Match(a *models.Article) bool { return containsID(p.ids, a.SectionID) }

// SectionIn matches articles owned by one of the given sections
func SectionIn(ids ...int64) Predicate {
	if len(ids) == 0 {
		return None()
	}
	return sectionIn{ids: ids}
}

type mediumIn struct{ ids []int64 }

func (p mediumIn) Match(a *models.Article) bool {
	return a.MediumID != nil && containsID(p.ids, *a.MediumID)
}

// MediumIn matches articles whose medium is one of ids
func MediumIn(ids ...int64) Predicate {
	if len(ids) == 0 {
		return None()
	}
	return mediumIn{ids: ids}
}

type mediumUnset struct{}

func (mediumUnset) Match(a *models.Article) bool { return a.MediumID == nil }

// MediumUnset matches articles without a medium
func MediumUnset() Predicate { return mediumUnset{} }

// AuthorSlot indexes the three ordered author references
type AuthorSlot int

const (
	PrimaryAuthor AuthorSlot = iota
	SecondAuthor
	ThirdAuthor
)

// AllAuthorSlots lists every slot
var AllAuthorSlots = []AuthorSlot{PrimaryAuthor, SecondAuthor, ThirdAuthor}

type authorIn struct {
	ids        []int64
	slots      []AuthorSlot
	translated bool
	locale     string
}

func (p authorIn) Match(a *models.Article) bool {
	refs := a.AuthorSlots(p.locale, p.translated)
	for _, s := range p.slots {
		if ref := refs[s]; ref != nil && containsID(p.ids, *ref) {
			return true
		}
	}
	return false
}

// AuthorIn matches articles where one of ids occupies any of slots.
// With translated set the per-locale author slots of locale are used.
func AuthorIn(ids []int64, slots []AuthorSlot, translated bool, locale string) Predicate {
	if len(ids) == 0 || len(slots) == 0 {
		return None()
	}
	return authorIn{ids: ids, slots: slots, translated: translated, locale: locale}
}

type relationIn struct {
	rel models.Relation
	ids []int64
}

func (p relationIn) Match(a *models.Article) bool {
	for _, id := range a.RelationIDs(p.rel) {
		if containsID(p.ids, id) {
			return true
		}
	}
	return false
}

// RelationIn matches articles linked to at least one of ids through rel
func RelationIn(rel models.Relation, ids ...int64) Predicate {
	if len(ids) == 0 {
		return None()
	}
	return relationIn{rel: rel, ids: ids}
}

type publishedBefore struct{ now time.Time }

func (p publishedBefore) Match(a *models.Article) bool { return !a.PublishingDate.After(p.now) }

// PublishedBefore matches articles whose publishing date is not after now
func PublishedBefore(now time.Time) Predicate { return publishedBefore{now: now} }

type dateRange struct{ from, to time.Time }

func (p dateRange) Match(a *models.Article) bool {
	return !a.PublishingDate.Before(p.from) && a.PublishingDate.Before(p.to)
}

// DateRange matches publishing dates in [from, to)
func DateRange(from, to time.Time) Predicate { return dateRange{from: from, to: to} }

// Flag names a boolean that exists both shared and per locale
type Flag int

const (
	FlagPublished Flag = iota
	FlagFeatured
)

type flagPred struct {
	flag      Flag
	perLocale bool
	locale    string
	anyLocale bool
}

func (p flagPred) Match(a *models.Article) bool {
	if !p.perLocale {
		if p.flag == FlagFeatured {
			return a.IsFeatured
		}
		return a.IsPublished
	}
	check := func(t *models.Translation) bool {
		if p.flag == FlagFeatured {
			return t.IsFeatured
		}
		return t.IsPublished
	}
	if p.anyLocale {
		for _, t := range a.Translations {
			if check(t) {
				return true
			}
		}
		return false
	}
	t, ok := a.Translation(p.locale)
	return ok && check(t)
}

// FlagSet matches articles with the flag raised. In per-locale mode the
// flag of locale is read, and a missing translation counts as false.
func FlagSet(flag Flag, perLocale bool, locale string) Predicate {
	return flagPred{flag: flag, perLocale: perLocale, locale: locale}
}

// FlagSetInAnyLocale is FlagSet over every translation of the article
func FlagSetInAnyLocale(flag Flag, perLocale bool) Predicate {
	return flagPred{flag: flag, perLocale: perLocale, anyLocale: true}
}

type translatedIn struct{ locales []string }

func (p translatedIn) Match(a *models.Article) bool { return a.HasAnyTranslation(p.locales) }

// TranslatedIn matches articles that have a translation in one of locales
func TranslatedIn(locales ...string) Predicate {
	if len(locales) == 0 {
		return None()
	}
	return translatedIn{locales: locales}
}

// TextField names a translated text column that can be searched
type TextField string

const (
	FieldTitle      TextField = "title"
	FieldLeadIn     TextField = "lead_in"
	FieldSearchData TextField = "search_data"
)

type contains struct {
	locale string
	term   string
	fields []TextField
}

func (p contains) Match(a *models.Article) bool {
	t, ok := a.Translation(p.locale)
	if !ok {
		return false
	}
	needle := strings.ToLower(p.term)
	for _, f := range p.fields {
		var hay string
		switch f {
		case FieldTitle:
			hay = t.Title
		case FieldLeadIn:
			hay = t.LeadIn
		case FieldSearchData:
			hay = t.SearchData
		}
		if strings.Contains(strings.ToLower(hay), needle) {
			return true
		}
	}
	return false
}

// Contains matches a case-insensitive substring in any of fields of the
// locale translation. An empty term matches everything.
func Contains(locale, term string, fields ...TextField) Predicate {
	if term == "" {
		return All()
	}
	if len(fields) == 0 {
		return None()
	}
	return contains{locale: locale, term: term, fields: fields}
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
