package predicate

import (
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/newsblog-api/internal/models"
)

// ArticleAlias is the alias the rendered SQL expects for the articles table
const ArticleAlias = "a"

var relationTables = map[models.Relation][2]string{
	models.RelCategories: {"article_categories", "category_id"},
	models.RelServices:   {"article_services", "service_id"},
	models.RelLocations:  {"article_locations", "location_id"},
	models.RelCompanies:  {"article_companies", "company_id"},
	models.RelFeeds:      {"article_feeds", "feed_id"},
}

// RelationTable returns the link table and its reference column for rel
func RelationTable(rel models.Relation) (table, column string) {
	t := relationTables[rel]
	return t[0], t[1]
}

var authorColumns = [3]string{"author_id", "author_2_id", "author_3_id"}
var authorTransColumns = [3]string{"author_trans_id", "author_2_trans_id", "author_3_trans_id"}

// Where accumulates a SQL boolean expression with "?" placeholders
type Where struct {
	sb   strings.Builder
	args []interface{}
}

func (w *Where) write(s string) {
	w.sb.WriteString(s)
}

func (w *Where) arg(v interface{}) {
	w.sb.WriteByte('?')
	w.args = append(w.args, v)
}

// Render turns p into a SQL expression using "?" placeholders
func Render(p Predicate) (string, []interface{}) {
	w := &Where{}
	p.render(w)
	return w.sb.String(), w.args
}

// RenderDollar renders p with PostgreSQL $n placeholders, numbered from 1
func RenderDollar(p Predicate) (string, []interface{}) {
	clause, args := Render(p)
	return sqlx.Rebind(sqlx.DOLLAR, clause), args
}

func (allPred) render(w *Where)  { w.write("TRUE") }
func (nonePred) render(w *Where) { w.write("FALSE") }

func (p andPred) render(w *Where) { renderJoined(w, p.parts, " AND ") }
func (p orPred) render(w *Where)  { renderJoined(w, p.parts, " OR ") }

func renderJoined(w *Where, parts []Predicate, sep string) {
	w.write("(")
	for i, part := range parts {
		if i > 0 {
			w.write(sep)
		}
		part.render(w)
	}
	w.write(")")
}

func (p notPred) render(w *Where) {
	w.write("NOT (")
	p.inner.render(w)
	w.write(")")
}

func (p idIn) render(w *Where) {
	w.write(ArticleAlias + ".id = ANY(")
	w.arg(pq.Array(p.ids))
	w.write(")")
}

func (p sectionIn) render(w *Where) {
	w.write(ArticleAlias + ".section_id = ANY(")
	w.arg(pq.Array(p.ids))
	w.write(")")
}

func (p mediumIn) render(w *Where) {
	w.write(ArticleAlias + ".medium_id = ANY(")
	w.arg(pq.Array(p.ids))
	w.write(")")
}

func (mediumUnset) render(w *Where) {
	w.write(ArticleAlias + ".medium_id IS NULL")
}

func (p authorIn) render(w *Where) {
	cols := authorColumns
	if p.translated {
		cols = authorTransColumns
		w.write("EXISTS (SELECT 1 FROM article_translations tr WHERE tr.article_id = " + ArticleAlias + ".id AND tr.language_code = ")
		w.arg(p.locale)
		w.write(" AND ")
	}
	w.write("(")
	for i, s := range p.slots {
		if i > 0 {
			w.write(" OR ")
		}
		if p.translated {
			w.write("tr." + cols[s] + " = ANY(")
		} else {
			w.write(ArticleAlias + "." + cols[s] + " = ANY(")
		}
		w.arg(pq.Array(p.ids))
		w.write(")")
	}
	w.write(")")
	if p.translated {
		w.write(")")
	}
}

func (p relationIn) render(w *Where) {
	t := relationTables[p.rel]
	w.write(fmt.Sprintf("EXISTS (SELECT 1 FROM %s l WHERE l.article_id = %s.id AND l.%s = ANY(", t[0], ArticleAlias, t[1]))
	w.arg(pq.Array(p.ids))
	w.write("))")
}

func (p publishedBefore) render(w *Where) {
	w.write(ArticleAlias + ".publishing_date <= ")
	w.arg(p.now)
}

func (p dateRange) render(w *Where) {
	w.write("(" + ArticleAlias + ".publishing_date >= ")
	w.arg(p.from)
	w.write(" AND " + ArticleAlias + ".publishing_date < ")
	w.arg(p.to)
	w.write(")")
}

func (p flagPred) render(w *Where) {
	if !p.perLocale {
		if p.flag == FlagFeatured {
			w.write(ArticleAlias + ".is_featured")
		} else {
			w.write(ArticleAlias + ".is_published")
		}
		return
	}
	col := "tr.is_published_trans"
	if p.flag == FlagFeatured {
		col = "tr.is_featured_trans"
	}
	w.write("EXISTS (SELECT 1 FROM article_translations tr WHERE tr.article_id = " + ArticleAlias + ".id AND " + col)
	if !p.anyLocale {
		w.write(" AND tr.language_code = ")
		w.arg(p.locale)
	}
	w.write(")")
}

func (p translatedIn) render(w *Where) {
	w.write("EXISTS (SELECT 1 FROM article_translations tr WHERE tr.article_id = " + ArticleAlias + ".id AND tr.language_code = ANY(")
	w.arg(pq.Array(p.locales))
	w.write("))")
}

func (p contains) render(w *Where) {
	pattern := "%" + escapeLike(p.term) + "%"
	w.write("EXISTS (SELECT 1 FROM article_translations tr WHERE tr.article_id = " + ArticleAlias + ".id AND tr.language_code = ")
	w.arg(p.locale)
	w.write(" AND (")
	for i, f := range p.fields {
		if i > 0 {
			w.write(" OR ")
		}
		w.write("tr." + string(f) + " ILIKE ")
		w.arg(pattern)
	}
	w.write("))")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
