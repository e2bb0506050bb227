package predicate

import (
	"sort"

	"github.com/newsblog-api/internal/models"
)

// Order is a deterministic article ordering. Every order ends with the
// primary key so pages are reproducible.
type Order int

const (
	// Newest puts the most recent publishing date first
	Newest Order = iota
	// Oldest puts the earliest publishing date first
	Oldest
)

// SQL returns the ORDER BY expression for o
func (o Order) SQL() string {
	if o == Oldest {
		return ArticleAlias + ".publishing_date ASC, " + ArticleAlias + ".id ASC"
	}
	return ArticleAlias + ".publishing_date DESC, " + ArticleAlias + ".id DESC"
}

// Less reports whether x sorts before y
func (o Order) Less(x, y *models.Article) bool {
	if !x.PublishingDate.Equal(y.PublishingDate) {
		if o == Oldest {
			return x.PublishingDate.Before(y.PublishingDate)
		}
		return x.PublishingDate.After(y.PublishingDate)
	}
	if o == Oldest {
		return x.ID < y.ID
	}
	return x.ID > y.ID
}

// Sort orders articles in place
func (o Order) Sort(articles []*models.Article) {
	sort.SliceStable(articles, func(i, j int) bool {
		return o.Less(articles[i], articles[j])
	})
}

// Query is a filtered, ordered, optionally paginated article read
type Query struct {
	Where  Predicate
	Order  Order
	Limit  int // 0 means no limit
	Offset int
}

// Apply runs q over an in-memory slice
func (q Query) Apply(articles []*models.Article) []*models.Article {
	where := q.Where
	if where == nil {
		where = All()
	}
	out := make([]*models.Article, 0, len(articles))
	for _, a := range articles {
		if where.Match(a) {
			out = append(out, a)
		}
	}
	q.Order.Sort(out)
	if q.Offset > 0 {
		if q.Offset >= len(out) {
			return []*models.Article{}
		}
		out = out[q.Offset:]
	}
	if q.Limit > 0 && q.Limit < len(out) {
		out = out[:q.Limit]
	}
	return out
}
