package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/newsblog-api/internal/database"
	"github.com/newsblog-api/internal/models"
	"github.com/newsblog-api/internal/predicate"
)

const articleColumns = `a.id, a.section_id, a.publishing_date, a.is_published, a.is_featured,
	a.author_id, a.author_2_id, a.author_3_id, a.owner_id, a.medium_id,
	a.featured_image_id, a.share_image_id, a.logo_image_id, a.layout, a.canonical_url,
	a.hide_authors, a.show_on_sitemap, a.noindex, a.nofollow, a.custom_fields,
	a.created_at, a.updated_at`

const translationColumns = `article_id, language_code, title, slug, lead_in, content,
	meta_title, meta_description, meta_keywords, search_data, read_time,
	is_published_trans, is_featured_trans, author_trans_id, author_2_trans_id, author_3_trans_id`

// articleRepo is the concrete implementation of ArticleRepository
type articleRepo struct {
	db *database.DB
}

// NewArticleRepo creates a new article repository
func NewArticleRepo(db *database.DB) ArticleRepository {
	return &articleRepo{db: db}
}

// GetByID retrieves an article by ID
func (r *articleRepo) GetByID(ctx context.Context, id int64) (*models.Article, error) {
	var article models.Article
	err := r.db.X.GetContext(ctx, &article, `SELECT `+articleColumns+` FROM articles a WHERE a.id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	out := []*models.Article{&article}
	if err := r.hydrate(ctx, out); err != nil {
		return nil, err
	}
	return &article, nil
}

// GetByIDs retrieves articles by ID; missing ids are skipped and order is
// not preserved
func (r *articleRepo) GetByIDs(ctx context.Context, ids []int64) ([]*models.Article, error) {
	if len(ids) == 0 {
		return []*models.Article{}, nil
	}
	return r.Find(ctx, predicate.Query{Where: predicate.IDIn(ids...)})
}

// GetBySlug resolves a translated slug within a section
func (r *articleRepo) GetBySlug(ctx context.Context, sectionID int64, slug string, locales []string) (*models.Article, error) {
	for _, locale := range locales {
		var id int64
		err := r.db.X.GetContext(ctx, &id, `
			SELECT a.id FROM articles a
			JOIN article_translations t ON t.article_id = a.id
			WHERE a.section_id = $1 AND t.language_code = $2 AND t.slug = $3
		`, sectionID, locale, slug)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return r.GetByID(ctx, id)
	}
	return nil, models.ErrNotFound
}

// Find runs a filtered, ordered query
func (r *articleRepo) Find(ctx context.Context, q predicate.Query) ([]*models.Article, error) {
	where := q.Where
	if where == nil {
		where = predicate.All()
	}
	if predicate.IsNone(where) {
		return []*models.Article{}, nil
	}

	clause, args := predicate.Render(where)
	query := `SELECT ` + articleColumns + ` FROM articles a WHERE ` + clause + ` ORDER BY ` + q.Order.SQL()
	if q.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, q.Limit)
	}
	if q.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, q.Offset)
	}

	articles := []*models.Article{}
	if err := r.db.X.SelectContext(ctx, &articles, r.db.X.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to query articles: %w", err)
	}
	if err := r.hydrate(ctx, articles); err != nil {
		return nil, err
	}
	return articles, nil
}

// Count returns the number of articles matching where
func (r *articleRepo) Count(ctx context.Context, where predicate.Predicate) (int, error) {
	if predicate.IsNone(where) {
		return 0, nil
	}
	clause, args := predicate.RenderDollar(where)
	var count int
	err := r.db.X.GetContext(ctx, &count, `SELECT COUNT(*) FROM articles a WHERE `+clause, args...)
	return count, err
}

// Save inserts or updates an article with its translations and links
func (r *articleRepo) Save(ctx context.Context, article *models.Article) error {
	now := time.Now()
	article.UpdatedAt = now
	if article.CustomFields == nil {
		article.CustomFields = models.JSONMap{}
	}

	return r.db.InTx(ctx, func(tx *sqlx.Tx) error {
		if article.ID == 0 {
			article.CreatedAt = now
			query, args, err := sqlx.Named(insertArticleSQL, article)
			if err != nil {
				return err
			}
			if err := tx.QueryRowxContext(ctx, tx.Rebind(query), args...).Scan(&article.ID); err != nil {
				return fmt.Errorf("failed to insert article: %w", err)
			}
		} else {
			res, err := tx.NamedExecContext(ctx, updateArticleSQL, article)
			if err != nil {
				return fmt.Errorf("failed to update article: %w", err)
			}
			if n, _ := res.RowsAffected(); n == 0 {
				return models.ErrNotFound
			}
		}

		for locale, t := range article.Translations {
			t.ArticleID = article.ID
			t.Locale = locale
			if _, err := tx.NamedExecContext(ctx, upsertTranslationSQL, t); err != nil {
				return fmt.Errorf("failed to save %s translation: %w", locale, err)
			}
		}

		for _, rel := range models.Relations {
			table, column := predicate.RelationTable(rel)
			if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE article_id = $1`, article.ID); err != nil {
				return err
			}
			ids := dedupe(article.RelationIDs(rel))
			if len(ids) == 0 {
				continue
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO `+table+` (article_id, `+column+`) SELECT $1, unnest($2::bigint[])`,
				article.ID, pq.Array(ids),
			); err != nil {
				return fmt.Errorf("failed to link %s: %w", rel, err)
			}
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM article_related WHERE article_id = $1`, article.ID); err != nil {
			return err
		}
		if related := dedupe(article.RelatedIDs); len(related) > 0 {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO article_related (article_id, related_id, position)
				SELECT $1, r.id, r.ord FROM unnest($2::bigint[]) WITH ORDINALITY AS r(id, ord)
			`, article.ID, pq.Array(related)); err != nil {
				return fmt.Errorf("failed to save related articles: %w", err)
			}
		}
		return nil
	})
}

// CountByRelation counts matching articles per linked id
func (r *articleRepo) CountByRelation(ctx context.Context, where predicate.Predicate, rel models.Relation) (map[int64]int, error) {
	out := map[int64]int{}
	if predicate.IsNone(where) {
		return out, nil
	}
	table, column := predicate.RelationTable(rel)
	clause, args := predicate.RenderDollar(where)
	query := fmt.Sprintf(`
		SELECT lk.%[2]s AS id, COUNT(*) AS n
		FROM articles a JOIN %[1]s lk ON lk.article_id = a.id
		WHERE %[3]s
		GROUP BY lk.%[2]s
	`, table, column, clause)
	return r.groupCounts(ctx, query, args)
}

// CountByAuthor counts matching articles per primary author
func (r *articleRepo) CountByAuthor(ctx context.Context, where predicate.Predicate, translated bool, locale string) (map[int64]int, error) {
	if predicate.IsNone(where) {
		return map[int64]int{}, nil
	}
	clause, args := predicate.Render(where)
	var query string
	if translated {
		query = `
			SELECT ta.author_trans_id AS id, COUNT(*) AS n
			FROM articles a JOIN article_translations ta ON ta.article_id = a.id AND ta.language_code = ?
			WHERE ta.author_trans_id IS NOT NULL AND ` + clause + `
			GROUP BY ta.author_trans_id`
		args = append([]interface{}{locale}, args...)
	} else {
		query = `
			SELECT a.author_id AS id, COUNT(*) AS n
			FROM articles a
			WHERE a.author_id IS NOT NULL AND ` + clause + `
			GROUP BY a.author_id`
	}
	return r.groupCounts(ctx, r.db.X.Rebind(query), args)
}

// CountByMonth buckets matching articles by publishing month
func (r *articleRepo) CountByMonth(ctx context.Context, where predicate.Predicate) ([]models.ArchiveMonth, error) {
	months := []models.ArchiveMonth{}
	if predicate.IsNone(where) {
		return months, nil
	}
	clause, args := predicate.RenderDollar(where)
	rows, err := r.db.X.QueryxContext(ctx, `
		SELECT EXTRACT(YEAR FROM a.publishing_date)::int AS year,
			EXTRACT(MONTH FROM a.publishing_date)::int AS month,
			COUNT(*) AS n
		FROM articles a
		WHERE `+clause+`
		GROUP BY 1, 2
		ORDER BY 1 DESC, 2 DESC
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var m models.ArchiveMonth
		if err := rows.Scan(&m.Year, &m.Month, &m.Count); err != nil {
			return nil, err
		}
		m.Label = monthLabel(m.Year, m.Month)
		months = append(months, m)
	}
	return months, rows.Err()
}

func (r *articleRepo) groupCounts(ctx context.Context, query string, args []interface{}) (map[int64]int, error) {
	rows, err := r.db.X.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[int64]int{}
	for rows.Next() {
		var id int64
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		out[id] = n
	}
	return out, rows.Err()
}

type linkRow struct {
	ArticleID int64 `db:"article_id"`
	RefID     int64 `db:"ref_id"`
}

// hydrate loads translations, relation links and curated lists with one
// query per table
func (r *articleRepo) hydrate(ctx context.Context, articles []*models.Article) error {
	if len(articles) == 0 {
		return nil
	}
	ids := make([]int64, len(articles))
	byID := make(map[int64]*models.Article, len(articles))
	for i, a := range articles {
		ids[i] = a.ID
		byID[a.ID] = a
		a.Translations = map[string]*models.Translation{}
	}

	var translations []*models.Translation
	if err := r.db.X.SelectContext(ctx, &translations,
		`SELECT `+translationColumns+` FROM article_translations WHERE article_id = ANY($1)`, pq.Array(ids),
	); err != nil {
		return fmt.Errorf("failed to load translations: %w", err)
	}
	for _, t := range translations {
		if a, ok := byID[t.ArticleID]; ok {
			a.Translations[t.Locale] = t
		}
	}

	for _, rel := range models.Relations {
		table, column := predicate.RelationTable(rel)
		var links []linkRow
		if err := r.db.X.SelectContext(ctx, &links,
			`SELECT article_id, `+column+` AS ref_id FROM `+table+` WHERE article_id = ANY($1) ORDER BY `+column,
			pq.Array(ids),
		); err != nil {
			return fmt.Errorf("failed to load %s: %w", rel, err)
		}
		grouped := map[int64][]int64{}
		for _, l := range links {
			grouped[l.ArticleID] = append(grouped[l.ArticleID], l.RefID)
		}
		for id, refs := range grouped {
			byID[id].SetRelationIDs(rel, refs)
		}
	}

	var related []linkRow
	if err := r.db.X.SelectContext(ctx, &related,
		`SELECT article_id, related_id AS ref_id FROM article_related WHERE article_id = ANY($1) ORDER BY article_id, position`,
		pq.Array(ids),
	); err != nil {
		return fmt.Errorf("failed to load related articles: %w", err)
	}
	for _, l := range related {
		a := byID[l.ArticleID]
		a.RelatedIDs = append(a.RelatedIDs, l.RefID)
	}
	return nil
}

// monthLabel formats an archive bucket, e.g. "June 2024"
func monthLabel(year, month int) string {
	return fmt.Sprintf("%s %d", time.Month(month), year)
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

const insertArticleSQL = `
	INSERT INTO articles (section_id, publishing_date, is_published, is_featured,
		author_id, author_2_id, author_3_id, owner_id, medium_id,
		featured_image_id, share_image_id, logo_image_id, layout, canonical_url,
		hide_authors, show_on_sitemap, noindex, nofollow, custom_fields, created_at, updated_at)
	VALUES (:section_id, :publishing_date, :is_published, :is_featured,
		:author_id, :author_2_id, :author_3_id, :owner_id, :medium_id,
		:featured_image_id, :share_image_id, :logo_image_id, :layout, :canonical_url,
		:hide_authors, :show_on_sitemap, :noindex, :nofollow, :custom_fields, :created_at, :updated_at)
	RETURNING id`

const updateArticleSQL = `
	UPDATE articles SET
		section_id = :section_id, publishing_date = :publishing_date,
		is_published = :is_published, is_featured = :is_featured,
		author_id = :author_id, author_2_id = :author_2_id, author_3_id = :author_3_id,
		owner_id = :owner_id, medium_id = :medium_id,
		featured_image_id = :featured_image_id, share_image_id = :share_image_id,
		logo_image_id = :logo_image_id, layout = :layout, canonical_url = :canonical_url,
		hide_authors = :hide_authors, show_on_sitemap = :show_on_sitemap,
		noindex = :noindex, nofollow = :nofollow, custom_fields = :custom_fields,
		updated_at = :updated_at
	WHERE id = :id`

const upsertTranslationSQL = `
	INSERT INTO article_translations (` + translationColumns + `)
	VALUES (:article_id, :language_code, :title, :slug, :lead_in, :content,
		:meta_title, :meta_description, :meta_keywords, :search_data, :read_time,
		:is_published_trans, :is_featured_trans, :author_trans_id, :author_2_trans_id, :author_3_trans_id)
	ON CONFLICT (article_id, language_code) DO UPDATE SET
		title = EXCLUDED.title, slug = EXCLUDED.slug, lead_in = EXCLUDED.lead_in,
		content = EXCLUDED.content, meta_title = EXCLUDED.meta_title,
		meta_description = EXCLUDED.meta_description, meta_keywords = EXCLUDED.meta_keywords,
		search_data = EXCLUDED.search_data, read_time = EXCLUDED.read_time,
		is_published_trans = EXCLUDED.is_published_trans, is_featured_trans = EXCLUDED.is_featured_trans,
		author_trans_id = EXCLUDED.author_trans_id, author_2_trans_id = EXCLUDED.author_2_trans_id,
		author_3_trans_id = EXCLUDED.author_3_trans_id`
