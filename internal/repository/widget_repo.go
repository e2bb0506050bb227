package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/newsblog-api/internal/database"
	"github.com/newsblog-api/internal/models"
)

const widgetColumns = `id, kind, language_code, title, layout, number_of_articles, featured,
	exclude_current_article, cache_duration, more_button_is_shown, more_button_text,
	more_button_link, icon, image_id`

// Selection dimensions stored in related_widget_selections
const (
	selSection        = "section"
	selMedium         = "medium"
	selAuthor         = "author"
	selCategory       = "category"
	selServiceSection = "service_section"
	selService        = "service"
	selCompany        = "company"
	selLocation       = "location"
	selCurated        = "curated"
)

// widgetSelections maps each stored dimension to its widget field
func widgetSelections(w *models.RelatedWidget) map[string]*[]int64 {
	return map[string]*[]int64{
		selSection:        &w.SectionIDs,
		selMedium:         &w.MediumIDs,
		selAuthor:         &w.AuthorIDs,
		selCategory:       &w.CategoryIDs,
		selServiceSection: &w.ServiceSectionIDs,
		selService:        &w.ServiceIDs,
		selCompany:        &w.CompanyIDs,
		selLocation:       &w.LocationIDs,
		selCurated:        &w.CuratedIDs,
	}
}

// widgetRepo is the concrete implementation of WidgetRepository
type widgetRepo struct {
	db *database.DB
}

// NewWidgetRepo creates a new widget repository
func NewWidgetRepo(db *database.DB) WidgetRepository {
	return &widgetRepo{db: db}
}

// GetByID loads a widget and its dimension selections
func (r *widgetRepo) GetByID(ctx context.Context, id int64) (*models.RelatedWidget, error) {
	var w models.RelatedWidget
	err := r.db.X.GetContext(ctx, &w, `SELECT `+widgetColumns+` FROM related_widgets WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var rows []struct {
		Dimension string `db:"dimension"`
		ValueID   int64  `db:"value_id"`
	}
	if err := r.db.X.SelectContext(ctx, &rows, `
		SELECT dimension, value_id FROM related_widget_selections
		WHERE widget_id = $1
		ORDER BY dimension, position, value_id
	`, id); err != nil {
		return nil, fmt.Errorf("failed to load widget selections: %w", err)
	}

	fields := widgetSelections(&w)
	for _, row := range rows {
		if f, ok := fields[row.Dimension]; ok {
			*f = append(*f, row.ValueID)
		}
	}
	return &w, nil
}

// Save inserts or updates a widget and replaces its selections
func (r *widgetRepo) Save(ctx context.Context, w *models.RelatedWidget) error {
	return r.db.InTx(ctx, func(tx *sqlx.Tx) error {
		if w.ID == 0 {
			query, args, err := sqlx.Named(`
				INSERT INTO related_widgets (kind, language_code, title, layout, number_of_articles,
					featured, exclude_current_article, cache_duration, more_button_is_shown,
					more_button_text, more_button_link, icon, image_id)
				VALUES (:kind, :language_code, :title, :layout, :number_of_articles,
					:featured, :exclude_current_article, :cache_duration, :more_button_is_shown,
					:more_button_text, :more_button_link, :icon, :image_id)
				RETURNING id`, w)
			if err != nil {
				return err
			}
			if err := tx.QueryRowxContext(ctx, tx.Rebind(query), args...).Scan(&w.ID); err != nil {
				return fmt.Errorf("failed to insert widget: %w", err)
			}
		} else {
			res, err := tx.NamedExecContext(ctx, `
				UPDATE related_widgets SET kind = :kind, language_code = :language_code,
					title = :title, layout = :layout, number_of_articles = :number_of_articles,
					featured = :featured, exclude_current_article = :exclude_current_article,
					cache_duration = :cache_duration, more_button_is_shown = :more_button_is_shown,
					more_button_text = :more_button_text, more_button_link = :more_button_link,
					icon = :icon, image_id = :image_id
				WHERE id = :id`, w)
			if err != nil {
				return fmt.Errorf("failed to update widget: %w", err)
			}
			if n, _ := res.RowsAffected(); n == 0 {
				return models.ErrNotFound
			}
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM related_widget_selections WHERE widget_id = $1`, w.ID); err != nil {
			return err
		}
		for dim, ids := range widgetSelections(w) {
			values := dedupe(*ids)
			if len(values) == 0 {
				continue
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO related_widget_selections (widget_id, dimension, value_id, position)
				SELECT $1, $2, v.id, v.ord FROM unnest($3::bigint[]) WITH ORDINALITY AS v(id, ord)
			`, w.ID, dim, pq.Array(values)); err != nil {
				return fmt.Errorf("failed to save %s selection: %w", dim, err)
			}
		}
		return nil
	})
}
