package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/newsblog-api/internal/filters"
	"github.com/newsblog-api/internal/models"
	"github.com/newsblog-api/internal/service"
	"github.com/newsblog-api/internal/validation"
	"github.com/rs/zerolog"
)

// RelatedHandler handles related article endpoints
type RelatedHandler struct {
	services *service.Services
	locales  *localeMatcher
	timeout  time.Duration
	log      zerolog.Logger
}

// NewRelatedHandler creates a new RelatedHandler
func NewRelatedHandler(services *service.Services, locales *localeMatcher, timeout time.Duration, log zerolog.Logger) *RelatedHandler {
	return &RelatedHandler{
		services: services,
		locales:  locales,
		timeout:  timeout,
		log:      log.With().Str("handler", "related").Logger(),
	}
}

// widgetRequest builds the anchor part of a widget request from
// ?article_id= or ?slug= and ?namespace=
func (h *RelatedHandler) widgetRequest(c *gin.Context) (service.WidgetRequest, bool) {
	req := service.WidgetRequest{
		Namespace: c.Query("namespace"),
		Slug:      c.Query("slug"),
		Locale:    h.locales.locale(c),
		Viewer:    viewerFrom(c),
	}
	articleID, ok := queryInt(c, "article_id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "article_id must be a positive integer"})
		return req, false
	}
	req.ArticleID = int64(articleID)
	return req, true
}

// WidgetRelated handles GET /v1/widgets/:id/related
func (h *RelatedHandler) WidgetRelated(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid widget id"})
		return
	}
	req, ok := h.widgetRequest(c)
	if !ok {
		return
	}
	req.WidgetID = id

	ctx, cancel := contextWithTimeout(c, h.timeout)
	defer cancel()

	res, err := h.services.Related.ForWidget(ctx, req)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// PreviewWidget handles POST /v1/widgets/preview. The body is an unsaved
// widget configuration; the anchor comes from the query string.
func (h *RelatedHandler) PreviewWidget(c *gin.Context) {
	var widget models.RelatedWidget
	if err := c.ShouldBindJSON(&widget); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid widget payload"})
		return
	}
	if errs := validation.ValidateWidget(&widget); len(errs) > 0 {
		writeError(c, h.log, validation.Errors(errs))
		return
	}
	req, ok := h.widgetRequest(c)
	if !ok {
		return
	}
	req.Widget = &widget

	ctx, cancel := contextWithTimeout(c, h.timeout)
	defer cancel()

	res, err := h.services.Related.ForWidget(ctx, req)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Query handles GET /v1/related. Filters come from query parameters or
// a ?json= payload; invalid filters yield an empty, invalid result.
func (h *RelatedHandler) Query(c *gin.Context) {
	ctx, cancel := contextWithTimeout(c, h.timeout)
	defer cancel()

	q := c.Request.URL.Query()
	q.Del("language")
	res, err := h.services.Related.Query(ctx, service.QueryRequest{
		Input:  filters.FromQuery(q),
		Locale: h.locales.locale(c),
	})
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
