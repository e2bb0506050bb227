package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/newsblog-api/internal/models"
	"github.com/newsblog-api/internal/service"
	"github.com/rs/zerolog"
)

// ArticleHandler handles article detail and save endpoints
type ArticleHandler struct {
	services *service.Services
	locales  *localeMatcher
	timeout  time.Duration
	log      zerolog.Logger
}

// NewArticleHandler creates a new ArticleHandler
func NewArticleHandler(services *service.Services, locales *localeMatcher, timeout time.Duration, log zerolog.Logger) *ArticleHandler {
	return &ArticleHandler{
		services: services,
		locales:  locales,
		timeout:  timeout,
		log:      log.With().Str("handler", "article").Logger(),
	}
}

// Detail handles GET /v1/sections/:namespace/articles/*permalink.
// Non-canonical paths redirect or 404 according to the section.
func (h *ArticleHandler) Detail(c *gin.Context) {
	namespace := c.Param("namespace")
	path := strings.Trim(c.Param("permalink"), "/")
	if path == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	ctx, cancel := contextWithTimeout(c, h.timeout)
	defer cancel()

	detail, err := h.services.Articles.Detail(ctx, service.DetailRequest{
		Namespace: namespace,
		Path:      path,
		Locale:    h.locales.locale(c),
		Viewer:    viewerFrom(c),
	})
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	switch detail.Outcome {
	case service.Found:
		c.JSON(http.StatusOK, detail)
	case service.WrongPath:
		switch detail.Handling {
		case models.HandlingMoved, models.HandlingFound:
			target := "/v1/sections/" + namespace + "/articles/" + detail.Canonical
			if raw := c.Request.URL.RawQuery; raw != "" {
				target += "?" + raw
			}
			c.Redirect(int(detail.Handling), target)
		default:
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		}
	default:
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	}
}

// CreateArticle handles POST /v1/articles
func (h *ArticleHandler) CreateArticle(c *gin.Context) {
	h.save(c, 0, http.StatusCreated)
}

// UpdateArticle handles PUT /v1/articles/:id
func (h *ArticleHandler) UpdateArticle(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid article id"})
		return
	}
	h.save(c, id, http.StatusOK)
}

func (h *ArticleHandler) save(c *gin.Context, id int64, status int) {
	var in models.ArticleInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid article payload"})
		return
	}

	ctx, cancel := contextWithTimeout(c, h.timeout)
	defer cancel()

	article, err := h.services.Articles.Save(ctx, id, &in)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(status, article)
}
