package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/newsblog-api/internal/service"
	"github.com/rs/zerolog"
)

// ListingHandler handles section listing, search, filter and facet endpoints
type ListingHandler struct {
	services *service.Services
	locales  *localeMatcher
	timeout  time.Duration
	log      zerolog.Logger
}

// NewListingHandler creates a new ListingHandler
func NewListingHandler(services *service.Services, locales *localeMatcher, timeout time.Duration, log zerolog.Logger) *ListingHandler {
	return &ListingHandler{
		services: services,
		locales:  locales,
		timeout:  timeout,
		log:      log.With().Str("handler", "listing").Logger(),
	}
}

// Sections handles GET /v1/sections
func (h *ListingHandler) Sections(c *gin.Context) {
	ctx, cancel := contextWithTimeout(c, h.timeout)
	defer cancel()

	sections, err := h.services.Listing.Sections(ctx)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sections": sections})
}

// scopeFrom derives the listing scope from the matched route
func scopeFrom(c *gin.Context) (service.Scope, bool) {
	var sc service.Scope
	route := c.FullPath()
	switch {
	case strings.Contains(route, "/authors/"):
		sc.Author = c.Param("slug")
	case strings.Contains(route, "/categories/"):
		sc.Category = c.Param("slug")
	case strings.Contains(route, "/services/"):
		sc.Service = c.Param("slug")
	case strings.Contains(route, "/archive/"):
		for _, part := range []struct {
			name string
			dst  *int
		}{{"year", &sc.Year}, {"month", &sc.Month}, {"day", &sc.Day}} {
			raw := c.Param(part.name)
			if raw == "" {
				continue
			}
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				return sc, false
			}
			*part.dst = n
		}
	}
	return sc, true
}

// List handles the section listing routes: the plain listing and its
// author, category, service and archive scopes
func (h *ListingHandler) List(c *gin.Context) {
	scope, ok := scopeFrom(c)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	ctx, cancel := contextWithTimeout(c, h.timeout)
	defer cancel()

	page, err := h.services.Listing.List(ctx, service.ListRequest{
		Namespace: c.Param("namespace"),
		Locale:    h.locales.locale(c),
		Viewer:    viewerFrom(c),
		Page:      service.ParsePage(c.Query("page")),
		Filters:   c.Request.URL.Query(),
		Scope:     scope,
	})
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// Search handles GET /v1/sections/:namespace/search?q=
func (h *ListingHandler) Search(c *gin.Context) {
	maxArticles, ok := queryInt(c, "max_articles")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "max_articles must be a positive integer"})
		return
	}

	ctx, cancel := contextWithTimeout(c, h.timeout)
	defer cancel()

	page, err := h.services.Listing.Search(ctx, service.SearchRequest{
		Namespace:   c.Param("namespace"),
		Locale:      h.locales.locale(c),
		Viewer:      viewerFrom(c),
		Page:        service.ParsePage(c.Query("page")),
		Query:       c.Query("q"),
		MaxArticles: maxArticles,
		Filters:     c.Request.URL.Query(),
	})
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// Browse handles GET /v1/browse?type=&category=
func (h *ListingHandler) Browse(c *gin.Context) {
	ctx, cancel := contextWithTimeout(c, h.timeout)
	defer cancel()

	page, err := h.services.Listing.Browse(ctx, service.BrowseRequest{
		Type:     c.Query("type"),
		Category: c.Query("category"),
		Locale:   h.locales.locale(c),
		Page:     service.ParsePage(c.Query("page")),
	})
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// Choices handles GET /v1/sections/:namespace/filters
func (h *ListingHandler) Choices(c *gin.Context) {
	ctx, cancel := contextWithTimeout(c, h.timeout)
	defer cancel()

	choices, err := h.services.Listing.Choices(ctx, c.Param("namespace"), c.Request.URL.Query())
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"filters": choices})
}

// Facet handles GET /v1/sections/:namespace/facets/:facet
func (h *ListingHandler) Facet(c *gin.Context) {
	ctx, cancel := contextWithTimeout(c, h.timeout)
	defer cancel()

	name := c.Param("facet")
	values, err := h.services.Facets.Facet(ctx, c.Param("namespace"), name, h.locales.locale(c), c.Request.URL.Query())
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{name: values})
}

// Facets handles GET /v1/sections/:namespace/facets
func (h *ListingHandler) Facets(c *gin.Context) {
	ctx, cancel := contextWithTimeout(c, h.timeout)
	defer cancel()

	facets, err := h.services.Facets.All(ctx, c.Param("namespace"), h.locales.locale(c), c.Request.URL.Query())
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, facets)
}
