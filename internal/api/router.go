package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/newsblog-api/internal/config"
	"github.com/newsblog-api/internal/metrics"
	"github.com/newsblog-api/internal/service"
	"github.com/newsblog-api/pkg/logger"
	"github.com/rs/zerolog"
)

// HealthCheck checks one backing dependency for /health
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// healthTimeout bounds each dependency check
const healthTimeout = 2 * time.Second

// NewRouter creates and configures the Gin router. checks are run by
// /health; any failure reports the service as degraded.
func NewRouter(services *service.Services, cfg *config.Config, log zerolog.Logger, checks ...HealthCheck) *gin.Engine {
	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Middleware
	router.Use(requestIDMiddleware())
	router.Use(recoveryMiddleware(log))
	router.Use(loggingMiddleware(log))
	router.Use(metricsMiddleware())
	router.Use(corsMiddleware())

	locales := newLocaleMatcher(cfg.Features)
	timeout := cfg.Server.RequestTimeout

	// Handlers
	relatedHandler := NewRelatedHandler(services, locales, timeout, log)
	articleHandler := NewArticleHandler(services, locales, timeout, log)
	listingHandler := NewListingHandler(services, locales, timeout, log)

	// Health check
	router.GET("/health", healthHandler(checks, log))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	// API v1
	v1 := router.Group("/v1")
	if cfg.Server.RateLimit > 0 {
		v1.Use(rateLimitMiddleware(newRateLimiter(cfg.Server.RateLimit, cfg.Server.RateBurst)))
	}
	{
		// Related article widgets and queries
		v1.GET("/widgets/:id/related", relatedHandler.WidgetRelated)
		v1.POST("/widgets/preview", relatedHandler.PreviewWidget)
		v1.GET("/related", relatedHandler.Query)

		// Articles
		v1.POST("/articles", articleHandler.CreateArticle)
		v1.PUT("/articles/:id", articleHandler.UpdateArticle)

		// Section listings
		v1.GET("/sections", listingHandler.Sections)
		v1.GET("/browse", listingHandler.Browse)
		sections := v1.Group("/sections/:namespace")
		{
			sections.GET("/articles", listingHandler.List)
			sections.GET("/articles/*permalink", articleHandler.Detail)
			sections.GET("/authors/:slug", listingHandler.List)
			sections.GET("/categories/:slug", listingHandler.List)
			sections.GET("/services/:slug", listingHandler.List)
			sections.GET("/archive/:year", listingHandler.List)
			sections.GET("/archive/:year/:month", listingHandler.List)
			sections.GET("/archive/:year/:month/:day", listingHandler.List)
			sections.GET("/search", listingHandler.Search)
			sections.GET("/filters", listingHandler.Choices)
			sections.GET("/facets", listingHandler.Facets)
			sections.GET("/facets/:facet", listingHandler.Facet)
		}
	}

	return router
}

// healthHandler returns the health status and the result of each check
func healthHandler(checks []HealthCheck, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		status, code := "healthy", http.StatusOK
		results := make(map[string]string, len(checks))
		for _, hc := range checks {
			ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
			err := hc.Check(ctx)
			cancel()
			if err != nil {
				log.Warn().Err(err).Str("check", hc.Name).Msg("Health check failed")
				results[hc.Name] = err.Error()
				status, code = "degraded", http.StatusServiceUnavailable
				continue
			}
			results[hc.Name] = "ok"
		}
		c.JSON(code, gin.H{
			"status":    status,
			"timestamp": time.Now().Format(time.RFC3339),
			"service":   logger.ServiceName,
			"checks":    results,
		})
	}
}

// requestIDMiddleware propagates or assigns a request id
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Writer.Header().Set(HeaderRequestID, id)
		c.Next()
	}
}

// recoveryMiddleware handles panics
func recoveryMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Error().
					Interface("error", err).
					Str("request_id", c.GetString("request_id")).
					Msg("Panic recovered")
				c.JSON(http.StatusInternalServerError, gin.H{
					"error": "Internal server error",
				})
				c.Abort()
			}
		}()
		c.Next()
	}
}

// loggingMiddleware logs requests
func loggingMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		duration := time.Since(start)
		statusCode := c.Writer.Status()

		event := log.Info()
		if statusCode >= 400 {
			event = log.Warn()
		}
		if statusCode >= 500 {
			event = log.Error()
		}

		event.
			Str("request_id", c.GetString("request_id")).
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", statusCode).
			Dur("duration", duration).
			Str("client_ip", c.ClientIP()).
			Msg("Request completed")
	}
}

// metricsMiddleware records request counts and latency per route
func metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		metrics.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.HTTPDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}

// corsMiddleware handles CORS
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept-Language, "+HeaderRequestID)

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
