package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/newsblog-api/internal/config"
	"github.com/newsblog-api/internal/models"
	"github.com/newsblog-api/internal/publication"
	"github.com/newsblog-api/internal/service"
	"github.com/newsblog-api/internal/validation"
	"github.com/rs/zerolog"
	"golang.org/x/text/language"
)

// Request headers understood by the API
const (
	HeaderRequestID = "X-Request-ID"
	HeaderStaff     = "X-Staff"
	HeaderSuperuser = "X-Superuser"
	HeaderEditMode  = "X-Edit-Mode"
)

// localeMatcher picks the configured language for a request
type localeMatcher struct {
	languages []string
	fallback  string
	matcher   language.Matcher
}

func newLocaleMatcher(features config.FeatureConfig) *localeMatcher {
	tags := make([]language.Tag, 0, len(features.Languages))
	for _, l := range features.Languages {
		tags = append(tags, language.Make(l))
	}
	fallback := features.DefaultLanguage
	if fallback == "" && len(features.Languages) > 0 {
		fallback = features.Languages[0]
	}
	return &localeMatcher{
		languages: features.Languages,
		fallback:  fallback,
		matcher:   language.NewMatcher(tags),
	}
}

// locale resolves ?language=, then Accept-Language, then the default
// language. An explicit parameter is canonicalized but not matched, so
// unknown languages reach the services unchanged.
func (m *localeMatcher) locale(c *gin.Context) string {
	if raw := c.Query("language"); raw != "" {
		if canon, err := config.CanonicalLanguage(raw); err == nil {
			return canon
		}
		return raw
	}
	if header := c.GetHeader("Accept-Language"); header != "" && len(m.languages) > 0 {
		prefs, _, err := language.ParseAcceptLanguage(header)
		if err == nil && len(prefs) > 0 {
			_, idx, conf := m.matcher.Match(prefs...)
			if conf != language.No {
				return m.languages[idx]
			}
		}
	}
	return m.fallback
}

// viewerFrom reads the privileges an upstream gateway attached to the
// request. Edit mode is also enabled by the ?edit query flag.
func viewerFrom(c *gin.Context) publication.Viewer {
	_, edit := c.GetQuery("edit")
	return publication.Viewer{
		Staff:     headerBool(c, HeaderStaff),
		Superuser: headerBool(c, HeaderSuperuser),
		EditMode:  edit || headerBool(c, HeaderEditMode),
	}
}

func headerBool(c *gin.Context, name string) bool {
	v, err := strconv.ParseBool(c.GetHeader(name))
	return err == nil && v
}

func queryInt(c *gin.Context, name string) (int, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// contextWithTimeout creates a context with timeout for handlers
func contextWithTimeout(c *gin.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(c.Request.Context())
	}
	return context.WithTimeout(c.Request.Context(), timeout)
}

// writeError maps service errors onto HTTP responses
func writeError(c *gin.Context, log zerolog.Logger, err error) {
	var verrs validation.Errors
	switch {
	case errors.As(err, &verrs):
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "errors": []validation.ValidationError(verrs)})
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, service.ErrUnknownFacet):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, context.DeadlineExceeded):
		log.Warn().Err(err).Str("path", c.Request.URL.Path).Msg("Request timed out")
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "request timed out"})
	default:
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
