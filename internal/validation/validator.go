package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/newsblog-api/internal/models"
)

var (
	slugRegex      = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
	namespaceRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

	validate     *validator.Validate
	validateOnce sync.Once
)

// ValidationError represents a single validation error
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

// Error implements error
func (e ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// Errors is a list of validation failures returned together
type Errors []ValidationError

// Error implements error
func (e Errors) Error() string {
	parts := make([]string, len(e))
	for i, v := range e {
		parts[i] = v.Error()
	}
	return strings.Join(parts, "; ")
}

// AsError returns nil for an empty list
func (e Errors) AsError() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

// GetValidator returns the shared validator instance. Field names are
// taken from json tags.
func GetValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Struct validates s against its validate tags
func Struct(s interface{}) []ValidationError {
	err := GetValidator().Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []ValidationError{{Field: "unknown", Message: err.Error()}}
	}

	out := make([]ValidationError, len(fieldErrs))
	for i, fe := range fieldErrs {
		out[i] = ValidationError{Field: fieldPath(fe), Message: message(fe), Value: fe.Value()}
	}
	return out
}

// fieldPath strips the root struct name from the namespace
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "gte", "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "lte", "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	}
	return fmt.Sprintf("failed %s validation", fe.Tag())
}

// ValidateArticle validates an article save payload. languages lists the
// configured language codes.
func ValidateArticle(in *models.ArticleInput, languages []string) []ValidationError {
	errs := Struct(in)

	if in.Locale != "" && !contains(languages, in.Locale) {
		errs = append(errs, ValidationError{Field: "locale", Message: "language is not configured", Value: in.Locale})
	}
	if in.Slug != "" && !slugRegex.MatchString(in.Slug) {
		errs = append(errs, ValidationError{Field: "slug", Message: "slug must be kebab-case (lowercase letters, numbers, hyphens)", Value: in.Slug})
	}
	if in.Title != "" && strings.TrimSpace(in.Title) == "" {
		errs = append(errs, ValidationError{Field: "title", Message: "title must not be blank"})
	}
	return errs
}

// ValidateSection validates section settings
func ValidateSection(s *models.Section) []ValidationError {
	var errs []ValidationError

	if s.Namespace == "" {
		errs = append(errs, ValidationError{Field: "namespace", Message: "namespace is required"})
	} else if !namespaceRegex.MatchString(s.Namespace) {
		errs = append(errs, ValidationError{Field: "namespace", Message: "namespace may contain lowercase letters, numbers, hyphens and underscores", Value: s.Namespace})
	}
	if !models.ValidPermalinkTypes[s.PermalinkType] {
		errs = append(errs, ValidationError{Field: "permalink_type", Message: "invalid permalink type, must be one of: s, ys, yms, ymds, ymdi", Value: s.PermalinkType})
	}
	if !models.ValidHandlings[s.NonPermalinkHandling] {
		errs = append(errs, ValidationError{Field: "non_permalink_handling", Message: "must be one of: 200, 301, 302, 404", Value: s.NonPermalinkHandling})
	}
	if s.PaginateBy < 0 {
		errs = append(errs, ValidationError{Field: "paginate_by", Message: "must not be negative", Value: s.PaginateBy})
	}
	if s.ExcludeFeatured < 0 {
		errs = append(errs, ValidationError{Field: "exclude_featured", Message: "must not be negative", Value: s.ExcludeFeatured})
	}
	return errs
}

// ValidateWidget validates a related widget configuration. Unknown
// layouts are accepted and fall back at render time.
func ValidateWidget(w *models.RelatedWidget) []ValidationError {
	errs := Struct(w)
	if w.Kind != models.WidgetRelated && w.Kind != models.WidgetSpecific {
		errs = append(errs, ValidationError{Field: "kind", Message: "must be one of: related, specific", Value: w.Kind})
	}
	return errs
}

// IsSlug reports whether s is a kebab-case slug
func IsSlug(s string) bool {
	return slugRegex.MatchString(s)
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
