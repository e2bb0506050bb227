package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
)

// MaxRelatedArticles is the hard ceiling for related list sizes
const MaxRelatedArticles = 120

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database DatabaseConfig

	// Facet cache configuration
	Cache CacheConfig

	// Install-wide feature flags
	Features FeatureConfig

	// Layout variants known to the renderer
	Layouts LayoutConfig

	// Filter choice settings, loaded from FILTERS_CONFIG
	Filters FiltersConfig

	// Logging configuration
	Log LogConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	RequestTimeout  time.Duration
	// RateLimit is the per-client request rate per second; 0 disables it
	RateLimit int
	RateBurst int
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host         string
	Port         string
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

// CacheConfig holds facet cache settings. An empty RedisAddr keeps the
// cache in process.
type CacheConfig struct {
	Enabled       bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	FacetTTL      time.Duration
	KeyPrefix     string
	// Redis calls fail fast for BreakerTimeout after BreakerFailures
	// consecutive errors
	BreakerFailures int
	BreakerTimeout  time.Duration
	// In-process store bounds
	MemoryCapacity int
	MemoryCleanup  time.Duration
}

// FeatureConfig holds install-wide toggles. It is injected into the
// publication policy, the relevance builder and the filter engine.
type FeatureConfig struct {
	TranslateAuthors   bool
	TranslatePublished bool
	EnableLocations    bool
	CompaniesInstalled bool
	UpdateSearchData   bool
	AutoReadTime       bool
	GetNextArticle     bool
	DefaultMediumTitle string
	MaxRelated         int
	DefaultLanguage    string
	Languages          []string
	// Fallbacks maps a language to the languages tried after it
	Fallbacks map[string][]string
}

// LayoutConfig lists layout variants the renderer can serve
type LayoutConfig struct {
	Related  []string
	Specific []string
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string
	Format string // "json" or "pretty"
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			RequestTimeout:  getDurationEnv("SERVER_REQUEST_TIMEOUT", 10*time.Second),
			RateLimit:       getIntEnv("SERVER_RATE_LIMIT", 0),
			RateBurst:       getIntEnv("SERVER_RATE_BURST", 20),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", "postgres"),
			Name:         getEnv("DB_NAME", "newsblog"),
			SSLMode:      getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns: getIntEnv("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getIntEnv("DB_MAX_IDLE_CONNS", 5),
			MaxLifetime:  getDurationEnv("DB_MAX_LIFETIME", 5*time.Minute),
		},
		Cache: CacheConfig{
			Enabled:         getBoolEnv("CACHE_ENABLED", true),
			RedisAddr:       getEnv("REDIS_ADDR", ""),
			RedisPassword:   getEnv("REDIS_PASSWORD", ""),
			RedisDB:         getIntEnv("REDIS_DB", 0),
			FacetTTL:        getDurationEnv("CACHE_FACET_TTL", time.Hour),
			KeyPrefix:       getEnv("CACHE_KEY_PREFIX", "newsblog"),
			BreakerFailures: getIntEnv("CACHE_BREAKER_FAILURES", 5),
			BreakerTimeout:  getDurationEnv("CACHE_BREAKER_TIMEOUT", 30*time.Second),
			MemoryCapacity:  getIntEnv("CACHE_MEMORY_CAPACITY", 10000),
			MemoryCleanup:   getDurationEnv("CACHE_MEMORY_CLEANUP", 5*time.Minute),
		},
		Features: FeatureConfig{
			TranslateAuthors:   getBoolEnv("TRANSLATE_AUTHORS", false),
			TranslatePublished: getBoolEnv("TRANSLATE_IS_PUBLISHED", false),
			EnableLocations:    getBoolEnv("ENABLE_LOCATIONS", false),
			CompaniesInstalled: getBoolEnv("COMPANIES_INSTALLED", false),
			UpdateSearchData:   getBoolEnv("UPDATE_SEARCH_DATA_ON_SAVE", false),
			AutoReadTime:       getBoolEnv("AUTO_READ_TIME", true),
			GetNextArticle:     getBoolEnv("GET_NEXT_ARTICLE", false),
			DefaultMediumTitle: getEnv("DEFAULT_MEDIUM", "default"),
			MaxRelated:         getIntEnv("MAX_RELATED_ARTICLES", MaxRelatedArticles),
			DefaultLanguage:    getEnv("DEFAULT_LANGUAGE", "en"),
			Languages:          getListEnv("LANGUAGES", []string{"en"}),
			Fallbacks:          getFallbacksEnv("LANGUAGE_FALLBACKS"),
		},
		Layouts: LayoutConfig{
			Related:  getListEnv("RELATED_LAYOUTS", []string{"default", "by_author", "cards", "list"}),
			Specific: getListEnv("SPECIFIC_LAYOUTS", []string{"default", "cards"}),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	filters, err := LoadFilters(os.Getenv(FiltersPathEnvVar))
	if err != nil {
		return nil, err
	}
	cfg.Filters = *filters

	if err := cfg.normalize(); err != nil {
		return nil, err
	}

	// Validate required configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// normalize canonicalizes language tags and clamps soft limits
func (c *Config) normalize() error {
	f := &c.Features
	if f.MaxRelated <= 0 || f.MaxRelated > MaxRelatedArticles {
		f.MaxRelated = MaxRelatedArticles
	}

	def, err := CanonicalLanguage(f.DefaultLanguage)
	if err != nil {
		return fmt.Errorf("DEFAULT_LANGUAGE: %w", err)
	}
	f.DefaultLanguage = def

	langs := make([]string, 0, len(f.Languages))
	for _, l := range f.Languages {
		canon, err := CanonicalLanguage(l)
		if err != nil {
			return fmt.Errorf("LANGUAGES: %w", err)
		}
		langs = append(langs, canon)
	}
	f.Languages = langs

	fallbacks := make(map[string][]string, len(f.Fallbacks))
	for l, chain := range f.Fallbacks {
		key, err := CanonicalLanguage(l)
		if err != nil {
			return fmt.Errorf("LANGUAGE_FALLBACKS: %w", err)
		}
		for _, fb := range chain {
			canon, err := CanonicalLanguage(fb)
			if err != nil {
				return fmt.Errorf("LANGUAGE_FALLBACKS: %w", err)
			}
			fallbacks[key] = append(fallbacks[key], canon)
		}
	}
	f.Fallbacks = fallbacks
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Database.Host == "" {
		return fmt.Errorf("DB_HOST is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("DB_NAME is required")
	}
	if len(c.Features.Languages) == 0 {
		return fmt.Errorf("LANGUAGES must list at least one language")
	}
	if c.Cache.FacetTTL < 0 {
		return fmt.Errorf("CACHE_FACET_TTL must not be negative")
	}
	if c.Cache.BreakerFailures < 0 {
		return fmt.Errorf("CACHE_BREAKER_FAILURES must not be negative")
	}
	if c.Cache.MemoryCapacity < 0 || c.Cache.MemoryCleanup < 0 {
		return fmt.Errorf("CACHE_MEMORY_CAPACITY and CACHE_MEMORY_CLEANUP must not be negative")
	}
	if c.Server.RateLimit < 0 || c.Server.RateBurst < 0 {
		return fmt.Errorf("SERVER_RATE_LIMIT and SERVER_RATE_BURST must not be negative")
	}
	return nil
}

// GetDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// ValidLanguages returns locale followed by its fallbacks, keeping only
// configured languages. An unknown locale yields nil.
func (f *FeatureConfig) ValidLanguages(locale string) []string {
	known := make(map[string]bool, len(f.Languages))
	for _, l := range f.Languages {
		known[l] = true
	}
	if !known[locale] {
		return nil
	}
	out := []string{locale}
	for _, fb := range f.Fallbacks[locale] {
		if known[fb] && fb != locale {
			out = append(out, fb)
		}
	}
	return out
}

// CanonicalLanguage parses a BCP 47 tag and returns its canonical form
func CanonicalLanguage(tag string) (string, error) {
	t, err := language.Parse(strings.TrimSpace(tag))
	if err != nil {
		return "", fmt.Errorf("invalid language %q: %w", tag, err)
	}
	return t.String(), nil
}

// Helper functions for environment variable parsing

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// getFallbacksEnv parses "de:en,fr:en|de" into a fallback map
func getFallbacksEnv(key string) map[string][]string {
	out := map[string][]string{}
	for _, entry := range getListEnv(key, nil) {
		lang, chain, ok := strings.Cut(entry, ":")
		if !ok {
			continue
		}
		for _, fb := range strings.Split(chain, "|") {
			if fb = strings.TrimSpace(fb); fb != "" {
				out[strings.TrimSpace(lang)] = append(out[strings.TrimSpace(lang)], fb)
			}
		}
	}
	return out
}
