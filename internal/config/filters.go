package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// FiltersPathEnvVar names the YAML file with filter settings
const FiltersPathEnvVar = "FILTERS_CONFIG"

// filtersEnvPrefix marks environment overrides, e.g.
// NEWSBLOG_FILTERS_EMPTY_LABELS__MEDIUM -> empty_labels.medium
const filtersEnvPrefix = "NEWSBLOG_FILTERS_"

// ExcludeRule hides choice options whose attribute Field has one of Values
type ExcludeRule struct {
	Field  string   `koanf:"field"`
	Values []string `koanf:"values"`
}

// ExtraCategoryFilter adds a listing filter over the children of a
// parent category.
type ExtraCategoryFilter struct {
	Name       string `koanf:"name"`
	ParentSlug string `koanf:"parent"`
	Label      string `koanf:"label"`
}

// FiltersConfig holds per-install choice list settings
type FiltersConfig struct {
	Strict          bool                     `koanf:"strict"`
	EmptyLabels     map[string]string        `koanf:"empty_labels"`
	Exclude         map[string][]ExcludeRule `koanf:"exclude"`
	ExtraCategories []ExtraCategoryFilter    `koanf:"extra_categories"`
}

func defaultFilters() *FiltersConfig {
	return &FiltersConfig{
		Strict:      false,
		EmptyLabels: map[string]string{},
		Exclude:     map[string][]ExcludeRule{},
	}
}

// LoadFilters layers defaults, the optional YAML file at path and
// environment overrides.
func LoadFilters(path string) (*FiltersConfig, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultFilters(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load filter defaults: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("filters config %s: %w", path, err)
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load filters config %s: %w", path, err)
		}
	}

	envProvider := env.Provider(filtersEnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, filtersEnvPrefix)
		return strings.ReplaceAll(strings.ToLower(s), "__", ".")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load filter environment: %w", err)
	}

	cfg := defaultFilters()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal filters config: %w", err)
	}

	for i, extra := range cfg.ExtraCategories {
		if extra.Name == "" || extra.ParentSlug == "" {
			return nil, fmt.Errorf("extra_categories[%d]: name and parent are required", i)
		}
	}
	return cfg, nil
}

// EmptyLabel returns the placeholder label for a filter, or fallback
func (f *FiltersConfig) EmptyLabel(name, fallback string) string {
	if label, ok := f.EmptyLabels[name]; ok && label != "" {
		return label
	}
	return fallback
}
