package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/lee-tech/locations/internal/constants"
)

// Config is the service configuration, loaded from environment variables
// with an optional .env file.
type Config struct {
	ServiceName string `validate:"required"`
	ListenAddr  string `validate:"required"`
	LogLevel    string `validate:"oneof=debug info warn error"`

	DatabaseDSN string `validate:"required"`

	// HierarchyLabels maps level tags to display labels; parsed from
	// LOCATION_HIERARCHY as "L0:Country,L1:Region,...".
	HierarchyLabels map[string]string `validate:"required,min=1"`
	// RelevantLevels is the root-to-leaf level order used when a request
	// does not name explicit levels.
	RelevantLevels []string `validate:"required,min=1,dive,oneof=L0 L1 L2 L3 L4 L5"`

	// BaseLanguage is the language canonical names are stored in;
	// translation is skipped for it.
	BaseLanguage string `validate:"required"`
	// TranslateLocations enables localized display names by default.
	TranslateLocations bool
	// ValidateSelected checks reconciled saved-filter values against the
	// store before surfacing them as options.
	ValidateSelected bool

	BookmarkSecret string        `validate:"required,min=16"`
	BookmarkTTL    time.Duration `validate:"gt=0"`

	ShutdownTimeout time.Duration `validate:"gt=0"`
}

// Load reads the configuration from the environment and validates it.
func Load() (*Config, error) {
	// Pick up a local .env when present; real environments set vars directly.
	_ = godotenv.Load()

	cfg := &Config{
		ServiceName: getEnv("SERVICE_NAME", "locations"),
		ListenAddr:  getEnv("LISTEN_ADDR", ":8080"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		DatabaseDSN: getEnv("DATABASE_DSN", "host=localhost user=locations password=locations dbname=locations port=5432 sslmode=disable"),

		HierarchyLabels: parseHierarchy(getEnv("LOCATION_HIERARCHY", "")),
		RelevantLevels:  getEnvAsSlice("RELEVANT_LEVELS", nil),

		BaseLanguage:       getEnv("BASE_LANGUAGE", "en"),
		TranslateLocations: getEnvAsBool("TRANSLATE_LOCATIONS", false),
		ValidateSelected:   getEnvAsBool("VALIDATE_SELECTED", false),

		BookmarkSecret: getEnv("BOOKMARK_SECRET", ""),
		BookmarkTTL:    getEnvAsDuration("BOOKMARK_TTL", 30*24*time.Hour),

		ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 15*time.Second),
	}

	if len(cfg.RelevantLevels) == 0 {
		cfg.RelevantLevels = relevantFromLabels(cfg.HierarchyLabels)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// parseHierarchy turns "L0:Country,L1:Region" into a tag→label map, falling
// back to the built-in defaults when unset or unparseable.
func parseHierarchy(raw string) map[string]string {
	labels := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		tag, label, ok := strings.Cut(strings.TrimSpace(pair), ":")
		if !ok {
			continue
		}
		tag = strings.TrimSpace(tag)
		label = strings.TrimSpace(label)
		if tag == "" || label == "" {
			continue
		}
		labels[tag] = label
	}
	if len(labels) == 0 {
		for tag, label := range constants.DefaultHierarchyLabels {
			labels[tag] = label
		}
	}
	return labels
}

// relevantFromLabels orders the configured tags root-to-leaf.
func relevantFromLabels(labels map[string]string) []string {
	var relevant []string
	for _, tag := range constants.LevelTags {
		if _, ok := labels[tag]; ok {
			relevant = append(relevant, tag)
		}
	}
	return relevant
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsSlice(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
