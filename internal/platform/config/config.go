package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/gustavop-dev/rainy-project/internal/catalog"
)

const (
	defaultEnvFile           = ".env"
	defaultEnvironment       = EnvDevelopment
	defaultLogLevel          = "info"
	defaultAPIPrefix         = "/api/"
	defaultAPITimeout        = 15 * time.Second
	defaultCSRFCookie        = "csrftoken"
	defaultStorefrontAddr    = ":8080"
	defaultReadTimeout       = 15 * time.Second
	defaultWriteTimeout      = 15 * time.Second
	defaultCurrency          = "COP"
	defaultCredentialsFolder = "rainy"
	defaultCredentialsFile   = "credentials.yaml"
)

// Recognised values of RAINY_ENV.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Environment string
	LogLevel    string
	API         APIConfig
	Catalog     CatalogConfig
	Storefront  StorefrontConfig
	Credentials CredentialsConfig
}

// APIConfig describes how the gateway reaches the backend.
type APIConfig struct {
	BaseURL        string
	Prefix         string
	Timeout        time.Duration
	CSRFCookieName string
}

// CatalogConfig tunes the catalog store.
type CatalogConfig struct {
	DimensionImageKeys []string
}

// StorefrontConfig configures the BFF HTTP server.
type StorefrontConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Currency     string
}

// CredentialsConfig points at the persisted bearer-token store.
type CredentialsConfig struct {
	File string
}

// DevMode reports whether development diagnostics should be emitted.
func (c Config) DevMode() bool {
	return c.Environment != EnvProduction
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects an explicit key/value map for environment lookups. Values in the map
// take precedence over system environment variables.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from os.LookupEnv, relying only on provided maps and .env files.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// Load assembles the application configuration by combining defaults, .env overrides
// and environment variables.
func Load(opts ...Option) (Config, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}
	for _, opt := range opts {
		opt(&options)
	}

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		if options.envMap != nil {
			if value, ok := options.envMap[key]; ok {
				return value, true
			}
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		if dotEnvValues != nil {
			if value, ok := dotEnvValues[key]; ok {
				return value, true
			}
		}
		return "", false
	}

	cfg := Config{
		Environment: strings.ToLower(stringWithDefault(lookup, "RAINY_ENV", defaultEnvironment)),
		LogLevel:    stringWithDefault(lookup, "RAINY_LOG_LEVEL", defaultLogLevel),
		API: APIConfig{
			BaseURL:        strings.TrimRight(stringWithDefault(lookup, "RAINY_API_BASE_URL", ""), "/"),
			Prefix:         normalizePrefix(stringWithDefault(lookup, "RAINY_API_PREFIX", defaultAPIPrefix)),
			Timeout:        durationWithDefault(lookup, "RAINY_API_TIMEOUT", defaultAPITimeout),
			CSRFCookieName: stringWithDefault(lookup, "RAINY_CSRF_COOKIE", defaultCSRFCookie),
		},
		Catalog: CatalogConfig{
			DimensionImageKeys: csvWithDefault(lookup, "RAINY_DIMENSION_IMAGE_KEYS", catalog.DefaultDimensionKeys),
		},
		Storefront: StorefrontConfig{
			Addr:         stringWithDefault(lookup, "RAINY_STOREFRONT_ADDR", defaultStorefrontAddr),
			ReadTimeout:  durationWithDefault(lookup, "RAINY_STOREFRONT_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout: durationWithDefault(lookup, "RAINY_STOREFRONT_WRITE_TIMEOUT", defaultWriteTimeout),
			Currency:     strings.ToUpper(stringWithDefault(lookup, "RAINY_CURRENCY", defaultCurrency)),
		},
		Credentials: CredentialsConfig{
			File: stringWithDefault(lookup, "RAINY_CREDENTIALS_FILE", defaultCredentialsPath()),
		},
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validateConfig(cfg Config) error {
	var missing []string

	switch cfg.Environment {
	case EnvDevelopment, EnvProduction:
	default:
		missing = append(missing, "Environment")
	}
	if cfg.API.BaseURL == "" {
		missing = append(missing, "API.BaseURL")
	} else if parsed, err := url.Parse(cfg.API.BaseURL); err != nil || parsed.Scheme == "" || parsed.Host == "" {
		missing = append(missing, "API.BaseURL")
	}
	if cfg.API.Timeout <= 0 {
		missing = append(missing, "API.Timeout")
	}
	if strings.TrimSpace(cfg.API.CSRFCookieName) == "" {
		missing = append(missing, "API.CSRFCookieName")
	}
	if len(cfg.Catalog.DimensionImageKeys) == 0 {
		missing = append(missing, "Catalog.DimensionImageKeys")
	}
	if strings.TrimSpace(cfg.Storefront.Addr) == "" {
		missing = append(missing, "Storefront.Addr")
	}

	if len(missing) > 0 {
		return &ValidationError{fields: missing}
	}
	return nil
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	values, err := godotenv.Read(absPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", absPath, err)
	}
	return values, nil
}

func defaultCredentialsPath() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return filepath.Join(".", defaultCredentialsFolder, defaultCredentialsFile)
	}
	return filepath.Join(dir, defaultCredentialsFolder, defaultCredentialsFile)
}

func normalizePrefix(prefix string) string {
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		return "/"
	}
	return "/" + prefix + "/"
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		d, err := time.ParseDuration(strings.TrimSpace(value))
		if err == nil {
			return d
		}
	}
	return fallback
}

func csvWithDefault(lookup func(string) (string, bool), key string, fallback []string) []string {
	raw, ok := lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		out := make([]string, len(fallback))
		copy(out, fallback)
		return out
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
