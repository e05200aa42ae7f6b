package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/gustavop-dev/rainy-project/internal/catalog"
)

func TestLoadWithDefaults(t *testing.T) {
	env := map[string]string{
		"RAINY_API_BASE_URL":     "http://localhost:8000/",
		"RAINY_CREDENTIALS_FILE": "/tmp/rainy/credentials.yaml",
	}

	cfg, err := Load(WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Environment != EnvDevelopment {
		t.Errorf("expected development environment, got %s", cfg.Environment)
	}
	if !cfg.DevMode() {
		t.Errorf("expected dev mode by default")
	}
	if cfg.API.BaseURL != "http://localhost:8000" {
		t.Errorf("expected trailing slash trimmed, got %s", cfg.API.BaseURL)
	}
	if cfg.API.Prefix != "/api/" {
		t.Errorf("expected default prefix /api/, got %s", cfg.API.Prefix)
	}
	if cfg.API.Timeout != 15*time.Second {
		t.Errorf("unexpected api timeout: %s", cfg.API.Timeout)
	}
	if cfg.API.CSRFCookieName != "csrftoken" {
		t.Errorf("unexpected csrf cookie: %s", cfg.API.CSRFCookieName)
	}
	if !reflect.DeepEqual(cfg.Catalog.DimensionImageKeys, catalog.DefaultDimensionKeys) {
		t.Errorf("unexpected dimension keys: %v", cfg.Catalog.DimensionImageKeys)
	}
	cfg.Catalog.DimensionImageKeys[0] = "changed"
	if catalog.DefaultDimensionKeys[0] != "dimensions_image_url" {
		t.Errorf("config keys alias the catalog defaults: %v", catalog.DefaultDimensionKeys)
	}
	if cfg.Storefront.Addr != ":8080" {
		t.Errorf("unexpected storefront addr: %s", cfg.Storefront.Addr)
	}
	if cfg.Storefront.Currency != "COP" {
		t.Errorf("unexpected currency: %s", cfg.Storefront.Currency)
	}
}

func TestLoadWithOverrides(t *testing.T) {
	env := map[string]string{
		"RAINY_ENV":                      "Production",
		"RAINY_LOG_LEVEL":                "debug",
		"RAINY_API_BASE_URL":             "https://rainy.example.com",
		"RAINY_API_PREFIX":               "backend",
		"RAINY_API_TIMEOUT":              "3s",
		"RAINY_CSRF_COOKIE":              "xsrf",
		"RAINY_DIMENSION_IMAGE_KEYS":     "measures_url, ,dimension_image_url",
		"RAINY_STOREFRONT_ADDR":          ":9090",
		"RAINY_STOREFRONT_READ_TIMEOUT":  "2s",
		"RAINY_STOREFRONT_WRITE_TIMEOUT": "bogus",
		"RAINY_CURRENCY":                 "usd",
		"RAINY_CREDENTIALS_FILE":         "/tmp/creds.yaml",
	}

	cfg, err := Load(WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Environment != EnvProduction || cfg.DevMode() {
		t.Errorf("expected production environment, got %s", cfg.Environment)
	}
	if cfg.API.Prefix != "/backend/" {
		t.Errorf("expected normalised prefix, got %s", cfg.API.Prefix)
	}
	if cfg.API.Timeout != 3*time.Second {
		t.Errorf("unexpected timeout: %s", cfg.API.Timeout)
	}
	if cfg.API.CSRFCookieName != "xsrf" {
		t.Errorf("unexpected cookie: %s", cfg.API.CSRFCookieName)
	}
	if want := []string{"measures_url", "dimension_image_url"}; !reflect.DeepEqual(cfg.Catalog.DimensionImageKeys, want) {
		t.Errorf("expected %v, got %v", want, cfg.Catalog.DimensionImageKeys)
	}
	if cfg.Storefront.ReadTimeout != 2*time.Second {
		t.Errorf("unexpected read timeout: %s", cfg.Storefront.ReadTimeout)
	}
	if cfg.Storefront.WriteTimeout != 15*time.Second {
		t.Errorf("expected invalid duration to fall back, got %s", cfg.Storefront.WriteTimeout)
	}
	if cfg.Storefront.Currency != "USD" {
		t.Errorf("unexpected currency: %s", cfg.Storefront.Currency)
	}
	if cfg.Credentials.File != "/tmp/creds.yaml" {
		t.Errorf("unexpected credentials file: %s", cfg.Credentials.File)
	}
}

func TestLoadValidationErrors(t *testing.T) {
	env := map[string]string{
		"RAINY_ENV":          "staging",
		"RAINY_API_BASE_URL": "not a url",
	}

	_, err := Load(WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	if err == nil {
		t.Fatalf("expected validation error")
	}
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if want := []string{"Environment", "API.BaseURL"}; !reflect.DeepEqual(vErr.Fields(), want) {
		t.Fatalf("expected fields %v, got %v", want, vErr.Fields())
	}
}

func TestLoadReadsDotEnvWithLowestPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "# local overrides\nRAINY_API_BASE_URL=http://dotenv.local:8000\nexport RAINY_CURRENCY=\"eur\"\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	cfg, err := Load(WithEnvFile(path), WithoutSystemEnv(), WithEnvMap(map[string]string{"RAINY_CURRENCY": "jpy"}))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.API.BaseURL != "http://dotenv.local:8000" {
		t.Errorf("expected base url from .env, got %s", cfg.API.BaseURL)
	}
	if cfg.Storefront.Currency != "JPY" {
		t.Errorf("expected env map to win over .env, got %s", cfg.Storefront.Currency)
	}
}

func TestLoadIgnoresMissingDotEnv(t *testing.T) {
	env := map[string]string{"RAINY_API_BASE_URL": "http://localhost:8000"}
	if _, err := Load(WithEnvFile(filepath.Join(t.TempDir(), "missing.env")), WithEnvMap(env), WithoutSystemEnv()); err != nil {
		t.Fatalf("expected missing .env to be ignored, got %v", err)
	}
}
