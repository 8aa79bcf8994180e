package spacetraveling

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// SiteConfig holds all configuration for a spacetraveling site.
type SiteConfig struct {
	Name        string `yaml:"name"`        // Site name (default "spacetraveling")
	URL         string `yaml:"url"`         // Canonical URL (default "http://localhost:3000")
	Description string `yaml:"description"` // Site description for RSS and meta tags
	Author      string `yaml:"author"`      // Author name for JSON-LD

	Addr string `yaml:"addr"` // Listen address (default ":3000")

	PrismicEndpoint    string        `yaml:"prismic_endpoint"`     // Required: API root, e.g. https://repo.cdn.prismic.io/api/v2
	PrismicAccessToken string        `yaml:"prismic_access_token"` // Optional repository token
	DocumentType       string        `yaml:"document_type"`        // Custom type of blog posts (default "posts")
	Lang               string        `yaml:"lang"`                 // Content language, empty for the repository default
	Locale             string        `yaml:"locale"`               // Date display locale (default "pt-BR")
	PageSize           int           `yaml:"page_size"`            // Posts per listing page (default 2)
	RequestTimeout     time.Duration `yaml:"request_timeout"`      // Per CMS request (default 10s)
	MaxRetries         uint          `yaml:"max_retries"`          // CMS attempts per call (default 3)
	RefCacheTTL        time.Duration `yaml:"ref_cache_ttl"`        // Master ref cache lifetime (default 30s)
	FeedTTL            time.Duration `yaml:"feed_ttl"`             // Idle "load more" feed lifetime (default 30m)
	MaxFeeds           int           `yaml:"max_feeds"`            // Live "load more" feeds kept at once (default 10000)

	SessionSecret string `yaml:"session_secret"` // Preview session secret; empty disables preview
	CookieSecure  bool   `yaml:"cookie_secure"`  // Set true for HTTPS

	LogLevel string `yaml:"log_level"` // debug, info, warn, error (default "info")
}

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "spacetraveling"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.DocumentType == "" {
		c.DocumentType = "posts"
	}
	if c.Locale == "" {
		c.Locale = "pt-BR"
	}
	if c.PageSize <= 0 {
		c.PageSize = 2
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = 10 * time.Second
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.RefCacheTTL == 0 {
		c.RefCacheTTL = 30 * time.Second
	}
	if c.FeedTTL == 0 {
		c.FeedTTL = 30 * time.Minute
	}
	if c.MaxFeeds <= 0 {
		c.MaxFeeds = 10000
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// LoadConfig reads .env (if present), then the YAML file at path (if
// non-empty and present), then environment overrides, then applies defaults.
func LoadConfig(path string) (SiteConfig, error) {
	_ = godotenv.Load()

	var cfg SiteConfig
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return SiteConfig{}, fmt.Errorf("config: parse %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return SiteConfig{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return SiteConfig{}, err
	}
	cfg.setDefaults()
	return cfg, nil
}

func applyEnv(cfg *SiteConfig) error {
	str := map[string]*string{
		"SITE_NAME":              &cfg.Name,
		"SITE_URL":               &cfg.URL,
		"SITE_DESCRIPTION":       &cfg.Description,
		"SITE_AUTHOR":            &cfg.Author,
		"ADDR":                   &cfg.Addr,
		"PRISMIC_API_ENDPOINT":   &cfg.PrismicEndpoint,
		"PRISMIC_ACCESS_TOKEN":   &cfg.PrismicAccessToken,
		"PRISMIC_DOCUMENT_TYPE":  &cfg.DocumentType,
		"PRISMIC_LANG":           &cfg.Lang,
		"LOCALE":                 &cfg.Locale,
		"PREVIEW_SESSION_SECRET": &cfg.SessionSecret,
		"LOG_LEVEL":              &cfg.LogLevel,
	}
	for key, dst := range str {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	if v := os.Getenv("PAGE_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: PAGE_SIZE: %w", err)
		}
		cfg.PageSize = n
	}
	if v := os.Getenv("REQUEST_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: REQUEST_TIMEOUT: %w", err)
		}
		cfg.RequestTimeout = d
	}
	if v := os.Getenv("COOKIE_SECURE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: COOKIE_SECURE: %w", err)
		}
		cfg.CookieSecure = b
	}
	return nil
}

// Option configures additional App behavior.
type Option func(*App)

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback receives the App before the server starts.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithStaticDir sets the directory for user-owned static assets (default "public").
func WithStaticDir(dir string) Option {
	return func(a *App) {
		a.staticDir = dir
	}
}

// WithDocumentSource replaces the Prismic client built from the config.
func WithDocumentSource(src DocumentSource) Option {
	return func(a *App) {
		a.source = src
	}
}

// EnvOr returns the value of the environment variable key, or fallback if empty.
func EnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
