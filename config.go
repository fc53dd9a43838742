package vyakta

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/parth-105/Vyakta/media"
)

// SiteConfig holds all configuration for a Vyakta site.
type SiteConfig struct {
	Name        string `yaml:"name"`        // Site name (default "Vyakta")
	URL         string `yaml:"url"`         // Canonical URL (default "http://localhost:3000")
	Description string `yaml:"description"` // Site description for RSS and meta tags
	Author      string `yaml:"author"`      // Author name for the feed

	Addr            string `yaml:"addr"`              // Listen address (default ":3000")
	DatabasePath    string `yaml:"database_path"`     // SQLite path (default "data/vyakta.db")
	SearchIndexPath string `yaml:"search_index_path"` // Bleve index dir (default "data/search.bleve"), "memory" for in-memory

	AdminEmail    string `yaml:"admin_email"`    // Bootstrap admin, created when no users exist
	AdminPassword string `yaml:"admin_password"` // Bootstrap admin password
	SessionSecret string `yaml:"session_secret"` // Required: session encryption secret
	CookieSecure  bool   `yaml:"cookie_secure"`  // Set true for HTTPS

	FeedCacheTTL    time.Duration `yaml:"feed_cache_ttl"`   // Feed and sitemap cache TTL (default 5m)
	RecountInterval time.Duration `yaml:"recount_interval"` // Category recount poll interval (default 30s)
	ViewBuffer      int           `yaml:"view_buffer"`      // Pending view increments (default 1024)

	LogLevel  string `yaml:"log_level"`  // debug|info|warn|error (default info)
	LogFormat string `yaml:"log_format"` // json|console (default json)

	Media MediaConfig `yaml:"media"`
}

// MediaConfig selects where uploaded images are stored.
type MediaConfig struct {
	Provider  string `yaml:"provider"` // local|cloudinary (default local)
	CloudName string `yaml:"cloud_name"`
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	UploadDir string `yaml:"upload_dir"` // local provider only (default "data/uploads")
}

// LoadConfig reads the YAML file at path, when given, applies VYAKTA_*
// environment overrides and fills defaults.
func LoadConfig(path string) (SiteConfig, error) {
	var cfg SiteConfig
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("unmarshal config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	cfg.setDefaults()
	return cfg, nil
}

func (c *SiteConfig) applyEnv() error {
	c.Name = EnvOr("VYAKTA_SITE_NAME", c.Name)
	c.URL = EnvOr("VYAKTA_SITE_URL", c.URL)
	c.Description = EnvOr("VYAKTA_SITE_DESCRIPTION", c.Description)
	c.Author = EnvOr("VYAKTA_SITE_AUTHOR", c.Author)
	c.Addr = EnvOr("VYAKTA_ADDR", c.Addr)
	c.DatabasePath = EnvOr("VYAKTA_DATABASE_PATH", c.DatabasePath)
	c.SearchIndexPath = EnvOr("VYAKTA_SEARCH_INDEX_PATH", c.SearchIndexPath)
	c.AdminEmail = EnvOr("VYAKTA_ADMIN_EMAIL", c.AdminEmail)
	c.AdminPassword = EnvOr("VYAKTA_ADMIN_PASSWORD", c.AdminPassword)
	c.SessionSecret = EnvOr("VYAKTA_SESSION_SECRET", c.SessionSecret)
	c.LogLevel = EnvOr("VYAKTA_LOG_LEVEL", c.LogLevel)
	c.LogFormat = EnvOr("VYAKTA_LOG_FORMAT", c.LogFormat)
	c.Media.Provider = EnvOr("VYAKTA_MEDIA_PROVIDER", c.Media.Provider)
	c.Media.CloudName = EnvOr("CLOUDINARY_CLOUD_NAME", c.Media.CloudName)
	c.Media.APIKey = EnvOr("CLOUDINARY_API_KEY", c.Media.APIKey)
	c.Media.APISecret = EnvOr("CLOUDINARY_API_SECRET", c.Media.APISecret)
	c.Media.UploadDir = EnvOr("VYAKTA_UPLOAD_DIR", c.Media.UploadDir)

	if v := os.Getenv("VYAKTA_COOKIE_SECURE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("VYAKTA_COOKIE_SECURE: %w", err)
		}
		c.CookieSecure = b
	}
	if v := os.Getenv("VYAKTA_FEED_CACHE_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("VYAKTA_FEED_CACHE_TTL: %w", err)
		}
		c.FeedCacheTTL = d
	}
	if v := os.Getenv("VYAKTA_RECOUNT_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("VYAKTA_RECOUNT_INTERVAL: %w", err)
		}
		c.RecountInterval = d
	}
	return nil
}

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "Vyakta"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.DatabasePath == "" {
		c.DatabasePath = "data/vyakta.db"
	}
	if c.SearchIndexPath == "" {
		c.SearchIndexPath = "data/search.bleve"
	}
	if c.FeedCacheTTL == 0 {
		c.FeedCacheTTL = 5 * time.Minute
	}
	if c.RecountInterval == 0 {
		c.RecountInterval = 30 * time.Second
	}
	if c.ViewBuffer == 0 {
		c.ViewBuffer = 1024
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "json"
	}
	if c.Media.Provider == "" {
		c.Media.Provider = "local"
	}
	if c.Media.UploadDir == "" {
		c.Media.UploadDir = "data/uploads"
	}
}

// Validate reports configuration that would stop the server from starting.
func (c SiteConfig) Validate() error {
	var errs []error
	if c.SessionSecret == "" {
		errs = append(errs, errors.New("session_secret is required"))
	}
	if (c.AdminEmail == "") != (c.AdminPassword == "") {
		errs = append(errs, errors.New("admin_email and admin_password must be set together"))
	}
	switch c.Media.Provider {
	case "local":
	case "cloudinary":
		if c.Media.CloudName == "" || c.Media.APIKey == "" || c.Media.APISecret == "" {
			errs = append(errs, errors.New("cloudinary media needs cloud_name, api_key and api_secret"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown media provider %q", c.Media.Provider))
	}
	return errors.Join(errs...)
}

// Option configures additional App behavior.
type Option func(*App)

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback receives the App after the built-in routes are registered.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithClock replaces the service clock. Tests use it to pin time.
func WithClock(now func() time.Time) Option {
	return func(a *App) {
		a.now = now
	}
}

// WithMediaHost replaces the configured media host.
func WithMediaHost(h media.Host) Option {
	return func(a *App) {
		a.media = h
	}
}

// EnvOr returns the value of the environment variable key, or fallback if empty.
func EnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
