package vyakta

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "Vyakta", cfg.Name)
	assert.Equal(t, ":3000", cfg.Addr)
	assert.Equal(t, "data/vyakta.db", cfg.DatabasePath)
	assert.Equal(t, 5*time.Minute, cfg.FeedCacheTTL)
	assert.Equal(t, "local", cfg.Media.Provider)
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vyakta.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: Field Notes
url: https://notes.example.com
session_secret: from-file
feed_cache_ttl: 10m
media:
  provider: cloudinary
  cloud_name: demo
`), 0o644))

	t.Setenv("VYAKTA_SITE_NAME", "Env Notes")
	t.Setenv("CLOUDINARY_API_KEY", "key")
	t.Setenv("CLOUDINARY_API_SECRET", "secret")
	t.Setenv("VYAKTA_COOKIE_SECURE", "true")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "Env Notes", cfg.Name, "environment wins over the file")
	assert.Equal(t, "https://notes.example.com", cfg.URL)
	assert.Equal(t, 10*time.Minute, cfg.FeedCacheTTL)
	assert.True(t, cfg.CookieSecure)
	assert.Equal(t, "demo", cfg.Media.CloudName)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	t.Setenv("VYAKTA_RECOUNT_INTERVAL", "soon")
	_, err = LoadConfig("")
	assert.ErrorContains(t, err, "VYAKTA_RECOUNT_INTERVAL")
}

func TestConfigValidate(t *testing.T) {
	cfg := SiteConfig{}
	cfg.setDefaults()
	assert.ErrorContains(t, cfg.Validate(), "session_secret is required")

	cfg.SessionSecret = "secret"
	cfg.AdminEmail = "admin@example.com"
	assert.ErrorContains(t, cfg.Validate(), "must be set together")

	cfg.AdminPassword = "password"
	cfg.Media.Provider = "s3"
	assert.ErrorContains(t, cfg.Validate(), `unknown media provider "s3"`)

	cfg.Media.Provider = "cloudinary"
	assert.ErrorContains(t, cfg.Validate(), "cloudinary media needs")
}
