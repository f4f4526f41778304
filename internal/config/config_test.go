package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/swiftvfs/internal/scope"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "http://127.0.0.1:8080/v1", c.StorageURL)
	assert.Equal(t, "AUTH_test", c.Account)
	assert.Equal(t, "vfs", c.Container)
	assert.Equal(t, "public", c.DefaultPageSpace)
	assert.Equal(t, "sha256", c.TempURLDigest)
	assert.True(t, c.JWKSEnabled)
	assert.Equal(t, 24*time.Hour, c.TokenValidity)
	assert.Equal(t, 5*time.Minute, c.SignatureTTL)
	assert.Equal(t, 15*time.Minute, c.S3LinkTTL)
	assert.Equal(t, "info", c.LogLevel)
}

func TestLoad_FlagsOverrideJSON(t *testing.T) {
	path := writeTempJSON(t, map[string]any{
		"container":   "from-json",
		"site_prefix": "site-json",
	})

	c, rest, err := Load([]string{"-c", path, "token", "-site-prefix", "site-flag", "-user", "alice"})
	require.NoError(t, err)

	assert.Equal(t, "from-json", c.Container)
	assert.Equal(t, "site-flag", c.SitePrefix)
	assert.Equal(t, []string{"token", "-user", "alice"}, rest)
}

func TestLoad_Errors(t *testing.T) {
	_, _, err := Load([]string{"-config", "/does/not/exist.json"})
	assert.Error(t, err)

	_, _, err = Load([]string{"-token-validity", "forever"})
	assert.Error(t, err)
}

func TestConfig_Views(t *testing.T) {
	var c Config
	c.LoadDefaults()
	c.SitePrefix = "site-1"
	c.MainKeyID = "main"
	c.S3Bucket = "archives"

	assert.Equal(t, scope.Config{
		StorageURL: "http://127.0.0.1:8080/v1",
		Account:    "AUTH_test",
		Container:  "vfs",
		SitePrefix: "site-1",
	}, c.Scope())

	keys := c.Keys()
	assert.True(t, keys.Enabled)
	assert.Equal(t, "main", keys.MainKeyID)

	exp := c.Export()
	assert.Equal(t, "archives", exp.Bucket)
	assert.Equal(t, 15*time.Minute, exp.LinkTTL)
}

func TestConfig_Level(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
		"bogus": slog.LevelInfo,
		"":      slog.LevelInfo,
	}
	for in, want := range tests {
		c := Config{LogLevel: in}
		assert.Equal(t, want, c.Level(), in)
	}
}
