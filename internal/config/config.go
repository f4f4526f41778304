// Package config handles configuration for the swiftvfs command,
// including defaults, JSON overlay, and command-line flags.
package config

import (
	"log/slog"
	"time"

	"github.com/dmitrijs2005/swiftvfs/internal/admin"
	"github.com/dmitrijs2005/swiftvfs/internal/export"
	"github.com/dmitrijs2005/swiftvfs/internal/scope"
)

// Config holds runtime settings for the swiftvfs command.
//
// Fields:
//   - StorageURL / Account / Container / SitePrefix: the Swift scope every path is resolved in.
//   - DefaultPageSpace: page space used when a token is issued without a suffix.
//   - TempURLKey / TempURLDigest: container tempurl key and digest for local signing.
//   - OracleURL / OracleToken: host signing endpoints; when set, no key material is needed locally.
//   - JWKSEnabled / JWKSURL / MainKeyID / PrivateKeyFile: token signing and verification keys.
//   - TokenValidity / SignatureTTL: lifetimes of issued tokens and per-request admin signatures.
//   - StateDSN: sqlite database for cached tokens and file listings.
//   - S3*: optional archive export target.
type Config struct {
	StorageURL       string
	Account          string
	Container        string
	SitePrefix       string
	DefaultPageSpace string

	TempURLKey    string
	TempURLDigest string
	OracleURL     string
	OracleToken   string

	JWKSEnabled    bool
	JWKSURL        string
	MainKeyID      string
	PrivateKeyFile string

	TokenValidity time.Duration
	SignatureTTL  time.Duration

	StateDSN string

	S3Bucket       string
	S3Region       string
	S3BaseEndpoint string
	S3AccessKey    string
	S3SecretKey    string
	S3KeyPrefix    string
	S3LinkTTL      time.Duration

	LogLevel string
}

// LoadDefaults populates c with development defaults.
func (c *Config) LoadDefaults() {
	c.StorageURL = "http://127.0.0.1:8080/v1"
	c.Account = "AUTH_test"
	c.Container = "vfs"
	c.DefaultPageSpace = "public"
	c.TempURLDigest = "sha256"
	c.JWKSEnabled = true
	c.PrivateKeyFile = "swiftvfs-keys.json"
	c.TokenValidity = admin.DefaultValidity
	c.SignatureTTL = 5 * time.Minute
	c.StateDSN = "swiftvfs.db"
	c.S3Region = "us-east-1"
	c.S3KeyPrefix = "exports"
	c.S3LinkTTL = 15 * time.Minute
	c.LogLevel = "info"
}

// Load builds a Config by applying defaults, then overlaying values from an
// optional JSON file named by -c/-config and finally from flags in args.
// Arguments not recognized as config flags are returned in order.
func Load(args []string) (*Config, []string, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJson(cfg, args); err != nil {
		return nil, nil, err
	}
	rest, err := parseFlags(cfg, args)
	if err != nil {
		return nil, nil, err
	}
	return cfg, rest, nil
}

// Scope returns the storage scope described by c.
func (c *Config) Scope() scope.Config {
	return scope.Config{
		StorageURL: c.StorageURL,
		Account:    c.Account,
		Container:  c.Container,
		SitePrefix: c.SitePrefix,
	}
}

// Keys returns the token key settings described by c.
func (c *Config) Keys() admin.KeyConfig {
	return admin.KeyConfig{Enabled: c.JWKSEnabled, JWKSURL: c.JWKSURL, MainKeyID: c.MainKeyID}
}

// Export returns the archive export settings described by c.
func (c *Config) Export() export.Config {
	return export.Config{
		Region:    c.S3Region,
		Endpoint:  c.S3BaseEndpoint,
		AccessKey: c.S3AccessKey,
		SecretKey: c.S3SecretKey,
		Bucket:    c.S3Bucket,
		KeyPrefix: c.S3KeyPrefix,
		LinkTTL:   c.S3LinkTTL,
	}
}

// Level maps LogLevel to a slog level. Unknown names select info.
func (c *Config) Level() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return l
}
