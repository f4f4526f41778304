package config

import (
	"flag"
	"io"

	"github.com/dmitrijs2005/swiftvfs/internal/flagx"
)

// parseFlags overlays cfg with the global flags found in args and returns
// the arguments it did not consume, subcommand name included.
//
// Durations use Go syntax, e.g. -token-validity 48h.
func parseFlags(cfg *Config, args []string) ([]string, error) {
	fs := flag.NewFlagSet("swiftvfs", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	// Recognized so they are not left for subcommands; parseJson reads them.
	var configPath string
	fs.StringVar(&configPath, "c", "", "JSON config file")
	fs.StringVar(&configPath, "config", "", "JSON config file")

	fs.StringVar(&cfg.StorageURL, "storage-url", cfg.StorageURL, "Swift endpoint including API version")
	fs.StringVar(&cfg.Account, "account", cfg.Account, "Swift account")
	fs.StringVar(&cfg.Container, "container", cfg.Container, "Swift container")
	fs.StringVar(&cfg.SitePrefix, "site-prefix", cfg.SitePrefix, "site prefix inside the container")
	fs.StringVar(&cfg.DefaultPageSpace, "default-page-space", cfg.DefaultPageSpace, "page space for tokens without a suffix")

	fs.StringVar(&cfg.TempURLKey, "temp-url-key", cfg.TempURLKey, "container tempurl key")
	fs.StringVar(&cfg.TempURLDigest, "temp-url-digest", cfg.TempURLDigest, "tempurl digest: sha1, sha256 or sha512")
	fs.StringVar(&cfg.OracleURL, "oracle-url", cfg.OracleURL, "base URL of the host signing endpoints")
	fs.StringVar(&cfg.OracleToken, "oracle-token", cfg.OracleToken, "bearer token for the host signing endpoints")

	fs.BoolVar(&cfg.JWKSEnabled, "jwks", cfg.JWKSEnabled, "enable signed tokens")
	fs.StringVar(&cfg.JWKSURL, "jwks-url", cfg.JWKSURL, "URL publishing the verification keys")
	fs.StringVar(&cfg.MainKeyID, "main-key", cfg.MainKeyID, "preferred signing key id")
	fs.StringVar(&cfg.PrivateKeyFile, "key-file", cfg.PrivateKeyFile, "private JWK set for local signing")

	fs.DurationVar(&cfg.TokenValidity, "token-validity", cfg.TokenValidity, "default lifetime of issued tokens")
	fs.DurationVar(&cfg.SignatureTTL, "signature-ttl", cfg.SignatureTTL, "lifetime of per-request admin signatures")

	fs.StringVar(&cfg.StateDSN, "state", cfg.StateDSN, "sqlite DSN of the local state database")

	fs.StringVar(&cfg.S3Bucket, "s3-bucket", cfg.S3Bucket, "S3 bucket for archive export")
	fs.StringVar(&cfg.S3Region, "s3-region", cfg.S3Region, "S3 region")
	fs.StringVar(&cfg.S3BaseEndpoint, "s3-endpoint", cfg.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&cfg.S3AccessKey, "s3-access-key", cfg.S3AccessKey, "S3 access key")
	fs.StringVar(&cfg.S3SecretKey, "s3-secret-key", cfg.S3SecretKey, "S3 secret key")
	fs.StringVar(&cfg.S3KeyPrefix, "s3-prefix", cfg.S3KeyPrefix, "key prefix for exported archives")
	fs.DurationVar(&cfg.S3LinkTTL, "s3-link-ttl", cfg.S3LinkTTL, "lifetime of presigned download links")

	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")

	return flagx.Parse(fs, args)
}
