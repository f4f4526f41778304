package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/swiftvfs/internal/flagx"
	"github.com/dmitrijs2005/swiftvfs/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Durations
// accept strings like "24h" or integer nanoseconds. Pointer fields tell an
// explicit false apart from an absent key.
type JsonConfig struct {
	StorageURL       string         `json:"storage_url"`
	Account          string         `json:"account"`
	Container        string         `json:"container"`
	SitePrefix       string         `json:"site_prefix"`
	DefaultPageSpace string         `json:"default_page_space"`
	TempURLKey       string         `json:"temp_url_key"`
	TempURLDigest    string         `json:"temp_url_digest"`
	OracleURL        string         `json:"oracle_url"`
	OracleToken      string         `json:"oracle_token"`
	JWKSEnabled      *bool          `json:"jwks_enabled"`
	JWKSURL          string         `json:"jwks_url"`
	MainKeyID        string         `json:"main_key_id"`
	PrivateKeyFile   string         `json:"private_key_file"`
	TokenValidity    timex.Duration `json:"token_validity"`
	SignatureTTL     timex.Duration `json:"signature_ttl"`
	StateDSN         string         `json:"state_dsn"`
	S3Bucket         string         `json:"s3_bucket"`
	S3Region         string         `json:"s3_region"`
	S3BaseEndpoint   string         `json:"s3_base_endpoint"`
	S3AccessKey      string         `json:"s3_access_key"`
	S3SecretKey      string         `json:"s3_secret_key"`
	S3KeyPrefix      string         `json:"s3_key_prefix"`
	S3LinkTTL        timex.Duration `json:"s3_link_ttl"`
	LogLevel         string         `json:"log_level"`
}

// parseJson overlays cfg with the JSON file named by -c or -config in args.
// Keys absent from the file keep their current values. Without either flag
// nothing is loaded.
func parseJson(cfg *Config, args []string) error {
	path := flagx.ConfigPath(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	setString(&cfg.StorageURL, jc.StorageURL)
	setString(&cfg.Account, jc.Account)
	setString(&cfg.Container, jc.Container)
	setString(&cfg.SitePrefix, jc.SitePrefix)
	setString(&cfg.DefaultPageSpace, jc.DefaultPageSpace)
	setString(&cfg.TempURLKey, jc.TempURLKey)
	setString(&cfg.TempURLDigest, jc.TempURLDigest)
	setString(&cfg.OracleURL, jc.OracleURL)
	setString(&cfg.OracleToken, jc.OracleToken)
	if jc.JWKSEnabled != nil {
		cfg.JWKSEnabled = *jc.JWKSEnabled
	}
	setString(&cfg.JWKSURL, jc.JWKSURL)
	setString(&cfg.MainKeyID, jc.MainKeyID)
	setString(&cfg.PrivateKeyFile, jc.PrivateKeyFile)
	if jc.TokenValidity.Duration > 0 {
		cfg.TokenValidity = jc.TokenValidity.Duration
	}
	if jc.SignatureTTL.Duration > 0 {
		cfg.SignatureTTL = jc.SignatureTTL.Duration
	}
	setString(&cfg.StateDSN, jc.StateDSN)
	setString(&cfg.S3Bucket, jc.S3Bucket)
	setString(&cfg.S3Region, jc.S3Region)
	setString(&cfg.S3BaseEndpoint, jc.S3BaseEndpoint)
	setString(&cfg.S3AccessKey, jc.S3AccessKey)
	setString(&cfg.S3SecretKey, jc.S3SecretKey)
	setString(&cfg.S3KeyPrefix, jc.S3KeyPrefix)
	if jc.S3LinkTTL.Duration > 0 {
		cfg.S3LinkTTL = jc.S3LinkTTL.Duration
	}
	setString(&cfg.LogLevel, jc.LogLevel)
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
