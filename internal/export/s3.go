// Package export uploads generated archives to an S3-compatible bucket,
// such as the Swift s3api middleware or MinIO, and returns a presigned
// download link.
package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/dmitrijs2005/swiftvfs/internal/logging"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		return c.PutObject(ctx, in, optFns...)
	}

	presignGetObject = func(c *s3.Client, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return s3.NewPresignClient(c).PresignGetObject(ctx, in, optFns...)
	}
)

var ErrNotConfigured = errors.New("export: no bucket configured")

// Config locates the bucket.
type Config struct {
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	// KeyPrefix is prepended to every object key.
	KeyPrefix string
	// LinkTTL is the validity of the returned download link.
	LinkTTL time.Duration
}

// Result locates an exported archive.
type Result struct {
	Key string
	URL string
}

// S3Exporter uploads archives.
type S3Exporter struct {
	cfg Config
	log logging.Logger
	now func() time.Time
}

func NewS3Exporter(cfg Config, log logging.Logger) *S3Exporter {
	if cfg.LinkTTL <= 0 {
		cfg.LinkTTL = 15 * time.Minute
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	return &S3Exporter{cfg: cfg, log: logging.OrNop(log), now: time.Now}
}

func (e *S3Exporter) client(ctx context.Context) (*s3.Client, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(e.cfg.Region)}
	if e.cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(e.cfg.AccessKey, e.cfg.SecretKey, "")))
	}
	cfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("export: aws config: %w", err)
	}

	return newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if e.cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(e.cfg.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// Key returns the object key an archive called name is stored under.
func (e *S3Exporter) Key(name string) string {
	d := e.now().UTC()
	return path.Join(e.cfg.KeyPrefix, d.Format("2006/01/02"), uuid.NewString()+"-"+path.Base(name))
}

// Export uploads archive as name and returns a presigned link to it.
func (e *S3Exporter) Export(ctx context.Context, name string, archive []byte) (Result, error) {
	if e.cfg.Bucket == "" {
		return Result{}, ErrNotConfigured
	}
	c, err := e.client(ctx)
	if err != nil {
		return Result{}, err
	}

	bucket := e.cfg.Bucket
	key := e.Key(name)
	_, err = putObject(c, ctx, &s3.PutObjectInput{
		Bucket:        &bucket,
		Key:           &key,
		Body:          bytes.NewReader(archive),
		ContentLength: aws.Int64(int64(len(archive))),
		ContentType:   aws.String("application/zip"),
	})
	if err != nil {
		return Result{}, fmt.Errorf("export: put %s: %w", key, err)
	}

	req, err := presignGetObject(c, ctx, &s3.GetObjectInput{Bucket: &bucket, Key: &key}, s3.WithPresignExpires(e.cfg.LinkTTL))
	if err != nil {
		return Result{}, fmt.Errorf("export: presign %s: %w", key, err)
	}

	e.log.Info(ctx, "archive exported", "bucket", bucket, "key", key, "size", len(archive))
	return Result{Key: key, URL: req.URL}, nil
}
