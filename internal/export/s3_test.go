package export

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubAWS(t *testing.T) {
	t.Helper()
	origLoad, origNew, origPut, origPresign := loadDefaultAWSConfig, newS3ClientFromConfig, putObject, presignGetObject
	t.Cleanup(func() {
		loadDefaultAWSConfig, newS3ClientFromConfig, putObject, presignGetObject = origLoad, origNew, origPut, origPresign
	})
	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, nil
	}
	newS3ClientFromConfig = func(aws.Config, ...func(*s3.Options)) *s3.Client { return &s3.Client{} }
}

func TestExport_UploadsAndPresigns(t *testing.T) {
	stubAWS(t)

	var loaded awsconfig.LoadOptions
	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		for _, fn := range optFns {
			require.NoError(t, fn(&loaded))
		}
		return aws.Config{}, nil
	}
	var opts s3.Options
	newS3ClientFromConfig = func(_ aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		for _, fn := range optFns {
			fn(&opts)
		}
		return &s3.Client{}
	}

	var putKey, putType string
	var body []byte
	putObject = func(_ *s3.Client, _ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		putKey, putType = *in.Key, *in.ContentType
		body, _ = io.ReadAll(in.Body)
		return &s3.PutObjectOutput{}, nil
	}
	var presigned string
	presignGetObject = func(_ *s3.Client, _ context.Context, in *s3.GetObjectInput, _ ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		presigned = *in.Key
		return &v4.PresignedHTTPRequest{URL: "https://s3.example.com/" + *in.Key + "?X-Amz-Signature=x"}, nil
	}

	e := NewS3Exporter(Config{
		Region:    "eu-west-1",
		Endpoint:  "http://127.0.0.1:9000",
		AccessKey: "ak",
		SecretKey: "sk",
		Bucket:    "archives",
		KeyPrefix: "exports",
	}, nil)
	e.now = func() time.Time { return time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC) }

	res, err := e.Export(context.Background(), "docs/site.zip", []byte("PK"))
	require.NoError(t, err)

	assert.Equal(t, "eu-west-1", loaded.Region)
	require.NotNil(t, opts.BaseEndpoint)
	assert.Equal(t, "http://127.0.0.1:9000", *opts.BaseEndpoint)
	assert.True(t, opts.UsePathStyle)

	assert.True(t, strings.HasPrefix(putKey, "exports/2024/03/09/"), putKey)
	assert.True(t, strings.HasSuffix(putKey, "-site.zip"), putKey)
	assert.Equal(t, "application/zip", putType)
	assert.Equal(t, []byte("PK"), body)
	assert.Equal(t, putKey, presigned)
	assert.Equal(t, putKey, res.Key)
	assert.Contains(t, res.URL, "X-Amz-Signature")
}

func TestExport_Errors(t *testing.T) {
	_, err := NewS3Exporter(Config{}, nil).Export(context.Background(), "a.zip", nil)
	assert.ErrorIs(t, err, ErrNotConfigured)

	stubAWS(t)
	loadDefaultAWSConfig = func(context.Context, ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("no credentials")
	}
	_, err = NewS3Exporter(Config{Bucket: "b"}, nil).Export(context.Background(), "a.zip", nil)
	assert.ErrorContains(t, err, "no credentials")

	stubAWS(t)
	putObject = func(*s3.Client, context.Context, *s3.PutObjectInput, ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		return nil, errors.New("access denied")
	}
	_, err = NewS3Exporter(Config{Bucket: "b"}, nil).Export(context.Background(), "a.zip", nil)
	assert.ErrorContains(t, err, "access denied")

	stubAWS(t)
	putObject = func(*s3.Client, context.Context, *s3.PutObjectInput, ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		return &s3.PutObjectOutput{}, nil
	}
	presignGetObject = func(*s3.Client, context.Context, *s3.GetObjectInput, ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return nil, errors.New("clock skew")
	}
	_, err = NewS3Exporter(Config{Bucket: "b"}, nil).Export(context.Background(), "a.zip", nil)
	assert.ErrorContains(t, err, "presign")
}
