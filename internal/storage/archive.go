package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"

	"github.com/tupakrantina/backoffice/pkg/config"
)

// ErrDisabled is returned by New when S3_ENABLED is false
var ErrDisabled = errors.New("report archive is disabled")

// Archive stores generated reports in an S3-compatible bucket
type Archive struct {
	client *minio.Client
	bucket string
	secure bool
	log    zerolog.Logger
}

// New connects to the configured endpoint. It does not touch the bucket;
// call EnsureBucket once at startup.
func New(cfg config.StorageConfig, log zerolog.Logger) (*Archive, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("S3_ENDPOINT is required when S3_ENABLED=true")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create s3 client: %w", err)
	}

	return &Archive{
		client: client,
		bucket: cfg.Bucket,
		secure: cfg.UseSSL,
		log:    log.With().Str("component", "storage").Logger(),
	}, nil
}

// EnsureBucket creates the bucket when it does not exist yet
func (a *Archive) EnsureBucket(ctx context.Context) error {
	exists, err := a.client.BucketExists(ctx, a.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", a.bucket, err)
	}
	if exists {
		return nil
	}
	if err := a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket %s: %w", a.bucket, err)
	}
	a.log.Info().Str("bucket", a.bucket).Msg("Bucket created")
	return nil
}

// Upload stores data under key and returns the object URL
func (a *Archive) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	key = strings.TrimPrefix(key, "/")
	info, err := a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("put %s: %w", key, err)
	}

	a.log.Info().
		Str("bucket", a.bucket).
		Str("key", key).
		Int64("size", info.Size).
		Msg("Object stored")

	return ObjectURL(a.client.EndpointURL(), a.bucket, key), nil
}

// ObjectURL is the path-style URL of an object
func ObjectURL(endpoint *url.URL, bucket, key string) string {
	u := *endpoint
	u.Path = "/" + bucket + "/" + strings.TrimPrefix(key, "/")
	return u.String()
}
