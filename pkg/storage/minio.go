package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	forecast "github.com/goliatone/forecast-dashboard/components/forecast"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/sirupsen/logrus"
)

// MinIOStore is a forecast.FileStore backed by an S3-compatible object
// store. Useful for self-hosted deployments that keep forecast attachments
// out of the hosted backend.
type MinIOStore struct {
	client *minio.Client
	bucket string
	urlTTL time.Duration
	logger *logrus.Logger
}

var _ forecast.FileStore = (*MinIOStore)(nil)

// MinIOConfig holds the connection settings for the object store.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	URLTTL    time.Duration
	Logger    *logrus.Logger
}

// NewMinIOStore connects to the object store, creating the bucket when it
// does not exist yet.
func NewMinIOStore(cfg MinIOConfig) (*MinIOStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("storage: create minio client: %w", err)
	}

	ctx := context.Background()
	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("storage: check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("storage: create bucket %s: %w", cfg.Bucket, err)
		}
	}

	ttl := cfg.URLTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &MinIOStore{client: client, bucket: cfg.Bucket, urlTTL: ttl, logger: logger}, nil
}

// Upload stores a blob under the given path.
func (s *MinIOStore) Upload(ctx context.Context, path string, data []byte) error {
	_, err := s.client.PutObject(ctx, s.bucket, path, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	if err != nil {
		return fmt.Errorf("storage: upload %s: %w", path, err)
	}
	s.logger.WithField("path", path).Debug("storage: file uploaded")
	return nil
}

// Download fetches a blob.
func (s *MinIOStore) Download(ctx context.Context, path string) ([]byte, error) {
	object, err := s.client.GetObject(ctx, s.bucket, path, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("storage: get %s: %w", path, err)
	}
	defer object.Close()
	data, err := io.ReadAll(object)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", path, err)
	}
	return data, nil
}

// Remove deletes a blob. Missing objects are not an error.
func (s *MinIOStore) Remove(ctx context.Context, path string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, path, minio.RemoveObjectOptions{}); err != nil {
		errResponse := minio.ToErrorResponse(err)
		if errResponse.Code == "NoSuchKey" {
			return nil
		}
		return fmt.Errorf("storage: remove %s: %w", path, err)
	}
	return nil
}

// URL returns a presigned download URL for a blob.
func (s *MinIOStore) URL(ctx context.Context, path string) (string, error) {
	url, err := s.client.PresignedGetObject(ctx, s.bucket, path, s.urlTTL, nil)
	if err != nil {
		return "", fmt.Errorf("storage: presign %s: %w", path, err)
	}
	return url.String(), nil
}
