// Package minio implements blob.Store on any S3-compatible object storage
// using the MinIO client.
package minio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/phrazzld/atelier-api/internal/blob"
	"github.com/phrazzld/atelier-api/internal/config"
)

// MaxSignTTL is the longest expiry S3 accepts for a presigned URL.
const MaxSignTTL = 7 * 24 * time.Hour

// objectAPI is the subset of *minio.Client the store uses.
type objectAPI interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader,
		objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
	PresignedGetObject(ctx context.Context, bucketName, objectName string,
		expires time.Duration, reqParams url.Values) (*url.URL, error)
}

// Store is a blob.Store backed by an S3-compatible bucket.
type Store struct {
	client  objectAPI
	bucket  string
	baseURL string
	logger  *slog.Logger
}

var _ blob.Store = (*Store)(nil)

// NewStore connects to the configured endpoint.
func NewStore(cfg config.StorageConfig, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create object storage client: %w", err)
	}
	return newStore(client, cfg, logger), nil
}

func newStore(client objectAPI, cfg config.StorageConfig, logger *slog.Logger) *Store {
	return &Store{
		client:  client,
		bucket:  cfg.Bucket,
		baseURL: publicBaseURL(cfg),
		logger:  logger.With("component", "blob_store", "bucket", cfg.Bucket),
	}
}

// publicBaseURL is the prefix objects are reachable under. Without an
// explicit public URL it is the path-style bucket URL on the endpoint.
func publicBaseURL(cfg config.StorageConfig) string {
	if cfg.PublicBaseURL != "" {
		return strings.TrimRight(cfg.PublicBaseURL, "/")
	}
	scheme := "http"
	if cfg.UseSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s", scheme, strings.TrimRight(cfg.Endpoint, "/"), cfg.Bucket)
}

// Upload implements blob.Store.
func (s *Store) Upload(ctx context.Context, data []byte, objectName, contentType string) (string, error) {
	if err := blob.ValidateObjectName(objectName); err != nil {
		return "", err
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	info, err := s.client.PutObject(ctx, s.bucket, objectName, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", blob.ErrUploadFailed, objectName, err)
	}

	s.logger.DebugContext(ctx, "object uploaded",
		"object", objectName,
		"size", info.Size)
	return s.baseURL + "/" + objectName, nil
}

// Delete implements blob.Store.
func (s *Store) Delete(ctx context.Context, objectName string) error {
	if err := blob.ValidateObjectName(objectName); err != nil {
		return err
	}
	if err := s.client.RemoveObject(ctx, s.bucket, objectName, minio.RemoveObjectOptions{}); err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil
		}
		return fmt.Errorf("%w: %s: %v", blob.ErrDeleteFailed, objectName, err)
	}
	return nil
}

// Sign implements blob.Store. ttl is clamped to (0, MaxSignTTL].
func (s *Store) Sign(ctx context.Context, objectName string, ttl time.Duration) (string, error) {
	if err := blob.ValidateObjectName(objectName); err != nil {
		return "", err
	}
	if ttl <= 0 || ttl > MaxSignTTL {
		ttl = MaxSignTTL
	}

	u, err := s.client.PresignedGetObject(ctx, s.bucket, objectName, ttl, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", blob.ErrSignFailed, objectName, err)
	}
	return u.String(), nil
}
