package minio

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/FayezAlshami/DTC/internal/app/config"
	"github.com/FayezAlshami/DTC/internal/platform/logger"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MediaStore keeps listing attachments in an S3-compatible bucket. Object
// keys are opaque to callers; presigned URLs are how the outside world
// reads them.
type MediaStore struct {
	client *minio.Client
	bucket string
	logger logger.Logger
}

func NewMediaStore(ctx context.Context, cfg config.MinIOConfig, log logger.Logger) (*MediaStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", cfg.Bucket, err)
		}
		log.Infof("Created media bucket %s", cfg.Bucket)
	}

	return &MediaStore{client: client, bucket: cfg.Bucket, logger: log}, nil
}

// Upload streams one attachment into the bucket and returns its object key.
func (s *MediaStore) Upload(ctx context.Context, listingID string, reader io.Reader, size int64, contentType string) (string, error) {
	objectKey := fmt.Sprintf("%s/%s", listingID, uuid.NewString())

	_, err := s.client.PutObject(ctx, s.bucket, objectKey, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		s.logger.Errorf("Failed to upload media for listing %s: %v", listingID, err)
		return "", fmt.Errorf("failed to upload media: %w", err)
	}
	return objectKey, nil
}

// PresignedURL returns a time-limited read URL for an object key.
func (s *MediaStore) PresignedURL(ctx context.Context, objectKey string, expiry time.Duration) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucket, objectKey, expiry, url.Values{})
	if err != nil {
		s.logger.Errorf("Failed to presign media object %s: %v", objectKey, err)
		return "", fmt.Errorf("failed to presign media object: %w", err)
	}
	return u.String(), nil
}

func (s *MediaStore) Remove(ctx context.Context, objectKey string) error {
	err := s.client.RemoveObject(ctx, s.bucket, objectKey, minio.RemoveObjectOptions{})
	if err != nil {
		s.logger.Errorf("Failed to remove media object %s: %v", objectKey, err)
		return fmt.Errorf("failed to remove media object: %w", err)
	}
	return nil
}
