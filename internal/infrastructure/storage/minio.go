package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"github.com/johnquangdev/meeting-pipeline/pkg/config"
)

// MinIOClient stores meeting audio blobs
type MinIOClient struct {
	client        *minio.Client
	bucket        string
	publicURL     string // e.g. https://minio.example.com when MinIO sits behind a proxy
	presignExpiry time.Duration
	logger        *zap.Logger
}

// NewMinIOClient connects to MinIO and makes sure the audio bucket exists
func NewMinIOClient(ctx context.Context, cfg *config.StorageConfig, logger *zap.Logger) (*MinIOClient, error) {
	minioClient, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	client := &MinIOClient{
		client:        minioClient,
		bucket:        cfg.BucketName,
		publicURL:     strings.TrimRight(cfg.PublicURL, "/"),
		presignExpiry: cfg.PresignExpiry,
		logger:        logger,
	}
	if client.presignExpiry <= 0 {
		client.presignExpiry = 2 * time.Hour
	}

	if err := client.ensureBucket(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize bucket: %w", err)
	}
	return client, nil
}

// ensureBucket creates the bucket if missing. Objects stay private; the
// transcription vendor reads them through presigned URLs.
func (m *MinIOClient) ensureBucket(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if exists {
		return nil
	}

	if err := m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	if m.logger != nil {
		m.logger.Info("🪣 Created audio bucket", zap.String("bucket", m.bucket))
	}
	return nil
}

// UploadAudio stores an audio blob under objectKey
func (m *MinIOClient) UploadAudio(ctx context.Context, objectKey string, reader io.Reader, size int64, contentType string) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	info, err := m.client.PutObject(ctx, m.bucket, objectKey, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload audio: %w", err)
	}

	if m.logger != nil {
		m.logger.Info("✅ Audio stored",
			zap.String("object_key", objectKey),
			zap.Int64("size", info.Size),
		)
	}
	return nil
}

// PresignAudio returns a time-limited GET URL for objectKey
func (m *MinIOClient) PresignAudio(ctx context.Context, objectKey string) (string, error) {
	u, err := m.client.PresignedGetObject(ctx, m.bucket, objectKey, m.presignExpiry, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}
	return publicize(u, m.publicURL), nil
}

// RemoveAudio deletes objectKey. Removing a missing object is not an error.
func (m *MinIOClient) RemoveAudio(ctx context.Context, objectKey string) error {
	if err := m.client.RemoveObject(ctx, m.bucket, objectKey, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to remove audio: %w", err)
	}
	return nil
}

// Ping checks that the bucket is reachable
func (m *MinIOClient) Ping(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		return fmt.Errorf("bucket %q does not exist", m.bucket)
	}
	return nil
}

// publicize swaps the internal endpoint of a presigned URL for the public one.
// Original: http://minio:9000/bucket/path?query
// Becomes:  https://minio.example.com/bucket/path?query
func publicize(u *url.URL, publicURL string) string {
	if publicURL == "" {
		return u.String()
	}
	return publicURL + u.RequestURI()
}
