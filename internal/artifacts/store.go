// Package artifacts stores rendered export files in object storage so
// that generated documents survive beyond the download response.
package artifacts

import (
	"bytes"
	"context"
	"fmt"

	"configurator_backend/platform/config"
	"configurator_backend/platform/logger"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Store uploads export artifacts to a MinIO bucket.
type Store struct {
	client *minio.Client
	bucket string
	log    *logger.Logger
}

// New creates an artifact store from MinIO configuration.
func New(cfg config.MinIOConfig, log *logger.Logger) (*Store, error) {
	client, err := minio.New(cfg.GetMinIOEndpoint(), &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.GetMinIOAccessKey(), cfg.GetMinIOSecretKey(), ""),
		Secure: cfg.GetMinIOUseSSL(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &Store{
		client: client,
		bucket: cfg.GetMinioBucketExports(),
		log:    log,
	}, nil
}

// EnsureBucket creates the export bucket if it does not exist yet.
func (s *Store) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", s.bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", s.bucket, err)
	}
	s.log.Info("created export bucket", "bucket", s.bucket)
	return nil
}

// Put uploads one rendered artifact under the given object name.
func (s *Store) Put(ctx context.Context, objectName, contentType string, data []byte) error {
	_, err := s.client.PutObject(ctx, s.bucket, objectName,
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType},
	)
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", objectName, err)
	}
	return nil
}
