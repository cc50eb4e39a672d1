package gcsuploader

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/storage"
	"github.com/fblacp/scales/internal/gcs"
)

// StorageService is re-exported for callers that only import this package.
type StorageService = gcs.StorageService

// GCSStorageService is the concrete implementation of StorageService
// that interacts with Google Cloud Storage through a shared client.
type GCSStorageService struct {
	client *storage.Client
}

// NewGCSStorageService creates a client using Application Default
// Credentials.
func NewGCSStorageService(ctx context.Context) (*GCSStorageService, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("NewGCSStorageService: create storage client: %w", err)
	}
	return &GCSStorageService{client: client}, nil
}

// Close closes the storage client.
func (s *GCSStorageService) Close() error {
	return s.client.Close()
}

// UploadBytes delegates to UploadBytesWithClient.
func (s *GCSStorageService) UploadBytes(ctx context.Context, bucketName, objectName string, data []byte, contentType string) (string, error) {
	return UploadBytesWithClient(ctx, s.client, bucketName, objectName, data, contentType)
}

// FetchFromGCS delegates to FetchFromGCSWithClient.
func (s *GCSStorageService) FetchFromGCS(ctx context.Context, gcsURI string) ([]byte, error) {
	return FetchFromGCSWithClient(ctx, s.client, gcsURI)
}

// SignedURL delegates to SignedURLWithClient.
func (s *GCSStorageService) SignedURL(ctx context.Context, bucketName, objectName string, ttl time.Duration) (string, error) {
	return SignedURLWithClient(s.client, bucketName, objectName, ttl)
}

var _ StorageService = (*GCSStorageService)(nil)
