package export

import (
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/fblacp/scales/internal/gcs"
	"github.com/fblacp/scales/internal/logger"
)

// DefaultLinkTTL is how long a published report's download link works.
const DefaultLinkTTL = 15 * time.Minute

// Published describes an uploaded report. URL is empty when the storage
// backend could not sign a link.
type Published struct {
	URI string `json:"uri"`
	URL string `json:"url,omitempty"`
}

// Publisher uploads rendered reports under prefix in bucket.
type Publisher struct {
	storage gcs.StorageService
	bucket  string
	prefix  string
	linkTTL time.Duration
}

// NewPublisher creates a Publisher writing to gs://bucket/exports/.
func NewPublisher(storage gcs.StorageService, bucket string) *Publisher {
	return &Publisher{storage: storage, bucket: bucket, prefix: "exports", linkTTL: DefaultLinkTTL}
}

// Publish uploads data as exports/<name> and returns its URI and, when
// signing succeeds, a temporary download link.
func (p *Publisher) Publish(ctx context.Context, name string, data []byte, contentType string) (*Published, error) {
	if p.bucket == "" {
		return nil, errors.New("Publish: no bucket configured")
	}
	object := path.Join(p.prefix, name)
	uri, err := p.storage.UploadBytes(ctx, p.bucket, object, data, contentType)
	if err != nil {
		return nil, fmt.Errorf("Publish: %w", err)
	}

	out := &Published{URI: uri}
	url, err := p.storage.SignedURL(ctx, p.bucket, object, p.linkTTL)
	if err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Str("uri", uri).Msg("Could not sign export link")
		return out, nil
	}
	out.URL = url
	return out, nil
}
