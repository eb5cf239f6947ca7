package offchain

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/whiteelite/tokenforge/internal/domain/entities"
	"github.com/whiteelite/tokenforge/internal/domain/repositories"
	"github.com/whiteelite/tokenforge/internal/log"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const gcsPublicBase = "https://storage.googleapis.com"

// GCSStore writes objects to a publicly readable bucket.
type GCSStore struct {
	client *storage.Client
	bucket string
	prefix string
}

var _ repositories.ContentStore = (*GCSStore)(nil)

// NewGCSStore uses application default credentials.
func NewGCSStore(ctx context.Context, bucket, prefix string) (*GCSStore, error) {
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return nil, errors.New("offchain: gcs bucket is empty")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("storage.NewClient: %w", err)
	}
	return &GCSStore{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}, nil
}

func (s *GCSStore) object(blob repositories.Blob) string {
	name := objectName(blob)
	if s.prefix == "" {
		return name
	}
	return s.prefix + "/" + name
}

func (s *GCSStore) Upload(ctx context.Context, blob repositories.Blob) (entities.URI, error) {
	object := s.object(blob)
	uri := entities.URI(fmt.Sprintf("%s/%s/%s", gcsPublicBase, s.bucket, object))

	w := s.client.Bucket(s.bucket).Object(object).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	w.ContentType = contentType(blob)
	w.CacheControl = "public, max-age=31536000, immutable"

	if _, err := w.Write(blob.Data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("write gs://%s/%s: %w", s.bucket, object, err)
	}
	if err := w.Close(); err != nil {
		// Content addressed: an existing object already holds these bytes.
		if isPreconditionFailed(err) {
			log.Storage.Debug().Str("object", object).Msg("object already present")
			return uri, nil
		}
		return "", fmt.Errorf("close gs://%s/%s: %w", s.bucket, object, err)
	}

	log.Storage.Debug().Str("object", object).Int("bytes", len(blob.Data)).Msg("uploaded to gcs")
	return uri, nil
}

func (s *GCSStore) Close() error {
	return s.client.Close()
}

// isPreconditionFailed reports a failed DoesNotExist condition, as a JSON API
// 412 or as the gRPC FailedPrecondition code.
func isPreconditionFailed(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == http.StatusPreconditionFailed
	}
	return status.Code(err) == codes.FailedPrecondition
}
