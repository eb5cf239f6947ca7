package metadata

import (
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/whiteelite/tokenforge/internal/domain/entities"
	"github.com/whiteelite/tokenforge/internal/domain/repositories"
	"github.com/whiteelite/tokenforge/internal/log"
)

var (
	ErrEmptyAsset   = errors.New("metadata: empty asset")
	ErrUploadFailed = errors.New("metadata: upload failed")
)

const documentContentType = "application/json"

// Asset is the image file referenced by the off-chain document.
type Asset struct {
	Name        string
	ContentType string
	Data        []byte
}

type UploadResult struct {
	ImageURI    entities.URI
	MetadataURI entities.URI
}

type Uploader struct {
	store repositories.ContentStore
}

func NewUploader(store repositories.ContentStore) *Uploader {
	return &Uploader{store: store}
}

// Upload stores the image, then the JSON document pointing at it. A failure
// on the second step leaves the image in place.
func (u *Uploader) Upload(ctx context.Context, asset Asset, name entities.Name, description entities.Description) (UploadResult, error) {
	if len(asset.Data) == 0 {
		return UploadResult{}, ErrEmptyAsset
	}

	imageURI, err := u.store.Upload(ctx, repositories.Blob{
		Name:        asset.Name,
		ContentType: asset.ContentType,
		Data:        asset.Data,
	})
	if err != nil {
		return UploadResult{}, fmt.Errorf("%w: image %q: %w", ErrUploadFailed, asset.Name, err)
	}
	log.Metadata.Debug().Str("uri", string(imageURI)).Msg("image uploaded")

	doc, err := json.Marshal(entities.OffchainDocument{
		Name:        name,
		Description: description,
		Image:       imageURI,
	})
	if err != nil {
		return UploadResult{ImageURI: imageURI}, fmt.Errorf("marshal metadata document: %w", err)
	}

	metadataURI, err := u.store.Upload(ctx, repositories.Blob{
		Name:        documentName(asset.Name),
		ContentType: documentContentType,
		Data:        doc,
	})
	if err != nil {
		return UploadResult{ImageURI: imageURI}, fmt.Errorf("%w: metadata document: %w", ErrUploadFailed, err)
	}

	log.Metadata.Info().
		Str("image_uri", string(imageURI)).
		Str("metadata_uri", string(metadataURI)).
		Msg("off-chain metadata uploaded")
	return UploadResult{ImageURI: imageURI, MetadataURI: metadataURI}, nil
}

func documentName(asset string) string {
	if asset == "" {
		return "metadata.json"
	}
	return asset + ".json"
}
