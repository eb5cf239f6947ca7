package offchain

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/whiteelite/tokenforge/internal/domain/entities"
	"github.com/whiteelite/tokenforge/internal/domain/repositories"
	"github.com/whiteelite/tokenforge/internal/log"
)

const (
	uploadPath       = "/upload"
	fileNameHeader   = "X-File-Name"
	defaultHTTPLimit = 30 * time.Second
	maxErrorBody     = 4 << 10
)

// HTTPStore posts raw bytes to an upload gateway (an Irys/Arweave or
// nft.storage style service) that answers with {"uri": "..."}.
type HTTPStore struct {
	client  *http.Client
	baseURL string
	apiKey  string
}

var _ repositories.ContentStore = (*HTTPStore)(nil)

func NewHTTPStore(baseURL, apiKey string) *HTTPStore {
	return &HTTPStore{
		client:  &http.Client{Timeout: defaultHTTPLimit},
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:  apiKey,
	}
}

type uploadResponse struct {
	URI string `json:"uri"`
}

func (s *HTTPStore) Upload(ctx context.Context, blob repositories.Blob) (entities.URI, error) {
	if s.baseURL == "" {
		return "", errors.New("offchain: upload endpoint not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+uploadPath, bytes.NewReader(blob.Data))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType(blob))
	req.Header.Set(fileNameHeader, objectName(blob))
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("post %s: %w", blob.Name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		log.Storage.Warn().Int("status", resp.StatusCode).Str("name", blob.Name).Msg("upload rejected")
		return "", fmt.Errorf("upload %s: status %d: %s", blob.Name, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var res uploadResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return "", fmt.Errorf("decode upload response: %w", err)
	}
	if res.URI == "" {
		return "", errors.New("offchain: upload response has empty uri")
	}

	log.Storage.Debug().Str("name", blob.Name).Str("uri", res.URI).Int("bytes", len(blob.Data)).Msg("uploaded")
	return entities.URI(res.URI), nil
}
