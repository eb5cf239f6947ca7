package offchain

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/whiteelite/tokenforge/internal/domain/entities"
	"github.com/whiteelite/tokenforge/internal/domain/repositories"
)

// MemoryStore keeps uploads in process. It backs tests and dry runs.
type MemoryStore struct {
	mu      sync.Mutex
	baseURI string
	objects map[entities.URI]repositories.Blob
	fail    map[string]error
}

var _ repositories.ContentStore = (*MemoryStore)(nil)

func NewMemoryStore(baseURI string) *MemoryStore {
	if baseURI == "" {
		baseURI = "memory://offchain"
	}
	return &MemoryStore{
		baseURI: strings.TrimRight(baseURI, "/"),
		objects: map[entities.URI]repositories.Blob{},
		fail:    map[string]error{},
	}
}

// FailOn makes uploads of blobs named name return err.
func (s *MemoryStore) FailOn(name string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail[name] = err
}

func (s *MemoryStore) Upload(ctx context.Context, blob repositories.Blob) (entities.URI, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail[blob.Name]; err != nil {
		return "", err
	}
	uri := entities.URI(fmt.Sprintf("%s/%s", s.baseURI, objectName(blob)))
	blob.ContentType = contentType(blob)
	blob.Data = append([]byte(nil), blob.Data...)
	s.objects[uri] = blob
	return uri, nil
}

// Get returns a stored blob by the URI Upload handed out.
func (s *MemoryStore) Get(uri entities.URI) (repositories.Blob, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.objects[uri]
	return b, ok
}

func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}
