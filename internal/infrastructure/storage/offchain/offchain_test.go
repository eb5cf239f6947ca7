package offchain

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/whiteelite/tokenforge/internal/domain/repositories"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestObjectName(t *testing.T) {
	a := objectName(repositories.Blob{Name: "dir/logo.png", Data: []byte("a")})
	b := objectName(repositories.Blob{Name: "logo.png", Data: []byte("a")})
	c := objectName(repositories.Blob{Name: "logo.png", Data: []byte("b")})

	assert.Equal(t, a, b)
	assert.NotEqual(t, b, c)
	assert.True(t, strings.HasSuffix(a, "-logo.png"))
	assert.Len(t, objectName(repositories.Blob{Data: []byte("a")}), 64)
}

func TestHTTPStore_Upload(t *testing.T) {
	var gotBody, gotType, gotAuth, gotName string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != uploadPath || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		gotType = r.Header.Get("Content-Type")
		gotAuth = r.Header.Get("Authorization")
		gotName = r.Header.Get(fileNameHeader)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"uri":"https://gateway.example/abc"}`)
	}))
	defer srv.Close()

	store := NewHTTPStore(srv.URL+"/", "secret")
	uri, err := store.Upload(context.Background(), repositories.Blob{Name: "doc.json", ContentType: "application/json", Data: []byte(`{"a":1}`)})
	require.NoError(t, err)

	assert.Equal(t, "https://gateway.example/abc", string(uri))
	assert.Equal(t, `{"a":1}`, gotBody)
	assert.Equal(t, "application/json", gotType)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.True(t, strings.HasSuffix(gotName, "-doc.json"))
}

func TestHTTPStore_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{name: "server error", status: http.StatusBadGateway, body: "gateway down", wantErr: "status 502"},
		{name: "empty uri", status: http.StatusOK, body: `{"uri":""}`, wantErr: "empty uri"},
		{name: "bad json", status: http.StatusOK, body: `not json`, wantErr: "decode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			_, err := NewHTTPStore(srv.URL, "").Upload(context.Background(), repositories.Blob{Name: "x", Data: []byte("x")})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestHTTPStore_NotConfigured(t *testing.T) {
	_, err := NewHTTPStore("", "").Upload(context.Background(), repositories.Blob{Data: []byte("x")})
	assert.Error(t, err)
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore("")
	uri, err := store.Upload(context.Background(), repositories.Blob{Name: "logo.png", Data: []byte{1, 2, 3}})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(uri), "memory://offchain/"))

	blob, ok := store.Get(uri)
	require.True(t, ok)
	assert.Equal(t, []byte{1, 2, 3}, blob.Data)
	assert.Equal(t, "application/octet-stream", blob.ContentType)

	boom := errors.New("boom")
	store.FailOn("bad.png", boom)
	_, err = store.Upload(context.Background(), repositories.Blob{Name: "bad.png", Data: []byte{1}})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, store.Len())
}

func TestIsPreconditionFailed(t *testing.T) {
	assert.True(t, isPreconditionFailed(fmt.Errorf("close: %w", &googleapi.Error{Code: http.StatusPreconditionFailed})))
	assert.True(t, isPreconditionFailed(status.Error(codes.FailedPrecondition, "conditionNotMet")))
	assert.False(t, isPreconditionFailed(&googleapi.Error{Code: http.StatusForbidden, Message: "precondition 412"}))
	assert.False(t, isPreconditionFailed(errors.New("object name contains 412: Precondition Failed")))
	assert.False(t, isPreconditionFailed(status.Error(codes.PermissionDenied, "denied")))
}
