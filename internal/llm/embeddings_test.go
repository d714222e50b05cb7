package llm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gwerrors "github.com/jgavinray/recursive-llm-gateway/internal/errors"
)

func TestBackendEmbedder_Embed_Success(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embeddings", r.URL.Path)
		_, _ = w.Write([]byte(`{"embedding":[0.1,0.2,0.3]}`))
	}))
	defer srv.Close()

	embedder := NewBackendEmbedder(srv.URL, srv.Client())
	vec, err := embedder.Embed(context.Background(), "nomic-embed-text", "hello world")

	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
}

func TestBackendEmbedder_Embed_EmptyVectorIsInvalid(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"embedding":[]}`))
	}))
	defer srv.Close()

	embedder := NewBackendEmbedder(srv.URL, srv.Client())
	_, err := embedder.Embed(context.Background(), "nomic-embed-text", "hello world")

	assert.ErrorIs(t, err, gwerrors.ErrInvalidEmbeddingResponse)
}

func TestBackendEmbedder_Embed_NonSuccessStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	embedder := NewBackendEmbedder(srv.URL, srv.Client())
	_, err := embedder.Embed(context.Background(), "nomic-embed-text", "hello world")

	assert.ErrorIs(t, err, gwerrors.ErrBackendHTTP)
}
