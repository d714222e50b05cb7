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

func TestBackendProvider_Chat_Success(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"message":{"role":"assistant","content":"42"},"done":true}`))
	}))
	defer srv.Close()

	provider := NewBackendProvider(srv.URL, srv.Client())
	resp, err := provider.Chat(context.Background(), ChatRequest{
		Model:    ModelConfig{Name: "qwen2.5:7b"},
		Messages: []ChatMessage{{Role: RoleUser, Content: "what is 6*7"}},
	})

	require.NoError(t, err)
	assert.Equal(t, "42", resp.Content)
	assert.Equal(t, "qwen2.5:7b", resp.Model)
}

func TestBackendProvider_Chat_RejectsStreaming(t *testing.T) {
	t.Parallel()

	provider := NewBackendProvider("http://unused.invalid", http.DefaultClient)
	_, err := provider.Chat(context.Background(), ChatRequest{
		Model:  ModelConfig{Name: "qwen2.5:7b"},
		Stream: true,
	})

	assert.ErrorIs(t, err, gwerrors.ErrStreamingUnsupported)
}

func TestBackendProvider_Chat_NonSuccessStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`model not found`))
	}))
	defer srv.Close()

	provider := NewBackendProvider(srv.URL, srv.Client())
	_, err := provider.Chat(context.Background(), ChatRequest{
		Model:    ModelConfig{Name: "missing-model"},
		Messages: []ChatMessage{{Role: RoleUser, Content: "hi"}},
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, gwerrors.ErrBackendHTTP)
}

func TestBackendProvider_Chat_EmptyContentIsInvalid(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"message":{"role":"assistant","content":""},"done":true}`))
	}))
	defer srv.Close()

	provider := NewBackendProvider(srv.URL, srv.Client())
	_, err := provider.Chat(context.Background(), ChatRequest{
		Model:    ModelConfig{Name: "qwen2.5:7b"},
		Messages: []ChatMessage{{Role: RoleUser, Content: "hi"}},
	})

	assert.ErrorIs(t, err, gwerrors.ErrInvalidBackendResponse)
}

func TestBackendProvider_Chat_MalformedJSON(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	provider := NewBackendProvider(srv.URL, srv.Client())
	_, err := provider.Chat(context.Background(), ChatRequest{
		Model:    ModelConfig{Name: "qwen2.5:7b"},
		Messages: []ChatMessage{{Role: RoleUser, Content: "hi"}},
	})

	assert.ErrorIs(t, err, gwerrors.ErrInvalidBackendResponse)
}
