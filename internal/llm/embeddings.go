package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	gwerrors "github.com/jgavinray/recursive-llm-gateway/internal/errors"
)

// backendEmbedRequest is the wire shape POSTed to an Ollama-compatible
// /api/embeddings endpoint.
type backendEmbedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

// backendEmbedResponse is the wire shape returned by /api/embeddings.
type backendEmbedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// BackendEmbedder implements EmbeddingProvider against a single
// Ollama-compatible backend reachable at BaseURL.
type BackendEmbedder struct {
	BaseURL string
	Client  *http.Client
}

// NewBackendEmbedder constructs a BackendEmbedder. client must not be nil.
func NewBackendEmbedder(baseURL string, client *http.Client) *BackendEmbedder {
	return &BackendEmbedder{BaseURL: strings.TrimRight(baseURL, "/"), Client: client}
}

// Embed implements EmbeddingProvider.
func (e *BackendEmbedder) Embed(ctx context.Context, model string, text string) ([]float32, error) {
	wire := backendEmbedRequest{Model: model, Input: text}

	encoded, err := json.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("llm: marshalling embeddings request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.BaseURL+"/api/embeddings", bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("llm: building embeddings request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := e.Client.Do(httpReq)
	if err != nil {
		return nil, gwerrors.Wrap(gwerrors.ErrBackendUnreachable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("llm: reading embeddings response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, gwerrors.Wrap(
			gwerrors.HTTPStatus(gwerrors.ErrBackendHTTP, resp.StatusCode),
			fmt.Errorf("%s", strings.TrimSpace(string(body))),
		)
	}

	var wireResp backendEmbedResponse
	if err := json.Unmarshal(body, &wireResp); err != nil {
		return nil, gwerrors.Wrap(gwerrors.ErrInvalidEmbeddingResponse, err)
	}

	if len(wireResp.Embedding) == 0 {
		return nil, gwerrors.ErrInvalidEmbeddingResponse
	}

	return wireResp.Embedding, nil
}
