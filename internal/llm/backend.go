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

// backendChatRequest is the wire shape POSTed to an Ollama-compatible
// /api/chat endpoint.
type backendChatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature *float32      `json:"temperature,omitempty"`
	MaxTokens   *int          `json:"max_tokens,omitempty"`
	Stream      bool          `json:"stream"`
}

// backendChatResponse is the wire shape returned by /api/chat.
type backendChatResponse struct {
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	Done bool `json:"done"`
}

// BackendProvider implements Provider against a single Ollama-compatible
// backend reachable at BaseURL.
type BackendProvider struct {
	BaseURL string
	Client  *http.Client
}

// NewBackendProvider constructs a BackendProvider. client must not be nil;
// callers are expected to configure its Timeout per internal/config.
func NewBackendProvider(baseURL string, client *http.Client) *BackendProvider {
	return &BackendProvider{BaseURL: strings.TrimRight(baseURL, "/"), Client: client}
}

// Name implements Provider.
func (p *BackendProvider) Name() string {
	return "backend"
}

// Chat implements Provider. Streaming requests are rejected outright: the
// orchestrator never streams backend calls, only the gateway's own HTTP
// front-end streams to its caller.
func (p *BackendProvider) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	if req.Stream {
		return ChatResponse{}, gwerrors.ErrStreamingUnsupported
	}

	wire := backendChatRequest{
		Model:       req.Model.Name,
		Messages:    req.Messages,
		Temperature: req.Model.Temperature,
		MaxTokens:   req.Model.MaxTokens,
		Stream:      false,
	}

	encoded, err := json.Marshal(wire)
	if err != nil {
		return ChatResponse{}, fmt.Errorf("llm: marshalling chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.BaseURL+"/api/chat", bytes.NewReader(encoded))
	if err != nil {
		return ChatResponse{}, fmt.Errorf("llm: building chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.Client.Do(httpReq)
	if err != nil {
		return ChatResponse{}, gwerrors.Wrap(gwerrors.ErrBackendUnreachable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return ChatResponse{}, fmt.Errorf("llm: reading chat response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return ChatResponse{}, gwerrors.Wrap(
			gwerrors.HTTPStatus(gwerrors.ErrBackendHTTP, resp.StatusCode),
			fmt.Errorf("%s", strings.TrimSpace(string(body))),
		)
	}

	var wireResp backendChatResponse
	if err := json.Unmarshal(body, &wireResp); err != nil {
		return ChatResponse{}, gwerrors.Wrap(gwerrors.ErrInvalidBackendResponse, err)
	}

	if strings.TrimSpace(wireResp.Message.Content) == "" {
		return ChatResponse{}, gwerrors.ErrInvalidBackendResponse
	}

	return ChatResponse{Content: wireResp.Message.Content, Model: req.Model.Name}, nil
}
