// Package httpserver provides the OpenAI-compatible HTTP front-end for the
// recursive reasoning gateway. It exposes POST /v1/chat/completions as a
// server-sent-events stream of plan/draft/verify/revise status updates
// followed by the final answer, GET /v1/models for introspection, and
// GET /healthz for liveness checks.
package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jgavinray/recursive-llm-gateway/internal/config"
	gwerrors "github.com/jgavinray/recursive-llm-gateway/internal/errors"
	"github.com/jgavinray/recursive-llm-gateway/internal/llm"
	"github.com/jgavinray/recursive-llm-gateway/internal/orchestrator"
)

// Runner drives one recursive session and reports progress through sink.
type Runner interface {
	// ResolveInitialModel validates name (the client-declared model, or ""
	// for the configured default) against the escalation ladder before any
	// session starts, so an unknown model name can be rejected with a
	// normal HTTP error instead of surfacing mid-stream.
	ResolveInitialModel(name string) (llm.ModelConfig, error)
	RunSession(ctx context.Context, prompt string, initialModel llm.ModelConfig, refContext []string, sink orchestrator.StatusSink) (orchestrator.SessionResult, error)
	Models() []llm.ModelConfig
}

// Server wraps an *http.Server and holds references to the dependencies
// needed by the request handlers.
type Server struct {
	httpSrv *http.Server
	gateway Runner
	cfg     *config.Config
	logger  *slog.Logger
}

// New constructs a Server configured from cfg, wired to gateway. The
// underlying http.Server is created but not started; call ListenAndServe to
// begin accepting connections.
func New(cfg *config.Config, gateway Runner, logger *slog.Logger) *Server {
	s := &Server{
		gateway: gateway,
		cfg:     cfg,
		logger:  logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/chat/completions", s.handleChatCompletions)
	mux.HandleFunc("GET /v1/models", s.handleModels)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	addr := fmt.Sprintf("%s:%d", cfg.HTTPServer.Bind, cfg.HTTPServer.Port)

	s.httpSrv = &http.Server{
		Addr:         addr,
		Handler:      loggingMiddleware(logger, mux),
		ReadTimeout:  time.Duration(cfg.HTTPServer.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTPServer.WriteTimeoutSeconds) * time.Second,
		IdleTimeout:  time.Duration(cfg.HTTPServer.IdleTimeoutSeconds) * time.Second,
	}

	return s
}

// ListenAndServe starts the HTTP server. It blocks until the server is shut
// down. The caller should call Shutdown in a separate goroutine (e.g. on
// signal receipt) to unblock this method.
func (s *Server) ListenAndServe() error {
	s.logger.Info("HTTP server starting",
		slog.String("addr", s.httpSrv.Addr),
	)
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("httpserver: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server, waiting up to the configured
// shutdown timeout for in-flight requests to complete.
func (s *Server) Shutdown(ctx context.Context) error {
	timeout := time.Duration(s.cfg.HTTPServer.ShutdownTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	s.logger.Info("HTTP server shutting down")
	if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("httpserver: shutdown: %w", err)
	}
	return nil
}

// Addr returns the address the server is configured to listen on.
func (s *Server) Addr() string {
	return s.httpSrv.Addr
}

// ---------------------------------------------------------------------------
// Request / response types
// ---------------------------------------------------------------------------

// chatRequest is the subset of the OpenAI chat completions request body that
// this gateway consumes. Stream is accepted but ignored: every response is a
// server-sent-events stream regardless of its value, since the status
// updates are the point of this endpoint.
type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chunkDelta carries either a status update (Thinking) or a piece of the
// final answer (Content), matching the OpenAI chat.completion.chunk delta
// shape with one gateway-specific addition.
type chunkDelta struct {
	Role     string `json:"role,omitempty"`
	Thinking string `json:"thinking,omitempty"`
	Content  string `json:"content,omitempty"`
}

type chunkChoice struct {
	Index        int        `json:"index"`
	Delta        chunkDelta `json:"delta"`
	FinishReason *string    `json:"finish_reason"`
}

// chatChunk is one "data: " frame of the response stream.
type chatChunk struct {
	ID      string        `json:"id"`
	Object  string        `json:"object"`
	Created int64         `json:"created"`
	Model   string        `json:"model"`
	Choices []chunkChoice `json:"choices"`
}

// modelsResponse is the OpenAI-compatible GET /v1/models body.
type modelsResponse struct {
	Object string      `json:"object"`
	Data   []modelData `json:"data"`
}

type modelData struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	OwnedBy string `json:"owned_by"`
}

// errorResponse is the OpenAI-compatible error body.
type errorResponse struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
}

// ---------------------------------------------------------------------------
// Handlers
// ---------------------------------------------------------------------------

var finishReasonStop = "stop"

// handleChatCompletions implements POST /v1/chat/completions as a
// server-sent-events stream. The stream opens with a "Starting request..."
// liveness chunk, emits one status chunk per subsequent phase transition,
// and closes with a single content chunk carrying the final answer followed
// by the literal terminator "data: [DONE]\n\n".
func (s *Server) handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_error",
			fmt.Sprintf("invalid JSON body: %s", err.Error()), "")
		return
	}

	if len(req.Messages) == 0 {
		writeError(w, http.StatusBadRequest, "invalid_request_error",
			"messages array must not be empty", "")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "server_error",
			"response writer does not support streaming", "")
		return
	}

	initialModel, err := s.gateway.ResolveInitialModel(req.Model)
	if err != nil {
		statusCode, errType, code := classifySessionError(err)
		writeError(w, statusCode, errType, err.Error(), code)
		return
	}

	prompt := flattenMessages(req.Messages)
	id := "chatcmpl-" + uuid.NewString()
	created := time.Now().Unix()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	sink := &sseSink{w: w, flusher: flusher, id: id, created: created, model: initialModel.Name}

	// Guarantee the stream begins with at least one status chunk, even if
	// the planner's first backend call stalls.
	sink.Emit(orchestrator.StatusEvent{Phase: orchestrator.PhasePlanning, Message: "Starting request..."})

	result, err := s.gateway.RunSession(r.Context(), prompt, initialModel, nil, sink)
	if err != nil {
		s.logger.Error("session failed", slog.String("error", err.Error()))
		sink.writeErrorChunk(err)
		return
	}

	sink.writeFinalChunk(result)
}

// handleModels implements GET /v1/models.
func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	models := s.gateway.Models()
	data := make([]modelData, len(models))
	for i, m := range models {
		data[i] = modelData{ID: m.Name, Object: "model", OwnedBy: "recursive-llm-gateway"}
	}
	writeJSON(w, http.StatusOK, modelsResponse{Object: "list", Data: data})
}

// handleHealth implements GET /healthz with a simple liveness check.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// flattenMessages joins the incoming chat messages into a single prompt
// string, one line per message formatted as "<ROLE UPPER>: <content>".
func flattenMessages(messages []chatMessage) string {
	lines := make([]string, len(messages))
	for i, m := range messages {
		lines[i] = fmt.Sprintf("%s: %s", strings.ToUpper(m.Role), m.Content)
	}
	return strings.Join(lines, "\n")
}

// ---------------------------------------------------------------------------
// SSE status sink
// ---------------------------------------------------------------------------

// sseSink adapts orchestrator.StatusSink to the chat-completion-chunk SSE
// wire format, writing one "data: <json>\n\n" frame per status event.
type sseSink struct {
	w       http.ResponseWriter
	flusher http.Flusher
	id      string
	created int64
	model   string
}

func (s *sseSink) Emit(event orchestrator.StatusEvent) {
	s.writeChunk(chunkDelta{Thinking: event.Message}, nil)
}

func (s *sseSink) writeFinalChunk(result orchestrator.SessionResult) {
	model := result.Model
	if model == "" {
		model = s.model
	}
	s.model = model
	s.writeChunk(chunkDelta{Content: result.Content}, &finishReasonStop)
	fmt.Fprint(s.w, "data: [DONE]\n\n")
	s.flusher.Flush()
}

func (s *sseSink) writeErrorChunk(err error) {
	statusCode, errType, code := classifySessionError(err)
	_ = statusCode // status line already sent; surfaced to the client as an error chunk instead
	s.writeChunk(chunkDelta{Thinking: fmt.Sprintf("error: %s", err.Error())}, &finishReasonStop)
	fmt.Fprintf(s.w, "data: %s\n\n", mustMarshal(errorResponse{Error: errorDetail{
		Message: err.Error(),
		Type:    errType,
		Code:    code,
	}}))
	fmt.Fprint(s.w, "data: [DONE]\n\n")
	s.flusher.Flush()
}

func (s *sseSink) writeChunk(delta chunkDelta, finishReason *string) {
	chunk := chatChunk{
		ID:      s.id,
		Object:  "chat.completion.chunk",
		Created: s.created,
		Model:   s.model,
		Choices: []chunkChoice{{Index: 0, Delta: delta, FinishReason: finishReason}},
	}
	fmt.Fprintf(s.w, "data: %s\n\n", mustMarshal(chunk))
	s.flusher.Flush()
}

func mustMarshal(v interface{}) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		return []byte(`{}`)
	}
	return b
}

// ---------------------------------------------------------------------------
// Middleware
// ---------------------------------------------------------------------------

// loggingMiddleware logs each request's method, path, and latency.
func loggingMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(lrw, r)
		logger.Info("http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", lrw.statusCode),
			slog.String("remote_addr", remoteAddr(r)),
			slog.Duration("latency", time.Since(start)),
		)
	})
}

// loggingResponseWriter captures the status code written by a handler. It
// also implements http.Flusher so SSE handlers can still flush through it.
type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if f, ok := lrw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// remoteAddr returns the client IP, preferring X-Forwarded-For when behind a
// proxy. Falls back to r.RemoteAddr.
func remoteAddr(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// writeJSON serialises v as JSON and writes it to w.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes an OpenAI-compatible JSON error response.
func writeError(w http.ResponseWriter, status int, errType, message, code string) {
	writeJSON(w, status, errorResponse{
		Error: errorDetail{
			Message: message,
			Type:    errType,
			Code:    code,
		},
	})
}

// classifySessionError maps gateway errors to HTTP status codes and
// OpenAI-style error types. Unknown errors become HTTP 500 server_error.
func classifySessionError(err error) (statusCode int, errType, code string) {
	var phaseErr *orchestrator.PhaseError
	cause := err
	if pe, ok := err.(*orchestrator.PhaseError); ok {
		phaseErr = pe
		cause = pe.Cause
	}

	switch {
	case isErr(cause, gwerrors.ErrModelNotInLadder):
		return http.StatusBadRequest, "invalid_request_error", errorCode(cause)
	case gwerrors.IsTransientError(cause):
		return http.StatusBadGateway, "server_error", "upstream_unavailable"
	case isErr(cause, gwerrors.ErrBackendHTTP):
		return http.StatusBadGateway, "server_error", errorCode(cause)
	case isErr(cause, gwerrors.ErrInvalidBackendResponse), isErr(cause, gwerrors.ErrInvalidEmbeddingResponse):
		return http.StatusBadGateway, "server_error", errorCode(cause)
	default:
		if phaseErr != nil {
			return http.StatusInternalServerError, "server_error", string(phaseErr.Phase) + "_failed"
		}
		return http.StatusInternalServerError, "server_error", ""
	}
}

// isErr reports whether err's chain contains a *gwerrors.GatewayError whose
// Code matches target's.
func isErr(err error, target *gwerrors.GatewayError) bool {
	return errorCode(err) == target.Code
}

// errorCode extracts the Code field from a *gwerrors.GatewayError anywhere
// in err's chain, or "".
func errorCode(err error) string {
	type unwrapper interface{ Unwrap() error }
	for e := err; e != nil; {
		if ge, ok := e.(*gwerrors.GatewayError); ok {
			return ge.Code
		}
		if u, ok := e.(unwrapper); ok {
			e = u.Unwrap()
		} else {
			break
		}
	}
	return ""
}
