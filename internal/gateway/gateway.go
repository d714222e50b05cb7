// Package gateway wires the configured models, backend provider, and
// escalation ladder into a single entry point the HTTP front-end can call:
// one recursive session per incoming request.
package gateway

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jgavinray/recursive-llm-gateway/internal/config"
	gwerrors "github.com/jgavinray/recursive-llm-gateway/internal/errors"
	"github.com/jgavinray/recursive-llm-gateway/internal/escalation"
	"github.com/jgavinray/recursive-llm-gateway/internal/llm"
	"github.com/jgavinray/recursive-llm-gateway/internal/logging"
	"github.com/jgavinray/recursive-llm-gateway/internal/orchestrator"
	"github.com/jgavinray/recursive-llm-gateway/internal/telemetry"
)

// Gateway assembles a RunRecursiveSession call from static configuration
// plus the two backend clients (chat and embeddings) it was constructed
// with.
type Gateway struct {
	cfg       *config.Config
	provider  llm.Provider
	embedder  llm.EmbeddingProvider
	tracer    *telemetry.Provider
	errLogger *logging.ErrorLogger
}

// New constructs a Gateway. tracer and errLogger may be nil: sessions then
// run without tracing and without daily-file failure logging, respectively.
func New(cfg *config.Config, provider llm.Provider, embedder llm.EmbeddingProvider, tracer *telemetry.Provider, errLogger *logging.ErrorLogger) *Gateway {
	return &Gateway{cfg: cfg, provider: provider, embedder: embedder, tracer: tracer, errLogger: errLogger}
}

// ResolveInitialModel validates a client-declared model name against the
// configured escalation ladder and returns the matching ModelConfig, so its
// configured temperature/max_tokens travel with it rather than just its
// name. An empty name defaults to the ladder's first rung. A non-empty name
// absent from the ladder fails with errors.ErrModelNotInLadder: the client
// declares the initial model, so this untrusted input is validated at the
// boundary instead of silently substituting the configured default or
// letting escalation's internal invariant panic later.
func (g *Gateway) ResolveInitialModel(name string) (llm.ModelConfig, error) {
	ladder := g.cfg.Escalation.Ladder
	if name == "" {
		return ladder[0], nil
	}
	for _, m := range ladder {
		if m.Name == name {
			return m, nil
		}
	}
	return llm.ModelConfig{}, gwerrors.Wrap(gwerrors.ErrModelNotInLadder, fmt.Errorf("requested model %q", name))
}

// RunSession runs one full recursive session for prompt, starting the Inner
// Loop at initialModel (typically the result of ResolveInitialModel).
// refContext is the caller-supplied reference context (empty for the plain
// chat completions endpoint). Each call is assigned a fresh session ID,
// which tags its daily error-log entry when the session fails.
func (g *Gateway) RunSession(ctx context.Context, prompt string, initialModel llm.ModelConfig, refContext []string, sink orchestrator.StatusSink) (orchestrator.SessionResult, error) {
	sessionID := uuid.NewString()

	result, err := orchestrator.RunRecursiveSession(ctx, prompt, refContext, orchestrator.SessionOptions{
		Provider:       g.provider,
		Embedder:       g.embedder,
		PlannerModel:   g.cfg.Models.Planner,
		VerifierModel:  g.cfg.Models.Verifier,
		ReviserModel:   g.cfg.Models.Reviser,
		EmbeddingModel: g.cfg.Models.EmbeddingsModel,
		InitialModel:   initialModel,
		Policy: escalation.Policy{
			Ladder:      g.cfg.Escalation.Ladder,
			MaxAttempts: g.cfg.Escalation.MaxAttempts,
		},
		MaxRetries:    g.cfg.Models.MaxRetries,
		MinConfidence: g.cfg.Models.MinConfidence,
		OnStatus:      sink,
		Tracer:        g.tracer,
	})

	if err != nil && g.errLogger != nil {
		phase := "unknown"
		if pe, ok := err.(*orchestrator.PhaseError); ok {
			phase = string(pe.Phase)
		}
		_ = g.errLogger.Log(sessionID, phase, "recursive_session", err, "")
	}

	return result, err
}

// Models returns every model this gateway is configured to route to, for
// the /v1/models introspection endpoint.
func (g *Gateway) Models() []llm.ModelConfig {
	seen := make(map[string]bool)
	var out []llm.ModelConfig

	add := func(m llm.ModelConfig) {
		if m.Name == "" || seen[m.Name] {
			return
		}
		seen[m.Name] = true
		out = append(out, m)
	}

	for _, m := range g.cfg.Escalation.Ladder {
		add(m)
	}
	add(g.cfg.Models.Planner)
	add(g.cfg.Models.Verifier)
	add(g.cfg.Models.Reviser)
	add(llm.ModelConfig{Name: g.cfg.Models.EmbeddingsModel})

	return out
}
