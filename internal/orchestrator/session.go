package orchestrator

import (
	"context"
	"fmt"

	"github.com/jgavinray/recursive-llm-gateway/internal/confidence"
	"github.com/jgavinray/recursive-llm-gateway/internal/embedreview"
	"github.com/jgavinray/recursive-llm-gateway/internal/escalation"
	"github.com/jgavinray/recursive-llm-gateway/internal/llm"
	"github.com/jgavinray/recursive-llm-gateway/internal/planner"
	"github.com/jgavinray/recursive-llm-gateway/internal/reviser"
	"github.com/jgavinray/recursive-llm-gateway/internal/telemetry"
	"github.com/jgavinray/recursive-llm-gateway/internal/verifier"

	"go.opentelemetry.io/otel/trace"
)

// SessionResult is the final outcome of a full recursive session, whatever
// path it took to get there (accepted on first pass, or revised).
type SessionResult struct {
	Content    string
	Model      string
	Confidence float64
	Attempts   int
	Revised    bool
}

// SessionOptions configures a single RunRecursiveSession call.
type SessionOptions struct {
	Provider       llm.Provider
	Embedder       llm.EmbeddingProvider
	PlannerModel   llm.ModelConfig
	VerifierModel  llm.ModelConfig
	ReviserModel   llm.ModelConfig
	EmbeddingModel string
	Policy         escalation.Policy
	MaxRetries     int
	MinConfidence  float64
	OnStatus       StatusSink

	// InitialModel is the starting rung of the ladder for the Inner Loop. A
	// zero value (empty Name) defaults to Policy.Ladder[0].
	InitialModel llm.ModelConfig

	// Tracer is optional. When nil, no spans are recorded.
	Tracer *telemetry.Provider
}

// PhaseError wraps a failure with the pipeline phase it occurred in.
type PhaseError struct {
	Phase Phase
	Cause error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("orchestrator: %s phase failed: %v", e.Phase, e.Cause)
}

func (e *PhaseError) Unwrap() error { return e.Cause }

// RunRecursiveSession drives the full pipeline: plan, then answer via the
// Inner Loop, then a final cross-check combining a fresh verifier call with
// the Embedding Reviewer, and — only if that cross-check rejects the
// answer — a single revision pass. The revision's confidence is not
// recomputed; the cross-check's confidence is carried through unchanged.
func RunRecursiveSession(ctx context.Context, prompt string, refContext []string, opts SessionOptions) (SessionResult, error) {
	tracer := opts.Tracer

	emit(opts.OnStatus, PhasePlanning, "Generating plan...")
	planCtx, planSpan := startPhaseSpan(ctx, tracer, PhasePlanning)
	planMessages, err := planner.Plan(planCtx, opts.Provider, opts.PlannerModel, prompt)
	planSpan.End()
	if err != nil {
		return SessionResult{}, &PhaseError{Phase: PhasePlanning, Cause: err}
	}
	planText := planner.LastAssistantText(planMessages)

	answerContext := append(append([]string{}, refContext...), fmt.Sprintf("PLAN:\n%s", planText))

	emit(opts.OnStatus, PhaseAnswering, "Starting reasoning loop")
	answerCtx, answerSpan := startPhaseSpan(ctx, tracer, PhaseAnswering)
	loopResult, err := RunInnerLoop(answerCtx, prompt, answerContext, InnerLoopOptions{
		Provider:      opts.Provider,
		VerifierModel: opts.VerifierModel,
		Policy:        opts.Policy,
		MaxRetries:    opts.MaxRetries,
		MinConfidence: opts.MinConfidence,
		OnStatus:      opts.OnStatus,
		InitialModel:  opts.InitialModel,
	})
	answerSpan.End()
	if err != nil {
		return SessionResult{}, &PhaseError{Phase: PhaseAnswering, Cause: err}
	}

	emit(opts.OnStatus, PhaseVerifying, "Verifying answer...")
	verifyCtx, verifySpan := startPhaseSpan(ctx, tracer, PhaseVerifying)
	verdict, err := verifier.Verify(verifyCtx, opts.Provider, opts.VerifierModel, verifier.Request{
		Prompt:   prompt,
		Response: loopResult.Content,
		Context:  answerContext,
	})
	if err != nil {
		verifySpan.End()
		return SessionResult{}, &PhaseError{Phase: PhaseVerifying, Cause: err}
	}

	review, err := embedreview.Review(verifyCtx, opts.Embedder, opts.EmbeddingModel, embedreview.Request{
		Prompt:   prompt,
		Response: loopResult.Content,
		Context:  answerContext,
	})
	verifySpan.End()
	if err != nil {
		return SessionResult{}, &PhaseError{Phase: PhaseVerifying, Cause: err}
	}

	verifierConfidence := verdict.Confidence
	embeddingScore := review.Confidence
	finalConfidence := confidence.Combine(confidence.Inputs{
		VerifierConfidence: &verifierConfidence,
		EmbeddingScore:     &embeddingScore,
	})

	if verdict.Approved && review.Approved && confidence.Acceptable(finalConfidence, opts.MinConfidence) {
		emit(opts.OnStatus, PhaseDone, "Answer accepted")
		return SessionResult{
			Content:    loopResult.Content,
			Model:      loopResult.Model,
			Confidence: finalConfidence,
			Attempts:   loopResult.Attempts,
		}, nil
	}

	emit(opts.OnStatus, PhaseRevising, "Revising answer...")
	reviseCtx, reviseSpan := startPhaseSpan(ctx, tracer, PhaseRevising)
	revised, err := reviser.Revise(reviseCtx, opts.Provider, opts.ReviserModel, reviser.Request{
		OriginalPrompt:   prompt,
		PreviousResponse: loopResult.Content,
		Context:          answerContext,
	})
	reviseSpan.End()
	if err != nil {
		return SessionResult{}, &PhaseError{Phase: PhaseRevising, Cause: err}
	}

	emit(opts.OnStatus, PhaseDone, "Answer revised")
	return SessionResult{
		Content:    revised.Content,
		Model:      revised.Model,
		Confidence: finalConfidence,
		Attempts:   loopResult.Attempts,
		Revised:    true,
	}, nil
}

// noopSpan satisfies the subset of trace.Span that startPhaseSpan needs,
// for the common case of no tracer configured.
type noopSpan struct{}

func (noopSpan) End(...trace.SpanEndOption) {}

// startPhaseSpan starts a span named for phase when tracer is non-nil, and
// returns a no-op span otherwise so call sites never need a nil check.
func startPhaseSpan(ctx context.Context, tracer *telemetry.Provider, phase Phase) (context.Context, interface{ End(...trace.SpanEndOption) }) {
	if tracer == nil {
		return ctx, noopSpan{}
	}
	spanCtx, span := tracer.StartPhase(ctx, string(phase))
	return spanCtx, span
}
