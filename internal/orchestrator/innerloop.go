package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/jgavinray/recursive-llm-gateway/internal/confidence"
	"github.com/jgavinray/recursive-llm-gateway/internal/escalation"
	"github.com/jgavinray/recursive-llm-gateway/internal/llm"
	"github.com/jgavinray/recursive-llm-gateway/internal/verifier"
)

const answerSystemPrompt = `Answer the user's prompt accurately and concisely, using any provided reference context.`

// LoopResult is the outcome of one inner-loop run: the draft that was
// ultimately returned (whether accepted or merely the last one produced
// before the attempt budget was exhausted), which model produced it, the
// combined confidence at the moment of return, and how many attempts it
// took.
type LoopResult struct {
	Content    string
	Model      string
	Confidence float64
	Attempts   int
}

// InnerLoopOptions configures a single RunInnerLoop call.
type InnerLoopOptions struct {
	Provider      llm.Provider
	VerifierModel llm.ModelConfig
	Policy        escalation.Policy
	MaxRetries    int
	MinConfidence float64
	OnStatus      StatusSink

	// InitialModel is the starting rung of the ladder for this run. A zero
	// value (empty Name) defaults to Policy.Ladder[0]. Callers that accept
	// a client-declared model name are responsible for validating it
	// against the ladder before setting this field.
	InitialModel llm.ModelConfig
}

// RunInnerLoop drives the draft -> verify -> decide state machine: it
// drafts an answer with the policy's current model, verifies it, and then
// either accepts it, escalates to the next model on the ladder, retries the
// same model, or — once MaxRetries is exhausted — returns the last draft
// produced without error. It never raises on exhaustion; callers inspect
// the returned confidence to decide what to do next.
func RunInnerLoop(ctx context.Context, prompt string, refContext []string, opts InnerLoopOptions) (LoopResult, error) {
	initialModel := opts.InitialModel
	if initialModel.Name == "" {
		initialModel = opts.Policy.Ladder[0]
	}
	state := escalation.State{CurrentModel: initialModel, Attempts: 0}

	var lastContent string
	var lastConfidence float64

	for {
		state.Attempts++
		emit(opts.OnStatus, PhaseAnswering, fmt.Sprintf("Attempt %d with model %s", state.Attempts, state.CurrentModel.Name))

		draftResp, err := opts.Provider.Chat(ctx, llm.ChatRequest{
			Model:    state.CurrentModel,
			Messages: buildAnswerMessages(prompt, refContext),
		})
		if err != nil {
			return LoopResult{}, err
		}
		lastContent = draftResp.Content

		verdict, err := verifier.Verify(ctx, opts.Provider, opts.VerifierModel, verifier.Request{
			Prompt:   prompt,
			Response: lastContent,
			Context:  refContext,
		})
		if err != nil {
			return LoopResult{}, err
		}

		verifierConfidence := verdict.Confidence
		lastConfidence = confidence.Combine(confidence.Inputs{VerifierConfidence: &verifierConfidence})

		if verdict.Approved && confidence.Acceptable(lastConfidence, opts.MinConfidence) {
			return LoopResult{Content: lastContent, Model: state.CurrentModel.Name, Confidence: lastConfidence, Attempts: state.Attempts}, nil
		}

		if confidence.ShouldEscalate(lastConfidence, confidence.EscalationThreshold) && escalation.CanEscalate(state, opts.Policy) {
			next, err := escalation.Escalate(state, opts.Policy)
			if err != nil {
				return LoopResult{}, err
			}
			emit(opts.OnStatus, PhaseAnswering, fmt.Sprintf("Escalating from %s to %s", state.CurrentModel.Name, next.Name))
			state.CurrentModel = next
			continue
		}

		if state.Attempts >= opts.MaxRetries {
			break
		}
	}

	return LoopResult{Content: lastContent, Model: state.CurrentModel.Name, Confidence: lastConfidence, Attempts: state.Attempts}, nil
}

func buildAnswerMessages(prompt string, refContext []string) []llm.ChatMessage {
	return []llm.ChatMessage{
		{Role: llm.RoleSystem, Content: answerSystemPrompt},
		{Role: llm.RoleUser, Content: buildUserPrompt(prompt, refContext)},
	}
}

// buildUserPrompt renders the bare prompt when refContext is empty, and
// otherwise wraps it with a 1-indexed, bracket-numbered context block:
// "CONTEXT:\n[1] ...\n[2] ...\n\nQUESTION:\n<prompt>".
func buildUserPrompt(prompt string, refContext []string) string {
	if len(refContext) == 0 {
		return prompt
	}
	lines := make([]string, len(refContext))
	for i, c := range refContext {
		lines[i] = fmt.Sprintf("[%d] %s", i+1, c)
	}
	return fmt.Sprintf("CONTEXT:\n%s\n\nQUESTION:\n%s", strings.Join(lines, "\n"), prompt)
}
