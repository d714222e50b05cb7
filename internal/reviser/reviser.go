// Package reviser implements the Reviser: a single backend call that asks a
// model to produce a new response given the original question, the
// previously rejected response, optional reviewer feedback, and any
// reference context.
package reviser

import (
	"context"
	"fmt"
	"strings"

	"github.com/jgavinray/recursive-llm-gateway/internal/llm"
)

const systemPrompt = `You are revising a previous response that was rejected by a reviewer. Produce a corrected, complete answer to the original question. Do not mention that a revision occurred.`

// Request is the input to a single revision call.
type Request struct {
	OriginalPrompt   string
	PreviousResponse string
	ReviewerNotes    string
	Context          []string
}

// Result is the Reviser's output.
type Result struct {
	Content string
	Model   string
}

// Revise calls provider with model to produce a revised answer for req.
// Confidence is not recomputed here; callers that need a confidence figure
// for the revised answer must run verification again themselves.
func Revise(ctx context.Context, provider llm.Provider, model llm.ModelConfig, req Request) (Result, error) {
	messages := []llm.ChatMessage{
		{Role: llm.RoleSystem, Content: systemPrompt},
		{Role: llm.RoleUser, Content: buildUserPrompt(req)},
	}

	resp, err := provider.Chat(ctx, llm.ChatRequest{Model: model, Messages: messages})
	if err != nil {
		return Result{}, err
	}

	return Result{Content: resp.Content, Model: model.Name}, nil
}

func buildUserPrompt(req Request) string {
	var b strings.Builder
	b.WriteString("ORIGINAL QUESTION:\n")
	b.WriteString(req.OriginalPrompt)
	b.WriteString("\n\nPREVIOUS (REJECTED) RESPONSE:\n")
	b.WriteString(req.PreviousResponse)

	if strings.TrimSpace(req.ReviewerNotes) != "" {
		b.WriteString("\n\nREVIEWER FEEDBACK:\n")
		b.WriteString(req.ReviewerNotes)
	}

	b.WriteString("\n\nREFERENCE CONTEXT:\n")
	b.WriteString(contextBlock(req.Context))

	return b.String()
}

// contextBlock renders refContext as a 1-indexed, bracket-numbered block,
// one entry per line: "[1] ...\n[2] ...". Always rendered, even when
// refContext is empty, so the REFERENCE CONTEXT label is never omitted.
func contextBlock(refContext []string) string {
	lines := make([]string, len(refContext))
	for i, c := range refContext {
		lines[i] = fmt.Sprintf("[%d] %s", i+1, c)
	}
	return strings.Join(lines, "\n")
}
