// Package planner implements the Planner: a single backend call that asks
// a model to sketch a high-level approach to a prompt before any drafting
// begins.
package planner

import (
	"context"

	"github.com/jgavinray/recursive-llm-gateway/internal/llm"
)

const systemPrompt = `You are a planning assistant. Given a user's question, sketch a brief, high-level plan for how to answer it correctly. Do not answer the question itself — only describe the approach: what needs to be checked, computed, or recalled.`

// Plan calls provider with model to produce a plan for prompt, and returns
// the full message transcript (system + user + assistant reply) so callers
// can fold it into later context. The plan text itself is the content of
// the final (assistant) message; use LastAssistantText to extract it.
func Plan(ctx context.Context, provider llm.Provider, model llm.ModelConfig, prompt string) ([]llm.ChatMessage, error) {
	messages := []llm.ChatMessage{
		{Role: llm.RoleSystem, Content: systemPrompt},
		{Role: llm.RoleUser, Content: prompt},
	}

	resp, err := provider.Chat(ctx, llm.ChatRequest{Model: model, Messages: messages})
	if err != nil {
		return nil, err
	}

	return append(messages, llm.ChatMessage{Role: llm.RoleAssistant, Content: resp.Content}), nil
}

// LastAssistantText returns the content of the last assistant message in
// messages, or "" if there is none.
func LastAssistantText(messages []llm.ChatMessage) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == llm.RoleAssistant {
			return messages[i].Content
		}
	}
	return ""
}
