// Package verifier implements the LLM-as-judge Verifier: a single backend
// call that asks a (typically low-temperature) model to approve or reject a
// draft response, with strict, defensive JSON parsing of its reply.
package verifier

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/jgavinray/recursive-llm-gateway/internal/llm"
)

// Request is the input to a single verification call.
type Request struct {
	Prompt   string
	Response string
	Context  []string
}

// Verdict is the Verifier's judgment. It is never absent: a malformed or
// unparseable model reply produces the deterministic fallback verdict
// below rather than an error.
type Verdict struct {
	Approved   bool
	Confidence float64
	Notes      string
}

// fallbackVerdict is returned whenever the verifier model's reply cannot be
// parsed into a verdict. It is unconditionally rejecting, so a parse
// failure can never be mistaken for an approval.
var fallbackVerdict = Verdict{
	Approved:   false,
	Confidence: 0,
	Notes:      "Verifier output could not be parsed",
}

const systemPrompt = `You are a strict verifier. Given a user prompt, optional reference context, and a candidate response, judge whether the response correctly and completely answers the prompt.

Reply with ONLY a single JSON object of the form:
{"approved": <true|false>, "confidence": <number between 0 and 1>, "notes": "<short explanation>"}

Do not include any text before or after the JSON object.`

// Verify calls provider with model to judge req, and defensively parses the
// reply. Backend errors (unreachable, non-2xx, malformed response) are
// returned to the caller unchanged; only verifier-output parse failures are
// swallowed into the fallback verdict.
func Verify(ctx context.Context, provider llm.Provider, model llm.ModelConfig, req Request) (Verdict, error) {
	messages := []llm.ChatMessage{
		{Role: llm.RoleSystem, Content: systemPrompt},
		{Role: llm.RoleUser, Content: buildUserPrompt(req)},
	}

	resp, err := provider.Chat(ctx, llm.ChatRequest{Model: model, Messages: messages})
	if err != nil {
		return Verdict{}, err
	}

	return parseVerdict(resp.Content), nil
}

func buildUserPrompt(req Request) string {
	var b strings.Builder
	b.WriteString("PROMPT:\n")
	b.WriteString(req.Prompt)
	b.WriteString("\n\nRESPONSE:\n")
	b.WriteString(req.Response)
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

// codeFenceRe strips a ```json ... ``` fence, mirroring the extraction the
// backend model sometimes wraps its JSON reply in despite being instructed
// not to.
var codeFenceRe = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.*?)\\n?```")

// parseVerdict defensively extracts a Verdict from raw model output: it
// strips an optional code fence, then locates the first '{' and the last
// '}' in what remains and parses that slice as JSON. Any failure along the
// way yields fallbackVerdict rather than an error.
func parseVerdict(raw string) Verdict {
	text := raw
	if m := codeFenceRe.FindStringSubmatch(raw); len(m) == 2 {
		text = m[1]
	}

	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end < 0 || end < start {
		return fallbackVerdict
	}

	var decoded struct {
		Approved   interface{} `json:"approved"`
		Confidence interface{} `json:"confidence"`
		Notes      string      `json:"notes"`
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), &decoded); err != nil {
		return fallbackVerdict
	}

	approved, _ := decoded.Approved.(bool)

	confidence, ok := asFloat(decoded.Confidence)
	if !ok {
		confidence = 0
	}
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	return Verdict{Approved: approved, Confidence: confidence, Notes: decoded.Notes}
}

func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
