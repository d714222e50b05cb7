// Package embedreview implements the Embedding Reviewer: a second, cheaper
// check on a draft response that compares its embedding against the
// request's own prompt and context via cosine similarity, instead of
// asking a model to judge it.
package embedreview

import (
	"context"
	"math"
	"unicode/utf8"

	"github.com/jgavinray/recursive-llm-gateway/internal/confidence"
	"github.com/jgavinray/recursive-llm-gateway/internal/llm"
)

// TruncationChars is the maximum number of runes of input text sent to the
// embeddings backend per call.
const TruncationChars = 8000

// AcceptanceThreshold is the fixed cosine-similarity cutoff at or above
// which a response is considered grounded in the prompt or its context.
const AcceptanceThreshold = 0.75

// Request is the input to a single embedding review.
type Request struct {
	Prompt   string
	Response string
	Context  []string
}

// Result is the Embedding Reviewer's verdict.
type Result struct {
	Approved   bool
	Confidence float64
	MaxScore   float64
}

// Review computes the response's embedding and compares it against the
// embeddings of every item in context plus the prompt itself, tracking the
// maximum cosine similarity. Backend errors propagate unchanged.
func Review(ctx context.Context, embedder llm.EmbeddingProvider, model string, req Request) (Result, error) {
	responseVec, err := embedder.Embed(ctx, model, truncate(req.Response))
	if err != nil {
		return Result{}, err
	}

	candidates := make([]string, 0, len(req.Context)+1)
	candidates = append(candidates, req.Context...)
	candidates = append(candidates, req.Prompt)

	var maxScore float64
	for _, c := range candidates {
		vec, err := embedder.Embed(ctx, model, truncate(c))
		if err != nil {
			return Result{}, err
		}
		if score := cosineSimilarity(responseVec, vec); score > maxScore {
			maxScore = score
		}
	}

	reviewConfidence := confidence.Combine(confidence.Inputs{EmbeddingScore: &maxScore})

	return Result{
		Approved:   maxScore >= AcceptanceThreshold,
		Confidence: reviewConfidence,
		MaxScore:   maxScore,
	}, nil
}

// truncate cuts s down to at most TruncationChars runes, never splitting a
// multi-byte UTF-8 rune.
func truncate(s string) string {
	if utf8.RuneCountInString(s) <= TruncationChars {
		return s
	}
	runes := []rune(s)
	return string(runes[:TruncationChars])
}

// cosineSimilarity computes the cosine similarity of a and b. Vectors of
// differing length are compared over their shared prefix. A zero-norm
// vector yields a similarity of 0 rather than dividing by zero.
func cosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
