package embedreview

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEmbedder returns a fixed vector per input text, looked up by
// substring, and an error if set.
type fakeEmbedder struct {
	vectors map[string][]float32
	err     error
}

func (f *fakeEmbedder) Embed(ctx context.Context, model string, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	for key, vec := range f.vectors {
		if strings.Contains(text, key) {
			return vec, nil
		}
	}
	return []float32{0, 0, 0}, nil
}

func TestReview_IdenticalVectorsScoreOne(t *testing.T) {
	t.Parallel()

	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"the answer": {1, 0, 0},
		"prompt-x":   {1, 0, 0},
	}}

	r, err := Review(context.Background(), embedder, "nomic-embed-text", Request{
		Prompt:   "prompt-x",
		Response: "the answer",
	})

	require.NoError(t, err)
	assert.InDelta(t, 1.0, r.MaxScore, 1e-9)
	assert.True(t, r.Approved)
}

func TestReview_OrthogonalVectorsScoreZeroAndReject(t *testing.T) {
	t.Parallel()

	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"the answer": {1, 0, 0},
		"prompt-x":   {0, 1, 0},
	}}

	r, err := Review(context.Background(), embedder, "nomic-embed-text", Request{
		Prompt:   "prompt-x",
		Response: "the answer",
	})

	require.NoError(t, err)
	assert.InDelta(t, 0.0, r.MaxScore, 1e-9)
	assert.False(t, r.Approved)
}

func TestReview_TracksMaxAcrossContextAndPrompt(t *testing.T) {
	t.Parallel()

	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"the answer": {1, 1, 0},
		"context-a":  {0, 1, 0},
		"context-b":  {1, 1, 0},
		"prompt-x":   {1, 0, 0},
	}}

	r, err := Review(context.Background(), embedder, "nomic-embed-text", Request{
		Prompt:   "prompt-x",
		Response: "the answer",
		Context:  []string{"context-a", "context-b"},
	})

	require.NoError(t, err)
	assert.InDelta(t, 1.0, r.MaxScore, 1e-9)
}

func TestReview_ConfidenceEqualsMaxScoreForSingleInputCombine(t *testing.T) {
	t.Parallel()

	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"the answer": {1, 0},
		"prompt-x":   {1, 1},
	}}

	r, err := Review(context.Background(), embedder, "nomic-embed-text", Request{
		Prompt:   "prompt-x",
		Response: "the answer",
	})

	require.NoError(t, err)
	assert.InDelta(t, r.MaxScore, r.Confidence, 1e-9)
}

func TestReview_BackendErrorPropagates(t *testing.T) {
	t.Parallel()

	sentinel := assert.AnError
	embedder := &fakeEmbedder{err: sentinel}

	_, err := Review(context.Background(), embedder, "nomic-embed-text", Request{Prompt: "p", Response: "r"})
	assert.ErrorIs(t, err, sentinel)
}

func TestTruncate_CutsAtRuneBoundary(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("é", TruncationChars+10)
	truncated := truncate(long)

	assert.Equal(t, TruncationChars, len([]rune(truncated)))
}

func TestTruncate_LeavesShortStringUnchanged(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "short", truncate("short"))
}
