// Package confidence implements the Confidence Aggregator: a weighted mean
// over whichever confidence signals are present for a given attempt.
package confidence

// Fixed weights for the three possible confidence signals. Only the
// weights of the inputs that are actually present contribute to the
// normalizing denominator, so combine of a single input always reduces to
// that input's own clamped value.
const (
	WeightModel    = 0.3
	WeightVerifier = 0.5
	WeightEmbed    = 0.2

	// EscalationThreshold is the fixed theta used by ShouldEscalate.
	EscalationThreshold = 0.5
)

// Inputs holds the confidence signals available for one attempt. A nil
// field means that signal was not produced for this attempt (e.g. the
// embedding reviewer did not run during the inner loop). At least one
// field must be non-nil for Combine to return anything other than 0.
type Inputs struct {
	ModelConfidence    *float64
	VerifierConfidence *float64
	EmbeddingScore     *float64
}

// Combine computes the weighted mean of the present inputs, clamped to
// [0, 1]. If no input is present, it returns 0.
func Combine(in Inputs) float64 {
	var weightedSum, weightTotal float64

	if in.ModelConfidence != nil {
		weightedSum += WeightModel * *in.ModelConfidence
		weightTotal += WeightModel
	}
	if in.VerifierConfidence != nil {
		weightedSum += WeightVerifier * *in.VerifierConfidence
		weightTotal += WeightVerifier
	}
	if in.EmbeddingScore != nil {
		weightedSum += WeightEmbed * *in.EmbeddingScore
		weightTotal += WeightEmbed
	}

	if weightTotal == 0 {
		return 0
	}

	return clamp(weightedSum/weightTotal, 0, 1)
}

// Acceptable reports whether confidence c meets or exceeds threshold tau.
func Acceptable(c, tau float64) bool {
	return c >= tau
}

// ShouldEscalate reports whether confidence c falls below threshold theta.
func ShouldEscalate(c, theta float64) bool {
	return c < theta
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
