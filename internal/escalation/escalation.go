// Package escalation implements the Escalation Policy: a fixed, ordered
// ladder of models and the rules for walking up it.
package escalation

import (
	"github.com/jgavinray/recursive-llm-gateway/internal/errors"
	"github.com/jgavinray/recursive-llm-gateway/internal/llm"
)

// Policy is the fixed, ordered ladder of models available to a session,
// plus the hard bound on how many times the ladder may be walked.
type Policy struct {
	Ladder      []llm.ModelConfig
	MaxAttempts int
}

// State tracks where a single inner-loop run currently sits: which model it
// is using and how many attempts it has made so far (across all models).
type State struct {
	CurrentModel llm.ModelConfig
	Attempts     int
}

// indexOfModel returns the position of model in ladder, matched by name.
// The caller is responsible for guaranteeing that the current model is
// always a member of its own ladder; violating that guarantee is a
// programming error, not a runtime condition, so this panics rather than
// returning an error.
func indexOfModel(model llm.ModelConfig, ladder []llm.ModelConfig) int {
	for i, m := range ladder {
		if m.Name == model.Name {
			return i
		}
	}
	panic(errors.ErrModelNotInLadder)
}

// CanEscalate reports whether state may still move to the next model in
// policy's ladder: the attempt budget must not be exhausted, and the
// current model must not already be the last rung.
func CanEscalate(state State, policy Policy) bool {
	if state.Attempts >= policy.MaxAttempts {
		return false
	}
	idx := indexOfModel(state.CurrentModel, policy.Ladder)
	return idx < len(policy.Ladder)-1
}

// Escalate returns the next model up policy's ladder from state's current
// model. It fails with errors.ErrNotEscalatable exactly when CanEscalate
// would return false for the same (state, policy) pair.
func Escalate(state State, policy Policy) (llm.ModelConfig, error) {
	if !CanEscalate(state, policy) {
		return llm.ModelConfig{}, errors.ErrNotEscalatable
	}
	idx := indexOfModel(state.CurrentModel, policy.Ladder)
	return policy.Ladder[idx+1], nil
}
