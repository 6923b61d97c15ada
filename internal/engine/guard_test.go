package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuardForcesProgression(t *testing.T) {
	state := NewState()

	first := Guard(EvaluationResult{ShouldContinue: true, MissingCategory: CategorySymptomDetails}, state)
	assert.Equal(t, CategorySymptomDetails, first.MissingCategory)

	// A buggy heuristic returns the same category again.
	second := Guard(EvaluationResult{ShouldContinue: true, MissingCategory: CategorySymptomDetails}, state)
	assert.Equal(t, CategoryDurationSeverity, second.MissingCategory)
	assert.True(t, second.ShouldContinue)
	assert.Equal(t, CategoryDurationSeverity, state.LastCategory)
}

func TestGuardClampsAtComplete(t *testing.T) {
	state := &State{LastCategory: CategoryMedicalHistory}

	res := Guard(EvaluationResult{ShouldContinue: true, MissingCategory: CategoryMedicalHistory}, state)
	assert.Equal(t, CategoryComplete, res.MissingCategory)
	assert.False(t, res.ShouldContinue)
}

func TestGuardAllowsTerminalRepetition(t *testing.T) {
	state := &State{LastCategory: CategoryComplete}

	res := Guard(EvaluationResult{ShouldContinue: false, MissingCategory: CategoryComplete}, state)
	assert.Equal(t, CategoryComplete, res.MissingCategory)
	assert.False(t, res.ShouldContinue)
}

// Evaluator plus guard must terminate within 2 turns per non-terminal
// category and never repeat a non-terminal category on consecutive turns.
func TestEvaluatorGuardTermination(t *testing.T) {
	e := newRuleOnlyEvaluator()
	state := NewState()

	var h History
	var seen []Category
	completedAt := 0
	for n := 1; n <= 8; n++ {
		h = h.Append(RolePatient, "message")
		raw, err := e.Evaluate(context.Background(), h)
		require.NoError(t, err)
		res := Guard(raw, state)
		seen = append(seen, res.MissingCategory)
		if res.MissingCategory == CategoryComplete && completedAt == 0 {
			completedAt = n
		}
	}

	require.NotZero(t, completedAt, "conversation never completed")
	assert.LessOrEqual(t, completedAt, 2*3+1)
	for i := 1; i < len(seen); i++ {
		if !seen[i-1].IsTerminal() {
			assert.NotEqual(t, seen[i-1], seen[i], "turn %d repeated %s", i+1, seen[i])
		}
	}
}
