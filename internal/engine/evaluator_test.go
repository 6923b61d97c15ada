package engine

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedGenerator plays back canned responses, or a fixed error, and
// records every prompt it was given.
type scriptedGenerator struct {
	responses []string
	err       error
	calls     int
	prompts   []string
}

func (g *scriptedGenerator) GenerateText(_ context.Context, prompt string, _ GenerateOptions) (string, error) {
	g.calls++
	g.prompts = append(g.prompts, prompt)
	if g.err != nil {
		return "", g.err
	}
	if len(g.responses) == 0 {
		return "", errors.New("no scripted response")
	}
	r := g.responses[0]
	if len(g.responses) > 1 {
		g.responses = g.responses[1:]
	}
	return r, nil
}

func historyFromPatient(texts ...string) History {
	var h History
	for _, t := range texts {
		h = h.Append(RolePatient, t)
	}
	return h
}

func newRuleOnlyEvaluator() *Evaluator {
	return NewEvaluator(nil, EvaluatorConfig{TurnsPerCategory: 2}, zerolog.Nop())
}

func TestEvaluateEmptyHistory(t *testing.T) {
	_, err := newRuleOnlyEvaluator().Evaluate(context.Background(), History{})
	require.ErrorIs(t, err, ErrEmptyHistory)
}

func TestRuleSchedule(t *testing.T) {
	e := newRuleOnlyEvaluator()
	want := []Category{
		CategorySymptomDetails, CategorySymptomDetails,
		CategoryDurationSeverity, CategoryDurationSeverity,
		CategoryMedicalHistory, CategoryMedicalHistory,
		CategoryComplete, CategoryComplete,
	}
	var h History
	for i, expected := range want {
		h = h.Append(RolePatient, "message")
		res, err := e.Evaluate(context.Background(), h)
		require.NoError(t, err)
		assert.Equal(t, expected, res.MissingCategory, "exchange %d", i+1)
		assert.Equal(t, expected != CategoryComplete, res.ShouldContinue, "exchange %d", i+1)
	}
}

func TestRuleLayerFirstExchange(t *testing.T) {
	res, err := newRuleOnlyEvaluator().Evaluate(context.Background(), historyFromPatient("I have a headache"))
	require.NoError(t, err)
	assert.True(t, res.ShouldContinue)
	assert.Equal(t, CategorySymptomDetails, res.MissingCategory)
	assert.NotEmpty(t, res.Reasoning)
}

// The third exchange is scheduled for duration_severity; duration keywords
// in the history make the rules uncertain, so the model is consulted.
func uncertainThirdExchange() History {
	return historyFromPatient(
		"I have a headache",
		"It started two days ago",
		"It has been getting worse since yesterday",
	)
}

func TestModelFallbackDiscardsUnclear(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{
		`{"should_continue_asking": true, "missing_category": "unclear", "reasoning": "?"}`,
	}}
	e := NewEvaluator(gen, EvaluatorConfig{TurnsPerCategory: 2, ModelFallback: true}, zerolog.Nop())

	res, err := e.Evaluate(context.Background(), uncertainThirdExchange())
	require.NoError(t, err)
	assert.Equal(t, 1, gen.calls)
	assert.Equal(t, CategoryDurationSeverity, res.MissingCategory, "rule layer wins over out-of-taxonomy category")
	assert.True(t, res.ShouldContinue)
}

func TestModelFallbackErrorUsesRuleLayer(t *testing.T) {
	gen := &scriptedGenerator{err: errors.New("inference timeout")}
	e := NewEvaluator(gen, EvaluatorConfig{TurnsPerCategory: 2, ModelFallback: true}, zerolog.Nop())

	res, err := e.Evaluate(context.Background(), uncertainThirdExchange())
	require.NoError(t, err, "transient inference failure must never surface")
	assert.Equal(t, CategoryDurationSeverity, res.MissingCategory)
}

func TestModelFallbackAccepted(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{
		`Sure! {"should_continue_asking": true, "missing_category": "medical_history", "reasoning": "duration covered"}`,
	}}
	e := NewEvaluator(gen, EvaluatorConfig{TurnsPerCategory: 2, ModelFallback: true}, zerolog.Nop())

	res, err := e.Evaluate(context.Background(), uncertainThirdExchange())
	require.NoError(t, err)
	assert.Equal(t, CategoryMedicalHistory, res.MissingCategory)
	assert.True(t, res.ShouldContinue)
}

func TestModelFallbackComplete(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{
		`{"should_continue_asking": false, "missing_category": "none", "reasoning": "enough"}`,
	}}
	e := NewEvaluator(gen, EvaluatorConfig{TurnsPerCategory: 2, ModelFallback: true}, zerolog.Nop())

	res, err := e.Evaluate(context.Background(), uncertainThirdExchange())
	require.NoError(t, err)
	assert.False(t, res.ShouldContinue)
	assert.Equal(t, CategoryComplete, res.MissingCategory)
}

func TestModelFallbackDisabled(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{`{"should_continue_asking": false}`}}
	e := NewEvaluator(gen, EvaluatorConfig{TurnsPerCategory: 2, ModelFallback: false}, zerolog.Nop())

	res, err := e.Evaluate(context.Background(), uncertainThirdExchange())
	require.NoError(t, err)
	assert.Zero(t, gen.calls, "disabled fallback must not call the model")
	assert.Equal(t, CategoryDurationSeverity, res.MissingCategory)
}

func TestTaxonomyClosure(t *testing.T) {
	garbage := []string{
		"I think you should keep asking about lifestyle",
		`{"should_continue_asking": "maybe"}`,
		`{"missing_category": "symptoms"}`,
		`{"should_continue_asking": true, "missing_category": "clinical_context"}`,
		`{"should_continue_asking": true, "missing_category": "complete"}`,
		"{}",
	}
	for _, out := range garbage {
		gen := &scriptedGenerator{responses: []string{out}}
		e := NewEvaluator(gen, EvaluatorConfig{TurnsPerCategory: 2, ModelFallback: true}, zerolog.Nop())
		res, err := e.Evaluate(context.Background(), uncertainThirdExchange())
		require.NoError(t, err, "model output %q", out)
		assert.True(t, res.MissingCategory.Valid(), "model output %q leaked %q", out, res.MissingCategory)
		assert.Equal(t, res.MissingCategory == CategoryComplete, !res.ShouldContinue, "model output %q", out)
	}
}

func TestScheduleIsTotalAndMonotonic(t *testing.T) {
	for _, k := range []int{1, 2, 3, 5} {
		e := NewEvaluator(nil, EvaluatorConfig{TurnsPerCategory: k}, zerolog.Nop())
		prev := -1
		for n := 1; n <= 30; n++ {
			res := e.ruleResult(n)
			require.True(t, res.MissingCategory.Valid(), "k=%d n=%d", k, n)
			idx := 0
			for i, c := range categoryOrder {
				if c == res.MissingCategory {
					idx = i
				}
			}
			require.GreaterOrEqual(t, idx, prev, "k=%d n=%d schedule regressed", k, n)
			prev = idx
		}
		assert.Equal(t, CategoryComplete, e.ruleResult(3*k+1).MissingCategory, "k=%d must terminate", k)
	}
}
