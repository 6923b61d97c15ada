package engine

import (
	"context"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReporter struct {
	calls  int
	report string
	err    error
}

func (f *fakeReporter) GenerateReport(_ context.Context, _ History) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.report, nil
}

func newTestOrchestrator(reporter ReportTrigger) *Orchestrator {
	// Rule layer only, question bank only: fully deterministic.
	return NewOrchestrator(
		newRuleOnlyEvaluator(),
		NewQuestionGenerator(nil, zerolog.Nop()),
		reporter,
		zerolog.Nop(),
	)
}

func TestFirstTurnAsksAboutSymptoms(t *testing.T) {
	o := newTestOrchestrator(&fakeReporter{report: "summary"})
	state := NewState()

	h, out, err := o.ProcessTurn(context.Background(), nil, "I have a headache", state)
	require.NoError(t, err)

	assert.False(t, out.Complete)
	assert.Equal(t, CategorySymptomDetails, out.Category)
	assert.NotEmpty(t, out.Response)
	assert.True(t, strings.HasSuffix(out.Response, "?"))

	require.Len(t, h, 2)
	assert.Equal(t, RolePatient, h[0].Role)
	assert.Equal(t, RoleClinicianAgent, h[1].Role)
	assert.Equal(t, out.Response, h[1].Text)
}

func TestConversationCompletesWithSingleReport(t *testing.T) {
	reporter := &fakeReporter{report: "INTAKE SUMMARY"}
	o := newTestOrchestrator(reporter)
	state := NewState()

	var h History
	var out Outcome
	var err error
	messages := []string{
		"I have a severe headache",
		"It started two days ago",
		"It's an 8 out of 10",
		"No other symptoms",
		"I don't take any medications",
		"No previous history of migraines",
		"That's everything",
	}
	var firstComplete *Outcome
	for i, msg := range messages {
		h, out, err = o.ProcessTurn(context.Background(), h, msg, state)
		require.NoError(t, err, "turn %d", i+1)
		if out.Complete && firstComplete == nil {
			c := out
			firstComplete = &c
		}
	}

	require.NotNil(t, firstComplete, "conversation must complete within 7 exchanges")
	assert.True(t, firstComplete.Report)
	assert.Equal(t, "INTAKE SUMMARY", firstComplete.Response)
	assert.True(t, out.Complete)
	assert.Equal(t, 1, reporter.calls)

	// Terminal state is idempotent: further turns stay complete and never
	// re-trigger the report.
	h, out, err = o.ProcessTurn(context.Background(), h, "anything else?", state)
	require.NoError(t, err)
	assert.True(t, out.Complete)
	assert.False(t, out.Report)
	assert.Equal(t, 1, reporter.calls)
}

func TestNoImmediateCategoryRepetition(t *testing.T) {
	o := newTestOrchestrator(&fakeReporter{report: "summary"})
	state := NewState()

	var h History
	var prev Category
	for i := 0; i < 8; i++ {
		var out Outcome
		var err error
		h, out, err = o.ProcessTurn(context.Background(), h, "message", state)
		require.NoError(t, err)
		if i > 0 && !prev.IsTerminal() {
			assert.NotEqual(t, prev, out.Category, "turn %d", i+1)
		}
		prev = out.Category
	}
	assert.Equal(t, CategoryComplete, prev)
}

func TestReportFailureReturnsCompletionNotice(t *testing.T) {
	reporter := &fakeReporter{err: errors.New("model down")}
	o := newTestOrchestrator(reporter)
	state := NewState()

	var h History
	var out Outcome
	var err error
	for i := 0; i < 7; i++ {
		h, out, err = o.ProcessTurn(context.Background(), h, "message", state)
		require.NoError(t, err, "report failure must not fail the turn")
	}

	assert.True(t, out.Complete)
	assert.False(t, out.Report)
	assert.Equal(t, completionNotice, out.Response)
	assert.Equal(t, 1, reporter.calls, "trigger is invoked at most once even on failure")
}
