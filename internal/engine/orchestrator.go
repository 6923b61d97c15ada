package engine

import (
	"context"

	"github.com/rs/zerolog"
)

// ReportTrigger synthesizes the clinician-facing summary once intake is
// complete. Its internals are a downstream concern.
type ReportTrigger interface {
	GenerateReport(ctx context.Context, history History) (string, error)
}

// OpeningQuestion starts every conversation, before the engine has any
// patient turn to evaluate.
const OpeningQuestion = "Hello! I'm here to help with your intake. What brings you in today, and what symptoms are you experiencing?"

// completionNotice is returned when the downstream report generator fails;
// the patient never sees an internal error.
const completionNotice = "Thank you, I have everything I need. Your summary is being prepared for the clinician."

// Outcome is what one processed turn produced.
type Outcome struct {
	// Complete is true once the terminal category is reached.
	Complete bool
	// Category is the missing category this turn asked about, or
	// CategoryComplete.
	Category Category
	// Response is the follow-up question while gathering, and the report
	// (or a completion notice) once complete.
	Response string
	// Report is true when Response is a freshly generated report.
	Report bool
}

// Orchestrator drives one conversation through the GATHERING -> COMPLETE
// state machine, one turn at a time. It holds no per-conversation state
// itself; everything that survives a turn lives in the caller-owned State.
type Orchestrator struct {
	evaluator *Evaluator
	questions *QuestionGenerator
	reporter  ReportTrigger
	log       zerolog.Logger
}

func NewOrchestrator(evaluator *Evaluator, questions *QuestionGenerator, reporter ReportTrigger, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		evaluator: evaluator,
		questions: questions,
		reporter:  reporter,
		log:       log,
	}
}

// ProcessTurn runs one full engine turn: append the patient message, decide
// completeness, guard against category repetition, and produce either the
// next question or the report. The returned history includes both the
// patient turn and the agent response. Once complete, further turns keep
// returning a completed outcome and the report trigger is never re-invoked.
func (o *Orchestrator) ProcessTurn(ctx context.Context, history History, patientText string, state *State) (History, Outcome, error) {
	history = history.Append(RolePatient, patientText)

	raw, err := o.evaluator.Evaluate(ctx, history)
	if err != nil {
		return history, Outcome{}, err
	}
	res := Guard(raw, state)
	if res.MissingCategory != raw.MissingCategory {
		o.log.Debug().
			Str("from", string(raw.MissingCategory)).
			Str("to", string(res.MissingCategory)).
			Int("patient_turns", history.PatientTurns()).
			Msg("guard forced category progression")
	}
	o.log.Debug().
		Bool("continue", res.ShouldContinue).
		Str("category", string(res.MissingCategory)).
		Str("reasoning", res.Reasoning).
		Msg("turn evaluated")

	if !res.ShouldContinue {
		outcome := Outcome{Complete: true, Category: CategoryComplete, Response: completionNotice}
		if !state.ReportSent {
			state.ReportSent = true
			report, err := o.reporter.GenerateReport(ctx, history)
			if err != nil {
				o.log.Error().Err(err).
					Int("patient_turns", history.PatientTurns()).
					Msg("report generation failed, returning completion notice")
			} else {
				outcome.Response = report
				outcome.Report = true
			}
		}
		history = history.Append(RoleClinicianAgent, outcome.Response)
		return history, outcome, nil
	}

	question := o.questions.Generate(ctx, res.MissingCategory, history, state)
	history = history.Append(RoleClinicianAgent, question)
	return history, Outcome{Category: res.MissingCategory, Response: question}, nil
}
