package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// ErrEmptyHistory is returned when Evaluate is called before any patient
// turn exists. That is a caller bug, not a recoverable condition.
var ErrEmptyHistory = errors.New("engine: history contains no patient turns")

// EvaluationResult is produced fresh each turn. Reasoning is diagnostic
// only and is never parsed.
type EvaluationResult struct {
	ShouldContinue  bool
	MissingCategory Category
	Reasoning       string
}

// EvaluatorConfig carries the product-tunable knobs of the rule layer.
type EvaluatorConfig struct {
	// TurnsPerCategory is how many patient exchanges each non-terminal
	// category is given before the schedule moves on. Any value >= 1 keeps
	// the schedule total and monotonic, so the conversation terminates.
	TurnsPerCategory int

	// ModelFallback enables the slow path when the rules are not confident.
	ModelFallback bool
}

// Evaluator decides, from the conversation history, whether intake is
// complete and which category is still missing. The rule layer always runs
// and always has an answer; the model layer is consulted only when the
// rules are not confident, and anything it returns that cannot be mapped
// onto the closed taxonomy is discarded in favor of the rule result.
type Evaluator struct {
	gen TextGenerator
	cfg EvaluatorConfig
	log zerolog.Logger
}

func NewEvaluator(gen TextGenerator, cfg EvaluatorConfig, log zerolog.Logger) *Evaluator {
	if cfg.TurnsPerCategory < 1 {
		cfg.TurnsPerCategory = 2
	}
	return &Evaluator{gen: gen, cfg: cfg, log: log}
}

// categoryKeywords signal that information for a category is already
// present in the patient's own words.
var categoryKeywords = map[Category][]string{
	CategorySymptomDetails: {
		"pain", "ache", "hurt", "sore", "fever", "cough", "rash",
		"tired", "dizzy", "nausea", "vomit", "swell", "bleed", "sick",
	},
	CategoryDurationSeverity: {
		"day", "week", "month", "hour", "yesterday", "today", "ago",
		"started", "began", "since", "severe", "mild", "moderate",
		"scale", "sharp", "dull", "/10", "out of 10",
	},
	CategoryMedicalHistory: {
		"history", "condition", "medication", "allerg", "surgery",
		"diagnosed", "chronic", "previous", "taking",
	},
}

// Evaluate runs the two-layer completeness check. The precondition is a
// history with at least one patient turn.
func (e *Evaluator) Evaluate(ctx context.Context, history History) (EvaluationResult, error) {
	n := history.PatientTurns()
	if n == 0 {
		return EvaluationResult{}, ErrEmptyHistory
	}

	rule := e.ruleResult(n)
	if rule.MissingCategory.IsTerminal() || !e.cfg.ModelFallback || e.gen == nil {
		return rule, nil
	}
	if !e.uncertain(rule.MissingCategory, history) {
		return rule, nil
	}

	if model, ok := e.modelResult(ctx, history); ok {
		return model, nil
	}
	return rule, nil
}

// ruleResult maps the exchange count onto the schedule: with k turns per
// category, exchange n lands on category index (n-1)/k, clamped at
// complete. Total for every n >= 1 and monotonically non-decreasing.
func (e *Evaluator) ruleResult(n int) EvaluationResult {
	idx := (n - 1) / e.cfg.TurnsPerCategory
	if idx >= len(categoryOrder) {
		idx = len(categoryOrder) - 1
	}
	cat := categoryOrder[idx]
	return EvaluationResult{
		ShouldContinue:  !cat.IsTerminal(),
		MissingCategory: cat,
		Reasoning:       fmt.Sprintf("rule schedule: exchange %d maps to %s", n, cat),
	}
}

// uncertain reports whether the scheduled category's signals already appear
// in the patient's words. Asking for it again would likely be redundant, so
// the model gets the final say when it is available.
func (e *Evaluator) uncertain(cat Category, history History) bool {
	text := history.PatientText()
	for _, kw := range categoryKeywords[cat] {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

var jsonBlockRe = regexp.MustCompile(`(?s)\{.*\}`)

type modelDecision struct {
	ShouldContinueAsking *bool  `json:"should_continue_asking"`
	MissingCategory      string `json:"missing_category"`
	Reasoning            string `json:"reasoning"`
}

// modelResult asks the model for a structured decision. It reports ok=false
// on any transport failure, parse failure, or out-of-taxonomy category; the
// caller then keeps the rule result. A sentinel value such as "unclear" must
// never leak out of here.
func (e *Evaluator) modelResult(ctx context.Context, history History) (EvaluationResult, bool) {
	raw, err := e.gen.GenerateText(ctx, evaluationPrompt(history), GenerateOptions{MaxTokens: 150, Temperature: 0.1})
	if err != nil {
		e.log.Warn().Err(err).
			Int("patient_turns", history.PatientTurns()).
			Msg("completeness model call failed, rule layer wins")
		return EvaluationResult{}, false
	}

	block := jsonBlockRe.FindString(raw)
	if block == "" {
		e.log.Warn().Int("patient_turns", history.PatientTurns()).
			Msg("completeness model returned no JSON, rule layer wins")
		return EvaluationResult{}, false
	}

	var dec modelDecision
	if err := json.Unmarshal([]byte(block), &dec); err != nil || dec.ShouldContinueAsking == nil {
		e.log.Warn().Int("patient_turns", history.PatientTurns()).
			Msg("completeness model decision unparseable, rule layer wins")
		return EvaluationResult{}, false
	}

	if !*dec.ShouldContinueAsking {
		return EvaluationResult{
			ShouldContinue:  false,
			MissingCategory: CategoryComplete,
			Reasoning:       "model decision: " + dec.Reasoning,
		}, true
	}

	cat, ok := ParseCategory(dec.MissingCategory)
	if !ok || cat.IsTerminal() {
		// continue=true with a terminal or unknown category violates the
		// taxonomy contract; discard the whole decision.
		e.log.Warn().Str("category", dec.MissingCategory).
			Int("patient_turns", history.PatientTurns()).
			Msg("completeness model returned out-of-taxonomy category, rule layer wins")
		return EvaluationResult{}, false
	}
	return EvaluationResult{
		ShouldContinue:  true,
		MissingCategory: cat,
		Reasoning:       "model decision: " + dec.Reasoning,
	}, true
}
