package engine

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
)

// fallbackQuestions is the per-category rotation bank used whenever the
// model path is unavailable or produces an unusable result. Each bank has
// at least three entries so repeated fallbacks within one conversation do
// not repeat verbatim.
var fallbackQuestions = map[Category][]string{
	CategorySymptomDetails: {
		"Can you describe your main symptom in more detail?",
		"What other symptoms have you noticed alongside this?",
		"Have you noticed any other changes in how you feel?",
	},
	CategoryDurationSeverity: {
		"When did these symptoms first start?",
		"On a scale of 1 to 10, how severe is it right now?",
		"Is it getting worse, staying the same, or improving?",
	},
	CategoryMedicalHistory: {
		"Do you have any medical conditions or chronic diseases?",
		"Are you currently taking any medications?",
		"Are you allergic to any medications or substances?",
	},
}

// genericQuestion covers categories the bank does not recognize.
const genericQuestion = "Can you tell me more about how you're feeling?"

// QuestionGenerator produces the next follow-up question for a missing
// category. The model path is context-aware but unreliable; the rotation
// bank guarantees the patient is never shown a broken or verbatim-repeated
// prompt even under total model failure.
type QuestionGenerator struct {
	gen TextGenerator
	log zerolog.Logger
}

func NewQuestionGenerator(gen TextGenerator, log zerolog.Logger) *QuestionGenerator {
	return &QuestionGenerator{gen: gen, log: log}
}

// Generate never fails. It is called only for non-terminal categories.
func (g *QuestionGenerator) Generate(ctx context.Context, cat Category, history History, state *State) string {
	if g.gen != nil {
		raw, err := g.gen.GenerateText(ctx, questionPrompt(cat, history), GenerateOptions{MaxTokens: 80, Temperature: 0.8})
		if err == nil {
			if q, ok := cleanQuestion(raw); ok {
				return q
			}
			g.log.Warn().Str("category", string(cat)).
				Msg("model question failed validation, using bank")
		} else {
			g.log.Warn().Err(err).Str("category", string(cat)).
				Msg("question generation failed, using bank")
		}
	}
	return g.fallback(cat, state)
}

func (g *QuestionGenerator) fallback(cat Category, state *State) string {
	bank, ok := fallbackQuestions[cat]
	if !ok || len(bank) == 0 {
		return genericQuestion
	}
	return bank[state.nextRotation(cat)%len(bank)]
}

// cleanQuestion normalizes raw model output into a single well-formed
// question: strip any "Question:" preamble, cut at the first question mark
// when the model rambles on, drop surrounding quotes, and append a question
// mark when missing. Results of three characters or fewer are rejected.
func cleanQuestion(raw string) (string, bool) {
	q := strings.TrimSpace(raw)
	if i := strings.LastIndex(q, "Question:"); i >= 0 {
		q = q[i+len("Question:"):]
	}
	if i := strings.IndexByte(q, '?'); i >= 0 {
		q = q[:i+1]
	}
	q = strings.Trim(q, " \t\n\"'`")
	if len(q) <= 3 {
		return "", false
	}
	if !strings.HasSuffix(q, "?") {
		q += "?"
	}
	return q, true
}
