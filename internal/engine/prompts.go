package engine

import (
	"fmt"
	"strings"
)

// recentTurns caps how much history is inlined into prompts.
const recentTurns = 6

// categoryTopics phrases each category for question prompts.
var categoryTopics = map[Category]string{
	CategorySymptomDetails:   "the patient's main symptoms",
	CategoryDurationSeverity: "how long the symptoms have lasted and how severe they are",
	CategoryMedicalHistory:   "the patient's medical history, medications and allergies",
}

func transcript(h History) string {
	var b strings.Builder
	for _, t := range h.Recent(recentTurns) {
		speaker := "Patient"
		if t.Role == RoleClinicianAgent {
			speaker = "Assistant"
		}
		fmt.Fprintf(&b, "%s: %s\n", speaker, t.Text)
	}
	return b.String()
}

func evaluationPrompt(h History) string {
	var b strings.Builder
	b.WriteString("You are a medical intake assistant. Decide whether enough information has been gathered for a clinician-facing summary.\n\n")
	b.WriteString("Conversation so far:\n")
	b.WriteString(transcript(h))
	b.WriteString("\nInformation categories, in intake order: symptom_details, duration_severity, medical_history.\n\n")
	b.WriteString(`Respond with ONLY a JSON object, no markdown:
{"should_continue_asking": true/false, "missing_category": "symptom_details|duration_severity|medical_history|none", "reasoning": "brief explanation"}`)
	return b.String()
}

func questionPrompt(cat Category, h History) string {
	topic := categoryTopics[cat]
	if topic == "" {
		topic = "the patient's condition"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "You are a caring clinician conducting a patient intake. Based on the conversation, ask ONE brief follow-up question about %s.\n\n", topic)
	b.WriteString("Recent conversation:\n")
	b.WriteString(transcript(h))
	b.WriteString(`
Guidelines:
- Ask one clear, specific question
- Use simple, patient-friendly language
- Do not repeat questions already asked
- If asking about pain, ask for a scale of 1 to 10

Generate only the question, no explanation.`)
	return b.String()
}
