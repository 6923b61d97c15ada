package engine

import "strings"

// Category is one discrete type of missing information tracked by the
// intake state machine. The enumeration is closed and ordered;
// CategoryComplete is terminal and sorts last.
type Category string

const (
	CategorySymptomDetails   Category = "symptom_details"
	CategoryDurationSeverity Category = "duration_severity"
	CategoryMedicalHistory   Category = "medical_history"
	CategoryComplete         Category = "complete"
)

// categoryOrder fixes the progression of the intake. The anti-repetition
// guard relies on "next category after X" being defined for every
// non-terminal X.
var categoryOrder = []Category{
	CategorySymptomDetails,
	CategoryDurationSeverity,
	CategoryMedicalHistory,
	CategoryComplete,
}

// Categories returns the taxonomy in progression order.
func Categories() []Category {
	out := make([]Category, len(categoryOrder))
	copy(out, categoryOrder)
	return out
}

// IsTerminal reports whether c ends the intake.
func (c Category) IsTerminal() bool {
	return c == CategoryComplete
}

// Valid reports whether c is a member of the closed taxonomy.
func (c Category) Valid() bool {
	for _, cat := range categoryOrder {
		if c == cat {
			return true
		}
	}
	return false
}

// Next returns the category immediately following c in taxonomy order,
// clamped at CategoryComplete.
func (c Category) Next() Category {
	for i, cat := range categoryOrder {
		if cat == c && i+1 < len(categoryOrder) {
			return categoryOrder[i+1]
		}
	}
	return CategoryComplete
}

// ParseCategory maps free-form model output onto the taxonomy. "none" is
// accepted as an alias for complete since decision prompts offer it as the
// nothing-missing answer. Anything that does not normalize to a member is
// rejected; callers must fall back to the rule layer, never pass the value
// through.
func ParseCategory(s string) (Category, bool) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.Trim(norm, "\"'.`")
	norm = strings.ReplaceAll(norm, " ", "_")
	if norm == "none" {
		return CategoryComplete, true
	}
	if c := Category(norm); c.Valid() {
		return c, true
	}
	return "", false
}
