package engine

import "strings"

// Role identifies who contributed a turn.
type Role string

const (
	RolePatient        Role = "patient"
	RoleClinicianAgent Role = "clinician_agent"
)

// Turn is a single message within a conversation. Turns are immutable once
// appended and owned by the history they belong to.
type Turn struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
	Seq  int    `json:"seq"`
}

// History is the ordered, append-only sequence of turns for one
// conversation. Insertion order is the only signal for how many exchanges
// have occurred.
type History []Turn

// Append returns the history extended with a new turn. Seq is assigned from
// the current length.
func (h History) Append(role Role, text string) History {
	return append(h, Turn{Role: role, Text: text, Seq: len(h)})
}

// PatientTurns counts completed patient exchanges.
func (h History) PatientTurns() int {
	n := 0
	for _, t := range h {
		if t.Role == RolePatient {
			n++
		}
	}
	return n
}

// PatientText joins all patient turns into one lowercased string for
// keyword scanning.
func (h History) PatientText() string {
	var parts []string
	for _, t := range h {
		if t.Role == RolePatient {
			parts = append(parts, t.Text)
		}
	}
	return strings.ToLower(strings.Join(parts, " "))
}

// Recent returns up to n most recent turns.
func (h History) Recent(n int) History {
	if len(h) <= n {
		return h
	}
	return h[len(h)-n:]
}
