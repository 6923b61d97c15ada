package intake

import (
	"time"

	"github.com/google/uuid"

	"medintake/internal/engine"
)

// Conversation is the aggregate root for one patient intake dialogue. The
// engine state travels with the row so any server instance can process the
// next turn.
type Conversation struct {
	ID        uuid.UUID `json:"id" db:"id"`
	PatientID uuid.UUID `json:"patient_id" db:"patient_id"`

	// Full turn history, append-only.
	History engine.History `json:"history" db:"history"`

	// Engine holds the per-conversation engine state: last category,
	// fallback rotation indices, report-sent flag.
	Engine engine.State `json:"engine_state" db:"engine_state"`

	// Report is the clinician-facing summary, set once on completion.
	Report string `json:"report,omitempty" db:"report"`

	IsComplete bool      `json:"is_complete" db:"is_complete"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}
