package engine

// State is the engine's per-conversation memory. One conversation owns
// exactly one State with a single writer per turn; concurrent conversations
// never share it. It serializes to JSON so the host can persist it in
// conversation metadata between turns.
type State struct {
	// LastCategory is the category returned on the previous turn. The
	// anti-repetition guard reads and updates it.
	LastCategory Category `json:"last_category,omitempty"`

	// Rotation holds the per-category index into the fallback question
	// bank, advanced on every fallback so repeated fallbacks within one
	// conversation do not repeat verbatim.
	Rotation map[Category]int `json:"rotation,omitempty"`

	// ReportSent guards the at-most-once report trigger.
	ReportSent bool `json:"report_sent,omitempty"`
}

// NewState returns the state a conversation starts with.
func NewState() *State {
	return &State{Rotation: make(map[Category]int)}
}

// nextRotation returns the current rotation index for cat and advances it.
func (s *State) nextRotation(cat Category) int {
	if s.Rotation == nil {
		s.Rotation = make(map[Category]int)
	}
	idx := s.Rotation[cat]
	s.Rotation[cat] = idx + 1
	return idx
}
