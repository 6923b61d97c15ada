package engine

// Guard enforces the anti-repetition rule: the same non-terminal category is
// never returned on two consecutive turns. When the evaluator repeats the
// previous category the guard advances to the next one in taxonomy order,
// clamped at complete, which bounds the conversation at two turns per
// non-terminal category. The final category is recorded on state.
func Guard(result EvaluationResult, state *State) EvaluationResult {
	if state.LastCategory != "" &&
		result.MissingCategory == state.LastCategory &&
		!result.MissingCategory.IsTerminal() {
		next := state.LastCategory.Next()
		result.MissingCategory = next
		result.ShouldContinue = !next.IsTerminal()
		result.Reasoning = "forced progression: " + string(state.LastCategory) + " repeated"
	}
	state.LastCategory = result.MissingCategory
	return result
}
