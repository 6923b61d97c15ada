package engine

import "context"

// GenerateOptions bound a single text-generation call.
type GenerateOptions struct {
	MaxTokens   int
	Temperature float32
}

// TextGenerator is the external inference capability. Calls may fail, time
// out, or return low-quality output; every caller in this package treats an
// error as "use the deterministic fallback" and never fails the turn on it.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
}
