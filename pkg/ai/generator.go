package ai

import "context"

// TextGenerator generates a complete text from a system prompt and user
// prompt.
type TextGenerator interface {
	GenerateText(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// StreamGenerator generates text incrementally. emit is called once per
// content delta in arrival order; returning an error from emit aborts
// the stream. Cancelling ctx aborts the upstream request.
type StreamGenerator interface {
	GenerateTextStream(ctx context.Context, systemPrompt, userPrompt string, emit func(delta string) error) error
}
