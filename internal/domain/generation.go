package domain

import "context"

// GenerationRequest is a fully built prompt pair handed to a language model.
type GenerationRequest struct {
	System      string
	User        string
	Temperature float32
}

// GenerationResult carries the model text and token usage.
type GenerationResult struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
}

// Generator produces an answer for a built prompt.
// Implementations do not retry; the caller owns timeouts and circuit breaking.
type Generator interface {
	Generate(ctx context.Context, req GenerationRequest) (GenerationResult, error)
}
