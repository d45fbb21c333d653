// Package completion defines the interface for text-completion providers.
package completion

import "context"

// Request is one completion request.
type Request struct {
	// System is the instruction prompt.
	System string
	// Prompt is the user content.
	Prompt string
	// MaxTokens bounds the response length. Zero means provider default.
	MaxTokens int
	// JSONResponse asks the provider for a structured JSON object.
	JSONResponse bool
}

// Usage reports the tokens consumed by one call.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
}

// Response is one completion result.
type Response struct {
	Text  string
	Usage Usage
}

// Provider defines the interface for completion providers (OpenAI,
// Azure, mock, etc.). Implementations must honor ctx cancellation.
type Provider interface {
	// Complete performs a single request/response completion exchange.
	Complete(ctx context.Context, req Request) (Response, error)
}
