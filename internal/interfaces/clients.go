package interfaces

import "context"

// LLMClient generates text from a prompt
type LLMClient interface {
	// Provider returns the provider name, e.g. "gemini"
	Provider() string

	// GenerateContent generates text from a system instruction and prompt
	GenerateContent(ctx context.Context, system, prompt string) (string, error)
}
