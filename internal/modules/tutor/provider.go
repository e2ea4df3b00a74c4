package tutor

import (
	"context"
	"fmt"
)

// Turn is one prior exchange handed to a provider as context.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Provider is the uniform call contract over the heterogeneous upstream
// chat-completion APIs. Implementations normalize their own wire shape,
// truncate history, and handle model-level retries internally.
type Provider interface {
	Name() string
	Complete(ctx context.Context, system string, history []Turn, user string) (string, error)
}

// ProviderError wraps any transport, auth, rate-limit, or model failure from
// an upstream call. Its text never reaches the learner-facing payload.
type ProviderError struct {
	Provider ProviderChoice
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Availability reflects which providers had credentials at process start.
// It is computed once and injected; the engine never reads ambient state.
type Availability struct {
	OpenAI    bool
	Anthropic bool
}

func (a Availability) Has(p ProviderChoice) bool {
	switch p {
	case ProviderOpenAI:
		return a.OpenAI
	case ProviderAnthropic:
		return a.Anthropic
	default:
		return false
	}
}

func (a Availability) Any() bool { return a.OpenAI || a.Anthropic }
