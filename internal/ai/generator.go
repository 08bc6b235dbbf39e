package ai

import (
	"context"
	"errors"
)

// Generator produces a completion for a system instruction and a user prompt.
type Generator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

var (
	// ErrNoCredentials means no provider is configured.
	ErrNoCredentials = errors.New("no extraction provider configured")
	// ErrRateLimited is returned when the provider or the local call budget
	// refuses a request.
	ErrRateLimited = errors.New("extraction provider rate limited")
	// ErrUnparseable means the response was neither valid JSON nor salvageable.
	ErrUnparseable = errors.New("extraction response unparseable")
	// ErrNotArray means the response parsed but was not a JSON array.
	ErrNotArray = errors.New("extraction response is not an array")
)
