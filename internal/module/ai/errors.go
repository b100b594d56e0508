package ai

import "errors"

// Module errors.
var (
	ErrEmptyPrompt         = errors.New("prompt must not be empty")
	ErrProviderUnavailable = errors.New("ai provider unavailable")
)
