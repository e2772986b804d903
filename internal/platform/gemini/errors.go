package gemini

import "errors"

// Common errors returned by the gemini package.
var (
	// ErrInvalidConfig is returned when the client configuration is
	// incomplete or malformed.
	ErrInvalidConfig = errors.New("invalid gemini client configuration")

	// ErrEmptyInput is returned when there is no text to embed or
	// summarize.
	ErrEmptyInput = errors.New("input text cannot be empty")

	// ErrInvalidResponse is returned when the model response is missing or
	// cannot be parsed. Not retried: the same request would fail again.
	ErrInvalidResponse = errors.New("invalid response from model")
)
