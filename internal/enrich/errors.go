package enrich

import "errors"

// Common errors returned by the enrichment handlers.
var (
	// ErrInvalidPayload is returned when a queue message payload does not
	// decode into the expected schema or is missing required fields.
	ErrInvalidPayload = errors.New("invalid enrichment payload")
)
