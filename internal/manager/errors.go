package manager

import "errors"

// Common errors returned by the Manager.
var (
	// ErrQueuesNotConfigured is returned when a caller relies on background
	// queues but the manager was constructed without a durable queue store.
	// This is a configuration defect, surfaced loudly rather than swallowed.
	ErrQueuesNotConfigured = errors.New("queue manager not configured, cannot enqueue background work")

	// ErrUnknownQueue is returned when a caller names a queue that was
	// never registered.
	ErrUnknownQueue = errors.New("unknown queue")
)
