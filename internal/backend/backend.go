// Package backend defines the contract loam requires from the context-store
// storage engine. The engine itself (similarity search, ranking, compaction)
// is an external collaborator; loam only writes enrichment results into it
// and drives its connection lifecycle.
package backend

import "context"

// Embedding is a computed vector for one stored context item.
type Embedding struct {
	ContextID string
	Model     string
	Vector    []float32
}

// Summary is the semantic enrichment for one stored context item.
type Summary struct {
	ContextID string
	Model     string
	Abstract  string
	Overview  string
}

// Backend is the storage engine boundary. Implementations must be safe for
// concurrent use; the enrichment handlers write from independent consumer
// loops.
type Backend interface {
	// UpsertEmbedding stores or replaces the embedding for a context item.
	UpsertEmbedding(ctx context.Context, e Embedding) error

	// SaveSummary stores or replaces the summary for a context item.
	SaveSummary(ctx context.Context, s Summary) error

	// Ping verifies the backend connection is usable.
	Ping(ctx context.Context) error

	// Close releases the backend connection. Called once during manager
	// teardown.
	Close() error
}
