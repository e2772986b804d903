package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/loamdb/loam/internal/backend"
)

// Backend implements backend.Backend on PostgreSQL: enrichment results land
// in the context_embeddings and context_summaries tables, keyed by context
// item.
type Backend struct {
	db *sql.DB
}

// NewBackend wraps an open database handle as a context-store backend.
func NewBackend(db *sql.DB) *Backend {
	return &Backend{db: db}
}

// UpsertEmbedding stores or replaces the embedding for a context item. The
// vector is stored as JSON; similarity search over it is out of scope here
// and belongs to the index engine.
func (b *Backend) UpsertEmbedding(ctx context.Context, e backend.Embedding) error {
	vector, err := json.Marshal(e.Vector)
	if err != nil {
		return fmt.Errorf("failed to encode embedding vector: %w", err)
	}

	query := `
		INSERT INTO context_embeddings (context_id, model, vector, updated_at)
		VALUES ($1, $2, $3::jsonb, $4)
		ON CONFLICT (context_id)
		DO UPDATE SET model = EXCLUDED.model,
		              vector = EXCLUDED.vector,
		              updated_at = EXCLUDED.updated_at
	`

	_, err = b.db.ExecContext(ctx, query, e.ContextID, e.Model, string(vector), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to upsert embedding for context %s: %w", e.ContextID, err)
	}
	return nil
}

// SaveSummary stores or replaces the summary for a context item.
func (b *Backend) SaveSummary(ctx context.Context, s backend.Summary) error {
	query := `
		INSERT INTO context_summaries (context_id, model, abstract, overview, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (context_id)
		DO UPDATE SET model = EXCLUDED.model,
		              abstract = EXCLUDED.abstract,
		              overview = EXCLUDED.overview,
		              updated_at = EXCLUDED.updated_at
	`

	_, err := b.db.ExecContext(ctx, query, s.ContextID, s.Model, s.Abstract, s.Overview, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save summary for context %s: %w", s.ContextID, err)
	}
	return nil
}

// Ping verifies the backend connection is usable.
func (b *Backend) Ping(ctx context.Context) error {
	return b.db.PingContext(ctx)
}

// Close releases the backend's connection pool.
func (b *Backend) Close() error {
	return b.db.Close()
}
