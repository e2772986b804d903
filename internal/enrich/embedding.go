package enrich

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/loamdb/loam/internal/backend"
	"github.com/loamdb/loam/internal/queue"
)

// Embedder computes a vector for a piece of text. Implemented by the Gemini
// model client.
type Embedder interface {
	// Embed returns the embedding vector for text and the name of the
	// model that produced it.
	Embed(ctx context.Context, text string) ([]float32, string, error)
}

// EmbeddingHandler consumes messages from the embedding queue: it decodes
// the payload, computes an embedding, and upserts the vector into the
// context-store backend.
type EmbeddingHandler struct {
	embedder Embedder
	store    backend.Backend
	logger   *slog.Logger
}

// NewEmbeddingHandler wires an embedder and a storage backend into a queue
// handler.
func NewEmbeddingHandler(embedder Embedder, store backend.Backend, logger *slog.Logger) *EmbeddingHandler {
	return &EmbeddingHandler{
		embedder: embedder,
		store:    store,
		logger:   logger.With("handler", "embedding"),
	}
}

// Handle processes one embedding request.
func (h *EmbeddingHandler) Handle(ctx context.Context, msg *queue.Message) error {
	payload, err := decodeEmbeddingPayload(msg.Payload)
	if err != nil {
		return err
	}

	vector, model, err := h.embedder.Embed(ctx, payload.Text)
	if err != nil {
		return fmt.Errorf("failed to embed text for context %s: %w", payload.ContextID, err)
	}

	e := backend.Embedding{
		ContextID: payload.ContextID,
		Model:     model,
		Vector:    vector,
	}
	if err := h.store.UpsertEmbedding(ctx, e); err != nil {
		return fmt.Errorf("failed to store embedding for context %s: %w", payload.ContextID, err)
	}

	h.logger.Debug("embedding stored",
		"context_id", payload.ContextID,
		"dimensions", len(vector))
	return nil
}
