package enrich

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/loamdb/loam/internal/backend"
	"github.com/loamdb/loam/internal/queue"
)

// SummaryResult is what a Summarizer produces for one piece of content.
type SummaryResult struct {
	// Abstract is a one-or-two sentence condensation of the content.
	Abstract string

	// Overview is a longer structural description of the content.
	Overview string

	// Model names the model that produced the summary.
	Model string
}

// Summarizer produces semantic summaries of stored content. Implemented by
// the Gemini model client.
type Summarizer interface {
	Summarize(ctx context.Context, content string) (SummaryResult, error)
}

// SemanticProcessor consumes messages from the semantic queue: it decodes
// the payload, asks the summarizer for an abstract and overview, and saves
// the result into the context-store backend.
type SemanticProcessor struct {
	summarizer Summarizer
	store      backend.Backend
	logger     *slog.Logger
}

// NewSemanticProcessor wires a summarizer and a storage backend into a queue
// handler.
func NewSemanticProcessor(summarizer Summarizer, store backend.Backend, logger *slog.Logger) *SemanticProcessor {
	return &SemanticProcessor{
		summarizer: summarizer,
		store:      store,
		logger:     logger.With("handler", "semantic"),
	}
}

// Handle processes one summarization request.
func (p *SemanticProcessor) Handle(ctx context.Context, msg *queue.Message) error {
	payload, err := decodeSemanticPayload(msg.Payload)
	if err != nil {
		return err
	}

	result, err := p.summarizer.Summarize(ctx, payload.Content)
	if err != nil {
		return fmt.Errorf("failed to summarize content for context %s: %w", payload.ContextID, err)
	}

	s := backend.Summary{
		ContextID: payload.ContextID,
		Model:     result.Model,
		Abstract:  result.Abstract,
		Overview:  result.Overview,
	}
	if err := p.store.SaveSummary(ctx, s); err != nil {
		return fmt.Errorf("failed to store summary for context %s: %w", payload.ContextID, err)
	}

	p.logger.Debug("summary stored", "context_id", payload.ContextID)
	return nil
}
