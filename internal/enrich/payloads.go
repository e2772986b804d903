package enrich

import (
	"encoding/json"
	"fmt"

	"github.com/loamdb/loam/internal/queue"
)

// EmbeddingPayload is the work data carried by messages on the embedding
// queue.
type EmbeddingPayload struct {
	ContextID string `json:"context_id"`
	Text      string `json:"text"`
}

// SemanticPayload is the work data carried by messages on the semantic
// queue.
type SemanticPayload struct {
	ContextID string `json:"context_id"`
	Content   string `json:"content"`
}

// NewEmbeddingMessage builds a queue message carrying an embedding request.
func NewEmbeddingMessage(contextID, text string) (*queue.Message, error) {
	if contextID == "" || text == "" {
		return nil, fmt.Errorf("%w: context_id and text are required", ErrInvalidPayload)
	}
	data, err := json.Marshal(EmbeddingPayload{ContextID: contextID, Text: text})
	if err != nil {
		return nil, fmt.Errorf("failed to encode embedding payload: %w", err)
	}
	return queue.NewMessage(queue.KindEmbedding, data)
}

// NewSemanticMessage builds a queue message carrying a summarization request.
func NewSemanticMessage(contextID, content string) (*queue.Message, error) {
	if contextID == "" || content == "" {
		return nil, fmt.Errorf("%w: context_id and content are required", ErrInvalidPayload)
	}
	data, err := json.Marshal(SemanticPayload{ContextID: contextID, Content: content})
	if err != nil {
		return nil, fmt.Errorf("failed to encode semantic payload: %w", err)
	}
	return queue.NewMessage(queue.KindSemantic, data)
}

func decodeEmbeddingPayload(raw []byte) (EmbeddingPayload, error) {
	var p EmbeddingPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return p, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if p.ContextID == "" || p.Text == "" {
		return p, fmt.Errorf("%w: context_id and text are required", ErrInvalidPayload)
	}
	return p, nil
}

func decodeSemanticPayload(raw []byte) (SemanticPayload, error) {
	var p SemanticPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return p, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if p.ContextID == "" || p.Content == "" {
		return p, fmt.Errorf("%w: context_id and content are required", ErrInvalidPayload)
	}
	return p, nil
}
