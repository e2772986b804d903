package queue

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Message kind identifiers for the built-in enrichment topics.
const (
	KindEmbedding = "embedding"
	KindSemantic  = "semantic"
)

// ErrInvalidMessage is returned by NewMessage when kind or payload is empty.
var ErrInvalidMessage = errors.New("invalid message: kind and payload are required")

// Message is an immutable unit of background work. A message with a given ID
// is enqueued at most once per queue; the durable store enforces this.
type Message struct {
	// ID is the message's stable unique identifier.
	ID uuid.UUID

	// Kind identifies the payload schema, e.g. "embedding" or "semantic".
	Kind string

	// Payload is the opaque work data, JSON-encoded by the producer and
	// interpreted only by the bound handler.
	Payload []byte

	// Attempts counts handler invocations so far. Zero for a fresh message.
	Attempts int

	// EnqueuedAt records when the message was first accepted.
	EnqueuedAt time.Time
}

// NewMessage builds a Message with a fresh identifier. Returns
// ErrInvalidMessage when kind or payload is empty.
func NewMessage(kind string, payload []byte) (*Message, error) {
	if kind == "" || len(payload) == 0 {
		return nil, ErrInvalidMessage
	}
	return &Message{
		ID:         uuid.New(),
		Kind:       kind,
		Payload:    payload,
		EnqueuedAt: time.Now().UTC(),
	}, nil
}

// Valid reports whether the message carries everything a queue needs to
// persist and deliver it.
func (m *Message) Valid() bool {
	return m != nil && m.ID != uuid.Nil && m.Kind != "" && len(m.Payload) > 0
}
