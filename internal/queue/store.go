package queue

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Sentinel errors returned by Store implementations.
var (
	// ErrEmpty is returned by Next when no message is currently eligible
	// for delivery.
	ErrEmpty = errors.New("queue is empty")

	// ErrDuplicate is returned by Append when a message with the same ID
	// is already durable in the queue's namespace.
	ErrDuplicate = errors.New("message already enqueued")

	// ErrMessageNotFound is returned when an operation targets a message
	// ID that is not present in the queue's namespace.
	ErrMessageNotFound = errors.New("message not found")
)

// Store is the durable queue-persistence collaborator. Each queue name maps
// to a distinct namespace; a Store instance may serve many queues. All
// mutations must be durable before returning nil.
type Store interface {
	// Append durably persists msg at the tail of the named queue.
	// Returns ErrDuplicate if a message with the same ID already exists.
	Append(ctx context.Context, queue string, msg *Message) error

	// Next returns the oldest pending message whose backoff window has
	// passed, without removing it. Returns ErrEmpty when none is eligible.
	Next(ctx context.Context, queue string) (*Message, error)

	// Remove durably deletes a successfully handled message.
	Remove(ctx context.Context, queue string, id uuid.UUID) error

	// Requeue re-offers a failed message at the tail of the queue with the
	// given attempt count, ineligible for delivery before notBefore.
	Requeue(ctx context.Context, queue string, id uuid.UUID, attempts int, notBefore time.Time) error

	// MarkDead moves a message to the dead-letter state: retained, but
	// excluded from PendingCount and from further delivery.
	MarkDead(ctx context.Context, queue string, id uuid.UUID, reason string) error

	// PendingCount returns the number of pending (not dead-lettered)
	// messages in the named queue.
	PendingCount(ctx context.Context, queue string) (int, error)
}
