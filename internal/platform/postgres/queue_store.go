package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/loamdb/loam/internal/queue"
)

// Message statuses in the queue_messages table.
const (
	statusPending = "pending"
	statusDead    = "dead"
)

// QueueStore implements queue.Store on PostgreSQL. Each queue name is a
// distinct namespace inside the queue_messages table; FIFO order is the
// monotonically increasing position column, and a requeued message takes a
// fresh tail position so retries never jump ahead of untouched messages.
type QueueStore struct {
	db      DBTX
	timeout time.Duration
}

// NewQueueStore creates a QueueStore. A positive timeout bounds every
// individual store operation.
func NewQueueStore(db DBTX, timeout time.Duration) *QueueStore {
	return &QueueStore{db: db, timeout: timeout}
}

// opCtx applies the per-request timeout from the persistence configuration.
func (s *QueueStore) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout > 0 {
		return context.WithTimeout(ctx, s.timeout)
	}
	return context.WithCancel(ctx)
}

// Append durably persists msg at the tail of the named queue.
func (s *QueueStore) Append(ctx context.Context, queueName string, msg *queue.Message) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	query := `
		INSERT INTO queue_messages
			(queue_name, id, kind, payload, attempts, status, not_before, enqueued_at, updated_at)
		VALUES ($1, $2, $3, $4::jsonb, $5, $6, $7, $8, $9)
	`

	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, query,
		queueName,
		msg.ID,
		msg.Kind,
		string(msg.Payload),
		msg.Attempts,
		statusPending,
		now,
		msg.EnqueuedAt,
		now,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return fmt.Errorf("%w: %v", queue.ErrDuplicate, err)
		}
		return fmt.Errorf("failed to append message: %w", err)
	}
	return nil
}

// Next returns the oldest pending message whose backoff window has passed.
func (s *QueueStore) Next(ctx context.Context, queueName string) (*queue.Message, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	query := `
		SELECT id, kind, payload, attempts, enqueued_at
		FROM queue_messages
		WHERE queue_name = $1 AND status = $2 AND not_before <= $3
		ORDER BY position ASC
		LIMIT 1
	`

	var (
		msg     queue.Message
		payload []byte
	)
	row := s.db.QueryRowContext(ctx, query, queueName, statusPending, time.Now().UTC())
	err := row.Scan(&msg.ID, &msg.Kind, &payload, &msg.Attempts, &msg.EnqueuedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, queue.ErrEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("failed to take next message: %w", err)
	}
	msg.Payload = payload
	return &msg, nil
}

// Remove durably deletes a successfully handled message.
func (s *QueueStore) Remove(ctx context.Context, queueName string, id uuid.UUID) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	result, err := s.db.ExecContext(ctx,
		`DELETE FROM queue_messages WHERE queue_name = $1 AND id = $2`,
		queueName, id)
	if err != nil {
		return fmt.Errorf("failed to remove message: %w", err)
	}
	return checkRowsAffected(result, queue.ErrMessageNotFound)
}

// Requeue re-offers a failed message at the tail of the queue. Taking a new
// position from the shared sequence places it behind every message enqueued
// since its last delivery.
func (s *QueueStore) Requeue(
	ctx context.Context,
	queueName string,
	id uuid.UUID,
	attempts int,
	notBefore time.Time,
) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	query := `
		UPDATE queue_messages
		SET attempts = $1,
		    not_before = $2,
		    position = nextval(pg_get_serial_sequence('queue_messages', 'position')),
		    updated_at = $3
		WHERE queue_name = $4 AND id = $5 AND status = $6
	`

	result, err := s.db.ExecContext(ctx, query,
		attempts, notBefore, time.Now().UTC(), queueName, id, statusPending)
	if err != nil {
		return fmt.Errorf("failed to requeue message: %w", err)
	}
	return checkRowsAffected(result, queue.ErrMessageNotFound)
}

// MarkDead moves a message to the dead-letter state: retained for
// inspection, excluded from counts and delivery.
func (s *QueueStore) MarkDead(ctx context.Context, queueName string, id uuid.UUID, reason string) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	query := `
		UPDATE queue_messages
		SET status = $1, last_error = $2, updated_at = $3
		WHERE queue_name = $4 AND id = $5
	`

	result, err := s.db.ExecContext(ctx, query,
		statusDead, reason, time.Now().UTC(), queueName, id)
	if err != nil {
		return fmt.Errorf("failed to dead-letter message: %w", err)
	}
	return checkRowsAffected(result, queue.ErrMessageNotFound)
}

// PendingCount returns the number of pending messages in the named queue.
func (s *QueueStore) PendingCount(ctx context.Context, queueName string) (int, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	var n int
	row := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM queue_messages WHERE queue_name = $1 AND status = $2`,
		queueName, statusPending)
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count pending messages: %w", err)
	}
	return n, nil
}
