package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Queue is a named, durable, strictly FIFO collection of pending messages
// with an optional bound handler. Queues are created through a Manager and
// live until it stops; the durable namespace is owned exclusively by its
// Queue and accessed only through Enqueue and the consumer loop.
type Queue struct {
	name    string
	store   Store
	handler Handler

	policy        RetryPolicy
	pollInterval  time.Duration
	handleTimeout time.Duration

	logger *slog.Logger
}

func newQueue(name string, store Store, handler Handler, opts Options, logger *slog.Logger) *Queue {
	return &Queue{
		name:          name,
		store:         store,
		handler:       handler,
		policy:        NewRetryPolicy(opts.MaxAttempts),
		pollInterval:  opts.PollInterval,
		handleTimeout: opts.HandleTimeout,
		logger:        logger.With("queue", name),
	}
}

// Name returns the queue's registered topic name.
func (q *Queue) Name() string {
	return q.name
}

// Enqueue durably persists msg and appends it to the pending order.
//
// A nil or invalid message is a client error: Enqueue returns (false, nil)
// without touching the store. Returns true only after the store confirms
// durability. Re-enqueueing an ID that is already durable is idempotent and
// reports accepted.
func (q *Queue) Enqueue(ctx context.Context, msg *Message) (bool, error) {
	if !msg.Valid() {
		q.logger.Warn("rejecting invalid message", "reason", "nil or missing kind/payload")
		return false, nil
	}

	err := q.store.Append(ctx, q.name, msg)
	if errors.Is(err, ErrDuplicate) {
		// Already durable: at-most-once enqueue per identifier.
		q.logger.Debug("duplicate enqueue ignored", "message_id", msg.ID)
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to append message %s to queue %s: %w", msg.ID, q.name, err)
	}

	messagesEnqueuedTotal.WithLabelValues(q.name).Inc()
	q.logger.Debug("message enqueued", "message_id", msg.ID, "kind", msg.Kind)
	return true, nil
}

// Size returns a snapshot count of pending messages. Dead-lettered messages
// are excluded. The count may be stale relative to an in-flight consumer.
func (q *Queue) Size(ctx context.Context) (int, error) {
	n, err := q.store.PendingCount(ctx, q.name)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending messages in queue %s: %w", q.name, err)
	}
	pendingMessages.WithLabelValues(q.name).Set(float64(n))
	return n, nil
}

// consume is the queue's consumer loop. It runs until ctx is cancelled,
// repeatedly taking the oldest eligible message and driving it through the
// bound handler. A single message's failure never terminates the loop.
func (q *Queue) consume(ctx context.Context) {
	q.logger.Info("consumer started")
	defer q.logger.Info("consumer stopped")

	for {
		if ctx.Err() != nil {
			return
		}

		msg, err := q.store.Next(ctx, q.name)
		switch {
		case errors.Is(err, ErrEmpty):
			if !q.wait(ctx) {
				return
			}
		case err != nil:
			if ctx.Err() != nil {
				return
			}
			q.logger.Error("failed to take next message", "error", err)
			if !q.wait(ctx) {
				return
			}
		default:
			q.process(ctx, msg)
		}
	}
}

// wait sleeps for the bounded poll interval, returning false if the stop
// signal arrives first.
func (q *Queue) wait(ctx context.Context) bool {
	timer := time.NewTimer(q.pollInterval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// process runs one delivery: handler invocation under the per-message
// timeout, then durable removal on success, or requeue-with-backoff /
// dead-letter on failure.
//
// Store operations and the handler run on a context detached from the stop
// signal so an in-flight delivery can finish during the manager's grace
// period rather than being cut mid-write.
func (q *Queue) process(ctx context.Context, msg *Message) {
	deliverCtx := context.WithoutCancel(ctx)
	log := q.logger.With("message_id", msg.ID, "kind", msg.Kind, "attempt", msg.Attempts+1)

	hctx, cancel := context.WithTimeout(deliverCtx, q.handleTimeout)
	start := time.Now()
	err := q.handler.Handle(hctx, msg)
	cancel()
	handlerDuration.WithLabelValues(q.name).Observe(time.Since(start).Seconds())

	if err == nil {
		if removeErr := q.store.Remove(deliverCtx, q.name, msg.ID); removeErr != nil {
			log.Error("failed to remove handled message", "error", removeErr)
			return
		}
		messagesProcessedTotal.WithLabelValues(q.name, "success").Inc()
		log.Debug("message handled")
		return
	}

	attempts := msg.Attempts + 1
	if q.policy.Exhausted(attempts) {
		if deadErr := q.store.MarkDead(deliverCtx, q.name, msg.ID, err.Error()); deadErr != nil {
			log.Error("failed to dead-letter message", "error", deadErr)
			return
		}
		messagesProcessedTotal.WithLabelValues(q.name, "dead_letter").Inc()
		log.Error("message dead-lettered after exhausting retries",
			"attempts", attempts,
			"error", err)
		return
	}

	backoff := q.policy.Backoff(attempts)
	if requeueErr := q.store.Requeue(deliverCtx, q.name, msg.ID, attempts, time.Now().UTC().Add(backoff)); requeueErr != nil {
		log.Error("failed to requeue message", "error", requeueErr)
		return
	}
	messagesProcessedTotal.WithLabelValues(q.name, "retry").Inc()
	log.Warn("handler failed, message requeued",
		"backoff", backoff,
		"error", err)
}
