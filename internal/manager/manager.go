// Package manager composes the context-store backend, the queue manager,
// and the enrichment handlers under a single open/operate/close lifecycle.
// It is the only component application code interacts with directly.
package manager

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/hashicorp/go-multierror"

	"github.com/loamdb/loam/internal/backend"
	"github.com/loamdb/loam/internal/queue"
)

// Names of the built-in enrichment topics.
const (
	EmbeddingQueue = "embedding"
	SemanticQueue  = "semantic"
)

// State is the manager's lifecycle position. Closed is terminal: a closed
// manager must be discarded and a fresh one constructed to resume operation.
type State int32

const (
	StateUninitialized State = iota
	StateRunning
	StateClosing
	StateClosed
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateRunning:
		return "running"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Deps carries the collaborators a Manager composes. Backend is required;
// QueueStore may be nil, which puts the manager in degraded (storage-only)
// mode with no background queues.
type Deps struct {
	Backend          backend.Backend
	QueueStore       queue.Store
	EmbeddingHandler queue.Handler
	SemanticHandler  queue.Handler
	QueueOptions     queue.Options
	Logger           *slog.Logger
}

// Manager owns the storage-backend connection, the queue manager, and the
// named enrichment queues.
type Manager struct {
	backend backend.Backend
	qm      *queue.Manager
	logger  *slog.Logger

	closing atomic.Bool
	state   atomic.Int32
}

// New constructs a running Manager. The storage backend connection is
// verified first and must succeed; queues are enrichment side-channels that
// are meaningless without storage.
//
// When a durable queue store is provided, the embedding and semantic queues
// are registered with their handlers and consumption starts immediately.
// Without one the manager operates in degraded mode: synchronous storage
// works, but any attempt to enqueue background work returns
// ErrQueuesNotConfigured.
func New(ctx context.Context, deps Deps) (*Manager, error) {
	if deps.Backend == nil {
		return nil, errors.New("storage backend is required")
	}
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}

	if err := deps.Backend.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect storage backend: %w", err)
	}

	m := &Manager{
		backend: deps.Backend,
		logger:  log,
	}

	if deps.QueueStore == nil {
		log.Warn("durable queue store not configured, background queues disabled",
			"mode", "degraded")
		m.state.Store(int32(StateRunning))
		return m, nil
	}

	qm := queue.NewManager(deps.QueueStore, deps.QueueOptions, log)
	if _, err := qm.Register(EmbeddingQueue, deps.EmbeddingHandler); err != nil {
		return nil, fmt.Errorf("failed to register embedding queue: %w", err)
	}
	if _, err := qm.Register(SemanticQueue, deps.SemanticHandler); err != nil {
		return nil, fmt.Errorf("failed to register semantic queue: %w", err)
	}
	if err := qm.Start(); err != nil {
		return nil, fmt.Errorf("failed to start queue manager: %w", err)
	}

	m.qm = qm
	m.state.Store(int32(StateRunning))
	log.Info("manager started", "queues", []string{EmbeddingQueue, SemanticQueue})
	return m, nil
}

// State returns the manager's current lifecycle state.
func (m *Manager) State() State {
	return State(m.state.Load())
}

// Closing reports whether Close has been called. Concurrent enqueue callers
// read this flag to fail fast instead of racing a half-torn-down queue
// manager.
func (m *Manager) Closing() bool {
	return m.closing.Load()
}

// HasQueueManager reports whether background queues are configured.
func (m *Manager) HasQueueManager() bool {
	return m.qm != nil
}

// QueueManager exposes the underlying queue registry, e.g. for registering
// additional named topics. Nil in degraded mode.
func (m *Manager) QueueManager() *queue.Manager {
	return m.qm
}

// EnqueueEmbedding submits an embedding work item to the background
// embedding queue. See enqueue for the error contract.
func (m *Manager) EnqueueEmbedding(ctx context.Context, msg *queue.Message) (bool, error) {
	return m.enqueue(ctx, EmbeddingQueue, msg)
}

// EnqueueSemantic submits a summarization work item to the background
// semantic queue. See enqueue for the error contract.
func (m *Manager) EnqueueSemantic(ctx context.Context, msg *queue.Message) (bool, error) {
	return m.enqueue(ctx, SemanticQueue, msg)
}

// enqueue implements the manager-level enqueue contract:
//
//   - nil/invalid message: client error, returns (false, nil), never raised
//   - manager closing or closed: fails fast with (false, nil); a closed
//     manager is a runtime condition, not a misconfiguration
//   - no queue manager configured: configuration defect, returns
//     ErrQueuesNotConfigured loudly
//   - any failure inside the queue path: logged and reported as (false, nil)
//
// Misconfiguration is loud, runtime failure is quiet and boolean.
func (m *Manager) enqueue(ctx context.Context, name string, msg *queue.Message) (bool, error) {
	if !msg.Valid() {
		m.logger.Warn("enqueue skipped, message is nil or invalid", "queue", name)
		return false, nil
	}

	if m.Closing() {
		m.logger.Warn("enqueue rejected, manager is closing",
			"queue", name,
			"message_id", msg.ID)
		return false, nil
	}

	if m.qm == nil {
		return false, ErrQueuesNotConfigured
	}

	q, ok := m.qm.Get(name)
	if !ok {
		m.logger.Error("enqueue failed, queue not registered", "queue", name)
		return false, nil
	}

	accepted, err := q.Enqueue(ctx, msg)
	if err != nil {
		m.logger.Error("enqueue failed",
			"queue", name,
			"message_id", msg.ID,
			"error", err)
		return false, nil
	}
	return accepted, nil
}

// QueueSize returns the pending-message count of a named queue. Unlike
// EmbeddingQueueSize this surfaces failures, for callers that need them
// (e.g. the operational API).
func (m *Manager) QueueSize(ctx context.Context, name string) (int, error) {
	if m.qm == nil {
		return 0, ErrQueuesNotConfigured
	}
	q, ok := m.qm.Get(name)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownQueue, name)
	}
	return q.Size(ctx)
}

// EmbeddingQueueSize returns the pending size of the embedding queue as a
// quiet read: 0 when queues are not configured, and 0 with a logged error on
// any failure.
func (m *Manager) EmbeddingQueueSize(ctx context.Context) int {
	if m.qm == nil {
		return 0
	}
	n, err := m.QueueSize(ctx, EmbeddingQueue)
	if err != nil {
		m.logger.Error("failed to read embedding queue size", "error", err)
		return 0
	}
	return n
}

// Close tears the manager down: it flips the closing flag synchronously,
// stops the queue manager, then closes the storage backend. Teardown is
// best-effort: every error is collected and logged, none propagate, so a
// single Close call always completes and releases whatever it can.
// Subsequent calls are no-ops.
//
// The qm field is written once in New and never again; concurrent enqueue
// and size readers observe the closing flag instead of a torn-down pointer.
func (m *Manager) Close(ctx context.Context) {
	if !m.closing.CompareAndSwap(false, true) {
		return
	}
	m.state.Store(int32(StateClosing))

	var errs *multierror.Error

	if m.qm != nil {
		if err := stopQueueManager(m.qm); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("queue manager stop: %w", err))
		} else {
			m.logger.Info("queue manager stopped")
		}
	}

	if err := m.backend.Close(); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("backend close: %w", err))
	}

	for _, err := range errs.WrappedErrors() {
		m.logger.Error("error during manager teardown", "error", err)
	}

	m.state.Store(int32(StateClosed))
	m.logger.Info("manager closed")
}

// stopQueueManager shields the close sequence from a panicking consumer
// teardown; close must always run to completion.
func stopQueueManager(qm *queue.Manager) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during queue manager stop: %v", r)
		}
	}()
	qm.Stop()
	return nil
}
