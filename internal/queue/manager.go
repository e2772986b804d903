package queue

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrManagerStopped is returned when a stopped Manager is asked to start or
// register queues. A Manager cannot be restarted; construct a fresh one.
var ErrManagerStopped = errors.New("queue manager is stopped, a fresh instance is required")

// Manager lifecycle states.
type managerState int

const (
	stateStopped managerState = iota // registry mutable, no consumers
	stateRunning                     // all queues with a handler are consumed
	stateDone                        // terminal, after Stop
)

// Options tunes the consumer loops of every queue owned by a Manager.
type Options struct {
	// PollInterval bounds how long a consumer waits when its queue is
	// empty, keeping the loop responsive to the stop signal.
	PollInterval time.Duration

	// HandleTimeout is the per-message deadline for a handler invocation.
	HandleTimeout time.Duration

	// MaxAttempts is the delivery budget per message before dead-lettering.
	MaxAttempts int

	// StopGrace bounds how long Stop waits for in-flight handling before
	// abandoning the remaining consumers.
	StopGrace time.Duration
}

// withDefaults fills zero fields with conservative defaults.
func (o Options) withDefaults() Options {
	if o.PollInterval <= 0 {
		o.PollInterval = 500 * time.Millisecond
	}
	if o.HandleTimeout <= 0 {
		o.HandleTimeout = time.Minute
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 5
	}
	if o.StopGrace <= 0 {
		o.StopGrace = 10 * time.Second
	}
	return o
}

// Manager is a process-wide registry mapping queue name to Queue, plus the
// lifecycle controller for their consumer loops. Registration is atomic per
// name: concurrent initializers cannot produce two consumers over the same
// logical topic.
type Manager struct {
	store  Store
	opts   Options
	logger *slog.Logger

	mu     sync.Mutex
	queues map[string]*Queue
	state  managerState

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewManager creates a stopped Manager over the given durable store.
func NewManager(store Store, opts Options, logger *slog.Logger) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		store:  store,
		opts:   opts.withDefaults(),
		logger: logger,
		queues: make(map[string]*Queue),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Get returns the queue registered under name, or (nil, false) when absent.
// It never creates a queue; use Register for the create path so concurrent
// callers cannot race into duplicate creation.
func (m *Manager) Get(name string) (*Queue, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.queues[name]
	return q, ok
}

// Register atomically returns the queue for name, creating and registering
// it when absent. The handler may be nil, meaning "persist only, no
// automatic consumption". Re-registration under an existing name returns the
// existing queue unchanged, keeping exactly one consumer per topic.
//
// Registering on a running manager starts the new queue's consumer
// immediately. Registering after Stop returns ErrManagerStopped.
func (m *Manager) Register(name string, handler Handler) (*Queue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == stateDone {
		return nil, ErrManagerStopped
	}
	if q, ok := m.queues[name]; ok {
		return q, nil
	}

	q := newQueue(name, m.store, handler, m.opts, m.logger)
	m.queues[name] = q
	m.logger.Info("queue registered", "queue", name, "has_handler", handler != nil)

	if m.state == stateRunning && handler != nil {
		m.startConsumer(q)
	}
	return q, nil
}

// Start transitions the manager to running: every registered queue with a
// bound handler gets an independent consumer loop. Calling Start while
// already running is a no-op; calling it after Stop returns
// ErrManagerStopped.
func (m *Manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state {
	case stateRunning:
		return nil
	case stateDone:
		return ErrManagerStopped
	}

	m.state = stateRunning
	for _, q := range m.queues {
		if q.handler != nil {
			m.startConsumer(q)
		}
	}
	m.logger.Info("queue manager started", "queues", len(m.queues))
	return nil
}

// startConsumer launches one queue's consumer loop. Callers hold m.mu.
func (m *Manager) startConsumer(q *Queue) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		q.consume(m.ctx)
	}()
}

// Stop signals every consumer loop, waits up to the configured grace period
// for in-flight handling to finish, and transitions to the terminal stopped
// state. Consumers that miss the window are abandoned; their in-flight
// handler invocations are not forcibly killed. Stop is idempotent.
func (m *Manager) Stop() {
	m.mu.Lock()
	if m.state == stateDone {
		m.mu.Unlock()
		return
	}
	m.state = stateDone
	m.mu.Unlock()

	m.cancel()

	finished := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		m.logger.Info("queue manager stopped")
	case <-time.After(m.opts.StopGrace):
		m.logger.Warn("queue manager stop grace period elapsed, abandoning consumers")
	}
}
