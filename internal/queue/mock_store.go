package queue

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// record is a MockStore entry: one durable message plus its delivery state.
type record struct {
	msg       Message
	dead      bool
	reason    string
	notBefore time.Time
	position  int64
}

// MockStore implements the Store interface in memory for testing. It honors
// the same contract as the Postgres store: FIFO by tail position, requeued
// messages move behind newer arrivals, dead-lettered messages are retained
// but excluded from PendingCount and delivery.
//
// Individual operations can be overridden through the *Fn fields to inject
// failures.
type MockStore struct {
	mu      sync.Mutex
	records map[string][]*record
	nextPos int64

	AppendFn       func(ctx context.Context, queue string, msg *Message) error
	NextFn         func(ctx context.Context, queue string) (*Message, error)
	RemoveFn       func(ctx context.Context, queue string, id uuid.UUID) error
	RequeueFn      func(ctx context.Context, queue string, id uuid.UUID, attempts int, notBefore time.Time) error
	MarkDeadFn     func(ctx context.Context, queue string, id uuid.UUID, reason string) error
	PendingCountFn func(ctx context.Context, queue string) (int, error)
}

// NewMockStore creates an empty in-memory store.
func NewMockStore() *MockStore {
	return &MockStore{
		records: make(map[string][]*record),
	}
}

// Append persists a copy of msg at the tail of the named queue.
func (s *MockStore) Append(ctx context.Context, queue string, msg *Message) error {
	if s.AppendFn != nil {
		return s.AppendFn(ctx, queue, msg)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.records[queue] {
		if r.msg.ID == msg.ID {
			return ErrDuplicate
		}
	}
	s.nextPos++
	s.records[queue] = append(s.records[queue], &record{
		msg:      *msg,
		position: s.nextPos,
	})
	return nil
}

// Next returns the oldest eligible pending message without removing it.
func (s *MockStore) Next(ctx context.Context, queue string) (*Message, error) {
	if s.NextFn != nil {
		return s.NextFn(ctx, queue)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	var oldest *record
	for _, r := range s.records[queue] {
		if r.dead || r.notBefore.After(now) {
			continue
		}
		if oldest == nil || r.position < oldest.position {
			oldest = r
		}
	}
	if oldest == nil {
		return nil, ErrEmpty
	}
	msg := oldest.msg
	return &msg, nil
}

// Remove deletes a message from the named queue.
func (s *MockStore) Remove(ctx context.Context, queue string, id uuid.UUID) error {
	if s.RemoveFn != nil {
		return s.RemoveFn(ctx, queue, id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	recs := s.records[queue]
	for i, r := range recs {
		if r.msg.ID == id {
			s.records[queue] = append(recs[:i], recs[i+1:]...)
			return nil
		}
	}
	return ErrMessageNotFound
}

// Requeue moves a message to the tail with a fresh attempt count and
// backoff window.
func (s *MockStore) Requeue(
	ctx context.Context,
	queue string,
	id uuid.UUID,
	attempts int,
	notBefore time.Time,
) error {
	if s.RequeueFn != nil {
		return s.RequeueFn(ctx, queue, id, attempts, notBefore)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.records[queue] {
		if r.msg.ID == id {
			r.msg.Attempts = attempts
			r.notBefore = notBefore
			s.nextPos++
			r.position = s.nextPos
			return nil
		}
	}
	return ErrMessageNotFound
}

// MarkDead transitions a message to the dead-letter state.
func (s *MockStore) MarkDead(ctx context.Context, queue string, id uuid.UUID, reason string) error {
	if s.MarkDeadFn != nil {
		return s.MarkDeadFn(ctx, queue, id, reason)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.records[queue] {
		if r.msg.ID == id {
			r.dead = true
			r.reason = reason
			return nil
		}
	}
	return ErrMessageNotFound
}

// PendingCount counts non-dead messages in the named queue.
func (s *MockStore) PendingCount(ctx context.Context, queue string) (int, error) {
	if s.PendingCountFn != nil {
		return s.PendingCountFn(ctx, queue)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, r := range s.records[queue] {
		if !r.dead {
			n++
		}
	}
	return n, nil
}

// DeadCount counts dead-lettered messages in the named queue. Test helper.
func (s *MockStore) DeadCount(queue string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, r := range s.records[queue] {
		if r.dead {
			n++
		}
	}
	return n
}
