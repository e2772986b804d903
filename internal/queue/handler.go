package queue

import "context"

// Handler is an externally supplied unit of processing logic bound to a
// queue at registration time. The consumer loop invokes Handle once per
// delivery; a nil return removes the message from the queue, a non-nil
// return counts against the message's retry budget.
type Handler interface {
	Handle(ctx context.Context, msg *Message) error
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(ctx context.Context, msg *Message) error

// Handle invokes the wrapped function.
func (f HandlerFunc) Handle(ctx context.Context, msg *Message) error {
	return f(ctx, msg)
}
