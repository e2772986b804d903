// Package api implements the operational HTTP surface: enqueue endpoints
// for the enrichment queues and queue size reads.
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/loamdb/loam/internal/api/shared"
	"github.com/loamdb/loam/internal/bridge"
	"github.com/loamdb/loam/internal/enrich"
	"github.com/loamdb/loam/internal/manager"
	"github.com/loamdb/loam/internal/queue"
)

// QueueService is the slice of the manager the queue endpoints need.
type QueueService interface {
	EnqueueEmbedding(ctx context.Context, msg *queue.Message) (bool, error)
	EnqueueSemantic(ctx context.Context, msg *queue.Message) (bool, error)
	QueueSize(ctx context.Context, name string) (int, error)
}

// EnqueueEmbeddingRequest is the body for POST /v1/queues/embedding/messages.
type EnqueueEmbeddingRequest struct {
	ContextID string `json:"context_id" validate:"required"`
	Text      string `json:"text"       validate:"required,min=1"`
}

// EnqueueSemanticRequest is the body for POST /v1/queues/semantic/messages.
type EnqueueSemanticRequest struct {
	ContextID string `json:"context_id" validate:"required"`
	Content   string `json:"content"    validate:"required,min=1"`
}

// EnqueueResponse reports acceptance of a background work item.
type EnqueueResponse struct {
	MessageID string `json:"message_id"`
	Queue     string `json:"queue"`
}

// SizeResponse reports a queue's pending-message snapshot.
type SizeResponse struct {
	Queue string `json:"queue"`
	Size  int    `json:"size"`
}

// QueueHandler handles queue-related HTTP requests.
type QueueHandler struct {
	service QueueService
}

// NewQueueHandler creates a QueueHandler over the given service.
func NewQueueHandler(service QueueService) *QueueHandler {
	return &QueueHandler{service: service}
}

// EnqueueEmbedding handles POST /v1/queues/embedding/messages.
func (h *QueueHandler) EnqueueEmbedding(w http.ResponseWriter, r *http.Request) {
	var req EnqueueEmbeddingRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	msg, err := enrich.NewEmbeddingMessage(req.ContextID, req.Text)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid embedding request")
		return
	}

	h.submit(w, r, msg, manager.EmbeddingQueue, func(ctx context.Context) (bool, error) {
		return h.service.EnqueueEmbedding(ctx, msg)
	})
}

// EnqueueSemantic handles POST /v1/queues/semantic/messages.
func (h *QueueHandler) EnqueueSemantic(w http.ResponseWriter, r *http.Request) {
	var req EnqueueSemanticRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	msg, err := enrich.NewSemanticMessage(req.ContextID, req.Content)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid semantic request")
		return
	}

	h.submit(w, r, msg, manager.SemanticQueue, func(ctx context.Context) (bool, error) {
		return h.service.EnqueueSemantic(ctx, msg)
	})
}

// submit runs the enqueue on the shared execution bridge, so synchronous
// request handling and queue work share one background execution context,
// and maps the manager's error contract onto HTTP statuses.
func (h *QueueHandler) submit(
	w http.ResponseWriter,
	r *http.Request,
	msg *queue.Message,
	queueName string,
	enqueue func(ctx context.Context) (bool, error),
) {
	accepted, err := bridge.Run(r.Context(), enqueue)
	if err != nil {
		if errors.Is(err, manager.ErrQueuesNotConfigured) {
			shared.RespondWithErrorAndLog(w, r, http.StatusServiceUnavailable,
				"Background queues are not configured", err)
			return
		}
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to enqueue message", err)
		return
	}
	if !accepted {
		shared.RespondWithError(w, r, http.StatusServiceUnavailable, "Message was not accepted")
		return
	}

	// 202: processing happens asynchronously.
	shared.RespondWithJSON(w, r, http.StatusAccepted, EnqueueResponse{
		MessageID: msg.ID.String(),
		Queue:     queueName,
	})
}

// Size handles GET /v1/queues/{name}/size.
func (h *QueueHandler) Size(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	size, err := bridge.Run(r.Context(), func(ctx context.Context) (int, error) {
		return h.service.QueueSize(ctx, name)
	})
	if err != nil {
		switch {
		case errors.Is(err, manager.ErrQueuesNotConfigured):
			shared.RespondWithErrorAndLog(w, r, http.StatusServiceUnavailable,
				"Background queues are not configured", err)
		case errors.Is(err, manager.ErrUnknownQueue):
			shared.RespondWithError(w, r, http.StatusNotFound, "Unknown queue: "+name)
		default:
			shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
				"Failed to read queue size", err)
		}
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, SizeResponse{Queue: name, Size: size})
}
