package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loamdb/loam/internal/manager"
	"github.com/loamdb/loam/internal/queue"
)

// mockQueueService implements QueueService with injectable results.
type mockQueueService struct {
	accepted   bool
	enqueueErr error
	size       int
	sizeErr    error

	lastMsg *queue.Message
}

func (s *mockQueueService) EnqueueEmbedding(ctx context.Context, msg *queue.Message) (bool, error) {
	s.lastMsg = msg
	return s.accepted, s.enqueueErr
}

func (s *mockQueueService) EnqueueSemantic(ctx context.Context, msg *queue.Message) (bool, error) {
	s.lastMsg = msg
	return s.accepted, s.enqueueErr
}

func (s *mockQueueService) QueueSize(ctx context.Context, name string) (int, error) {
	return s.size, s.sizeErr
}

func newTestRouter(svc QueueService) http.Handler {
	h := NewQueueHandler(svc)
	r := chi.NewRouter()
	r.Post("/v1/queues/embedding/messages", h.EnqueueEmbedding)
	r.Post("/v1/queues/semantic/messages", h.EnqueueSemantic)
	r.Get("/v1/queues/{name}/size", h.Size)
	return r
}

func doRequest(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestEnqueueEmbeddingAccepted(t *testing.T) {
	svc := &mockQueueService{accepted: true}
	router := newTestRouter(svc)

	rec := doRequest(t, router, http.MethodPost, "/v1/queues/embedding/messages",
		`{"context_id":"ctx-1","text":"embed me"}`)

	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp EnqueueResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, manager.EmbeddingQueue, resp.Queue)
	assert.NotEmpty(t, resp.MessageID)

	require.NotNil(t, svc.lastMsg)
	assert.Equal(t, queue.KindEmbedding, svc.lastMsg.Kind)
}

func TestEnqueueSemanticAccepted(t *testing.T) {
	svc := &mockQueueService{accepted: true}
	router := newTestRouter(svc)

	rec := doRequest(t, router, http.MethodPost, "/v1/queues/semantic/messages",
		`{"context_id":"ctx-2","content":"summarize me"}`)

	require.Equal(t, http.StatusAccepted, rec.Code)
	require.NotNil(t, svc.lastMsg)
	assert.Equal(t, queue.KindSemantic, svc.lastMsg.Kind)
}

func TestEnqueueEmbeddingBadRequests(t *testing.T) {
	svc := &mockQueueService{accepted: true}
	router := newTestRouter(svc)

	tests := []struct {
		name string
		body string
	}{
		{name: "malformed json", body: `{not json`},
		{name: "missing context_id", body: `{"text":"embed me"}`},
		{name: "empty text", body: `{"context_id":"ctx-1","text":""}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := doRequest(t, router, http.MethodPost, "/v1/queues/embedding/messages", tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Nil(t, svc.lastMsg)
		})
	}
}

func TestEnqueueWhenQueuesNotConfigured(t *testing.T) {
	svc := &mockQueueService{enqueueErr: manager.ErrQueuesNotConfigured}
	router := newTestRouter(svc)

	rec := doRequest(t, router, http.MethodPost, "/v1/queues/embedding/messages",
		`{"context_id":"ctx-1","text":"embed me"}`)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestEnqueueNotAccepted(t *testing.T) {
	svc := &mockQueueService{accepted: false}
	router := newTestRouter(svc)

	rec := doRequest(t, router, http.MethodPost, "/v1/queues/embedding/messages",
		`{"context_id":"ctx-1","text":"embed me"}`)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestQueueSize(t *testing.T) {
	svc := &mockQueueService{size: 7}
	router := newTestRouter(svc)

	rec := doRequest(t, router, http.MethodGet, "/v1/queues/embedding/size", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var resp SizeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "embedding", resp.Queue)
	assert.Equal(t, 7, resp.Size)
}

func TestQueueSizeUnknownQueue(t *testing.T) {
	svc := &mockQueueService{sizeErr: manager.ErrUnknownQueue}
	router := newTestRouter(svc)

	rec := doRequest(t, router, http.MethodGet, "/v1/queues/nonexistent/size", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestQueueSizeInternalError(t *testing.T) {
	svc := &mockQueueService{sizeErr: errors.New("store unavailable")}
	router := newTestRouter(svc)

	rec := doRequest(t, router, http.MethodGet, "/v1/queues/embedding/size", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
