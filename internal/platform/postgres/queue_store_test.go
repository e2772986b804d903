package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loamdb/loam/internal/queue"
)

// testDB opens the integration database named by LOAM_TEST_DB_URL, skipping
// the test when it is unset. The queue_messages schema must already be
// migrated (cmd/loamd applies it at startup).
func testDB(t *testing.T) *QueueStore {
	t.Helper()

	url := os.Getenv("LOAM_TEST_DB_URL")
	if url == "" {
		t.Skip("LOAM_TEST_DB_URL not set, skipping database integration test")
	}

	db, err := Open(context.Background(), url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	// Each test gets a clean slate in its own namespaces.
	_, err = db.Exec(`DELETE FROM queue_messages WHERE queue_name LIKE 'test_%'`)
	require.NoError(t, err)

	return NewQueueStore(db, 10*time.Second)
}

func testMsg(t *testing.T, payload string) *queue.Message {
	t.Helper()
	msg, err := queue.NewMessage(queue.KindEmbedding, []byte(payload))
	require.NoError(t, err)
	return msg
}

func TestQueueStoreAppendNextRemove(t *testing.T) {
	store := testDB(t)
	ctx := context.Background()
	const qname = "test_fifo"

	first := testMsg(t, `{"n":1}`)
	second := testMsg(t, `{"n":2}`)
	require.NoError(t, store.Append(ctx, qname, first))
	require.NoError(t, store.Append(ctx, qname, second))

	n, err := store.PendingCount(ctx, qname)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := store.Next(ctx, qname)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)

	require.NoError(t, store.Remove(ctx, qname, first.ID))

	got, err = store.Next(ctx, qname)
	require.NoError(t, err)
	assert.Equal(t, second.ID, got.ID)

	require.NoError(t, store.Remove(ctx, qname, second.ID))
	_, err = store.Next(ctx, qname)
	assert.ErrorIs(t, err, queue.ErrEmpty)
}

func TestQueueStoreAppendDuplicate(t *testing.T) {
	store := testDB(t)
	ctx := context.Background()
	const qname = "test_dup"

	msg := testMsg(t, `{"n":1}`)
	require.NoError(t, store.Append(ctx, qname, msg))
	assert.ErrorIs(t, store.Append(ctx, qname, msg), queue.ErrDuplicate)

	// The same ID in a different namespace is a different message.
	assert.NoError(t, store.Append(ctx, qname+"_other", msg))
}

func TestQueueStoreRequeueMovesToTail(t *testing.T) {
	store := testDB(t)
	ctx := context.Background()
	const qname = "test_requeue"

	flaky := testMsg(t, `{"n":1}`)
	steady := testMsg(t, `{"n":2}`)
	require.NoError(t, store.Append(ctx, qname, flaky))
	require.NoError(t, store.Append(ctx, qname, steady))

	require.NoError(t, store.Requeue(ctx, qname, flaky.ID, 1, time.Now().UTC()))

	got, err := store.Next(ctx, qname)
	require.NoError(t, err)
	assert.Equal(t, steady.ID, got.ID, "requeued message must not jump ahead of untouched ones")
}

func TestQueueStoreBackoffWindow(t *testing.T) {
	store := testDB(t)
	ctx := context.Background()
	const qname = "test_backoff"

	msg := testMsg(t, `{"n":1}`)
	require.NoError(t, store.Append(ctx, qname, msg))
	require.NoError(t, store.Requeue(ctx, qname, msg.ID, 1, time.Now().UTC().Add(time.Hour)))

	// Ineligible until its backoff window passes.
	_, err := store.Next(ctx, qname)
	assert.ErrorIs(t, err, queue.ErrEmpty)

	n, err := store.PendingCount(ctx, qname)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestQueueStoreMarkDead(t *testing.T) {
	store := testDB(t)
	ctx := context.Background()
	const qname = "test_dead"

	msg := testMsg(t, `{"n":1}`)
	require.NoError(t, store.Append(ctx, qname, msg))
	require.NoError(t, store.MarkDead(ctx, qname, msg.ID, "handler exhausted retries"))

	// Dead-lettered: retained, but excluded from counts and delivery.
	_, err := store.Next(ctx, qname)
	assert.ErrorIs(t, err, queue.ErrEmpty)

	n, err := store.PendingCount(ctx, qname)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestQueueStoreMissingMessage(t *testing.T) {
	store := testDB(t)
	ctx := context.Background()
	const qname = "test_missing"

	id := uuid.New()
	assert.ErrorIs(t, store.Remove(ctx, qname, id), queue.ErrMessageNotFound)
	assert.ErrorIs(t, store.Requeue(ctx, qname, id, 1, time.Now().UTC()), queue.ErrMessageNotFound)
	assert.ErrorIs(t, store.MarkDead(ctx, qname, id, "x"), queue.ErrMessageNotFound)
}
