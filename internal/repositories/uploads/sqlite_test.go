package uploads

import (
	"context"
	"database/sql"
	"testing"

	"github.com/dmitrijs2005/fieldcapture/internal/common"
	"github.com/dmitrijs2005/fieldcapture/internal/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE queued_uploads (
  id TEXT PRIMARY KEY,
  q_key TEXT NOT NULL DEFAULT '',
  prefix TEXT NOT NULL,
  name TEXT NOT NULL,
  mime_type TEXT NOT NULL,
  data BLOB,
  missing_count INTEGER NOT NULL DEFAULT 0,
  status TEXT NOT NULL DEFAULT 'queued',
  created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`)
	require.NoError(t, err)
	return db
}

func testItem(id string) *queue.Item {
	return &queue.Item{
		ID:       id,
		QKey:     "q-" + id,
		Prefix:   "inspections/42",
		Name:     id + ".jpg",
		MimeType: "image/jpeg",
		Data:     []byte("payload-" + id),
	}
}

func TestEnqueue_ListQueued_PreservesOrder(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Enqueue(ctx, testItem("a")))
	require.NoError(t, r.Enqueue(ctx, testItem("b")))
	require.NoError(t, r.Enqueue(ctx, testItem("c")))

	items, err := r.ListQueued(ctx)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "a", items[0].ID)
	assert.Equal(t, "b", items[1].ID)
	assert.Equal(t, "c", items[2].ID)
	assert.Equal(t, "q-a", items[0].QKey)
	assert.Equal(t, []byte("payload-a"), items[0].Data)
}

func TestRemove_SuccessAndNotFound(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Enqueue(ctx, testItem("x")))
	require.NoError(t, r.Remove(ctx, "x"))

	items, err := r.ListQueued(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)

	err = r.Remove(ctx, "x")
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestMarkMissing_DeadLettersAtThreshold(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	item := testItem("m")
	item.Data = nil
	require.NoError(t, r.Enqueue(ctx, item))

	dead, err := r.MarkMissing(ctx, "m", 3)
	require.NoError(t, err)
	assert.False(t, dead)

	dead, err = r.MarkMissing(ctx, "m", 3)
	require.NoError(t, err)
	assert.False(t, dead)

	dead, err = r.MarkMissing(ctx, "m", 3)
	require.NoError(t, err)
	assert.True(t, dead)

	queued, err := r.ListQueued(ctx)
	require.NoError(t, err)
	assert.Empty(t, queued, "dead items leave the queued list")

	deadItems, err := r.ListDead(ctx)
	require.NoError(t, err)
	require.Len(t, deadItems, 1)
	assert.Equal(t, "m", deadItems[0].ID)
	assert.Equal(t, 3, deadItems[0].MissingCount)
}

func TestMarkMissing_UnknownID(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))

	_, err := r.MarkMissing(context.Background(), "nope", 3)
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestCountQueued(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	n, err := r.CountQueued(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	require.NoError(t, r.Enqueue(ctx, testItem("a")))
	require.NoError(t, r.Enqueue(ctx, testItem("b")))

	n, err = r.CountQueued(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestSubscribe_SignalsOnMutation(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	ch := r.Subscribe()

	require.NoError(t, r.Enqueue(ctx, testItem("a")))
	select {
	case <-ch:
	default:
		t.Fatal("expected a change signal after Enqueue")
	}

	// Signals coalesce instead of blocking the writer.
	require.NoError(t, r.Enqueue(ctx, testItem("b")))
	require.NoError(t, r.Enqueue(ctx, testItem("c")))
	select {
	case <-ch:
	default:
		t.Fatal("expected a coalesced change signal")
	}
}

func TestRunnerAgainstSQLiteStore(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Enqueue(ctx, testItem("a")))

	// The runner's view of the repository is the queue.Store subset.
	var store queue.Store = r
	items, err := store.ListQueued(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.NoError(t, store.Remove(ctx, "a"))
}
