package bdkeeper_test

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wurt83ow/rosterkeeper/pkg/bdkeeper"
	"github.com/wurt83ow/rosterkeeper/pkg/models"
)

func setup(t *testing.T) (*sql.DB, func()) {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to connect to database: %v", err)
	}

	for _, table := range []string{"groups", "teams", "players"} {
		_, err = db.Exec(`CREATE TABLE ` + table + ` (
			id TEXT PRIMARY KEY,
			payload TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		)`)
		if err != nil {
			t.Fatalf("failed to create %s table: %v", table, err)
		}
	}

	_, err = db.Exec(`CREATE TABLE sync_queue (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		collection TEXT NOT NULL,
		record_id TEXT NOT NULL,
		operation TEXT NOT NULL CHECK(operation IN ('save', 'delete')),
		payload TEXT NOT NULL,
		enqueued_at INTEGER NOT NULL
	)`)
	if err != nil {
		t.Fatalf("failed to create sync_queue table: %v", err)
	}

	cleanup := func() {
		if err := db.Close(); err != nil {
			t.Logf("error closing database: %v", err)
		}
	}
	return db, cleanup
}

func record(id string, updatedAt int64, name string) models.Record {
	return models.Record{
		ID:        id,
		UpdatedAt: updatedAt,
		Fields:    map[string]string{"name": name},
	}
}

func TestPutRecord_InsertAndUpsert(t *testing.T) {
	db, cleanup := setup(t)
	defer cleanup()

	ctx := context.Background()
	keeper := bdkeeper.NewKeeper(db)

	require.NoError(t, keeper.PutRecord(ctx, models.CollectionTeams, record("t1", 10, "Bulls")))

	got, err := keeper.GetRecord(ctx, models.CollectionTeams, "t1")
	require.NoError(t, err)
	assert.Equal(t, "Bulls", got.Fields["name"])
	assert.Equal(t, int64(10), got.UpdatedAt)

	// Upsert keeps the primary key and replaces the payload.
	require.NoError(t, keeper.PutRecord(ctx, models.CollectionTeams, record("t1", 20, "Chicago Bulls")))

	got, err = keeper.GetRecord(ctx, models.CollectionTeams, "t1")
	require.NoError(t, err)
	assert.Equal(t, "Chicago Bulls", got.Fields["name"])
	assert.Equal(t, int64(20), got.UpdatedAt)

	all, err := keeper.GetAllRecords(ctx, models.CollectionTeams)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestGetRecord_NotFound(t *testing.T) {
	db, cleanup := setup(t)
	defer cleanup()

	keeper := bdkeeper.NewKeeper(db)
	_, err := keeper.GetRecord(context.Background(), models.CollectionPlayers, "missing")
	assert.ErrorIs(t, err, bdkeeper.ErrNotFound)
}

func TestUnknownCollectionRejected(t *testing.T) {
	db, cleanup := setup(t)
	defer cleanup()

	ctx := context.Background()
	keeper := bdkeeper.NewKeeper(db)

	err := keeper.PutRecord(ctx, "users; DROP TABLE teams", record("x", 1, "x"))
	assert.ErrorIs(t, err, bdkeeper.ErrUnknownCollection)

	_, err = keeper.GetAllRecords(ctx, "unknown")
	assert.ErrorIs(t, err, bdkeeper.ErrUnknownCollection)
}

func TestDeleteRecord(t *testing.T) {
	db, cleanup := setup(t)
	defer cleanup()

	ctx := context.Background()
	keeper := bdkeeper.NewKeeper(db)

	require.NoError(t, keeper.PutRecord(ctx, models.CollectionGroups, record("g1", 5, "U16")))
	require.NoError(t, keeper.DeleteRecord(ctx, models.CollectionGroups, "g1"))

	_, err := keeper.GetRecord(ctx, models.CollectionGroups, "g1")
	assert.ErrorIs(t, err, bdkeeper.ErrNotFound)

	// Deleting again is not an error.
	assert.NoError(t, keeper.DeleteRecord(ctx, models.CollectionGroups, "g1"))
}

func TestQueueOrderAndDequeue(t *testing.T) {
	db, cleanup := setup(t)
	defer cleanup()

	ctx := context.Background()
	keeper := bdkeeper.NewKeeper(db)

	first, err := keeper.Enqueue(ctx, models.QueueEntry{
		Collection: models.CollectionTeams,
		RecordID:   "t1",
		Operation:  models.OpSave,
		Payload:    record("t1", 1, "Bulls"),
		EnqueuedAt: 1,
	})
	require.NoError(t, err)

	second, err := keeper.Enqueue(ctx, models.QueueEntry{
		Collection: models.CollectionTeams,
		RecordID:   "t1",
		Operation:  models.OpSave,
		Payload:    record("t1", 2, "Chicago Bulls"),
		EnqueuedAt: 2,
	})
	require.NoError(t, err)
	assert.Greater(t, second, first)

	entries, err := keeper.ListQueue(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "Bulls", entries[0].Payload.Fields["name"])
	assert.Equal(t, "Chicago Bulls", entries[1].Payload.Fields["name"])
	assert.Equal(t, models.OpSave, entries[0].Operation)

	require.NoError(t, keeper.Dequeue(ctx, first))

	n, err := keeper.QueueLen(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// Dequeue of an already removed entry is a no-op.
	assert.NoError(t, keeper.Dequeue(ctx, first))
}

func TestDequeueKeyRemovesAllEntriesForRecord(t *testing.T) {
	db, cleanup := setup(t)
	defer cleanup()

	ctx := context.Background()
	keeper := bdkeeper.NewKeeper(db)

	for i, op := range []models.Operation{models.OpSave, models.OpSave, models.OpDelete} {
		_, err := keeper.Enqueue(ctx, models.QueueEntry{
			Collection: models.CollectionPlayers,
			RecordID:   "p1",
			Operation:  op,
			Payload:    record("p1", int64(i), "Jordan"),
			EnqueuedAt: int64(i),
		})
		require.NoError(t, err)
	}
	_, err := keeper.Enqueue(ctx, models.QueueEntry{
		Collection: models.CollectionPlayers,
		RecordID:   "p2",
		Operation:  models.OpSave,
		Payload:    record("p2", 9, "Pippen"),
		EnqueuedAt: 9,
	})
	require.NoError(t, err)

	require.NoError(t, keeper.DequeueKey(ctx, models.CollectionPlayers, "p1"))

	entries, err := keeper.ListQueue(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "p2", entries[0].RecordID)
}
