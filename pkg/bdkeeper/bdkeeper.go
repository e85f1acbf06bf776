// Package bdkeeper is the durable local tier: a schema-versioned SQLite
// database with one table per collection and the sync_queue table backing
// the pending-write queue. Migrations are additive; an upgrade never drops
// existing tables.
package bdkeeper

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"

	"github.com/wurt83ow/rosterkeeper/pkg/models"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// ErrNotFound reports a keyed lookup miss.
var ErrNotFound = errors.New("record not found")

// ErrUnknownCollection rejects table names outside the fixed schema.
var ErrUnknownCollection = errors.New("unknown collection")

type Keeper struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies pending
// migrations. A failure here means durable storage is unavailable; the
// coordinator then runs in fast-and-remote-only degraded mode.
func Open(path string) (*Keeper, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	goose.SetBaseFS(embedMigrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		db.Close()
		return nil, err
	}
	if err := goose.Up(db, "migrations"); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return NewKeeper(db), nil
}

// NewKeeper wraps an already opened database. Used by tests and by Open.
func NewKeeper(db *sql.DB) *Keeper {
	return &Keeper{db: db}
}

func (k *Keeper) Close() error {
	return k.db.Close()
}

// tableFor maps a collection to its table, refusing anything outside the
// fixed set so collection names can never reach SQL as raw identifiers.
func tableFor(collection string) (string, error) {
	if !models.KnownCollection(collection) {
		return "", fmt.Errorf("%w: %q", ErrUnknownCollection, collection)
	}
	return collection, nil
}

// PutRecord upserts the record keyed by its primary key, inside a
// transaction so the row is either fully applied or not at all.
func (k *Keeper) PutRecord(ctx context.Context, collection string, rec models.Record) error {
	table, err := tableFor(collection)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("serialize record: %w", err)
	}

	tx, err := k.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (id, payload, updated_at) VALUES (?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`, table),
		rec.ID, string(payload), rec.UpdatedAt)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("upsert %s/%s: %w", collection, rec.ID, err)
	}
	return tx.Commit()
}

// GetRecord returns the record or ErrNotFound.
func (k *Keeper) GetRecord(ctx context.Context, collection, id string) (models.Record, error) {
	table, err := tableFor(collection)
	if err != nil {
		return models.Record{}, err
	}
	var payload string
	err = k.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT payload FROM %s WHERE id = ?", table), id).Scan(&payload)
	if err == sql.ErrNoRows {
		return models.Record{}, ErrNotFound
	}
	if err != nil {
		return models.Record{}, fmt.Errorf("select %s/%s: %w", collection, id, err)
	}
	var rec models.Record
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		return models.Record{}, fmt.Errorf("decode %s/%s: %w", collection, id, err)
	}
	return rec, nil
}

// GetAllRecords is a full table scan, acceptable at roster cardinality.
func (k *Keeper) GetAllRecords(ctx context.Context, collection string) ([]models.Record, error) {
	table, err := tableFor(collection)
	if err != nil {
		return nil, err
	}
	rows, err := k.db.QueryContext(ctx,
		fmt.Sprintf("SELECT payload FROM %s", table))
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	var out []models.Record
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		var rec models.Record
		if err := json.Unmarshal([]byte(payload), &rec); err != nil {
			return nil, fmt.Errorf("decode row: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows encountered an error: %w", err)
	}
	return out, nil
}

// DeleteRecord removes the row. Deleting an absent record is not an error.
func (k *Keeper) DeleteRecord(ctx context.Context, collection, id string) error {
	table, err := tableFor(collection)
	if err != nil {
		return err
	}
	_, err = k.db.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE id = ?", table), id)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	return nil
}

// Enqueue appends a pending mutation. The row is durable once this
// returns: a single INSERT in its own transaction.
func (k *Keeper) Enqueue(ctx context.Context, entry models.QueueEntry) (int64, error) {
	payload, err := json.Marshal(entry.Payload)
	if err != nil {
		return 0, fmt.Errorf("serialize queue payload: %w", err)
	}
	res, err := k.db.ExecContext(ctx,
		`INSERT INTO sync_queue (collection, record_id, operation, payload, enqueued_at)
			VALUES (?, ?, ?, ?, ?)`,
		entry.Collection, entry.RecordID, string(entry.Operation), string(payload), entry.EnqueuedAt)
	if err != nil {
		return 0, fmt.Errorf("enqueue %s/%s: %w", entry.Collection, entry.RecordID, err)
	}
	return res.LastInsertId()
}

// ListQueue returns all pending entries in enqueue order.
func (k *Keeper) ListQueue(ctx context.Context) ([]models.QueueEntry, error) {
	rows, err := k.db.QueryContext(ctx,
		`SELECT id, collection, record_id, operation, payload, enqueued_at
			FROM sync_queue ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list queue: %w", err)
	}
	defer rows.Close()

	var out []models.QueueEntry
	for rows.Next() {
		var (
			entry   models.QueueEntry
			op      string
			payload string
		)
		if err := rows.Scan(&entry.ID, &entry.Collection, &entry.RecordID, &op, &payload, &entry.EnqueuedAt); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		entry.Operation = models.Operation(op)
		if err := json.Unmarshal([]byte(payload), &entry.Payload); err != nil {
			return nil, fmt.Errorf("decode queue payload: %w", err)
		}
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows encountered an error: %w", err)
	}
	return out, nil
}

// Dequeue removes one applied entry. Removing an already removed entry is
// a no-op, which keeps crash-replay of an applied entry idempotent.
func (k *Keeper) Dequeue(ctx context.Context, entryID int64) error {
	_, err := k.db.ExecContext(ctx, "DELETE FROM sync_queue WHERE id = ?", entryID)
	if err != nil {
		return fmt.Errorf("dequeue %d: %w", entryID, err)
	}
	return nil
}

// DequeueKey removes every pending entry for one record. Called when a
// direct remote write succeeds so a later drain cannot resurrect stale
// queued state for that key.
func (k *Keeper) DequeueKey(ctx context.Context, collection, recordID string) error {
	_, err := k.db.ExecContext(ctx,
		"DELETE FROM sync_queue WHERE collection = ? AND record_id = ?", collection, recordID)
	if err != nil {
		return fmt.Errorf("dequeue key %s/%s: %w", collection, recordID, err)
	}
	return nil
}

// QueueLen reports the number of pending entries.
func (k *Keeper) QueueLen(ctx context.Context) (int, error) {
	var n int
	err := k.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sync_queue").Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count queue: %w", err)
	}
	return n, nil
}
