// Package services is the sync coordinator: the single entry point for
// record reads and writes across the fast, durable and remote tiers.
// Callers never see tier-specific failures; every write that reached at
// least one durable path is accepted.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wurt83ow/rosterkeeper/pkg/bdkeeper"
	"github.com/wurt83ow/rosterkeeper/pkg/fastkeeper"
	"github.com/wurt83ow/rosterkeeper/pkg/logger"
	"github.com/wurt83ow/rosterkeeper/pkg/models"
	"github.com/wurt83ow/rosterkeeper/pkg/syncinfo"
)

type Service struct {
	fast           *fastkeeper.Cache
	keeper         *bdkeeper.Keeper // nil when durable storage is unavailable (degraded mode)
	remote         RemoteStore      // nil when syncing is disabled
	state          *syncinfo.SyncManager
	log            logger.LoggerInterface
	syncWithServer bool

	stampMu   sync.Mutex
	lastStamp int64

	// drainMu makes drains mutually exclusive; a second trigger while one
	// is in flight is a no-op, not a queued repeat.
	drainMu sync.Mutex

	visibility chan struct{}
}

func NewServices(fast *fastkeeper.Cache, keeper *bdkeeper.Keeper, remote RemoteStore,
	state *syncinfo.SyncManager, log logger.LoggerInterface, syncWithServer bool) *Service {
	return &Service{
		fast:           fast,
		keeper:         keeper,
		remote:         remote,
		state:          state,
		log:            log,
		syncWithServer: syncWithServer,
		visibility:     make(chan struct{}, 1),
	}
}

// stamp returns the next write timestamp: wall-clock milliseconds forced
// strictly increasing, so two writes in the same millisecond still order.
func (s *Service) stamp() int64 {
	s.stampMu.Lock()
	defer s.stampMu.Unlock()
	now := time.Now().UnixMilli()
	if now <= s.lastStamp {
		now = s.lastStamp + 1
	}
	s.lastStamp = now
	return now
}

// online reports whether a remote attempt is worth making. Connectivity
// does not promise the next call will succeed; failures still queue.
func (s *Service) online() bool {
	return s.syncWithServer && s.remote != nil && s.state.Online()
}

// GenerateUUID returns a fresh record id.
func (s *Service) GenerateUUID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Save stamps the record and fans it out: fast tier best-effort, durable
// tier awaited, remote tier attempted when online and queued otherwise.
// The returned record carries the assigned stamp and sync status.
func (s *Service) Save(ctx context.Context, collection, id string, fields map[string]string) (models.Record, error) {
	if !models.KnownCollection(collection) {
		return models.Record{}, fmt.Errorf("%w: %q", ErrUnknownCollection, collection)
	}
	if id == "" {
		var err error
		if id, err = s.GenerateUUID(); err != nil {
			return models.Record{}, err
		}
	}

	rec := models.Record{ID: id, UpdatedAt: s.stamp(), Fields: map[string]string{}}
	for k, v := range fields {
		rec.Fields[k] = v
	}

	fastErr := s.fast.Put(collection, id, rec)

	durableErr := s.putDurable(ctx, collection, rec)
	if durableErr != nil {
		s.log.Printf("services: durable write %s/%s degraded: %v", collection, id, durableErr)
	}

	if s.online() {
		if err := s.remote.Set(ctx, collection, id, rec); err == nil {
			return s.confirmSynced(ctx, collection, rec), nil
		} else {
			s.log.Printf("services: remote write %s/%s failed, queueing: %v", collection, id, err)
		}
	}

	queued := s.enqueue(ctx, collection, id, models.OpSave, rec)
	if !queued && durableErr != nil && fastErr != nil {
		// No tier holds this write and it cannot be queued: the one case
		// the caller must hear about.
		return models.Record{}, ErrNoDurability
	}
	return rec, nil
}

// Delete removes the record from every tier, queueing the remote removal
// when it cannot be applied now.
func (s *Service) Delete(ctx context.Context, collection, id string) error {
	if !models.KnownCollection(collection) {
		return fmt.Errorf("%w: %q", ErrUnknownCollection, collection)
	}

	s.fast.Delete(collection, id)
	if s.keeper != nil {
		if err := s.keeper.DeleteRecord(ctx, collection, id); err != nil {
			s.log.Printf("services: durable delete %s/%s degraded: %v", collection, id, err)
		}
	}

	if s.online() {
		if err := s.remote.Remove(ctx, collection, id); err == nil {
			// The record is gone remotely; any queued writes for it are stale.
			if s.keeper != nil {
				if err := s.keeper.DequeueKey(ctx, collection, id); err != nil {
					s.log.Printf("services: dequeue key %s/%s: %v", collection, id, err)
				}
			}
			return nil
		} else {
			s.log.Printf("services: remote delete %s/%s failed, queueing: %v", collection, id, err)
		}
	}

	tombstone := models.Record{ID: id, UpdatedAt: s.stamp()}
	s.enqueue(ctx, collection, id, models.OpDelete, tombstone)
	return nil
}

// Get tries tiers in increasing latency order and backfills the faster
// tiers from whichever tier answered.
func (s *Service) Get(ctx context.Context, collection, id string) (models.Record, error) {
	if !models.KnownCollection(collection) {
		return models.Record{}, fmt.Errorf("%w: %q", ErrUnknownCollection, collection)
	}

	if rec, ok := s.fast.Get(collection, id); ok {
		return rec, nil
	}

	if s.keeper != nil {
		rec, err := s.keeper.GetRecord(ctx, collection, id)
		if err == nil {
			s.fast.Put(collection, id, rec)
			return rec, nil
		}
		if err != bdkeeper.ErrNotFound {
			s.log.Printf("services: durable read %s/%s degraded: %v", collection, id, err)
		}
	}

	if s.online() {
		rec, err := s.remote.Get(ctx, collection, id)
		if err == nil {
			rec.Synced = true
			s.backfill(ctx, collection, rec)
			return rec, nil
		}
	}

	return models.Record{}, ErrNotFound
}

// GetAll merges the durable and remote views of a collection by record id,
// keeping the greater updatedAt per id (remote wins a tie) and backfilling
// local tiers with anything remote-only or remote-newer. Order of the
// result is unspecified.
func (s *Service) GetAll(ctx context.Context, collection string) ([]models.Record, error) {
	if !models.KnownCollection(collection) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCollection, collection)
	}

	merged := make(map[string]models.Record)
	if s.keeper != nil {
		local, err := s.keeper.GetAllRecords(ctx, collection)
		if err != nil {
			s.log.Printf("services: durable scan %s degraded: %v", collection, err)
		}
		for _, rec := range local {
			merged[rec.ID] = rec
		}
	}

	if s.online() {
		remote, err := s.remote.GetAllUnderPath(ctx, collection)
		if err != nil {
			s.log.Printf("services: remote scan %s degraded to local only: %v", collection, err)
		} else {
			for id, rrec := range remote {
				rrec.ID = id
				local, have := merged[id]
				if have && local.UpdatedAt > rrec.UpdatedAt {
					continue // local pending write is newer
				}
				rrec.Synced = true
				merged[id] = rrec
				s.backfill(ctx, collection, rrec)
			}
		}
	}

	out := make([]models.Record, 0, len(merged))
	for _, rec := range merged {
		out = append(out, rec)
	}
	return out, nil
}

// Query is GetAll plus a predicate filter; no index pushdown at this scale.
func (s *Service) Query(ctx context.Context, collection string, predicate func(models.Record) bool) ([]models.Record, error) {
	all, err := s.GetAll(ctx, collection)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, rec := range all {
		if predicate(rec) {
			out = append(out, rec)
		}
	}
	return out, nil
}

// SyncPendingChanges drains the pending-write queue in enqueue order.
// Policy: per-key skip-and-continue. A failed key is skipped for the rest
// of the pass so its entries never apply out of order, while unrelated
// keys keep draining. Only one drain runs at a time; concurrent triggers
// return immediately.
func (s *Service) SyncPendingChanges(ctx context.Context) error {
	if s.keeper == nil || s.remote == nil || !s.syncWithServer {
		return nil
	}
	if !s.drainMu.TryLock() {
		return nil
	}
	defer s.drainMu.Unlock()

	entries, err := s.keeper.ListQueue(ctx)
	if err != nil {
		return fmt.Errorf("list pending changes: %w", err)
	}

	failed := make(map[string]struct{})
	applied := 0
	for _, entry := range entries {
		if _, bad := failed[entry.Key()]; bad {
			continue
		}

		var opErr error
		switch entry.Operation {
		case models.OpSave:
			opErr = s.remote.Set(ctx, entry.Collection, entry.RecordID, entry.Payload)
		case models.OpDelete:
			opErr = s.remote.Remove(ctx, entry.Collection, entry.RecordID)
		default:
			s.log.Printf("services: dropping queue entry %d with unknown operation %q", entry.ID, entry.Operation)
		}
		if opErr != nil {
			failed[entry.Key()] = struct{}{}
			s.log.Printf("services: drain %s %s failed, keeping entry: %v", entry.Operation, entry.Key(), opErr)
			continue
		}

		if err := s.keeper.Dequeue(ctx, entry.ID); err != nil {
			s.log.Printf("services: dequeue %d: %v", entry.ID, err)
		}
		if entry.Operation == models.OpSave {
			s.markSynced(ctx, entry.Collection, entry.Payload)
		}
		applied++
	}

	if len(failed) > 0 {
		return fmt.Errorf("%w: %d key(s) unreachable", ErrSyncIncomplete, len(failed))
	}
	if applied > 0 {
		if err := s.state.UpdateAndSaveSyncInfo(syncinfo.SyncInfo{LastSync: time.Now().UTC()}); err != nil {
			s.log.Printf("services: save sync info: %v", err)
		}
	}
	return nil
}

// NotifyVisibilityRestored signals that the application became visible
// again; the run loop answers with an opportunistic drain.
func (s *Service) NotifyVisibilityRestored() {
	select {
	case s.visibility <- struct{}{}:
	default:
	}
}

// Run reacts to connectivity transitions, visibility restores and the
// periodic timer until ctx is done. interval <= 0 disables the timer.
func (s *Service) Run(ctx context.Context, interval time.Duration) {
	transitions := s.state.Subscribe()
	var tick <-chan time.Time
	if interval > 0 {
		t := time.NewTicker(interval)
		defer t.Stop()
		tick = t.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case online := <-transitions:
			if online {
				s.log.Printf("back online, syncing")
				if err := s.SyncPendingChanges(ctx); err != nil {
					s.log.Printf("services: sync after reconnect: %v", err)
				}
			} else {
				s.log.Printf("working offline")
			}
		case <-s.visibility:
			if s.online() {
				if err := s.SyncPendingChanges(ctx); err != nil {
					s.log.Printf("services: sync after visibility restore: %v", err)
				}
			}
		case <-tick:
			if s.online() {
				if err := s.SyncPendingChanges(ctx); err != nil {
					s.log.Printf("services: periodic sync: %v", err)
				}
			}
		}
	}
}

// PendingChanges reports the queue depth, for status displays.
func (s *Service) PendingChanges(ctx context.Context) int {
	if s.keeper == nil {
		return 0
	}
	n, err := s.keeper.QueueLen(ctx)
	if err != nil {
		s.log.Printf("services: queue length: %v", err)
		return 0
	}
	return n
}

// Export writes every collection as one JSON interchange document.
func (s *Service) Export(ctx context.Context, w io.Writer) error {
	doc := make(map[string]map[string]models.Record)
	for _, collection := range models.Collections() {
		all, err := s.GetAll(ctx, collection)
		if err != nil {
			return err
		}
		doc[collection] = make(map[string]models.Record, len(all))
		for _, rec := range all {
			rec.Synced = false // sync status is not part of the interchange format
			doc[collection][rec.ID] = rec
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// Import replays an interchange document through the normal write path, so
// imported records are stamped, cached and synced like any other write.
// Returns the number of records imported.
func (s *Service) Import(ctx context.Context, r io.Reader) (int, error) {
	var doc map[string]map[string]models.Record
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return 0, fmt.Errorf("decode import document: %w", err)
	}
	count := 0
	for collection, records := range doc {
		if !models.KnownCollection(collection) {
			s.log.Printf("services: import skipping unknown collection %q", collection)
			continue
		}
		for id, rec := range records {
			if _, err := s.Save(ctx, collection, id, rec.Fields); err != nil {
				return count, err
			}
			count++
		}
	}
	return count, nil
}

// enqueue records a pending mutation in the durable queue. Reports false
// when the entry could not be made durable.
func (s *Service) enqueue(ctx context.Context, collection, id string, op models.Operation, payload models.Record) bool {
	if s.keeper == nil {
		return false
	}
	_, err := s.keeper.Enqueue(ctx, models.QueueEntry{
		Collection: collection,
		RecordID:   id,
		Operation:  op,
		Payload:    payload,
		EnqueuedAt: payload.UpdatedAt,
	})
	if err != nil {
		s.log.Printf("services: enqueue %s %s/%s: %v", op, collection, id, err)
		return false
	}
	return true
}

// putDurable writes to the durable tier, treating a nil keeper as the
// degraded "durable storage unavailable" state.
func (s *Service) putDurable(ctx context.Context, collection string, rec models.Record) error {
	if s.keeper == nil {
		return fmt.Errorf("durable storage unavailable")
	}
	return s.keeper.PutRecord(ctx, collection, rec)
}

// confirmSynced records a successful direct remote write: same-key queue
// entries are cancelled and both local tiers learn the synced status.
func (s *Service) confirmSynced(ctx context.Context, collection string, rec models.Record) models.Record {
	rec.Synced = true
	if s.keeper != nil {
		if err := s.keeper.DequeueKey(ctx, collection, rec.ID); err != nil {
			s.log.Printf("services: dequeue key %s/%s: %v", collection, rec.ID, err)
		}
		if err := s.keeper.PutRecord(ctx, collection, rec); err != nil {
			s.log.Printf("services: refresh durable %s/%s: %v", collection, rec.ID, err)
		}
	}
	s.fast.Put(collection, rec.ID, rec)
	return rec
}

// backfill pushes a record that answered from a slower tier into the
// faster ones, refusing to move any tier backwards in updatedAt.
func (s *Service) backfill(ctx context.Context, collection string, rec models.Record) {
	if s.keeper != nil {
		cur, err := s.keeper.GetRecord(ctx, collection, rec.ID)
		if err != nil || cur.UpdatedAt <= rec.UpdatedAt {
			if err := s.keeper.PutRecord(ctx, collection, rec); err != nil {
				s.log.Printf("services: backfill durable %s/%s: %v", collection, rec.ID, err)
			}
		}
	}
	if cur, ok := s.fast.Get(collection, rec.ID); !ok || cur.UpdatedAt <= rec.UpdatedAt {
		s.fast.Put(collection, rec.ID, rec)
	}
}

// markSynced flips the local synced flag after a queued save landed, but
// only while the local copy is still that exact write.
func (s *Service) markSynced(ctx context.Context, collection string, payload models.Record) {
	if s.keeper == nil {
		return
	}
	cur, err := s.keeper.GetRecord(ctx, collection, payload.ID)
	if err != nil || cur.UpdatedAt != payload.UpdatedAt {
		return
	}
	cur.Synced = true
	if err := s.keeper.PutRecord(ctx, collection, cur); err != nil {
		s.log.Printf("services: mark synced %s/%s: %v", collection, payload.ID, err)
		return
	}
	s.fast.Put(collection, payload.ID, cur)
}
