package services

import (
	"context"
	"errors"

	"github.com/wurt83ow/rosterkeeper/pkg/models"
)

// RemoteStore is the slice of the remote tier the coordinator depends on.
// Implemented by rksync.Client; tests substitute a scripted fake.
type RemoteStore interface {
	Set(ctx context.Context, collection, id string, rec models.Record) error
	Get(ctx context.Context, collection, id string) (models.Record, error)
	Remove(ctx context.Context, collection, id string) error
	GetAllUnderPath(ctx context.Context, collection string) (map[string]models.Record, error)
}

// ErrNotFound reports that no tier holds the requested record.
var ErrNotFound = errors.New("record not found")

// ErrNoDurability is the single hard failure: a write reached neither
// local tier while the remote store was also unreachable, so no durable
// copy of it exists anywhere.
var ErrNoDurability = errors.New("write not durable: all local tiers failed while offline")

// ErrUnknownCollection rejects operations outside the fixed collections.
var ErrUnknownCollection = errors.New("unknown collection")

// ErrSyncIncomplete reports a drain that left entries queued.
var ErrSyncIncomplete = errors.New("sync incomplete: changes still pending")
