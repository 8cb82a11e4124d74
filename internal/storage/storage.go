package storage

import (
	"context"

	"swapRouter/internal/model"
)

// DefaultStateName keys the router checkpoint in database stores.
const DefaultStateName = "router"

// LogSink receives journaled event records.
type LogSink interface {
	PutLogBatch(logs []model.LogRecord) error
}

// StateStore persists the router checkpoint. ok is false when nothing has
// been saved yet.
type StateStore interface {
	Load(ctx context.Context) (state model.RouterState, ok bool, err error)
	Save(ctx context.Context, state model.RouterState) error
}

// PoolStore persists pool snapshots.
type PoolStore interface {
	UpsertPools(ctx context.Context, pools []model.PoolSnapshot) error
}
