package storage

import (
	"context"

	"poolSim/internal/model"
)

// PoolSink persists pool snapshots. A later snapshot of the same pool
// replaces the earlier one.
type PoolSink interface {
	PutPools(ctx context.Context, pools []model.PoolRecord) error
}

// PoolSource loads the latest snapshot of every stored pool.
type PoolSource interface {
	LoadPools(ctx context.Context) ([]model.PoolRecord, error)
}

// PriceSink persists computed prices.
type PriceSink interface {
	PutPrices(ctx context.Context, prices []model.PoolPrice) error
}
