package explorer

import (
	"context"
	"encoding/json"
)

// RegisteredPools returns the ids of registered stake pools.
func (e *Explorer) RegisteredPools(ctx context.Context, opts ...ListOption) ([]json.RawMessage, error) {
	return e.listf(ctx, DefaultLimit, opts, "/pools")
}

// PoolInformation returns the current parameters of a pool.
func (e *Explorer) PoolInformation(ctx context.Context, poolID string) (json.RawMessage, error) {
	return e.getf(ctx, "/pools/%s", poolID)
}

// StakePoolHistory returns the per-epoch history of a pool.
func (e *Explorer) StakePoolHistory(ctx context.Context, poolID string, opts ...ListOption) ([]json.RawMessage, error) {
	return e.listf(ctx, DefaultLimit, opts, "/pools/%s/history", poolID)
}
