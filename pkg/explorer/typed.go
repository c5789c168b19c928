package explorer

import (
	"context"

	"github.com/blockfrost/blockfrost-go"
)

// Typed variants decode into the blockfrost-go models.

// LatestBlockInfo returns the tip of the chain.
func (e *Explorer) LatestBlockInfo(ctx context.Context) (blockfrost.Block, error) {
	var block blockfrost.Block
	err := e.getInto(ctx, &block, "/blocks/latest")
	return block, err
}

// LatestEpochInfo returns the current epoch.
func (e *Explorer) LatestEpochInfo(ctx context.Context) (blockfrost.Epoch, error) {
	var epoch blockfrost.Epoch
	err := e.getInto(ctx, &epoch, "/epochs/latest")
	return epoch, err
}

// NetworkSummary returns supply and stake figures.
func (e *Explorer) NetworkSummary(ctx context.Context) (blockfrost.NetworkInfo, error) {
	var info blockfrost.NetworkInfo
	err := e.getInto(ctx, &info, "/network")
	return info, err
}

// PoolDetails returns the current parameters of a pool.
func (e *Explorer) PoolDetails(ctx context.Context, poolID string) (blockfrost.Pool, error) {
	var pool blockfrost.Pool
	err := e.getInto(ctx, &pool, "/pools/%s", poolID)
	return pool, err
}

// PoolMetadata returns the off-chain metadata registered for a pool.
func (e *Explorer) PoolMetadata(ctx context.Context, poolID string) (blockfrost.PoolMetadata, error) {
	var metadata blockfrost.PoolMetadata
	err := e.getInto(ctx, &metadata, "/pools/%s/metadata", poolID)
	return metadata, err
}

// PoolRelays returns the relays announced by a pool.
func (e *Explorer) PoolRelays(ctx context.Context, poolID string) ([]blockfrost.PoolRelay, error) {
	var relays []blockfrost.PoolRelay
	err := e.getInto(ctx, &relays, "/pools/%s/relays", poolID)
	return relays, err
}

// ProtocolParameters returns the protocol parameters in force.
func (e *Explorer) ProtocolParameters(ctx context.Context) (blockfrost.EpochParameters, error) {
	var params blockfrost.EpochParameters
	err := e.getInto(ctx, &params, "/epochs/latest/parameters")
	return params, err
}
