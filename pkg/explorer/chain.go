package explorer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// ErrEpochOutOfRange is returned by EpochsHistory for an epoch that is not
// strictly between 0 and the current epoch.
var ErrEpochOutOfRange = errors.New("epoch out of range")

// NetworkInfo returns supply and stake figures for the network.
func (e *Explorer) NetworkInfo(ctx context.Context) (json.RawMessage, error) {
	return e.Get(ctx, "/network")
}

// LatestEpoch returns the current epoch.
func (e *Explorer) LatestEpoch(ctx context.Context) (json.RawMessage, error) {
	return e.Get(ctx, "/epochs/latest")
}

// SpecificEpoch returns one epoch.
func (e *Explorer) SpecificEpoch(ctx context.Context, epoch int) (json.RawMessage, error) {
	return e.getf(ctx, "/epochs/%s", strconv.Itoa(epoch))
}

// LatestEpochProtocolParameters returns the protocol parameters in force.
func (e *Explorer) LatestEpochProtocolParameters(ctx context.Context) (json.RawMessage, error) {
	return e.Get(ctx, "/epochs/latest/parameters")
}

// EpochsHistory returns the given epochs in the order requested. Every epoch
// must lie strictly between 0 and the current epoch; all of them are checked
// before any epoch is fetched.
func (e *Explorer) EpochsHistory(ctx context.Context, epochs []int) ([]json.RawMessage, error) {
	var latest struct {
		Epoch int `json:"epoch"`
	}
	if err := e.getInto(ctx, &latest, "/epochs/latest"); err != nil {
		return nil, fmt.Errorf("latest epoch: %w", err)
	}

	for _, epoch := range epochs {
		if epoch <= 0 || epoch >= latest.Epoch {
			return nil, fmt.Errorf("%w: %d (current epoch %d)", ErrEpochOutOfRange, epoch, latest.Epoch)
		}
	}

	history := make([]json.RawMessage, 0, len(epochs))
	for _, epoch := range epochs {
		body, err := e.SpecificEpoch(ctx, epoch)
		if err != nil {
			return nil, fmt.Errorf("epoch %d: %w", epoch, err)
		}
		history = append(history, body)
	}

	e.logger.Debug().
		Int("epochs", len(epochs)).
		Int("requests", len(epochs)+1).
		Msg("Epochs history fetched")
	return history, nil
}

// Blocks.

// LatestBlock returns the tip of the chain.
func (e *Explorer) LatestBlock(ctx context.Context) (json.RawMessage, error) {
	return e.Get(ctx, "/blocks/latest")
}

// LatestBlockTxs returns the transaction hashes of the latest block.
func (e *Explorer) LatestBlockTxs(ctx context.Context, opts ...ListOption) ([]json.RawMessage, error) {
	return e.listf(ctx, DefaultLimit, opts, "/blocks/latest/txs")
}

// SpecificBlock returns a block by hash or number.
func (e *Explorer) SpecificBlock(ctx context.Context, hashOrNumber string) (json.RawMessage, error) {
	return e.getf(ctx, "/blocks/%s", hashOrNumber)
}

// NextBlocks returns up to 100 blocks following the given one.
func (e *Explorer) NextBlocks(ctx context.Context, hashOrNumber string) (json.RawMessage, error) {
	return e.getf(ctx, "/blocks/%s/next", hashOrNumber)
}

// PreviousBlocks returns up to 100 blocks preceding the given one.
func (e *Explorer) PreviousBlocks(ctx context.Context, hashOrNumber string) (json.RawMessage, error) {
	return e.getf(ctx, "/blocks/%s/previous", hashOrNumber)
}

// SpecificBlockSlot returns the block in an absolute slot.
func (e *Explorer) SpecificBlockSlot(ctx context.Context, slot int) (json.RawMessage, error) {
	return e.getf(ctx, "/blocks/slot/%s", strconv.Itoa(slot))
}

// SpecificBlockEpochSlot returns the block in a slot of an epoch.
func (e *Explorer) SpecificBlockEpochSlot(ctx context.Context, epoch, slot int) (json.RawMessage, error) {
	return e.getf(ctx, "/blocks/epoch/%s/slot/%s", strconv.Itoa(epoch), strconv.Itoa(slot))
}

// BlockTransactions returns the transaction hashes of a block.
func (e *Explorer) BlockTransactions(ctx context.Context, hashOrNumber string, opts ...ListOption) ([]json.RawMessage, error) {
	return e.listf(ctx, DefaultLimit, opts, "/blocks/%s/txs", hashOrNumber)
}

// BlockAddresses returns the addresses affected by a block.
func (e *Explorer) BlockAddresses(ctx context.Context, hashOrNumber string, opts ...ListOption) ([]json.RawMessage, error) {
	return e.listf(ctx, DefaultLimit, opts, "/blocks/%s/addresses", hashOrNumber)
}
