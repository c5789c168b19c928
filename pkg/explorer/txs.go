package explorer

import (
	"context"
	"encoding/json"
)

// Transactions. Certificate and metadata endpoints return every entry in a
// single response.

// SpecificTx returns one transaction.
func (e *Explorer) SpecificTx(ctx context.Context, txHash string) (json.RawMessage, error) {
	return e.getf(ctx, "/txs/%s", txHash)
}

// TxUTxOs returns the inputs and outputs of a transaction.
func (e *Explorer) TxUTxOs(ctx context.Context, txHash string) (json.RawMessage, error) {
	return e.getf(ctx, "/txs/%s/utxos", txHash)
}

// TxStakeAddressCert returns the stake address certificates.
func (e *Explorer) TxStakeAddressCert(ctx context.Context, txHash string) (json.RawMessage, error) {
	return e.getf(ctx, "/txs/%s/stakes", txHash)
}

// TxDelegationCert returns the delegation certificates.
func (e *Explorer) TxDelegationCert(ctx context.Context, txHash string) (json.RawMessage, error) {
	return e.getf(ctx, "/txs/%s/delegations", txHash)
}

// TxWithdrawals returns the reward withdrawals.
func (e *Explorer) TxWithdrawals(ctx context.Context, txHash string) (json.RawMessage, error) {
	return e.getf(ctx, "/txs/%s/withdrawals", txHash)
}

// TxMIRs returns the MIR certificates.
func (e *Explorer) TxMIRs(ctx context.Context, txHash string) (json.RawMessage, error) {
	return e.getf(ctx, "/txs/%s/mirs", txHash)
}

// TxStakePoolUpdate returns the pool registration and update certificates.
func (e *Explorer) TxStakePoolUpdate(ctx context.Context, txHash string) (json.RawMessage, error) {
	return e.getf(ctx, "/txs/%s/pool_updates", txHash)
}

// TxStakePoolRetirementCert returns the pool retirement certificates.
func (e *Explorer) TxStakePoolRetirementCert(ctx context.Context, txHash string) (json.RawMessage, error) {
	return e.getf(ctx, "/txs/%s/pool_retires", txHash)
}

// TxMetadata returns the JSON metadata.
func (e *Explorer) TxMetadata(ctx context.Context, txHash string) (json.RawMessage, error) {
	return e.getf(ctx, "/txs/%s/metadata", txHash)
}

// TxCBORMetadata returns the metadata in CBOR.
func (e *Explorer) TxCBORMetadata(ctx context.Context, txHash string) (json.RawMessage, error) {
	return e.getf(ctx, "/txs/%s/metadata/cbor", txHash)
}

// TxRedeemers returns the redeemers.
func (e *Explorer) TxRedeemers(ctx context.Context, txHash string) (json.RawMessage, error) {
	return e.getf(ctx, "/txs/%s/redeemers", txHash)
}
