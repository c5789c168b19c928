package explorer

import (
	"context"
	"encoding/json"

	"github.com/Sternrassler/blockfrost-client/pkg/pagination"
)

// Stake accounts. History lists default to every record.

// StakeInformation returns the state of a stake account.
func (e *Explorer) StakeInformation(ctx context.Context, stakeAddress string) (json.RawMessage, error) {
	return e.getf(ctx, "/accounts/%s", stakeAddress)
}

// StakeRewardHistory returns the per-epoch rewards of a stake account.
func (e *Explorer) StakeRewardHistory(ctx context.Context, stakeAddress string, opts ...ListOption) ([]json.RawMessage, error) {
	return e.listf(ctx, pagination.All, opts, "/accounts/%s/rewards", stakeAddress)
}

// StakeAmountHistory returns the active stake per epoch.
func (e *Explorer) StakeAmountHistory(ctx context.Context, stakeAddress string, opts ...ListOption) ([]json.RawMessage, error) {
	return e.listf(ctx, pagination.All, opts, "/accounts/%s/history", stakeAddress)
}

// StakeDelegation returns the delegation history.
func (e *Explorer) StakeDelegation(ctx context.Context, stakeAddress string, opts ...ListOption) ([]json.RawMessage, error) {
	return e.listf(ctx, pagination.All, opts, "/accounts/%s/delegations", stakeAddress)
}

// StakeRegistrationDeregistrations returns registration and deregistration
// certificates.
func (e *Explorer) StakeRegistrationDeregistrations(ctx context.Context, stakeAddress string, opts ...ListOption) ([]json.RawMessage, error) {
	return e.listf(ctx, pagination.All, opts, "/accounts/%s/registrations", stakeAddress)
}

// StakeWithdrawalHistory returns reward withdrawals.
func (e *Explorer) StakeWithdrawalHistory(ctx context.Context, stakeAddress string, opts ...ListOption) ([]json.RawMessage, error) {
	return e.listf(ctx, pagination.All, opts, "/accounts/%s/withdrawals", stakeAddress)
}

// StakeMIRHistory returns MIR certificates paid to the account.
func (e *Explorer) StakeMIRHistory(ctx context.Context, stakeAddress string, opts ...ListOption) ([]json.RawMessage, error) {
	return e.listf(ctx, pagination.All, opts, "/accounts/%s/mirs", stakeAddress)
}

// StakeAssociatedAddresses returns the payment addresses of the account.
func (e *Explorer) StakeAssociatedAddresses(ctx context.Context, stakeAddress string, opts ...ListOption) ([]json.RawMessage, error) {
	return e.listf(ctx, pagination.All, opts, "/accounts/%s/addresses", stakeAddress)
}

// StakeAssetsAssociatedAddresses returns the assets held on the account's
// addresses.
func (e *Explorer) StakeAssetsAssociatedAddresses(ctx context.Context, stakeAddress string, opts ...ListOption) ([]json.RawMessage, error) {
	return e.listf(ctx, pagination.All, opts, "/accounts/%s/addresses/assets", stakeAddress)
}

// Addresses.

// AddressInfo returns the balance and type of an address.
func (e *Explorer) AddressInfo(ctx context.Context, address string) (json.RawMessage, error) {
	return e.getf(ctx, "/addresses/%s", address)
}

// AddressDetails returns the totals sent and received by an address.
func (e *Explorer) AddressDetails(ctx context.Context, address string) (json.RawMessage, error) {
	return e.getf(ctx, "/addresses/%s/total", address)
}

// AddressUTxOs returns the unspent outputs of an address.
func (e *Explorer) AddressUTxOs(ctx context.Context, address string, opts ...ListOption) ([]json.RawMessage, error) {
	return e.listf(ctx, DefaultLimit, opts, "/addresses/%s/utxos", address)
}

// AddressTransactions returns the transactions touching an address.
func (e *Explorer) AddressTransactions(ctx context.Context, address string, opts ...ListOption) ([]json.RawMessage, error) {
	return e.listf(ctx, DefaultLimit, opts, "/addresses/%s/transactions", address)
}
