package explorer

import (
	"context"
	"encoding/json"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/Sternrassler/blockfrost-client/internal/testutil"
	"github.com/Sternrassler/blockfrost-client/pkg/client"
	"github.com/Sternrassler/blockfrost-client/pkg/network"
	"github.com/Sternrassler/blockfrost-client/pkg/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBase = "https://bf.test/api/v0"

// recordingFetcher answers "[]" to paged requests and "{}" otherwise.
type recordingFetcher struct {
	mu   sync.Mutex
	urls []string
}

func (f *recordingFetcher) FetchOne(_ context.Context, rawURL string, _ network.Auth) (json.RawMessage, error) {
	f.mu.Lock()
	f.urls = append(f.urls, rawURL)
	f.mu.Unlock()

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	if u.Query().Has("page") {
		return json.RawMessage(`[]`), nil
	}
	return json.RawMessage(`{}`), nil
}

func (f *recordingFetcher) paths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.urls))
	for i, raw := range f.urls {
		out[i] = raw[len(testBase):]
	}
	return out
}

func newRecordingExplorer(t *testing.T) (*Explorer, *recordingFetcher) {
	t.Helper()
	auth, err := network.Resolver{BaseURL: testBase}.Resolve("mainnet", "k", nil)
	require.NoError(t, err)

	f := &recordingFetcher{}
	e, err := New(auth, f)
	require.NoError(t, err)
	return e, f
}

func newMockExplorer(t *testing.T, mock *testutil.MockBlockfrost) *Explorer {
	t.Helper()
	cfg := client.DefaultConfig()
	cfg.Sleep = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }

	bf, err := client.New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { bf.Close() })

	e, err := New(mock.Auth("mainnet"), bf)
	require.NoError(t, err)
	return e
}

func TestNew_Validation(t *testing.T) {
	auth, err := network.Resolver{BaseURL: testBase}.Resolve("preview", "k", nil)
	require.NoError(t, err)

	_, err = New(network.Auth{}, &recordingFetcher{})
	assert.Error(t, err)

	_, err = New(auth, nil)
	assert.Error(t, err)

	e, err := New(auth, &recordingFetcher{}, WithEngineConfig(pagination.Config{PageSize: 50}))
	require.NoError(t, err)
	assert.Equal(t, auth, e.Auth())

	_, err = New(auth, &recordingFetcher{}, WithEngineConfig(pagination.Config{PageSize: 500}))
	assert.ErrorIs(t, err, pagination.ErrInvalidPageSize)
}

func TestSingleObjectPaths(t *testing.T) {
	tests := []struct {
		name string
		call func(context.Context, *Explorer) (json.RawMessage, error)
		want string
	}{
		{"StakeInformation", func(ctx context.Context, e *Explorer) (json.RawMessage, error) { return e.StakeInformation(ctx, "stake1u9") }, "/accounts/stake1u9"},
		{"AddressInfo", func(ctx context.Context, e *Explorer) (json.RawMessage, error) { return e.AddressInfo(ctx, "addr1q") }, "/addresses/addr1q"},
		{"AddressDetails", func(ctx context.Context, e *Explorer) (json.RawMessage, error) { return e.AddressDetails(ctx, "addr1q") }, "/addresses/addr1q/total"},
		{"NetworkInfo", func(ctx context.Context, e *Explorer) (json.RawMessage, error) { return e.NetworkInfo(ctx) }, "/network"},
		{"LatestEpoch", func(ctx context.Context, e *Explorer) (json.RawMessage, error) { return e.LatestEpoch(ctx) }, "/epochs/latest"},
		{"SpecificEpoch", func(ctx context.Context, e *Explorer) (json.RawMessage, error) { return e.SpecificEpoch(ctx, 225) }, "/epochs/225"},
		{"LatestEpochProtocolParameters", func(ctx context.Context, e *Explorer) (json.RawMessage, error) { return e.LatestEpochProtocolParameters(ctx) }, "/epochs/latest/parameters"},
		{"PoolInformation", func(ctx context.Context, e *Explorer) (json.RawMessage, error) { return e.PoolInformation(ctx, "pool1xyz") }, "/pools/pool1xyz"},
		{"SpecificAsset", func(ctx context.Context, e *Explorer) (json.RawMessage, error) { return e.SpecificAsset(ctx, "b0d07d45") }, "/assets/b0d07d45"},
		{"SpecificTx", func(ctx context.Context, e *Explorer) (json.RawMessage, error) { return e.SpecificTx(ctx, "6e5f") }, "/txs/6e5f"},
		{"TxUTxOs", func(ctx context.Context, e *Explorer) (json.RawMessage, error) { return e.TxUTxOs(ctx, "6e5f") }, "/txs/6e5f/utxos"},
		{"TxStakeAddressCert", func(ctx context.Context, e *Explorer) (json.RawMessage, error) { return e.TxStakeAddressCert(ctx, "6e5f") }, "/txs/6e5f/stakes"},
		{"TxDelegationCert", func(ctx context.Context, e *Explorer) (json.RawMessage, error) { return e.TxDelegationCert(ctx, "6e5f") }, "/txs/6e5f/delegations"},
		{"TxWithdrawals", func(ctx context.Context, e *Explorer) (json.RawMessage, error) { return e.TxWithdrawals(ctx, "6e5f") }, "/txs/6e5f/withdrawals"},
		{"TxMIRs", func(ctx context.Context, e *Explorer) (json.RawMessage, error) { return e.TxMIRs(ctx, "6e5f") }, "/txs/6e5f/mirs"},
		{"TxStakePoolUpdate", func(ctx context.Context, e *Explorer) (json.RawMessage, error) { return e.TxStakePoolUpdate(ctx, "6e5f") }, "/txs/6e5f/pool_updates"},
		{"TxStakePoolRetirementCert", func(ctx context.Context, e *Explorer) (json.RawMessage, error) { return e.TxStakePoolRetirementCert(ctx, "6e5f") }, "/txs/6e5f/pool_retires"},
		{"TxMetadata", func(ctx context.Context, e *Explorer) (json.RawMessage, error) { return e.TxMetadata(ctx, "6e5f") }, "/txs/6e5f/metadata"},
		{"TxCBORMetadata", func(ctx context.Context, e *Explorer) (json.RawMessage, error) { return e.TxCBORMetadata(ctx, "6e5f") }, "/txs/6e5f/metadata/cbor"},
		{"TxRedeemers", func(ctx context.Context, e *Explorer) (json.RawMessage, error) { return e.TxRedeemers(ctx, "6e5f") }, "/txs/6e5f/redeemers"},
		{"SpecificScript", func(ctx context.Context, e *Explorer) (json.RawMessage, error) { return e.SpecificScript(ctx, "e1457a") }, "/scripts/e1457a"},
		{"LatestBlock", func(ctx context.Context, e *Explorer) (json.RawMessage, error) { return e.LatestBlock(ctx) }, "/blocks/latest"},
		{"SpecificBlock", func(ctx context.Context, e *Explorer) (json.RawMessage, error) { return e.SpecificBlock(ctx, "4873401") }, "/blocks/4873401"},
		{"NextBlocks", func(ctx context.Context, e *Explorer) (json.RawMessage, error) { return e.NextBlocks(ctx, "4873401") }, "/blocks/4873401/next"},
		{"PreviousBlocks", func(ctx context.Context, e *Explorer) (json.RawMessage, error) { return e.PreviousBlocks(ctx, "4873401") }, "/blocks/4873401/previous"},
		{"SpecificBlockSlot", func(ctx context.Context, e *Explorer) (json.RawMessage, error) { return e.SpecificBlockSlot(ctx, 30895909) }, "/blocks/slot/30895909"},
		{"SpecificBlockEpochSlot", func(ctx context.Context, e *Explorer) (json.RawMessage, error) { return e.SpecificBlockEpochSlot(ctx, 219, 5) }, "/blocks/epoch/219/slot/5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, f := newRecordingExplorer(t)

			body, err := tt.call(context.Background(), e)
			require.NoError(t, err)
			assert.JSONEq(t, `{}`, string(body))
			assert.Equal(t, []string{tt.want}, f.paths())
		})
	}
}

func TestListPaths(t *testing.T) {
	tests := []struct {
		name string
		call func(context.Context, *Explorer) ([]json.RawMessage, error)
		want string
	}{
		{"StakeRewardHistory", func(ctx context.Context, e *Explorer) ([]json.RawMessage, error) { return e.StakeRewardHistory(ctx, "stake1u9") }, "/accounts/stake1u9/rewards"},
		{"StakeAmountHistory", func(ctx context.Context, e *Explorer) ([]json.RawMessage, error) { return e.StakeAmountHistory(ctx, "stake1u9") }, "/accounts/stake1u9/history"},
		{"StakeDelegation", func(ctx context.Context, e *Explorer) ([]json.RawMessage, error) { return e.StakeDelegation(ctx, "stake1u9") }, "/accounts/stake1u9/delegations"},
		{"StakeRegistrationDeregistrations", func(ctx context.Context, e *Explorer) ([]json.RawMessage, error) {
			return e.StakeRegistrationDeregistrations(ctx, "stake1u9")
		}, "/accounts/stake1u9/registrations"},
		{"StakeWithdrawalHistory", func(ctx context.Context, e *Explorer) ([]json.RawMessage, error) { return e.StakeWithdrawalHistory(ctx, "stake1u9") }, "/accounts/stake1u9/withdrawals"},
		{"StakeMIRHistory", func(ctx context.Context, e *Explorer) ([]json.RawMessage, error) { return e.StakeMIRHistory(ctx, "stake1u9") }, "/accounts/stake1u9/mirs"},
		{"StakeAssociatedAddresses", func(ctx context.Context, e *Explorer) ([]json.RawMessage, error) { return e.StakeAssociatedAddresses(ctx, "stake1u9") }, "/accounts/stake1u9/addresses"},
		{"StakeAssetsAssociatedAddresses", func(ctx context.Context, e *Explorer) ([]json.RawMessage, error) {
			return e.StakeAssetsAssociatedAddresses(ctx, "stake1u9")
		}, "/accounts/stake1u9/addresses/assets"},
		{"AddressUTxOs", func(ctx context.Context, e *Explorer) ([]json.RawMessage, error) { return e.AddressUTxOs(ctx, "addr1q") }, "/addresses/addr1q/utxos"},
		{"AddressTransactions", func(ctx context.Context, e *Explorer) ([]json.RawMessage, error) { return e.AddressTransactions(ctx, "addr1q") }, "/addresses/addr1q/transactions"},
		{"RegisteredPools", func(ctx context.Context, e *Explorer) ([]json.RawMessage, error) { return e.RegisteredPools(ctx) }, "/pools"},
		{"StakePoolHistory", func(ctx context.Context, e *Explorer) ([]json.RawMessage, error) { return e.StakePoolHistory(ctx, "pool1xyz") }, "/pools/pool1xyz/history"},
		{"Assets", func(ctx context.Context, e *Explorer) ([]json.RawMessage, error) { return e.Assets(ctx) }, "/assets"},
		{"AssetHistory", func(ctx context.Context, e *Explorer) ([]json.RawMessage, error) { return e.AssetHistory(ctx, "b0d07d45") }, "/assets/b0d07d45/history"},
		{"AssetTransactions", func(ctx context.Context, e *Explorer) ([]json.RawMessage, error) { return e.AssetTransactions(ctx, "b0d07d45") }, "/assets/b0d07d45/transactions"},
		{"AssetAddresses", func(ctx context.Context, e *Explorer) ([]json.RawMessage, error) { return e.AssetAddresses(ctx, "b0d07d45") }, "/assets/b0d07d45/addresses"},
		{"AssetsPolicy", func(ctx context.Context, e *Explorer) ([]json.RawMessage, error) { return e.AssetsPolicy(ctx, "476039a0") }, "/assets/policy/476039a0"},
		{"ScriptsList", func(ctx context.Context, e *Explorer) ([]json.RawMessage, error) { return e.ScriptsList(ctx) }, "/scripts"},
		{"RedeemSpecificScript", func(ctx context.Context, e *Explorer) ([]json.RawMessage, error) { return e.RedeemSpecificScript(ctx, "e1457a") }, "/scripts/e1457a/redeemers"},
		{"LatestBlockTxs", func(ctx context.Context, e *Explorer) ([]json.RawMessage, error) { return e.LatestBlockTxs(ctx) }, "/blocks/latest/txs"},
		{"BlockTransactions", func(ctx context.Context, e *Explorer) ([]json.RawMessage, error) { return e.BlockTransactions(ctx, "4873401") }, "/blocks/4873401/txs"},
		{"BlockAddresses", func(ctx context.Context, e *Explorer) ([]json.RawMessage, error) { return e.BlockAddresses(ctx, "4873401") }, "/blocks/4873401/addresses"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, f := newRecordingExplorer(t)

			records, err := tt.call(context.Background(), e)
			require.NoError(t, err)
			assert.Empty(t, records)
			assert.Equal(t, []string{tt.want + "?count=100&order=asc&page=1"}, f.paths())
		})
	}
}

func TestPathParametersAreEscaped(t *testing.T) {
	e, f := newRecordingExplorer(t)

	_, err := e.SpecificAsset(context.Background(), "policy/name?x=1")
	require.NoError(t, err)
	assert.Equal(t, []string{"/assets/policy%2Fname%3Fx=1"}, f.paths())
}

func TestEmptyParameter(t *testing.T) {
	e, f := newRecordingExplorer(t)
	ctx := context.Background()

	_, err := e.StakeInformation(ctx, "")
	assert.ErrorIs(t, err, ErrEmptyParameter)

	_, err = e.StakeRewardHistory(ctx, "  ")
	assert.ErrorIs(t, err, ErrEmptyParameter)

	assert.Empty(t, f.paths())
}

func TestListDefaults(t *testing.T) {
	mock := testutil.NewMockBlockfrost()
	defer mock.Close()
	mock.SetPaged("/accounts/stake1u9/rewards", testutil.NumberedRecords(250))
	mock.SetPaged("/assets", testutil.NumberedRecords(250))

	e := newMockExplorer(t, mock)
	ctx := context.Background()

	rewards, err := e.StakeRewardHistory(ctx, "stake1u9")
	require.NoError(t, err)
	assert.Len(t, rewards, 250, "stake lists collect everything by default")

	mock.Reset()
	assets, err := e.Assets(ctx)
	require.NoError(t, err)
	assert.Len(t, assets, 100, "other lists collect one page by default")
	assert.Equal(t, 1, mock.GetRequestCount())
}

func TestListOptions(t *testing.T) {
	mock := testutil.NewMockBlockfrost()
	defer mock.Close()
	mock.SetPaged("/pools", testutil.NumberedRecords(150))

	e := newMockExplorer(t, mock)
	ctx := context.Background()

	pools, err := e.RegisteredPools(ctx, WithOrder(pagination.Desc), WithLimit(3))
	require.NoError(t, err)
	require.Len(t, pools, 3)
	assert.JSONEq(t, `{"id":150}`, string(pools[0]))
	assert.JSONEq(t, `{"id":148}`, string(pools[2]))

	all, err := e.RegisteredPools(ctx, WithAll())
	require.NoError(t, err)
	assert.Len(t, all, 150)

	_, err = e.RegisteredPools(ctx, WithOrder("random"))
	assert.ErrorIs(t, err, pagination.ErrInvalidOrder)
}

func TestList_ReportsPages(t *testing.T) {
	mock := testutil.NewMockBlockfrost()
	defer mock.Close()
	mock.SetPaged("/epochs/420/stakes", testutil.NumberedRecords(250))

	e := newMockExplorer(t, mock)

	res, err := e.List(context.Background(), "/epochs/420/stakes", WithAll())
	require.NoError(t, err)
	assert.Len(t, res.Records, 250)
	assert.Equal(t, 3, res.PagesFetched)
}

func TestList_MissingResourceIsEmpty(t *testing.T) {
	mock := testutil.NewMockBlockfrost()
	defer mock.Close()

	e := newMockExplorer(t, mock)

	records, err := e.StakeDelegation(context.Background(), "stake1unknown")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestGet_RemoteError(t *testing.T) {
	mock := testutil.NewMockBlockfrost()
	defer mock.Close()

	e := newMockExplorer(t, mock)

	_, err := e.SpecificTx(context.Background(), "deadbeef")
	assert.True(t, client.IsNotFound(err))
}

func TestEpochsHistory(t *testing.T) {
	mock := testutil.NewMockBlockfrost()
	defer mock.Close()
	mock.SetJSON("/epochs/latest", map[string]int{"epoch": 10})
	mock.SetJSON("/epochs/3", map[string]int{"epoch": 3})
	mock.SetJSON("/epochs/7", map[string]int{"epoch": 7})

	e := newMockExplorer(t, mock)
	ctx := context.Background()

	history, err := e.EpochsHistory(ctx, []int{7, 3})
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.JSONEq(t, `{"epoch":7}`, string(history[0]))
	assert.JSONEq(t, `{"epoch":3}`, string(history[1]))
	assert.Equal(t, 3, mock.GetRequestCount())

	for _, bad := range [][]int{{0}, {-1}, {10}, {3, 11}} {
		mock.Reset()
		_, err := e.EpochsHistory(ctx, bad)
		assert.ErrorIs(t, err, ErrEpochOutOfRange, "epochs %v", bad)
		assert.Equal(t, 1, mock.GetRequestCount(), "only the latest epoch is fetched for %v", bad)
	}
}

func TestAssetsPolicyInfo(t *testing.T) {
	mock := testutil.NewMockBlockfrost()
	defer mock.Close()
	mock.SetPaged("/assets/policy/p1", []json.RawMessage{
		json.RawMessage(`{"asset":"p1aa","quantity":"1"}`),
		json.RawMessage(`{"asset":"p1bb","quantity":"1"}`),
	})
	mock.SetJSON("/assets/p1aa", map[string]any{
		"asset":            "p1aa",
		"policy_id":        "p1",
		"onchain_metadata": map[string]any{"name": "Alpha", "image": "ipfs://a", "asset": "ignored"},
	})
	mock.SetJSON("/assets/p1bb", map[string]any{
		"asset":            "p1bb",
		"policy_id":        "p1",
		"onchain_metadata": nil,
	})

	e := newMockExplorer(t, mock)

	infos, err := e.AssetsPolicyInfo(context.Background(), "p1")
	require.NoError(t, err)
	require.Len(t, infos, 2)

	assert.JSONEq(t, `{"asset":"p1aa","policy_id":"p1","name":"Alpha","image":"ipfs://a"}`, string(infos[0]))
	assert.JSONEq(t, `{"asset":"p1bb","policy_id":"p1","onchain_metadata":null}`, string(infos[1]))
}

func TestAssetsPolicyInfo_Limit(t *testing.T) {
	mock := testutil.NewMockBlockfrost()
	defer mock.Close()
	mock.SetPaged("/assets/policy/p1", []json.RawMessage{
		json.RawMessage(`{"asset":"p1aa","quantity":"1"}`),
		json.RawMessage(`{"asset":"p1bb","quantity":"1"}`),
	})
	mock.SetJSON("/assets/p1aa", map[string]any{"asset": "p1aa"})

	e := newMockExplorer(t, mock)

	infos, err := e.AssetsPolicyInfo(context.Background(), "p1", WithLimit(1))
	require.NoError(t, err)
	assert.Len(t, infos, 1)
}

func TestTypedHelpers(t *testing.T) {
	mock := testutil.NewMockBlockfrost()
	defer mock.Close()
	mock.SetJSON("/epochs/latest", map[string]any{"epoch": 425, "block_count": 21298})
	mock.SetJSON("/blocks/latest", map[string]any{"hash": "4ea1ba29", "epoch": 425})
	mock.SetJSON("/pools/pool1xyz", map[string]any{"pool_id": "pool1xyz", "hex": "0f29"})
	mock.SetJSON("/pools/pool1xyz/relays", []map[string]any{{"port": 3001}, {"port": 6000}})
	mock.SetJSON("/epochs/latest/parameters", map[string]any{"epoch": 425, "min_fee_a": 44})

	e := newMockExplorer(t, mock)
	ctx := context.Background()

	epoch, err := e.LatestEpochInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, 425, epoch.Epoch)

	block, err := e.LatestBlockInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, "4ea1ba29", block.Hash)

	pool, err := e.PoolDetails(ctx, "pool1xyz")
	require.NoError(t, err)
	assert.Equal(t, "pool1xyz", pool.PoolID)

	relays, err := e.PoolRelays(ctx, "pool1xyz")
	require.NoError(t, err)
	assert.Len(t, relays, 2)

	params, err := e.ProtocolParameters(ctx)
	require.NoError(t, err)
	assert.Equal(t, 425, params.Epoch)

	_, err = e.NetworkSummary(ctx)
	assert.True(t, client.IsNotFound(err))
}

func TestLiftOnchainMetadata_NotAnObject(t *testing.T) {
	_, err := liftOnchainMetadata(json.RawMessage(`["x"]`))
	assert.Error(t, err)
}

func TestStakeRewardsCorr(t *testing.T) {
	mock := testutil.NewMockBlockfrost()
	defer mock.Close()

	mock.SetPaged("/accounts/stake1u9/rewards", []json.RawMessage{
		json.RawMessage(`{"epoch":3,"amount":"100","pool_id":"pool1a"}`),
		json.RawMessage(`{"epoch":4,"amount":"120","pool_id":"pool1a"}`),
	})
	mock.SetPaged("/accounts/stake1u9/history", []json.RawMessage{
		json.RawMessage(`{"active_epoch":3,"amount":"5000","pool_id":"pool1a"}`),
	})
	mock.SetPaged("/pools/pool1a/history", []json.RawMessage{
		json.RawMessage(`{"epoch":4,"blocks":2,"active_stake":"9"}`),
		json.RawMessage(`{"epoch":3,"blocks":1,"active_stake":"8"}`),
	})
	mock.SetJSON("/epochs/latest", map[string]int{"epoch": 10})
	mock.SetResponse("/epochs/3", testutil.NewOKResponse(`{"epoch":3,"fees":"11"}`))
	mock.SetResponse("/epochs/4", testutil.NewOKResponse(`{"epoch":4,"fees":"12"}`))

	e := newMockExplorer(t, mock)
	records, err := e.StakeRewardsCorr(context.Background(), "stake1u9")
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t,
		`{"epoch":3,"rewards_amount":"100","stake_amount":"5000","pool_id":"pool1a","epoch_fees":"11","stake_pool_blocks":1,"stake_pool_active_stake":"8"}`,
		string(records[0]))
	assert.Equal(t,
		`{"epoch":4,"rewards_amount":"120","stake_amount":null,"pool_id":null,"epoch_fees":"12","stake_pool_blocks":2,"stake_pool_active_stake":"9"}`,
		string(records[1]))
	assert.Equal(t, 6, mock.GetRequestCount())
}

func TestStakeRewardsCorr_NoRewards(t *testing.T) {
	mock := testutil.NewMockBlockfrost()
	defer mock.Close()

	records, err := newMockExplorer(t, mock).StakeRewardsCorr(context.Background(), "stake1new")
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Equal(t, 1, mock.GetRequestCount())
}

func TestStakeRewardsCorr_CurrentEpochRejected(t *testing.T) {
	mock := testutil.NewMockBlockfrost()
	defer mock.Close()
	mock.SetPaged("/accounts/stake1u9/rewards", []json.RawMessage{
		json.RawMessage(`{"epoch":10,"amount":"1","pool_id":"pool1a"}`),
	})
	mock.SetJSON("/epochs/latest", map[string]int{"epoch": 10})

	_, err := newMockExplorer(t, mock).StakeRewardsCorr(context.Background(), "stake1u9")
	assert.ErrorIs(t, err, ErrEpochOutOfRange)
}
