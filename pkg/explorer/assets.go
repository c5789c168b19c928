package explorer

import (
	"context"
	"encoding/json"
	"fmt"
)

// Assets returns the list of native assets.
func (e *Explorer) Assets(ctx context.Context, opts ...ListOption) ([]json.RawMessage, error) {
	return e.listf(ctx, DefaultLimit, opts, "/assets")
}

// SpecificAsset returns one asset by its concatenated policy id and name.
func (e *Explorer) SpecificAsset(ctx context.Context, asset string) (json.RawMessage, error) {
	return e.getf(ctx, "/assets/%s", asset)
}

// AssetHistory returns the mint and burn history of an asset.
func (e *Explorer) AssetHistory(ctx context.Context, asset string, opts ...ListOption) ([]json.RawMessage, error) {
	return e.listf(ctx, DefaultLimit, opts, "/assets/%s/history", asset)
}

// AssetTransactions returns the transactions involving an asset.
func (e *Explorer) AssetTransactions(ctx context.Context, asset string, opts ...ListOption) ([]json.RawMessage, error) {
	return e.listf(ctx, DefaultLimit, opts, "/assets/%s/transactions", asset)
}

// AssetAddresses returns the addresses holding an asset.
func (e *Explorer) AssetAddresses(ctx context.Context, asset string, opts ...ListOption) ([]json.RawMessage, error) {
	return e.listf(ctx, DefaultLimit, opts, "/assets/%s/addresses", asset)
}

// AssetsPolicy returns the assets minted under a policy.
func (e *Explorer) AssetsPolicy(ctx context.Context, policyID string, opts ...ListOption) ([]json.RawMessage, error) {
	return e.listf(ctx, DefaultLimit, opts, "/assets/policy/%s", policyID)
}

// AssetsPolicyInfo lists the assets of a policy and fetches each one. The
// on-chain metadata of every asset is lifted to the top level of its record.
// Unless limited, every asset of the policy is fetched.
func (e *Explorer) AssetsPolicyInfo(ctx context.Context, policyID string, opts ...ListOption) ([]json.RawMessage, error) {
	opts = append([]ListOption{WithAll()}, opts...)
	minted, err := e.AssetsPolicy(ctx, policyID, opts...)
	if err != nil {
		return nil, err
	}

	infos := make([]json.RawMessage, 0, len(minted))
	for _, rec := range minted {
		var entry struct {
			Asset string `json:"asset"`
		}
		if err := json.Unmarshal(rec, &entry); err != nil {
			return nil, fmt.Errorf("policy %s: decode asset entry: %w", policyID, err)
		}

		body, err := e.SpecificAsset(ctx, entry.Asset)
		if err != nil {
			return nil, fmt.Errorf("asset %s: %w", entry.Asset, err)
		}

		flat, err := liftOnchainMetadata(body)
		if err != nil {
			return nil, fmt.Errorf("asset %s: %w", entry.Asset, err)
		}
		infos = append(infos, flat)
	}

	e.logger.Debug().
		Str("policy", policyID).
		Int("assets", len(infos)).
		Msg("Policy assets fetched")
	return infos, nil
}

// liftOnchainMetadata copies the keys of the onchain_metadata object into the
// asset record. Keys already present on the record win.
func liftOnchainMetadata(body json.RawMessage) (json.RawMessage, error) {
	var record map[string]json.RawMessage
	if err := json.Unmarshal(body, &record); err != nil {
		return nil, fmt.Errorf("decode asset: %w", err)
	}

	raw, ok := record["onchain_metadata"]
	if !ok {
		return body, nil
	}
	var metadata map[string]json.RawMessage
	if err := json.Unmarshal(raw, &metadata); err != nil || metadata == nil {
		// null or a non-object: leave the record untouched.
		return body, nil
	}

	delete(record, "onchain_metadata")
	for k, v := range metadata {
		if _, exists := record[k]; !exists {
			record[k] = v
		}
	}
	flat, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("encode asset: %w", err)
	}
	return flat, nil
}

// Scripts.

// ScriptsList returns the script hashes seen on chain.
func (e *Explorer) ScriptsList(ctx context.Context, opts ...ListOption) ([]json.RawMessage, error) {
	return e.listf(ctx, DefaultLimit, opts, "/scripts")
}

// SpecificScript returns one script.
func (e *Explorer) SpecificScript(ctx context.Context, scriptHash string) (json.RawMessage, error) {
	return e.getf(ctx, "/scripts/%s", scriptHash)
}

// RedeemSpecificScript returns the redeemers of a script.
func (e *Explorer) RedeemSpecificScript(ctx context.Context, scriptHash string, opts ...ListOption) ([]json.RawMessage, error) {
	return e.listf(ctx, DefaultLimit, opts, "/scripts/%s/redeemers", scriptHash)
}
