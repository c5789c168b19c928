package explorer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"

	"github.com/Sternrassler/blockfrost-client/pkg/table"
)

var jsonNull = json.RawMessage("null")

// StakeRewardsCorr lines up every reward of a stake account with what may
// explain it: the account's active stake for that epoch, the epoch itself
// and the history of the pool named by the first reward.
//
// Each record starts with epoch and rewards_amount, then the stake history
// fields (amount renamed stake_amount), the epoch fields prefixed epoch_ and
// the pool history fields prefixed stake_pool_. A field missing for an epoch
// is null. An account without rewards yields an empty result.
func (e *Explorer) StakeRewardsCorr(ctx context.Context, stakeAddress string) ([]json.RawMessage, error) {
	rewards, err := e.StakeRewardHistory(ctx, stakeAddress, WithAll())
	if err != nil {
		return nil, fmt.Errorf("reward history: %w", err)
	}
	if len(rewards) == 0 {
		return []json.RawMessage{}, nil
	}

	type reward struct {
		Epoch  int             `json:"epoch"`
		Amount json.RawMessage `json:"amount"`
		PoolID string          `json:"pool_id"`
	}
	parsed := make([]reward, len(rewards))
	var epochs []int
	for i, raw := range rewards {
		if err := json.Unmarshal(raw, &parsed[i]); err != nil {
			return nil, fmt.Errorf("reward %d: %w", i, err)
		}
		if !slices.Contains(epochs, parsed[i].Epoch) {
			epochs = append(epochs, parsed[i].Epoch)
		}
	}

	amounts, err := e.StakeAmountHistory(ctx, stakeAddress, WithAll())
	if err != nil {
		return nil, fmt.Errorf("stake history: %w", err)
	}
	stake, err := joinByEpoch(amounts, "active_epoch", "", map[string]string{"amount": "stake_amount"})
	if err != nil {
		return nil, fmt.Errorf("stake history: %w", err)
	}

	epochInfo, err := e.EpochsHistory(ctx, epochs)
	if err != nil {
		return nil, err
	}
	epochCols, err := joinByEpoch(epochInfo, "epoch", "epoch_", nil)
	if err != nil {
		return nil, fmt.Errorf("epochs: %w", err)
	}

	poolID := parsed[0].PoolID
	poolHistory, err := e.StakePoolHistory(ctx, poolID, WithAll())
	if err != nil {
		return nil, fmt.Errorf("pool %s history: %w", poolID, err)
	}
	pool, err := joinByEpoch(poolHistory, "epoch", "stake_pool_", nil)
	if err != nil {
		return nil, fmt.Errorf("pool %s history: %w", poolID, err)
	}

	out := make([]json.RawMessage, 0, len(parsed))
	for _, r := range parsed {
		var row orderedObject
		row.set("epoch", json.RawMessage(strconv.Itoa(r.Epoch)))
		row.set("rewards_amount", r.Amount)
		stake.fill(&row, r.Epoch)
		epochCols.fill(&row, r.Epoch)
		pool.fill(&row, r.Epoch)

		body, err := row.MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("epoch %d: %w", r.Epoch, err)
		}
		out = append(out, body)
	}

	e.logger.Debug().
		Str("pool", poolID).
		Int("epochs", len(epochs)).
		Int("records", len(out)).
		Msg("Reward correlation built")
	return out, nil
}

// epochColumns is one source keyed by epoch with its columns renamed.
type epochColumns struct {
	columns []string
	rows    map[int]map[string]json.RawMessage
}

// joinByEpoch indexes records by the integer field key. Other fields are
// renamed through rename, else prefixed. The first record of an epoch wins.
func joinByEpoch(records []json.RawMessage, key, prefix string, rename map[string]string) (epochColumns, error) {
	j := epochColumns{rows: make(map[int]map[string]json.RawMessage, len(records))}
	for i, rec := range records {
		keys, fields, err := table.ObjectFields(rec)
		if err != nil {
			return epochColumns{}, fmt.Errorf("record %d: %w", i, err)
		}
		var epoch int
		if err := json.Unmarshal(fields[key], &epoch); err != nil {
			return epochColumns{}, fmt.Errorf("record %d: field %s: %w", i, key, err)
		}
		if _, dup := j.rows[epoch]; dup {
			continue
		}

		row := make(map[string]json.RawMessage, len(keys))
		for _, k := range keys {
			if k == key {
				continue
			}
			name, ok := rename[k]
			if !ok {
				name = prefix + k
			}
			if !slices.Contains(j.columns, name) {
				j.columns = append(j.columns, name)
			}
			row[name] = fields[k]
		}
		j.rows[epoch] = row
	}
	return j, nil
}

func (j epochColumns) fill(o *orderedObject, epoch int) {
	row := j.rows[epoch]
	for _, c := range j.columns {
		v, ok := row[c]
		if !ok {
			v = jsonNull
		}
		o.set(c, v)
	}
}

// orderedObject is a JSON object that keeps insertion order. The first value
// set for a key is kept.
type orderedObject struct {
	keys   []string
	values map[string]json.RawMessage
}

func (o *orderedObject) set(key string, value json.RawMessage) {
	if o.values == nil {
		o.values = make(map[string]json.RawMessage)
	}
	if _, ok := o.values[key]; ok {
		return
	}
	if len(value) == 0 {
		value = jsonNull
	}
	o.keys = append(o.keys, key)
	o.values[key] = value
}

func (o *orderedObject) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(o.values[k])
	}
	buf.WriteByte('}')

	var out bytes.Buffer
	if err := json.Compact(&out, buf.Bytes()); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
