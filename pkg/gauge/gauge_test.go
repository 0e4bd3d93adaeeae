package gauge_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canopy-network/gaugewatch/pkg/gauge"
)

const lcdGauge = `{
  "id": "2",
  "is_perpetual": false,
  "distribute_to": {
    "lock_query_type": "ByDuration",
    "denom": "gamm/pool/317",
    "duration": "604800s",
    "timestamp": "1970-01-01T00:00:00Z"
  },
  "coins": [{"denom": "uosmo", "amount": "1000000"}],
  "start_time": "2024-03-01T17:00:00Z",
  "num_epochs_paid_over": "7",
  "filled_epochs": "0",
  "distributed_coins": []
}`

func decodeRecord(t *testing.T, s string) gauge.Record {
	t.Helper()
	var r gauge.Record
	require.NoError(t, json.Unmarshal([]byte(s), &r))
	return r
}

func TestRecordKeepsNumbersExact(t *testing.T) {
	r := decodeRecord(t, `{"id": 12, "num_epochs_paid_over": 14, "nested": {"amount": 123456789012345678}}`)

	id, ok := r.ID()
	require.True(t, ok)
	assert.Equal(t, "12", id)
	assert.Equal(t, json.Number("14"), r["num_epochs_paid_over"])
	assert.Equal(t, json.Number("123456789012345678"), r["nested"].(map[string]any)["amount"])
}

func TestDecode(t *testing.T) {
	g, err := gauge.Decode(decodeRecord(t, lcdGauge))
	require.NoError(t, err)

	assert.Equal(t, "2", g.ID)
	assert.False(t, g.IsPerpetual)
	assert.Equal(t, int64(7), g.NumEpochsPaidOver)
	assert.Equal(t, int64(0), g.FilledEpochs)
	assert.Equal(t, time.Date(2024, 3, 1, 17, 0, 0, 0, time.UTC), g.StartTime)
	assert.Equal(t, "gamm/pool/317", g.DistributeTo.Denom)
	assert.Equal(t, "ByDuration", g.DistributeTo.LockQueryType)
	assert.Equal(t, []gauge.Coin{{Denom: "uosmo", Amount: "1000000"}}, g.Coins)
	assert.Empty(t, g.DistributedCoins)

	assert.Equal(t, int64(7), g.RemainingEpochs())
	assert.Equal(t, "317", g.PoolID())
	assert.Equal(t, "uosmo", g.FirstCoinDenom())

	days, err := g.BondDurationDays()
	require.NoError(t, err)
	assert.Equal(t, float64(7), days)
}

func TestDecodeRejectsMalformed(t *testing.T) {
	cases := map[string]string{
		"missing id":            `{"num_epochs_paid_over": "1", "filled_epochs": "0", "distribute_to": {}}`,
		"missing filled":        `{"id": "1", "num_epochs_paid_over": "1", "distribute_to": {}}`,
		"bad epochs":            `{"id": "1", "num_epochs_paid_over": "x", "filled_epochs": "0", "distribute_to": {}}`,
		"missing distribute_to": `{"id": "1", "num_epochs_paid_over": "1", "filled_epochs": "0"}`,
		"coins not array":       `{"id": "1", "num_epochs_paid_over": "1", "filled_epochs": "0", "distribute_to": {}, "coins": "uosmo"}`,
		"bad start time":        `{"id": "1", "num_epochs_paid_over": "1", "filled_epochs": "0", "distribute_to": {}, "start_time": "yesterday"}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := gauge.Decode(decodeRecord(t, raw))
			require.Error(t, err)
		})
	}
}

func TestPoolID(t *testing.T) {
	assert.Equal(t, "317", gauge.PoolID("cl/pool/317/superbonding"))
	assert.Equal(t, "1", gauge.PoolID("gamm/pool/1"))
	assert.Equal(t, "42", gauge.PoolID("no-lock/i/42"))
	assert.Equal(t, gauge.PoolIDNaN, gauge.PoolID("uosmo"))
	assert.Equal(t, gauge.PoolIDNaN, gauge.PoolID(""))
}

func TestDurationDays(t *testing.T) {
	days, err := gauge.DurationDays("1209600s")
	require.NoError(t, err)
	assert.Equal(t, float64(14), days)

	days, err = gauge.DurationDays("90000s")
	require.NoError(t, err)
	assert.InDelta(t, 1.0416, days, 0.001)

	days, err = gauge.DurationDays("604800")
	require.NoError(t, err)
	assert.Equal(t, float64(7), days)

	days, err = gauge.DurationDays("43200.5s")
	require.NoError(t, err)
	assert.InDelta(t, 0.5, days, 0.0001)

	for _, bad := range []string{"", "fortnight", "-86400s", "s", "336h"} {
		_, err = gauge.DurationDays(bad)
		require.Error(t, err, bad)
	}
}

func TestRecordDistributeDenom(t *testing.T) {
	r := decodeRecord(t, `{"id": "9", "distribute_to": {"denom": "cl/pool/317/superbonding"}}`)
	assert.Equal(t, "cl/pool/317/superbonding", r.DistributeDenom())
	assert.True(t, gauge.IsSuperfluidDenom(r.DistributeDenom(), "superbonding"))

	assert.Empty(t, gauge.Record{"id": "9"}.DistributeDenom())
	assert.Empty(t, gauge.Record{"distribute_to": "gamm/pool/1"}.DistributeDenom())
}

func TestIsSuperfluid(t *testing.T) {
	g := gauge.Gauge{DistributeTo: gauge.DistributeTo{Denom: "gamm/pool/1/superbonding"}}
	assert.True(t, g.IsSuperfluid("superbonding"))
	assert.False(t, g.IsSuperfluid(""))
	g.DistributeTo.Denom = "gamm/pool/1"
	assert.False(t, g.IsSuperfluid("superbonding"))
}
