package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/canopy-network/gaugewatch/pkg/classify"
	"github.com/canopy-network/gaugewatch/pkg/gauge"
)

func sampleEvent() classify.Event {
	starts := int64(2)
	return classify.Event{
		Type:             classify.NewSuperfluidGauge,
		PoolID:           "317",
		BondDurationDays: 14,
		RemainingDays:    1,
		StartsInDays:     &starts,
		Gauge: gauge.Gauge{
			ID:           "42",
			DistributeTo: gauge.DistributeTo{Denom: "cl/pool/317/superbonding", Duration: "1209600s"},
		},
	}
}

func TestEventEntryRoundTrip(t *testing.T) {
	values, err := EventEntry("run-1", sampleEvent())
	require.NoError(t, err)

	assert.Equal(t, "NEW_SUPERFLUID_GAUGE", values["type"])
	assert.Equal(t, "317", values["poolId"])
	assert.Equal(t, "42", values["gaugeId"])

	runID, ev, err := DecodeEntry(values)
	require.NoError(t, err)
	assert.Equal(t, "run-1", runID)
	assert.Equal(t, classify.NewSuperfluidGauge, ev.Type)
	assert.Equal(t, "cl/pool/317/superbonding", ev.Gauge.DistributeTo.Denom)
	require.NotNil(t, ev.StartsInDays)
	assert.EqualValues(t, 2, *ev.StartsInDays)
}

func TestDecodeEntryRejectsMissingPayload(t *testing.T) {
	_, _, err := DecodeEntry(map[string]any{"type": "NEAR_EXPIRATION"})
	require.Error(t, err)

	_, _, err = DecodeEntry(map[string]any{"payload": "{broken"})
	require.Error(t, err)
}

// TestPublishAndTail needs a live Redis; set REDIS_ADDR to run it.
func TestPublishAndTail(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	c, err := NewClient(ctx, Options{Addr: addr}, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer c.Close()

	stream := "gaugewatch:test:" + time.Now().Format("150405.000000")
	require.Equal(t, 2, c.PublishEvents(ctx, stream, "run-1", []classify.Event{sampleEvent(), sampleEvent()}))

	var seen []string
	errStop := context.Canceled
	err = c.Tail(ctx, TailConfig{Stream: stream, LastID: "0", Block: time.Second}, func(_ context.Context, id, runID string, ev classify.Event) error {
		seen = append(seen, id)
		assert.Equal(t, "run-1", runID)
		if len(seen) == 2 {
			return errStop
		}
		return nil
	})
	require.ErrorIs(t, err, errStop)
	assert.Len(t, seen, 2)
}
