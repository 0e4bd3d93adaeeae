package classify

import (
	"fmt"

	"github.com/canopy-network/gaugewatch/pkg/gauge"
)

// EventType names a notable change.
type EventType string

const (
	NewExternalGauge   EventType = "NEW_EXTERNAL_GAUGE"
	NewInternalGauge   EventType = "NEW_INTERNAL_GAUGE"
	NewSuperfluidGauge EventType = "NEW_SUPERFLUID_GAUGE"
	NearExpiration     EventType = "NEAR_EXPIRATION"
)

// Event is a notable change produced by one classification pass.
type Event struct {
	Type             EventType   `json:"type"`
	PoolID           string      `json:"poolId"`
	BondDurationDays float64     `json:"bondDurationDays"`
	RemainingDays    int64       `json:"remainingDays"`
	StartsInDays     *int64      `json:"startsInDays,omitempty"`
	Gauge            gauge.Gauge `json:"gauge"`
}

// GaugeError records why a gauge contributed no event.
type GaugeError struct {
	GaugeID string `json:"gaugeId"`
	Err     error  `json:"-"`
	Message string `json:"error"`
}

func (e GaugeError) Error() string {
	return fmt.Sprintf("gauge %s: %v", e.GaugeID, e.Err)
}

func (e GaugeError) Unwrap() error { return e.Err }

// Outcome is the result of classifying one set of deltas.
type Outcome struct {
	Events   []Event      `json:"events"`
	Failures []GaugeError `json:"failures"`
}

// Options holds the chain-specific constants the rules depend on.
type Options struct {
	// NativeDenom is the staking token; perpetual gauges paying it are protocol incentives.
	NativeDenom string
	// SuperfluidMarker appears in distribute_to.denom for superfluid-bonded locks.
	SuperfluidMarker string
}

// DefaultOptions returns the Osmosis constants.
func DefaultOptions() Options {
	return Options{
		NativeDenom:      "uosmo",
		SuperfluidMarker: "superbonding",
	}
}
