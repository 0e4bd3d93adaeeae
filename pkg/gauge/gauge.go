package gauge

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// SecondsPerDay converts bonding durations into days.
const SecondsPerDay = 86400

// PoolIDNaN is returned by PoolID when a denom carries no pool number.
const PoolIDNaN = "NaN"

var (
	// ErrMissingID is returned when a record has no usable id.
	ErrMissingID = errors.New("gauge id missing")

	poolDigits = regexp.MustCompile(`[0-9]+`)
)

// Record is a gauge exactly as the node returned it: a decoded JSON object whose numbers are kept
// as json.Number so that diffs compare the upstream text, not a float approximation.
type Record map[string]any

// UnmarshalJSON decodes the object with UseNumber so nested numbers survive a round trip unchanged.
func (r *Record) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return err
	}
	*r = m
	return nil
}

// ID returns the gauge identifier as a string.
func (r Record) ID() (string, bool) {
	id, ok := stringField(r, "id")
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

// DistributeDenom returns distribute_to.denom without decoding the rest of the record.
func (r Record) DistributeDenom() string {
	dist, ok := objectField(r, "distribute_to")
	if !ok {
		return ""
	}
	denom, _ := stringField(dist, "denom")
	return denom
}

// Coin is a reward amount. Amount is kept as the decimal string the chain reports.
type Coin struct {
	Denom  string `json:"denom"`
	Amount string `json:"amount"`
}

// DistributeTo describes which locks qualify for a gauge's rewards.
type DistributeTo struct {
	LockQueryType string `json:"lock_query_type"`
	Denom         string `json:"denom"`
	Duration      string `json:"duration"`
}

// Gauge is the typed view of a Record used by the classifier.
type Gauge struct {
	ID                string       `json:"id"`
	IsPerpetual       bool         `json:"is_perpetual"`
	StartTime         time.Time    `json:"start_time"`
	NumEpochsPaidOver int64        `json:"num_epochs_paid_over"`
	FilledEpochs      int64        `json:"filled_epochs"`
	DistributeTo      DistributeTo `json:"distribute_to"`
	Coins             []Coin       `json:"coins"`
	DistributedCoins  []Coin       `json:"distributed_coins"`
}

// Decode builds a Gauge from a raw record. Missing or malformed required fields are reported as an
// error so the caller can skip the gauge instead of acting on partial data.
func Decode(r Record) (Gauge, error) {
	var g Gauge

	id, ok := r.ID()
	if !ok {
		return g, ErrMissingID
	}
	g.ID = id

	perpetual, err := boolField(r, "is_perpetual")
	if err != nil {
		return g, err
	}
	g.IsPerpetual = perpetual

	num, ok, err := intField(r, "num_epochs_paid_over")
	if err != nil {
		return g, err
	}
	if !ok {
		return g, fmt.Errorf("field %q missing", "num_epochs_paid_over")
	}
	g.NumEpochsPaidOver = num

	filled, ok, err := intField(r, "filled_epochs")
	if err != nil {
		return g, err
	}
	if !ok {
		return g, fmt.Errorf("field %q missing", "filled_epochs")
	}
	g.FilledEpochs = filled

	if st, ok := stringField(r, "start_time"); ok && st != "" {
		t, err := time.Parse(time.RFC3339Nano, st)
		if err != nil {
			return g, fmt.Errorf("field %q: %w", "start_time", err)
		}
		g.StartTime = t
	}

	dist, ok := objectField(r, "distribute_to")
	if !ok {
		return g, fmt.Errorf("field %q missing", "distribute_to")
	}
	g.DistributeTo.Denom, _ = stringField(dist, "denom")
	g.DistributeTo.Duration, _ = stringField(dist, "duration")
	g.DistributeTo.LockQueryType, _ = stringField(dist, "lock_query_type")

	if g.Coins, err = decodeCoins(r, "coins"); err != nil {
		return g, err
	}
	if g.DistributedCoins, err = decodeCoins(r, "distributed_coins"); err != nil {
		return g, err
	}

	return g, nil
}

func decodeCoins(r Record, key string) ([]Coin, error) {
	raw, err := sliceField(r, key)
	if err != nil {
		return nil, err
	}
	coins := make([]Coin, 0, len(raw))
	for i, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("field %q[%d]: expected object, got %T", key, i, item)
		}
		denom, _ := stringField(m, "denom")
		amount, _ := stringField(m, "amount")
		coins = append(coins, Coin{Denom: denom, Amount: amount})
	}
	return coins, nil
}

// RemainingEpochs is the number of distribution epochs still to be paid. A negative value means
// filled_epochs overtook num_epochs_paid_over upstream and is treated as a data anomaly by callers.
func (g Gauge) RemainingEpochs() int64 {
	return g.NumEpochsPaidOver - g.FilledEpochs
}

// BondDurationDays converts distribute_to.duration (e.g. "1209600s") into days.
func (g Gauge) BondDurationDays() (float64, error) {
	return DurationDays(g.DistributeTo.Duration)
}

// PoolID extracts the pool number referenced by distribute_to.denom.
func (g Gauge) PoolID() string {
	return PoolID(g.DistributeTo.Denom)
}

// FirstCoinDenom returns the denom of the first reward coin, or "" when the gauge has no coins.
func (g Gauge) FirstCoinDenom() string {
	if len(g.Coins) == 0 {
		return ""
	}
	return g.Coins[0].Denom
}

// IsSuperfluid reports whether the gauge rewards superfluid-bonded positions.
func (g Gauge) IsSuperfluid(marker string) bool {
	return IsSuperfluidDenom(g.DistributeTo.Denom, marker)
}

// IsSuperfluidDenom reports whether a distribute_to denom carries the superfluid marker.
func IsSuperfluidDenom(denom, marker string) bool {
	return marker != "" && strings.Contains(denom, marker)
}

// DurationDays converts a protobuf JSON duration into days. The value is a count of seconds with
// an optional "s" suffix ("1209600s", "604800", "0.5s").
func DurationDays(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("duration missing")
	}
	secs, err := strconv.ParseFloat(strings.TrimSuffix(s, "s"), 64)
	if err != nil || math.IsNaN(secs) || math.IsInf(secs, 0) || secs < 0 {
		return 0, fmt.Errorf("parse duration %q: not a number of seconds", s)
	}
	return secs / SecondsPerDay, nil
}

// PoolID returns the first run of decimal digits in denom ("cl/pool/317/superbonding" -> "317"),
// or PoolIDNaN when the denom contains none.
func PoolID(denom string) string {
	id := poolDigits.FindString(denom)
	if id == "" {
		return PoolIDNaN
	}
	return id
}
