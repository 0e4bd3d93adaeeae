// Package classify turns gauge deltas into notable events.
package classify

import (
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/canopy-network/gaugewatch/pkg/delta"
	"github.com/canopy-network/gaugewatch/pkg/gauge"
)

const (
	fieldID           = "id"
	fieldFilledEpochs = "filled_epochs"
)

// Classifier applies the notification rules to one run's deltas.
type Classifier struct {
	opts   Options
	logger *zap.Logger
	now    func() time.Time
}

// New creates a Classifier.
func New(opts Options, logger *zap.Logger) *Classifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Classifier{opts: opts, logger: logger, now: time.Now}
}

// WithClock replaces the time source used for StartsInDays.
func (c *Classifier) WithClock(now func() time.Time) *Classifier {
	c.now = now
	return c
}

// Classify walks the deltas in gauge id order and emits events. The near-expiration and new-gauge
// rules are evaluated independently, so one gauge can produce both. A gauge whose fields cannot be
// read contributes no event and is reported in Outcome.Failures; the rest of the batch continues.
func (c *Classifier) Classify(deltas delta.Deltas, current gauge.Indexed) Outcome {
	out := Outcome{Events: []Event{}, Failures: []GaugeError{}}

	for _, id := range deltas.Keys() {
		events, err := c.classifyGauge(id, deltas[id], current)
		if err != nil {
			c.logger.Warn("Skipping gauge, classification failed",
				zap.String("gaugeId", id),
				zap.Error(err))
			out.Failures = append(out.Failures, GaugeError{GaugeID: id, Err: err, Message: err.Error()})
			continue
		}
		out.Events = append(out.Events, events...)
	}

	return out
}

func (c *Classifier) classifyGauge(id string, ch *delta.Change, current gauge.Indexed) (events []Event, err error) {
	defer func() {
		if r := recover(); r != nil {
			events, err = nil, fmt.Errorf("classifier panic: %v", r)
		}
	}()

	touchedFilled := ch.Has(fieldFilledEpochs)
	isNew := ch.Has(fieldID)
	if !touchedFilled && !isNew {
		return nil, nil
	}

	rec, ok := current[id]
	if !ok {
		return nil, fmt.Errorf("not present in current snapshot")
	}
	g, err := gauge.Decode(rec)
	if err != nil {
		return nil, err
	}

	if touchedFilled && !g.IsPerpetual {
		ev, fired, err := c.nearExpiration(g)
		if err != nil {
			return nil, err
		}
		if fired {
			events = append(events, ev)
		}
	}

	if isNew {
		ev, fired, err := c.newGauge(g, current)
		if err != nil {
			return nil, err
		}
		if fired {
			events = append(events, ev)
		}
	}

	return events, nil
}

// nearExpiration fires on the epoch where the remaining distribution days equal the bonding
// duration: a lock started now finishes unbonding exactly when rewards run out.
func (c *Classifier) nearExpiration(g gauge.Gauge) (Event, bool, error) {
	bondDays, err := g.BondDurationDays()
	if err != nil {
		return Event{}, false, err
	}
	remaining := g.RemainingEpochs()
	if bondDays != float64(remaining) {
		return Event{}, false, nil
	}
	return c.event(NearExpiration, g, bondDays, remaining), true, nil
}

func (c *Classifier) newGauge(g gauge.Gauge, current gauge.Indexed) (Event, bool, error) {
	remaining := g.RemainingEpochs()
	if remaining < 0 {
		c.logger.Warn("Ignoring new gauge with more filled than scheduled epochs",
			zap.String("gaugeId", g.ID),
			zap.Int64("numEpochsPaidOver", g.NumEpochsPaidOver),
			zap.Int64("filledEpochs", g.FilledEpochs))
		return Event{}, false, nil
	}

	bondDays, err := g.BondDurationDays()
	if err != nil {
		return Event{}, false, err
	}

	var typ EventType
	switch {
	case g.IsSuperfluid(c.opts.SuperfluidMarker):
		if earlier, ok := c.earlierSuperfluidGauge(g, current); ok {
			c.logger.Debug("Suppressing superfluid gauge, pool already superfluid",
				zap.String("gaugeId", g.ID),
				zap.String("poolId", g.PoolID()),
				zap.String("firstGaugeId", earlier))
			return Event{}, false, nil
		}
		typ = NewSuperfluidGauge
	case g.IsPerpetual && g.FirstCoinDenom() == c.opts.NativeDenom:
		typ = NewInternalGauge
	case g.IsPerpetual && len(g.Coins) == 0:
		c.logger.Debug("Suppressing empty perpetual gauge", zap.String("gaugeId", g.ID))
		return Event{}, false, nil
	default:
		typ = NewExternalGauge
	}

	return c.event(typ, g, bondDays, remaining), true, nil
}

// earlierSuperfluidGauge looks through the whole current snapshot for another superfluid gauge on
// the same pool with a lower id. Only the lowest id per pool is announced, so the result does not
// depend on which deltas this run happened to see.
func (c *Classifier) earlierSuperfluidGauge(g gauge.Gauge, current gauge.Indexed) (string, bool) {
	pool := g.PoolID()
	for id, rec := range current {
		if id == g.ID || !gauge.LessID(id, g.ID) {
			continue
		}
		// Only the denom matters here, so a neighbour with otherwise malformed fields still counts.
		denom := rec.DistributeDenom()
		if !gauge.IsSuperfluidDenom(denom, c.opts.SuperfluidMarker) {
			continue
		}
		if pool == gauge.PoolIDNaN {
			if denom == g.DistributeTo.Denom {
				return id, true
			}
			continue
		}
		if gauge.PoolID(denom) == pool {
			return id, true
		}
	}
	return "", false
}

func (c *Classifier) event(typ EventType, g gauge.Gauge, bondDays float64, remaining int64) Event {
	pool := g.PoolID()
	if pool == gauge.PoolIDNaN {
		c.logger.Warn("Gauge denom carries no pool id",
			zap.String("gaugeId", g.ID),
			zap.String("denom", g.DistributeTo.Denom),
			zap.String("eventType", string(typ)))
	}

	ev := Event{
		Type:             typ,
		PoolID:           pool,
		BondDurationDays: bondDays,
		RemainingDays:    remaining,
		Gauge:            g,
	}
	if now := c.now(); !g.StartTime.IsZero() && g.StartTime.After(now) {
		days := int64(math.Ceil(g.StartTime.Sub(now).Hours() / 24))
		ev.StartsInDays = &days
	}

	c.logger.Info("Notable gauge event",
		zap.String("eventType", string(typ)),
		zap.String("gaugeId", g.ID),
		zap.String("poolId", pool),
		zap.Float64("bondDurationDays", bondDays),
		zap.Int64("remainingDays", remaining))
	return ev
}
