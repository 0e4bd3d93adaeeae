package notify

import (
	"bytes"
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"
	"text/template"

	"go.uber.org/zap"

	"github.com/canopy-network/gaugewatch/pkg/classify"
	"github.com/canopy-network/gaugewatch/pkg/gauge"
)

// ErrUnknownEvent is returned for an event type without a template.
var ErrUnknownEvent = errors.New("no template for event type")

// Resolver supplies display names. Lookups that fail fall back to raw denoms.
type Resolver interface {
	ResolveAssetSymbol(denom string) (string, bool)
	ResolvePoolAssets(poolID string) ([]string, bool)
}

// Formatter renders events into chat messages.
type Formatter struct {
	templates map[classify.EventType]*template.Template
	resolver  Resolver
	logger    *zap.Logger
}

type view struct {
	GaugeID       string
	Pool          string
	Denom         string
	Rewards       []string
	BondDays      string
	RemainingDays int64
	StartsIn      int64
}

// NewFormatter parses one template per event type.
func NewFormatter(resolver Resolver, logger *zap.Logger) (*Formatter, error) {
	funcs := template.FuncMap{
		"esc":  html.EscapeString,
		"join": strings.Join,
	}
	templates := make(map[classify.EventType]*template.Template, len(templateSources))
	for typ, src := range templateSources {
		t, err := template.New(string(typ)).Funcs(funcs).Parse(src)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", typ, err)
		}
		templates[typ] = t
	}
	return &Formatter{templates: templates, resolver: resolver, logger: logger}, nil
}

// Format renders a single event.
func (f *Formatter) Format(ev classify.Event) (string, error) {
	t, ok := f.templates[ev.Type]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownEvent, ev.Type)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, f.view(ev)); err != nil {
		return "", fmt.Errorf("render %s for gauge %s: %w", ev.Type, ev.Gauge.ID, err)
	}
	return buf.String(), nil
}

// FormatAll renders events in the order given. Events that cannot be rendered are logged and left out.
func (f *Formatter) FormatAll(events []classify.Event) []string {
	out := make([]string, 0, len(events))
	for _, ev := range events {
		msg, err := f.Format(ev)
		if err != nil {
			f.logger.Warn("Dropping event without a message",
				zap.String("type", string(ev.Type)),
				zap.String("gaugeId", ev.Gauge.ID),
				zap.Error(err))
			continue
		}
		out = append(out, msg)
	}
	return out
}

func (f *Formatter) view(ev classify.Event) view {
	v := view{
		GaugeID:       ev.Gauge.ID,
		Pool:          f.poolName(ev.PoolID, ev.Gauge.DistributeTo.Denom),
		Denom:         f.symbol(ev.Gauge.DistributeTo.Denom),
		BondDays:      strconv.FormatFloat(ev.BondDurationDays, 'f', -1, 64),
		RemainingDays: ev.RemainingDays,
	}
	if ev.StartsInDays != nil {
		v.StartsIn = *ev.StartsInDays
	}
	for _, c := range ev.Gauge.Coins {
		v.Rewards = append(v.Rewards, f.coin(c))
	}
	if len(v.Rewards) == 0 {
		v.Rewards = []string{"nothing yet"}
	}
	return v
}

func (f *Formatter) symbol(denom string) string {
	if f.resolver == nil {
		return denom
	}
	if sym, ok := f.resolver.ResolveAssetSymbol(denom); ok {
		return sym
	}
	return denom
}

func (f *Formatter) coin(c gauge.Coin) string {
	sym := f.symbol(c.Denom)
	if sym == c.Denom {
		return c.Amount + " " + c.Denom
	}
	return c.Amount + " " + c.Denom + " (" + sym + ")"
}

func (f *Formatter) poolName(poolID, denom string) string {
	if poolID == gauge.PoolIDNaN {
		return "unknown pool (" + denom + ")"
	}
	if f.resolver != nil {
		if assets, ok := f.resolver.ResolvePoolAssets(poolID); ok && len(assets) > 0 {
			names := make([]string, len(assets))
			for i, a := range assets {
				names[i] = f.symbol(a)
			}
			return "pool #" + poolID + " " + strings.Join(names, "/")
		}
	}
	return "pool #" + poolID
}
