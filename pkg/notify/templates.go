package notify

import "github.com/canopy-network/gaugewatch/pkg/classify"

// Messages use Telegram's HTML parse mode. Every interpolated value goes through esc.
var templateSources = map[classify.EventType]string{
	classify.NewExternalGauge: `<b>New external incentive</b> on {{esc .Pool}}
Gauge <code>#{{esc .GaugeID}}</code> pays {{esc (join .Rewards ", ")}} over {{.RemainingDays}} epochs to {{esc .BondDays}}-day bonds.
{{- if .StartsIn}}
Starts in {{.StartsIn}} day(s).{{end}}`,

	classify.NewInternalGauge: `<b>New protocol incentive</b> on {{esc .Pool}}
Perpetual gauge <code>#{{esc .GaugeID}}</code> for {{esc .BondDays}}-day bonds, paying {{esc (join .Rewards ", ")}}.`,

	classify.NewSuperfluidGauge: `<b>Superfluid enabled</b> on {{esc .Pool}}
Gauge <code>#{{esc .GaugeID}}</code> targets {{esc .Denom}} with {{esc .BondDays}}-day bonds.`,

	classify.NearExpiration: `<b>Incentive ending</b> on {{esc .Pool}}
Gauge <code>#{{esc .GaugeID}}</code> has {{.RemainingDays}} epoch(s) left, equal to its {{esc .BondDays}}-day bond. New bonds will not unlock before rewards stop.`,
}
