package notify

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/canopy-network/gaugewatch/pkg/classify"
)

// Report summarises one dispatch.
type Report struct {
	Events   int `json:"events"`
	Messages int `json:"messages"`
	Batches  int `json:"batches"`
	Sent     int `json:"sent"`
}

// Dispatcher renders, batches and sends events.
type Dispatcher struct {
	formatter *Formatter
	sender    Sender
	maxLen    int
	logger    *zap.Logger
}

// NewDispatcher wires a Formatter to a Sender. maxLen bounds each outgoing chunk.
func NewDispatcher(formatter *Formatter, sender Sender, maxLen int, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{formatter: formatter, sender: sender, maxLen: maxLen, logger: logger}
}

// Dispatch sends events in the order the classifier produced them. A failed chunk does not stop the
// remaining ones; all send errors are returned joined.
func (d *Dispatcher) Dispatch(ctx context.Context, events []classify.Event) (Report, error) {
	report := Report{Events: len(events)}
	if len(events) == 0 {
		return report, nil
	}

	messages := d.formatter.FormatAll(events)
	report.Messages = len(messages)
	batches := Batch(messages, d.maxLen)
	report.Batches = len(batches)

	var errs []error
	for i, chunk := range batches {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := d.sender.Send(ctx, chunk); err != nil {
			d.logger.Error("Failed to send notification",
				zap.Int("batch", i),
				zap.Int("batches", len(batches)),
				zap.Error(err))
			errs = append(errs, fmt.Errorf("batch %d: %w", i, err))
			continue
		}
		report.Sent++
	}

	d.logger.Info("Notifications dispatched",
		zap.Int("events", report.Events),
		zap.Int("messages", report.Messages),
		zap.Int("sent", report.Sent),
		zap.Int("batches", report.Batches))
	return report, errors.Join(errs...)
}
