package gaugewatch

import (
	"context"
	"time"

	"github.com/canopy-network/gaugewatch/pkg/classify"
	"github.com/canopy-network/gaugewatch/pkg/delta"
	"github.com/canopy-network/gaugewatch/pkg/notify"
)

// RunReport summarises one pass of the pipeline.
type RunReport struct {
	RunID      string    `json:"runId"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`

	// Skipped is set when the fetch failed and ContinueOnFetchError let the run end cleanly.
	Skipped bool `json:"skipped"`
	// Bootstrap is set when there was no previous snapshot to compare against.
	Bootstrap bool `json:"bootstrap"`

	Gauges   int                        `json:"gauges"`
	Previous int                        `json:"previous"`
	Deltas   int                        `json:"deltas"`
	Removed  int                        `json:"removed"`
	Events   int                        `json:"events"`
	ByType   map[classify.EventType]int `json:"byType,omitempty"`
	Failures int                        `json:"failures"`

	Notifications notify.Report `json:"notifications"`
	Published     int           `json:"published"`
}

// Result is the per-run artifact written next to the snapshots.
type Result struct {
	RunID     string                `json:"runId"`
	FetchedAt time.Time             `json:"fetchedAt"`
	Deltas    delta.Deltas          `json:"deltas"`
	Removed   []string              `json:"removed"`
	Events    []classify.Event      `json:"events"`
	Failures  []classify.GaugeError `json:"failures"`
}

// EventPublisher fans events out after they are dispatched. *redis.Client implements it.
type EventPublisher interface {
	PublishEvents(ctx context.Context, stream, runID string, events []classify.Event) int
	Health(ctx context.Context) error
	Close() error
}
