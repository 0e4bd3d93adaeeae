// Package snapshot keeps the two generations of gauge data the pipeline diffs.
package snapshot

import (
	"errors"
	"time"

	"github.com/canopy-network/gaugewatch/pkg/gauge"
)

// ErrNotFound is returned when a generation does not exist or could not be read leniently.
var ErrNotFound = errors.New("snapshot not found")

// Snapshot is one poll of the gauge list, stored as {"data": [...]}.
type Snapshot struct {
	FetchedAt time.Time      `json:"fetched_at"`
	Data      []gauge.Record `json:"data"`
}

// Store persists the current and previous generations.
//
// PromoteCurrentToPrevious is the only rotation primitive: it overwrites the previous generation
// with the current one. The pipeline calls it once per run.
type Store interface {
	LoadCurrent() (*Snapshot, error)
	LoadPrevious() (*Snapshot, error)
	SaveCurrent(s *Snapshot) error
	PromoteCurrentToPrevious() error
	WriteResult(name string, v any) error
}
