package delta

import (
	"github.com/canopy-network/gaugewatch/pkg/gauge"
)

// Deltas maps a gauge id to what changed for it between two snapshots.
type Deltas map[string]*Change

// Keys returns the gauge ids in numeric order, skipping metadata keys.
func (d Deltas) Keys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		if k == MarkerKey {
			continue
		}
		keys = append(keys, k)
	}
	gauge.SortIDs(keys)
	return keys
}

// DiffIndexed visits every gauge of the new snapshot and diffs it against its previous record, or
// against an empty record when the gauge is new. Only gauges with a non-empty change are kept.
// Gauges that disappeared from the new snapshot are not visited.
func DiffIndexed(old, current gauge.Indexed) Deltas {
	out := make(Deltas)
	for id, rec := range current {
		prev, ok := old[id]
		if !ok {
			prev = gauge.Record{}
		}
		if c := Diff(map[string]any(prev), map[string]any(rec)); c != nil {
			out[id] = c
		}
	}
	return out
}

// Removed lists ids present in old but missing from current. DiffIndexed does not report them;
// callers use this for logging only.
func Removed(old, current gauge.Indexed) []string {
	var ids []string
	for id := range old {
		if _, ok := current[id]; !ok {
			ids = append(ids, id)
		}
	}
	gauge.SortIDs(ids)
	return ids
}
