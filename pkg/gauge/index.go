package gauge

import (
	"sort"
	"strconv"
)

// Indexed maps a gauge id to its record. It is rebuilt from the raw list on every run.
type Indexed map[string]Record

// Index keys records by id in a single pass. Upstream order carries no meaning; a duplicate id
// overwrites the earlier record. Records without an id cannot be keyed and are left out.
func Index(records []Record) Indexed {
	out := make(Indexed, len(records))
	for _, r := range records {
		id, ok := r.ID()
		if !ok {
			continue
		}
		out[id] = r
	}
	return out
}

// Keys returns the ids sorted numerically, falling back to lexical order for non-numeric ids.
func (ix Indexed) Keys() []string {
	keys := make([]string, 0, len(ix))
	for k := range ix {
		keys = append(keys, k)
	}
	SortIDs(keys)
	return keys
}

// SortIDs sorts gauge ids numerically where possible. Numeric ids sort before non-numeric ones.
func SortIDs(ids []string) {
	sort.SliceStable(ids, func(i, j int) bool {
		return LessID(ids[i], ids[j])
	})
}

// LessID orders two gauge ids, numerically when both parse as unsigned integers.
func LessID(a, b string) bool {
	na, errA := strconv.ParseUint(a, 10, 64)
	nb, errB := strconv.ParseUint(b, 10, 64)
	switch {
	case errA == nil && errB == nil:
		return na < nb
	case errA == nil:
		return true
	case errB == nil:
		return false
	}
	return a < b
}
