// Package delta computes sparse structural differences between decoded JSON values.
//
// A Change tree mirrors the jsondiffpatch layout when encoded: an added value is [new], a modified
// value is [old, new], a deleted value is [old, 0, 0], objects nest by key and arrays nest by
// position with an "_t": "a" marker and "_<i>" keys for removed positions. Unchanged values never
// appear, so a field is present in a Change exactly when it differs.
package delta

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// MarkerKey tags array nodes in the encoded form. It is metadata, never a field name.
const MarkerKey = "_t"

// Kind describes what happened to a value.
type Kind uint8

const (
	Added Kind = iota + 1
	Modified
	Deleted
	Object
	Array
)

func (k Kind) String() string {
	switch k {
	case Added:
		return "added"
	case Modified:
		return "modified"
	case Deleted:
		return "deleted"
	case Object:
		return "object"
	case Array:
		return "array"
	}
	return "unknown"
}

// Change is one node of a structural diff. Leaf kinds carry Old/New; Object and Array carry
// Children keyed by field name or position.
type Change struct {
	Kind     Kind
	Old      any
	New      any
	Children map[string]*Change
}

// Fields returns the child keys in sorted order, without the array marker.
func (c *Change) Fields() []string {
	if c == nil {
		return nil
	}
	keys := make([]string, 0, len(c.Children))
	for k := range c.Children {
		if k == MarkerKey {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Has reports whether the field changed.
func (c *Change) Has(field string) bool {
	if c == nil || field == MarkerKey {
		return false
	}
	_, ok := c.Children[field]
	return ok
}

// Field returns the change recorded for field, or nil.
func (c *Change) Field(field string) *Change {
	if c == nil || field == MarkerKey {
		return nil
	}
	return c.Children[field]
}

// MarshalJSON encodes the change in jsondiffpatch form.
func (c *Change) MarshalJSON() ([]byte, error) {
	if c == nil {
		return []byte("null"), nil
	}
	switch c.Kind {
	case Added:
		return json.Marshal([]any{c.New})
	case Modified:
		return json.Marshal([]any{c.Old, c.New})
	case Deleted:
		return json.Marshal([]any{c.Old, 0, 0})
	case Object:
		return json.Marshal(c.Children)
	case Array:
		out := make(map[string]any, len(c.Children)+1)
		out[MarkerKey] = "a"
		for k, v := range c.Children {
			out[k] = v
		}
		return json.Marshal(out)
	}
	return nil, fmt.Errorf("delta: unknown kind %d", c.Kind)
}

// Diff returns the change turning from into to, or nil when they are deeply equal.
func Diff(from, to any) *Change {
	fromObj, fromIsObj := asObject(from)
	toObj, toIsObj := asObject(to)
	if fromIsObj && toIsObj {
		children := diffObjects(fromObj, toObj)
		if len(children) == 0 {
			return nil
		}
		return &Change{Kind: Object, Children: children}
	}

	fromArr, fromIsArr := from.([]any)
	toArr, toIsArr := to.([]any)
	if fromIsArr && toIsArr {
		children := diffArrays(fromArr, toArr)
		if len(children) == 0 {
			return nil
		}
		return &Change{Kind: Array, Children: children}
	}

	if fromIsObj || toIsObj || fromIsArr || toIsArr {
		// shape changed; report the whole value
		return &Change{Kind: Modified, Old: from, New: to}
	}
	if scalarEqual(from, to) {
		return nil
	}
	return &Change{Kind: Modified, Old: from, New: to}
}

func diffObjects(from, to map[string]any) map[string]*Change {
	children := make(map[string]*Change)
	for k, nv := range to {
		ov, ok := from[k]
		if !ok {
			children[k] = &Change{Kind: Added, New: nv}
			continue
		}
		if c := Diff(ov, nv); c != nil {
			children[k] = c
		}
	}
	for k, ov := range from {
		if _, ok := to[k]; !ok {
			children[k] = &Change{Kind: Deleted, Old: ov}
		}
	}
	return children
}

func diffArrays(from, to []any) map[string]*Change {
	children := make(map[string]*Change)
	n := max(len(from), len(to))
	for i := 0; i < n; i++ {
		switch {
		case i >= len(from):
			children[strconv.Itoa(i)] = &Change{Kind: Added, New: to[i]}
		case i >= len(to):
			children["_"+strconv.Itoa(i)] = &Change{Kind: Deleted, Old: from[i]}
		default:
			if c := Diff(from[i], to[i]); c != nil {
				children[strconv.Itoa(i)] = c
			}
		}
	}
	return children
}

func asObject(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

// scalarEqual compares JSON scalars exactly. Numbers compare by their canonical decimal text so
// a json.Number and a float64 holding the same integer are equal, but 1.0000001 never equals 1.
func scalarEqual(a, b any) bool {
	if an, ok := a.(json.Number); ok {
		if bn, ok := b.(json.Number); ok {
			return an == bn
		}
	}
	an, aNum := numberText(a)
	bn, bNum := numberText(b)
	if aNum || bNum {
		return aNum && bNum && an == bn
	}
	switch av := a.(type) {
	case nil:
		return b == nil
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	}
	return false
}

func numberText(v any) (string, bool) {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return strconv.FormatInt(i, 10), true
		}
		if f, err := n.Float64(); err == nil && f != float64(int64(f)) {
			return strconv.FormatFloat(f, 'g', -1, 64), true
		}
		return n.String(), true
	case float64:
		if n == float64(int64(n)) {
			return strconv.FormatInt(int64(n), 10), true
		}
		return strconv.FormatFloat(n, 'g', -1, 64), true
	case int:
		return strconv.Itoa(n), true
	case int64:
		return strconv.FormatInt(n, 10), true
	}
	return "", false
}
