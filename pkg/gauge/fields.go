package gauge

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Helper functions to safely extract fields from a decoded JSON object.

// stringField retrieves the string value for the given key. Numbers are rendered in their JSON form
// so ids encoded either way produce the same string.
func stringField(m map[string]any, key string) (string, bool) {
	v, ok := m[key]
	if !ok || v == nil {
		return "", false
	}
	switch val := v.(type) {
	case string:
		return val, true
	case json.Number:
		return val.String(), true
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true
	case int:
		return strconv.Itoa(val), true
	case int64:
		return strconv.FormatInt(val, 10), true
	case uint64:
		return strconv.FormatUint(val, 10), true
	}
	return "", false
}

// intField retrieves an integer value for the given key. Cosmos REST encodes uint64 as strings, so
// strings holding base-10 integers are accepted alongside JSON numbers.
// A missing key returns ok=false; a present but malformed value returns an error.
func intField(m map[string]any, key string) (n int64, ok bool, err error) {
	v, present := m[key]
	if !present || v == nil {
		return 0, false, nil
	}
	switch val := v.(type) {
	case json.Number:
		n, err = val.Int64()
	case string:
		n, err = strconv.ParseInt(strings.TrimSpace(val), 10, 64)
	case float64:
		if val != math.Trunc(val) {
			err = fmt.Errorf("non-integer value %v", val)
		}
		n = int64(val)
	case int:
		n = int64(val)
	case int64:
		n = val
	default:
		err = fmt.Errorf("unsupported type %T", v)
	}
	if err != nil {
		return 0, true, fmt.Errorf("field %q: %w", key, err)
	}
	return n, true, nil
}

// boolField retrieves a boolean value, accepting the "true"/"false" string form as well.
func boolField(m map[string]any, key string) (bool, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return false, nil
	}
	switch val := v.(type) {
	case bool:
		return val, nil
	case string:
		b, err := strconv.ParseBool(val)
		if err != nil {
			return false, fmt.Errorf("field %q: %w", key, err)
		}
		return b, nil
	}
	return false, fmt.Errorf("field %q: unsupported type %T", key, v)
}

// objectField retrieves a nested JSON object.
func objectField(m map[string]any, key string) (map[string]any, bool) {
	v, ok := m[key]
	if !ok || v == nil {
		return nil, false
	}
	switch val := v.(type) {
	case map[string]any:
		return val, true
	case Record:
		return val, true
	}
	return nil, false
}

// sliceField retrieves a JSON array. A present non-array value returns an error.
func sliceField(m map[string]any, key string) ([]any, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return nil, nil
	}
	s, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("field %q: expected array, got %T", key, v)
	}
	return s, nil
}
