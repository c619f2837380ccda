package tryfi

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
)

// mapGet walks nested map[string]any payloads by key and asserts the final
// value's type. Missing keys or a type mismatch report false.
func mapGet[V any](m map[string]any, keys ...string) (V, bool) {
	var zero V

	var current any = m
	for i := 0; i < len(keys)-1; i++ {
		currentMap, ok := current.(map[string]any)
		if !ok {
			return zero, false
		}
		current, ok = currentMap[keys[i]]
		if !ok {
			return zero, false
		}
	}

	lastMap, ok := current.(map[string]any)
	if !ok {
		return zero, false
	}
	valueAny, ok := lastMap[keys[len(keys)-1]]
	if !ok {
		return zero, false
	}

	value, ok := valueAny.(V)
	return value, ok
}

// decodePayload fills a typed payload struct from a loose JSON value.
// Weak typing tolerates the remote's habit of sending numbers where the
// schema says strings and vice versa.
func decodePayload(in any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(in)
}

// parseAPITime parses the ISO-8601 timestamps tryfi.com emits. An empty
// input is not an error; it reports the zero time.
func parseAPITime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	return t, nil
}

// looseJSONMap coerces a value that is either an embedded object or a
// JSON-encoded string into a map. The device info blob arrives both ways.
func looseJSONMap(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case map[string]any:
		return t, true
	case string:
		var m map[string]any
		if err := json.Unmarshal([]byte(t), &m); err != nil {
			return nil, false
		}
		return m, true
	default:
		return nil, false
	}
}
