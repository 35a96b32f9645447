package validation

import (
	"fmt"

	"github.com/goccy/go-json"
)

// JSONValue converts a Go value into its JSON data model (map[string]any,
// []any, float64, string, bool) so adapters see the same shape regardless of
// whether the input is a struct or a store value tree. Object members whose
// value is nil are dropped: an absent member and a cleared one validate the
// same way.
func JSONValue(input any) (any, error) {
	raw, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("validation: encode input: %w", err)
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("validation: decode input: %w", err)
	}
	return pruneNil(out), nil
}

// JSONBytes is JSONValue rendered to bytes.
func JSONBytes(input any) ([]byte, error) {
	value, err := JSONValue(input)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("validation: encode input: %w", err)
	}
	return raw, nil
}

func pruneNil(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		for key, child := range typed {
			if child == nil {
				delete(typed, key)
				continue
			}
			typed[key] = pruneNil(child)
		}
		return typed
	case []any:
		for i, child := range typed {
			typed[i] = pruneNil(child)
		}
		return typed
	default:
		return value
	}
}
