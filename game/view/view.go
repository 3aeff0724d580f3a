// Package view holds the helpers shared by the entity projections. Every
// game entity converts itself to a plain map for API responses, logs and
// save files; these helpers read the values back when a map is rebuilt
// into an entity.
package view

import (
	"errors"
	"fmt"
	"math"
)

// ErrMissingField is returned when a required key is absent from a view.
var ErrMissingField = errors.New("view: missing field")

// ErrFieldType is returned when a key holds a value of an unexpected type.
var ErrFieldType = errors.New("view: wrong field type")

// Int reads an integer field. Maps decoded from JSON carry float64 values,
// so every Go numeric kind is accepted as long as it holds a whole number.
func Int(m map[string]any, key string) (int, error) {
	v, ok := m[key]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrMissingField, key)
	}
	return toInt(key, v)
}

// IntOr reads an optional integer field, returning def when it is absent.
func IntOr(m map[string]any, key string, def int) (int, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return def, nil
	}
	return toInt(key, v)
}

func toInt(key string, v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int32:
		return int(n), nil
	case int64:
		return int(n), nil
	case float32:
		return floatToInt(key, float64(n))
	case float64:
		return floatToInt(key, n)
	default:
		return 0, fmt.Errorf("%w: %s is %T", ErrFieldType, key, v)
	}
}

func floatToInt(key string, f float64) (int, error) {
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("%w: %s is not a whole number", ErrFieldType, key)
	}
	return int(f), nil
}

// String reads a string field. Numeric identifiers are formatted as text.
func String(m map[string]any, key string) (string, error) {
	v, ok := m[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrMissingField, key)
	}
	switch s := v.(type) {
	case string:
		return s, nil
	case int, int64, float64:
		return fmt.Sprint(s), nil
	default:
		return "", fmt.Errorf("%w: %s is %T", ErrFieldType, key, v)
	}
}

// StringOr reads an optional string field.
func StringOr(m map[string]any, key, def string) (string, error) {
	if v, ok := m[key]; !ok || v == nil {
		return def, nil
	}
	return String(m, key)
}

// IntMap reads a map of name → integer, as used by item effects.
func IntMap(m map[string]any, key string) (map[string]int, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return map[string]int{}, nil
	}
	out := make(map[string]int)
	switch mm := v.(type) {
	case map[string]int:
		for k, n := range mm {
			out[k] = n
		}
	case map[string]any:
		for k, raw := range mm {
			n, err := toInt(key+"."+k, raw)
			if err != nil {
				return nil, err
			}
			out[k] = n
		}
	default:
		return nil, fmt.Errorf("%w: %s is %T", ErrFieldType, key, v)
	}
	return out, nil
}

// Maps reads a list of nested views.
func Maps(m map[string]any, key string) ([]map[string]any, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return nil, nil
	}
	switch list := v.(type) {
	case []map[string]any:
		return list, nil
	case []any:
		out := make([]map[string]any, 0, len(list))
		for i, raw := range list {
			mm, ok := raw.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%w: %s[%d] is %T", ErrFieldType, key, i, raw)
			}
			out = append(out, mm)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %s is %T", ErrFieldType, key, v)
	}
}
