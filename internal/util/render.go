package util

import (
	"fmt"
	"strconv"
)

// ExpandAny walks arbitrary decoded structures (map[string]any, []any) and
// passes every string value through fn. The first error aborts the walk.
// Non-string scalars are returned unchanged.
func ExpandAny(in any, fn func(string) (string, error)) (any, error) {
	switch t := in.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, vv := range t {
			out, err := ExpandAny(vv, fn)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			m[k] = out
		}
		return m, nil
	case []any:
		arr := make([]any, len(t))
		for i := range t {
			out, err := ExpandAny(t[i], fn)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			arr[i] = out
		}
		return arr, nil
	case string:
		return fn(t)
	default:
		return in, nil
	}
}

// ScalarString renders a decoded config scalar the way an operator wrote it.
// Maps and slices are rejected.
func ScalarString(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", true
	case string:
		return t, true
	case bool:
		return strconv.FormatBool(t), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case uint64:
		return strconv.FormatUint(t, 10), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	default:
		return "", false
	}
}
