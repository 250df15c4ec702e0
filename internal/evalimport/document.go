package evalimport

import (
	"math"
	"strconv"
	"strings"
)

// Document is an untrusted decoded evaluation: a JSON object whose values are
// nil, bool, float64, string, []any or map[string]any. Nothing about its shape is
// assumed; every read goes through one of the narrowing helpers below.
type Document map[string]any

// clone returns a deep copy so that validation can rewrite aliases and coerce
// values without touching the caller's tree.
func (d Document) clone() Document {
	if d == nil {
		return Document{}
	}
	return Document(cloneValue(map[string]any(d)).(map[string]any))
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = cloneValue(e)
		}
		return out
	case Document:
		return cloneValue(map[string]any(t))
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

// present reports whether key exists in m with a non-null value.
func present(m map[string]any, key string) bool {
	v, ok := m[key]
	return ok && v != nil
}

// blank mirrors the "no usable value" test shared by warnings and defaults:
// absent, null, false, zero, empty string or empty array.
func blank(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case bool:
		return !t
	case float64:
		return t == 0
	case string:
		return t == ""
	case []any:
		return len(t) == 0
	case []string:
		return len(t) == 0
	}
	return false
}

func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func asNumber(v any) (float64, bool) {
	f, ok := v.(float64)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func asObject(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case map[string]any:
		return t, true
	case Document:
		return map[string]any(t), true
	}
	return nil, false
}

func asArray(v any) ([]any, bool) {
	a, ok := v.([]any)
	return a, ok
}

func positive(v any) bool {
	f, ok := asNumber(v)
	return ok && f > 0
}

func nonEmptyString(v any) bool {
	s, ok := asString(v)
	return ok && strings.TrimSpace(s) != ""
}

// parseNumericString accepts the numeric-string form of a number, as pasted from
// spreadsheets and older exports ("45", " 90 ").
func parseNumericString(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
