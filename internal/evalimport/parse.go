package evalimport

import (
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// ParseError is the single blocking error produced when raw text cannot become a
// Document.
type ParseError struct {
	Issue Issue
	Err   error
}

func (e *ParseError) Error() string { return e.Issue.String() }

func (e *ParseError) Unwrap() error { return e.Err }

// Parse decodes raw JSON text into a Document. The top-level value must be an
// object; arrays, primitives and null are rejected.
func Parse(raw string) (Document, error) {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, &ParseError{Issue: issue(MsgInvalidJSON, "Detail", err.Error()), Err: err}
	}
	return toDocument(v)
}

// ParseYAML decodes a YAML evaluation into the same tree shape Parse produces, so
// documents kept in YAML go through identical validation.
func ParseYAML(raw string) (Document, error) {
	var v any
	if err := yaml.Unmarshal([]byte(raw), &v); err != nil {
		return nil, &ParseError{Issue: issue(MsgInvalidYAML, "Detail", err.Error()), Err: err}
	}
	return toDocument(jsonShape(v))
}

func toDocument(v any) (Document, error) {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, &ParseError{Issue: issue(MsgNotAnObject)}
	}
	return Document(obj), nil
}

// jsonShape rewrites a decoded YAML value into the types encoding/json yields:
// string-keyed maps, []any and float64 numbers.
func jsonShape(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = jsonShape(e)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[fmt.Sprint(k)] = jsonShape(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = jsonShape(e)
		}
		return out
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case uint64:
		return float64(t)
	case float32:
		return float64(t)
	case time.Time:
		if t.Equal(t.Truncate(24 * time.Hour)) {
			return t.Format(dateLayout)
		}
		return t.Format(time.RFC3339)
	default:
		return v
	}
}
