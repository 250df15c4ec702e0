package evalimport

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	doc, err := Parse(`{"title": "Quiz", "questions": [{"points": 3}]}`)
	require.NoError(t, err)
	assert.Equal(t, "Quiz", doc["title"])
	assert.Equal(t, 3.0, doc["questions"].([]any)[0].(map[string]any)["points"])
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantMsg string
		wrapped bool
	}{
		{"empty", "", "Invalid JSON: unexpected end of JSON input", true},
		{"trailing garbage", `{"a": 1} x`, "Invalid JSON: invalid character 'x' after top-level value", true},
		{"array", `[1, 2]`, MsgNotAnObject.Other, false},
		{"null", `null`, MsgNotAnObject.Other, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.raw)
			var pe *ParseError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, tt.wantMsg, err.Error())

			var syntax *json.SyntaxError
			assert.Equal(t, tt.wrapped, errors.As(err, &syntax))
		})
	}
}

func TestJSONShape(t *testing.T) {
	got := jsonShape(map[string]any{
		"n":     7,
		"big":   uint64(9),
		"day":   time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
		"at":    time.Date(2025, 1, 15, 8, 30, 0, 0, time.UTC),
		"inner": map[any]any{1: "one"},
		"list":  []any{int64(2), "x"},
	})
	assert.Equal(t, map[string]any{
		"n":     7.0,
		"big":   9.0,
		"day":   "2025-01-15",
		"at":    "2025-01-15T08:30:00Z",
		"inner": map[string]any{"1": "one"},
		"list":  []any{2.0, "x"},
	}, got)
}
