package webhook

import (
	"bytes"
	"encoding/json"
	"errors"
)

// shapeStrategy recognises one response layout and returns its items
type shapeStrategy struct {
	name  string
	match func(body []byte) ([]json.RawMessage, bool)
}

// shapeStrategies are tried in order; the first match wins.
var shapeStrategies = []shapeStrategy{
	{name: "array", match: matchBareArray},
	{name: "wrapped-array", match: matchWrappedArray},
	{name: "array-of-json-wrappers", match: matchJSONWrapperArray},
}

var wrapperKeys = []string{"data", "items", "results"}

var errUnknownShape = errors.New("body is neither an array, a wrapped array nor an array of json wrappers")

// DecodeItems unwraps a list response into its raw items. An empty body is
// an empty list.
func DecodeItems(body []byte) ([]json.RawMessage, string, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, "empty", nil
	}
	for _, s := range shapeStrategies {
		if items, ok := s.match(body); ok {
			return items, s.name, nil
		}
	}
	return nil, "", errUnknownShape
}

// matchBareArray accepts [ {...}, ... ] whose items are plain records
func matchBareArray(body []byte) ([]json.RawMessage, bool) {
	var items []json.RawMessage
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, false
	}
	if len(items) > 0 && allJSONWrappers(items) {
		return nil, false
	}
	return items, true
}

// matchWrappedArray accepts {"data"|"items"|"results": [...]}
func matchWrappedArray(body []byte) ([]json.RawMessage, bool) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		return nil, false
	}
	for _, key := range wrapperKeys {
		raw, ok := obj[key]
		if !ok {
			continue
		}
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			continue
		}
		if unwrapped, ok := unwrapJSON(items); ok {
			return unwrapped, true
		}
		return items, true
	}
	return nil, false
}

// matchJSONWrapperArray accepts [ {"json": {...}}, ... ]
func matchJSONWrapperArray(body []byte) ([]json.RawMessage, bool) {
	var items []json.RawMessage
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, false
	}
	return unwrapJSON(items)
}

func unwrapJSON(items []json.RawMessage) ([]json.RawMessage, bool) {
	if len(items) == 0 || !allJSONWrappers(items) {
		return nil, false
	}
	out := make([]json.RawMessage, 0, len(items))
	for _, item := range items {
		var w struct {
			JSON json.RawMessage `json:"json"`
		}
		_ = json.Unmarshal(item, &w)
		out = append(out, w.JSON)
	}
	return out, true
}

func allJSONWrappers(items []json.RawMessage) bool {
	for _, item := range items {
		var w map[string]json.RawMessage
		if err := json.Unmarshal(item, &w); err != nil {
			return false
		}
		inner, ok := w["json"]
		inner = bytes.TrimSpace(inner)
		if !ok || len(inner) == 0 || inner[0] != '{' {
			return false
		}
	}
	return true
}
