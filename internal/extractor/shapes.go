package extractor

import (
	"encoding/json"
	"fmt"

	"scenarioflow/internal/domain"
)

// shapeMatcher pulls the text payload out of one known response layout.
// extract reports false when the layout does not apply.
type shapeMatcher struct {
	name    string
	extract func(raw interface{}) (string, bool)
}

// shapes is tried in order; the first match wins. The serialized fallback
// is last and always matches.
var shapes = []shapeMatcher{
	{domain.ShapeString, func(raw interface{}) (string, bool) {
		s, ok := raw.(string)
		return s, ok
	}},
	{domain.ShapeContentArray, pathText("content", 0, "text")},
	{domain.ShapeResponseContentArray, pathText("response", "content", 0, "text")},
	{domain.ShapeMessagesContentArray, pathText("messages", 0, "content", 0, "text")},
	{domain.ShapeMessageObject, pathText("message", "content", 0, "text")},
	{domain.ShapeChoicesMessage, pathText("choices", 0, "message", "content")},
	{domain.ShapeDataMessage, pathText("data", 0, "message", "content")},
	{domain.ShapeCandidatesParts, pathText("candidates", 0, "content", "parts", 0, "text")},
	{domain.ShapeFallbackSerialized, serialize},
}

// ResolveText flattens a raw response into text and reports which shape
// produced it. It never fails: unknown layouts are serialized whole.
func ResolveText(raw interface{}) (text, shape string) {
	raw = normalize(raw)
	for _, m := range shapes {
		if s, ok := m.extract(raw); ok {
			return s, m.name
		}
	}
	// unreachable while serialize terminates the list
	return serializeOrFormat(raw), domain.ShapeFallbackSerialized
}

// pathText follows string keys and int indices into decoded JSON and
// matches only when the final value is a string.
func pathText(path ...interface{}) func(interface{}) (string, bool) {
	return func(raw interface{}) (string, bool) {
		cur := raw
		for _, step := range path {
			switch key := step.(type) {
			case string:
				obj, ok := cur.(map[string]interface{})
				if !ok {
					return "", false
				}
				if cur, ok = obj[key]; !ok {
					return "", false
				}
			case int:
				arr, ok := cur.([]interface{})
				if !ok || key >= len(arr) {
					return "", false
				}
				cur = arr[key]
			}
		}
		s, ok := cur.(string)
		return s, ok
	}
}

func serialize(raw interface{}) (string, bool) {
	return serializeOrFormat(raw), true
}

func serializeOrFormat(raw interface{}) string {
	b, err := json.Marshal(raw)
	if err != nil {
		return fmt.Sprintf("%v", raw)
	}
	return string(b)
}

// normalize converts arbitrary Go values (typed maps, structs, raw JSON) into
// the generic form produced by encoding/json so path lookups see one layout.
func normalize(raw interface{}) interface{} {
	switch v := raw.(type) {
	case nil, string, map[string]interface{}, []interface{}:
		return v
	case []byte:
		return string(v)
	case json.RawMessage:
		var out interface{}
		if err := json.Unmarshal(v, &out); err != nil {
			return string(v)
		}
		return out
	}

	b, err := json.Marshal(raw)
	if err != nil {
		return raw
	}
	var out interface{}
	if err := json.Unmarshal(b, &out); err != nil {
		return raw
	}
	return out
}
