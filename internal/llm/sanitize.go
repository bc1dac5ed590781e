package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// NormalizeModelJSON trims the model's message down to the JSON object it
// holds. Markdown code fences and leading chatter are tolerated; anything
// that still is not a JSON object is an error.
func NormalizeModelJSON(content string) ([]byte, error) {
	s := strings.TrimSpace(content)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		s = strings.TrimSpace(s)
	}
	if !strings.HasPrefix(s, "{") {
		start, end := strings.Index(s, "{"), strings.LastIndex(s, "}")
		if start < 0 || end < start {
			return nil, fmt.Errorf("no JSON object in model response")
		}
		s = s[start : end+1]
	}
	raw := []byte(s)
	if !json.Valid(raw) {
		return nil, fmt.Errorf("model response is not valid JSON")
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("model response is not a JSON object: %w", err)
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
