package pipeline

import (
	"bytes"
	"encoding/json"

	"github.com/joseph-ayodele/claims-extractor/internal/common"
)

// Render produces the caller-facing JSON: the record on success, or
// {"error": "..."} on failure. Output is indented UTF-8 without HTML escaping.
func Render(res *Result, err error) []byte {
	if err != nil || res == nil {
		msg := "no result"
		if err != nil {
			msg = common.UserMessage(err)
		}
		return encode(map[string]string{"error": "Error processing document: " + msg})
	}
	return encode(res.Form)
}

func encode(v any) []byte {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return []byte(`{"error": "Error processing document: encode result"}` + "\n")
	}
	return buf.Bytes()
}
