// Package record holds the claim-form record in its loose working form
// (a JSON object as the model returned it) and its fixed output shape.
package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/joseph-ayodele/claims-extractor/constants"
)

// Record is the working record: top-level keys map to strings or, for
// composite fields, to nested objects. Values of any JSON type may appear
// until the record has been validated.
type Record map[string]any

// Empty returns a record with every key of the output shape set to "".
func Empty() Record {
	r := Record{}
	for _, key := range constants.RecordFields {
		switch {
		case key == constants.FieldAddress:
			r[key] = emptyObject(constants.AddressParts)
		case key == constants.FieldMedicalInstitution:
			r[key] = emptyObject(constants.MedicalInstitutionParts)
		case isDateField(key):
			r[key] = emptyObject(constants.DateParts)
		default:
			r[key] = ""
		}
	}
	return r
}

// Parse decodes a JSON object into a Record. Numbers keep their literal text.
func Parse(b []byte) (Record, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var r Record
	if err := dec.Decode(&r); err != nil {
		return nil, err
	}
	if r == nil {
		return nil, fmt.Errorf("record is not a JSON object")
	}
	return r, nil
}

// Clone deep-copies nested objects so the copy can be edited freely.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = cloneValue(v)
	}
	return out
}

// String returns the value at key as a string, "" when absent.
func (r Record) String(key string) string {
	return scalarString(r[key])
}

// Nested returns the composite object at key, or nil when the value is not an object.
func (r Record) Nested(key string) map[string]any {
	m, _ := r[key].(map[string]any)
	return m
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, vv := range t {
			m[k] = cloneValue(vv)
		}
		return m
	case []any:
		s := make([]any, len(t))
		for i, vv := range t {
			s[i] = cloneValue(vv)
		}
		return s
	default:
		return v
	}
}

func emptyObject(keys []string) map[string]any {
	m := make(map[string]any, len(keys))
	for _, k := range keys {
		m[k] = ""
	}
	return m
}

func isDateField(key string) bool {
	for _, d := range constants.DateFields {
		if d == key {
			return true
		}
	}
	return false
}

// scalarString renders JSON scalars the way they read on the form.
// Objects and arrays yield "".
func scalarString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case json.Number:
		return t.String()
	default:
		return ""
	}
}
