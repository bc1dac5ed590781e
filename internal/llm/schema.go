package llm

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/claims-extractor/constants"
)

// BuildFormJSONSchema returns the JSON Schema of the claim-form record as
// a generic map. Composite fields are objects of strings; extra keys are
// allowed so the validator can relocate them.
func BuildFormJSONSchema() map[string]any {
	props := map[string]any{}
	for _, key := range constants.RecordFields {
		switch key {
		case constants.FieldAddress:
			props[key] = objectOf(constants.AddressParts)
		case constants.FieldMedicalInstitution:
			props[key] = objectOf(constants.MedicalInstitutionParts)
		default:
			if constants.IsComposite(key) {
				props[key] = objectOf(constants.DateParts)
			} else {
				props[key] = map[string]any{"type": "string"}
			}
		}
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   constants.RecordFields,
	}
}

func objectOf(keys []string) map[string]any {
	props := map[string]any{}
	for _, k := range keys {
		props[k] = map[string]any{"type": "string"}
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   keys,
	}
}

// ValidateJSONAgainstSchema validates "data" against "schemaMap".
func ValidateJSONAgainstSchema(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
