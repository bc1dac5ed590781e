package record

import (
	"log/slog"

	"github.com/joseph-ayodele/claims-extractor/constants"
)

// Reconcile applies direct-extraction overrides on top of the model's
// record. Non-empty overrides always win; healthFundMember is written into
// medicalInstitutionFields. The input record is not modified.
func Reconcile(logger *slog.Logger, llm Record, overrides map[string]string) Record {
	if logger == nil {
		logger = slog.Default()
	}
	out := llm.Clone()
	if out == nil {
		out = Record{}
	}
	for _, field := range OverridableFields {
		value := overrides[field]
		if value == "" {
			continue
		}
		if field == constants.FieldHealthFundMember {
			med := out.Nested(constants.FieldMedicalInstitution)
			if med == nil {
				med = map[string]any{}
				out[constants.FieldMedicalInstitution] = med
			}
			if prev := scalarString(med[field]); prev != value {
				logger.Info("reconcile.override", "field", field, "from", prev, "to", value)
			}
			med[field] = value
			// a stray top-level copy would be relocated over this value by the validator
			delete(out, field)
			continue
		}
		if prev := out.String(field); prev != value {
			logger.Info("reconcile.override", "field", field, "from", prev, "to", value)
		}
		out[field] = value
	}
	return out
}

// OverridableFields are the fields the direct extractor may set.
var OverridableFields = []string{
	constants.FieldAccidentLocation,
	constants.FieldHealthFundMember,
	constants.FieldLandlinePhone,
	constants.FieldJobType,
}
