package llm

import (
	"encoding/json"
	"strings"

	"github.com/joseph-ayodele/claims-extractor/internal/extract"
	"github.com/joseph-ayodele/claims-extractor/internal/record"
)

// SystemPrompt is sent as the system message of every extraction call.
const SystemPrompt = "You are an AI assistant that extracts structured information from documents."

const payloadMarker = "{{OCR_CONTENT}}"

var promptTemplate = `You extract data from National Insurance Institute (ביטוח לאומי) work-injury claim forms.
Below is the OCR output of one form: the full text, then per page the selection marks with their nearby text, every text line with its position [x,y,w,h], and the tables.
The form may be filled in Hebrew or English. Use an empty string for any field you cannot find.

Return ONLY a JSON object with exactly this structure:
` + shapeJSON() + `

Rules:
- healthFundMember, natureOfAccident and medicalDiagnoses belong inside medicalInstitutionFields, never at the top level.
- mobilePhone is the number next to 'טלפון נייד'; landlinePhone is the number next to 'טלפון קווי'. Do not use any other phone key.
- idNumber is the Israeli ID (usually 9 digits), which may sit away from the 'ת.ז.' label.
- Dates are split into day, month and year strings exactly as written.
- accidentLocation is one of: ` + strings.Join(extract.AccidentLocationOptions, ", ") + `. For 'אחר' return only the text written after it.
- healthFundMember is one of: ` + strings.Join(extract.HealthFunds, ", ") + `, or empty.
- For checkboxes trust the SELECTION MARKS section over ':selected:' tags inside the full text.
- jobType is free text and is not one of the accident-location options.

OCR content:
` + payloadMarker + `
`

// BuildPrompt fills the extraction template with the formatted OCR payload.
func BuildPrompt(payload string) string {
	return strings.Replace(promptTemplate, payloadMarker, payload, 1)
}

func shapeJSON() string {
	b, _ := json.MarshalIndent(record.ToForm(record.Empty()), "", "  ")
	return string(b)
}
