package record

import (
	"context"
	"encoding/json"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/claims-extractor/constants"
)

func validate(t *testing.T, r Record) (Record, []string) {
	t.Helper()
	return NewValidator(nil).Validate(context.Background(), r)
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sorted(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}

func assertShape(t *testing.T, r Record) {
	t.Helper()
	assert.Equal(t, sorted(constants.RecordFields), keys(r))
	for _, f := range constants.DateFields {
		assert.Equal(t, sorted(constants.DateParts), keys(r.Nested(f)), f)
	}
	assert.Equal(t, sorted(constants.AddressParts), keys(r.Nested(constants.FieldAddress)))
	assert.Equal(t, sorted(constants.MedicalInstitutionParts), keys(r.Nested(constants.FieldMedicalInstitution)))
}

func TestValidateShape(t *testing.T) {
	inputs := map[string]Record{
		"nil":   nil,
		"empty": {},
		"scalars everywhere": {
			constants.FieldDateOfBirth:        "01/02/1990",
			constants.FieldAddress:            "הרצל 1 תל אביב",
			constants.FieldMedicalInstitution: "מכבי",
			constants.FieldIDNumber:           json.Number("123456789"),
			constants.FieldSignature:          map[string]any{"present": true},
			"extra":                           "x",
		},
		"partial composites": {
			constants.FieldDateOfInjury: map[string]any{"day": "3", "hour": "10"},
			constants.FieldAddress:      map[string]any{"city": "חיפה"},
		},
	}
	for name, in := range inputs {
		t.Run(name, func(t *testing.T) {
			out, _ := validate(t, in)
			assertShape(t, out)
		})
	}
}

func TestValidateIsIdempotent(t *testing.T) {
	in := Record{
		constants.FieldIDNumber:          "12345678",
		constants.FieldPhoneNumberLegacy: "651234567",
		constants.FieldLandlinePhone:     "89754235411",
		constants.FieldHealthFundMember:  "כללית",
		constants.FieldDateOfBirth:       map[string]any{"day": "40", "month": "2", "year": "1990"},
		constants.FieldDateOfInjury:      map[string]any{"day": "aa"},
		constants.FieldAddress:           "רחוב",
		constants.FieldGender:            "other",
	}
	first, firstIssues := validate(t, in)
	second, secondIssues := validate(t, first)

	assert.Equal(t, first, second)
	assert.Subset(t, firstIssues, secondIssues)
	assert.Contains(t, secondIssues, "Invalid ID number format: '12345678' (should be 9 digits)")
	assert.Contains(t, secondIssues, "Non-numeric date parts in dateOfInjury")
	assert.Equal(t, "0754235411", second.String(constants.FieldLandlinePhone))
	assert.NotContains(t, secondIssues, "Added missing 'lastName'")
	for _, s := range secondIssues {
		assert.NotContains(t, s, "Fixed")
	}

	overlong := Record{
		constants.FieldIDNumber:      "12345678901",
		constants.FieldLandlinePhone: "012345678901",
	}
	first, firstIssues = validate(t, overlong)
	second, secondIssues = validate(t, first)

	assert.Equal(t, first, second)
	assert.Equal(t, "123456789", first.String(constants.FieldIDNumber))
	assert.Equal(t, "0345678901", first.String(constants.FieldLandlinePhone))
	assert.Contains(t, firstIssues, "Truncated ID number: 12345678901 -> 123456789")
	assert.Contains(t, firstIssues, "Fixed phone length: '012345678901' → '0345678901'")
	for _, s := range secondIssues {
		assert.NotContains(t, s, "Truncated")
		assert.NotContains(t, s, "Fixed")
	}
}

func TestValidateDoesNotMutateInput(t *testing.T) {
	in := Record{constants.FieldAddress: map[string]any{"city": "חיפה"}}
	_, _ = validate(t, in)
	assert.Equal(t, Record{constants.FieldAddress: map[string]any{"city": "חיפה"}}, in)
}

func TestIDNumber(t *testing.T) {
	out, issues := validate(t, Record{constants.FieldIDNumber: "1234567890"})
	assert.Equal(t, "123456789", out.String(constants.FieldIDNumber))
	assert.Contains(t, issues, "Truncated ID number: 1234567890 -> 123456789")
	for _, s := range issues {
		assert.NotContains(t, s, "Invalid ID number")
	}

	out, issues = validate(t, Record{constants.FieldIDNumber: "12345678"})
	assert.Equal(t, "12345678", out.String(constants.FieldIDNumber))
	assert.Contains(t, issues, "Invalid ID number format: '12345678' (should be 9 digits)")

	_, issues = validate(t, Record{constants.FieldIDNumber: "123456789"})
	for _, s := range issues {
		assert.NotContains(t, s, "ID number")
	}
}

func TestMobilePhone(t *testing.T) {
	cases := map[string]string{
		"651234567":  "051234567",
		"6512345678": "0512345678",
		"521234567":  "0521234567",
		"0521234567": "0521234567",
		"05":         "05",
		"5":          "5",
	}
	for in, want := range cases {
		out, _ := validate(t, Record{constants.FieldMobilePhone: in})
		assert.Equal(t, want, out.String(constants.FieldMobilePhone), in)
	}

	out, issues := validate(t, Record{constants.FieldPhoneNumberLegacy: "0501234567"})
	assert.Equal(t, "0501234567", out.String(constants.FieldMobilePhone))
	assert.NotContains(t, out, constants.FieldPhoneNumberLegacy)
	assert.Contains(t, issues, "Fixed incorrect key: 'phoneNumber' → 'mobilePhone'")
}

func TestLandlinePhone(t *testing.T) {
	cases := []struct {
		in, want string
		warn     bool
	}{
		{"0975423541", "0975423541", false},
		{"8975423541", "0975423541", false},
		{"6975423541", "0975423541", false},
		{"975423541", "0975423541", false},
		{"08975423541", "0975423541", false},
		{"031234", "031234", true},
	}
	for _, tc := range cases {
		out, issues := validate(t, Record{constants.FieldLandlinePhone: tc.in})
		assert.Equal(t, tc.want, out.String(constants.FieldLandlinePhone), tc.in)
		warned := false
		for _, s := range issues {
			if len(s) > 8 && s[:8] == "Warning:" {
				warned = true
			}
		}
		assert.Equal(t, tc.warn, warned, tc.in)
	}
}

func TestMedicalInstitutionRelocation(t *testing.T) {
	out, issues := validate(t, Record{
		constants.FieldHealthFundMember: "מכבי",
		constants.FieldMedicalDiagnoses: "שבר",
	})
	med := out.Nested(constants.FieldMedicalInstitution)
	assert.Equal(t, "מכבי", med[constants.FieldHealthFundMember])
	assert.Equal(t, "שבר", med[constants.FieldMedicalDiagnoses])
	assert.Equal(t, "", med[constants.FieldNatureOfAccident])
	assert.NotContains(t, out, constants.FieldHealthFundMember)
	assert.Contains(t, issues, "Fixed structure: moved 'healthFundMember' into 'medicalInstitutionFields'")

	_, issues = validate(t, Record{})
	assert.Contains(t, issues, "Added missing 'medicalInstitutionFields' structure")
}

func TestDatesAndAddress(t *testing.T) {
	out, issues := validate(t, Record{
		constants.FieldDateOfBirth:  "1990-02-01",
		constants.FieldDateOfInjury: map[string]any{"day": json.Number("5"), "month": "13", "year": "2023"},
		constants.FieldAddress:      []any{"a"},
	})
	assert.Equal(t, map[string]any{"day": "", "month": "", "year": ""}, out.Nested(constants.FieldDateOfBirth))
	assert.Contains(t, issues, "Fixed structure: converted 'dateOfBirth' to proper date object (original: 1990-02-01)")
	assert.Equal(t, "5", out.Nested(constants.FieldDateOfInjury)["day"])
	assert.Contains(t, issues, "Invalid date in dateOfInjury: day=5, month=13, year=2023")
	assert.Contains(t, issues, "Fixed structure: converted 'address' to proper object (original: [a])")

	_, issues = validate(t, Record{constants.FieldFormFillingDate: map[string]any{"day": "1", "month": "", "year": "2023"}})
	for _, s := range issues {
		assert.NotContains(t, s, "Invalid date")
	}
}

func TestGender(t *testing.T) {
	for _, g := range []string{"זכר", "נקבה", "Male", "female", ""} {
		_, issues := validate(t, Record{constants.FieldGender: g})
		assert.NotContains(t, issues, "Invalid gender: '"+g+"'", g)
	}
	_, issues := validate(t, Record{constants.FieldGender: "ז"})
	assert.Contains(t, issues, "Invalid gender: 'ז'")
}

func TestReconcilePrecedence(t *testing.T) {
	llm := Record{
		constants.FieldAccidentLocation: "אחר",
		constants.FieldJobType:          "מלצר",
		constants.FieldFirstName:        "ישראל",
	}
	out := Reconcile(nil, llm, map[string]string{
		constants.FieldAccidentLocation: "במפעל",
		constants.FieldJobType:          "",
		constants.FieldHealthFundMember: "מכבי",
		constants.FieldFirstName:        "ignored",
	})
	assert.Equal(t, "במפעל", out.String(constants.FieldAccidentLocation))
	assert.Equal(t, "מלצר", out.String(constants.FieldJobType))
	assert.Equal(t, "ישראל", out.String(constants.FieldFirstName))
	assert.Equal(t, "מכבי", out.Nested(constants.FieldMedicalInstitution)[constants.FieldHealthFundMember])
	assert.Equal(t, "אחר", llm.String(constants.FieldAccidentLocation))
}

func TestReconcileThenValidateKeepsDirectFund(t *testing.T) {
	llm := Record{constants.FieldHealthFundMember: "כללית"}
	out, _ := validate(t, Reconcile(nil, llm, map[string]string{constants.FieldHealthFundMember: "מכבי"}))
	assert.Equal(t, "מכבי", ToForm(out).MedicalInstitutionFields.HealthFundMember)
}

func TestFormOrderAndParse(t *testing.T) {
	r, err := Parse([]byte(`{"idNumber": 123456789, "dateOfBirth": {"day": "1", "month": "2", "year": "1990"}}`))
	require.NoError(t, err)
	out, _ := validate(t, r)
	f := ToForm(out)
	assert.Equal(t, "123456789", f.IDNumber)
	assert.Equal(t, "1/2/1990", f.DateOfBirth.String())
	assert.Equal(t, "", f.DateOfInjury.String())

	b, err := json.Marshal(f)
	require.NoError(t, err)
	assert.Regexp(t, `^\{"lastName":"","firstName":"","idNumber":"123456789"`, string(b))

	_, err = Parse([]byte(`[1,2]`))
	assert.Error(t, err)
	_, err = Parse([]byte(`null`))
	assert.Error(t, err)
}
