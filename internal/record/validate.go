package record

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/joseph-ayodele/claims-extractor/constants"
	"github.com/joseph-ayodele/claims-extractor/internal/common"
)

var reNineDigits = regexp.MustCompile(`^\d{9}$`)

// Validator repairs known extraction faults and coerces a record to the
// fixed output shape. It never fails: every fix or anomaly becomes an issue.
type Validator struct {
	logger *slog.Logger
}

func NewValidator(logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{logger: logger}
}

type issues []string

func (is *issues) add(format string, args ...any) {
	*is = append(*is, fmt.Sprintf(format, args...))
}

// Validate returns a repaired copy of rec and the issues found. The result
// always holds exactly the keys of Form, with composite sub-keys present.
func (v *Validator) Validate(ctx context.Context, rec Record) (Record, []string) {
	log := common.LoggerFrom(ctx, v.logger).With("stage", "validate")
	r := rec.Clone()
	if r == nil {
		r = Record{}
	}
	var out issues

	coerceScalars(r, &out)
	fixIDNumber(r, &out)
	fixMedicalInstitution(r, &out)
	fixMobilePhone(r, &out)
	fixLandlinePhone(r, &out)
	for _, field := range constants.DateFields {
		fixDate(r, field, &out)
	}
	fixAddress(r, &out)
	checkGender(r, &out)
	completeShape(r, &out)

	for _, s := range out {
		log.Debug("validate.issue", "issue", s)
	}
	log.Info("validate.done", "issues", len(out))
	return r, out
}

// coerceScalars turns non-string scalars in plain fields into text. Objects
// or arrays in a plain field are discarded.
func coerceScalars(r Record, out *issues) {
	for _, key := range constants.RecordFields {
		if constants.IsComposite(key) {
			continue
		}
		val, ok := r[key]
		if !ok {
			continue
		}
		switch t := val.(type) {
		case string:
		case nil:
			r[key] = ""
		case map[string]any, []any:
			r[key] = ""
			out.add("Fixed structure: cleared '%s' (original: %s)", key, display(t))
		default:
			r[key] = scalarString(t)
			out.add("Converted '%s' to text: %s", key, r[key])
		}
	}
}

func fixIDNumber(r Record, out *issues) {
	id := r.String(constants.FieldIDNumber)
	if id == "" {
		return
	}
	// characters past the ninth are extraction noise
	if runes := []rune(id); len(runes) >= 10 {
		fixed := string(runes[:9])
		out.add("Truncated ID number: %s -> %s", id, fixed)
		r[constants.FieldIDNumber] = fixed
		id = fixed
	}
	if !reNineDigits.MatchString(id) {
		out.add("Invalid ID number format: '%s' (should be 9 digits)", id)
	}
}

func fixMedicalInstitution(r Record, out *issues) {
	const key = constants.FieldMedicalInstitution
	med, present := r[key]
	m, isObject := med.(map[string]any)
	switch {
	case !present:
	case !isObject:
		out.add("Fixed structure: converted '%s' to proper object (original: %s)", key, display(med))
		m = nil
	}

	for _, field := range constants.MedicalInstitutionParts {
		val, ok := r[field]
		if !ok {
			continue
		}
		if m == nil {
			m = map[string]any{}
		}
		m[field] = val
		delete(r, field)
		out.add("Fixed structure: moved '%s' into '%s'", field, key)
	}

	if m == nil && !present {
		r[key] = emptyObject(constants.MedicalInstitutionParts)
		out.add("Added missing '%s' structure", key)
		return
	}
	if m == nil {
		m = map[string]any{}
	}
	r[key] = m
	normalizeObject(m, key, constants.MedicalInstitutionParts, out)
}

func fixMobilePhone(r Record, out *issues) {
	if val, ok := r[constants.FieldPhoneNumberLegacy]; ok {
		r[constants.FieldMobilePhone] = val
		delete(r, constants.FieldPhoneNumberLegacy)
		out.add("Fixed incorrect key: '%s' → '%s'", constants.FieldPhoneNumberLegacy, constants.FieldMobilePhone)
		if _, isString := val.(string); !isString {
			r[constants.FieldMobilePhone] = scalarString(val)
		}
	}

	phone := r.String(constants.FieldMobilePhone)
	if utf8.RuneCountInString(phone) <= 2 {
		return
	}
	switch {
	case strings.HasPrefix(phone, "65"):
		r[constants.FieldMobilePhone] = "05" + phone[2:]
		out.add("Fixed likely OCR error in mobile number: '65...' → '05...'")
	case !strings.HasPrefix(phone, "0"):
		r[constants.FieldMobilePhone] = "0" + phone
		out.add("Added leading '0' to mobile number: %s", r[constants.FieldMobilePhone])
	}
}

func fixLandlinePhone(r Record, out *issues) {
	phone := r.String(constants.FieldLandlinePhone)
	if phone == "" {
		return
	}
	original := phone
	if !strings.HasPrefix(phone, "0") {
		if strings.HasPrefix(phone, "8") || strings.HasPrefix(phone, "6") {
			phone = "0" + phone[1:]
		} else {
			phone = "0" + phone
		}
		out.add("Fixed number format: '%s' → '%s'", original, phone)
	}
	// digits past ten behind the leading 0 are misread leading digits that a
	// prefix fix kept; drop them all in one pass
	if utf8.RuneCountInString(phone) > 10 {
		long := phone
		for utf8.RuneCountInString(phone) > 10 {
			_, size := utf8.DecodeRuneInString(phone[1:])
			phone = phone[:1] + phone[1+size:]
		}
		out.add("Fixed phone length: '%s' → '%s'", long, phone)
	}
	r[constants.FieldLandlinePhone] = phone
	if n := utf8.RuneCountInString(phone); n != 10 {
		out.add("Warning: Landline '%s' has unexpected length (%d digits).", phone, n)
	}
}

func fixDate(r Record, field string, out *issues) {
	val, present := r[field]
	if !present {
		return
	}
	m, ok := val.(map[string]any)
	if !ok {
		out.add("Fixed structure: converted '%s' to proper date object (original: %s)", field, display(val))
		m = emptyObject(constants.DateParts)
		r[field] = m
	}
	normalizeObject(m, field, constants.DateParts, out)

	day, errD := datePart(m[constants.DateDay])
	month, errM := datePart(m[constants.DateMonth])
	year, errY := datePart(m[constants.DateYear])
	if errD != nil || errM != nil || errY != nil {
		out.add("Non-numeric date parts in %s", field)
		return
	}
	if day > 0 && month > 0 && year > 0 {
		if day < 1 || day > 31 || month < 1 || month > 12 {
			out.add("Invalid date in %s: day=%d, month=%d, year=%d", field, day, month, year)
		}
	}
}

func datePart(v any) (int, error) {
	s := strings.TrimSpace(scalarString(v))
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}

func fixAddress(r Record, out *issues) {
	val, present := r[constants.FieldAddress]
	if !present {
		return
	}
	m, ok := val.(map[string]any)
	if !ok {
		out.add("Fixed structure: converted 'address' to proper object (original: %s)", display(val))
		r[constants.FieldAddress] = emptyObject(constants.AddressParts)
		return
	}
	normalizeObject(m, constants.FieldAddress, constants.AddressParts, out)
}

func checkGender(r Record, out *issues) {
	g := r.String(constants.FieldGender)
	if g == "" {
		return
	}
	if !slices.Contains(constants.GenderTokens, strings.ToLower(g)) {
		out.add("Invalid gender: '%s'", g)
	}
}

// completeShape adds absent top-level keys and drops unknown ones.
func completeShape(r Record, out *issues) {
	empty := Empty()
	for _, key := range constants.RecordFields {
		if _, ok := r[key]; !ok {
			r[key] = empty[key]
			out.add("Added missing '%s'", key)
		}
	}
	for key := range r {
		if !slices.Contains(constants.RecordFields, key) {
			out.add("Removed unexpected field '%s'", key)
			delete(r, key)
		}
	}
}

// normalizeObject makes m hold exactly keys, all strings.
func normalizeObject(m map[string]any, field string, keys []string, out *issues) {
	for _, k := range keys {
		val, ok := m[k]
		if !ok {
			m[k] = ""
			out.add("Added missing '%s' in '%s'", k, field)
			continue
		}
		if _, isString := val.(string); isString {
			continue
		}
		m[k] = scalarString(val)
		if val != nil {
			out.add("Converted '%s' in '%s' to text: %s", k, field, m[k])
		}
	}
	for k := range m {
		if !slices.Contains(keys, k) {
			delete(m, k)
			out.add("Removed unexpected '%s' in '%s'", k, field)
		}
	}
}

func display(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}
