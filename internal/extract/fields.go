package extract

import (
	"regexp"
	"strings"

	"github.com/joseph-ayodele/claims-extractor/constants"
	"github.com/joseph-ayodele/claims-extractor/internal/ocr"
)

var (
	reDigitRun   = regexp.MustCompile(`\d+`)
	rePhoneGroup = regexp.MustCompile(`^[\s\-:./]+(\d+)`)
	reLeadTime   = regexp.MustCompile(`^\d+:\d+\s+`)
	reDateLike   = regexp.MustCompile(`^\d+[./]\d+[./]\d+`)
	reAllDigits  = regexp.MustCompile(`^\d+$`)
)

// landlinePhone takes the first line carrying the landline label and reads
// the number that follows it.
func (e *Extractor) landlinePhone(doc *ocr.Document, res *Result) string {
	const field = constants.FieldLandlinePhone
	rule := e.layout.Landline
	label := ocr.FoldForMatch(rule.Label)

	for _, page := range doc.Pages {
		for _, line := range page.Lines {
			content := ocr.FoldForMatch(line.Content)
			idx := strings.Index(content, label)
			if idx < 0 {
				continue
			}
			res.note(field, "label found in line '%s'", line.Content)
			number := numberAfter(content[idx+len(label):])
			if number == "" {
				res.note(field, "no digits after label")
				continue
			}
			fixed := repairLandline(rule, number)
			if fixed != number {
				res.note(field, "repaired '%s' -> '%s'", number, fixed)
			}
			return fixed
		}
	}
	res.note(field, "no landline label found")
	return ""
}

// maxPhoneDigits bounds how many digit groups numberAfter joins.
const maxPhoneDigits = 10

// numberAfter returns the first phone number following a label. Digit groups
// split by separators the OCR inserts are joined while the number stays
// within maxPhoneDigits; any other text ends it.
func numberAfter(s string) string {
	loc := reDigitRun.FindStringIndex(s)
	if loc == nil {
		return ""
	}
	number := s[loc[0]:loc[1]]
	rest := s[loc[1]:]
	for {
		m := rePhoneGroup.FindStringSubmatch(rest)
		if m == nil || len(number)+len(m[1]) > maxPhoneDigits {
			return number
		}
		number += m[1]
		rest = rest[len(m[0]):]
	}
}

func repairLandline(rule LandlineRule, number string) string {
	if fixed, ok := rule.KnownRepairs[number]; ok {
		return fixed
	}
	for from, to := range rule.LeadingDigitRepairs {
		if from != "" && strings.HasPrefix(number, from) {
			return to + number[len(from):]
		}
	}
	return number
}

// jobType tries, per page: intro line followed by the connector line, intro
// followed by one line then the connector, or "label: value" on one line.
// Only when none of those hit does it fall back to a bare label line
// followed by the value. Matching runs on folded text; the value returned is
// the OCR text as read.
func (e *Extractor) jobType(doc *ocr.Document, res *Result) string {
	const field = constants.FieldJobType
	rule := e.layout.JobType
	intro := ocr.FoldForMatch(rule.Intro)
	connector := ocr.FoldForMatch(rule.Connector)
	label := ocr.FoldForMatch(rule.Label)

	for _, page := range doc.Pages {
		lines := textLines(page.Lines)
		for i, l := range lines {
			if strings.Contains(l.folded, intro) {
				if i+1 >= len(lines) {
					continue
				}
				next := lines[i+1]
				if raw, folded, ok := next.after(rule.Connector, connector); ok {
					raw = reLeadTime.ReplaceAllString(raw, "")
					folded = reLeadTime.ReplaceAllString(folded, "")
					if e.acceptableJob(folded) {
						res.note(field, "text after connector: '%s'", raw)
						return raw
					}
					res.note(field, "rejected text after connector: '%s'", raw)
					continue
				}
				if i+2 < len(lines) && strings.Contains(lines[i+2].folded, connector) && next.folded != "" {
					res.note(field, "line between intro and connector: '%s'", next.raw)
					return next.raw
				}
				continue
			}

			if raw, folded, ok := l.after(rule.Label, label); ok {
				if _, value, ok := strings.Cut(folded, ":"); ok {
					value = strings.TrimSpace(value)
					if value != "" && !reAllDigits.MatchString(value) {
						if _, rv, ok := strings.Cut(raw, ":"); ok {
							value = strings.TrimSpace(rv)
						}
						res.note(field, "label with value: '%s'", value)
						return value
					}
				}
			}
		}
	}

	for _, page := range doc.Pages {
		lines := textLines(page.Lines)
		for i, l := range lines {
			if l.folded != label || i+1 >= len(lines) {
				continue
			}
			next := lines[i+1]
			if e.rejectLabelValue(next.folded) {
				res.note(field, "skipped value after label: '%s'", next.raw)
				continue
			}
			res.note(field, "line after bare label: '%s'", next.raw)
			return next.raw
		}
	}
	res.note(field, "no job type pattern matched")
	return ""
}

func (e *Extractor) rejectLabelValue(v string) bool {
	if v == "" {
		return true
	}
	rule := e.layout.JobType
	for _, p := range rule.RejectPrefixes {
		if strings.HasPrefix(v, ocr.FoldForMatch(p)) {
			return true
		}
	}
	for _, x := range rule.RejectExact {
		if v == ocr.FoldForMatch(x) {
			return true
		}
	}
	// a bare label followed by a checkbox caption belongs to another field
	for _, opt := range e.layout.AccidentLocation.Options {
		if v == ocr.FoldForMatch(opt) {
			return true
		}
	}
	return false
}

// acceptableJob rejects dates, pure numbers and text from the date field.
func (e *Extractor) acceptableJob(s string) bool {
	if s == "" || reDateLike.MatchString(s) || reAllDigits.MatchString(s) {
		return false
	}
	for _, p := range e.layout.JobType.RejectPrefixes {
		if strings.Contains(s, ocr.FoldForMatch(p)) {
			return false
		}
	}
	return true
}

// textLine pairs a line as read with its comparison key.
type textLine struct {
	raw    string
	folded string
}

func textLines(lines []ocr.Line) []textLine {
	out := make([]textLine, len(lines))
	for i, l := range lines {
		out[i] = textLine{raw: strings.TrimSpace(l.Content), folded: ocr.FoldForMatch(l.Content)}
	}
	return out
}

// after returns the text following the first sep, both as read and folded.
// When sep only matches once folded, the folded remainder stands in for both.
func (l textLine) after(rawSep, foldedSep string) (raw, folded string, ok bool) {
	_, folded, ok = strings.Cut(l.folded, foldedSep)
	if !ok {
		return "", "", false
	}
	folded = strings.TrimSpace(folded)
	raw = folded
	if _, r, found := strings.Cut(l.raw, rawSep); found {
		raw = strings.TrimSpace(r)
	}
	return raw, folded, true
}
