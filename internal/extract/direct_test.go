package extract

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/claims-extractor/constants"
	"github.com/joseph-ayodele/claims-extractor/internal/ocr"
)

const (
	intro     = "אני מבקש לקבל עזרה רפואית בגין פגיעה בעבודה שארעה לי"
	connector = "כאשר עבדתי ב"
)

func box(cx, cy float64) ocr.Polygon {
	return ocr.Polygon{{X: cx - 0.05, Y: cy - 0.05}, {X: cx + 0.05, Y: cy - 0.05}, {X: cx + 0.05, Y: cy + 0.05}, {X: cx - 0.05, Y: cy + 0.05}}
}

func line(content string, cx, cy float64) ocr.Line {
	return ocr.Line{Content: content, Polygon: box(cx, cy)}
}

func mark(selected bool, conf, cx, cy float64) ocr.SelectionMark {
	state := ocr.Unselected
	if selected {
		state = ocr.Selected
	}
	return ocr.SelectionMark{State: state, Confidence: conf, Polygon: box(cx, cy)}
}

func textDoc(contents ...string) *ocr.Document {
	lines := make([]ocr.Line, len(contents))
	for i, c := range contents {
		lines[i] = line(c, 4, 1+float64(i)*0.3)
	}
	return &ocr.Document{Pages: []ocr.Page{{Number: 1, Width: 8.5, Height: 11, Lines: lines}}}
}

func extract(t *testing.T, doc *ocr.Document) *Result {
	t.Helper()
	return NewExtractor(DefaultLayout(), nil).Extract(context.Background(), doc)
}

func TestLandlinePhone(t *testing.T) {
	cases := []struct {
		name  string
		lines []string
		want  string
	}{
		{"leading eight", []string{"שם", "טלפון קווי 8975423541"}, "0975423541"},
		{"separators", []string{"טלפון קווי: 09-7654321"}, "097654321"},
		{"already zero", []string{"טלפון קווי 0975423541"}, "0975423541"},
		{"first match wins", []string{"טלפון קווי 031234567", "טלפון קווי 8999999999"}, "031234567"},
		{"label without digits then with", []string{"טלפון קווי", "טלפון קווי 041112222"}, "041112222"},
		{"stops at next field", []string{"טלפון קווי 8975423541 טלפון נייד 0501234567"}, "0975423541"},
		{"spaced groups", []string{"טלפון קווי 03 123 4567"}, "031234567"},
		{"two numbers stay apart", []string{"טלפון קווי 03 1234567 050 1234567"}, "031234567"},
		{"second number after text", []string{"טלפון קווי 04-8123456 או 050-1234567"}, "048123456"},
		{"absent", []string{"טלפון נייד 0501234567"}, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, extract(t, textDoc(tc.lines...)).LandlinePhone)
		})
	}
}

func TestJobType(t *testing.T) {
	cases := []struct {
		name  string
		lines []string
		want  string
	}{
		{"after connector with time", []string{intro, connector + " 12:00 ירקנייה"}, "ירקנייה"},
		{"between intro and connector", []string{intro, "מלצר", connector}, "מלצר"},
		{"label with colon", []string{"סוג העבודה: טבח"}, "טבח"},
		{"label with numeric value ignored", []string{"סוג העבודה: 123", "סוג העבודה", "נהג"}, "נהג"},
		{"bare label", []string{"סוג העבודה", "נהג משאית"}, "נהג משאית"},
		{"bare label before checkbox caption", []string{"סוג העבודה", "במפעל"}, ""},
		{"bare label before date", []string{"סוג העבודה", "בתאריך 01/02/2023"}, ""},
		{"bare label before time label", []string{"סוג העבודה", "שעת הפגיעה"}, ""},
		{"date after connector rejected", []string{intro, connector + " 14/04/1999"}, ""},
		{"digits after connector rejected", []string{intro, connector + " 2023"}, ""},
		{"pattern beats bare label", []string{"סוג העבודה", "נהג", intro, connector + " מלצר"}, "מלצר"},
		{"nothing", []string{"שם פרטי", "ישראל"}, ""},
		{"bare label value as read", []string{"סוג העבודה", "רו״ח  בכיר"}, "רו״ח  בכיר"},
		{"colon value as read", []string{"סוג העבודה:  עו״ד"}, "עו״ד"},
		{"connector value as read", []string{intro, connector + " 08:00 מנהל  מח׳"}, "מנהל  מח׳"},
		{"between lines as read", []string{intro, " ראש צוות  \"פיתוח\" ", connector}, "ראש צוות  \"פיתוח\""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, extract(t, textDoc(tc.lines...)).JobType)
		})
	}
}

func accidentDoc(marks ...ocr.SelectionMark) *ocr.Document {
	return &ocr.Document{Pages: []ocr.Page{{
		Number: 1, Width: 8.5, Height: 11,
		Lines: []ocr.Line{
			line("במפעל", 7.1, 6.4),
			line("ת. דרכים בעבודה", 5.1, 6.4),
			line("תאונה בדרך ללא רכב", 3.1, 6.4),
			line("אחר", 1.1, 6.4),
		},
		SelectionMarks: marks,
	}}}
}

func TestAccidentLocation(t *testing.T) {
	t.Run("selected in band", func(t *testing.T) {
		assert.Equal(t, "במפעל", extract(t, accidentDoc(mark(true, 0.5, 7.45, 6.4))).AccidentLocation)
	})
	t.Run("nearest caption wins", func(t *testing.T) {
		assert.Equal(t, "אחר", extract(t, accidentDoc(mark(false, 0.9, 7.45, 6.4), mark(true, 0.9, 1.45, 6.4))).AccidentLocation)
	})
	t.Run("first selected mark wins", func(t *testing.T) {
		r := extract(t, accidentDoc(mark(true, 0.9, 5.45, 6.4), mark(true, 0.9, 1.45, 6.4)))
		assert.Equal(t, "ת. דרכים בעבודה", r.AccidentLocation)
	})
	t.Run("out of band", func(t *testing.T) {
		assert.Empty(t, extract(t, accidentDoc(mark(true, 0.99, 7.45, 5.5))).AccidentLocation)
	})
	t.Run("nothing selected", func(t *testing.T) {
		assert.Empty(t, extract(t, accidentDoc(mark(false, 0.99, 7.45, 6.4))).AccidentLocation)
	})
}

// A mark's closest caption names it; option_order would instead take the
// first declared option anywhere in the nearby text.
func TestAccidentLocationMatchModes(t *testing.T) {
	doc := &ocr.Document{Pages: []ocr.Page{{
		Number: 1, Width: 8.5, Height: 11,
		Lines:          []ocr.Line{line("אחר", 1.1, 6.4), line("במפעל", 2.5, 6.4)},
		SelectionMarks: []ocr.SelectionMark{mark(true, 0.9, 1.45, 6.4)},
	}}}
	assert.Equal(t, "אחר", extract(t, doc).AccidentLocation)

	layout := DefaultLayout()
	layout.AccidentLocation.Match = MatchOptionOrder
	r := NewExtractor(layout, nil).Extract(context.Background(), doc)
	assert.Equal(t, "במפעל", r.AccidentLocation)
}

func fundDoc(extra []ocr.Line, marks ...ocr.SelectionMark) *ocr.Document {
	lines := []ocr.Line{
		line("כללית", 7.0, 9.9),
		line("מכבי", 5.0, 9.9),
		line("מאוחדת", 3.0, 9.9),
		line("לאומית", 1.0, 9.9),
	}
	return &ocr.Document{Pages: []ocr.Page{{
		Number: 1, Width: 8.5, Height: 11,
		Lines:          append(lines, extra...),
		SelectionMarks: marks,
	}}}
}

func TestHealthFundStrictPolicy(t *testing.T) {
	t.Run("single confident mark", func(t *testing.T) {
		assert.Equal(t, "מכבי", extract(t, fundDoc(nil, mark(true, 0.95, 5.35, 9.9))).HealthFundMember)
	})
	t.Run("two funds is ambiguous", func(t *testing.T) {
		r := extract(t, fundDoc(nil, mark(true, 0.95, 5.35, 9.9), mark(true, 0.95, 7.35, 9.9)))
		assert.Empty(t, r.HealthFundMember)
		assert.Contains(t, r.Reasoning[constants.FieldHealthFundMember][len(r.Reasoning[constants.FieldHealthFundMember])-1], "ambiguous")
	})
	t.Run("same fund twice resolves", func(t *testing.T) {
		r := extract(t, fundDoc(nil, mark(true, 0.95, 5.35, 9.9), mark(true, 0.91, 5.3, 9.95)))
		assert.Equal(t, "מכבי", r.HealthFundMember)
	})
	t.Run("low confidence", func(t *testing.T) {
		assert.Empty(t, extract(t, fundDoc(nil, mark(true, 0.89, 5.35, 9.9))).HealthFundMember)
	})
	t.Run("low confidence second mark is ignored", func(t *testing.T) {
		r := extract(t, fundDoc(nil, mark(true, 0.95, 5.35, 9.9), mark(true, 0.5, 7.35, 9.9)))
		assert.Equal(t, "מכבי", r.HealthFundMember)
	})
	t.Run("out of band", func(t *testing.T) {
		assert.Empty(t, extract(t, fundDoc(nil, mark(true, 0.99, 5.35, 9.0))).HealthFundMember)
	})
	t.Run("header hint is diagnostic only", func(t *testing.T) {
		r := extract(t, fundDoc([]ocr.Line{line("אל קופ\"ח/ביה\"ח כללית", 4, 0.5)}))
		assert.Empty(t, r.HealthFundMember)
		assert.Equal(t, "כללית", r.HealthFundHeaderHint)
		assert.NotContains(t, r.Overrides(), constants.FieldHealthFundMember)
	})
}

func TestExtractBadMarkDegradesGracefully(t *testing.T) {
	doc := fundDoc(nil,
		ocr.SelectionMark{State: ocr.Selected, Confidence: 0.99, Polygon: ocr.ParsePolygon([]byte(`[1,2,3]`))},
		mark(true, 0.95, 5.35, 9.9),
	)
	r := extract(t, doc)
	assert.Len(t, r.Marks, 1)
	assert.Equal(t, "מכבי", r.HealthFundMember)
}

func TestExtractDoesNotMutateDocument(t *testing.T) {
	doc := fundDoc([]ocr.Line{line("טלפון קווי 8975423541", 4, 3)}, mark(true, 0.95, 5.35, 9.9))
	before := *doc
	before.Pages = append([]ocr.Page(nil), doc.Pages...)
	before.Pages[0].Lines = append([]ocr.Line(nil), doc.Pages[0].Lines...)

	_ = extract(t, doc)
	assert.Equal(t, before.Pages[0].Lines, doc.Pages[0].Lines)
	assert.Equal(t, "טלפון קווי 8975423541", doc.Pages[0].Lines[4].Content)
}

func TestOverrides(t *testing.T) {
	r := &Result{LandlinePhone: "0975423541", AccidentLocation: "במפעל"}
	assert.Equal(t, map[string]string{
		constants.FieldLandlinePhone:    "0975423541",
		constants.FieldAccidentLocation: "במפעל",
	}, r.Overrides())
	assert.Empty(t, (*Result)(nil).Overrides())
}

func TestExtractNilDocument(t *testing.T) {
	r := NewExtractor(DefaultLayout(), nil).Extract(context.Background(), nil)
	assert.Empty(t, r.Overrides())
}

func TestLoadLayout(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "layout.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: clinic-variant
health_fund:
  band: {min_y: 9.0, max_y: 9.5}
  min_confidence: 0.8
`), 0o644))

	l, err := LoadLayout(path)
	require.NoError(t, err)
	assert.Equal(t, "clinic-variant", l.Name)
	assert.Equal(t, 0.8, l.HealthFund.MinConfidence)
	assert.Equal(t, 9.0, l.HealthFund.Band.MinY)
	assert.Equal(t, PolicyUnique, l.HealthFund.Policy)
	assert.Equal(t, HealthFunds, l.HealthFund.Options)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("accident_location:\n  policy: majority\n"), 0o644))
	_, err = LoadLayout(bad)
	assert.ErrorContains(t, err, "unknown policy")

	l, err = LoadLayout("")
	require.NoError(t, err)
	assert.Equal(t, DefaultLayout().Name, l.Name)
}
