package ocr

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Hebrew punctuation the OCR service emits interchangeably with ASCII quotes.
var quoteFolder = strings.NewReplacer(
	"״", `"`, // gershayim
	"׳", "'", // geresh
	"“", `"`,
	"”", `"`,
	"’", "'",
)

// NormalizeText composes to NFC. Applied to every string at ingestion so
// label matching sees one byte sequence per glyph.
func NormalizeText(s string) string {
	return norm.NFC.String(s)
}

// FoldForMatch is the comparison key used by label and option matching:
// NFC, bidi controls removed, Hebrew quotes folded to ASCII, whitespace collapsed.
func FoldForMatch(s string) string {
	t := transform.Chain(runes.Remove(runes.In(unicode.Bidi_Control)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = norm.NFC.String(s)
	}
	out = quoteFolder.Replace(out)
	return strings.Join(strings.Fields(out), " ")
}

// Normalize rewrites every text field of d to NFC in place. Analyzers call
// it before returning a document.
func (d *Document) Normalize() {
	d.Content = NormalizeText(d.Content)
	for pi := range d.Pages {
		p := &d.Pages[pi]
		for li := range p.Lines {
			p.Lines[li].Content = NormalizeText(p.Lines[li].Content)
		}
		for ti := range p.Tables {
			cells := p.Tables[ti].Cells
			for ci := range cells {
				cells[ci].Content = NormalizeText(cells[ci].Content)
			}
		}
	}
}
