package extract

import (
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/claims-extractor/constants"
	"github.com/joseph-ayodele/claims-extractor/internal/ocr"
)

// resolveGroup picks the selected option of a checkbox group. Marks must be
// selected, inside the band and at or above the group's confidence floor.
func (e *Extractor) resolveGroup(log *slog.Logger, res *Result, field string, g CheckboxGroup, marks []MarkInfo) string {
	log = log.With("field", field)
	res.note(field, "looking for selected marks in y-range %.1f-%.1f (confidence >= %.2f)", g.Band.MinY, g.Band.MaxY, g.MinConfidence)

	var candidates []string
	for _, m := range marks {
		if !m.Selected || !g.Band.Contains(m.Page, m.Center.Y) {
			continue
		}
		if m.Confidence < g.MinConfidence {
			res.note(field, "ignored mark %d on page %d: confidence %.2f", m.Index, m.Page, m.Confidence)
			continue
		}
		opt := matchOption(g, m)
		if opt == "" {
			res.note(field, "mark %d at (%.2f, %.2f) names no option: '%s'", m.Index, m.Center.X, m.Center.Y, m.NearbyText)
			continue
		}
		res.note(field, "mark %d at (%.2f, %.2f) -> '%s' (nearby: '%s')", m.Index, m.Center.X, m.Center.Y, opt, m.NearbyText)
		if g.Policy == PolicyFirst {
			return opt
		}
		candidates = append(candidates, opt)
	}

	distinct := dedupe(candidates)
	switch {
	case len(distinct) == 1:
		return distinct[0]
	case len(distinct) == 0:
		res.note(field, "no eligible selected mark matched an option")
		log.Debug("direct.group.unresolved")
	default:
		res.note(field, "ambiguous: %s", strings.Join(distinct, ", "))
		log.Warn("direct.group.ambiguous", "candidates", distinct)
	}
	return ""
}

func matchOption(g CheckboxGroup, m MarkInfo) string {
	if g.Match == MatchNearestLine {
		for _, line := range m.NearbyLines {
			if opt := firstOption(g.Options, line); opt != "" {
				return opt
			}
		}
		return ""
	}
	return firstOption(g.Options, m.NearbyText)
}

func firstOption(options []string, text string) string {
	folded := ocr.FoldForMatch(text)
	for _, opt := range options {
		if strings.Contains(folded, ocr.FoldForMatch(opt)) {
			return opt
		}
	}
	return ""
}

// headerFundHint reports a fund printed in the addressee header line.
func (e *Extractor) headerFundHint(doc *ocr.Document, res *Result) string {
	header := ocr.FoldForMatch(e.layout.HealthFundHeader)
	if header == "" {
		return ""
	}
	for _, page := range doc.Pages {
		for _, line := range page.Lines {
			if !strings.Contains(ocr.FoldForMatch(line.Content), header) {
				continue
			}
			if fund := firstOption(e.layout.HealthFund.Options, line.Content); fund != "" {
				res.note(constants.FieldHealthFundMember, "header names '%s' (not used for resolution)", fund)
				return fund
			}
		}
	}
	return ""
}

func dedupe(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
