// Package extract derives the checkbox-driven and spatially detached fields
// of a claim form straight from layout geometry, without the model.
package extract

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/claims-extractor/constants"
	"github.com/joseph-ayodele/claims-extractor/internal/common"
	"github.com/joseph-ayodele/claims-extractor/internal/ocr"
)

// MarkInfo is a selection mark with resolved geometry.
type MarkInfo struct {
	Page        int       `json:"page"`
	Index       int       `json:"index"`
	Center      ocr.Point `json:"center"`
	Selected    bool      `json:"selected"`
	Confidence  float64   `json:"confidence"`
	NearbyText  string    `json:"nearbyText"`
	NearbyLines []string  `json:"-"`
}

// Result holds direct-extraction values. An empty string means the
// extractor abstained for that field.
type Result struct {
	LandlinePhone    string `json:"landlinePhone,omitempty"`
	JobType          string `json:"jobType,omitempty"`
	AccidentLocation string `json:"accidentLocation,omitempty"`
	HealthFundMember string `json:"healthFundMember,omitempty"`

	// HealthFundHeaderHint is a fund named in the form header. Diagnostic only.
	HealthFundHeaderHint string `json:"healthFundHeaderHint,omitempty"`

	Marks     []MarkInfo          `json:"marks"`
	Reasoning map[string][]string `json:"reasoning"`
}

// Overrides returns the resolved fields keyed by record field name.
func (r *Result) Overrides() map[string]string {
	out := map[string]string{}
	if r == nil {
		return out
	}
	for k, v := range map[string]string{
		constants.FieldLandlinePhone:    r.LandlinePhone,
		constants.FieldJobType:          r.JobType,
		constants.FieldAccidentLocation: r.AccidentLocation,
		constants.FieldHealthFundMember: r.HealthFundMember,
	} {
		if v != "" {
			out[k] = v
		}
	}
	return out
}

func (r *Result) note(field, format string, args ...any) {
	r.Reasoning[field] = append(r.Reasoning[field], fmt.Sprintf(format, args...))
}

// Extractor applies a Layout to analyzed documents. It never mutates the document.
type Extractor struct {
	layout Layout
	logger *slog.Logger
}

func NewExtractor(layout Layout, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if layout.NearbyRadius <= 0 {
		layout.NearbyRadius = ocr.DefaultNearbyRadius
	}
	return &Extractor{layout: layout, logger: logger}
}

func (e *Extractor) Layout() Layout { return e.layout }

// Extract runs the four field extractors. A failure inside one of them
// leaves that field empty; the others still run.
func (e *Extractor) Extract(ctx context.Context, doc *ocr.Document) *Result {
	log := common.LoggerFrom(ctx, e.logger).With("stage", "direct")
	res := &Result{Reasoning: map[string][]string{}}
	if doc == nil {
		return res
	}

	e.guard(log, res, constants.FieldLandlinePhone, func() {
		res.LandlinePhone = e.landlinePhone(doc, res)
	})
	e.guard(log, res, constants.FieldJobType, func() {
		res.JobType = e.jobType(doc, res)
	})

	res.Marks = e.collectMarks(log, doc)
	log.Debug("direct.marks.collected", "count", len(res.Marks))

	e.guard(log, res, constants.FieldAccidentLocation, func() {
		res.AccidentLocation = e.resolveGroup(log, res, constants.FieldAccidentLocation, e.layout.AccidentLocation, res.Marks)
	})
	e.guard(log, res, constants.FieldHealthFundMember, func() {
		res.HealthFundHeaderHint = e.headerFundHint(doc, res)
		if res.HealthFundHeaderHint != "" {
			log.Info("direct.health_fund.header_hint", "field", constants.FieldHealthFundMember, "hint", res.HealthFundHeaderHint)
		}
		res.HealthFundMember = e.resolveGroup(log, res, constants.FieldHealthFundMember, e.layout.HealthFund, res.Marks)
	})

	for field, value := range res.Overrides() {
		log.Info("direct.field.resolved", "field", field, "value", value)
	}
	return res
}

func (e *Extractor) guard(log *slog.Logger, res *Result, field string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("direct.field.panic", "field", field, "panic", fmt.Sprint(r))
			res.note(field, "extractor failed: %v", r)
		}
	}()
	fn()
}

// collectMarks resolves every mark's center and nearby text. Marks without
// usable geometry are skipped.
func (e *Extractor) collectMarks(log *slog.Logger, doc *ocr.Document) []MarkInfo {
	var out []MarkInfo
	for pi, page := range doc.Pages {
		pageNo := page.Number
		if pageNo == 0 {
			pageNo = pi + 1
		}
		for mi, m := range page.SelectionMarks {
			func() {
				defer func() {
					if r := recover(); r != nil {
						log.Warn("direct.mark.failed", "page", pageNo, "index", mi, "panic", fmt.Sprint(r))
					}
				}()
				c, ok := ocr.Center(m)
				if !ok {
					log.Debug("direct.mark.skipped", "page", pageNo, "index", mi, "reason", "no geometry")
					return
				}
				near := ocr.Nearby(m, page.Lines, e.layout.NearbyRadius, ocr.NearbyLimit)
				texts := make([]string, len(near))
				for i, l := range near {
					texts[i] = l.Content
				}
				out = append(out, MarkInfo{
					Page:        pageNo,
					Index:       mi,
					Center:      c,
					Selected:    m.IsSelected(),
					Confidence:  m.Confidence,
					NearbyText:  strings.Join(texts, ocr.NearbySeparator),
					NearbyLines: texts,
				})
			}()
		}
	}
	return out
}
