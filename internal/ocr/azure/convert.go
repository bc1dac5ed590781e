package azure

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/joseph-ayodele/claims-extractor/internal/ocr"
)

// ToDocument maps an analyze result onto ocr.Document. Tables are attached
// to the page of their first bounding region (page 1 when absent).
func ToDocument(r *AnalyzeResult) *ocr.Document {
	doc := &ocr.Document{
		ModelID: r.ModelID,
		Content: r.Content,
		Pages:   make([]ocr.Page, 0, len(r.Pages)),
	}
	byNumber := map[int]int{}
	for i, p := range r.Pages {
		page := ocr.Page{
			Number: p.PageNumber,
			Width:  p.Width,
			Height: p.Height,
			Unit:   p.Unit,
			Lines:  make([]ocr.Line, 0, len(p.Lines)),
		}
		if page.Number == 0 {
			page.Number = i + 1
		}
		for _, l := range p.Lines {
			page.Lines = append(page.Lines, ocr.Line{Content: l.Content, Polygon: l.Polygon})
		}
		for _, m := range p.SelectionMarks {
			page.SelectionMarks = append(page.SelectionMarks, ocr.SelectionMark{
				State:      ocr.MarkState(strings.ToLower(m.State)),
				Confidence: m.Confidence,
				Polygon:    m.Polygon,
			})
		}
		byNumber[page.Number] = len(doc.Pages)
		doc.Pages = append(doc.Pages, page)
	}

	for _, t := range r.Tables {
		table := ocr.Table{RowCount: t.RowCount, ColumnCount: t.ColumnCount}
		for _, c := range t.Cells {
			cell := ocr.Cell{
				RowIndex:    c.RowIndex,
				ColumnIndex: c.ColumnIndex,
				RowSpan:     max(c.RowSpan, 1),
				ColumnSpan:  max(c.ColumnSpan, 1),
				Content:     c.Content,
			}
			if len(c.BoundingRegions) > 0 {
				cell.Polygon = c.BoundingRegions[0].Polygon
			}
			table.Cells = append(table.Cells, cell)
		}
		pageNo := 1
		if len(t.BoundingRegions) > 0 && t.BoundingRegions[0].PageNumber > 0 {
			pageNo = t.BoundingRegions[0].PageNumber
		}
		idx, ok := byNumber[pageNo]
		if !ok {
			if len(doc.Pages) == 0 {
				doc.Pages = append(doc.Pages, ocr.Page{Number: pageNo})
				byNumber[pageNo] = 0
			}
			idx = 0
		}
		doc.Pages[idx].Tables = append(doc.Pages[idx].Tables, table)
	}

	doc.Normalize()
	return doc
}

// DecodeResult reads either an operation envelope ({"status", "analyzeResult"})
// or a bare analyzeResult, as saved by WithResultSink.
func DecodeResult(r io.Reader) (*ocr.Document, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read analyze result: %w", err)
	}
	raw = bytes.TrimSpace(raw)

	var op AnalyzeOperation
	if err := json.Unmarshal(raw, &op); err != nil {
		return nil, fmt.Errorf("decode analyze result: %w", err)
	}
	if op.Result != nil {
		if op.Status != "" && op.Status != OperationStatusSucceeded {
			return nil, fmt.Errorf("saved operation status %q", op.Status)
		}
		return ToDocument(op.Result), nil
	}

	var res AnalyzeResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("decode analyze result: %w", err)
	}
	if res.Pages == nil && res.Content == "" {
		return nil, fmt.Errorf("decode analyze result: no pages or content")
	}
	return ToDocument(&res), nil
}
