package ocr

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// DefaultNearbyRadius is the radius used when annotating selection marks.
const DefaultNearbyRadius = 100.0

// FormatPayload serializes d into the text block handed to the model: full
// text first, then per page the selection marks (with nearby text), the
// positioned lines, and finally every table with cell coordinates.
// No field inference happens here.
func FormatPayload(d *Document, radius float64) string {
	if d == nil {
		return ""
	}
	if radius <= 0 {
		radius = DefaultNearbyRadius
	}
	var b strings.Builder

	if d.Content != "" {
		fmt.Fprintf(&b, "Full Document Text:\n%s\n\n", d.Content)
	}
	b.WriteString("---- STRUCTURED CONTENT WITH LAYOUT INFO ----\n")

	for i, page := range d.Pages {
		fmt.Fprintf(&b, "\n---- Page %d ----\n", i+1)
		fmt.Fprintf(&b, "Page Dimensions: Width=%s, Height=%s\n\n", num(page.Width), num(page.Height))
		writeMarks(&b, page, radius)
		writeLines(&b, page)
	}

	if tables := d.Tables(); len(tables) > 0 {
		b.WriteString("\n---- TABLES WITH STRUCTURE ----\n")
		for i, t := range tables {
			fmt.Fprintf(&b, "\nTable %d:\n", i+1)
			writeTable(&b, t)
		}
	}
	return b.String()
}

func writeMarks(b *strings.Builder, page Page, radius float64) {
	if len(page.SelectionMarks) == 0 {
		return
	}
	b.WriteString("SELECTION MARKS (CHECKBOXES/RADIO BUTTONS):\n")
	for i, m := range page.SelectionMarks {
		pos := "position unknown"
		if len(m.Polygon) > 0 {
			pos = fmt.Sprintf("[x=%.1f,y=%.1f]", m.Polygon[0].X, m.Polygon[0].Y)
		}
		state := "UNSELECTED"
		if m.IsSelected() {
			state = "SELECTED"
		}
		fmt.Fprintf(b, "Selection Mark %d: %s at %s - Nearby text: '%s'\n",
			i+1, state, pos, NearbyText(m, page.Lines, radius))
	}
	b.WriteString("\n")
}

func writeLines(b *strings.Builder, page Page) {
	if len(page.Lines) == 0 {
		return
	}
	b.WriteString("TEXT LINES WITH POSITION:\n")
	for i, l := range page.Lines {
		if r, ok := l.Polygon.Bounds(); ok && len(l.Polygon) >= 2 {
			fmt.Fprintf(b, "Line %d [x=%.1f,y=%.1f,w=%.1f,h=%.1f]: '%s'\n",
				i+1, r.Left, r.Top, r.Width, r.Height, l.Content)
			continue
		}
		fmt.Fprintf(b, "Line %d: '%s'\n", i+1, l.Content)
	}
}

func writeTable(b *strings.Builder, t Table) {
	if len(t.Cells) == 0 {
		b.WriteString("Table Dimensions: unknown\n")
		return
	}
	maxRow, maxCol := 0, 0
	rows := map[int][]Cell{}
	for _, c := range t.Cells {
		maxRow = max(maxRow, c.RowIndex)
		maxCol = max(maxCol, c.ColumnIndex)
		rows[c.RowIndex] = append(rows[c.RowIndex], c)
	}
	fmt.Fprintf(b, "Table Dimensions: %d rows x %d columns\n", maxRow+1, maxCol+1)

	idx := make([]int, 0, len(rows))
	for r := range rows {
		idx = append(idx, r)
	}
	sort.Ints(idx)
	for _, r := range idx {
		cells := rows[r]
		sort.SliceStable(cells, func(i, j int) bool { return cells[i].ColumnIndex < cells[j].ColumnIndex })
		parts := make([]string, len(cells))
		for i, c := range cells {
			parts[i] = fmt.Sprintf("Col %d: %s", c.ColumnIndex, cellInfo(c))
		}
		fmt.Fprintf(b, "Row %d: %s\n", r, strings.Join(parts, " | "))
	}
}

func cellInfo(c Cell) string {
	var meta []string
	if r, ok := c.Polygon.Bounds(); ok {
		meta = append(meta, fmt.Sprintf("[x=%.1f,y=%.1f]", r.Left, r.Top))
	}
	if c.RowSpan > 1 {
		meta = append(meta, fmt.Sprintf("rowspan=%d", c.RowSpan))
	}
	if c.ColumnSpan > 1 {
		meta = append(meta, fmt.Sprintf("colspan=%d", c.ColumnSpan))
	}
	return strings.Join(meta, " ") + ": " + c.Content
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
