package ocr

// MarkState is the checkbox state reported by the layout service.
type MarkState string

const (
	Selected   MarkState = "selected"
	Unselected MarkState = "unselected"
)

// Point is a coordinate in page units (inches for PDFs, pixels for images).
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Polygon is the canonical vertex list. A nil polygon means "no geometry".
type Polygon []Point

// Line is one OCR text line.
type Line struct {
	Content string  `json:"content"`
	Polygon Polygon `json:"polygon,omitempty"`
}

// SelectionMark is a detected checkbox or radio button.
type SelectionMark struct {
	State      MarkState `json:"state"`
	Confidence float64   `json:"confidence"`
	Polygon    Polygon   `json:"polygon,omitempty"`
}

// IsSelected is case-insensitive; services have used both "selected" and "SELECTED".
func (m SelectionMark) IsSelected() bool {
	return m.State == Selected || m.State == "SELECTED"
}

// Cell is one table cell. Spans default to 1.
type Cell struct {
	RowIndex    int     `json:"rowIndex"`
	ColumnIndex int     `json:"columnIndex"`
	RowSpan     int     `json:"rowSpan,omitempty"`
	ColumnSpan  int     `json:"columnSpan,omitempty"`
	Content     string  `json:"content"`
	Polygon     Polygon `json:"polygon,omitempty"`
}

// Table groups cells; RowCount/ColumnCount are as reported and may be zero.
type Table struct {
	RowCount    int    `json:"rowCount,omitempty"`
	ColumnCount int    `json:"columnCount,omitempty"`
	Cells       []Cell `json:"cells"`
}

// Page is one physical page in document order.
type Page struct {
	Number         int             `json:"pageNumber"`
	Width          float64         `json:"width"`
	Height         float64         `json:"height"`
	Unit           string          `json:"unit,omitempty"`
	Lines          []Line          `json:"lines"`
	Tables         []Table         `json:"tables,omitempty"`
	SelectionMarks []SelectionMark `json:"selectionMarks,omitempty"`
}

// Document is the analysis result for one file. Treat it as read-only once
// an Analyzer has returned it.
type Document struct {
	ModelID string `json:"modelId,omitempty"`
	Content string `json:"content"`
	Pages   []Page `json:"pages"`
}

// Tables returns every table in page order.
func (d *Document) Tables() []Table {
	var out []Table
	for _, p := range d.Pages {
		out = append(out, p.Tables...)
	}
	return out
}

// Lines returns every line in page order.
func (d *Document) Lines() []Line {
	var out []Line
	for _, p := range d.Pages {
		out = append(out, p.Lines...)
	}
	return out
}

// MarkCount is the number of selection marks across pages.
func (d *Document) MarkCount() int {
	n := 0
	for _, p := range d.Pages {
		n += len(p.SelectionMarks)
	}
	return n
}
