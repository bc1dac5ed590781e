package azure

import "github.com/joseph-ayodele/claims-extractor/internal/ocr"

type OperationStatus string

const (
	OperationStatusSucceeded  OperationStatus = "succeeded"
	OperationStatusRunning    OperationStatus = "running"
	OperationStatusNotStarted OperationStatus = "notStarted"
	OperationStatusFailed     OperationStatus = "failed"
)

type AnalyzeOperation struct {
	Status OperationStatus `json:"status"`
	Error  *ErrorDetail    `json:"error,omitempty"`

	Result *AnalyzeResult `json:"analyzeResult,omitempty"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type AnalyzeResult struct {
	ModelID string `json:"modelId"`

	Content string  `json:"content"`
	Pages   []Page  `json:"pages"`
	Tables  []Table `json:"tables"`
}

type Page struct {
	PageNumber int `json:"pageNumber"`

	Unit   string  `json:"unit"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`

	Lines          []Line          `json:"lines"`
	SelectionMarks []SelectionMark `json:"selectionMarks"`
}

// Polygons decode through ocr.Polygon, which accepts flat, point-object and
// pair encodings.
type Line struct {
	Content string      `json:"content"`
	Polygon ocr.Polygon `json:"polygon"`
}

type SelectionMark struct {
	State      string      `json:"state"`
	Polygon    ocr.Polygon `json:"polygon"`
	Confidence float64     `json:"confidence"`
}

type BoundingRegion struct {
	PageNumber int         `json:"pageNumber"`
	Polygon    ocr.Polygon `json:"polygon"`
}

type Table struct {
	RowCount        int              `json:"rowCount"`
	ColumnCount     int              `json:"columnCount"`
	Cells           []Cell           `json:"cells"`
	BoundingRegions []BoundingRegion `json:"boundingRegions"`
}

type Cell struct {
	Kind            string           `json:"kind"`
	RowIndex        int              `json:"rowIndex"`
	ColumnIndex     int              `json:"columnIndex"`
	RowSpan         int              `json:"rowSpan"`
	ColumnSpan      int              `json:"columnSpan"`
	Content         string           `json:"content"`
	BoundingRegions []BoundingRegion `json:"boundingRegions"`
}
