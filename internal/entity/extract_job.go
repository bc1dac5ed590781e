package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/claims-extractor/constants"
)

// ExtractJob is one tracked run of the pipeline over a file.
type ExtractJob struct {
	ID           uuid.UUID           `json:"id"`
	SourcePath   string              `json:"source_path"`
	ContentHash  string              `json:"content_hash"` // hex sha256
	Status       constants.JobStatus `json:"status"`
	ErrorMessage string              `json:"error_message,omitempty"`
	PageCount    int                 `json:"page_count"`
	OCRPayload   string              `json:"ocr_payload,omitempty"`
	LLMJSON      json.RawMessage     `json:"llm_json,omitempty"`
	DirectJSON   json.RawMessage     `json:"direct_json,omitempty"`
	RecordJSON   json.RawMessage     `json:"record_json,omitempty"`
	Issues       []string            `json:"issues,omitempty"`
	StartedAt    time.Time           `json:"started_at"`
	FinishedAt   *time.Time          `json:"finished_at,omitempty"`
}
