package constants

// JobStatus is the canonical status for rows in extract_job.
type JobStatus string

// Stable values (store these exact strings in DB).
const (
	JobStatusRunning JobStatus = "RUNNING" // in progress
	JobStatusOCROK   JobStatus = "OCR_OK"  // layout analysis stored
	JobStatusLLMOK   JobStatus = "LLM_OK"  // model extraction stored
	JobStatusDone    JobStatus = "DONE"    // record reconciled and validated
	JobStatusFailed  JobStatus = "FAILED"  // terminal failure
)

// Terminal reports whether no further transition is expected.
func (s JobStatus) Terminal() bool {
	return s == JobStatusDone || s == JobStatusFailed
}
