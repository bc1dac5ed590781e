package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/claims-extractor/constants"
	"github.com/joseph-ayodele/claims-extractor/internal/common"
	"github.com/joseph-ayodele/claims-extractor/internal/entity"
)

type ExtractJobRepository interface {
	Start(ctx context.Context, sourcePath, contentHash string, pageCount int) (*entity.ExtractJob, error)
	FinishOCR(ctx context.Context, jobID uuid.UUID, payload string) error
	FinishLLM(ctx context.Context, jobID uuid.UUID, llmJSON []byte) error
	FinishSuccess(ctx context.Context, jobID uuid.UUID, out SuccessOutcome) error
	FinishFailure(ctx context.Context, jobID uuid.UUID, message string) error
	GetByID(ctx context.Context, jobID uuid.UUID) (*entity.ExtractJob, error)
	FindDoneByHash(ctx context.Context, contentHash string) (*entity.ExtractJob, error)
	ListDone(ctx context.Context, limit int) ([]*entity.ExtractJob, error)
}

// SuccessOutcome is what a finished run persists.
type SuccessOutcome struct {
	DirectJSON []byte
	RecordJSON []byte
	Issues     []string
}

type extractJobRepo struct {
	db  *DB
	log *slog.Logger
	now func() time.Time
}

func NewExtractJobRepository(db *DB, log *slog.Logger) ExtractJobRepository {
	if log == nil {
		log = slog.Default()
	}
	return &extractJobRepo{db: db, log: log, now: func() time.Time { return time.Now().UTC() }}
}

var jobColumns = []string{
	"id", "source_path", "content_hash", "status", "error_message", "page_count",
	"ocr_payload", "llm_json", "direct_json", "record_json", "issues_json",
	"started_at", "finished_at",
}

// timeLayout is fixed-width so text comparison orders timestamps.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func (r *extractJobRepo) stamp() string {
	return r.now().UTC().Format(timeLayout)
}

func (r *extractJobRepo) Start(ctx context.Context, sourcePath, contentHash string, pageCount int) (*entity.ExtractJob, error) {
	job := &entity.ExtractJob{
		ID:          uuid.New(),
		SourcePath:  sourcePath,
		ContentHash: contentHash,
		Status:      constants.JobStatusRunning,
		PageCount:   pageCount,
	}
	started := r.stamp()
	job.StartedAt, _ = time.Parse(timeLayout, started)

	query, args := r.db.builder().Insert(jobsTable).
		Columns("id", "source_path", "content_hash", "status", "page_count", "started_at").
		Values(job.ID.String(), sourcePath, contentHash, string(job.Status), pageCount, started).
		Query()
	if err := r.db.Driver.Exec(ctx, query, args, nil); err != nil {
		r.log.Error("extract_job.start.failed", "source_path", sourcePath, "error", err)
		return nil, storeError("start job", err)
	}
	r.log.Info("extract_job.started", "job_id", job.ID, "source_path", sourcePath)
	return job, nil
}

func (r *extractJobRepo) FinishOCR(ctx context.Context, jobID uuid.UUID, payload string) error {
	return r.update(ctx, jobID, constants.JobStatusOCROK, map[string]any{"ocr_payload": payload})
}

func (r *extractJobRepo) FinishLLM(ctx context.Context, jobID uuid.UUID, llmJSON []byte) error {
	return r.update(ctx, jobID, constants.JobStatusLLMOK, map[string]any{"llm_json": string(llmJSON)})
}

func (r *extractJobRepo) FinishSuccess(ctx context.Context, jobID uuid.UUID, out SuccessOutcome) error {
	issues, err := json.Marshal(out.Issues)
	if err != nil {
		return fmt.Errorf("encode issues: %w", err)
	}
	return r.update(ctx, jobID, constants.JobStatusDone, map[string]any{
		"direct_json": string(out.DirectJSON),
		"record_json": string(out.RecordJSON),
		"issues_json": string(issues),
		"finished_at": r.stamp(),
	})
}

func (r *extractJobRepo) FinishFailure(ctx context.Context, jobID uuid.UUID, message string) error {
	err := r.update(ctx, jobID, constants.JobStatusFailed, map[string]any{
		"error_message": message,
		"finished_at":   r.stamp(),
	})
	if err == nil {
		r.log.Warn("extract_job.failed", "job_id", jobID, "error", message)
	}
	return err
}

func (r *extractJobRepo) update(ctx context.Context, jobID uuid.UUID, status constants.JobStatus, cols map[string]any) error {
	u := r.db.builder().Update(jobsTable).Set("status", string(status))
	// fixed column order keeps generated statements stable
	for _, c := range jobColumns {
		if v, ok := cols[c]; ok {
			u.Set(c, v)
		}
	}
	query, args := u.Where(entsql.EQ("id", jobID.String())).Query()

	var res sql.Result
	if err := r.db.Driver.Exec(ctx, query, args, &res); err != nil {
		r.log.Error("extract_job.update.failed", "job_id", jobID, "status", status, "error", err)
		return storeError("update job", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("job %s: %w", jobID, common.ErrNotFound)
	}
	r.log.Debug("extract_job.updated", "job_id", jobID, "status", status)
	return nil
}

func (r *extractJobRepo) GetByID(ctx context.Context, jobID uuid.UUID) (*entity.ExtractJob, error) {
	jobs, err := r.query(ctx, func(s *entsql.Selector) {
		s.Where(entsql.EQ("id", jobID.String()))
	})
	if err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		return nil, fmt.Errorf("job %s: %w", jobID, common.ErrNotFound)
	}
	return jobs[0], nil
}

// FindDoneByHash returns the latest DONE job for the content hash.
func (r *extractJobRepo) FindDoneByHash(ctx context.Context, contentHash string) (*entity.ExtractJob, error) {
	jobs, err := r.query(ctx, func(s *entsql.Selector) {
		s.Where(entsql.And(
			entsql.EQ("content_hash", contentHash),
			entsql.EQ("status", string(constants.JobStatusDone)),
		)).OrderBy(entsql.Desc("finished_at")).Limit(1)
	})
	if err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		return nil, fmt.Errorf("hash %s: %w", contentHash, common.ErrNotFound)
	}
	return jobs[0], nil
}

// ListDone returns DONE jobs, oldest first. limit <= 0 means all.
func (r *extractJobRepo) ListDone(ctx context.Context, limit int) ([]*entity.ExtractJob, error) {
	return r.query(ctx, func(s *entsql.Selector) {
		s.Where(entsql.EQ("status", string(constants.JobStatusDone))).OrderBy("finished_at", "id")
		if limit > 0 {
			s.Limit(limit)
		}
	})
}

func (r *extractJobRepo) query(ctx context.Context, where func(*entsql.Selector)) ([]*entity.ExtractJob, error) {
	sel := r.db.builder().Select(jobColumns...).From(entsql.Table(jobsTable))
	where(sel)
	query, args := sel.Query()

	var rows entsql.Rows
	if err := r.db.Driver.Query(ctx, query, args, &rows); err != nil {
		return nil, storeError("query jobs", err)
	}
	defer rows.Close()

	var out []*entity.ExtractJob
	for rows.Next() {
		job, err := scanJob(&rows)
		if err != nil {
			return nil, storeError("scan job", err)
		}
		out = append(out, job)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("iterate jobs", err)
	}
	return out, nil
}

func scanJob(rows *entsql.Rows) (*entity.ExtractJob, error) {
	var (
		id, source, hash, status, started    string
		errMsg, payload, llmJSON, directJSON sql.NullString
		recordJSON, issuesJSON, finished     sql.NullString
		pages                                int
	)
	if err := rows.Scan(&id, &source, &hash, &status, &errMsg, &pages,
		&payload, &llmJSON, &directJSON, &recordJSON, &issuesJSON, &started, &finished); err != nil {
		return nil, err
	}
	jobID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("job id %q: %w", id, err)
	}
	job := &entity.ExtractJob{
		ID:           jobID,
		SourcePath:   source,
		ContentHash:  hash,
		Status:       constants.JobStatus(status),
		ErrorMessage: errMsg.String,
		PageCount:    pages,
		OCRPayload:   payload.String,
		LLMJSON:      rawJSON(llmJSON),
		DirectJSON:   rawJSON(directJSON),
		RecordJSON:   rawJSON(recordJSON),
	}
	if job.StartedAt, err = time.Parse(timeLayout, started); err != nil {
		return nil, fmt.Errorf("started_at: %w", err)
	}
	if finished.Valid && finished.String != "" {
		t, err := time.Parse(timeLayout, finished.String)
		if err != nil {
			return nil, fmt.Errorf("finished_at: %w", err)
		}
		job.FinishedAt = &t
	}
	if issuesJSON.Valid && issuesJSON.String != "" {
		if err := json.Unmarshal([]byte(issuesJSON.String), &job.Issues); err != nil {
			return nil, fmt.Errorf("issues_json: %w", err)
		}
	}
	return job, nil
}

func rawJSON(s sql.NullString) json.RawMessage {
	if !s.Valid || s.String == "" {
		return nil
	}
	return json.RawMessage(s.String)
}

func storeError(op string, err error) error {
	if errors.Is(err, common.ErrNotFound) {
		return err
	}
	return common.NewAppError(common.CodeStore, op, errors.Join(common.ErrDatabase, err))
}
