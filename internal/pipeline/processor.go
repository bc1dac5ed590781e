// Package pipeline runs one claim form through layout analysis, the model
// and direct extraction, then reconciles and validates the record.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/claims-extractor/internal/common"
	"github.com/joseph-ayodele/claims-extractor/internal/extract"
	"github.com/joseph-ayodele/claims-extractor/internal/ingest"
	"github.com/joseph-ayodele/claims-extractor/internal/llm"
	"github.com/joseph-ayodele/claims-extractor/internal/ocr"
	"github.com/joseph-ayodele/claims-extractor/internal/record"
	"github.com/joseph-ayodele/claims-extractor/internal/repository"
)

// Result is the outcome of one successful run.
type Result struct {
	JobID   uuid.UUID       `json:"job_id"`
	Form    record.Form     `json:"record"`
	Issues  []string        `json:"issues"`
	Direct  *extract.Result `json:"direct,omitempty"`
	Payload string          `json:"-"`
	LLMJSON json.RawMessage `json:"-"`
	// Cached is set when the record came from an earlier run on the same content.
	Cached bool `json:"cached,omitempty"`
}

// Processor coordinates analysis, extraction, reconciliation and validation.
type Processor struct {
	logger    *slog.Logger
	analyzer  ocr.Analyzer
	fields    llm.FieldExtractor
	direct    *extract.Extractor
	validator *record.Validator
	jobs      repository.ExtractJobRepository
	radius    float64
}

type Option func(*Processor)

// WithJobs tracks every run in the extract_job store and enables
// de-duplication by content hash.
func WithJobs(jobs repository.ExtractJobRepository) Option {
	return func(p *Processor) { p.jobs = jobs }
}

func NewProcessor(logger *slog.Logger, analyzer ocr.Analyzer, fields llm.FieldExtractor, direct *extract.Extractor, opts ...Option) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if direct == nil {
		direct = extract.NewExtractor(extract.DefaultLayout(), logger)
	}
	p := &Processor{
		logger:    logger,
		analyzer:  analyzer,
		fields:    fields,
		direct:    direct,
		validator: record.NewValidator(logger),
		radius:    ocr.DefaultNearbyRadius,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// ProcessPath loads the file at path and processes it.
func (p *Processor) ProcessPath(ctx context.Context, path string, force bool) (*Result, error) {
	ctx, _ = common.EnsureRequestID(ctx)
	doc, err := ingest.LoadFile(ctx, path, common.LoggerFrom(ctx, p.logger))
	if err != nil {
		return nil, err
	}
	return p.Process(ctx, doc, force)
}

// Process runs the pipeline over doc. Analysis and model failures abort the
// run; direct extraction degrades per field. Unless force is set, a file
// already processed to DONE returns the stored record.
func (p *Processor) Process(ctx context.Context, doc *ingest.Document, force bool) (*Result, error) {
	ctx, _ = common.EnsureRequestID(ctx)
	log := common.LoggerFrom(ctx, p.logger).With("source", doc.SourcePath)
	start := time.Now()

	if p.jobs != nil && !force {
		if res, ok := p.cached(ctx, log, doc.HashHex); ok {
			return res, nil
		}
	}

	jobID := p.startJob(ctx, log, doc)
	if jobID != uuid.Nil {
		ctx = common.WithJobID(ctx, jobID)
		log = log.With("job_id", jobID.String())
	}
	fail := func(err error) (*Result, error) {
		log.Error("pipeline.run.failed", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		if jobID != uuid.Nil {
			if jerr := p.jobs.FinishFailure(ctx, jobID, common.UserMessage(err)); jerr != nil {
				log.Warn("pipeline.job.update_failed", "error", jerr)
			}
		}
		return nil, err
	}

	log.Info("pipeline.run.start", "format", doc.Format, "pages", doc.PageCount)
	analyzed, err := p.analyzer.Analyze(ctx, doc.File())
	if err != nil {
		var appErr *common.AppError
		if !errors.As(err, &appErr) {
			err = common.NewAnalysisError("document analysis failed", err)
		}
		return fail(err)
	}
	if analyzed == nil {
		return fail(common.NewAnalysisError("document analysis returned no result", nil))
	}

	payload := ocr.FormatPayload(analyzed, p.radius)
	p.track(log, "ocr", func() error { return p.jobs.FinishOCR(ctx, jobID, payload) }, jobID)

	var (
		llmRecord record.Record
		llmRaw    []byte
		direct    *extract.Result
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		llmRecord, llmRaw, err = p.fields.ExtractFields(gctx, payload)
		return err
	})
	g.Go(func() error {
		direct = p.direct.Extract(gctx, analyzed)
		return nil
	})
	if err := g.Wait(); err != nil {
		return fail(err)
	}
	p.track(log, "llm", func() error { return p.jobs.FinishLLM(ctx, jobID, llmRaw) }, jobID)

	reconciled := record.Reconcile(log, llmRecord, direct.Overrides())
	validated, issues := p.validator.Validate(ctx, reconciled)
	res := &Result{
		JobID:   jobID,
		Form:    record.ToForm(validated),
		Issues:  issues,
		Direct:  direct,
		Payload: payload,
		LLMJSON: llmRaw,
	}

	p.track(log, "done", func() error {
		directJSON, err := json.Marshal(direct)
		if err != nil {
			return err
		}
		recordJSON, err := json.Marshal(res.Form)
		if err != nil {
			return err
		}
		return p.jobs.FinishSuccess(ctx, jobID, repository.SuccessOutcome{
			DirectJSON: directJSON,
			RecordJSON: recordJSON,
			Issues:     issues,
		})
	}, jobID)

	log.Info("pipeline.run.ok", "issues", len(issues), "overrides", len(direct.Overrides()), "elapsed_ms", time.Since(start).Milliseconds())
	return res, nil
}

func (p *Processor) cached(ctx context.Context, log *slog.Logger, hash string) (*Result, bool) {
	job, err := p.jobs.FindDoneByHash(ctx, hash)
	if err != nil {
		if !errors.Is(err, common.ErrNotFound) {
			log.Warn("pipeline.dedupe.lookup_failed", "error", err)
		}
		return nil, false
	}
	var form record.Form
	if err := json.Unmarshal(job.RecordJSON, &form); err != nil {
		log.Warn("pipeline.dedupe.decode_failed", "job_id", job.ID, "error", err)
		return nil, false
	}
	log.Info("pipeline.dedupe.hit", "job_id", job.ID)
	return &Result{JobID: job.ID, Form: form, Issues: job.Issues, Cached: true}, true
}

// startJob records the run. Tracking failures are logged and the run
// continues untracked.
func (p *Processor) startJob(ctx context.Context, log *slog.Logger, doc *ingest.Document) uuid.UUID {
	if p.jobs == nil {
		return uuid.Nil
	}
	job, err := p.jobs.Start(ctx, doc.SourcePath, doc.HashHex, doc.PageCount)
	if err != nil {
		log.Warn("pipeline.job.start_failed", "error", err)
		return uuid.Nil
	}
	return job.ID
}

func (p *Processor) track(log *slog.Logger, stage string, fn func() error, jobID uuid.UUID) {
	if jobID == uuid.Nil {
		return
	}
	if err := fn(); err != nil {
		log.Warn("pipeline.job.update_failed", "stage", stage, "error", err)
	}
}
