package main

import (
	"context"
	"net/http"
	"os"
	"path/filepath"

	"github.com/joseph-ayodele/claims-extractor/internal/common"
	"github.com/joseph-ayodele/claims-extractor/internal/extract"
	"github.com/joseph-ayodele/claims-extractor/internal/llm"
	"github.com/joseph-ayodele/claims-extractor/internal/llm/openai"
	"github.com/joseph-ayodele/claims-extractor/internal/ocr"
	"github.com/joseph-ayodele/claims-extractor/internal/ocr/azure"
	"github.com/joseph-ayodele/claims-extractor/internal/pipeline"
	"github.com/joseph-ayodele/claims-extractor/internal/repository"
)

// store is the optional job store; both fields are nil without a DSN.
type store struct {
	db   *repository.DB
	jobs repository.ExtractJobRepository
}

func (s store) Close() {
	if s.db != nil {
		s.db.Close()
	}
}

func (s store) health(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	return s.db.HealthCheck(ctx, cfg.Store.DialTimeout)
}

func openStore(ctx context.Context, required bool) (store, error) {
	if cfg.Store.DSN == "" {
		if required {
			return store{}, common.NewAppError(common.CodeConfig, "DB_URL is required for this command", common.ErrInvalidInput)
		}
		logger.Info("store.disabled", "reason", "no DSN configured")
		return store{}, nil
	}
	db, err := repository.Open(ctx, cfg.Store, logger)
	if err != nil {
		return store{}, err
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return store{}, err
	}
	return store{db: db, jobs: repository.NewExtractJobRepository(db, logger)}, nil
}

// newAnalyzer returns the layout client, or a replay of a saved result.
func newAnalyzer(replayPath, saveDir string) (ocr.Analyzer, error) {
	if replayPath != "" {
		return azure.ReplayAnalyzer{Path: replayPath}, nil
	}
	if err := cfg.ValidateOCR(); err != nil {
		return nil, err
	}
	opts := []azure.Option{
		azure.WithClient(&http.Client{Timeout: cfg.OCR.Timeout}),
		azure.WithToken(cfg.OCR.APIKey),
		azure.WithAPIVersion(cfg.OCR.APIVersion),
		azure.WithModel(cfg.OCR.Model),
		azure.WithPolling(cfg.OCR.PollInterval, cfg.OCR.PollAttempts),
		azure.WithLogger(logger),
	}
	if saveDir != "" {
		if err := os.MkdirAll(saveDir, 0o755); err != nil {
			return nil, common.NewAppError(common.CodeConfig, "create OCR save dir", err)
		}
		opts = append(opts, azure.WithResultSink(func(name string, raw []byte) {
			path := filepath.Join(saveDir, name+".ocr.json")
			if err := azure.SaveResult(path, raw); err != nil {
				logger.Warn("ocr.save.failed", "path", path, "error", err)
				return
			}
			logger.Info("ocr.save.ok", "path", path)
		}))
	}
	return azure.New(cfg.OCR.Endpoint, opts...)
}

func newFieldExtractor() (llm.FieldExtractor, error) {
	if err := cfg.ValidateLLM(); err != nil {
		return nil, err
	}
	c := cfg.LLM
	oc := openai.Config{Timeout: c.Timeout, Deployment: c.Model, APIKey: c.OpenAIKey}
	if c.UsesAzureOpenAI() {
		oc = openai.Config{
			Endpoint:   c.Endpoint,
			APIKey:     c.APIKey,
			APIVersion: c.APIVersion,
			Deployment: c.Deployment,
			Timeout:    c.Timeout,
		}
	}
	client := openai.NewClient(oc, logger)
	return llm.NewModelExtractor(client, logger,
		llm.WithTemperature(c.Temperature),
		llm.WithStrictSchema(!c.Lenient),
	), nil
}

func newProcessor(analyzer ocr.Analyzer, jobs repository.ExtractJobRepository) (*pipeline.Processor, error) {
	fields, err := newFieldExtractor()
	if err != nil {
		return nil, err
	}
	layout, err := extract.LoadLayout(cfg.Pipeline.LayoutPath)
	if err != nil {
		return nil, common.NewAppError(common.CodeConfig, "load form layout", err)
	}
	var opts []pipeline.Option
	if jobs != nil {
		opts = append(opts, pipeline.WithJobs(jobs))
	}
	return pipeline.NewProcessor(logger, analyzer, fields, extract.NewExtractor(layout, logger), opts...), nil
}
