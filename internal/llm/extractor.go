package llm

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/claims-extractor/internal/common"
	"github.com/joseph-ayodele/claims-extractor/internal/record"
)

// ModelExtractor implements FieldExtractor over a Completer.
type ModelExtractor struct {
	completer   Completer
	logger      *slog.Logger
	temperature float64
	// strict rejects responses that violate the form schema.
	strict bool
	schema map[string]any
}

type ExtractorOption func(*ModelExtractor)

func WithTemperature(t float64) ExtractorOption {
	return func(e *ModelExtractor) { e.temperature = t }
}

// WithStrictSchema makes schema violations fatal instead of logged.
func WithStrictSchema(strict bool) ExtractorOption {
	return func(e *ModelExtractor) { e.strict = strict }
}

func NewModelExtractor(c Completer, logger *slog.Logger, opts ...ExtractorOption) *ModelExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	e := &ModelExtractor{
		completer: c,
		logger:    logger,
		schema:    BuildFormJSONSchema(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExtractFields sends the payload to the model and parses its JSON reply.
// A failed call is a CompletionError; an unusable reply is an ExtractionError.
func (e *ModelExtractor) ExtractFields(ctx context.Context, payload string) (record.Record, []byte, error) {
	log := common.LoggerFrom(ctx, e.logger).With("stage", "llm")
	start := time.Now()

	log.Info("llm.extract.start", "payload_len", len(payload), "temp", e.temperature)
	content, err := e.completer.Complete(ctx, CompletionRequest{
		System:      SystemPrompt,
		Prompt:      BuildPrompt(payload),
		Temperature: e.temperature,
		JSONMode:    true,
	})
	if err != nil {
		log.Error("llm.extract.call_failed", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		var appErr *common.AppError
		if errors.As(err, &appErr) {
			return nil, nil, err
		}
		return nil, nil, common.NewCompletionError("completion call failed", err)
	}

	raw, err := NormalizeModelJSON(content)
	if err != nil {
		log.Error("llm.extract.decode_failed", "error", err, "content_len", len(content))
		return nil, nil, common.NewExtractionError("model returned invalid JSON", err)
	}

	if vErr := ValidateJSONAgainstSchema(e.schema, raw); vErr != nil {
		if e.strict {
			log.Error("llm.extract.schema_validation_failed", "error", vErr)
			return nil, raw, common.NewExtractionError("model JSON does not match the form schema", vErr)
		}
		// the validator repairs shape problems downstream
		log.Warn("llm.extract.schema_mismatch", "error", vErr)
	}

	rec, err := record.Parse(raw)
	if err != nil {
		return nil, raw, common.NewExtractionError("model returned invalid JSON", err)
	}

	log.Info("llm.extract.ok", "keys", len(rec), "elapsed_ms", time.Since(start).Milliseconds())
	return rec, raw, nil
}
