package llm

import (
	"context"

	"github.com/joseph-ayodele/claims-extractor/internal/record"
)

// CompletionRequest is one deterministic, JSON-mode chat completion.
type CompletionRequest struct {
	System      string
	Prompt      string
	Temperature float64
	JSONMode    bool
}

// Completer is the completion collaborator. Implementations return the
// message content of the first choice.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, req CompletionRequest) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	return f(ctx, req)
}

// FieldExtractor is the interface the pipeline depends on. It returns the
// parsed record and the raw JSON the model produced.
type FieldExtractor interface {
	ExtractFields(ctx context.Context, payload string) (record.Record, []byte, error)
}
