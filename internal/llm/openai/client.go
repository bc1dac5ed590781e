package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/openai/openai-go/v3"

	"github.com/joseph-ayodele/claims-extractor/internal/common"
	"github.com/joseph-ayodele/claims-extractor/internal/llm"
)

const (
	DefaultModel      = "gpt-4o"
	DefaultAPIVersion = "2024-02-15-preview"
)

var _ llm.Completer = (*Client)(nil)

func NewClient(cfg Config, logger *slog.Logger, opts ...Option) *Client {
	if cfg.Deployment == "" {
		cfg.Deployment = DefaultModel
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = DefaultAPIVersion
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 90 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{cfg: cfg, logger: logger}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: cfg.Timeout}
	}
	return c
}

// Complete runs one chat completion and returns the first choice's content.
func (c *Client) Complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	log := common.LoggerFrom(ctx, c.logger)
	start := time.Now()

	params := openai.ChatCompletionNewParams{
		Model: c.cfg.Deployment,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.System),
			openai.UserMessage(req.Prompt),
		},
		Temperature: openai.Float(req.Temperature),
	}
	if req.JSONMode {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{},
		}
	}

	client := openai.NewClient(c.requestOptions()...)
	log.Info("llm.http.request", "model", c.cfg.Deployment, "azure", c.cfg.isAzure(), "prompt_len", len(req.Prompt))

	resp, err := client.Chat.Completions.New(ctx, params)
	if err != nil {
		log.Error("llm.http.error", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return "", common.NewCompletionError("chat completion failed", convertError(err))
	}
	if len(resp.Choices) == 0 {
		return "", common.NewCompletionError("chat completion returned no choices", nil)
	}

	log.Info("llm.http.response",
		"finish_reason", resp.Choices[0].FinishReason,
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return resp.Choices[0].Message.Content, nil
}

func convertError(err error) error {
	var apierr *openai.Error
	if errors.As(err, &apierr) {
		return fmt.Errorf("status %d: %w", apierr.StatusCode, err)
	}
	return err
}
