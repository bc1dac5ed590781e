package openai

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go/v3/azure"
	"github.com/openai/openai-go/v3/option"
)

// Config for the completion client. Either an Azure OpenAI endpoint with a
// deployment, or the public API with a model name.
type Config struct {
	Endpoint   string // Azure OpenAI resource URL; empty means the public API
	APIKey     string
	APIVersion string
	Deployment string // model or Azure deployment name
	BaseURL    string // public API override, e.g. a local gateway
	Timeout    time.Duration
}

type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

func (c Config) isAzure() bool {
	return c.Endpoint != ""
}

func (c *Client) requestOptions() []option.RequestOption {
	opts := []option.RequestOption{
		option.WithHTTPClient(c.http),
		// one call per document; the pipeline owns failure handling
		option.WithMaxRetries(0),
	}
	if c.cfg.isAzure() {
		endpoint := strings.TrimRight(c.cfg.Endpoint, "/") + "/"
		return append(opts,
			azure.WithEndpoint(endpoint, c.cfg.APIVersion),
			azure.WithAPIKey(c.cfg.APIKey),
		)
	}
	if c.cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimRight(c.cfg.BaseURL, "/")+"/"))
	}
	return append(opts, option.WithAPIKey(c.cfg.APIKey))
}
