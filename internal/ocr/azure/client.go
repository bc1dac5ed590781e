package azure

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/joseph-ayodele/claims-extractor/internal/common"
	"github.com/joseph-ayodele/claims-extractor/internal/ocr"
)

var _ ocr.Analyzer = &Client{}

var errStillRunning = errors.New("analysis still running")

// Client calls the Document Intelligence layout model over REST.
type Client struct {
	client *http.Client
	logger *slog.Logger
	sink   func(name string, raw []byte)

	url        string
	token      string
	apiVersion string
	model      string

	pollInterval time.Duration
	pollAttempts uint
}

func New(url string, options ...Option) (*Client, error) {
	if url == "" {
		return nil, errors.New("invalid url")
	}

	c := &Client{
		client: http.DefaultClient,
		logger: slog.Default(),

		url:        url,
		apiVersion: DefaultAPIVersion,
		model:      DefaultModel,

		pollInterval: time.Second,
		pollAttempts: 120,
	}

	for _, option := range options {
		option(c)
	}

	return c, nil
}

// Analyze submits the file and polls the operation until it settles.
func (c *Client) Analyze(ctx context.Context, file ocr.File) (*ocr.Document, error) {
	log := common.LoggerFrom(ctx, c.logger).With("file", file.Name)
	start := time.Now()

	if !isSupported(file) {
		return nil, common.NewUnsupportedError("unsupported document type "+path.Ext(file.Name), nil)
	}
	log.Info("ocr.analyze.start", "bytes", len(file.Content), "model", c.model)

	operationURL, err := c.submit(ctx, file)
	if err != nil {
		log.Error("ocr.analyze.submit_failed", "error", err)
		return nil, common.NewAnalysisError("submit document", err)
	}

	var raw []byte
	var op AnalyzeOperation
	err = retry.Do(
		func() error {
			var pollErr error
			raw, op, pollErr = c.poll(ctx, operationURL)
			if pollErr != nil {
				return pollErr
			}
			switch op.Status {
			case OperationStatusRunning, OperationStatusNotStarted:
				return errStillRunning
			case OperationStatusSucceeded:
				return nil
			}
			msg := "operation " + string(op.Status)
			if op.Error != nil {
				msg += ": " + op.Error.Code + " " + op.Error.Message
			}
			return retry.Unrecoverable(errors.New(msg))
		},
		retry.Context(ctx),
		retry.Attempts(c.pollAttempts),
		retry.Delay(c.pollInterval),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		log.Error("ocr.analyze.failed", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, common.NewAnalysisError("analyze document", err)
	}
	if op.Result == nil {
		return nil, common.NewAnalysisError("analyze document", errors.New("missing analyzeResult"))
	}

	if c.sink != nil {
		c.sink(file.Name, raw)
	}

	doc := ToDocument(op.Result)
	log.Info("ocr.analyze.ok",
		"pages", len(doc.Pages),
		"marks", doc.MarkCount(),
		"tables", len(doc.Tables()),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return doc, nil
}

func (c *Client) submit(ctx context.Context, file ocr.File) (string, error) {
	u, err := url.Parse(strings.TrimRight(c.url, "/") + "/documentintelligence/documentModels/" + c.model + ":analyze")
	if err != nil {
		return "", err
	}
	query := u.Query()
	query.Set("api-version", c.apiVersion)
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(file.Content))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("Ocp-Apim-Subscription-Key", c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		return "", convertError(resp)
	}

	operationURL := resp.Header.Get("Operation-Location")
	if operationURL == "" {
		return "", errors.New("missing operation location")
	}
	return operationURL, nil
}

// poll fetches the operation once. Throttling and server errors stay retryable.
func (c *Client) poll(ctx context.Context, operationURL string) ([]byte, AnalyzeOperation, error) {
	var op AnalyzeOperation

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, operationURL, nil)
	if err != nil {
		return nil, op, retry.Unrecoverable(err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, op, retry.Unrecoverable(err)
		}
		return nil, op, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, op, convertError(resp)
	case resp.StatusCode != http.StatusOK:
		return nil, op, retry.Unrecoverable(convertError(resp))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, op, err
	}
	if err := json.Unmarshal(data, &op); err != nil {
		return nil, op, retry.Unrecoverable(fmt.Errorf("decode operation: %w", err))
	}
	return data, op, nil
}

func isSupported(file ocr.File) bool {
	if file.Name != "" {
		ext := strings.ToLower(path.Ext(file.Name))

		if slices.Contains(SupportedExtensions, ext) {
			return true
		}
	}

	if file.ContentType != "" {
		if slices.Contains(SupportedMimeTypes, file.ContentType) {
			return true
		}
	}

	return false
}

func convertError(resp *http.Response) error {
	data, _ := io.ReadAll(resp.Body)

	if len(data) == 0 {
		return fmt.Errorf("status %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
}
