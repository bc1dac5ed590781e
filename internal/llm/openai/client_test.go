package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/claims-extractor/internal/common"
	"github.com/joseph-ayodele/claims-extractor/internal/llm"
)

const completionBody = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1700000000,
  "model": "gpt-4o",
  "choices": [{"index": 0, "finish_reason": "stop",
    "message": {"role": "assistant", "content": "{\"firstName\":\"ישראל\"}"}}],
  "usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
}`

type captured struct {
	path   string
	query  string
	header http.Header
	body   map[string]any
}

func server(t *testing.T, status int, reply string, got *captured) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.path = r.URL.Path
		got.query = r.URL.RawQuery
		got.header = r.Header.Clone()
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &got.body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func request() llm.CompletionRequest {
	return llm.CompletionRequest{System: llm.SystemPrompt, Prompt: "payload", JSONMode: true}
}

func TestCompletePublicAPI(t *testing.T) {
	var got captured
	srv := server(t, http.StatusOK, completionBody, &got)

	c := NewClient(Config{BaseURL: srv.URL + "/v1", APIKey: "sk-test", Deployment: "gpt-4o-mini"}, nil)
	content, err := c.Complete(context.Background(), request())
	require.NoError(t, err)

	assert.Equal(t, `{"firstName":"ישראל"}`, content)
	assert.Equal(t, "/v1/chat/completions", got.path)
	assert.Equal(t, "Bearer sk-test", got.header.Get("Authorization"))
	assert.Equal(t, "gpt-4o-mini", got.body["model"])
	assert.Equal(t, float64(0), got.body["temperature"])
	assert.Equal(t, map[string]any{"type": "json_object"}, got.body["response_format"])

	msgs, ok := got.body["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	assert.Equal(t, "user", msgs[1].(map[string]any)["role"])
}

func TestCompleteAzureDeployment(t *testing.T) {
	var got captured
	srv := server(t, http.StatusOK, completionBody, &got)

	c := NewClient(Config{Endpoint: srv.URL, APIKey: "azure-key", Deployment: "forms-gpt4o"}, nil)
	_, err := c.Complete(context.Background(), request())
	require.NoError(t, err)

	assert.Equal(t, "/openai/deployments/forms-gpt4o/chat/completions", got.path)
	assert.Contains(t, got.query, "api-version="+DefaultAPIVersion)
	assert.Equal(t, "azure-key", got.header.Get("Api-Key"))
}

func TestCompleteErrors(t *testing.T) {
	var got captured
	srv := server(t, http.StatusTooManyRequests, `{"error": {"message": "slow down", "type": "rate_limit"}}`, &got)

	c := NewClient(Config{BaseURL: srv.URL, APIKey: "k"}, nil)
	_, err := c.Complete(context.Background(), request())
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrCompletion)
	assert.Contains(t, err.Error(), "429")

	empty := server(t, http.StatusOK, `{"id":"x","object":"chat.completion","created":1,"model":"m","choices":[]}`, &got)
	c = NewClient(Config{BaseURL: empty.URL, APIKey: "k"}, nil)
	_, err = c.Complete(context.Background(), request())
	assert.ErrorIs(t, err, common.ErrCompletion)
}
