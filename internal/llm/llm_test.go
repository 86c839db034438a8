package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TobiSchelling/tweetcurator/internal/config"
)

func TestOpenAIJudgeRespond(t *testing.T) {
	var got responsesRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/responses", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "resp_2",
			"status": "completed",
			"output": [
				{"type": "reasoning", "content": []},
				{"type": "message", "content": [
					{"type": "output_text", "text": "Great point.\n"},
					{"type": "output_text", "text": "Percentile: 81"}
				]}
			]
		}`))
	}))
	defer srv.Close()

	j := NewOpenAIJudge("gpt-4o-mini", "sk-test", srv.URL+"/", 400)
	resp, err := j.Respond(context.Background(), "be picky", "a tweet", "resp_1")
	require.NoError(t, err)

	assert.Equal(t, "Great point.\nPercentile: 81", resp.Text)
	assert.Equal(t, "resp_2", resp.Token)
	assert.Equal(t, "gpt-4o-mini", got.Model)
	assert.Equal(t, "be picky", got.Instructions)
	assert.Equal(t, "a tweet", got.Input)
	assert.Equal(t, "resp_1", got.PreviousResponseID)
	assert.Equal(t, 400, got.MaxOutputTokens)
	assert.True(t, got.Store)
}

func TestOpenAIJudgeOmitsEmptyContinuation(t *testing.T) {
	var raw map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		_, _ = w.Write([]byte(`{"id": "resp_1", "output": []}`))
	}))
	defer srv.Close()

	j := NewOpenAIJudge("m", "k", srv.URL, 0)
	resp, err := j.Respond(context.Background(), "i", "u", "")
	require.NoError(t, err)

	assert.Empty(t, resp.Text)
	assert.Equal(t, "resp_1", resp.Token)
	assert.NotContains(t, raw, "previous_response_id")
	assert.NotContains(t, raw, "max_output_tokens")
}

func TestOpenAIJudgeHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"rate limited"}}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	j := NewOpenAIJudge("m", "k", srv.URL, 0)
	_, err := j.Respond(context.Background(), "i", "u", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
	assert.Contains(t, err.Error(), "rate limited")
}

func TestOpenAIJudgeBodyError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id": "resp_x", "error": {"message": "previous response not found"}}`))
	}))
	defer srv.Close()

	j := NewOpenAIJudge("m", "k", srv.URL, 0)
	_, err := j.Respond(context.Background(), "i", "u", "resp_missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "previous response not found")
}

func TestOllamaJudgeRespond(t *testing.T) {
	var got struct {
		Model    string              `json:"model"`
		Messages []map[string]string `json:"messages"`
		Stream   bool                `json:"stream"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"message": {"role": "assistant", "content": "Rejected: off topic"}}`))
	}))
	defer srv.Close()

	j := NewOllamaJudge("llama3.2", srv.URL, 200)
	resp, err := j.Respond(context.Background(), "be picky", "a tweet", "ignored")
	require.NoError(t, err)

	assert.Equal(t, "Rejected: off topic", resp.Text)
	assert.Empty(t, resp.Token)
	assert.Equal(t, "llama3.2", got.Model)
	assert.False(t, got.Stream)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0]["role"])
	assert.Equal(t, "be picky", got.Messages[0]["content"])
	assert.Equal(t, "user", got.Messages[1]["role"])
	assert.Equal(t, "a tweet", got.Messages[1]["content"])
}

func TestOllamaJudgeHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewOllamaJudge("missing", srv.URL, 0).Respond(context.Background(), "i", "u", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestNewJudge(t *testing.T) {
	t.Setenv("TEST_JUDGE_KEY", "sk-test")

	j, err := NewJudge(context.Background(), config.Judge{Provider: "openai", Model: "gpt-4o-mini", APIKeyEnv: "TEST_JUDGE_KEY"})
	require.NoError(t, err)
	oa, ok := j.(*OpenAIJudge)
	require.True(t, ok)
	assert.Equal(t, openAIBaseURL, oa.BaseURL)
	assert.Equal(t, "sk-test", oa.APIKey)

	j, err = NewJudge(context.Background(), config.Judge{Provider: "Ollama", Model: "llama3.2", OllamaURL: "http://localhost:11434"})
	require.NoError(t, err)
	assert.IsType(t, &OllamaJudge{}, j)
}

func TestNewJudgeMissingKey(t *testing.T) {
	t.Setenv("TEST_JUDGE_KEY", "")

	_, err := NewJudge(context.Background(), config.Judge{Provider: "openai", APIKeyEnv: "TEST_JUDGE_KEY"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TEST_JUDGE_KEY")

	_, err = NewJudge(context.Background(), config.Judge{Provider: "gemini", APIKeyEnv: "TEST_JUDGE_KEY"})
	require.Error(t, err)
}

func TestNewJudgeUnknownProvider(t *testing.T) {
	_, err := NewJudge(context.Background(), config.Judge{Provider: "claude"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown judge provider")
}
