package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// OllamaJudge is a local Ollama judge. Ollama keeps no server-side
// conversation, so continuation is ignored and no token is returned.
type OllamaJudge struct {
	Model     string
	BaseURL   string
	MaxTokens int
	client    *http.Client
}

// NewOllamaJudge creates a new Ollama judge.
func NewOllamaJudge(model, baseURL string, maxTokens int) *OllamaJudge {
	return &OllamaJudge{
		Model:     model,
		BaseURL:   baseURL,
		MaxTokens: maxTokens,
		client:    &http.Client{Timeout: defaultTimeout},
	}
}

// Respond sends the instructions as a system message and the tweet as the user turn.
func (o *OllamaJudge) Respond(ctx context.Context, instructions, userText, _ string) (Response, error) {
	body := map[string]any{
		"model": o.Model,
		"messages": []map[string]string{
			{"role": "system", "content": instructions},
			{"role": "user", "content": userText},
		},
		"stream": false,
		"options": map[string]any{
			"num_predict": o.MaxTokens,
			"temperature": 0.3,
		},
	}

	data, err := json.Marshal(body)
	if err != nil {
		return Response{}, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.BaseURL+"/api/chat", bytes.NewReader(data))
	if err != nil {
		return Response{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("ollama API error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return Response{}, fmt.Errorf("ollama API returned %d: %s", resp.StatusCode, string(respBody))
	}

	var result struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return Response{}, fmt.Errorf("decoding response: %w", err)
	}

	return Response{Text: result.Message.Content}, nil
}
