package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const openAIBaseURL = "https://api.openai.com"

// OpenAIJudge calls the OpenAI Responses API. The response id is the
// continuation token: passing it back as previous_response_id makes the
// service condition on the earlier turns.
type OpenAIJudge struct {
	Model     string
	APIKey    string
	BaseURL   string
	MaxTokens int
	client    *http.Client
}

// NewOpenAIJudge creates a Responses API judge. An empty baseURL uses api.openai.com.
func NewOpenAIJudge(model, apiKey, baseURL string, maxTokens int) *OpenAIJudge {
	if baseURL == "" {
		baseURL = openAIBaseURL
	}
	return &OpenAIJudge{
		Model:     model,
		APIKey:    apiKey,
		BaseURL:   strings.TrimRight(baseURL, "/"),
		MaxTokens: maxTokens,
		client:    &http.Client{Timeout: defaultTimeout},
	}
}

type responsesRequest struct {
	Model              string `json:"model"`
	Instructions       string `json:"instructions"`
	Input              string `json:"input"`
	PreviousResponseID string `json:"previous_response_id,omitempty"`
	MaxOutputTokens    int    `json:"max_output_tokens,omitempty"`
	Store              bool   `json:"store"`
}

type responsesResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Output []struct {
		Type    string `json:"type"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"output"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Respond sends one turn to the Responses API.
func (o *OpenAIJudge) Respond(ctx context.Context, instructions, userText, continuation string) (Response, error) {
	body := responsesRequest{
		Model:              o.Model,
		Instructions:       instructions,
		Input:              userText,
		PreviousResponseID: continuation,
		MaxOutputTokens:    o.MaxTokens,
		// Stored responses are what previous_response_id refers to.
		Store: true,
	}

	data, err := json.Marshal(body)
	if err != nil {
		return Response{}, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.BaseURL+"/v1/responses", bytes.NewReader(data))
	if err != nil {
		return Response{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.APIKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("OpenAI API error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return Response{}, fmt.Errorf("OpenAI API returned %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var result responsesResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return Response{}, fmt.Errorf("decoding response: %w", err)
	}
	if result.Error != nil {
		return Response{}, fmt.Errorf("OpenAI response error: %s", result.Error.Message)
	}

	var text strings.Builder
	for _, item := range result.Output {
		if item.Type != "message" {
			continue
		}
		for _, c := range item.Content {
			if c.Type == "output_text" {
				text.WriteString(c.Text)
			}
		}
	}

	return Response{Text: text.String(), Token: result.ID}, nil
}
