package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GeminiJudge judges with the Gemini API. generateContent is stateless, so
// continuation is ignored and no token is returned.
type GeminiJudge struct {
	client    *genai.Client
	model     string
	maxTokens int
}

// NewGeminiJudge creates a Gemini judge.
func NewGeminiJudge(ctx context.Context, model, apiKey string, maxTokens int) (*GeminiJudge, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GeminiJudge{client: client, model: model, maxTokens: maxTokens}, nil
}

// Respond sends the instructions as the system instruction and the tweet as user content.
func (g *GeminiJudge) Respond(ctx context.Context, instructions, userText, _ string) (Response, error) {
	temperature := float32(0.3)
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(instructions, genai.RoleUser),
		Temperature:       &temperature,
	}
	if g.maxTokens > 0 {
		cfg.MaxOutputTokens = int32(g.maxTokens)
	}

	contents := []*genai.Content{
		genai.NewContentFromText(userText, genai.RoleUser),
	}

	result, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return Response{}, fmt.Errorf("GenAI generate failed: %w", err)
	}
	return Response{Text: result.Text()}, nil
}
