package llm

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/TobiSchelling/tweetcurator/internal/config"
)

// Response is a judge reply plus the token that continues the conversation.
// Stateless providers return an empty Token.
type Response struct {
	Text  string
	Token string
}

// Judge asks a reasoning service for a verdict on one tweet. continuation,
// when non-empty, lets the service condition on earlier turns.
type Judge interface {
	Respond(ctx context.Context, instructions, userText, continuation string) (Response, error)
}

const defaultTimeout = 120 * time.Second

// NewJudge creates the judge selected by configuration.
func NewJudge(ctx context.Context, cfg config.Judge) (Judge, error) {
	switch strings.ToLower(cfg.Provider) {
	case "openai":
		key := os.Getenv(cfg.APIKeyEnv)
		if key == "" {
			return nil, fmt.Errorf("OpenAI API key not configured (set %s)", cfg.APIKeyEnv)
		}
		return NewOpenAIJudge(cfg.Model, key, cfg.BaseURL, cfg.MaxOutputTokens), nil
	case "ollama":
		return NewOllamaJudge(cfg.Model, cfg.OllamaURL, cfg.MaxOutputTokens), nil
	case "gemini":
		key := os.Getenv(cfg.APIKeyEnv)
		if key == "" {
			return nil, fmt.Errorf("Gemini API key not configured (set %s)", cfg.APIKeyEnv)
		}
		return NewGeminiJudge(ctx, cfg.Model, key, cfg.MaxOutputTokens)
	}
	return nil, fmt.Errorf("unknown judge provider %q", cfg.Provider)
}
