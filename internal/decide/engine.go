// Package decide turns a tweet into a model decision: it builds the judge
// instructions, calls the judge, and parses the verdict.
package decide

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/TobiSchelling/tweetcurator/internal/database"
	"github.com/TobiSchelling/tweetcurator/internal/llm"
)

// Request is one decision to make.
type Request struct {
	TweetText    string
	Examples     []database.GoldExample
	Continuation string
}

// Decision is a parsed verdict plus the token for the next call.
type Decision struct {
	Quote             string
	Approved          bool
	Score             int
	ContinuationToken string
}

// Engine holds no durable state; persisting decisions and tokens is the caller's job.
type Engine struct {
	judge        llm.Judge
	instructions string
	mode         ParseMode
	useMemory    bool
	logger       *zap.Logger
}

// NewEngine creates a decision engine. With useMemory off every call is stateless.
func NewEngine(judge llm.Judge, instructions string, mode ParseMode, useMemory bool, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if instructions == "" {
		instructions = BaseInstructions
	}
	return &Engine{
		judge:        judge,
		instructions: instructions,
		mode:         mode,
		useMemory:    useMemory,
		logger:       logger,
	}
}

// Decide judges one tweet. Judge failures are returned wrapped; unparseable
// output returns a *MalformedResponseError.
func (e *Engine) Decide(ctx context.Context, req Request) (Decision, error) {
	instructions := BuildInstructions(e.instructions, req.Examples)

	continuation := ""
	if e.useMemory {
		continuation = req.Continuation
	}

	resp, err := e.judge.Respond(ctx, instructions, req.TweetText, continuation)
	if err != nil {
		return Decision{}, fmt.Errorf("judge: %w", err)
	}

	v, err := Parse(resp.Text, e.mode)
	if err != nil {
		return Decision{}, err
	}
	if !v.ScoreFound {
		e.logger.Debug("judge output has no percentile, score defaulted", zap.String("mode", string(e.mode)))
	}

	return Decision{
		Quote:             v.Quote,
		Approved:          v.Approved,
		Score:             v.Score,
		ContinuationToken: resp.Token,
	}, nil
}
