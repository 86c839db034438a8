package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/TobiSchelling/tweetcurator/internal/collect"
	"github.com/TobiSchelling/tweetcurator/internal/database"
	"github.com/TobiSchelling/tweetcurator/internal/decide"
	"github.com/TobiSchelling/tweetcurator/internal/logging"
)

// TokenKey is the config key holding the judge conversation head.
const TokenKey = "judge.previous_response_id"

// TweetSource yields the deduplicated tweets for one run.
type TweetSource interface {
	Collect(ctx context.Context) ([]collect.Tweet, error)
}

// StepResult holds the result of a single pipeline step.
type StepResult struct {
	Name    string
	Summary string
}

// Result holds the counts of a pipeline run.
type Result struct {
	RunID          string
	Fetched        int
	Saved          int
	SkippedSelf    int
	SkippedDecided int
	Candidates     int
	Approved       int
	Rejected       int
	Malformed      int
	Errors         int
	Steps          []StepResult
}

// Options tune a pipeline run.
type Options struct {
	SelfUsername          string
	Delay                 time.Duration
	UseConversationMemory bool
	GoldExamplesLimit     int
}

// Pipeline ingests tweets, judges the undecided ones one at a time, and
// persists each verdict along with the conversation head.
type Pipeline struct {
	db     *database.DB
	source TweetSource
	engine *decide.Engine
	opts   Options
	logger *zap.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

// New creates a new pipeline.
func New(db *database.DB, source TweetSource, engine *decide.Engine, opts Options, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		db:     db,
		source: source,
		engine: engine,
		opts:   opts,
		logger: logger,
		sleep:  sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Run executes one ingest-and-decide pass. Candidates are processed in
// source order. A malformed reply skips the tweet, leaving it for the next
// run; any other judge or storage error ends the run. The partial Result is
// returned alongside the error.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	r := &Result{RunID: uuid.NewString()}
	log := p.logger.With(zap.String("run_id", r.RunID))

	tweets, err := p.source.Collect(ctx)
	if err != nil {
		return r, fmt.Errorf("collecting: %w", err)
	}
	r.Fetched = len(tweets)

	for _, t := range tweets {
		if err := p.db.SaveRaw(t.ID, t.Text, t.URL, t.Author); err != nil {
			return r, fmt.Errorf("saving %s: %w", t.ID, err)
		}
		r.Saved++
		ingestedTotal.Inc()
	}
	r.Steps = append(r.Steps, StepResult{
		Name:    "Collect",
		Summary: fmt.Sprintf("Fetched %d tweets, saved %d", r.Fetched, r.Saved),
	})

	candidates, err := p.filterPending(tweets, r)
	if err != nil {
		return r, err
	}
	r.Candidates = len(candidates)
	r.Steps = append(r.Steps, StepResult{
		Name:    "Filter",
		Summary: fmt.Sprintf("%d to judge (%d own, %d already decided)", r.Candidates, r.SkippedSelf, r.SkippedDecided),
	})

	if len(candidates) == 0 {
		log.Info("nothing to judge", zap.Int("fetched", r.Fetched))
		return r, nil
	}

	examples, err := p.db.GetGoldExamples(p.opts.GoldExamplesLimit)
	if err != nil {
		return r, fmt.Errorf("loading gold examples: %w", err)
	}

	token, _, err := p.db.GetConfig(TokenKey)
	if err != nil {
		return r, fmt.Errorf("loading conversation token: %w", err)
	}

	log.Info("judging",
		zap.Int("candidates", len(candidates)),
		zap.Int("examples", len(examples)),
		zap.Bool("continuing", token != "" && p.opts.UseConversationMemory),
	)

	for i, t := range candidates {
		if err := p.sleep(ctx, p.opts.Delay); err != nil {
			return r, err
		}

		start := time.Now()
		d, err := p.engine.Decide(ctx, decide.Request{
			TweetText:    t.Text,
			Examples:     examples,
			Continuation: token,
		})
		judgeCallDuration.Observe(time.Since(start).Seconds())

		var malformed *decide.MalformedResponseError
		if errors.As(err, &malformed) {
			r.Malformed++
			decisionsTotal.WithLabelValues("malformed").Inc()
			log.Warn("skipping malformed verdict",
				zap.String("tweet_id", t.ID),
				zap.String("reason", malformed.Reason),
				zap.String("raw", logging.Truncate(malformed.Raw, 200)),
			)
			continue
		}
		if err != nil {
			r.Errors++
			r.Steps = append(r.Steps, p.decideStep(r))
			return r, fmt.Errorf("deciding %s: %w", t.ID, err)
		}

		if err := p.db.SaveDecision(t.ID, t.Text, t.URL, d.Quote, d.Approved, d.Score); err != nil {
			r.Errors++
			return r, fmt.Errorf("saving decision for %s: %w", t.ID, err)
		}

		if d.Approved {
			r.Approved++
			decisionsTotal.WithLabelValues("approved").Inc()
		} else {
			r.Rejected++
			decisionsTotal.WithLabelValues("rejected").Inc()
		}

		if p.opts.UseConversationMemory && d.ContinuationToken != "" {
			if err := p.db.SetConfig(TokenKey, d.ContinuationToken); err != nil {
				r.Errors++
				return r, fmt.Errorf("saving conversation token: %w", err)
			}
			token = d.ContinuationToken
		}

		log.Debug("decided",
			zap.Int("n", i+1),
			zap.String("tweet_id", t.ID),
			zap.String("text", logging.Truncate(t.Text, 80)),
			zap.Bool("approved", d.Approved),
			zap.Int("score", d.Score),
		)
	}

	r.Steps = append(r.Steps, p.decideStep(r))
	log.Info("run complete",
		zap.Int("approved", r.Approved),
		zap.Int("rejected", r.Rejected),
		zap.Int("malformed", r.Malformed),
	)
	return r, nil
}

func (p *Pipeline) decideStep(r *Result) StepResult {
	return StepResult{
		Name:    "Decide",
		Summary: fmt.Sprintf("%d approved, %d rejected, %d malformed", r.Approved, r.Rejected, r.Malformed),
	}
}

// filterPending drops own tweets and tweets that already carry a model decision.
func (p *Pipeline) filterPending(tweets []collect.Tweet, r *Result) ([]collect.Tweet, error) {
	self := normalizeUsername(p.opts.SelfUsername)

	var pending []collect.Tweet
	for _, t := range tweets {
		if self != "" && normalizeUsername(t.Author) == self {
			r.SkippedSelf++
			continue
		}
		decided, err := p.db.HasModelDecision(t.ID)
		if err != nil {
			return nil, fmt.Errorf("checking %s: %w", t.ID, err)
		}
		if decided {
			r.SkippedDecided++
			continue
		}
		pending = append(pending, t)
	}
	return pending, nil
}

func normalizeUsername(s string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "@"))
}

// DryRun collects and filters without writing anything or calling the judge.
func (p *Pipeline) DryRun(ctx context.Context) (*Result, error) {
	r := &Result{RunID: uuid.NewString()}

	tweets, err := p.source.Collect(ctx)
	if err != nil {
		return r, fmt.Errorf("collecting: %w", err)
	}
	r.Fetched = len(tweets)
	r.Steps = append(r.Steps, StepResult{
		Name:    "Collect",
		Summary: fmt.Sprintf("[dry-run] %d tweets from sources", r.Fetched),
	})

	candidates, err := p.filterPending(tweets, r)
	if err != nil {
		return r, err
	}
	r.Candidates = len(candidates)
	r.Steps = append(r.Steps, StepResult{
		Name:    "Decide",
		Summary: fmt.Sprintf("[dry-run] would judge %d tweets (%d own, %d already decided)", r.Candidates, r.SkippedSelf, r.SkippedDecided),
	})

	return r, nil
}
