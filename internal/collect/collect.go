package collect

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/TobiSchelling/tweetcurator/internal/config"
	"github.com/TobiSchelling/tweetcurator/internal/xapi"
)

// Tweet is one candidate as a source yields it.
type Tweet struct {
	ID     string
	Text   string
	URL    string
	Author string
}

// Source yields tweets from one upstream.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]Tweet, error)
}

// Collector combines sources in configured order.
type Collector struct {
	sources        []Source
	tolerateErrors bool
	logger         *zap.Logger
}

// NewCollector creates a collector over explicit sources.
func NewCollector(sources []Source, tolerateErrors bool, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collector{sources: sources, tolerateErrors: tolerateErrors, logger: logger}
}

// FromConfig builds the configured sources: each feed, then X search when enabled.
func FromConfig(cfg *config.Config, logger *zap.Logger) (*Collector, error) {
	var sources []Source
	for _, f := range cfg.Sources.Feeds {
		sources = append(sources, NewFeedSource(f.URL, f.Name))
	}

	search := cfg.Sources.Search
	if search.Enabled {
		token := os.Getenv(search.BearerTokenEnv)
		if token == "" {
			return nil, fmt.Errorf("X search enabled but no bearer token (set %s)", search.BearerTokenEnv)
		}
		client := xapi.NewClient(search.BaseURL, token)
		sources = append(sources, NewSearchSource(client, search.Query, search.MaxResults))
	}

	if len(sources) == 0 {
		return nil, fmt.Errorf("no sources configured")
	}
	return NewCollector(sources, cfg.Sources.TolerateErrors, logger), nil
}

// Sources returns the configured sources in order.
func (c *Collector) Sources() []Source {
	return c.sources
}

// Collect fetches every source and dedupes by id; the first occurrence wins.
// A source error aborts the collection unless errors are tolerated and more
// than one source is configured.
func (c *Collector) Collect(ctx context.Context) ([]Tweet, error) {
	tolerate := c.tolerateErrors && len(c.sources) > 1

	seen := make(map[string]struct{})
	var all []Tweet
	failed := 0

	for _, src := range c.sources {
		tweets, err := src.Fetch(ctx)
		if err != nil {
			if !tolerate || ctx.Err() != nil {
				return nil, fmt.Errorf("source %s: %w", src.Name(), err)
			}
			failed++
			c.logger.Warn("source failed, continuing", zap.String("source", src.Name()), zap.Error(err))
			continue
		}

		added := 0
		for _, t := range tweets {
			if t.ID == "" {
				continue
			}
			if _, ok := seen[t.ID]; ok {
				continue
			}
			seen[t.ID] = struct{}{}
			all = append(all, t)
			added++
		}
		c.logger.Info("collected",
			zap.String("source", src.Name()),
			zap.Int("fetched", len(tweets)),
			zap.Int("new", added),
		)
	}

	if failed > 0 && failed == len(c.sources) {
		return nil, fmt.Errorf("all %d sources failed", failed)
	}
	return all, nil
}
