package collect

import (
	"context"

	"github.com/TobiSchelling/tweetcurator/internal/xapi"
)

// SearchSource runs an X API recent search.
type SearchSource struct {
	client     *xapi.Client
	query      string
	maxResults int
}

// NewSearchSource creates a search source.
func NewSearchSource(client *xapi.Client, query string, maxResults int) *SearchSource {
	return &SearchSource{client: client, query: query, maxResults: maxResults}
}

func (s *SearchSource) Name() string { return "x-search" }

func (s *SearchSource) Fetch(ctx context.Context) ([]Tweet, error) {
	hits, err := s.client.SearchRecent(ctx, s.query, s.maxResults)
	if err != nil {
		return nil, err
	}

	tweets := make([]Tweet, 0, len(hits))
	for _, h := range hits {
		tweets = append(tweets, Tweet{
			ID:     h.ID,
			Text:   h.Text,
			URL:    h.URL(),
			Author: h.Username,
		})
	}
	return tweets, nil
}
