// Package xapi is a small client for the X API v2 endpoints used here:
// recent search for ingestion and tweet lookup for engagement counters.
package xapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/TobiSchelling/tweetcurator/internal/database"
)

const defaultBaseURL = "https://api.x.com"

// APIError is a non-2xx reply from the API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("X API returned %d: %s", e.StatusCode, e.Body)
}

// Tweet is a search hit with its author resolved.
type Tweet struct {
	ID       string
	Text     string
	AuthorID string
	Username string
}

// URL is the canonical status link, or empty when the author is unknown.
func (t Tweet) URL() string {
	if t.Username == "" {
		return ""
	}
	return fmt.Sprintf("https://x.com/%s/status/%s", t.Username, t.ID)
}

// Client calls the X API with an app bearer token or, via NewOAuthClient,
// with user-context OAuth2 tokens.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewClient creates a client. An empty baseURL uses api.x.com.
func NewClient(baseURL, bearerToken string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   bearerToken,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("X API error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

type searchResponse struct {
	Data []struct {
		ID       string `json:"id"`
		Text     string `json:"text"`
		AuthorID string `json:"author_id"`
	} `json:"data"`
	Includes struct {
		Users []struct {
			ID       string `json:"id"`
			Username string `json:"username"`
		} `json:"users"`
	} `json:"includes"`
}

// SearchRecent runs a recent search. maxResults is clamped to the API's 10..100.
func (c *Client) SearchRecent(ctx context.Context, query string, maxResults int) ([]Tweet, error) {
	maxResults = min(max(maxResults, 10), 100)

	params := url.Values{
		"query":        {query},
		"max_results":  {strconv.Itoa(maxResults)},
		"expansions":   {"author_id"},
		"user.fields":  {"username"},
		"tweet.fields": {"author_id"},
	}

	var result searchResponse
	if err := c.get(ctx, "/2/tweets/search/recent", params, &result); err != nil {
		return nil, err
	}

	users := make(map[string]string, len(result.Includes.Users))
	for _, u := range result.Includes.Users {
		users[u.ID] = u.Username
	}

	tweets := make([]Tweet, 0, len(result.Data))
	for _, d := range result.Data {
		tweets = append(tweets, Tweet{
			ID:       d.ID,
			Text:     d.Text,
			AuthorID: d.AuthorID,
			Username: users[d.AuthorID],
		})
	}
	return tweets, nil
}

type lookupResponse struct {
	Data []struct {
		ID            string `json:"id"`
		PublicMetrics struct {
			LikeCount       int64 `json:"like_count"`
			RetweetCount    int64 `json:"retweet_count"`
			ReplyCount      int64 `json:"reply_count"`
			QuoteCount      int64 `json:"quote_count"`
			ImpressionCount int64 `json:"impression_count"`
		} `json:"public_metrics"`
	} `json:"data"`
	Errors []struct {
		Value  string `json:"value"`
		Title  string `json:"title"`
		Detail string `json:"detail"`
	} `json:"errors"`
}

// LookupCounters fetches public metrics for up to 100 ids in one call. Ids the
// API could not resolve are absent from the result.
func (c *Client) LookupCounters(ctx context.Context, ids []string) (map[string]database.Counters, error) {
	if len(ids) == 0 {
		return map[string]database.Counters{}, nil
	}
	if len(ids) > 100 {
		return nil, fmt.Errorf("lookup accepts at most 100 ids, got %d", len(ids))
	}

	params := url.Values{
		"ids":          {strings.Join(ids, ",")},
		"tweet.fields": {"public_metrics"},
	}

	var result lookupResponse
	if err := c.get(ctx, "/2/tweets", params, &result); err != nil {
		return nil, err
	}

	counters := make(map[string]database.Counters, len(result.Data))
	for _, d := range result.Data {
		m := d.PublicMetrics
		counters[d.ID] = database.Counters{
			Likes:    m.LikeCount,
			Retweets: m.RetweetCount,
			Replies:  m.ReplyCount,
			Quotes:   m.QuoteCount,
			Views:    m.ImpressionCount,
		}
	}
	return counters, nil
}
