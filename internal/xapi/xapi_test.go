package xapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TobiSchelling/tweetcurator/internal/database"
)

func TestSearchRecent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2/tweets/search/recent", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		q := r.URL.Query()
		assert.Equal(t, "llm -is:retweet", q.Get("query"))
		assert.Equal(t, "10", q.Get("max_results"))
		assert.Equal(t, "author_id", q.Get("expansions"))
		_, _ = w.Write([]byte(`{
			"data": [
				{"id": "2", "text": "second", "author_id": "u2"},
				{"id": "1", "text": "first", "author_id": "u1"},
				{"id": "3", "text": "orphan", "author_id": "u9"}
			],
			"includes": {"users": [
				{"id": "u1", "username": "alice"},
				{"id": "u2", "username": "bob"}
			]}
		}`))
	}))
	defer srv.Close()

	tweets, err := NewClient(srv.URL, "tok").SearchRecent(context.Background(), "llm -is:retweet", 3)
	require.NoError(t, err)
	require.Len(t, tweets, 3)

	assert.Equal(t, Tweet{ID: "2", Text: "second", AuthorID: "u2", Username: "bob"}, tweets[0])
	assert.Equal(t, "https://x.com/bob/status/2", tweets[0].URL())
	assert.Equal(t, "alice", tweets[1].Username)
	assert.Empty(t, tweets[2].Username)
	assert.Empty(t, tweets[2].URL())
}

func TestSearchRecentNoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"meta": {"result_count": 0}}`))
	}))
	defer srv.Close()

	tweets, err := NewClient(srv.URL, "tok").SearchRecent(context.Background(), "q", 500)
	require.NoError(t, err)
	assert.Empty(t, tweets)
}

func TestLookupCounters(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2/tweets", r.URL.Path)
		assert.Equal(t, "99", r.URL.Query().Get("ids"))
		assert.Equal(t, "public_metrics", r.URL.Query().Get("tweet.fields"))
		_, _ = w.Write([]byte(`{"data": [{"id": "99", "public_metrics": {
			"like_count": 5, "retweet_count": 2, "reply_count": 1,
			"quote_count": 0, "impression_count": 1200, "bookmark_count": 3
		}}]}`))
	}))
	defer srv.Close()

	got, err := NewClient(srv.URL, "tok").LookupCounters(context.Background(), []string{"99"})
	require.NoError(t, err)
	assert.Equal(t, map[string]database.Counters{
		"99": {Likes: 5, Retweets: 2, Replies: 1, Quotes: 0, Views: 1200},
	}, got)
}

func TestLookupCountersNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"errors": [{"value": "42", "title": "Not Found Error", "detail": "Could not find tweet with ids: [42]."}]}`))
	}))
	defer srv.Close()

	got, err := NewClient(srv.URL, "tok").LookupCounters(context.Background(), []string{"42"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestLookupCountersBatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1,2", r.URL.Query().Get("ids"))
		_, _ = w.Write([]byte(`{"data": [{"id": "1", "public_metrics": {"like_count": 7}}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok")
	got, err := c.LookupCounters(context.Background(), []string{"1", "2"})
	require.NoError(t, err)
	assert.Equal(t, map[string]database.Counters{"1": {Likes: 7}}, got)

	got, err = c.LookupCounters(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = c.LookupCounters(context.Background(), make([]string, 101))
	assert.Error(t, err)
}

func TestAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"title":"Unauthorized"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL+"/", "bad").LookupCounters(context.Background(), []string{"1"})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "Unauthorized")
}

func TestNewClientDefaultBaseURL(t *testing.T) {
	assert.Equal(t, defaultBaseURL, NewClient("", "tok").baseURL)
	assert.Equal(t, "http://x.test", NewClient("http://x.test/", "tok").baseURL)
}
