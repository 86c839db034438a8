package database

import (
	"fmt"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err, "failed to open test db")
	t.Cleanup(func() { db.Close() })
	return db
}

// openClockedDB returns a store whose clock advances one second per call,
// so createdAt ordering is deterministic.
func openClockedDB(t *testing.T) *DB {
	t.Helper()
	base := time.Date(2026, 2, 6, 12, 0, 0, 0, time.UTC)
	calls := 0
	clock := func() time.Time {
		calls++
		return base.Add(time.Duration(calls) * time.Second)
	}
	db, err := Open(filepath.Join(t.TempDir(), "test.db"), withClock(clock))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func ptr[T any](v T) *T { return &v }

func TestSaveRawCreatesUndecidedRow(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.SaveRaw("1", "hello", "https://x.com/a/status/1", "alice"))

	tw, err := db.Get("1")
	require.NoError(t, err)
	require.NotNil(t, tw)
	assert.Equal(t, "hello", tw.Text)
	assert.Equal(t, "alice", tw.Author)
	assert.Equal(t, ApprovalUnset, tw.Approved)
	assert.Equal(t, HumanUnset, tw.HumanDecision)
	assert.Nil(t, tw.PublishedTweetID)
	assert.False(t, tw.CreatedAt.IsZero())

	decided, err := db.HasModelDecision("1")
	require.NoError(t, err)
	assert.False(t, decided)

	has, err := db.Has("1")
	require.NoError(t, err)
	assert.True(t, has)
}

func TestGetMissingReturnsNil(t *testing.T) {
	db := openTestDB(t)
	tw, err := db.Get("nope")
	require.NoError(t, err)
	assert.Nil(t, tw)

	has, err := db.Has("nope")
	require.NoError(t, err)
	assert.False(t, has)
}

func TestSaveRawAfterDecisionKeepsVerdict(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.SaveRaw("1", "old text", "https://old", "alice"))
	require.NoError(t, db.SaveDecision("1", "old text", "https://old", "Great take.\nPercentile: 80", true, 80))
	before, err := db.Get("1")
	require.NoError(t, err)

	require.NoError(t, db.SaveRaw("1", "new text", "https://new", "bob"))

	after, err := db.Get("1")
	require.NoError(t, err)
	assert.Equal(t, "new text", after.Text)
	assert.Equal(t, "https://new", after.URL)
	assert.Equal(t, "alice", after.Author, "known author is not overwritten")
	assert.Equal(t, before.Quote, after.Quote)
	assert.Equal(t, ApprovalTrue, after.Approved)
	assert.Equal(t, 80, after.Score)
	assert.Equal(t, before.CreatedAt, after.CreatedAt)
}

func TestSaveDecisionLeavesHumanFields(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.SaveRaw("1", "A", "u", ""))
	require.NoError(t, db.UpdateHumanDecision("1", HumanUpdate{
		Decision:         ptr(HumanApproved),
		PublishedTweetID: ptr("pub1"),
	}))

	require.NoError(t, db.SaveDecision("1", "A", "u", "Rejected: spam", false, 0))

	tw, err := db.Get("1")
	require.NoError(t, err)
	assert.Equal(t, ApprovalFalse, tw.Approved)
	assert.Equal(t, HumanApproved, tw.HumanDecision)
	require.NotNil(t, tw.PublishedTweetID)
	assert.Equal(t, "pub1", *tw.PublishedTweetID)

	decided, err := db.HasModelDecision("1")
	require.NoError(t, err)
	assert.True(t, decided)
}

func TestSaveDecisionWithoutRawRow(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.SaveDecision("9", "text", "url", "q", true, 55))

	tw, err := db.Get("9")
	require.NoError(t, err)
	require.NotNil(t, tw)
	assert.Equal(t, 55, tw.Score)
	assert.Equal(t, ApprovalTrue, tw.Approved)
}

func TestUpdateHumanDecisionDoesNotTouchVerdict(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.SaveDecision("1", "A", "u", "quote text", true, 73))

	require.NoError(t, db.UpdateHumanDecision("1", HumanUpdate{
		Decision:         ptr(HumanApproved),
		PublishedTweetID: ptr("pub123"),
	}))

	tw, err := db.Get("1")
	require.NoError(t, err)
	assert.Equal(t, "quote text", tw.Quote)
	assert.Equal(t, ApprovalTrue, tw.Approved)
	assert.Equal(t, 73, tw.Score)
	assert.Equal(t, HumanApproved, tw.HumanDecision)
	assert.Equal(t, "pub123", *tw.PublishedTweetID)
}

func TestUpdateHumanDecisionPartial(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.SaveRaw("1", "A", "u", ""))
	require.NoError(t, db.UpdateHumanDecision("1", HumanUpdate{Decision: ptr(HumanRejected)}))
	require.NoError(t, db.UpdateHumanDecision("1", HumanUpdate{PublishedTweetID: ptr("p")}))

	tw, err := db.Get("1")
	require.NoError(t, err)
	assert.Equal(t, HumanRejected, tw.HumanDecision, "absent decision leaves the column unchanged")
	assert.Equal(t, "p", *tw.PublishedTweetID)

	require.NoError(t, db.UpdateHumanDecision("1", HumanUpdate{Decision: ptr(HumanUnset)}))
	tw, err = db.Get("1")
	require.NoError(t, err)
	assert.Equal(t, HumanUnset, tw.HumanDecision)
}

func TestUpdateHumanDecisionNoOpAndMissing(t *testing.T) {
	db := openTestDB(t)
	assert.NoError(t, db.UpdateHumanDecision("ghost", HumanUpdate{}))
	assert.ErrorIs(t, db.UpdateHumanDecision("ghost", HumanUpdate{Decision: ptr(HumanApproved)}), ErrNotFound)
}

func TestConfigRoundTrip(t *testing.T) {
	db := openTestDB(t)
	_, ok, err := db.GetConfig("judge.previous_response_id")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, db.SetConfig("judge.previous_response_id", "resp_1"))
	require.NoError(t, db.SetConfig("judge.previous_response_id", "resp_2"))

	v, ok, err := db.GetConfig("judge.previous_response_id")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "resp_2", v)
}

func TestGoldExamples(t *testing.T) {
	db := openClockedDB(t)
	require.NoError(t, db.SaveDecision("1", "first", "u1", "q1", true, 90))
	require.NoError(t, db.SaveDecision("2", "second", "u2", "q2", true, 70))
	require.NoError(t, db.SaveDecision("3", "third", "u3", "q3", false, 0))
	require.NoError(t, db.SaveRaw("4", "undecided", "u4", ""))

	require.NoError(t, db.UpdateHumanDecision("1", HumanUpdate{Decision: ptr(HumanApproved)}))
	require.NoError(t, db.UpdateHumanDecision("2", HumanUpdate{Decision: ptr(HumanApproved), Correction: ptr("better q2")}))
	require.NoError(t, db.UpdateHumanDecision("3", HumanUpdate{Decision: ptr(HumanRejected)}))
	require.NoError(t, db.UpdateHumanDecision("4", HumanUpdate{Decision: ptr(HumanApproved)}))

	got, err := db.GetGoldExamples(0)
	require.NoError(t, err)
	want := []GoldExample{
		{TweetText: "second", Response: "q2", Correction: "better q2", Type: GoldCorrected},
		{TweetText: "first", Response: "q1", Type: GoldApproved},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("gold examples mismatch (-want +got):\n%s", diff)
	}

	limited, err := db.GetGoldExamples(1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	// Changing the review removes the example on the next call.
	require.NoError(t, db.UpdateHumanDecision("2", HumanUpdate{Decision: ptr(HumanRejected)}))
	got, err = db.GetGoldExamples(0)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestAppendMetricsSnapshot(t *testing.T) {
	db := openClockedDB(t)
	require.NoError(t, db.SaveDecision("1", "A", "u", "q", true, 80))
	require.NoError(t, db.UpdateHumanDecision("1", HumanUpdate{PublishedTweetID: ptr("pub1")}))

	require.NoError(t, db.AppendMetricsSnapshot("1", Counters{Likes: 1, Views: 10}))
	require.NoError(t, db.AppendMetricsSnapshot("1", Counters{Likes: 5, Retweets: 2, Replies: 1, Quotes: 1, Views: 50}))

	tw, err := db.Get("1")
	require.NoError(t, err)
	assert.Equal(t, Counters{Likes: 5, Retweets: 2, Replies: 1, Quotes: 1, Views: 50}, tw.Counters)
	require.NotNil(t, tw.LastMetricsUpdate)
	assert.Equal(t, ApprovalTrue, tw.Approved)
	assert.Equal(t, 80, tw.Score)

	snaps, err := db.GetSnapshots("1")
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Equal(t, int64(1), snaps[0].Counters.Likes)
	assert.Equal(t, int64(5), snaps[1].Counters.Likes)
	assert.True(t, snaps[0].CapturedAt.Before(snaps[1].CapturedAt))
	assert.Equal(t, snaps[1].CapturedAt, *tw.LastMetricsUpdate)
}

func TestAppendMetricsSnapshotUnknownTweet(t *testing.T) {
	db := openTestDB(t)
	assert.ErrorIs(t, db.AppendMetricsSnapshot("ghost", Counters{Likes: 1}), ErrNotFound)

	snaps, err := db.GetSnapshots("ghost")
	require.NoError(t, err)
	assert.Empty(t, snaps)
}

func TestGetMetricsTargets(t *testing.T) {
	db := openClockedDB(t)
	for _, id := range []string{"1", "2", "3", "4"} {
		require.NoError(t, db.SaveDecision(id, "t"+id, "u", "q", true, 50))
	}
	require.NoError(t, db.UpdateHumanDecision("1", HumanUpdate{PublishedTweetID: ptr("p1")}))
	require.NoError(t, db.UpdateHumanDecision("2", HumanUpdate{PublishedTweetID: ptr("p2")}))
	require.NoError(t, db.UpdateHumanDecision("3", HumanUpdate{PublishedTweetID: ptr("p3")}))

	require.NoError(t, db.AppendMetricsSnapshot("2", Counters{}))
	require.NoError(t, db.AppendMetricsSnapshot("1", Counters{}))

	targets, err := db.GetMetricsTargets(10, time.Time{})
	require.NoError(t, err)
	want := []MetricsTarget{
		{TweetID: "3", PublishedTweetID: "p3"},
		{TweetID: "2", PublishedTweetID: "p2"},
		{TweetID: "1", PublishedTweetID: "p1"},
	}
	if diff := cmp.Diff(want, targets); diff != "" {
		t.Errorf("targets mismatch (-want +got):\n%s", diff)
	}

	// Only the never-refreshed tweet is stale relative to a cutoff in the past.
	stale, err := db.GetMetricsTargets(10, time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, "3", stale[0].TweetID)

	limited, err := db.GetMetricsTargets(1, time.Time{})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestGetStats(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.SaveRaw("1", "A", "u", ""))
	require.NoError(t, db.SaveDecision("2", "B", "u", "q", true, 60))
	require.NoError(t, db.SaveDecision("3", "C", "u", "Rejected", false, 0))
	require.NoError(t, db.UpdateHumanDecision("2", HumanUpdate{Decision: ptr(HumanApproved), PublishedTweetID: ptr("p")}))
	require.NoError(t, db.AppendMetricsSnapshot("2", Counters{Likes: 3}))

	s, err := db.GetStats()
	require.NoError(t, err)
	want := Stats{TotalTweets: 3, Decided: 2, Approved: 1, Rejected: 1, Pending: 1, HumanApproved: 1, Published: 1, Snapshots: 1}
	assert.Equal(t, want, *s)
}

func TestPaginationNormalize(t *testing.T) {
	tests := []struct {
		in   Pagination
		want Pagination
	}{
		{Pagination{}, Pagination{Page: 1, PageSize: 20}},
		{Pagination{Page: -3, PageSize: -1}, Pagination{Page: 1, PageSize: 1}},
		{Pagination{Page: 2, PageSize: 500}, Pagination{Page: 2, PageSize: 100}},
		{Pagination{Page: 4, PageSize: 7}, Pagination{Page: 4, PageSize: 7}},
		{Pagination{Page: math.MaxInt, PageSize: 7}, Pagination{Page: MaxPage, PageSize: 7}},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%+v", tt.in), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.Normalize())
		})
	}
}
