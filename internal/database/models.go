package database

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// Approval is the model verdict on a tweet. The zero value means the judge
// has not decided yet.
type Approval int

const (
	ApprovalUnset Approval = iota
	ApprovalTrue
	ApprovalFalse
)

// ApprovalOf converts a decided verdict into an Approval.
func ApprovalOf(approved bool) Approval {
	if approved {
		return ApprovalTrue
	}
	return ApprovalFalse
}

// IsSet reports whether the judge has produced a verdict.
func (a Approval) IsSet() bool { return a != ApprovalUnset }

func (a Approval) String() string {
	switch a {
	case ApprovalTrue:
		return "approved"
	case ApprovalFalse:
		return "rejected"
	default:
		return "unset"
	}
}

// MarshalJSON encodes the tri-state as true, false or null.
func (a Approval) MarshalJSON() ([]byte, error) {
	switch a {
	case ApprovalTrue:
		return []byte("true"), nil
	case ApprovalFalse:
		return []byte("false"), nil
	default:
		return []byte("null"), nil
	}
}

// HumanDecision is the reviewer overlay, independent of the model verdict.
type HumanDecision string

const (
	HumanUnset    HumanDecision = ""
	HumanApproved HumanDecision = "APPROVED"
	HumanRejected HumanDecision = "REJECTED"
)

// ParseHumanDecision accepts APPROVED, REJECTED or UNSET (case-sensitive).
func ParseHumanDecision(s string) (HumanDecision, error) {
	switch s {
	case "APPROVED":
		return HumanApproved, nil
	case "REJECTED":
		return HumanRejected, nil
	case "UNSET", "":
		return HumanUnset, nil
	}
	return HumanUnset, fmt.Errorf("invalid human decision %q", s)
}

// MarshalJSON encodes HumanUnset as null.
func (h HumanDecision) MarshalJSON() ([]byte, error) {
	if h == HumanUnset {
		return []byte("null"), nil
	}
	return json.Marshal(string(h))
}

// Counters are the engagement numbers mirrored from the latest snapshot.
type Counters struct {
	Likes    int64 `json:"likes"`
	Retweets int64 `json:"retweets"`
	Replies  int64 `json:"replies"`
	Quotes   int64 `json:"quotes"`
	Views    int64 `json:"views"`
}

// Tweet is an ingested post together with its decision and review state.
type Tweet struct {
	ID                string        `json:"id"`
	Text              string        `json:"text"`
	URL               string        `json:"url"`
	Author            string        `json:"author,omitempty"`
	Quote             string        `json:"quote"`
	Approved          Approval      `json:"approved"`
	Score             int           `json:"score"`
	CreatedAt         time.Time     `json:"createdAt"`
	HumanDecision     HumanDecision `json:"humanDecision"`
	HumanCorrection   string        `json:"humanCorrection,omitempty"`
	PublishedTweetID  *string       `json:"publishedTweetId"`
	Counters          Counters      `json:"counters"`
	LastMetricsUpdate *time.Time    `json:"lastMetricsUpdate"`
}

// MetricsSnapshot is an immutable capture of a tweet's engagement.
type MetricsSnapshot struct {
	ID         int64     `json:"id"`
	TweetID    string    `json:"tweetId"`
	CapturedAt time.Time `json:"capturedAt"`
	Counters   Counters  `json:"counters"`
}

// MetricsTarget is a published tweet due for an engagement refresh.
type MetricsTarget struct {
	TweetID          string
	PublishedTweetID string
}

// Gold example types.
const (
	GoldApproved  = "approved"
	GoldCorrected = "corrected"
)

// GoldExample is a human-approved decision projected for few-shot prompting.
type GoldExample struct {
	TweetText  string
	Response   string
	Correction string
	Type       string
}

// HumanFilter restricts List by review state. The empty value matches all rows.
type HumanFilter string

const (
	HumanFilterAny      HumanFilter = ""
	HumanFilterApproved HumanFilter = "APPROVED"
	HumanFilterRejected HumanFilter = "REJECTED"
	HumanFilterUnset    HumanFilter = "UNSET"
)

// ParseHumanFilter validates a filter value coming from a review surface.
func ParseHumanFilter(s string) (HumanFilter, error) {
	switch HumanFilter(s) {
	case HumanFilterAny, HumanFilterApproved, HumanFilterRejected, HumanFilterUnset:
		return HumanFilter(s), nil
	}
	return HumanFilterAny, fmt.Errorf("invalid humanDecision filter %q", s)
}

// ListFilter selects rows for the review queue.
type ListFilter struct {
	Approved *bool
	Human    HumanFilter
}

// Pagination defaults.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	// MaxPage keeps the row offset and page arithmetic within int range.
	MaxPage = math.MaxInt / MaxPageSize
)

// Pagination is a 1-based page request.
type Pagination struct {
	Page     int
	PageSize int
}

// Normalize applies defaults, clamps the page size to [1, MaxPageSize] and
// the page to [1, MaxPage].
func (p Pagination) Normalize() Pagination {
	switch {
	case p.Page < 1:
		p.Page = 1
	case p.Page > MaxPage:
		p.Page = MaxPage
	}
	switch {
	case p.PageSize == 0:
		p.PageSize = DefaultPageSize
	case p.PageSize < 1:
		p.PageSize = 1
	case p.PageSize > MaxPageSize:
		p.PageSize = MaxPageSize
	}
	return p
}

// Page is one page of List results.
type Page struct {
	Items    []Tweet `json:"items"`
	Total    int     `json:"total"`
	Page     int     `json:"page"`
	PageSize int     `json:"pageSize"`
}

// HumanUpdate is a partial review mutation. Nil fields leave columns
// unchanged; pointers to zero values clear them.
type HumanUpdate struct {
	Decision         *HumanDecision
	PublishedTweetID *string
	Correction       *string
}

// IsEmpty reports whether the update changes nothing.
func (u HumanUpdate) IsEmpty() bool {
	return u.Decision == nil && u.PublishedTweetID == nil && u.Correction == nil
}

// Stats contains aggregate database statistics.
type Stats struct {
	TotalTweets   int
	Decided       int
	Approved      int
	Rejected      int
	Pending       int
	HumanApproved int
	HumanRejected int
	Published     int
	Snapshots     int
}
