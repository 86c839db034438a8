package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// tweetColumns is the column list scanned by scanTweet.
var tweetColumns = []string{
	"id", "text", "url", "author", "quote", "approved", "score", "createdAt",
	"humanDecision", "humanCorrection", "publishedTweetId",
	"likesCount", "retweetsCount", "repliesCount", "quotesCount", "viewsCount",
	"lastMetricsUpdate",
}

// SaveRaw records an ingested tweet. An existing row only has its text and
// url refreshed (and author filled in if it was never known); decision and
// review fields are left alone.
func (db *DB) SaveRaw(id, text, url, author string) error {
	_, err := db.conn.Exec(
		`INSERT INTO tweets (id, text, url, author, createdAt) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			text = excluded.text,
			url = excluded.url,
			author = CASE WHEN tweets.author = '' THEN excluded.author ELSE tweets.author END`,
		id, text, url, author, db.timestamp(),
	)
	if err != nil {
		return fmt.Errorf("saving raw tweet %s: %w", id, err)
	}
	return nil
}

// SaveDecision upserts the model verdict for a tweet without touching the
// human overlay or engagement counters. The store does not refuse repeated
// calls; callers check HasModelDecision first.
func (db *DB) SaveDecision(id, text, url, quote string, approved bool, score int) error {
	_, err := db.conn.Exec(
		`INSERT INTO tweets (id, text, url, quote, approved, score, createdAt) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			text = excluded.text,
			url = excluded.url,
			quote = excluded.quote,
			approved = excluded.approved,
			score = excluded.score`,
		id, text, url, quote, boolToInt(approved), score, db.timestamp(),
	)
	if err != nil {
		return fmt.Errorf("saving decision for %s: %w", id, err)
	}
	return nil
}

// Has reports whether a row with the id exists.
func (db *DB) Has(id string) (bool, error) {
	var n int
	if err := db.conn.QueryRow("SELECT COUNT(*) FROM tweets WHERE id = ?", id).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// HasModelDecision reports whether the judge already produced a verdict for id.
func (db *DB) HasModelDecision(id string) (bool, error) {
	var n int
	err := db.conn.QueryRow(
		"SELECT COUNT(*) FROM tweets WHERE id = ? AND approved IS NOT NULL", id,
	).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Get returns a single tweet, or nil if it does not exist.
func (db *DB) Get(id string) (*Tweet, error) {
	row := db.conn.QueryRow(
		"SELECT "+strings.Join(tweetColumns, ", ")+" FROM tweets WHERE id = ?", id,
	)
	t, err := scanTweet(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scanTweet reads one row of tweetColumns. Every column is scanned
// null-safe since stores from older builds declared them nullable.
func scanTweet(s scanner) (*Tweet, error) {
	var (
		t          Tweet
		text       sql.NullString
		link       sql.NullString
		author     sql.NullString
		quote      sql.NullString
		approved   sql.NullInt64
		score      sql.NullInt64
		createdAt  sql.NullString
		human      sql.NullString
		correction sql.NullString
		published  sql.NullString
		counters   [5]sql.NullInt64
		lastUpdate sql.NullString
	)
	if err := s.Scan(&t.ID, &text, &link, &author, &quote, &approved, &score, &createdAt,
		&human, &correction, &published,
		&counters[0], &counters[1], &counters[2], &counters[3], &counters[4],
		&lastUpdate); err != nil {
		return nil, err
	}

	t.Text = text.String
	t.URL = link.String
	t.Author = author.String
	t.Quote = quote.String
	t.Score = int(score.Int64)
	t.Counters = Counters{
		Likes:    counters[0].Int64,
		Retweets: counters[1].Int64,
		Replies:  counters[2].Int64,
		Quotes:   counters[3].Int64,
		Views:    counters[4].Int64,
	}
	if approved.Valid {
		t.Approved = ApprovalOf(approved.Int64 != 0)
	}
	if createdAt.String != "" {
		ts, err := parseTime(createdAt.String)
		if err != nil {
			return nil, err
		}
		t.CreatedAt = ts
	}
	if human.Valid {
		t.HumanDecision = HumanDecision(human.String)
	}
	t.HumanCorrection = correction.String
	if published.Valid && published.String != "" {
		p := published.String
		t.PublishedTweetID = &p
	}
	if lastUpdate.Valid && lastUpdate.String != "" {
		ts, err := parseTime(lastUpdate.String)
		if err != nil {
			return nil, err
		}
		t.LastMetricsUpdate = &ts
	}
	return &t, nil
}

func scanTweets(rows *sql.Rows) ([]Tweet, error) {
	var tweets []Tweet
	for rows.Next() {
		t, err := scanTweet(rows)
		if err != nil {
			return nil, err
		}
		tweets = append(tweets, *t)
	}
	return tweets, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
