package database

import (
	"fmt"
	"time"
)

// AppendMetricsSnapshot records a new engagement snapshot and mirrors its
// counters onto the tweet row in the same transaction.
func (db *DB) AppendMetricsSnapshot(tweetID string, c Counters) error {
	now := db.timestamp()

	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`UPDATE tweets
		SET likesCount = ?, retweetsCount = ?, repliesCount = ?, quotesCount = ?, viewsCount = ?, lastMetricsUpdate = ?
		WHERE id = ?`,
		c.Likes, c.Retweets, c.Replies, c.Quotes, c.Views, now, tweetID,
	)
	if err != nil {
		return fmt.Errorf("updating counters for %s: %w", tweetID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}

	_, err = tx.Exec(
		`INSERT INTO metrics_snapshots
		(tweetId, capturedAt, likesCount, retweetsCount, repliesCount, quotesCount, viewsCount)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		tweetID, now, c.Likes, c.Retweets, c.Replies, c.Quotes, c.Views,
	)
	if err != nil {
		return fmt.Errorf("inserting snapshot for %s: %w", tweetID, err)
	}

	return tx.Commit()
}

// GetMetricsTargets returns published tweets whose counters were never
// fetched or were last fetched before staleBefore, never-fetched first and
// then oldest first. A zero staleBefore disables the staleness check.
func (db *DB) GetMetricsTargets(limit int, staleBefore time.Time) ([]MetricsTarget, error) {
	if limit <= 0 {
		limit = -1
	}
	query := `SELECT id, publishedTweetId FROM tweets
		WHERE publishedTweetId IS NOT NULL AND publishedTweetId != ''`
	var args []any
	if !staleBefore.IsZero() {
		query += " AND (lastMetricsUpdate IS NULL OR lastMetricsUpdate < ?)"
		args = append(args, staleBefore.UTC().Format(timeLayout))
	}
	query += " ORDER BY (lastMetricsUpdate IS NULL) DESC, lastMetricsUpdate ASC LIMIT ?"
	args = append(args, limit)

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var targets []MetricsTarget
	for rows.Next() {
		var t MetricsTarget
		if err := rows.Scan(&t.TweetID, &t.PublishedTweetID); err != nil {
			return nil, err
		}
		targets = append(targets, t)
	}
	return targets, rows.Err()
}

// GetSnapshots returns the snapshot history of a tweet, oldest first.
func (db *DB) GetSnapshots(tweetID string) ([]MetricsSnapshot, error) {
	rows, err := db.conn.Query(
		`SELECT id, tweetId, capturedAt, likesCount, retweetsCount, repliesCount, quotesCount, viewsCount
		FROM metrics_snapshots WHERE tweetId = ? ORDER BY capturedAt ASC, id ASC`, tweetID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snaps []MetricsSnapshot
	for rows.Next() {
		var s MetricsSnapshot
		var captured string
		if err := rows.Scan(&s.ID, &s.TweetID, &captured,
			&s.Counters.Likes, &s.Counters.Retweets, &s.Counters.Replies, &s.Counters.Quotes, &s.Counters.Views); err != nil {
			return nil, err
		}
		ts, err := parseTime(captured)
		if err != nil {
			return nil, err
		}
		s.CapturedAt = ts
		snaps = append(snaps, s)
	}
	return snaps, rows.Err()
}
